// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agxproxy

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gvisor.dev/agxproxy/pkg/abi/agx"
)

// TraceMetrics counts calls seen by a TracingGateway.
type TraceMetrics struct {
	Calls  *prometheus.CounterVec
	Errors *prometheus.CounterVec
}

// NewTraceMetrics creates the tracing counters and registers them with reg,
// if reg is not nil.
func NewTraceMetrics(reg prometheus.Registerer) *TraceMetrics {
	m := &TraceMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agx_gateway_calls_total",
			Help: "Number of AGX external method calls, by operation and revision.",
		}, []string{"operation", "revision"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agx_gateway_call_errors_total",
			Help: "Number of failed AGX external method calls, by operation and revision.",
		}, []string{"operation", "revision"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Errors)
	}
	return m
}

// unknownSelectorInterval bounds how often calls with unknown selectors are
// warned about.
const unknownSelectorInterval = 10 * time.Second

// TracingGateway is a Gateway that logs and counts every call it forwards,
// labelled with the operation each selector implements.
type TracingGateway struct {
	next       Gateway
	translator *Translator
	metrics    *TraceMetrics
	unknown    *rate.Limiter
}

// NewTracingGateway returns a TracingGateway forwarding to next. metrics may
// be nil.
func NewTracingGateway(next Gateway, translator *Translator, metrics *TraceMetrics) *TracingGateway {
	return &TracingGateway{
		next:       next,
		translator: translator,
		metrics:    metrics,
		unknown:    rate.NewLimiter(rate.Every(unknownSelectorInterval), 1),
	}
}

// Call implements Gateway.Call.
func (g *TracingGateway) Call(ctx context.Context, selector uint32, input, output []byte) (int, error) {
	label := agx.SelectorLabelInvalid
	if selector != agx.SelectorInvalid {
		label = g.translator.Label(selector)
	}
	rev := g.translator.Revision().String()
	entry := log.WithFields(logrus.Fields{
		"selector":  selector,
		"operation": label,
		"revision":  rev,
	})
	if label == agx.SelectorLabelInvalid && g.unknown.Allow() {
		entry.Warn("Call with selector unknown to this revision")
	}
	if g.metrics != nil {
		g.metrics.Calls.WithLabelValues(label.String(), rev).Inc()
	}

	n, err := g.next.Call(ctx, selector, input, output)
	if err != nil {
		if g.metrics != nil {
			g.metrics.Errors.WithLabelValues(label.String(), rev).Inc()
		}
		entry.WithError(err).Debug("Call failed")
		return n, err
	}
	entry.WithFields(logrus.Fields{
		"input_size":  len(input),
		"output_size": n,
	}).Debug("Call")
	return n, nil
}
