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
	"errors"
	"fmt"

	"gvisor.dev/agxproxy/pkg/abi/agx"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
	"gvisor.dev/agxproxy/pkg/callfilter"
)

// ErrSelectorDenied is returned by GuardedGateway for selectors outside its
// allow-list.
var ErrSelectorDenied = errors.New("selector not allowed")

// AllowedSelectors returns a rule matching every selector implemented in
// rev's selector table.
func AllowedSelectors(rev agxconf.Revision) callfilter.Rule {
	var rule callfilter.Or
	for _, e := range tableFor(rev).entries {
		if e.Supported() {
			rule = append(rule, callfilter.MatchSelector(e.Selector))
		}
	}
	return callfilter.Optimize(rule)
}

// AllowedOperations returns a rule matching the selectors that implement
// labels in rev. Without labels, every implemented operation is allowed.
func AllowedOperations(rev agxconf.Revision, labels ...agx.SelectorLabel) callfilter.Rule {
	var only callfilter.Rule = callfilter.MatchAll{}
	if len(labels) > 0 {
		var or callfilter.Or
		for _, l := range labels {
			or = append(or, callfilter.MatchSelector(tableFor(rev).selector(l)))
		}
		only = or
	}
	return callfilter.Optimize(callfilter.And{AllowedSelectors(rev), only})
}

// GuardedGateway is a Gateway that only forwards selectors matched by its
// rule.
type GuardedGateway struct {
	next Gateway
	rule callfilter.Rule
}

// NewGuardedGateway returns a GuardedGateway forwarding to next the
// selectors matched by rule.
func NewGuardedGateway(next Gateway, rule callfilter.Rule) *GuardedGateway {
	return &GuardedGateway{
		next: next,
		rule: rule,
	}
}

// Rule returns the allow-list of g.
func (g *GuardedGateway) Rule() callfilter.Rule {
	return g.rule
}

// Call implements Gateway.Call.
func (g *GuardedGateway) Call(ctx context.Context, selector uint32, input, output []byte) (int, error) {
	if !g.rule.Matches(selector) {
		log.WithField("selector", selector).Debug("Denied call")
		return 0, fmt.Errorf("selector %#x: %w", selector, ErrSelectorDenied)
	}
	return g.next.Call(ctx, selector, input, output)
}
