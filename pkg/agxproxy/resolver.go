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

// Package agxproxy translates between the AGX driver's view of the macOS
// AGX accelerator service and the wire protocol spoken by the running
// macOS release.
//
// The service's external method selectors and reply layouts change between
// macOS releases without any in-band version information. A Resolver works
// out, once per process, which protocol revision the host speaks. A
// Translator then maps selector labels to and from wire selectors, and
// decodes replies into revision independent structs.
//
// Every failure in this package is either an ordinary negative result
// (agx.SelectorInvalid, agx.SelectorLabelInvalid) or a broken structural
// assumption. The latter panic: continuing would misread reply layouts.
package agxproxy

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
)

var log = logrus.WithField("component", "agxproxy")

// Resolver determines the protocol revision of the host. The first call to
// Revision queries the host; the result is kept for the lifetime of the
// Resolver.
type Resolver struct {
	source agxconf.VersionSource

	once sync.Once

	// The fields below are immutable after once has run.
	rev agxconf.Revision
	// osVersion is valid only if hasOSVersion is set.
	osVersion    agxconf.OSVersion
	hasOSVersion bool
}

// NewResolver returns a Resolver that queries source.
func NewResolver(source agxconf.VersionSource) *Resolver {
	return &Resolver{source: source}
}

// NewFixedResolver returns a Resolver that reports rev without probing.
func NewFixedResolver(rev agxconf.Revision) *Resolver {
	if !rev.IsValid() {
		panic(fmt.Sprintf("invalid revision %v", rev))
	}
	r := &Resolver{rev: rev}
	r.once.Do(func() {})
	return r
}

// Revision returns the protocol revision of the host.
//
// It panics if the product version can't be obtained or falls between
// supported ranges.
func (r *Resolver) Revision() agxconf.Revision {
	r.once.Do(r.resolve)
	return r.rev
}

// OSVersion returns the product version the revision was resolved from. It
// returns false if the Resolver was created with a fixed revision, or if
// the product version has a non-numeric suffix (e.g. "14beta").
func (r *Resolver) OSVersion() (agxconf.OSVersion, bool) {
	r.Revision()
	return r.osVersion, r.hasOSVersion
}

func (r *Resolver) resolve() {
	version, err := r.source.ProductVersion()
	if err != nil {
		panic(fmt.Sprintf("agxproxy: failed to get macOS version: %v", err))
	}
	major, err := agxconf.MajorVersion(version)
	if err != nil {
		panic(fmt.Sprintf("agxproxy: failed to parse macOS version: %v", err))
	}
	rev, err := agxconf.Classify(major)
	if err != nil {
		panic(fmt.Sprintf("agxproxy: %v", err))
	}
	entry := log.WithFields(logrus.Fields{
		"os_version": version,
		"revision":   rev,
	})
	if v, err := agxconf.ParseOSVersion(version); err == nil {
		r.osVersion, r.hasOSVersion = v, true
		entry = entry.WithField("os_version", v)
		if !agxconf.FullyVerified(rev, v) {
			entry.Warn("Selector table is not fully verified on this macOS release")
		}
	}
	entry.Info("Resolved AGX protocol revision")
	r.rev = rev
}

var (
	defaultOnce       sync.Once
	defaultTranslator *Translator
)

// Default returns the process-wide Translator for the running host.
func Default() *Translator {
	defaultOnce.Do(func() {
		defaultTranslator = NewTranslator(NewResolver(agxconf.HostVersionSource()))
	})
	return defaultTranslator
}
