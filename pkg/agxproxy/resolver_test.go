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
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
)

// countingSource reports version and counts how often it was asked.
type countingSource struct {
	version string
	err     error
	calls   atomic.Int32
}

func (s *countingSource) ProductVersion() (string, error) {
	s.calls.Add(1)
	return s.version, s.err
}

func TestResolverBoundaries(t *testing.T) {
	for _, tc := range []struct {
		version string
		want    agxconf.Revision
	}{
		{"13.0", agxconf.RevisionV13},
		{"14.6.1", agxconf.RevisionV13},
		{"15", agxconf.RevisionV13},
		{"15.7.1", agxconf.RevisionV13},
		{"26", agxconf.RevisionV26},
		{"26.0.1", agxconf.RevisionV26},
		{"27.1", agxconf.RevisionV26},
	} {
		r := NewResolver(agxconf.StaticVersionSource(tc.version))
		if got := r.Revision(); got != tc.want {
			t.Errorf("Revision() for macOS %s = %v, want %v", tc.version, got, tc.want)
		}
	}
}

func TestResolverFatal(t *testing.T) {
	for _, tc := range []struct {
		name   string
		source agxconf.VersionSource
	}{
		{"gap low", agxconf.StaticVersionSource("16.0")},
		{"gap high", agxconf.StaticVersionSource("25.9")},
		{"unparsable", agxconf.StaticVersionSource("Sequoia")},
		{"no version", agxconf.VersionSourceFunc(func() (string, error) {
			return "", errors.New("sysctl failed")
		})},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mustPanic(t, "Revision()", func() {
				NewResolver(tc.source).Revision()
			})
		})
	}
}

func TestResolverQueriesOnce(t *testing.T) {
	src := &countingSource{version: "26.1"}
	r := NewResolver(src)
	for i := 0; i < 5; i++ {
		if got := r.Revision(); got != agxconf.RevisionV26 {
			t.Fatalf("Revision() = %v, want %v", got, agxconf.RevisionV26)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source queried %d times, want 1", got)
	}
}

func TestResolverConcurrentFirstUse(t *testing.T) {
	src := &countingSource{version: "14.4"}
	r := NewResolver(src)
	tr := NewTranslator(r)

	const goroutines = 64
	revs := make([]agxconf.Revision, goroutines)
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		i := i
		g.Go(func() error {
			revs[i] = tr.Revision()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	for i, rev := range revs {
		if rev != agxconf.RevisionV13 {
			t.Errorf("goroutine %d saw %v, want %v", i, rev, agxconf.RevisionV13)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source queried %d times, want 1", got)
	}
}

func TestFixedResolver(t *testing.T) {
	for _, rev := range agxconf.Revisions() {
		if got := NewFixedResolver(rev).Revision(); got != rev {
			t.Errorf("NewFixedResolver(%v).Revision() = %v", rev, got)
		}
	}
	mustPanic(t, "NewFixedResolver(invalid)", func() {
		NewFixedResolver(agxconf.Revision(9))
	})
}

func TestResolverOSVersion(t *testing.T) {
	for _, tc := range []struct {
		version string
		want    agxconf.OSVersion
		ok      bool
	}{
		{"14.2.1", agxconf.NewOSVersion(14, 2, 1), true},
		{" 26.1\n", agxconf.NewOSVersion(26, 1, 0), true},
		{"14beta", agxconf.OSVersion{}, false},
	} {
		src := &countingSource{version: tc.version}
		r := NewResolver(src)
		got, ok := r.OSVersion()
		if ok != tc.ok || got != tc.want {
			t.Errorf("OSVersion() for %q = %v, %t; want %v, %t", tc.version, got, ok, tc.want, tc.ok)
		}
		r.Revision()
		if n := src.calls.Load(); n != 1 {
			t.Errorf("source called %d times for %q, want 1", n, tc.version)
		}
	}
	if _, ok := NewFixedResolver(agxconf.RevisionV26).OSVersion(); ok {
		t.Errorf("fixed resolver reported an OS version")
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Errorf("Default() returned different translators")
	}
}
