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

// Package callfilter describes which external method selectors may be
// forwarded to the AGX service.
package callfilter

import (
	"fmt"
	"strings"
)

// Rule decides whether a selector may be forwarded.
type Rule interface {
	// Matches returns true if selector is allowed by this rule.
	Matches(selector uint32) bool

	// Recurse replaces every direct sub-rule with fn(subRule).
	Recurse(fn func(Rule) Rule)

	// String returns a human-readable form of the rule.
	String() string
}

// MatchAll matches every selector.
type MatchAll struct{}

// Matches implements Rule.Matches.
func (MatchAll) Matches(uint32) bool { return true }

// Recurse implements Rule.Recurse.
func (MatchAll) Recurse(func(Rule) Rule) {}

// String implements Rule.String.
func (MatchAll) String() string { return "*" }

// MatchSelector matches exactly one selector.
type MatchSelector uint32

// Matches implements Rule.Matches.
func (m MatchSelector) Matches(selector uint32) bool { return uint32(m) == selector }

// Recurse implements Rule.Recurse.
func (MatchSelector) Recurse(func(Rule) Rule) {}

// String implements Rule.String.
func (m MatchSelector) String() string { return fmt.Sprintf("%#x", uint32(m)) }

// Or matches if any of its sub-rules matches. An empty Or matches nothing.
type Or []Rule

// Matches implements Rule.Matches.
func (o Or) Matches(selector uint32) bool {
	for _, r := range o {
		if r.Matches(selector) {
			return true
		}
	}
	return false
}

// Recurse implements Rule.Recurse.
func (o Or) Recurse(fn func(Rule) Rule) {
	for i, r := range o {
		o[i] = fn(r)
	}
}

// String implements Rule.String.
func (o Or) String() string { return joinRules("|", o) }

// And matches if all of its sub-rules match.
type And []Rule

// Matches implements Rule.Matches.
func (a And) Matches(selector uint32) bool {
	for _, r := range a {
		if !r.Matches(selector) {
			return false
		}
	}
	return len(a) > 0
}

// Recurse implements Rule.Recurse.
func (a And) Recurse(fn func(Rule) Rule) {
	for i, r := range a {
		a[i] = fn(r)
	}
}

// String implements Rule.String.
func (a And) String() string { return joinRules("&", a) }

func joinRules(sep string, rules []Rule) string {
	parts := make([]string, len(rules))
	for i, r := range rules {
		parts[i] = r.String()
	}
	return "(" + strings.Join(parts, " "+sep+" ") + ")"
}
