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

// Package agxconf holds the macOS version handling that decides which AGX
// protocol revision is spoken by the host.
package agxconf

import (
	"fmt"
	"strconv"
	"strings"
)

// OSVersion is a macOS product version, e.g. "14.2.1".
type OSVersion struct {
	major int
	minor int
	patch int
}

// NewOSVersion returns a new OSVersion.
func NewOSVersion(major, minor, patch int) OSVersion {
	return OSVersion{major, minor, patch}
}

// ParseOSVersion parses a product version of the form
// major[.minor[.patch]]. Missing components are zero.
func ParseOSVersion(version string) (OSVersion, error) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) == 0 || len(parts) > 3 {
		return OSVersion{}, fmt.Errorf("invalid format of version string %q", version)
	}
	var (
		res  OSVersion
		dest = []*int{&res.major, &res.minor, &res.patch}
	)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return OSVersion{}, fmt.Errorf("invalid format for component %d of version %q: %v", i, version, err)
		}
		if n < 0 {
			return OSVersion{}, fmt.Errorf("negative component %d in version %q", i, version)
		}
		*dest[i] = n
	}
	return res, nil
}

// MajorVersion returns the integer at the start of version, ignoring
// anything that follows it. "26.0.1", "15" and "14beta" all have a major
// version, while only the first two parse with ParseOSVersion.
func MajorVersion(version string) (int, error) {
	s := strings.TrimLeft(version, " \t\n")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("version string %q does not start with a number", version)
	}
	major, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("invalid major version in %q: %v", version, err)
	}
	return major, nil
}

// String implements fmt.Stringer.String.
func (v OSVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// IsGreaterThan returns true if v is strictly newer than v2.
func (v OSVersion) IsGreaterThan(v2 OSVersion) bool {
	return v.isGreaterThanImpl(false /* orEqual */, v2)
}

// IsGreaterThanOrEqual returns true if v is at least as new as v2.
func (v OSVersion) IsGreaterThanOrEqual(v2 OSVersion) bool {
	return v.isGreaterThanImpl(true /* orEqual */, v2)
}

func (v OSVersion) isGreaterThanImpl(orEqual bool, v2 OSVersion) bool {
	if v.major != v2.major {
		return v.major > v2.major
	}
	if v.minor != v2.minor {
		return v.minor > v2.minor
	}
	if v.patch != v2.patch {
		return v.patch > v2.patch
	}
	return orEqual
}
