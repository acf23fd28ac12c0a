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

package agxconf

import (
	"fmt"
)

// Revision identifies a wire format generation of the AGX service.
type Revision int

// Supported revisions, oldest first.
const (
	// RevisionV13 is spoken by macOS 13 through LegacyCeiling.
	RevisionV13 Revision = iota

	// RevisionV26 is spoken by macOS CurrentFloor and later.
	RevisionV26
)

const (
	// LegacyCeiling is the newest macOS major version that speaks
	// RevisionV13.
	LegacyCeiling = 15

	// CurrentFloor is the oldest macOS major version that speaks
	// RevisionV26.
	CurrentFloor = 26
)

// String implements fmt.Stringer.String.
func (r Revision) String() string {
	switch r {
	case RevisionV13:
		return "v13"
	case RevisionV26:
		return "v26"
	default:
		return fmt.Sprintf("Revision(%d)", int(r))
	}
}

// IsValid returns true if r is one of the supported revisions.
func (r Revision) IsValid() bool {
	return r == RevisionV13 || r == RevisionV26
}

// Revisions returns all supported revisions, oldest first.
func Revisions() []Revision {
	return []Revision{RevisionV13, RevisionV26}
}

// ParseRevision parses the output of Revision.String.
func ParseRevision(s string) (Revision, error) {
	for _, r := range Revisions() {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown revision %q; want one of %v", s, Revisions())
}

// UnsupportedVersionError is returned for macOS major versions that no
// supported revision covers.
type UnsupportedVersionError struct {
	Major int
}

// Error implements error.Error.
func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("macOS %d is unsupported: only <= %d and >= %d are known", e.Major, LegacyCeiling, CurrentFloor)
}

// Classify maps a macOS major version to the revision it speaks.
//
// Versions strictly between LegacyCeiling and CurrentFloor have never been
// reverse engineered. Guessing would misinterpret reply layouts, so they
// are rejected.
func Classify(major int) (Revision, error) {
	switch {
	case major <= LegacyCeiling:
		return RevisionV13, nil
	case major >= CurrentFloor:
		return RevisionV26, nil
	default:
		return 0, &UnsupportedVersionError{Major: major}
	}
}

// FullyVerified returns true if every supported selector of rev's table
// has been observed on macOS v.
//
// The v13 table was recorded on macOS 13; 14 and 15 were only partly
// checked. Some v26 selectors have never been observed.
func FullyVerified(rev Revision, v OSVersion) bool {
	switch rev {
	case RevisionV13:
		return v.IsGreaterThanOrEqual(NewOSVersion(13, 0, 0)) && NewOSVersion(14, 0, 0).IsGreaterThan(v)
	default:
		return false
	}
}

// ClassifyVersion classifies the major version at the start of version.
func ClassifyVersion(version string) (Revision, error) {
	major, err := MajorVersion(version)
	if err != nil {
		return 0, err
	}
	return Classify(major)
}
