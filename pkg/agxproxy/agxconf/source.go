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

import "errors"

// VersionSource reports the product version of the running OS.
type VersionSource interface {
	// ProductVersion returns a version string such as "14.2.1".
	ProductVersion() (string, error)
}

// StaticVersionSource is a VersionSource that always reports itself.
type StaticVersionSource string

// ProductVersion implements VersionSource.ProductVersion.
func (s StaticVersionSource) ProductVersion() (string, error) {
	if s == "" {
		return "", errors.New("empty static version")
	}
	return string(s), nil
}

// VersionSourceFunc adapts a function to VersionSource.
type VersionSourceFunc func() (string, error)

// ProductVersion implements VersionSource.ProductVersion.
func (f VersionSourceFunc) ProductVersion() (string, error) {
	return f()
}

// ProductVersionSysctl is the sysctl that holds the macOS product version.
const ProductVersionSysctl = "kern.osproductversion"
