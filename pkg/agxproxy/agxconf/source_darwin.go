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

//go:build darwin

package agxconf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type sysctlVersionSource struct{}

// ProductVersion implements VersionSource.ProductVersion.
func (sysctlVersionSource) ProductVersion() (string, error) {
	v, err := unix.Sysctl(ProductVersionSysctl)
	if err != nil {
		return "", fmt.Errorf("sysctl %s: %w", ProductVersionSysctl, err)
	}
	return v, nil
}

// HostVersionSource returns the VersionSource of the running host.
func HostVersionSource() VersionSource {
	return sysctlVersionSource{}
}
