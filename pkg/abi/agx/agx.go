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

// Package agx contains the user-visible ABI of the macOS AGX accelerator
// IOKit service: external method selector labels, and the parameter and
// reply structs exchanged with it.
//
// The service is closed source. Everything here was determined by tracing
// the interface, so names of unknown fields carry the unkN convention used
// by the tracing notes.
package agx

import (
	"fmt"
	"math"
)

// ServiceType is the IOKit user client type used when opening a connection
// to the AGX accelerator service.
const ServiceType = 0x100005

// SelectorInvalid is the selector value used for operations that have no
// external method in a given protocol revision.
const SelectorInvalid = uint32(math.MaxUint32)

// SelectorLabel names an external method of the AGX service independently
// of the selector number that implements it in a given revision.
type SelectorLabel uint32

// Selector labels. The order of this block is the declaration order of
// every selector table.
const (
	SelectorLabelGetGlobalIDs SelectorLabel = iota
	SelectorLabelSetAPI
	SelectorLabelCreateCommandQueue
	SelectorLabelFreeCommandQueue
	SelectorLabelAllocateMem
	SelectorLabelFreeMem
	SelectorLabelCreateShmem
	SelectorLabelFreeShmem
	SelectorLabelCreateNotificationQueue
	SelectorLabelFreeNotificationQueue
	SelectorLabelSubmitCommandBuffers
	SelectorLabelGetVersion

	// SelectorLabelInvalid is returned for selectors that do not correspond
	// to any known external method.
	SelectorLabelInvalid
)

// NumSelectorLabels is the number of valid selector labels, excluding
// SelectorLabelInvalid.
const NumSelectorLabels = int(SelectorLabelInvalid)

var selectorLabelNames = [...]string{
	SelectorLabelGetGlobalIDs:            "GET_GLOBAL_IDS",
	SelectorLabelSetAPI:                  "SET_API",
	SelectorLabelCreateCommandQueue:      "CREATE_COMMAND_QUEUE",
	SelectorLabelFreeCommandQueue:        "FREE_COMMAND_QUEUE",
	SelectorLabelAllocateMem:             "ALLOCATE_MEM",
	SelectorLabelFreeMem:                 "FREE_MEM",
	SelectorLabelCreateShmem:             "CREATE_SHMEM",
	SelectorLabelFreeShmem:               "FREE_SHMEM",
	SelectorLabelCreateNotificationQueue: "CREATE_NOTIFICATION_QUEUE",
	SelectorLabelFreeNotificationQueue:   "FREE_NOTIFICATION_QUEUE",
	SelectorLabelSubmitCommandBuffers:    "SUBMIT_COMMAND_BUFFERS",
	SelectorLabelGetVersion:              "GET_VERSION",
	SelectorLabelInvalid:                 "INVALID",
}

// String implements fmt.Stringer.String.
func (l SelectorLabel) String() string {
	if int(l) < len(selectorLabelNames) {
		return selectorLabelNames[l]
	}
	return fmt.Sprintf("SelectorLabel(%d)", uint32(l))
}

// IsValid returns true if l names a known external method.
func (l SelectorLabel) IsValid() bool {
	return l < SelectorLabelInvalid
}

// ParseSelectorLabel returns the label whose String() is name.
func ParseSelectorLabel(name string) (SelectorLabel, error) {
	for i, n := range selectorLabelNames {
		if n == name && SelectorLabel(i) != SelectorLabelInvalid {
			return SelectorLabel(i), nil
		}
	}
	return SelectorLabelInvalid, fmt.Errorf("unknown selector label %q", name)
}

// AllSelectorLabels returns every valid selector label in declaration order.
func AllSelectorLabels() []SelectorLabel {
	labels := make([]SelectorLabel, 0, NumSelectorLabels)
	for l := SelectorLabel(0); l.IsValid(); l++ {
		labels = append(labels, l)
	}
	return labels
}
