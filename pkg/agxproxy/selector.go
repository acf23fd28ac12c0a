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
	"fmt"

	"gvisor.dev/agxproxy/pkg/abi/agx"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
)

// Confidence records how well a selector table entry has been confirmed
// against a real host. It is documentation only and never changes the
// result of a lookup.
type Confidence int

const (
	// Verified entries were observed on a real host.
	Verified Confidence = iota

	// Unverified entries are inferred, typically from neighbouring
	// selectors shifting by one. They are used as-is until confirmed.
	Unverified

	// Removed entries are operations that the revision no longer offers.
	Removed

	// Unknown entries are operations whose selector has not been found.
	Unknown
)

// String implements fmt.Stringer.String.
func (c Confidence) String() string {
	switch c {
	case Verified:
		return "verified"
	case Unverified:
		return "unverified"
	case Removed:
		return "removed"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// SelectorEntry binds a selector label to its wire selector in one
// revision.
type SelectorEntry struct {
	Label      agx.SelectorLabel
	Selector   uint32
	Revision   agxconf.Revision
	Confidence Confidence
}

// Supported returns false if the entry holds agx.SelectorInvalid.
func (e SelectorEntry) Supported() bool {
	return e.Selector != agx.SelectorInvalid
}

// selectorTable is the selector table of one revision. entries keeps
// declaration order, which decides reverse lookups if two entries ever
// share a selector. byLabel indexes entries by label.
type selectorTable struct {
	revision agxconf.Revision
	entries  []SelectorEntry
	byLabel  [agx.NumSelectorLabels]uint32
}

type tableRow struct {
	label      agx.SelectorLabel
	selector   uint32
	confidence Confidence
}

// v13Rows is used on macOS 13 (verified), macOS 14 (unverified) and
// macOS 15 (only SET_API, CREATE_COMMAND_QUEUE, ALLOCATE_MEM and
// CREATE_NOTIFICATION_QUEUE verified). Entries are marked with their macOS
// 13 status.
var v13Rows = []tableRow{
	{agx.SelectorLabelGetGlobalIDs, 0x6, Verified},
	{agx.SelectorLabelSetAPI, 0x7, Verified},
	{agx.SelectorLabelCreateCommandQueue, 0x8, Verified},
	{agx.SelectorLabelFreeCommandQueue, 0x9, Verified},
	{agx.SelectorLabelAllocateMem, 0xA, Verified},
	{agx.SelectorLabelFreeMem, 0xB, Verified},
	{agx.SelectorLabelCreateShmem, 0xF, Verified},
	{agx.SelectorLabelFreeShmem, 0x10, Verified},
	{agx.SelectorLabelCreateNotificationQueue, 0x11, Verified},
	{agx.SelectorLabelFreeNotificationQueue, 0x12, Verified},
	{agx.SelectorLabelSubmitCommandBuffers, 0x1E, Verified},
	{agx.SelectorLabelGetVersion, 0x2A, Verified},
}

// v26Rows is used on macOS 26.
var v26Rows = []tableRow{
	{agx.SelectorLabelGetGlobalIDs, agx.SelectorInvalid, Unknown},
	{agx.SelectorLabelSetAPI, agx.SelectorInvalid, Removed},
	{agx.SelectorLabelCreateCommandQueue, 0x7, Verified},
	{agx.SelectorLabelFreeCommandQueue, 0x8, Unverified},
	{agx.SelectorLabelAllocateMem, 0x9, Verified},
	{agx.SelectorLabelFreeMem, 0xA, Unverified},
	{agx.SelectorLabelCreateShmem, 0xE, Verified},
	{agx.SelectorLabelFreeShmem, 0xF, Unverified},
	{agx.SelectorLabelCreateNotificationQueue, 0x10, Verified},
	{agx.SelectorLabelFreeNotificationQueue, 0x11, Unverified},
	{agx.SelectorLabelSubmitCommandBuffers, 0x1D, Unverified},
	{agx.SelectorLabelGetVersion, 0x2A, Unverified},
}

// selectorTables holds one table per revision, indexed by revision. It is
// built at init and immutable henceforth.
var selectorTables = [...]*selectorTable{
	agxconf.RevisionV13: mustBuildTable(agxconf.RevisionV13, v13Rows),
	agxconf.RevisionV26: mustBuildTable(agxconf.RevisionV26, v26Rows),
}

// buildTable builds the table of rev from rows. Every valid label must
// appear exactly once.
func buildTable(rev agxconf.Revision, rows []tableRow) (*selectorTable, error) {
	t := &selectorTable{
		revision: rev,
		entries:  make([]SelectorEntry, 0, len(rows)),
	}
	var seen [agx.NumSelectorLabels]bool
	for _, row := range rows {
		if !row.label.IsValid() {
			return nil, fmt.Errorf("%s table: invalid label %v", rev, row.label)
		}
		if seen[row.label] {
			return nil, fmt.Errorf("%s table: duplicate entry for %v", rev, row.label)
		}
		if (row.selector == agx.SelectorInvalid) != (row.confidence == Removed || row.confidence == Unknown) {
			return nil, fmt.Errorf("%s table: %v has selector %#x with confidence %v", rev, row.label, row.selector, row.confidence)
		}
		seen[row.label] = true
		t.byLabel[row.label] = row.selector
		t.entries = append(t.entries, SelectorEntry{
			Label:      row.label,
			Selector:   row.selector,
			Revision:   rev,
			Confidence: row.confidence,
		})
	}
	for l, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%s table: missing entry for %v", rev, agx.SelectorLabel(l))
		}
	}
	return t, nil
}

func mustBuildTable(rev agxconf.Revision, rows []tableRow) *selectorTable {
	t, err := buildTable(rev, rows)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// tableFor returns the table of rev.
func tableFor(rev agxconf.Revision) *selectorTable {
	if !rev.IsValid() {
		panic(fmt.Sprintf("no selector table for %v", rev))
	}
	return selectorTables[rev]
}

// selector returns the wire selector of label.
func (t *selectorTable) selector(label agx.SelectorLabel) uint32 {
	if label == agx.SelectorLabelInvalid {
		return agx.SelectorInvalid
	}
	if !label.IsValid() {
		panic(fmt.Sprintf("selector label %v out of range", label))
	}
	return t.byLabel[label]
}

// label returns the label of the first entry, in declaration order, whose
// selector is selector. Sentinel entries take part in the scan.
func (t *selectorTable) label(selector uint32) agx.SelectorLabel {
	for _, e := range t.entries {
		if e.Selector == selector {
			return e.Label
		}
	}
	return agx.SelectorLabelInvalid
}

// SelectorTable returns a copy of the entries of rev's selector table in
// declaration order.
func SelectorTable(rev agxconf.Revision) []SelectorEntry {
	return append([]SelectorEntry(nil), tableFor(rev).entries...)
}
