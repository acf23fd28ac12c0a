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
	"bytes"
	"encoding/binary"
	"fmt"

	"gvisor.dev/agxproxy/pkg/abi/agx"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
)

// Translator maps between selector labels and wire selectors, and decodes
// replies, for the revision reported by its Resolver.
//
// Translator is safe for concurrent use.
type Translator struct {
	resolver *Resolver
}

// NewTranslator returns a Translator backed by resolver.
func NewTranslator(resolver *Resolver) *Translator {
	return &Translator{resolver: resolver}
}

// Revision returns the active protocol revision.
func (t *Translator) Revision() agxconf.Revision {
	return t.resolver.Revision()
}

// OSVersion returns the product version the active revision was resolved
// from, if known.
func (t *Translator) OSVersion() (agxconf.OSVersion, bool) {
	return t.resolver.OSVersion()
}

// Selector returns the wire selector implementing label. It returns
// agx.SelectorInvalid if the active revision has no such external method;
// callers must check for it before issuing a call.
func (t *Translator) Selector(label agx.SelectorLabel) uint32 {
	return tableFor(t.Revision()).selector(label)
}

// Label returns the label of the first entry of the active table holding
// selector, or agx.SelectorLabelInvalid if there is none. The sentinel is
// matched like any other value.
func (t *Translator) Label(selector uint32) agx.SelectorLabel {
	return tableFor(t.Revision()).label(selector)
}

// Entries returns the selector table of the active revision in declaration
// order.
func (t *Translator) Entries() []SelectorEntry {
	return SelectorTable(t.Revision())
}

// SizeofAllocateResourceResp returns the size of the ALLOCATE_MEM reply in
// rev.
func SizeofAllocateResourceResp(rev agxconf.Revision) int {
	switch rev {
	case agxconf.RevisionV13:
		return agx.SizeofAllocateResourceRespV13
	case agxconf.RevisionV26:
		return agx.SizeofAllocateResourceRespV26
	default:
		panic(fmt.Sprintf("no ALLOCATE_MEM reply layout for %v", rev))
	}
}

// DecodeAllocateResourceResp decodes the first n bytes of buf, an
// ALLOCATE_MEM reply, according to the active revision. buf is not
// retained.
//
// It panics if n is not the reply size of the active revision: a reply of
// another shape must not be read as this one.
func (t *Translator) DecodeAllocateResourceResp(buf []byte, n int) agx.AllocateResourceResp {
	return DecodeAllocateResourceResp(t.Revision(), buf, n)
}

// DecodeAllocateResourceResp is Translator.DecodeAllocateResourceResp for
// an explicit revision.
func DecodeAllocateResourceResp(rev agxconf.Revision, buf []byte, n int) agx.AllocateResourceResp {
	if want := SizeofAllocateResourceResp(rev); n != want {
		panic(fmt.Sprintf("agxproxy: %v ALLOCATE_MEM reply is %d bytes, expected %d", rev, n, want))
	}
	if len(buf) < n {
		panic(fmt.Sprintf("agxproxy: ALLOCATE_MEM reply declared %d bytes but buffer holds %d", n, len(buf)))
	}
	r := bytes.NewReader(buf[:n])
	switch rev {
	case agxconf.RevisionV13:
		var resp agx.AllocateResourceRespV13
		mustRead(r, &resp)
		return resp.Canonical()
	case agxconf.RevisionV26:
		var resp agx.AllocateResourceRespV26
		mustRead(r, &resp)
		return resp.Canonical()
	}
	panic("unreachable")
}

func mustRead(r *bytes.Reader, data any) {
	// The size was checked by the caller, so a failure here is a bug in
	// the struct definitions.
	if err := binary.Read(r, agx.ByteOrder, data); err != nil {
		panic(fmt.Sprintf("agxproxy: decoding %T: %v", data, err))
	}
}
