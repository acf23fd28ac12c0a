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
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/agxproxy/pkg/abi/agx"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
)

func encode(t *testing.T, data any) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, agx.ByteOrder, data); err != nil {
		t.Fatalf("binary.Write(%T): %v", data, err)
	}
	return buf.Bytes()
}

func TestDecodeAllocateResourceResp(t *testing.T) {
	want := agx.AllocateResourceResp{
		GPUVA:   0x1000,
		CPU:     0x2000,
		Handle:  7,
		SubSize: 4096,
	}
	for _, tc := range []struct {
		rev agxconf.Revision
		raw any
	}{
		{
			rev: agxconf.RevisionV13,
			raw: &agx.AllocateResourceRespV13{
				GPUVA:    0x1000,
				CPU:      0x2000,
				Unk4:     [3]uint32{0xdead, 0xbeef, 0xf00d},
				Handle:   7,
				RootSize: 1 << 20,
				GUID:     42,
				Unk11:    [7]uint32{1, 2, 3, 4, 5, 6, 7},
				SubSize:  4096,
			},
		},
		{
			rev: agxconf.RevisionV26,
			raw: &agx.AllocateResourceRespV26{
				Unk0:     [2]uint32{0x11, 0x22},
				CPU:      0x2000,
				GPUVA:    0x1000,
				Unk4:     [3]uint32{0xdead, 0xbeef, 0xf00d},
				Handle:   7,
				RootSize: 1 << 20,
				GUID:     42,
				Unk11:    [7]uint32{1, 2, 3, 4, 5, 6, 7},
				UnkSize:  4096,
			},
		},
	} {
		t.Run(tc.rev.String(), func(t *testing.T) {
			buf := encode(t, tc.raw)
			if len(buf) != SizeofAllocateResourceResp(tc.rev) {
				t.Fatalf("encoded %d bytes, want %d", len(buf), SizeofAllocateResourceResp(tc.rev))
			}
			tr := NewTranslator(NewFixedResolver(tc.rev))
			got := tr.DecodeAllocateResourceResp(buf, len(buf))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("DecodeAllocateResourceResp mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeAllocateResourceRespWrongSize(t *testing.T) {
	for _, rev := range agxconf.Revisions() {
		size := SizeofAllocateResourceResp(rev)
		tr := NewTranslator(NewFixedResolver(rev))
		buf := make([]byte, size+16)
		for _, n := range []int{0, size - 1, size + 1, size + 8} {
			mustPanic(t, "DecodeAllocateResourceResp", func() {
				tr.DecodeAllocateResourceResp(buf, n)
			})
		}
		// The declared size is right but the buffer is short.
		mustPanic(t, "DecodeAllocateResourceResp(short buffer)", func() {
			tr.DecodeAllocateResourceResp(buf[:size-1], size)
		})
	}
	// A v26-shaped reply must not decode as v13.
	v26 := make([]byte, agx.SizeofAllocateResourceRespV26)
	mustPanic(t, "v13 decode of a v26 reply", func() {
		DecodeAllocateResourceResp(agxconf.RevisionV13, v26, len(v26))
	})
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	raw := encode(t, &agx.AllocateResourceRespV13{GPUVA: 1, CPU: 2, Handle: 3, SubSize: 4})
	buf := append(raw, 0xff, 0xff, 0xff, 0xff)
	got := DecodeAllocateResourceResp(agxconf.RevisionV13, buf, len(raw))
	want := agx.AllocateResourceResp{GPUVA: 1, CPU: 2, Handle: 3, SubSize: 4}
	if got != want {
		t.Errorf("DecodeAllocateResourceResp() = %v, want %v", got, want)
	}
}
