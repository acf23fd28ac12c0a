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

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
	"gvisor.dev/agxproxy/pkg/abi/agx"
	"gvisor.dev/agxproxy/pkg/agxproxy"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
)

func TestOutputFormats(t *testing.T) {
	rows := selectorRows(agxproxy.SelectorTable(agxconf.RevisionV26))
	if got, want := rows[1], (selectorRow{Label: "SET_API", Selector: "-", Revision: "v26", Confidence: "removed"}); got != want {
		t.Errorf("rows[1] = %+v, want %+v", got, want)
	}
	if got := rows[4].Selector; got != "0x9" {
		t.Errorf("ALLOCATE_MEM selector = %q, want 0x9", got)
	}

	for name, out := range outputMap {
		var buf bytes.Buffer
		if err := out(&buf, rows); err != nil {
			t.Errorf("%s output failed: %v", name, err)
			continue
		}
		if !strings.Contains(buf.String(), "SUBMIT_COMMAND_BUFFERS") {
			t.Errorf("%s output is missing SUBMIT_COMMAND_BUFFERS:\n%s", name, buf.String())
		}
	}

	var buf bytes.Buffer
	if err := outputJSON(&buf, rows); err != nil {
		t.Fatalf("outputJSON: %v", err)
	}
	var fromJSON []selectorRow
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if diff := cmp.Diff(rows, fromJSON); diff != "" {
		t.Errorf("JSON output mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := outputYAML(&buf, rows); err != nil {
		t.Fatalf("outputYAML: %v", err)
	}
	var fromYAML []selectorRow
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if diff := cmp.Diff(rows, fromYAML); diff != "" {
		t.Errorf("YAML output mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteLabels(t *testing.T) {
	tr := agxproxy.NewTranslator(agxproxy.NewFixedResolver(agxconf.RevisionV13))
	var buf bytes.Buffer
	if err := writeLabels(&buf, tr, []string{"0xa", "30", "0x99"}); err != nil {
		t.Fatalf("writeLabels: %v", err)
	}
	want := "0xa\tALLOCATE_MEM\n0x1e\tSUBMIT_COMMAND_BUFFERS\n0x99\tINVALID\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("writeLabels mismatch (-want +got):\n%s", diff)
	}
	if err := writeLabels(&buf, tr, []string{"nope"}); err == nil {
		t.Errorf("writeLabels(nope) succeeded, want error")
	}
}

func TestWriteSelectors(t *testing.T) {
	for _, tc := range []struct {
		rev  agxconf.Revision
		want string
	}{
		{agxconf.RevisionV13, "ALLOCATE_MEM\t0xa\nSET_API\t0x7\n"},
		{agxconf.RevisionV26, "ALLOCATE_MEM\t0x9\nSET_API\t-\n"},
	} {
		tr := agxproxy.NewTranslator(agxproxy.NewFixedResolver(tc.rev))
		var buf bytes.Buffer
		if err := writeSelectors(&buf, tr, []string{"allocate_mem", "SET_API"}); err != nil {
			t.Fatalf("%v writeSelectors: %v", tc.rev, err)
		}
		if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
			t.Errorf("%v writeSelectors mismatch (-want +got):\n%s", tc.rev, diff)
		}
	}
	tr := agxproxy.NewTranslator(agxproxy.NewFixedResolver(agxconf.RevisionV13))
	for _, name := range []string{"NOPE", "INVALID"} {
		if err := writeSelectors(io.Discard, tr, []string{name}); err == nil {
			t.Errorf("writeSelectors(%s) succeeded, want error", name)
		}
	}
}

func TestFilterRule(t *testing.T) {
	tr := agxproxy.NewTranslator(agxproxy.NewFixedResolver(agxconf.RevisionV13))
	rule, err := filterRule(tr, []string{"allocate_mem"})
	if err != nil {
		t.Fatalf("filterRule: %v", err)
	}
	if !rule.Matches(0xA) || rule.Matches(0xB) {
		t.Errorf("filterRule(allocate_mem) = %v, want only 0xa", rule)
	}
	all, err := filterRule(tr, nil)
	if err != nil {
		t.Fatalf("filterRule(): %v", err)
	}
	if got, want := all.String(), agxproxy.AllowedSelectors(agxconf.RevisionV13).String(); got != want {
		t.Errorf("filterRule() = %s, want %s", got, want)
	}
	if _, err := filterRule(tr, []string{"nope"}); err == nil {
		t.Errorf("filterRule(nope) succeeded, want error")
	}
}

func TestWriteRevision(t *testing.T) {
	var buf bytes.Buffer
	writeRevision(&buf, agxproxy.NewTranslator(agxproxy.NewResolver(agxconf.StaticVersionSource("14.2.1"))))
	writeRevision(&buf, agxproxy.NewTranslator(agxproxy.NewResolver(agxconf.StaticVersionSource("14beta"))))
	writeRevision(&buf, agxproxy.NewTranslator(agxproxy.NewFixedResolver(agxconf.RevisionV26)))
	want := "v13\tmacOS 14.2.1\nv13\nv26\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("writeRevision mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslatorFor(t *testing.T) {
	host := agxproxy.NewTranslator(agxproxy.NewFixedResolver(agxconf.RevisionV13))
	got, err := translatorFor("", []any{host})
	if err != nil || got != host {
		t.Errorf("translatorFor(\"\") = %v, %v; want the passed translator", got, err)
	}
	got, err = translatorFor("v26", []any{host})
	if err != nil || got.Revision() != agxconf.RevisionV26 {
		t.Errorf("translatorFor(v26) = %v, %v", got, err)
	}
	if _, err := translatorFor("v20", nil); err == nil {
		t.Errorf("translatorFor(v20) succeeded, want error")
	}
}

func TestDecodeFiles(t *testing.T) {
	var raw bytes.Buffer
	if err := binary.Write(&raw, agx.ByteOrder, &agx.AllocateResourceRespV13{
		GPUVA:   0x1000,
		CPU:     0x2000,
		Handle:  7,
		SubSize: 4096,
	}); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}
	rawPath := writeFile(t, "reply.bin", raw.String())
	hexPath := writeFile(t, "reply.hex", spaced(hex.EncodeToString(raw.Bytes())))

	d := &Decode{}
	got, err := d.decodeFiles(context.Background(), agxconf.RevisionV13, []string{rawPath})
	if err != nil {
		t.Fatalf("decodeFiles: %v", err)
	}
	want := []decodedReply{{File: rawPath, GPUVA: "0x1000", CPU: "0x2000", Handle: 7, SubSize: 4096}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decodeFiles mismatch (-want +got):\n%s", diff)
	}

	d = &Decode{hex: true}
	got, err = d.decodeFiles(context.Background(), agxconf.RevisionV13, []string{hexPath})
	if err != nil {
		t.Fatalf("decodeFiles(-hex): %v", err)
	}
	want[0].File = hexPath
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decodeFiles(-hex) mismatch (-want +got):\n%s", diff)
	}

	// A v13 reply is too short for v26; the tool reports it instead of
	// aborting.
	d = &Decode{}
	if _, err := d.decodeFiles(context.Background(), agxconf.RevisionV26, []string{rawPath}); err == nil {
		t.Errorf("decodeFiles of a v13 reply as v26 succeeded, want error")
	}
}

// spaced splits a hex string into space separated bytes, eight per line.
func spaced(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 2 {
		b.WriteString(s[i : i+2])
		if (i/2)%8 == 7 {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
