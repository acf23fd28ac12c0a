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
	"context"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"gvisor.dev/agxproxy/pkg/abi/agx"
	"gvisor.dev/agxproxy/pkg/agxproxy"
	"gvisor.dev/agxproxy/pkg/agxproxy/agxconf"
	"gvisor.dev/agxproxy/pkg/callfilter"
)

// translatorFor returns a Translator pinned to revision if it is set, or
// the Translator passed to Execute otherwise.
func translatorFor(revision string, args []any) (*agxproxy.Translator, error) {
	if revision != "" {
		rev, err := agxconf.ParseRevision(revision)
		if err != nil {
			return nil, err
		}
		return agxproxy.NewTranslator(agxproxy.NewFixedResolver(rev)), nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no translator")
	}
	return args[0].(*agxproxy.Translator), nil
}

// Revision implements subcommands.Command for the "revision" command.
type Revision struct{}

// Name implements subcommands.Command.Name.
func (*Revision) Name() string {
	return "revision"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Revision) Synopsis() string {
	return "Print the AGX protocol revision of the host."
}

// Usage implements subcommands.Command.Usage.
func (*Revision) Usage() string {
	return `revision - Print the AGX protocol revision of the host.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Revision) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Revision) Execute(_ context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	tr, err := translatorFor("", args)
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitFailure
	}
	writeRevision(os.Stdout, tr)
	return subcommands.ExitSuccess
}

// writeRevision writes the active revision, followed by the macOS version
// it was resolved from when that is known.
func writeRevision(w io.Writer, tr *agxproxy.Translator) {
	if v, ok := tr.OSVersion(); ok {
		fmt.Fprintf(w, "%v\tmacOS %v\n", tr.Revision(), v)
		return
	}
	fmt.Fprintln(w, tr.Revision())
}

// selectorRow is the printable form of an agxproxy.SelectorEntry.
type selectorRow struct {
	Label      string `json:"label" yaml:"label"`
	Selector   string `json:"selector" yaml:"selector"`
	Revision   string `json:"revision" yaml:"revision"`
	Confidence string `json:"confidence" yaml:"confidence"`
}

func selectorRows(entries []agxproxy.SelectorEntry) []selectorRow {
	rows := make([]selectorRow, 0, len(entries))
	for _, e := range entries {
		sel := "-"
		if e.Supported() {
			sel = fmt.Sprintf("%#x", e.Selector)
		}
		rows = append(rows, selectorRow{
			Label:      e.Label.String(),
			Selector:   sel,
			Revision:   e.Revision.String(),
			Confidence: e.Confidence.String(),
		})
	}
	return rows
}

type outputFunc func(io.Writer, []selectorRow) error

// A map of output type names to output functions.
var outputMap = map[string]outputFunc{
	"table": outputTable,
	"json":  outputJSON,
	"csv":   outputCSV,
	"yaml":  outputYAML,
}

func outputTable(w io.Writer, rows []selectorRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tSELECTOR\tREVISION\tCONFIDENCE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Label, r.Selector, r.Revision, r.Confidence)
	}
	return tw.Flush()
}

func outputJSON(w io.Writer, rows []selectorRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func outputCSV(w io.Writer, rows []selectorRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "selector", "revision", "confidence"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Label, r.Selector, r.Revision, r.Confidence}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func outputYAML(w io.Writer, rows []selectorRow) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return enc.Close()
}

// Selectors implements subcommands.Command for the "selectors" command.
type Selectors struct {
	output   string
	revision string
}

// Name implements subcommands.Command.Name.
func (*Selectors) Name() string {
	return "selectors"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Selectors) Synopsis() string {
	return "Print the selector table of a revision."
}

// Usage implements subcommands.Command.Usage.
func (*Selectors) Usage() string {
	return `selectors [options] - Print the selector table of a revision.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Selectors) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, csv, json, yaml).")
	f.StringVar(&s.revision, "revision", "", "Revision to print (v13, v26). Defaults to the host's.")
}

// Execute implements subcommands.Command.Execute.
func (s *Selectors) Execute(_ context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := outputMap[s.output]
	if !ok {
		logrus.Errorf("Unsupported output format %q", s.output)
		return subcommands.ExitUsageError
	}
	tr, err := translatorFor(s.revision, args)
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	if err := out(os.Stdout, selectorRows(tr.Entries())); err != nil {
		logrus.Errorf("Error writing output: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// Selector implements subcommands.Command for the "selector" command.
type Selector struct {
	revision string
}

// Name implements subcommands.Command.Name.
func (*Selector) Name() string {
	return "selector"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Selector) Synopsis() string {
	return "Print the wire selectors implementing operations."
}

// Usage implements subcommands.Command.Usage.
func (*Selector) Usage() string {
	return `selector [options] <LABEL>... - Print the wire selectors implementing operations.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Selector) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.revision, "revision", "", "Revision to use (v13, v26). Defaults to the host's.")
}

// Execute implements subcommands.Command.Execute.
func (s *Selector) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	tr, err := translatorFor(s.revision, args)
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	if err := writeSelectors(os.Stdout, tr, f.Args()); err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

// parseLabels parses operation names, in any case.
func parseLabels(names []string) ([]agx.SelectorLabel, error) {
	labels := make([]agx.SelectorLabel, 0, len(names))
	for _, name := range names {
		l, err := agx.ParseSelectorLabel(strings.ToUpper(name))
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// writeSelectors writes one "label selector" line per label. Operations
// the revision doesn't implement are printed as "-".
func writeSelectors(w io.Writer, tr *agxproxy.Translator, names []string) error {
	labels, err := parseLabels(names)
	if err != nil {
		return err
	}
	for _, l := range labels {
		if sel := tr.Selector(l); sel != agx.SelectorInvalid {
			fmt.Fprintf(w, "%v\t%#x\n", l, sel)
		} else {
			fmt.Fprintf(w, "%v\t-\n", l)
		}
	}
	return nil
}

// Filter implements subcommands.Command for the "filter" command.
type Filter struct {
	revision string
}

// Name implements subcommands.Command.Name.
func (*Filter) Name() string {
	return "filter"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Filter) Synopsis() string {
	return "Print the selector allow-list of a guarded gateway."
}

// Usage implements subcommands.Command.Usage.
func (*Filter) Usage() string {
	return `filter [options] [LABEL]... - Print the selector allow-list of a guarded gateway.

Without labels, every operation implemented by the revision is allowed.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (fl *Filter) SetFlags(f *flag.FlagSet) {
	f.StringVar(&fl.revision, "revision", "", "Revision to use (v13, v26). Defaults to the host's.")
}

// Execute implements subcommands.Command.Execute.
func (fl *Filter) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	tr, err := translatorFor(fl.revision, args)
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	rule, err := filterRule(tr, f.Args())
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	fmt.Println(rule)
	return subcommands.ExitSuccess
}

// filterRule returns the allow-list for the operations named in names.
func filterRule(tr *agxproxy.Translator, names []string) (callfilter.Rule, error) {
	labels, err := parseLabels(names)
	if err != nil {
		return nil, err
	}
	return agxproxy.AllowedOperations(tr.Revision(), labels...), nil
}

// Label implements subcommands.Command for the "label" command.
type Label struct {
	revision string
}

// Name implements subcommands.Command.Name.
func (*Label) Name() string {
	return "label"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Label) Synopsis() string {
	return "Print the operation implemented by wire selectors."
}

// Usage implements subcommands.Command.Usage.
func (*Label) Usage() string {
	return `label [options] <selector>... - Print the operation implemented by wire selectors.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *Label) SetFlags(f *flag.FlagSet) {
	f.StringVar(&l.revision, "revision", "", "Revision to use (v13, v26). Defaults to the host's.")
}

// Execute implements subcommands.Command.Execute.
func (l *Label) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	tr, err := translatorFor(l.revision, args)
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	if err := writeLabels(os.Stdout, tr, f.Args()); err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

// writeLabels writes one "selector label" line per selector.
func writeLabels(w io.Writer, tr *agxproxy.Translator, selectors []string) error {
	for _, s := range selectors {
		sel, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid selector %q: %v", s, err)
		}
		fmt.Fprintf(w, "%#x\t%v\n", sel, tr.Label(uint32(sel)))
	}
	return nil
}

// Decode implements subcommands.Command for the "decode" command.
type Decode struct {
	revision string
	hex      bool
}

// Name implements subcommands.Command.Name.
func (*Decode) Name() string {
	return "decode"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Decode) Synopsis() string {
	return "Decode captured ALLOCATE_MEM replies."
}

// Usage implements subcommands.Command.Usage.
func (*Decode) Usage() string {
	return `decode [options] <file>... - Decode captured ALLOCATE_MEM replies.

Each file holds one raw reply, or its hex dump with -hex.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Decode) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.revision, "revision", "", "Revision the replies were captured on (v13, v26). Defaults to the host's.")
	f.BoolVar(&d.hex, "hex", false, "Files contain hex dumps instead of raw bytes.")
}

// decodedReply is the printable result of decoding one file.
type decodedReply struct {
	File    string `json:"file"`
	GPUVA   string `json:"gpu_va"`
	CPU     string `json:"cpu"`
	Handle  uint32 `json:"handle"`
	SubSize uint64 `json:"sub_size"`
}

// Execute implements subcommands.Command.Execute.
func (d *Decode) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	tr, err := translatorFor(d.revision, args)
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	replies, err := d.decodeFiles(ctx, tr.Revision(), f.Args())
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitFailure
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(replies); err != nil {
		logrus.Errorf("Error writing output: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// decodeFiles decodes every file concurrently. Results keep the order of
// files.
func (d *Decode) decodeFiles(ctx context.Context, rev agxconf.Revision, files []string) ([]decodedReply, error) {
	replies := make([]decodedReply, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := d.readReply(file)
			if err != nil {
				return err
			}
			resp, err := decodeReply(rev, buf)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			replies[i] = decodedReply{
				File:    file,
				GPUVA:   fmt.Sprintf("%#x", resp.GPUVA),
				CPU:     fmt.Sprintf("%#x", resp.CPU),
				Handle:  resp.Handle,
				SubSize: resp.SubSize,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return replies, nil
}

func (d *Decode) readReply(file string) ([]byte, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if !d.hex {
		return buf, nil
	}
	digits := strings.Join(strings.Fields(string(buf)), "")
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return raw, nil
}

// decodeReply decodes buf as an ALLOCATE_MEM reply of rev. Unlike the
// translator, a reply of the wrong size is reported rather than fatal:
// captured files are not trusted.
func decodeReply(rev agxconf.Revision, buf []byte) (agx.AllocateResourceResp, error) {
	if want := agxproxy.SizeofAllocateResourceResp(rev); len(buf) != want {
		return agx.AllocateResourceResp{}, fmt.Errorf("reply is %d bytes, %v replies are %d bytes", len(buf), rev, want)
	}
	return agxproxy.DecodeAllocateResourceResp(rev, buf, len(buf)), nil
}
