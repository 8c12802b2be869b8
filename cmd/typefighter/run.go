package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
	"github.com/sanity-io/litter"
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/config"
	"github.com/xplshn/typefighter/pkg/parser"
	"github.com/xplshn/typefighter/pkg/treesitter"
	"github.com/xplshn/typefighter/pkg/typeChecker"
	"github.com/xplshn/typefighter/pkg/util"
)

const (
	frontendNative     = "native"
	frontendTreeSitter = "tree-sitter"
	formatText         = "text"
	formatJSON         = "json"
)

type options struct {
	frontend        string
	format          string
	jobs            int
	verbose         bool
	dumpAST         bool
	dumpAnnotations bool
}

func (o options) validate() error {
	switch o.frontend {
	case frontendNative, frontendTreeSitter:
	default:
		return fmt.Errorf("unknown front end '%s' (want %s or %s)", o.frontend, frontendNative, frontendTreeSitter)
	}
	switch o.format {
	case formatText, formatJSON:
	default:
		return fmt.Errorf("unknown output format '%s' (want %s or %s)", o.format, formatText, formatJSON)
	}
	return nil
}

// input is one distinct path from the command line.
type input struct {
	index   int
	path    string
	content []byte
	hash    uint64
	dupOf   int // index of an earlier input with identical content, or -1
	readErr error
}

// outcome is what checking one input produced.
type outcome struct {
	result   *typeChecker.Result
	file     *ast.File
	parseErr error
}

// run checks every path and writes the report. It returns the exit status:
// 2 when a file could not be read or parsed, 1 when a call site has a type
// error, 0 otherwise.
func run(opts options, cfg *config.Config, paths []string, stdout, stderr io.Writer, color bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	inputs := readInputs(lo.Uniq(paths))
	records := make([]util.SourceFileRecord, len(inputs))
	for i, in := range inputs {
		records[i] = util.SourceFileRecord{Name: in.path, Content: []rune(string(in.content))}
	}

	outcomes := checkAll(ctx, opts, cfg, inputs, records)

	var out, diagOut bytes.Buffer
	printer := &util.Printer{Out: &diagOut, Files: records, Color: color}
	var all []typeChecker.Diagnostic
	status, total := 0, 0

	for i, in := range inputs {
		if in.readErr != nil {
			fmt.Fprintf(&diagOut, "typefighter: error: %v\n", in.readErr)
			status = 2
			continue
		}
		oc := outcomes[i]
		if in.dupOf >= 0 {
			oc = relocate(outcomes[in.dupOf], in)
			if opts.verbose {
				util.Infof("%s: same content as %s", in.path, inputs[in.dupOf].path)
			}
		}

		if oc.parseErr != nil {
			status = 2
			d := parseDiagnostic(in, oc.parseErr)
			all = append(all, d)
			if opts.format == formatText {
				if d.Line > 0 {
					printer.Error("", d.Tok, "%s", d.Message)
				} else {
					fmt.Fprintf(&diagOut, "%s: error: %s\n", in.path, d.Message)
				}
			}
			continue
		}

		res := oc.result
		if opts.verbose {
			util.Infof("%s: %d signature(s), %d diagnostic(s)", in.path, res.Table.Len(), len(res.Diagnostics))
		}
		if opts.dumpAST {
			fmt.Fprintf(&out, "# %s\n", in.path)
			ast.Outline(&out, oc.file.Root)
		}
		if opts.dumpAnnotations {
			fmt.Fprintf(&out, "# %s\n%s\n", in.path, litter.Sdump(res.Table.Signatures()))
		}

		diags := append(append([]typeChecker.Diagnostic(nil), res.Notes...), res.Diagnostics...)
		all = append(all, diags...)
		if opts.format == formatText {
			for _, d := range diags {
				if d.Severity == typeChecker.SeverityError {
					printer.Error(d.Warning, d.Tok, "%s", d.Message)
				} else {
					printer.Warn(d.Warning, d.Tok, "%s", d.Message)
				}
			}
		}
		if res.Errors() > 0 && status == 0 {
			status = 1
		}
		total += len(diags)
	}

	if opts.format == formatJSON {
		if all == nil {
			all = []typeChecker.Diagnostic{}
		}
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			fmt.Fprintf(&diagOut, "typefighter: error: encoding diagnostics: %v\n", err)
			status = 2
		} else {
			out.Write(data)
			out.WriteByte('\n')
		}
	}
	if opts.verbose {
		util.Infof("%d diagnostic(s) in %d file(s)", total, len(inputs))
	}

	stdout.Write(out.Bytes())
	stderr.Write(diagOut.Bytes())
	return status
}

func readInputs(paths []string) []input {
	inputs := make([]input, len(paths))
	seen := make(map[uint64]int)
	for i, path := range paths {
		in := input{index: i, path: path, dupOf: -1}
		content, err := os.ReadFile(path)
		if err != nil {
			in.readErr = fmt.Errorf("could not read %s: %w", path, err)
			inputs[i] = in
			continue
		}
		in.content = content
		in.hash = xxhash.Sum64(content)
		if first, ok := seen[in.hash]; ok && bytes.Equal(inputs[first].content, content) {
			in.dupOf = first
		} else {
			seen[in.hash] = i
		}
		inputs[i] = in
	}
	return inputs
}

// checkAll analyses the distinct inputs on a bounded pool of workers. The
// returned slice is indexed like inputs.
func checkAll(ctx context.Context, opts options, cfg *config.Config, inputs []input, records []util.SourceFileRecord) []outcome {
	outcomes := make([]outcome, len(inputs))
	tasks := make(chan int, len(inputs))
	var wg sync.WaitGroup

	jobs := max(opts.jobs, 1)
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				outcomes[i] = checkOne(ctx, opts.frontend, cfg, inputs[i], records[i].Content)
			}
		}()
	}
	for i, in := range inputs {
		if in.readErr == nil && in.dupOf < 0 {
			tasks <- i
		}
	}
	close(tasks)
	wg.Wait()
	return outcomes
}

func checkOne(ctx context.Context, frontend string, cfg *config.Config, in input, source []rune) outcome {
	var (
		file *ast.File
		err  error
	)
	switch frontend {
	case frontendTreeSitter:
		file, err = treesitter.ParseFile(ctx, in.path, in.content, in.index)
	default:
		file, err = parser.ParseFile(in.path, source, in.index)
	}
	if err != nil {
		return outcome{parseErr: err}
	}
	return outcome{file: file, result: typeChecker.CheckFile(file, cfg)}
}

// relocate rewrites the outcome of an identical earlier file so that it
// reports against in.
func relocate(oc outcome, in input) outcome {
	if oc.parseErr != nil {
		var se *util.SourceError
		if errors.As(oc.parseErr, &se) {
			tok := se.Tok
			tok.FileIndex = in.index
			return outcome{parseErr: &util.SourceError{Tok: tok, Msg: se.Msg}}
		}
		return oc
	}
	move := func(ds []typeChecker.Diagnostic) []typeChecker.Diagnostic {
		return lo.Map(ds, func(d typeChecker.Diagnostic, _ int) typeChecker.Diagnostic {
			d.File = in.path
			d.Tok.FileIndex = in.index
			return d
		})
	}
	res := *oc.result
	res.File = in.path
	res.Notes = move(res.Notes)
	res.Diagnostics = move(res.Diagnostics)
	file := *oc.file
	file.Name = in.path
	return outcome{file: &file, result: &res}
}

func parseDiagnostic(in input, err error) typeChecker.Diagnostic {
	d := typeChecker.Diagnostic{
		File:     in.path,
		Position: -1,
		Message:  err.Error(),
		Severity: typeChecker.SeverityError,
	}
	var se *util.SourceError
	if errors.As(err, &se) {
		d.Line, d.Column = se.Tok.Line, se.Tok.Column
		d.Message = se.Msg
		d.Tok = se.Tok
	}
	return d
}
