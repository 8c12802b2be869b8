package typeChecker

import (
	"fmt"

	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/config"
	"github.com/xplshn/typefighter/pkg/infer"
	"github.com/xplshn/typefighter/pkg/scope"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/types"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic is one reported problem, anchored at Tok.
type Diagnostic struct {
	File     string        `json:"file"`
	Line     int           `json:"line"`
	Column   int           `json:"column"`
	Function string        `json:"function,omitempty"`
	Position int           `json:"position"`
	Expected types.TypeTag `json:"expected,omitempty"`
	Actual   types.TypeTag `json:"actual,omitempty"`
	Message  string        `json:"message"`
	Warning  string        `json:"warning,omitempty"`
	Severity string        `json:"severity"`
	Tok      token.Token   `json:"-"`
}

// Reporter accumulates diagnostics in the order they are reported.
type Reporter struct {
	diags []Diagnostic
}

func (r *Reporter) Report(d Diagnostic) { r.diags = append(r.diags, d) }

func (r *Reporter) Len() int { return len(r.diags) }

// Diagnostics returns a copy of everything reported so far.
func (r *Reporter) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), r.diags...)
}

// TypeChecker compares annotated signatures against the arguments of every
// call expression in a tree.
type TypeChecker struct {
	cfg      *config.Config
	file     string
	table    types.Table
	inferrer *infer.Inferencer
	reporter *Reporter
}

func NewTypeChecker(cfg *config.Config, file string, table types.Table, graph *scope.Graph) *TypeChecker {
	return &TypeChecker{
		cfg:      cfg,
		file:     file,
		table:    table,
		inferrer: infer.NewInferencer(graph, cfg.IsFeatureEnabled(config.FeatIdentChase)),
		reporter: &Reporter{},
	}
}

func (tc *TypeChecker) Reporter() *Reporter { return tc.reporter }

// Check visits every call expression under root in source order, outer calls
// before the calls nested in their arguments.
func (tc *TypeChecker) Check(root *ast.Node) []Diagnostic {
	ast.Walk(root, func(n *ast.Node) bool {
		if n.Type == ast.Call {
			tc.CheckCall(n)
		}
		return true
	})
	return tc.reporter.Diagnostics()
}

// CheckCall checks one call expression. Only calls through a plain identifier
// with annotated inputs are considered; positions without an argument are
// skipped.
func (tc *TypeChecker) CheckCall(call *ast.Node) {
	d, ok := call.Data.(ast.CallNode)
	if !ok {
		return
	}
	callee := ast.Unparen(d.Callee)
	if callee == nil || callee.Type != ast.Ident {
		return
	}
	name := callee.Data.(ast.IdentNode).Name
	sig, ok := tc.table.Lookup(name)
	if !ok {
		return
	}

	if sig.Inputs != nil && len(d.Args) != len(sig.Inputs) && tc.cfg.IsWarningEnabled(config.WarnArity) {
		tc.reporter.Report(tc.diagnostic(call.Tok, config.WarnArity, SeverityWarning, Diagnostic{
			Function: name,
			Position: min(len(d.Args), len(sig.Inputs)),
			Message:  fmt.Sprintf("%s: expected %d argument(s), but got %d", name, len(sig.Inputs), len(d.Args)),
		}))
	}

	if !tc.cfg.IsWarningEnabled(config.WarnTypeMismatch) {
		return
	}
	for i, expected := range sig.Inputs {
		if i >= len(d.Args) {
			break
		}
		arg := d.Args[i]
		actual := tc.inferrer.TypeOf(arg)
		if !types.Mismatch(expected, actual) {
			continue
		}
		// parentheses are not part of the reported argument
		tc.reporter.Report(tc.diagnostic(ast.Unparen(arg).Tok, config.WarnTypeMismatch, SeverityError, Diagnostic{
			Function: name,
			Position: i,
			Expected: expected,
			Actual:   actual,
			Message:  MismatchMessage(name, i, expected, actual),
		}))
	}
}

// MismatchMessage formats the type-mismatch report for one argument.
func MismatchMessage(function string, position int, expected, actual types.TypeTag) string {
	return fmt.Sprintf("%s: Argument at position %d should be of type %s, but got %s", function, position, expected, actual)
}

func (tc *TypeChecker) diagnostic(tok token.Token, wt config.Warning, severity string, d Diagnostic) Diagnostic {
	d.File = tc.file
	d.Line, d.Column = tok.Line, tok.Column
	d.Warning = tc.cfg.WarningName(wt)
	d.Severity = severity
	d.Tok = tok
	return d
}
