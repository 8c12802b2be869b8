package typeChecker

import (
	"github.com/xplshn/typefighter/pkg/annotation"
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/config"
	"github.com/xplshn/typefighter/pkg/scope"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/types"
)

// Result is everything produced for one file.
type Result struct {
	File        string
	Config      *config.Config // effective configuration after directives
	Table       types.Table
	Notes       []Diagnostic // annotation and directive warnings
	Diagnostics []Diagnostic // call-site diagnostics in traversal order
}

// Errors counts the call-site diagnostics with error severity.
func (r *Result) Errors() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

var noteWarnings = map[annotation.NoteKind]config.Warning{
	annotation.NoteNoFunction:  config.WarnAnnotation,
	annotation.NoteMissingName: config.WarnAnnotation,
	annotation.NoteRedefined:   config.WarnRedefined,
	annotation.NoteUnknownTag:  config.WarnUnknownTag,
}

// CheckFile runs the whole pipeline on a parsed file: directives, annotation
// extraction, scope construction and call checking. cfg is not modified.
func CheckFile(file *ast.File, cfg *config.Config) *Result {
	cfg = cfg.Clone()
	res := &Result{File: file.Name, Config: cfg}
	res.Notes = applyDirectives(file, cfg)

	table, notes := annotation.Extract(file.Comments, annotation.Options{
		LineComments:  cfg.IsFeatureEnabled(config.FeatLineComments),
		BlockComments: cfg.IsFeatureEnabled(config.FeatBlockComments),
	})
	res.Table = table
	for _, n := range notes {
		wt := noteWarnings[n.Kind]
		if !cfg.IsWarningEnabled(wt) {
			continue
		}
		res.Notes = append(res.Notes, Diagnostic{
			File: file.Name, Line: n.Tok.Line, Column: n.Tok.Column, Position: -1,
			Message: n.Msg, Warning: cfg.WarningName(wt), Severity: SeverityWarning, Tok: n.Tok,
		})
	}

	graph := scope.Build(file.Root)
	tc := NewTypeChecker(cfg, file.Name, table, graph)
	res.Diagnostics = tc.Check(file.Root)
	return res
}

func applyDirectives(file *ast.File, cfg *config.Config) []Diagnostic {
	var notes []Diagnostic
	for _, c := range file.Comments {
		if c.Type != token.LineComment || !cfg.IsFeatureEnabled(config.FeatDirectives) {
			continue
		}
		flags, ok := config.DirectiveFlags(c.Value)
		if !ok {
			continue
		}
		if err := cfg.ProcessDirectiveFlags(flags); err != nil {
			notes = append(notes, Diagnostic{
				File: file.Name, Line: c.Line, Column: c.Column, Position: -1,
				Message: "ignoring directive: " + err.Error(), Severity: SeverityWarning, Tok: c,
			})
		}
	}
	return notes
}
