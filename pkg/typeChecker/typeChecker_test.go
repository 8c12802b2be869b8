package typeChecker_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/typefighter/pkg/config"
	"github.com/xplshn/typefighter/pkg/parser"
	"github.com/xplshn/typefighter/pkg/typeChecker"
	"github.com/xplshn/typefighter/pkg/types"
)

const header = `/* typefighter
 * @function add
 * @input number, number
 * @output number
 */
`

var ignoreTok = cmpopts.IgnoreFields(typeChecker.Diagnostic{}, "Tok")

func check(t *testing.T, src string, cfg *config.Config) *typeChecker.Result {
	t.Helper()
	file, err := parser.ParseFile("t.js", []rune(src), 0)
	require.NoError(t, err)
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return typeChecker.CheckFile(file, cfg)
}

func mismatch(line, col, pos int, expected, actual types.TypeTag) typeChecker.Diagnostic {
	return typeChecker.Diagnostic{
		File: "t.js", Line: line, Column: col,
		Function: "add", Position: pos, Expected: expected, Actual: actual,
		Message:  typeChecker.MismatchMessage("add", pos, expected, actual),
		Warning:  "type-mismatch",
		Severity: typeChecker.SeverityError,
	}
}

func TestCallSites(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []typeChecker.Diagnostic
	}{
		{"string literal", `add("5", 2);`, []typeChecker.Diagnostic{mismatch(6, 5, 0, types.Number, types.String)}},
		{"identifier", "let x = \"5\";\nadd(x, 2);", []typeChecker.Diagnostic{mismatch(7, 5, 0, types.Number, types.String)}},
		{"unknown result", `add(compute(), 2);`, nil},
		{"shadowing", `let x = 1; { let x = "a"; add(x, 2); }`, []typeChecker.Diagnostic{mismatch(6, 31, 0, types.Number, types.String)}},
		{"outer binding", `let x = "a"; { let x = 1; add(x, 2); }`, nil},
		{"well typed", `add(1, 2);`, nil},
		{"boolean", `add(1, true);`, []typeChecker.Diagnostic{mismatch(6, 8, 1, types.Number, types.Boolean)}},
		{"outer call first", `add(add("a", 1), "b");`, []typeChecker.Diagnostic{
			mismatch(6, 18, 1, types.Number, types.String),
			mismatch(6, 9, 0, types.Number, types.String),
		}},
		{"missing arguments", `add("5");`, []typeChecker.Diagnostic{mismatch(6, 5, 0, types.Number, types.String)}},
		{"extra arguments", `add(1, 2, "x");`, nil},
		{"parenthesized callee", `(add)("5", 2);`, []typeChecker.Diagnostic{mismatch(6, 7, 0, types.Number, types.String)}},
		{"parenthesized argument", `add(("5"), 2);`, []typeChecker.Diagnostic{mismatch(6, 6, 0, types.Number, types.String)}},
		{"nested parentheses", `add(1, (("x")));`, []typeChecker.Diagnostic{mismatch(6, 10, 1, types.Number, types.String)}},
		{"optional call", `add?.("5", 2);`, []typeChecker.Diagnostic{mismatch(6, 7, 0, types.Number, types.String)}},
		{"method call", `o.add("5", 2);`, nil},
		{"construction", `new add("5", 2);`, nil},
		{"unannotated", `sub("5", 2);`, nil},
		{"spread", `add(...xs);`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := check(t, header+tc.body, nil)
			if diff := cmp.Diff(tc.want, res.Diagnostics, ignoreTok, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("diagnostics (-want +got):\n%s", diff)
			}
			assert.Equal(t, len(tc.want), res.Errors())
		})
	}
}

func TestModuleFile(t *testing.T) {
	src := header + `import { q } from "m";
export function sum(a) { return add(q, "1"); }
export default add("5", q);
`
	res := check(t, src, nil)
	want := []typeChecker.Diagnostic{
		mismatch(7, 40, 1, types.Number, types.String),
		mismatch(8, 20, 0, types.Number, types.String),
	}
	if diff := cmp.Diff(want, res.Diagnostics, ignoreTok); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s", diff)
	}
}

func TestGeneratorBody(t *testing.T) {
	res := check(t, header+`function* g() { const n = yield 1; add(n, yield "x"); }`, nil)
	assert.Empty(t, res.Diagnostics)
}

func TestDiagnosticToken(t *testing.T) {
	res := check(t, header+`add("five", 2);`, nil)
	require.Len(t, res.Diagnostics, 1)
	tok := res.Diagnostics[0].Tok
	assert.Equal(t, 6, tok.Line)
	assert.Equal(t, 5, tok.Column)
	assert.Equal(t, 6, tok.Len)
}

func TestPartialAnnotations(t *testing.T) {
	src := `/* typefighter
 @function noInputs
 @output string
 @function empty
 @input
*/
noInputs("a", 1);
empty("a", 1);
`
	res := check(t, src, nil)
	assert.Empty(t, res.Diagnostics)

	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnArity, true)
	res = check(t, src, cfg)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, "empty", d.Function)
	assert.Equal(t, "empty: expected 0 argument(s), but got 2", d.Message)
	assert.Equal(t, 0, d.Position)
	assert.Equal(t, typeChecker.SeverityWarning, d.Severity)
	assert.Zero(t, res.Errors())
}

func TestArity(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnArity, true)
	res := check(t, header+"add(1);\nadd(1, 2);\nadd(\"a\", 2, 3);", cfg)
	require.Len(t, res.Diagnostics, 3)

	assert.Equal(t, "arity", res.Diagnostics[0].Warning)
	assert.Equal(t, 6, res.Diagnostics[0].Line)
	assert.Equal(t, 1, res.Diagnostics[0].Position)
	assert.Equal(t, "add: expected 2 argument(s), but got 1", res.Diagnostics[0].Message)

	assert.Equal(t, 8, res.Diagnostics[1].Line)
	assert.Equal(t, 2, res.Diagnostics[1].Position)
	assert.Equal(t, "type-mismatch", res.Diagnostics[2].Warning)
	assert.Equal(t, 1, res.Errors())
}

func TestFlags(t *testing.T) {
	src := header + "let x = \"5\";\nadd(x, 2);"

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatIdentChase, false)
	assert.Empty(t, check(t, src, cfg).Diagnostics)

	cfg = config.NewConfig()
	cfg.SetFeature(config.FeatBlockComments, false)
	res := check(t, src, cfg)
	assert.Zero(t, res.Table.Len())
	assert.Empty(t, res.Diagnostics)

	cfg = config.NewConfig()
	cfg.SetWarning(config.WarnTypeMismatch, false)
	assert.Empty(t, check(t, src, cfg).Diagnostics)
}

func TestNotes(t *testing.T) {
	src := `/* typefighter
 @input number
 @function f
 @input text
 @function f
*/
f(1);
`
	res := check(t, src, nil)
	assert.Empty(t, res.Notes)

	cfg := config.NewConfig()
	cfg.ProcessFlags(func(fn func(string)) { fn("Wall") })
	res = check(t, src, cfg)
	require.Len(t, res.Notes, 3)
	assert.Equal(t, []string{"annotation", "unknown-tag", "redefined"},
		[]string{res.Notes[0].Warning, res.Notes[1].Warning, res.Notes[2].Warning})
	for _, n := range res.Notes {
		assert.Equal(t, typeChecker.SeverityWarning, n.Severity)
		assert.Equal(t, -1, n.Position)
		assert.Equal(t, "t.js", n.File)
	}
	assert.Equal(t, 2, res.Notes[0].Line)
	assert.Equal(t, 2, res.Notes[0].Column)
	assert.Zero(t, res.Errors())
}

func TestDirectives(t *testing.T) {
	cfg := config.NewConfig()
	src := "// [tf]: -Warity -Wunknown-tag\n" + `/* typefighter
 @function g
 @input string, nope
*/
g(1);
`
	res := check(t, src, cfg)
	assert.True(t, res.Config.IsWarningEnabled(config.WarnArity))
	assert.False(t, cfg.IsWarningEnabled(config.WarnArity), "caller configuration must not change")

	require.Len(t, res.Notes, 1)
	assert.Equal(t, "unknown-tag", res.Notes[0].Warning)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, "arity", res.Diagnostics[0].Warning)
	assert.Equal(t, "g: Argument at position 0 should be of type string, but got number", res.Diagnostics[1].Message)
}

func TestDirectiveErrors(t *testing.T) {
	res := check(t, "// [tf]: -Wbogus -Fno-ident-chase\nlet x = 1;", nil)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "ignoring directive: unknown warning 'bogus'", res.Notes[0].Message)
	assert.Equal(t, 1, res.Notes[0].Line)
	assert.False(t, res.Config.IsFeatureEnabled(config.FeatIdentChase))
}

func TestDirectivesDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatDirectives, false)
	res := check(t, "// [tf]: -Warity\n"+header+"add(1);", cfg)
	assert.False(t, res.Config.IsWarningEnabled(config.WarnArity))
	assert.Empty(t, res.Diagnostics)
}

func TestIdempotent(t *testing.T) {
	file, err := parser.ParseFile("t.js", []rune(header+`let y = true; add(y, "z");`), 0)
	require.NoError(t, err)
	cfg := config.NewConfig()
	first := typeChecker.CheckFile(file, cfg)
	second := typeChecker.CheckFile(file, cfg)
	require.Len(t, first.Diagnostics, 2)
	if diff := cmp.Diff(first.Diagnostics, second.Diagnostics); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestReporter(t *testing.T) {
	r := &typeChecker.Reporter{}
	r.Report(typeChecker.Diagnostic{Message: "a"})
	got := r.Diagnostics()
	got[0].Message = "changed"
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "a", r.Diagnostics()[0].Message)
}
