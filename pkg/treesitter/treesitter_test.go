package treesitter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/parser"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/treesitter"
	"github.com/xplshn/typefighter/pkg/util"
)

func TestMatchesNativeParser(t *testing.T) {
	sources := map[string]string{
		"call":      `add("5", 2);`,
		"shadow":    `let x = "a"; { let x = 1; add(x, 2); }`,
		"function":  `function add(a, b) { return a + b; }`,
		"arrow":     `const f = (a) => a * 2;`,
		"if":        `if (x) f(); else g();`,
		"member":    `o.m(1);`,
		"import":    `import d, { q, r as s } from "m"; import * as ns from "n"; f(q);`,
		"export":    `export const w = 1; export { w as v }; export default w;`,
		"generator": "async function* gen() { for await (const v of xs) { yield v; } yield* other(); }",
		"regex":     `if (x) /re/.test(y);`,
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			native, err := parser.ParseFile(name+".js", []rune(src), 0)
			require.NoError(t, err)
			ts, err := treesitter.ParseFile(context.Background(), name+".js", []byte(src), 0)
			require.NoError(t, err)
			if diff := cmp.Diff(ast.Compact(native.Root), ast.Compact(ts.Root)); diff != "" {
				t.Errorf("front ends disagree (-native +tree-sitter):\n%s", diff)
			}
		})
	}
}

func TestPositionsAreRuneBased(t *testing.T) {
	src := "let s = \"ñ\"; f(s, 1)"
	f, err := treesitter.ParseFile(context.Background(), "pos.js", []byte(src), 2)
	require.NoError(t, err)

	calls := ast.Collect(f.Root, ast.Call)
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Tok.Line)
	assert.Equal(t, 14, calls[0].Tok.Column)
	assert.Equal(t, 2, calls[0].Tok.FileIndex)
	assert.Equal(t, 7, calls[0].Tok.Len)
}

func TestComments(t *testing.T) {
	src := "/* typefighter\n * @function f\n */\nf(1) // trailing\n"
	f, err := treesitter.ParseFile(context.Background(), "c.js", []byte(src), 0)
	require.NoError(t, err)
	require.Len(t, f.Comments, 2)

	assert.Equal(t, token.BlockComment, f.Comments[0].Type)
	assert.Equal(t, " typefighter\n * @function f\n ", f.Comments[0].Value)
	assert.Equal(t, 1, f.Comments[0].Line)
	assert.Equal(t, 1, f.Comments[0].Column)

	assert.Equal(t, token.LineComment, f.Comments[1].Type)
	assert.Equal(t, " trailing", f.Comments[1].Value)
	assert.Equal(t, 4, f.Comments[1].Line)
	assert.Equal(t, 6, f.Comments[1].Column)
}

func TestSyntaxError(t *testing.T) {
	_, err := treesitter.ParseFile(context.Background(), "bad.js", []byte("let = ;\n"), 0)
	require.Error(t, err)
	var se *util.SourceError
	require.True(t, errors.As(err, &se), "error %v is not a *util.SourceError", err)
	assert.Equal(t, 1, se.Tok.Line)
}

func TestInvalidUTF8(t *testing.T) {
	_, err := treesitter.ParseFile(context.Background(), "bin.js", []byte{0xff, 0xfe, 'x'}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, treesitter.ErrInvalidContent))
}
