package infer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/infer"
	"github.com/xplshn/typefighter/pkg/parser"
	"github.com/xplshn/typefighter/pkg/scope"
	"github.com/xplshn/typefighter/pkg/types"
)

// argTypes infers the type of every argument of the call to f in src.
func argTypes(t *testing.T, src string, chase bool) []types.TypeTag {
	t.Helper()
	file, err := parser.ParseFile("infer.js", []rune(src), 0)
	require.NoError(t, err)
	inf := infer.NewInferencer(scope.Build(file.Root), chase)
	for _, call := range ast.Collect(file.Root, ast.Call) {
		d := call.Data.(ast.CallNode)
		if d.Callee.Type != ast.Ident || d.Callee.Data.(ast.IdentNode).Name != "f" {
			continue
		}
		out := []types.TypeTag{}
		for _, arg := range d.Args {
			out = append(out, inf.TypeOf(arg))
		}
		return out
	}
	t.Fatalf("no call to f in %q", src)
	return nil
}

func TestLiterals(t *testing.T) {
	got := argTypes(t, "f('s', \"d\", 1, 0x10, .5, 1e3, true, false, (\"p\"), ((2)))", true)
	assert.Equal(t, []types.TypeTag{
		types.String, types.String,
		types.Number, types.Number, types.Number, types.Number,
		types.Boolean, types.Boolean,
		types.String, types.Number,
	}, got)
}

func TestOpaqueExpressions(t *testing.T) {
	got := argTypes(t, "f(`t`, null, undefined, 1 + 2, -1, !0, [], {}, g(), 10n, /r/, x => x, ...rest)", true)
	for i, tag := range got {
		assert.Equal(t, types.Unknown, tag, "argument %d", i)
	}
	assert.Len(t, got, 13)
}

func TestIdentifierChain(t *testing.T) {
	src := `let a = "x"; let b = a; const c = (b); f(a, b, c);`
	assert.Equal(t, []types.TypeTag{types.String, types.String, types.String}, argTypes(t, src, true))
	assert.Equal(t, []types.TypeTag{types.Unknown, types.Unknown, types.Unknown}, argTypes(t, src, false))
}

func TestChainEndsAtOpaqueInitializer(t *testing.T) {
	src := `let a = g(); let b = a; let c; f(a, b, c, d);`
	assert.Equal(t, []types.TypeTag{types.Unknown, types.Unknown, types.Unknown, types.Unknown}, argTypes(t, src, true))
}

func TestCycle(t *testing.T) {
	src := `var a = b, b = a; f(a, b);`
	assert.Equal(t, []types.TypeTag{types.Unknown, types.Unknown}, argTypes(t, src, true))
}

func TestSelfReference(t *testing.T) {
	src := `var s = s; f(s);`
	assert.Equal(t, []types.TypeTag{types.Unknown}, argTypes(t, src, true))
}

func TestNilGraph(t *testing.T) {
	inf := infer.NewInferencer(nil, true)
	file, err := parser.ParseFile("nil.js", []rune(`x`), 0)
	require.NoError(t, err)
	ident := ast.Collect(file.Root, ast.Ident)[0]
	assert.Equal(t, types.Unknown, inf.TypeOf(ident))
	assert.Equal(t, types.Unknown, inf.TypeOf(nil))
}
