package annotation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/typefighter/pkg/annotation"
	"github.com/xplshn/typefighter/pkg/lexer"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/types"
)

func comments(t *testing.T, src string) []token.Token {
	t.Helper()
	_, cs, err := lexer.Tokenize([]rune(src), 0)
	require.NoError(t, err)
	return cs
}

func extract(t *testing.T, src string) (types.Table, []annotation.Note) {
	t.Helper()
	return annotation.Extract(comments(t, src), annotation.DefaultOptions)
}

func TestBlockComment(t *testing.T) {
	table, notes := extract(t, `/**
 * typefighter
 * @function add
 * @input number, number
 * @output number
 */
function add(a, b) { return a + b }`)
	assert.Empty(t, notes)
	sig, ok := table.Lookup("add")
	require.True(t, ok)
	assert.Equal(t, types.Signature{
		Name:   "add",
		Inputs: []types.TypeTag{types.Number, types.Number},
		Output: types.Number,
	}, sig)
}

func TestMarkerGatesLines(t *testing.T) {
	table, _ := extract(t, "/* @function early\n typefighter\n @function late */")
	assert.Equal(t, []string{"late"}, table.Names())

	table, _ = extract(t, "/* @function f\n @input string */")
	assert.Zero(t, table.Len())
}

func TestMarkerOnFirstLine(t *testing.T) {
	table, _ := extract(t, "/* typefighter\n @function f\n @input string, boolean */")
	sig, ok := table.Lookup("f")
	require.True(t, ok)
	assert.Equal(t, []types.TypeTag{types.String, types.Boolean}, sig.Inputs)
}

func TestStateResetsPerComment(t *testing.T) {
	table, notes := extract(t, "/* typefighter\n @function f */\n/* typefighter\n @input number */\n/* @function g */")
	sig, ok := table.Lookup("f")
	require.True(t, ok)
	assert.Nil(t, sig.Inputs)
	assert.Equal(t, []string{"f"}, table.Names())
	require.Len(t, notes, 1)
	assert.Equal(t, annotation.NoteNoFunction, notes[0].Kind)
	assert.Equal(t, 4, notes[0].Tok.Line)
}

func TestSeparateLineCommentsDoNotCombine(t *testing.T) {
	table, _ := extract(t, "// typefighter\n// @function f\n// @input number\n")
	assert.Zero(t, table.Len())
}

func TestLastFunctionWins(t *testing.T) {
	table, notes := extract(t, `/* typefighter
 @function f
 @input string
 @output string
 @function f
 @input number */`)
	sig, ok := table.Lookup("f")
	require.True(t, ok)
	assert.Equal(t, []types.TypeTag{types.Number}, sig.Inputs)
	assert.Equal(t, types.TypeTag(""), sig.Output)
	require.Len(t, notes, 1)
	assert.Equal(t, annotation.NoteRedefined, notes[0].Kind)
	assert.Equal(t, 5, notes[0].Tok.Line)
}

func TestLaterInputReplaces(t *testing.T) {
	table, _ := extract(t, "/* typefighter\n @function f\n @input string\n @input boolean, number */")
	sig, _ := table.Lookup("f")
	assert.Equal(t, []types.TypeTag{types.Boolean, types.Number}, sig.Inputs)
}

func TestEmptyLists(t *testing.T) {
	table, _ := extract(t, "/* typefighter\n @function f\n @input\n @output */")
	sig, ok := table.Lookup("f")
	require.True(t, ok)
	assert.NotNil(t, sig.Inputs)
	assert.Empty(t, sig.Inputs)
	assert.Equal(t, types.TypeTag(""), sig.Output)
}

func TestWhitespaceAroundTags(t *testing.T) {
	table, notes := extract(t, "/* typefighter\n   @function   f  \n\t@input  number ,string  \n */")
	assert.Empty(t, notes)
	sig, _ := table.Lookup("f")
	assert.Equal(t, []types.TypeTag{types.Number, types.String}, sig.Inputs)
}

func TestUnrecognizedDirectiveIgnored(t *testing.T) {
	table, notes := extract(t, "/* typefighter\n @function f\n @inputs string\n @returns number */")
	assert.Empty(t, notes)
	sig, _ := table.Lookup("f")
	assert.Nil(t, sig.Inputs)
	assert.Equal(t, types.TypeTag(""), sig.Output)
}

func TestUnknownTag(t *testing.T) {
	table, notes := extract(t, "/* typefighter\n   @function f\n   @input strng, number */")
	sig, _ := table.Lookup("f")
	assert.Equal(t, []types.TypeTag{types.Unknown, types.Number}, sig.Inputs)
	require.Len(t, notes, 1)
	n := notes[0]
	assert.Equal(t, annotation.NoteUnknownTag, n.Kind)
	assert.Equal(t, `unrecognized type "strng" is treated as unknown`, n.Msg)
	assert.Equal(t, 3, n.Tok.Line)
	assert.Equal(t, 4, n.Tok.Column)
}

func TestMissingFunctionName(t *testing.T) {
	table, notes := extract(t, "/* typefighter\n @function\n @input number */")
	assert.Zero(t, table.Len())
	require.Len(t, notes, 2)
	assert.Equal(t, annotation.NoteMissingName, notes[0].Kind)
	assert.Equal(t, annotation.NoteNoFunction, notes[1].Kind)
}

func TestNoteColumnOnFirstLine(t *testing.T) {
	_, notes := extract(t, "x;  /* typefighter\n @function f */ /* typefighter */ /*   @output string */")
	assert.Empty(t, notes)

	_, notes = extract(t, "/*typefighter\n@input number */")
	require.Len(t, notes, 1)
	assert.Equal(t, 2, notes[0].Tok.Line)
	assert.Equal(t, 1, notes[0].Tok.Column)
}

func TestOptions(t *testing.T) {
	cs := comments(t, "/* typefighter\n @function f */")
	table, _ := annotation.Extract(cs, annotation.Options{LineComments: true})
	assert.Zero(t, table.Len())
	table, _ = annotation.Extract(cs, annotation.Options{BlockComments: true})
	assert.Equal(t, 1, table.Len())
}
