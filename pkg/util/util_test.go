package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xplshn/typefighter/pkg/token"
)

func TestSourceLine(t *testing.T) {
	content := []rune("first\r\nsecond\n\nfourth")
	assert.Equal(t, "first", SourceLine(content, 1))
	assert.Equal(t, "second", SourceLine(content, 2))
	assert.Equal(t, "", SourceLine(content, 3))
	assert.Equal(t, "fourth", SourceLine(content, 4))
	assert.Equal(t, "", SourceLine(content, 5))
	assert.Equal(t, "", SourceLine(nil, 1))
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, Files: []SourceFileRecord{
		{Name: "a.js", Content: []rune("let x = 1;\nadd(\"5\", 2);\n")},
	}}

	p.Error("type-mismatch", token.Token{Line: 2, Column: 5, Len: 3}, "add: %s", "bad argument")
	assert.Equal(t, "a.js:2:5: error: add: bad argument [-Wtype-mismatch]\n  add(\"5\", 2);\n      ^~~\n", buf.String())

	buf.Reset()
	p.Warn("", token.Token{Line: 1, Column: 1, Len: 1}, "plain")
	assert.Equal(t, "a.js:1:1: warning: plain\n  let x = 1;\n  ^\n", buf.String())

	buf.Reset()
	p.Error("", token.Token{FileIndex: 4, Line: 3, Column: 2}, "elsewhere")
	assert.Equal(t, "unknown:3:2: error: elsewhere\n", buf.String())
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Out: &buf, Files: []SourceFileRecord{{Name: "c.js", Content: []rune("f()")}}, Color: true}
	p.Warn("arity", token.Token{Line: 1, Column: 1, Len: 3}, "x")
	assert.Contains(t, buf.String(), "\033[33mwarning:\033[0m x [-Warity]")
	assert.Contains(t, buf.String(), "\033[32m^~~\033[0m")
}

func TestSourceError(t *testing.T) {
	err := NewSourceError(token.Token{Line: 4, Column: 9}, "Expected %s", "')'")
	assert.Equal(t, "4:9: Expected ')'", err.Error())
	assert.Equal(t, "Expected ')'", err.Msg)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
