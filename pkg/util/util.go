package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/typefighter/pkg/token"
	"golang.org/x/term"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// SourceError is a front-end failure anchored to a token.
type SourceError struct {
	Tok token.Token
	Msg string
}

func NewSourceError(tok token.Token, format string, args ...interface{}) *SourceError {
	return &SourceError{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Msg)
}

// Printer renders messages in the "file:line:col: kind: msg" format followed by
// the offending source line and a caret.
type Printer struct {
	Out   io.Writer
	Files []SourceFileRecord
	Color bool
}

func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Printer) paint(code, s string) string {
	if !p.Color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// findFileAndLine converts a token to a file-specific location
func (p *Printer) findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(p.Files) {
		return "unknown", tok.Line, tok.Column
	}
	return p.Files[tok.FileIndex].Name, tok.Line, tok.Column
}

// SourceLine returns the text of the given 1-based line.
func SourceLine(content []rune, lineNum int) string {
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	if lineNum > 1 {
		return ""
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}
	return strings.TrimRight(string(content[lineStart:lineEnd]), "\r")
}

func (p *Printer) printErrorLine(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(p.Files) || tok.Line == 0 {
		return
	}
	line := SourceLine(p.Files[tok.FileIndex].Content, tok.Line)
	fmt.Fprintf(p.Out, "  %s\n", line)

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	col := tok.Column
	if col < 1 {
		col = 1
	}
	fmt.Fprintf(p.Out, "  %s%s\n", strings.Repeat(" ", col-1), p.paint("32", caret))
}

func (p *Printer) message(kind, code string, tok token.Token, suffix, format string, args ...interface{}) {
	filename, line, col := p.findFileAndLine(tok)
	fmt.Fprintf(p.Out, "%s:%d:%d: %s ", filename, line, col, p.paint(code, kind+":"))
	fmt.Fprintf(p.Out, format, args...)
	fmt.Fprintf(p.Out, "%s\n", suffix)
	p.printErrorLine(tok)
}

// Error prints a formatted error; category, when set, is shown as [-Wcategory].
func (p *Printer) Error(category string, tok token.Token, format string, args ...interface{}) {
	p.message("error", "31", tok, categorySuffix(category), format, args...)
}

func (p *Printer) Warn(category string, tok token.Token, format string, args ...interface{}) {
	p.message("warning", "33", tok, categorySuffix(category), format, args...)
}

func categorySuffix(category string) string {
	if category == "" {
		return ""
	}
	return " [-W" + category + "]"
}

// Fatalf prints an error without source context and exits the program
func Fatalf(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if IsTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "typefighter: \033[31merror:\033[0m %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "typefighter: error: %s\n", msg)
	}
	os.Exit(code)
}

// Infof prints a progress line to stderr.
func Infof(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "typefighter: info: "+format+"\n", args...)
}
