// Package annotation extracts typefighter signatures from source comments.
//
// A comment is scanned line by line. Each line is trimmed and stripped of
// leading '*' continuation markers. Lines before one starting with
// "typefighter" are ignored; after it the following directives apply:
//
//	@function <name>   open (or replace) the record for name
//	@input <t>, <t>    set the ordered input tags of the current record
//	@output <t>        set the output tag of the current record
//
// The current record and the recognized mode never carry over from one
// comment to the next.
package annotation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/types"
)

const Marker = "typefighter"

type NoteKind int

const (
	// NoteNoFunction is an @input or @output line with no current @function.
	NoteNoFunction NoteKind = iota
	// NoteMissingName is an @function line without a name.
	NoteMissingName
	// NoteRedefined is an @function for a name that already has a record.
	NoteRedefined
	// NoteUnknownTag is a type token other than string, number, boolean or unknown.
	NoteUnknownTag
)

// Note describes an annotation line the extractor skipped or reinterpreted.
// Notes never affect the resulting table.
type Note struct {
	Kind NoteKind
	Tok  token.Token
	Msg  string
}

type Options struct {
	LineComments  bool
	BlockComments bool
}

var DefaultOptions = Options{LineComments: true, BlockComments: true}

type line struct {
	text string
	tok  token.Token
}

// state is the fold accumulator.
type state struct {
	sigs  map[string]types.Signature
	notes []Note
}

// Extract builds the signature table for one file from its comments, in
// source order. The last @function for a name wins.
func Extract(comments []token.Token, opts Options) (types.Table, []Note) {
	st := &state{sigs: make(map[string]types.Signature)}
	for _, c := range comments {
		if c.Type == token.LineComment && !opts.LineComments {
			continue
		}
		if c.Type == token.BlockComment && !opts.BlockComments {
			continue
		}
		st.comment(c)
	}
	return types.NewTable(st.sigs), st.notes
}

func (st *state) note(kind NoteKind, tok token.Token, format string, args ...interface{}) {
	st.notes = append(st.notes, Note{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

func (st *state) comment(c token.Token) {
	recognized := false
	cursor := ""
	for _, ln := range splitLines(c) {
		if !recognized {
			recognized = strings.HasPrefix(ln.text, Marker)
			continue
		}
		fields := strings.Fields(ln.text)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "@function":
			cursor = st.function(ln, fields[1:])
		case "@input":
			if cursor == "" {
				st.note(NoteNoFunction, ln.tok, "@input without a preceding @function is ignored")
				continue
			}
			sig := st.sigs[cursor]
			sig.Inputs = st.inputs(ln, strings.TrimSpace(strings.TrimPrefix(ln.text, "@input")))
			st.sigs[cursor] = sig
		case "@output":
			if cursor == "" {
				st.note(NoteNoFunction, ln.tok, "@output without a preceding @function is ignored")
				continue
			}
			sig := st.sigs[cursor]
			if out := strings.TrimSpace(strings.TrimPrefix(ln.text, "@output")); out != "" {
				sig.Output = st.tag(ln, out)
			}
			st.sigs[cursor] = sig
		}
	}
}

func (st *state) function(ln line, args []string) string {
	if len(args) == 0 {
		st.note(NoteMissingName, ln.tok, "@function without a name is ignored")
		return ""
	}
	name := args[0]
	if _, exists := st.sigs[name]; exists {
		st.note(NoteRedefined, ln.tok, "@function %s redefines an earlier annotation; the last one wins", name)
	}
	st.sigs[name] = types.Signature{Name: name}
	return name
}

func (st *state) inputs(ln line, list string) []types.TypeTag {
	if list == "" {
		return []types.TypeTag{}
	}
	return lo.Map(strings.Split(list, ","), func(item string, _ int) types.TypeTag {
		return st.tag(ln, strings.TrimSpace(item))
	})
}

func (st *state) tag(ln line, s string) types.TypeTag {
	tag, ok := types.ParseTag(s)
	if !ok {
		st.note(NoteUnknownTag, ln.tok, "unrecognized type %q is treated as unknown", s)
	}
	return tag
}

// splitLines returns the cleaned lines of a comment, each anchored at the
// position of its first significant character.
func splitLines(c token.Token) []line {
	raw := strings.Split(c.Value, "\n")
	out := make([]line, 0, len(raw))
	for i, r := range raw {
		runes := []rune(r)
		start := skip(runes, 0, unicode.IsSpace)
		start = skip(runes, start, func(r rune) bool { return r == '*' })
		start = skip(runes, start, unicode.IsSpace)
		text := strings.TrimSpace(string(runes[start:]))

		tok := token.Token{Type: c.Type, FileIndex: c.FileIndex, Line: c.Line + i, Len: len([]rune(text))}
		if i == 0 {
			tok.Column = c.Column + 2 + start
		} else {
			tok.Column = 1 + start
		}
		out = append(out, line{text: text, tok: tok})
	}
	return out
}

func skip(runes []rune, i int, pred func(rune) bool) int {
	for i < len(runes) && pred(runes[i]) {
		i++
	}
	return i
}
