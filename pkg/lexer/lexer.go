package lexer

import (
	"strings"

	"github.com/smasher164/xid"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	prev      token.Type
	prevValue string
	prev2     token.Type
	heads     []bool // per open '(': whether it starts an if/while/for head
	headEnd   bool   // the last ')' closed a statement head
	comments  []token.Token
	err       *util.SourceError
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, prev: token.EOF,
	}
}

// Tokenize runs the lexer to completion. The returned token slice always ends
// with an EOF token; comments are returned separately in source order.
func Tokenize(source []rune, fileIndex int) (tokens, comments []token.Token, err error) {
	l := NewLexer(source, fileIndex)
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if l.err != nil {
		return tokens, l.comments, l.err
	}
	return tokens, l.comments, nil
}

// Comments returns every comment seen so far.
func (l *Lexer) Comments() []token.Token { return l.comments }

// Err returns the first lexical error, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

func (l *Lexer) Next() token.Token {
	tok := l.next()
	switch tok.Type {
	case token.LParen:
		l.heads = append(l.heads, l.opensHead())
	case token.RParen:
		l.headEnd = false
		if n := len(l.heads); n > 0 {
			l.headEnd = l.heads[n-1]
			l.heads = l.heads[:n-1]
		}
	}
	if tok.Type != token.EOF {
		l.prev2 = l.prev
		l.prev, l.prevValue = tok.Type, tok.Value
	}
	return tok
}

func (l *Lexer) opensHead() bool {
	switch l.prev {
	case token.If, token.While, token.For:
		return true
	case token.Ident:
		return l.prevValue == "await" && l.prev2 == token.For
	}
	return false
}

func (l *Lexer) next() token.Token {
	if l.err != nil {
		return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
	}
	if l.pos == 0 && l.peek() == '#' && l.peekNext() == '!' {
		l.skipLine()
	}
	l.skipWhitespaceAndComments()
	if l.err != nil {
		return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
	}
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	if isIdentStart(ch) {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine)
	}
	if isDecimal(ch) || (ch == '.' && isDecimal(l.peekNext())) {
		return l.numberLiteral(startPos, startCol, startLine)
	}
	if ch == '/' && l.regexAllowed() {
		return l.regexLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(':
		return l.makeToken(token.LParen, "", startPos, startCol, startLine)
	case ')':
		return l.makeToken(token.RParen, "", startPos, startCol, startLine)
	case '{':
		return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
	case '}':
		return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
	case '[':
		return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
	case ']':
		return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
	case ';':
		return l.makeToken(token.Semi, "", startPos, startCol, startLine)
	case ',':
		return l.makeToken(token.Comma, "", startPos, startCol, startLine)
	case ':':
		return l.makeToken(token.Colon, "", startPos, startCol, startLine)
	case '~':
		return l.makeToken(token.Complement, "", startPos, startCol, startLine)
	case '^':
		return l.matchThen('=', token.XorEq, token.Xor, startPos, startCol, startLine)
	case '%':
		return l.matchThen('=', token.RemEq, token.Rem, startPos, startCol, startLine)
	case '/':
		return l.matchThen('=', token.SlashEq, token.Slash, startPos, startCol, startLine)
	case '?':
		return l.question(startPos, startCol, startLine)
	case '+':
		return l.plus(startPos, startCol, startLine)
	case '-':
		return l.minus(startPos, startCol, startLine)
	case '*':
		return l.star(startPos, startCol, startLine)
	case '&':
		return l.ampersand(startPos, startCol, startLine)
	case '|':
		return l.pipe(startPos, startCol, startLine)
	case '<':
		return l.less(startPos, startCol, startLine)
	case '>':
		return l.greater(startPos, startCol, startLine)
	case '=':
		return l.equal(startPos, startCol, startLine)
	case '!':
		if l.match('=') {
			return l.matchThen('=', token.NeqEq, token.Neq, startPos, startCol, startLine)
		}
		return l.makeToken(token.Not, "", startPos, startCol, startLine)
	case '.':
		if l.peek() == '.' && l.peekNext() == '.' {
			l.advance()
			l.advance()
			return l.makeToken(token.Dots, "", startPos, startCol, startLine)
		}
		return l.makeToken(token.Dot, "", startPos, startCol, startLine)
	case '"', '\'':
		return l.stringLiteral(ch, startPos, startCol, startLine)
	case '`':
		return l.templateLiteral(startPos, startCol, startLine)
	}

	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	l.errorf(tok, "Unexpected character: '%c'", ch)
	return tok
}

func isIdentStart(ch rune) bool    { return ch == '$' || ch == '_' || xid.Start(ch) }
func isIdentContinue(ch rune) bool { return ch == '$' || xid.Continue(ch) }
func isDecimal(ch rune) bool       { return '0' <= ch && ch <= '9' }
func isHex(ch rune) bool {
	return isDecimal(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

func (l *Lexer) errorf(tok token.Token, format string, args ...interface{}) {
	if l.err == nil {
		l.err = util.NewSourceError(tok, format, args...)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0', '\ufeff', '\u2028', '\u2029':
			l.advance()
		case '/':
			switch l.peekNext() {
			case '/':
				l.lineComment()
			case '*':
				l.blockComment()
				if l.err != nil {
					return
				}
			default:
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) skipLine() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) lineComment() {
	startPos, startCol, startLine := l.pos, l.column, l.line
	l.advance()
	l.advance()
	bodyStart := l.pos
	l.skipLine()
	body := string(l.source[bodyStart:l.pos])
	l.comments = append(l.comments, l.makeToken(token.LineComment, body, startPos, startCol, startLine))
}

func (l *Lexer) blockComment() {
	startPos, startCol, startLine := l.pos, l.column, l.line
	l.advance()
	l.advance()
	bodyStart := l.pos
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			body := string(l.source[bodyStart:l.pos])
			l.advance()
			l.advance()
			l.comments = append(l.comments, l.makeToken(token.BlockComment, body, startPos, startCol, startLine))
			return
		}
		l.advance()
	}
	l.errorf(l.makeToken(token.BlockComment, "", startPos, startCol, startLine), "Unterminated block comment")
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isIdentContinue(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	// a keyword after '.' or '?.' is a property name
	if l.prev == token.Dot || l.prev == token.QuestionDot {
		return tok
	}
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		tok.Type = tokType
		tok.Value = ""
	}
	return tok
}

func (l *Lexer) digits(valid func(rune) bool) int {
	count := 0
	for valid(l.peek()) || (l.peek() == '_' && valid(l.peekNext())) {
		if l.peek() != '_' {
			count++
		}
		l.advance()
	}
	return count
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	if l.peek() == '0' {
		var valid func(rune) bool
		switch l.peekNext() {
		case 'x', 'X':
			valid = isHex
		case 'o', 'O':
			valid = func(r rune) bool { return '0' <= r && r <= '7' }
		case 'b', 'B':
			valid = func(r rune) bool { return r == '0' || r == '1' }
		}
		if valid != nil {
			l.advance()
			l.advance()
			if l.digits(valid) == 0 {
				tok := l.makeToken(token.Number, "", startPos, startCol, startLine)
				l.errorf(tok, "Malformed number literal: no digits after prefix")
				return tok
			}
			return l.numberSuffix(startPos, startCol, startLine, true)
		}
	}

	isInteger := true
	l.digits(isDecimal)
	if l.peek() == '.' {
		isInteger = false
		l.advance()
		l.digits(isDecimal)
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		isInteger = false
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if l.digits(isDecimal) == 0 {
			tok := l.makeToken(token.Number, "", startPos, startCol, startLine)
			l.errorf(tok, "Malformed floating-point literal: exponent has no digits")
			return tok
		}
	}
	return l.numberSuffix(startPos, startCol, startLine, isInteger)
}

func (l *Lexer) numberSuffix(startPos, startCol, startLine int, isInteger bool) token.Token {
	if isInteger && l.peek() == 'n' {
		l.advance()
		return l.makeToken(token.BigInt, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
	}
	tok := l.makeToken(token.Number, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
	if isIdentStart(l.peek()) {
		l.errorf(tok, "Identifier starts immediately after numeric literal")
	}
	return tok
}

func (l *Lexer) stringLiteral(quote rune, startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == quote {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
		}
		if c == '\n' {
			break
		}
		l.advance()
		if c == '\\' {
			l.decodeEscape(&sb)
			continue
		}
		sb.WriteRune(c)
	}
	tok := l.makeToken(token.String, "", startPos, startCol, startLine)
	l.errorf(tok, "Unterminated string literal")
	return tok
}

func (l *Lexer) decodeEscape(sb *strings.Builder) {
	if l.isAtEnd() {
		return
	}
	c := l.advance()
	escapes := map[rune]rune{
		'n': '\n', 't': '\t', 'r': '\r', 'b': '\b', 'f': '\f', 'v': '\v', '0': 0,
	}
	switch {
	case c == '\n':
		// line continuation
	case c == 'x':
		sb.WriteRune(l.hexEscape(2))
	case c == 'u' && l.peek() == '{':
		l.advance()
		var val rune
		for isHex(l.peek()) {
			val = val*16 + hexValue(l.advance())
		}
		l.match('}')
		sb.WriteRune(val)
	case c == 'u':
		sb.WriteRune(l.hexEscape(4))
	default:
		if val, ok := escapes[c]; ok {
			sb.WriteRune(val)
		} else {
			sb.WriteRune(c)
		}
	}
}

func (l *Lexer) hexEscape(numDigits int) rune {
	var val rune
	for i := 0; i < numDigits && isHex(l.peek()); i++ {
		val = val*16 + hexValue(l.advance())
	}
	return val
}

func hexValue(c rune) rune {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

// templateLiteral scans a backtick template including nested substitutions.
// The token value is the raw text between the backticks.
func (l *Lexer) templateLiteral(startPos, startCol, startLine int) token.Token {
	bodyStart := l.pos
	if !l.skipTemplateBody() {
		tok := l.makeToken(token.Template, "", startPos, startCol, startLine)
		l.errorf(tok, "Unterminated template literal")
		return tok
	}
	body := string(l.source[bodyStart : l.pos-1])
	return l.makeToken(token.Template, body, startPos, startCol, startLine)
}

func (l *Lexer) skipTemplateBody() bool {
	for !l.isAtEnd() {
		c := l.advance()
		switch {
		case c == '\\':
			l.advance()
		case c == '`':
			return true
		case c == '$' && l.peek() == '{':
			l.advance()
			if !l.skipSubstitution() {
				return false
			}
		}
	}
	return false
}

func (l *Lexer) skipSubstitution() bool {
	depth := 1
	for !l.isAtEnd() {
		c := l.advance()
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return true
			}
		case '`':
			if !l.skipTemplateBody() {
				return false
			}
		case '"', '\'':
			for !l.isAtEnd() && l.peek() != c && l.peek() != '\n' {
				if l.advance() == '\\' {
					l.advance()
				}
			}
			l.advance()
		}
	}
	return false
}

func (l *Lexer) regexAllowed() bool {
	switch l.prev {
	case token.RParen:
		return l.headEnd
	case token.Ident:
		// operand position after the yield and await operators
		return (l.prevValue == "yield" || l.prevValue == "await") &&
			l.prev2 != token.Dot && l.prev2 != token.QuestionDot
	case token.Number, token.BigInt, token.String, token.Template, token.Regex,
		token.RBracket, token.RBrace, token.True, token.False, token.Null, token.This,
		token.Inc, token.Dec:
		return false
	}
	return true
}

func (l *Lexer) regexLiteral(startPos, startCol, startLine int) token.Token {
	l.advance()
	inClass := false
	for {
		if l.isAtEnd() || l.peek() == '\n' {
			tok := l.makeToken(token.Regex, "", startPos, startCol, startLine)
			l.errorf(tok, "Unterminated regular expression literal")
			return tok
		}
		c := l.advance()
		if c == '\\' {
			l.advance()
			continue
		}
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			break
		}
	}
	for isIdentContinue(l.peek()) {
		l.advance()
	}
	return l.makeToken(token.Regex, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}

func (l *Lexer) question(sPos, sCol, sLine int) token.Token {
	if l.match('?') {
		return l.matchThen('=', token.NullishEq, token.Nullish, sPos, sCol, sLine)
	}
	// "a?.5:b" is a conditional, not optional chaining
	if l.peek() == '.' && !isDecimal(l.peekNext()) {
		l.advance()
		return l.makeToken(token.QuestionDot, "", sPos, sCol, sLine)
	}
	return l.makeToken(token.Question, "", sPos, sCol, sLine)
}

func (l *Lexer) plus(sPos, sCol, sLine int) token.Token {
	if l.match('+') {
		return l.makeToken(token.Inc, "", sPos, sCol, sLine)
	}
	return l.matchThen('=', token.PlusEq, token.Plus, sPos, sCol, sLine)
}

func (l *Lexer) minus(sPos, sCol, sLine int) token.Token {
	if l.match('-') {
		return l.makeToken(token.Dec, "", sPos, sCol, sLine)
	}
	return l.matchThen('=', token.MinusEq, token.Minus, sPos, sCol, sLine)
}

func (l *Lexer) star(sPos, sCol, sLine int) token.Token {
	if l.match('*') {
		return l.matchThen('=', token.PowEq, token.Pow, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.StarEq, token.Star, sPos, sCol, sLine)
}

func (l *Lexer) ampersand(sPos, sCol, sLine int) token.Token {
	if l.match('&') {
		return l.matchThen('=', token.AndAndEq, token.AndAnd, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.AndEq, token.And, sPos, sCol, sLine)
}

func (l *Lexer) pipe(sPos, sCol, sLine int) token.Token {
	if l.match('|') {
		return l.matchThen('=', token.OrOrEq, token.OrOr, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.OrEq, token.Or, sPos, sCol, sLine)
}

func (l *Lexer) less(sPos, sCol, sLine int) token.Token {
	if l.match('<') {
		return l.matchThen('=', token.ShlEq, token.Shl, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.Lte, token.Lt, sPos, sCol, sLine)
}

func (l *Lexer) greater(sPos, sCol, sLine int) token.Token {
	if l.match('>') {
		if l.match('>') {
			return l.matchThen('=', token.UShrEq, token.UShr, sPos, sCol, sLine)
		}
		return l.matchThen('=', token.ShrEq, token.Shr, sPos, sCol, sLine)
	}
	return l.matchThen('=', token.Gte, token.Gt, sPos, sCol, sLine)
}

func (l *Lexer) equal(sPos, sCol, sLine int) token.Token {
	switch {
	case l.match('>'):
		return l.makeToken(token.Arrow, "", sPos, sCol, sLine)
	case l.match('='):
		return l.matchThen('=', token.EqEqEq, token.EqEq, sPos, sCol, sLine)
	}
	return l.makeToken(token.Eq, "", sPos, sCol, sLine)
}
