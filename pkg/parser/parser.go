package parser

import (
	"fmt"

	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/lexer"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	noIn     bool
	inGen    bool // inside a generator body, where yield is an operator
}

type bailout struct{ err *util.SourceError }

// NewParser creates and initializes a new Parser from a token stream that ends
// with an EOF token
func NewParser(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0]}
}

// ParseFile lexes and parses one source file.
func ParseFile(name string, source []rune, fileIndex int) (*ast.File, error) {
	tokens, comments, err := lexer.Tokenize(source, fileIndex)
	if err != nil {
		return nil, err
	}
	root, err := NewParser(tokens).Parse()
	if err != nil {
		return nil, err
	}
	return &ast.File{Name: name, Root: root, Comments: comments}, nil
}

// Parse parses a whole program. The first syntax error aborts parsing and is
// returned as a *util.SourceError.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.err
		}
	}()

	tok := p.current
	var stmts []*ast.Node
	for !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	return ast.NewProgram(tok, stmts), nil
}

// Parser helpers
func (p *Parser) errorf(tok token.Token, format string, args ...interface{}) {
	panic(bailout{util.NewSourceError(tok, format, args...)})
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) peek() token.Token { return p.peekAt(1) }

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) checkIdent(name string) bool {
	return p.current.Type == token.Ident && p.current.Value == name
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.errorf(p.current, "%s", message)
	return token.Token{}
}

// newlineBefore reports whether a line break separates the previous token from
// the current one.
func (p *Parser) newlineBefore() bool {
	return p.current.Line > p.previous.Line+lineSpan(p.previous)
}

// lineSpan counts the line breaks inside a template token.
func lineSpan(tok token.Token) int {
	if tok.Type != token.Template {
		return 0
	}
	n := 0
	for _, r := range tok.Value {
		if r == '\n' {
			n++
		}
	}
	return n
}

// consumeSemi applies automatic semicolon insertion.
func (p *Parser) consumeSemi() {
	if p.match(token.Semi) || p.check(token.RBrace) || p.check(token.EOF) || p.newlineBefore() {
		return
	}
	p.errorf(p.current, "Expected ';' but found '%s'", describe(p.current))
}

func describe(tok token.Token) string {
	if tok.Value != "" && (tok.Type == token.Ident || tok.Type == token.Number) {
		return tok.Value
	}
	return tok.Type.String()
}

// finish anchors n at start and stretches its length to the last consumed token
// when the construct sits on a single line.
func (p *Parser) finish(n *ast.Node, start token.Token) *ast.Node {
	tok := start
	if p.previous.Line == start.Line && p.previous.Column >= start.Column {
		tok.Len = p.previous.Column + p.previous.Len - start.Column
	}
	n.Tok = tok
	return n
}

// identName accepts an identifier or any keyword used as a property name.
func (p *Parser) identName() (string, bool) {
	if p.check(token.Ident) {
		return p.current.Value, true
	}
	if kw, ok := token.TypeStrings[p.current.Type]; ok {
		return kw, true
	}
	return "", false
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type, noIn bool) int {
	switch op {
	case token.Nullish:
		return 1
	case token.OrOr:
		return 2
	case token.AndAnd:
		return 3
	case token.Or:
		return 4
	case token.Xor:
		return 5
	case token.And:
		return 6
	case token.EqEq, token.Neq, token.EqEqEq, token.NeqEq:
		return 7
	case token.Lt, token.Gt, token.Lte, token.Gte, token.Instanceof:
		return 8
	case token.In:
		if noIn {
			return -1
		}
		return 8
	case token.Shl, token.Shr, token.UShr:
		return 9
	case token.Plus, token.Minus:
		return 10
	case token.Star, token.Slash, token.Rem:
		return 11
	case token.Pow:
		return 12
	default:
		return -1
	}
}

func (p *Parser) parseExpr() *ast.Node {
	start := p.current
	expr := p.parseAssignmentExpr()
	if !p.check(token.Comma) {
		return expr
	}
	exprs := []*ast.Node{expr}
	for p.match(token.Comma) {
		exprs = append(exprs, p.parseAssignmentExpr())
	}
	return p.finish(ast.NewSequence(start, exprs), start)
}

func (p *Parser) parseAssignmentExpr() *ast.Node {
	if p.inGen && p.checkIdent("yield") {
		return p.parseYield()
	}
	if arrow := p.tryArrowFunc(); arrow != nil {
		return arrow
	}
	start := p.current
	left := p.parseTernaryExpr()
	if p.current.Type.IsAssignment() {
		op := p.current.Type
		if !isAssignable(left) {
			p.errorf(p.current, "Invalid left-hand side in assignment")
		}
		p.advance()
		right := p.parseAssignmentExpr()
		return p.finish(ast.NewAssign(start, op, left, right), start)
	}
	return left
}

func (p *Parser) parseYield() *ast.Node {
	start := p.current
	p.advance()
	var expr *ast.Node
	delegate := false
	if !p.newlineBefore() {
		delegate = p.match(token.Star)
		if delegate || !endsYield(p.current) {
			expr = p.parseAssignmentExpr()
		}
	}
	return p.finish(ast.NewYield(start, expr, delegate), start)
}

// endsYield reports whether tok ends a yield that has no operand.
func endsYield(tok token.Token) bool {
	switch tok.Type {
	case token.RParen, token.RBracket, token.RBrace, token.Comma, token.Semi, token.Colon, token.EOF:
		return true
	}
	return false
}

func isAssignable(node *ast.Node) bool {
	switch ast.Unparen(node).Type {
	case ast.Ident, ast.Member, ast.Array, ast.Object:
		return true
	}
	return false
}

func (p *Parser) parseTernaryExpr() *ast.Node {
	start := p.current
	cond := p.parseBinaryExpr(1)
	if !p.match(token.Question) {
		return cond
	}
	saved := p.noIn
	p.noIn = false
	then := p.parseAssignmentExpr()
	p.noIn = saved
	p.expect(token.Colon, "Expected ':' in conditional expression")
	els := p.parseAssignmentExpr()
	return p.finish(ast.NewTernary(start, cond, then, els), start)
}

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	start := p.current
	left := p.parseUnaryExpr()
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op, p.noIn)
		if prec < minPrec {
			return left
		}
		p.advance()
		nextMin := prec + 1
		if op == token.Pow {
			nextMin = prec
		}
		right := p.parseBinaryExpr(nextMin)
		left = p.finish(ast.NewBinary(start, op, left, right), start)
	}
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	start := p.current
	switch p.current.Type {
	case token.Not, token.Complement, token.Plus, token.Minus, token.Typeof, token.Void, token.Delete:
		op := p.current.Type
		p.advance()
		expr := p.parseUnaryExpr()
		return p.finish(ast.NewUnary(start, op, expr), start)
	case token.Inc, token.Dec:
		op := p.current.Type
		p.advance()
		expr := p.parseUnaryExpr()
		return p.finish(ast.NewUpdate(start, op, true, expr), start)
	case token.Ident:
		if p.current.Value == "await" && startsExpr(p.peek()) && p.peek().Line == p.current.Line {
			p.advance()
			expr := p.parseUnaryExpr()
			return p.finish(ast.NewAwait(start, expr), start)
		}
	}
	return p.parsePostfixExpr()
}

func startsExpr(tok token.Token) bool {
	switch tok.Type {
	case token.Ident, token.Number, token.BigInt, token.String, token.Template, token.Regex,
		token.LParen, token.LBracket, token.LBrace, token.Function, token.New, token.This,
		token.True, token.False, token.Null, token.Class, token.Not, token.Typeof:
		return true
	}
	return false
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	start := p.current
	expr := p.parseCallExpr()
	if (p.check(token.Inc) || p.check(token.Dec)) && !p.newlineBefore() {
		op := p.current.Type
		p.advance()
		return p.finish(ast.NewUpdate(start, op, false, expr), start)
	}
	return expr
}

func (p *Parser) parseArgs() []*ast.Node {
	var args []*ast.Node
	saved := p.noIn
	p.noIn = false
	for !p.check(token.RParen) {
		if p.check(token.Dots) {
			tok := p.current
			p.advance()
			args = append(args, p.finish(ast.NewSpread(tok, p.parseAssignmentExpr()), tok))
		} else {
			args = append(args, p.parseAssignmentExpr())
		}
		if !p.match(token.Comma) {
			break
		}
	}
	p.noIn = saved
	p.expect(token.RParen, "Expected ')' after arguments")
	return args
}

func (p *Parser) parseCallExpr() *ast.Node {
	start := p.current
	var expr *ast.Node
	if p.check(token.New) {
		expr = p.parseNewExpr()
	} else {
		expr = p.parsePrimaryExpr()
	}
	return p.parseCallTail(expr, start, true)
}

func (p *Parser) parseNewExpr() *ast.Node {
	start := p.current
	p.advance()
	if p.check(token.Dot) {
		// new.target
		p.advance()
		prop := p.parsePropertyName()
		return p.finish(ast.NewMember(start, ast.NewIdent(start, "new"), prop, false, false), start)
	}
	var callee *ast.Node
	calleeStart := p.current
	if p.check(token.New) {
		callee = p.parseNewExpr()
	} else {
		callee = p.parsePrimaryExpr()
	}
	callee = p.parseCallTail(callee, calleeStart, false)
	var args []*ast.Node
	if p.match(token.LParen) {
		args = p.parseArgs()
	}
	return p.finish(ast.NewNew(start, callee, args), start)
}

func (p *Parser) parsePropertyName() *ast.Node {
	tok := p.current
	name, ok := p.identName()
	if !ok {
		p.errorf(p.current, "Expected property name after '.'")
	}
	p.advance()
	return p.finish(ast.NewIdent(tok, name), tok)
}

func (p *Parser) parseCallTail(expr *ast.Node, start token.Token, allowCall bool) *ast.Node {
	for {
		switch {
		case p.match(token.Dot):
			prop := p.parsePropertyName()
			expr = p.finish(ast.NewMember(start, expr, prop, false, false), start)
		case p.check(token.QuestionDot):
			if !allowCall {
				p.errorf(p.current, "Invalid optional chain in 'new' expression")
			}
			p.advance()
			switch {
			case p.match(token.LParen):
				args := p.parseArgs()
				expr = p.finish(ast.NewCall(start, expr, args, true), start)
			case p.match(token.LBracket):
				prop := p.parseExpr()
				p.expect(token.RBracket, "Expected ']' after computed member")
				expr = p.finish(ast.NewMember(start, expr, prop, true, true), start)
			default:
				prop := p.parsePropertyName()
				expr = p.finish(ast.NewMember(start, expr, prop, false, true), start)
			}
		case p.match(token.LBracket):
			saved := p.noIn
			p.noIn = false
			prop := p.parseExpr()
			p.noIn = saved
			p.expect(token.RBracket, "Expected ']' after computed member")
			expr = p.finish(ast.NewMember(start, expr, prop, true, false), start)
		case allowCall && p.match(token.LParen):
			args := p.parseArgs()
			expr = p.finish(ast.NewCall(start, expr, args, false), start)
		case p.check(token.Template):
			tpl := p.parsePrimaryExpr()
			expr = p.finish(ast.NewOther(start, "tagged_template", []*ast.Node{expr, tpl}), start)
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch tok.Type {
	case token.Number:
		p.advance()
		return ast.NewNumber(tok, tok.Value)
	case token.BigInt:
		p.advance()
		return ast.NewBigInt(tok, tok.Value)
	case token.String:
		p.advance()
		return ast.NewString(tok, tok.Value)
	case token.Template:
		p.advance()
		return ast.NewTemplate(tok, tok.Value, nil)
	case token.Regex:
		p.advance()
		return ast.NewRegex(tok, tok.Value)
	case token.True, token.False:
		p.advance()
		return ast.NewBoolean(tok, tok.Type == token.True)
	case token.Null:
		p.advance()
		return ast.NewNull(tok)
	case token.This:
		p.advance()
		return ast.NewThis(tok)
	case token.Function:
		return p.parseFunction(ast.FuncExpr, false)
	case token.Class:
		return p.parseClass(ast.ClassExpr)
	case token.Ident:
		if tok.Value == "async" && p.peek().Type == token.Function && p.peek().Line == tok.Line {
			p.advance()
			return p.parseFunction(ast.FuncExpr, true)
		}
		p.advance()
		return p.finish(ast.NewIdent(tok, tok.Value), tok)
	case token.LParen:
		p.advance()
		saved := p.noIn
		p.noIn = false
		expr := p.parseExpr()
		p.noIn = saved
		p.expect(token.RParen, "Expected ')' after expression")
		return p.finish(ast.NewParen(tok, expr), tok)
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.LBrace:
		return p.parseObjectLiteral()
	}
	p.errorf(tok, "Expected an expression but found '%s'", describe(tok))
	return nil
}

func (p *Parser) parseArrayLiteral() *ast.Node {
	start := p.expect(token.LBracket, "Expected '['")
	saved := p.noIn
	p.noIn = false
	var elems []*ast.Node
	for !p.check(token.RBracket) {
		if p.match(token.Comma) {
			elems = append(elems, nil)
			continue
		}
		if p.check(token.Dots) {
			tok := p.current
			p.advance()
			elems = append(elems, p.finish(ast.NewSpread(tok, p.parseAssignmentExpr()), tok))
		} else {
			elems = append(elems, p.parseAssignmentExpr())
		}
		if !p.match(token.Comma) {
			break
		}
	}
	p.noIn = saved
	p.expect(token.RBracket, "Expected ']' after array elements")
	return p.finish(ast.NewArray(start, elems), start)
}

func (p *Parser) parsePropertyKey() (key *ast.Node, computed bool) {
	tok := p.current
	switch tok.Type {
	case token.String:
		p.advance()
		return ast.NewString(tok, tok.Value), false
	case token.Number:
		p.advance()
		return ast.NewNumber(tok, tok.Value), false
	case token.LBracket:
		p.advance()
		key = p.parseAssignmentExpr()
		p.expect(token.RBracket, "Expected ']' after computed property key")
		return key, true
	}
	name, ok := p.identName()
	if !ok {
		p.errorf(tok, "Expected property name but found '%s'", describe(tok))
	}
	p.advance()
	return p.finish(ast.NewIdent(tok, name), tok), false
}

// isMethodModifier reports whether the current get/set/async/static identifier
// modifies the property that follows rather than being its name.
func (p *Parser) isMethodModifier() bool {
	if p.current.Type != token.Ident {
		return false
	}
	switch p.current.Value {
	case "get", "set", "async", "static":
	default:
		return false
	}
	switch p.peek().Type {
	case token.Colon, token.LParen, token.Comma, token.RBrace, token.Eq, token.Semi:
		return false
	}
	return true
}

func (p *Parser) parseMethod(start token.Token, isAsync, isGen bool) *ast.Node {
	params := p.parseParams()
	body := p.parseGeneratorBody(isGen)
	return p.finish(ast.NewFunc(start, ast.FuncExpr, nil, params, body, isAsync), start)
}

func (p *Parser) parseObjectLiteral() *ast.Node {
	start := p.expect(token.LBrace, "Expected '{'")
	saved := p.noIn
	p.noIn = false
	var props []*ast.Node
	for !p.check(token.RBrace) {
		props = append(props, p.parseObjectMember())
		if !p.match(token.Comma) {
			break
		}
	}
	p.noIn = saved
	p.expect(token.RBrace, "Expected '}' after object literal")
	return p.finish(ast.NewObject(start, props), start)
}

func (p *Parser) parseObjectMember() *ast.Node {
	start := p.current
	if p.match(token.Dots) {
		return p.finish(ast.NewSpread(start, p.parseAssignmentExpr()), start)
	}
	isAsync := false
	for p.isMethodModifier() {
		isAsync = isAsync || p.current.Value == "async"
		p.advance()
	}
	isGen := p.match(token.Star)
	key, computed := p.parsePropertyKey()
	switch {
	case p.match(token.Colon):
		value := p.parseAssignmentExpr()
		return p.finish(ast.NewProperty(start, key, value, computed, false), start)
	case p.check(token.LParen):
		method := p.parseMethod(p.current, isAsync, isGen)
		return p.finish(ast.NewProperty(start, key, method, computed, false), start)
	case key.Type == ast.Ident && !computed && p.check(token.Eq):
		// shorthand with a default, only valid as a destructuring target
		p.advance()
		def := p.parseAssignmentExpr()
		target := ast.NewIdent(key.Tok, key.Data.(ast.IdentNode).Name)
		value := p.finish(ast.NewAssignPattern(key.Tok, target, def), key.Tok)
		return p.finish(ast.NewProperty(start, key, value, false, true), start)
	case key.Type == ast.Ident && !computed:
		value := ast.NewIdent(key.Tok, key.Data.(ast.IdentNode).Name)
		return p.finish(ast.NewProperty(start, key, value, false, true), start)
	}
	p.errorf(p.current, "Expected ':' after property name")
	return nil
}

// Functions

// tryArrowFunc parses an arrow function if one starts at the current token.
func (p *Parser) tryArrowFunc() *ast.Node {
	start := p.current
	isAsync := false
	offset := 0
	if p.checkIdent("async") && p.peek().Line == p.current.Line &&
		(p.peek().Type == token.LParen || p.peek().Type == token.Ident) {
		isAsync = true
		offset = 1
	}

	first := p.peekAt(offset)
	switch first.Type {
	case token.Ident:
		if p.peekAt(offset+1).Type != token.Arrow {
			return nil
		}
		if isAsync {
			p.advance()
		}
		paramTok := p.current
		p.advance()
		param := p.finish(ast.NewIdent(paramTok, paramTok.Value), paramTok)
		p.expect(token.Arrow, "Expected '=>'")
		return p.parseArrowBody(start, []*ast.Node{param}, isAsync)
	case token.LParen:
		closing := p.matchingParen(p.pos + offset)
		if closing < 0 || p.tokens[closing+1].Type != token.Arrow {
			return nil
		}
		if isAsync {
			p.advance()
		}
		params := p.parseParams()
		if p.newlineBefore() {
			p.errorf(p.current, "Line break before '=>' is not allowed")
		}
		p.expect(token.Arrow, "Expected '=>'")
		return p.parseArrowBody(start, params, isAsync)
	}
	return nil
}

// matchingParen returns the index of the ')' closing the '(' at index open,
// or -1.
func (p *Parser) matchingParen(open int) int {
	depth := 0
	for i := open; i < len(p.tokens)-1; i++ {
		switch p.tokens[i].Type {
		case token.LParen, token.LBracket, token.LBrace:
			depth++
		case token.RParen, token.RBracket, token.RBrace:
			depth--
			if depth == 0 {
				if p.tokens[i].Type != token.RParen {
					return -1
				}
				return i
			}
		case token.EOF:
			return -1
		}
	}
	return -1
}

func (p *Parser) parseArrowBody(start token.Token, params []*ast.Node, isAsync bool) *ast.Node {
	saved := p.inGen
	p.inGen = false
	var body *ast.Node
	if p.check(token.LBrace) {
		body = p.parseFunctionBody()
	} else {
		body = p.parseAssignmentExpr()
	}
	p.inGen = saved
	return p.finish(ast.NewFunc(start, ast.ArrowFunc, nil, params, body, isAsync), start)
}

func (p *Parser) parseFunction(nodeType ast.NodeType, isAsync bool) *ast.Node {
	start := p.current
	if isAsync {
		start = p.previous
	}
	p.expect(token.Function, "Expected 'function'")
	isGen := p.match(token.Star)
	var name *ast.Node
	if p.check(token.Ident) {
		tok := p.current
		p.advance()
		name = p.finish(ast.NewIdent(tok, tok.Value), tok)
	} else if nodeType == ast.FuncDecl {
		p.errorf(p.current, "Expected function name")
	}
	params := p.parseParams()
	body := p.parseGeneratorBody(isGen)
	return p.finish(ast.NewFunc(start, nodeType, name, params, body, isAsync), start)
}

func (p *Parser) parseParams() []*ast.Node {
	p.expect(token.LParen, "Expected '(' before parameters")
	saved := p.noIn
	p.noIn = false
	var params []*ast.Node
	for !p.check(token.RParen) {
		params = append(params, p.parseBindingElement())
		if !p.match(token.Comma) {
			break
		}
	}
	p.noIn = saved
	p.expect(token.RParen, "Expected ')' after parameters")
	return params
}

// parseBindingElement parses a parameter: a target with an optional default,
// or a rest element.
func (p *Parser) parseBindingElement() *ast.Node {
	start := p.current
	if p.match(token.Dots) {
		return p.finish(ast.NewSpread(start, p.parseBindingTarget()), start)
	}
	target := p.parseBindingTarget()
	if p.match(token.Eq) {
		def := p.parseAssignmentExpr()
		return p.finish(ast.NewAssignPattern(start, target, def), start)
	}
	return target
}

func (p *Parser) parseBindingTarget() *ast.Node {
	tok := p.current
	switch tok.Type {
	case token.Ident:
		p.advance()
		return p.finish(ast.NewIdent(tok, tok.Value), tok)
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.LBrace:
		return p.parseObjectLiteral()
	}
	p.errorf(tok, "Expected binding name but found '%s'", describe(tok))
	return nil
}

func (p *Parser) parseFunctionBody() *ast.Node {
	saved := p.noIn
	p.noIn = false
	body := p.parseBlockStmt()
	p.noIn = saved
	return body
}

func (p *Parser) parseGeneratorBody(isGen bool) *ast.Node {
	saved := p.inGen
	p.inGen = isGen
	body := p.parseFunctionBody()
	p.inGen = saved
	return body
}

func (p *Parser) parseClass(nodeType ast.NodeType) *ast.Node {
	start := p.expect(token.Class, "Expected 'class'")
	var name, super *ast.Node
	if p.check(token.Ident) {
		tok := p.current
		p.advance()
		name = p.finish(ast.NewIdent(tok, tok.Value), tok)
	} else if nodeType == ast.ClassDecl {
		p.errorf(p.current, "Expected class name")
	}
	if p.match(token.Extends) {
		superStart := p.current
		super = p.parseCallTail(p.parsePrimaryExpr(), superStart, true)
	}
	p.expect(token.LBrace, "Expected '{' before class body")
	var members []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.match(token.Semi) {
			continue
		}
		members = append(members, p.parseClassMember())
	}
	p.expect(token.RBrace, "Expected '}' after class body")
	return p.finish(ast.NewClass(start, nodeType, name, super, members), start)
}

func (p *Parser) parseClassMember() *ast.Node {
	start := p.current
	isAsync := false
	for p.isMethodModifier() {
		isAsync = isAsync || p.current.Value == "async"
		p.advance()
	}
	isGen := p.match(token.Star)
	key, computed := p.parsePropertyKey()
	if p.check(token.LParen) {
		method := p.parseMethod(p.current, isAsync, isGen)
		return p.finish(ast.NewProperty(start, key, method, computed, false), start)
	}
	// class field
	var value *ast.Node
	if p.match(token.Eq) {
		value = p.parseAssignmentExpr()
	}
	p.consumeSemi()
	return p.finish(ast.NewProperty(start, key, value, computed, false), start)
}

// Statement Parsing
func (p *Parser) parseBlockStmt() *ast.Node {
	start := p.expect(token.LBrace, "Expected '{'")
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "Expected '}' after block")
	return p.finish(ast.NewBlock(start, stmts), start)
}

func (p *Parser) parseVarDecl() *ast.Node {
	start := p.current
	kind := p.current.Type
	p.advance()
	var decls []*ast.Node
	for {
		declStart := p.current
		target := p.parseBindingTarget()
		var init *ast.Node
		if p.match(token.Eq) {
			init = p.parseAssignmentExpr()
		}
		decls = append(decls, p.finish(ast.NewDeclarator(declStart, target, init), declStart))
		if !p.match(token.Comma) {
			break
		}
	}
	return p.finish(ast.NewVarDecl(start, kind, decls), start)
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch tok.Type {
	case token.LBrace:
		return p.parseBlockStmt()
	case token.Semi:
		p.advance()
		return ast.NewEmpty(tok)
	case token.Var, token.Let, token.Const:
		decl := p.parseVarDecl()
		p.consumeSemi()
		return decl
	case token.Function:
		return p.parseFunction(ast.FuncDecl, false)
	case token.Class:
		return p.parseClass(ast.ClassDecl)
	case token.If:
		return p.parseIf()
	case token.While:
		p.advance()
		cond := p.parseCondition()
		body := p.parseStmt()
		return p.finish(ast.NewWhile(tok, cond, body), tok)
	case token.Do:
		p.advance()
		body := p.parseStmt()
		p.expect(token.While, "Expected 'while' after 'do' body")
		cond := p.parseCondition()
		p.match(token.Semi)
		return p.finish(ast.NewDoWhile(tok, body, cond), tok)
	case token.For:
		return p.parseFor()
	case token.Return:
		p.advance()
		var expr *ast.Node
		if !p.check(token.Semi) && !p.check(token.RBrace) && !p.check(token.EOF) && !p.newlineBefore() {
			expr = p.parseExpr()
		}
		p.consumeSemi()
		return p.finish(ast.NewReturn(tok, expr), tok)
	case token.Break, token.Continue:
		p.advance()
		label := ""
		if p.check(token.Ident) && !p.newlineBefore() {
			label = p.current.Value
			p.advance()
		}
		p.consumeSemi()
		if tok.Type == token.Break {
			return p.finish(ast.NewBreak(tok, label), tok)
		}
		return p.finish(ast.NewContinue(tok, label), tok)
	case token.Throw:
		p.advance()
		if p.newlineBefore() {
			p.errorf(p.current, "Illegal newline after 'throw'")
		}
		expr := p.parseExpr()
		p.consumeSemi()
		return p.finish(ast.NewThrow(tok, expr), tok)
	case token.Try:
		return p.parseTry()
	case token.Switch:
		return p.parseSwitch()
	case token.Ident:
		if tok.Value == "async" && p.peek().Type == token.Function && p.peek().Line == tok.Line {
			p.advance()
			return p.parseFunction(ast.FuncDecl, true)
		}
		// import(...) and import.meta are expressions
		if tok.Value == "import" && p.peek().Type != token.LParen && p.peek().Type != token.Dot {
			return p.parseImport()
		}
		if tok.Value == "export" {
			return p.parseExport()
		}
		if p.peek().Type == token.Colon {
			p.advance()
			p.advance()
			label := p.finish(ast.NewIdent(tok, tok.Value), tok)
			stmt := p.parseStmt()
			return p.finish(ast.NewOther(tok, "labeled_statement", []*ast.Node{label, stmt}), tok)
		}
	}

	expr := p.parseExpr()
	p.consumeSemi()
	return p.finish(ast.NewExprStmt(tok, expr), tok)
}

func (p *Parser) parseCondition() *ast.Node {
	p.expect(token.LParen, "Expected '(' before condition")
	cond := p.parseExpr()
	p.expect(token.RParen, "Expected ')' after condition")
	return cond
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.expect(token.If, "Expected 'if'")
	cond := p.parseCondition()
	then := p.parseStmt()
	var els *ast.Node
	if p.match(token.Else) {
		els = p.parseStmt()
	}
	return p.finish(ast.NewIf(tok, cond, then, els), tok)
}

func (p *Parser) parseFor() *ast.Node {
	tok := p.expect(token.For, "Expected 'for'")
	if p.checkIdent("await") {
		p.advance()
	}
	p.expect(token.LParen, "Expected '(' after 'for'")

	var init *ast.Node
	if !p.check(token.Semi) {
		p.noIn = true
		if p.check(token.Var) || p.check(token.Let) || p.check(token.Const) {
			init = p.parseVarDecl()
		} else {
			initTok := p.current
			init = p.finish(ast.NewExprStmt(initTok, p.parseExpr()), initTok)
		}
		p.noIn = false

		if p.check(token.In) || p.checkIdent("of") {
			of := p.check(token.Ident)
			p.advance()
			left := init
			if left.Type == ast.ExprStmt {
				left = left.Data.(ast.ExprStmtNode).Expr
			}
			var right *ast.Node
			if of {
				right = p.parseAssignmentExpr()
			} else {
				right = p.parseExpr()
			}
			p.expect(token.RParen, "Expected ')' after for-in/of head")
			body := p.parseStmt()
			return p.finish(ast.NewForIn(tok, left, right, body, of), tok)
		}
	}
	p.expect(token.Semi, "Expected ';' after for-loop initializer")

	var cond, update *ast.Node
	if !p.check(token.Semi) {
		cond = p.parseExpr()
	}
	p.expect(token.Semi, "Expected ';' after for-loop condition")
	if !p.check(token.RParen) {
		updTok := p.current
		update = p.finish(ast.NewExprStmt(updTok, p.parseExpr()), updTok)
	}
	p.expect(token.RParen, "Expected ')' after for-loop clauses")
	body := p.parseStmt()
	return p.finish(ast.NewFor(tok, init, cond, update, body), tok)
}

func (p *Parser) parseTry() *ast.Node {
	tok := p.expect(token.Try, "Expected 'try'")
	block := p.parseBlockStmt()
	var handler, finalizer *ast.Node
	if p.check(token.Catch) {
		catchTok := p.current
		p.advance()
		var param *ast.Node
		if p.match(token.LParen) {
			param = p.parseBindingTarget()
			p.expect(token.RParen, "Expected ')' after catch parameter")
		}
		body := p.parseBlockStmt()
		handler = p.finish(ast.NewCatch(catchTok, param, body), catchTok)
	}
	if p.match(token.Finally) {
		finalizer = p.parseBlockStmt()
	}
	if handler == nil && finalizer == nil {
		p.errorf(p.current, "Missing catch or finally after try")
	}
	return p.finish(ast.NewTry(tok, block, handler, finalizer), tok)
}

func (p *Parser) parseSwitch() *ast.Node {
	tok := p.expect(token.Switch, "Expected 'switch'")
	disc := p.parseCondition()
	p.expect(token.LBrace, "Expected '{' before switch body")
	var cases []*ast.Node
	seenDefault := false
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		caseTok := p.current
		var test *ast.Node
		switch {
		case p.match(token.Case):
			test = p.parseExpr()
		case p.match(token.Default):
			if seenDefault {
				p.errorf(caseTok, "More than one default clause in switch statement")
			}
			seenDefault = true
		default:
			p.errorf(p.current, "Expected 'case' or 'default' but found '%s'", describe(p.current))
		}
		p.expect(token.Colon, "Expected ':' after case label")
		var body []*ast.Node
		for !p.check(token.Case) && !p.check(token.Default) && !p.check(token.RBrace) && !p.check(token.EOF) {
			body = append(body, p.parseStmt())
		}
		cases = append(cases, p.finish(ast.NewCase(caseTok, test, body), caseTok))
	}
	p.expect(token.RBrace, "Expected '}' after switch body")
	return p.finish(ast.NewSwitch(tok, disc, cases), tok)
}

// String renders the parser position for debugging.
func (p *Parser) String() string {
	return fmt.Sprintf("parser at %d:%d (%s)", p.current.Line, p.current.Column, describe(p.current))
}
