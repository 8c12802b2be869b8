package parser

import (
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/token"
)

// Module declarations

func (p *Parser) parseImport() *ast.Node {
	tok := p.current
	p.advance()
	var locals []*ast.Node
	if !p.check(token.String) {
		if p.check(token.Ident) {
			locals = append(locals, p.parseBindingIdent())
			p.match(token.Comma)
		}
		switch {
		case p.match(token.Star):
			p.expectContextual("as", "Expected 'as' after '*' in import")
			locals = append(locals, p.parseBindingIdent())
		case p.match(token.LBrace):
			for !p.check(token.RBrace) {
				local := p.parseModuleName()
				if p.checkIdent("as") {
					p.advance()
					local = p.parseBindingIdent()
				} else if local.Type != ast.Ident || p.previous.Type != token.Ident {
					p.errorf(p.current, "Expected 'as' after import name")
				}
				locals = append(locals, local)
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RBrace, "Expected '}' after import specifiers")
		}
		if len(locals) == 0 {
			p.errorf(p.current, "Expected import clause but found '%s'", describe(p.current))
		}
		p.expectContextual("from", "Expected 'from' after import clause")
	}
	source := p.parseModuleSource()
	p.consumeSemi()
	return p.finish(ast.NewImport(tok, locals, source), tok)
}

func (p *Parser) parseExport() *ast.Node {
	tok := p.current
	p.advance()
	switch {
	case p.match(token.Default):
		var decl *ast.Node
		switch {
		case p.check(token.Function):
			decl = p.parseDefaultFunction(false)
		case p.checkIdent("async") && p.peek().Type == token.Function && p.peek().Line == p.current.Line:
			p.advance()
			decl = p.parseDefaultFunction(true)
		case p.check(token.Class):
			nodeType := ast.ClassExpr
			if p.peek().Type == token.Ident {
				nodeType = ast.ClassDecl
			}
			decl = p.parseClass(nodeType)
		default:
			decl = p.parseAssignmentExpr()
			p.consumeSemi()
		}
		return p.finish(ast.NewExport(tok, decl, nil, nil, true), tok)
	case p.match(token.Star):
		var names []*ast.Node
		if p.checkIdent("as") {
			p.advance()
			names = append(names, p.parseModuleName())
		}
		p.expectContextual("from", "Expected 'from' after 'export *'")
		source := p.parseModuleSource()
		p.consumeSemi()
		return p.finish(ast.NewExport(tok, nil, names, source, false), tok)
	case p.match(token.LBrace):
		var names []*ast.Node
		for !p.check(token.RBrace) {
			names = append(names, p.parseModuleName())
			if p.checkIdent("as") {
				p.advance()
				p.parseModuleName()
			}
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBrace, "Expected '}' after export specifiers")
		var source *ast.Node
		if p.checkIdent("from") {
			p.advance()
			source = p.parseModuleSource()
		}
		p.consumeSemi()
		return p.finish(ast.NewExport(tok, nil, names, source, false), tok)
	}

	switch {
	case p.check(token.Var), p.check(token.Let), p.check(token.Const), p.check(token.Function), p.check(token.Class),
		p.checkIdent("async") && p.peek().Type == token.Function:
		decl := p.parseStmt()
		return p.finish(ast.NewExport(tok, decl, nil, nil, false), tok)
	}
	p.errorf(p.current, "Unexpected '%s' after 'export'", describe(p.current))
	return nil
}

// parseDefaultFunction parses the function of an "export default"; only a
// named one declares a binding.
func (p *Parser) parseDefaultFunction(isAsync bool) *ast.Node {
	next := p.peek()
	if next.Type == token.Star {
		next = p.peekAt(2)
	}
	if next.Type == token.Ident {
		return p.parseFunction(ast.FuncDecl, isAsync)
	}
	return p.parseFunction(ast.FuncExpr, isAsync)
}

func (p *Parser) parseBindingIdent() *ast.Node {
	tok := p.expect(token.Ident, "Expected binding name")
	return p.finish(ast.NewIdent(tok, tok.Value), tok)
}

// parseModuleName accepts the names an import or export clause may list:
// identifiers, keywords such as default, and string literals.
func (p *Parser) parseModuleName() *ast.Node {
	tok := p.current
	if tok.Type == token.String {
		p.advance()
		return ast.NewString(tok, tok.Value)
	}
	name, ok := p.identName()
	if !ok {
		p.errorf(tok, "Expected name but found '%s'", describe(tok))
	}
	p.advance()
	return p.finish(ast.NewIdent(tok, name), tok)
}

func (p *Parser) parseModuleSource() *ast.Node {
	tok := p.expect(token.String, "Expected module specifier string")
	return ast.NewString(tok, tok.Value)
}

func (p *Parser) expectContextual(word, message string) {
	if !p.checkIdent(word) {
		p.errorf(p.current, "%s", message)
	}
	p.advance()
}
