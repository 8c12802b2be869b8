// Package treesitter converts tree-sitter JavaScript syntax trees into the ast
// package's representation.
package treesitter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/token"
	"github.com/xplshn/typefighter/pkg/util"
)

var ErrInvalidContent = errors.New("invalid content")

// ParseFile parses source with the tree-sitter JavaScript grammar. A tree
// containing ERROR or MISSING nodes is reported as a *util.SourceError at the
// first such node.
func ParseFile(ctx context.Context, name string, source []byte, fileIndex int) (*ast.File, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidContent, name)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("tree-sitter returned nil root node")
	}

	c := newConverter(source, fileIndex)
	if root.HasError() {
		bad := firstError(root)
		if bad == nil {
			bad = root
		}
		what := "syntax error"
		if bad.IsMissing() {
			what = fmt.Sprintf("missing '%s'", bad.Type())
		} else if bad.ChildCount() > 0 {
			what = fmt.Sprintf("unexpected '%s'", firstLine(bad.Content(source)))
		}
		return nil, util.NewSourceError(c.tokenFor(bad), "%s", what)
	}

	file := &ast.File{Name: name, Root: c.convert(root)}
	file.Comments = c.comments(root)
	return file, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && (child.HasError() || child.IsMissing()) {
			if bad := firstError(child); bad != nil {
				return bad
			}
		}
	}
	return nil
}

type converter struct {
	source     []byte
	fileIndex  int
	lineStarts []int
}

func newConverter(source []byte, fileIndex int) *converter {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &converter{source: source, fileIndex: fileIndex, lineStarts: starts}
}

// tokenFor maps the byte-based position of n to the rune-based line and
// column used by every other front end.
func (c *converter) tokenFor(n *sitter.Node) token.Token {
	start, end := int(n.StartByte()), int(n.EndByte())
	row := int(n.StartPoint().Row)
	lineStart := 0
	if row < len(c.lineStarts) {
		lineStart = c.lineStarts[row]
	}
	tok := token.Token{
		FileIndex: c.fileIndex,
		Line:      row + 1,
		Column:    utf8.RuneCount(c.source[lineStart:start]) + 1,
	}
	if n.StartPoint().Row == n.EndPoint().Row {
		tok.Len = utf8.RuneCount(c.source[start:end])
	}
	return tok
}

func (c *converter) text(n *sitter.Node) string { return n.Content(c.source) }

func (c *converter) comments(root *sitter.Node) []token.Token {
	var out []token.Token
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "comment" {
			text := c.text(n)
			tok := c.tokenFor(n)
			if strings.HasPrefix(text, "//") {
				tok.Type, tok.Value = token.LineComment, strings.TrimPrefix(text, "//")
			} else {
				tok.Type = token.BlockComment
				tok.Value = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
			}
			out = append(out, tok)
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return out
}

// named returns the named children of n, skipping comments.
func (c *converter) named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "comment" {
			out = append(out, child)
		}
	}
	return out
}

func (c *converter) field(n *sitter.Node, name string) *ast.Node {
	child := n.ChildByFieldName(name)
	if child == nil {
		return nil
	}
	return c.convert(child)
}

func (c *converter) convertAll(nodes []*sitter.Node) []*ast.Node {
	out := make([]*ast.Node, 0, len(nodes))
	for _, n := range nodes {
		if conv := c.convert(n); conv != nil {
			out = append(out, conv)
		}
	}
	return out
}

func (c *converter) hasChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func (c *converter) op(n *sitter.Node) token.Type {
	opNode := n.ChildByFieldName("operator")
	if opNode == nil {
		return token.EOF
	}
	t, _ := token.Lookup(opNode.Type())
	return t
}

// single returns the converted first named child, the shape of wrapper nodes
// such as parenthesized_expression or else_clause.
func (c *converter) single(n *sitter.Node) *ast.Node {
	children := c.named(n)
	if len(children) == 0 {
		return nil
	}
	return c.convert(children[0])
}

func (c *converter) convert(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	tok := c.tokenFor(n)
	switch n.Type() {
	case "comment":
		return nil
	case "program":
		return ast.NewProgram(tok, c.convertAll(c.named(n)))
	case "statement_block", "class_static_block":
		return ast.NewBlock(tok, c.convertAll(c.named(n)))

	// Literals
	case "number":
		raw := c.text(n)
		if strings.HasSuffix(raw, "n") && !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
			return ast.NewBigInt(tok, raw)
		}
		return ast.NewNumber(tok, raw)
	case "string":
		raw := c.text(n)
		return ast.NewString(tok, raw[1:len(raw)-1])
	case "template_string":
		var exprs []*ast.Node
		for _, child := range c.named(n) {
			if child.Type() == "template_substitution" {
				exprs = append(exprs, c.single(child))
			}
		}
		raw := c.text(n)
		return ast.NewTemplate(tok, raw[1:len(raw)-1], exprs)
	case "regex":
		return ast.NewRegex(tok, c.text(n))
	case "true", "false":
		return ast.NewBoolean(tok, n.Type() == "true")
	case "null":
		return ast.NewNull(tok)
	case "this":
		return ast.NewThis(tok)

	// Names
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "statement_identifier", "undefined",
		"private_property_identifier":
		return ast.NewIdent(tok, c.text(n))

	// Expressions
	case "parenthesized_expression":
		return ast.NewParen(tok, c.single(n))
	case "array", "array_pattern":
		return ast.NewArray(tok, c.convertAll(c.named(n)))
	case "object", "object_pattern":
		var props []*ast.Node
		for _, child := range c.named(n) {
			switch child.Type() {
			case "shorthand_property_identifier", "shorthand_property_identifier_pattern":
				key := c.convert(child)
				value := ast.NewIdent(key.Tok, key.Data.(ast.IdentNode).Name)
				props = append(props, ast.NewProperty(key.Tok, key, value, false, true))
			default:
				if prop := c.convert(child); prop != nil {
					props = append(props, prop)
				}
			}
		}
		return ast.NewObject(tok, props)
	case "pair", "pair_pattern":
		key := n.ChildByFieldName("key")
		return ast.NewProperty(tok, c.convert(key), c.field(n, "value"), key != nil && key.Type() == "computed_property_name", false)
	case "computed_property_name":
		return c.single(n)
	case "object_assignment_pattern":
		left := c.field(n, "left")
		value := ast.NewAssignPattern(tok, left, c.field(n, "right"))
		return ast.NewProperty(tok, left, value, false, true)
	case "assignment_pattern":
		return ast.NewAssignPattern(tok, c.field(n, "left"), c.field(n, "right"))
	case "spread_element", "rest_pattern":
		return ast.NewSpread(tok, c.single(n))
	case "function", "function_expression", "generator_function":
		return ast.NewFunc(tok, ast.FuncExpr, c.field(n, "name"), c.params(n), c.field(n, "body"), c.hasChild(n, "async"))
	case "arrow_function":
		var params []*ast.Node
		if single := n.ChildByFieldName("parameter"); single != nil {
			params = []*ast.Node{c.convert(single)}
		} else {
			params = c.params(n)
		}
		return ast.NewFunc(tok, ast.ArrowFunc, nil, params, c.field(n, "body"), c.hasChild(n, "async"))
	case "method_definition":
		fn := ast.NewFunc(tok, ast.FuncExpr, nil, c.params(n), c.field(n, "body"), c.hasChild(n, "async"))
		key := n.ChildByFieldName("name")
		return ast.NewProperty(tok, c.convert(key), fn, key != nil && key.Type() == "computed_property_name", false)
	case "field_definition":
		key := n.ChildByFieldName("property")
		return ast.NewProperty(tok, c.convert(key), c.field(n, "value"), key != nil && key.Type() == "computed_property_name", false)
	case "call_expression":
		args := n.ChildByFieldName("arguments")
		callee := c.field(n, "function")
		if args != nil && args.Type() == "template_string" {
			return ast.NewOther(tok, "tagged_template", []*ast.Node{callee, c.convert(args)})
		}
		var argNodes []*ast.Node
		if args != nil {
			argNodes = c.convertAll(c.named(args))
		}
		return ast.NewCall(tok, callee, argNodes, c.hasChild(n, "optional_chain"))
	case "new_expression":
		var argNodes []*ast.Node
		if args := n.ChildByFieldName("arguments"); args != nil {
			argNodes = c.convertAll(c.named(args))
		}
		return ast.NewNew(tok, c.field(n, "constructor"), argNodes)
	case "member_expression":
		return ast.NewMember(tok, c.field(n, "object"), c.field(n, "property"), false, c.hasChild(n, "optional_chain"))
	case "subscript_expression":
		return ast.NewMember(tok, c.field(n, "object"), c.field(n, "index"), true, c.hasChild(n, "optional_chain"))
	case "unary_expression":
		return ast.NewUnary(tok, c.op(n), c.field(n, "argument"))
	case "update_expression":
		arg := n.ChildByFieldName("argument")
		prefix := arg != nil && n.StartByte() < arg.StartByte()
		return ast.NewUpdate(tok, c.op(n), prefix, c.convert(arg))
	case "await_expression":
		return ast.NewAwait(tok, c.single(n))
	case "yield_expression":
		return ast.NewYield(tok, c.single(n), c.hasChild(n, "*"))
	case "binary_expression":
		return ast.NewBinary(tok, c.op(n), c.field(n, "left"), c.field(n, "right"))
	case "assignment_expression":
		return ast.NewAssign(tok, token.Eq, c.field(n, "left"), c.field(n, "right"))
	case "augmented_assignment_expression":
		return ast.NewAssign(tok, c.op(n), c.field(n, "left"), c.field(n, "right"))
	case "ternary_expression":
		return ast.NewTernary(tok, c.field(n, "condition"), c.field(n, "consequence"), c.field(n, "alternative"))
	case "sequence_expression":
		var exprs []*ast.Node
		for _, e := range c.convertAll(c.named(n)) {
			// older grammars nest sequences to the right
			if e.Type == ast.Sequence {
				exprs = append(exprs, e.Data.(ast.SequenceNode).Exprs...)
			} else {
				exprs = append(exprs, e)
			}
		}
		return ast.NewSequence(tok, exprs)
	case "class", "class_declaration":
		nodeType := ast.ClassExpr
		if n.Type() == "class_declaration" {
			nodeType = ast.ClassDecl
		}
		var super *ast.Node
		for _, child := range c.named(n) {
			if child.Type() == "class_heritage" {
				super = c.single(child)
			}
		}
		var members []*ast.Node
		if body := n.ChildByFieldName("body"); body != nil {
			members = c.convertAll(c.named(body))
		}
		return ast.NewClass(tok, nodeType, c.field(n, "name"), super, members)

	// Statements
	case "expression_statement":
		return ast.NewExprStmt(tok, c.single(n))
	case "empty_statement":
		return ast.NewEmpty(tok)
	case "lexical_declaration", "variable_declaration":
		kind := token.Var
		if kindNode := n.ChildByFieldName("kind"); kindNode != nil {
			kind, _ = token.Lookup(kindNode.Type())
		} else if n.Type() == "lexical_declaration" && n.ChildCount() > 0 {
			kind, _ = token.Lookup(n.Child(0).Type())
		}
		return ast.NewVarDecl(tok, kind, c.convertAll(c.named(n)))
	case "variable_declarator":
		return ast.NewDeclarator(tok, c.field(n, "name"), c.field(n, "value"))
	case "function_declaration", "generator_function_declaration":
		return ast.NewFunc(tok, ast.FuncDecl, c.field(n, "name"), c.params(n), c.field(n, "body"), c.hasChild(n, "async"))
	case "if_statement":
		return ast.NewIf(tok, c.unwrapCondition(n), c.field(n, "consequence"), c.field(n, "alternative"))
	case "else_clause":
		return c.single(n)
	case "while_statement":
		return ast.NewWhile(tok, c.unwrapCondition(n), c.field(n, "body"))
	case "do_statement":
		return ast.NewDoWhile(tok, c.field(n, "body"), c.unwrapCondition(n))
	case "for_statement":
		return ast.NewFor(tok, c.forClause(n, "initializer"), c.forClause(n, "condition"), c.forClause(n, "increment"), c.field(n, "body"))
	case "for_in_statement":
		left := c.field(n, "left")
		if kindNode := n.ChildByFieldName("kind"); kindNode != nil {
			kind, _ := token.Lookup(kindNode.Type())
			left = ast.NewVarDecl(left.Tok, kind, []*ast.Node{ast.NewDeclarator(left.Tok, left, nil)})
		}
		of := false
		if opNode := n.ChildByFieldName("operator"); opNode != nil {
			of = opNode.Type() == "of"
		}
		return ast.NewForIn(tok, left, c.field(n, "right"), c.field(n, "body"), of)
	case "return_statement":
		return ast.NewReturn(tok, c.single(n))
	case "throw_statement":
		return ast.NewThrow(tok, c.single(n))
	case "break_statement", "continue_statement":
		label := ""
		if l := n.ChildByFieldName("label"); l != nil {
			label = c.text(l)
		}
		if n.Type() == "break_statement" {
			return ast.NewBreak(tok, label)
		}
		return ast.NewContinue(tok, label)
	case "try_statement":
		return ast.NewTry(tok, c.field(n, "body"), c.field(n, "handler"), c.field(n, "finalizer"))
	case "catch_clause":
		return ast.NewCatch(tok, c.field(n, "parameter"), c.field(n, "body"))
	case "finally_clause":
		return c.field(n, "body")
	case "switch_statement":
		var cases []*ast.Node
		if body := n.ChildByFieldName("body"); body != nil {
			cases = c.convertAll(c.named(body))
		}
		return ast.NewSwitch(tok, c.unwrapValue(n), cases)
	case "import_statement":
		var locals []*ast.Node
		for _, child := range c.named(n) {
			if child.Type() == "import_clause" {
				locals = c.importLocals(child)
			}
		}
		return ast.NewImport(tok, locals, c.field(n, "source"))
	case "export_statement":
		decl := c.field(n, "declaration")
		if decl == nil {
			decl = c.field(n, "value")
		}
		var names []*ast.Node
		for _, child := range c.named(n) {
			switch child.Type() {
			case "export_clause":
				for _, specifier := range c.named(child) {
					names = append(names, c.field(specifier, "name"))
				}
			case "namespace_export":
				names = append(names, c.single(child))
			}
		}
		return ast.NewExport(tok, decl, names, c.field(n, "source"), c.hasChild(n, "default"))
	case "switch_case", "switch_default":
		var test *ast.Node
		valueNode := n.ChildByFieldName("value")
		if valueNode != nil {
			test = c.convert(valueNode)
		}
		var body []*sitter.Node
		for _, child := range c.named(n) {
			if valueNode == nil || child.StartByte() != valueNode.StartByte() {
				body = append(body, child)
			}
		}
		return ast.NewCase(tok, test, c.convertAll(body))
	}

	return ast.NewOther(tok, n.Type(), c.convertAll(c.named(n)))
}

// importLocals returns the names an import clause binds: the default
// import, the namespace alias and the local name of every specifier.
func (c *converter) importLocals(clause *sitter.Node) []*ast.Node {
	var locals []*ast.Node
	for _, child := range c.named(clause) {
		switch child.Type() {
		case "identifier":
			locals = append(locals, c.convert(child))
		case "namespace_import":
			locals = append(locals, c.single(child))
		case "named_imports":
			for _, specifier := range c.named(child) {
				local := specifier.ChildByFieldName("alias")
				if local == nil {
					local = specifier.ChildByFieldName("name")
				}
				locals = append(locals, c.convert(local))
			}
		}
	}
	return locals
}

func (c *converter) params(n *sitter.Node) []*ast.Node {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	return c.convertAll(c.named(params))
}

// unwrapCondition strips the parentheses tree-sitter keeps around statement
// conditions.
func (c *converter) unwrapCondition(n *sitter.Node) *ast.Node {
	cond := c.field(n, "condition")
	if cond != nil && cond.Type == ast.Paren {
		return cond.Data.(ast.ParenNode).Expr
	}
	return cond
}

func (c *converter) unwrapValue(n *sitter.Node) *ast.Node {
	value := c.field(n, "value")
	if value != nil && value.Type == ast.Paren {
		return value.Data.(ast.ParenNode).Expr
	}
	return value
}

// forClause converts a for-loop clause; the grammar wraps conditions in
// expression statements and uses empty statements for absent clauses.
func (c *converter) forClause(n *sitter.Node, name string) *ast.Node {
	clause := n.ChildByFieldName(name)
	if clause == nil || clause.Type() == "empty_statement" {
		return nil
	}
	conv := c.convert(clause)
	if name == "condition" && conv.Type == ast.ExprStmt {
		return conv.Data.(ast.ExprStmtNode).Expr
	}
	return conv
}
