// Package scope builds the lexical scope graph of a syntax tree and resolves
// identifier references against it.
package scope

import (
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/token"
)

// ID addresses a scope inside its Graph.
type ID int

// None is the parent of the global scope.
const None ID = -1

type Kind int

const (
	Global Kind = iota
	Function
	Block
	Loop
	Catch
	Class
	Switch
)

var kindNames = [...]string{"global", "function", "block", "loop", "catch", "class", "switch"}

func (k Kind) String() string { return kindNames[k] }

// Binding is the first definition of a name in a scope. Init is nil for
// declarations without an initializer, parameters, function and class names,
// destructured names, loop variables, catch parameters and imports.
type Binding struct {
	Name string
	Decl *ast.Node
	Init *ast.Node
}

type Scope struct {
	ID       ID
	Kind     Kind
	Parent   ID
	Node     *ast.Node
	Bindings map[string]Binding
	Names    []string // definition order
}

// Graph is the scope tree of one file. It is read-only after Build.
type Graph struct {
	scopes  []*Scope
	byBlock map[*ast.Node]ID
}

// Build constructs the scope graph for the tree rooted at root. Scope 0 is the
// global scope.
func Build(root *ast.Node) *Graph {
	g := &Graph{byBlock: make(map[*ast.Node]ID)}
	global := g.open(Global, None, root)
	if root != nil {
		for _, child := range root.Children() {
			g.visit(child, global)
		}
	}
	return g
}

func (g *Graph) Len() int { return len(g.scopes) }

func (g *Graph) Scope(id ID) *Scope {
	if id < 0 || int(id) >= len(g.scopes) {
		return nil
	}
	return g.scopes[id]
}

func (g *Graph) open(kind Kind, parent ID, node *ast.Node) ID {
	id := ID(len(g.scopes))
	g.scopes = append(g.scopes, &Scope{
		ID: id, Kind: kind, Parent: parent, Node: node, Bindings: make(map[string]Binding),
	})
	if node != nil {
		g.byBlock[node] = id
	}
	return id
}

// bind records name in scope id unless it is already defined there.
func (g *Graph) bind(id ID, decl, init *ast.Node) {
	s := g.scopes[id]
	name := decl.Data.(ast.IdentNode).Name
	if _, exists := s.Bindings[name]; exists {
		return
	}
	s.Bindings[name] = Binding{Name: name, Decl: decl, Init: init}
	s.Names = append(s.Names, name)
}

func (g *Graph) bindPattern(id ID, pattern *ast.Node) {
	for _, ident := range PatternNames(pattern) {
		g.bind(id, ident, nil)
	}
}

// functionScope returns the nearest enclosing function or global scope.
func (g *Graph) functionScope(id ID) ID {
	for id != None {
		s := g.scopes[id]
		if s.Kind == Function || s.Kind == Global {
			return id
		}
		id = s.Parent
	}
	return 0
}

// PatternNames returns the identifiers a binding pattern declares, in source
// order.
func PatternNames(n *ast.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	switch d := n.Data.(type) {
	case ast.IdentNode:
		return []*ast.Node{n}
	case ast.ArrayNode:
		var out []*ast.Node
		for _, elem := range d.Elems {
			out = append(out, PatternNames(elem)...)
		}
		return out
	case ast.ObjectNode:
		var out []*ast.Node
		for _, prop := range d.Props {
			out = append(out, PatternNames(prop)...)
		}
		return out
	case ast.PropertyNode:
		return PatternNames(d.Value)
	case ast.SpreadNode:
		return PatternNames(d.Expr)
	case ast.AssignPatternNode:
		return PatternNames(d.Target)
	case ast.AssignNode:
		return PatternNames(d.Target)
	case ast.ParenNode:
		return PatternNames(d.Expr)
	}
	return nil
}

func (g *Graph) visitAll(nodes []*ast.Node, cur ID) {
	for _, n := range nodes {
		g.visit(n, cur)
	}
}

func isLexical(n *ast.Node) bool {
	if n == nil || n.Type != ast.VarDecl {
		return false
	}
	kind := n.Data.(ast.VarDeclNode).Kind
	return kind == token.Let || kind == token.Const
}

func (g *Graph) visit(n *ast.Node, cur ID) {
	if n == nil {
		return
	}
	switch d := n.Data.(type) {
	case ast.FuncNode:
		g.visitFunction(n, d, cur)
	case ast.ClassNode:
		if n.Type == ast.ClassDecl && d.Name != nil {
			g.bind(cur, d.Name, nil)
		}
		inner := g.open(Class, cur, n)
		if d.Name != nil {
			g.bind(inner, d.Name, nil)
		}
		g.visit(d.Super, inner)
		g.visitAll(d.Members, inner)
	case ast.VarDeclNode:
		target := cur
		if d.Kind == token.Var {
			target = g.functionScope(cur)
		}
		for _, decl := range d.Decls {
			dd := decl.Data.(ast.DeclaratorNode)
			if dd.Target != nil && dd.Target.Type == ast.Ident {
				g.bind(target, dd.Target, dd.Init)
			} else {
				for _, ident := range PatternNames(dd.Target) {
					g.bind(target, ident, nil)
				}
			}
			g.visitAll(decl.Children(), cur)
		}
	case ast.BlockNode:
		if n.Type == ast.Block {
			cur = g.open(Block, cur, n)
		}
		g.visitAll(d.Stmts, cur)
	case ast.ForNode:
		if isLexical(d.Init) {
			cur = g.open(Loop, cur, n)
		}
		g.visitAll(n.Children(), cur)
	case ast.ForInNode:
		if isLexical(d.Left) {
			cur = g.open(Loop, cur, n)
		}
		g.visitAll(n.Children(), cur)
	case ast.CatchNode:
		inner := g.open(Catch, cur, n)
		g.bindPattern(inner, d.Param)
		g.visitAll(n.Children(), inner)
	case ast.ImportNode:
		for _, local := range d.Locals {
			g.bind(cur, local, nil)
		}
	case ast.SwitchNode:
		g.visit(d.Disc, cur)
		inner := g.open(Switch, cur, n)
		g.visitAll(d.Cases, inner)
	default:
		g.visitAll(n.Children(), cur)
	}
}

func (g *Graph) visitFunction(n *ast.Node, d ast.FuncNode, cur ID) {
	if n.Type == ast.FuncDecl && d.Name != nil {
		g.bind(cur, d.Name, nil)
	}
	fn := g.open(Function, cur, n)
	for _, param := range d.Params {
		g.bindPattern(fn, param)
	}
	// parameters shadow the name of a function expression
	if n.Type == ast.FuncExpr && d.Name != nil {
		g.bind(fn, d.Name, nil)
	}
	g.visitAll(d.Params, fn)
	if d.Body != nil && d.Body.Type == ast.Block {
		g.visitAll(d.Body.Data.(ast.BlockNode).Stmts, fn)
	} else {
		g.visit(d.Body, fn)
	}
}

// Acquire returns the innermost scope enclosing n.
func (g *Graph) Acquire(n *ast.Node) ID {
	var prev *ast.Node
	for p := n; p != nil; prev, p = p, p.Parent {
		id, ok := g.byBlock[p]
		if !ok {
			continue
		}
		if prev != nil && outsideOwner(p, prev) {
			continue
		}
		return id
	}
	return 0
}

// outsideOwner reports whether child, although a syntactic child of owner,
// belongs to the scope enclosing owner.
func outsideOwner(owner, child *ast.Node) bool {
	switch d := owner.Data.(type) {
	case ast.SwitchNode:
		return child == d.Disc
	case ast.FuncNode:
		return owner.Type == ast.FuncDecl && child == d.Name
	case ast.ClassNode:
		return owner.Type == ast.ClassDecl && child == d.Name
	}
	return false
}

// Lookup searches id and its ancestors for name and returns the first binding
// found together with the scope that holds it.
func (g *Graph) Lookup(id ID, name string) (Binding, ID, bool) {
	for id != None {
		s := g.Scope(id)
		if s == nil {
			break
		}
		if b, ok := s.Bindings[name]; ok {
			return b, id, true
		}
		id = s.Parent
	}
	return Binding{}, None, false
}

// Resolve returns the initializer of the declaration ref refers to. The
// innermost declaration wins even when it has no initializer, in which case
// Resolve returns nil.
func (g *Graph) Resolve(ref *ast.Node) *ast.Node {
	ident, ok := ref.Data.(ast.IdentNode)
	if !ok {
		return nil
	}
	b, _, found := g.Lookup(g.Acquire(ref), ident.Name)
	if !found {
		return nil
	}
	return b.Init
}
