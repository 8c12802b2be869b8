// Package ast defines the syntax tree shared by every front end
package ast

import (
	"github.com/xplshn/typefighter/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Literals
	Number NodeType = iota
	String
	Boolean
	Null
	Regex
	BigInt
	Template

	// Expressions
	Ident
	This
	Array
	Object
	Property
	FuncExpr
	ArrowFunc
	Call
	New
	Member
	Unary
	Update
	Await
	Yield
	Binary
	Assign
	Ternary
	Sequence
	Spread
	Paren
	AssignPattern
	ClassExpr
	Other

	// Statements
	Program
	Block
	FuncDecl
	VarDecl
	Declarator
	ExprStmt
	If
	While
	DoWhile
	For
	ForIn
	Return
	Break
	Continue
	Throw
	Try
	Catch
	Switch
	Case
	ClassDecl
	Empty
	Import
	Export
)

var nodeTypeNames = [...]string{
	Number: "Number", String: "String", Boolean: "Boolean", Null: "Null", Regex: "Regex",
	BigInt: "BigInt", Template: "Template", Ident: "Ident", This: "This", Array: "Array",
	Object: "Object", Property: "Property", FuncExpr: "FuncExpr", ArrowFunc: "ArrowFunc",
	Call: "Call", New: "New", Member: "Member", Unary: "Unary", Update: "Update", Await: "Await", Yield: "Yield",
	Binary: "Binary", Assign: "Assign", Ternary: "Ternary", Sequence: "Sequence", Spread: "Spread",
	Paren: "Paren", AssignPattern: "AssignPattern", ClassExpr: "ClassExpr", Other: "Other", Program: "Program",
	Block: "Block", FuncDecl: "FuncDecl", VarDecl: "VarDecl", Declarator: "Declarator",
	ExprStmt: "ExprStmt", If: "If", While: "While", DoWhile: "DoWhile", For: "For",
	ForIn: "ForIn", Return: "Return", Break: "Break", Continue: "Continue", Throw: "Throw",
	Try: "Try", Catch: "Catch", Switch: "Switch", Case: "Case", ClassDecl: "ClassDecl",
	Empty: "Empty", Import: "Import", Export: "Export",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "NodeType(?)"
}

// Node represents a node in the Abstract Syntax Tree. Tok is the first token of
// the construct; its Len spans the whole construct when it fits on one line.
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
}

// File is the output of a front end: the tree plus every comment in the file.
type File struct {
	Name     string
	Root     *Node
	Comments []token.Token
}

// --- Node Data Structs ---
type NumberNode struct{ Raw string }
type StringNode struct{ Value string }
type BooleanNode struct{ Value bool }
type NullNode struct{}
type RegexNode struct{ Raw string }
type BigIntNode struct{ Raw string }
type TemplateNode struct {
	Raw   string
	Exprs []*Node
}
type IdentNode struct{ Name string }
type ThisNode struct{}
type ArrayNode struct{ Elems []*Node } // holes are nil
type ObjectNode struct{ Props []*Node }
type PropertyNode struct {
	Key, Value          *Node
	Computed, Shorthand bool
}
type FuncNode struct {
	Name    *Node // nil when anonymous
	Params  []*Node
	Body    *Node // Block, or an expression for concise arrows
	IsAsync bool
}
type CallNode struct {
	Callee   *Node
	Args     []*Node
	Optional bool
}
type NewNode struct {
	Callee *Node
	Args   []*Node
}
type MemberNode struct {
	Object, Property   *Node
	Computed, Optional bool
}
type UnaryNode struct {
	Op   token.Type
	Expr *Node
}
type UpdateNode struct {
	Op     token.Type
	Prefix bool
	Expr   *Node
}
type AwaitNode struct{ Expr *Node }
type YieldNode struct {
	Expr     *Node // nil for a bare yield
	Delegate bool
}
type BinaryNode struct {
	Op          token.Type
	Left, Right *Node
}
type AssignNode struct {
	Op            token.Type
	Target, Value *Node
}
type TernaryNode struct{ Cond, Then, Else *Node }
type SequenceNode struct{ Exprs []*Node }
type SpreadNode struct{ Expr *Node }
type ParenNode struct{ Expr *Node }
type AssignPatternNode struct{ Target, Default *Node }
type ClassNode struct {
	Name, Super *Node
	Members     []*Node // Property nodes
}
type OtherNode struct {
	Kind     string
	Children []*Node
}

type BlockNode struct{ Stmts []*Node }
type VarDeclNode struct {
	Kind  token.Type
	Decls []*Node
}
type DeclaratorNode struct{ Target, Init *Node }
type ExprStmtNode struct{ Expr *Node }
type IfNode struct{ Cond, Then, Else *Node }
type WhileNode struct{ Cond, Body *Node }
type ForNode struct{ Init, Cond, Update, Body *Node }
type ForInNode struct {
	Left, Right, Body *Node
	Of                bool
}
type ReturnNode struct{ Expr *Node }
type JumpNode struct{ Label string }
type ThrowNode struct{ Expr *Node }
type TryNode struct{ Block, Handler, Finalizer *Node }
type CatchNode struct{ Param, Body *Node }
type SwitchNode struct {
	Disc  *Node
	Cases []*Node
}
type CaseNode struct {
	Test *Node
	Body []*Node
} // Test is nil for default
type EmptyNode struct{}

// ImportNode is an import declaration. Locals are the names it binds in the
// module scope.
type ImportNode struct {
	Locals []*Node
	Source *Node
}

// ExportNode is an export declaration. Decl holds the exported declaration or
// the default value; Names are the names listed in an export clause.
type ExportNode struct {
	Decl    *Node
	Names   []*Node
	Source  *Node
	Default bool
}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Data: data}
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func cat(lists ...[]*Node) []*Node {
	var out []*Node
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func NewNumber(tok token.Token, raw string) *Node { return newNode(tok, Number, NumberNode{Raw: raw}) }
func NewString(tok token.Token, value string) *Node {
	return newNode(tok, String, StringNode{Value: value})
}
func NewBoolean(tok token.Token, value bool) *Node {
	return newNode(tok, Boolean, BooleanNode{Value: value})
}
func NewNull(tok token.Token) *Node              { return newNode(tok, Null, NullNode{}) }
func NewRegex(tok token.Token, raw string) *Node { return newNode(tok, Regex, RegexNode{Raw: raw}) }
func NewBigInt(tok token.Token, raw string) *Node {
	return newNode(tok, BigInt, BigIntNode{Raw: raw})
}
func NewTemplate(tok token.Token, raw string, exprs []*Node) *Node {
	return newNode(tok, Template, TemplateNode{Raw: raw, Exprs: exprs}, exprs...)
}
func NewIdent(tok token.Token, name string) *Node { return newNode(tok, Ident, IdentNode{Name: name}) }
func NewThis(tok token.Token) *Node               { return newNode(tok, This, ThisNode{}) }
func NewArray(tok token.Token, elems []*Node) *Node {
	return newNode(tok, Array, ArrayNode{Elems: elems}, elems...)
}
func NewObject(tok token.Token, props []*Node) *Node {
	return newNode(tok, Object, ObjectNode{Props: props}, props...)
}
func NewProperty(tok token.Token, key, value *Node, computed, shorthand bool) *Node {
	if shorthand {
		// the key and value of "{a}" are the same identifier; only the value is a child
		return newNode(tok, Property, PropertyNode{Key: key, Value: value, Shorthand: true}, value)
	}
	return newNode(tok, Property, PropertyNode{Key: key, Value: value, Computed: computed}, key, value)
}
func NewFunc(tok token.Token, nodeType NodeType, name *Node, params []*Node, body *Node, isAsync bool) *Node {
	data := FuncNode{Name: name, Params: params, Body: body, IsAsync: isAsync}
	return newNode(tok, nodeType, data, cat([]*Node{name}, params, []*Node{body})...)
}
func NewCall(tok token.Token, callee *Node, args []*Node, optional bool) *Node {
	return newNode(tok, Call, CallNode{Callee: callee, Args: args, Optional: optional}, cat([]*Node{callee}, args)...)
}
func NewNew(tok token.Token, callee *Node, args []*Node) *Node {
	return newNode(tok, New, NewNode{Callee: callee, Args: args}, cat([]*Node{callee}, args)...)
}
func NewMember(tok token.Token, object, property *Node, computed, optional bool) *Node {
	data := MemberNode{Object: object, Property: property, Computed: computed, Optional: optional}
	return newNode(tok, Member, data, object, property)
}
func NewUnary(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, Unary, UnaryNode{Op: op, Expr: expr}, expr)
}
func NewUpdate(tok token.Token, op token.Type, prefix bool, expr *Node) *Node {
	return newNode(tok, Update, UpdateNode{Op: op, Prefix: prefix, Expr: expr}, expr)
}
func NewAwait(tok token.Token, expr *Node) *Node {
	return newNode(tok, Await, AwaitNode{Expr: expr}, expr)
}
func NewYield(tok token.Token, expr *Node, delegate bool) *Node {
	return newNode(tok, Yield, YieldNode{Expr: expr, Delegate: delegate}, expr)
}
func NewBinary(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, Binary, BinaryNode{Op: op, Left: left, Right: right}, left, right)
}
func NewAssign(tok token.Token, op token.Type, target, value *Node) *Node {
	return newNode(tok, Assign, AssignNode{Op: op, Target: target, Value: value}, target, value)
}
func NewTernary(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, Ternary, TernaryNode{Cond: cond, Then: then, Else: els}, cond, then, els)
}
func NewSequence(tok token.Token, exprs []*Node) *Node {
	return newNode(tok, Sequence, SequenceNode{Exprs: exprs}, exprs...)
}
func NewSpread(tok token.Token, expr *Node) *Node {
	return newNode(tok, Spread, SpreadNode{Expr: expr}, expr)
}
func NewParen(tok token.Token, expr *Node) *Node {
	return newNode(tok, Paren, ParenNode{Expr: expr}, expr)
}
func NewAssignPattern(tok token.Token, target, def *Node) *Node {
	return newNode(tok, AssignPattern, AssignPatternNode{Target: target, Default: def}, target, def)
}
func NewOther(tok token.Token, kind string, children []*Node) *Node {
	return newNode(tok, Other, OtherNode{Kind: kind, Children: children}, children...)
}

func NewProgram(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Program, BlockNode{Stmts: stmts}, stmts...)
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Block, BlockNode{Stmts: stmts}, stmts...)
}
func NewVarDecl(tok token.Token, kind token.Type, decls []*Node) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Kind: kind, Decls: decls}, decls...)
}
func NewDeclarator(tok token.Token, target, init *Node) *Node {
	return newNode(tok, Declarator, DeclaratorNode{Target: target, Init: init}, target, init)
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr}, expr)
}
func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: then, Else: els}, cond, then, els)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body}, cond, body)
}
func NewDoWhile(tok token.Token, body, cond *Node) *Node {
	return newNode(tok, DoWhile, WhileNode{Cond: cond, Body: body}, body, cond)
}
func NewFor(tok token.Token, init, cond, update, body *Node) *Node {
	data := ForNode{Init: init, Cond: cond, Update: update, Body: body}
	return newNode(tok, For, data, init, cond, update, body)
}
func NewForIn(tok token.Token, left, right, body *Node, of bool) *Node {
	return newNode(tok, ForIn, ForInNode{Left: left, Right: right, Body: body, Of: of}, left, right, body)
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr}, expr)
}
func NewBreak(tok token.Token, label string) *Node {
	return newNode(tok, Break, JumpNode{Label: label})
}
func NewContinue(tok token.Token, label string) *Node {
	return newNode(tok, Continue, JumpNode{Label: label})
}
func NewThrow(tok token.Token, expr *Node) *Node {
	return newNode(tok, Throw, ThrowNode{Expr: expr}, expr)
}
func NewTry(tok token.Token, block, handler, finalizer *Node) *Node {
	data := TryNode{Block: block, Handler: handler, Finalizer: finalizer}
	return newNode(tok, Try, data, block, handler, finalizer)
}
func NewCatch(tok token.Token, param, body *Node) *Node {
	return newNode(tok, Catch, CatchNode{Param: param, Body: body}, param, body)
}
func NewSwitch(tok token.Token, disc *Node, cases []*Node) *Node {
	return newNode(tok, Switch, SwitchNode{Disc: disc, Cases: cases}, cat([]*Node{disc}, cases)...)
}
func NewCase(tok token.Token, test *Node, body []*Node) *Node {
	return newNode(tok, Case, CaseNode{Test: test, Body: body}, cat([]*Node{test}, body)...)
}
func NewClass(tok token.Token, nodeType NodeType, name, super *Node, members []*Node) *Node {
	data := ClassNode{Name: name, Super: super, Members: members}
	return newNode(tok, nodeType, data, cat([]*Node{name, super}, members)...)
}
func NewEmpty(tok token.Token) *Node { return newNode(tok, Empty, EmptyNode{}) }
func NewImport(tok token.Token, locals []*Node, source *Node) *Node {
	return newNode(tok, Import, ImportNode{Locals: locals, Source: source}, cat(locals, []*Node{source})...)
}
func NewExport(tok token.Token, decl *Node, names []*Node, source *Node, isDefault bool) *Node {
	data := ExportNode{Decl: decl, Names: names, Source: source, Default: isDefault}
	return newNode(tok, Export, data, cat([]*Node{decl}, names, []*Node{source})...)
}

// Unparen strips any number of enclosing parentheses.
func Unparen(n *Node) *Node {
	for n != nil && n.Type == Paren {
		n = n.Data.(ParenNode).Expr
	}
	return n
}

func nonNil(nodes ...*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the direct children of n in source order. Nil slots
// (array holes, absent else branches) are skipped.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	switch d := n.Data.(type) {
	case TemplateNode:
		return nonNil(d.Exprs...)
	case ArrayNode:
		return nonNil(d.Elems...)
	case ObjectNode:
		return nonNil(d.Props...)
	case PropertyNode:
		if d.Shorthand {
			return nonNil(d.Value)
		}
		return nonNil(d.Key, d.Value)
	case FuncNode:
		return nonNil(cat([]*Node{d.Name}, d.Params, []*Node{d.Body})...)
	case CallNode:
		return nonNil(cat([]*Node{d.Callee}, d.Args)...)
	case NewNode:
		return nonNil(cat([]*Node{d.Callee}, d.Args)...)
	case MemberNode:
		return nonNil(d.Object, d.Property)
	case UnaryNode:
		return nonNil(d.Expr)
	case UpdateNode:
		return nonNil(d.Expr)
	case AwaitNode:
		return nonNil(d.Expr)
	case YieldNode:
		return nonNil(d.Expr)
	case BinaryNode:
		return nonNil(d.Left, d.Right)
	case AssignNode:
		return nonNil(d.Target, d.Value)
	case TernaryNode:
		return nonNil(d.Cond, d.Then, d.Else)
	case SequenceNode:
		return nonNil(d.Exprs...)
	case SpreadNode:
		return nonNil(d.Expr)
	case ParenNode:
		return nonNil(d.Expr)
	case AssignPatternNode:
		return nonNil(d.Target, d.Default)
	case ClassNode:
		return nonNil(cat([]*Node{d.Name, d.Super}, d.Members)...)
	case OtherNode:
		return nonNil(d.Children...)
	case BlockNode:
		return nonNil(d.Stmts...)
	case VarDeclNode:
		return nonNil(d.Decls...)
	case DeclaratorNode:
		return nonNil(d.Target, d.Init)
	case ExprStmtNode:
		return nonNil(d.Expr)
	case IfNode:
		return nonNil(d.Cond, d.Then, d.Else)
	case WhileNode:
		if n.Type == DoWhile {
			return nonNil(d.Body, d.Cond)
		}
		return nonNil(d.Cond, d.Body)
	case ForNode:
		return nonNil(d.Init, d.Cond, d.Update, d.Body)
	case ForInNode:
		return nonNil(d.Left, d.Right, d.Body)
	case ReturnNode:
		return nonNil(d.Expr)
	case ThrowNode:
		return nonNil(d.Expr)
	case TryNode:
		return nonNil(d.Block, d.Handler, d.Finalizer)
	case CatchNode:
		return nonNil(d.Param, d.Body)
	case SwitchNode:
		return nonNil(cat([]*Node{d.Disc}, d.Cases)...)
	case CaseNode:
		return nonNil(cat([]*Node{d.Test}, d.Body)...)
	case ImportNode:
		return nonNil(cat(d.Locals, []*Node{d.Source})...)
	case ExportNode:
		return nonNil(cat([]*Node{d.Decl}, d.Names, []*Node{d.Source})...)
	}
	return nil
}

// Walk visits the tree rooted at n in pre-order, source order. Children of a
// node are skipped when fn returns false.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children() {
		Walk(child, fn)
	}
}

// Collect returns every node of the given type in traversal order.
func Collect(root *Node, nodeType NodeType) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if n.Type == nodeType {
			out = append(out, n)
		}
		return true
	})
	return out
}
