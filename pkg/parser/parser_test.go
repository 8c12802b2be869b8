package parser_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/parser"
	"github.com/xplshn/typefighter/pkg/util"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.ParseFile("test.js", []rune(src), 0)
	if err != nil {
		t.Fatalf("ParseFile(%q): %v", src, err)
	}
	return f
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			"call",
			`add("5", 2);`,
			`(Program (ExprStmt (Call (Ident add) (String "5") (Number 2))))`,
		},
		{
			"declarations",
			`let x = 1, [a, , b] = y;`,
			`(Program (VarDecl let (Declarator (Ident x) (Number 1)) (Declarator (Array (Ident a) (Ident b)) (Ident y))))`,
		},
		{
			"precedence",
			`a + b * c ** d ** e`,
			`(Program (ExprStmt (Binary + (Ident a) (Binary * (Ident b) (Binary ** (Ident c) (Binary ** (Ident d) (Ident e)))))))`,
		},
		{
			"async arrow with default",
			`const f = async (a, b = 1) => a;`,
			`(Program (VarDecl const (Declarator (Ident f) (ArrowFunc async (Ident a) (AssignPattern (Ident b) (Number 1)) (Ident a)))))`,
		},
		{
			"automatic semicolons",
			"let a = 1\nlet b = a\nb++",
			`(Program (VarDecl let (Declarator (Ident a) (Number 1))) (VarDecl let (Declarator (Ident b) (Ident a))) (ExprStmt (Update ++ (Ident b))))`,
		},
		{
			"restricted return",
			"function f() { return\n1 }",
			`(Program (FuncDecl (Ident f) (Block (Return) (ExprStmt (Number 1)))))`,
		},
		{
			"optional chain",
			`o?.m(1)?.[k]`,
			`(Program (ExprStmt (Member [] ?. (Call (Member ?. (Ident o) (Ident m)) (Number 1)) (Ident k))))`,
		},
		{
			"object literal",
			`x = {a, b: 2, [c]: 3, m() {}, ...d};`,
			`(Program (ExprStmt (Assign = (Ident x) (Object (Property shorthand (Ident a)) (Property (Ident b) (Number 2)) (Property (Ident c) (Number 3)) (Property (Ident m) (FuncExpr (Block))) (Spread (Ident d))))))`,
		},
		{
			"statements",
			`function f(a) {
  if (a) return 1; else { return "x" }
  for (let i = 0; i < 3; i++) {}
  for (const k of ks) continue;
  switch (a) { case 1: break; default: }
  try { g() } catch (e) {} finally {}
}`,
			`(Program (FuncDecl (Ident f) (Ident a) (Block ` +
				`(If (Ident a) (Return (Number 1)) (Block (Return (String "x")))) ` +
				`(For (VarDecl let (Declarator (Ident i) (Number 0))) (Binary < (Ident i) (Number 3)) (ExprStmt (Update ++ (Ident i))) (Block)) ` +
				`(ForIn of (VarDecl const (Declarator (Ident k))) (Ident ks) (Continue)) ` +
				`(Switch (Ident a) (Case (Number 1) (Break)) (Case)) ` +
				`(Try (Block (ExprStmt (Call (Ident g)))) (Catch (Ident e) (Block)) (Block)))))`,
		},
		{
			"class",
			`class A extends B { x = 1; static m() {} get v() { return 1 } }`,
			`(Program (ClassDecl (Ident A) (Ident B) (Property (Ident x) (Number 1)) (Property (Ident m) (FuncExpr (Block))) (Property (Ident v) (FuncExpr (Block (Return (Number 1)))))))`,
		},
		{
			"new",
			`new Foo(1);`,
			`(Program (ExprStmt (New (Ident Foo) (Number 1))))`,
		},
		{
			"labeled loop",
			`outer: for (;;) break outer;`,
			`(Program (Other <labeled_statement> (Ident outer) (For (Break))))`,
		},
		{
			"regex statement after if head",
			`if (x) /re/.test(y);`,
			`(Program (If (Ident x) (ExprStmt (Call (Member (Regex) (Ident test)) (Ident y)))))`,
		},
		{
			"imports",
			`import d, { q, default as r, "s" as t } from "m"; import * as ns from "n"; import "side";`,
			`(Program (Import (Ident d) (Ident q) (Ident r) (Ident t) (String "m")) (Import (Ident ns) (String "n")) (Import (String "side")))`,
		},
		{
			"exports",
			`export const w = 1; export default f(1); export { a, b as c }; export * from "m";`,
			`(Program (Export (VarDecl const (Declarator (Ident w) (Number 1)))) (Export default (Call (Ident f) (Number 1))) (Export (Ident a) (Ident b)) (Export (String "m")))`,
		},
		{
			"default exported functions",
			"export default function () {}\nexport async function g() {}",
			`(Program (Export default (FuncExpr (Block))) (Export (FuncDecl async (Ident g) (Block))))`,
		},
		{
			"dynamic import",
			`import("m").then(f);`,
			`(Program (ExprStmt (Call (Member (Call (Ident import) (String "m")) (Ident then)) (Ident f))))`,
		},
		{
			"async generator",
			`async function* gen() { for await (const v of xs) { yield v; } }`,
			`(Program (FuncDecl async (Ident gen) (Block (ForIn of (VarDecl const (Declarator (Ident v))) (Ident xs) (Block (ExprStmt (Yield (Ident v))))))))`,
		},
		{
			"yield forms",
			`function* g() { yield; yield* h(); const x = yield 1; }`,
			`(Program (FuncDecl (Ident g) (Block (ExprStmt (Yield)) (ExprStmt (Yield * (Call (Ident h)))) (VarDecl const (Declarator (Ident x) (Yield (Number 1)))))))`,
		},
		{
			"yield outside a generator",
			`function f() { yield(1); const a = () => yield; }`,
			`(Program (FuncDecl (Ident f) (Block (ExprStmt (Call (Ident yield) (Number 1))) (VarDecl const (Declarator (Ident a) (ArrowFunc (Ident yield)))))))`,
		},
		{
			"generator method",
			`o = { *m() { yield 1 } };`,
			`(Program (ExprStmt (Assign = (Ident o) (Object (Property (Ident m) (FuncExpr (Block (ExprStmt (Yield (Number 1))))))))))`,
		},
		{
			"regex after yield",
			`function* g() { yield /re/g; }`,
			`(Program (FuncDecl (Ident g) (Block (ExprStmt (Yield (Regex))))))`,
		},
		{
			"parenthesized callee",
			`(add)("5")`,
			`(Program (ExprStmt (Call (Paren (Ident add)) (String "5"))))`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := parse(t, tc.src)
			if diff := cmp.Diff(tc.want, ast.Compact(f.Root)); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParentLinks(t *testing.T) {
	f := parse(t, `function f(a, {b}) { return [a, b].map(x => x + 1) }`)
	if f.Root.Parent != nil {
		t.Fatalf("root has a parent")
	}
	ast.Walk(f.Root, func(n *ast.Node) bool {
		for _, child := range n.Children() {
			if child.Parent != n {
				t.Errorf("%s child of %s has parent %v", child.Type, n.Type, child.Parent)
			}
		}
		return true
	})
}

func TestComments(t *testing.T) {
	f := parse(t, "/* typefighter */\nf() // trailing\n")
	var bodies []string
	for _, c := range f.Comments {
		bodies = append(bodies, c.Value)
	}
	if diff := cmp.Diff([]string{" typefighter ", " trailing"}, bodies); diff != "" {
		t.Errorf("comments (-want +got):\n%s", diff)
	}
}

func TestCallPositions(t *testing.T) {
	f := parse(t, "let x = 1;\n  add(x, \"y\");")
	calls := ast.Collect(f.Root, ast.Call)
	if len(calls) != 1 {
		t.Fatalf("found %d calls, want 1", len(calls))
	}
	call := calls[0]
	if call.Tok.Line != 2 || call.Tok.Column != 3 || call.Tok.Len != 11 {
		t.Errorf("call token at %d:%d len %d, want 2:3 len 11", call.Tok.Line, call.Tok.Column, call.Tok.Len)
	}
	args := call.Data.(ast.CallNode).Args
	if got := args[1].Tok.Column; got != 10 {
		t.Errorf("second argument at column %d, want 10", got)
	}
}

func TestErrors(t *testing.T) {
	cases := []struct {
		name, src string
		line, col int
		msg       string
	}{
		{"unclosed call", `f("ok";`, 1, 7, "Expected ')' after arguments"},
		{"missing binding", `let = 1`, 1, 5, "Expected binding name"},
		{"missing semicolon", `a b`, 1, 3, "Expected ';' but found 'b'"},
		{"newline after throw", "throw\nx", 2, 1, "Illegal newline after 'throw'"},
		{"bad assignment target", `1 = 2`, 1, 3, "Invalid left-hand side"},
		{"bare try", `try {}`, 1, 7, "Missing catch or finally"},
		{"lexer error", "x = 'open", 1, 5, "Unterminated string literal"},
		{"import name without alias", `import { default } from "m";`, 1, 18, "Expected 'as' after import name"},
		{"import without from", `import { a } "m";`, 1, 14, "Expected 'from' after import clause"},
		{"export of an expression", `export 1;`, 1, 8, "Unexpected '1' after 'export'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parser.ParseFile("bad.js", []rune(tc.src), 0)
			if err == nil {
				t.Fatal("expected an error")
			}
			se, ok := err.(*util.SourceError)
			if !ok {
				t.Fatalf("error has type %T, want *util.SourceError", err)
			}
			if se.Tok.Line != tc.line || se.Tok.Column != tc.col {
				t.Errorf("error at %d:%d, want %d:%d", se.Tok.Line, se.Tok.Column, tc.line, tc.col)
			}
			if !strings.Contains(se.Msg, tc.msg) {
				t.Errorf("message %q does not contain %q", se.Msg, tc.msg)
			}
		})
	}
}
