package token

type Type int

const (
	EOF Type = iota
	LineComment
	BlockComment
	Ident
	Number
	BigInt
	String
	Template
	Regex
	Let
	Const
	Var
	Function
	Return
	If
	Else
	While
	Do
	For
	In
	Break
	Continue
	New
	Typeof
	Void
	Delete
	Instanceof
	True
	False
	Null
	This
	Try
	Catch
	Finally
	Throw
	Switch
	Case
	Default
	Class
	Extends
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Colon
	Question
	QuestionDot
	Dots
	Dot
	Arrow
	Eq
	PlusEq
	MinusEq
	StarEq
	SlashEq
	RemEq
	PowEq
	AndEq
	OrEq
	XorEq
	ShlEq
	ShrEq
	UShrEq
	AndAndEq
	OrOrEq
	NullishEq
	Plus
	Minus
	Star
	Slash
	Rem
	Pow
	And
	Or
	Xor
	Shl
	Shr
	UShr
	EqEq
	Neq
	EqEqEq
	NeqEq
	Lt
	Gt
	Gte
	Lte
	AndAnd
	OrOr
	Nullish
	Not
	Complement
	Inc
	Dec
)

var KeywordMap = map[string]Type{
	"let":        Let,
	"const":      Const,
	"var":        Var,
	"function":   Function,
	"return":     Return,
	"if":         If,
	"else":       Else,
	"while":      While,
	"do":         Do,
	"for":        For,
	"in":         In,
	"break":      Break,
	"continue":   Continue,
	"new":        New,
	"typeof":     Typeof,
	"void":       Void,
	"delete":     Delete,
	"instanceof": Instanceof,
	"true":       True,
	"false":      False,
	"null":       Null,
	"this":       This,
	"try":        Try,
	"catch":      Catch,
	"finally":    Finally,
	"throw":      Throw,
	"switch":     Switch,
	"case":       Case,
	"default":    Default,
	"class":      Class,
	"extends":    Extends,
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
}

// IsAssignment reports whether t is '=' or one of the compound assignment operators.
func (t Type) IsAssignment() bool { return t >= Eq && t <= NullishEq }

// IsComment reports whether t is a line or block comment.
func (t Type) IsComment() bool { return t == LineComment || t == BlockComment }

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

var punctStrings = map[Type]string{
	EOF: "end of file", LineComment: "comment", BlockComment: "comment", Ident: "identifier",
	Number: "number", BigInt: "bigint", String: "string", Template: "template", Regex: "regex",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Semi: ";", Comma: ",", Colon: ":", Question: "?", QuestionDot: "?.", Dots: "...", Dot: ".",
	Arrow: "=>", Eq: "=", PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", RemEq: "%=",
	PowEq: "**=", AndEq: "&=", OrEq: "|=", XorEq: "^=", ShlEq: "<<=", ShrEq: ">>=", UShrEq: ">>>=",
	AndAndEq: "&&=", OrOrEq: "||=", NullishEq: "??=", Plus: "+", Minus: "-", Star: "*", Slash: "/",
	Rem: "%", Pow: "**", And: "&", Or: "|", Xor: "^", Shl: "<<", Shr: ">>", UShr: ">>>",
	EqEq: "==", Neq: "!=", EqEqEq: "===", NeqEq: "!==", Lt: "<", Gt: ">", Gte: ">=", Lte: "<=",
	AndAnd: "&&", OrOr: "||", Nullish: "??", Not: "!", Complement: "~", Inc: "++", Dec: "--",
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	if s, ok := punctStrings[t]; ok {
		return s
	}
	return "unknown token"
}

// Lookup maps keyword or punctuator text to its token type.
func Lookup(text string) (Type, bool) {
	if t, ok := KeywordMap[text]; ok {
		return t, true
	}
	for t, s := range punctStrings {
		if s == text && t >= LParen {
			return t, true
		}
	}
	return EOF, false
}
