package token

type Type int

const (
	EOF Type = iota
	Ident
	Number
	FloatNumber
	String
	Int
	Bool
	Float
	StringKeyword
	Void
	If
	Else
	While
	For
	Return
	LParen
	RParen
	LBrace
	RBrace
	Semi
	Comma
	Assign
	Plus
	Minus
	Star
	Slash
	Percent
	Lt
	Gt
	Lte
	Gte
	EqEq
	Neq
	AndAnd
	OrOr
	Not
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"bool":   Bool,
	"float":  Float,
	"string": StringKeyword,
	"void":   Void,
	"if":     If,
	"else":   Else,
	"while":  While,
	"for":    For,
	"return": Return,
}

var typeNames = map[Type]string{
	EOF:           "end of input",
	Ident:         "identifier",
	Number:        "number",
	FloatNumber:   "number",
	String:        "string",
	Int:           "'int'",
	Bool:          "'bool'",
	Float:         "'float'",
	StringKeyword: "'string'",
	Void:          "'void'",
	If:            "'if'",
	Else:          "'else'",
	While:         "'while'",
	For:           "'for'",
	Return:        "'return'",
	LParen:        "'('",
	RParen:        "')'",
	LBrace:        "'{'",
	RBrace:        "'}'",
	Semi:          "';'",
	Comma:         "','",
	Assign:        "'='",
	Plus:          "'+'",
	Minus:         "'-'",
	Star:          "'*'",
	Slash:         "'/'",
	Percent:       "'%'",
	Lt:            "'<'",
	Gt:            "'>'",
	Lte:           "'<='",
	Gte:           "'>='",
	EqEq:          "'=='",
	Neq:           "'!='",
	AndAnd:        "'&&'",
	OrOr:          "'||'",
	Not:           "'!'",
}

// opLexemes maps operator tokens back to their source spelling, which is
// also the operator name carried by TAC instructions.
var opLexemes = map[Type]string{
	Assign:  "=",
	Plus:    "+",
	Minus:   "-",
	Star:    "*",
	Slash:   "/",
	Percent: "%",
	Lt:      "<",
	Gt:      ">",
	Lte:     "<=",
	Gte:     ">=",
	EqEq:    "==",
	Neq:     "!=",
	AndAnd:  "&&",
	OrOr:    "||",
	Not:     "!",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown token"
}

// Lexeme returns the source spelling of an operator token.
func (t Type) Lexeme() string { return opLexemes[t] }

// IsTypeKeyword reports whether t names one of the scalar types.
func (t Type) IsTypeKeyword() bool {
	switch t {
	case Int, Bool, Float, StringKeyword, Void:
		return true
	}
	return false
}

type Token struct {
	Type   Type
	Value  string
	Line   int
	Column int
	Len    int
}
