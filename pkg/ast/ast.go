// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"minc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

const (
	// Expressions
	Number NodeType = iota
	FloatLit
	String
	Ident
	BinaryOp
	UnaryOp
	FuncCall

	// Statements
	Program
	FuncDecl
	Block
	VarDecl
	Assign
	ExprStmt
	If
	While
	For
	Return
)

// Node represents a node in the Abstract Syntax Tree. Expression nodes
// carry their inferred semantic type in Typ once checking completes.
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
	Typ    Type
}

// Type is the semantic type of an expression or declaration.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeVoid
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeVoid:
		return "void"
	}
	return "unknown"
}

// IsNumeric reports whether t is int or float.
func (t Type) IsNumeric() bool { return t == TypeInt || t == TypeFloat }

// TypeFromKeyword maps a type-keyword token to its semantic type.
func TypeFromKeyword(tt token.Type) Type {
	switch tt {
	case token.Int:
		return TypeInt
	case token.Bool:
		return TypeBool
	case token.Float:
		return TypeFloat
	case token.StringKeyword:
		return TypeString
	case token.Void:
		return TypeVoid
	}
	return TypeUnknown
}

// TypeFromName maps a type name appearing as a plain identifier.
func TypeFromName(name string) Type {
	switch name {
	case "int":
		return TypeInt
	case "bool":
		return TypeBool
	case "float":
		return TypeFloat
	case "string":
		return TypeString
	case "void":
		return TypeVoid
	}
	return TypeUnknown
}

// Param is one declared function parameter.
type Param struct {
	Name string
	Type Type
}

// --- Node Data Structs ---

type NumberNode struct{ Value int64 }
type FloatNode struct{ Value float64 }
type StringNode struct{ Value string }
type IdentNode struct{ Name string }
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type FuncCallNode struct {
	Name string
	Args []*Node
}
type ProgramNode struct{ Items []*Node }
type FuncDeclNode struct {
	Name       string
	ReturnType Type
	Params     []Param
	Body       *Node
}
type BlockNode struct{ Stmts []*Node }
type VarDeclNode struct {
	Name string
	Type Type
	Init *Node // nil when the declaration has no initializer
}
type AssignNode struct {
	Name string
	Expr *Node
}
type ExprStmtNode struct{ Expr *Node }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }
type ForNode struct{ Init, Cond, Step, Body *Node }
type ReturnNode struct{ Expr *Node }

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

func NewNumber(tok token.Token, value int64) *Node {
	n := newNode(tok, Number, NumberNode{Value: value})
	n.Typ = TypeInt
	return n
}

func NewFloat(tok token.Token, value float64) *Node {
	n := newNode(tok, FloatLit, FloatNode{Value: value})
	n.Typ = TypeFloat
	return n
}

func NewString(tok token.Token, value string) *Node {
	n := newNode(tok, String, StringNode{Value: value})
	n.Typ = TypeString
	return n
}

func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}

func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right}, left, right)
}

func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr}, expr)
}

func NewFuncCall(tok token.Token, name string, args []*Node) *Node {
	node := newNode(tok, FuncCall, FuncCallNode{Name: name, Args: args})
	for _, arg := range args {
		arg.Parent = node
	}
	return node
}

func NewProgram(tok token.Token, items []*Node) *Node {
	node := newNode(tok, Program, ProgramNode{Items: items})
	for _, item := range items {
		item.Parent = node
	}
	return node
}

func NewFuncDecl(tok token.Token, name string, returnType Type, params []Param, body *Node) *Node {
	return newNode(tok, FuncDecl, FuncDeclNode{Name: name, ReturnType: returnType, Params: params, Body: body}, body)
}

func NewBlock(tok token.Token, stmts []*Node) *Node {
	node := newNode(tok, Block, BlockNode{Stmts: stmts})
	for _, s := range stmts {
		if s != nil {
			s.Parent = node
		}
	}
	return node
}

func NewVarDecl(tok token.Token, name string, typ Type, init *Node) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, Type: typ, Init: init}, init)
}

func NewAssign(tok token.Token, name string, expr *Node) *Node {
	return newNode(tok, Assign, AssignNode{Name: name, Expr: expr}, expr)
}

func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr}, expr)
}

func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody}, cond, thenBody, elseBody)
}

func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body}, cond, body)
}

func NewFor(tok token.Token, init, cond, step, body *Node) *Node {
	return newNode(tok, For, ForNode{Init: init, Cond: cond, Step: step, Body: body}, init, cond, step, body)
}

func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr}, expr)
}
