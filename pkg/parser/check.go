package parser

import (
	"minc/pkg/ast"
	"minc/pkg/token"
)

// Semantic actions. Each runs as its construct finishes parsing: the
// operand nodes already carry their inferred types, so checking is a
// local decision and the first violation aborts the parse.

// typeAssignable reports whether a value of type 'from' may flow into a
// slot of type 'to'. Identity always; int widens to float.
func typeAssignable(from, to ast.Type) bool {
	if from == to {
		return true
	}
	return from == ast.TypeInt && to == ast.TypeFloat
}

// newBinary infers the result type of a binary operator and fails on
// operand type mismatches.
func (p *Parser) newBinary(opTok token.Token, left, right *ast.Node) *ast.Node {
	node := ast.NewBinaryOp(opTok, opTok.Type, left, right)
	lt, rt := left.Typ, right.Typ

	switch opTok.Type {
	case token.Plus:
		if lt == ast.TypeString && rt == ast.TypeString {
			node.Typ = ast.TypeString
			return node
		}
		node.Typ = p.numericResult(opTok, lt, rt)
	case token.Minus, token.Star, token.Slash:
		node.Typ = p.numericResult(opTok, lt, rt)
	case token.Percent:
		if lt != ast.TypeInt || rt != ast.TypeInt {
			p.failSemantic(opTok, "operator '%%' requires int operands, got %s and %s", lt, rt)
		}
		node.Typ = ast.TypeInt
	case token.Lt, token.Gt, token.Lte, token.Gte, token.EqEq, token.Neq:
		bothNumeric := lt.IsNumeric() && rt.IsNumeric()
		bothString := lt == ast.TypeString && rt == ast.TypeString
		if !bothNumeric && !bothString {
			p.failSemantic(opTok, "operator '%s' cannot compare %s with %s", opTok.Type.Lexeme(), lt, rt)
		}
		node.Typ = ast.TypeBool
	case token.AndAnd, token.OrOr:
		if lt != ast.TypeBool || rt != ast.TypeBool {
			p.failSemantic(opTok, "operator '%s' requires bool operands, got %s and %s", opTok.Type.Lexeme(), lt, rt)
		}
		node.Typ = ast.TypeBool
	default:
		p.failSemantic(opTok, "unsupported binary operator '%s'", opTok.Value)
	}
	return node
}

// numericResult applies the widening rule: float dominates int.
func (p *Parser) numericResult(opTok token.Token, lt, rt ast.Type) ast.Type {
	if !lt.IsNumeric() || !rt.IsNumeric() {
		p.failSemantic(opTok, "operator '%s' requires numeric operands, got %s and %s", opTok.Type.Lexeme(), lt, rt)
	}
	if lt == ast.TypeFloat || rt == ast.TypeFloat {
		return ast.TypeFloat
	}
	return ast.TypeInt
}

func (p *Parser) newUnary(tok token.Token, op token.Type, operand *ast.Node) *ast.Node {
	node := ast.NewUnaryOp(tok, op, operand)
	switch op {
	case token.Plus, token.Minus:
		if !operand.Typ.IsNumeric() {
			p.failSemantic(tok, "unary '%s' requires a numeric operand, got %s", op.Lexeme(), operand.Typ)
		}
		node.Typ = operand.Typ
	case token.Not:
		if operand.Typ != ast.TypeBool {
			p.failSemantic(tok, "operator '!' requires a bool operand, got %s", operand.Typ)
		}
		node.Typ = ast.TypeBool
	}
	return node
}

// parseFuncCall parses 'name(args)' and checks it against the function
// table collected in the pre-pass.
func (p *Parser) parseFuncCall() *ast.Node {
	nameTok := p.expect(token.Ident, "expected a function name")
	name := nameTok.Value
	p.expect(token.LParen, "expected '(' in call")

	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			args = append(args, p.parseExpr())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "expected ')' after arguments")

	sig, ok := p.functions[name]
	if !ok {
		p.failSemantic(nameTok, "function '%s' not declared", name)
	}

	if sig.Variadic {
		p.checkBuiltinCall(nameTok, name, args)
	} else {
		p.checkCallArgs(nameTok, name, sig, args)
	}

	node := ast.NewFuncCall(nameTok, name, args)
	node.Typ = sig.ReturnType
	return node
}

func (p *Parser) checkCallArgs(nameTok token.Token, name string, sig *Signature, args []*ast.Node) {
	if len(args) != len(sig.Params) {
		p.failSemantic(nameTok, "function '%s' expects %d argument(s), got %d", name, len(sig.Params), len(args))
	}
	for i, arg := range args {
		want := sig.Params[i].Type
		if !typeAssignable(arg.Typ, want) {
			p.failSemantic(arg.Tok, "argument %d of '%s': cannot pass %s where %s is expected", i+1, name, arg.Typ, want)
		}
	}
}

// checkBuiltinCall validates printf and scanf: a string literal format
// first, then only declared variables. Declaration itself is enforced
// where the identifier is parsed.
func (p *Parser) checkBuiltinCall(nameTok token.Token, name string, args []*ast.Node) {
	if len(args) == 0 {
		p.failSemantic(nameTok, "'%s' requires at least a format string", name)
	}
	if args[0].Type != ast.String {
		p.failSemantic(args[0].Tok, "first argument of '%s' must be a string literal", name)
	}
	for _, arg := range args[1:] {
		if arg.Type != ast.Ident {
			p.failSemantic(arg.Tok, "'%s' arguments after the format must be declared variables", name)
		}
	}
}

// guaranteesReturn reports whether executing stmt always reaches a
// return. Loops never guarantee one: their bodies may run zero times.
func guaranteesReturn(stmt *ast.Node) bool {
	if stmt == nil {
		return false
	}
	switch stmt.Type {
	case ast.Return:
		return true
	case ast.Block:
		data := stmt.Data.(ast.BlockNode)
		if len(data.Stmts) == 0 {
			return false
		}
		return guaranteesReturn(data.Stmts[len(data.Stmts)-1])
	case ast.If:
		data := stmt.Data.(ast.IfNode)
		return data.ElseBody != nil &&
			guaranteesReturn(data.ThenBody) && guaranteesReturn(data.ElseBody)
	}
	return false
}
