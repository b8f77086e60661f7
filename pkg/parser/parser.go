// Package parser implements the predictive recursive-descent parser fused
// with syntax-directed semantic checking. Parsing examines a single token
// of lookahead, executes semantic actions as each construct completes, and
// fails fast on the first syntax or semantic violation.
package parser

import (
	"strconv"

	"minc/pkg/ast"
	"minc/pkg/token"
	"minc/pkg/util"
)

// Signature is a function table entry: return type plus the ordered
// parameter list. Variadic marks the printf/scanf builtins, whose argument
// lists are checked by dedicated rules instead of the parameter list.
type Signature struct {
	ReturnType ast.Type
	Params     []ast.Param
	Variadic   bool
}

// Parser holds the state for the parsing process. The symbol table is
// per-function: it is replaced when a parameter list opens and discarded
// when the function body finishes checking. The function table is filled
// by a pre-pass and read-only afterwards, so calls may reference functions
// declared later in the source.
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token

	functions map[string]*Signature
	symbols   map[string]ast.Type
	returnTyp ast.Type
	inFunc    bool
}

func NewParser(tokens []token.Token) *Parser {
	p := &Parser{
		tokens:    tokens,
		functions: make(map[string]*Signature),
		symbols:   make(map[string]ast.Type),
	}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	// Builtins available to every program.
	p.functions["printf"] = &Signature{ReturnType: ast.TypeInt, Variadic: true}
	p.functions["scanf"] = &Signature{ReturnType: ast.TypeInt, Variadic: true}
	return p
}

// Parse produces a validated Program node or the first syntax/semantic
// error encountered.
func (p *Parser) Parse() (prog *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*util.Diag)
			if !ok {
				panic(r)
			}
			prog, err = nil, d
		}
	}()

	p.collectFunctions()
	p.reset()

	var items []*ast.Node
	tok := p.current
	for !p.check(token.EOF) {
		items = append(items, p.parseTopLevel())
	}
	return ast.NewProgram(tok, items), nil
}

// Functions returns the function table. Valid after Parse.
func (p *Parser) Functions() map[string]*Signature { return p.functions }

// Parser helpers

func (p *Parser) reset() {
	p.pos = 0
	p.previous = token.Token{}
	if len(p.tokens) > 0 {
		p.current = p.tokens[0]
	}
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
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
		tok := p.current
		p.advance()
		return tok
	}
	p.failSyntax(p.current, "%s (found %s)", message, p.current.Type)
	return token.Token{}
}

func (p *Parser) failSyntax(tok token.Token, format string, args ...any) {
	panic(util.SyntaxErr(tok, format, args...))
}

func (p *Parser) failSemantic(tok token.Token, format string, args ...any) {
	panic(util.SemanticErr(tok, format, args...))
}

// isTypeToken reports whether tok can open a declaration or signature.
func isTypeToken(tok token.Token) bool {
	return tok.Type.IsTypeKeyword()
}

func (p *Parser) typeFromToken(tok token.Token) ast.Type {
	t := ast.TypeFromKeyword(tok.Type)
	if t == ast.TypeUnknown {
		p.failSemantic(tok, "unknown type '%s'", tok.Value)
	}
	return t
}

// Two-pass function resolution

// collectFunctions is the pre-pass over all top-level declarations: it
// records every function signature before any body is checked, so forward
// references resolve in the main pass.
func (p *Parser) collectFunctions() {
	for !p.check(token.EOF) {
		if !p.atFunctionDecl() {
			// Not a function: skip forward, stepping over any balanced
			// brace extents, until the next candidate declaration.
			if p.check(token.LBrace) {
				p.skipBraces()
			} else {
				p.advance()
			}
			continue
		}

		retTok := p.current
		p.advance()
		nameTok := p.current
		p.advance()
		p.advance() // LParen

		var params []ast.Param
		if !p.check(token.RParen) {
			params = p.collectParams()
		}

		name := nameTok.Value
		if _, exists := p.functions[name]; exists {
			p.failSemantic(nameTok, "function '%s' redeclared", name)
		}
		p.functions[name] = &Signature{ReturnType: p.typeFromToken(retTok), Params: params}

		// Skip the body: advance to the opening brace, then step over
		// its balanced extent.
		for !p.check(token.LBrace) && !p.check(token.EOF) {
			p.advance()
		}
		p.skipBraces()
	}
}

// skipBraces steps over one balanced brace extent starting at the
// current '{'. Used only by the signature pre-pass.
func (p *Parser) skipBraces() {
	if !p.check(token.LBrace) {
		return
	}
	depth := 1
	p.advance()
	for depth > 0 && !p.check(token.EOF) {
		switch p.current.Type {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
		}
		p.advance()
	}
}

func (p *Parser) collectParams() []ast.Param {
	var params []ast.Param
	for {
		if !isTypeToken(p.current) {
			break
		}
		ptype := p.typeFromToken(p.current)
		p.advance()
		if !p.check(token.Ident) {
			break
		}
		params = append(params, ast.Param{Name: p.current.Value, Type: ptype})
		p.advance()
		if !p.match(token.Comma) {
			break
		}
	}
	return params
}

// atFunctionDecl peeks three tokens: type, name, '('.
func (p *Parser) atFunctionDecl() bool {
	if p.pos+2 >= len(p.tokens) {
		return false
	}
	return isTypeToken(p.tokens[p.pos]) &&
		p.tokens[p.pos+1].Type == token.Ident &&
		p.tokens[p.pos+2].Type == token.LParen
}

// Top-level and statement parsing

func (p *Parser) parseTopLevel() *ast.Node {
	if !p.atFunctionDecl() {
		// Variables live in per-function scopes only; there is no
		// global storage for a statement outside a function to use.
		p.failSyntax(p.current, "statements are not allowed at top level; expected a function declaration")
	}
	return p.parseFuncDecl()
}

func (p *Parser) parseFuncDecl() *ast.Node {
	retType := p.typeFromToken(p.current)
	p.advance()
	nameTok := p.expect(token.Ident, "expected function name")

	// Fresh symbol table for this function's scope.
	p.symbols = make(map[string]ast.Type)

	p.expect(token.LParen, "expected '(' after function name")
	var params []ast.Param
	if !p.check(token.RParen) {
		params = p.parseParams()
	}
	p.expect(token.RParen, "expected ')' after parameters")

	prevReturn, prevInFunc := p.returnTyp, p.inFunc
	p.returnTyp, p.inFunc = retType, true

	body := p.parseBlock()

	if retType != ast.TypeVoid && !guaranteesReturn(body) {
		p.failSemantic(nameTok, "function '%s' declared to return %s but a path reaches the end of its body without a return", nameTok.Value, retType)
	}

	p.symbols = make(map[string]ast.Type)
	p.returnTyp, p.inFunc = prevReturn, prevInFunc

	return ast.NewFuncDecl(nameTok, nameTok.Value, retType, params, body)
}

func (p *Parser) parseParams() []ast.Param {
	var params []ast.Param
	for {
		if !isTypeToken(p.current) {
			p.failSyntax(p.current, "expected parameter type")
		}
		ptype := p.typeFromToken(p.current)
		p.advance()
		nameTok := p.expect(token.Ident, "expected parameter name")
		if _, dup := p.symbols[nameTok.Value]; dup {
			p.failSemantic(nameTok, "parameter '%s' redeclared", nameTok.Value)
		}
		p.symbols[nameTok.Value] = ptype
		params = append(params, ast.Param{Name: nameTok.Value, Type: ptype})
		if !p.match(token.Comma) {
			break
		}
	}
	return params
}

func (p *Parser) parseBlock() *ast.Node {
	tok := p.expect(token.LBrace, "expected '{'")
	var stmts []*ast.Node
	for !p.check(token.RBrace) {
		if p.check(token.EOF) {
			p.failSyntax(p.current, "expected '}' before end of input")
		}
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "expected '}'")
	return ast.NewBlock(tok, stmts)
}

func (p *Parser) parseStmt() *ast.Node {
	switch {
	case p.check(token.Return):
		return p.parseReturn()
	case p.check(token.LBrace):
		return p.parseBlock()
	case p.check(token.If):
		return p.parseIf()
	case p.check(token.While):
		return p.parseWhile()
	case p.check(token.For):
		return p.parseFor()
	case isTypeToken(p.current):
		decl := p.parseVarDecl()
		p.expect(token.Semi, "expected ';' after declaration")
		return decl
	case p.check(token.Ident):
		switch p.peek().Type {
		case token.Assign:
			stmt := p.parseAssign()
			p.expect(token.Semi, "expected ';' after assignment")
			return stmt
		case token.LParen:
			tok := p.current
			call := p.parseFuncCall()
			p.expect(token.Semi, "expected ';' after call")
			return ast.NewExprStmt(tok, call)
		}
	}
	p.failSyntax(p.current, "expected a statement, found %s", p.current.Type)
	return nil
}

func (p *Parser) parseReturn() *ast.Node {
	tok := p.expect(token.Return, "expected 'return'")
	var expr *ast.Node
	if !p.check(token.Semi) {
		expr = p.parseExpr()
	}
	p.expect(token.Semi, "expected ';' after return")

	if p.inFunc {
		p.checkReturn(tok, expr)
	}
	return ast.NewReturn(tok, expr)
}

func (p *Parser) checkReturn(tok token.Token, expr *ast.Node) {
	if expr == nil {
		if p.returnTyp != ast.TypeVoid {
			p.failSemantic(tok, "return without a value in a function returning %s", p.returnTyp)
		}
		return
	}
	if p.returnTyp == ast.TypeVoid {
		p.failSemantic(tok, "void function cannot return a value")
	}
	if !typeAssignable(expr.Typ, p.returnTyp) {
		p.failSemantic(tok, "cannot return %s from a function returning %s", expr.Typ, p.returnTyp)
	}
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.expect(token.If, "expected 'if'")
	p.expect(token.LParen, "expected '(' after 'if'")
	cond := p.parseExpr()
	p.expect(token.RParen, "expected ')' after condition")
	p.checkCondition(tok, cond, "if")

	thenBody := p.parseBlock()
	var elseBody *ast.Node
	if p.match(token.Else) {
		elseBody = p.parseBlock()
	}
	return ast.NewIf(tok, cond, thenBody, elseBody)
}

func (p *Parser) parseWhile() *ast.Node {
	tok := p.expect(token.While, "expected 'while'")
	p.expect(token.LParen, "expected '(' after 'while'")
	cond := p.parseExpr()
	p.expect(token.RParen, "expected ')' after condition")
	p.checkCondition(tok, cond, "while")

	body := p.parseBlock()
	return ast.NewWhile(tok, cond, body)
}

func (p *Parser) parseFor() *ast.Node {
	tok := p.expect(token.For, "expected 'for'")
	p.expect(token.LParen, "expected '(' after 'for'")

	var init *ast.Node
	switch {
	case isTypeToken(p.current):
		init = p.parseVarDecl()
	case p.check(token.Ident) && p.peek().Type == token.Assign:
		init = p.parseAssign()
	default:
		p.failSyntax(p.current, "expected a declaration or assignment in for initializer")
	}
	p.expect(token.Semi, "expected ';' after for initializer")

	cond := p.parseExpr()
	p.checkCondition(tok, cond, "for")
	p.expect(token.Semi, "expected ';' after for condition")

	step := p.parseAssign()
	p.expect(token.RParen, "expected ')' after for step")

	body := p.parseBlock()
	return ast.NewFor(tok, init, cond, step, body)
}

func (p *Parser) checkCondition(tok token.Token, cond *ast.Node, kind string) {
	switch cond.Typ {
	case ast.TypeBool, ast.TypeInt, ast.TypeFloat:
	default:
		p.failSemantic(tok, "'%s' condition must be boolean or numeric, got %s", kind, cond.Typ)
	}
}

// parseVarDecl handles 'type name (= expr)?'. The terminating semicolon
// is left to the caller so for-initializers can reuse it.
func (p *Parser) parseVarDecl() *ast.Node {
	declType := p.typeFromToken(p.current)
	if declType == ast.TypeVoid {
		p.failSemantic(p.current, "variables cannot have type void")
	}
	p.advance()
	nameTok := p.expect(token.Ident, "expected an identifier")
	name := nameTok.Value

	if _, dup := p.symbols[name]; dup {
		p.failSemantic(nameTok, "variable '%s' redeclared", name)
	}

	var init *ast.Node
	if p.match(token.Assign) {
		init = p.parseExpr()
	}

	p.symbols[name] = declType

	if init != nil && !typeAssignable(init.Typ, declType) {
		p.failSemantic(nameTok, "cannot initialize %s variable '%s' with %s", declType, name, init.Typ)
	}
	return ast.NewVarDecl(nameTok, name, declType, init)
}

// parseAssign handles 'name = expr' without the trailing semicolon.
func (p *Parser) parseAssign() *ast.Node {
	nameTok := p.expect(token.Ident, "expected an identifier")
	p.expect(token.Assign, "expected '='")
	expr := p.parseExpr()

	name := nameTok.Value
	declared, ok := p.symbols[name]
	if !ok {
		p.failSemantic(nameTok, "variable '%s' not declared", name)
	}
	if !typeAssignable(expr.Typ, declared) {
		p.failSemantic(nameTok, "cannot assign %s to '%s' of type %s", expr.Typ, name, declared)
	}
	return ast.NewAssign(nameTok, name, expr)
}

// Expression parsing. One function per precedence level, lowest first;
// each level loops on its own operator set building left-leaning nodes.

func (p *Parser) parseExpr() *ast.Node { return p.parseLogicalOr() }

func (p *Parser) parseLogicalOr() *ast.Node {
	left := p.parseLogicalAnd()
	for p.check(token.OrOr) {
		opTok := p.current
		p.advance()
		right := p.parseLogicalAnd()
		left = p.newBinary(opTok, left, right)
	}
	return left
}

func (p *Parser) parseLogicalAnd() *ast.Node {
	left := p.parseEquality()
	for p.check(token.AndAnd) {
		opTok := p.current
		p.advance()
		right := p.parseEquality()
		left = p.newBinary(opTok, left, right)
	}
	return left
}

func (p *Parser) parseEquality() *ast.Node {
	left := p.parseRelational()
	for p.check(token.EqEq) || p.check(token.Neq) {
		opTok := p.current
		p.advance()
		right := p.parseRelational()
		left = p.newBinary(opTok, left, right)
	}
	return left
}

func (p *Parser) parseRelational() *ast.Node {
	left := p.parseAdditive()
	for p.check(token.Lt) || p.check(token.Gt) || p.check(token.Lte) || p.check(token.Gte) {
		opTok := p.current
		p.advance()
		right := p.parseAdditive()
		left = p.newBinary(opTok, left, right)
	}
	return left
}

func (p *Parser) parseAdditive() *ast.Node {
	left := p.parseTerm()
	for p.check(token.Plus) || p.check(token.Minus) {
		opTok := p.current
		p.advance()
		right := p.parseTerm()
		left = p.newBinary(opTok, left, right)
	}
	return left
}

func (p *Parser) parseTerm() *ast.Node {
	left := p.parseFactor()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		opTok := p.current
		p.advance()
		right := p.parseFactor()
		left = p.newBinary(opTok, left, right)
	}
	return left
}

func (p *Parser) parseFactor() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Plus), p.match(token.Minus), p.match(token.Not):
		op := p.previous.Type
		operand := p.parseFactor()
		return p.newUnary(tok, op, operand)
	case p.check(token.Number):
		p.advance()
		val, err := strconv.ParseInt(p.previous.Value, 10, 64)
		if err != nil {
			p.failSyntax(p.previous, "malformed number literal '%s'", p.previous.Value)
		}
		return ast.NewNumber(tok, val)
	case p.check(token.FloatNumber):
		p.advance()
		val, err := strconv.ParseFloat(p.previous.Value, 64)
		if err != nil {
			p.failSyntax(p.previous, "malformed number literal '%s'", p.previous.Value)
		}
		return ast.NewFloat(tok, val)
	case p.check(token.String):
		p.advance()
		return ast.NewString(tok, p.previous.Value)
	case p.check(token.Ident):
		if p.peek().Type == token.LParen {
			return p.parseFuncCall()
		}
		p.advance()
		name := p.previous.Value
		typ, ok := p.symbols[name]
		if !ok {
			p.failSemantic(tok, "variable '%s' not declared", name)
		}
		node := ast.NewIdent(tok, name)
		node.Typ = typ
		return node
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "expected ')' after expression")
		return expr
	}
	p.failSyntax(tok, "expected an expression, found %s", tok.Type)
	return nil
}
