package ir

import (
	"strconv"

	"minc/pkg/ast"
	"minc/pkg/util"
)

// Generator lowers a validated AST into TAC. Temporary and label counters
// are monotonic for the whole compilation unit and never reset per
// function, so names stay unique across the listing.
type Generator struct {
	instructions []*Instruction
	strings      *StringTable
	tempCount    int
	labelCount   int
}

func NewGenerator() *Generator {
	return &Generator{strings: NewStringTable()}
}

// Generate lowers the program. The AST is already checked, so any failure
// here is an internal defect (an unrecognized node shape), not user input.
func (g *Generator) Generate(prog *ast.Node) (p *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*util.Diag)
			if !ok {
				panic(r)
			}
			p, err = nil, d
		}
	}()

	data := prog.Data.(ast.ProgramNode)
	for _, item := range data.Items {
		g.lowerStmt(item)
	}
	return &Program{Instructions: g.instructions, Strings: g.strings}, nil
}

func (g *Generator) emit(in *Instruction) { g.instructions = append(g.instructions, in) }

func (g *Generator) newTemp() string {
	t := "t" + strconv.Itoa(g.tempCount)
	g.tempCount++
	return t
}

func (g *Generator) newLabel() string {
	l := "L" + strconv.Itoa(g.labelCount)
	g.labelCount++
	return l
}

func (g *Generator) lowerStmt(node *ast.Node) {
	switch node.Type {
	case ast.FuncDecl:
		g.lowerFuncDecl(node)
	case ast.Block:
		for _, stmt := range node.Data.(ast.BlockNode).Stmts {
			g.lowerStmt(stmt)
		}
	case ast.VarDecl:
		data := node.Data.(ast.VarDeclNode)
		if data.Init != nil {
			src := g.lowerExpr(data.Init)
			g.emit(&Instruction{Op: OpAssign, Dest: data.Name, Src: src})
		}
	case ast.Assign:
		data := node.Data.(ast.AssignNode)
		src := g.lowerExpr(data.Expr)
		g.emit(&Instruction{Op: OpAssign, Dest: data.Name, Src: src})
	case ast.ExprStmt:
		expr := node.Data.(ast.ExprStmtNode).Expr
		if expr.Type == ast.FuncCall {
			// Statement position: the result is unused, so no
			// destination temporary is allocated.
			g.lowerCall(expr, false)
			return
		}
		g.lowerExpr(expr)
	case ast.Return:
		data := node.Data.(ast.ReturnNode)
		in := &Instruction{Op: OpReturn}
		if data.Expr != nil {
			in.Src = g.lowerExpr(data.Expr)
		}
		g.emit(in)
	case ast.If:
		g.lowerIf(node)
	case ast.While:
		g.lowerWhile(node)
	case ast.For:
		g.lowerFor(node)
	default:
		panic(util.InternalErr("ir: unhandled statement node %d", node.Type))
	}
}

func (g *Generator) lowerFuncDecl(node *ast.Node) {
	data := node.Data.(ast.FuncDeclNode)
	params := make([]string, len(data.Params))
	for i, p := range data.Params {
		params[i] = p.Name
	}
	g.emit(&Instruction{Op: OpFuncBegin, Func: data.Name, Args: params})
	g.lowerStmt(data.Body)
	g.emit(&Instruction{Op: OpFuncEnd, Func: data.Name})
}

// lowerIf emits exactly two labels: the else-or-end target of the
// falsity branch, and the end label when an else block exists.
func (g *Generator) lowerIf(node *ast.Node) {
	data := node.Data.(ast.IfNode)
	cond := g.lowerExpr(data.Cond)

	if data.ElseBody == nil {
		end := g.newLabel()
		g.emit(&Instruction{Op: OpIfFalseGoto, Src: cond, Target: end})
		g.lowerStmt(data.ThenBody)
		g.emit(&Instruction{Op: OpLabel, Target: end})
		return
	}

	elseLabel := g.newLabel()
	end := g.newLabel()
	g.emit(&Instruction{Op: OpIfFalseGoto, Src: cond, Target: elseLabel})
	g.lowerStmt(data.ThenBody)
	g.emit(&Instruction{Op: OpGoto, Target: end})
	g.emit(&Instruction{Op: OpLabel, Target: elseLabel})
	g.lowerStmt(data.ElseBody)
	g.emit(&Instruction{Op: OpLabel, Target: end})
}

func (g *Generator) lowerWhile(node *ast.Node) {
	data := node.Data.(ast.WhileNode)
	start := g.newLabel()
	end := g.newLabel()

	g.emit(&Instruction{Op: OpLabel, Target: start})
	cond := g.lowerExpr(data.Cond)
	g.emit(&Instruction{Op: OpIfFalseGoto, Src: cond, Target: end})
	g.lowerStmt(data.Body)
	g.emit(&Instruction{Op: OpGoto, Target: start})
	g.emit(&Instruction{Op: OpLabel, Target: end})
}

// lowerFor desugars to the while pattern: the initializer runs once
// before the start label, the step runs after the body.
func (g *Generator) lowerFor(node *ast.Node) {
	data := node.Data.(ast.ForNode)
	g.lowerStmt(data.Init)

	start := g.newLabel()
	end := g.newLabel()

	g.emit(&Instruction{Op: OpLabel, Target: start})
	cond := g.lowerExpr(data.Cond)
	g.emit(&Instruction{Op: OpIfFalseGoto, Src: cond, Target: end})
	g.lowerStmt(data.Body)
	g.lowerStmt(data.Step)
	g.emit(&Instruction{Op: OpGoto, Target: start})
	g.emit(&Instruction{Op: OpLabel, Target: end})
}

// lowerExpr lowers an expression and returns the operand holding its
// value: a literal spelling, a variable name, a string label, or a fresh
// temporary.
func (g *Generator) lowerExpr(node *ast.Node) string {
	switch node.Type {
	case ast.Number:
		return strconv.FormatInt(node.Data.(ast.NumberNode).Value, 10)
	case ast.FloatLit:
		return strconv.FormatFloat(node.Data.(ast.FloatNode).Value, 'g', -1, 64)
	case ast.String:
		return g.strings.Intern(node.Data.(ast.StringNode).Value)
	case ast.Ident:
		return node.Data.(ast.IdentNode).Name
	case ast.BinaryOp:
		data := node.Data.(ast.BinaryOpNode)
		left := g.lowerExpr(data.Left)
		right := g.lowerExpr(data.Right)
		temp := g.newTemp()
		g.emit(&Instruction{Op: OpBinOp, Dest: temp, Src: left, Operator: data.Op.Lexeme(), Src2: right})
		return temp
	case ast.UnaryOp:
		data := node.Data.(ast.UnaryOpNode)
		operand := g.lowerExpr(data.Expr)
		temp := g.newTemp()
		g.emit(&Instruction{Op: OpUnaryOp, Dest: temp, Operator: data.Op.Lexeme(), Src: operand})
		return temp
	case ast.FuncCall:
		return g.lowerCall(node, true)
	}
	panic(util.InternalErr("ir: unhandled expression node %d", node.Type))
}

// lowerCall emits one Param per argument in order, then the Call. A
// destination temporary exists only when the call is used as a value.
func (g *Generator) lowerCall(node *ast.Node, wantValue bool) string {
	data := node.Data.(ast.FuncCallNode)
	args := make([]string, 0, len(data.Args))
	for _, arg := range data.Args {
		operand := g.lowerExpr(arg)
		args = append(args, operand)
		g.emit(&Instruction{Op: OpParam, Src: operand})
	}

	in := &Instruction{Op: OpCall, Func: data.Name, Args: args}
	if wantValue {
		in.Dest = g.newTemp()
	}
	g.emit(in)
	return in.Dest
}
