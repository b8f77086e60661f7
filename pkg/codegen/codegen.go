// Package codegen lowers TAC into x86-64 NASM assembly for the Windows
// x64 calling convention. Values live in fixed 8-byte stack slots; rax
// and rbx serve as transient staging registers, never as value homes.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"minc/pkg/config"
	"minc/pkg/ir"
	"minc/pkg/util"
)

// Generator translates one TAC program. State beyond the output buffer is
// per-function: the frame map and the current function's name reset at
// every FuncBegin.
type Generator struct {
	cfg     *config.Config
	program *ir.Program
	out     []string

	frame    *frameMap
	funcName string
}

func NewGenerator(cfg *config.Config, program *ir.Program) *Generator {
	return &Generator{cfg: cfg, program: program}
}

// Generate produces the complete assembly text: header, data section
// (one entry per interned string), then the text section with one
// prologue/body/epilogue block per function.
func (g *Generator) Generate() (asm string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*util.Diag)
			if !ok {
				panic(r)
			}
			asm, err = "", d
		}
	}()

	g.emitHeader()
	g.emitDataSection()
	g.emitTextSection()
	return strings.Join(g.out, "\n") + "\n", nil
}

func (g *Generator) emit(line string) { g.out = append(g.out, line) }

func (g *Generator) emitf(format string, args ...any) {
	g.out = append(g.out, fmt.Sprintf(format, args...))
}

func (g *Generator) emitHeader() {
	g.emit("bits 64")
	g.emit("default rel")
	g.emit("")
}

func (g *Generator) emitDataSection() {
	if g.program.Strings.Len() == 0 {
		return
	}
	g.emit("section .data")
	for _, entry := range g.program.Strings.Entries() {
		g.emitf("    %s: db \"%s\", 0", entry.Label, EscapeForNasm(entry.Content))
	}
	g.emit("")
}

func (g *Generator) emitTextSection() {
	g.emit("section .text")
	for _, ext := range g.cfg.RuntimeExterns {
		g.emitf("    extern %s", ext)
	}
	g.emit("")

	for _, in := range g.program.Instructions {
		if in.Op == ir.OpFuncBegin && in.Func == "main" {
			g.emit("    global main")
			g.emit("")
			break
		}
	}

	for i := 0; i < len(g.program.Instructions); i++ {
		in := g.program.Instructions[i]
		if in.Op == ir.OpFuncBegin {
			g.lowerFunc(in, g.program.Instructions[i+1:])
			continue
		}
		g.lowerInstr(in)
	}
}

// lowerFunc emits the prologue for fn. The frame reservation is sized up
// front from a scan of the function's body, rounded to the stack
// alignment, instead of a fixed guess.
func (g *Generator) lowerFunc(fn *ir.Instruction, rest []*ir.Instruction) {
	g.funcName = fn.Func
	g.frame = newFrameMap(g.cfg, g.program.Strings)

	for _, param := range fn.Args {
		g.frame.slot(param)
	}
	body := functionBody(fn.Func, rest)
	for _, in := range body {
		g.frame.reserve(in)
	}

	g.emitf("%s:", fn.Func)
	g.emit("    push rbp")
	g.emit("    mov rbp, rsp")
	g.emitf("    sub rsp, %d", g.frame.size())
	g.emit("")

	for i, param := range fn.Args {
		if i >= len(g.cfg.ParamRegs) {
			break
		}
		g.emitf("    mov %s, %s", g.frame.slot(param), g.cfg.ParamRegs[i])
	}
}

// functionBody returns the instructions from rest up to (not including)
// the matching FuncEnd.
func functionBody(name string, rest []*ir.Instruction) []*ir.Instruction {
	for i, in := range rest {
		if in.Op == ir.OpFuncEnd && in.Func == name {
			return rest[:i]
		}
	}
	return rest
}

func (g *Generator) lowerInstr(in *ir.Instruction) {
	switch in.Op {
	case ir.OpFuncEnd:
		g.emitf(".end_%s:", in.Func)
		g.emit("    mov rsp, rbp")
		g.emit("    pop rbp")
		g.emit("    ret")
		g.emit("")
	case ir.OpLabel:
		g.emitf(".%s:", in.Target)
	case ir.OpAssign:
		g.lowerAssign(in)
	case ir.OpBinOp:
		g.lowerBinOp(in)
	case ir.OpUnaryOp:
		g.lowerUnaryOp(in)
	case ir.OpGoto:
		g.emitf("    jmp .%s", in.Target)
	case ir.OpIfGoto:
		g.loadOperand("rax", in.Src)
		g.emit("    test rax, rax")
		g.emitf("    jnz .%s", in.Target)
	case ir.OpIfFalseGoto:
		g.loadOperand("rax", in.Src)
		g.emit("    test rax, rax")
		g.emitf("    jz .%s", in.Target)
	case ir.OpParam:
		// Folded into the Call that consumes it.
	case ir.OpCall:
		g.lowerCall(in)
	case ir.OpReturn:
		g.lowerReturn(in)
	default:
		panic(util.InternalErr("codegen: unhandled TAC op %d", in.Op))
	}
}

func (g *Generator) lowerAssign(in *ir.Instruction) {
	dest := g.frame.slot(in.Dest)
	switch g.frame.classify(in.Src) {
	case operandInt:
		g.emitf("    mov %s, %s", dest, in.Src)
	case operandFloat:
		g.emitf("    mov rax, __float64__(%s)", in.Src)
		g.emitf("    mov %s, rax", dest)
	case operandString:
		g.emitf("    lea rax, [%s]", in.Src)
		g.emitf("    mov %s, rax", dest)
	default:
		g.emitf("    mov rax, %s", g.frame.slot(in.Src))
		g.emitf("    mov %s, rax", dest)
	}
}

func (g *Generator) lowerBinOp(in *ir.Instruction) {
	g.loadOperand("rax", in.Src)
	g.loadOperand("rbx", in.Src2)

	switch in.Operator {
	case "+":
		g.emit("    add rax, rbx")
	case "-":
		g.emit("    sub rax, rbx")
	case "*":
		g.emit("    imul rax, rbx")
	case "/":
		g.emit("    cqo")
		g.emit("    idiv rbx")
	case "%":
		g.emit("    cqo")
		g.emit("    idiv rbx")
		g.emit("    mov rax, rdx")
	case "&&":
		g.emit("    and rax, rbx")
	case "||":
		g.emit("    or rax, rbx")
	case "<", ">", "<=", ">=", "==", "!=":
		g.emit("    cmp rax, rbx")
		g.emitf("    %s al", setInstr[in.Operator])
		g.emit("    movzx rax, al")
	default:
		panic(util.InternalErr("codegen: unhandled binary operator %q", in.Operator))
	}

	g.emitf("    mov %s, rax", g.frame.slot(in.Dest))
}

var setInstr = map[string]string{
	"<":  "setl",
	">":  "setg",
	"<=": "setle",
	">=": "setge",
	"==": "sete",
	"!=": "setne",
}

func (g *Generator) lowerUnaryOp(in *ir.Instruction) {
	g.loadOperand("rax", in.Src)

	switch in.Operator {
	case "-":
		g.emit("    neg rax")
	case "+":
		// Identity.
	case "!":
		g.emit("    test rax, rax")
		g.emit("    setz al")
		g.emit("    movzx rax, al")
	default:
		panic(util.InternalErr("codegen: unhandled unary operator %q", in.Operator))
	}

	g.emitf("    mov %s, rax", g.frame.slot(in.Dest))
}

// lowerCall places up to four arguments in the convention registers,
// reserves the shadow space around the call, and captures rax when the
// result is used. Arguments past the fourth are not placed anywhere;
// only the register-passed ones reach the callee.
func (g *Generator) lowerCall(in *ir.Instruction) {
	g.emitf("    sub rsp, %d", g.cfg.ShadowSpace)
	for i, arg := range in.Args {
		if i >= len(g.cfg.ParamRegs) {
			break
		}
		reg := g.cfg.ParamRegs[i]
		switch g.frame.classify(arg) {
		case operandInt:
			g.emitf("    mov %s, %s", reg, arg)
		case operandFloat:
			g.emitf("    mov %s, __float64__(%s)", reg, arg)
		case operandString:
			g.emitf("    lea %s, [%s]", reg, arg)
		default:
			g.emitf("    mov %s, %s", reg, g.frame.slot(arg))
		}
	}
	g.emitf("    call %s", in.Func)
	g.emitf("    add rsp, %d", g.cfg.ShadowSpace)

	if in.Dest != "" {
		g.emitf("    mov %s, rax", g.frame.slot(in.Dest))
	}
}

func (g *Generator) lowerReturn(in *ir.Instruction) {
	if in.Src != "" {
		g.loadOperand("rax", in.Src)
	} else {
		g.emit("    xor rax, rax")
	}
	g.emitf("    jmp .end_%s", g.funcName)
}

// loadOperand moves an operand into reg: literals as immediates, string
// labels by address, everything else through its stack slot.
func (g *Generator) loadOperand(reg, operand string) {
	switch g.frame.classify(operand) {
	case operandInt:
		g.emitf("    mov %s, %s", reg, operand)
	case operandFloat:
		g.emitf("    mov %s, __float64__(%s)", reg, operand)
	case operandString:
		g.emitf("    lea %s, [%s]", reg, operand)
	default:
		g.emitf("    mov %s, %s", reg, g.frame.slot(operand))
	}
}

// EscapeForNasm rewrites the backslash escapes kept verbatim by the
// lexer into NASM db byte splices. A left-to-right scan keeps each
// backslash paired with its own escape character, so "\\n" stays a
// backslash byte followed by a literal 'n'.
func EscapeForNasm(content string) string {
	var b strings.Builder
	for i := 0; i < len(content); i++ {
		if content[i] == '\\' && i+1 < len(content) {
			if splice, ok := nasmSplices[content[i+1]]; ok {
				b.WriteString(splice)
				i++
				continue
			}
		}
		b.WriteByte(content[i])
	}
	return b.String()
}

var nasmSplices = map[byte]string{
	'n':  `", 10, "`,
	't':  `", 9, "`,
	'"':  `", 34, "`,
	'\\': `", 92, "`,
}

// UnescapeNasm inverts EscapeForNasm; the string-table round trip in the
// tests relies on it.
func UnescapeNasm(escaped string) string {
	escaped = strings.ReplaceAll(escaped, `", 10, "`, `\n`)
	escaped = strings.ReplaceAll(escaped, `", 9, "`, `\t`)
	escaped = strings.ReplaceAll(escaped, `", 34, "`, `\"`)
	escaped = strings.ReplaceAll(escaped, `", 92, "`, `\\`)
	return escaped
}

func isIntLiteral(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloatLiteral demands a leading digit before consulting ParseFloat,
// which would otherwise accept identifier spellings like "inf" or "NaN".
func isFloatLiteral(s string) bool {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return false
	}
	if isIntLiteral(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
