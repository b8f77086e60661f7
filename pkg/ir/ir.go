// Package ir defines the three-address code (TAC) instruction set and
// lowers validated ASTs into it. Every instruction carries at most three
// operand slots; operands are temporary names, variable names, literal
// spellings, or labels.
package ir

import (
	"fmt"
	"strings"
)

type Op int

const (
	OpAssign Op = iota
	OpBinOp
	OpUnaryOp
	OpGoto
	OpIfGoto
	OpIfFalseGoto
	OpLabel
	OpParam
	OpCall
	OpReturn
	OpFuncBegin
	OpFuncEnd
)

// Instruction is one TAC instruction. Field use depends on Op:
//
//	OpAssign       Dest = Src
//	OpBinOp        Dest = Src Operator Src2
//	OpUnaryOp      Dest = Operator Src
//	OpGoto         goto Target
//	OpIfGoto       if Src goto Target
//	OpIfFalseGoto  ifFalse Src goto Target
//	OpLabel        Target:
//	OpParam        param Src
//	OpCall         [Dest =] call Func(Args)
//	OpReturn       return [Src]
//	OpFuncBegin    func Func(Args)
//	OpFuncEnd      endfunc Func
type Instruction struct {
	Op       Op
	Dest     string
	Src      string
	Src2     string
	Operator string
	Target   string
	Func     string
	Args     []string
}

func (in *Instruction) String() string {
	switch in.Op {
	case OpAssign:
		return fmt.Sprintf("%s = %s", in.Dest, in.Src)
	case OpBinOp:
		return fmt.Sprintf("%s = %s %s %s", in.Dest, in.Src, in.Operator, in.Src2)
	case OpUnaryOp:
		return fmt.Sprintf("%s = %s%s", in.Dest, in.Operator, in.Src)
	case OpGoto:
		return fmt.Sprintf("goto %s", in.Target)
	case OpIfGoto:
		return fmt.Sprintf("if %s goto %s", in.Src, in.Target)
	case OpIfFalseGoto:
		return fmt.Sprintf("ifFalse %s goto %s", in.Src, in.Target)
	case OpLabel:
		return in.Target + ":"
	case OpParam:
		return fmt.Sprintf("param %s", in.Src)
	case OpCall:
		call := fmt.Sprintf("call %s(%s)", in.Func, strings.Join(in.Args, ", "))
		if in.Dest != "" {
			return in.Dest + " = " + call
		}
		return call
	case OpReturn:
		if in.Src != "" {
			return fmt.Sprintf("return %s", in.Src)
		}
		return "return"
	case OpFuncBegin:
		return fmt.Sprintf("func %s(%s)", in.Func, strings.Join(in.Args, ", "))
	case OpFuncEnd:
		return fmt.Sprintf("endfunc %s", in.Func)
	}
	return "<?>"
}

// StringTable maps string literal content to data-section labels,
// deduplicated by content. Order preserves first appearance so the data
// section is stable across runs.
type StringTable struct {
	labels map[string]string
	order  []string
}

func NewStringTable() *StringTable {
	return &StringTable{labels: make(map[string]string)}
}

// Intern returns the label for content, minting str0, str1, ... on first
// sight. Content keeps its source escape spelling verbatim.
func (st *StringTable) Intern(content string) string {
	if label, ok := st.labels[content]; ok {
		return label
	}
	label := fmt.Sprintf("str%d", len(st.order))
	st.labels[content] = label
	st.order = append(st.order, content)
	return label
}

// HasLabel reports whether name is one of the table's minted labels.
func (st *StringTable) HasLabel(name string) bool {
	for _, content := range st.order {
		if st.labels[content] == name {
			return true
		}
	}
	return false
}

// Entries returns (label, content) pairs in first-appearance order.
func (st *StringTable) Entries() []Entry {
	entries := make([]Entry, 0, len(st.order))
	for _, content := range st.order {
		entries = append(entries, Entry{Label: st.labels[content], Content: content})
	}
	return entries
}

func (st *StringTable) Len() int { return len(st.order) }

type Entry struct {
	Label   string
	Content string
}

// Program is the IR generator's complete output: the ordered instruction
// list plus the interned string literals.
type Program struct {
	Instructions []*Instruction
	Strings      *StringTable
}

// Dump renders the TAC listing, one instruction per line, labels and
// function boundaries unindented.
func (p *Program) Dump() string {
	var b strings.Builder
	for _, in := range p.Instructions {
		switch in.Op {
		case OpLabel, OpFuncBegin, OpFuncEnd:
			b.WriteString(in.String())
		default:
			b.WriteString("    ")
			b.WriteString(in.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
