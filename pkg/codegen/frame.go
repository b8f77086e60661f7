package codegen

import (
	"fmt"

	"minc/pkg/config"
	"minc/pkg/ir"
)

type operandKind int

const (
	operandSlot operandKind = iota
	operandInt
	operandFloat
	operandString
)

// frameMap assigns each distinct variable/temporary name in a function a
// unique 8-byte rbp-relative slot on first sight. Offsets strictly
// decrease and are never reused, so distinct names cannot alias.
type frameMap struct {
	cfg     *config.Config
	strings *ir.StringTable
	offsets map[string]int
	next    int
}

func newFrameMap(cfg *config.Config, strings *ir.StringTable) *frameMap {
	return &frameMap{cfg: cfg, strings: strings, offsets: make(map[string]int)}
}

// slot returns the memory operand for name, allocating on first sight.
func (f *frameMap) slot(name string) string {
	off, ok := f.offsets[name]
	if !ok {
		f.next += f.cfg.WordSize
		off = f.next
		f.offsets[name] = off
	}
	return fmt.Sprintf("QWORD [rbp-%d]", off)
}

// classify decides how an operand is loaded. String operands are
// resolved against the string table's label set rather than a name
// prefix, so a source variable that happens to be called "str0" still
// gets a stack slot.
func (f *frameMap) classify(operand string) operandKind {
	switch {
	case isIntLiteral(operand):
		return operandInt
	case isFloatLiteral(operand):
		return operandFloat
	case f.strings.HasLabel(operand):
		return operandString
	}
	return operandSlot
}

// reserve walks one instruction pre-allocating slots for every name it
// will touch, so the prologue can size the frame before any body line is
// emitted.
func (f *frameMap) reserve(in *ir.Instruction) {
	for _, operand := range []string{in.Dest, in.Src, in.Src2} {
		if operand == "" {
			continue
		}
		if f.classify(operand) == operandSlot {
			f.slot(operand)
		}
	}
	for _, arg := range in.Args {
		if f.classify(arg) == operandSlot {
			f.slot(arg)
		}
	}
}

// size is the frame reservation: the map's total footprint rounded up to
// the stack alignment.
func (f *frameMap) size() int {
	align := f.cfg.StackAlignment
	size := (f.next + align - 1) / align * align
	if size == 0 {
		size = align
	}
	return size
}
