// Package util provides the positioned diagnostics shared by every
// compilation phase. Each phase returns its first diagnostic as an error
// value; nothing below cmd/ terminates the process.
package util

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"minc/pkg/token"
)

// Phase identifies which stage of the pipeline produced a diagnostic.
type Phase int

const (
	PhaseLexical Phase = iota
	PhaseSyntax
	PhaseSemantic
	// PhaseInternal marks an inconsistency between stages (a node or
	// instruction shape a generator does not recognize), not invalid input.
	PhaseInternal
)

func (p Phase) String() string {
	switch p {
	case PhaseLexical:
		return "lexical"
	case PhaseSyntax:
		return "syntax"
	case PhaseSemantic:
		return "semantic"
	case PhaseInternal:
		return "internal"
	}
	return "unknown"
}

// Diag is a positioned compiler diagnostic.
type Diag struct {
	Phase Phase
	Tok   token.Token
	Msg   string
}

func (d *Diag) Error() string {
	if d.Tok.Line == 0 {
		return fmt.Sprintf("%s error: %s", d.Phase, d.Msg)
	}
	return fmt.Sprintf("%d:%d: %s error: %s", d.Tok.Line, d.Tok.Column, d.Phase, d.Msg)
}

func LexicalErr(tok token.Token, format string, args ...any) *Diag {
	return &Diag{Phase: PhaseLexical, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func SyntaxErr(tok token.Token, format string, args ...any) *Diag {
	return &Diag{Phase: PhaseSyntax, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func SemanticErr(tok token.Token, format string, args ...any) *Diag {
	return &Diag{Phase: PhaseSemantic, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func InternalErr(format string, args ...any) *Diag {
	return &Diag{Phase: PhaseInternal, Msg: fmt.Sprintf(format, args...)}
}

// SourceFile carries the name and content of the file being compiled, for
// rendering the offending line under a diagnostic.
type SourceFile struct {
	Name    string
	Content []rune
}

const (
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiReset = "\033[0m"
)

// Render writes a diagnostic to stream with the source line and a caret
// underline. Color is used only when the stream is a terminal.
func Render(stream *os.File, src *SourceFile, err error) {
	d, ok := err.(*Diag)
	if !ok {
		fmt.Fprintln(stream, err)
		return
	}

	red, green, reset := "", "", ""
	if term.IsTerminal(int(stream.Fd())) {
		red, green, reset = ansiRed, ansiGreen, ansiReset
	}

	name := "<input>"
	if src != nil {
		name = src.Name
	}
	fmt.Fprintf(stream, "%s:%d:%d: %s%s error:%s %s\n", name, d.Tok.Line, d.Tok.Column, red, d.Phase, reset, d.Msg)

	if src == nil || d.Tok.Line == 0 {
		return
	}
	line, ok := sourceLine(src.Content, d.Tok.Line)
	if !ok {
		return
	}
	fmt.Fprintf(stream, "  %s\n", line)
	fmt.Fprintf(stream, "  %s%s^", strings.Repeat(" ", d.Tok.Column-1), green)
	if d.Tok.Len > 1 {
		fmt.Fprint(stream, strings.Repeat("~", d.Tok.Len-1))
	}
	fmt.Fprintln(stream, reset)
}

func sourceLine(content []rune, lineNum int) (string, bool) {
	start := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			start = i + 1
		}
	}
	if lineNum > 1 {
		return "", false
	}
	end := len(content)
	for i := start; i < len(content); i++ {
		if content[i] == '\n' {
			end = i
			break
		}
	}
	return string(content[start:end]), true
}
