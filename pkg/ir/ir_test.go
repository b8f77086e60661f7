package ir_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"minc/pkg/ir"
	"minc/pkg/lexer"
	"minc/pkg/parser"
)

func irFrom(t *testing.T, src string) *ir.Program {
	t.Helper()
	tokens, err := lexer.NewLexer([]rune(src)).ScanAll()
	if err != nil {
		t.Fatal(err)
	}
	prog, err := parser.NewParser(tokens).Parse()
	if err != nil {
		t.Fatal(err)
	}
	tac, err := ir.NewGenerator().Generate(prog)
	if err != nil {
		t.Fatal(err)
	}
	return tac
}

// normalize strips indentation so listings can be written inline.
func normalize(listing string) []string {
	var lines []string
	for _, line := range strings.Split(listing, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func expectTAC(t *testing.T, got *ir.Program, want string) {
	t.Helper()
	if diff := cmp.Diff(normalize(want), normalize(got.Dump())); diff != "" {
		t.Errorf("TAC mismatch (-want +got):\n%s", diff)
	}
}

func TestPrecedenceLowering(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int x;
			x = 2 + 3 * 4;
			return x;
		}
	`)
	expectTAC(t, tac, `
		func main()
		t0 = 3 * 4
		t1 = 2 + t0
		x = t1
		return x
		endfunc main
	`)
}

func TestDeclWithoutInitEmitsNothing(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int x;
			return 0;
		}
	`)
	expectTAC(t, tac, `
		func main()
		return 0
		endfunc main
	`)
}

func TestIfElseUsesExactlyTwoLabels(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int x = 1;
			int y = 0;
			if (x > 0) { y = 1; } else { y = 2; }
			return y;
		}
	`)
	expectTAC(t, tac, `
		func main()
		x = 1
		y = 0
		t0 = x > 0
		ifFalse t0 goto L0
		y = 1
		goto L1
		L0:
		y = 2
		L1:
		return y
		endfunc main
	`)
}

func TestIfWithoutElseUsesOneLabel(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int y = 0;
			if (y < 1) { y = 1; }
			return y;
		}
	`)
	expectTAC(t, tac, `
		func main()
		y = 0
		t0 = y < 1
		ifFalse t0 goto L0
		y = 1
		L0:
		return y
		endfunc main
	`)
}

func TestWhileLowering(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int i = 0;
			while (i < 3) { i = i + 1; }
			return i;
		}
	`)
	expectTAC(t, tac, `
		func main()
		i = 0
		L0:
		t0 = i < 3
		ifFalse t0 goto L1
		t1 = i + 1
		i = t1
		goto L0
		L1:
		return i
		endfunc main
	`)
}

func TestForDesugarsToWhilePattern(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int total = 0;
			for (int i = 0; i < 3; i = i + 1) {
				total = total + i;
			}
			return total;
		}
	`)
	expectTAC(t, tac, `
		func main()
		total = 0
		i = 0
		L0:
		t0 = i < 3
		ifFalse t0 goto L1
		t1 = total + i
		total = t1
		t2 = i + 1
		i = t2
		goto L0
		L1:
		return total
		endfunc main
	`)
}

func TestCallEmitsParamsInOrder(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			return add(1, 2);
		}
		int add(int a, int b) {
			return a + b;
		}
	`)
	expectTAC(t, tac, `
		func main()
		param 1
		param 2
		t0 = call add(1, 2)
		return t0
		endfunc main
		func add(a, b)
		t1 = a + b
		return t1
		endfunc add
	`)
}

func TestStatementCallHasNoDestination(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			printf("hi\n");
			return 0;
		}
	`)
	for _, in := range tac.Instructions {
		if in.Op == ir.OpCall {
			if in.Dest != "" {
				t.Errorf("statement-position call allocated destination %q", in.Dest)
			}
			return
		}
	}
	t.Fatal("no call instruction emitted")
}

func TestStringTableDeduplicates(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			printf("same\n");
			printf("same\n");
			printf("other\n");
			return 0;
		}
	`)
	if tac.Strings.Len() != 2 {
		t.Fatalf("expected 2 interned strings, got %d", tac.Strings.Len())
	}
	entries := tac.Strings.Entries()
	if entries[0].Label != "str0" || entries[1].Label != "str1" {
		t.Errorf("unexpected labels: %v", entries)
	}
	if entries[0].Content != `same\n` {
		t.Errorf("string content must keep escapes verbatim, got %q", entries[0].Content)
	}
}

func TestUniqueNamesAcrossUnit(t *testing.T) {
	tac := irFrom(t, `
		int first(int x) {
			if (x > 0) { return 1; }
			return 0;
		}
		int second(int x) {
			if (x > 1) { return 2; }
			return 0;
		}
		int main() {
			return first(1) + second(2);
		}
	`)

	temps := make(map[string]bool)
	labels := make(map[string]bool)
	for _, in := range tac.Instructions {
		if in.Op == ir.OpLabel {
			if labels[in.Target] {
				t.Errorf("label %s defined twice", in.Target)
			}
			labels[in.Target] = true
		}
		if (in.Op == ir.OpBinOp || in.Op == ir.OpUnaryOp || (in.Op == ir.OpCall && in.Dest != "")) && strings.HasPrefix(in.Dest, "t") {
			if temps[in.Dest] {
				t.Errorf("temporary %s defined twice", in.Dest)
			}
			temps[in.Dest] = true
		}
	}
	if len(labels) < 2 || len(temps) < 2 {
		t.Errorf("expected labels and temps from both functions, got %d labels, %d temps", len(labels), len(temps))
	}
}

func TestUnaryLowering(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int x = 5;
			int y = -x;
			return y;
		}
	`)
	expectTAC(t, tac, `
		func main()
		x = 5
		t0 = -x
		y = t0
		return y
		endfunc main
	`)
}

func TestAtMostThreeOperandSlots(t *testing.T) {
	tac := irFrom(t, `
		int main() {
			int a = 1;
			int b = 2;
			int c = 3;
			int d = a + b * c - a / b;
			return d;
		}
	`)
	for _, in := range tac.Instructions {
		slots := 0
		for _, s := range []string{in.Dest, in.Src, in.Src2} {
			if s != "" {
				slots++
			}
		}
		if slots > 3 {
			t.Errorf("instruction %q fills %d operand slots", in, slots)
		}
	}
}
