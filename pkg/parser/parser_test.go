package parser

import (
	"errors"
	"strings"
	"testing"

	"minc/pkg/ast"
	"minc/pkg/lexer"
	"minc/pkg/util"
)

func parseSource(t *testing.T, src string) (*ast.Node, error) {
	t.Helper()
	tokens, err := lexer.NewLexer([]rune(src)).ScanAll()
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	return NewParser(tokens).Parse()
}

func expectSemanticErr(t *testing.T, src, fragment string) {
	t.Helper()
	_, err := parseSource(t, src)
	var diag *util.Diag
	if !errors.As(err, &diag) {
		t.Fatalf("expected an error containing %q, got none", fragment)
	}
	if diag.Phase != util.PhaseSemantic {
		t.Fatalf("expected a semantic diagnostic, got %v: %v", diag.Phase, diag)
	}
	if !strings.Contains(diag.Msg, fragment) {
		t.Errorf("diagnostic %q does not mention %q", diag.Msg, fragment)
	}
}

func TestEmptyInput(t *testing.T) {
	prog, err := parseSource(t, "")
	if err != nil {
		t.Fatalf("expected no error for empty input, got %v", err)
	}
	if prog.Type != ast.Program {
		t.Errorf("expected a Program node, got %v", prog.Type)
	}
}

func TestSimpleFunction(t *testing.T) {
	prog, err := parseSource(t, `
		int main() {
			int x = 1;
			return x;
		}
	`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	items := prog.Data.(ast.ProgramNode).Items
	if len(items) != 1 || items[0].Type != ast.FuncDecl {
		t.Fatalf("expected one function declaration, got %v", items)
	}
	fn := items[0].Data.(ast.FuncDeclNode)
	if fn.Name != "main" || fn.ReturnType != ast.TypeInt {
		t.Errorf("unexpected signature: %s %v", fn.Name, fn.ReturnType)
	}
}

func TestPrecedence(t *testing.T) {
	prog, err := parseSource(t, `
		int main() {
			int x;
			x = 2 + 3 * 4;
			return x;
		}
	`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	body := prog.Data.(ast.ProgramNode).Items[0].Data.(ast.FuncDeclNode).Body
	assign := body.Data.(ast.BlockNode).Stmts[1].Data.(ast.AssignNode)

	// The tree must be 2 + (3 * 4), not (2 + 3) * 4.
	root := assign.Expr.Data.(ast.BinaryOpNode)
	if root.Op.Lexeme() != "+" {
		t.Fatalf("expected '+' at the root, got %q", root.Op.Lexeme())
	}
	right := root.Right.Data.(ast.BinaryOpNode)
	if right.Op.Lexeme() != "*" {
		t.Errorf("expected '*' on the right, got %q", right.Op.Lexeme())
	}
}

func TestLeftAssociativity(t *testing.T) {
	prog, err := parseSource(t, `
		int main() {
			int x;
			x = 10 - 3 - 2;
			return x;
		}
	`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	body := prog.Data.(ast.ProgramNode).Items[0].Data.(ast.FuncDeclNode).Body
	assign := body.Data.(ast.BlockNode).Stmts[1].Data.(ast.AssignNode)

	// (10 - 3) - 2: the left child is itself a subtraction.
	root := assign.Expr.Data.(ast.BinaryOpNode)
	if root.Left.Type != ast.BinaryOp {
		t.Errorf("expected a left-leaning tree, left child is %v", root.Left.Type)
	}
}

func TestForwardReference(t *testing.T) {
	_, err := parseSource(t, `
		int main() {
			return add(1, 2);
		}
		int add(int a, int b) {
			return a + b;
		}
	`)
	if err != nil {
		t.Fatalf("expected forward reference to resolve, got %v", err)
	}
}

func TestUndeclaredFunction(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			return foo(1);
		}
	`, "'foo' not declared")
}

func TestArityMismatch(t *testing.T) {
	expectSemanticErr(t, `
		int add(int a, int b) {
			return a + b;
		}
		int main() {
			return add(1, 2, 3);
		}
	`, "expects 2 argument(s), got 3")
}

func TestArgumentTypeMismatch(t *testing.T) {
	expectSemanticErr(t, `
		int twice(int a) {
			return a + a;
		}
		int main() {
			string s = "hi";
			return twice(s);
		}
	`, "cannot pass string")
}

func TestUndeclaredVariable(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			x = 1;
			return 0;
		}
	`, "'x' not declared")
}

func TestVariableRedeclaration(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			int x = 1;
			int x = 2;
			return x;
		}
	`, "'x' redeclared")
}

func TestFunctionRedeclaration(t *testing.T) {
	expectSemanticErr(t, `
		int foo() { return 1; }
		int foo() { return 2; }
		int main() { return foo(); }
	`, "'foo' redeclared")
}

func TestScopeEndsWithFunction(t *testing.T) {
	expectSemanticErr(t, `
		int first() {
			int x = 1;
			return x;
		}
		int second() {
			return x;
		}
		int main() { return second(); }
	`, "'x' not declared")
}

func TestAssignTypeMismatch(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			int x;
			x = "hello";
			return x;
		}
	`, "cannot assign string")
}

func TestOperatorTypeMismatch(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			string s = "a";
			int x = s - 1;
			return x;
		}
	`, "requires numeric operands")
}

func TestStringConcatenation(t *testing.T) {
	_, err := parseSource(t, `
		int main() {
			string a = "foo";
			string b = "bar";
			string c = a + b;
			return 0;
		}
	`)
	if err != nil {
		t.Fatalf("expected string '+' to be allowed, got %v", err)
	}
}

func TestIntWidensToFloat(t *testing.T) {
	_, err := parseSource(t, `
		float half(float x) {
			return x / 2;
		}
		int main() {
			float f = half(3);
			return 0;
		}
	`)
	if err != nil {
		t.Fatalf("expected int to widen to float, got %v", err)
	}
}

func TestFloatDoesNotNarrow(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			int x = 2.5;
			return x;
		}
	`, "cannot initialize int")
}

func TestReturnTypeMismatch(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			return "hello";
		}
	`, "cannot return string")
}

func TestVoidReturnWithValue(t *testing.T) {
	expectSemanticErr(t, `
		void noop() {
			return 1;
		}
		int main() { return 0; }
	`, "void function cannot return a value")
}

func TestMissingReturn(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			int x = 1;
		}
	`, "without a return")
}

func TestMissingReturnInElse(t *testing.T) {
	expectSemanticErr(t, `
		int sign(int x) {
			if (x > 0) {
				return 1;
			} else {
				int y = 0;
			}
		}
		int main() { return sign(3); }
	`, "without a return")
}

func TestIfElseBothReturn(t *testing.T) {
	_, err := parseSource(t, `
		int sign(int x) {
			if (x > 0) {
				return 1;
			} else {
				return 0;
			}
		}
		int main() { return sign(3); }
	`)
	if err != nil {
		t.Fatalf("expected both-arms return to satisfy the check, got %v", err)
	}
}

func TestLoopDoesNotGuaranteeReturn(t *testing.T) {
	expectSemanticErr(t, `
		int spin() {
			while (1 < 2) {
				return 1;
			}
		}
		int main() { return spin(); }
	`, "without a return")
}

func TestConditionMustBeBoolean(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			string s = "x";
			if (s) {
				return 1;
			}
			return 0;
		}
	`, "condition must be boolean or numeric")
}

func TestLogicalOperandsMustBeBool(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			string s = "x";
			bool b = s && s;
			return 0;
		}
	`, "requires bool operands")
}

func TestPrintfChecks(t *testing.T) {
	_, err := parseSource(t, `
		int main() {
			int x = 42;
			printf("x=%d\n", x);
			return 0;
		}
	`)
	if err != nil {
		t.Fatalf("expected printf call to pass, got %v", err)
	}

	expectSemanticErr(t, `
		int main() {
			printf();
			return 0;
		}
	`, "requires at least a format string")

	expectSemanticErr(t, `
		int main() {
			int x = 1;
			printf(x);
			return 0;
		}
	`, "must be a string literal")

	expectSemanticErr(t, `
		int main() {
			int x = 1;
			printf("%d\n", x + 1);
			return 0;
		}
	`, "must be declared variables")
}

func TestScanfArgsMustBeVariables(t *testing.T) {
	expectSemanticErr(t, `
		int main() {
			scanf("%d", 5);
			return 0;
		}
	`, "must be declared variables")
}

func TestStatementAtTopLevelRejected(t *testing.T) {
	_, err := parseSource(t, `
		int x = 1;
		int main() {
			return 0;
		}
	`)
	var diag *util.Diag
	if !errors.As(err, &diag) || diag.Phase != util.PhaseSyntax {
		t.Fatalf("expected a syntax diagnostic, got %v", err)
	}
	if !strings.Contains(diag.Msg, "top level") {
		t.Errorf("diagnostic %q does not mention the top level", diag.Msg)
	}
}

func TestSyntaxError(t *testing.T) {
	_, err := parseSource(t, `
		int main() {
			int x = ;
			return 0;
		}
	`)
	var diag *util.Diag
	if !errors.As(err, &diag) || diag.Phase != util.PhaseSyntax {
		t.Fatalf("expected a syntax diagnostic, got %v", err)
	}
}

func TestForLoop(t *testing.T) {
	_, err := parseSource(t, `
		int main() {
			int total = 0;
			for (int i = 0; i < 10; i = i + 1) {
				total = total + i;
			}
			return total;
		}
	`)
	if err != nil {
		t.Fatalf("expected for loop to parse, got %v", err)
	}
}
