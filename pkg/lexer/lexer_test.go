package lexer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"minc/pkg/token"
	"minc/pkg/util"
)

func scan(t *testing.T, src string) []token.Token {
	t.Helper()
	tokens, err := NewLexer([]rune(src)).ScanAll()
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return tokens
}

func types(tokens []token.Token) []token.Type {
	out := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestEmptyInput(t *testing.T) {
	tokens := scan(t, "")
	if len(tokens) != 1 || tokens[0].Type != token.EOF {
		t.Errorf("expected a lone EOF token, got %v", tokens)
	}
}

func TestDeclaration(t *testing.T) {
	tokens := scan(t, "int x = 42;")
	want := []token.Type{token.Int, token.Ident, token.Assign, token.Number, token.Semi, token.EOF}
	if diff := cmp.Diff(want, types(tokens)); diff != "" {
		t.Errorf("token stream mismatch (-want +got):\n%s", diff)
	}
	if tokens[1].Value != "x" || tokens[3].Value != "42" {
		t.Errorf("unexpected lexemes: %q %q", tokens[1].Value, tokens[3].Value)
	}
}

func TestOperators(t *testing.T) {
	tokens := scan(t, "== != <= >= && || + - * / % < > = !")
	want := []token.Type{
		token.EqEq, token.Neq, token.Lte, token.Gte, token.AndAnd, token.OrOr,
		token.Plus, token.Minus, token.Star, token.Slash, token.Percent,
		token.Lt, token.Gt, token.Assign, token.Not, token.EOF,
	}
	if diff := cmp.Diff(want, types(tokens)); diff != "" {
		t.Errorf("token stream mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywords(t *testing.T) {
	tokens := scan(t, "int bool float string void if else while for return")
	want := []token.Type{
		token.Int, token.Bool, token.Float, token.StringKeyword, token.Void,
		token.If, token.Else, token.While, token.For, token.Return, token.EOF,
	}
	if diff := cmp.Diff(want, types(tokens)); diff != "" {
		t.Errorf("token stream mismatch (-want +got):\n%s", diff)
	}
}

func TestFloatLiteral(t *testing.T) {
	tokens := scan(t, "3.14 42")
	if tokens[0].Type != token.FloatNumber || tokens[0].Value != "3.14" {
		t.Errorf("expected float token for 3.14, got %v %q", tokens[0].Type, tokens[0].Value)
	}
	if tokens[1].Type != token.Number || tokens[1].Value != "42" {
		t.Errorf("expected integer token for 42, got %v %q", tokens[1].Type, tokens[1].Value)
	}
}

func TestStringKeepsEscapesVerbatim(t *testing.T) {
	tokens := scan(t, `"hello\n\tworld"`)
	if tokens[0].Type != token.String {
		t.Fatalf("expected string token, got %v", tokens[0].Type)
	}
	if tokens[0].Value != `hello\n\tworld` {
		t.Errorf("expected verbatim escapes, got %q", tokens[0].Value)
	}
}

func TestComments(t *testing.T) {
	tokens := scan(t, "int x; // trailing\n/* block\ncomment */ int y;")
	want := []token.Type{token.Int, token.Ident, token.Semi, token.Int, token.Ident, token.Semi, token.EOF}
	if diff := cmp.Diff(want, types(tokens)); diff != "" {
		t.Errorf("token stream mismatch (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	tokens := scan(t, "int x;\nint y;")
	if tokens[0].Line != 1 || tokens[3].Line != 2 {
		t.Errorf("line tracking broken: %d %d", tokens[0].Line, tokens[3].Line)
	}
	if tokens[4].Column <= tokens[3].Column {
		t.Errorf("column tracking broken: %d vs %d", tokens[3].Column, tokens[4].Column)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := NewLexer([]rune(`"no closing quote`)).ScanAll()
	var diag *util.Diag
	if !errors.As(err, &diag) || diag.Phase != util.PhaseLexical {
		t.Fatalf("expected a lexical diagnostic, got %v", err)
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	_, err := NewLexer([]rune("int x @ 1;")).ScanAll()
	var diag *util.Diag
	if !errors.As(err, &diag) || diag.Phase != util.PhaseLexical {
		t.Fatalf("expected a lexical diagnostic, got %v", err)
	}
}
