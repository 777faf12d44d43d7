package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/slate/vm"
)

// sexpr renders an expression as a compact prefix form for comparisons.
func sexpr(e Expr) string {
	switch n := e.(type) {
	case *IntLiteral:
		return n.Text
	case *StringLiteral:
		return fmt.Sprintf("%q", n.Value)
	case *BoolLiteral:
		return fmt.Sprint(n.Value)
	case *NoneLiteral:
		return "none"
	case *Name:
		return n.Name
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", n.Op, sexpr(n.Left), sexpr(n.Right))
	case *Negate:
		return "(neg " + sexpr(n.Operand) + ")"
	case *Call:
		return "(call " + joinExprs(append([]Expr{n.Callee}, n.Args...)) + ")"
	case *Attribute:
		return "(attr " + sexpr(n.Object) + " " + n.Name + ")"
	case *Index:
		return "(index " + sexpr(n.Object) + " " + sexpr(n.Key) + ")"
	case *ListLiteral:
		return strings.TrimSuffix("(list "+joinExprs(n.Elements), " ") + ")"
	case *DictLiteral:
		var parts []string
		for i := range n.Keys {
			parts = append(parts, sexpr(n.Keys[i])+":"+sexpr(n.Values[i]))
		}
		return strings.TrimSuffix("(dict "+strings.Join(parts, " "), " ") + ")"
	}
	return fmt.Sprintf("<%T>", e)
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = sexpr(e)
	}
	return strings.Join(parts, " ")
}

func TestParserExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"1_000", "1_000"},
		{`"hi"`, `"hi"`},
		{"true", "true"},
		{"none", "none"},
		{"1 + 2 * 3", "(add 1 (mul 2 3))"},
		{"1 - 2 - 3", "(sub (sub 1 2) 3)"},
		{"(1 + 2) * 3", "(mul (add 1 2) 3)"},
		{"8 / 2 / 2", "(div (div 8 2) 2)"},
		{"2 ** 3 ** 2", "(pow 2 (pow 3 2))"},
		{"-2 ** 2", "(neg (pow 2 2))"},
		{"-5", "-5"},
		{"--5", "(neg -5)"},
		{"- x", "(neg x)"},
		{"2 ** -1", "(pow 2 -1)"},
		{"f()", "(call f)"},
		{"f(1, g(2))", "(call f 1 (call g 2))"},
		{"a.b(1)[2]", "(index (call (attr a b) 1) 2)"},
		{"[1, [2], ]", "(list 1 (list 2))"},
		{"[]", "(list)"},
		{`{"k": 1, 2: x}`, `(dict "k":1 2:x)`},
		{"{}", "(dict)"},
	}

	for _, tc := range tests {
		expr, err := NewParser(tc.input).ParseExpression()
		if err != nil {
			t.Errorf("%q: parse error: %v", tc.input, err)
			continue
		}
		if got := sexpr(expr); got != tc.want {
			t.Errorf("%q parsed as %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserStatements(t *testing.T) {
	src := `x = 1
fn f(a, b) { return a }
class C(B, D) { y = 2 }
obj.z = 3; d[0] = 4
fn g() {
    return
}`
	prog, err := Parse(NewSourceFile("t.sl", src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Statements) != 6 {
		t.Fatalf("got %d statements, want 6", len(prog.Statements))
	}

	if a, ok := prog.Statements[0].(*Assign); !ok || sexpr(a.Target) != "x" || sexpr(a.Value) != "1" {
		t.Errorf("stmt 0 = %#v", prog.Statements[0])
	}

	fn, ok := prog.Statements[1].(*FunctionDef)
	if !ok {
		t.Fatalf("stmt 1 is %T", prog.Statements[1])
	}
	if fn.Name != "f" || strings.Join(fn.Params, ",") != "a,b" || len(fn.Body) != 1 {
		t.Errorf("function = %s(%v) with %d statements", fn.Name, fn.Params, len(fn.Body))
	}

	cls, ok := prog.Statements[2].(*ClassDef)
	if !ok {
		t.Fatalf("stmt 2 is %T", prog.Statements[2])
	}
	if cls.Name != "C" || joinExprs(cls.Bases) != "B D" || len(cls.Body) != 1 {
		t.Errorf("class = %s(%s) with %d statements", cls.Name, joinExprs(cls.Bases), len(cls.Body))
	}

	if a, ok := prog.Statements[3].(*Assign); !ok || sexpr(a.Target) != "(attr obj z)" {
		t.Errorf("stmt 3 = %#v", prog.Statements[3])
	}
	if a, ok := prog.Statements[4].(*Assign); !ok || sexpr(a.Target) != "(index d 0)" {
		t.Errorf("stmt 4 = %#v", prog.Statements[4])
	}

	g := prog.Statements[5].(*FunctionDef)
	if r, ok := g.Body[0].(*Return); !ok || sexpr(r.Value) != "none" {
		t.Errorf("bare return = %#v", g.Body[0])
	}
}

func TestParserNewlinesInsideBrackets(t *testing.T) {
	src := "f(1,\n  2)\nx = [\n  1,\n  2,\n]\n{\n\"k\":\n 1}"
	prog, err := Parse(NewSourceFile("t.sl", src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(prog.Statements) != 3 {
		t.Errorf("got %d statements, want 3", len(prog.Statements))
	}
}

func TestParserSpans(t *testing.T) {
	expr, err := NewParser("foo(1) + 22").ParseExpression()
	if err != nil {
		t.Fatal(err)
	}
	span := expr.Span()
	if span.Start.Column != 1 || span.End.Column != 12 {
		t.Errorf("span = %v-%v, want 1:1-1:12", span.Start, span.End)
	}
	call := expr.(*Binary).Left.Span()
	if call.End.Column != 7 {
		t.Errorf("call ends at column %d, want 7", call.End.Column)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  ErrorKind
	}{
		{"1 +", UnexpectedEOF},
		{"(1 + 2", UnexpectedEOF},
		{"fn f() {\n  1", UnexpectedEOF},
		{"1 2", TrailingAtomics},
		{"1a", TrailingAtomics},
		{`x "s"`, TrailingAtomics},
		{"x = fn", FunctionNotExpression},
		{"[fn]", FunctionNotExpression},
		{"x = return", UnknownKeyword},
		{"1 + class", UnknownKeyword},
		{"fn class() {}", UnknownKeyword},
		{"1 + )", UnexpectedToken},
		{"fn f( { }", UnexpectedToken},
		{"@", UnexpectedToken},
		{`"abc`, UnexpectedToken},
		{"1 = 2", UnexpectedToken},
		{"f() = 2", UnexpectedToken},
		{"x (", UnexpectedEOF},
		{"1 }", UnexpectedToken},
	}

	for _, tc := range tests {
		_, err := Parse(NewSourceFile("t.sl", tc.input))
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: got %v, want a syntax error", tc.input, err)
			continue
		}
		if se.Kind != tc.kind {
			t.Errorf("%q: kind = %s (%s), want %s", tc.input, se.Kind, se.Msg, tc.kind)
		}
	}
}

func TestSyntaxErrorReport(t *testing.T) {
	_, err := Parse(NewSourceFile("t.sl", "x = 1 2"))
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("got %v", err)
	}
	if se.Code() != "E005" {
		t.Errorf("Code() = %s, want E005", se.Code())
	}
	if !strings.HasPrefix(se.Error(), "error[E005]: ") {
		t.Errorf("Error() = %q", se.Error())
	}
	want := vm.Position{Offset: 6, Line: 1, Column: 7}
	if se.Start != want {
		t.Errorf("Start = %+v, want %+v", se.Start, want)
	}
}

func TestErrorKindDescriptions(t *testing.T) {
	for k := UnexpectedToken; k <= TrailingAtomics; k++ {
		if k.Description() == "" || k.Description() == "unknown error" {
			t.Errorf("%s has no description", k)
		}
	}
	if !strings.Contains(UnexpectedEOF.Description(), "end-of-file") {
		t.Errorf("UnexpectedEOF description = %q", UnexpectedEOF.Description())
	}
	if FunctionNotExpression.Code() != "E004" {
		t.Errorf("FunctionNotExpression code = %s", FunctionNotExpression.Code())
	}
}
