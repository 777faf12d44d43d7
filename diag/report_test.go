package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/slate/compiler"
	"github.com/chazu/slate/vm"
	"github.com/google/go-cmp/cmp"
)

func pos(line, col int) vm.Position { return vm.Position{Line: line, Column: col} }

func TestCarets(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		start, end vm.Position
		want       string
	}{
		{"single", "x = 1 2", pos(1, 7), pos(1, 8), "      ^"},
		{"wide", "foo(1) + 22", pos(1, 1), pos(1, 12), "^^^^^^^^^^^"},
		{"empty span", "abc", pos(1, 2), pos(1, 2), " ^"},
		{"past end", "1 +", pos(1, 4), pos(1, 5), "   ^"},
		{"multi line", "f(1,", pos(1, 3), pos(2, 4), "  ^^"},
		{"tabs", "\t\tx y", pos(1, 5), pos(1, 6), "\t\t  ^"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Carets(tc.line, tc.start, tc.end); got != tc.want {
				t.Errorf("Carets = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReportSyntaxError(t *testing.T) {
	file := compiler.NewSourceFile("main.sl", "y = 2\nx = 1 2\n")
	_, err := compiler.Parse(file)
	if err == nil {
		t.Fatal("expected a syntax error")
	}

	var buf bytes.Buffer
	NewReporter(&buf, "never").Report(file, err)

	want := []string{
		"error[E005]: " + err.(*compiler.SyntaxError).Msg,
		"main.sl:2:7",
		"2 | x = 1 2",
		"  |       ^",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestReportException(t *testing.T) {
	file := compiler.NewSourceFile("main.sl", "a = 1\nb = a + missing\n")
	v := vm.New()
	code, err := compiler.Compile(v, file)
	if err != nil {
		t.Fatal(err)
	}
	_, err = v.Execute(code)
	if err == nil {
		t.Fatal("expected NameExc")
	}

	var buf bytes.Buffer
	NewReporter(&buf, "never").Report(file, err)

	want := []string{
		`NameExc: "Name 'missing' not defined"`,
		"main.sl:2:9",
		"2 | b = a + missing",
		"  |         ^^^^^^^",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestReportColors(t *testing.T) {
	file := compiler.NewSourceFile("t.sl", "1 2")
	_, err := compiler.Parse(file)

	var buf bytes.Buffer
	NewReporter(&buf, "always").Report(file, err)
	out := buf.String()

	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected ANSI sequences in %q", out)
	}
	if !strings.Contains(out, "error[E005]") || !strings.Contains(out, "t.sl:1:3") {
		t.Errorf("missing report text in %q", out)
	}
}

func TestReportPlainError(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, "never").Report(nil, errors.New("reading x.sl: no such file"))
	if got := buf.String(); got != "error: reading x.sl: no such file\n" {
		t.Errorf("got %q", got)
	}
}

func TestReportUnplacedException(t *testing.T) {
	v := vm.New()
	exc := v.Raise(vm.TypeValueExc, "bad")

	var buf bytes.Buffer
	NewReporter(&buf, "never").Report(compiler.NewSourceFile("t.sl", ""), exc)
	if got := buf.String(); got != "ValueExc: \"bad\"\n" {
		t.Errorf("got %q", got)
	}
}

func TestInternal(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf, "never").Internal(&vm.Defect{Msg: "temp stack underflow"})
	if got := buf.String(); got != "internal error: temp stack underflow\n" {
		t.Errorf("got %q", got)
	}
}
