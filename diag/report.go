// Package diag renders slate errors for the terminal: a header, the source
// location, the offending line and a caret span under it.
package diag

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chazu/slate/compiler"
	"github.com/chazu/slate/manifest"
	"github.com/chazu/slate/vm"
	"github.com/muesli/termenv"
)

// spanned is implemented by *compiler.SyntaxError and *vm.Exception.
type spanned interface {
	error
	Span() (vm.Position, vm.Position)
}

// Reporter writes colored error reports to a writer.
type Reporter struct {
	w   io.Writer
	out *termenv.Output
}

// NewReporter creates a reporter for w. mode is one of the manifest color
// modes; auto picks a profile from the terminal and environment (NO_COLOR is
// honored).
func NewReporter(w io.Writer, mode string) *Reporter {
	var opts []termenv.OutputOption
	switch mode {
	case manifest.ColorAlways:
		opts = append(opts, termenv.WithProfile(termenv.ANSI))
	case manifest.ColorNever:
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &Reporter{w: w, out: termenv.NewOutput(w, opts...)}
}

func (r *Reporter) paint(s string, c termenv.Color, bold bool) string {
	st := r.out.String(s).Foreground(c)
	if bold {
		st = st.Bold()
	}
	return st.String()
}

// Report prints err. Syntax errors and exceptions with a recorded span get
// the location, snippet and caret lines; anything else gets the header only.
func (r *Reporter) Report(file *compiler.SourceFile, err error) {
	var sp spanned
	if !errors.As(err, &sp) {
		fmt.Fprintln(r.w, r.paint("error: "+err.Error(), termenv.ANSIRed, true))
		return
	}

	fmt.Fprintln(r.w, r.paint(sp.Error(), termenv.ANSIRed, true))
	start, end := sp.Span()
	if start.Line == 0 || file == nil {
		return
	}
	fmt.Fprintln(r.w, r.paint(fmt.Sprintf("%s:%d:%d", file.Name, start.Line, start.Column), termenv.ANSIRed, false))

	line := file.Line(start.Line)
	num := strconv.Itoa(start.Line)
	fmt.Fprintf(r.w, "%s | %s\n", r.paint(num, termenv.ANSIBlue, true), r.paint(line, termenv.ANSIBlue, false))
	fmt.Fprintf(r.w, "%s | %s\n", strings.Repeat(" ", len(num)), r.paint(Carets(line, start, end), termenv.ANSIGreen, false))
}

// Internal prints a recovered VM defect.
func (r *Reporter) Internal(d *vm.Defect) {
	fmt.Fprintln(r.w, r.paint("internal error: "+d.Msg, termenv.ANSIRed, true))
}

// Carets returns the marker line for the span start..end on line. Tabs in
// the indentation are kept so the carets line up. A span running past the
// line is marked to its end, and at least one caret is always drawn.
func Carets(line string, start, end vm.Position) string {
	var b strings.Builder
	col := 1
	for _, ch := range line {
		if col >= start.Column {
			break
		}
		if ch == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
		col++
	}
	for ; col < start.Column; col++ {
		b.WriteByte(' ')
	}

	n := end.Column - start.Column
	if end.Line != start.Line {
		n = utf8.RuneCountInString(line) - start.Column + 1
	}
	if n < 1 {
		n = 1
	}
	b.WriteString(strings.Repeat("^", n))
	return b.String()
}
