package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/slate/compiler"
	"github.com/chazu/slate/diag"
	"github.com/chazu/slate/vm"
)

// runREPL reads statements from in until EOF or :quit. Each input is
// compiled as its own module unit; globals persist between inputs. Input
// with unclosed brackets continues on the next line.
func runREPL(v *vm.VM, in io.Reader, out io.Writer, rep *diag.Reporter, dis bool) int {
	fmt.Fprintln(out, "slate REPL (type ':quit' to exit, ':help' for commands)")

	scanner := bufio.NewScanner(in)
	var lineBuffer strings.Builder

	for {
		// Show prompt
		if lineBuffer.Len() == 0 {
			fmt.Fprint(out, ">> ")
		} else {
			fmt.Fprint(out, ".. ")
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if lineBuffer.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "":
				continue
			case ":quit", ":q", "exit":
				fmt.Fprintln(out)
				return 0
			case ":dis":
				dis = !dis
				fmt.Fprintf(out, "disassembly %s\n", onOff(dis))
				continue
			case ":help", ":h":
				fmt.Fprintln(out, "REPL Commands:")
				fmt.Fprintln(out, "  :help, :h      Show this help")
				fmt.Fprintln(out, "  :dis           Toggle disassembly of each input")
				fmt.Fprintln(out, "  :quit, exit    Exit REPL")
				continue
			}
		}

		if lineBuffer.Len() > 0 {
			lineBuffer.WriteString("\n")
		}
		lineBuffer.WriteString(line)
		if openBrackets(lineBuffer.String()) > 0 {
			continue
		}

		input := lineBuffer.String()
		lineBuffer.Reset()
		evalAndPrint(v, input, out, rep, dis)
	}

	fmt.Fprintln(out)
	return 0
}

// evalAndPrint compiles and runs one REPL input, printing its result or
// reporting its error. A defect is reported and the session continues; the
// VM unwinds its frames before the panic reaches here.
func evalAndPrint(v *vm.VM, input string, out io.Writer, rep *diag.Reporter, dis bool) {
	src := compiler.NewSourceFile("<repl>", input)
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*vm.Defect)
			if !ok {
				panic(r)
			}
			rep.Internal(d)
		}
	}()

	code, err := compiler.Compile(v, src)
	if err != nil {
		rep.Report(src, err)
		return
	}
	if dis {
		fmt.Fprintln(out, v.Disassemble(code))
	}

	result, err := v.Execute(code)
	if err != nil {
		rep.Report(src, err)
		return
	}
	defer result.Drop()
	printResult(v, result, out, rep, src)
}

// openBrackets returns how many (, [ and { in src are still unclosed.
func openBrackets(src string) int {
	depth := 0
	for _, tok := range compiler.Tokenize(src) {
		switch tok.Type {
		case compiler.TokenLParen, compiler.TokenLBracket, compiler.TokenLBrace:
			depth++
		case compiler.TokenRParen, compiler.TokenRBracket, compiler.TokenRBrace:
			depth--
		}
	}
	return depth
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
