package compiler

import (
	"fmt"

	"github.com/chazu/slate/vm"
)

// ErrorKind classifies a syntax error.
type ErrorKind uint8

const (
	UnexpectedToken ErrorKind = iota
	UnknownKeyword
	UnexpectedEOF
	FunctionNotExpression
	TrailingAtomics
)

var errorDescriptions = [...]string{
	UnexpectedToken:       "Unexpected token: This token is not in an appropriate spot.",
	UnknownKeyword:        "Unknown keyword: Keyword was specified that does not exist.",
	UnexpectedEOF:         "Unexpected EOF: While parsing, encountered end-of-file (EOF) that is not valid.",
	FunctionNotExpression: "Function is not an expression: Functions may not be used as expressions",
	TrailingAtomics:       "Trailing atomic tokens are not allowed: Code like: `1a` or `a 1` is not allowed.",
}

// Code returns the error code, E001 through E005.
func (k ErrorKind) Code() string { return fmt.Sprintf("E%03d", int(k)+1) }

// Description returns the long explanation for the kind.
func (k ErrorKind) Description() string {
	if int(k) < len(errorDescriptions) {
		return errorDescriptions[k]
	}
	return "unknown error"
}

func (k ErrorKind) String() string { return k.Code() }

// SyntaxError is a lexing or parsing failure. Parsing stops at the first
// one.
type SyntaxError struct {
	Kind  ErrorKind
	Msg   string
	Start vm.Position
	End   vm.Position
}

// Error returns the header line, e.g. error[E001]: Invalid or unexpected token.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("error[%s]: %s", e.Kind.Code(), e.Msg)
}

// Code returns the kind's error code.
func (e *SyntaxError) Code() string { return e.Kind.Code() }

// Span returns the offending source span.
func (e *SyntaxError) Span() (vm.Position, vm.Position) { return e.Start, e.End }
