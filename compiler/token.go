package compiler

import (
	"fmt"

	"github.com/chazu/slate/vm"
)

// ---------------------------------------------------------------------------
// Token types for the slate lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenUnknown
	TokenNewline

	// Literals
	TokenDecimal    // 42, 1_000
	TokenString     // "hello"
	TokenIdentifier // foo, Bar

	// Operators
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenStarStar // **
	TokenSlash    // /
	TokenAssign   // =

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenColon     // :
	TokenDot       // .
	TokenSemicolon // ;

	// Keywords
	TokenFn
	TokenReturn
	TokenClass
	TokenTrue
	TokenFalse
	TokenNone
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenUnknown:    "UNKNOWN",
	TokenNewline:    "NEWLINE",
	TokenDecimal:    "DECIMAL",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenStarStar:   "**",
	TokenSlash:      "/",
	TokenAssign:     "=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenDot:        ".",
	TokenSemicolon:  ";",
	TokenFn:         "fn",
	TokenReturn:     "return",
	TokenClass:      "class",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenNone:       "none",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenFn && t <= TokenNone
}

// Token represents a lexical token. End is exclusive.
type Token struct {
	Type    TokenType
	Literal string // the raw text; for strings, the unescaped contents
	Start   vm.Position
	End     vm.Position
}

// Line returns the 1-based line the token starts on.
func (t Token) Line() int { return t.Start.Line }

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"fn":     TokenFn,
	"return": TokenReturn,
	"class":  TokenClass,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"none":   TokenNone,
}
