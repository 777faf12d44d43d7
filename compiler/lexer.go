package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/slate/vm"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for slate source
// ---------------------------------------------------------------------------

// Lexer tokenizes slate source code. Columns count runes, starting at 1.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at EOF
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of its input.
func (l *Lexer) Reset() {
	l.pos, l.readPos = 0, 0
	l.line, l.col = 1, 0
	l.ch = 0
	l.readChar()
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the position of the current character.
func (l *Lexer) position() vm.Position {
	return vm.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) token(t TokenType, lit string, start vm.Position) Token {
	return Token{Type: t, Literal: lit, Start: start, End: l.position()}
}

// single consumes one character and returns it as a token of type t.
func (l *Lexer) single(t TokenType, start vm.Position) Token {
	lit := string(l.ch)
	l.readChar()
	return l.token(t, lit, start)
}

// NextToken returns the next token. Once the input is exhausted it keeps
// returning EOF.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Start: pos, End: vm.Position{Offset: pos.Offset, Line: pos.Line, Column: pos.Column + 1}}

	case l.ch == '\n':
		// The end stays on the newline's own line.
		l.readChar()
		return Token{Type: TokenNewline, Literal: "\n", Start: pos, End: vm.Position{Offset: pos.Offset + 1, Line: pos.Line, Column: pos.Column + 1}}

	case l.ch == '*':
		if l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			return l.token(TokenStarStar, "**", pos)
		}
		return l.single(TokenStar, pos)

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)
	}

	if t, ok := punctuation[l.ch]; ok {
		return l.single(t, pos)
	}
	return l.single(TokenUnknown, pos)
}

var punctuation = map[rune]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'/': TokenSlash,
	'=': TokenAssign,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
	',': TokenComma,
	':': TokenColon,
	'.': TokenDot,
	';': TokenSemicolon,
}

// skipWhitespaceAndComments skips blanks and # comments, stopping at a
// newline.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readString reads a double-quoted string literal.
func (l *Lexer) readString(pos vm.Position) Token {
	l.readChar() // consume opening "

	var sb strings.Builder
	for l.ch != '"' {
		switch l.ch {
		case 0, '\n':
			return l.token(TokenError, "unterminated string", pos)
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"', '\\':
				sb.WriteRune(l.ch)
			case 0, '\n':
				return l.token(TokenError, "unterminated string", pos)
			default:
				sb.WriteRune('\\')
				sb.WriteRune(l.ch)
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
	l.readChar() // consume closing "

	return l.token(TokenString, sb.String(), pos)
}

// readNumber reads a decimal literal. Underscores may separate digits.
func (l *Lexer) readNumber(pos vm.Position) Token {
	start := l.pos
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.token(TokenDecimal, l.input[start:l.pos], pos)
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(pos vm.Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	literal := l.input[start:l.pos]
	if t, ok := reservedWords[literal]; ok {
		return l.token(t, literal, pos)
	}
	return l.token(TokenIdentifier, literal, pos)
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
