package compiler

import (
	"fmt"

	"github.com/chazu/slate/vm"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for slate syntax
// ---------------------------------------------------------------------------

// Parser parses slate source code into an AST. Newlines separate statements
// except inside (), [] and dict literals, where they are skipped.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	prevToken Token
	nesting   int
}

// bailout carries the first syntax error up to ParseProgram.
type bailout struct{ err *SyntaxError }

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.lexer.NextToken()
	for p.nesting > 0 && p.curToken.Type == TokenNewline {
		p.curToken = p.lexer.NextToken()
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// fail aborts parsing with an error at the current token.
func (p *Parser) fail(kind ErrorKind, format string, args ...any) {
	p.failAt(tokenSpan(p.curToken), kind, format, args...)
}

func (p *Parser) failAt(span Span, kind ErrorKind, format string, args ...any) {
	panic(bailout{&SyntaxError{
		Kind:  kind,
		Msg:   fmt.Sprintf(format, args...),
		Start: span.Start,
		End:   span.End,
	}})
}

// unexpected reports the current token as out of place.
func (p *Parser) unexpected() {
	switch tok := p.curToken; tok.Type {
	case TokenEOF:
		p.fail(UnexpectedEOF, "Unexpected end of file.")
	case TokenError:
		p.fail(UnexpectedToken, "Invalid token: %s.", tok.Literal)
	case TokenNewline:
		p.fail(UnexpectedToken, "Unexpected end of line.")
	default:
		p.fail(UnexpectedToken, "Invalid or unexpected token '%s'.", tok.Literal)
	}
}

// expect consumes a token of type t or fails.
func (p *Parser) expect(t TokenType) Token {
	if !p.curTokenIs(t) {
		p.unexpectedWant("'" + t.String() + "'")
	}
	tok := p.curToken
	p.nextToken()
	return tok
}

func (p *Parser) unexpectedWant(want string) {
	tok := p.curToken
	switch tok.Type {
	case TokenEOF:
		p.fail(UnexpectedEOF, "Expected %s, found end of file.", want)
	case TokenNewline:
		p.fail(UnexpectedToken, "Expected %s, found end of line.", want)
	case TokenError:
		p.fail(UnexpectedToken, "Invalid token: %s.", tok.Literal)
	}
	p.fail(UnexpectedToken, "Expected %s, found '%s'.", want, tok.Literal)
}

// open consumes an opening delimiter and starts skipping newlines.
func (p *Parser) open(t TokenType) Token {
	if !p.curTokenIs(t) {
		p.unexpectedWant("'" + t.String() + "'")
	}
	tok := p.curToken
	p.nesting++
	p.nextToken()
	return tok
}

// close consumes the matching closing delimiter.
func (p *Parser) close(t TokenType) Token {
	if !p.curTokenIs(t) {
		p.unexpectedWant("'" + t.String() + "'")
	}
	tok := p.curToken
	p.nesting--
	p.nextToken()
	return tok
}

func (p *Parser) expectIdent(what string) Token {
	if !p.curTokenIs(TokenIdentifier) {
		if p.curToken.Type.IsKeyword() {
			p.fail(UnknownKeyword, "Keyword '%s' cannot be used as %s.", p.curToken.Literal, what)
		}
		p.unexpectedWant(what)
	}
	tok := p.curToken
	p.nextToken()
	return tok
}

// isAtomic reports whether t can begin a value on its own.
func isAtomic(t TokenType) bool {
	switch t {
	case TokenDecimal, TokenString, TokenIdentifier, TokenTrue, TokenFalse, TokenNone:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses the whole input.
func (p *Parser) ParseProgram() (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			prog, err = nil, b.err
		}
	}()

	start := p.curToken.Start
	stmts := p.parseStatements(TokenEOF)
	return &Program{
		SpanVal:    Span{Start: start, End: p.curToken.End},
		Statements: stmts,
	}, nil
}

// Parse parses a source file.
func Parse(file *SourceFile) (*Program, error) {
	return NewParser(file.Text).ParseProgram()
}

func (p *Parser) skipSeparators() {
	for p.curTokenIs(TokenNewline) || p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
}

// parseStatements parses statements up to (not including) end.
func (p *Parser) parseStatements(end TokenType) []Stmt {
	var stmts []Stmt
	for {
		p.skipSeparators()
		if p.curTokenIs(end) {
			return stmts
		}
		if p.curTokenIs(TokenEOF) {
			p.fail(UnexpectedEOF, "Expected '%s' before end of file.", end)
		}

		stmts = append(stmts, p.parseStatement())

		switch p.curToken.Type {
		case TokenNewline, TokenSemicolon, TokenEOF, end:
		default:
			p.trailing()
		}
	}
}

// trailing reports a token left over after a complete statement.
func (p *Parser) trailing() {
	if isAtomic(p.curToken.Type) {
		p.fail(TrailingAtomics, "Unexpected '%s' after a complete statement.", p.curToken.Literal)
	}
	p.unexpected()
}

// parseStatement parses a single statement.
func (p *Parser) parseStatement() Stmt {
	switch p.curToken.Type {
	case TokenFn:
		return p.parseFunction()
	case TokenClass:
		return p.parseClass()
	case TokenReturn:
		return p.parseReturn()
	}

	expr := p.parseExpression()
	if p.curTokenIs(TokenAssign) {
		p.checkTarget(expr)
		p.nextToken()
		value := p.parseExpression()
		return &Assign{SpanVal: spanOf(expr.Span(), value.Span()), Target: expr, Value: value}
	}
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

func (p *Parser) checkTarget(e Expr) {
	switch t := e.(type) {
	case *Name, *Attribute:
		return
	case *Index:
		if _, ok := t.Object.(*Name); ok {
			return
		}
	}
	p.failAt(e.Span(), UnexpectedToken, "Cannot assign to this expression.")
}

// parseReturn parses `return [expr]`.
func (p *Parser) parseReturn() *Return {
	tok := p.curToken
	p.nextToken()

	switch p.curToken.Type {
	case TokenNewline, TokenSemicolon, TokenRBrace, TokenEOF:
		span := tokenSpan(tok)
		return &Return{SpanVal: span, Value: &NoneLiteral{SpanVal: span}}
	}
	value := p.parseExpression()
	return &Return{SpanVal: spanOf(tokenSpan(tok), value.Span()), Value: value}
}

// parseFunction parses `fn name(params) { body }`.
func (p *Parser) parseFunction() *FunctionDef {
	start := p.curToken
	p.nextToken() // consume fn

	name := p.expectIdent("a function name")

	p.open(TokenLParen)
	var params []string
	for !p.curTokenIs(TokenRParen) {
		params = append(params, p.expectIdent("a parameter name").Literal)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.close(TokenRParen)

	body := p.parseBlock()
	return &FunctionDef{
		SpanVal: Span{Start: start.Start, End: p.prevToken.End},
		Name:    name.Literal,
		Params:  params,
		Body:    body,
	}
}

// parseClass parses `class Name[(bases)] { body }`.
func (p *Parser) parseClass() *ClassDef {
	start := p.curToken
	p.nextToken() // consume class

	name := p.expectIdent("a class name")

	var bases []Expr
	if p.curTokenIs(TokenLParen) {
		p.open(TokenLParen)
		bases = p.parseExprList(TokenRParen)
		p.close(TokenRParen)
	}

	body := p.parseBlock()
	return &ClassDef{
		SpanVal: Span{Start: start.Start, End: p.prevToken.End},
		Name:    name.Literal,
		Bases:   bases,
		Body:    body,
	}
}

// parseBlock parses `{ statements }`. Newlines inside stay significant.
func (p *Parser) parseBlock() []Stmt {
	if !p.curTokenIs(TokenLBrace) {
		p.unexpectedWant("'{'")
	}
	p.nextToken()
	stmts := p.parseStatements(TokenRBrace)
	p.nextToken() // consume }
	return stmts
}

// parseExprList parses comma-separated expressions up to end, allowing a
// trailing comma.
func (p *Parser) parseExprList(end TokenType) []Expr {
	var exprs []Expr
	for !p.curTokenIs(end) {
		exprs = append(exprs, p.parseExpression())
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	return exprs
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() (expr Expr, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			expr, err = nil, b.err
		}
	}()
	return p.parseExpression(), nil
}

func (p *Parser) parseExpression() Expr {
	return p.parseSum()
}

var binaryOps = map[TokenType]vm.BinaryOp{
	TokenPlus:  vm.OpAdd,
	TokenMinus: vm.OpSub,
	TokenStar:  vm.OpMul,
	TokenSlash: vm.OpDiv,
}

func (p *Parser) parseSum() Expr {
	left := p.parseProduct()
	for p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus) {
		op := binaryOps[p.curToken.Type]
		p.nextToken()
		right := p.parseProduct()
		left = &Binary{SpanVal: spanOf(left.Span(), right.Span()), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseProduct() Expr {
	left := p.parseUnary()
	for p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) {
		op := binaryOps[p.curToken.Type]
		p.nextToken()
		right := p.parseUnary()
		left = &Binary{SpanVal: spanOf(left.Span(), right.Span()), Op: op, Left: left, Right: right}
	}
	return left
}

// parseUnary folds a minus directly in front of a decimal into the literal,
// so the most negative int can be written.
func (p *Parser) parseUnary() Expr {
	if !p.curTokenIs(TokenMinus) {
		return p.parsePower()
	}
	minus := p.curToken
	p.nextToken()
	operand := p.parseUnary()
	span := spanOf(tokenSpan(minus), operand.Span())
	if lit, ok := operand.(*IntLiteral); ok && lit.Text[0] != '-' {
		return &IntLiteral{SpanVal: span, Text: "-" + lit.Text}
	}
	return &Negate{SpanVal: span, Operand: operand}
}

func (p *Parser) parsePower() Expr {
	base := p.parsePostfix()
	if !p.curTokenIs(TokenStarStar) {
		return base
	}
	p.nextToken()
	exp := p.parseUnary()
	return &Binary{SpanVal: spanOf(base.Span(), exp.Span()), Op: vm.OpPow, Left: base, Right: exp}
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parseAtom()
	for {
		switch p.curToken.Type {
		case TokenLParen:
			p.open(TokenLParen)
			args := p.parseExprList(TokenRParen)
			end := p.close(TokenRParen)
			expr = &Call{SpanVal: Span{Start: expr.Span().Start, End: end.End}, Callee: expr, Args: args}

		case TokenDot:
			p.nextToken()
			name := p.expectIdent("an attribute name")
			expr = &Attribute{SpanVal: Span{Start: expr.Span().Start, End: name.End}, Object: expr, Name: name.Literal}

		case TokenLBracket:
			p.open(TokenLBracket)
			key := p.parseExpression()
			end := p.close(TokenRBracket)
			expr = &Index{SpanVal: Span{Start: expr.Span().Start, End: end.End}, Object: expr, Key: key}

		default:
			return expr
		}
	}
}

func (p *Parser) parseAtom() Expr {
	tok := p.curToken
	span := tokenSpan(tok)

	switch tok.Type {
	case TokenDecimal:
		p.nextToken()
		return &IntLiteral{SpanVal: span, Text: tok.Literal}

	case TokenString:
		p.nextToken()
		return &StringLiteral{SpanVal: span, Value: tok.Literal}

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{SpanVal: span, Value: tok.Type == TokenTrue}

	case TokenNone:
		p.nextToken()
		return &NoneLiteral{SpanVal: span}

	case TokenIdentifier:
		p.nextToken()
		return &Name{SpanVal: span, Name: tok.Literal}

	case TokenLParen:
		p.open(TokenLParen)
		expr := p.parseExpression()
		p.close(TokenRParen)
		return expr

	case TokenLBracket:
		p.open(TokenLBracket)
		elems := p.parseExprList(TokenRBracket)
		end := p.close(TokenRBracket)
		return &ListLiteral{SpanVal: Span{Start: tok.Start, End: end.End}, Elements: elems}

	case TokenLBrace:
		return p.parseDict()

	case TokenFn:
		p.fail(FunctionNotExpression, "Functions may not be used as expressions.")

	case TokenReturn, TokenClass:
		p.fail(UnknownKeyword, "Keyword '%s' is not valid in an expression.", tok.Literal)
	}

	p.unexpected()
	return nil
}

// parseDict parses `{k: v, ...}`.
func (p *Parser) parseDict() *DictLiteral {
	start := p.open(TokenLBrace)
	d := &DictLiteral{}
	for !p.curTokenIs(TokenRBrace) {
		d.Keys = append(d.Keys, p.parseExpression())
		p.expect(TokenColon)
		d.Values = append(d.Values, p.parseExpression())
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	end := p.close(TokenRBrace)
	d.SpanVal = Span{Start: start.Start, End: end.End}
	return d
}
