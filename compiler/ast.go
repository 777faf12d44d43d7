package compiler

import "github.com/chazu/slate/vm"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for slate
// ---------------------------------------------------------------------------

// Span represents a range in source code. End is exclusive.
type Span struct {
	Start vm.Position
	End   vm.Position
}

func spanOf(from, to Span) Span { return Span{Start: from.Start, End: to.End} }

func tokenSpan(t Token) Span { return Span{Start: t.Start, End: t.End} }

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral keeps the raw decimal text; the compiler range-checks it.
type IntLiteral struct {
	SpanVal Span
	Text    string
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// BoolLiteral is true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// NoneLiteral is the none keyword.
type NoneLiteral struct {
	SpanVal Span
}

func (n *NoneLiteral) Span() Span { return n.SpanVal }
func (n *NoneLiteral) node()      {}
func (n *NoneLiteral) expr()      {}

// Name is a variable reference.
type Name struct {
	SpanVal Span
	Name    string
}

func (n *Name) Span() Span { return n.SpanVal }
func (n *Name) node()      {}
func (n *Name) expr()      {}

// Binary is an arithmetic operation.
type Binary struct {
	SpanVal Span
	Op      vm.BinaryOp
	Left    Expr
	Right   Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Negate is unary minus.
type Negate struct {
	SpanVal Span
	Operand Expr
}

func (n *Negate) Span() Span { return n.SpanVal }
func (n *Negate) node()      {}
func (n *Negate) expr()      {}

// Call is callee(args...).
type Call struct {
	SpanVal Span
	Callee  Expr
	Args    []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// Attribute is object.name.
type Attribute struct {
	SpanVal Span
	Object  Expr
	Name    string
}

func (n *Attribute) Span() Span { return n.SpanVal }
func (n *Attribute) node()      {}
func (n *Attribute) expr()      {}

// Index is object[key].
type Index struct {
	SpanVal Span
	Object  Expr
	Key     Expr
}

func (n *Index) Span() Span { return n.SpanVal }
func (n *Index) node()      {}
func (n *Index) expr()      {}

// ListLiteral is [a, b, ...].
type ListLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *ListLiteral) Span() Span { return n.SpanVal }
func (n *ListLiteral) node()      {}
func (n *ListLiteral) expr()      {}

// DictLiteral is {k: v, ...}. Keys and Values are parallel.
type DictLiteral struct {
	SpanVal Span
	Keys    []Expr
	Values  []Expr
}

func (n *DictLiteral) Span() Span { return n.SpanVal }
func (n *DictLiteral) node()      {}
func (n *DictLiteral) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression evaluated for its value.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Assign binds Value to Target, which is a *Name, *Attribute or an *Index
// whose object is a *Name.
type Assign struct {
	SpanVal Span
	Target  Expr
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// Return leaves the current function.
type Return struct {
	SpanVal Span
	Value   Expr
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) stmt()      {}

// FunctionDef is fn name(params) { body }.
type FunctionDef struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (n *FunctionDef) Span() Span { return n.SpanVal }
func (n *FunctionDef) node()      {}
func (n *FunctionDef) stmt()      {}

// ClassDef is class Name(bases) { body }.
type ClassDef struct {
	SpanVal Span
	Name    string
	Bases   []Expr
	Body    []Stmt
}

func (n *ClassDef) Span() Span { return n.SpanVal }
func (n *ClassDef) node()      {}
func (n *ClassDef) stmt()      {}

// Program is a parsed source file.
type Program struct {
	SpanVal    Span
	Statements []Stmt
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}
