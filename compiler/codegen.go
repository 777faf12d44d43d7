package compiler

import (
	"errors"

	"github.com/chazu/slate/vm"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

// Version identifies the code the compiler emits. Cached code compiled by a
// different version is never reused.
const Version = "0.1.0"

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeFunction
	scopeClass
)

// unit is one code object under construction.
type unit struct {
	b      *vm.CodeBuilder
	scope  scopeKind
	locals map[string]bool // function scope only
}

// Compiler compiles AST nodes to vm code. Expressions leave their result in
// R1; R2 only ever holds a right-hand operand, and anything else that must
// survive a nested expression is spilled to the frame's temp stack.
type Compiler struct {
	vm   *vm.VM
	unit *unit
	log  commonlog.Logger
}

// compileBailout carries a compile-time exception up to CompileProgram.
type compileBailout struct{ err error }

// NewCompiler creates a compiler that allocates constants on v.
func NewCompiler(v *vm.VM) *Compiler {
	return &Compiler{vm: v, log: commonlog.GetLogger("slate.compiler")}
}

// Compile parses and compiles a source file into a module code object.
func Compile(v *vm.VM, file *SourceFile) (*vm.Code, error) {
	prog, err := Parse(file)
	if err != nil {
		return nil, err
	}
	return NewCompiler(v).CompileProgram(prog)
}

// CompileProgram compiles a parsed program. Module-level names are globals.
func (c *Compiler) CompileProgram(prog *Program) (code *vm.Code, err error) {
	c.unit = nil
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(compileBailout)
			if !ok {
				panic(r)
			}
			code, err = nil, b.err
		}
	}()

	code = c.compileUnit("<module>", scopeModule, nil, prog.Statements).Code()
	c.log.Debugf("compiled %s: %d instructions, %d constants", code.Name, len(code.Instructions), len(code.Consts))
	return code, nil
}

func (c *Compiler) compileUnit(name string, scope scopeKind, params []string, body []Stmt) vm.Value {
	saved := c.unit
	c.unit = &unit{b: vm.NewCodeBuilder(name), scope: scope}
	if scope == scopeFunction {
		c.unit.locals = collectLocals(params, body)
	}
	for _, stmt := range body {
		c.compileStmt(stmt)
	}
	code := c.unit.b.Build(c.vm)
	c.unit = saved
	return code
}

// collectLocals returns the names a function body binds: its parameters and
// every name it assigns or defines.
func collectLocals(params []string, body []Stmt) map[string]bool {
	locals := make(map[string]bool, len(params))
	for _, p := range params {
		locals[p] = true
	}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *Assign:
			switch t := s.Target.(type) {
			case *Name:
				locals[t.Name] = true
			case *Index:
				locals[t.Object.(*Name).Name] = true
			}
		case *FunctionDef:
			locals[s.Name] = true
		case *ClassDef:
			locals[s.Name] = true
		}
	}
	return locals
}

func (c *Compiler) emit(op vm.Opcode, span Span, operands ...int) {
	c.unit.b.Emit(op, span.Start, span.End, operands...)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Compiler) compileStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *ExprStmt:
		c.compileExpr(s.Expr)

	case *Assign:
		c.compileAssign(s)

	case *Return:
		c.compileExpr(s.Value)
		c.emit(vm.OpReturn, s.SpanVal, int(vm.R1))

	case *FunctionDef:
		params := make([]vm.Value, len(s.Params))
		for i, p := range s.Params {
			params[i] = c.vm.StrFrom(p)
		}
		b := c.unit.b
		paramsIdx := b.Const(c.vm.ListFrom(params))
		bodyIdx := b.Const(c.compileUnit(s.Name, scopeFunction, s.Params, s.Body))
		c.emit(vm.OpMakeFunction, s.SpanVal, b.Name(s.Name), paramsIdx, bodyIdx)
		c.storeName(s.Name, vm.R1, s.SpanVal)

	case *ClassDef:
		c.emit(vm.OpInitArgs, s.SpanVal)
		for _, base := range s.Bases {
			c.compileExpr(base)
			c.emit(vm.OpAddArgument, base.Span(), int(vm.R1))
		}
		b := c.unit.b
		bodyIdx := b.Const(c.compileUnit(s.Name, scopeClass, nil, s.Body))
		c.emit(vm.OpMakeClass, s.SpanVal, b.Name(s.Name), bodyIdx)
		c.storeName(s.Name, vm.R1, s.SpanVal)
	}
}

func (c *Compiler) compileAssign(s *Assign) {
	switch t := s.Target.(type) {
	case *Name:
		c.compileExpr(s.Value)
		c.storeName(t.Name, vm.R1, s.SpanVal)

	case *Attribute:
		c.compileOperands(t.Object, s.Value, s.SpanVal)
		c.emit(vm.OpStoreAttr, s.SpanVal, c.unit.b.Name(t.Name))

	case *Index:
		// Containers are copy-on-write, so the updated container is stored
		// back under its name.
		name := t.Object.(*Name)
		c.compileExpr(s.Value)
		c.emit(vm.OpPushTemp, s.SpanVal, int(vm.R1))
		c.compileOperands(name, t.Key, s.SpanVal)
		c.emit(vm.OpStoreSubscr, s.SpanVal, int(vm.R1))
		c.storeName(name.Name, vm.R1, s.SpanVal)
	}
}

func (c *Compiler) storeName(name string, src vm.Register, span Span) {
	idx := c.unit.b.Name(name)
	if c.unit.scope == scopeModule {
		c.emit(vm.OpStoreGlobal, span, idx, int(src))
		return
	}
	c.emit(vm.OpStoreName, span, idx, int(src))
}

func (c *Compiler) loadName(name string, dest vm.Register, span Span) {
	idx := c.unit.b.Name(name)
	u := c.unit
	if u.scope == scopeModule || (u.scope == scopeFunction && !u.locals[name]) {
		c.emit(vm.OpLoadGlobal, span, idx, int(dest))
		return
	}
	c.emit(vm.OpLoadName, span, idx, int(dest))
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// isSimple reports whether e loads with a single instruction and so can go
// straight into R2 without disturbing R1.
func isSimple(e Expr) bool {
	switch e.(type) {
	case *IntLiteral, *StringLiteral, *BoolLiteral, *NoneLiteral, *Name:
		return true
	}
	return false
}

// compileExpr evaluates e into R1.
func (c *Compiler) compileExpr(e Expr) {
	switch n := e.(type) {
	case *IntLiteral, *StringLiteral, *BoolLiteral, *NoneLiteral, *Name:
		c.load(n, vm.R1)

	case *Binary:
		c.compileOperands(n.Left, n.Right, n.SpanVal)
		c.emit(vm.OpBinaryAdd+vm.Opcode(n.Op), n.SpanVal, int(vm.R1))

	case *Negate:
		c.compileExpr(n.Operand)
		c.emit(vm.OpUnaryNeg, n.SpanVal, int(vm.R1))

	case *Call:
		c.compileCall(n)

	case *Attribute:
		c.compileExpr(n.Object)
		c.emit(vm.OpLoadAttr, n.SpanVal, c.unit.b.Name(n.Name), int(vm.R1))

	case *Index:
		c.compileOperands(n.Object, n.Key, n.SpanVal)
		c.emit(vm.OpLoadSubscr, n.SpanVal, int(vm.R1))

	case *ListLiteral:
		c.emit(vm.OpInitArgs, n.SpanVal)
		for _, elem := range n.Elements {
			c.compileExpr(elem)
			c.emit(vm.OpAddArgument, elem.Span(), int(vm.R1))
		}
		c.emit(vm.OpBuildList, n.SpanVal, int(vm.R1))

	case *DictLiteral:
		c.emit(vm.OpInitArgs, n.SpanVal)
		for i := range n.Keys {
			c.compileExpr(n.Keys[i])
			c.emit(vm.OpAddArgument, n.Keys[i].Span(), int(vm.R1))
			c.compileExpr(n.Values[i])
			c.emit(vm.OpAddArgument, n.Values[i].Span(), int(vm.R1))
		}
		c.emit(vm.OpBuildDict, n.SpanVal, int(vm.R1))
	}
}

// compileOperands leaves left in R1 and right in R2.
func (c *Compiler) compileOperands(left, right Expr, span Span) {
	c.compileExpr(left)
	if isSimple(right) {
		c.load(right, vm.R2)
		return
	}
	c.emit(vm.OpPushTemp, span, int(vm.R1))
	c.compileExpr(right)
	c.emit(vm.OpCopyRegister, span, int(vm.R1), int(vm.R2))
	c.emit(vm.OpPopTemp, span, int(vm.R1))
}

// compileCall evaluates the callee, then the arguments left to right. A
// simple callee is loaded after the arguments instead of being spilled.
func (c *Compiler) compileCall(n *Call) {
	simple := isSimple(n.Callee)
	if !simple {
		c.compileExpr(n.Callee)
		c.emit(vm.OpPushTemp, n.SpanVal, int(vm.R1))
	}
	c.emit(vm.OpInitArgs, n.SpanVal)
	for _, arg := range n.Args {
		c.compileExpr(arg)
		c.emit(vm.OpAddArgument, arg.Span(), int(vm.R1))
	}
	if simple {
		c.load(n.Callee, vm.R1)
	} else {
		c.emit(vm.OpPopTemp, n.SpanVal, int(vm.R1))
	}
	c.emit(vm.OpCall, n.SpanVal, int(vm.R1), int(vm.R1))
}

// load emits the single instruction that puts a simple expression in dest.
func (c *Compiler) load(e Expr, dest vm.Register) {
	switch n := e.(type) {
	case *IntLiteral:
		c.loadConst(c.intConst(n), dest, n.SpanVal)
	case *StringLiteral:
		c.loadConst(c.vm.StrFrom(n.Value), dest, n.SpanVal)
	case *BoolLiteral:
		c.loadConst(c.vm.BoolFrom(n.Value), dest, n.SpanVal)
	case *NoneLiteral:
		c.loadConst(c.vm.None(), dest, n.SpanVal)
	case *Name:
		c.loadName(n.Name, dest, n.SpanVal)
	}
}

func (c *Compiler) loadConst(v vm.Value, dest vm.Register, span Span) {
	op := vm.OpLoadConstR1
	if dest == vm.R2 {
		op = vm.OpLoadConstR2
	}
	c.emit(op, span, c.unit.b.Const(v))
}

// intConst range-checks a literal, raising OverflowExc at its position.
func (c *Compiler) intConst(n *IntLiteral) vm.Value {
	v, err := c.vm.IntFromString(n.Text)
	if err != nil {
		var exc *vm.Exception
		if errors.As(err, &exc) {
			exc.At(n.SpanVal.Start, n.SpanVal.End)
		}
		panic(compileBailout{err})
	}
	return v
}
