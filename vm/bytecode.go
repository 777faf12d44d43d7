package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Source positions
// ---------------------------------------------------------------------------

// Position is a location in source text. Line and Column are 1-based; Offset
// is the 0-based byte offset.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position was set.
func (p Position) IsValid() bool { return p.Line > 0 }

// ---------------------------------------------------------------------------
// Registers
// ---------------------------------------------------------------------------

// Register names one of the frame's two working registers. NA discards a
// destination; reading from NA is a defect.
type Register int

const (
	NA Register = iota
	R1
	R2
)

func (r Register) String() string {
	switch r {
	case NA:
		return "NA"
	case R1:
		return "R1"
	case R2:
		return "R2"
	}
	return fmt.Sprintf("R?%d", int(r))
}

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies one instruction.
type Opcode uint8

// Constants and arithmetic
const (
	OpLoadConstR1 Opcode = iota // R1 <- consts[A]
	OpLoadConstR2               // R2 <- consts[A]
	OpBinaryAdd                 // A <- R1 + R2
	OpBinarySub                 // A <- R1 - R2
	OpBinaryMul                 // A <- R1 * R2
	OpBinaryDiv                 // A <- R1 / R2
	OpBinaryPow                 // A <- R1 ** R2
	OpUnaryNeg                  // A <- -R1
)

// Names
const (
	OpStoreName   Opcode = iota + 0x10 // locals[names[A]] <- B
	OpLoadName                         // B <- locals[names[A]]
	OpStoreGlobal                      // globals[names[A]] <- B
	OpLoadGlobal                       // B <- globals[names[A]] or builtins
)

// Functions and calls
const (
	OpMakeFunction Opcode = iota + 0x20 // R1 <- fn(names[A], consts[B], consts[C])
	OpInitArgs                          // push an empty argument list
	OpAddArgument                       // append A to the top argument list
	OpCall                              // B <- A(popped argument list)
	OpReturn                            // return A
)

// Register spilling
const (
	OpCopyRegister Opcode = iota + 0x30 // B <- A
	OpPushTemp                          // push A onto the temp stack
	OpPopTemp                           // A <- pop temp stack
)

// Attributes, subscripts and containers
const (
	OpLoadAttr    Opcode = iota + 0x40 // B <- R1.names[A]
	OpStoreAttr                        // R1.names[A] = R2; R1 <- R2
	OpLoadSubscr                       // A <- R1[R2]
	OpStoreSubscr                      // R1[R2] = pop temp; A <- R1
	OpBuildList                        // A <- list(popped argument list)
	OpBuildDict                        // A <- dict(popped argument list, as pairs)
	OpMakeClass                        // R1 <- class names[A](popped bases) body consts[B]
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// Operand describes how an instruction operand is interpreted.
type Operand uint8

const (
	OperandConst Operand = iota + 1 // index into Code.Consts
	OperandName                     // index into Code.Names
	OperandReg                      // a Register
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name     string    // human-readable name
	Operands []Operand // meaning of A, B, C in order
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpLoadConstR1: {"LOAD_CONST_R1", []Operand{OperandConst}},
	OpLoadConstR2: {"LOAD_CONST_R2", []Operand{OperandConst}},
	OpBinaryAdd:   {"BINARY_ADD", []Operand{OperandReg}},
	OpBinarySub:   {"BINARY_SUB", []Operand{OperandReg}},
	OpBinaryMul:   {"BINARY_MUL", []Operand{OperandReg}},
	OpBinaryDiv:   {"BINARY_DIV", []Operand{OperandReg}},
	OpBinaryPow:   {"BINARY_POW", []Operand{OperandReg}},
	OpUnaryNeg:    {"UNARY_NEG", []Operand{OperandReg}},

	OpStoreName:   {"STORE_NAME", []Operand{OperandName, OperandReg}},
	OpLoadName:    {"LOAD_NAME", []Operand{OperandName, OperandReg}},
	OpStoreGlobal: {"STORE_GLOBAL", []Operand{OperandName, OperandReg}},
	OpLoadGlobal:  {"LOAD_GLOBAL", []Operand{OperandName, OperandReg}},

	OpMakeFunction: {"MAKE_FUNCTION", []Operand{OperandName, OperandConst, OperandConst}},
	OpInitArgs:     {"INIT_ARGS", nil},
	OpAddArgument:  {"ADD_ARGUMENT", []Operand{OperandReg}},
	OpCall:         {"CALL", []Operand{OperandReg, OperandReg}},
	OpReturn:       {"RETURN", []Operand{OperandReg}},

	OpCopyRegister: {"COPY_REGISTER", []Operand{OperandReg, OperandReg}},
	OpPushTemp:     {"PUSH_TEMP", []Operand{OperandReg}},
	OpPopTemp:      {"POP_TEMP", []Operand{OperandReg}},

	OpLoadAttr:    {"LOAD_ATTR", []Operand{OperandName, OperandReg}},
	OpStoreAttr:   {"STORE_ATTR", []Operand{OperandName}},
	OpLoadSubscr:  {"LOAD_SUBSCR", []Operand{OperandReg}},
	OpStoreSubscr: {"STORE_SUBSCR", []Operand{OperandReg}},
	OpBuildList:   {"BUILD_LIST", []Operand{OperandReg}},
	OpBuildDict:   {"BUILD_DICT", []Operand{OperandReg}},
	OpMakeClass:   {"MAKE_CLASS", []Operand{OperandName, OperandConst}},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// ---------------------------------------------------------------------------
// Instructions and code units
// ---------------------------------------------------------------------------

// Instruction is one decoded instruction. Unused operands are zero.
type Instruction struct {
	Op      Opcode
	A, B, C int
	Start   Position
	End     Position
}

func (in Instruction) operand(i int) int {
	switch i {
	case 0:
		return in.A
	case 1:
		return in.B
	}
	return in.C
}

// Code is a compiled unit: a module body, a function body or a class body.
// It is immutable once built and shared by every frame that runs it.
type Code struct {
	Name         string
	Instructions []Instruction
	Consts       []Value
	Names        []Value // str values
}

func (*Code) kind() Kind       { return KindCode }
func (c *Code) clone() payload { return c }

// name returns the string form of names[i].
func (c *Code) name(i int) string {
	if i < 0 || i >= len(c.Names) {
		panic(defectf("%s: name index %d out of range", c.Name, i))
	}
	return c.Names[i].Str()
}

func (c *Code) constant(i int) Value {
	if i < 0 || i >= len(c.Consts) {
		panic(defectf("%s: const index %d out of range", c.Name, i))
	}
	return c.Consts[i]
}

// ---------------------------------------------------------------------------
// CodeBuilder: helper for constructing code units
// ---------------------------------------------------------------------------

// CodeBuilder accumulates instructions and pools for one code unit. Names are
// interned per unit; constants are appended in order.
type CodeBuilder struct {
	name   string
	instrs []Instruction
	consts []Value
	names  []string
	nameIx map[string]int
}

// NewCodeBuilder creates a builder for a unit with the given name.
func NewCodeBuilder(name string) *CodeBuilder {
	return &CodeBuilder{name: name, nameIx: make(map[string]int)}
}

// Emit appends an instruction.
func (b *CodeBuilder) Emit(op Opcode, start, end Position, operands ...int) {
	in := Instruction{Op: op, Start: start, End: end}
	if len(operands) > 0 {
		in.A = operands[0]
	}
	if len(operands) > 1 {
		in.B = operands[1]
	}
	if len(operands) > 2 {
		in.C = operands[2]
	}
	b.instrs = append(b.instrs, in)
}

// Const takes ownership of v and returns its index in the constant pool.
func (b *CodeBuilder) Const(v Value) int {
	b.consts = append(b.consts, v)
	return len(b.consts) - 1
}

// Name interns name and returns its index in the name pool.
func (b *CodeBuilder) Name(name string) int {
	if i, ok := b.nameIx[name]; ok {
		return i
	}
	b.names = append(b.names, name)
	b.nameIx[name] = len(b.names) - 1
	return len(b.names) - 1
}

// Len returns the number of instructions emitted so far.
func (b *CodeBuilder) Len() int { return len(b.instrs) }

// Build returns the finished unit as a code value.
func (b *CodeBuilder) Build(vm *VM) Value {
	names := make([]Value, len(b.names))
	for i, n := range b.names {
		names[i] = vm.StrFrom(n)
	}
	return vm.CodeFrom(&Code{
		Name:         b.name,
		Instructions: b.instrs,
		Consts:       b.consts,
		Names:        names,
	})
}
