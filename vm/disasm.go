package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders one instruction of c. Constant and name
// operands are annotated with the value they refer to.
func (vm *VM) DisassembleInstruction(c *Code, pc int) string {
	in := c.Instructions[pc]
	info := in.Op.Info()

	var b strings.Builder
	fmt.Fprintf(&b, "%04d  %-14s", pc, info.Name)
	for i, kind := range info.Operands {
		arg := in.operand(i)
		switch kind {
		case OperandReg:
			fmt.Fprintf(&b, " %s", Register(arg))
		case OperandName:
			fmt.Fprintf(&b, " %d (%s)", arg, c.name(arg))
		case OperandConst:
			fmt.Fprintf(&b, " %d (%s)", arg, vm.shortRepr(c.constant(arg)))
		}
	}
	if in.Start.IsValid() {
		fmt.Fprintf(&b, "  ; %s", in.Start)
	}
	return strings.TrimRight(b.String(), " ")
}

// Disassemble returns a listing of c followed by the listings of the code
// units nested in its constant pool.
func (vm *VM) Disassemble(c *Code) string {
	var b strings.Builder
	vm.disassemble(&b, c)
	return strings.TrimRight(b.String(), "\n")
}

func (vm *VM) disassemble(b *strings.Builder, c *Code) {
	fmt.Fprintf(b, "== %s ==\n", c.Name)
	for pc := range c.Instructions {
		b.WriteString(vm.DisassembleInstruction(c, pc))
		b.WriteByte('\n')
	}
	for _, k := range c.Consts {
		if k.Kind() == KindCode {
			b.WriteByte('\n')
			vm.disassemble(b, k.Code())
		}
	}
}

func (vm *VM) shortRepr(v Value) string {
	if v.Kind() == KindCode {
		return "code " + v.Code().Name
	}
	s, err := vm.Repr(v)
	if err != nil {
		return "<" + vm.TypeOf(v).Name + ">"
	}
	return s
}
