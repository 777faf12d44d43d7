package vm

// ---------------------------------------------------------------------------
// Slots: per-type dispatch tables
// ---------------------------------------------------------------------------

// Slot function shapes. Slots borrow every argument and return an owned
// result. A slot may return ErrNotImplemented to mean "not applicable" or a
// *Exception.
type (
	ConstructSlot func(vm *VM, t *Type, args []Value) (Value, error)
	UnarySlot     func(vm *VM, self Value) (Value, error)
	BinarySlot    func(vm *VM, self, other Value) (Value, error)
	TernarySlot   func(vm *VM, self, a, b Value) (Value, error)
	CallSlot      func(vm *VM, self Value, args []Value) (Value, error)
	// SetSlot stores val under key in *self, replacing *self with a copy
	// first when the container is shared.
	SetSlot func(vm *VM, self *Value, key, val Value) error
)

// Slots is a type's dispatch table. A nil entry means the capability is
// absent.
type Slots struct {
	Construct ConstructSlot

	Repr UnarySlot
	Str  UnarySlot
	Abs  UnarySlot
	Neg  UnarySlot
	Hash UnarySlot

	Eq  BinarySlot
	Add BinarySlot
	Sub BinarySlot
	Mul BinarySlot
	Div BinarySlot
	Pow BinarySlot

	Get BinarySlot
	Set SetSlot
	Len UnarySlot

	Call CallSlot

	GetAttr  BinarySlot
	SetAttr  TernarySlot
	DescrGet BinarySlot
	DescrSet TernarySlot
}

// inherit copies every slot that from defines over s.
func (s *Slots) inherit(from *Slots) {
	if from.Construct != nil {
		s.Construct = from.Construct
	}
	if from.Repr != nil {
		s.Repr = from.Repr
	}
	if from.Str != nil {
		s.Str = from.Str
	}
	if from.Abs != nil {
		s.Abs = from.Abs
	}
	if from.Neg != nil {
		s.Neg = from.Neg
	}
	if from.Hash != nil {
		s.Hash = from.Hash
	}
	if from.Eq != nil {
		s.Eq = from.Eq
	}
	if from.Add != nil {
		s.Add = from.Add
	}
	if from.Sub != nil {
		s.Sub = from.Sub
	}
	if from.Mul != nil {
		s.Mul = from.Mul
	}
	if from.Div != nil {
		s.Div = from.Div
	}
	if from.Pow != nil {
		s.Pow = from.Pow
	}
	if from.Get != nil {
		s.Get = from.Get
	}
	if from.Set != nil {
		s.Set = from.Set
	}
	if from.Len != nil {
		s.Len = from.Len
	}
	if from.Call != nil {
		s.Call = from.Call
	}
	if from.GetAttr != nil {
		s.GetAttr = from.GetAttr
	}
	if from.SetAttr != nil {
		s.SetAttr = from.SetAttr
	}
	if from.DescrGet != nil {
		s.DescrGet = from.DescrGet
	}
	if from.DescrSet != nil {
		s.DescrSet = from.DescrSet
	}
}

// binary returns the slot for an arithmetic operator.
func (s *Slots) binary(op BinaryOp) BinarySlot {
	switch op {
	case OpAdd:
		return s.Add
	case OpSub:
		return s.Sub
	case OpMul:
		return s.Mul
	case OpDiv:
		return s.Div
	case OpPow:
		return s.Pow
	}
	return nil
}

// BinaryOp names an arithmetic slot.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
)

var binaryOpNames = [...]string{OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpPow: "pow"}

func (op BinaryOp) String() string { return binaryOpNames[op] }
