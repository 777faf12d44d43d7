package vm

import (
	"errors"
)

// ---------------------------------------------------------------------------
// Slot dispatch
//
// The helpers here are the only way the interpreter and the built-in types
// invoke one another. They resolve the slot through the receiver's flattened
// table and translate ErrNotImplemented into the exception the operation
// calls for.
// ---------------------------------------------------------------------------

// TypeOf returns the type of v.
func (vm *VM) TypeOf(v Value) *Type {
	return vm.Types.Get(v.Type())
}

// IsInstance reports whether v's type is t or inherits from it.
func (vm *VM) IsInstance(v Value, t TypeID) bool {
	return vm.Types.IsSubtype(v.Type(), t)
}

func (vm *VM) notImplemented(err error, slot string, v Value) error {
	if errors.Is(err, ErrNotImplemented) {
		return vm.methodNotDefined(slot, v)
	}
	return err
}

func (vm *VM) unary(slot UnarySlot, name string, v Value) (Value, error) {
	if slot == nil {
		return Value{}, vm.methodNotDefined(name, v)
	}
	r, err := slot(vm, v)
	if err != nil {
		return Value{}, vm.notImplemented(err, name, v)
	}
	return r, nil
}

func (vm *VM) expectStr(r Value, err error, slot string) (string, error) {
	if err != nil {
		return "", err
	}
	defer r.Drop()
	if r.Kind() != KindStr {
		return "", vm.Raise(TypeTypeMismatchExc, "Method '%s' returned '%s', expected 'str'", slot, vm.TypeOf(r).Name)
	}
	return r.Str(), nil
}

// Repr returns the printable representation of v.
func (vm *VM) Repr(v Value) (string, error) {
	r, err := vm.unary(vm.TypeOf(v).Slots.Repr, "repr", v)
	return vm.expectStr(r, err, "repr")
}

// Str returns the string conversion of v, falling back to repr.
func (vm *VM) Str(v Value) (string, error) {
	slot := vm.TypeOf(v).Slots.Str
	if slot == nil {
		return vm.Repr(v)
	}
	r, err := vm.unary(slot, "str", v)
	return vm.expectStr(r, err, "str")
}

// Binary applies an arithmetic operator. A slot that does not accept the
// right operand produces a TypeMismatchExc.
func (vm *VM) Binary(op BinaryOp, a, b Value) (Value, error) {
	slot := vm.TypeOf(a).Slots.binary(op)
	if slot == nil {
		return Value{}, vm.methodNotDefined(op.String(), a)
	}
	r, err := slot(vm, a, b)
	if errors.Is(err, ErrNotImplemented) {
		return Value{}, vm.Raise(TypeTypeMismatchExc, "Unsupported operand types for '%s': '%s' and '%s'",
			op, vm.TypeOf(a).Name, vm.TypeOf(b).Name)
	}
	return r, err
}

// Negate applies unary minus.
func (vm *VM) Negate(v Value) (Value, error) {
	return vm.unary(vm.TypeOf(v).Slots.Neg, "neg", v)
}

// Abs returns the absolute value of v.
func (vm *VM) Abs(v Value) (Value, error) {
	return vm.unary(vm.TypeOf(v).Slots.Abs, "abs", v)
}

// Len returns the length of a container.
func (vm *VM) Len(v Value) (Value, error) {
	return vm.unary(vm.TypeOf(v).Slots.Len, "len", v)
}

// Call invokes callee with borrowed args.
func (vm *VM) Call(callee Value, args []Value) (Value, error) {
	slot := vm.TypeOf(callee).Slots.Call
	if slot == nil {
		return Value{}, vm.methodNotDefined("call", callee)
	}
	r, err := slot(vm, callee, args)
	if err != nil {
		return Value{}, vm.notImplemented(err, "call", callee)
	}
	return r, nil
}

// GetItem returns container[key].
func (vm *VM) GetItem(container, key Value) (Value, error) {
	slot := vm.TypeOf(container).Slots.Get
	if slot == nil {
		return Value{}, vm.methodNotDefined("get", container)
	}
	r, err := slot(vm, container, key)
	if errors.Is(err, ErrNotImplemented) {
		return Value{}, vm.Raise(TypeTypeMismatchExc, "Unsupported key type for '%s': '%s'",
			vm.TypeOf(container).Name, vm.TypeOf(key).Name)
	}
	return r, err
}

// SetItem stores val under key in *container. Shared containers are copied
// before the write, so *container may be replaced with a new handle.
func (vm *VM) SetItem(container *Value, key, val Value) error {
	slot := vm.TypeOf(*container).Slots.Set
	if slot == nil {
		return vm.methodNotDefined("set", *container)
	}
	err := slot(vm, container, key, val)
	if errors.Is(err, ErrNotImplemented) {
		return vm.Raise(TypeTypeMismatchExc, "Unsupported key type for '%s': '%s'",
			vm.TypeOf(*container).Name, vm.TypeOf(key).Name)
	}
	return err
}

// GetAttr returns obj.name.
func (vm *VM) GetAttr(obj Value, name string) (Value, error) {
	slot := vm.TypeOf(obj).Slots.GetAttr
	if slot == nil {
		return Value{}, vm.noAttribute(obj, name)
	}
	key := vm.StrFrom(name)
	defer key.Drop()
	r, err := slot(vm, obj, key)
	if errors.Is(err, ErrNotImplemented) {
		return Value{}, vm.noAttribute(obj, name)
	}
	return r, err
}

// SetAttr performs obj.name = val.
func (vm *VM) SetAttr(obj Value, name string, val Value) error {
	slot := vm.TypeOf(obj).Slots.SetAttr
	if slot == nil {
		return vm.readOnlyAttribute(obj, name)
	}
	key := vm.StrFrom(name)
	defer key.Drop()
	r, err := slot(vm, obj, key, val)
	if errors.Is(err, ErrNotImplemented) {
		return vm.readOnlyAttribute(obj, name)
	}
	if err != nil {
		return err
	}
	r.Drop()
	return nil
}

func (vm *VM) noAttribute(obj Value, name string) *Exception {
	return vm.Raise(TypeAttributeExc, "'%s' object has no attribute '%s'", vm.TypeOf(obj).Name, name)
}

func (vm *VM) readOnlyAttribute(obj Value, name string) *Exception {
	return vm.Raise(TypeAttributeExc, "Cannot set attribute '%s' on '%s' object", name, vm.TypeOf(obj).Name)
}
