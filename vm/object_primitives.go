package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// object: the root type
// ---------------------------------------------------------------------------

// objectRepr is the default repr, e.g. <Point object @ 0xc000012345>.
func objectRepr(vm *VM, self Value) (Value, error) {
	return vm.StrFrom(fmt.Sprintf("<%s object @ %#x>", vm.TypeOf(self).Name, self.Addr())), nil
}

// objectHash gives every object the same hash code; keys are told apart by
// eq alone.
func objectHash(vm *VM, self Value) (Value, error) {
	return vm.IntFrom(-1), nil
}

// objectEq compares by identity.
func objectEq(vm *VM, self, other Value) (Value, error) {
	return vm.BoolFrom(self.Is(other)), nil
}

// objectGetAttr is generic attribute lookup: the instance's own attributes,
// then the class chain. Class attributes with a descrget slot are bound to
// the receiver.
func objectGetAttr(vm *VM, self, name Value) (Value, error) {
	if self.Kind() == KindInstance {
		v, ok, err := self.Instance().Attrs.Dict().Lookup(vm, name)
		if err != nil {
			return Value{}, err
		}
		if ok {
			return v.Clone(), nil
		}
	}
	attr, ok, err := vm.lookupClassAttr(self.Type(), name)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, vm.noAttribute(self, name.Str())
	}
	if descr := vm.TypeOf(attr).Slots.DescrGet; descr != nil {
		return descr(vm, attr, self)
	}
	return attr.Clone(), nil
}

// objectSetAttr stores into an instance's attribute dict. Other values have
// no writable attributes.
func objectSetAttr(vm *VM, self, name, val Value) (Value, error) {
	if self.Kind() != KindInstance {
		return Value{}, ErrNotImplemented
	}
	inst := self.Instance()
	if err := inst.Attrs.mutDict().Insert(vm, name.Clone(), val.Clone()); err != nil {
		return Value{}, err
	}
	return vm.None(), nil
}

func objectConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	if len(args) != 0 {
		return Value{}, vm.Raise(TypeValueExc, "Expected 0 argument(s), got %d", len(args))
	}
	return vm.NewObject(t.ID), nil
}

// lookupClassAttr searches the dict of the type with the given ID, then its
// bases from last to first. The result is borrowed.
func (vm *VM) lookupClassAttr(id TypeID, name Value) (Value, bool, error) {
	t := vm.Types.Get(id)
	if t.IsClass() {
		v, ok, err := t.Dict.Dict().Lookup(vm, name)
		if err != nil || ok {
			return v, ok, err
		}
	}
	for i := len(t.Bases) - 1; i >= 0; i-- {
		v, ok, err := vm.lookupClassAttr(t.Bases[i], name)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return Value{}, false, nil
}

func (vm *VM) initObjectType() {
	vm.registerBuiltin(&Type{
		Name: "object",
		Kind: KindNone,
		Own: Slots{
			Construct: objectConstruct,
			Repr:      objectRepr,
			Hash:      objectHash,
			Eq:        objectEq,
			GetAttr:   objectGetAttr,
			SetAttr:   objectSetAttr,
		},
	}, TypeObject)
}

// ---------------------------------------------------------------------------
// type: type objects and class objects
// ---------------------------------------------------------------------------

func typeRepr(vm *VM, self Value) (Value, error) {
	return vm.StrFrom(fmt.Sprintf("<class '%s'>", vm.Types.Get(self.TypeRef()).Name)), nil
}

func typeHash(vm *VM, self Value) (Value, error) {
	return vm.IntFrom(int64(self.TypeRef())), nil
}

func typeEq(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindType {
		return vm.BoolFrom(false), nil
	}
	return vm.BoolFrom(self.TypeRef() == other.TypeRef()), nil
}

// typeCall constructs an instance of the referenced type.
func typeCall(vm *VM, self Value, args []Value) (Value, error) {
	t := vm.Types.Get(self.TypeRef())
	if t.Slots.Construct == nil {
		return Value{}, vm.Raise(TypeMethodNotDefinedExc, "Method 'construct' is not defined for '%s' type", t.Name)
	}
	return t.Slots.Construct(vm, t, args)
}

// typeGetAttr looks through the referenced class chain without binding.
func typeGetAttr(vm *VM, self, name Value) (Value, error) {
	t := vm.Types.Get(self.TypeRef())
	attr, ok, err := vm.lookupClassAttr(t.ID, name)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, vm.Raise(TypeAttributeExc, "Type '%s' has no attribute '%s'", t.Name, name.Str())
	}
	return attr.Clone(), nil
}

// typeSetAttr writes into a user class dict. Built-in types are read-only.
func typeSetAttr(vm *VM, self, name, val Value) (Value, error) {
	t := vm.Types.Get(self.TypeRef())
	if !t.IsClass() {
		return Value{}, ErrNotImplemented
	}
	if err := t.Dict.mutDict().Insert(vm, name.Clone(), val.Clone()); err != nil {
		return Value{}, err
	}
	return vm.None(), nil
}

// typeConstruct implements type(x).
func typeConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, vm.Raise(TypeValueExc, "Expected 1 argument(s), got %d", len(args))
	}
	return vm.TypeValue(args[0].Type()), nil
}

func (vm *VM) initTypeType() {
	vm.registerBuiltin(&Type{
		Name:  "type",
		Bases: []TypeID{TypeObject},
		Kind:  KindType,
		Own: Slots{
			Construct: typeConstruct,
			Repr:      typeRepr,
			Hash:      typeHash,
			Eq:        typeEq,
			Call:      typeCall,
			GetAttr:   typeGetAttr,
			SetAttr:   typeSetAttr,
		},
	}, TypeType)
}

// ---------------------------------------------------------------------------
// NoneType
// ---------------------------------------------------------------------------

func noneRepr(vm *VM, self Value) (Value, error) {
	return vm.StrFrom("none"), nil
}

func noneConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	return vm.None(), nil
}

func (vm *VM) initNoneType() {
	vm.registerBuiltin(&Type{
		Name:  "NoneType",
		Bases: []TypeID{TypeObject},
		Kind:  KindNone,
		Own: Slots{
			Construct: noneConstruct,
			Repr:      noneRepr,
		},
	}, TypeNone)
}
