package vm

import (
	"errors"
)

// ---------------------------------------------------------------------------
// User-defined classes
// ---------------------------------------------------------------------------

// specialNames are the class attributes that CreateClass wires into slots.
var specialNames = []string{
	"repr", "str", "abs", "neg", "hash", "eq",
	"add", "sub", "mul", "div", "pow",
	"get", "set", "len", "call", "getattr",
}

// CreateClass builds a class from a name, base type values and a namespace.
// It takes ownership of dict; bases are borrowed. For each special name
// defined in dict, the matching slot is installed as a trampoline that calls
// the attribute with the receiver prepended.
func (vm *VM) CreateClass(name string, bases []Value, dict Value) (Value, error) {
	ids := make([]TypeID, 0, len(bases))
	for _, b := range bases {
		if b.Kind() != KindType {
			dict.Drop()
			return Value{}, vm.Raise(TypeTypeMismatchExc, "Base of class '%s' must be a type, not '%s'", name, vm.TypeOf(b).Name)
		}
		base := vm.Types.Get(b.TypeRef())
		if base.ID != TypeObject && !base.IsClass() {
			dict.Drop()
			return Value{}, vm.Raise(TypeTypeMismatchExc, "Cannot subclass '%s'", base.Name)
		}
		ids = append(ids, base.ID)
	}
	if len(ids) == 0 {
		ids = append(ids, TypeObject)
	}

	t := &Type{
		Name:  name,
		Bases: ids,
		Kind:  KindInstance,
		Dict:  dict,
		Own:   Slots{Construct: classConstruct},
	}
	for _, special := range specialNames {
		key := vm.StrFrom(special)
		_, ok, err := dict.Dict().Lookup(vm, key)
		key.Drop()
		if err != nil {
			dict.Drop()
			return Value{}, err
		}
		if ok {
			installTrampoline(&t.Own, special)
		}
	}

	id := vm.Types.Register(t)
	vm.Types.Finalize(id)
	vm.log.Debugf("created class %s (type %d)", name, id)
	return vm.TypeValue(id), nil
}

// callSpecial looks up name through self's class chain and calls it with
// self prepended to args.
func (vm *VM) callSpecial(self Value, name string, args ...Value) (Value, error) {
	key := vm.StrFrom(name)
	defer key.Drop()
	attr, ok, err := vm.lookupClassAttr(self.Type(), key)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, vm.methodNotDefined(name, self)
	}
	full := make([]Value, 0, len(args)+1)
	full = append(full, self)
	full = append(full, args...)
	return vm.Call(attr, full)
}

func unaryTrampoline(name string) UnarySlot {
	return func(vm *VM, self Value) (Value, error) {
		return vm.callSpecial(self, name)
	}
}

func binaryTrampoline(name string) BinarySlot {
	return func(vm *VM, self, other Value) (Value, error) {
		return vm.callSpecial(self, name, other)
	}
}

func installTrampoline(s *Slots, name string) {
	switch name {
	case "repr":
		s.Repr = unaryTrampoline(name)
	case "str":
		s.Str = unaryTrampoline(name)
	case "abs":
		s.Abs = unaryTrampoline(name)
	case "neg":
		s.Neg = unaryTrampoline(name)
	case "hash":
		s.Hash = unaryTrampoline(name)
	case "len":
		s.Len = unaryTrampoline(name)
	case "eq":
		s.Eq = binaryTrampoline(name)
	case "add":
		s.Add = binaryTrampoline(name)
	case "sub":
		s.Sub = binaryTrampoline(name)
	case "mul":
		s.Mul = binaryTrampoline(name)
	case "div":
		s.Div = binaryTrampoline(name)
	case "pow":
		s.Pow = binaryTrampoline(name)
	case "get":
		s.Get = binaryTrampoline(name)
	case "set":
		s.Set = func(vm *VM, self *Value, key, val Value) error {
			r, err := vm.callSpecial(*self, "set", key, val)
			if err != nil {
				return err
			}
			r.Drop()
			return nil
		}
	case "call":
		s.Call = func(vm *VM, self Value, args []Value) (Value, error) {
			return vm.callSpecial(self, "call", args...)
		}
	case "getattr":
		s.GetAttr = classGetAttr
	}
}

// classGetAttr runs generic lookup first and calls the class's getattr only
// when that fails with AttributeExc.
func classGetAttr(vm *VM, self, name Value) (Value, error) {
	v, err := objectGetAttr(vm, self, name)
	var exc *Exception
	if err != nil && errors.As(err, &exc) && vm.IsInstance(exc.Value, TypeAttributeExc) {
		return vm.callSpecial(self, "getattr", name)
	}
	return v, err
}

// classConstruct allocates an instance and runs init when the class chain
// defines one.
func classConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	inst := newValue(t.ID, &Instance{Attrs: vm.DictFrom(NewDict())})

	key := vm.StrFrom("init")
	defer key.Drop()
	initFn, ok, err := vm.lookupClassAttr(t.ID, key)
	if err != nil {
		inst.Drop()
		return Value{}, err
	}
	if !ok {
		if len(args) != 0 {
			inst.Drop()
			return Value{}, vm.Raise(TypeValueExc, "Expected 0 argument(s), got %d", len(args))
		}
		return inst, nil
	}

	full := make([]Value, 0, len(args)+1)
	full = append(full, inst)
	full = append(full, args...)
	r, err := vm.Call(initFn, full)
	if err != nil {
		inst.Drop()
		return Value{}, err
	}
	r.Drop()
	return inst, nil
}
