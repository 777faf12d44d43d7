package vm

// ---------------------------------------------------------------------------
// bool
// ---------------------------------------------------------------------------

func boolRepr(vm *VM, self Value) (Value, error) {
	if self.Bool() {
		return vm.StrFrom("true"), nil
	}
	return vm.StrFrom("false"), nil
}

func boolHash(vm *VM, self Value) (Value, error) {
	if self.Bool() {
		return vm.IntFrom(1), nil
	}
	return vm.IntFrom(0), nil
}

func boolEq(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindBool {
		return vm.BoolFrom(false), nil
	}
	return vm.BoolFrom(self.Bool() == other.Bool()), nil
}

// boolConstruct implements bool(x) using Truthy.
func boolConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	switch len(args) {
	case 0:
		return vm.BoolFrom(false), nil
	case 1:
		return vm.BoolFrom(vm.Truthy(args[0])), nil
	}
	return Value{}, vm.Raise(TypeValueExc, "Expected at most 1 argument(s), got %d", len(args))
}

// Truthy reports whether v counts as true: false, none, zero and empty
// containers are false, everything else is true.
func (vm *VM) Truthy(v Value) bool {
	switch v.Kind() {
	case KindNone:
		return v.Type() != TypeNone
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int().Sign() != 0
	case KindStr:
		return v.Str() != ""
	case KindList:
		return len(v.List()) != 0
	case KindDict:
		return v.Dict().Len() != 0
	}
	return true
}

func (vm *VM) initBoolType() {
	vm.registerBuiltin(&Type{
		Name:  "bool",
		Bases: []TypeID{TypeObject},
		Kind:  KindBool,
		Own: Slots{
			Construct: boolConstruct,
			Repr:      boolRepr,
			Hash:      boolHash,
			Eq:        boolEq,
		},
	}, TypeBool)
}
