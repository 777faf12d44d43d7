package vm

import (
	"strings"
)

// ---------------------------------------------------------------------------
// dict slots
// ---------------------------------------------------------------------------

func dictRepr(vm *VM, self Value) (Value, error) {
	var parts []string
	var failed error
	self.Dict().Each(func(k, v Value) bool {
		ks, err := vm.Repr(k)
		if err != nil {
			failed = err
			return false
		}
		vs, err := vm.Repr(v)
		if err != nil {
			failed = err
			return false
		}
		parts = append(parts, ks+": "+vs)
		return true
	})
	if failed != nil {
		return Value{}, failed
	}
	return vm.StrFrom("{" + strings.Join(parts, ", ") + "}"), nil
}

// dictEq holds when both dicts have the same keys mapped to equal values.
func dictEq(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindDict {
		return vm.BoolFrom(false), nil
	}
	a, b := self.Dict(), other.Dict()
	if a.Len() != b.Len() {
		return vm.BoolFrom(false), nil
	}
	equal := true
	var failed error
	a.Each(func(k, v Value) bool {
		w, ok, err := b.Lookup(vm, k)
		if err == nil && ok {
			ok, err = vm.Equal(v, w)
		}
		if err != nil {
			failed = err
			return false
		}
		equal = ok
		return ok
	})
	if failed != nil {
		return Value{}, failed
	}
	return vm.BoolFrom(equal), nil
}

func dictGet(vm *VM, self, key Value) (Value, error) {
	v, err := self.Dict().Get(vm, key)
	if err != nil {
		return Value{}, err
	}
	return v.Clone(), nil
}

// dictSet inserts into the dict, copying it first when it is shared.
func dictSet(vm *VM, self *Value, key, val Value) error {
	// Hash before copying so an unhashable key leaves the dict untouched.
	if _, err := vm.Hash(key); err != nil {
		return err
	}
	return self.mutDict().Insert(vm, key.Clone(), val.Clone())
}

func dictLen(vm *VM, self Value) (Value, error) {
	return vm.IntFrom(int64(self.Dict().Len())), nil
}

// dictConstruct implements dict() and dict(d), which copies d.
func dictConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	switch len(args) {
	case 0:
		return vm.DictFrom(NewDict()), nil
	case 1:
		if args[0].Kind() == KindDict {
			return vm.DictFrom(args[0].Dict().Copy()), nil
		}
		return Value{}, vm.Raise(TypeTypeMismatchExc, "Cannot convert '%s' to 'dict'", vm.TypeOf(args[0]).Name)
	}
	return Value{}, vm.Raise(TypeValueExc, "Expected at most 1 argument(s), got %d", len(args))
}

func (vm *VM) initDictType() {
	vm.registerBuiltin(&Type{
		Name:  "dict",
		Bases: []TypeID{TypeObject},
		Kind:  KindDict,
		Own: Slots{
			Construct: dictConstruct,
			Repr:      dictRepr,
			Hash:      unhashable,
			Eq:        dictEq,
			Get:       dictGet,
			Set:       dictSet,
			Len:       dictLen,
		},
	}, TypeDict)
}
