package vm

import (
	"strings"
)

// ---------------------------------------------------------------------------
// list: mutable sequence, updated copy-on-write
// ---------------------------------------------------------------------------

// reprJoin renders elems with repr, joined by ", ".
func (vm *VM) reprJoin(elems []Value) (string, error) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		s, err := vm.Repr(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func listRepr(vm *VM, self Value) (Value, error) {
	s, err := vm.reprJoin(self.List())
	if err != nil {
		return Value{}, err
	}
	return vm.StrFrom("[" + s + "]"), nil
}

func listEq(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindList {
		return vm.BoolFrom(false), nil
	}
	a, b := self.List(), other.List()
	if len(a) != len(b) {
		return vm.BoolFrom(false), nil
	}
	for i := range a {
		eq, err := vm.Equal(a[i], b[i])
		if err != nil {
			return Value{}, err
		}
		if !eq {
			return vm.BoolFrom(false), nil
		}
	}
	return vm.BoolFrom(true), nil
}

// unhashable is installed on mutable containers so they are refused as keys.
func unhashable(vm *VM, self Value) (Value, error) {
	return Value{}, vm.Raise(TypeTypeMismatchExc, "Unhashable type: '%s'", vm.TypeOf(self).Name)
}

func cloneAll(elems []Value) []Value {
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[i] = e.Clone()
	}
	return out
}

func listAdd(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindList {
		return Value{}, ErrNotImplemented
	}
	out := cloneAll(self.List())
	out = append(out, cloneAll(other.List())...)
	return vm.ListFrom(out), nil
}

func listMul(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	n := other.Int()
	elems := self.List()
	if n.Sign() <= 0 || len(elems) == 0 {
		return vm.ListFrom(nil), nil
	}
	count, ok := repeatCount(n, len(elems))
	if !ok {
		return Value{}, vm.Raise(TypeOverflowExc, "Integer overflow in 'mul'")
	}
	out := make([]Value, 0, count*len(elems))
	for k := 0; k < count; k++ {
		out = append(out, cloneAll(elems)...)
	}
	return vm.ListFrom(out), nil
}

func listGet(vm *VM, self, key Value) (Value, error) {
	if key.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	elems := self.List()
	i, err := vm.index(key.Int(), len(elems))
	if err != nil {
		return Value{}, err
	}
	return elems[i].Clone(), nil
}

// listSet replaces an element, copying the list first when it is shared.
func listSet(vm *VM, self *Value, key, val Value) error {
	if key.Kind() != KindInt {
		return ErrNotImplemented
	}
	i, err := vm.index(key.Int(), len(self.List()))
	if err != nil {
		return err
	}
	elems := self.mutList()
	old := elems[i]
	elems[i] = val.Clone()
	old.Drop()
	return nil
}

func listLen(vm *VM, self Value) (Value, error) {
	return vm.IntFrom(int64(len(self.List()))), nil
}

// listConstruct implements list(), list(list), list(str) and list(dict),
// the last yielding the dict's keys.
func listConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	switch len(args) {
	case 0:
		return vm.ListFrom(nil), nil
	case 1:
	default:
		return Value{}, vm.Raise(TypeValueExc, "Expected at most 1 argument(s), got %d", len(args))
	}
	arg := args[0]
	switch arg.Kind() {
	case KindList:
		return vm.ListFrom(cloneAll(arg.List())), nil
	case KindDict:
		return vm.ListFrom(cloneAll(arg.Dict().Keys())), nil
	case KindStr:
		var out []Value
		for _, r := range arg.Str() {
			out = append(out, vm.StrFrom(string(r)))
		}
		return vm.ListFrom(out), nil
	}
	return Value{}, vm.Raise(TypeTypeMismatchExc, "Cannot convert '%s' to 'list'", vm.TypeOf(arg).Name)
}

func (vm *VM) initListType() {
	vm.registerBuiltin(&Type{
		Name:  "list",
		Bases: []TypeID{TypeObject},
		Kind:  KindList,
		Own: Slots{
			Construct: listConstruct,
			Repr:      listRepr,
			Hash:      unhashable,
			Eq:        listEq,
			Add:       listAdd,
			Mul:       listMul,
			Get:       listGet,
			Set:       listSet,
			Len:       listLen,
		},
	}, TypeList)
}
