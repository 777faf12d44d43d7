package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// code, fn and method
// ---------------------------------------------------------------------------

func codeRepr(vm *VM, self Value) (Value, error) {
	return vm.StrFrom(fmt.Sprintf("<code object @ %#x>", self.Addr())), nil
}

func (vm *VM) initCodeType() {
	vm.registerBuiltin(&Type{
		Name:  "code",
		Bases: []TypeID{TypeObject},
		Kind:  KindCode,
		Own:   Slots{Repr: codeRepr},
	}, TypeCode)
}

func fnRepr(vm *VM, self Value) (Value, error) {
	return vm.StrFrom(fmt.Sprintf("<fn '%s' @ %#x>", self.Fn().Name, self.Addr())), nil
}

// fnCall binds the parameters to the arguments in a fresh namespace and runs
// the body. An arity mismatch is a defect.
func fnCall(vm *VM, self Value, args []Value) (Value, error) {
	f := self.Fn()
	if len(args) != len(f.Params) {
		panic(defectf("fn '%s': expected %d argument(s), got %d", f.Name, len(f.Params), len(args)))
	}
	locals := NewDict()
	for i, p := range f.Params {
		if err := locals.Insert(vm, p.Clone(), args[i].Clone()); err != nil {
			return Value{}, err
		}
	}
	return vm.ExecuteVars(f.Code.Code(), vm.DictFrom(locals))
}

// fnDescrGet binds a function fetched through an instance.
func fnDescrGet(vm *VM, self, instance Value) (Value, error) {
	if instance.Kind() == KindType {
		return self.Clone(), nil
	}
	return vm.MethodFrom(self, instance), nil
}

func (vm *VM) initFnType() {
	vm.registerBuiltin(&Type{
		Name:  "fn",
		Bases: []TypeID{TypeObject},
		Kind:  KindFn,
		Own: Slots{
			Repr:     fnRepr,
			Call:     fnCall,
			DescrGet: fnDescrGet,
		},
	}, TypeFn)
}

// callableName names the function behind a bound method.
func callableName(v Value) string {
	if v.Kind() == KindFn {
		return v.Fn().Name
	}
	return "?"
}

func methodRepr(vm *VM, self Value) (Value, error) {
	m := self.Method()
	return vm.StrFrom(fmt.Sprintf("<method '%s' of '%s' @ %#x>",
		callableName(m.Callable), vm.TypeOf(m.Instance).Name, self.Addr())), nil
}

// methodCall prepends the bound instance to the arguments.
func methodCall(vm *VM, self Value, args []Value) (Value, error) {
	m := self.Method()
	full := make([]Value, 0, len(args)+1)
	full = append(full, m.Instance)
	full = append(full, args...)
	return vm.Call(m.Callable, full)
}

func (vm *VM) initMethodType() {
	vm.registerBuiltin(&Type{
		Name:  "method",
		Bases: []TypeID{TypeObject},
		Kind:  KindMethod,
		Own: Slots{
			Repr: methodRepr,
			Call: methodCall,
		},
	}, TypeMethod)
}
