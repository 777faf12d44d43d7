package vm

import (
	"errors"
)

// ---------------------------------------------------------------------------
// Frame: execution state of one code unit
// ---------------------------------------------------------------------------

type frameKind uint8

const (
	frameModule   frameKind = iota // top-level unit; falls through to R1
	frameFunction                  // function body; falls through to none
	frameClass                     // class body; runs for its namespace
)

// Frame holds the two registers, the stack of argument lists being built,
// the temp stack used to spill registers, and the namespace the unit stores
// into. Every Value in a frame is owned by it.
type Frame struct {
	code   *Code
	kind   frameKind
	r1, r2 Value
	args   [][]Value
	temps  []Value
	locals *Value
	owned  Value
	pc     int
}

func (f *Frame) reg(r Register) Value {
	var v Value
	switch r {
	case R1:
		v = f.r1
	case R2:
		v = f.r2
	default:
		panic(defectf("%s: read from register %s at %d", f.code.Name, r, f.pc-1))
	}
	if v.IsNil() {
		panic(defectf("%s: register %s read before write at %d", f.code.Name, r, f.pc-1))
	}
	return v
}

// set stores an owned value into a register. Writing NA drops it.
func (f *Frame) set(r Register, v Value) {
	switch r {
	case NA:
		v.Drop()
	case R1:
		f.r1.Drop()
		f.r1 = v
	case R2:
		f.r2.Drop()
		f.r2 = v
	default:
		panic(defectf("%s: write to register %s", f.code.Name, r))
	}
}

func (f *Frame) popArgs() []Value {
	n := len(f.args)
	if n == 0 {
		panic(defectf("%s: argument list underflow at %d", f.code.Name, f.pc-1))
	}
	args := f.args[n-1]
	f.args = f.args[:n-1]
	return args
}

func (f *Frame) popTemp() Value {
	n := len(f.temps)
	if n == 0 {
		panic(defectf("%s: temp stack underflow at %d", f.code.Name, f.pc-1))
	}
	v := f.temps[n-1]
	f.temps = f.temps[:n-1]
	return v
}

func (f *Frame) release() {
	f.r1.Drop()
	f.r2.Drop()
	dropAll(f.temps)
	for _, a := range f.args {
		dropAll(a)
	}
	f.owned.Drop()
}

func dropAll(vals []Value) {
	for i := range vals {
		vals[i].Drop()
	}
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Execute runs a top-level unit in the global namespace, creating it on
// first use. Bindings persist across calls. The result is the value left in
// R1, or none.
func (vm *VM) Execute(code *Code) (Value, error) {
	if vm.globals.IsNil() {
		vm.globals = vm.DictFrom(NewDict())
	}
	return vm.run(code, frameModule, &vm.globals, Value{})
}

// ExecuteWithNamespace runs a top-level unit with ns as its namespace. If no
// global namespace exists yet, ns becomes it. Otherwise the unit runs in a
// private copy of ns, so the caller's dict is never modified.
func (vm *VM) ExecuteWithNamespace(code *Code, ns Value) (Value, error) {
	if ns.Kind() != KindDict {
		panic(defectf("namespace must be a dict, not %s", ns.Kind()))
	}
	if vm.globals.IsNil() {
		vm.globals = ns.Clone()
		return vm.run(code, frameModule, &vm.globals, Value{})
	}
	return vm.run(code, frameModule, nil, ns.Clone())
}

// ExecuteVars runs a function body with locals as its namespace. It takes
// ownership of locals. Falling off the end yields none.
func (vm *VM) ExecuteVars(code *Code, locals Value) (Value, error) {
	return vm.run(code, frameFunction, nil, locals)
}

func (vm *VM) run(code *Code, kind frameKind, locals *Value, owned Value) (Value, error) {
	if len(vm.frames) >= vm.MaxDepth {
		owned.Drop()
		return Value{}, vm.Raise(TypeRecursionExc, "Maximum call depth of %d exceeded", vm.MaxDepth)
	}
	f := &Frame{code: code, kind: kind, locals: locals, owned: owned}
	if locals == nil {
		f.locals = &f.owned
	}
	vm.frames = append(vm.frames, f)
	defer func() {
		vm.frames = vm.frames[:len(vm.frames)-1]
		f.release()
	}()
	return vm.loop(f)
}

func (vm *VM) loop(f *Frame) (Value, error) {
	code := f.code
	for f.pc < len(code.Instructions) {
		in := code.Instructions[f.pc]
		f.pc++
		if vm.Trace {
			vm.log.Debugf("[%d] %s", len(vm.frames), vm.DisassembleInstruction(code, f.pc-1))
		}
		ret, done, err := vm.step(f, in)
		if err != nil {
			var exc *Exception
			if errors.As(err, &exc) {
				exc.place(in.Start, in.End)
			}
			return Value{}, err
		}
		if done {
			return ret, nil
		}
	}
	if f.kind == frameModule && !f.r1.IsNil() {
		v := f.r1
		f.r1 = Value{}
		return v, nil
	}
	return vm.None(), nil
}

// ---------------------------------------------------------------------------
// Instruction execution
// ---------------------------------------------------------------------------

func (vm *VM) step(f *Frame, in Instruction) (Value, bool, error) {
	code := f.code
	switch in.Op {
	case OpLoadConstR1:
		f.set(R1, code.constant(in.A).Clone())

	case OpLoadConstR2:
		f.set(R2, code.constant(in.A).Clone())

	case OpBinaryAdd, OpBinarySub, OpBinaryMul, OpBinaryDiv, OpBinaryPow:
		r, err := vm.Binary(BinaryOp(in.Op-OpBinaryAdd), f.reg(R1), f.reg(R2))
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.A), r)

	case OpUnaryNeg:
		r, err := vm.Negate(f.reg(R1))
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.A), r)

	case OpStoreName:
		v := f.reg(Register(in.B)).Clone()
		if err := f.locals.mutDict().Insert(vm, code.Names[in.A].Clone(), v); err != nil {
			return Value{}, false, err
		}

	case OpLoadName:
		v, err := vm.loadName(*f.locals, code, in.A)
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.B), v)

	case OpStoreGlobal:
		if vm.globals.IsNil() {
			vm.globals = vm.DictFrom(NewDict())
		}
		v := f.reg(Register(in.B)).Clone()
		if err := vm.globals.mutDict().Insert(vm, code.Names[in.A].Clone(), v); err != nil {
			return Value{}, false, err
		}

	case OpLoadGlobal:
		v, err := vm.loadName(Value{}, code, in.A)
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.B), v)

	case OpMakeFunction:
		params := code.constant(in.B)
		body := code.constant(in.C)
		f.set(R1, vm.FunctionFrom(code.name(in.A), body.Clone(), cloneAll(params.List())))

	case OpInitArgs:
		f.args = append(f.args, nil)

	case OpAddArgument:
		n := len(f.args)
		if n == 0 {
			panic(defectf("%s: argument added with no list at %d", code.Name, f.pc-1))
		}
		f.args[n-1] = append(f.args[n-1], f.reg(Register(in.A)).Clone())

	case OpCall:
		args := f.popArgs()
		r, err := vm.Call(f.reg(Register(in.A)), args)
		dropAll(args)
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.B), r)

	case OpReturn:
		return f.reg(Register(in.A)).Clone(), true, nil

	case OpCopyRegister:
		f.set(Register(in.B), f.reg(Register(in.A)).Clone())

	case OpPushTemp:
		f.temps = append(f.temps, f.reg(Register(in.A)).Clone())

	case OpPopTemp:
		f.set(Register(in.A), f.popTemp())

	case OpLoadAttr:
		r, err := vm.GetAttr(f.reg(R1), code.name(in.A))
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.B), r)

	case OpStoreAttr:
		if err := vm.SetAttr(f.reg(R1), code.name(in.A), f.reg(R2)); err != nil {
			return Value{}, false, err
		}
		f.set(R1, f.r2.Clone())

	case OpLoadSubscr:
		r, err := vm.GetItem(f.reg(R1), f.reg(R2))
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.A), r)

	case OpStoreSubscr:
		val := f.popTemp()
		f.reg(R1)
		err := vm.SetItem(&f.r1, f.reg(R2), val)
		val.Drop()
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.A), f.r1.Clone())

	case OpBuildList:
		f.set(Register(in.A), vm.ListFrom(f.popArgs()))

	case OpBuildDict:
		d, err := vm.buildDict(f.popArgs())
		if err != nil {
			return Value{}, false, err
		}
		f.set(Register(in.A), d)

	case OpMakeClass:
		bases := f.popArgs()
		cls, err := vm.makeClass(code.name(in.A), bases, code.constant(in.B).Code())
		dropAll(bases)
		if err != nil {
			return Value{}, false, err
		}
		f.set(R1, cls)

	default:
		panic(defectf("%s: unknown opcode %s at %d", code.Name, in.Op, f.pc-1))
	}
	return Value{}, false, nil
}

// loadName resolves names[idx] in locals (when given), then the globals,
// then the builtins.
func (vm *VM) loadName(locals Value, code *Code, idx int) (Value, error) {
	name := code.Names[idx]
	for _, ns := range [...]Value{locals, vm.globals, vm.builtins} {
		if ns.IsNil() {
			continue
		}
		v, ok, err := ns.Dict().Lookup(vm, name)
		if err != nil {
			return Value{}, err
		}
		if ok {
			return v.Clone(), nil
		}
	}
	return Value{}, vm.Raise(TypeNameExc, "Name '%s' not defined", name.Str())
}

// buildDict takes ownership of a flat key, value, key, value... list.
func (vm *VM) buildDict(pairs []Value) (Value, error) {
	if len(pairs)%2 != 0 {
		panic(defectf("dict literal with %d operands", len(pairs)))
	}
	d := vm.DictFrom(NewDict())
	for i := 0; i < len(pairs); i += 2 {
		if err := d.Dict().Insert(vm, pairs[i], pairs[i+1]); err != nil {
			dropAll(pairs[i:])
			d.Drop()
			return Value{}, err
		}
	}
	return d, nil
}

// makeClass runs a class body in a fresh namespace and turns the result into
// a class.
func (vm *VM) makeClass(name string, bases []Value, body *Code) (Value, error) {
	ns := vm.DictFrom(NewDict())
	r, err := vm.run(body, frameClass, &ns, Value{})
	if err != nil {
		ns.Drop()
		return Value{}, err
	}
	r.Drop()
	return vm.CreateClass(name, bases, ns)
}
