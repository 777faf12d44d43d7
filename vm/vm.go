package vm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the slate virtual machine
// ---------------------------------------------------------------------------

// DefaultMaxDepth is the call depth limit used when none is configured.
const DefaultMaxDepth = 1000

// VM owns the type arena, the interned constants, the namespaces and the call
// stack. A VM runs one program at a time and must not be shared between
// goroutines while it runs.
type VM struct {
	Types *TypeTable

	// MaxDepth bounds the number of active frames.
	MaxDepth int

	// Trace logs every executed instruction at debug level.
	Trace bool

	// Interned values
	smallInts [IntCacheMax - IntCacheMin + 1]Value
	noneV     Value
	trueV     Value
	falseV    Value

	// globals is the top-level namespace. It is created by the first
	// top-level execution and survives until the VM is discarded.
	globals Value
	// builtins holds the type objects every program can name.
	builtins Value

	frames []*Frame

	log commonlog.Logger
}

// Option configures a VM.
type Option func(*VM)

// WithMaxDepth sets the call depth limit.
func WithMaxDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.MaxDepth = n
		}
	}
}

// WithTrace enables instruction tracing.
func WithTrace(on bool) Option {
	return func(vm *VM) { vm.Trace = on }
}

// New creates and bootstraps a VM.
func New(opts ...Option) *VM {
	vm := &VM{
		Types:    NewTypeTable(),
		MaxDepth: DefaultMaxDepth,
		log:      commonlog.GetLogger("slate.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.bootstrap()
	return vm
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func (vm *VM) bootstrap() {
	// Registration order must match the TypeID constants.
	vm.initObjectType()
	vm.initTypeType()
	vm.initNoneType()
	vm.initBoolType()
	vm.initIntType()
	vm.initStrType()
	vm.initListType()
	vm.initDictType()
	vm.initCodeType()
	vm.initFnType()
	vm.initMethodType()
	vm.initExceptionTypes()

	vm.noneV = newValue(TypeNone, nonePayload{})
	vm.trueV = newValue(TypeBool, boolPayload(true))
	vm.falseV = newValue(TypeBool, boolPayload(false))
	for i := range vm.smallInts {
		vm.smallInts[i] = newValue(TypeInt, intPayload{big.NewInt(int64(i + IntCacheMin))})
	}

	vm.builtins = vm.DictFrom(NewDict())
	for id := TypeObject; id < numBuiltinTypes; id++ {
		switch id {
		case TypeNone, TypeCode, TypeFn, TypeMethod:
			continue
		}
		vm.bindBuiltin(vm.Types.Get(id).Name, vm.TypeValue(id))
	}
}

// registerBuiltin adds and finalizes a built-in type, checking that it landed
// on the ID the rest of the VM expects.
func (vm *VM) registerBuiltin(t *Type, want TypeID) {
	id := vm.Types.Register(t)
	if id != want {
		panic(defectf("builtin %s registered as %d, want %d", t.Name, id, want))
	}
	vm.Types.Finalize(id)
}

func (vm *VM) bindBuiltin(name string, v Value) {
	if err := vm.builtins.mutDict().Insert(vm, vm.StrFrom(name), v); err != nil {
		panic(defectf("bind builtin %s: %v", name, err))
	}
}

// ---------------------------------------------------------------------------
// Value constructors
// ---------------------------------------------------------------------------

// None returns the interned none value.
func (vm *VM) None() Value { return vm.noneV.Clone() }

// BoolFrom returns the interned true or false value.
func (vm *VM) BoolFrom(b bool) Value {
	if b {
		return vm.trueV.Clone()
	}
	return vm.falseV.Clone()
}

// StrFrom returns a new str value.
func (vm *VM) StrFrom(s string) Value { return newValue(TypeStr, strPayload(s)) }

// ListFrom returns a list value that takes ownership of elems.
func (vm *VM) ListFrom(elems []Value) Value { return newValue(TypeList, listPayload(elems)) }

// DictFrom returns a dict value that takes ownership of d.
func (vm *VM) DictFrom(d *Dict) Value { return newValue(TypeDict, d) }

// CodeFrom returns a code value wrapping c.
func (vm *VM) CodeFrom(c *Code) Value { return newValue(TypeCode, c) }

// FunctionFrom returns a fn value. It takes ownership of code and params.
func (vm *VM) FunctionFrom(name string, code Value, params []Value) Value {
	return newValue(TypeFn, &Function{Name: name, Code: code, Params: params})
}

// MethodFrom binds callable to instance. Both handles are cloned.
func (vm *VM) MethodFrom(callable, instance Value) Value {
	return newValue(TypeMethod, &BoundMethod{Callable: callable.Clone(), Instance: instance.Clone()})
}

// TypeValue returns a value referring to the type with the given ID.
func (vm *VM) TypeValue(id TypeID) Value { return newValue(TypeType, typePayload(id)) }

// NewObject allocates a value of type id with no payload.
func (vm *VM) NewObject(id TypeID) Value {
	vm.Types.Get(id)
	return newValue(id, nonePayload{})
}

// ---------------------------------------------------------------------------
// Namespaces
// ---------------------------------------------------------------------------

// Globals returns the top-level namespace, or a nil Value before the first
// top-level execution. The handle is borrowed.
func (vm *VM) Globals() Value { return vm.globals }

// Global looks up a top-level binding. The handle is borrowed.
func (vm *VM) Global(name string) (Value, bool) {
	if vm.globals.IsNil() {
		return Value{}, false
	}
	key := vm.StrFrom(name)
	defer key.Drop()
	v, ok, err := vm.globals.Dict().Lookup(vm, key)
	if err != nil {
		return Value{}, false
	}
	return v, ok
}

// SetGlobal binds name in the top-level namespace, creating it if needed.
// It takes ownership of v.
func (vm *VM) SetGlobal(name string, v Value) error {
	if vm.globals.IsNil() {
		vm.globals = vm.DictFrom(NewDict())
	}
	return vm.globals.mutDict().Insert(vm, vm.StrFrom(name), v)
}

// Depth returns the number of active frames.
func (vm *VM) Depth() int { return len(vm.frames) }

// ---------------------------------------------------------------------------
// KeyOps
// ---------------------------------------------------------------------------

// Hash dispatches the hash slot of key and converts the result to a
// HashCode.
func (vm *VM) Hash(key Value) (HashCode, error) {
	slot := vm.TypeOf(key).Slots.Hash
	if slot == nil {
		return HashCode{}, vm.methodNotDefined("hash", key)
	}
	h, err := slot(vm, key)
	if err != nil {
		return HashCode{}, vm.notImplemented(err, "hash", key)
	}
	defer h.Drop()
	if h.Kind() != KindInt {
		return HashCode{}, vm.Raise(TypeTypeMismatchExc, "Method 'hash' returned '%s', expected 'int'", vm.TypeOf(h).Name)
	}
	return hashCodeOf(h.Int()), nil
}

// Equal dispatches the eq slot. Identical handles are always equal.
func (vm *VM) Equal(a, b Value) (bool, error) {
	if a.Is(b) {
		return true, nil
	}
	slot := vm.TypeOf(a).Slots.Eq
	if slot == nil {
		return false, nil
	}
	r, err := slot(vm, a, b)
	if errors.Is(err, ErrNotImplemented) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer r.Drop()
	if r.Kind() != KindBool {
		return false, vm.Raise(TypeTypeMismatchExc, "Method 'eq' returned '%s', expected 'bool'", vm.TypeOf(r).Name)
	}
	return r.Bool(), nil
}

// KeyNotFound builds the KeyNotFoundExc for key.
func (vm *VM) KeyNotFound(key Value) error {
	s, err := vm.Str(key)
	if err != nil {
		s = fmt.Sprintf("<%s>", vm.TypeOf(key).Name)
	}
	return vm.Raise(TypeKeyNotFoundExc, "Key '%s' not found", s)
}
