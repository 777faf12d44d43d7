package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Slot outcomes and runtime errors
// ---------------------------------------------------------------------------

// ErrNotImplemented is returned by a slot that does not apply to its
// operands. Dispatch helpers turn it into a TypeMismatchExc where a result is
// required.
var ErrNotImplemented = errors.New("not implemented")

// Exception is a raised slate exception travelling as a Go error. Value is
// the exception object; its record carries the message and source span.
type Exception struct {
	Value    Value
	TypeName string
}

// Error returns the exception's repr, e.g. NameExc: "Name 'x' not defined".
func (e *Exception) Error() string {
	return e.TypeName + ": \"" + e.Message() + "\""
}

// Message returns the exception's message text.
func (e *Exception) Message() string {
	msg := e.Value.Exception().Message
	if msg.Kind() == KindStr {
		return msg.Str()
	}
	return ""
}

// Span returns the source span recorded for the exception.
func (e *Exception) Span() (Position, Position) {
	r := e.Value.Exception()
	return r.Start, r.End
}

// Is matches exceptions by type name, so errors.Is(err, &Exception{TypeName:
// "NameExc"}) works in tests and callers.
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	return ok && t.Value.IsNil() && t.TypeName == e.TypeName
}

// place stamps a span on the exception unless one is already recorded. The
// innermost failing instruction wins.
func (e *Exception) place(start, end Position) {
	r := e.Value.Exception()
	if r.placed {
		return
	}
	r.Start, r.End, r.placed = start, end, true
}

// At records a span for an exception raised outside the interpreter, such as
// an int literal rejected by the compiler.
func (e *Exception) At(start, end Position) *Exception {
	e.place(start, end)
	return e
}

// Defect is the panic value for broken VM invariants: a payload of the wrong
// kind, reading the NA register, frame or temp underflow, or an arity
// mismatch in a function call. Defects are not slate exceptions and cannot be
// observed by programs.
type Defect struct {
	Msg string
}

func (d *Defect) Error() string { return "defect: " + d.Msg }

func defectf(format string, args ...any) *Defect {
	return &Defect{Msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Raising
// ---------------------------------------------------------------------------

// NewException builds an exception of type typ carrying msg.
func (vm *VM) NewException(typ TypeID, msg string) *Exception {
	t := vm.Types.Get(typ)
	rec := &ExceptionRecord{Message: vm.StrFrom(msg)}
	return &Exception{Value: newValue(typ, rec), TypeName: t.Name}
}

// Raise builds an exception with a formatted message.
func (vm *VM) Raise(typ TypeID, format string, args ...any) *Exception {
	return vm.NewException(typ, fmt.Sprintf(format, args...))
}

// ExceptionFrom wraps an existing exception value as an error.
func (vm *VM) ExceptionFrom(v Value) *Exception {
	return &Exception{Value: v, TypeName: vm.TypeOf(v).Name}
}

func (vm *VM) methodNotDefined(slot string, v Value) *Exception {
	return vm.Raise(TypeMethodNotDefinedExc, "Method '%s' is not defined for '%s' type", slot, vm.TypeOf(v).Name)
}

// ---------------------------------------------------------------------------
// Exception type slots
// ---------------------------------------------------------------------------

func excRepr(vm *VM, self Value) (Value, error) {
	e := vm.ExceptionFrom(self)
	return vm.StrFrom(e.Error()), nil
}

func excHash(vm *VM, self Value) (Value, error) {
	return vm.IntFrom(-int64(self.Type()) - 10), nil
}

func excEq(vm *VM, self, other Value) (Value, error) {
	if self.Type() != other.Type() {
		return vm.BoolFrom(false), nil
	}
	eq, err := vm.Equal(self.Exception().Message, other.Exception().Message)
	if err != nil {
		return Value{}, err
	}
	return vm.BoolFrom(eq), nil
}

// excConstruct builds an exception from a single message argument, so
// programs can create (but not raise) exception values.
func excConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	if len(args) > 1 {
		return Value{}, vm.Raise(TypeValueExc, "Expected at most 1 argument(s), got %d", len(args))
	}
	msg := ""
	if len(args) == 1 {
		s, err := vm.Str(args[0])
		if err != nil {
			return Value{}, err
		}
		msg = s
	}
	return newValue(t.ID, &ExceptionRecord{Message: vm.StrFrom(msg)}), nil
}

var exceptionTypes = []struct {
	id   TypeID
	name string
}{
	{TypeNameExc, "NameExc"},
	{TypeOverflowExc, "OverflowExc"},
	{TypeMethodNotDefinedExc, "MethodNotDefinedExc"},
	{TypeTypeMismatchExc, "TypeMismatchExc"},
	{TypeKeyNotFoundExc, "KeyNotFoundExc"},
	{TypeValueExc, "ValueExc"},
	{TypeDivisionByZeroExc, "DivisionByZeroExc"},
	{TypeAttributeExc, "AttributeExc"},
	{TypeRecursionExc, "RecursionExc"},
}

func (vm *VM) initExceptionTypes() {
	vm.registerBuiltin(&Type{
		Name:  "Exception",
		Bases: []TypeID{TypeObject},
		Kind:  KindException,
		Own: Slots{
			Construct: excConstruct,
			Repr:      excRepr,
			Str:       excRepr,
			Hash:      excHash,
			Eq:        excEq,
		},
	}, TypeException)

	for _, et := range exceptionTypes {
		vm.registerBuiltin(&Type{
			Name:  et.name,
			Bases: []TypeID{TypeException},
			Kind:  KindException,
		}, et.id)
	}
}
