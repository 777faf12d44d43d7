package vm

import (
	"fmt"
	"math/big"

	"github.com/chazu/slate/rc"
)

// ---------------------------------------------------------------------------
// Payload kinds
// ---------------------------------------------------------------------------

// Kind tags the payload carried by an Object.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindStr
	KindList
	KindDict
	KindCode
	KindFn
	KindException
	KindMethod
	KindInstance
	KindType
)

var kindNames = [...]string{
	KindNone:      "none",
	KindBool:      "bool",
	KindInt:       "int",
	KindStr:       "str",
	KindList:      "list",
	KindDict:      "dict",
	KindCode:      "code",
	KindFn:        "fn",
	KindException: "exception",
	KindMethod:    "method",
	KindInstance:  "instance",
	KindType:      "type",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// payload is the tagged union carried by an Object. clone is used by
// copy-on-write: value payloads copy, reference payloads share.
type payload interface {
	kind() Kind
	clone() payload
}

type nonePayload struct{}

func (nonePayload) kind() Kind       { return KindNone }
func (p nonePayload) clone() payload { return p }

type boolPayload bool

func (boolPayload) kind() Kind       { return KindBool }
func (p boolPayload) clone() payload { return p }

// intPayload holds a value in the signed 128-bit range. The big.Int is never
// mutated after construction.
type intPayload struct{ v *big.Int }

func (intPayload) kind() Kind       { return KindInt }
func (p intPayload) clone() payload { return p }

type strPayload string

func (strPayload) kind() Kind       { return KindStr }
func (p strPayload) clone() payload { return p }

type listPayload []Value

func (listPayload) kind() Kind { return KindList }
func (p listPayload) clone() payload {
	out := make(listPayload, len(p))
	for i, v := range p {
		out[i] = v.Clone()
	}
	return out
}

type typePayload TypeID

func (typePayload) kind() Kind       { return KindType }
func (p typePayload) clone() payload { return p }

// ---------------------------------------------------------------------------
// Object and Value
// ---------------------------------------------------------------------------

// Object is the heap record behind every Value: a type reference (an index
// into the VM's type arena) and a payload.
type Object struct {
	typ  TypeID
	data payload
}

// Clone implements rc.Cloner for copy-on-write.
func (o Object) Clone() Object {
	return Object{typ: o.typ, data: o.data.clone()}
}

// Value is a shared handle to an Object. Copying a Value in Go borrows it;
// owners call Clone to take a reference and Drop to give it back.
type Value struct {
	ref rc.Rc[Object]
}

func newValue(typ TypeID, data payload) Value {
	return Value{ref: rc.New(Object{typ: typ, data: data})}
}

// IsNil reports whether v holds no object.
func (v Value) IsNil() bool { return v.ref.IsNil() }

// Clone returns a new owning handle to the same object.
func (v Value) Clone() Value { return Value{ref: v.ref.Clone()} }

// CloneAcrossThread returns a handle that may be handed to another goroutine.
func (v Value) CloneAcrossThread() Value { return Value{ref: v.ref.CloneAcrossThread()} }

// Drop releases this handle.
func (v *Value) Drop() { v.ref.Drop() }

// Is reports identity: both handles refer to the same object.
func (v Value) Is(o Value) bool { return rc.PtrEq(v.ref, o.ref) }

// Addr returns the object's address for reprs.
func (v Value) Addr() uintptr { return v.ref.Addr() }

// RefCount returns the strong count of v's local handle group.
func (v Value) RefCount() int { return v.ref.StrongCount() }

func (v Value) obj() *Object { return v.ref.Get() }

// mutate returns a writable Object, copying it first if it is shared.
func (v *Value) mutate() *Object { return rc.MakeMut(&v.ref) }

func (v *Value) mutDict() *Dict { return v.mutate().data.(*Dict) }

func (v *Value) mutList() listPayload { return v.mutate().data.(listPayload) }

// Type returns the TypeID of v.
func (v Value) Type() TypeID { return v.obj().typ }

// Kind returns the payload kind of v.
func (v Value) Kind() Kind { return v.obj().data.kind() }

func (v Value) mustKind(k Kind, op string) payload {
	d := v.obj().data
	if d.kind() != k {
		panic(&Defect{Msg: fmt.Sprintf("Value.%s: payload is %s, not %s", op, d.kind(), k)})
	}
	return d
}

// ---------------------------------------------------------------------------
// Payload accessors. A kind mismatch is a defect.
// ---------------------------------------------------------------------------

// Bool returns the payload of a bool value.
func (v Value) Bool() bool { return bool(v.mustKind(KindBool, "Bool").(boolPayload)) }

// Int returns the payload of an int value. The result must not be mutated.
func (v Value) Int() *big.Int { return v.mustKind(KindInt, "Int").(intPayload).v }

// Str returns the payload of a str value.
func (v Value) Str() string { return string(v.mustKind(KindStr, "Str").(strPayload)) }

// List returns the elements of a list value. The slice is borrowed.
func (v Value) List() []Value { return v.mustKind(KindList, "List").(listPayload) }

// Dict returns the mapping of a dict value.
func (v Value) Dict() *Dict { return v.mustKind(KindDict, "Dict").(*Dict) }

// Code returns the bytecode of a code value.
func (v Value) Code() *Code { return v.mustKind(KindCode, "Code").(*Code) }

// Fn returns the function record of a fn value.
func (v Value) Fn() *Function { return v.mustKind(KindFn, "Fn").(*Function) }

// Exception returns the record of an exception value.
func (v Value) Exception() *ExceptionRecord {
	return v.mustKind(KindException, "Exception").(*ExceptionRecord)
}

// Method returns the record of a bound method value.
func (v Value) Method() *BoundMethod { return v.mustKind(KindMethod, "Method").(*BoundMethod) }

// Instance returns the record of a user class instance.
func (v Value) Instance() *Instance { return v.mustKind(KindInstance, "Instance").(*Instance) }

// TypeRef returns the TypeID a type value refers to.
func (v Value) TypeRef() TypeID { return TypeID(v.mustKind(KindType, "TypeRef").(typePayload)) }

// ---------------------------------------------------------------------------
// Reference payloads
// ---------------------------------------------------------------------------

// Function is a bound function: compiled code plus its declared parameters.
type Function struct {
	Name   string
	Code   Value   // code value
	Params []Value // str values
}

func (*Function) kind() Kind       { return KindFn }
func (f *Function) clone() payload { return f }

// BoundMethod pairs a callable with the instance it was fetched from.
type BoundMethod struct {
	Callable Value
	Instance Value
}

func (*BoundMethod) kind() Kind       { return KindMethod }
func (m *BoundMethod) clone() payload { return m }

// Instance is a user class instance. Handles to one instance share its
// attribute dict, which is itself updated copy-on-write.
type Instance struct {
	Attrs Value // dict value
}

func (*Instance) kind() Kind       { return KindInstance }
func (i *Instance) clone() payload { return i }

// ExceptionRecord wraps the user-visible message and the source span that
// raised it.
type ExceptionRecord struct {
	Message Value
	Start   Position
	End     Position
	placed  bool
}

func (*ExceptionRecord) kind() Kind       { return KindException }
func (e *ExceptionRecord) clone() payload { return e }

// Placed reports whether the exception carries a source span.
func (e *ExceptionRecord) Placed() bool { return e.placed }
