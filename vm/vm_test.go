package vm

import (
	"errors"
	"math/big"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func wantInt(t *testing.T, v Value, want int64) {
	t.Helper()
	if v.Kind() != KindInt {
		t.Fatalf("got %s value, want int", v.Kind())
	}
	if !v.Int().IsInt64() || v.Int().Int64() != want {
		t.Fatalf("got %s, want %d", v.Int(), want)
	}
}

func wantExc(t *testing.T, err error, typeName, msg string) *Exception {
	t.Helper()
	var exc *Exception
	if !errors.As(err, &exc) {
		t.Fatalf("got error %v, want %s", err, typeName)
	}
	if exc.TypeName != typeName {
		t.Fatalf("got %s, want %s", exc.TypeName, typeName)
	}
	if msg != "" && exc.Message() != msg {
		t.Fatalf("message = %q, want %q", exc.Message(), msg)
	}
	return exc
}

func expectDefect(t *testing.T, fn func()) (d *Defect) {
	t.Helper()
	defer func() {
		r := recover()
		var ok bool
		if d, ok = r.(*Defect); !ok {
			t.Fatalf("expected *Defect panic, got %v", r)
		}
	}()
	fn()
	return nil
}

// ---------------------------------------------------------------------------
// Bootstrap and interning
// ---------------------------------------------------------------------------

func TestBuiltinTypesRegistered(t *testing.T) {
	vm := New()
	tests := []struct {
		id   TypeID
		name string
	}{
		{TypeObject, "object"},
		{TypeType, "type"},
		{TypeNone, "NoneType"},
		{TypeBool, "bool"},
		{TypeInt, "int"},
		{TypeStr, "str"},
		{TypeList, "list"},
		{TypeDict, "dict"},
		{TypeCode, "code"},
		{TypeFn, "fn"},
		{TypeMethod, "method"},
		{TypeException, "Exception"},
		{TypeNameExc, "NameExc"},
		{TypeRecursionExc, "RecursionExc"},
	}
	for _, tt := range tests {
		typ := vm.Types.Get(tt.id)
		if typ.Name != tt.name {
			t.Errorf("type %d: Name = %q, want %q", tt.id, typ.Name, tt.name)
		}
		if !typ.Finalized() {
			t.Errorf("%s is not finalized", tt.name)
		}
	}
	if vm.Types.Len() != int(numBuiltinTypes) {
		t.Errorf("Len = %d, want %d", vm.Types.Len(), numBuiltinTypes)
	}
}

func TestTypeOfTypeIsType(t *testing.T) {
	vm := New()
	tv := vm.TypeValue(TypeType)
	defer tv.Drop()
	if got := vm.TypeOf(tv).ID; got != TypeType {
		t.Errorf("type(type) = %d, want %d", got, TypeType)
	}
}

func TestSmallIntsInterned(t *testing.T) {
	vm := New()
	a, b := vm.IntFrom(5), vm.IntFrom(5)
	if !a.Is(b) {
		t.Error("IntFrom(5) should return the same object twice")
	}
	if vm.IntFrom(IntCacheMin).Is(vm.IntFrom(IntCacheMin-1)) {
		t.Error("values outside the cache must not alias")
	}

	c, d := vm.IntFrom(1000), vm.IntFrom(1000)
	if c.Is(d) {
		t.Error("IntFrom(1000) should allocate independent objects")
	}
	eq, err := vm.Equal(c, d)
	if err != nil || !eq {
		t.Errorf("Equal(1000, 1000) = %v, %v", eq, err)
	}
}

func TestSingletonsInterned(t *testing.T) {
	vm := New()
	if !vm.None().Is(vm.None()) {
		t.Error("none is not interned")
	}
	if !vm.BoolFrom(true).Is(vm.BoolFrom(true)) {
		t.Error("true is not interned")
	}
	if vm.BoolFrom(true).Is(vm.BoolFrom(false)) {
		t.Error("true and false alias")
	}
}

func TestWrongPayloadKindIsDefect(t *testing.T) {
	vm := New()
	s := vm.StrFrom("x")
	expectDefect(t, func() { s.Int() })
}

// ---------------------------------------------------------------------------
// Type finalization
// ---------------------------------------------------------------------------

func TestFinalizeFoldsBasesThenOwn(t *testing.T) {
	tt := NewTypeTable()
	repr := func(vm *VM, self Value) (Value, error) { return Value{}, nil }
	neg := func(vm *VM, self Value) (Value, error) { return Value{}, ErrNotImplemented }

	a := tt.Register(&Type{Name: "A", Own: Slots{Repr: repr, Neg: repr}})
	tt.Finalize(a)
	b := tt.Register(&Type{Name: "B", Own: Slots{Abs: repr}})
	tt.Finalize(b)
	c := tt.Register(&Type{Name: "C", Bases: []TypeID{a, b}, Own: Slots{Neg: neg}})
	tt.Finalize(c)

	s := tt.Get(c).Slots
	if s.Repr == nil || s.Abs == nil {
		t.Fatal("slots of both bases should be inherited")
	}
	if _, err := s.Neg(nil, Value{}); !errors.Is(err, ErrNotImplemented) {
		t.Error("own slot should override the inherited one")
	}
	if !tt.IsSubtype(c, a) || !tt.IsSubtype(c, b) || tt.IsSubtype(a, c) {
		t.Error("IsSubtype is wrong")
	}
}

func TestUnfinalizedTypeIsDefect(t *testing.T) {
	tt := NewTypeTable()
	base := tt.Register(&Type{Name: "Base"})
	child := tt.Register(&Type{Name: "Child", Bases: []TypeID{base}})

	expectDefect(t, func() { tt.Get(base) })
	expectDefect(t, func() { tt.Finalize(child) })
}

// ---------------------------------------------------------------------------
// Copy-on-write
// ---------------------------------------------------------------------------

func TestListSetIsCopyOnWrite(t *testing.T) {
	vm := New()
	a := vm.ListFrom([]Value{vm.IntFrom(1)})
	b := a.Clone()

	if err := vm.SetItem(&a, vm.IntFrom(0), vm.IntFrom(9)); err != nil {
		t.Fatal(err)
	}
	wantInt(t, a.List()[0], 9)
	wantInt(t, b.List()[0], 1)
	if a.Is(b) {
		t.Error("a write to a shared list must move the writer to a copy")
	}
}

func TestUniqueListSetsInPlace(t *testing.T) {
	vm := New()
	a := vm.ListFrom([]Value{vm.IntFrom(1), vm.IntFrom(2)})
	before := a.Addr()
	if err := vm.SetItem(&a, vm.IntFrom(-1), vm.IntFrom(7)); err != nil {
		t.Fatal(err)
	}
	if a.Addr() != before {
		t.Error("a unique list should be written in place")
	}
	wantInt(t, a.List()[1], 7)
}

func TestDictSetIsCopyOnWrite(t *testing.T) {
	vm := New()
	a := vm.DictFrom(NewDict())
	b := a.Clone()

	if err := vm.SetItem(&a, vm.StrFrom("k"), vm.IntFrom(1)); err != nil {
		t.Fatal(err)
	}
	if a.Dict().Len() != 1 || b.Dict().Len() != 0 {
		t.Errorf("lens = %d, %d; want 1, 0", a.Dict().Len(), b.Dict().Len())
	}
}

// ---------------------------------------------------------------------------
// Reprs
// ---------------------------------------------------------------------------

func TestReprs(t *testing.T) {
	vm := New()
	d := NewDict()
	if err := d.Insert(vm, vm.StrFrom("a"), vm.IntFrom(1)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		v    Value
		want string
	}{
		{vm.IntFrom(-42), "-42"},
		{vm.StrFrom("hi"), `"hi"`},
		{vm.BoolFrom(true), "true"},
		{vm.BoolFrom(false), "false"},
		{vm.None(), "none"},
		{vm.ListFrom([]Value{vm.IntFrom(1), vm.StrFrom("x")}), `[1, "x"]`},
		{vm.ListFrom(nil), "[]"},
		{vm.DictFrom(d), `{"a": 1}`},
		{vm.TypeValue(TypeInt), "<class 'int'>"},
	}
	for _, tt := range tests {
		got, err := vm.Repr(tt.v)
		if err != nil {
			t.Errorf("Repr(%s): %v", tt.want, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Repr = %q, want %q", got, tt.want)
		}
	}

	s, err := vm.Str(vm.StrFrom("raw"))
	if err != nil || s != "raw" {
		t.Errorf("Str(\"raw\") = %q, %v", s, err)
	}
}

func TestMissingSlotRaisesMethodNotDefined(t *testing.T) {
	vm := New()
	_, err := vm.Binary(OpAdd, vm.None(), vm.IntFrom(1))
	wantExc(t, err, "MethodNotDefinedExc", "Method 'add' is not defined for 'NoneType' type")
}

func TestOperandMismatchRaisesTypeMismatch(t *testing.T) {
	vm := New()
	_, err := vm.Binary(OpAdd, vm.IntFrom(1), vm.StrFrom("a"))
	wantExc(t, err, "TypeMismatchExc", "Unsupported operand types for 'add': 'int' and 'str'")
}

func TestConstructThroughTypeObjects(t *testing.T) {
	vm := New()
	call := func(id TypeID, args ...Value) Value {
		t.Helper()
		r, err := vm.Call(vm.TypeValue(id), args)
		if err != nil {
			t.Fatalf("%s(...): %v", vm.Types.Get(id).Name, err)
		}
		return r
	}

	wantInt(t, call(TypeInt, vm.StrFrom("42")), 42)
	if s := call(TypeStr, vm.IntFrom(5)); s.Str() != "5" {
		t.Errorf("str(5) = %q", s.Str())
	}
	if b := call(TypeBool, vm.ListFrom(nil)); b.Bool() {
		t.Error("bool([]) should be false")
	}
	if l := call(TypeList, vm.StrFrom("ab")); len(l.List()) != 2 {
		t.Errorf("list(\"ab\") has %d elements", len(l.List()))
	}
	if ty := call(TypeType, vm.IntFrom(1)); ty.TypeRef() != TypeInt {
		t.Error("type(1) should be int")
	}
}

// ---------------------------------------------------------------------------
// Repetition
// ---------------------------------------------------------------------------

func TestRepeatBounds(t *testing.T) {
	vm := New()
	huge, err := vm.IntFromBig(new(big.Int).Lsh(big.NewInt(1), 100))
	if err != nil {
		t.Fatal(err)
	}
	ints := func(ns ...int64) Value {
		out := make([]Value, len(ns))
		for i, n := range ns {
			out[i] = vm.IntFrom(n)
		}
		return vm.ListFrom(out)
	}

	overflows := []struct {
		name  string
		seq   Value
		count Value
	}{
		{"str wraps int64", vm.StrFrom("abcd"), vm.IntFrom(1 << 62)},
		{"str past the cap", vm.StrFrom("ab"), vm.IntFrom(maxRepeatBytes/2 + 1)},
		{"str count beyond int64", vm.StrFrom("a"), huge},
		{"list wraps int64", ints(1, 2, 3, 4), vm.IntFrom(1 << 62)},
		{"list past the cap", ints(1), vm.IntFrom(maxRepeatBytes + 1)},
		{"list count beyond int64", ints(1), huge},
	}
	for _, tc := range overflows {
		t.Run(tc.name, func(t *testing.T) {
			_, err := vm.Binary(OpMul, tc.seq, tc.count)
			wantExc(t, err, "OverflowExc", "Integer overflow in 'mul'")
		})
	}

	empty := []struct {
		name  string
		seq   Value
		count Value
	}{
		{"empty str", vm.StrFrom(""), vm.IntFrom(1 << 62)},
		{"empty list", ints(), vm.IntFrom(1_000_000_000_000_000)},
		{"empty list huge count", ints(), huge},
		{"negative count", ints(1, 2), vm.IntFrom(-3)},
	}
	for _, tc := range empty {
		t.Run(tc.name, func(t *testing.T) {
			r, err := vm.Binary(OpMul, tc.seq, tc.count)
			if err != nil {
				t.Fatal(err)
			}
			n, err := vm.Len(r)
			if err != nil {
				t.Fatal(err)
			}
			wantInt(t, n, 0)
		})
	}

	r, err := vm.Binary(OpMul, ints(1, 2), vm.IntFrom(3))
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := vm.Repr(r); s != "[1, 2, 1, 2, 1, 2]" {
		t.Errorf("[1, 2] * 3 = %s", s)
	}
	r, err = vm.Binary(OpMul, vm.StrFrom("ab"), vm.IntFrom(3))
	if err != nil {
		t.Fatal(err)
	}
	if r.Str() != "ababab" {
		t.Errorf(`"ab" * 3 = %q`, r.Str())
	}
}
