package dist

import (
	"bytes"
	"testing"

	"github.com/chazu/slate/vm"
	"github.com/google/go-cmp/cmp"
)

var at = vm.Position{Offset: 3, Line: 1, Column: 4}

// sampleModule builds `fn add(a, b) { return a + b } add(2, 3)`.
func sampleModule(v *vm.VM) *vm.Code {
	body := vm.NewCodeBuilder("add")
	body.Emit(vm.OpLoadName, at, at, body.Name("a"), int(vm.R1))
	body.Emit(vm.OpLoadName, at, at, body.Name("b"), int(vm.R2))
	body.Emit(vm.OpBinaryAdd, at, at, int(vm.R1))
	body.Emit(vm.OpReturn, at, at, int(vm.R1))

	m := vm.NewCodeBuilder("<module>")
	name := m.Name("add")
	params := v.ListFrom([]vm.Value{v.StrFrom("a"), v.StrFrom("b")})
	m.Emit(vm.OpMakeFunction, at, at, name, m.Const(params), m.Const(body.Build(v)))
	m.Emit(vm.OpStoreGlobal, at, at, name, int(vm.R1))
	m.Emit(vm.OpInitArgs, at, at)
	for _, n := range []int64{2, 3} {
		m.Emit(vm.OpLoadConstR1, at, at, m.Const(v.IntFrom(n)))
		m.Emit(vm.OpAddArgument, at, at, int(vm.R1))
	}
	m.Emit(vm.OpLoadGlobal, at, at, name, int(vm.R1))
	m.Emit(vm.OpCall, at, at, int(vm.R1), int(vm.R1))
	return m.Build(v).Code()
}

func TestCode_CBORRoundTrip(t *testing.T) {
	v := vm.New()
	orig := sampleModule(v)

	data, err := MarshalCode(orig)
	if err != nil {
		t.Fatalf("MarshalCode: %v", err)
	}
	val, err := UnmarshalCode(v, data)
	if err != nil {
		t.Fatalf("UnmarshalCode: %v", err)
	}
	got := val.Code()

	if diff := cmp.Diff(orig.Instructions, got.Instructions); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
	if v.Disassemble(orig) != v.Disassemble(got) {
		t.Errorf("disassembly differs:\n%s\nvs\n%s", v.Disassemble(orig), v.Disassemble(got))
	}

	r, err := v.Execute(got)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Int().Int64() != 5 {
		t.Errorf("result = %s, want 5", r.Int())
	}
}

func TestCode_DeterministicEncoding(t *testing.T) {
	v := vm.New()
	a, err := MarshalCode(sampleModule(v))
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalCode(sampleModule(v))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding the same code twice produced different bytes")
	}
}

func TestCode_ConstantKinds(t *testing.T) {
	v := vm.New()
	big, err := v.IntFromString("-170141183460469231731687303715884105728")
	if err != nil {
		t.Fatal(err)
	}
	b := vm.NewCodeBuilder("<module>")
	b.Const(v.None())
	b.Const(v.BoolFrom(true))
	b.Const(big)
	b.Const(v.StrFrom("héllo"))
	b.Const(v.ListFrom([]vm.Value{v.IntFrom(1), v.StrFrom("x")}))

	data, err := MarshalCode(b.Build(v).Code())
	if err != nil {
		t.Fatal(err)
	}
	val, err := UnmarshalCode(v, data)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, k := range val.Code().Consts {
		s, err := v.Repr(k)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, s)
	}
	want := []string{
		"none",
		"true",
		"-170141183460469231731687303715884105728",
		`"héllo"`,
		`[1, "x"]`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("constants mismatch (-want +got):\n%s", diff)
	}
}

func TestCode_RejectsUnserializableConstant(t *testing.T) {
	v := vm.New()
	b := vm.NewCodeBuilder("<module>")
	b.Const(v.DictFrom(vm.NewDict()))
	if _, err := MarshalCode(b.Build(v).Code()); err == nil {
		t.Error("expected an error for a dict constant")
	}
}

func TestUnmarshalCode_Errors(t *testing.T) {
	v := vm.New()

	if _, err := UnmarshalCode(v, []byte{0xff, 0x00}); err == nil {
		t.Error("expected an error for garbage input")
	}

	stale, err := cborEncMode.Marshal(&WireCode{Version: FormatVersion + 1, Name: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalCode(v, stale); err == nil {
		t.Error("expected an error for a newer format version")
	}

	bad, err := cborEncMode.Marshal(&WireCode{
		Version:      FormatVersion,
		Name:         "m",
		Instructions: []WireInstr{{Op: 0xff}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalCode(v, bad); err == nil {
		t.Error("expected an error for an unknown opcode")
	}
}
