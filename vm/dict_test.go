package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// collidingKeys hashes every key to the same code, so every entry lands in
// one bucket and only eq tells keys apart.
type collidingKeys struct{ *VM }

func (collidingKeys) Hash(Value) (HashCode, error) { return HashCode{Lo: 7}, nil }

func strKeys(t *testing.T, d *Dict) []string {
	t.Helper()
	var out []string
	for _, k := range d.Keys() {
		out = append(out, k.Str())
	}
	return out
}

func TestDictInsertGet(t *testing.T) {
	vm := New()
	d := NewDict()
	if err := d.Insert(vm, vm.StrFrom("a"), vm.IntFrom(1)); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert(vm, vm.IntFrom(1000), vm.StrFrom("big")); err != nil {
		t.Fatal(err)
	}

	v, err := d.Get(vm, vm.StrFrom("a"))
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 1)

	// A different object that is eq-equal finds the same entry.
	v, err = d.Get(vm, vm.IntFrom(1000))
	if err != nil {
		t.Fatal(err)
	}
	if v.Str() != "big" {
		t.Errorf("got %q", v.Str())
	}
	if d.Len() != 2 {
		t.Errorf("Len = %d, want 2", d.Len())
	}
}

func TestDictMissingKey(t *testing.T) {
	vm := New()
	d := NewDict()
	_, err := d.Get(vm, vm.StrFrom("c"))
	wantExc(t, err, "KeyNotFoundExc", "Key 'c' not found")

	err = d.Delete(vm, vm.IntFrom(3))
	wantExc(t, err, "KeyNotFoundExc", "Key '3' not found")

	_, ok, err := d.Lookup(vm, vm.StrFrom("c"))
	if ok || err != nil {
		t.Errorf("Lookup = %v, %v", ok, err)
	}
}

func TestDictCollisionsCoexist(t *testing.T) {
	vm := New()
	ops := collidingKeys{vm}
	d := NewDict()
	for i, k := range []string{"x", "y", "z"} {
		if err := d.Insert(ops, vm.StrFrom(k), vm.IntFrom(int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}
	for i, k := range []string{"x", "y", "z"} {
		v, err := d.Get(ops, vm.StrFrom(k))
		if err != nil {
			t.Fatal(err)
		}
		wantInt(t, v, int64(i))
	}

	if err := d.Delete(ops, vm.StrFrom("y")); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x", "z"}, strKeys(t, d)); diff != "" {
		t.Errorf("keys after delete (-want +got):\n%s", diff)
	}
	if _, err := d.Get(ops, vm.StrFrom("y")); err == nil {
		t.Error("deleted key still present")
	}
}

func TestDictInsertionOrder(t *testing.T) {
	vm := New()
	d := NewDict()
	for _, k := range []string{"c", "a", "b"} {
		if err := d.Insert(vm, vm.StrFrom(k), vm.None()); err != nil {
			t.Fatal(err)
		}
	}
	// Replacing a value keeps the key's position.
	if err := d.Insert(vm, vm.StrFrom("c"), vm.IntFrom(1)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, strKeys(t, d)); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	wantInt(t, d.Values()[0], 1)
}

func TestDictCopyIsIndependent(t *testing.T) {
	vm := New()
	d := NewDict()
	if err := d.Insert(vm, vm.StrFrom("k"), vm.IntFrom(1)); err != nil {
		t.Fatal(err)
	}
	c := d.Copy()
	if err := c.Insert(vm, vm.StrFrom("other"), vm.IntFrom(2)); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 || c.Len() != 2 {
		t.Errorf("Len = %d, %d; want 1, 2", d.Len(), c.Len())
	}
}

func TestDictRejectsUnhashableKeys(t *testing.T) {
	vm := New()
	d := NewDict()
	err := d.Insert(vm, vm.ListFrom(nil), vm.None())
	wantExc(t, err, "TypeMismatchExc", "Unhashable type: 'list'")
	if d.Len() != 0 {
		t.Error("failed insert changed the dict")
	}
}

func TestDictEachStopsEarly(t *testing.T) {
	vm := New()
	d := NewDict()
	for i := int64(0); i < 5; i++ {
		if err := d.Insert(vm, vm.IntFrom(i), vm.IntFrom(i)); err != nil {
			t.Fatal(err)
		}
	}
	n := 0
	d.Each(func(k, v Value) bool {
		n++
		return n < 2
	})
	if n != 2 {
		t.Errorf("Each visited %d entries, want 2", n)
	}
}

// firstByteKeys hashes str keys by their first byte only.
type firstByteKeys struct{ *VM }

func (firstByteKeys) Hash(k Value) (HashCode, error) { return HashCode{Lo: uint64(k.Str()[0])}, nil }

func TestDictOrderIgnoresBuckets(t *testing.T) {
	vm := New()
	ops := firstByteKeys{vm}
	d := NewDict()
	for _, k := range []string{"a1", "b1", "a2", "c1"} {
		if err := d.Insert(ops, vm.StrFrom(k), vm.None()); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]string{"a1", "b1", "a2", "c1"}, strKeys(t, d)); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}

	// A deleted key goes to the back when it is inserted again.
	if err := d.Delete(ops, vm.StrFrom("a1")); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert(ops, vm.StrFrom("a1"), vm.None()); err != nil {
		t.Fatal(err)
	}
	want := []string{"b1", "a2", "c1", "a1"}
	if diff := cmp.Diff(want, strKeys(t, d)); diff != "" {
		t.Errorf("keys after reinsert (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, strKeys(t, d.Copy())); diff != "" {
		t.Errorf("copied keys (-want +got):\n%s", diff)
	}
	if _, err := d.Get(ops, vm.StrFrom("a2")); err != nil {
		t.Errorf("a2 lost after its bucket changed: %v", err)
	}
}

func TestObjectsShareOneHashCode(t *testing.T) {
	vm := New()
	a, b := vm.NewObject(TypeObject), vm.NewObject(TypeObject)
	ha, err := vm.Hash(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := vm.Hash(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Errorf("hash codes differ: %v, %v", ha, hb)
	}

	// Identity eq still keeps them apart as keys.
	d := NewDict()
	if err := d.Insert(vm, a.Clone(), vm.IntFrom(1)); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert(vm, b.Clone(), vm.IntFrom(2)); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	v, err := d.Get(vm, a)
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 1)
}
