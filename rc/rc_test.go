package rc

import (
	"sync"
	"testing"
)

type cell struct {
	items []int
}

func (c cell) Clone() cell {
	return cell{items: append([]int(nil), c.items...)}
}

func (c cell) Equal(o cell) bool {
	if len(c.items) != len(o.items) {
		return false
	}
	for i := range c.items {
		if c.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

type closer struct {
	closed *bool
}

func (c closer) Drop() { *c.closed = true }

// ---------------------------------------------------------------------------
// Strong counting
// ---------------------------------------------------------------------------

func TestNewHasSingleOwner(t *testing.T) {
	h := New(cell{items: []int{1}})
	if h.StrongCount() != 1 {
		t.Errorf("StrongCount = %d, want 1", h.StrongCount())
	}
	if h.WeakCount() != 0 {
		t.Errorf("WeakCount = %d, want 0", h.WeakCount())
	}
	if h.IsNil() {
		t.Error("new handle should not be nil")
	}
}

func TestCloneSharesAllocation(t *testing.T) {
	h1 := New(cell{items: []int{1}})
	h2 := h1.Clone()
	if !PtrEq(h1, h2) {
		t.Error("clone should share the allocation")
	}
	if h1.StrongCount() != 2 {
		t.Errorf("StrongCount = %d, want 2", h1.StrongCount())
	}
	h2.Drop()
	if h1.StrongCount() != 1 {
		t.Errorf("StrongCount after drop = %d, want 1", h1.StrongCount())
	}
	if !h2.IsNil() {
		t.Error("dropped handle should be nil")
	}
}

func TestDropDestroysPayload(t *testing.T) {
	closed := false
	h := New(closer{closed: &closed})
	h2 := h.Clone()
	h.Drop()
	if closed {
		t.Fatal("payload destroyed while a strong handle remains")
	}
	h2.Drop()
	if !closed {
		t.Error("payload should be destroyed after the last strong handle drops")
	}
}

func TestCloneOverflowPanics(t *testing.T) {
	h := New(cell{})
	h.loc.strong = maxRefCount
	defer func() {
		if recover() == nil {
			t.Error("Clone at max count should panic")
		}
	}()
	h.Clone()
}

func TestDropTwiceIsNoop(t *testing.T) {
	h := New(cell{})
	h.Drop()
	h.Drop()
	if !h.IsNil() {
		t.Error("handle should stay nil")
	}
}

// ---------------------------------------------------------------------------
// Weak handles
// ---------------------------------------------------------------------------

func TestUpgradeWhileAlive(t *testing.T) {
	h := New(cell{items: []int{7}})
	w := h.Downgrade()
	if h.WeakCount() != 1 {
		t.Errorf("WeakCount = %d, want 1", h.WeakCount())
	}
	got, ok := w.Upgrade()
	if !ok {
		t.Fatal("Upgrade should succeed while a strong handle exists")
	}
	if got.Get().items[0] != 7 {
		t.Errorf("upgraded payload = %v", got.Get().items)
	}
	if h.SharedCount() != 2 {
		t.Errorf("SharedCount = %d, want 2", h.SharedCount())
	}
	got.Drop()
}

func TestUpgradeFailsAfterLastStrongDrop(t *testing.T) {
	h := New(cell{items: []int{7}})
	w := h.Downgrade()
	probe := h.Downgrade()
	h.Drop()
	if _, ok := w.Upgrade(); ok {
		t.Error("Upgrade should fail once the strong count is zero")
	}
	w.Drop()
	if probe.Freed() {
		t.Error("allocation freed while a weak handle remains")
	}
	probe.Drop()
}

func TestAllocationFreedWhenWeakReleased(t *testing.T) {
	h := New(cell{})
	w := h.Downgrade()
	in := h.in
	h.Drop()
	if in.freed {
		t.Fatal("freed while weak handle exists")
	}
	w.Drop()
	if !in.freed {
		t.Error("allocation should be freed when strong and weak both reach zero")
	}
}

// ---------------------------------------------------------------------------
// Copy-on-write
// ---------------------------------------------------------------------------

func TestMakeMutUniqueMutatesInPlace(t *testing.T) {
	h := New(cell{items: []int{1}})
	before := h.Addr()
	p := MakeMut(&h)
	p.items[0] = 2
	if h.Addr() != before {
		t.Error("unique MakeMut should not reallocate")
	}
	if h.Get().items[0] != 2 {
		t.Errorf("items = %v, want [2]", h.Get().items)
	}
}

func TestMakeMutSharedCopies(t *testing.T) {
	h1 := New(cell{items: []int{1, 2}})
	h2 := h1.Clone()

	p := MakeMut(&h1)
	p.items[0] = 99

	if h2.Get().items[0] != 1 {
		t.Errorf("sharer observed the write: %v", h2.Get().items)
	}
	if h1.Get().items[0] != 99 {
		t.Errorf("writer lost the write: %v", h1.Get().items)
	}
	if PtrEq(h1, h2) {
		t.Error("MakeMut on a shared handle should reallocate")
	}
	if h2.StrongCount() != 1 {
		t.Errorf("old allocation StrongCount = %d, want 1", h2.StrongCount())
	}
}

func TestMakeMutDisassociatesWeak(t *testing.T) {
	h := New(cell{items: []int{1}})
	w := h.Downgrade()
	p := MakeMut(&h)
	p.items[0] = 5
	if _, ok := w.Upgrade(); ok {
		t.Error("weak handle should not upgrade after MakeMut moved the payload")
	}
	if h.Get().items[0] != 5 {
		t.Errorf("items = %v, want [5]", h.Get().items)
	}
}

func TestGetMut(t *testing.T) {
	h := New(cell{items: []int{1}})
	if _, ok := h.GetMut(); !ok {
		t.Error("GetMut should succeed on a unique handle")
	}
	h2 := h.Clone()
	if _, ok := h.GetMut(); ok {
		t.Error("GetMut should fail on a shared handle")
	}
	h2.Drop()
	w := h.Downgrade()
	if _, ok := h.GetMut(); ok {
		t.Error("GetMut should fail while weak handles exist")
	}
	w.Drop()
}

// ---------------------------------------------------------------------------
// Equality and cross-goroutine handles
// ---------------------------------------------------------------------------

func TestEqual(t *testing.T) {
	a := New(cell{items: []int{1, 2}})
	b := New(cell{items: []int{1, 2}})
	c := New(cell{items: []int{3}})
	if !Equal(a, a.Clone()) {
		t.Error("same allocation should be equal")
	}
	if !Equal(a, b) {
		t.Error("equal payloads should compare equal")
	}
	if Equal(a, c) {
		t.Error("different payloads should not compare equal")
	}
}

func TestCloneAcrossThread(t *testing.T) {
	h := New(cell{items: []int{4}})
	shared := h.CloneAcrossThread()
	if h.SharedCount() != 2 {
		t.Fatalf("SharedCount = %d, want 2", h.SharedCount())
	}
	if shared.StrongCount() != 1 {
		t.Errorf("cross-thread handle local count = %d, want 1", shared.StrongCount())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		local := shared.Clone()
		if local.Get().items[0] != 4 {
			t.Errorf("payload = %v", local.Get().items)
		}
		local.Drop()
		shared.Drop()
	}()
	wg.Wait()

	if h.SharedCount() != 1 {
		t.Errorf("SharedCount after goroutine = %d, want 1", h.SharedCount())
	}
	if _, ok := h.GetMut(); !ok {
		t.Error("handle should be unique again")
	}
}
