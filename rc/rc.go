// Package rc provides Rc, a reference-counted shared handle with weak
// references and copy-on-write promotion.
//
// Every runtime value in slate lives behind an Rc. Go's collector owns the
// memory, but the counts are still meaningful: they decide whether MakeMut
// may mutate in place or must clone first, and whether a Weak handle can
// still be upgraded.
//
// Counting is biased toward a single goroutine. Clone bumps a counter that
// is local to the handle's owning goroutine and is not synchronized. To give
// a value to another goroutine, call CloneAcrossThread, which takes the
// shared lock and returns a handle with its own local counter.
//
// Reference cycles are never collected. A cycle of strong handles keeps its
// payloads alive (and their counts above zero) for the life of the process.
// The VM avoids the one structural cycle it has, type-of-type, by storing
// type references as arena indices instead of handles.
package rc

import (
	"fmt"
	"math"
	"sync"
	"unsafe"
)

// maxRefCount is the largest count a handle may reach. Going past it would
// let the count wrap and free a live payload, so Clone panics instead.
const maxRefCount = math.MaxInt64

// Cloner is implemented by payloads that MakeMut can copy.
type Cloner[T any] interface {
	Clone() T
}

// Dropper is implemented by payloads that want to release resources when the
// last strong handle goes away.
type Dropper interface {
	Drop()
}

// Equaler is implemented by payloads that can be compared with Equal.
// Implementations must be reflexive.
type Equaler[T any] interface {
	Equal(other T) bool
}

// ---------------------------------------------------------------------------
// Shared allocation
// ---------------------------------------------------------------------------

// inner is the shared allocation. shared counts the goroutine-local groups
// that hold strong handles; weak counts Weak handles plus one for the strong
// side while any strong handle exists.
type inner[T any] struct {
	mu     sync.Mutex
	shared uint64
	weak   uint64
	alive  bool
	freed  bool
	value  T
}

// local is a goroutine-local strong count. Handles created by Clone share it.
type local struct {
	strong uint64
}

// ---------------------------------------------------------------------------
// Rc
// ---------------------------------------------------------------------------

// Rc is a strong handle. The zero Rc is empty and reports IsNil.
type Rc[T any] struct {
	in  *inner[T]
	loc *local
}

// New allocates value and returns the only strong handle to it.
func New[T any](value T) Rc[T] {
	return Rc[T]{
		in:  &inner[T]{shared: 1, weak: 1, alive: true, value: value},
		loc: &local{strong: 1},
	}
}

// IsNil reports whether the handle is empty (zero value or dropped).
func (h Rc[T]) IsNil() bool {
	return h.in == nil
}

func (h Rc[T]) mustLive(op string) {
	if h.in == nil {
		panic(fmt.Sprintf("rc.%s: nil handle", op))
	}
}

// Get returns a pointer to the payload. Callers must treat it as read-only;
// mutation goes through MakeMut or GetMut.
func (h Rc[T]) Get() *T {
	h.mustLive("Get")
	return &h.in.value
}

// Clone returns a new strong handle to the same payload. It is O(1) and only
// touches the goroutine-local count.
func (h Rc[T]) Clone() Rc[T] {
	h.mustLive("Clone")
	if h.loc.strong >= maxRefCount {
		panic("rc.Clone: strong count overflow")
	}
	h.loc.strong++
	return h
}

// CloneAcrossThread returns a strong handle that may be moved to another
// goroutine. It increments the shared count under the allocation lock and
// starts a fresh local count for the receiving goroutine.
func (h Rc[T]) CloneAcrossThread() Rc[T] {
	h.mustLive("CloneAcrossThread")
	h.in.mu.Lock()
	defer h.in.mu.Unlock()
	if h.in.shared >= maxRefCount {
		panic("rc.CloneAcrossThread: shared count overflow")
	}
	h.in.shared++
	return Rc[T]{in: h.in, loc: &local{strong: 1}}
}

// Drop releases this handle's strong reference and empties the handle.
// When the last strong reference goes, the payload is destroyed.
func (h *Rc[T]) Drop() {
	if h.in == nil {
		return
	}
	in, loc := h.in, h.loc
	*h = Rc[T]{}

	if loc.strong == 0 {
		panic("rc.Drop: strong count underflow")
	}
	loc.strong--
	if loc.strong > 0 {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.shared--
	if in.shared > 0 {
		return
	}
	in.destroy()
}

// destroy runs with in.mu held once no strong handle remains. The payload is
// left in place: borrowed copies of a handle may still read it until they go
// out of scope, and the collector reclaims it after that.
func (in *inner[T]) destroy() {
	if d, ok := any(in.value).(Dropper); ok {
		d.Drop()
	}
	in.alive = false
	in.releaseWeak()
}

func (in *inner[T]) releaseWeak() {
	in.weak--
	if in.weak == 0 {
		in.freed = true
	}
}

// unique reports whether h is the only strong handle to its payload.
func (h Rc[T]) unique() bool {
	if h.loc.strong != 1 {
		return false
	}
	h.in.mu.Lock()
	defer h.in.mu.Unlock()
	return h.in.shared == 1
}

// GetMut returns a mutable pointer to the payload when h is the unique
// strong handle and no Weak handles exist. Otherwise it returns false.
func (h *Rc[T]) GetMut() (*T, bool) {
	h.mustLive("GetMut")
	if !h.unique() {
		return nil, false
	}
	h.in.mu.Lock()
	defer h.in.mu.Unlock()
	if h.in.weak != 1 {
		return nil, false
	}
	return &h.in.value, true
}

// MakeMut returns a mutable pointer to h's payload, cloning it into a fresh
// allocation first if other strong handles share it. Handles that shared
// the old allocation keep seeing the old payload.
//
// If h is the only strong handle but Weak handles exist, the payload is moved
// to a fresh allocation and the old one is released, so those Weak handles
// can no longer be upgraded.
func MakeMut[T Cloner[T]](h *Rc[T]) *T {
	h.mustLive("MakeMut")
	if !h.unique() {
		fresh := New(h.in.value.Clone())
		h.Drop()
		*h = fresh
		return &h.in.value
	}

	in := h.in
	in.mu.Lock()
	if in.weak == 1 {
		in.mu.Unlock()
		return &in.value
	}
	moved := in.value
	var zero T
	in.value = zero
	in.shared = 0
	in.alive = false
	in.releaseWeak()
	in.mu.Unlock()

	*h = New(moved)
	return &h.in.value
}

// StrongCount returns the number of strong handles in h's local group.
func (h Rc[T]) StrongCount() int {
	if h.loc == nil {
		return 0
	}
	return int(h.loc.strong)
}

// SharedCount returns the number of goroutine-local groups holding strong
// handles to the payload.
func (h Rc[T]) SharedCount() int {
	if h.in == nil {
		return 0
	}
	h.in.mu.Lock()
	defer h.in.mu.Unlock()
	return int(h.in.shared)
}

// WeakCount returns the number of Weak handles to the payload.
func (h Rc[T]) WeakCount() int {
	if h.in == nil {
		return 0
	}
	h.in.mu.Lock()
	defer h.in.mu.Unlock()
	if h.in.alive {
		return int(h.in.weak - 1)
	}
	return int(h.in.weak)
}

// Addr returns the address of the shared allocation, for display only.
func (h Rc[T]) Addr() uintptr {
	return uintptr(unsafe.Pointer(h.in))
}

// PtrEq reports whether a and b point at the same allocation.
func PtrEq[T any](a, b Rc[T]) bool {
	return a.in == b.in
}

// Equal compares payloads, short-circuiting when both handles share an
// allocation.
func Equal[T Equaler[T]](a, b Rc[T]) bool {
	if a.in == b.in {
		return true
	}
	if a.in == nil || b.in == nil {
		return false
	}
	return a.in.value.Equal(b.in.value)
}

// ---------------------------------------------------------------------------
// Weak
// ---------------------------------------------------------------------------

// Weak is a non-owning handle. It does not keep the payload alive.
type Weak[T any] struct {
	in *inner[T]
}

// Downgrade returns a Weak handle to h's payload.
func (h Rc[T]) Downgrade() Weak[T] {
	h.mustLive("Downgrade")
	h.in.mu.Lock()
	defer h.in.mu.Unlock()
	if h.in.weak >= maxRefCount {
		panic("rc.Downgrade: weak count overflow")
	}
	h.in.weak++
	return Weak[T]{in: h.in}
}

// Upgrade returns a new strong handle if the payload is still alive.
func (w Weak[T]) Upgrade() (Rc[T], bool) {
	if w.in == nil {
		return Rc[T]{}, false
	}
	w.in.mu.Lock()
	defer w.in.mu.Unlock()
	if !w.in.alive || w.in.shared == 0 {
		return Rc[T]{}, false
	}
	if w.in.shared >= maxRefCount {
		panic("rc.Upgrade: shared count overflow")
	}
	w.in.shared++
	return Rc[T]{in: w.in, loc: &local{strong: 1}}, true
}

// Drop releases the weak reference and empties w.
func (w *Weak[T]) Drop() {
	if w.in == nil {
		return
	}
	in := w.in
	w.in = nil
	in.mu.Lock()
	defer in.mu.Unlock()
	in.releaseWeak()
}

// Freed reports whether both the strong and weak sides have released the
// allocation.
func (w Weak[T]) Freed() bool {
	if w.in == nil {
		return true
	}
	w.in.mu.Lock()
	defer w.in.mu.Unlock()
	return w.in.freed
}
