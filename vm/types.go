package vm

import (
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Type arena
// ---------------------------------------------------------------------------

// TypeID indexes the VM's type arena. Values refer to their type by ID, so
// the type-of-type relation (type's type is type) is an index, not a cycle of
// owning handles.
type TypeID int

// Built-in types, in registration order.
const (
	TypeObject TypeID = iota
	TypeType
	TypeNone
	TypeBool
	TypeInt
	TypeStr
	TypeList
	TypeDict
	TypeCode
	TypeFn
	TypeMethod
	TypeException
	TypeNameExc
	TypeOverflowExc
	TypeMethodNotDefinedExc
	TypeTypeMismatchExc
	TypeKeyNotFoundExc
	TypeValueExc
	TypeDivisionByZeroExc
	TypeAttributeExc
	TypeRecursionExc

	numBuiltinTypes
)

// Type describes one class of values.
type Type struct {
	ID    TypeID
	Name  string
	Bases []TypeID

	// Kind is the payload kind instances of this type carry.
	Kind Kind

	// Dict is the attribute dict of a user class. It is nil for built-ins.
	Dict Value

	// Own holds the slots this type declares. Slots is the flattened table
	// built by finalization and used for dispatch.
	Own   Slots
	Slots Slots

	finalized bool
}

// Finalized reports whether the slot table has been flattened.
func (t *Type) Finalized() bool { return t.finalized }

// IsClass reports whether t was created by a class definition.
func (t *Type) IsClass() bool { return !t.Dict.IsNil() }

// TypeTable owns every Type. The VM is the only writer; readers may come
// from other goroutines (the cache writer resolves type names).
type TypeTable struct {
	mu     sync.RWMutex
	types  []*Type
	byName map[string]TypeID
}

// NewTypeTable creates an empty arena.
func NewTypeTable() *TypeTable {
	return &TypeTable{byName: make(map[string]TypeID)}
}

// Register appends t to the arena and assigns its ID. The type must be
// finalized before Get will hand it out.
func (tt *TypeTable) Register(t *Type) TypeID {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	t.ID = TypeID(len(tt.types))
	tt.types = append(tt.types, t)
	tt.byName[t.Name] = t.ID
	return t.ID
}

// Finalize flattens the slot table of the type with the given ID: the
// effective tables of its bases are folded in declaration order, last writer
// wins, then the type's own slots are laid over the result.
func (tt *TypeTable) Finalize(id TypeID) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	t := tt.at(id)

	var s Slots
	for _, b := range t.Bases {
		base := tt.at(b)
		if !base.finalized {
			panic(&Defect{Msg: fmt.Sprintf("finalize %s: base %s is not finalized", t.Name, base.Name)})
		}
		s.inherit(&base.Slots)
	}
	s.inherit(&t.Own)
	t.Slots = s
	t.finalized = true
}

func (tt *TypeTable) at(id TypeID) *Type {
	if id < 0 || int(id) >= len(tt.types) {
		panic(&Defect{Msg: fmt.Sprintf("type id %d out of range", id)})
	}
	return tt.types[id]
}

// Get returns the finalized type with the given ID.
func (tt *TypeTable) Get(id TypeID) *Type {
	tt.mu.RLock()
	t := tt.at(id)
	tt.mu.RUnlock()
	if !t.finalized {
		panic(&Defect{Msg: fmt.Sprintf("type %s used before finalization", t.Name)})
	}
	return t
}

// Lookup finds a type by name.
func (tt *TypeTable) Lookup(name string) (*Type, bool) {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	id, ok := tt.byName[name]
	if !ok {
		return nil, false
	}
	return tt.types[id], true
}

// Len returns the number of registered types.
func (tt *TypeTable) Len() int {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return len(tt.types)
}

// IsSubtype reports whether id is base or inherits from it.
func (tt *TypeTable) IsSubtype(id, base TypeID) bool {
	if id == base {
		return true
	}
	tt.mu.RLock()
	t := tt.at(id)
	bases := t.Bases
	tt.mu.RUnlock()
	for _, b := range bases {
		if tt.IsSubtype(b, base) {
			return true
		}
	}
	return false
}
