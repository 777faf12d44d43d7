package vm

import (
	"encoding/binary"
	"math/big"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// ---------------------------------------------------------------------------
// Dict: mapping keyed by dynamically hashed values
// ---------------------------------------------------------------------------

// HashCode is the 128-bit two's complement form of the int a key's hash slot
// returns.
type HashCode struct {
	Hi, Lo uint64
}

// hashCodeOf converts an int in the 128-bit range to its hash code.
func hashCodeOf(b *big.Int) HashCode {
	x := b
	if b.Sign() < 0 {
		x = new(big.Int).Add(b, two128)
	}
	var buf [16]byte
	x.FillBytes(buf[:])
	return HashCode{
		Hi: binary.BigEndian.Uint64(buf[:8]),
		Lo: binary.BigEndian.Uint64(buf[8:]),
	}
}

// intOfHashCode is the inverse of hashCodeOf.
func intOfHashCode(h HashCode) *big.Int {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], h.Hi)
	binary.BigEndian.PutUint64(buf[8:], h.Lo)
	x := new(big.Int).SetBytes(buf[:])
	if h.Hi>>63 == 1 {
		x.Sub(x, two128)
	}
	return x
}

// KeyOps supplies hashing and equality for dict keys. The VM implements it
// by dispatching the hash and eq slots, either of which may raise.
type KeyOps interface {
	Hash(key Value) (HashCode, error)
	Equal(a, b Value) (bool, error)
	// KeyNotFound builds the exception raised for a missing key.
	KeyNotFound(key Value) error
}

type entry struct {
	seq   uint64
	hash  HashCode
	key   Value
	value Value
}

// Dict maps keys to values through their hash codes. Entries whose keys hash
// to the same code share a bucket and are told apart with eq. Iteration
// follows insertion order of keys; replacing the value of an existing key
// keeps its place.
//
// Dict owns the handles stored in it: Insert takes ownership of the key and
// value it is given, and the accessors return borrowed handles.
type Dict struct {
	buckets map[HashCode][]*entry
	order   *linkedhashmap.Map // seq -> *entry
	next    uint64
}

// NewDict creates an empty Dict.
func NewDict() *Dict {
	return &Dict{buckets: make(map[HashCode][]*entry), order: linkedhashmap.New()}
}

func (*Dict) kind() Kind       { return KindDict }
func (d *Dict) clone() payload { return d.Copy() }

// Len returns the number of entries.
func (d *Dict) Len() int { return d.order.Size() }

// find returns the key's hash code and its index in that bucket, or -1.
func (d *Dict) find(ops KeyOps, key Value) (HashCode, int, error) {
	h, err := ops.Hash(key)
	if err != nil {
		return h, -1, err
	}
	for i, e := range d.buckets[h] {
		eq, err := ops.Equal(e.key, key)
		if err != nil {
			return h, -1, err
		}
		if eq {
			return h, i, nil
		}
	}
	return h, -1, nil
}

func (d *Dict) add(h HashCode, key, value Value) {
	e := &entry{seq: d.next, hash: h, key: key, value: value}
	d.next++
	d.buckets[h] = append(d.buckets[h], e)
	d.order.Put(e.seq, e)
}

// Insert stores value under key, replacing any existing value for an equal
// key. Insert fails if the key cannot be hashed or compared.
func (d *Dict) Insert(ops KeyOps, key, value Value) error {
	h, i, err := d.find(ops, key)
	if err != nil {
		return err
	}
	if i < 0 {
		d.add(h, key, value)
		return nil
	}
	e := d.buckets[h][i]
	old := e.value
	e.value = value
	old.Drop()
	key.Drop()
	return nil
}

// Lookup returns the value stored under key, if any.
func (d *Dict) Lookup(ops KeyOps, key Value) (Value, bool, error) {
	h, i, err := d.find(ops, key)
	if err != nil || i < 0 {
		return Value{}, false, err
	}
	return d.buckets[h][i].value, true, nil
}

// Get returns the value stored under key or raises KeyNotFoundExc.
func (d *Dict) Get(ops KeyOps, key Value) (Value, error) {
	v, ok, err := d.Lookup(ops, key)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, ops.KeyNotFound(key)
	}
	return v, nil
}

// Delete removes key or raises KeyNotFoundExc.
func (d *Dict) Delete(ops KeyOps, key Value) error {
	h, i, err := d.find(ops, key)
	if err != nil {
		return err
	}
	if i < 0 {
		return ops.KeyNotFound(key)
	}
	b := d.buckets[h]
	e := b[i]
	if len(b) == 1 {
		delete(d.buckets, h)
	} else {
		d.buckets[h] = append(b[:i:i], b[i+1:]...)
	}
	d.order.Remove(e.seq)
	e.key.Drop()
	e.value.Drop()
	return nil
}

// Each calls fn for every entry in iteration order until fn returns false.
func (d *Dict) Each(fn func(key, value Value) bool) {
	it := d.order.Iterator()
	for it.Next() {
		e := it.Value().(*entry)
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Keys returns borrowed key handles in iteration order.
func (d *Dict) Keys() []Value {
	keys := make([]Value, 0, d.Len())
	d.Each(func(k, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Values returns borrowed value handles in iteration order.
func (d *Dict) Values() []Value {
	vals := make([]Value, 0, d.Len())
	d.Each(func(_, v Value) bool {
		vals = append(vals, v)
		return true
	})
	return vals
}

// Copy returns a Dict holding new references to the same keys and values.
func (d *Dict) Copy() *Dict {
	out := NewDict()
	it := d.order.Iterator()
	for it.Next() {
		e := it.Value().(*entry)
		out.add(e.hash, e.key.Clone(), e.value.Clone())
	}
	return out
}
