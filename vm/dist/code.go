// Package dist serializes compiled slate code to CBOR and caches it in a
// local SQLite database keyed by source hash.
package dist

// FormatVersion is bumped whenever the wire layout of WireCode changes.
const FormatVersion = 1

// ConstKind identifies the kind of a serialized constant.
type ConstKind uint8

const (
	ConstNone ConstKind = 1
	ConstBool ConstKind = 2
	ConstInt  ConstKind = 3
	ConstStr  ConstKind = 4
	ConstList ConstKind = 5
	ConstCode ConstKind = 6
)

// WireConst is a constant-pool entry. Ints travel as decimal text so the
// full 128-bit range survives.
type WireConst struct {
	Kind  ConstKind   `cbor:"1,keyasint"`
	Bool  bool        `cbor:"2,keyasint,omitempty"`
	Text  string      `cbor:"3,keyasint,omitempty"` // int digits or str contents
	Items []WireConst `cbor:"4,keyasint,omitempty"`
	Code  *WireCode   `cbor:"5,keyasint,omitempty"`
}

// WirePos is a source position, encoded as a 3-element array.
type WirePos struct {
	_      struct{} `cbor:",toarray"`
	Offset int
	Line   int
	Column int
}

// WireInstr is one instruction, encoded as an array.
type WireInstr struct {
	_     struct{} `cbor:",toarray"`
	Op    uint8
	A     int
	B     int
	C     int
	Start WirePos
	End   WirePos
}

// WireCode is the serialized form of a code object.
type WireCode struct {
	Version      int         `cbor:"1,keyasint"`
	Name         string      `cbor:"2,keyasint"`
	Instructions []WireInstr `cbor:"3,keyasint"`
	Consts       []WireConst `cbor:"4,keyasint,omitempty"`
	Names        []string    `cbor:"5,keyasint,omitempty"`
}
