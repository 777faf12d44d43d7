package vm

import (
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

// ---------------------------------------------------------------------------
// str: immutable text, indexed by code point
// ---------------------------------------------------------------------------

func strRepr(vm *VM, self Value) (Value, error) {
	return vm.StrFrom("\"" + self.Str() + "\""), nil
}

func strStr(vm *VM, self Value) (Value, error) {
	return self.Clone(), nil
}

// strHash is the 128-bit xxh3 digest of the text, read as a signed int.
func strHash(vm *VM, self Value) (Value, error) {
	sum := xxh3.HashString128(self.Str())
	return vm.IntFromBig(intOfHashCode(HashCode{Hi: sum.Hi, Lo: sum.Lo}))
}

func strEq(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindStr {
		return vm.BoolFrom(false), nil
	}
	return vm.BoolFrom(self.Str() == other.Str()), nil
}

func strAdd(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindStr {
		return Value{}, ErrNotImplemented
	}
	return vm.StrFrom(self.Str() + other.Str()), nil
}

// strMul repeats the text. A negative count gives the empty string.
func strMul(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	s := self.Str()
	n := other.Int()
	if n.Sign() <= 0 || s == "" {
		return vm.StrFrom(""), nil
	}
	count, ok := repeatCount(n, len(s))
	if !ok {
		return Value{}, vm.Raise(TypeOverflowExc, "Integer overflow in 'mul'")
	}
	return vm.StrFrom(strings.Repeat(s, count)), nil
}

// maxRepeatBytes caps the size of a repeated str or list.
const maxRepeatBytes = 1 << 30

// repeatCount checks that n copies of something of the given non-zero size
// stay within maxRepeatBytes, and returns n as an int.
func repeatCount(n *big.Int, size int) (int, bool) {
	if !n.IsInt64() || n.Int64() > maxRepeatBytes/int64(size) {
		return 0, false
	}
	return int(n.Int64()), true
}

func strGet(vm *VM, self, key Value) (Value, error) {
	if key.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	runes := []rune(self.Str())
	i, err := vm.index(key.Int(), len(runes))
	if err != nil {
		return Value{}, err
	}
	return vm.StrFrom(string(runes[i])), nil
}

func strLen(vm *VM, self Value) (Value, error) {
	return vm.IntFrom(int64(utf8.RuneCountInString(self.Str()))), nil
}

// strConstruct implements str(x) through the str slot.
func strConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	switch len(args) {
	case 0:
		return vm.StrFrom(""), nil
	case 1:
		s, err := vm.Str(args[0])
		if err != nil {
			return Value{}, err
		}
		return vm.StrFrom(s), nil
	}
	return Value{}, vm.Raise(TypeValueExc, "Expected at most 1 argument(s), got %d", len(args))
}

// index resolves a possibly negative index against a sequence of length n.
func (vm *VM) index(i *big.Int, n int) (int, error) {
	if i.IsInt64() {
		k := i.Int64()
		if k < 0 {
			k += int64(n)
		}
		if k >= 0 && k < int64(n) {
			return int(k), nil
		}
	}
	return 0, vm.Raise(TypeValueExc, "Index %s out of range", i)
}

func (vm *VM) initStrType() {
	vm.registerBuiltin(&Type{
		Name:  "str",
		Bases: []TypeID{TypeObject},
		Kind:  KindStr,
		Own: Slots{
			Construct: strConstruct,
			Repr:      strRepr,
			Str:       strStr,
			Hash:      strHash,
			Eq:        strEq,
			Add:       strAdd,
			Mul:       strMul,
			Get:       strGet,
			Len:       strLen,
		},
	}, TypeStr)
}
