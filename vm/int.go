package vm

import (
	"math/big"
	"strings"
)

// ---------------------------------------------------------------------------
// int: signed 128-bit integers with checked arithmetic
// ---------------------------------------------------------------------------

// Interned small-int range.
const (
	IntCacheMin = -5
	IntCacheMax = 256
)

var (
	one       = big.NewInt(1)
	two128    = new(big.Int).Lsh(one, 128)
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(one, 127), one)
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(one, 127))
)

func fitsInt128(b *big.Int) bool {
	return b.Cmp(minInt128) >= 0 && b.Cmp(maxInt128) <= 0
}

// IntFrom returns an int value. Values in [IntCacheMin, IntCacheMax] come from
// the intern cache and share one allocation.
func (vm *VM) IntFrom(n int64) Value {
	if n >= IntCacheMin && n <= IntCacheMax {
		return vm.smallInts[n-IntCacheMin].Clone()
	}
	return newValue(TypeInt, intPayload{big.NewInt(n)})
}

// IntFromBig returns an int value for b, raising OverflowExc when b does not
// fit in 128 bits.
func (vm *VM) IntFromBig(b *big.Int) (Value, error) {
	if !fitsInt128(b) {
		return Value{}, vm.Raise(TypeOverflowExc, "Integer '%s' does not fit in 128 bits", b)
	}
	if b.IsInt64() {
		return vm.IntFrom(b.Int64()), nil
	}
	return newValue(TypeInt, intPayload{new(big.Int).Set(b)}), nil
}

// IntFromString parses a decimal literal. Underscore separators are allowed.
func (vm *VM) IntFromString(s string) (Value, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	b, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return Value{}, vm.Raise(TypeValueExc, "Invalid literal for 'int': '%s'", s)
	}
	return vm.IntFromBig(b)
}

// checked wraps an arithmetic result, raising OverflowExc on overflow.
func (vm *VM) checked(op string, r *big.Int) (Value, error) {
	if !fitsInt128(r) {
		return Value{}, vm.Raise(TypeOverflowExc, "Integer overflow in '%s'", op)
	}
	return vm.IntFromBig(r)
}

func intRepr(vm *VM, self Value) (Value, error) {
	return vm.StrFrom(self.Int().String()), nil
}

// intHash returns the integer itself: every int is its own 128-bit hash.
func intHash(vm *VM, self Value) (Value, error) {
	return self.Clone(), nil
}

func intEq(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return vm.BoolFrom(false), nil
	}
	return vm.BoolFrom(self.Int().Cmp(other.Int()) == 0), nil
}

func intAbs(vm *VM, self Value) (Value, error) {
	return vm.checked("abs", new(big.Int).Abs(self.Int()))
}

func intNeg(vm *VM, self Value) (Value, error) {
	return vm.checked("neg", new(big.Int).Neg(self.Int()))
}

func intAdd(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	return vm.checked("add", new(big.Int).Add(self.Int(), other.Int()))
}

func intSub(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	return vm.checked("sub", new(big.Int).Sub(self.Int(), other.Int()))
}

func intMul(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	return vm.checked("mul", new(big.Int).Mul(self.Int(), other.Int()))
}

// intDiv truncates toward zero.
func intDiv(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	if other.Int().Sign() == 0 {
		return Value{}, vm.Raise(TypeDivisionByZeroExc, "Division by zero")
	}
	return vm.checked("div", new(big.Int).Quo(self.Int(), other.Int()))
}

func intPow(vm *VM, self, other Value) (Value, error) {
	if other.Kind() != KindInt {
		return Value{}, ErrNotImplemented
	}
	base, exp := self.Int(), other.Int()
	if exp.Sign() < 0 {
		return Value{}, vm.Raise(TypeValueExc, "Negative exponent '%s'", exp)
	}
	if base.CmpAbs(one) > 0 && exp.Cmp(big.NewInt(127)) > 0 {
		return Value{}, vm.Raise(TypeOverflowExc, "Integer overflow in 'pow'")
	}
	return vm.checked("pow", new(big.Int).Exp(base, exp, nil))
}

func intConstruct(vm *VM, t *Type, args []Value) (Value, error) {
	switch len(args) {
	case 0:
		return vm.IntFrom(0), nil
	case 1:
	default:
		return Value{}, vm.Raise(TypeValueExc, "Expected at most 1 argument(s), got %d", len(args))
	}
	arg := args[0]
	switch arg.Kind() {
	case KindInt:
		return arg.Clone(), nil
	case KindStr:
		return vm.IntFromString(arg.Str())
	case KindBool:
		if arg.Bool() {
			return vm.IntFrom(1), nil
		}
		return vm.IntFrom(0), nil
	}
	return Value{}, vm.Raise(TypeTypeMismatchExc, "Cannot convert '%s' to 'int'", vm.TypeOf(arg).Name)
}

func (vm *VM) initIntType() {
	vm.registerBuiltin(&Type{
		Name:  "int",
		Bases: []TypeID{TypeObject},
		Kind:  KindInt,
		Own: Slots{
			Construct: intConstruct,
			Repr:      intRepr,
			Str:       intRepr,
			Abs:       intAbs,
			Neg:       intNeg,
			Hash:      intHash,
			Eq:        intEq,
			Add:       intAdd,
			Sub:       intSub,
			Mul:       intMul,
			Div:       intDiv,
			Pow:       intPow,
		},
	}, TypeInt)
}
