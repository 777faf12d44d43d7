package dist

import (
	"fmt"

	"github.com/chazu/slate/vm"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so identical code encodes to identical
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCode serializes a code object and every code constant nested in it.
func MarshalCode(c *vm.Code) ([]byte, error) {
	w, err := toWire(c)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalCode decodes CBOR bytes back into a code value owned by v.
func UnmarshalCode(v *vm.VM, data []byte) (vm.Value, error) {
	var w WireCode
	if err := cbor.Unmarshal(data, &w); err != nil {
		return vm.Value{}, fmt.Errorf("dist: unmarshal code: %w", err)
	}
	if w.Version != FormatVersion {
		return vm.Value{}, fmt.Errorf("dist: code format version %d, want %d", w.Version, FormatVersion)
	}
	c, err := fromWire(v, &w)
	if err != nil {
		return vm.Value{}, err
	}
	return v.CodeFrom(c), nil
}

func toWire(c *vm.Code) (*WireCode, error) {
	w := &WireCode{
		Version:      FormatVersion,
		Name:         c.Name,
		Instructions: make([]WireInstr, len(c.Instructions)),
	}
	for i, in := range c.Instructions {
		w.Instructions[i] = WireInstr{
			Op:    uint8(in.Op),
			A:     in.A,
			B:     in.B,
			C:     in.C,
			Start: wirePos(in.Start),
			End:   wirePos(in.End),
		}
	}
	for i, k := range c.Consts {
		wc, err := constToWire(k)
		if err != nil {
			return nil, fmt.Errorf("dist: %s const %d: %w", c.Name, i, err)
		}
		w.Consts = append(w.Consts, wc)
	}
	for _, n := range c.Names {
		w.Names = append(w.Names, n.Str())
	}
	return w, nil
}

func constToWire(k vm.Value) (WireConst, error) {
	switch k.Kind() {
	case vm.KindNone:
		return WireConst{Kind: ConstNone}, nil
	case vm.KindBool:
		return WireConst{Kind: ConstBool, Bool: k.Bool()}, nil
	case vm.KindInt:
		return WireConst{Kind: ConstInt, Text: k.Int().String()}, nil
	case vm.KindStr:
		return WireConst{Kind: ConstStr, Text: k.Str()}, nil
	case vm.KindList:
		wc := WireConst{Kind: ConstList}
		for _, e := range k.List() {
			item, err := constToWire(e)
			if err != nil {
				return WireConst{}, err
			}
			wc.Items = append(wc.Items, item)
		}
		return wc, nil
	case vm.KindCode:
		inner, err := toWire(k.Code())
		if err != nil {
			return WireConst{}, err
		}
		return WireConst{Kind: ConstCode, Code: inner}, nil
	}
	return WireConst{}, fmt.Errorf("cannot serialize %s constant", k.Kind())
}

func fromWire(v *vm.VM, w *WireCode) (*vm.Code, error) {
	c := &vm.Code{
		Name:         w.Name,
		Instructions: make([]vm.Instruction, len(w.Instructions)),
	}
	for i, in := range w.Instructions {
		op := vm.Opcode(in.Op)
		if !op.Valid() {
			return nil, fmt.Errorf("dist: %s: invalid opcode %s at %d", w.Name, op, i)
		}
		c.Instructions[i] = vm.Instruction{
			Op:    op,
			A:     in.A,
			B:     in.B,
			C:     in.C,
			Start: vmPos(in.Start),
			End:   vmPos(in.End),
		}
	}
	for i, wc := range w.Consts {
		k, err := constFromWire(v, wc)
		if err != nil {
			return nil, fmt.Errorf("dist: %s const %d: %w", w.Name, i, err)
		}
		c.Consts = append(c.Consts, k)
	}
	for _, n := range w.Names {
		c.Names = append(c.Names, v.StrFrom(n))
	}
	return c, nil
}

func constFromWire(v *vm.VM, wc WireConst) (vm.Value, error) {
	switch wc.Kind {
	case ConstNone:
		return v.None(), nil
	case ConstBool:
		return v.BoolFrom(wc.Bool), nil
	case ConstInt:
		return v.IntFromString(wc.Text)
	case ConstStr:
		return v.StrFrom(wc.Text), nil
	case ConstList:
		elems := make([]vm.Value, 0, len(wc.Items))
		for _, item := range wc.Items {
			e, err := constFromWire(v, item)
			if err != nil {
				return vm.Value{}, err
			}
			elems = append(elems, e)
		}
		return v.ListFrom(elems), nil
	case ConstCode:
		if wc.Code == nil {
			return vm.Value{}, fmt.Errorf("code constant without body")
		}
		inner, err := fromWire(v, wc.Code)
		if err != nil {
			return vm.Value{}, err
		}
		return v.CodeFrom(inner), nil
	}
	return vm.Value{}, fmt.Errorf("unknown constant kind %d", wc.Kind)
}

func wirePos(p vm.Position) WirePos {
	return WirePos{Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func vmPos(p WirePos) vm.Position {
	return vm.Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}
