package vm

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"math"
	"strconv"
)

type Value interface{ isValue() }

func NewValue() Value { return VBool(false) }

type VBool bool

func (_ VBool) isValue()       {}
func (v VBool) String() string { return fmt.Sprintf("%t", v) }

// VNum is a numeric constant of arbitrary precision, either an integer or a
// floating-point value. Type is nil for an untyped constant, otherwise its
// underlying type is a numeric basic type.
type VNum struct {
	constant.Value
	Type types.Type
}

func (_ VNum) isValue() {}
func (v VNum) String() string {
	if v.IsInt() {
		return v.Value.ExactString()
	}
	return v.Value.String()
}

func NewVInt(i int64) VNum { return VNum{Value: constant.MakeInt64(i)} }

func (v VNum) IsInt() bool { return v.Kind() == constant.Int }

type VStr string

func (_ VStr) isValue()       {}
func (v VStr) String() string { return strconv.Quote(string(v)) }

// VType is a type operand, only meaningful to builtins and identity
// comparisons.
type VType struct{ types.Type }

func (_ VType) isValue()       {}
func (v VType) String() string { return types.TypeString(v.Type, nil) }

// FromConstant converts a constant produced by go/types into a Value.
func FromConstant(val constant.Value) (res Value, ok bool) {
	res = NewValue()
	switch val.Kind() {
	case constant.Bool:
		return VBool(constant.BoolVal(val)), true
	case constant.String:
		return VStr(constant.StringVal(val)), true
	case constant.Int, constant.Float:
		return VNum{Value: val}, true
	}
	return
}

// FromTypedConstant is FromConstant keeping the type t of a typed numeric
// constant.
func FromTypedConstant(val constant.Value, t types.Type) (res Value, ok bool) {
	res, ok = FromConstant(val)
	if num, isNum := res.(VNum); isNum && !isUntyped(t) {
		num.Type = t
		res = num
	}
	return
}

func isUntyped(t types.Type) bool {
	basic, ok := t.(*types.Basic)
	return ok && basic.Info()&types.IsUntyped != 0
}

func basicInfo(t types.Type) types.BasicInfo {
	if t == nil {
		return 0
	}
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return 0
	}
	return basic.Info()
}

func isInteger(t types.Type) bool { return basicInfo(t)&types.IsInteger != 0 }

// Convert gives v the type t following Go's constant conversion rules. The
// underlying type of t must be a boolean, numeric, or string basic type.
func Convert(v Value, t types.Type, sizes types.Sizes) (Value, error) {
	info, name := basicInfo(t), types.TypeString(t, nil)
	switch v := v.(type) {
	case VBool:
		if info&types.IsBoolean != 0 {
			return v, nil
		}
	case VStr:
		if info&types.IsString != 0 {
			return v, nil
		}
	case VNum:
		if info&types.IsNumeric == 0 || v.Type != nil && !types.Identical(v.Type, t) {
			break
		}
		val, err := representable(v.Value, t, sizes)
		if err != nil {
			return nil, err
		}
		return VNum{Value: val, Type: t}, nil
	}
	return nil, fmt.Errorf("cannot use %s (%s) as %s", v, kindOf(v), name)
}

// representable converts val to the numeric type t, failing if it does not
// fit.
func representable(val constant.Value, t types.Type, sizes types.Sizes) (constant.Value, error) {
	basic := t.Underlying().(*types.Basic)
	name := types.TypeString(t, nil)
	switch info := basic.Info(); {
	case info&types.IsInteger != 0:
		x := constant.ToInt(val)
		if x.Kind() != constant.Int {
			return nil, fmt.Errorf("constant %s truncated to %s", val, name)
		}
		bits := uint(8 * sizes.Sizeof(basic))
		var fits bool
		if info&types.IsUnsigned != 0 {
			fits = constant.Sign(x) >= 0 && constant.BitLen(x) <= int(bits)
		} else {
			lo := constant.Shift(constant.MakeInt64(-1), token.SHL, bits-1)
			hi := constant.Shift(constant.MakeInt64(1), token.SHL, bits-1)
			fits = !constant.Compare(x, token.LSS, lo) && constant.Compare(x, token.LSS, hi)
		}
		if !fits {
			return nil, fmt.Errorf("constant %s overflows %s", x.ExactString(), name)
		}
		return x, nil
	case info&types.IsFloat != 0:
		x := constant.ToFloat(val)
		if x.Kind() != constant.Float {
			return nil, fmt.Errorf("cannot use %s as %s", val, name)
		}
		f, _ := constant.Float64Val(x)
		if basic.Kind() == types.Float32 {
			f32, _ := constant.Float32Val(x)
			f = float64(f32)
		}
		if math.IsInf(f, 0) {
			return nil, fmt.Errorf("constant %s overflows %s", x, name)
		}
		return x, nil
	}
	return nil, fmt.Errorf("constant %s of type %s is not supported", val, name)
}

// unify returns the type of a binary operation on v and w. Both operands
// must already agree when typed.
func unify(v, w VNum) (types.Type, bool) {
	switch {
	case v.Type == nil:
		return w.Type, true
	case w.Type == nil:
		return v.Type, true
	}
	return v.Type, types.Identical(v.Type, w.Type)
}

// ToConstant converts v back to a go/constant value.
func ToConstant(v Value) (res constant.Value, ok bool) {
	switch v := v.(type) {
	case VBool:
		return constant.MakeBool(bool(v)), true
	case VStr:
		return constant.MakeString(string(v)), true
	case VNum:
		return v.Value, true
	}
	return constant.MakeUnknown(), false
}

func numOp(v, w Value, op token.Token) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			t, same := unify(v, w)
			if !same {
				return
			}
			return VNum{Value: constant.BinaryOp(v.Value, op, w.Value), Type: t}, true
		}
	}
	return
}

func intOp(v, w Value, op token.Token) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			t, same := unify(v, w)
			if !same || t != nil && !isInteger(t) || !v.IsInt() || !w.IsInt() {
				return
			}
			return VNum{Value: constant.BinaryOp(v.Value, op, w.Value), Type: t}, true
		}
	}
	return
}

func VAdd(v, w Value) (res Value, ok bool) {
	switch v := v.(type) {
	case VStr:
		switch w := w.(type) {
		case VStr:
			return v + w, true
		}
		return NewValue(), false
	}
	return numOp(v, w, token.ADD)
}

func VSub(v, w Value) (res Value, ok bool) { return numOp(v, w, token.SUB) }
func VMul(v, w Value) (res Value, ok bool) { return numOp(v, w, token.MUL) }

// VDiv follows Go's constant rules: integer operands of an untyped or
// integer type give a truncated integer quotient. The divisor must be
// non-zero.
func VDiv(v, w Value) (res Value, ok bool) {
	if v, isNum := v.(VNum); isNum {
		if w, isNum := w.(VNum); isNum && v.IsInt() && w.IsInt() {
			if t, _ := unify(v, w); t == nil || isInteger(t) {
				return intOp(v, w, token.QUO_ASSIGN)
			}
		}
	}
	return numOp(v, w, token.QUO)
}

func VRem(v, w Value) (res Value, ok bool)    { return intOp(v, w, token.REM) }
func VBitAnd(v, w Value) (res Value, ok bool) { return intOp(v, w, token.AND) }
func VBitOr(v, w Value) (res Value, ok bool)  { return intOp(v, w, token.OR) }
func VXor(v, w Value) (res Value, ok bool)    { return intOp(v, w, token.XOR) }

func VShift(v, w Value, op token.Token) (res Value, ok bool) {
	res = NewValue()
	x, isNum := v.(VNum)
	if !isNum || !x.IsInt() {
		return
	}
	s, isNum := w.(VNum)
	if !isNum || !s.IsInt() || constant.Sign(s.Value) < 0 {
		return
	}
	n, exact := constant.Uint64Val(s.Value)
	if !exact || n > 1<<16 {
		return
	}
	return VNum{Value: constant.Shift(x.Value, op, uint(n)), Type: x.Type}, true
}

func VIsZero(v Value) bool {
	n, ok := v.(VNum)
	return ok && constant.Sign(n.Value) == 0
}

func VGreater(v, w Value) (res Value, ok bool) { return compare(v, w, token.GTR) }
func VLess(v, w Value) (res Value, ok bool)    { return compare(v, w, token.LSS) }

func compare(v, w Value, op token.Token) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		switch w := w.(type) {
		case VNum:
			if _, same := unify(v, w); !same {
				return
			}
			return VBool(constant.Compare(v.Value, op, w.Value)), true
		}
	case VStr:
		switch w := w.(type) {
		case VStr:
			return VBool(constant.Compare(constant.MakeString(string(v)), op, constant.MakeString(string(w)))), true
		}
	}
	return
}

func VNeg(v Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		return VNum{Value: constant.UnaryOp(token.SUB, v.Value, 0), Type: v.Type}, true
	}
	return
}

// VBitNot is the unary ^ of an integer. It is -x-1 unless prec is the
// size in bits of an unsigned type, where all bits of x are flipped.
func VBitNot(v Value, prec uint) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VNum:
		if !v.IsInt() || v.Type != nil && !isInteger(v.Type) {
			return
		}
		return VNum{Value: constant.UnaryOp(token.XOR, v.Value, prec), Type: v.Type}, true
	}
	return
}

func VNot(v Value) (res Value, ok bool) {
	res = NewValue()
	switch v := v.(type) {
	case VBool:
		return !v, true
	}
	return
}

// VEq compares two values of the same kind. Types compare by identity.
func VEq(v, w Value) (res VBool, ok bool) {
	switch v := v.(type) {
	case VBool:
		switch w := w.(type) {
		case VBool:
			return v == w, true
		}
	case VNum:
		switch w := w.(type) {
		case VNum:
			if _, same := unify(v, w); !same {
				return false, false
			}
			return VBool(constant.Compare(v.Value, token.EQL, w.Value)), true
		}
	case VStr:
		switch w := w.(type) {
		case VStr:
			return v == w, true
		}
	case VType:
		switch w := w.(type) {
		case VType:
			return VBool(types.Identical(v.Type, w.Type)), true
		}
	}
	return false, false
}

func kindOf(v Value) string {
	switch v := v.(type) {
	case VBool:
		return "bool"
	case VNum:
		if v.Type != nil {
			return types.TypeString(v.Type, nil)
		}
		if v.IsInt() {
			return "untyped int"
		}
		return "untyped float"
	case VStr:
		return "string"
	case VType:
		return "type " + v.String()
	}
	return "unknown"
}
