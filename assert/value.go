package assert

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wippyai/wasm-asserts/wasm"
)

// NaNKind marks an expected float value as a NaN class rather than a bit pattern.
type NaNKind uint8

const (
	NaNNone NaNKind = iota
	NaNCanonical
	NaNArithmetic
)

func (k NaNKind) String() string {
	switch k {
	case NaNCanonical:
		return "nan:canonical"
	case NaNArithmetic:
		return "nan:arithmetic"
	default:
		return ""
	}
}

// Value is a typed wasm constant stored as its raw bit pattern.
// Floats are compared bitwise, so -0 and +0 differ and NaN payloads matter.
type Value struct {
	Bits uint64
	Type wasm.ValType
	NaN  NaNKind
}

func I32(v int32) Value { return Value{Type: wasm.ValI32, Bits: uint64(uint32(v))} }
func I64(v int64) Value { return Value{Type: wasm.ValI64, Bits: uint64(v)} }

func F32(v float32) Value { return F32Bits(math.Float32bits(v)) }
func F64(v float64) Value { return F64Bits(math.Float64bits(v)) }

func F32Bits(bits uint32) Value { return Value{Type: wasm.ValF32, Bits: uint64(bits)} }
func F64Bits(bits uint64) Value { return Value{Type: wasm.ValF64, Bits: bits} }

// CanonicalNaN is an expected value matching any canonical NaN of type t.
func CanonicalNaN(t wasm.ValType) Value { return Value{Type: t, NaN: NaNCanonical} }

// ArithmeticNaN is an expected value matching any arithmetic NaN of type t.
func ArithmeticNaN(t wasm.ValType) Value { return Value{Type: t, NaN: NaNArithmetic} }

// String renders the value in text-format constant syntax, e.g. "(f32.const -0)".
func (v Value) String() string {
	return "(" + v.Type.String() + ".const " + v.literal() + ")"
}

func (v Value) literal() string {
	if v.NaN != NaNNone {
		return v.NaN.String()
	}
	switch v.Type {
	case wasm.ValI32:
		return strconv.FormatInt(int64(int32(uint32(v.Bits))), 10)
	case wasm.ValI64:
		return strconv.FormatInt(int64(v.Bits), 10)
	case wasm.ValF32:
		bits := uint32(v.Bits)
		return formatFloat(float64(math.Float32frombits(bits)), 32, uint64(bits&0x7fffff), 0x400000, bits>>31 == 1)
	case wasm.ValF64:
		return formatFloat(math.Float64frombits(v.Bits), 64, v.Bits&0xfffffffffffff, 0x8000000000000, v.Bits>>63 == 1)
	}
	return fmt.Sprintf("0x%x", v.Bits)
}

func formatFloat(f float64, bitSize int, payload, canonical uint64, neg bool) string {
	sign := ""
	if neg {
		sign = "-"
	}
	switch {
	case math.IsNaN(f):
		if payload == canonical {
			return sign + "nan"
		}
		return sign + "nan:0x" + strconv.FormatUint(payload, 16)
	case math.IsInf(f, 0):
		return sign + "inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// Float returns the value as float64; integers are converted numerically.
func (v Value) Float() float64 {
	switch v.Type {
	case wasm.ValF32:
		return float64(math.Float32frombits(uint32(v.Bits)))
	case wasm.ValF64:
		return math.Float64frombits(v.Bits)
	case wasm.ValI32:
		return float64(int32(uint32(v.Bits)))
	default:
		return float64(int64(v.Bits))
	}
}

// push emits the instruction that places v on the operand stack.
func (v Value) push(c *wasm.Code) {
	switch v.Type {
	case wasm.ValI32:
		c.I32Const(int32(uint32(v.Bits)))
	case wasm.ValI64:
		c.I64Const(int64(v.Bits))
	case wasm.ValF32:
		c.Emit(wasm.OpF32Const, wasm.F32Imm{Bits: uint32(v.Bits)})
	case wasm.ValF64:
		c.Emit(wasm.OpF64Const, wasm.F64Imm{Bits: v.Bits})
	}
}

// NaN bit masks. Canonical: only the quiet bit set in the payload, any sign.
// Arithmetic: quiet bit set, any other payload bits.
const (
	f32AbsMask   = 0x7fffffff
	f32QuietNaN  = 0x7fc00000
	f64AbsMask   = 0x7fffffffffffffff
	f64QuietNaN  = 0x7ff8000000000000
	f32QuietMask = f32QuietNaN
	f64QuietMask = f64QuietNaN
)

// emitMatch compares the local at idx against v and leaves an i32 (1 on match).
func (v Value) emitMatch(c *wasm.Code, idx uint32) {
	c.LocalGet(idx)
	switch v.Type {
	case wasm.ValI32:
		c.I32Const(int32(uint32(v.Bits))).Op(wasm.OpI32Eq)
	case wasm.ValI64:
		c.I64Const(int64(v.Bits)).Op(wasm.OpI64Eq)
	case wasm.ValF32:
		c.Op(wasm.OpI32ReinterpretF32)
		switch v.NaN {
		case NaNCanonical:
			c.I32Const(f32AbsMask).Op(wasm.OpI32And).I32Const(f32QuietNaN).Op(wasm.OpI32Eq)
		case NaNArithmetic:
			c.I32Const(f32QuietMask).Op(wasm.OpI32And).I32Const(f32QuietNaN).Op(wasm.OpI32Eq)
		default:
			c.I32Const(int32(uint32(v.Bits))).Op(wasm.OpI32Eq)
		}
	case wasm.ValF64:
		c.Op(wasm.OpI64ReinterpretF64)
		switch v.NaN {
		case NaNCanonical:
			c.I64Const(f64AbsMask).Op(wasm.OpI64And).I64Const(f64QuietNaN).Op(wasm.OpI64Eq)
		case NaNArithmetic:
			c.I64Const(f64QuietMask).Op(wasm.OpI64And).I64Const(f64QuietNaN).Op(wasm.OpI64Eq)
		default:
			c.I64Const(int64(v.Bits)).Op(wasm.OpI64Eq)
		}
	}
}
