package script

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-asserts/assert"
	"github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

const (
	nanCanonical  = "nan:canonical"
	nanArithmetic = "nan:arithmetic"
)

// toValue converts a script constant. NaN classes are only accepted when
// allowNaN is set, i.e. for expected values.
func (v ValueSpec) toValue(allowNaN bool) (assert.Value, error) {
	vt, ok := wasm.ParseValType(v.Type)
	if !ok {
		return assert.Value{}, errors.Unsupported(errors.PhaseParse, "value type "+strconv.Quote(v.Type))
	}

	if v.Value == nanCanonical || v.Value == nanArithmetic {
		if !vt.IsFloat() {
			return assert.Value{}, errors.TypeMismatch(errors.PhaseParse, nil, "f32 or f64", v.Type)
		}
		if !allowNaN {
			return assert.Value{}, errors.InvalidInput(errors.PhaseParse, v.Value+" is not a concrete argument")
		}
		if v.Value == nanCanonical {
			return assert.CanonicalNaN(vt), nil
		}
		return assert.ArithmeticNaN(vt), nil
	}

	if v.Literal != "" {
		return parseLiteral(vt, v.Literal)
	}
	return parseBits(vt, v.Value)
}

// parseBits reads the unsigned decimal bit pattern emitted by wast2json.
func parseBits(vt wasm.ValType, s string) (assert.Value, error) {
	size := 64
	if vt == wasm.ValI32 || vt == wasm.ValF32 {
		size = 32
	}
	bits, err := strconv.ParseUint(s, 10, size)
	if err != nil {
		return assert.Value{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Detail("bad %s bit pattern %q", vt, s).
			Cause(err).
			Build()
	}
	return assert.Value{Type: vt, Bits: bits}, nil
}

// parseLiteral reads a human-written number: integers in any Go base
// prefix, floats in decimal or hex notation, and nan/inf.
func parseLiteral(vt wasm.ValType, s string) (assert.Value, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	bad := func(err error) (assert.Value, error) {
		return assert.Value{}, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Detail("bad %s literal %q", vt, s).
			Cause(err).
			Build()
	}

	switch vt {
	case wasm.ValI32:
		n, err := parseInt(s, 32)
		if err != nil {
			return bad(err)
		}
		return assert.Value{Type: vt, Bits: uint64(uint32(n))}, nil
	case wasm.ValI64:
		n, err := parseInt(s, 64)
		if err != nil {
			return bad(err)
		}
		return assert.I64(n), nil
	case wasm.ValF32:
		f, err := parseFloat(s, 32)
		if err != nil {
			return bad(err)
		}
		if math.IsNaN(f) {
			return assert.F32Bits(nanBits32(s)), nil
		}
		return assert.F32(float32(f)), nil
	default:
		f, err := parseFloat(s, 64)
		if err != nil {
			return bad(err)
		}
		if math.IsNaN(f) {
			return assert.F64Bits(nanBits64(s)), nil
		}
		return assert.F64(f), nil
	}
}

// parseInt accepts both signed values and unsigned values up to the full
// width, so 0xffffffff is a valid i32.
func parseInt(s string, size int) (int64, error) {
	n, err := strconv.ParseInt(s, 0, size)
	if err == nil {
		return n, nil
	}
	u, uerr := strconv.ParseUint(s, 0, size)
	if uerr != nil {
		return 0, err
	}
	if size == 32 {
		return int64(int32(uint32(u))), nil
	}
	return int64(u), nil
}

func parseFloat(s string, size int) (float64, error) {
	switch strings.TrimLeft(s, "+-") {
	case "nan":
		return math.NaN(), nil
	case "inf":
		if strings.HasPrefix(s, "-") {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(s, size)
}

func nanBits32(s string) uint32 {
	bits := uint32(0x7fc00000)
	if strings.HasPrefix(s, "-") {
		bits |= 1 << 31
	}
	return bits
}

func nanBits64(s string) uint64 {
	bits := uint64(0x7ff8000000000000)
	if strings.HasPrefix(s, "-") {
		bits |= 1 << 63
	}
	return bits
}

func (v ValueSpec) valType() (wasm.ValType, error) {
	vt, ok := wasm.ParseValType(v.Type)
	if !ok {
		return 0, errors.Unsupported(errors.PhaseParse, "value type "+strconv.Quote(v.Type))
	}
	if !vt.IsFloat() {
		return 0, errors.TypeMismatch(errors.PhaseParse, nil, "f32 or f64", v.Type)
	}
	return vt, nil
}
