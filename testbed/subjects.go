// Package testbed builds small subject modules for integration tests of
// generated checks.
package testbed

import (
	"github.com/wippyai/wasm-asserts/wasm"
)

var (
	i32x2ToI32 = wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	}
	toF32 = wasm.FuncType{Results: []wasm.ValType{wasm.ValF32}}
	toF64 = wasm.FuncType{Results: []wasm.ValType{wasm.ValF64}}
)

// Arith returns a subject module exporting:
//
//	add(i32, i32) -> i32         wrapping addition
//	sub(i32, i32) -> i32
//	div_s(i32, i32) -> i32       traps on division by zero
//	nan() -> f32                 0/0
//	third() -> f64               1/3
//	swap(i32, i64) -> (i64, i32)
//	neg_zero() -> f32            -0
//	boom()                       unreachable
func Arith() []byte {
	return ArithModule().Encode()
}

// ArithModule is the unencoded form of Arith.
func ArithModule() *wasm.Module {
	m := &wasm.Module{}

	binop := func(name string, op byte) {
		body := wasm.NewCode().LocalGet(0).LocalGet(1).Op(op).Body()
		m.AddExport(name, m.AddFunction(i32x2ToI32, body))
	}
	binop("add", wasm.OpI32Add)
	binop("sub", wasm.OpI32Sub)
	binop("div_s", wasm.OpI32DivS)

	nan := wasm.NewCode().Append(wasm.F32Const(0), wasm.F32Const(0)).Op(wasm.OpF32Div)
	m.AddExport("nan", m.AddFunction(toF32, nan.Body()))

	third := wasm.NewCode().Append(wasm.F64Const(1), wasm.F64Const(3)).Op(wasm.OpF64Div)
	m.AddExport("third", m.AddFunction(toF64, third.Body()))

	swapType := wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI64},
		Results: []wasm.ValType{wasm.ValI64, wasm.ValI32},
	}
	m.AddExport("swap", m.AddFunction(swapType, wasm.NewCode().LocalGet(1).LocalGet(0).Body()))

	negZero := wasm.NewCode().Append(wasm.F32Const(0)).Op(wasm.OpF32Neg)
	m.AddExport("neg_zero", m.AddFunction(toF32, negZero.Body()))

	m.AddExport("boom", m.AddFunction(wasm.FuncType{}, wasm.NewCode().Op(wasm.OpUnreachable).Body()))
	return m
}
