// Package wasm builds and encodes WebAssembly binary modules.
//
// The package covers the subset of the binary format used by generated
// assertion modules and benchmark fixtures: function types, function
// imports, defined functions, exports, code and custom sections.
//
// # Building
//
//	m := &wasm.Module{}
//	add := wasm.FuncType{
//	    Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
//	    Results: []wasm.ValType{wasm.ValI32},
//	}
//	body := wasm.NewCode().LocalGet(0).LocalGet(1).Op(wasm.OpI32Add).Body()
//	m.AddExport("add", m.AddFunction(add, body))
//	bin := m.Encode()
//
// Imports must be added before functions are defined because imported
// functions occupy the low end of the function index space.
//
// # Instructions
//
// Function bodies are written as []Instruction via Code and encoded with
// EncodeInstructions. Float constants carry raw bit patterns so NaN
// payloads are preserved exactly.
package wasm
