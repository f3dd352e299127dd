// Package fib is a bench.Backend computing Fibonacci numbers iteratively,
// once in a generated wasm module run on wazero and once in Go.
package fib

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-asserts/bench"
	"github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

// ExportName is the wasm function fib(n i32) -> i64.
const ExportName = "fib"

// Module builds the wasm side:
//
//	a, b := 0, 1
//	for ; n > 0; n-- { a, b = b, a+b }
//	return a
func Module() *wasm.Module {
	const (
		n = iota
		a
		b
		t
	)
	c := wasm.NewCode().
		I64Const(0).LocalSet(a).
		I64Const(1).LocalSet(b).
		Block(wasm.BlockTypeVoid).
		Loop(wasm.BlockTypeVoid).
		LocalGet(n).I32Const(0).Op(wasm.OpI32LeS).BrIf(1).
		LocalGet(a).LocalGet(b).Op(wasm.OpI64Add).LocalSet(t).
		LocalGet(b).LocalSet(a).
		LocalGet(t).LocalSet(b).
		LocalGet(n).I32Const(1).Op(wasm.OpI32Sub).LocalSet(n).
		Br(0).
		End().
		End().
		LocalGet(a)

	ft := wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI64},
	}
	m := &wasm.Module{}
	m.AddExport(ExportName, m.AddFunction(ft, c.Body(wasm.LocalEntry{Count: 3, ValType: wasm.ValI64})))
	return m
}

// Native computes the same sequence in Go.
func Native(n int32) int64 {
	var a, b int64 = 0, 1
	for ; n > 0; n-- {
		a, b = b, a+b
	}
	return a
}

// Backend runs fib on wazero and natively.
type Backend struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	instance api.Module
	fn       api.Function
	cfg      wazero.RuntimeConfig
}

var _ bench.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithInterpreter runs the wasm side on the wazero interpreter.
func WithInterpreter() Option {
	return func(b *Backend) {
		b.cfg = wazero.NewRuntimeConfigInterpreter()
	}
}

// New creates a backend. Call Close when done.
func New(opts ...Option) *Backend {
	b := &Backend{cfg: wazero.NewRuntimeConfig()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init creates the runtime and compiles the module.
func (b *Backend) Init(ctx context.Context) error {
	if b.runtime != nil {
		return nil
	}
	b.runtime = wazero.NewRuntimeWithConfig(ctx, b.cfg)
	compiled, err := b.runtime.CompileModule(ctx, Module().Encode())
	if err != nil {
		return errors.Load("compile fib", err)
	}
	b.compiled = compiled
	return nil
}

// InitModule instantiates the module. The parameter is only passed to calls.
func (b *Backend) InitModule(ctx context.Context, _ int32) error {
	if b.compiled == nil {
		return errors.InvalidInput(errors.PhaseBench, "fib backend not initialized")
	}
	if b.instance != nil {
		return nil
	}
	inst, err := b.runtime.InstantiateModule(ctx, b.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return errors.Instantiation("fib", err)
	}
	b.instance = inst
	b.fn = inst.ExportedFunction(ExportName)
	return nil
}

func (b *Backend) RunModule(ctx context.Context, param int32) (int64, error) {
	if b.fn == nil {
		return 0, errors.InvalidInput(errors.PhaseBench, "fib module not instantiated")
	}
	ret, err := b.fn.Call(ctx, api.EncodeI32(param))
	if err != nil {
		return 0, err
	}
	return int64(ret[0]), nil
}

// InitNative has no state to prepare.
func (b *Backend) InitNative(context.Context, int32) (any, error) {
	return nil, nil
}

func (b *Backend) RunNative(_ context.Context, _ any, param int32) (int64, error) {
	return Native(param), nil
}

// Close releases the runtime.
func (b *Backend) Close(ctx context.Context) error {
	if b.runtime == nil {
		return nil
	}
	err := b.runtime.Close(ctx)
	b.runtime, b.compiled, b.instance, b.fn = nil, nil, nil, nil
	return err
}
