package assert

import (
	"bytes"
	"errors"
	"math"
	"testing"

	wserrors "github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

var (
	i32x2toI32 = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
	toF32      = wasm.FuncType{Results: []wasm.ValType{wasm.ValF32}}
	toF64      = wasm.FuncType{Results: []wasm.ValType{wasm.ValF64}}
	swapType   = wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI64},
		Results: []wasm.ValType{wasm.ValI64, wasm.ValI32},
	}
)

func testSignatures() Signatures {
	return Signatures{
		"add":   i32x2toI32,
		"div_s": i32x2toI32,
		"nan":   toF32,
		"third": toF64,
		"swap":  swapType,
		"nop":   {},
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{
			name: "return",
			node: &Return{Action: Invoke("add", I32(1), I32(2)), Expected: []Value{I32(3)}},
			want: `(assert_return (invoke "add" (i32.const 1) (i32.const 2)) (i32.const 3))`,
		},
		{
			name: "return no results",
			node: &Return{Action: Invoke("nop")},
			want: `(assert_return (invoke "nop"))`,
		},
		{
			name: "return multi",
			node: &Return{Action: Invoke("swap", I32(-1), I64(7)), Expected: []Value{I64(7), I32(-1)}},
			want: `(assert_return (invoke "swap" (i32.const -1) (i64.const 7)) (i64.const 7) (i32.const -1))`,
		},
		{
			name: "nan",
			node: &ReturnNaN{Action: Invoke("nan"), Type: wasm.ValF32, Kind: NaNCanonical},
			want: `(assert_return (invoke "nan") (f32.const nan:canonical))`,
		},
		{
			name: "approx",
			node: &Approx{Action: Invoke("third"), Expected: F64(0.333333), Tolerance: 1e-6},
			want: `(assert_approx (invoke "third") (f64.const 0.333333) 1e-06)`,
		},
		{
			name: "trap",
			node: &Trap{Action: Invoke("div_s", I32(1), I32(0)), Message: "integer divide by zero"},
			want: `(assert_trap (invoke "div_s" (i32.const 1) (i32.const 0)) "integer divide by zero")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Describe(); got != tt.want {
				t.Errorf("Describe() =\n  %s\nwant\n  %s", got, tt.want)
			}
			if again := tt.node.Describe(); again != tt.want {
				t.Errorf("second Describe() differs: %s", again)
			}
		})
	}
}

func TestCodegen_Handles(t *testing.T) {
	target := NewTarget(testSignatures())

	h0, err := (&Return{Action: Invoke("add", I32(1), I32(2)), Expected: []Value{I32(3)}}).Codegen(target)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	h1, err := (&Trap{Action: Invoke("div_s", I32(1), I32(0)), Message: "integer divide by zero"}).Codegen(target)
	if err != nil {
		t.Fatalf("Trap: %v", err)
	}

	if h0.Ordinal != 0 || h0.Export != "assert_0" || h0.Mode != ModeValue {
		t.Errorf("h0 = %+v", h0)
	}
	if h1.Ordinal != 1 || h1.Export != "assert_1" || h1.Mode != ModeTrap || h1.Message != "integer divide by zero" {
		t.Errorf("h1 = %+v", h1)
	}
	if target.Checks() != 2 {
		t.Errorf("Checks = %d, want 2", target.Checks())
	}
}

func TestCodegen_Errors(t *testing.T) {
	tests := []struct {
		name string
		node Node
		kind wserrors.Kind
	}{
		{"unknown export", &Return{Action: Invoke("mul", I32(1), I32(2)), Expected: []Value{I32(2)}}, wserrors.KindNotFound},
		{"arg count", &Return{Action: Invoke("add", I32(1)), Expected: []Value{I32(1)}}, wserrors.KindTypeMismatch},
		{"arg type", &Return{Action: Invoke("add", I32(1), F32(2)), Expected: []Value{I32(3)}}, wserrors.KindTypeMismatch},
		{"result count", &Return{Action: Invoke("add", I32(1), I32(2))}, wserrors.KindTypeMismatch},
		{"result type", &Return{Action: Invoke("add", I32(1), I32(2)), Expected: []Value{I64(3)}}, wserrors.KindTypeMismatch},
		{"nan on int", &ReturnNaN{Action: Invoke("add", I32(1), I32(2)), Type: wasm.ValI32, Kind: NaNCanonical}, wserrors.KindTypeMismatch},
		{"nan without class", &ReturnNaN{Action: Invoke("nan"), Type: wasm.ValF32}, wserrors.KindInvalidInput},
		{"nan result type", &ReturnNaN{Action: Invoke("nan"), Type: wasm.ValF64, Kind: NaNArithmetic}, wserrors.KindTypeMismatch},
		{"approx on int", &Approx{Action: Invoke("add", I32(1), I32(2)), Expected: I32(3)}, wserrors.KindTypeMismatch},
		{"approx negative tolerance", &Approx{Action: Invoke("third"), Expected: F64(0.3), Tolerance: -1}, wserrors.KindInvalidInput},
		{"approx nan tolerance", &Approx{Action: Invoke("third"), Expected: F64(0.3), Tolerance: math.NaN()}, wserrors.KindInvalidInput},
		{"approx nan expected", &Approx{Action: Invoke("third"), Expected: F64(math.NaN()), Tolerance: 1}, wserrors.KindInvalidInput},
		{"nan argument", &Return{Action: Invoke("add", CanonicalNaN(wasm.ValI32), I32(1)), Expected: []Value{I32(1)}}, wserrors.KindInvalidInput},
		{"trap unknown export", &Trap{Action: Invoke("missing")}, wserrors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := NewTarget(testSignatures())
			_, err := tt.node.Codegen(target)
			if err == nil {
				t.Fatal("expected error")
			}
			var werr *wserrors.Error
			if !errors.As(err, &werr) {
				t.Fatalf("error type = %T", err)
			}
			if werr.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", werr.Kind, tt.kind, err)
			}
			if target.Checks() != 0 {
				t.Errorf("failed codegen defined %d checks", target.Checks())
			}
		})
	}
}

func TestCodegen_InferredSignatures(t *testing.T) {
	target := NewTarget(nil)
	c := NewCollection()
	c.Add(&Return{Action: Invoke("add", I32(1), I32(2)), Expected: []Value{I32(3)}})
	c.Add(&Return{Action: Invoke("add", I32(5), I32(6)), Expected: []Value{I32(11)}})
	c.Add(&Approx{Action: Invoke("third"), Expected: F64(1.0 / 3), Tolerance: 1e-9})

	if _, err := c.Generate(target); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	m := target.Module()
	var subject []string
	for _, imp := range m.Imports {
		if imp.Module == DefaultSubject {
			subject = append(subject, imp.Name)
		}
	}
	if len(subject) != 2 {
		t.Errorf("subject imports = %v, want add and third once each", subject)
	}
}

func TestCodegen_InferredConflict(t *testing.T) {
	target := NewTarget(nil)
	c := NewCollection()
	c.Add(&Return{Action: Invoke("f", I32(1)), Expected: []Value{I32(1)}})
	c.Add(&Return{Action: Invoke("f", I64(1)), Expected: []Value{I64(1)}})

	_, err := c.Generate(target)
	if !errors.Is(err, &wserrors.Error{Phase: wserrors.PhaseCodegen, Kind: wserrors.KindTypeMismatch}) {
		t.Errorf("expected type mismatch, got %v", err)
	}
}

func TestCodegen_InferredTrapSharesSignature(t *testing.T) {
	target := NewTarget(nil)
	c := NewCollection()
	c.Add(&Return{Action: Invoke("div_s", I32(4), I32(2)), Expected: []Value{I32(2)}})
	c.Add(&Trap{Action: Invoke("div_s", I32(1), I32(0)), Message: "integer divide by zero"})

	// The trap is visited first and must not import div_s without results.
	if _, err := c.Generate(target); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	m := target.Module()
	imp := m.Imports[0]
	if imp.Module != DefaultSubject || imp.Name != "div_s" {
		t.Fatalf("first import = %s.%s", imp.Module, imp.Name)
	}
	if got := m.Types[imp.TypeIdx]; !got.Equal(i32x2toI32) {
		t.Errorf("div_s imported as %s, want %s", got, i32x2toI32)
	}
	for _, other := range m.Imports[1:] {
		if other.Module == DefaultSubject {
			t.Errorf("div_s imported twice: %+v", m.Imports)
		}
	}

	// The trap check drops the result it now knows about.
	trap := m.Code[0].Code
	if !bytes.Contains(trap, []byte{wasm.OpCall, 0, wasm.OpDrop, wasm.OpEnd}) {
		t.Errorf("trap check body = % x", trap)
	}
}

func TestCodegen_InferredTrapOnly(t *testing.T) {
	target := NewTarget(nil)
	c := NewCollection()
	c.Add(&Trap{Action: Invoke("boom")})

	if _, err := c.Generate(target); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	m := target.Module()
	if got := m.Types[m.Imports[0].TypeIdx]; !got.Equal(wasm.FuncType{}) {
		t.Errorf("boom imported as %s, want () -> ()", got)
	}
}

func TestGenerate_FailureLeavesTargetUnchanged(t *testing.T) {
	target := NewTarget(testSignatures())
	first := NewCollection()
	first.Add(&Return{Action: Invoke("add", I32(1), I32(2)), Expected: []Value{I32(3)}})

	c := NewCollection()
	c.Add(&Return{Action: Invoke("missing")})
	c.Add(&Trap{Action: Invoke("div_s", I32(1), I32(0))})
	c.Add(&Approx{Action: Invoke("third"), Expected: F64(0.3), Tolerance: 0.1})

	before := target.Bytes()
	if _, err := c.Generate(target); err == nil {
		t.Fatal("expected error")
	}
	if target.Checks() != 0 || len(target.Fragments()) != 0 {
		t.Errorf("checks = %d, fragments = %v after failed generate", target.Checks(), target.Fragments())
	}
	if !bytes.Equal(target.Bytes(), before) {
		t.Error("failed generate changed the target")
	}

	// The rolled back target is still usable.
	if _, err := first.Generate(target); err != nil {
		t.Fatalf("Generate after rollback: %v", err)
	}
	if n := len(target.Module().Imports); n != 2 {
		t.Errorf("imports = %d, want add and report", n)
	}
}

func TestApprox_Infinity(t *testing.T) {
	target := NewTarget(testSignatures())
	a := &Approx{Action: Invoke("third"), Expected: F64(math.Inf(1)), Tolerance: 1}
	if _, err := a.Codegen(target); err != nil {
		t.Fatalf("Codegen: %v", err)
	}
	body := target.Module().Code[0].Code
	if bytes.Contains(body, []byte{wasm.OpF64Sub}) || !bytes.Contains(body, []byte{wasm.OpI64ReinterpretF64}) {
		t.Errorf("infinite expected value should compare bits: % x", body)
	}
}

func TestTarget_ModuleLayout(t *testing.T) {
	target := NewTarget(testSignatures(), WithSubjectName("subject"))
	c := NewCollection()
	c.Add(&Return{Action: Invoke("add", I32(1), I32(2)), Expected: []Value{I32(3)}})
	c.Add(&Trap{Action: Invoke("div_s", I32(1), I32(0))})

	if _, err := c.Generate(target); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	m := target.Module()

	wantImports := []struct{ module, name string }{
		{"subject", "div_s"},
		{"subject", "add"},
		{HostModule, ExpectTrapFunc},
		{HostModule, ReportFunc},
	}
	if len(m.Imports) != len(wantImports) {
		t.Fatalf("imports = %+v", m.Imports)
	}
	for i, w := range wantImports {
		if m.Imports[i].Module != w.module || m.Imports[i].Name != w.name {
			t.Errorf("import %d = %s.%s, want %s.%s", i, m.Imports[i].Module, m.Imports[i].Name, w.module, w.name)
		}
	}

	// Defined functions start after the four imports.
	for i, name := range []string{"assert_0", "assert_1", EntryName} {
		exp, ok := m.ExportByName(name)
		if !ok {
			t.Fatalf("missing export %s", name)
		}
		if exp.Idx != uint32(4+i) {
			t.Errorf("%s index = %d, want %d", name, exp.Idx, 4+i)
		}
	}

	// run_all calls assert_1 (the value check) with the relocated index 5.
	runAll := m.Code[2].Code
	call := []byte{wasm.OpCall, 5}
	if !bytes.Contains(runAll, call) {
		t.Errorf("run_all body %x does not call function 5", runAll)
	}

	if ft := m.GetFuncType(6); ft == nil || !ft.Equal(entryType) {
		t.Errorf("run_all type = %v, want %v", ft, entryType)
	}
	if ft := m.GetFuncType(4); ft == nil || len(ft.Results) != 0 {
		t.Errorf("trap check type = %v, want () -> ()", ft)
	}
}

func TestTarget_BytesHeader(t *testing.T) {
	target := NewTarget(nil)
	if _, err := NewCollection().Generate(target); err != nil {
		t.Fatal(err)
	}
	bin := target.Bytes()
	if !bytes.HasPrefix(bin, []byte("\x00asm\x01\x00\x00\x00")) {
		t.Errorf("missing wasm header: %x", bin[:8])
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{I32(-5), "(i32.const -5)"},
		{I64(math.MinInt64), "(i64.const -9223372036854775808)"},
		{F32(1.5), "(f32.const 1.5)"},
		{F32(float32(math.Copysign(0, -1))), "(f32.const -0)"},
		{F32Bits(0x7fc00000), "(f32.const nan)"},
		{F32Bits(0xffc00000), "(f32.const -nan)"},
		{F32Bits(0x7f800001), "(f32.const nan:0x1)"},
		{F64(math.Inf(1)), "(f64.const inf)"},
		{F64(math.Inf(-1)), "(f64.const -inf)"},
		{F64(0.1), "(f64.const 0.1)"},
		{ArithmeticNaN(wasm.ValF64), "(f64.const nan:arithmetic)"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}
