package wasm

import (
	"bytes"
	"math"
	"testing"
)

func TestEncode_EmptyModule(t *testing.T) {
	m := &Module{}
	got := m.Encode()
	want := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("empty module = %x, want %x", got, want)
	}
}

func TestEncode_AddFunction(t *testing.T) {
	m := &Module{}
	ft := FuncType{Params: []ValType{ValI32, ValI32}, Results: []ValType{ValI32}}
	idx := m.AddFunction(ft, NewCode().LocalGet(0).LocalGet(1).Op(OpI32Add).Body())
	m.AddExport("add", idx)

	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		// type section
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
		// function section
		0x03, 0x02, 0x01, 0x00,
		// export section
		0x07, 0x07, 0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00,
		// code section
		0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	}
	if got := m.Encode(); !bytes.Equal(got, want) {
		t.Errorf("encoded module:\n got %x\nwant %x", got, want)
	}
}

func TestEncode_ImportsBeforeFunctions(t *testing.T) {
	m := &Module{}
	ft := FuncType{Results: []ValType{ValI32}}

	imp := m.AddImport("test", "f", ft)
	if imp != 0 {
		t.Fatalf("import index = %d, want 0", imp)
	}
	fn := m.AddFunction(ft, NewCode().Call(imp).Body())
	if fn != 1 {
		t.Fatalf("function index = %d, want 1", fn)
	}
	if len(m.Types) != 1 {
		t.Errorf("types = %d, want 1 (deduplicated)", len(m.Types))
	}
	if got := m.GetFuncType(0); got == nil || !got.Equal(ft) {
		t.Errorf("GetFuncType(0) = %v, want %v", got, ft)
	}
	if got := m.GetFuncType(1); got == nil || !got.Equal(ft) {
		t.Errorf("GetFuncType(1) = %v, want %v", got, ft)
	}
	if got := m.GetFuncType(2); got != nil {
		t.Errorf("GetFuncType(2) = %v, want nil", got)
	}
}

func TestEncode_CustomSection(t *testing.T) {
	m := &Module{CustomSections: []CustomSection{{Name: "x", Data: []byte{1, 2}}}}
	got := m.Encode()
	tail := []byte{0x00, 0x04, 0x01, 'x', 0x01, 0x02}
	if !bytes.HasSuffix(got, tail) {
		t.Errorf("custom section tail = %x, want suffix %x", got, tail)
	}
}

func TestEncodeInstructions(t *testing.T) {
	tests := []struct {
		name  string
		instr Instruction
		want  []byte
	}{
		{"i32.const -1", Instruction{Opcode: OpI32Const, Imm: I32Imm{Value: -1}}, []byte{0x41, 0x7f}},
		{"i64.const 128", Instruction{Opcode: OpI64Const, Imm: I64Imm{Value: 128}}, []byte{0x42, 0x80, 0x01}},
		{"f32.const 1", F32Const(1), []byte{0x43, 0x00, 0x00, 0x80, 0x3f}},
		{"f64.const nan", Instruction{Opcode: OpF64Const, Imm: F64Imm{Bits: 0x7ff8000000000001}},
			[]byte{0x44, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf8, 0x7f}},
		{"block void", Instruction{Opcode: OpBlock, Imm: BlockImm{Type: BlockTypeVoid}}, []byte{0x02, 0x40}},
		{"br_if 1", Instruction{Opcode: OpBrIf, Imm: BranchImm{LabelIdx: 1}}, []byte{0x0d, 0x01}},
		{"call 300", Instruction{Opcode: OpCall, Imm: CallImm{FuncIdx: 300}}, []byte{0x10, 0xac, 0x02}},
		{"drop", Instruction{Opcode: OpDrop}, []byte{0x1a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeInstructions([]Instruction{tt.instr})
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %x, want %x", got, tt.want)
			}
		})
	}
}

func TestF64ConstPreservesBits(t *testing.T) {
	v := math.Float64frombits(0x7ff4000000000000)
	instr := F64Const(v)
	imm := instr.Imm.(F64Imm)
	if imm.Bits != 0x7ff4000000000000 {
		t.Errorf("bits = %#x, want 0x7ff4000000000000", imm.Bits)
	}
}

func TestFuncTypeString(t *testing.T) {
	ft := FuncType{Params: []ValType{ValI32, ValF64}, Results: []ValType{ValI64}}
	if got := ft.String(); got != "(i32, f64) -> (i64)" {
		t.Errorf("String() = %q", got)
	}
	if got := (FuncType{}).String(); got != "() -> ()" {
		t.Errorf("empty String() = %q", got)
	}
}

func TestParseValType(t *testing.T) {
	for _, name := range []string{"i32", "i64", "f32", "f64"} {
		v, ok := ParseValType(name)
		if !ok || v.String() != name {
			t.Errorf("ParseValType(%q) = %v, %v", name, v, ok)
		}
	}
	if _, ok := ParseValType("v128"); ok {
		t.Error("ParseValType(v128) should fail")
	}
}
