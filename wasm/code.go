package wasm

// Code accumulates the instruction stream of one function body.
// Methods return the receiver so short sequences read like the text format.
type Code struct {
	instrs []Instruction
}

// NewCode creates an empty instruction stream.
func NewCode() *Code {
	return &Code{}
}

// Emit appends an instruction with an optional immediate.
func (c *Code) Emit(op byte, imm interface{}) *Code {
	c.instrs = append(c.instrs, Instruction{Opcode: op, Imm: imm})
	return c
}

// Op appends instructions that carry no immediates.
func (c *Code) Op(ops ...byte) *Code {
	for _, op := range ops {
		c.instrs = append(c.instrs, Instruction{Opcode: op})
	}
	return c
}

// Append appends pre-built instructions.
func (c *Code) Append(instrs ...Instruction) *Code {
	c.instrs = append(c.instrs, instrs...)
	return c
}

func (c *Code) I32Const(v int32) *Code { return c.Emit(OpI32Const, I32Imm{Value: v}) }
func (c *Code) I64Const(v int64) *Code { return c.Emit(OpI64Const, I64Imm{Value: v}) }

func (c *Code) LocalGet(idx uint32) *Code { return c.Emit(OpLocalGet, LocalImm{LocalIdx: idx}) }
func (c *Code) LocalSet(idx uint32) *Code { return c.Emit(OpLocalSet, LocalImm{LocalIdx: idx}) }
func (c *Code) LocalTee(idx uint32) *Code { return c.Emit(OpLocalTee, LocalImm{LocalIdx: idx}) }

func (c *Code) Call(funcIdx uint32) *Code { return c.Emit(OpCall, CallImm{FuncIdx: funcIdx}) }

func (c *Code) Block(bt int32) *Code { return c.Emit(OpBlock, BlockImm{Type: bt}) }
func (c *Code) Loop(bt int32) *Code  { return c.Emit(OpLoop, BlockImm{Type: bt}) }
func (c *Code) Br(label uint32) *Code {
	return c.Emit(OpBr, BranchImm{LabelIdx: label})
}
func (c *Code) BrIf(label uint32) *Code {
	return c.Emit(OpBrIf, BranchImm{LabelIdx: label})
}
func (c *Code) End() *Code { return c.Op(OpEnd) }

// Instructions returns the accumulated instructions.
func (c *Code) Instructions() []Instruction {
	return c.instrs
}

// Len returns the number of instructions emitted so far.
func (c *Code) Len() int {
	return len(c.instrs)
}

// Body finalizes the stream into a function body, appending the closing end.
func (c *Code) Body(locals ...LocalEntry) FuncBody {
	code := EncodeInstructions(c.instrs)
	return FuncBody{
		Locals: locals,
		Code:   append(code, OpEnd),
	}
}
