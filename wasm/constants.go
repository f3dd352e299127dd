package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs emitted by the encoder, in the order they must appear.
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionExport   byte = 7
	SectionCode     byte = 10
)

// KindFunc is the import/export descriptor kind for functions, the only
// kind the builder emits.
const KindFunc byte = 0

// Value type encodings.
const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
	ValF32 ValType = 0x7D
	ValF64 ValType = 0x7C
)

// FuncTypeByte prefixes every function type in the type section.
const FuncTypeByte byte = 0x60

// BlockTypeVoid is the empty block type (0x40).
const BlockTypeVoid int32 = -64

// Control flow opcodes
const (
	OpUnreachable byte = 0x00
	OpBlock       byte = 0x02
	OpLoop        byte = 0x03
	OpEnd         byte = 0x0B
	OpBr          byte = 0x0C
	OpBrIf        byte = 0x0D
	OpCall        byte = 0x10
)

// Parametric opcodes
const (
	OpDrop byte = 0x1A
)

// Variable access opcodes
const (
	OpLocalGet byte = 0x20
	OpLocalSet byte = 0x21
	OpLocalTee byte = 0x22
)

// Constant opcodes
const (
	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpF32Const byte = 0x43
	OpF64Const byte = 0x44
)

// Comparison opcodes
const (
	OpI32Eqz byte = 0x45
	OpI32Eq  byte = 0x46
	OpI32LeS byte = 0x4C
	OpI64Eq  byte = 0x51
	OpF32Le  byte = 0x5F
	OpF64Le  byte = 0x65
)

// Numeric opcodes
const (
	OpI32Add  byte = 0x6A
	OpI32Sub  byte = 0x6B
	OpI32DivS byte = 0x6D
	OpI32And  byte = 0x71
	OpI64Add  byte = 0x7C
	OpI64And  byte = 0x83
	OpF32Abs  byte = 0x8B
	OpF32Neg  byte = 0x8C
	OpF32Sub  byte = 0x93
	OpF32Div  byte = 0x95
	OpF64Abs  byte = 0x99
	OpF64Sub  byte = 0xA1
	OpF64Div  byte = 0xA3
)

// Reinterpret opcodes
const (
	OpI32ReinterpretF32 byte = 0xBC
	OpI64ReinterpretF64 byte = 0xBD
)
