package wasm

import (
	"slices"
	"strings"
)

// Module represents a WebAssembly module under construction.
// Only the sections needed by generated check modules are modelled:
// types, function imports, functions, exports, code and custom sections.
type Module struct {
	Types          []FuncType
	Imports        []Import
	Funcs          []uint32 // Type indices for declared functions
	Exports        []Export
	Code           []FuncBody
	CustomSections []CustomSection
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// String renders the signature as "(i32, i64) -> (f32)".
func (ft FuncType) String() string {
	var b strings.Builder
	writeValList(&b, ft.Params)
	b.WriteString(" -> ")
	writeValList(&b, ft.Results)
	return b.String()
}

func writeValList(b *strings.Builder, vs []ValType) {
	b.WriteByte('(')
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(')')
}

// Equal reports whether two signatures have identical params and results.
func (ft FuncType) Equal(other FuncType) bool {
	return slices.Equal(ft.Params, other.Params) && slices.Equal(ft.Results, other.Results)
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// IsFloat reports whether v is f32 or f64.
func (v ValType) IsFloat() bool {
	return v == ValF32 || v == ValF64
}

// ParseValType maps a text-format type name to its ValType.
func ParseValType(s string) (ValType, bool) {
	switch s {
	case "i32":
		return ValI32, true
	case "i64":
		return ValI64, true
	case "f32":
		return ValF32, true
	case "f64":
		return ValF64, true
	}
	return 0, false
}

// Import represents an imported function.
type Import struct {
	Module  string
	Name    string
	Kind    byte
	TypeIdx uint32
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody represents a function's local declarations and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including end opcode
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// NumImportedFuncs returns the number of imported functions
func (m *Module) NumImportedFuncs() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Kind == KindFunc {
			count++
		}
	}
	return count
}

// GetFuncType returns the type of a function by its index
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	numImported := uint32(m.NumImportedFuncs())
	if funcIdx < numImported {
		for _, imp := range m.Imports {
			if imp.Kind != KindFunc {
				continue
			}
			if funcIdx == 0 {
				return m.typeAt(imp.TypeIdx)
			}
			funcIdx--
		}
		return nil
	}
	localIdx := funcIdx - numImported
	if int(localIdx) >= len(m.Funcs) {
		return nil
	}
	return m.typeAt(m.Funcs[localIdx])
}

func (m *Module) typeAt(typeIdx uint32) *FuncType {
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

// AddType adds a function type and returns its index, reusing existing if equal
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, ft)
	return idx
}

// ExportByName returns the export with the given name.
func (m *Module) ExportByName(name string) (Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}

// AddImport appends a function import and returns its function index.
// Imports occupy the low end of the function index space, so all imports
// must be added before any function is defined.
func (m *Module) AddImport(module, name string, ft FuncType) uint32 {
	idx := uint32(m.NumImportedFuncs())
	m.Imports = append(m.Imports, Import{
		Module:  module,
		Name:    name,
		Kind:    KindFunc,
		TypeIdx: m.AddType(ft),
	})
	return idx
}

// AddFunction defines a function and returns its index in the function space.
func (m *Module) AddFunction(ft FuncType, body FuncBody) uint32 {
	idx := uint32(m.NumImportedFuncs() + len(m.Funcs))
	m.Funcs = append(m.Funcs, m.AddType(ft))
	m.Code = append(m.Code, body)
	return idx
}

// AddExport exports the function at funcIdx under name.
func (m *Module) AddExport(name string, funcIdx uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: KindFunc, Idx: funcIdx})
}
