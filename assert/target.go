package assert

import (
	"strconv"

	"github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

// Import module names used by generated code.
const (
	DefaultSubject = "test"
	HostModule     = "harness"
)

// Signatures maps export names of the module under test to their types.
type Signatures map[string]wasm.FuncType

// FragmentKind distinguishes per-assertion checks from the aggregator.
type FragmentKind uint8

const (
	FragmentCheck FragmentKind = iota
	FragmentAggregator
)

// Fragment records one emitted function, in emission order.
type Fragment struct {
	Name    string
	Kind    FragmentKind
	Ordinal int // check ordinal, -1 for the aggregator
}

// Target is the module being generated. It resolves imports of the module
// under test and of the host, and defers function index assignment until
// Module is called, so imports may be added after functions are defined.
type Target struct {
	sigs      Signatures
	hints     map[string]wasm.FuncType
	importIdx map[importKey]uint32
	exports   map[string]struct{}
	subject   string
	types     wasm.Module // holds Types and Imports only
	funcs     []pendingFunc
	fragments []Fragment
	checks    int
}

type importKey struct {
	module, name string
}

type pendingFunc struct {
	export string
	ft     wasm.FuncType
	locals []wasm.LocalEntry
	code   []wasm.Instruction
}

// localCall is a call to a defined function, resolved in Module.
type localCall struct {
	idx uint32
}

// TargetOption configures a Target.
type TargetOption func(*Target)

// WithSubjectName sets the import module name of the module under test.
func WithSubjectName(name string) TargetOption {
	return func(t *Target) {
		t.subject = name
	}
}

// NewTarget creates an empty target. With nil sigs the target infers
// subject signatures from each assertion instead of validating them.
func NewTarget(sigs Signatures, opts ...TargetOption) *Target {
	t := &Target{
		sigs:      sigs,
		importIdx: make(map[importKey]uint32),
		exports:   make(map[string]struct{}),
		subject:   DefaultSubject,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Signature returns the known type of a subject export.
func (t *Target) Signature(export string) (wasm.FuncType, bool) {
	ft, ok := t.sigs[export]
	return ft, ok
}

// Inferring reports whether the target has no subject signatures.
func (t *Target) Inferring() bool {
	return t.sigs == nil
}

// hint records the signature a node implies for a subject export. The
// first hint for an export wins; later conflicts surface at import time.
func (t *Target) hint(export string, ft wasm.FuncType) {
	if !t.Inferring() {
		return
	}
	if t.hints == nil {
		t.hints = make(map[string]wasm.FuncType)
	}
	if _, ok := t.hints[export]; !ok {
		t.hints[export] = ft
	}
}

// inferred returns the signature already imported or hinted for an export.
func (t *Target) inferred(export string) (wasm.FuncType, bool) {
	if idx, ok := t.importIdx[importKey{t.subject, export}]; ok {
		if ft := t.types.GetFuncType(idx); ft != nil {
			return *ft, true
		}
	}
	ft, ok := t.hints[export]
	return ft, ok
}

// CallSubject emits a call to the subject export, importing it on first use.
func (t *Target) CallSubject(c *wasm.Code, export string, ft wasm.FuncType) error {
	idx, err := t.importFunc(t.subject, export, ft)
	if err != nil {
		return err
	}
	c.Call(idx)
	return nil
}

func (t *Target) callHost(c *wasm.Code, name string, ft wasm.FuncType) error {
	idx, err := t.importFunc(HostModule, name, ft)
	if err != nil {
		return err
	}
	c.Call(idx)
	return nil
}

func (t *Target) importFunc(module, name string, ft wasm.FuncType) (uint32, error) {
	key := importKey{module, name}
	if idx, ok := t.importIdx[key]; ok {
		if have := t.types.GetFuncType(idx); have != nil && !have.Equal(ft) {
			return 0, errors.New(errors.PhaseCodegen, errors.KindTypeMismatch).
				Path(module, name).
				Detail("imported as %s, used as %s", have, ft).
				Build()
		}
		return idx, nil
	}
	idx := t.types.AddImport(module, name, ft)
	t.importIdx[key] = idx
	return idx, nil
}

// AddCheck defines and exports the next check function "assert_<ordinal>".
func (t *Target) AddCheck(mode Mode, ft wasm.FuncType, locals []wasm.LocalEntry, c *wasm.Code) (Handle, error) {
	ordinal := t.checks
	name := "assert_" + strconv.Itoa(ordinal)
	idx, err := t.define(name, ft, locals, c)
	if err != nil {
		return Handle{}, err
	}
	t.checks++
	t.fragments = append(t.fragments, Fragment{Name: name, Kind: FragmentCheck, Ordinal: ordinal})
	return Handle{
		Export:  name,
		Ordinal: ordinal,
		Func:    idx,
		Mode:    mode,
	}, nil
}

func (t *Target) addEntry(name string, ft wasm.FuncType, locals []wasm.LocalEntry, c *wasm.Code) error {
	if _, err := t.define(name, ft, locals, c); err != nil {
		return err
	}
	t.fragments = append(t.fragments, Fragment{Name: name, Kind: FragmentAggregator, Ordinal: -1})
	return nil
}

func (t *Target) define(export string, ft wasm.FuncType, locals []wasm.LocalEntry, c *wasm.Code) (uint32, error) {
	if _, dup := t.exports[export]; dup {
		return 0, errors.Duplicate(errors.PhaseCodegen, "export", export)
	}
	t.exports[export] = struct{}{}
	idx := uint32(len(t.funcs))
	t.funcs = append(t.funcs, pendingFunc{
		export: export,
		ft:     ft,
		locals: locals,
		code:   c.Instructions(),
	})
	return idx, nil
}

func (t *Target) callCheck(c *wasm.Code, h Handle) {
	c.Emit(wasm.OpCall, localCall{idx: h.Func})
}

// mark records how much has been emitted so a failed generation can be
// rolled back with reset.
type mark struct {
	hints     map[string]wasm.FuncType
	types     int
	imports   int
	funcs     int
	fragments int
	checks    int
}

func (t *Target) mark() mark {
	m := mark{
		types:     len(t.types.Types),
		imports:   len(t.types.Imports),
		funcs:     len(t.funcs),
		fragments: len(t.fragments),
		checks:    t.checks,
	}
	if t.hints != nil {
		m.hints = make(map[string]wasm.FuncType, len(t.hints))
		for k, v := range t.hints {
			m.hints[k] = v
		}
	}
	return m
}

// reset drops everything emitted since m.
func (t *Target) reset(m mark) {
	for _, imp := range t.types.Imports[m.imports:] {
		delete(t.importIdx, importKey{imp.Module, imp.Name})
	}
	for _, f := range t.funcs[m.funcs:] {
		delete(t.exports, f.export)
	}
	t.types.Types = t.types.Types[:m.types]
	t.types.Imports = t.types.Imports[:m.imports]
	t.funcs = t.funcs[:m.funcs]
	t.fragments = t.fragments[:m.fragments]
	t.checks = m.checks
	t.hints = m.hints
}

// Fragments returns the emitted functions in emission order.
func (t *Target) Fragments() []Fragment {
	out := make([]Fragment, len(t.fragments))
	copy(out, t.fragments)
	return out
}

// Checks returns the number of check functions emitted so far.
func (t *Target) Checks() int {
	return t.checks
}

// Module assembles the generated module. Defined functions follow all
// imports in the index space; calls between them are relocated here.
func (t *Target) Module() *wasm.Module {
	m := &wasm.Module{
		Types:   append([]wasm.FuncType(nil), t.types.Types...),
		Imports: append([]wasm.Import(nil), t.types.Imports...),
	}
	base := uint32(m.NumImportedFuncs())

	for _, f := range t.funcs {
		code := make([]wasm.Instruction, len(f.code))
		for i, instr := range f.code {
			if lc, ok := instr.Imm.(localCall); ok {
				instr = wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: base + lc.idx}}
			}
			code[i] = instr
		}
		body := wasm.NewCode().Append(code...).Body(f.locals...)
		m.AddExport(f.export, m.AddFunction(f.ft, body))
	}
	return m
}

// Bytes encodes the generated module.
func (t *Target) Bytes() []byte {
	return t.Module().Encode()
}
