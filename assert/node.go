package assert

import (
	"strconv"
	"strings"

	"github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

// Node is a single assertion. Describe must be deterministic and free of
// side effects. Codegen may only touch the target it is given.
type Node interface {
	Describe() string
	Codegen(t *Target) (Handle, error)
}

// Mode selects how the aggregator drives a check.
type Mode uint8

const (
	// ModeValue checks return i32 1 on pass and 0 on failure.
	ModeValue Mode = iota
	// ModeTrap checks are expected to trap; the host invokes them and
	// reports whether they did.
	ModeTrap
)

func (m Mode) String() string {
	if m == ModeTrap {
		return "trap"
	}
	return "value"
}

// Handle identifies one emitted check so the aggregator can call it.
type Handle struct {
	Description string
	Export      string
	Message     string // expected trap text, ModeTrap only
	Ordinal     int
	Func        uint32 // index among the target's defined functions
	Mode        Mode
}

// Action is an invocation of an export of the module under test.
type Action struct {
	Export string
	Args   []Value
}

// Invoke builds an Action.
func Invoke(export string, args ...Value) Action {
	return Action{Export: export, Args: args}
}

func (a Action) String() string {
	var b strings.Builder
	b.WriteString("(invoke ")
	b.WriteString(strconv.Quote(a.Export))
	for _, arg := range a.Args {
		b.WriteByte(' ')
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (a Action) paramTypes() []wasm.ValType {
	types := make([]wasm.ValType, len(a.Args))
	for i, arg := range a.Args {
		types[i] = arg.Type
	}
	return types
}

// resultsUnknown marks an invocation whose result types the node cannot tell.
var resultsUnknown []wasm.ValType

// emitInvoke resolves the signature, pushes the arguments and calls the
// subject export. The results are left on the operand stack.
// inferred is used as the result list when the target has no signatures;
// resultsUnknown defers to what other nodes established for the export.
func (a Action) emitInvoke(t *Target, c *wasm.Code, inferred []wasm.ValType) (wasm.FuncType, error) {
	ft, ok := t.Signature(a.Export)
	if !ok {
		if !t.Inferring() {
			return wasm.FuncType{}, errors.NotFound(errors.PhaseCodegen, "export", a.Export)
		}
		ft = wasm.FuncType{Params: a.paramTypes(), Results: inferred}
		if inferred == nil {
			if known, ok := t.inferred(a.Export); ok {
				ft = known
			}
		}
	}

	if len(a.Args) != len(ft.Params) {
		return wasm.FuncType{}, errors.New(errors.PhaseCodegen, errors.KindTypeMismatch).
			Path(a.Export).
			Detail("expected %d arguments, got %d", len(ft.Params), len(a.Args)).
			Build()
	}
	for i, arg := range a.Args {
		if arg.Type != ft.Params[i] {
			return wasm.FuncType{}, errors.TypeMismatch(errors.PhaseCodegen,
				[]string{a.Export, "arg" + strconv.Itoa(i)}, ft.Params[i].String(), arg.Type.String())
		}
		if arg.NaN != NaNNone {
			return wasm.FuncType{}, errors.InvalidInput(errors.PhaseCodegen, "NaN class is not a concrete argument")
		}
		arg.push(c)
	}

	if err := t.CallSubject(c, a.Export, ft); err != nil {
		return wasm.FuncType{}, err
	}
	return ft, nil
}

// storeResults pops the results of ft into consecutive locals starting at 0
// and returns their declarations.
func storeResults(c *wasm.Code, results []wasm.ValType) []wasm.LocalEntry {
	locals := make([]wasm.LocalEntry, len(results))
	for i, r := range results {
		locals[i] = wasm.LocalEntry{Count: 1, ValType: r}
	}
	for i := len(results) - 1; i >= 0; i-- {
		c.LocalSet(uint32(i))
	}
	return locals
}

func checkResultTypes(export string, want []wasm.ValType, expected []Value) error {
	if len(want) != len(expected) {
		return errors.New(errors.PhaseCodegen, errors.KindTypeMismatch).
			Path(export).
			Detail("expected %d results, signature has %d", len(expected), len(want)).
			Build()
	}
	for i, v := range expected {
		if v.Type != want[i] {
			return errors.TypeMismatch(errors.PhaseCodegen,
				[]string{export, "result" + strconv.Itoa(i)}, want[i].String(), v.Type.String())
		}
	}
	return nil
}

// valueTypes never returns nil, so zero expected values still mean "no results".
func valueTypes(vs []Value) []wasm.ValType {
	types := make([]wasm.ValType, len(vs))
	for i, v := range vs {
		types[i] = v.Type
	}
	return types
}

// signatureHinter is implemented by nodes that fully determine the
// signature of the export they invoke.
type signatureHinter interface {
	signatureHint() (export string, ft wasm.FuncType)
}

// checkType is the signature of every value-mode check function.
var checkType = wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}
