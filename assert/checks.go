package assert

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

// Return asserts that the action returns exactly Expected.
// Expected values may carry a NaN class instead of a bit pattern.
type Return struct {
	Action   Action
	Expected []Value
}

func (r *Return) Describe() string {
	var b strings.Builder
	b.WriteString("(assert_return ")
	b.WriteString(r.Action.String())
	for _, v := range r.Expected {
		b.WriteByte(' ')
		b.WriteString(v.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (r *Return) Codegen(t *Target) (Handle, error) {
	c := wasm.NewCode()
	ft, err := r.Action.emitInvoke(t, c, valueTypes(r.Expected))
	if err != nil {
		return Handle{}, err
	}
	if err := checkResultTypes(r.Action.Export, ft.Results, r.Expected); err != nil {
		return Handle{}, err
	}

	locals := storeResults(c, ft.Results)
	if len(r.Expected) == 0 {
		c.I32Const(1)
	}
	for i, v := range r.Expected {
		v.emitMatch(c, uint32(i))
		if i > 0 {
			c.Op(wasm.OpI32And)
		}
	}
	return t.AddCheck(ModeValue, checkType, locals, c)
}

func (r *Return) signatureHint() (string, wasm.FuncType) {
	return r.Action.Export, wasm.FuncType{Params: r.Action.paramTypes(), Results: valueTypes(r.Expected)}
}

// ReturnNaN asserts that the action returns a single NaN of the given class.
type ReturnNaN struct {
	Action Action
	Type   wasm.ValType
	Kind   NaNKind
}

func (r *ReturnNaN) Describe() string {
	return "(assert_return " + r.Action.String() + " " + r.expected().String() + ")"
}

func (r *ReturnNaN) expected() Value {
	return Value{Type: r.Type, NaN: r.Kind}
}

func (r *ReturnNaN) Codegen(t *Target) (Handle, error) {
	if !r.Type.IsFloat() {
		return Handle{}, errors.TypeMismatch(errors.PhaseCodegen, []string{r.Action.Export}, "f32 or f64", r.Type.String())
	}
	if r.Kind == NaNNone {
		return Handle{}, errors.InvalidInput(errors.PhaseCodegen, "NaN class required")
	}
	inner := &Return{Action: r.Action, Expected: []Value{r.expected()}}
	return inner.Codegen(t)
}

func (r *ReturnNaN) signatureHint() (string, wasm.FuncType) {
	return r.Action.Export, wasm.FuncType{Params: r.Action.paramTypes(), Results: []wasm.ValType{r.Type}}
}

// Approx asserts that the action returns a single float within Tolerance
// (absolute) of Expected.
type Approx struct {
	Action    Action
	Expected  Value
	Tolerance float64
}

func (a *Approx) Describe() string {
	return "(assert_approx " + a.Action.String() + " " + a.Expected.String() + " " +
		strconv.FormatFloat(a.Tolerance, 'g', -1, 64) + ")"
}

func (a *Approx) Codegen(t *Target) (Handle, error) {
	if !a.Expected.Type.IsFloat() {
		return Handle{}, errors.TypeMismatch(errors.PhaseCodegen, []string{a.Action.Export}, "f32 or f64", a.Expected.Type.String())
	}
	if a.Expected.NaN != NaNNone || math.IsNaN(a.Expected.Float()) {
		return Handle{}, errors.InvalidInput(errors.PhaseCodegen, "approx needs a concrete expected value")
	}
	if a.Tolerance < 0 || math.IsNaN(a.Tolerance) {
		return Handle{}, errors.InvalidInput(errors.PhaseCodegen, "approx needs a non-negative tolerance")
	}

	c := wasm.NewCode()
	ft, err := a.Action.emitInvoke(t, c, []wasm.ValType{a.Expected.Type})
	if err != nil {
		return Handle{}, err
	}
	if err := checkResultTypes(a.Action.Export, ft.Results, []Value{a.Expected}); err != nil {
		return Handle{}, err
	}

	locals := storeResults(c, ft.Results)
	// inf - inf is NaN, so infinities only match themselves.
	if math.IsInf(a.Expected.Float(), 0) {
		a.Expected.emitMatch(c, 0)
		return t.AddCheck(ModeValue, checkType, locals, c)
	}
	c.LocalGet(0)
	a.Expected.push(c)
	if a.Expected.Type == wasm.ValF32 {
		c.Op(wasm.OpF32Sub, wasm.OpF32Abs).
			Append(wasm.F32Const(float32(a.Tolerance))).
			Op(wasm.OpF32Le)
	} else {
		c.Op(wasm.OpF64Sub, wasm.OpF64Abs).
			Append(wasm.F64Const(a.Tolerance)).
			Op(wasm.OpF64Le)
	}
	return t.AddCheck(ModeValue, checkType, locals, c)
}

func (a *Approx) signatureHint() (string, wasm.FuncType) {
	return a.Action.Export, wasm.FuncType{Params: a.Action.paramTypes(), Results: []wasm.ValType{a.Expected.Type}}
}

// Trap asserts that the action traps. Message is the expected trap text;
// whether it is enforced is up to the host that runs the checks.
type Trap struct {
	Action  Action
	Message string
}

func (tr *Trap) Describe() string {
	return "(assert_trap " + tr.Action.String() + " " + strconv.Quote(tr.Message) + ")"
}

func (tr *Trap) Codegen(t *Target) (Handle, error) {
	c := wasm.NewCode()
	ft, err := tr.Action.emitInvoke(t, c, resultsUnknown)
	if err != nil {
		return Handle{}, err
	}
	for range ft.Results {
		c.Op(wasm.OpDrop)
	}
	h, err := t.AddCheck(ModeTrap, wasm.FuncType{}, nil, c)
	if err != nil {
		return Handle{}, err
	}
	h.Message = tr.Message
	return h, nil
}
