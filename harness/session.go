package harness

import (
	"context"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-asserts/assert"
	"github.com/wippyai/wasm-asserts/errors"
)

// generatedName is the instance name of the generated check module.
const generatedName = "asserts"

// Result is the outcome of one check.
type Result struct {
	Description string
	Detail      string
	Ordinal     int
	Passed      bool
}

// Report collects results in check order.
type Report struct {
	Results []Result
	Failed  int
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Session is a linked subject, host module and check module sharing one
// wazero runtime. It is not safe for concurrent use.
type Session struct {
	runtime wazero.Runtime
	checks  api.Module
	entry   api.Function
	handles []assert.Handle
	module  []byte
	results []Result
	stash   pending
	strict  bool
}

// Open compiles the subject, generates checks for c against its exports
// and links everything. The session must be closed.
func (h *Harness) Open(ctx context.Context, subject []byte, c *assert.Collection) (*Session, error) {
	log := Logger()
	rt := h.newRuntime(ctx)
	s := &Session{runtime: rt, stash: noPending, strict: h.cfg.StrictTrapText}

	ok := false
	defer func() {
		if !ok {
			rt.Close(ctx)
		}
	}()

	compiled, err := rt.CompileModule(ctx, subject)
	if err != nil {
		return nil, errors.Load("compile subject", err)
	}

	target := assert.NewTarget(signaturesOf(compiled), assert.WithSubjectName(h.cfg.SubjectName))
	if s.handles, err = c.Generate(target); err != nil {
		return nil, err
	}
	s.module = target.Bytes()

	if _, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(h.cfg.SubjectName)); err != nil {
		return nil, errors.Instantiation("subject", err)
	}
	if err := s.instantiateHost(ctx); err != nil {
		return nil, errors.Instantiation(assert.HostModule, err)
	}

	checks, err := rt.CompileModule(ctx, s.module)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "compile generated checks")
	}
	if s.checks, err = rt.InstantiateModule(ctx, checks, wazero.NewModuleConfig().WithName(generatedName)); err != nil {
		return nil, errors.Instantiation("generated checks", err)
	}
	s.entry = s.checks.ExportedFunction(assert.EntryName)

	log.Debug("session opened",
		zap.String("subject", h.cfg.SubjectName),
		zap.Int("checks", len(s.handles)),
		zap.Int("module_size", len(s.module)),
	)
	ok = true
	return s, nil
}

func (s *Session) instantiateHost(ctx context.Context) error {
	i32 := api.ValueTypeI32
	_, err := s.runtime.NewHostModuleBuilder(assert.HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(s.report), []api.ValueType{i32, i32}, nil).
		Export(assert.ReportFunc).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(s.expectTrap), []api.ValueType{i32}, []api.ValueType{i32}).
		Export(assert.ExpectTrapFunc).
		Instantiate(ctx)
	return err
}

// report(ordinal, passed) records a check outcome in run order.
func (s *Session) report(_ context.Context, _ api.Module, stack []uint64) {
	ordinal := int(api.DecodeI32(stack[0]))
	passed := api.DecodeI32(stack[1]) != 0
	r := s.result(ordinal, passed)
	if !passed && r.Detail == "" {
		r.Detail = "check returned 0"
	}
	s.results = append(s.results, r)
}

// expectTrap(ordinal) -> passed invokes a trap check from the host and
// reports whether it trapped.
func (s *Session) expectTrap(ctx context.Context, mod api.Module, stack []uint64) {
	ordinal := int(api.DecodeI32(stack[0]))
	passed, _ := s.runTrap(ctx, mod, ordinal)
	stack[0] = api.EncodeI32(boolI32(passed))
}

// runTrap stashes its detail until report picks it up.
func (s *Session) runTrap(ctx context.Context, mod api.Module, ordinal int) (bool, string) {
	h, ok := s.handle(ordinal)
	if !ok {
		return false, "unknown check"
	}
	fn := mod.ExportedFunction(h.Export)
	if fn == nil {
		return false, "missing export " + h.Export
	}

	_, err := fn.Call(ctx)
	detail := ""
	passed := false
	switch {
	case err == nil:
		detail = "expected trap, returned normally"
	case s.strict && h.Message != "" && !strings.Contains(err.Error(), h.Message):
		detail = "trap " + strconv.Quote(trapText(err)) + " does not contain " + strconv.Quote(h.Message)
	default:
		passed = true
		detail = trapText(err)
	}
	s.pendingDetail(ordinal, detail)
	return passed, detail
}

func (s *Session) handle(ordinal int) (assert.Handle, bool) {
	if ordinal < 0 || ordinal >= len(s.handles) {
		return assert.Handle{}, false
	}
	return s.handles[ordinal], true
}

// pending holds a detail produced during a check until it is reported.
type pending struct {
	ordinal int
	detail  string
}

var noPending = pending{ordinal: -1}

func (s *Session) pendingDetail(ordinal int, detail string) {
	s.stash = pending{ordinal: ordinal, detail: detail}
}

func (s *Session) result(ordinal int, passed bool) Result {
	r := Result{Ordinal: ordinal, Passed: passed}
	if h, ok := s.handle(ordinal); ok {
		r.Description = h.Description
	}
	if s.stash.ordinal == ordinal {
		r.Detail = s.stash.detail
		s.stash = noPending
	}
	return r
}

// RunAll calls run_all and returns the reported results. A value check
// whose subject call traps aborts run_all; it is recorded as failed and the
// remaining checks run one by one.
func (s *Session) RunAll(ctx context.Context) (*Report, error) {
	log := Logger()
	s.results = s.results[:0]
	s.stash = noPending

	ret, err := s.entry.Call(ctx)
	if err != nil {
		next := len(s.results)
		if next >= len(s.handles) {
			return nil, errors.Wrap(errors.PhaseRun, errors.KindTrap, err, assert.EntryName)
		}
		log.Debug("run_all trapped", zap.Int("ordinal", next), zap.Error(err))
		r := s.result(next, false)
		r.Detail = "unexpected trap: " + trapText(err)
		s.results = append(s.results, r)

		for o := next + 1; o < len(s.handles); o++ {
			r, err := s.RunCheck(ctx, o)
			if err != nil {
				return nil, err
			}
			s.results = append(s.results, r)
		}
		return s.buildReport(), nil
	}

	rep := s.buildReport()
	if failed := int(api.DecodeI32(ret[0])); failed != rep.Failed {
		return nil, errors.New(errors.PhaseRun, errors.KindInvalidData).
			Path(assert.EntryName).
			Detail("returned %d failures, host saw %d", failed, rep.Failed).
			Build()
	}
	log.Debug("run_all finished", zap.Int("checks", len(rep.Results)), zap.Int("failed", rep.Failed))
	return rep, nil
}

// RunCheck runs a single check outside run_all.
func (s *Session) RunCheck(ctx context.Context, ordinal int) (Result, error) {
	h, ok := s.handle(ordinal)
	if !ok {
		return Result{}, errors.NotFound(errors.PhaseRun, "check", strconv.Itoa(ordinal))
	}
	s.stash = noPending

	if h.Mode == assert.ModeTrap {
		passed, detail := s.runTrap(ctx, s.checks, ordinal)
		r := s.result(ordinal, passed)
		r.Detail = detail
		return r, nil
	}

	fn := s.checks.ExportedFunction(h.Export)
	if fn == nil {
		return Result{}, errors.NotFound(errors.PhaseRun, "export", h.Export)
	}
	ret, err := fn.Call(ctx)
	if err != nil {
		r := s.result(ordinal, false)
		r.Detail = "unexpected trap: " + trapText(err)
		return r, nil
	}
	passed := api.DecodeI32(ret[0]) == 1
	r := s.result(ordinal, passed)
	if !passed {
		r.Detail = "check returned 0"
	}
	return r, nil
}

func (s *Session) buildReport() *Report {
	rep := &Report{Results: append([]Result(nil), s.results...)}
	for _, r := range rep.Results {
		if !r.Passed {
			rep.Failed++
		}
	}
	return rep
}

// Handles returns the generated checks in run order.
func (s *Session) Handles() []assert.Handle {
	return s.handles
}

// Module returns the encoded check module.
func (s *Session) Module() []byte {
	return s.module
}

// Close releases the runtime and every module in it.
func (s *Session) Close(ctx context.Context) error {
	if s.runtime == nil {
		return nil
	}
	err := s.runtime.Close(ctx)
	s.runtime = nil
	s.checks = nil
	s.entry = nil
	return err
}

// trapText returns the first line of a wazero error, without the stack trace.
func trapText(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimPrefix(msg, "wasm error: ")
}

func boolI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
