package harness

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-asserts/assert"
	"github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

// Config holds configuration for running generated checks.
type Config struct {
	// SubjectName is the module name the subject is instantiated under and
	// the import module of generated checks. Empty means assert.DefaultSubject.
	SubjectName string

	// MemoryLimitPages caps memory per instance in 64KB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32

	// Interpreter selects the wazero interpreter instead of the compiler.
	Interpreter bool

	// StrictTrapText fails a trap check whose trap message does not contain
	// the expected text. By default any trap passes.
	StrictTrapText bool
}

// Harness compiles subjects and runs generated checks against them.
// Compiled code is cached across sessions.
type Harness struct {
	cache wazero.CompilationCache
	cfg   Config
}

// New creates a harness.
func New(ctx context.Context, cfg Config) (*Harness, error) {
	if cfg.SubjectName == "" {
		cfg.SubjectName = assert.DefaultSubject
	}
	if cfg.SubjectName == assert.HostModule || cfg.SubjectName == generatedName {
		return nil, errors.InvalidInput(errors.PhaseLink, "subject name "+cfg.SubjectName+" is reserved")
	}
	return &Harness{
		cache: wazero.NewCompilationCache(),
		cfg:   cfg,
	}, nil
}

// Config returns the effective configuration.
func (h *Harness) Config() Config {
	return h.cfg
}

// Close releases the compilation cache.
func (h *Harness) Close(ctx context.Context) error {
	return h.cache.Close(ctx)
}

func (h *Harness) newRuntime(ctx context.Context) wazero.Runtime {
	var rc wazero.RuntimeConfig
	if h.cfg.Interpreter {
		rc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rc = wazero.NewRuntimeConfig()
	}
	rc = rc.WithCompilationCache(h.cache)
	if h.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(h.cfg.MemoryLimitPages)
	}
	return wazero.NewRuntimeWithConfig(ctx, rc)
}

// Signatures compiles the subject and returns the types of its exported
// functions. Exports using types the checks cannot express are left out.
func (h *Harness) Signatures(ctx context.Context, subject []byte) (assert.Signatures, error) {
	rt := h.newRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, subject)
	if err != nil {
		return nil, errors.Load("compile subject", err)
	}
	return signaturesOf(compiled), nil
}

func signaturesOf(compiled wazero.CompiledModule) assert.Signatures {
	sigs := make(assert.Signatures)
	for name, def := range compiled.ExportedFunctions() {
		params, ok := valTypes(def.ParamTypes())
		if !ok {
			Logger().Debug("skipping export", zap.String("export", name), zap.String("reason", "param type"))
			continue
		}
		results, ok := valTypes(def.ResultTypes())
		if !ok {
			Logger().Debug("skipping export", zap.String("export", name), zap.String("reason", "result type"))
			continue
		}
		sigs[name] = wasm.FuncType{Params: params, Results: results}
	}
	return sigs
}

func valTypes(vts []api.ValueType) ([]wasm.ValType, bool) {
	out := make([]wasm.ValType, len(vts))
	for i, vt := range vts {
		switch vt {
		case api.ValueTypeI32:
			out[i] = wasm.ValI32
		case api.ValueTypeI64:
			out[i] = wasm.ValI64
		case api.ValueTypeF32:
			out[i] = wasm.ValF32
		case api.ValueTypeF64:
			out[i] = wasm.ValF64
		default:
			return nil, false
		}
	}
	return out, true
}

// Generate builds the check module for c. With a nil subject the target
// infers signatures from the assertions.
func (h *Harness) Generate(ctx context.Context, subject []byte, c *assert.Collection) (*assert.Target, []assert.Handle, error) {
	var sigs assert.Signatures
	if subject != nil {
		var err error
		if sigs, err = h.Signatures(ctx, subject); err != nil {
			return nil, nil, err
		}
	}
	target := assert.NewTarget(sigs, assert.WithSubjectName(h.cfg.SubjectName))
	handles, err := c.Generate(target)
	if err != nil {
		return nil, nil, err
	}
	return target, handles, nil
}

// Run opens a session, runs every check and closes the session.
func (h *Harness) Run(ctx context.Context, subject []byte, c *assert.Collection) (*Report, error) {
	s, err := h.Open(ctx, subject, c)
	if err != nil {
		return nil, err
	}
	defer s.Close(ctx)
	return s.RunAll(ctx)
}
