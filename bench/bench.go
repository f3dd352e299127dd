// Package bench times a wasm backend against a native one.
//
// A run initializes the backend once, prepares the module side with the
// parameter (always, since the native side may depend on it), then times a
// fixed number of iterations of each selected side and reports the mean.
package bench

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-asserts/errors"
)

// DefaultIterations is the number of timed calls per side.
const DefaultIterations = 10

// Usage is the command line synopsis.
const Usage = `usage: perfdriver [-w|-c] <integer>
	 -w only execute wasm
	 -c only execute native`

// ErrUsage matches every argument error returned by ParseArgs.
var ErrUsage = &errors.Error{Phase: errors.PhaseBench, Kind: errors.KindUsage, Detail: "invalid arguments"}

// Backend supplies the code being timed.
type Backend interface {
	// Init prepares the backend once per run.
	Init(ctx context.Context) error
	// InitModule prepares the wasm side for param.
	InitModule(ctx context.Context, param int32) error
	RunModule(ctx context.Context, param int32) (int64, error)
	// InitNative returns state passed to every RunNative call.
	InitNative(ctx context.Context, param int32) (any, error)
	RunNative(ctx context.Context, state any, param int32) (int64, error)
}

// Selection picks which sides run.
type Selection uint8

const (
	Both Selection = iota
	ModuleOnly
	NativeOnly
)

func (s Selection) String() string {
	switch s {
	case ModuleOnly:
		return "module"
	case NativeOnly:
		return "native"
	default:
		return "both"
	}
}

// Options configures a run.
type Options struct {
	Param      int32
	Iterations int
	Only       Selection
}

func (o Options) runModule() bool { return o.Only != NativeOnly }
func (o Options) runNative() bool { return o.Only != ModuleOnly }

// ParseArgs parses "[-w|-c] <integer>". The integer accepts a base prefix
// and must be consumed entirely.
func ParseArgs(args []string) (Options, error) {
	opts := Options{Iterations: DefaultIterations}

	var value string
	switch len(args) {
	case 0:
		return opts, usageError("missing value")
	case 1:
		value = args[0]
	case 2:
		switch args[0] {
		case "-w":
			opts.Only = ModuleOnly
		case "-c":
			opts.Only = NativeOnly
		default:
			return opts, usageError("unknown flag " + strconv.Quote(args[0]))
		}
		value = args[1]
	default:
		return opts, usageError("too many arguments, expected only -w or -c and a value")
	}

	n, err := strconv.ParseInt(value, 0, 32)
	if err != nil {
		return opts, errors.New(errors.PhaseBench, errors.KindUsage).
			Detail("argument should be an integer: %q", value).
			Cause(err).
			Build()
	}
	opts.Param = int32(n)
	return opts, nil
}

func usageError(detail string) error {
	return errors.New(errors.PhaseBench, errors.KindUsage).Detail(detail).Build()
}

// Timing is the measurement of one side.
type Timing struct {
	Side       string
	Total      time.Duration
	Iterations int
	// Last is the value returned by the final call.
	Last int64
}

// Mean returns the arithmetic mean in nanoseconds per iteration.
func (t Timing) Mean() float64 {
	if t.Iterations == 0 {
		return 0
	}
	return float64(t.Total.Nanoseconds()) / float64(t.Iterations)
}

// Result holds the timings of the sides that ran.
type Result struct {
	Module *Timing
	Native *Timing
	Param  int32
}

// Run executes the benchmark and prints one line per side to out.
func Run(ctx context.Context, b Backend, opts Options, out io.Writer) (*Result, error) {
	log := Logger()
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	res := &Result{Param: opts.Param}

	log.Info("initializing backend")
	if err := b.Init(ctx); err != nil {
		return nil, errors.Wrap(errors.PhaseBench, errors.KindInstantiation, err, "init backend")
	}
	log.Info("initializing module", zap.Int32("param", opts.Param))
	if err := b.InitModule(ctx, opts.Param); err != nil {
		return nil, errors.Wrap(errors.PhaseBench, errors.KindInstantiation, err, "init module")
	}

	if opts.runModule() {
		fmt.Fprintf(out, "running wasm with %d\n", opts.Param)
		t, err := measure(ctx, "wasm", opts.Iterations, func() (int64, error) {
			return b.RunModule(ctx, opts.Param)
		})
		if err != nil {
			return nil, err
		}
		res.Module = t
		printTiming(out, t)
	}

	if opts.runNative() {
		fmt.Fprintf(out, "running native with %d\n", opts.Param)
		state, err := b.InitNative(ctx, opts.Param)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseBench, errors.KindInstantiation, err, "init native")
		}
		t, err := measure(ctx, "native", opts.Iterations, func() (int64, error) {
			return b.RunNative(ctx, state, opts.Param)
		})
		if err != nil {
			return nil, err
		}
		res.Native = t
		printTiming(out, t)
	}

	log.Debug("benchmark done", zap.Stringer("selection", opts.Only), zap.Int("iterations", opts.Iterations))
	return res, nil
}

// measure brackets the whole loop with one pair of clock reads.
func measure(ctx context.Context, side string, n int, call func() (int64, error)) (*Timing, error) {
	t := &Timing{Side: side, Iterations: n}
	start := time.Now()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.PhaseBench, errors.KindCanceled, err, side+" iteration "+strconv.Itoa(i))
		}
		v, err := call()
		if err != nil {
			return nil, errors.New(errors.PhaseBench, errors.KindTrap).
				Path(side, "iteration "+strconv.Itoa(i)).
				Cause(err).
				Build()
		}
		t.Last = v
	}
	t.Total = time.Since(start)
	return t, nil
}

func printTiming(out io.Writer, t *Timing) {
	fmt.Fprintf(out, "%s: average %.1f ns over %d iterations (result %d)\n", t.Side, t.Mean(), t.Iterations, t.Last)
}
