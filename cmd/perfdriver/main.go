package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-asserts/bench"
	"github.com/wippyai/wasm-asserts/bench/fib"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the driver and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, bench.ErrUsage) {
			fmt.Fprintln(stderr, err)
			fmt.Fprintln(stderr, bench.Usage)
			fmt.Fprintln(stderr, "\t -v, --verbose log debug output (before -w/-c)")
		} else {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfdriver [-v] [-w|-c] <integer>",
		Short: "Time the Fibonacci backend in wasm and native Go",
		Long: `perfdriver initializes the wasm module once, then times 10 calls of the
wasm and/or native implementation with the given parameter and prints the
mean nanoseconds per call.

Progress is logged to stderr as JSON; -v/--verbose enables debug output.`,
		// -w and -c are positional; a value like -5 must still parse as a number.
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}
			verbose, args := splitVerbose(args)
			opts, err := bench.ParseArgs(args)
			if err != nil {
				return err
			}
			return run(opts, verbose, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

// splitVerbose strips leading -v/--verbose flags; the rest is the
// benchmark's own argument list.
func splitVerbose(args []string) (bool, []string) {
	verbose := false
	for len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		verbose = true
		args = args[1:]
	}
	return verbose, args
}

func run(opts bench.Options, verbose bool, stdout, stderr io.Writer) error {
	ctx := context.Background()

	logger := newLogger(stderr, verbose)
	defer logger.Sync()
	bench.SetLogger(logger)

	backend := fib.New()
	defer backend.Close(ctx)

	_, err := bench.Run(ctx, backend, opts, stdout)
	return err
}

// newLogger builds the production logger configuration, writing to w.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(config.EncoderConfig), zapcore.AddSync(w), config.Level)
	return zap.New(core)
}
