package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-asserts/assert"
	"github.com/wippyai/wasm-asserts/harness"
	"github.com/wippyai/wasm-asserts/script"
)

var (
	// Global flags
	verbose   bool
	suiteName string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "assertgen",
	Short: "Turn wasm assertion scripts into dumps and generated check modules",
	Long: `assertgen reads assertion scripts (wast2json JSON or YAML) and, per module
suite, prints the assertion dump, writes a generated check module, runs the
checks against the module with wazero, or browses them interactively.

Assertions are visited most recently added first, in dumps and generated
code alike.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		assert.SetLogger(logger.Named("assert"))
		script.SetLogger(logger.Named("script"))
		harness.SetLogger(logger.Named("harness"))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&suiteName, "suite", "s", "", "Only process the suite for this module name")

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(browseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSuites loads a script and applies the --suite filter.
func loadSuites(path string) ([]*script.Suite, error) {
	s, err := script.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	for _, o := range s.Orphans() {
		logger.Warn("assertion outside any module", zap.String("type", o.Type), zap.Int("line", o.Line))
	}

	suites := s.Suites()
	if suiteName == "" {
		return suites, nil
	}
	for _, suite := range suites {
		if suite.Name() == suiteName || suite.Module == suiteName {
			return []*script.Suite{suite}, nil
		}
	}
	return nil, fmt.Errorf("no suite %q in %s", suiteName, path)
}

// readSubject returns the module bytes of a suite, or nil when the file
// does not exist.
func readSubject(suite *script.Suite) ([]byte, error) {
	if suite.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(suite.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", suite.Path, err)
	}
	return data, nil
}
