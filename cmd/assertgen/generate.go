package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-asserts/harness"
)

var (
	outDir string
	infer  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <script>",
	Short: "Write a generated check module per suite",
	Long: `Writes <suite>.asserts.wasm for every suite. Signatures come from the
suite's module when it exists next to the script; otherwise, or with
--infer, they are inferred from the assertions.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	generateCmd.Flags().BoolVar(&infer, "infer", false, "Infer signatures instead of reading the module")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	suites, err := loadSuites(args[0])
	if err != nil {
		return err
	}

	h, err := harness.New(ctx, harness.Config{})
	if err != nil {
		return err
	}
	defer h.Close(ctx)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, suite := range suites {
		var subject []byte
		if !infer {
			if subject, err = readSubject(suite); err != nil {
				return err
			}
		}
		if subject == nil {
			logger.Debug("inferring signatures", zap.String("suite", suite.Name()))
		}

		target, handles, err := h.Generate(ctx, subject, suite.Collection)
		if err != nil {
			return fmt.Errorf("generate %s: %w", suite.Module, err)
		}

		path := filepath.Join(outDir, suite.Name()+".asserts.wasm")
		if err := os.WriteFile(path, target.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d checks\n", path, len(handles))
	}
	return nil
}
