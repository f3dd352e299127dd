package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-asserts/harness"
)

var runConfig harness.Config

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run generated checks against each suite's module",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runConfig.Interpreter, "interpreter", false, "Use the wazero interpreter")
	runCmd.Flags().BoolVar(&runConfig.StrictTrapText, "strict-traps", false, "Require trap messages to match")
	runCmd.Flags().Uint32Var(&runConfig.MemoryLimitPages, "memory-limit-pages", 0, "Memory limit per instance in 64KB pages")
	runCmd.Flags().StringVar(&runConfig.SubjectName, "subject-name", "", "Module name the checks import from (default \"test\")")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	suites, err := loadSuites(args[0])
	if err != nil {
		return err
	}

	h, err := harness.New(ctx, runConfig)
	if err != nil {
		return err
	}
	defer h.Close(ctx)

	failed := 0
	for _, suite := range suites {
		subject, err := readSubject(suite)
		if err != nil {
			return err
		}
		if subject == nil {
			return fmt.Errorf("module %s not found", suite.Path)
		}

		rep, err := h.Run(ctx, subject, suite.Collection)
		if err != nil {
			return fmt.Errorf("run %s: %w", suite.Module, err)
		}
		writeReport(cmd.OutOrStdout(), suite.Module, rep)
		failed += rep.Failed
	}

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}
