package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <script>",
	Short: "Print the assertion dump of every suite",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	suites, err := loadSuites(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, suite := range suites {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, ";; %s (line %d): %d assertions, %d skipped\n",
			suite.Module, suite.Line, suite.Collection.Len(), len(suite.Skipped))
		if err := suite.Collection.Dump(out); err != nil {
			return fmt.Errorf("dump %s: %w", suite.Module, err)
		}
	}
	return nil
}
