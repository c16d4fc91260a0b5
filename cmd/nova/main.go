// Command nova is Nova's CLI front end: a thin cobra wrapper over the
// library packages (nova/syntax, nova/format, nova/index, nova/refactor,
// nova/workspace, nova/jdwp, nova/dap, nova/streamdebug). No protocol or
// business logic lives here, per spec §1's "CLI front-ends ... are external
// collaborators" and SPEC_FULL.md §A.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/logging"

	_ "github.com/nova-ide/nova/nova/workspace/gradle"
	_ "github.com/nova-ide/nova/nova/workspace/maven"
)

func main() {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:           "nova",
		Short:         "Java developer tooling: parser, formatter, workspace discovery, refactoring, and a DAP/JDWP debugger bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Bootstrap(verbosity)
		},
	}
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	rootCmd.AddCommand(
		newParseCmd(),
		newFmtCmd(),
		newProjectCmd(),
		newClasspathCmd(),
		newRefactorCmd(),
		newDAPCmd(),
		newJDWPProbeCmd(),
		newStreamDebugCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nova:", err)
		os.Exit(1)
	}
}
