package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/syntax"
)

func newParseCmd() *cobra.Command {
	var showPositions bool

	cmd := &cobra.Command{
		Use:   "parse <file.java>",
		Short: "Parse a Java source file and print its syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			tree, errs := syntax.ParseCompilationUnit(f, syntax.WithFile(args[0]))
			if showPositions {
				fmt.Fprintln(cmd.OutOrStdout(), tree.StringWithPositions())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), tree.String())
			}
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %s\n", args[0], e.Span.Start.Line, e.Span.Start.Column, e.Message)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d parse error(s)", len(errs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPositions, "positions", false, "annotate each node with its byte/line/column span")
	return cmd
}
