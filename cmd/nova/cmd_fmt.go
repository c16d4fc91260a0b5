package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/format"
)

func newFmtCmd() *cobra.Command {
	var (
		write      bool
		indentTabs bool
		indentW    int
		maxLine    int
	)

	cmd := &cobra.Command{
		Use:   "fmt <file.java>...",
		Short: "Format Java source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := format.DefaultConfig()
			if indentTabs {
				cfg.IndentStyle = format.IndentTabs
			}
			if indentW > 0 {
				cfg.IndentWidth = indentW
			}
			if maxLine > 0 {
				cfg.MaxLineLength = maxLine
			}

			var failed bool
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				out, err := format.Format(src, cfg, 0)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed = true
					continue
				}
				if write {
					if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
						return err
					}
				} else {
					fmt.Fprint(cmd.OutOrStdout(), out)
				}
			}
			if failed {
				return fmt.Errorf("formatting failed for one or more files")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write result to source file instead of stdout")
	cmd.Flags().BoolVar(&indentTabs, "tabs", false, "indent with tabs instead of spaces")
	cmd.Flags().IntVar(&indentW, "indent-width", 0, "indent width in spaces (default 4)")
	cmd.Flags().IntVar(&maxLine, "max-line-length", 0, "max line length before argument lists wrap (default 100)")
	return cmd
}
