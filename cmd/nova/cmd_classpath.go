package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newClasspathCmd() *cobra.Command {
	var mavenRepo, gradleHome string
	var sep string

	cmd := &cobra.Command{
		Use:   "classpath <dir>",
		Short: "Print the flattened classpath for the workspace rooted at dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadWorkspace(args[0], mavenRepo, gradleHome)
			if err != nil {
				return err
			}
			if sep == "" {
				sep = string(filepath.ListSeparator)
			}
			flat := model.Flatten()
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(flat.Classpath, sep))
			return nil
		},
	}
	cmd.Flags().StringVar(&mavenRepo, "maven-repo", "", "override the local Maven repository (default ~/.m2/repository)")
	cmd.Flags().StringVar(&gradleHome, "gradle-home", "", "override GRADLE_USER_HOME (default ~/.gradle)")
	cmd.Flags().StringVar(&sep, "sep", "", "entry separator (default the platform's path list separator)")
	return cmd
}
