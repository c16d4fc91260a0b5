package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/config"
	"github.com/nova-ide/nova/nova/workspace"
)

func newProjectCmd() *cobra.Command {
	var mavenRepo, gradleHome string

	cmd := &cobra.Command{
		Use:   "project <dir>",
		Short: "Discover the Maven or Gradle workspace rooted at dir and print its model as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.DefaultLoadOptions()
			if mavenRepo != "" {
				opts.MavenRepo = mavenRepo
			}
			if gradleHome != "" {
				opts.GradleUserHome = gradleHome
			}

			model, err := workspace.Load(args[0], opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(model)
		},
	}
	cmd.Flags().StringVar(&mavenRepo, "maven-repo", "", "override the local Maven repository (default ~/.m2/repository)")
	cmd.Flags().StringVar(&gradleHome, "gradle-home", "", "override GRADLE_USER_HOME (default ~/.gradle)")
	return cmd
}

func loadWorkspace(dir, mavenRepo, gradleHome string) (*workspace.WorkspaceModel, error) {
	opts := config.DefaultLoadOptions()
	if mavenRepo != "" {
		opts.MavenRepo = mavenRepo
	}
	if gradleHome != "" {
		opts.GradleUserHome = gradleHome
	}
	model, err := workspace.Load(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	return model, nil
}
