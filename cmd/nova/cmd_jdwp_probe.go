package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/jdwp"
)

func newJDWPProbeCmd() *cobra.Command {
	var attempts int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "jdwp-probe <host:port>",
		Short: "Connect to a JVM's JDWP agent and print its id widths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := jdwp.Connect(context.Background(), args[0], attempts, delay)
			if err != nil {
				return err
			}
			defer client.Close()

			sizes := client.IDSizes()
			fmt.Fprintf(cmd.OutOrStdout(), "fieldIDSize:        %d\n", sizes.FieldIDSize)
			fmt.Fprintf(cmd.OutOrStdout(), "methodIDSize:       %d\n", sizes.MethodIDSize)
			fmt.Fprintf(cmd.OutOrStdout(), "objectIDSize:       %d\n", sizes.ObjectIDSize)
			fmt.Fprintf(cmd.OutOrStdout(), "referenceTypeIDSize: %d\n", sizes.ReferenceTypeIDSize)
			fmt.Fprintf(cmd.OutOrStdout(), "frameIDSize:        %d\n", sizes.FrameIDSize)
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 10, "connection retry attempts")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "delay between retry attempts")
	return cmd
}
