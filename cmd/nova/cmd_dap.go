package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/dap"
)

// stdio adapts os.Stdin/os.Stdout into the single io.ReadWriter dap.NewTransport
// expects, the way a language server wires its stdio transport.
type stdio struct {
	io.Reader
	io.Writer
}

func newDAPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dap",
		Short: "Run a Debug Adapter Protocol session over stdio, bridging to a JVM via JDWP",
		RunE: func(cmd *cobra.Command, args []string) error {
			transport := dap.NewTransport(stdio{os.Stdin, os.Stdout})
			session := dap.NewSession(transport)
			defer session.Shutdown()
			return session.Run(context.Background())
		},
	}
}
