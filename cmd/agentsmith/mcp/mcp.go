package mcp

import (
	"os"

	"agentsmith/internal/app"
	"agentsmith/internal/mcpserver"

	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the built-in tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.FromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		s, err := mcpserver.New(a.Registry, cmd.Root().Version)
		if err != nil {
			return err
		}
		return mcpserver.ServeStdio(ctx, s, os.Stdin, os.Stdout)
	},
}
