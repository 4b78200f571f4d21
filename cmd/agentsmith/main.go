package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"agentsmith/cmd/agentsmith/mcp"
	"agentsmith/cmd/agentsmith/run"
	"agentsmith/cmd/agentsmith/serve"
	"agentsmith/cmd/agentsmith/tools"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "agentsmith",
		Short:         "agentsmith runs tool-using AI agents",
		Version:       version,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config.toml")
	rootCmd.PersistentFlags().String("llm", "", "configured LLM to use instead of default_llm")

	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(run.Cmd)
	rootCmd.AddCommand(tools.Cmd)
	rootCmd.AddCommand(mcp.Cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
