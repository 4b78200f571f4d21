package serve

import (
	"fmt"
	"log/slog"

	"agentsmith/internal/app"
	"agentsmith/internal/gateway"

	"github.com/spf13/cobra"
)

var addr string

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.FromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if addr != "" {
			a.Config.Gateway.Addr = addr
		}

		store, err := a.Definitions(ctx)
		if err != nil {
			return fmt.Errorf("opening definition store: %w", err)
		}

		srv := gateway.NewServer(gateway.Options{
			Factory:        a.Factory,
			Registry:       a.Registry,
			Store:          store,
			Metrics:        a.Metrics,
			CustomMaxSteps: a.Config.CustomMaxSteps,
			RequestTimeout: a.Config.Gateway.RequestTimeout.Duration,
		})
		slog.Info("starting gateway",
			"addr", a.Config.Gateway.Addr,
			"agents", len(a.Factory.Profiles()),
			"tools", a.Registry.Len(),
		)
		return srv.ListenAndServe(ctx, a.Config.Gateway.Addr)
	},
}

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "override gateway listen address")
}
