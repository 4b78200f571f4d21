package tools

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"agentsmith/internal/app"

	"github.com/spf13/cobra"
)

var asJSON bool

var Cmd = &cobra.Command{
	Use:   "tools",
	Short: "List the built-in tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.FromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		specs := a.Registry.Specs()
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(specs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, s := range specs {
			fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
		}
		return w.Flush()
	},
}

func init() {
	Cmd.Flags().BoolVar(&asJSON, "json", false, "print full tool schemas as JSON")
}
