package run

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"agentsmith/internal/agent"
	"agentsmith/internal/app"

	"github.com/spf13/cobra"
)

var (
	contextJSON string
	stream      bool
	custom      bool
)

var Cmd = &cobra.Command{
	Use:   "run <agent-type> <message>",
	Short: "Run an agent once and print the result",
	Long: `Run a built-in agent (code-review, content-writer, customer-support,
sales-assistant) or, with --custom, a saved agent definition by name.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.FromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		req := agent.Request{Message: strings.Join(args[1:], " ")}
		if contextJSON != "" {
			if err := json.Unmarshal([]byte(contextJSON), &req.Context); err != nil {
				return fmt.Errorf("parsing --context: %w", err)
			}
		}

		var loop *agent.Loop
		if custom {
			store, err := a.Definitions(ctx)
			if err != nil {
				return err
			}
			def, err := store.GetByName(ctx, args[0])
			if err != nil {
				return err
			}
			if loop, err = a.CustomRunner(def); err != nil {
				return err
			}
		} else if loop, err = a.Factory.Build(args[0]); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		var emit func(agent.Event)
		if stream {
			emit = streamTo(out, cmd.ErrOrStderr())
		}

		res, err := loop.Run(ctx, req, emit)
		if err != nil {
			return err
		}
		if stream {
			fmt.Fprintln(out)
			return nil
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// streamTo prints text fragments to out and tool activity to status.
func streamTo(out, status io.Writer) func(agent.Event) {
	return func(ev agent.Event) {
		switch ev.Type {
		case agent.EventToken:
			fmt.Fprint(out, ev.Data.(string))
		case agent.EventToolCall:
			c := ev.Data.(agent.ToolCallEvent)
			fmt.Fprintf(status, "→ %s %s\n", c.Tool, c.Arguments)
		case agent.EventToolResult:
			r := ev.Data.(agent.ToolResultEvent)
			if r.IsError {
				fmt.Fprintf(status, "✗ %s %s\n", r.Tool, r.Content)
			} else {
				fmt.Fprintf(status, "✓ %s\n", r.Tool)
			}
		case agent.EventDone:
			res := ev.Data.(*agent.Result)
			fmt.Fprintf(status, "\n[%s after %d steps, %d units]", res.State, res.Steps, res.Usage.TotalUnits)
		}
	}
}

func init() {
	Cmd.Flags().StringVar(&contextJSON, "context", "", "request context as a JSON object")
	Cmd.Flags().BoolVarP(&stream, "stream", "s", false, "stream text as it is generated")
	Cmd.Flags().BoolVar(&custom, "custom", false, "treat <agent-type> as the name of a saved agent definition")
}
