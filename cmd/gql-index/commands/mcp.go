package commands

import (
	"context"

	"github.com/0x5457/gql-index/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

// NewMCPServeCommand starts an MCP server exposing search_schema,
// ensure_index and run_query.
func NewMCPServeCommand() *cobra.Command {
	var (
		transport    string
		address      string
		instructions string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long: `Run MCP server. The index is warmed in the background on start;
a failed warm-up is logged and retried by the next search.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Transport = transport
			}
			if cmd.Flags().Changed("address") {
				cfg.Address = address
			}
			if cmd.Flags().Changed("instructions") {
				cfg.Instructions = instructions
			}

			return runApp(cmd.Context(), cfg, true,
				func(ctx context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunMCPServer(ctx, cfg.Transport, cfg.Address)
				})
		},
	}

	cmd.Flags().
		StringVarP(&transport, "transport", "t", cmdsfx.TransportStdio, "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address (http modes), e.g. :8080")
	cmd.Flags().StringVar(&instructions, "instructions", "", "instructions sent to clients on initialize")

	return cmd
}
