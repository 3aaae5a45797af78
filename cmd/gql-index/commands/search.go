package commands

import (
	"context"

	"github.com/0x5457/gql-index/cmd/cmdsfx"
	"github.com/0x5457/gql-index/internal/constants"
	"github.com/spf13/cobra"
)

func NewSearchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search schema fields by natural language query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runApp(cmd.Context(), cfg, false,
				func(ctx context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunSearch(ctx, args[0], limit)
				})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultSearchLimit, "Maximum number of results (1-20)")

	return cmd
}
