package commands

import (
	"context"

	"github.com/0x5457/gql-index/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewIndexCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the schema index, or confirm it is current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runApp(cmd.Context(), cfg, false,
				func(ctx context.Context, runner *cmdsfx.CommandRunner) error {
					return runner.RunIndex(ctx, force)
				})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild even if the index is current")

	return cmd
}
