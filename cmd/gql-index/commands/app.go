package commands

import (
	"context"
	"fmt"

	"github.com/0x5457/gql-index/cmd/cmdsfx"
	"github.com/0x5457/gql-index/internal/app/appfx"
	"github.com/0x5457/gql-index/internal/config"
	"go.uber.org/fx"
)

// runApp starts the application for cfg, hands the command runner to run and
// stops the application afterwards. withServer adds the MCP warm-up.
func runApp(
	ctx context.Context,
	cfg config.Config,
	withServer bool,
	run func(context.Context, *cmdsfx.CommandRunner) error,
) error {
	var runner *cmdsfx.CommandRunner
	newApp := appfx.NewApp
	if withServer {
		newApp = appfx.NewServerApp
	}
	app := newApp(cfg, fx.Populate(&runner))

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	runErr := run(ctx, runner)

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return runErr
}
