package configfx

import (
	"context"
	"fmt"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents the parameters needed to create configuration
type Params struct {
	fx.In

	Config config.Config `optional:"true"`
}

// NewConfig validates the supplied configuration, falling back to defaults
// when none was supplied.
func NewConfig(params Params) (*config.Config, error) {
	cfg := params.Config
	if cfg.DataDir == "" && cfg.EmbedProvider == "" && cfg.StoreBackend == "" {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds the application logger and flushes it on stop.
func NewLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync() // stderr sync fails on some platforms
			return nil
		},
	})
	return logger, nil
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig, NewLogger),
)
