package evalcmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/lehigh-university-libraries/linker/internal/config"
	"github.com/lehigh-university-libraries/linker/internal/logger"
)

// setup loads the configuration and attaches a logger built from its
// logging block to ctx. verbose forces debug level.
func setup(ctx context.Context, configPath string, verbose bool) (context.Context, config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return ctx, config.Config{}, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.NewLogger(cfg.Logging.Env, level)
	if err != nil {
		return ctx, config.Config{}, err
	}
	log = log.With(zap.String("config", configPath))
	return logger.ContextWithLogger(ctx, log), cfg, nil
}

func syncLogger(ctx context.Context) {
	_ = logger.FromContext(ctx).Sync()
}
