package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pteich/configstruct"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pteich/elastic-status-history/app"
	"github.com/pteich/elastic-status-history/flags"
)

var Version string

func main() {
	conf := flags.Defaults()
	if err := configstruct.Parse(&conf); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %s\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(conf.Env, conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %s\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("starting",
		zap.String("version", Version),
		zap.String("action", conf.Action),
		zap.String("backend", conf.Backend),
		zap.Int("elastic_version", conf.ElasticVersion),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, &conf, logger); err != nil {
		logger.Error("run failed", zap.String("action", conf.Action), zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}

// newLogger uses JSON output in prod and console output everywhere else.
func newLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "", "local", "dev":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(l)
	}

	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
