package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/totegamma/passport-scorer/internal/config"
	"github.com/totegamma/passport-scorer/internal/telemetry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "scorer",
		Short:         "Passport scoring service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "/etc/scorer/config.yaml", "path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewScoreCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCommunityCommand(opts))

	return cmd
}

func (o *RootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// bootstrap loads the configuration, installs the logger and starts tracing
// when enabled. The returned function releases tracing resources.
func (o *RootOptions) bootstrap(ctx context.Context, component string) (config.Config, *slog.Logger, func(), error) {
	logger := o.logger()

	conf, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	cleanup := func() {}
	if conf.Server.EnableTrace {
		shutdown, err := telemetry.SetupTracing(ctx, conf.Server.TraceEndpoint, component)
		if err != nil {
			return config.Config{}, nil, nil, err
		}
		cleanup = func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", "error", err)
			}
		}
	}

	return conf, logger.With("component", component), cleanup, nil
}
