package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/totegamma/passport-scorer/internal/application"
	"github.com/totegamma/passport-scorer/internal/infra/providers"
	"github.com/totegamma/passport-scorer/internal/metrics"
	"github.com/totegamma/passport-scorer/internal/service"
)

func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume scoring tasks from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, rootOpts)
		},
	}
}

func runWorker(ctx context.Context, opts *RootOptions) error {
	conf, logger, cleanup, err := opts.bootstrap(ctx, "worker")
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		return err
	}
	rdb := providers.NewRedis(conf.Server)
	defer rdb.Close()

	pipeline := providers.NewPipeline(conf, db, providers.PipelineOptions{
		Reader:   providers.NewPassportReader(conf.Reader, providers.NewMemcache(conf.Server), logger),
		Events:   service.NewSignalService(rdb, ""),
		Recorder: metrics.New(prometheus.DefaultRegisterer),
		Logger:   logger,
	})

	worker := application.NewWorker(
		providers.NewQueue(conf.Worker, rdb),
		pipeline.Handlers(),
		conf.Worker.Concurrency,
		conf.Worker.PopTimeout,
		logger,
	)
	return worker.Run(ctx)
}
