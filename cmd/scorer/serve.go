package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/passport-scorer/internal/infra/providers"
	"github.com/totegamma/passport-scorer/internal/present/rest"
	"github.com/totegamma/passport-scorer/internal/service"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	conf, logger, cleanup, err := opts.bootstrap(ctx, "api")
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

	handler := rest.NewHandler(
		providers.NewRegistry(db, providers.NewQueue(conf.Worker, rdb)),
		service.NewSignalService(rdb, ""),
		prometheus.DefaultGatherer,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("passport-scorer"))
	}
	handler.RegisterRoutes(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("listening", "addr", conf.Server.Listen)
	if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
