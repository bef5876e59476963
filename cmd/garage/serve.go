package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"garage-skill/internal/infra/httpserver"
	"garage-skill/internal/infra/natsbus"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer skill requests over HTTP and NATS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Log)

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	var registry *prometheus.Registry
	if a.metrics != nil {
		registry = a.metrics.Registry
	}

	server := httpserver.New(httpserver.Options{
		Addr:           a.cfg.Server.HTTPAddr,
		AuthToken:      a.cfg.Server.AuthToken,
		RateLimit:      a.cfg.Server.RateLimit,
		RequestTimeout: a.requestTimeout,
		Registry:       registry,
	}, a.skill, a.logger)

	if a.cfg.Server.AuthToken == "" {
		a.logger.Warn("no auth token configured, /alexa is open to anyone who can reach it")
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting HTTP server: %w", err)
	}

	var bus *natsbus.Transport
	if a.cfg.NATS.Enabled {
		var err error
		bus, err = natsbus.NewTransport(natsbus.Options{
			URL:            a.cfg.NATS.URL,
			Subject:        a.cfg.NATS.Subject,
			RequestTimeout: a.requestTimeout,
		}, a.skill, a.logger)
		if err != nil {
			return err
		}
		if err := bus.Start(); err != nil {
			bus.Close()
			return err
		}
	}

	a.logger.Info("garage skill running",
		"backend", a.cfg.Garage.Backend,
		"only_close", a.cfg.Garage.OnlyClose,
		"nats", a.cfg.NATS.Enabled,
		"metrics", a.cfg.Metrics.Enabled,
	)

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if bus != nil {
		if err := bus.Close(); err != nil {
			a.logger.Warn("closing NATS transport", "error", err)
		}
	}
	return server.Stop(shutdownCtx)
}
