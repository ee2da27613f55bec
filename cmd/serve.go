package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aetherchat/aether/internal/api"
	"github.com/aetherchat/aether/internal/app"
	"github.com/aetherchat/aether/internal/config"
	"github.com/aetherchat/aether/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(*cobra.Command, []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting aether", "version", Version, "model", cfg.ModelName)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	srv, err := api.NewServer(api.ServerConfig{
		Logger:    logger.With("component", "api"),
		Generator: a.Gateway,
		Threads:   a.Store,
		Pool:      a.Pool,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(gctx, cfg.ServerAddr)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("aether stopped")
	return nil
}
