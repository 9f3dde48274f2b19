package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/config"
	"github.com/hostncode/apphost-smoke/internal/server"
	"github.com/hostncode/apphost-smoke/internal/webfrontend"
)

const shutdownTimeout = 10 * time.Second

func NewServeFrontendCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-frontend",
		Short: "Serve the stand-in web frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateServerConfiguration(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serveFrontend(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.Server.HTTPPort, "http-port", cfg.Server.HTTPPort, "Port the frontend listens on")
	cmd.Flags().StringVar(&cfg.Server.ServerMode, "server-mode", cfg.Server.ServerMode, "Server mode: dev serves HTTP, prod serves HTTPS with a self-signed certificate")

	return cmd
}

func validateServerConfiguration(cfg *config.Configuration) error {
	if cfg.Server.ServerMode != server.DevServer && cfg.Server.ServerMode != server.ProductionServer {
		return fmt.Errorf("invalid server mode: %s", cfg.Server.ServerMode)
	}
	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http-port: %d", cfg.Server.HTTPPort)
	}
	return nil
}

func serveFrontend(ctx context.Context, cfg *config.Configuration) error {
	srv, err := server.NewServer(cfg, webfrontend.RegisterHandlers)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.S().Info("shutting down frontend server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.Stop(shutdownCtx)

	return <-errCh
}
