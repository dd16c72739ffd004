package cli

import (
	"context"
	"log/slog"

	"github.com/emberhq/kilnd/internal/config"
	"github.com/emberhq/kilnd/internal/server"
)

// Represents the 'kilnd start' command.
type StartCmd struct{}

// Executes the start command.
//
// Loads the daemon configuration, starts the server on a Unix domain socket,
// and blocks until the context is cancelled (e.g. via SIGINT or SIGTERM) or
// the server stops itself after a shutdown command.
func (c *StartCmd) Run(ctx context.Context) error {
	cfg, err := config.Load(RootCmd.Config)
	if err != nil {
		return err
	}
	if RootCmd.Socket != "" {
		cfg.Server.Socket = RootCmd.Socket
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("kilnd is running")

	// The daemon stops on a signal or on a shutdown command received over
	// the socket.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-srv.Done():
		slog.Info("daemon stopped")
	}

	return srv.Stop()
}
