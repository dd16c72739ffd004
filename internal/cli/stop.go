package cli

import (
	"context"
	"log/slog"

	"github.com/emberhq/kilnd/internal/protocol"
)

// Represents the 'kilnd stop' command.
type StopCmd struct{}

// Executes the stop command by asking a running daemon to shut down.
func (c *StopCmd) Run(ctx context.Context) error {
	if _, err := call[struct{}](protocol.CmdShutdown, nil); err != nil {
		return err
	}

	slog.Info("daemon shutting down")
	return nil
}
