package cli

import (
	"context"
	"fmt"

	"github.com/emberhq/kilnd/internal/protocol"
)

// Represents the 'kilnd status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	res, err := call[protocol.StatusResult](protocol.CmdStatus, nil)
	if err != nil {
		return err
	}

	fmt.Printf("version: %s\n", res.Version)
	fmt.Printf("pid:     %d\n", res.Pid)
	fmt.Printf("uptime:  %s\n", res.Uptime)
	fmt.Printf("builds:  %d\n", res.Builds)
	return nil
}
