package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/emberhq/kilnd/internal/protocol"
)

// Represents the 'kilnd verify' command.
type VerifyCmd struct {
	Archive string `arg:"" help:"Path to the exported image archive." type:"existingfile"`
	Recipe  string `arg:"" help:"Path to the recipe the archive was built from." type:"existingfile"`
}

// Executes the verify command.
func (c *VerifyCmd) Run(ctx context.Context) error {
	archive, err := filepath.Abs(c.Archive)
	if err != nil {
		return err
	}

	recipe, err := filepath.Abs(c.Recipe)
	if err != nil {
		return err
	}

	res, err := call[protocol.VerifyResult](protocol.CmdVerify, &protocol.VerifyRequest{
		Archive:    archive,
		RecipePath: recipe,
	})
	if err != nil {
		return err
	}

	if len(res.Violations) > 0 {
		for _, v := range res.Violations {
			slog.Error("violation", "detail", v)
		}
		return fmt.Errorf("%w: %d violation(s)", ErrAuditFailed, len(res.Violations))
	}

	slog.Info("image verified", "archive", archive)
	return nil
}
