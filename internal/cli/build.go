package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/emberhq/kilnd/internal/protocol"
)

// Represents the 'kilnd build' command.
type BuildCmd struct {
	Recipe   string   `arg:"" help:"Path to the recipe file." type:"existingfile"`
	Output   string   `short:"o" default:"." help:"Directory for the exported image archive." placeholder:"DIR"`
	Root     string   `help:"Build context root. Defaults to the recipe's directory." placeholder:"DIR"`
	Resource string   `help:"Resource name. Defaults to the recipe file name." placeholder:"NAME"`
	Platform []string `short:"p" help:"Target platform, repeatable (e.g. linux/amd64)." placeholder:"OS/ARCH"`
	NoVerify bool     `help:"Skip auditing the exported image after the build."`
}

// Executes the build command.
//
// The daemon loads the recipe itself; only paths cross the socket. Paths are
// made absolute first since the daemon resolves them in its own working
// directory.
func (c *BuildCmd) Run(ctx context.Context) error {
	recipe, err := filepath.Abs(c.Recipe)
	if err != nil {
		return err
	}

	output, err := filepath.Abs(c.Output)
	if err != nil {
		return err
	}

	root := c.Root
	if root == "" {
		root = filepath.Dir(recipe)
	}
	if root, err = filepath.Abs(root); err != nil {
		return err
	}

	res, err := call[protocol.BuildResult](protocol.CmdBuild, &protocol.BuildRequest{
		RecipePath: recipe,
		Resource:   c.Resource,
		Output:     output,
		Root:       root,
		Platforms:  c.Platform,
		Verify:     !c.NoVerify,
	})
	if err != nil {
		return err
	}

	slog.Info("build complete", "output", res.Output, "digest", res.ImageDigest)

	if len(res.Violations) > 0 {
		for _, v := range res.Violations {
			slog.Error("violation", "detail", v)
		}
		return fmt.Errorf("%w: %d violation(s)", ErrAuditFailed, len(res.Violations))
	}

	return nil
}
