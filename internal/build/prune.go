package build

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emberhq/kilnd/internal/runtime"
)

// Removes directories and files matching the given patterns from the stage
// filesystem.
//
// Pruning is best-effort: patterns that match nothing, or entries that
// cannot be removed, are logged and skipped rather than failing the build.
// Only runtime failures (the find process itself cannot be started) abort.
// The search is rooted at the current workdir, or the filesystem root when
// no workdir has been set.
func executePrune(ctx context.Context, ctr *runtime.Container, patterns []string, state *stepState) error {
	root := state.workdir
	if root == "" {
		root = "/"
	}

	for _, pattern := range patterns {
		command := fmt.Sprintf("find %s -depth -name %s -exec rm -rf {} + 2>/dev/null",
			shellQuote(root), shellQuote(pattern))

		slog.Debug("prune", "root", root, "pattern", pattern)

		result, err := ctr.Exec(ctx, state.shell, command, state.environ(), "")
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			slog.Debug("prune pattern skipped", "pattern", pattern, "exit", result.ExitCode)
		}
	}

	return nil
}

// Quotes a string for safe interpolation into a shell command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
