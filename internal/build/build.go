package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/emberhq/kilnd/internal/manifest"
	"github.com/emberhq/kilnd/internal/paths"
	"github.com/emberhq/kilnd/internal/runtime"
)

// Interval between lock acquisition attempts.
const lockRetryDelay = 250 * time.Millisecond

// Controls recipe execution.
type Options struct {
	Recipe    *manifest.Recipe // Recipe to execute.
	Resource  string           // Resource name, used as a prefix for container IDs.
	Output    string           // Directory for the exported image.
	Root      string           // Build context root, for resolving copy sources and base archives.
	Platforms []string         // Target platforms (e.g., ["linux/amd64"]). Defaults to host.
	LockPath  string           // Build lock file. Empty disables locking.
}

// Returned after successful recipe execution.
type Result struct {
	Output   string   // Directory containing the exported image.
	Archives []string // Exported image archives, one per platform.
}

// Executes a recipe against the container runtime.
//
// Stages are built in declaration order. Each stage starts a container from
// its base archive, executes the stage's steps, and the non-transient stage
// is exported as the final image to the output directory. Builds holding a
// lock path are serialized: concurrent invocations block until the lock is
// released or their context is cancelled.
//
// Any failing step aborts the whole build. There is no retry; a failed
// build is rerun wholesale.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if len(opts.Platforms) == 0 {
		opts.Platforms = []string{runtime.DefaultPlatform()}
	}

	if opts.LockPath != "" {
		unlock, err := acquireLock(ctx, opts.LockPath)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	slog.Info("executing recipe",
		"resource", opts.Resource,
		"output", opts.Output,
		"stages", len(opts.Recipe.Stages),
		"platforms", opts.Platforms,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	return newPipeline(rt, opts).build(ctx, opts.Recipe.Stages)
}

// Takes the build lock, retrying until the context is cancelled.
//
// Stage containers are named deterministically per resource, so two builds
// of the same resource must never run concurrently.
func acquireLock(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	lock := flock.New(path)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLock, err)
	}
	if !locked {
		return nil, ErrLock
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("failed to release build lock", "path", path, "error", err)
		}
	}, nil
}
