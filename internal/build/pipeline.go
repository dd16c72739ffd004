package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/emberhq/kilnd/internal/manifest"
	"github.com/emberhq/kilnd/internal/paths"
	"github.com/emberhq/kilnd/internal/runtime"
)

// Holds shared state for building all stages of a recipe.
type pipeline struct {
	rt         *runtime.Runtime     // Container runtime for image and container operations.
	resource   string               // Resource name, used as a prefix for container IDs.
	output     string               // Output directory for the final build artifact.
	context    string               // Build context root, for resolving copy sources and base archives.
	platforms  []string             // Target platforms to build for.
	containers []*runtime.Container // All stage containers across all platforms, destroyed after the build completes.
}

// Creates a new [pipeline] from the given options.
func newPipeline(rt *runtime.Runtime, opts Options) *pipeline {
	return &pipeline{
		rt:        rt,
		resource:  opts.Resource,
		output:    opts.Output,
		context:   opts.Root,
		platforms: opts.Platforms,
	}
}

// Builds the recipe end-to-end against the container runtime.
//
// Each target platform is built independently. Stages are built in
// declaration order for each platform. The non-transient stage is exported
// as the final image to the platform's output directory. All stage
// containers are destroyed when the build completes.
func (p *pipeline) build(ctx context.Context, recipeStages []manifest.Stage) (*Result, error) {
	defer p.destroyContainers(ctx)

	archives := make([]string, 0, len(p.platforms))

	for _, platform := range p.platforms {
		if err := p.buildPlatform(ctx, recipeStages, platform); err != nil {
			return nil, err
		}
		archives = append(archives, p.archivePath(platform))
	}

	return &Result{Output: p.output, Archives: archives}, nil
}

// Builds all stages of the recipe for a single platform.
//
// Each platform maintains its own set of named stage containers for
// cross-stage copy lookups. The output is written to a platform-specific
// subdirectory when building for multiple platforms.
func (p *pipeline) buildPlatform(ctx context.Context, recipeStages []manifest.Stage, platform string) error {
	slog.Info("building platform", "platform", platform)

	output := p.platformOutput(platform)
	if err := os.MkdirAll(output, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	stages := make(map[string]*runtime.Container)

	for i, stage := range recipeStages {
		if err := p.buildStage(ctx, stage, i, platform, output, stages); err != nil {
			return fmt.Errorf("%w: platform %s, stage %s: %w", ErrBuild, platform, stage.Label(i), err)
		}
	}

	return nil
}

// Builds a single stage of a recipe for a specific platform.
//
// Resolves and verifies the stage's base archive, starts a build container,
// executes the stage's steps, then commits the result. The non-transient
// stage is exported to the output directory with the recipe's entrypoint,
// port declaration, and the stage's accumulated environment stamped onto
// the image config.
func (p *pipeline) buildStage(ctx context.Context, stage manifest.Stage, index int, platform, output string, stages map[string]*runtime.Container) error {
	label := stage.Label(index)
	slog.Info(fmt.Sprintf("building stage %s", label), "platform", platform)

	archive, err := p.resolveArchive(stage)
	if err != nil {
		return err
	}

	id := p.containerID(stage.Name, index, platform)
	ctr, err := p.rt.StartContainer(ctx, archive, id, platform)
	if err != nil {
		return err
	}

	p.containers = append(p.containers, ctr)
	if stage.Name != "" {
		stages[stage.Name] = ctr
	}

	state := newStepState()
	if err := executeSteps(ctx, ctr, stage.Steps, state, p.context, stages); err != nil {
		return err
	}

	if !stage.Transient {
		if err := ctr.Stop(ctx); err != nil {
			return err
		}

		if err := ctr.Export(ctx, output, exportConfig(stage, state)); err != nil {
			return err
		}
	}

	return nil
}

// Produces the image configuration for an exported stage.
//
// The entrypoint and port come from the recipe; the environment and working
// directory are whatever the stage's step state accumulated, so a PATH set
// during the build persists into the final image.
func exportConfig(stage manifest.Stage, state *stepState) runtime.ImageConfig {
	cfg := runtime.ImageConfig{
		Entrypoint: stage.Entrypoint,
		Env:        state.environ(),
		WorkingDir: state.workdir,
	}
	if stage.Expose != 0 {
		cfg.ExposedPorts = []string{fmt.Sprintf("%d/tcp", stage.Expose)}
	}
	return cfg
}

// Resolves a stage's base archive path and verifies its digest when pinned.
//
// Relative paths are resolved against the build context. A digest mismatch
// aborts the build before any container is started from the archive.
func (p *pipeline) resolveArchive(stage manifest.Stage) (string, error) {
	path := stage.From
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.context, path)
	}

	if stage.Digest != "" {
		if err := verifyArchiveDigest(path, stage.Digest); err != nil {
			return "", err
		}
	}

	return path, nil
}

// Checks that the archive at path matches the expected digest.
func verifyArchiveDigest(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer f.Close()

	actual, err := digest.FromReader(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	if actual != digest.Digest(expected) {
		return fmt.Errorf("%w: %s is %s, want %s", ErrBaseDigest, path, actual, expected)
	}

	return nil
}

// Destroys all stage containers.
func (p *pipeline) destroyContainers(ctx context.Context) {
	for _, ctr := range p.containers {
		ctr.Destroy(ctx)
	}
}

// Returns a unique container ID for a stage, scoped to this resource and platform.
func (p *pipeline) containerID(name string, index int, platform string) string {
	slug := platformSlug(platform)
	if name != "" {
		return fmt.Sprintf("%s-%s-stage-%s", p.resource, slug, name)
	}
	return fmt.Sprintf("%s-%s-stage-%d", p.resource, slug, index+1)
}

// Returns the output directory for a specific platform.
//
// When building for a single platform, the output directory is left as-is
// to preserve the existing {output}/image.tar convention. For multi-platform
// builds, each platform gets a subdirectory (e.g., {output}/linux-amd64).
func (p *pipeline) platformOutput(platform string) string {
	if len(p.platforms) == 1 {
		return p.output
	}
	return filepath.Join(p.output, platformSlug(platform))
}

// Returns the path of the exported image archive for a platform.
func (p *pipeline) archivePath(platform string) string {
	return filepath.Join(p.platformOutput(platform), runtime.ExportFilename)
}

// Converts a platform string to a filesystem-safe slug.
//
// Replaces slashes with dashes (e.g., "linux/amd64" becomes "linux-amd64").
func platformSlug(platform string) string {
	return strings.ReplaceAll(platform, "/", "-")
}
