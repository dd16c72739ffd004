package audit

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/emberhq/kilnd/internal/manifest"
)

// Build tooling that must never survive into an exported image. Matched by
// base name under any bin or sbin directory.
var forbiddenTools = map[string]bool{
	"gcc":  true,
	"g++":  true,
	"cc":   true,
	"c++":  true,
	"make": true,
	"git":  true,
	"ld":   true,
}

// Checks the image config against the exported stage's declarations.
func checkConfig(config *ocispec.Image, stage *manifest.Stage) []string {
	var violations []string

	if wantPath := stage.PathEnv(); wantPath != "" {
		violations = append(violations, checkPath(config.Config.Env, wantPath)...)
	}

	if len(stage.Entrypoint) > 0 {
		violations = append(violations, checkEntrypoint(config.Config.Entrypoint, stage)...)
	}

	if stage.Expose != 0 {
		port := fmt.Sprintf("%d/tcp", stage.Expose)
		if _, ok := config.Config.ExposedPorts[port]; !ok {
			violations = append(violations, fmt.Sprintf("image does not expose %s", port))
		}
	}

	return violations
}

// Verifies the image PATH starts with the recipe's leading PATH directory.
func checkPath(env []string, wantPath string) []string {
	want := manifest.FirstPathDir(wantPath)

	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k != "PATH" {
			continue
		}
		if got := manifest.FirstPathDir(v); got != want {
			return []string{fmt.Sprintf("PATH starts with %q, want %q", got, want)}
		}
		return nil
	}
	return []string{"image config sets no PATH"}
}

// Verifies the registered launch command matches the recipe and binds all
// interfaces on the declared port.
func checkEntrypoint(got []string, stage *manifest.Stage) []string {
	var violations []string

	if len(got) != len(stage.Entrypoint) {
		return []string{fmt.Sprintf("entrypoint is %v, want %v", got, stage.Entrypoint)}
	}
	for i := range got {
		if got[i] != stage.Entrypoint[i] {
			return []string{fmt.Sprintf("entrypoint is %v, want %v", got, stage.Entrypoint)}
		}
	}

	if !argsContain(got, "0.0.0.0") {
		violations = append(violations, "entrypoint does not bind 0.0.0.0")
	}
	if stage.Expose != 0 && !argsContain(got, strconv.Itoa(stage.Expose)) {
		violations = append(violations, fmt.Sprintf("entrypoint does not reference port %d", stage.Expose))
	}
	return violations
}

func argsContain(args []string, want string) bool {
	for _, arg := range args {
		if strings.Contains(arg, want) {
			return true
		}
	}
	return false
}

// Scans the final filesystem for build tooling and for paths matching the
// recipe's prune patterns.
func checkFiles(files map[string]bool, patterns []string) []string {
	var violations []string

	for name := range files {
		base := path.Base(name)
		dir := path.Base(path.Dir(name))

		if (dir == "bin" || dir == "sbin") && forbiddenTools[base] {
			violations = append(violations, fmt.Sprintf("build tool present: /%s", name))
			continue
		}

		for _, pattern := range patterns {
			if ok, err := path.Match(pattern, base); err == nil && ok {
				violations = append(violations, fmt.Sprintf("pruned pattern %q present: /%s", pattern, name))
				break
			}
		}
	}
	return violations
}

// Collects every prune pattern declared anywhere in the recipe.
func prunePatterns(recipe *manifest.Recipe) []string {
	var patterns []string
	var scan func(steps []manifest.Step)
	scan = func(steps []manifest.Step) {
		for _, step := range steps {
			patterns = append(patterns, step.Prune...)
			if len(step.Steps) > 0 {
				scan(step.Steps)
			}
		}
	}
	for _, stage := range recipe.Stages {
		scan(stage.Steps)
	}
	return patterns
}
