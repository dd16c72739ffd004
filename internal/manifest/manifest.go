package manifest

import (
	"fmt"
	"strings"
)

// An ordered sequence of build stages.
//
// Stages are executed in declaration order. Transient stages exist only to
// produce artifacts for later stages; exactly one stage must be non-transient,
// and that stage becomes the exported image.
type Recipe struct {
	Stages []Stage `yaml:"stages"`
}

// A single build stage.
//
// Every stage starts from a base image archive and executes its steps in
// order. The exported (non-transient) stage may additionally declare the
// network port the process binds to and the launch command registered on
// the image.
type Stage struct {
	Name       string   `yaml:"name,omitempty"`       // Optional name, referenced by cross-stage copies.
	From       string   `yaml:"from"`                 // Path to the pinned base image archive.
	Digest     string   `yaml:"digest,omitempty"`     // Optional sha256 digest the base archive must match.
	Transient  bool     `yaml:"transient,omitempty"`  // Whether the stage is builder-only and never exported.
	Steps      []Step   `yaml:"steps,omitempty"`      // Steps executed in order.
	Expose     int      `yaml:"expose,omitempty"`     // Port declared on the exported image.
	Entrypoint []string `yaml:"entrypoint,omitempty"` // Launch command registered on the exported image.
}

// A single build step.
//
// A step is either an operation (run, copy, or prune), a standalone modifier
// (shell, workdir, env), or a group of nested steps with group-level
// modifiers. Operations may carry modifiers that apply to that operation only.
type Step struct {
	Run     string            `yaml:"run,omitempty"`     // Shell command executed inside the stage container.
	Copy    string            `yaml:"copy,omitempty"`    // "src dest" host copy or "stage:src dest" cross-stage copy.
	Prune   []string          `yaml:"prune,omitempty"`   // Glob patterns removed best-effort from the stage filesystem.
	Shell   string            `yaml:"shell,omitempty"`   // Shell used for run steps.
	Workdir string            `yaml:"workdir,omitempty"` // Working directory for subsequent operations.
	Env     map[string]string `yaml:"env,omitempty"`     // Environment variables for subsequent operations.
	Steps   []Step            `yaml:"steps,omitempty"`   // Nested steps for groups.
}

// Returns the recipe's exported (non-transient) stage.
//
// Validate guarantees exactly one exists; on an unvalidated recipe the last
// non-transient stage wins.
func (r *Recipe) Exported() *Stage {
	var exported *Stage
	for i := range r.Stages {
		if !r.Stages[i].Transient {
			exported = &r.Stages[i]
		}
	}
	return exported
}

// Returns true when the step carries an operation (run, copy, or prune).
func (s *Step) IsOperation() bool {
	return s.Run != "" || s.Copy != "" || len(s.Prune) > 0
}

// Returns a label for the stage, preferring the name when available and
// falling back to the 1-based index.
func (s *Stage) Label(index int) string {
	if s.Name != "" {
		return fmt.Sprintf("%q", s.Name)
	}
	return fmt.Sprintf("%d", index+1)
}

// Returns the value of the PATH entry in the exported stage's accumulated
// environment, or the empty string when no step sets PATH.
//
// Modifier steps are scanned in order; later assignments win, matching the
// pipeline's step state semantics.
func (s *Stage) PathEnv() string {
	var path string
	var scan func(steps []Step)
	scan = func(steps []Step) {
		for _, step := range steps {
			if v, ok := step.Env["PATH"]; ok && !step.IsOperation() {
				path = v
			}
			if len(step.Steps) > 0 {
				scan(step.Steps)
			}
		}
	}
	scan(s.Steps)
	return path
}

// Returns the first directory of a colon-separated PATH value.
func FirstPathDir(path string) string {
	dir, _, _ := strings.Cut(path, ":")
	return dir
}
