package manifest

import (
	"fmt"
	"strings"
)

// Checks the recipe for structural errors.
//
// A valid recipe has at least one stage, exactly one non-transient stage,
// a base archive on every stage, port and entrypoint declarations only on
// the exported stage, and cross-stage copies that reference earlier named
// stages. Violations abort before any container is started.
func (r *Recipe) Validate() error {
	if len(r.Stages) == 0 {
		return fmt.Errorf("%w: recipe has no stages", ErrInvalid)
	}

	exported := 0
	seen := make(map[string]bool)

	for i, stage := range r.Stages {
		label := stage.Label(i)

		if stage.From == "" {
			return fmt.Errorf("%w: stage %s has no base archive", ErrInvalid, label)
		}
		if stage.Digest != "" && !strings.HasPrefix(stage.Digest, "sha256:") {
			return fmt.Errorf("%w: stage %s digest must use the sha256: prefix", ErrInvalid, label)
		}

		if stage.Name != "" && seen[stage.Name] {
			return fmt.Errorf("%w: duplicate stage name %q", ErrInvalid, stage.Name)
		}

		if stage.Transient {
			if stage.Expose != 0 || len(stage.Entrypoint) > 0 {
				return fmt.Errorf("%w: transient stage %s declares expose or entrypoint", ErrInvalid, label)
			}
		} else {
			exported++
		}

		if stage.Expose < 0 || stage.Expose > 65535 {
			return fmt.Errorf("%w: stage %s expose %d out of range", ErrInvalid, label, stage.Expose)
		}

		if err := validateSteps(stage.Steps, label, seen); err != nil {
			return err
		}

		// Registered after the steps validate, so cross-stage copies look
		// strictly backwards and a stage cannot copy from itself.
		if stage.Name != "" {
			seen[stage.Name] = true
		}
	}

	if exported == 0 {
		return fmt.Errorf("%w: all stages are transient, nothing to export", ErrInvalid)
	}
	if exported > 1 {
		return fmt.Errorf("%w: %d exported stages, want exactly one", ErrInvalid, exported)
	}

	return nil
}

// Checks a step list for structural errors.
//
// The earlier map carries the names of stages declared before the current
// stage, so cross-stage copies can only look backwards.
func validateSteps(steps []Step, stage string, earlier map[string]bool) error {
	for i, step := range steps {
		ops := 0
		if step.Run != "" {
			ops++
		}
		if step.Copy != "" {
			ops++
		}
		if len(step.Prune) > 0 {
			ops++
		}
		if ops > 1 {
			return fmt.Errorf("%w: stage %s step %d combines multiple operations", ErrInvalid, stage, i+1)
		}

		if len(step.Steps) > 0 {
			if ops > 0 {
				return fmt.Errorf("%w: stage %s step %d is a group but also carries an operation", ErrInvalid, stage, i+1)
			}
			if err := validateSteps(step.Steps, stage, earlier); err != nil {
				return err
			}
			continue
		}

		if step.Copy != "" {
			if err := validateCopyRef(step.Copy, stage, i, earlier); err != nil {
				return err
			}
		}
	}
	return nil
}

// Checks that a cross-stage copy references a previously declared stage.
func validateCopyRef(copyStr, stage string, index int, earlier map[string]bool) error {
	src, _, _ := strings.Cut(copyStr, " ")
	name, _, ok := SplitStageRef(src)
	if !ok {
		return nil
	}
	if !earlier[name] {
		return fmt.Errorf("%w: stage %s step %d copies from unknown stage %q", ErrInvalid, stage, index+1, name)
	}
	return nil
}

// Splits a copy source of the form "stage:path".
//
// Returns false when the source is a plain host path. A colon after a path
// separator is not a stage prefix (e.g. "/foo:bar").
func SplitStageRef(src string) (stage, path string, ok bool) {
	i := strings.IndexByte(src, ':')
	if i < 1 {
		return "", "", false
	}
	if strings.ContainsRune(src[:i], '/') {
		return "", "", false
	}
	return src[:i], src[i+1:], true
}
