package manifest

import (
	"errors"
	"testing"
)

const sampleRecipe = `
stages:
  - name: builder
    from: bases/python-3.11-slim.tar
    transient: true
    steps:
      - run: python -m venv /opt/venv
      - env: {PATH: /opt/venv/bin:/usr/local/bin:/usr/bin:/bin}
      - copy: requirements.txt /opt/requirements.txt
      - run: pip install --no-cache-dir -r /opt/requirements.txt
      - prune: ["__pycache__", "tests"]
  - from: bases/python-3.11-slim.tar
    expose: 8501
    entrypoint: [streamlit, run, app/main.py, --server.port=8501, --server.address=0.0.0.0]
    steps:
      - run: apt-get update && apt-get install -y --no-install-recommends ffmpeg libsndfile1
      - copy: builder:/opt/venv /opt/venv
      - copy: app /app/app
      - env: {PATH: /opt/venv/bin:/usr/local/bin:/usr/bin:/bin}
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sampleRecipe))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(r.Stages) != 2 {
		t.Fatalf("len(stages) = %d, want 2", len(r.Stages))
	}
	if !r.Stages[0].Transient {
		t.Fatal("builder stage should be transient")
	}

	exported := r.Exported()
	if exported == nil {
		t.Fatal("no exported stage")
	}
	if exported.Expose != 8501 {
		t.Fatalf("expose = %d, want 8501", exported.Expose)
	}
	if len(exported.Entrypoint) != 5 {
		t.Fatalf("len(entrypoint) = %d, want 5", len(exported.Entrypoint))
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("stages:\n  - from: base.tar\n    bogus: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("error = %v, want ErrLoad", err)
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil)
	if err == nil {
		t.Fatal("expected error for empty recipe")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		recipe Recipe
	}{
		{
			name:   "no stages",
			recipe: Recipe{},
		},
		{
			name: "missing base archive",
			recipe: Recipe{Stages: []Stage{
				{Name: "build"},
			}},
		},
		{
			name: "all stages transient",
			recipe: Recipe{Stages: []Stage{
				{Name: "build", From: "base.tar", Transient: true},
			}},
		},
		{
			name: "multiple exported stages",
			recipe: Recipe{Stages: []Stage{
				{Name: "a", From: "base.tar"},
				{Name: "b", From: "base.tar"},
			}},
		},
		{
			name: "duplicate stage names",
			recipe: Recipe{Stages: []Stage{
				{Name: "build", From: "base.tar", Transient: true},
				{Name: "build", From: "base.tar"},
			}},
		},
		{
			name: "transient stage with entrypoint",
			recipe: Recipe{Stages: []Stage{
				{Name: "build", From: "base.tar", Transient: true, Entrypoint: []string{"sh"}},
				{From: "base.tar"},
			}},
		},
		{
			name: "expose out of range",
			recipe: Recipe{Stages: []Stage{
				{From: "base.tar", Expose: 70000},
			}},
		},
		{
			name: "digest without sha256 prefix",
			recipe: Recipe{Stages: []Stage{
				{From: "base.tar", Digest: "abc123"},
			}},
		},
		{
			name: "copy from unknown stage",
			recipe: Recipe{Stages: []Stage{
				{From: "base.tar", Steps: []Step{
					{Copy: "builder:/opt/venv /opt/venv"},
				}},
			}},
		},
		{
			name: "copy from own stage",
			recipe: Recipe{Stages: []Stage{
				{Name: "runtime", From: "base.tar", Steps: []Step{
					{Copy: "runtime:/opt/venv /opt/env"},
				}},
			}},
		},
		{
			name: "copy from later stage",
			recipe: Recipe{Stages: []Stage{
				{From: "base.tar", Steps: []Step{
					{Copy: "later:/opt/venv /opt/venv"},
				}},
				{Name: "later", From: "base.tar", Transient: true},
			}},
		},
		{
			name: "step with multiple operations",
			recipe: Recipe{Stages: []Stage{
				{From: "base.tar", Steps: []Step{
					{Run: "true", Copy: "a b"},
				}},
			}},
		},
		{
			name: "group carrying an operation",
			recipe: Recipe{Stages: []Stage{
				{From: "base.tar", Steps: []Step{
					{Run: "true", Steps: []Step{{Run: "false"}}},
				}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.recipe.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	r := Recipe{Stages: []Stage{
		{Name: "builder", From: "base.tar", Transient: true, Steps: []Step{
			{Run: "python -m venv /opt/venv"},
			{Prune: []string{"__pycache__"}},
		}},
		{From: "base.tar", Expose: 8501, Steps: []Step{
			{Copy: "builder:/opt/venv /opt/venv"},
			{Copy: "/abs/path:with:colons /dest"},
		}},
	}}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSplitStageRef(t *testing.T) {
	tests := []struct {
		name  string
		input string
		stage string
		path  string
		ok    bool
	}{
		{
			name:  "valid stage prefix",
			input: "builder:/opt/venv",
			stage: "builder",
			path:  "/opt/venv",
			ok:    true,
		},
		{
			name:  "no colon",
			input: "/usr/local/bin",
		},
		{
			name:  "colon at start",
			input: ":/some/path",
		},
		{
			name:  "colon after slash",
			input: "/foo:bar",
		},
		{
			name:  "slash in prefix",
			input: "some/stage:path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, path, ok := SplitStageRef(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if stage != tt.stage {
				t.Errorf("stage = %q, want %q", stage, tt.stage)
			}
			if path != tt.path {
				t.Errorf("path = %q, want %q", path, tt.path)
			}
		})
	}
}

func TestPathEnv(t *testing.T) {
	s := Stage{Steps: []Step{
		{Env: map[string]string{"PATH": "/first/bin:/usr/bin"}},
		{Steps: []Step{
			{Env: map[string]string{"PATH": "/opt/venv/bin:/usr/bin"}},
		}},
		{Run: "true", Env: map[string]string{"PATH": "/scoped/only"}},
	}}

	// Operation-scoped env does not persist; the group assignment wins.
	if got := s.PathEnv(); got != "/opt/venv/bin:/usr/bin" {
		t.Fatalf("PathEnv = %q, want /opt/venv/bin:/usr/bin", got)
	}

	if got := (&Stage{}).PathEnv(); got != "" {
		t.Fatalf("PathEnv on empty stage = %q, want empty", got)
	}
}

func TestFirstPathDir(t *testing.T) {
	if got := FirstPathDir("/opt/venv/bin:/usr/bin:/bin"); got != "/opt/venv/bin" {
		t.Fatalf("FirstPathDir = %q, want /opt/venv/bin", got)
	}
	if got := FirstPathDir("/only"); got != "/only" {
		t.Fatalf("FirstPathDir = %q, want /only", got)
	}
}
