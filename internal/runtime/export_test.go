package runtime

import (
	"slices"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestApplyImageConfig(t *testing.T) {
	config := ocispec.Image{}
	config.Config.Env = []string{"PATH=/usr/local/bin:/usr/bin:/bin", "LANG=C.UTF-8"}
	config.Config.Cmd = []string{"python3"}

	applyImageConfig(&config, ImageConfig{
		Entrypoint:   []string{"streamlit", "run", "app/main.py", "--server.port=8501", "--server.address=0.0.0.0"},
		Env:          []string{"PATH=/opt/venv/bin:/usr/local/bin:/usr/bin:/bin"},
		ExposedPorts: []string{"8501/tcp"},
		WorkingDir:   "/app",
	})

	if len(config.Config.Entrypoint) != 5 {
		t.Fatalf("entrypoint = %v, want 5 args", config.Config.Entrypoint)
	}
	if config.Config.Cmd != nil {
		t.Fatal("cmd should be cleared when entrypoint is set")
	}
	if config.Config.WorkingDir != "/app" {
		t.Fatalf("workdir = %q, want /app", config.Config.WorkingDir)
	}
	if _, ok := config.Config.ExposedPorts["8501/tcp"]; !ok {
		t.Fatalf("exposed ports = %v, want 8501/tcp", config.Config.ExposedPorts)
	}

	if !slices.Contains(config.Config.Env, "PATH=/opt/venv/bin:/usr/local/bin:/usr/bin:/bin") {
		t.Fatalf("env = %v, PATH override missing", config.Config.Env)
	}
	if !slices.Contains(config.Config.Env, "LANG=C.UTF-8") {
		t.Fatalf("env = %v, base LANG entry dropped", config.Config.Env)
	}
	if len(config.Config.Env) != 2 {
		t.Fatalf("env = %v, want 2 entries (PATH overridden, not appended)", config.Config.Env)
	}
}

func TestApplyImageConfigZeroValue(t *testing.T) {
	config := ocispec.Image{}
	config.Config.Env = []string{"PATH=/usr/bin"}
	config.Config.Cmd = []string{"sh"}

	applyImageConfig(&config, ImageConfig{})

	if config.Config.Cmd == nil {
		t.Fatal("cmd cleared by zero-valued config")
	}
	if len(config.Config.Env) != 1 || config.Config.Env[0] != "PATH=/usr/bin" {
		t.Fatalf("env = %v, want untouched base env", config.Config.Env)
	}
	if config.Config.ExposedPorts != nil {
		t.Fatal("exposed ports set by zero-valued config")
	}
}

func TestManifestGCLabels(t *testing.T) {
	m := ocispec.Manifest{
		Config: ocispec.Descriptor{
			Digest: digest.FromString("config"),
		},
		Layers: []ocispec.Descriptor{
			{Digest: digest.FromString("layer0")},
			{Digest: digest.FromString("layer1")},
		},
	}

	labels := manifestGCLabels(m)

	configLabel := labels["containerd.io/gc.ref.content.config"]
	if configLabel != m.Config.Digest.String() {
		t.Fatalf("config label = %q, want %q", configLabel, m.Config.Digest.String())
	}

	for i, layer := range m.Layers {
		key := "containerd.io/gc.ref.content.l." + string(rune('0'+i))
		got := labels[key]
		if got != layer.Digest.String() {
			t.Fatalf("labels[%q] = %q, want %q", key, got, layer.Digest.String())
		}
	}

	if len(labels) != 3 {
		t.Fatalf("len(labels) = %d, want 3", len(labels))
	}
}

func TestIndexGCLabels(t *testing.T) {
	idx := ocispec.Index{
		Manifests: []ocispec.Descriptor{
			{Digest: digest.FromString("m0")},
			{Digest: digest.FromString("m1")},
		},
	}

	labels := indexGCLabels(idx)
	if len(labels) != 2 {
		t.Fatalf("len(labels) = %d, want 2", len(labels))
	}
	if labels["containerd.io/gc.ref.content.m.0"] != idx.Manifests[0].Digest.String() {
		t.Fatal("m.0 label mismatch")
	}
	if labels["containerd.io/gc.ref.content.m.1"] != idx.Manifests[1].Digest.String() {
		t.Fatal("m.1 label mismatch")
	}
}
