package audit

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/emberhq/kilnd/internal/manifest"
)

const testRecipe = `
stages:
  - name: builder
    from: base-build.tar
    transient: true
    steps:
      - run: python -m venv /opt/venv
      - prune: ["tests", "__pycache__"]
  - name: runtime
    from: base-runtime.tar
    expose: 8501
    entrypoint: ["streamlit", "run", "app.py", "--server.address", "0.0.0.0", "--server.port", "8501"]
    steps:
      - env:
          PATH: /opt/venv/bin:/usr/local/bin:/usr/bin:/bin
      - copy: "builder:/opt/venv /opt/venv"
`

func loadTestRecipe(t *testing.T) *manifest.Recipe {
	t.Helper()

	recipe, err := manifest.Parse([]byte(testRecipe))
	if err != nil {
		t.Fatalf("parsing recipe: %v", err)
	}
	return recipe
}

// tarBytes builds an uncompressed tar holding the given paths. Paths ending
// in a slash become directories.
func tarBytes(t *testing.T, names []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range names {
		hdr := &tar.Header{Name: name, Mode: 0o644}
		if strings.HasSuffix(name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		} else {
			hdr.Typeflag = tar.TypeReg
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	return buf.Bytes()
}

// writeTestArchive assembles a minimal single-image OCI layout tar from the
// config and layer contents and writes it to a temp file.
func writeTestArchive(t *testing.T, config ocispec.Image, layers [][]byte) string {
	t.Helper()

	blobs := map[digest.Digest][]byte{}
	addBlob := func(data []byte) digest.Digest {
		dgst := digest.FromBytes(data)
		blobs[dgst] = data
		return dgst
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("marshaling config: %v", err)
	}

	man := ocispec.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageManifest,
		Config: ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageConfig,
			Digest:    addBlob(configJSON),
			Size:      int64(len(configJSON)),
		},
	}
	for _, layer := range layers {
		man.Layers = append(man.Layers, ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageLayer,
			Digest:    addBlob(layer),
			Size:      int64(len(layer)),
		})
	}

	manJSON, err := json.Marshal(man)
	if err != nil {
		t.Fatalf("marshaling manifest: %v", err)
	}

	index := ocispec.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageIndex,
		Manifests: []ocispec.Descriptor{{
			MediaType: ocispec.MediaTypeImageManifest,
			Digest:    addBlob(manJSON),
			Size:      int64(len(manJSON)),
		}},
	}
	indexJSON, err := json.Marshal(index)
	if err != nil {
		t.Fatalf("marshaling index: %v", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeFile := func(name string, data []byte) {
		hdr := &tar.Header{Name: name, Mode: 0o644, Typeflag: tar.TypeReg, Size: int64(len(data))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing %s header: %v", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	for dgst, data := range blobs {
		writeFile("blobs/"+dgst.Algorithm().String()+"/"+dgst.Encoded(), data)
	}
	writeFile("index.json", indexJSON)
	if err := tw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}

	path := filepath.Join(t.TempDir(), "image.tar")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

func cleanConfig() ocispec.Image {
	return ocispec.Image{
		Config: ocispec.ImageConfig{
			Env:        []string{"PATH=/opt/venv/bin:/usr/local/bin:/usr/bin:/bin"},
			Entrypoint: []string{"streamlit", "run", "app.py", "--server.address", "0.0.0.0", "--server.port", "8501"},
			ExposedPorts: map[string]struct{}{
				"8501/tcp": {},
			},
		},
	}
}

func TestVerifyClean(t *testing.T) {
	recipe := loadTestRecipe(t)
	layer := tarBytes(t, []string{
		"opt/venv/bin/",
		"opt/venv/bin/streamlit",
		"opt/venv/lib/python3.11/site-packages/app/core.py",
		"srv/app/app.py",
	})
	archive := writeTestArchive(t, cleanConfig(), [][]byte{layer})

	report, err := Verify(archive, recipe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("unexpected violations: %v", report.Violations)
	}
}

func TestVerifyBuildToolPresent(t *testing.T) {
	recipe := loadTestRecipe(t)
	layer := tarBytes(t, []string{
		"usr/bin/gcc",
		"usr/bin/git",
		"srv/app/app.py",
	})
	archive := writeTestArchive(t, cleanConfig(), [][]byte{layer})

	report, err := Verify(archive, recipe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Violations) != 2 {
		t.Fatalf("got %d violations, want 2: %v", len(report.Violations), report.Violations)
	}
	for _, v := range report.Violations {
		if !strings.Contains(v, "build tool present") {
			t.Errorf("unexpected violation: %q", v)
		}
	}
}

func TestVerifyPrunedPatternPresent(t *testing.T) {
	recipe := loadTestRecipe(t)
	layer := tarBytes(t, []string{
		"opt/venv/lib/python3.11/site-packages/numpy/tests/",
		"opt/venv/lib/python3.11/site-packages/app/__pycache__/",
	})
	archive := writeTestArchive(t, cleanConfig(), [][]byte{layer})

	report, err := Verify(archive, recipe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Violations) != 2 {
		t.Fatalf("got %d violations, want 2: %v", len(report.Violations), report.Violations)
	}
}

func TestVerifyWrongPathOrder(t *testing.T) {
	recipe := loadTestRecipe(t)
	config := cleanConfig()
	config.Config.Env = []string{"PATH=/usr/bin:/opt/venv/bin"}
	archive := writeTestArchive(t, config, [][]byte{tarBytes(t, []string{"srv/app/app.py"})})

	report, err := Verify(archive, recipe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Clean() {
		t.Fatal("expected a PATH violation")
	}
	if !strings.Contains(report.Violations[0], "PATH") {
		t.Errorf("violation = %q, want PATH mention", report.Violations[0])
	}
}

func TestVerifyMissingBindAll(t *testing.T) {
	recipe := loadTestRecipe(t)
	recipe.Exported().Entrypoint = []string{"streamlit", "run", "app.py"}
	config := cleanConfig()
	config.Config.Entrypoint = []string{"streamlit", "run", "app.py"}
	archive := writeTestArchive(t, config, [][]byte{tarBytes(t, []string{"srv/app/app.py"})})

	report, err := Verify(archive, recipe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var bind, port bool
	for _, v := range report.Violations {
		if strings.Contains(v, "0.0.0.0") {
			bind = true
		}
		if strings.Contains(v, "8501") && strings.Contains(v, "port") {
			port = true
		}
	}
	if !bind {
		t.Errorf("missing bind-all violation: %v", report.Violations)
	}
	if !port {
		t.Errorf("missing port violation: %v", report.Violations)
	}
}

func TestVerifyMissingExposedPort(t *testing.T) {
	recipe := loadTestRecipe(t)
	config := cleanConfig()
	config.Config.ExposedPorts = nil
	archive := writeTestArchive(t, config, [][]byte{tarBytes(t, []string{"srv/app/app.py"})})

	report, err := Verify(archive, recipe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Clean() {
		t.Fatal("expected an exposed port violation")
	}
	if !strings.Contains(report.Violations[0], "8501/tcp") {
		t.Errorf("violation = %q, want 8501/tcp mention", report.Violations[0])
	}
}

func TestVerifyNoExportedStage(t *testing.T) {
	recipe := &manifest.Recipe{Stages: []manifest.Stage{{From: "base.tar", Transient: true}}}

	_, err := Verify("missing.tar", recipe)
	if err != ErrNoExportStage {
		t.Fatalf("error = %v, want ErrNoExportStage", err)
	}
}

func TestLayerWhiteout(t *testing.T) {
	dir := t.TempDir()

	lower := tarBytes(t, []string{
		"usr/bin/gcc",
		"usr/bin/streamlit",
		"opt/venv/lib/tests/",
		"opt/venv/lib/tests/test_core.py",
	})
	upper := tarBytes(t, []string{
		"usr/bin/.wh.gcc",
		"opt/venv/lib/.wh.tests",
	})

	var layers []string
	for i, data := range [][]byte{lower, upper} {
		path := filepath.Join(dir, "layer"+string(rune('0'+i))+".tar")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("writing layer: %v", err)
		}
		layers = append(layers, path)
	}

	files, err := layerFiles(layers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := files["usr/bin/gcc"]; ok {
		t.Error("whiteout did not remove usr/bin/gcc")
	}
	if _, ok := files["opt/venv/lib/tests/test_core.py"]; ok {
		t.Error("whiteout did not remove files under opt/venv/lib/tests")
	}
	if _, ok := files["usr/bin/streamlit"]; !ok {
		t.Error("unrelated file lost during whiteout replay")
	}
}

func TestSanitizePath(t *testing.T) {
	if _, err := sanitizePath("/tmp/audit", "../escape"); err == nil {
		t.Fatal("expected error for escaping entry")
	}
	if _, err := sanitizePath("/tmp/audit", "blobs/sha256/abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
