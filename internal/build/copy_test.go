package build

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"
)

func TestParseCopy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		workdir string
		src     string
		dest    string
		wantErr bool
	}{
		{
			name:  "absolute dest",
			input: "file.txt /opt/file.txt",
			src:   "file.txt",
			dest:  "/opt/file.txt",
		},
		{
			name:    "relative dest with workdir",
			input:   "file.txt out/",
			workdir: "/app",
			src:     "file.txt",
			dest:    "/app/out",
		},
		{
			name:    "relative dest without workdir",
			input:   "file.txt out/",
			wantErr: true,
		},
		{
			name:    "missing destination",
			input:   "file.txt",
			wantErr: true,
		},
		{
			name:    "too many tokens",
			input:   "a b c",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dest, err := parseCopy(tt.input, tt.workdir)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertParseCopy(t, src, dest, tt.src, tt.dest)
		})
	}
}

func assertParseCopy(t *testing.T, gotSrc, gotDest, wantSrc, wantDest string) {
	t.Helper()
	if gotSrc != wantSrc {
		t.Errorf("src = %q, want %q", gotSrc, wantSrc)
	}
	if gotDest != wantDest {
		t.Errorf("dest = %q, want %q", gotDest, wantDest)
	}
}

func TestRenameTarRoot(t *testing.T) {
	var src bytes.Buffer
	tw := tar.NewWriter(&src)

	dirs := []string{"venv/", "venv/bin/"}
	for _, name := range dirs {
		if err := tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
			t.Fatalf("writing dir header: %v", err)
		}
	}
	content := []byte("#!/opt/env2/bin/python")
	hdr := &tar.Header{Name: "venv/bin/python", Typeflag: tar.TypeReg, Mode: 0o755, Size: int64(len(content))}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("writing file header: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}

	var out bytes.Buffer
	if err := renameTarRoot(&src, &out, "venv", "env2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr := tar.NewReader(&out)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading renamed tar: %v", err)
		}
		names = append(names, hdr.Name)
		if hdr.Name == "env2/bin/python" {
			data, err := io.ReadAll(tr)
			if err != nil {
				t.Fatalf("reading entry: %v", err)
			}
			if !bytes.Equal(data, content) {
				t.Errorf("entry content = %q, want %q", data, content)
			}
		}
	}

	want := []string{"env2/", "env2/bin/", "env2/bin/python"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRenameRoot(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"venv", "env2"},
		{"venv/", "env2/"},
		{"venv/bin/python", "env2/bin/python"},
		{"./venv/bin", "env2/bin"},
		{"venvextra/file", "venvextra/file"},
		{"other/venv", "other/venv"},
	}

	for _, tt := range tests {
		if got := renameRoot(tt.name, "venv", "env2"); got != tt.want {
			t.Errorf("renameRoot(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
