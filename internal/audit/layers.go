package audit

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

const (
	whiteoutPrefix = ".wh."
	whiteoutOpaque = ".wh..wh..opq"
)

// Replays the layers in order and returns the set of file paths present in
// the final filesystem. Paths are slash-separated and rooted without a
// leading slash. Whiteout entries remove the shadowed paths.
func layerFiles(layers []string) (map[string]bool, error) {
	files := make(map[string]bool)

	for _, layer := range layers {
		if err := applyLayer(files, layer); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func applyLayer(files map[string]bool, layer string) error {
	f, err := os.Open(layer)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOCI, err)
	}
	defer f.Close()

	r, err := layerReader(f)
	if err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedOCI, err)
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "/"))
		if name == "." {
			continue
		}

		base := path.Base(name)
		switch {
		case base == whiteoutOpaque:
			removePrefix(files, path.Dir(name))
		case strings.HasPrefix(base, whiteoutPrefix):
			target := path.Join(path.Dir(name), strings.TrimPrefix(base, whiteoutPrefix))
			delete(files, target)
			removePrefix(files, target)
		default:
			files[name] = hdr.Typeflag == tar.TypeDir
		}
	}
}

// Detects gzip compression by magic bytes so both tar and tar+gzip layer
// media types are handled.
func layerReader(f *os.File) (io.Reader, error) {
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOCI, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOCI, err)
	}

	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedOCI, err)
		}
		return gz, nil
	}
	return f, nil
}

// Drops every path under prefix from the set.
func removePrefix(files map[string]bool, prefix string) {
	for name := range files {
		if strings.HasPrefix(name, prefix+"/") {
			delete(files, name)
		}
	}
}
