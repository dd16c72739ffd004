package audit

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/emberhq/kilnd/internal/paths"
)

// image holds the parts of an unpacked archive the checks need.
type image struct {
	config ocispec.Image
	layers []string // Paths to layer blobs, in application order.
}

// Unpacks an image archive into a temporary directory and resolves its
// config and layer blobs. The caller owns the returned cleanup func.
func openArchive(path string) (*image, func(), error) {
	dir, err := os.MkdirTemp("", "kilnd-audit-")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrAudit, err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	if err := unpackArchive(path, dir); err != nil {
		cleanup()
		return nil, nil, err
	}

	img, err := resolveImage(dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return img, cleanup, nil
}

// Extracts the OCI layout tar into dir. Only regular files and directories
// are materialized; the layout carries nothing else.
func unpackArchive(path, dir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAudit, err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedOCI, err)
		}

		target, err := sanitizePath(dir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, paths.DefaultDirMode); err != nil {
				return fmt.Errorf("%w: %w", ErrAudit, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), paths.DefaultDirMode); err != nil {
				return fmt.Errorf("%w: %w", ErrAudit, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, paths.DefaultFileMode)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrAudit, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("%w: %w", ErrAudit, err)
			}
			out.Close()
		}
	}
}

// Rejects entries that would escape the extraction directory.
func sanitizePath(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: entry %q escapes archive root", ErrMalformedOCI, name)
	}
	return target, nil
}

// Walks index -> manifest -> config for the single image in the layout.
func resolveImage(dir string) (*image, error) {
	var index ocispec.Index
	if err := readJSON(filepath.Join(dir, "index.json"), &index); err != nil {
		return nil, err
	}
	if len(index.Manifests) == 0 {
		return nil, fmt.Errorf("%w: empty index", ErrMalformedOCI)
	}

	desc := index.Manifests[0]
	if desc.MediaType == ocispec.MediaTypeImageIndex {
		var nested ocispec.Index
		if err := readJSON(blobPath(dir, desc.Digest), &nested); err != nil {
			return nil, err
		}
		if len(nested.Manifests) == 0 {
			return nil, fmt.Errorf("%w: empty nested index", ErrMalformedOCI)
		}
		desc = nested.Manifests[0]
	}

	var manifest ocispec.Manifest
	if err := readJSON(blobPath(dir, desc.Digest), &manifest); err != nil {
		return nil, err
	}

	img := &image{}
	if err := readJSON(blobPath(dir, manifest.Config.Digest), &img.config); err != nil {
		return nil, err
	}
	for _, layer := range manifest.Layers {
		img.layers = append(img.layers, blobPath(dir, layer.Digest))
	}
	return img, nil
}

func blobPath(dir string, dgst digest.Digest) string {
	return filepath.Join(dir, "blobs", dgst.Algorithm().String(), dgst.Encoded())
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOCI, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOCI, err)
	}
	return nil
}
