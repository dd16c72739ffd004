package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Reads, parses, and validates a recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return Parse(data)
}

// Parses and validates recipe bytes.
//
// Unknown fields are rejected so typos in recipe files surface as parse
// errors rather than silently ignored steps.
func Parse(data []byte) (*Recipe, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var r Recipe
	if err := dec.Decode(&r); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty recipe", ErrLoad)
		}
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return &r, nil
}
