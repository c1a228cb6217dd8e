// Package registryio loads method registries from YAML documents. The
// engine itself performs no I/O to obtain its catalog; this package is the
// registry-loader collaborator consulted at client construction.
package registryio

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/antipasta/dispatch/pkg/dispatch"
)

// Static errors for err113 compliance.
var (
	ErrNoMethods = errors.New("registry document declares no methods")
)

// document is the on-disk registry shape.
type document struct {
	Methods []dispatch.MethodDefinition `yaml:"methods"`
}

// Parse decodes a registry document. Unknown fields are rejected so that a
// misspelled definition key fails loudly instead of silently dropping a
// parameter list.
func Parse(data []byte) ([]dispatch.MethodDefinition, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var doc document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding registry document: %w", err)
	}

	if len(doc.Methods) == 0 {
		return nil, ErrNoMethods
	}

	return doc.Methods, nil
}

// LoadFile reads and parses a registry document from disk.
func LoadFile(path string) ([]dispatch.MethodDefinition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied configuration
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	return Parse(data)
}

// LoadRegistry reads a registry document and builds the validated registry.
func LoadRegistry(path string) (*dispatch.Registry, error) {
	definitions, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	registry, err := dispatch.NewRegistry(definitions)
	if err != nil {
		return nil, fmt.Errorf("building registry: %w", err)
	}

	return registry, nil
}
