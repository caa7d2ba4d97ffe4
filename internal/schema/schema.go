// Package schema defines the versioned feature schema consumed by the
// calibrated classifier.
//
// The schema is a startup artifact: an ordered list of feature names plus a
// version and calibration tag. Feature order is the positional contract with
// the classifier: vectors are always built in schema order. The schema is
// loaded once at startup and never mutated, so it is safe for unsynchronized
// concurrent reads.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// Schema is the ordered, versioned feature contract.
type Schema struct {
	Version     string   `json:"version"`
	Calibration string   `json:"calibration"`
	Features    []string `json:"features"`
}

// LoadFile reads and validates a feature schema artifact from disk.
// Any failure here is fatal at startup; the service must not serve
// traffic without a valid schema.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config, not user input
	if err != nil {
		return nil, fmt.Errorf("read feature schema: %w", err)
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse feature schema: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature schema: %w", err)
	}

	return &s, nil
}

// Validate checks the schema's structural invariants.
func (s *Schema) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("version is required")
	}
	if len(s.Features) == 0 {
		return fmt.Errorf("features list is empty")
	}

	seen := make(map[string]bool, len(s.Features))
	for i, name := range s.Features {
		if name == "" {
			return fmt.Errorf("feature %d has an empty name", i)
		}
		if seen[name] {
			return fmt.Errorf("duplicate feature name %q", name)
		}
		seen[name] = true
	}

	return nil
}

// NumFeatures returns the length of the positional feature contract.
func (s *Schema) NumFeatures() int {
	return len(s.Features)
}
