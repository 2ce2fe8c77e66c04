// Package dictionary provides the injected, read-only token to
// feature-identifier lookup. The mapping is an external, versioned data
// asset; this package never constructs it, only loads it.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
)

// Dictionary maps detected source tokens to canonical feature identifiers.
type Dictionary struct {
	mappings map[string]string
}

type dictionaryFile struct {
	Mappings map[string]string `json:"mappings"`
}

// Empty returns a dictionary with no mappings; every lookup misses.
func Empty() *Dictionary {
	return &Dictionary{mappings: map[string]string{}}
}

// FromMap builds a dictionary from an in-memory mapping. Used in tests.
func FromMap(m map[string]string) *Dictionary {
	mappings := make(map[string]string, len(m))
	for k, v := range m {
		mappings[k] = v
	}
	return &Dictionary{mappings: mappings}
}

// Load reads a dictionary asset from disk.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}

	var f dictionaryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed dictionary: %w", err)
	}
	if f.Mappings == nil {
		return nil, fmt.Errorf("malformed dictionary: missing mappings")
	}
	return &Dictionary{mappings: f.Mappings}, nil
}

// Lookup returns the feature identifier for a token.
func (d *Dictionary) Lookup(token string) (string, bool) {
	id, ok := d.mappings[token]
	return id, ok
}

// Len returns the number of mappings.
func (d *Dictionary) Len() int {
	return len(d.mappings)
}
