// Package normalize locates image payloads inside heterogeneous provider
// responses and turns them into canonical data URLs.
package normalize

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

const DefaultMaxDepth = 32

// KeyTable is the versioned field-priority configuration used by the
// Extractor. Changes to the key list must bump Version.
type KeyTable struct {
	Version  string   `yaml:"version"`
	Keys     []string `yaml:"keys"`
	MaxDepth int      `yaml:"max_depth"`
}

// DefaultKeyTable returns the built-in priority table.
func DefaultKeyTable() KeyTable {
	return KeyTable{
		Version: "1",
		Keys: []string{
			"imageBase64",
			"image_base64",
			"processedBase64",
			"image",
			"output",
			"result",
			"body",
			"data",
			"response",
		},
		MaxDepth: DefaultMaxDepth,
	}
}

// LoadKeyTable reads a YAML key table. An empty path yields the default.
func LoadKeyTable(path string) (KeyTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultKeyTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeyTable{}, fmt.Errorf("normalize: read key table: %w", err)
	}
	return ParseKeyTable(raw)
}

// ParseKeyTable decodes and validates a YAML key table.
func ParseKeyTable(raw []byte) (KeyTable, error) {
	var table KeyTable
	if err := yaml.UnmarshalWithOptions(raw, &table, yaml.Strict()); err != nil {
		return KeyTable{}, fmt.Errorf("normalize: decode key table: %w", err)
	}
	if err := table.validate(); err != nil {
		return KeyTable{}, err
	}
	if table.MaxDepth == 0 {
		table.MaxDepth = DefaultMaxDepth
	}
	return table, nil
}

func (t KeyTable) validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("normalize: key table version is required")
	}
	if len(t.Keys) == 0 {
		return fmt.Errorf("normalize: key table %s has no keys", t.Version)
	}
	seen := make(map[string]struct{}, len(t.Keys))
	for _, k := range t.Keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("normalize: key table %s has an empty key", t.Version)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("normalize: key table %s lists %q twice", t.Version, k)
		}
		seen[k] = struct{}{}
	}
	if t.MaxDepth < 0 {
		return fmt.Errorf("normalize: key table %s has negative max_depth", t.Version)
	}
	return nil
}
