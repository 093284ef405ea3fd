package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides is the YAML shape for a vocabulary overrides file. Either
// section may be omitted, in which case the defaults are kept.
type Overrides struct {
	Counties []string            `yaml:"counties"`
	Synonyms map[string][]string `yaml:"property_type_synonyms"`
}

// Load builds a Map from an overrides file layered over the defaults.
// An empty path returns the default Map unchanged.
func Load(path string) (*Map, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema overrides %s: %w", path, err)
	}

	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("failed to parse schema overrides %s: %w", path, err)
	}

	counties := ov.Counties
	if len(counties) == 0 {
		counties = georgiaCounties
	}
	synonyms := ov.Synonyms
	if len(synonyms) == 0 {
		synonyms = defaultSynonyms()
	}
	return New(counties, synonyms), nil
}
