// Package config loads YAML conversion profiles. A profile carries the
// recurring knobs of a conversion so command lines stay short; explicit
// flags always win over profile values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is one named conversion setup. Pointer fields distinguish "unset"
// from an explicit false or zero.
type Profile struct {
	Separator         string   `yaml:"separator,omitempty"`
	Variant           string   `yaml:"variant,omitempty"`
	Attributes        *bool    `yaml:"attributes,omitempty"`
	Namespaces        *bool    `yaml:"namespaces,omitempty"`
	Unleashed         *bool    `yaml:"unleashed,omitempty"`
	SingleHeader      *bool    `yaml:"single-header,omitempty"`
	NoHeader          *bool    `yaml:"no-header,omitempty"`
	Cutoff            *int     `yaml:"cutoff,omitempty"`
	CatalystThreshold *int     `yaml:"catalyst-threshold,omitempty"`
	Select            []string `yaml:"select,omitempty"`
	Discard           []string `yaml:"discard,omitempty"`
	Output            string   `yaml:"output,omitempty"`
}

// Load reads and validates one profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &p, nil
}
