package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hydrowatch/usgs-exporter/internal/domain"
)

// LoadGauges reads the gauge registry from a YAML file. A missing or
// unparsable file is a startup-fatal error for the caller; an empty list is
// valid and simply produces empty poll cycles.
func LoadGauges(path string) ([]domain.GaugeDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gauge registry: %w", err)
	}
	defer f.Close()

	var gauges []domain.GaugeDescriptor
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&gauges); err != nil {
		return nil, fmt.Errorf("parse gauge registry %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(gauges))
	for i, g := range gauges {
		if g.ID == "" {
			return nil, fmt.Errorf("gauge registry %s: entry %d has no id", path, i)
		}
		if _, dup := seen[g.ID]; dup {
			return nil, fmt.Errorf("gauge registry %s: duplicate gauge id %q", path, g.ID)
		}
		seen[g.ID] = struct{}{}
	}
	return gauges, nil
}
