package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SegmentsFile is the on-disk layout of a research segments file.
type SegmentsFile struct {
	Segments []SegmentConfig `yaml:"segments"`
	KPIs     []string        `yaml:"kpis"`
}

// LoadSegmentsFile reads segment definitions and the KPI schema from a YAML file.
func LoadSegmentsFile(path string) (*SegmentsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read segments file %s", path)
	}

	// The YAML has a top-level "research" key
	var wrapper struct {
		Research SegmentsFile `yaml:"research"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse segments file")
	}

	sf := &wrapper.Research
	for i := range sf.Segments {
		if sf.Segments[i].TargetCount == 0 {
			sf.Segments[i].TargetCount = 10
		}
	}
	return sf, nil
}
