package tabular

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest summarizes one pipeline run next to its output tables.
type Manifest struct {
	RunID     string            `yaml:"run_id"`
	StartedAt time.Time         `yaml:"started_at"`
	Duration  string            `yaml:"duration"`
	Rounds    int               `yaml:"rounds"`
	Tolerance float64           `yaml:"tolerance,omitempty"`
	Outputs   ManifestOutputs   `yaml:"outputs"`
	Regions   []ManifestRegion  `yaml:"regions"`
	Failures  []ManifestFailure `yaml:"failures,omitempty"`
}

// ManifestOutputs lists the written tables.
type ManifestOutputs struct {
	Jobs     string `yaml:"jobs"`
	Tasks    string `yaml:"tasks"`
	JobRows  int    `yaml:"job_rows"`
	TaskRows int    `yaml:"task_rows"`
}

// ManifestRegion describes one computed region.
type ManifestRegion struct {
	Type       string `yaml:"type"`
	Name       string `yaml:"name"`
	Jobs       int    `yaml:"jobs"`
	Tasks      int    `yaml:"tasks"`
	NonZeros   int    `yaml:"nonzeros"`
	Rounds     int    `yaml:"rounds"`
	Degenerate bool   `yaml:"degenerate,omitempty"`
}

// ManifestFailure records a region that was skipped.
type ManifestFailure struct {
	Type  string `yaml:"type"`
	Name  string `yaml:"name"`
	Error string `yaml:"error"`
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	w, err := create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Close()
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}
