package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RegistryEntry is one row of an on-disk job registry file: the trigger and
// grace window for a named job, without its handler. Handlers are wired in
// code; the registry file only overrides scheduling.
type RegistryEntry struct {
	Name                string `yaml:"name"`
	Trigger             string `yaml:"trigger"`
	MisfireGraceSeconds int    `yaml:"misfire_grace_seconds"`
}

// RegistryFile is the root document of a job registry YAML file.
type RegistryFile struct {
	Jobs []RegistryEntry `yaml:"jobs"`
}

// LoadRegistryFile reads a YAML job registry from path. A missing path is not
// an error: callers fall back to the code-defined default trigger table.
func LoadRegistryFile(path string) (*RegistryFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &RegistryFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduler: read registry file %q: %w", path, err)
	}
	var rf RegistryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("scheduler: parse registry file %q: %w", path, err)
	}
	return &rf, nil
}

// Overrides returns the registry's entries keyed by job name, for a caller to
// apply trigger/grace overrides on top of its default JobSpec table before
// registering.
func (rf *RegistryFile) Overrides() map[string]RegistryEntry {
	out := make(map[string]RegistryEntry, len(rf.Jobs))
	for _, e := range rf.Jobs {
		out[e.Name] = e
	}
	return out
}

// Apply overrides the job's Trigger/MisfireGraceSeconds if the registry
// file names it, leaving the JobSpec unchanged otherwise.
func (rf *RegistryFile) Apply(spec JobSpec) JobSpec {
	ov, ok := rf.Overrides()[spec.Name]
	if !ok {
		return spec
	}
	if ov.Trigger != "" {
		spec.Trigger = ov.Trigger
	}
	if ov.MisfireGraceSeconds > 0 {
		spec.MisfireGraceSeconds = ov.MisfireGraceSeconds
	}
	return spec
}
