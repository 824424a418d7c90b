package ingest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type JobType string

const (
	// JobMirror reconciles a destination against a remote directory index.
	JobMirror JobType = "mirror"

	// JobDataset fetches one API payload into a single destination file.
	JobDataset JobType = "dataset"
)

// Job is one ingestion unit in the manifest.
type Job struct {
	Name     string   `yaml:"name"`
	Type     JobType  `yaml:"type"`
	Source   string   `yaml:"source"`
	Dest     string   `yaml:"dest"`
	File     string   `yaml:"file,omitempty"`
	Excludes []string `yaml:"excludes,omitempty"`
	Workers  int      `yaml:"workers,omitempty"`
}

// Manifest is the declarative job list driven by the run command.
type Manifest struct {
	Contact string `yaml:"contact"`
	Jobs    []*Job `yaml:"jobs"`
}

// LoadManifest reads and validates a manifest file. Unknown fields are
// rejected rather than silently dropped.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read manifest %q: %w", path, err)
	}
	return ParseManifest(data)
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("ingest: parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	if len(m.Jobs) == 0 {
		return fmt.Errorf("ingest: manifest has no jobs")
	}

	seen := make(map[string]struct{}, len(m.Jobs))
	for i, job := range m.Jobs {
		if job.Name == "" {
			return fmt.Errorf("ingest: job %d has no name", i)
		}
		if _, dup := seen[job.Name]; dup {
			return fmt.Errorf("ingest: duplicate job name %q", job.Name)
		}
		seen[job.Name] = struct{}{}

		if job.Source == "" {
			return fmt.Errorf("ingest: job %q has no source", job.Name)
		}
		if job.Dest == "" {
			return fmt.Errorf("ingest: job %q has no dest", job.Name)
		}

		switch job.Type {
		case JobMirror:
			if job.File != "" {
				return fmt.Errorf("ingest: job %q: file is only valid for dataset jobs", job.Name)
			}
		case JobDataset:
			if job.File == "" {
				return fmt.Errorf("ingest: job %q: dataset jobs need a file name", job.Name)
			}
		default:
			return fmt.Errorf("ingest: job %q has unknown type %q", job.Name, job.Type)
		}
	}

	return nil
}
