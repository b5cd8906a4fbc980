// Package catalog supplies the read-only list of selectable job names.
package catalog

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// JobCatalog holds the job names a worker can pick from when clocking in.
// It is read-only to the session core; free-text labels remain legal, the
// catalog is a convenience, not a validation source.
type JobCatalog struct {
	jobs []string
}

// New creates a catalog from an in-memory list of job names.
func New(jobs []string) *JobCatalog {
	return &JobCatalog{jobs: jobs}
}

// catalogFile is the on-disk YAML layout.
type catalogFile struct {
	Jobs []string `yaml:"jobs"`
}

// Load reads the catalog from a YAML file. A missing file yields an empty
// catalog rather than an error; a malformed file does not.
func Load(path string) (*JobCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No job catalog file, starting empty")
			return &JobCatalog{}, nil
		}
		return nil, fmt.Errorf("failed to read job catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse job catalog: %w", err)
	}

	log.Info().Str("path", path).Int("jobs", len(file.Jobs)).Msg("Loaded job catalog")
	return &JobCatalog{jobs: file.Jobs}, nil
}

// Jobs returns a copy of the selectable job names.
func (c *JobCatalog) Jobs() []string {
	jobs := make([]string, len(c.jobs))
	copy(jobs, c.jobs)
	return jobs
}
