package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/resume-rag/jobscraper/internal/domain"
)

// QuerySet is the content of a queries file: the queries to run and the
// options they inherit.
type QuerySet struct {
	Options *domain.QueryOptions `yaml:"options" json:"options,omitempty"`
	Queries []domain.Query       `yaml:"queries" json:"queries"`
}

// LoadQueries reads a YAML (or JSON) queries file.
func LoadQueries(path string) (*QuerySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var set QuerySet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(set.Queries) == 0 {
		return nil, fmt.Errorf("%s: no queries", path)
	}
	return &set, nil
}
