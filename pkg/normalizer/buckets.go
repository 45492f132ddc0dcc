package normalizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carelens-ai/analytics/pkg/common/models"
	"gopkg.in/yaml.v3"
)

type BucketConfig struct {
	Buckets []models.AgeBucket `yaml:"buckets" json:"buckets"`
}

// LoadBuckets reads an ordered bucket set from a YAML file, falling back to
// the built-in set when no path is given.
func LoadBuckets(path string) ([]models.AgeBucket, error) {
	if path == "" {
		return DefaultBuckets(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg BucketConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Buckets) == 0 {
		return nil, errors.New("no age buckets configured")
	}
	for _, b := range cfg.Buckets {
		if b.Max <= b.Min {
			return nil, fmt.Errorf("age bucket %q has empty interval [%d,%d)", b.Label, b.Min, b.Max)
		}
	}
	return cfg.Buckets, nil
}

func DefaultBuckets() []models.AgeBucket {
	return []models.AgeBucket{
		{Label: "0-17", Min: 0, Max: 18},
		{Label: "18-39", Min: 18, Max: 40},
		{Label: "40-64", Min: 40, Max: 65},
		{Label: "65+", Min: 65, Max: 120},
	}
}

// BucketFor returns the first bucket containing age, or nil when the age
// falls outside every interval.
func BucketFor(buckets []models.AgeBucket, age int) *models.AgeBucket {
	for i := range buckets {
		if buckets[i].Contains(age) {
			return &buckets[i]
		}
	}
	return nil
}
