package classifier

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Rules struct {
	ExcludeKeywords []string `yaml:"exclude_keywords" json:"exclude_keywords"`
	ExcludePattern  string   `yaml:"exclude_pattern" json:"exclude_pattern"`
	IncludePattern  string   `yaml:"include_pattern" json:"include_pattern"`
}

// LoadRules reads classifier rules from a YAML file, falling back to the
// built-in rule set when no path is given.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Rules{}, err
	}

	var rules Rules
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return Rules{}, err
	}

	if len(rules.ExcludeKeywords) == 0 && rules.ExcludePattern == "" && rules.IncludePattern == "" {
		return Rules{}, errors.New("no classifier rules configured")
	}

	return rules, nil
}

// DefaultRules carries the curated exclusion list for social, administrative
// and behavioral findings that should not count as clinical diagnoses.
func DefaultRules() Rules {
	return Rules{
		ExcludeKeywords: []string{
			"employment", "full-time", "part-time", "labor force", "occupation",
			"social", "social isolation", "limited social contact",
			"housing", "homeless", "education", "school",
			"medication review", "review due", "screening", "counseling",
			"referral", "administrative", "situation", "finding of",
		},
	}
}
