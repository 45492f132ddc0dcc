package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/carelens-ai/analytics/pkg/common/models"
)

// Classifier decides whether a free-text diagnosis description represents an
// actual medical condition. All patterns are compiled once at construction;
// a bad pattern is a configuration error, never a per-record one.
type Classifier struct {
	keywords *regexp.Regexp
	exclude  *regexp.Regexp
	include  *regexp.Regexp
}

func New(rules Rules) (*Classifier, error) {
	c := &Classifier{}

	kw, err := compileKeywords(rules.ExcludeKeywords)
	if err != nil {
		return nil, fmt.Errorf("compiling exclude keywords: %w", err)
	}
	c.keywords = kw

	if rules.ExcludePattern != "" {
		re, err := regexp.Compile("(?i)" + rules.ExcludePattern)
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern: %w", err)
		}
		c.exclude = re
	}

	if rules.IncludePattern != "" {
		re, err := regexp.Compile("(?i)" + rules.IncludePattern)
		if err != nil {
			return nil, fmt.Errorf("compiling include pattern: %w", err)
		}
		c.include = re
	}

	return c, nil
}

// compileKeywords folds the keyword list into a single case-insensitive
// alternation, escaping each keyword so regex metacharacters in a keyword
// match literally. An empty list yields a nil matcher.
func compileKeywords(keywords []string) (*regexp.Regexp, error) {
	escaped := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		escaped = append(escaped, regexp.QuoteMeta(kw))
	}
	if len(escaped) == 0 {
		return nil, nil
	}
	return regexp.Compile("(?i)" + strings.Join(escaped, "|"))
}

// IsClinical evaluates a description. Order matters: blank descriptions are
// never clinical, the include pattern gates first, then the keyword set,
// then the exclude pattern. Matching is substring search throughout.
func (c *Classifier) IsClinical(desc string) bool {
	d := strings.TrimSpace(desc)
	if d == "" {
		return false
	}

	if c.include != nil && !c.include.MatchString(d) {
		return false
	}

	if c.keywords != nil && c.keywords.MatchString(d) {
		return false
	}
	if c.exclude != nil && c.exclude.MatchString(d) {
		return false
	}

	return true
}

// Apply sets the IsClinical flag on each condition in place.
func (c *Classifier) Apply(conditions []models.Condition) {
	for i := range conditions {
		conditions[i].IsClinical = c.IsClinical(conditions[i].Description)
	}
}

// Clinical returns the subset of conditions flagged clinical, preserving
// input order.
func Clinical(conditions []models.Condition) []models.Condition {
	out := make([]models.Condition, 0, len(conditions))
	for _, cond := range conditions {
		if cond.IsClinical {
			out = append(out, cond)
		}
	}
	return out
}
