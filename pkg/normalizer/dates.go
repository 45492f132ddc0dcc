package normalizer

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate is a tolerant date parser: anything unparseable comes back nil,
// never an error. Malformed source fields degrade to missing values.
func ParseDate(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return &parsed
		}
	}
	return nil
}

// AgeYears computes completed years between birth and asOf, decrementing by
// one when the birthday has not yet been reached in the asOf year. A birth
// date after asOf yields a negative age, deliberately not clamped. Nil birth
// means no age.
func AgeYears(birth *time.Time, asOf time.Time) *int {
	if birth == nil {
		return nil
	}
	years := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() ||
		(asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		years--
	}
	return &years
}
