package aggregate

import (
	"sort"

	"github.com/carelens-ai/analytics/pkg/common/models"
)

// Summary computes the scalar statistics block: unique patient count plus
// mean/median/min/max over the ages that could be derived. A population with
// no known ages reports zeroed age stats and keeps the patient count.
func Summary(patients []models.Patient) models.SummaryStats {
	ids := make(map[string]struct{}, len(patients))
	ages := make([]float64, 0, len(patients))
	for _, p := range patients {
		ids[p.ID] = struct{}{}
		if p.Age != nil {
			ages = append(ages, float64(*p.Age))
		}
	}

	stats := models.SummaryStats{PatientCount: len(ids)}
	if len(ages) == 0 {
		return stats
	}

	sort.Float64s(ages)
	sum := 0.0
	for _, a := range ages {
		sum += a
	}
	stats.MeanAge = sum / float64(len(ages))
	stats.MedianAge = median(ages)
	stats.MinAge = ages[0]
	stats.MaxAge = ages[len(ages)-1]
	return stats
}

// median expects a sorted slice; even-length input averages the middle pair.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
