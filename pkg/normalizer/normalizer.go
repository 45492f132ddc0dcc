package normalizer

import (
	"time"

	"github.com/carelens-ai/analytics/pkg/common/models"
)

// Enrich derives Age and AgeGroup on each patient in place. Patients without
// a birth date keep both fields nil; ages outside every bucket keep AgeGroup
// nil.
func Enrich(patients []models.Patient, asOf time.Time, buckets []models.AgeBucket) {
	for i := range patients {
		age := AgeYears(patients[i].BirthDate, asOf)
		patients[i].Age = age
		patients[i].AgeGroup = nil
		if age == nil {
			continue
		}
		if bucket := BucketFor(buckets, *age); bucket != nil {
			label := bucket.Label
			patients[i].AgeGroup = &label
		}
	}
}
