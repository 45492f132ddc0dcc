package aggregate

import (
	"math"
	"testing"

	"github.com/carelens-ai/analytics/pkg/common/models"
	"github.com/carelens-ai/analytics/pkg/normalizer"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func pctSum(table models.AggregateTable) float64 {
	sum := 0.0
	for _, row := range table.Rows {
		sum += row["PCT"].(float64)
	}
	return sum
}

func TestBucketDistributionOrderingAndUnknown(t *testing.T) {
	patients := []models.Patient{
		{ID: "P1", Age: intPtr(25), AgeGroup: strPtr("18-39")},
		{ID: "P2", Age: intPtr(30), AgeGroup: strPtr("18-39")},
		{ID: "P3", Age: intPtr(70), AgeGroup: strPtr("65+")},
		{ID: "P4"},
	}

	table := BucketDistribution(patients, normalizer.DefaultBuckets())

	labels := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		labels = append(labels, row["AGE_GROUP"].(string))
	}
	want := []string{"18-39", "65+", UnknownBucketLabel, "0-17", "40-64"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(labels))
	}
	for i, label := range want {
		if labels[i] != label {
			t.Fatalf("row %d: expected %q, got %q (all: %v)", i, label, labels[i], labels)
		}
	}

	if got := table.Rows[0]["PCT"].(float64); got != 50.0 {
		t.Fatalf("expected 50.0 pct for top bucket, got %v", got)
	}
	if sum := pctSum(table); math.Abs(sum-100.0) > 0.1 {
		t.Fatalf("expected PCT sum ~100, got %v", sum)
	}
}

func TestCategoricalDistributionUniquePatients(t *testing.T) {
	patients := []models.Patient{
		{ID: "P1", Gender: "M"},
		{ID: "P2", Gender: "F"},
	}

	table := CategoricalDistribution("GENDER", patients, func(p models.Patient) string { return p.Gender })

	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	for _, row := range table.Rows {
		if row["COUNT"].(int) != 1 || row["PCT"].(float64) != 50.0 {
			t.Fatalf("expected 1 patient at 50.0 pct per gender, got %+v", row)
		}
	}
	if sum := pctSum(table); math.Abs(sum-100.0) > 0.1 {
		t.Fatalf("expected PCT sum ~100, got %v", sum)
	}
}

func TestPctSumsToHundredWithRounding(t *testing.T) {
	// Three equal groups force 33.3 + 33.3 + 33.3; the tolerance covers it.
	patients := []models.Patient{
		{ID: "P1", Gender: "M"},
		{ID: "P2", Gender: "F"},
		{ID: "P3", Gender: "U"},
	}
	table := CategoricalDistribution("GENDER", patients, func(p models.Patient) string { return p.Gender })
	if sum := pctSum(table); math.Abs(sum-100.0) > 0.1 {
		t.Fatalf("expected PCT sum within 0.1 of 100, got %v", sum)
	}
}

func TestTopByUniquePatientsCountsDistinctPatients(t *testing.T) {
	conditions := []models.Condition{
		{PatientID: "P1", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P1", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P2", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P1", Description: "Acute bronchitis (disorder)"},
	}

	table := TopByUniquePatients(conditions, 20)

	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0]["DESCRIPTION"] != "Viral sinusitis (disorder)" || table.Rows[0]["UNIQUE_PATIENTS"].(int) != 2 {
		t.Fatalf("expected sinusitis with 2 unique patients first, got %+v", table.Rows[0])
	}
	if table.Rows[1]["UNIQUE_PATIENTS"].(int) != 1 {
		t.Fatalf("expected bronchitis with 1 unique patient, got %+v", table.Rows[1])
	}
}

func TestTopByRecordsCountsRawRows(t *testing.T) {
	conditions := []models.Condition{
		{PatientID: "P1", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P1", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P2", Description: "Acute bronchitis (disorder)"},
	}

	table := TopByRecords(conditions, 20)

	if table.Rows[0]["DESCRIPTION"] != "Viral sinusitis (disorder)" || table.Rows[0]["RECORDS"].(int) != 2 {
		t.Fatalf("expected sinusitis with 2 records first, got %+v", table.Rows[0])
	}
}

func TestTopNTruncationAndStableTies(t *testing.T) {
	conditions := make([]models.Condition, 0)
	descs := []string{"A", "B", "C", "D", "E"}
	for i, desc := range descs {
		conditions = append(conditions, models.Condition{
			PatientID:   "P" + string(rune('0'+i)),
			Description: desc,
		})
	}

	table := TopByUniquePatients(conditions, 3)

	if len(table.Rows) != 3 {
		t.Fatalf("expected truncation to 3 rows, got %d", len(table.Rows))
	}
	// All counts tie at 1: first-appearance order must hold.
	for i, want := range []string{"A", "B", "C"} {
		if table.Rows[i]["DESCRIPTION"] != want {
			t.Fatalf("row %d: expected %q, got %v", i, want, table.Rows[i]["DESCRIPTION"])
		}
	}
}

func TestCrossTabMatchesDirectRecomputation(t *testing.T) {
	patients := []models.Patient{
		{ID: "P1", Gender: "M"},
		{ID: "P2", Gender: "F"},
		{ID: "P3", Gender: "F"},
	}
	conditions := []models.Condition{
		{PatientID: "P1", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P2", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P3", Description: "Viral sinusitis (disorder)"},
		{PatientID: "P2", Description: "Acute bronchitis (disorder)"},
		{PatientID: "P9", Description: "Orphan condition"}, // no matching patient
	}

	table := CrossTab("GENDER", conditions, patients, func(p models.Patient) string { return p.Gender })

	// Direct recomputation over the joined dataset.
	want := map[[2]string]int{
		{"M", "Viral sinusitis (disorder)"}:  1,
		{"F", "Viral sinusitis (disorder)"}:  2,
		{"F", "Acute bronchitis (disorder)"}: 1,
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(table.Rows), table.Rows)
	}
	for _, row := range table.Rows {
		key := [2]string{row["GENDER"].(string), row["DESCRIPTION"].(string)}
		if want[key] != row["UNIQUE_PATIENTS"].(int) {
			t.Fatalf("group %v: expected %d, got %v", key, want[key], row["UNIQUE_PATIENTS"])
		}
	}

	// Sorted by gender ascending, then unique count descending.
	if table.Rows[0]["GENDER"] != "F" || table.Rows[0]["UNIQUE_PATIENTS"].(int) != 2 {
		t.Fatalf("expected F/sinusitis first, got %+v", table.Rows[0])
	}
	if table.Rows[2]["GENDER"] != "M" {
		t.Fatalf("expected M group last, got %+v", table.Rows[2])
	}
}

func TestSummaryStats(t *testing.T) {
	patients := []models.Patient{
		{ID: "P1", Age: intPtr(24)},
		{ID: "P2", Age: intPtr(33)},
		{ID: "P3"},
	}

	stats := Summary(patients)

	if stats.PatientCount != 3 {
		t.Fatalf("expected 3 patients, got %d", stats.PatientCount)
	}
	if stats.MeanAge != 28.5 || stats.MedianAge != 28.5 {
		t.Fatalf("expected mean/median 28.5 over known ages, got %v/%v", stats.MeanAge, stats.MedianAge)
	}
	if stats.MinAge != 24 || stats.MaxAge != 33 {
		t.Fatalf("expected min 24 max 33, got %v/%v", stats.MinAge, stats.MaxAge)
	}
}

func TestSummaryAllAgesUnknown(t *testing.T) {
	stats := Summary([]models.Patient{{ID: "P1"}, {ID: "P2"}})
	if stats.PatientCount != 2 {
		t.Fatalf("expected patient count 2, got %d", stats.PatientCount)
	}
	if stats.MeanAge != 0 || stats.MaxAge != 0 {
		t.Fatalf("expected zeroed age stats, got %+v", stats)
	}
}
