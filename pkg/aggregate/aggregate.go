package aggregate

import (
	"math"
	"sort"

	"github.com/carelens-ai/analytics/pkg/common/models"
)

const DefaultTopN = 20

// UnknownBucketLabel groups entities that fall outside every age bucket,
// including patients with no birth date.
const UnknownBucketLabel = "UNKNOWN"

const (
	TableAgeDistribution    = "age_distribution"
	TableGenderDistribution = "gender_distribution"
	TableTopDxByPatient     = "top_clinical_diagnoses_by_patient"
	TableTopDxByRecord      = "top_clinical_diagnoses_by_record"
	TableDxByGender         = "clinical_diagnoses_by_gender"
)

// BucketDistribution counts patients per age group. Every configured bucket
// appears even at zero; the unknown group appears only when populated. Rows
// are ordered by count descending with ties kept in bucket definition order.
func BucketDistribution(patients []models.Patient, buckets []models.AgeBucket) models.AggregateTable {
	counts := make(map[string]int)
	unknown := 0
	for _, p := range patients {
		if p.AgeGroup == nil {
			unknown++
			continue
		}
		counts[*p.AgeGroup]++
	}

	type entry struct {
		label string
		count int
	}
	entries := make([]entry, 0, len(buckets)+1)
	for _, b := range buckets {
		entries = append(entries, entry{label: b.Label, count: counts[b.Label]})
	}
	if unknown > 0 {
		entries = append(entries, entry{label: UnknownBucketLabel, count: unknown})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count > entries[j].count
	})

	total := len(patients)
	rows := make([]models.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, models.Row{
			"AGE_GROUP": e.label,
			"COUNT":     e.count,
			"PCT":       pct(e.count, total),
		})
	}

	return models.AggregateTable{
		Name:    TableAgeDistribution,
		Columns: []string{"AGE_GROUP", "COUNT", "PCT"},
		Rows:    rows,
	}
}

// CategoricalDistribution groups patients by a categorical dimension and
// counts unique patient identifiers per group, sorted by count descending.
func CategoricalDistribution(column string, patients []models.Patient, dim func(models.Patient) string) models.AggregateTable {
	order := make([]string, 0)
	unique := make(map[string]map[string]struct{})
	for _, p := range patients {
		key := dim(p)
		if _, ok := unique[key]; !ok {
			unique[key] = make(map[string]struct{})
			order = append(order, key)
		}
		unique[key][p.ID] = struct{}{}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return len(unique[order[i]]) > len(unique[order[j]])
	})

	total := 0
	for _, ids := range unique {
		total += len(ids)
	}

	rows := make([]models.Row, 0, len(order))
	for _, key := range order {
		count := len(unique[key])
		rows = append(rows, models.Row{
			column:  key,
			"COUNT": count,
			"PCT":   pct(count, total),
		})
	}

	return models.AggregateTable{
		Name:    TableGenderDistribution,
		Columns: []string{column, "COUNT", "PCT"},
		Rows:    rows,
	}
}

// TopByUniquePatients ranks descriptions by the number of distinct patients
// carrying them, truncated to the n highest. Ties keep first-appearance
// order.
func TopByUniquePatients(conditions []models.Condition, n int) models.AggregateTable {
	order := make([]string, 0)
	unique := make(map[string]map[string]struct{})
	for _, cond := range conditions {
		if _, ok := unique[cond.Description]; !ok {
			unique[cond.Description] = make(map[string]struct{})
			order = append(order, cond.Description)
		}
		unique[cond.Description][cond.PatientID] = struct{}{}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return len(unique[order[i]]) > len(unique[order[j]])
	})
	order = truncate(order, n)

	rows := make([]models.Row, 0, len(order))
	for _, desc := range order {
		rows = append(rows, models.Row{
			"DESCRIPTION":     desc,
			"UNIQUE_PATIENTS": len(unique[desc]),
		})
	}

	return models.AggregateTable{
		Name:    TableTopDxByPatient,
		Columns: []string{"DESCRIPTION", "UNIQUE_PATIENTS"},
		Rows:    rows,
	}
}

// TopByRecords ranks descriptions by raw record volume, truncated to the n
// highest.
func TopByRecords(conditions []models.Condition, n int) models.AggregateTable {
	order := make([]string, 0)
	counts := make(map[string]int)
	for _, cond := range conditions {
		if _, ok := counts[cond.Description]; !ok {
			order = append(order, cond.Description)
		}
		counts[cond.Description]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	order = truncate(order, n)

	rows := make([]models.Row, 0, len(order))
	for _, desc := range order {
		rows = append(rows, models.Row{
			"DESCRIPTION": desc,
			"RECORDS":     counts[desc],
		})
	}

	return models.AggregateTable{
		Name:    TableTopDxByRecord,
		Columns: []string{"DESCRIPTION", "RECORDS"},
		Rows:    rows,
	}
}

// CrossTab joins conditions to patient demographics on patient identifier
// and counts unique patients per (dimension, description) pair. Conditions
// whose patient is unknown carry no demographic value and drop out of the
// grouping. Rows sort by dimension ascending then count descending.
func CrossTab(column string, conditions []models.Condition, patients []models.Patient, dim func(models.Patient) string) models.AggregateTable {
	byID := make(map[string]models.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}

	type key struct {
		dim  string
		desc string
	}
	order := make([]key, 0)
	unique := make(map[key]map[string]struct{})
	for _, cond := range conditions {
		patient, ok := byID[cond.PatientID]
		if !ok {
			continue
		}
		k := key{dim: dim(patient), desc: cond.Description}
		if _, seen := unique[k]; !seen {
			unique[k] = make(map[string]struct{})
			order = append(order, k)
		}
		unique[k][cond.PatientID] = struct{}{}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].dim != order[j].dim {
			return order[i].dim < order[j].dim
		}
		return len(unique[order[i]]) > len(unique[order[j]])
	})

	rows := make([]models.Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, models.Row{
			column:            k.dim,
			"DESCRIPTION":     k.desc,
			"UNIQUE_PATIENTS": len(unique[k]),
		})
	}

	return models.AggregateTable{
		Name:    TableDxByGender,
		Columns: []string{column, "DESCRIPTION", "UNIQUE_PATIENTS"},
		Rows:    rows,
	}
}

func truncate(order []string, n int) []string {
	if n <= 0 {
		n = DefaultTopN
	}
	if len(order) > n {
		return order[:n]
	}
	return order
}

// pct is count over total as a percentage, rounded to one decimal place.
func pct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
