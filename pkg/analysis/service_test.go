package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carelens-ai/analytics/pkg/aggregate"
	"github.com/carelens-ai/analytics/pkg/classifier"
	"github.com/carelens-ai/analytics/pkg/common/logger"
	"github.com/carelens-ai/analytics/pkg/common/models"
)

func init() {
	logger.Init()
}

type stubSource struct {
	patients   []models.Patient
	conditions []models.Condition
	err        error
}

func (s *stubSource) Patients(ctx context.Context) ([]models.Patient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.patients, nil
}

func (s *stubSource) Conditions(ctx context.Context) ([]models.Condition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.conditions, nil
}

type recordingSink struct {
	summary *models.SummaryStats
	tables  map[string]models.AggregateTable
}

func newRecordingSink() *recordingSink {
	return &recordingSink{tables: make(map[string]models.AggregateTable)}
}

func (r *recordingSink) WriteSummary(ctx context.Context, runID string, stats models.SummaryStats) error {
	r.summary = &stats
	return nil
}

func (r *recordingSink) WriteTable(ctx context.Context, runID string, table models.AggregateTable) error {
	r.tables[table.Name] = table
	return nil
}

func fixedDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunEndToEnd(t *testing.T) {
	b1 := fixedDate(2000, time.January, 1)
	b2 := fixedDate(1990, time.June, 15)
	src := &stubSource{
		patients: []models.Patient{
			{ID: "P1", BirthDate: &b1, Gender: "M"},
			{ID: "P2", BirthDate: &b2, Gender: "F"},
		},
		conditions: []models.Condition{
			{PatientID: "P1", Description: "Viral sinusitis (disorder)"},
			{PatientID: "P1", Description: "Full-time employment (finding)"},
		},
	}

	clf, err := classifier.New(classifier.DefaultRules())
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	sink := newRecordingSink()
	svc := NewService(src, clf, sink, WithAsOf(fixedDate(2024, time.January, 1)))

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if run.Status != StatusCompleted {
		t.Fatalf("expected completed run, got %q", run.Status)
	}
	if run.PatientCount != 2 || run.ConditionCount != 2 || run.ClinicalCount != 1 {
		t.Fatalf("unexpected run counts: %+v", run)
	}

	if sink.summary == nil {
		t.Fatal("expected summary to be written")
	}
	if sink.summary.PatientCount != 2 {
		t.Fatalf("expected 2 patients in summary, got %d", sink.summary.PatientCount)
	}
	// Ages as of 2024-01-01: 24 and 33.
	if sink.summary.MinAge != 24 || sink.summary.MaxAge != 33 {
		t.Fatalf("unexpected age range: %+v", sink.summary)
	}

	wantTables := []string{
		aggregate.TableAgeDistribution,
		aggregate.TableGenderDistribution,
		aggregate.TableTopDxByPatient,
		aggregate.TableTopDxByRecord,
		aggregate.TableDxByGender,
	}
	for _, name := range wantTables {
		if _, ok := sink.tables[name]; !ok {
			t.Fatalf("expected table %q to be written, got %v", name, tableNames(sink))
		}
	}

	ageDist := sink.tables[aggregate.TableAgeDistribution]
	if ageDist.Rows[0]["AGE_GROUP"] != "18-39" || ageDist.Rows[0]["COUNT"].(int) != 2 {
		t.Fatalf("expected both patients in 18-39, got %+v", ageDist.Rows[0])
	}

	genderDist := sink.tables[aggregate.TableGenderDistribution]
	for _, row := range genderDist.Rows {
		if row["COUNT"].(int) != 1 || row["PCT"].(float64) != 50.0 {
			t.Fatalf("expected 50/50 gender split, got %+v", row)
		}
	}

	topDx := sink.tables[aggregate.TableTopDxByPatient]
	if len(topDx.Rows) != 1 {
		t.Fatalf("expected exactly one clinical diagnosis row, got %d", len(topDx.Rows))
	}
	if topDx.Rows[0]["DESCRIPTION"] != "Viral sinusitis (disorder)" || topDx.Rows[0]["UNIQUE_PATIENTS"].(int) != 1 {
		t.Fatalf("unexpected top diagnosis row: %+v", topDx.Rows[0])
	}
}

func TestRunFailsWhenSourceFails(t *testing.T) {
	src := &stubSource{err: errors.New("missing input file")}
	clf, err := classifier.New(classifier.DefaultRules())
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	svc := NewService(src, clf, newRecordingSink())
	run, err := svc.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if run.Status != StatusFailed || run.ErrorMessage == "" {
		t.Fatalf("expected failed run with error message, got %+v", run)
	}
}

func tableNames(sink *recordingSink) []string {
	names := make([]string, 0, len(sink.tables))
	for name := range sink.tables {
		names = append(names, name)
	}
	return names
}
