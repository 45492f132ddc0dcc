package normalizer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carelens-ai/analytics/pkg/common/models"
)

func TestBucketForDefaults(t *testing.T) {
	buckets := DefaultBuckets()

	cases := map[int]string{
		0:   "0-17",
		17:  "0-17",
		18:  "18-39",
		39:  "18-39",
		40:  "40-64",
		64:  "40-64",
		65:  "65+",
		119: "65+",
	}
	for age, want := range cases {
		bucket := BucketFor(buckets, age)
		if bucket == nil || bucket.Label != want {
			t.Fatalf("age %d: expected bucket %q, got %v", age, want, bucket)
		}
	}

	if bucket := BucketFor(buckets, 120); bucket != nil {
		t.Fatalf("expected no bucket for age 120, got %q", bucket.Label)
	}
	if bucket := BucketFor(buckets, -1); bucket != nil {
		t.Fatalf("expected no bucket for negative age, got %q", bucket.Label)
	}
}

func TestEnrichDerivesAgeAndGroup(t *testing.T) {
	b1 := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	b2 := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	patients := []models.Patient{
		{ID: "P1", BirthDate: &b1, Gender: "M"},
		{ID: "P2", BirthDate: &b2, Gender: "F"},
		{ID: "P3", Gender: "F"},
	}
	asOf := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	Enrich(patients, asOf, DefaultBuckets())

	if patients[0].Age == nil || *patients[0].Age != 24 {
		t.Fatalf("expected P1 age 24, got %v", patients[0].Age)
	}
	if patients[1].Age == nil || *patients[1].Age != 33 {
		t.Fatalf("expected P2 age 33, got %v", patients[1].Age)
	}
	for _, p := range patients[:2] {
		if p.AgeGroup == nil || *p.AgeGroup != "18-39" {
			t.Fatalf("expected %s in 18-39, got %v", p.ID, p.AgeGroup)
		}
	}
	if patients[2].Age != nil || patients[2].AgeGroup != nil {
		t.Fatal("expected nil age and group for patient without birth date")
	}
}

func TestLoadBucketsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buckets.yaml")
	content := "buckets:\n  - label: young\n    min: 0\n    max: 50\n  - label: old\n    min: 50\n    max: 120\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	buckets, err := LoadBuckets(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 2 || buckets[0].Label != "young" || buckets[1].Max != 120 {
		t.Fatalf("unexpected buckets: %+v", buckets)
	}
}

func TestLoadBucketsRejectsEmptyInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buckets.yaml")
	content := "buckets:\n  - label: broken\n    min: 10\n    max: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := LoadBuckets(path); err == nil {
		t.Fatal("expected error for empty interval")
	}
}

func TestLoadBucketsDefaultsWithoutPath(t *testing.T) {
	buckets, err := LoadBuckets("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 4 {
		t.Fatalf("expected 4 default buckets, got %d", len(buckets))
	}
}

func TestLoadBucketsMissingFileReturnsNoBuckets(t *testing.T) {
	buckets, err := LoadBuckets(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing buckets file")
	}
	if buckets != nil {
		t.Fatalf("expected no buckets on error, got %+v", buckets)
	}
}
