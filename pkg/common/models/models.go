package models

import (
	"time"

	"github.com/google/uuid"
)

// Source records
type Patient struct {
	ID        string     `json:"id"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	DeathDate *time.Time `json:"death_date,omitempty"`
	Gender    string     `json:"gender"`
	Age       *int       `json:"age,omitempty"`       // derived
	AgeGroup  *string    `json:"age_group,omitempty"` // derived
}

type Condition struct {
	PatientID   string     `json:"patient_id"`
	Description string     `json:"description"`
	Start       *time.Time `json:"start,omitempty"`
	Stop        *time.Time `json:"stop,omitempty"`
	IsClinical  bool       `json:"is_clinical"` // derived
}

// AgeBucket is a half-open interval [Min, Max) over age in years.
type AgeBucket struct {
	Label string `yaml:"label" json:"label"`
	Min   int    `yaml:"min" json:"min"`
	Max   int    `yaml:"max" json:"max"`
}

func (b AgeBucket) Contains(age int) bool {
	return age >= b.Min && age < b.Max
}

// Aggregate output
type Row map[string]interface{}

type AggregateTable struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

type SummaryStats struct {
	PatientCount int     `json:"patients_count"`
	MeanAge      float64 `json:"mean_age"`
	MedianAge    float64 `json:"median_age"`
	MinAge       float64 `json:"min_age"`
	MaxAge       float64 `json:"max_age"`
}

// Analysis run lifecycle
type AnalysisRun struct {
	ID             uuid.UUID  `json:"id"`
	Status         string     `json:"status"`
	PatientCount   int        `json:"patient_count"`
	ConditionCount int        `json:"condition_count"`
	ClinicalCount  int        `json:"clinical_count"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // analysis.completed, analysis.failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
