package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/carelens-ai/analytics/pkg/common/models"
	"github.com/carelens-ai/analytics/pkg/normalizer"
)

// ReadPatients decodes a Synthea-style patients table. Column lookup is
// header-driven and case-insensitive; unknown columns are ignored and
// malformed dates degrade to nil.
func ReadPatients(r io.Reader) ([]models.Patient, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading patients header: %w", err)
	}
	cols := indexColumns(header)
	idIdx, ok := cols["id"]
	if !ok {
		return nil, fmt.Errorf("patients input missing Id column")
	}

	var patients []models.Patient
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading patients row: %w", err)
		}
		patients = append(patients, models.Patient{
			ID:        field(record, idIdx),
			BirthDate: normalizer.ParseDate(fieldAt(record, cols, "birthdate")),
			DeathDate: normalizer.ParseDate(fieldAt(record, cols, "deathdate")),
			Gender:    fieldAt(record, cols, "gender"),
		})
	}
	return patients, nil
}

// ReadConditions decodes a Synthea-style conditions table.
func ReadConditions(r io.Reader) ([]models.Condition, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading conditions header: %w", err)
	}
	cols := indexColumns(header)
	patientIdx, ok := cols["patient"]
	if !ok {
		return nil, fmt.Errorf("conditions input missing PATIENT column")
	}
	descIdx, ok := cols["description"]
	if !ok {
		return nil, fmt.Errorf("conditions input missing DESCRIPTION column")
	}

	var conditions []models.Condition
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading conditions row: %w", err)
		}
		conditions = append(conditions, models.Condition{
			PatientID:   field(record, patientIdx),
			Description: field(record, descIdx),
			Start:       normalizer.ParseDate(fieldAt(record, cols, "start")),
			Stop:        normalizer.ParseDate(fieldAt(record, cols, "stop")),
		})
	}
	return conditions, nil
}

// FileSource reads the two datasets from files on each call.
type FileSource struct {
	patientsPath   string
	conditionsPath string
}

func NewFileSource(patientsPath, conditionsPath string) *FileSource {
	return &FileSource{patientsPath: patientsPath, conditionsPath: conditionsPath}
}

func (s *FileSource) Patients(ctx context.Context) ([]models.Patient, error) {
	return readFile(s.patientsPath, ReadPatients)
}

func (s *FileSource) Conditions(ctx context.Context) ([]models.Condition, error) {
	return readFile(s.conditionsPath, ReadConditions)
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func fieldAt(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok {
		return ""
	}
	return field(record, idx)
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
