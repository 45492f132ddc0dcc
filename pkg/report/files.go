package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carelens-ai/analytics/pkg/common/models"
)

// FileSink persists the summary as JSON and each table as CSV under an
// injectable output directory. Destinations are constructor arguments, never
// ambient state.
type FileSink struct {
	outputDir string
	tablesDir string
}

func NewFileSink(outputDir string) (*FileSink, error) {
	tablesDir := filepath.Join(outputDir, "tables")
	if err := os.MkdirAll(tablesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directories: %w", err)
	}
	return &FileSink{outputDir: outputDir, tablesDir: tablesDir}, nil
}

func (s *FileSink) WriteSummary(ctx context.Context, runID string, stats models.SummaryStats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.outputDir, "age_summary.json"), data, 0o644)
}

func (s *FileSink) WriteTable(ctx context.Context, runID string, table models.AggregateTable) error {
	f, err := os.Create(filepath.Join(s.tablesDir, table.Name+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(table.Columns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		record := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			record[i] = stringifyValue(row[col])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case float32:
		return fmt.Sprintf("%.1f", float64(v))
	case float64:
		return fmt.Sprintf("%.1f", v)
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		if bytes, err := json.Marshal(v); err == nil {
			return string(bytes)
		}
		return fmt.Sprintf("%v", v)
	}
}
