package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carelens-ai/analytics/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type summaryModel struct {
	RunID     string            `gorm:"primaryKey;column:run_id"`
	Stats     datatypes.JSONMap `gorm:"column:stats"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}

func (summaryModel) TableName() string {
	return "analysis_summaries"
}

type tableModel struct {
	ID        uuid.UUID      `gorm:"primaryKey;column:id"`
	RunID     string         `gorm:"column:run_id;index"`
	Name      string         `gorm:"column:name"`
	Columns   datatypes.JSON `gorm:"column:columns"`
	Rows      datatypes.JSON `gorm:"column:rows"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (tableModel) TableName() string {
	return "analysis_tables"
}

// WarehouseSink persists run outputs to Postgres so past runs stay
// queryable from the report server.
type WarehouseSink struct {
	db *gorm.DB
}

func NewWarehouseSink(db *gorm.DB) *WarehouseSink {
	return &WarehouseSink{db: db}
}

func (s *WarehouseSink) AutoMigrate() error {
	return s.db.AutoMigrate(&summaryModel{}, &tableModel{})
}

func (s *WarehouseSink) WriteSummary(ctx context.Context, runID string, stats models.SummaryStats) error {
	model := &summaryModel{
		RunID: runID,
		Stats: datatypes.JSONMap{
			"patients_count": stats.PatientCount,
			"mean_age":       stats.MeanAge,
			"median_age":     stats.MedianAge,
			"min_age":        stats.MinAge,
			"max_age":        stats.MaxAge,
		},
		CreatedAt: time.Now().UTC(),
	}
	// Replace atomically so a failed rewrite never loses the stored summary.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&summaryModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
}

func (s *WarehouseSink) WriteTable(ctx context.Context, runID string, table models.AggregateTable) error {
	columnsJSON, err := json.Marshal(table.Columns)
	if err != nil {
		return err
	}
	rowsJSON, err := json.Marshal(table.Rows)
	if err != nil {
		return err
	}
	model := &tableModel{
		ID:        uuid.New(),
		RunID:     runID,
		Name:      table.Name,
		Columns:   datatypes.JSON(columnsJSON),
		Rows:      datatypes.JSON(rowsJSON),
		CreatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ? AND name = ?", runID, table.Name).
			Delete(&tableModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
}

func (s *WarehouseSink) GetSummary(ctx context.Context, runID string) (map[string]interface{}, error) {
	var model summaryModel
	if err := s.db.WithContext(ctx).First(&model, "run_id = ?", runID).Error; err != nil {
		return nil, err
	}
	return map[string]interface{}(model.Stats), nil
}

func (s *WarehouseSink) GetTable(ctx context.Context, runID, name string) (models.AggregateTable, error) {
	var model tableModel
	if err := s.db.WithContext(ctx).First(&model, "run_id = ? AND name = ?", runID, name).Error; err != nil {
		return models.AggregateTable{}, err
	}
	return modelToTable(&model)
}

func (s *WarehouseSink) ListTables(ctx context.Context, runID string) ([]models.AggregateTable, error) {
	var records []tableModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("name").Find(&records).Error; err != nil {
		return nil, err
	}
	tables := make([]models.AggregateTable, 0, len(records))
	for i := range records {
		table, err := modelToTable(&records[i])
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func modelToTable(model *tableModel) (models.AggregateTable, error) {
	table := models.AggregateTable{Name: model.Name}
	if len(model.Columns) > 0 {
		if err := json.Unmarshal(model.Columns, &table.Columns); err != nil {
			return models.AggregateTable{}, err
		}
	}
	if len(model.Rows) > 0 {
		if err := json.Unmarshal(model.Rows, &table.Rows); err != nil {
			return models.AggregateTable{}, err
		}
	}
	return table, nil
}
