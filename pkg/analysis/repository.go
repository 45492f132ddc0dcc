package analysis

import (
	"context"
	"time"

	"github.com/carelens-ai/analytics/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type runModel struct {
	ID             uuid.UUID  `gorm:"primaryKey;column:id"`
	Status         string     `gorm:"column:status"`
	PatientCount   int        `gorm:"column:patient_count"`
	ConditionCount int        `gorm:"column:condition_count"`
	ClinicalCount  int        `gorm:"column:clinical_count"`
	ErrorMessage   string     `gorm:"column:error_message"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	StartedAt      *time.Time `gorm:"column:started_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
}

func (runModel) TableName() string {
	return "analysis_runs"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&runModel{})
}

func (r *Repository) Create(ctx context.Context, run models.AnalysisRun) error {
	return r.db.WithContext(ctx).Create(domainToModel(run)).Error
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&runModel{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.AnalysisRun, error) {
	var model runModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return models.AnalysisRun{}, err
	}
	return modelToDomain(&model), nil
}

func (r *Repository) Latest(ctx context.Context) (models.AnalysisRun, error) {
	var model runModel
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusCompleted).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return models.AnalysisRun{}, err
	}
	return modelToDomain(&model), nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []runModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	runs := make([]models.AnalysisRun, 0, len(records))
	for i := range records {
		runs = append(runs, modelToDomain(&records[i]))
	}
	return runs, nil
}

func domainToModel(run models.AnalysisRun) *runModel {
	return &runModel{
		ID:             run.ID,
		Status:         run.Status,
		PatientCount:   run.PatientCount,
		ConditionCount: run.ConditionCount,
		ClinicalCount:  run.ClinicalCount,
		ErrorMessage:   run.ErrorMessage,
		CreatedAt:      run.CreatedAt,
		StartedAt:      run.StartedAt,
		CompletedAt:    run.CompletedAt,
	}
}

func modelToDomain(model *runModel) models.AnalysisRun {
	return models.AnalysisRun{
		ID:             model.ID,
		Status:         model.Status,
		PatientCount:   model.PatientCount,
		ConditionCount: model.ConditionCount,
		ClinicalCount:  model.ClinicalCount,
		ErrorMessage:   model.ErrorMessage,
		CreatedAt:      model.CreatedAt,
		StartedAt:      model.StartedAt,
		CompletedAt:    model.CompletedAt,
	}
}
