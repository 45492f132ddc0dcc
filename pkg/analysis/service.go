package analysis

import (
	"context"
	"time"

	"github.com/carelens-ai/analytics/pkg/aggregate"
	"github.com/carelens-ai/analytics/pkg/classifier"
	"github.com/carelens-ai/analytics/pkg/common/kafka"
	"github.com/carelens-ai/analytics/pkg/common/logger"
	"github.com/carelens-ai/analytics/pkg/common/models"
	"github.com/carelens-ai/analytics/pkg/normalizer"
	"github.com/carelens-ai/analytics/pkg/observability/metrics"
	"github.com/carelens-ai/analytics/pkg/report"
	"github.com/google/uuid"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const eventSource = "analysis-runner"

// Source supplies the two record streams the analysis consumes.
type Source interface {
	Patients(ctx context.Context) ([]models.Patient, error)
	Conditions(ctx context.Context) ([]models.Condition, error)
}

// Service runs one batch analysis pass: load, derive, classify, aggregate,
// persist.
type Service struct {
	source     Source
	classifier *classifier.Classifier
	sink       report.Sink

	buckets []models.AgeBucket
	asOf    time.Time
	topN    int

	repo     *Repository
	producer *kafka.Producer
}

type Option func(*Service)

func WithBuckets(buckets []models.AgeBucket) Option {
	return func(s *Service) {
		s.buckets = buckets
	}
}

func WithAsOf(asOf time.Time) Option {
	return func(s *Service) {
		s.asOf = asOf
	}
}

func WithTopN(n int) Option {
	return func(s *Service) {
		s.topN = n
	}
}

func WithRepository(repo *Repository) Option {
	return func(s *Service) {
		s.repo = repo
	}
}

func WithProducer(producer *kafka.Producer) Option {
	return func(s *Service) {
		s.producer = producer
	}
}

func NewService(src Source, clf *classifier.Classifier, sink report.Sink, opts ...Option) *Service {
	svc := &Service{
		source:     src,
		classifier: clf,
		sink:       sink,
		buckets:    normalizer.DefaultBuckets(),
		asOf:       time.Now().UTC(),
		topN:       aggregate.DefaultTopN,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Run executes one pass over the dataset. Per-record parse failures degrade
// to missing values upstream; anything that reaches here as an error aborts
// the run.
func (s *Service) Run(ctx context.Context) (models.AnalysisRun, error) {
	run := models.AnalysisRun{
		ID:        uuid.New(),
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, run); err != nil {
			return run, err
		}
	}

	started := time.Now().UTC()
	run.Status = StatusRunning
	run.StartedAt = &started
	s.update(ctx, run.ID, map[string]interface{}{
		"status":     StatusRunning,
		"started_at": started,
	})

	patients, err := s.source.Patients(ctx)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	conditions, err := s.source.Conditions(ctx)
	if err != nil {
		return s.fail(ctx, run, err)
	}

	normalizer.Enrich(patients, s.asOf, s.buckets)
	s.classifier.Apply(conditions)
	clinical := classifier.Clinical(conditions)

	run.PatientCount = len(patients)
	run.ConditionCount = len(conditions)
	run.ClinicalCount = len(clinical)

	summary := aggregate.Summary(patients)
	gender := func(p models.Patient) string { return p.Gender }
	tables := []models.AggregateTable{
		aggregate.BucketDistribution(patients, s.buckets),
		aggregate.CategoricalDistribution("GENDER", patients, gender),
		aggregate.TopByUniquePatients(clinical, s.topN),
		aggregate.TopByRecords(clinical, s.topN),
		aggregate.CrossTab("GENDER", clinical, patients, gender),
	}

	runID := run.ID.String()
	if err := s.sink.WriteSummary(ctx, runID, summary); err != nil {
		return s.fail(ctx, run, err)
	}
	for _, table := range tables {
		if err := s.sink.WriteTable(ctx, runID, table); err != nil {
			return s.fail(ctx, run, err)
		}
	}

	completed := time.Now().UTC()
	run.Status = StatusCompleted
	run.CompletedAt = &completed
	s.update(ctx, run.ID, map[string]interface{}{
		"status":          StatusCompleted,
		"patient_count":   run.PatientCount,
		"condition_count": run.ConditionCount,
		"clinical_count":  run.ClinicalCount,
		"completed_at":    completed,
		"error_message":   "",
	})

	metrics.ObserveRun(run.PatientCount, run.ConditionCount, run.ClinicalCount, completed.Sub(started))
	s.publish(ctx, "analysis.completed", map[string]interface{}{
		"run_id":          runID,
		"patient_count":   run.PatientCount,
		"condition_count": run.ConditionCount,
		"clinical_count":  run.ClinicalCount,
	})

	logger.Log.WithFields(map[string]interface{}{
		"run_id":          runID,
		"patient_count":   run.PatientCount,
		"condition_count": run.ConditionCount,
		"clinical_count":  run.ClinicalCount,
	}).Info("Analysis run completed")

	return run, nil
}

func (s *Service) fail(ctx context.Context, run models.AnalysisRun, err error) (models.AnalysisRun, error) {
	logger.Log.WithError(err).Error("analysis run failed")
	completed := time.Now().UTC()
	run.Status = StatusFailed
	run.ErrorMessage = err.Error()
	run.CompletedAt = &completed
	s.update(ctx, run.ID, map[string]interface{}{
		"status":        StatusFailed,
		"error_message": err.Error(),
		"completed_at":  completed,
	})
	metrics.ObserveFailure()
	s.publish(ctx, "analysis.failed", map[string]interface{}{
		"run_id": run.ID.String(),
		"error":  err.Error(),
	})
	return run, err
}

func (s *Service) update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		logger.Log.WithError(err).Warn("failed to update analysis run record")
	}
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).Warn("failed to publish analysis event")
	}
}
