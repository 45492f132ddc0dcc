package report

import (
	"context"

	"github.com/carelens-ai/analytics/pkg/common/models"
)

// Sink receives the outputs of one analysis run: a scalar summary and a set
// of named aggregate tables.
type Sink interface {
	WriteSummary(ctx context.Context, runID string, stats models.SummaryStats) error
	WriteTable(ctx context.Context, runID string, table models.AggregateTable) error
}

// Multi fans writes out to every sink in order, stopping at the first error.
type Multi []Sink

func (m Multi) WriteSummary(ctx context.Context, runID string, stats models.SummaryStats) error {
	for _, sink := range m {
		if err := sink.WriteSummary(ctx, runID, stats); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) WriteTable(ctx context.Context, runID string, table models.AggregateTable) error {
	for _, sink := range m {
		if err := sink.WriteTable(ctx, runID, table); err != nil {
			return err
		}
	}
	return nil
}
