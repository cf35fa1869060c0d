package storage

import (
	"context"

	"chanwidth/internal/model"
)

// Store defines persistence operations for search runs, their trial
// telemetry and the materialized final assignments.
type Store interface {
	Init(ctx context.Context) error
	SaveSearchRun(ctx context.Context, run model.SearchRunRecord) error
	GetSearchRun(ctx context.Context, runID string) (model.SearchRunRecord, bool, error)
	ListSearchRuns(ctx context.Context) ([]model.SearchRunRecord, error)
	SaveTrialHistory(ctx context.Context, runID string, trials []model.TrialRecord) error
	GetTrialHistory(ctx context.Context, runID string) ([]model.TrialRecord, bool, error)
	SaveAssignment(ctx context.Context, rec model.AssignmentRecord) error
	GetAssignment(ctx context.Context, runID string) (model.AssignmentRecord, bool, error)
}

// Resetter is implemented by stores that can drop all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
