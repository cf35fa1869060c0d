package storage

import (
	"context"
	"sort"
	"sync"

	"chanwidth/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.SearchRunRecord
	trials      map[string][]model.TrialRecord
	assignments map[string]model.AssignmentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.SearchRunRecord)
	s.trials = make(map[string][]model.TrialRecord)
	s.assignments = make(map[string]model.AssignmentRecord)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveSearchRun(_ context.Context, run model.SearchRunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetSearchRun(_ context.Context, runID string) (model.SearchRunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	return run, ok, nil
}

func (s *MemoryStore) ListSearchRuns(_ context.Context) ([]model.SearchRunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SearchRunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out, nil
}

func (s *MemoryStore) SaveTrialHistory(_ context.Context, runID string, trials []model.TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trials[runID] = append([]model.TrialRecord(nil), trials...)
	return nil
}

func (s *MemoryStore) GetTrialHistory(_ context.Context, runID string) ([]model.TrialRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trials, ok := s.trials[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.TrialRecord(nil), trials...), true, nil
}

func (s *MemoryStore) SaveAssignment(_ context.Context, rec model.AssignmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assignments[rec.RunID] = rec
	return nil
}

func (s *MemoryStore) GetAssignment(_ context.Context, runID string) (model.AssignmentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.assignments[runID]
	return rec, ok, nil
}
