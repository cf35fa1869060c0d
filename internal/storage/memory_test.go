package storage

import (
	"context"
	"testing"

	"chanwidth/internal/model"
)

func newInitializedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func sampleRun(id string) model.SearchRunRecord {
	return model.SearchRunRecord{
		VersionedRecord: Stamp(),
		RunID:           id,
		ArchName:        "arch",
		DeviceName:      "device",
		Final:           11,
		Feasible:        true,
		Trials:          6,
	}
}

func TestMemoryStoreSearchRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newInitializedStore(t)

	if err := s.SaveSearchRun(ctx, sampleRun("r1")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.GetSearchRun(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Final != 11 || !got.Feasible {
		t.Fatalf("unexpected record: %+v", got)
	}

	_, ok, err = s.GetSearchRun(ctx, "missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Fatal("expected a miss for an unknown run id")
	}
}

func TestMemoryStoreListOrdersByRunID(t *testing.T) {
	ctx := context.Background()
	s := newInitializedStore(t)

	for _, id := range []string{"r3", "r1", "r2"} {
		if err := s.SaveSearchRun(ctx, sampleRun(id)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := s.ListSearchRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i, want := range []string{"r1", "r2", "r3"} {
		if runs[i].RunID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, runs[i].RunID)
		}
	}
}

func TestMemoryStoreTrialHistoryIsCopied(t *testing.T) {
	ctx := context.Background()
	s := newInitializedStore(t)

	trials := []model.TrialRecord{
		{Index: 1, Width: 24, Success: true, Low: -1, High: -1},
		{Index: 2, Width: 12, Success: false, Low: -1, High: 24},
	}
	if err := s.SaveTrialHistory(ctx, "r1", trials); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The caller mutating its slice must not reach the stored copy.
	trials[0].Width = 999

	got, ok, err := s.GetTrialHistory(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got[0].Width != 24 {
		t.Fatalf("stored history aliased the caller slice: %+v", got[0])
	}

	// And mutating the returned slice must not corrupt the store.
	got[1].Width = 999
	again, _, err := s.GetTrialHistory(ctx, "r1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again[1].Width != 12 {
		t.Fatalf("returned history aliased the store: %+v", again[1])
	}
}

func TestMemoryStoreAssignmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newInitializedStore(t)

	rec := model.AssignmentRecord{
		VersionedRecord: Stamp(),
		RunID:           "r1",
		Factor:          11,
		XList:           []int{11, 11, 11},
		YList:           []int{11, 11, 11},
		Max:             11,
	}
	if err := s.SaveAssignment(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.GetAssignment(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Factor != 11 || len(got.XList) != 3 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	s := newInitializedStore(t)

	if err := s.SaveSearchRun(ctx, sampleRun("r1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	runs, err := s.ListSearchRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected an empty store after reset, got %d runs", len(runs))
	}
}
