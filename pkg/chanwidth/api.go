// Package chanwidth is the public API over the minimum channel-width
// search: load an architecture and a mapped device, run the search or a
// fixed-width routing pass, and persist/report the results.
package chanwidth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/google/uuid"

	"chanwidth/internal/arch"
	"chanwidth/internal/chanw"
	"chanwidth/internal/model"
	"chanwidth/internal/pnr"
	"chanwidth/internal/route"
	"chanwidth/internal/search"
	"chanwidth/internal/stats"
	"chanwidth/internal/storage"
)

const defaultDBPath = "chanwidth.db"

// Options configures the client's persistence backend.
type Options struct {
	StoreKind string
	DBPath    string
}

// Client owns a store connection and runs searches against it.
type Client struct {
	store storage.Store
}

// NewClient opens (and initializes) the configured store.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	kind := opts.StoreKind
	if kind == "" {
		kind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(kind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return &Client{store: store}, nil
}

// NewClientWithStore wraps an already-initialized store. Used by tests and
// embedders that manage the store lifecycle themselves.
func NewClientWithStore(store storage.Store) *Client {
	return &Client{store: store}
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Reset drops all persisted state, when the backend supports it.
func (c *Client) Reset(ctx context.Context) error {
	resetter, ok := c.store.(storage.Resetter)
	if !ok {
		return fmt.Errorf("store backend does not support reset")
	}
	return resetter.Reset(ctx)
}

// SearchRequest selects the inputs and mode of one search run. Zero values
// for FixedWidth and Hint mean "none".
type SearchRequest struct {
	RunID      string
	ArchPath   string
	DevicePath string

	Policy     string
	FixedWidth int
	FsSearch   bool
	Hint       int
	Verify     bool
	NoRoute    bool

	// Reference-oracle knobs.
	Seed         int64
	Flakiness    float64
	DemandPerNet float64
	FcOut        int

	Progress io.Writer
}

// SearchSummary is the persisted outcome of one run.
type SearchSummary struct {
	RunID    string
	Final    int
	Feasible bool
	Clipped  bool
	Verified bool
	Trials   int
	Report   stats.SearchReport
}

// Search loads the inputs, runs the place-and-route flow with the reference
// oracles, persists the run and builds its report. An unroutable circuit is
// a normal negative outcome: the summary comes back with Feasible=false and
// a nil error.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchSummary, error) {
	a, err := arch.LoadArch(req.ArchPath)
	if err != nil {
		return SearchSummary{}, err
	}
	device, err := arch.LoadDevice(req.DevicePath)
	if err != nil {
		return SearchSummary{}, err
	}
	policy, err := route.ParsePlacePolicy(req.Policy)
	if err != nil {
		return SearchSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	live := route.NewSolution(len(device.Blocks), len(device.Nets))
	placer := &route.SpreadPlacer{Device: &device}
	router := &route.CapacityRouter{
		Arch:          &a,
		Device:        &device,
		DemandPerNet:  req.DemandPerNet,
		FcOutAbsolute: req.FcOut,
		Flakiness:     req.Flakiness,
	}
	if req.Flakiness > 0 {
		router.Rand = rand.New(rand.NewSource(req.Seed))
	}

	cfg := pnr.Config{
		Arch:      &a,
		Device:    &device,
		Placer:    placer,
		Router:    router,
		Policy:    policy,
		DoRouting: !req.NoRoute,
		FsSearch:  req.FsSearch,
		Hint:      optionalBound(req.Hint),
		Verify:    req.Verify,
		Progress:  req.Progress,
	}
	cfg.FixedWidth = optionalBound(req.FixedWidth)

	outcome, runErr := pnr.Run(ctx, cfg, live)

	run := model.SearchRunRecord{
		VersionedRecord: storage.Stamp(),
		RunID:           runID,
		ArchName:        a.Name,
		DeviceName:      device.Name,
		Final:           outcome.Width,
		Feasible:        outcome.Feasible,
		Trials:          len(outcome.Trials),
		Clipped:         outcome.Clipped,
		Verified:        outcome.Verified,
		Seed:            req.Seed,
	}

	if runErr != nil {
		if !errors.Is(runErr, search.ErrInfeasible) {
			return SearchSummary{}, runErr
		}
		// Normal negative result: persist it and report back.
		run.Feasible = false
		if err := c.persistRun(ctx, run, outcome.Trials, nil); err != nil {
			return SearchSummary{}, err
		}
		return SearchSummary{RunID: runID, Feasible: false, Trials: len(outcome.Trials)}, nil
	}

	var assignment *model.AssignmentRecord
	if outcome.Feasible {
		assignment = &model.AssignmentRecord{
			VersionedRecord: storage.Stamp(),
			RunID:           runID,
			Factor:          outcome.Graph.Chan.Factor,
			XList:           outcome.Graph.Chan.XList,
			YList:           outcome.Graph.Chan.YList,
			Max:             outcome.Graph.Chan.Max,
		}
	}
	if err := c.persistRun(ctx, run, outcome.Trials, assignment); err != nil {
		return SearchSummary{}, err
	}

	report, err := c.Report(ctx, runID)
	if err != nil {
		return SearchSummary{}, err
	}

	return SearchSummary{
		RunID:    runID,
		Final:    outcome.Width,
		Feasible: outcome.Feasible,
		Clipped:  outcome.Clipped,
		Verified: outcome.Verified,
		Trials:   len(outcome.Trials),
		Report:   report,
	}, nil
}

func (c *Client) persistRun(ctx context.Context, run model.SearchRunRecord, trials []model.TrialRecord, assignment *model.AssignmentRecord) error {
	if err := c.store.SaveSearchRun(ctx, run); err != nil {
		return err
	}
	if err := c.store.SaveTrialHistory(ctx, run.RunID, trials); err != nil {
		return err
	}
	if assignment != nil {
		if err := c.store.SaveAssignment(ctx, *assignment); err != nil {
			return err
		}
	}
	return nil
}

// Widths materializes one width factor into a track assignment without
// searching.
func (c *Client) Widths(ctx context.Context, factor int, archPath, devicePath string) (chanw.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return chanw.Assignment{}, err
	}
	a, err := arch.LoadArch(archPath)
	if err != nil {
		return chanw.Assignment{}, err
	}
	device, err := arch.LoadDevice(devicePath)
	if err != nil {
		return chanw.Assignment{}, err
	}
	return chanw.Build(factor, a.ChanWidth, device.NX, device.NY)
}

// Runs lists the persisted search runs.
func (c *Client) Runs(ctx context.Context) ([]model.SearchRunRecord, error) {
	return c.store.ListSearchRuns(ctx)
}

// TrialHistory returns the trial telemetry of one run.
func (c *Client) TrialHistory(ctx context.Context, runID string) ([]model.TrialRecord, error) {
	trials, ok, err := c.store.GetTrialHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("trial history not found for run id: %s", runID)
	}
	return trials, nil
}

// Report builds the search report for one persisted run.
func (c *Client) Report(ctx context.Context, runID string) (stats.SearchReport, error) {
	run, ok, err := c.store.GetSearchRun(ctx, runID)
	if err != nil {
		return stats.SearchReport{}, err
	}
	if !ok {
		return stats.SearchReport{}, fmt.Errorf("search run not found: %s", runID)
	}
	trials, ok, err := c.store.GetTrialHistory(ctx, runID)
	if err != nil {
		return stats.SearchReport{}, err
	}
	if !ok {
		trials = nil
	}
	assignment, _, err := c.store.GetAssignment(ctx, runID)
	if err != nil {
		return stats.SearchReport{}, err
	}
	return stats.BuildSearchReport(run, trials, assignment)
}

func optionalBound(v int) search.Bound {
	if v <= 0 {
		return search.Bound{}
	}
	return search.KnownBound(v)
}
