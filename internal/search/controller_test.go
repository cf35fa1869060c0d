package search

import (
	"context"
	"errors"
	"testing"

	"chanwidth/internal/arch"
	"chanwidth/internal/route"
)

// thresholdRouter is a monotone oracle: routable iff width >= threshold.
// clipBelow marks successes under that width as fc-clipped.
type thresholdRouter struct {
	threshold int
	clipBelow int
	probes    []int
}

func (r *thresholdRouter) Route(_ context.Context, width int, live *route.Solution) (route.TrialOutcome, error) {
	r.probes = append(r.probes, width)
	live.Width = width
	if width < r.threshold {
		return route.TrialOutcome{}, nil
	}
	return route.TrialOutcome{Success: true, FcClipped: width < r.clipBelow}, nil
}

type countingPlacer struct {
	widths []int
}

func (p *countingPlacer) Place(_ context.Context, width int, live *route.Solution) error {
	p.widths = append(p.widths, width)
	return nil
}

func testArch(dir arch.Directionality, fs int) *arch.RoutingArch {
	return &arch.RoutingArch{
		Name:           "test",
		Directionality: dir,
		RouteType:      arch.RouteDetailed,
		Fs:             fs,
		ChanWidth: arch.ChanWidthDist{
			IORelativeWidth: 1,
			X:               arch.ChannelProfile{Kind: arch.ProfileUniform, Peak: 1},
			Y:               arch.ChannelProfile{Kind: arch.ProfileUniform, Peak: 1},
		},
	}
}

func testDevice(maxPins int) *arch.Device {
	return &arch.Device{
		Name: "test",
		NX:   4,
		NY:   4,
		BlockTypes: []arch.BlockType{
			{Name: "clb", NumPins: maxPins, NumClasses: 2},
		},
		Blocks: []arch.Block{{ID: 0, Type: "clb"}},
	}
}

func newTestController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	live := route.NewSolution(len(cfg.Device.Blocks), len(cfg.Device.Nets))
	c, err := New(cfg, live)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func TestSearchConvergesToMonotoneThreshold(t *testing.T) {
	router := &thresholdRouter{threshold: 11}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 3),
		Device: testDevice(24),
		Router: router,
	})

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Final != 11 {
		t.Fatalf("expected final width 11, got %d", result.Final)
	}
	if !result.Feasible {
		t.Fatal("expected a feasible result")
	}
	if len(router.probes) > 10 {
		t.Fatalf("expected logarithmic trial count, got %d probes", len(router.probes))
	}
}

func TestSearchUnidirectionalParity(t *testing.T) {
	router := &thresholdRouter{threshold: 12}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Unidirectional, 3),
		Device: testDevice(24),
		Router: router,
	})

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Final%2 != 0 {
		t.Fatalf("unidirectional final width must be even, got %d", result.Final)
	}
	for _, w := range router.probes {
		if w%2 != 0 {
			t.Fatalf("probed odd width %d under unidirectional routing", w)
		}
	}
	if result.Final != 12 {
		t.Fatalf("expected final width 12, got %d", result.Final)
	}
}

func TestSearchRejectsOddHintUnidirectional(t *testing.T) {
	c := newTestController(t, Config{
		Arch:   testArch(arch.Unidirectional, 3),
		Device: testDevice(24),
		Router: &thresholdRouter{threshold: 10},
		Hint:   KnownBound(7),
	})

	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("expected fatal abort for odd width under unidirectional routing")
	}
}

func TestSearchRejectsBadFsBidirectional(t *testing.T) {
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 4),
		Device: testDevice(24),
		Router: &thresholdRouter{threshold: 10},
	})

	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("expected fatal abort when fs is not a multiple of three")
	}
}

func TestSearchOddFixedWidthUnidirectionalAborts(t *testing.T) {
	// W=7 seeds current at 7 + 5*2 = 17, which is odd.
	c := newTestController(t, Config{
		Arch:       testArch(arch.Unidirectional, 3),
		Device:     testDevice(24),
		Router:     &thresholdRouter{threshold: 10},
		FixedWidth: KnownBound(7),
	})

	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("expected fatal abort for odd seed width")
	}
}

func TestSearchUnroutableCircuitAborts(t *testing.T) {
	router := &thresholdRouter{threshold: 1 << 20}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 3),
		Device: testDevice(24),
		Router: router,
	})

	_, err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected abort above the width ceiling")
	}
	if errors.Is(err, ErrInfeasible) {
		t.Fatal("width-ceiling abort is fatal, not the normal negative result")
	}
}

func TestSearchFsFloorStopsWithHigh(t *testing.T) {
	// Fs=18 stops the search as soon as 3*current < 18, keeping the last
	// success as final.
	router := &thresholdRouter{threshold: 3}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 18),
		Device: testDevice(8),
		Router: router,
	})

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Seed is 8; it routes, halves to 4, and 3*4 < 18 stops the search.
	if result.Final != 8 {
		t.Fatalf("expected fs floor to keep final=8, got %d", result.Final)
	}
}

func TestSearchFsFloorWithoutSuccessIsInfeasible(t *testing.T) {
	router := &thresholdRouter{threshold: 1000}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 18),
		Device: testDevice(4),
		Router: router,
	})

	// Seed is 4 and 3*4 < 18 immediately, with no success recorded.
	_, err := c.Run(context.Background())
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
}

func TestSearchClippedSuccessScoredAsFailure(t *testing.T) {
	// Widths in [11, 14) route but come back clipped; the first clean
	// success is at 14.
	router := &thresholdRouter{threshold: 11, clipBelow: 14}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 3),
		Device: testDevice(24),
		Router: router,
	})

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Final != 14 {
		t.Fatalf("expected clipped widths to be rejected, final 14, got %d", result.Final)
	}
	if !result.Clipped {
		t.Fatal("expected the clipped warning flag to be set")
	}
}

func TestSearchHintBiasesFirstContraction(t *testing.T) {
	router := &thresholdRouter{threshold: 10}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 3),
		Device: testDevice(24),
		Router: router,
		Hint:   KnownBound(100),
	})

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(router.probes) < 2 {
		t.Fatalf("expected at least two probes, got %v", router.probes)
	}
	if router.probes[0] != 100 {
		t.Fatalf("expected the hint as first probe, got %d", router.probes[0])
	}
	// 100/1.1 truncates to 90: the contraction stays near the hint
	// instead of halving to 50.
	if router.probes[1] != 90 {
		t.Fatalf("expected hint-biased second probe 90, got %d", router.probes[1])
	}
}

func TestSearchFailedHintGrowsByDoubling(t *testing.T) {
	// The gentle contraction applies only when the hint itself routed.
	// A failed hint grows the probe the normal way.
	router := &thresholdRouter{threshold: 300}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 3),
		Device: testDevice(24),
		Router: router,
		Hint:   KnownBound(100),
	})

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Final != 300 {
		t.Fatalf("expected final width 300, got %d", result.Final)
	}
	if len(router.probes) < 2 || router.probes[1] != 200 {
		t.Fatalf("expected the failed hint to double to 200, got %v", router.probes)
	}
}

func TestSearchPlaceAlwaysPlacesEveryTrial(t *testing.T) {
	router := &thresholdRouter{threshold: 11}
	placer := &countingPlacer{}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 3),
		Device: testDevice(24),
		Router: router,
		Placer: placer,
		Policy: route.PlaceAlways,
	})

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(placer.widths) != len(router.probes) {
		t.Fatalf("expected one placement per trial, got %d placements for %d trials",
			len(placer.widths), len(router.probes))
	}
}

func TestSearchTrialTelemetryRecorded(t *testing.T) {
	router := &thresholdRouter{threshold: 11}
	c := newTestController(t, Config{
		Arch:   testArch(arch.Bidirectional, 3),
		Device: testDevice(24),
		Router: router,
	})

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Trials) != len(router.probes) {
		t.Fatalf("expected %d trial records, got %d", len(router.probes), len(result.Trials))
	}
	for i, rec := range result.Trials {
		if rec.Width != router.probes[i] {
			t.Fatalf("trial %d: recorded width %d, probed %d", i, rec.Width, router.probes[i])
		}
	}
}
