package search

import (
	"context"
	"fmt"
	"io"

	"chanwidth/internal/arch"
	"chanwidth/internal/model"
	"chanwidth/internal/route"
	"chanwidth/internal/rrgraph"
)

const (
	// Unconstrained searches above this width are declared unroutable.
	maxUnconstrainedWidth = 1000
	// Fixed-width probe ranges: the initial bracket around W and the
	// overflow guard relative to W.
	fixedSeedStep     = 5
	fixedOverflowMult = 4
)

// Config wires the search controller to its collaborators.
type Config struct {
	Arch   *arch.RoutingArch
	Device *arch.Device
	Placer route.Placer
	Router route.Router
	Policy route.PlacePolicy

	// FixedWidth switches the search into the "does this architecture need
	// more or fewer tracks than requested" mode.
	FixedWidth Bound
	// Hint seeds the first probe from a user estimate.
	Hint Bound
	// Verify runs the convergence pass after the binary search.
	Verify bool

	// Progress receives human-readable trial reporting; nil discards it.
	Progress io.Writer
}

// Result is the outcome of a completed search.
type Result struct {
	Final    int
	Feasible bool
	Clipped  bool
	Verified bool
	Graph    rrgraph.Graph
	Trials   []model.TrialRecord
}

// Controller orchestrates trials against the oracles, owns the best-routing
// snapshot for the duration of the search, and narrows bounds until a
// minimum width is located or the run is declared infeasible. Strictly
// sequential: every trial mutates the one shared live solution.
type Controller struct {
	cfg  Config
	live *route.Solution
	snap *route.Snapshot

	trials  []model.TrialRecord
	attempt int
	clipped bool
}

// New builds a controller over the live solution. The snapshot arena is
// allocated once per search invocation.
func New(cfg Config, live *route.Solution) (*Controller, error) {
	if cfg.Arch == nil || cfg.Device == nil {
		return nil, fmt.Errorf("search requires an architecture and a device")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("search requires a routing oracle")
	}
	if cfg.Policy == route.PlaceAlways && cfg.Placer == nil {
		return nil, fmt.Errorf("per-width placement requires a placement oracle")
	}
	return &Controller{cfg: cfg, live: live, snap: route.NewSnapshot()}, nil
}

// Run performs the full minimum-width search: the binary search loop, the
// optional convergence pass, and the final graph rebuild, snapshot restore
// and legality check at the settled width. The finalize step must come
// last: the convergence trials scribble over the live solution, and only
// the restore puts the best routing back.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	final, err := c.search(ctx)
	if err != nil {
		return Result{Trials: c.trials}, err
	}

	verified := false
	if c.cfg.Verify {
		if final, err = c.verify(ctx, final); err != nil {
			return Result{Trials: c.trials}, err
		}
		verified = true
	}

	graph, err := c.finalize(final)
	if err != nil {
		return Result{Trials: c.trials}, err
	}

	if c.clipped {
		c.logf("Warning: output-pin connectivity was clipped to full connectivity during the search.\n")
	}
	c.logf("Best routing used a channel width factor of %d.\n", final)

	return Result{
		Final:    final,
		Feasible: true,
		Clipped:  c.clipped,
		Verified: verified,
		Graph:    graph,
		Trials:   c.trials,
	}, nil
}

// search runs the trial loop of the binary search and returns the located
// minimum width.
func (c *Controller) search(ctx context.Context) (int, error) {
	mult := c.cfg.Arch.Directionality.StepMultiplier()

	var b Bounds
	usedHint := false
	switch {
	case c.cfg.FixedWidth.Known:
		b.Current = c.cfg.FixedWidth.Value + fixedSeedStep*mult
		b.Low = KnownBound(c.cfg.FixedWidth.Value - 1*mult)
	case c.cfg.Hint.Known:
		c.logf("Initializing minimum channel width search from the width hint.\n")
		b.Current = c.cfg.Hint.Value
		usedHint = true
	default:
		c.logf("Initializing minimum channel width search from the maximum block pin count.\n")
		maxPins := c.cfg.Device.MaxPinsPerBlock()
		b.Current = maxPins + maxPins%2
	}

	// Constraint checks that would otherwise break the graph generator.
	if c.cfg.Arch.Directionality == arch.Unidirectional {
		if b.Current%2 != 0 {
			return 0, fmt.Errorf("odd channel width %d in a unidirectional architecture (width must be even)", b.Current)
		}
	} else if c.cfg.Arch.Fs%3 != 0 {
		return 0, fmt.Errorf("fs must be a multiple of three in bidirectional mode, got %d", c.cfg.Arch.Fs)
	}
	if b.Current <= 0 {
		return 0, fmt.Errorf("initial channel width must be positive, got %d", b.Current)
	}

	for !b.Final.Known {
		c.logf("Attempting to route at %d tracks (search bounds: [%s, %s])\n", b.Current, b.Low, b.High)

		// Value ceilings are the only runaway guards; a trial itself may
		// run unbounded.
		if c.cfg.FixedWidth.Known {
			if b.Current > c.cfg.FixedWidth.Value*fixedOverflowMult {
				return 0, fmt.Errorf("circuit appears unroutable with the current options, last failure at %s", b.Low)
			}
		} else if b.Current > maxUnconstrainedWidth {
			return 0, fmt.Errorf("circuit requires a channel width above %d, aborting", maxUnconstrainedWidth)
		}

		// Below this width the switch fan-out cannot be satisfied at all.
		if b.Current*3 < c.cfg.Arch.Fs {
			c.logf("Width factor dropped below the Fs floor, stopping search.\n")
			if !b.High.Known {
				return 0, ErrInfeasible
			}
			return b.High.Value, nil
		}

		outcome, err := c.trial(ctx, b.Current, model.PhaseSearch, b)
		if err != nil {
			return 0, err
		}

		scale := 2.0
		if outcome.Success && !outcome.FcClipped {
			route.Save(c.snap, c.live)
			if usedHint && c.attempt == 1 {
				// The hint routed on the first try: contract gently
				// toward the user's estimate instead of halving.
				scale = 1.1
			}
		}

		if b, err = NextTrial(b, outcome, mult, scale, c.cfg.FixedWidth); err != nil {
			return 0, err
		}
	}

	return b.Final.Value, nil
}

// trial runs one placement (per policy) and one routing attempt at the
// given width, recording telemetry.
func (c *Controller) trial(ctx context.Context, width int, phase model.TrialPhase, b Bounds) (route.TrialOutcome, error) {
	if err := ctx.Err(); err != nil {
		return route.TrialOutcome{}, err
	}
	if c.cfg.Policy == route.PlaceAlways {
		if err := c.cfg.Placer.Place(ctx, width, c.live); err != nil {
			return route.TrialOutcome{}, fmt.Errorf("place at width %d: %w", width, err)
		}
	}

	outcome, err := c.cfg.Router.Route(ctx, width, c.live)
	if err != nil {
		return route.TrialOutcome{}, fmt.Errorf("route at width %d: %w", width, err)
	}
	c.attempt++

	if outcome.Success && outcome.FcClipped {
		c.clipped = true
		c.logf("Routing at %d tracks rejected: output-pin connectivity was clipped.\n", width)
	} else if outcome.Success {
		c.logf("Circuit routed at %d tracks.\n", width)
	} else {
		c.logf("Circuit is unroutable at %d tracks.\n", width)
	}

	rec := model.TrialRecord{
		Index:     c.attempt,
		Width:     width,
		Success:   outcome.Success,
		FcClipped: outcome.FcClipped,
		Phase:     phase,
	}
	if b.Low.Known {
		rec.Low = b.Low.Value
	} else {
		rec.Low = -1
	}
	if b.High.Known {
		rec.High = b.High.Value
	} else {
		rec.High = -1
	}
	c.trials = append(c.trials, rec)
	return outcome, nil
}

// finalize rebuilds the resource graph at the settled width, restores the
// best routing into the live solution, and re-checks its legality.
func (c *Controller) finalize(final int) (rrgraph.Graph, error) {
	if !c.snap.Saved() {
		return rrgraph.Graph{}, ErrInfeasible
	}

	graph, err := rrgraph.Build(final, c.cfg.Arch, c.cfg.Device)
	if err != nil {
		return rrgraph.Graph{}, err
	}
	route.Restore(c.live, c.snap)
	if err := rrgraph.CheckRoute(c.cfg.Arch.RouteType, graph, c.cfg.Device, c.live); err != nil {
		return rrgraph.Graph{}, fmt.Errorf("final routing failed legality check: %w", err)
	}
	return graph, nil
}

// Trials exposes the telemetry accumulated so far, for persistence after a
// failed run.
func (c *Controller) Trials() []model.TrialRecord {
	return c.trials
}

func (c *Controller) logf(format string, args ...any) {
	if c.cfg.Progress == nil {
		return
	}
	fmt.Fprintf(c.cfg.Progress, format, args...)
}
