// Package pnr is the top-level place-and-route flow: placement per policy,
// then either a single routing pass at a fixed channel width or the
// minimum-width binary search.
package pnr

import (
	"context"
	"fmt"
	"io"

	"chanwidth/internal/arch"
	"chanwidth/internal/model"
	"chanwidth/internal/route"
	"chanwidth/internal/rrgraph"
	"chanwidth/internal/search"
)

// Config selects the flow mode and wires the collaborators.
type Config struct {
	Arch   *arch.RoutingArch
	Device *arch.Device
	Placer route.Placer
	Router route.Router
	Policy route.PlacePolicy

	// DoRouting false stops after placement (and a graph build when a
	// fixed width is given).
	DoRouting bool

	// FixedWidth routes once at the given width instead of searching.
	// With FsSearch set it instead runs the minimum-width-satisfying-Fs
	// sub-search seeded around the fixed width.
	FixedWidth search.Bound
	FsSearch   bool

	Hint     search.Bound
	Verify   bool
	Progress io.Writer
}

// Outcome is the result of a completed flow.
type Outcome struct {
	Width    int
	Feasible bool
	Clipped  bool
	Verified bool
	Graph    rrgraph.Graph
	Trials   []model.TrialRecord
}

// Run drives the flow over the shared live solution. The solution is owned
// exclusively by this call for its whole duration.
func Run(ctx context.Context, cfg Config, live *route.Solution) (Outcome, error) {
	if cfg.Arch == nil || cfg.Device == nil {
		return Outcome{}, fmt.Errorf("flow requires an architecture and a device")
	}

	if cfg.Policy != route.PlaceNever {
		if cfg.Placer == nil {
			return Outcome{}, fmt.Errorf("placement policy %s requires a placement oracle", cfg.Policy)
		}
		if err := cfg.Placer.Place(ctx, initialPlaceWidth(cfg), live); err != nil {
			return Outcome{}, fmt.Errorf("initial placement: %w", err)
		}
	}

	if !cfg.DoRouting {
		if cfg.FixedWidth.Known {
			graph, err := rrgraph.Build(cfg.FixedWidth.Value, cfg.Arch, cfg.Device)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Width: cfg.FixedWidth.Value, Graph: graph}, nil
		}
		return Outcome{}, nil
	}

	if cfg.FixedWidth.Known && !cfg.FsSearch {
		return routeFixed(ctx, cfg, live)
	}

	ctrl, err := search.New(search.Config{
		Arch:       cfg.Arch,
		Device:     cfg.Device,
		Placer:     cfg.Placer,
		Router:     cfg.Router,
		Policy:     cfg.Policy,
		FixedWidth: fsSearchBound(cfg),
		Hint:       cfg.Hint,
		Verify:     cfg.Verify,
		Progress:   cfg.Progress,
	}, live)
	if err != nil {
		return Outcome{}, err
	}

	result, err := ctrl.Run(ctx)
	if err != nil {
		return Outcome{Trials: result.Trials}, err
	}
	return Outcome{
		Width:    result.Final,
		Feasible: result.Feasible,
		Clipped:  result.Clipped,
		Verified: result.Verified,
		Graph:    result.Graph,
		Trials:   result.Trials,
	}, nil
}

// routeFixed is the one-pass flow at a user-specified channel width.
func routeFixed(ctx context.Context, cfg Config, live *route.Solution) (Outcome, error) {
	width := cfg.FixedWidth.Value
	if cfg.Arch.Directionality == arch.Unidirectional && width%2 != 0 {
		return Outcome{}, fmt.Errorf("odd channel width %d for a unidirectional architecture", width)
	}

	outcome, err := cfg.Router.Route(ctx, width, live)
	if err != nil {
		return Outcome{}, fmt.Errorf("route at width %d: %w", width, err)
	}
	trials := []model.TrialRecord{{
		Index:     1,
		Width:     width,
		Success:   outcome.Success,
		FcClipped: outcome.FcClipped,
		Phase:     model.PhaseFixed,
		Low:       -1,
		High:      -1,
	}}

	if !outcome.Success {
		logf(cfg.Progress, "Circuit is unroutable with a channel width factor of %d.\n", width)
		return Outcome{Width: width, Trials: trials}, nil
	}

	graph, err := rrgraph.Build(width, cfg.Arch, cfg.Device)
	if err != nil {
		return Outcome{Trials: trials}, err
	}
	if err := rrgraph.CheckRoute(cfg.Arch.RouteType, graph, cfg.Device, live); err != nil {
		return Outcome{Trials: trials}, fmt.Errorf("installed routing failed legality check: %w", err)
	}

	if outcome.FcClipped {
		logf(cfg.Progress, "Warning: output-pin connectivity was clipped to full connectivity.\n")
	}
	logf(cfg.Progress, "Circuit successfully routed with a channel width factor of %d.\n", width)

	return Outcome{
		Width:    width,
		Feasible: true,
		Clipped:  outcome.FcClipped,
		Graph:    graph,
		Trials:   trials,
	}, nil
}

// initialPlaceWidth picks the channel width the first placement is run at:
// the fixed width when given, else the hint, else the pin-count seed used
// by the search itself.
func initialPlaceWidth(cfg Config) int {
	switch {
	case cfg.FixedWidth.Known:
		return cfg.FixedWidth.Value
	case cfg.Hint.Known:
		return cfg.Hint.Value
	default:
		maxPins := cfg.Device.MaxPinsPerBlock()
		return maxPins + maxPins%2
	}
}

func fsSearchBound(cfg Config) search.Bound {
	if cfg.FsSearch {
		return cfg.FixedWidth
	}
	return search.Bound{}
}

func logf(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, format, args...)
}
