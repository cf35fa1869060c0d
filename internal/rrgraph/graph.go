// Package rrgraph builds the routing-resource bookkeeping for one channel
// width factor and checks installed routings against it.
package rrgraph

import (
	"fmt"

	"chanwidth/internal/arch"
	"chanwidth/internal/chanw"
	"chanwidth/internal/route"
)

// Graph is the per-width routing-resource bookkeeping: the materialized
// channel assignment plus node and switch counts derived from it.
type Graph struct {
	Width       int
	Chan        chanw.Assignment
	NumTracks   int
	NumNodes    int
	NumSwitches int
}

// Build materializes a width factor into the resource graph for the device.
// Invoked once at the settled final width and once per fixed-width run.
func Build(width int, a *arch.RoutingArch, d *arch.Device) (Graph, error) {
	assignment, err := chanw.Build(width, a.ChanWidth, d.NX, d.NY)
	if err != nil {
		return Graph{}, err
	}

	tracks := 0
	for _, w := range assignment.XList {
		tracks += w
	}
	for _, w := range assignment.YList {
		tracks += w
	}

	pins := 0
	for i := range d.Blocks {
		bt, err := d.TypeOf(i)
		if err != nil {
			return Graph{}, err
		}
		pins += bt.NumPins
	}

	return Graph{
		Width:       width,
		Chan:        assignment,
		NumTracks:   tracks,
		NumNodes:    tracks + pins,
		NumSwitches: tracks * a.Fs,
	}, nil
}

// CheckRoute verifies the consistency invariants of the installed routing:
// every trace node must exist in the graph's track arena, and per-block
// output-pin usage must stay within class bounds. Violations are fatal.
func CheckRoute(routeType arch.RouteType, g Graph, d *arch.Device, live *route.Solution) error {
	if live.Width != g.Width {
		return fmt.Errorf("installed routing is for width %d, graph built for %d", live.Width, g.Width)
	}

	for netID, trace := range live.Traces {
		if len(trace) == 0 {
			return fmt.Errorf("net %d has no routing trace", netID)
		}
		for _, node := range trace {
			if node < 0 || node >= g.NumTracks {
				return fmt.Errorf("net %d uses track node %d outside graph (have %d)", netID, node, g.NumTracks)
			}
		}
	}

	// Global routing places no bound on local output pin sharing.
	if routeType == arch.RouteGlobal {
		return nil
	}

	for blockID, usage := range live.OpinUsage {
		bt, err := d.TypeOf(blockID)
		if err != nil {
			return err
		}
		if len(usage) > bt.NumClasses {
			return fmt.Errorf("block %d has opin usage for %d classes, type %s has %d",
				blockID, len(usage), bt.Name, bt.NumClasses)
		}
		for class, count := range usage {
			if count < 0 || count > g.Width {
				return fmt.Errorf("block %d class %d opin usage %d exceeds channel width %d",
					blockID, class, count, g.Width)
			}
		}
	}
	return nil
}
