package route

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"chanwidth/internal/arch"
	"chanwidth/internal/chanw"
)

// SpreadPlacer is the reference placement oracle: a deterministic row-major
// spread of blocks over the grid. It stands in for a real annealing placer
// behind the Placer interface.
type SpreadPlacer struct {
	Device *arch.Device
}

func (p *SpreadPlacer) Place(_ context.Context, width int, live *Solution) error {
	if p.Device == nil {
		return fmt.Errorf("spread placer requires a device")
	}
	if len(live.Placement) != len(p.Device.Blocks) {
		return fmt.Errorf("placement arena sized for %d blocks, device has %d",
			len(live.Placement), len(p.Device.Blocks))
	}
	for i := range p.Device.Blocks {
		live.Placement[i] = GridLoc{
			X: i % p.Device.NX,
			Y: (i / p.Device.NX) % p.Device.NY,
			Z: i / (p.Device.NX * p.Device.NY),
		}
	}
	live.Width = width
	return nil
}

// CapacityRouter is the reference routing oracle: it materializes the trial
// width into a track assignment and routes if the narrowest channel can
// carry the per-channel net demand. Flakiness injects stochastic spurious
// successes one track below the deterministic threshold, the behavior the
// convergence verifier exists to compensate for.
type CapacityRouter struct {
	Arch   *arch.RoutingArch
	Device *arch.Device

	// DemandPerNet scales how many track-segments one net consumes.
	// Defaults to 1 when zero.
	DemandPerNet float64

	// FcOutAbsolute is the requested output-pin connectivity in tracks.
	// When it exceeds the narrowest channel, the router clips it to full
	// connectivity and flags the outcome.
	FcOutAbsolute int

	// Flakiness in [0,1) is the probability that a width one step short of
	// the threshold spuriously routes. Zero keeps the oracle monotone.
	Flakiness float64
	Rand      *rand.Rand
}

// MinFeasibleWidth returns the smallest factor whose assignment carries the
// demand, ignoring flakiness. Exposed so tests and reports can name the
// deterministic threshold.
func (r *CapacityRouter) MinFeasibleWidth() int {
	for w := 1; w <= 4096; w++ {
		a, err := chanw.Build(w, r.Arch.ChanWidth, r.Device.NX, r.Device.NY)
		if err != nil {
			return -1
		}
		if a.MinInterior() >= r.demandPerChannel() {
			return w
		}
	}
	return -1
}

func (r *CapacityRouter) demandPerChannel() int {
	perNet := r.DemandPerNet
	if perNet <= 0 {
		perNet = 1
	}
	channels := (r.Device.NX + 1) + (r.Device.NY + 1)
	demand := float64(len(r.Device.Nets)) * perNet / float64(channels)
	return int(math.Ceil(demand))
}

func (r *CapacityRouter) Route(_ context.Context, width int, live *Solution) (TrialOutcome, error) {
	if r.Arch == nil || r.Device == nil {
		return TrialOutcome{}, fmt.Errorf("capacity router requires an architecture and a device")
	}

	assignment, err := chanw.Build(width, r.Arch.ChanWidth, r.Device.NX, r.Device.NY)
	if err != nil {
		return TrialOutcome{}, err
	}

	capacity := assignment.MinInterior()
	demand := r.demandPerChannel()

	success := capacity >= demand
	if !success && r.Flakiness > 0 && r.Rand != nil && capacity >= demand-1 {
		success = r.Rand.Float64() < r.Flakiness
	}

	live.Width = width
	if !success {
		// Failed trials leave a usable-but-rejected state behind; the next
		// trial overwrites it.
		clearArena(live.Traces)
		clearArena(live.OpinUsage)
		return TrialOutcome{}, nil
	}

	r.installRouting(width, assignment, live)

	clipped := r.FcOutAbsolute > 0 && r.FcOutAbsolute > capacity
	return TrialOutcome{Success: true, FcClipped: clipped}, nil
}

// installRouting writes a deterministic trace and output-pin usage for the
// routed width. Node ids index the track arena of the graph built at the
// same width, so a restored snapshot stays legal after the final rebuild.
func (r *CapacityRouter) installRouting(width int, assignment chanw.Assignment, live *Solution) {
	totalTracks := 0
	for _, w := range assignment.XList {
		totalTracks += w
	}
	for _, w := range assignment.YList {
		totalTracks += w
	}

	for i, net := range r.Device.Nets {
		hops := len(net.Blocks) + 1
		trace := make([]int, 0, hops)
		for h := 0; h < hops; h++ {
			trace = append(trace, (net.ID*31+h*7)%totalTracks)
		}
		live.Traces[i] = trace
	}

	for i := range r.Device.Blocks {
		bt, err := r.Device.TypeOf(i)
		if err != nil {
			continue
		}
		usage := make([]int, bt.NumClasses)
		for c := range usage {
			usage[c] = (i + c) % (width + 1)
		}
		live.OpinUsage[i] = usage
	}
}

func clearArena(arena [][]int) {
	for i := range arena {
		arena[i] = nil
	}
}
