package route

import "context"

// Placer overwrites the global placement assignment for the given channel
// width. Implementations are expected to be deterministic for a fixed width
// and configuration.
type Placer interface {
	Place(ctx context.Context, width int, live *Solution) error
}

// Router tries to route the placed circuit with the given channel width
// factor, overwriting the live routing trace and per-block output-pin usage.
// A returned error is an oracle malfunction, not an unroutable circuit; the
// latter is an outcome with Success=false.
type Router interface {
	Route(ctx context.Context, width int, live *Solution) (TrialOutcome, error)
}
