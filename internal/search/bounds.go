// Package search locates the minimum routable channel width factor with a
// bounded binary search over an expensive, non-monotonic routing oracle,
// plus a convergence pass that guards against spurious minima.
package search

import (
	"errors"
	"fmt"

	"chanwidth/internal/route"
)

// ErrInfeasible is the normal negative result: the search never found a
// routable width. It is not a configuration fault.
var ErrInfeasible = errors.New("no feasible channel width found")

// Bound is an explicit optional width bound, replacing the legacy -1
// sentinel arithmetic.
type Bound struct {
	Value int
	Known bool
}

// KnownBound wraps a known width value.
func KnownBound(v int) Bound {
	return Bound{Value: v, Known: true}
}

func (b Bound) String() string {
	if !b.Known {
		return "?"
	}
	return fmt.Sprintf("%d", b.Value)
}

// Bounds is the per-trial state of the binary search. Current is the width
// under trial; Final is set exactly once, when the search has narrowed the
// bracket to within one parity step or hit an architecture floor.
type Bounds struct {
	Low     Bound
	High    Bound
	Current int
	Final   Bound
}

// NextTrial applies one bound-update step to the search state: bracket
// narrowing, the next probe width, and parity rounding. mult is the
// directionality step multiplier, scale the contraction factor (1.1 on the
// first step after a user hint, 2 otherwise), fixed the optional fixed-width
// floor driving the Fs sub-search. Pure: no oracle access.
func NextTrial(b Bounds, outcome route.TrialOutcome, mult int, scale float64, fixed Bound) (Bounds, error) {
	if outcome.Success && !outcome.FcClipped {
		// Cannot improve below a width we just re-proved.
		if b.High.Known && b.Current == b.High.Value {
			b.Final = KnownBound(b.Current)
		}
		b.High = KnownBound(b.Current)

		if b.Low.Known && b.High.Value-b.Low.Value <= mult {
			b.Final = b.High
		}
		if b.Low.Known {
			b.Current = int(float64(b.High.Value+b.Low.Value) / scale)
		} else {
			b.Current = int(float64(b.High.Value) / scale)
		}
	} else {
		// Clipped successes are scored as failures for bound narrowing.
		b.Low = KnownBound(b.Current)

		if b.High.Known {
			if b.High.Value-b.Low.Value <= mult {
				b.Final = b.High
			}
			b.Current = int(float64(b.High.Value+b.Low.Value) / scale)
		} else if fixed.Known {
			// Wneed = f(Fs) sub-search above a fixed width.
			if b.Low.Value >= fixed.Value+30 {
				return b, fmt.Errorf("fs-driven width search needs at least %d tracks, past the %d cap",
					b.Low.Value, fixed.Value+30)
			}
			b.Current = b.Low.Value + 5*mult
		} else {
			b.Current = int(float64(b.Low.Value) * scale)
		}
	}

	b.Current += b.Current % mult
	return b, nil
}
