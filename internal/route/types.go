// Package route holds the shared live routing/placement solution, the
// snapshot arena used to roll back to the best trial, and the oracle
// interfaces the width search drives.
package route

import "fmt"

// GridLoc is one placement location on the device grid.
type GridLoc struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// TrialOutcome is the result of one routing attempt. A success with
// FcClipped set means output-pin connectivity had to be capped to full
// connectivity; the search scores it as a failure but reports it apart.
type TrialOutcome struct {
	Success   bool
	FcClipped bool
}

// Solution is the one shared live solution mutated by the oracles. Traces
// and OpinUsage are arenas indexed by net id and block id respectively;
// snapshots copy them wholesale.
type Solution struct {
	Width     int
	Placement []GridLoc
	Traces    [][]int
	OpinUsage [][]int
}

// NewSolution allocates a live solution sized for the device.
func NewSolution(numBlocks, numNets int) *Solution {
	return &Solution{
		Placement: make([]GridLoc, numBlocks),
		Traces:    make([][]int, numNets),
		OpinUsage: make([][]int, numBlocks),
	}
}

// PlacePolicy controls how often placement is re-run during the search.
type PlacePolicy int

const (
	PlaceNever PlacePolicy = iota
	PlaceOnce
	PlaceAlways
)

func (p PlacePolicy) String() string {
	switch p {
	case PlaceNever:
		return "never"
	case PlaceOnce:
		return "once"
	case PlaceAlways:
		return "always"
	default:
		return "unknown"
	}
}

// ParsePlacePolicy maps a config string onto a PlacePolicy.
func ParsePlacePolicy(s string) (PlacePolicy, error) {
	switch s {
	case "", "once":
		return PlaceOnce, nil
	case "never":
		return PlaceNever, nil
	case "always":
		return PlaceAlways, nil
	default:
		return 0, fmt.Errorf("unsupported placement policy: %s", s)
	}
}
