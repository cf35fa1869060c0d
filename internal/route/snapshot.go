package route

// Snapshot is a deep copy of the routing trace and per-block output-pin
// usage. The search controller owns exactly one snapshot per invocation and
// overwrites it on every qualifying success; it is never merged with the
// live solution, only swapped in wholesale.
type Snapshot struct {
	width     int
	traces    [][]int
	opinUsage [][]int
	placement []GridLoc
	saved     bool
}

// NewSnapshot allocates an empty snapshot arena.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Saved reports whether the snapshot holds a routing.
func (s *Snapshot) Saved() bool {
	return s.saved
}

// Width returns the channel width the saved routing was found at.
func (s *Snapshot) Width() int {
	return s.width
}

// Save replaces the snapshot contents with a deep copy of the live solution.
func Save(dst *Snapshot, live *Solution) {
	dst.width = live.Width
	dst.traces = copyArena(live.Traces)
	dst.opinUsage = copyArena(live.OpinUsage)
	dst.placement = append([]GridLoc(nil), live.Placement...)
	dst.saved = true
}

// Restore replaces the live solution with a deep copy of the snapshot.
func Restore(live *Solution, src *Snapshot) {
	live.Width = src.width
	live.Traces = copyArena(src.traces)
	live.OpinUsage = copyArena(src.opinUsage)
	live.Placement = append([]GridLoc(nil), src.placement...)
}

func copyArena(src [][]int) [][]int {
	out := make([][]int, len(src))
	for i, row := range src {
		out[i] = append([]int(nil), row...)
	}
	return out
}
