// Package chanw turns a scalar channel width factor into concrete per-row
// and per-column track counts, honoring the architecture's channel width
// distribution profiles.
package chanw

import (
	"fmt"
	"math"

	"chanwidth/internal/arch"
)

// Assignment is the materialized track-count assignment for one width
// factor. XList holds x-directed channel widths indexed 0..NY, YList holds
// y-directed channel widths indexed 0..NX. Aggregates are cached after fill.
type Assignment struct {
	Factor int   `json:"factor"`
	XList  []int `json:"x_list"`
	YList  []int `json:"y_list"`
	Max    int   `json:"max"`
	XMax   int   `json:"x_max"`
	XMin   int   `json:"x_min"`
	YMax   int   `json:"y_max"`
	YMin   int   `json:"y_min"`
}

// Build assigns widths to all channels for the given factor. Boundary (I/O)
// channels get the I/O relative width scaled by the factor; interior
// channels evaluate the axis profile at their normalized position. Every
// channel is at least one track wide.
func Build(factor int, dist arch.ChanWidthDist, nx, ny int) (Assignment, error) {
	if factor <= 0 {
		return Assignment{}, fmt.Errorf("width factor must be positive, got %d", factor)
	}

	a := Assignment{
		Factor: factor,
		XList:  make([]int, ny+1),
		YList:  make([]int, nx+1),
	}

	nio := roundHalfUp(float64(factor) * dist.IORelativeWidth)
	if nio < 1 {
		nio = 1
	}
	a.XList[0], a.XList[ny] = nio, nio
	a.YList[0], a.YList[nx] = nio, nio

	if ny > 1 {
		// Normalized distance between two channels; the i=0 position is
		// pinned to 0 to avoid a division by zero when ny == 2.
		separation := 1.0 / float64(ny-2)
		for i := 0; i < ny-1; i++ {
			pos := 0.0
			if i > 0 {
				pos = float64(i) / float64(ny-2)
			}
			val, err := profileValue(dist.X, pos, separation)
			if err != nil {
				return Assignment{}, err
			}
			w := roundHalfUp(float64(factor) * val)
			if w < 1 {
				w = 1
			}
			a.XList[i+1] = w
		}
	}

	if nx > 1 {
		separation := 1.0 / float64(nx-2)
		for i := 0; i < nx-1; i++ {
			pos := 0.0
			if i > 0 {
				pos = float64(i) / float64(nx-2)
			}
			val, err := profileValue(dist.Y, pos, separation)
			if err != nil {
				return Assignment{}, err
			}
			w := roundHalfUp(float64(factor) * val)
			if w < 1 {
				w = 1
			}
			a.YList[i+1] = w
		}
	}

	a.cacheAggregates()
	return a, nil
}

// profileValue returns the relative channel density at normalized position
// pos in [0,1]. separation is the normalized distance between two adjacent
// channels, used by the delta profile's acceptance window.
func profileValue(p arch.ChannelProfile, pos, separation float64) (float64, error) {
	switch p.Kind {
	case arch.ProfileUniform:
		return p.Peak, nil

	case arch.ProfileGaussian:
		val := (pos - p.XPeak) * (pos - p.XPeak) / (2 * p.Width * p.Width)
		return p.Peak*math.Exp(-val) + p.DC, nil

	case arch.ProfilePulse:
		if math.Abs(pos-p.XPeak) > p.Width/2 {
			return p.DC, nil
		}
		return p.Peak + p.DC, nil

	case arch.ProfileDelta:
		d := pos - p.XPeak
		if d > -separation/2 && d <= separation/2 {
			return p.Peak + p.DC, nil
		}
		return p.DC, nil

	default:
		return 0, fmt.Errorf("unknown channel profile kind: %q", p.Kind)
	}
}

func (a *Assignment) cacheAggregates() {
	a.Max = 0
	a.XMax, a.YMax = math.MinInt, math.MinInt
	a.XMin, a.YMin = math.MaxInt, math.MaxInt
	for _, w := range a.XList {
		if w > a.Max {
			a.Max = w
		}
		if w > a.XMax {
			a.XMax = w
		}
		if w < a.XMin {
			a.XMin = w
		}
	}
	for _, w := range a.YList {
		if w > a.Max {
			a.Max = w
		}
		if w > a.YMax {
			a.YMax = w
		}
		if w < a.YMin {
			a.YMin = w
		}
	}
}

// MinInterior returns the narrowest channel on the device, the binding
// capacity for the reference router's demand model.
func (a *Assignment) MinInterior() int {
	minW := math.MaxInt
	for _, w := range a.XList {
		if w < minW {
			minW = w
		}
	}
	for _, w := range a.YList {
		if w < minW {
			minW = w
		}
	}
	return minW
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
