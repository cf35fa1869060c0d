// Package arch models the routing-architecture constraints and the mapped
// device consumed by the channel-width search: directionality, switch
// fan-out, channel-width distribution profiles and the block grid.
package arch

import (
	"encoding/json"
	"fmt"
	"os"
)

// Directionality describes whether routing wires are unidirectional or
// bidirectional. It determines the parity constraint on channel widths and
// the step multiplier used in bound arithmetic.
type Directionality int

const (
	Unidirectional Directionality = iota
	Bidirectional
)

func (d Directionality) String() string {
	switch d {
	case Unidirectional:
		return "unidirectional"
	case Bidirectional:
		return "bidirectional"
	default:
		return "unknown"
	}
}

// StepMultiplier returns the width step used throughout bound arithmetic:
// unidirectional widths must stay even, so the step is 2.
func (d Directionality) StepMultiplier() int {
	if d == Unidirectional {
		return 2
	}
	return 1
}

// ParseDirectionality maps a config string onto a Directionality.
func ParseDirectionality(s string) (Directionality, error) {
	switch s {
	case "", "bidir", "bidirectional":
		return Bidirectional, nil
	case "unidir", "unidirectional":
		return Unidirectional, nil
	default:
		return 0, fmt.Errorf("unsupported directionality: %s", s)
	}
}

// RouteType selects global versus detailed routing legality rules.
type RouteType int

const (
	RouteGlobal RouteType = iota
	RouteDetailed
)

func (t RouteType) String() string {
	switch t {
	case RouteGlobal:
		return "global"
	case RouteDetailed:
		return "detailed"
	default:
		return "unknown"
	}
}

func ParseRouteType(s string) (RouteType, error) {
	switch s {
	case "", "detailed":
		return RouteDetailed, nil
	case "global":
		return RouteGlobal, nil
	default:
		return 0, fmt.Errorf("unsupported route type: %s", s)
	}
}

// ProfileKind identifies a channel-width distribution profile.
type ProfileKind string

const (
	ProfileUniform  ProfileKind = "uniform"
	ProfileGaussian ProfileKind = "gaussian"
	ProfilePulse    ProfileKind = "pulse"
	ProfileDelta    ProfileKind = "delta"
)

// ChannelProfile is the functional description of one axis of the channel
// width distribution. Peak, Width, XPeak and DC parameterize the profile
// curve over the normalized [0,1] position across the chip.
type ChannelProfile struct {
	Kind  ProfileKind `json:"kind"`
	Peak  float64     `json:"peak"`
	Width float64     `json:"width,omitempty"`
	XPeak float64     `json:"xpeak,omitempty"`
	DC    float64     `json:"dc,omitempty"`
}

// ChanWidthDist holds both axis profiles plus the relative width of the I/O
// channel between the pads and the logic array.
type ChanWidthDist struct {
	IORelativeWidth float64        `json:"io_relative_width"`
	X               ChannelProfile `json:"x"`
	Y               ChannelProfile `json:"y"`
}

// SegmentInfo describes one wire segment type from the architecture. The
// search consumes it as an opaque constraint table.
type SegmentInfo struct {
	Name           string  `json:"name"`
	Length         int     `json:"length"`
	Frequency      int     `json:"frequency"`
	RMetal         float64 `json:"r_metal,omitempty"`
	CMetal         float64 `json:"c_metal,omitempty"`
	Directionality string  `json:"directionality,omitempty"`
}

// SwitchInfo describes one programmable switch type.
type SwitchInfo struct {
	Name     string  `json:"name"`
	Buffered bool    `json:"buffered"`
	R        float64 `json:"r,omitempty"`
	CIn      float64 `json:"c_in,omitempty"`
	COut     float64 `json:"c_out,omitempty"`
	TDel     float64 `json:"t_del,omitempty"`
}

// RoutingArch bundles the routing constraints consumed by the search.
type RoutingArch struct {
	Name           string         `json:"name"`
	Directionality Directionality `json:"-"`
	RouteType      RouteType      `json:"-"`
	Fs             int            `json:"fs"`
	ChanWidth      ChanWidthDist  `json:"chan_width"`
	Segments       []SegmentInfo  `json:"segments,omitempty"`
	Switches       []SwitchInfo   `json:"switches,omitempty"`

	// JSON carries the enums as strings.
	DirectionalityName string `json:"directionality"`
	RouteTypeName      string `json:"route_type,omitempty"`
}

// BlockType describes one logic block type on the device grid.
type BlockType struct {
	Name       string `json:"name"`
	NumPins    int    `json:"num_pins"`
	NumClasses int    `json:"num_classes"`
}

// Block is one placed instance of a block type.
type Block struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// Net is one routed connection between blocks, carried for the capacity
// model of the reference router.
type Net struct {
	ID     int   `json:"id"`
	Blocks []int `json:"blocks"`
}

// Device is the mapped circuit: grid extents, block types, block instances
// and nets.
type Device struct {
	Name       string      `json:"name"`
	NX         int         `json:"nx"`
	NY         int         `json:"ny"`
	BlockTypes []BlockType `json:"block_types"`
	Blocks     []Block     `json:"blocks"`
	Nets       []Net       `json:"nets,omitempty"`
}

// MaxPinsPerBlock returns the largest pin count over all block types. It
// seeds the unconstrained initial search guess.
func (d *Device) MaxPinsPerBlock() int {
	maxPins := 0
	for _, bt := range d.BlockTypes {
		if bt.NumPins > maxPins {
			maxPins = bt.NumPins
		}
	}
	return maxPins
}

// TypeOf resolves the block type of a block instance.
func (d *Device) TypeOf(blockID int) (BlockType, error) {
	if blockID < 0 || blockID >= len(d.Blocks) {
		return BlockType{}, fmt.Errorf("block id out of range: %d", blockID)
	}
	name := d.Blocks[blockID].Type
	for _, bt := range d.BlockTypes {
		if bt.Name == name {
			return bt, nil
		}
	}
	return BlockType{}, fmt.Errorf("block %d references unknown type: %s", blockID, name)
}

// Validate checks the structural invariants the search relies on.
func (d *Device) Validate() error {
	if d.NX < 1 || d.NY < 1 {
		return fmt.Errorf("device grid must be at least 1x1, got %dx%d", d.NX, d.NY)
	}
	if len(d.BlockTypes) == 0 {
		return fmt.Errorf("device has no block types")
	}
	for i := range d.Blocks {
		if _, err := d.TypeOf(i); err != nil {
			return err
		}
	}
	for _, net := range d.Nets {
		for _, b := range net.Blocks {
			if b < 0 || b >= len(d.Blocks) {
				return fmt.Errorf("net %d references block out of range: %d", net.ID, b)
			}
		}
	}
	return nil
}

// Validate checks the architecture constraints the search relies on.
func (a *RoutingArch) Validate() error {
	if a.Fs <= 0 {
		return fmt.Errorf("fs must be positive, got %d", a.Fs)
	}
	if a.ChanWidth.IORelativeWidth <= 0 {
		return fmt.Errorf("io relative channel width must be positive, got %g", a.ChanWidth.IORelativeWidth)
	}
	return nil
}

// LoadArch reads a routing architecture from a JSON file and resolves the
// string-carried enums.
func LoadArch(path string) (RoutingArch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoutingArch{}, err
	}
	var a RoutingArch
	if err := json.Unmarshal(data, &a); err != nil {
		return RoutingArch{}, fmt.Errorf("parse architecture %s: %w", path, err)
	}
	if a.Directionality, err = ParseDirectionality(a.DirectionalityName); err != nil {
		return RoutingArch{}, err
	}
	if a.RouteType, err = ParseRouteType(a.RouteTypeName); err != nil {
		return RoutingArch{}, err
	}
	if err := a.Validate(); err != nil {
		return RoutingArch{}, fmt.Errorf("architecture %s: %w", path, err)
	}
	return a, nil
}

// LoadDevice reads a mapped device from a JSON file.
func LoadDevice(path string) (Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Device{}, err
	}
	var d Device
	if err := json.Unmarshal(data, &d); err != nil {
		return Device{}, fmt.Errorf("parse device %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return Device{}, fmt.Errorf("device %s: %w", path, err)
	}
	return d, nil
}
