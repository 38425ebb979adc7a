package session

import (
	"fmt"
)

// Mode is the current interaction mode of a screen
type Mode int

const (
	ModeNotReady Mode = iota
	ModeReady
	ModeAddingStops
	ModeAddingBarriers
	ModeAddingCircle
	ModeAddingFacilities
	ModeAddingBarrierLines
	ModeRouting
)

var modeNames = map[Mode]string{
	ModeNotReady:           "not_ready",
	ModeReady:              "ready",
	ModeAddingStops:        "adding_stops",
	ModeAddingBarriers:     "adding_barriers",
	ModeAddingCircle:       "adding_circle",
	ModeAddingFacilities:   "adding_facilities",
	ModeAddingBarrierLines: "adding_barrier_lines",
	ModeRouting:            "routing",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name back into a Mode
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeNotReady, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Affordances are the user actions enabled in a mode. On the service area
// screen StopEntry arms facility entry and BarrierEntry arms barrier lines.
type Affordances struct {
	StopEntry    bool `json:"stop_entry"`
	BarrierEntry bool `json:"barrier_entry"`
	Route        bool `json:"route"`
	Directions   bool `json:"directions"`
	Reset        bool `json:"reset"`
}

var readyAffordances = Affordances{
	StopEntry:    true,
	BarrierEntry: true,
	Route:        true,
	Directions:   true,
	Reset:        true,
}

// AffordancesFor returns the actions enabled in m. The adding modes keep
// every Ready action enabled.
func AffordancesFor(m Mode) Affordances {
	switch m {
	case ModeReady, ModeAddingStops, ModeAddingBarriers, ModeAddingCircle,
		ModeAddingFacilities, ModeAddingBarrierLines:
		return readyAffordances
	case ModeNotReady, ModeRouting:
		return Affordances{}
	}
	return Affordances{}
}

// allows reports whether a user may switch into target from these affordances
func (a Affordances) allows(target Mode) bool {
	switch target {
	case ModeAddingStops, ModeAddingFacilities:
		return a.StopEntry
	case ModeAddingBarriers, ModeAddingCircle, ModeAddingBarrierLines:
		return a.BarrierEntry
	case ModeReady:
		return a != Affordances{}
	case ModeNotReady, ModeRouting:
		return false
	}
	return false
}

// ModeController tracks the active mode. Transitions are total.
type ModeController struct {
	mode Mode
}

// SetMode overwrites the current mode and returns its affordances
func (c *ModeController) SetMode(m Mode) Affordances {
	c.mode = m
	return AffordancesFor(m)
}

func (c *ModeController) Mode() Mode {
	return c.mode
}

func (c *ModeController) Affordances() Affordances {
	return AffordancesFor(c.mode)
}
