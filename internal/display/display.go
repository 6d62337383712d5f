// Package display implements the CU2/CU3 display façade: translating
// internal controller state into the bit-exact command payloads each head
// unit expects, behind a single Display interface (spec.md §9's "tagged
// variant" redesign of the original #ifdef CONFIG_ION_CU2/CU3 split).
package display

import (
	"time"

	"github.com/librescoot/bms-controller/internal/bus"
)

// BlinkSpeed is CU2's two-bit per-segment blink state.
type BlinkSpeed uint8

const (
	BlinkOff BlinkSpeed = iota
	BlinkFast
	BlinkSlow
	BlinkSolid
)

// DisplayType selects which of CU3's three screens is shown.
type DisplayType uint8

const (
	DspScreen DisplayType = iota
	DspBatCharge
	DspBat
)

// State is everything the façade needs to render a frame.
type State struct {
	Type        DisplayType
	ScreenOn    bool
	LightOn     bool
	Battery2    bool
	Assist      uint8
	Speed       uint16 // km/h * 10
	Trip1       uint32 // 10m units
	Trip2       uint32 // 10m units
	BatteryPct  uint8
	SetDefault  bool
}

// Display pushes state to a physical head unit over the bus.
type Display interface {
	Push(engine *bus.Engine, state State) error
}

// None is used when no display is configured present on the bus.
type None struct{}

func (None) Push(*bus.Engine, State) error { return nil }

// ExchangeTimeout is the per-push exchange timeout CU3 uses
// (displayUpdateCu3 in the original source calls exchange with 225ms).
const ExchangeTimeout = 225 * time.Millisecond
