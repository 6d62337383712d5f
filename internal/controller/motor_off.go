package controller

import (
	"time"

	"github.com/librescoot/bms-controller/internal/blink"
	"github.com/librescoot/bms-controller/internal/persistence"
)

var motorOffBlink = blink.Pattern{Blinks: 4, OnTime: 100 * time.Millisecond, OffTime: 300 * time.Millisecond}

// toMotorOff matches toMotorOffState(): a 4-blink pattern and a trip/
// distance save, since this is the point the original firmware considers
// the ride over.
func (c *Controller) toMotorOff() {
	c.Blink.Queue(motorOffBlink)

	if c.Trip != nil && c.Store != nil {
		persistence.SaveDistance(c.Store, persistence.Distance{
			Trip1: c.Trip.Trip1,
			Trip2: c.Trip.Trip2,
			Total: c.Trip.Total,
		})
	}

	c.State = MotorOff
	c.Step = 0
}

// handleMotorOff matches handleMotorOffState(): the motor (or display, on
// a CU3) may still send handoffs for a while; either a local button press
// or a bus wakeup means it's time to start up again.
func (c *Controller) handleMotorOff(in Input) {
	if in.ModeShortPress || in.Wakeup {
		c.toTurnMotorOn()
	}
}
