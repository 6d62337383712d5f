package controller

import (
	"time"

	"github.com/librescoot/bms-controller/internal/blink"
	"github.com/librescoot/bms-controller/internal/bus"
)

var calibrateBlink = blink.Pattern{Blinks: 10, OnTime: 100 * time.Millisecond, OffTime: 100 * time.Millisecond}

// toCalibrate matches toCalibrateState(): a fast 10-blink burst announces
// the calibration run is starting.
func (c *Controller) toCalibrate() {
	c.Blink.Queue(calibrateBlink)
	c.State = StartCalibrate
	c.Step = 0
}

// handleCalibrate matches handleCalibrateState(): send the calibrate
// command, then a trailing get-data call whose purpose the original
// author never identified, then return to MotorOn. When a CU3 is
// present it also tells the display calibration finished.
func (c *Controller) handleCalibrate() {
	switch c.Step {
	case 0:
		c.exchange(bus.Motor, cmdCalibrate, nil, exchangeTimeout)
	case 1:
		c.exchange(bus.Motor, cmdGetData, []byte{0x00, 0xdf}, exchangeTimeout)
		if c.HandoffTarget != bus.Display {
			c.toMotorOn()
			return
		}
	case 2:
		c.exchange(bus.Display, 0x2a, []byte{0x01, 0x01}, exchangeTimeout)
		c.toMotorOn()
		return
	}
	c.Step++
}
