package controller

import (
	"time"

	"github.com/librescoot/bms-controller/internal/blink"
	"github.com/librescoot/bms-controller/internal/bus"
)

// assistAckTimeout bounds how long handleSetAssistLevel waits for the
// motor's MYSTERY BAT COMMAND 0x12 ack before advancing anyway -- per
// spec.md §9's open question, the original never implemented this wait
// (just a TODO), so a missing ack must not be allowed to wedge the
// assist-level change.
const assistAckTimeout = 500 * time.Millisecond

// toSetAssistLevel matches toSetAssistLevelState(): a 2-blink pattern for
// "assist off", or N blinks (one per level) otherwise. If assist is
// already on and only the numeric level is changing, the on/off step is
// skipped entirely by starting past it.
func (c *Controller) toSetAssistLevel() {
	level := c.RespState.Level
	if level == 0 {
		c.Blink.Queue(blink.Pattern{Blinks: 2, OnTime: 250 * time.Millisecond, OffTime: 50 * time.Millisecond})
	} else {
		c.Blink.Queue(blink.Pattern{Blinks: int(level), OnTime: 100 * time.Millisecond, OffTime: 50 * time.Millisecond})
	}
	c.State = SetAssistLevel
	if level > 0 && c.AssistOn {
		c.Step = 2
	} else {
		c.Step = 0
	}
}

// handleSetAssistLevel matches handleSetAssistLevelState(): turn assist
// off/on as a separate step from actually setting the numeric level,
// mirroring the motor's own on/off vs. level-set command split, and -- per
// spec.md §9's resolved open question -- wait (bounded) for CMD 0x12 after
// each before advancing, rather than blindly proceeding as the original did.
func (c *Controller) handleSetAssistLevel() {
	level := c.RespState.Level

	switch c.Step {
	case 0:
		c.RespState.Mystery12Seen = false
		c.assistAckAt = Now()
		if level == 0 {
			c.exchange(bus.Motor, cmdAssistOff, nil, exchangeTimeout)
		} else {
			c.exchange(bus.Motor, cmdAssistOn, nil, exchangeTimeout)
		}
		c.Step++
	case 1:
		if !c.RespState.Mystery12Seen && Now().Sub(c.assistAckAt) < assistAckTimeout {
			return
		}
		c.AssistOn = level != 0
		if level == 0 {
			c.LevelSet = 0
			c.RespState.DisplayUpdate = true
			c.toMotorOn()
			return
		}
		c.Step++
	case 2:
		c.RespState.Mystery12Seen = false
		c.assistAckAt = Now()
		c.exchange(bus.Motor, cmdSetAssistLevel, []byte{level}, exchangeTimeout)
		c.Step++
	default:
		if !c.RespState.Mystery12Seen && Now().Sub(c.assistAckAt) < assistAckTimeout {
			return
		}
		c.LevelSet = level
		c.RespState.DisplayUpdate = true
		c.toMotorOn()
	}
}
