package controller

import (
	"time"

	"github.com/librescoot/bms-controller/internal/bus"
)

// idleReadTimeout is the 50ms poll idle.cpp's handleIdleState uses while
// waiting for a bus wakeup.
const idleReadTimeout = 50 * time.Millisecond

// toIdle matches toIdleState(): the motor relay is assumed already off,
// we simply reset step and wait for a button press or bus wakeup.
func (c *Controller) toIdle() {
	c.State = Idle
	c.Step = 0
}

// handleIdle matches handleIdleState(): a short press of the local mode
// button, or a bus wakeup byte, both mean "someone wants the motor on."
func (c *Controller) handleIdle(in Input) {
	if in.ModeShortPress || in.Wakeup {
		c.toTurnMotorOn()
		return
	}

	result, msg := c.Engine.ReadMessage(idleReadTimeout)
	switch result {
	case bus.Wakeup:
		c.Logger.Printf("controller: wakeup")
		c.toTurnMotorOn()
	case bus.Ok:
		if msg.Target == bus.BMS && msg.Type != bus.Handoff {
			c.Resp.Handle(msg)
			if c.RespState.WakeupRequested {
				c.RespState.WakeupRequested = false
				c.toTurnMotorOn()
			}
			return
		}
		c.Logger.Printf("controller: idle incoming tgt=%d src=%d type=%s cmd=%#02x", msg.Target, msg.Source, msg.Type, msg.Command)
	}
}
