package controller

import (
	"time"

	"github.com/librescoot/bms-controller/internal/blink"
	"github.com/librescoot/bms-controller/internal/bus"
)

var turnMotorOffBlink = blink.Pattern{Blinks: 2, OnTime: 400 * time.Millisecond, OffTime: 50 * time.Millisecond}

// assistOffAckTimeout bounds how long handleTurnMotorOff waits for the
// motor's MYSTERY BATTERY COMMAND 12 ack to the assist-off it sends before
// proceeding to MOTOR_OFF anyway -- the original never implemented this
// wait at all (just a TODO), so a missing ack must not be allowed to wedge
// the shutdown; mirrors handleSetAssistLevel's own assist-off wait.
const assistOffAckTimeout = 500 * time.Millisecond

// motorOffAckTimeout bounds how long handleTurnMotorOff waits for CMD 0x11
// ("Motor-off ack", spec.md §4.4) -- the controller state's own
// motor_off_ack field (spec.md §3) -- before giving up and dropping the
// relay anyway, so a motor that never acks doesn't wedge the shutdown.
const motorOffAckTimeout = 2 * time.Second

// toTurnMotorOff matches toTurnMotorOffState(): the display goes dark and
// a 2-blink pattern announces the shutdown.
func (c *Controller) toTurnMotorOff() {
	c.DisplayOn = false
	c.Blink.Queue(turnMotorOffBlink)
	c.State = TurnMotorOff
	c.Step = 0
}

// handleTurnMotorOff matches handleTurnMotorOffState(): assist has to
// come off before the motor-off command goes out (waiting, bounded, for
// CMD 0x12 the same way handleSetAssistLevel does); once it's off, send
// MOTOR_OFF and wait (bounded) for motor_off_ack (CMD 0x11) before
// dropping the relay, matching the "TurnMotorOff --motor_off_ack-->
// MotorOff" edge in spec.md §4.6.
func (c *Controller) handleTurnMotorOff() {
	if c.AssistOn {
		switch c.Step {
		case 0:
			c.RespState.Mystery12Seen = false
			c.assistAckAt = Now()
			c.exchange(bus.Motor, cmdAssistOff, nil, exchangeTimeout)
			c.Step++
		default:
			if !c.RespState.Mystery12Seen && Now().Sub(c.assistAckAt) < assistOffAckTimeout {
				return
			}
			c.AssistOn = false
			c.Step = 0
		}
		return
	}

	switch c.Step {
	case 0:
		c.RespState.MotorOffAck = false
		c.offRequestedAt = Now()
		c.exchange(bus.Motor, cmdMotorOff, []byte{0x00}, exchangeTimeout)
		c.Step++
	case 1:
		if c.RespState.MotorOffAck || Now().Sub(c.offRequestedAt) > motorOffAckTimeout {
			c.Relay.Set(false)
			c.toMotorOff()
		}
	}
}
