package controller

import (
	"time"

	"github.com/librescoot/bms-controller/internal/blink"
	"github.com/librescoot/bms-controller/internal/bus"
)

// chargingSettle is the 3s minimum dwell toChargingState's handler waits
// out after the charger is unplugged before leaving Charging.
const chargingSettle = 3 * time.Second

var chargingBlink = blink.Pattern{Blinks: 3, OnTime: 400 * time.Millisecond, OffTime: 400 * time.Millisecond}

// toCharging matches toChargingState(): keep the motor relay on (for
// boards whose voltage divider sits after the relay), request a display
// update, and start the settle timer handleCharging checks. Handoff rounds
// are not stopped while charging.
func (c *Controller) toCharging() {
	c.State = Charging
	c.Step = 0
	c.DisplayOn = true
	c.Relay.Set(true)
	c.Blink.Queue(chargingBlink)
	c.RespState.DisplayUpdate = true
	c.lastMoving = Now()
}

// handleCharging matches handleChargingState(): force assist off first,
// then wait for the charge pin to clear and the settle window to pass
// before handing back off to TurnMotorOn.
func (c *Controller) handleCharging(in Input) {
	if c.AssistOn && c.LevelSet > 0 {
		c.exchange(bus.Motor, cmdSetAssistLevel, []byte{0}, exchangeTimeout)
		c.RespState.Level = 0
		c.LevelSet = 0
	}
	if c.AssistOn {
		c.exchange(bus.Motor, cmdAssistOff, nil, exchangeTimeout)
		c.AssistOn = false
	}

	if in.ChargePin {
		c.lastMoving = Now()
		return
	}

	if Now().Sub(c.lastMoving) > chargingSettle {
		c.Relay.Set(false)
		c.toTurnMotorOn()
	}
}
