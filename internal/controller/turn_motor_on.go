package controller

import (
	"time"

	"github.com/librescoot/bms-controller/internal/blink"
	"github.com/librescoot/bms-controller/internal/bus"
	"github.com/librescoot/bms-controller/internal/display"
)

// longBlink is the single 0.5s-on/50ms-off blink toTurnMotorOnState()
// queues on entry.
var longBlink = blink.Pattern{Blinks: 1, OnTime: 500 * time.Millisecond, OffTime: 50 * time.Millisecond}

// toTurnMotorOn matches toTurnMotorOnState(): show the display, engage the
// motor relay, one long blink.
func (c *Controller) toTurnMotorOn() {
	c.DisplayOn = true
	c.Blink.Queue(longBlink)
	c.Relay.Set(true)
	c.State = TurnMotorOn
	c.Step = 0
}

// motorOnVoltagePayload is the unconditional post-motor-on voltage update
// cmdReq(MSG_MOTOR, MSG_BMS, 0x09, {...}) sends in main.cpp:474-477, between
// motor-on and the display/motor serial exchange. It sits outside the
// CU2/CU3 display-priming guard, so it is not covered by Display.Push and
// must be issued here directly.
var motorOnVoltagePayload = []byte{0x94, 0xb0, 0x09, 0xc4, 0x14, 0xb1, 0x01, 0x14}

// handleTurnMotorOn matches handleTurnMotorOnState(): push a display
// frame, send the motor-on command (repeated on timeout via Exchange),
// send the unconditional voltage update, then run the auto-pairing serial
// exchange before settling in MotorOn. Display initialisation is the single
// Display.Push of step 0 (command 0x27 on a CU2, 0x28 on a CU3); the CU2
// button-poll, blank-display and 0x25 priming commands of the original are
// not sent.
func (c *Controller) handleTurnMotorOn() {
	switch c.Step {
	case 0:
		c.Display.Push(c.Engine, display.State{
			Type:       display.DspScreen,
			ScreenOn:   c.DisplayOn,
			LightOn:    c.RespState.LightOn,
			SetDefault: true,
		})
	case 1:
		c.exchange(bus.Motor, cmdMotorOn, nil, motorOnRetry)
		c.DoHandoffs = true
	case 2:
		c.exchange(bus.Motor, cmdPutData, motorOnVoltagePayload, exchangeTimeout)
	case 3:
		reply := c.exchange(bus.Display, cmdGetSerial, nil, exchangeTimeout)
		copy(c.displaySerial[:], reply.Payload)
	case 4:
		payload := []byte{0x40, 0x5c, 0x00}
		reply := c.exchange(bus.Motor, cmdGetData, payload, exchangeTimeout)
		if len(reply.Payload) > 3 && reply.Payload[3] == 8 && len(reply.Payload) >= 12 {
			copy(c.motorSlot2Serial[:], reply.Payload[4:12])
		}
		if c.motorSlot2Serial == c.displaySerial {
			c.toMotorOn()
			return
		}
	case 5:
		payload := make([]byte, 13)
		copy(payload, []byte{0x40, 0x5c, 0x00, 0x08, 0x08, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
		copy(payload[5:13], c.displaySerial[:])
		c.exchange(bus.Motor, cmdPutData, payload, exchangeTimeout)
		c.toMotorOn()
		return
	}
	c.Step++
}
