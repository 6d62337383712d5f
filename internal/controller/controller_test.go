package controller

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/librescoot/bms-controller/internal/bus"
	"github.com/librescoot/bms-controller/internal/display"
	"github.com/librescoot/bms-controller/internal/hal"
	"github.com/librescoot/bms-controller/internal/persistence"
	"github.com/librescoot/bms-controller/internal/responder"
	"github.com/librescoot/bms-controller/internal/trip"

	blinkpkg "github.com/librescoot/bms-controller/internal/blink"
)

// loopbackPort answers every Write with a canned CMD_RESP to BMS echoing
// the request's command, enough to make Engine.Exchange return
// immediately without a real peer on the other end of the bus.
type loopbackPort struct {
	pending []byte
	writes  [][]byte
}

func (p *loopbackPort) ReadByte() (byte, bool, error) {
	if len(p.pending) == 0 {
		return 0, false, nil
	}
	b := p.pending[0]
	p.pending = p.pending[1:]
	return b, true, nil
}

func (p *loopbackPort) Write(data []byte) error {
	p.writes = append(p.writes, append([]byte(nil), data...))

	var dec bus.Decoder
	var req bus.Message
	for _, b := range data {
		if result, m := dec.Feed(b); result == bus.Ok {
			req = m
		}
	}
	if req.Type != bus.CmdReq {
		return nil
	}
	reply := bus.NewCmdResp(bus.BMS, req.Target, req.Command, make([]byte, 12))
	p.pending = append(p.pending, bus.Encode(reply)...)
	return nil
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	port := &loopbackPort{}
	engine := bus.NewEngine(port, log.New(io.Discard, "", 0))
	store, err := persistence.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	state := &responder.State{}
	tr := &trip.State{}
	resp := responder.New(engine, store, state, tr, nil, nil)
	blinkTask := blinkpkg.NewTask(&hal.SimLED{})
	relay := hal.NewSimRelay(false)
	return New(engine, resp, state, display.None{}, blinkTask, relay, tr, nil, store, bus.Motor, nil)
}

func TestInitialStateIsIdle(t *testing.T) {
	c := newTestController(t)
	if c.State != Idle {
		t.Fatalf("initial state = %v, want Idle", c.State)
	}
}

func TestModeShortPressLeavesIdle(t *testing.T) {
	c := newTestController(t)
	c.Tick(Input{ModeShortPress: true})
	if c.State != TurnMotorOn {
		t.Fatalf("state after mode press = %v, want TurnMotorOn", c.State)
	}
	if !c.Relay.Get() {
		t.Fatalf("motor relay not engaged entering TurnMotorOn")
	}
}

func TestMotorOnFallsBackToOffAfterNoMovement(t *testing.T) {
	c := newTestController(t)
	c.State = MotorOn
	c.Step = 0

	base := time.Now()
	Now = func() time.Time { return base }
	defer func() { Now = time.Now }()

	c.Tick(Input{}) // step 0 -> records lastMoving, step++

	Now = func() time.Time { return base.Add(movingTimeout + time.Second) }
	c.Tick(Input{})

	if c.State != TurnMotorOff {
		t.Fatalf("state after timeout = %v, want TurnMotorOff", c.State)
	}
}

func TestModeShortPressCyclesAssistLevel(t *testing.T) {
	c := newTestController(t)
	c.State = MotorOn
	c.Step = 1 // past the first-tick lastMoving bookkeeping
	// what that step-0 tick would have recorded
	c.lastMoving = Now()
	c.RespState.Level = 0
	c.LevelSet = 0

	c.Tick(Input{ModeShortPress: true})

	if c.RespState.Level != 1 {
		t.Fatalf("Level = %d, want 1", c.RespState.Level)
	}
	if c.State != SetAssistLevel {
		t.Fatalf("state = %v, want SetAssistLevel", c.State)
	}
}

func TestSetAssistLevelTurnsAssistOnThenSetsLevel(t *testing.T) {
	c := newTestController(t)
	c.State = SetAssistLevel
	c.Step = 0
	c.RespState.Level = 2
	c.LevelSet = 0
	c.AssistOn = false

	base := time.Now()
	Now = func() time.Time { return base }
	defer func() { Now = time.Now }()

	c.Tick(Input{}) // step 0: send assist-on, advance to step 1
	if c.AssistOn {
		t.Fatalf("AssistOn set before the motor acked")
	}

	c.RespState.Mystery12Seen = true // simulate the motor's CMD 0x12 ack
	c.Tick(Input{})                  // step 1: ack seen, AssistOn true, advance to step 2
	if !c.AssistOn {
		t.Fatalf("AssistOn not set after ack")
	}
	if c.State != SetAssistLevel {
		t.Fatalf("state left SetAssistLevel early: %v", c.State)
	}

	c.Tick(Input{}) // step 2: send set-level, advance to step 3
	if c.LevelSet != 0 {
		t.Fatalf("LevelSet = %d before the set-level ack, want 0", c.LevelSet)
	}

	c.RespState.Mystery12Seen = true // simulate the ack for the level-set command
	c.Tick(Input{})                  // step 3: ack seen, set level, return to MotorOn
	if c.LevelSet != 2 {
		t.Fatalf("LevelSet = %d, want 2", c.LevelSet)
	}
	if c.State != MotorOn {
		t.Fatalf("state after level set = %v, want MotorOn", c.State)
	}
}

// TestSetAssistLevelFallsBackAfterAckTimeout covers the bounded-wait
// fallback: if the motor never sends CMD 0x12, the state machine still
// advances once assistAckTimeout has elapsed, matching the same
// no-wedge guarantee handleTurnMotorOff gives around motorOffAckTimeout.
func TestSetAssistLevelFallsBackAfterAckTimeout(t *testing.T) {
	c := newTestController(t)
	c.State = SetAssistLevel
	c.Step = 0
	c.RespState.Level = 1
	c.LevelSet = 0
	c.AssistOn = false

	base := time.Now()
	Now = func() time.Time { return base }
	defer func() { Now = time.Now }()

	c.Tick(Input{}) // step 0 -> 1

	Now = func() time.Time { return base.Add(assistAckTimeout + time.Second) }
	c.Tick(Input{}) // step 1: no ack, but timeout elapsed -> advance anyway
	if !c.AssistOn {
		t.Fatalf("AssistOn not set after ack timeout elapsed")
	}
}

func TestChargePinPreemptsMotorOn(t *testing.T) {
	c := newTestController(t)
	c.State = MotorOn
	c.Tick(Input{ChargePin: true})
	if c.State != Charging {
		t.Fatalf("state = %v, want Charging", c.State)
	}
}

func TestMotorOffWakesOnModeShortPress(t *testing.T) {
	c := newTestController(t)
	c.State = MotorOff
	c.Tick(Input{ModeShortPress: true})
	if c.State != TurnMotorOn {
		t.Fatalf("state = %v, want TurnMotorOn", c.State)
	}
}

// TestTurnMotorOffWaitsForMotorOffAck covers spec.md §4.6's
// "TurnMotorOff --motor_off_ack--> MotorOff" edge: the relay must not drop
// until CMD 0x11 (motor-off ack) arrives, set on responder.State by the
// "motor-off-ack" rule.
func TestTurnMotorOffWaitsForMotorOffAck(t *testing.T) {
	c := newTestController(t)
	c.State = TurnMotorOff
	c.Step = 0
	c.AssistOn = false

	base := time.Now()
	Now = func() time.Time { return base }
	defer func() { Now = time.Now }()

	c.Tick(Input{}) // step 0: send MOTOR_OFF, advance to step 1
	if c.State != TurnMotorOff {
		t.Fatalf("state = %v, want still TurnMotorOff before the ack", c.State)
	}

	c.Tick(Input{}) // step 1: no ack yet, well within motorOffAckTimeout
	if c.State != TurnMotorOff {
		t.Fatalf("state left TurnMotorOff before motor_off_ack or timeout")
	}

	c.RespState.MotorOffAck = true
	c.Tick(Input{})
	if c.State != MotorOff {
		t.Fatalf("state after motor_off_ack = %v, want MotorOff", c.State)
	}
}

// TestTurnMotorOffFallsBackAfterAckTimeout covers the no-wedge guarantee:
// a motor that never sends CMD 0x11 still lets the relay drop once
// motorOffAckTimeout elapses.
func TestTurnMotorOffFallsBackAfterAckTimeout(t *testing.T) {
	c := newTestController(t)
	c.State = TurnMotorOff
	c.Step = 0
	c.AssistOn = false

	base := time.Now()
	Now = func() time.Time { return base }
	defer func() { Now = time.Now }()

	c.Tick(Input{}) // step 0 -> 1

	Now = func() time.Time { return base.Add(motorOffAckTimeout + time.Second) }
	c.Tick(Input{})
	if c.State != MotorOff {
		t.Fatalf("state after ack timeout = %v, want MotorOff", c.State)
	}
}
