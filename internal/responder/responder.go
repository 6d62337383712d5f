// Package responder implements the BMS query responder: the side of the
// protocol that answers CMD_REQ messages addressed to us while the motor
// (or display) holds the token. Grounded on
// original_source/main/main.cpp's handleMotorMessage(), rewritten from its
// if/else ladder into a declarative dispatch table per spec.md's redesign
// note on replacing ad hoc branching with data-driven dispatch.
package responder

import (
	"log"
	"time"

	"github.com/librescoot/bms-controller/internal/battery"
	"github.com/librescoot/bms-controller/internal/bus"
	"github.com/librescoot/bms-controller/internal/display"
	"github.com/librescoot/bms-controller/internal/persistence"
	"github.com/librescoot/bms-controller/internal/trip"
)

// State is the mutable BMS-side state the responder reads and writes while
// answering requests: assist level, light switch, the last reported speed
// and trip, and calibration data. The controller owns a State and shares it
// with the responder so button/state-machine logic and query answers stay
// consistent, replacing the original's module-global level/speed/trip/lightOn.
type State struct {
	Level   uint8
	LightOn bool
	Speed   uint16
	Trip    uint32

	// DisplayUpdate is set whenever a request changes something the
	// display should reflect (PUT c0/c1, light toggle), mirroring the
	// original's DISPLAY_UPDATE_BIT event-group bit.
	DisplayUpdate bool

	// Mystery12Seen is set whenever the motor sends MYSTERY BATTERY
	// COMMAND 12, which the original firmware receives after every
	// assist on/off request but never acts on beyond a TODO comment
	// ("Start waiting for MYSTERY BAT COMMAND 12 ... while doing
	// handoffs"). This repo treats its arrival as the motor's ack of
	// the preceding assist on/off or level request: SetAssistLevel
	// waits on it after each command, and TurnMotorOff after its
	// assist-off, each bounded by a timeout so a motor that never sends
	// it doesn't wedge the state machine. The motor-off relay drop is
	// gated on MotorOffAck instead.
	Mystery12Seen bool

	// MotorOffAck is the controller state's own motor_off_ack field
	// (spec.md §3): set by CMD 0x11 ("Motor-off ack" in spec.md §4.4's
	// table), the signal TurnMotorOff waits on before releasing the
	// relay and transitioning to MotorOff, per the
	// "TurnMotorOff --motor_off_ack--> MotorOff" edge in spec.md §4.6.
	// Cleared by the controller once consumed.
	MotorOffAck bool

	// Offset is the PUT 8e (set-time) delta the motor last requested:
	// wall_time = uptime_s + Offset. Zero until the motor sets it.
	Offset uint32

	// CalibrateRequested is set by CMD 0x1b (Calibrate-trigger) and
	// cleared by the controller once it has folded the event into a
	// tick's Input, mirroring the original's CALIBRATE event-group bit.
	CalibrateRequested bool

	// WakeupRequested is set by CMD 0x14 ("Wakeup from motor") and cleared
	// by the controller once folded into a tick's Input, mirroring the
	// original's WAKEUP event-group bit (normally set from the bus-idle
	// 0x00 byte, but the motor also raises it explicitly over CMD 0x14).
	WakeupRequested bool
}

// Responder answers CMD_REQ/PING_REQ messages addressed to BMS while
// handoff() is waiting for the token back.
type Responder struct {
	engine  *bus.Engine
	store   persistence.Store
	state   *State
	trip    *trip.State
	battery *battery.Accounting
	logger  *log.Logger
	started time.Time
}

// New creates a Responder that writes replies through engine, persists
// calibration via store, accumulates distance into tr, reports battery
// percentage from bat (GET 14:18/14:1a, §4.4's CU3 battery encoding), and
// reads/writes shared State.
func New(engine *bus.Engine, store persistence.Store, state *State, tr *trip.State, bat *battery.Accounting, logger *log.Logger) *Responder {
	if logger == nil {
		logger = log.Default()
	}
	return &Responder{engine: engine, store: store, state: state, trip: tr, battery: bat, logger: logger, started: Now()}
}

// batteryCu3Value returns to_cu3_bat(pct) (spec.md §4.4) for the current
// battery percentage, or the display's asymptote-safe zero value if no
// battery accounting is wired up.
func (r *Responder) batteryCu3Value() uint16 {
	var pct uint8
	if r.battery != nil {
		pct = r.battery.Percentage()
	}
	return display.ToCu3BatValue(pct)
}

// Now returns the current time; overridable in tests so uptime-derived
// replies (GET/PUT 0x8e) are deterministic.
var Now = time.Now

// uptimeSeconds returns seconds since this Responder was created, the
// direct analogue of the original firmware's free-running uptime counter.
func (r *Responder) uptimeSeconds() uint32 {
	return uint32(Now().Sub(r.started).Seconds())
}

// handler answers a matched request. It returns the response payload (nil
// for a zero-length ack) or false if no reply should be sent at all.
type handler func(r *Responder, m bus.Message) ([]byte, bool)

// matcher reports whether a rule applies to m. Every rule implicitly
// requires CmdReq type; PingReq is handled outside the table since it has
// no payload shape to match on.
type matcher func(m bus.Message) bool

type rule struct {
	name    string
	match   matcher
	handle  handler
}

func payloadLen(n uint8) matcher {
	return func(m bus.Message) bool { return m.PayloadLen == n }
}

func command(c uint8) matcher {
	return func(m bus.Message) bool { return m.Command == c }
}

func payloadAt(index int, value uint8) matcher {
	return func(m bus.Message) bool { return len(m.Payload) > index && m.Payload[index] == value }
}

func all(ms ...matcher) matcher {
	return func(m bus.Message) bool {
		for _, mm := range ms {
			if !mm(m) {
				return false
			}
		}
		return true
	}
}

// table is the dispatch table, evaluated top to bottom; the first matching
// rule answers the request. Order matches the original's if/else chain so
// the more specific GET 0x08 variants (matched on payload[1]/[3] too) are
// tried before anything that could accidentally shadow them.
var table = []rule{
	{
		name:  "mystery-01",
		match: all(command(0x01), payloadLen(0)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			return []byte{0x00, 0x02, 0x02}, true
		},
	},
	{
		name:  "motor-off-ack",
		match: all(command(0x11), payloadLen(0)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			r.state.MotorOffAck = true
			return []byte{0x00}, true
		},
	},
	{
		name:  "mystery-12",
		match: all(command(0x12), payloadLen(1)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			r.state.Mystery12Seen = true
			return []byte{0x00}, true
		},
	},
	{
		name:  "mystery-14",
		match: all(command(0x14), payloadLen(0)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			r.state.WakeupRequested = true
			return []byte{0x00}, true
		},
	},
	{
		name:  "calibrate-trigger",
		match: all(command(0x1b), payloadLen(1)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			r.state.CalibrateRequested = true
			return []byte{0x00}, true
		},
	},
	{
		name:  "set-light",
		match: all(command(0x1c), payloadLen(1)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			r.state.LightOn = m.Payload[0] != 0
			return []byte{0x00}, true
		},
	},
	{
		name:  "set-assist",
		match: all(command(0x1d), payloadLen(1)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			r.state.Level = m.Payload[0]
			return []byte{0x00}, true
		},
	},
	{
		name:  "get-battery-level",
		match: all(command(0x08), payloadLen(2), payloadAt(1, 0x18)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			payload := []byte{0x00, m.Payload[0], m.Payload[1], 0x00, 0x00}
			bus.PutU16BE(payload, 3, r.batteryCu3Value())
			return payload, true
		},
	},
	{
		name:  "get-battery-level-and-max",
		match: all(command(0x08), payloadLen(4), payloadAt(1, 0x18), payloadAt(3, 0x1a)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			payload := []byte{0x00, m.Payload[0], m.Payload[1], 0x00, 0x00, m.Payload[2], m.Payload[3], 0x00, 0x00}
			bus.PutU16BE(payload, 3, r.batteryCu3Value())
			bus.PutU16BE(payload, 7, display.Cu3BatMax)
			return payload, true
		},
	},
	{
		name:  "get-unknown-2a",
		match: all(command(0x08), payloadLen(2), payloadAt(1, 0x2a)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			return []byte{0x00, m.Payload[0], m.Payload[1], 0x01}, true
		},
	},
	{
		name:  "get-calibration",
		match: all(command(0x08), payloadLen(4), payloadAt(1, 0x38), payloadAt(3, 0x3a)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			// LoadCalibration already falls back to the bundled default
			// (main.cpp:208-212's backup data[]) when nothing has been
			// written yet, so this always ships real calibration bytes,
			// never 0xff scratch filler.
			payload := make([]byte, 11)
			payload[0] = 0x00
			cal := persistence.LoadCalibration(r.store)
			copy(payload[1:], cal.Data[:])
			return payload, true
		},
	},
	{
		name:  "get-maintenance-distance",
		match: all(command(0x08), payloadLen(2), payloadAt(1, 0x3b)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			payload := make([]byte, 7)
			payload[0] = 0x00
			payload[1], payload[2] = m.Payload[0], m.Payload[1]
			bus.PutU32BE(payload, 3, 0x0001E208)
			return payload, true
		},
	},
	{
		name:  "get-total-distance",
		match: all(command(0x08), payloadLen(2), payloadAt(1, 0x80)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			payload := make([]byte, 7)
			payload[0] = 0x00
			payload[1], payload[2] = m.Payload[0], m.Payload[1]
			var total uint32
			if r.trip != nil {
				total = r.trip.Total
			}
			bus.PutU32BE(payload, 3, total)
			return payload, true
		},
	},
	{
		name:  "get-time",
		match: all(command(0x08), payloadLen(2), payloadAt(1, 0x8e)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			payload := make([]byte, 7)
			payload[0] = 0x00
			payload[1], payload[2] = m.Payload[0], m.Payload[1]
			bus.PutU32BE(payload, 3, r.uptimeSeconds()+r.state.Offset)
			return payload, true
		},
	},
	{
		name:  "put-set-time",
		match: all(command(0x09), payloadLen(6), payloadAt(1, 0x8e)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			wallTime := bus.U32BE(m.Payload, 2)
			r.state.Offset = wallTime - r.uptimeSeconds()
			return []byte{0x00}, true
		},
	},
	{
		name:  "get-unknown-94",
		match: all(command(0x08), payloadLen(2), payloadAt(1, 0x94)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			return []byte{0x00, m.Payload[0], m.Payload[1], 0x40, 0x0e, 0x14, 0x7b}, true
		},
	},
	{
		name:  "get-unknown-99",
		match: all(command(0x08), payloadLen(3), payloadAt(1, 0x99), payloadAt(2, 0x00)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			return []byte{0x00, m.Payload[0], m.Payload[1], 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf6}, true
		},
	},
	{
		name:  "get-unknown-9a",
		match: all(command(0x08), payloadLen(3), payloadAt(1, 0x9a), payloadAt(2, 0x00)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			return []byte{0x00, m.Payload[0], m.Payload[1], 0x02, 0x00, 0x00, 0x00, 0xd0}, true
		},
	},
	{
		name:  "put-speed-trip",
		match: all(command(0x09), payloadLen(10), payloadAt(1, 0xc0), payloadAt(5, 0xc1)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			r.state.Speed = bus.U16BE(m.Payload, 2)
			motorDistance := bus.U32BE(m.Payload, 6)
			r.state.Trip = motorDistance
			if r.trip != nil {
				r.trip.Update(motorDistance)
			}
			r.state.DisplayUpdate = true
			return []byte{0x00}, true
		},
	},
	{
		name:  "put-calibration",
		match: all(command(0x09), payloadLen(10), payloadAt(1, 0x38), payloadAt(5, 0x3a)),
		handle: func(r *Responder, m bus.Message) ([]byte, bool) {
			var cal persistence.Calibration
			copy(cal.Data[:], m.Payload)
			if !persistence.SaveCalibration(r.store, cal) {
				r.logger.Printf("responder: calibration write failed")
				return nil, false
			}
			return []byte{0x00}, true
		},
	},
}

// Handle answers m if it matches a known request, writing the reply
// through the engine. It returns true if a rule matched (whether or not a
// reply was actually sent), mirroring handleMotorMessage()'s fallthrough
// to an "Unexpected" log line for anything unmatched.
func (r *Responder) Handle(m bus.Message) bool {
	switch m.Type {
	case bus.PingReq:
		if err := r.engine.Write(bus.NewPingResp(m.Source, bus.BMS)); err != nil {
			r.logger.Printf("responder: ping reply failed: %v", err)
		}
		return true
	case bus.CmdReq:
		for _, rule := range table {
			if !rule.match(m) {
				continue
			}
			payload, ok := rule.handle(r, m)
			if !ok {
				return true
			}
			if err := r.engine.Write(bus.NewCmdResp(m.Source, bus.BMS, m.Command, payload)); err != nil {
				r.logger.Printf("responder: %s reply failed: %v", rule.name, err)
			}
			return true
		}
	}

	r.logger.Printf("responder: unexpected tgt=%d src=%d type=%s cmd=%#02x payload=% x",
		m.Target, m.Source, m.Type, m.Command, m.Payload)
	return false
}
