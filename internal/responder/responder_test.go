package responder

import (
	"testing"

	"github.com/librescoot/bms-controller/internal/battery"
	"github.com/librescoot/bms-controller/internal/bus"
	"github.com/librescoot/bms-controller/internal/display"
	"github.com/librescoot/bms-controller/internal/persistence"
	"github.com/librescoot/bms-controller/internal/trip"
)

// recordingPort captures everything written to it and never has bytes to
// read, enough to drive Responder.Handle/Engine.Write round trips.
type recordingPort struct {
	written [][]byte
}

func (p *recordingPort) ReadByte() (byte, bool, error) { return 0, false, nil }

func (p *recordingPort) Write(data []byte) error {
	cp := append([]byte(nil), data...)
	p.written = append(p.written, cp)
	return nil
}

func (p *recordingPort) lastMessage(t *testing.T) bus.Message {
	t.Helper()
	if len(p.written) == 0 {
		t.Fatalf("no frame written")
	}
	frame := p.written[len(p.written)-1]
	var dec bus.Decoder
	var msg bus.Message
	for _, b := range frame {
		result, m := dec.Feed(b)
		if result == bus.Ok {
			msg = m
		}
	}
	return msg
}

func newTestResponder(t *testing.T) (*Responder, *recordingPort) {
	t.Helper()
	port := &recordingPort{}
	engine := bus.NewEngine(port, nil)
	store, err := persistence.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return New(engine, store, &State{}, &trip.State{}, nil, nil), port
}

func TestHandleGetBatteryLevelUsesCu3Encoding(t *testing.T) {
	port := &recordingPort{}
	engine := bus.NewEngine(port, nil)
	store, err := persistence.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	bat := battery.New(battery.Config{EmptyMv: 30000, FullMv: 42000}, 0, 0, 0)
	bat.SampleVoltage(36000)
	r := New(engine, store, &State{}, &trip.State{}, bat, nil)

	matched := r.Handle(bus.Message{
		Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq,
		Command: 0x08, PayloadLen: 2, Payload: []byte{0x14, 0x18},
	})
	if !matched {
		t.Fatalf("expected get-battery-level rule to match")
	}
	msg := port.lastMessage(t)
	want := display.ToCu3BatValue(bat.Percentage())
	got := bus.U16BE(msg.Payload, 3)
	if got != want {
		t.Fatalf("battery level reply = %#04x, want %#04x (pct=%d)", got, want, bat.Percentage())
	}
}

func TestHandlePingReq(t *testing.T) {
	r, port := newTestResponder(t)
	matched := r.Handle(bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.PingReq})
	if !matched {
		t.Fatalf("PingReq not handled")
	}
	msg := port.lastMessage(t)
	if msg.Type != bus.PingResp || msg.Target != bus.Motor {
		t.Fatalf("got %+v, want PingResp to Motor", msg)
	}
}

func TestHandleMysteryCommands(t *testing.T) {
	r, port := newTestResponder(t)
	req := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0x01}
	if !r.Handle(req) {
		t.Fatalf("mystery-01 not matched")
	}
	msg := port.lastMessage(t)
	if msg.Command != 0x01 || len(msg.Payload) != 3 || msg.Payload[0] != 0x00 || msg.Payload[1] != 0x02 || msg.Payload[2] != 0x02 {
		t.Fatalf("mystery-01 reply = %+v, want payload {0x00,0x02,0x02}", msg)
	}
}

func TestHandleSetLightUpdatesState(t *testing.T) {
	r, _ := newTestResponder(t)
	req := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0x1c, Payload: []byte{0x01}, PayloadLen: 1}
	if !r.Handle(req) {
		t.Fatalf("set-light not matched")
	}
	if !r.state.LightOn {
		t.Fatalf("LightOn not set")
	}
}

func TestHandleSetAssistUpdatesState(t *testing.T) {
	r, _ := newTestResponder(t)
	req := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0x1d, Payload: []byte{0x02}, PayloadLen: 1}
	r.Handle(req)
	if r.state.Level != 0x02 {
		t.Fatalf("Level = %d, want 2", r.state.Level)
	}
}

func TestHandlePutSpeedTrip(t *testing.T) {
	r, port := newTestResponder(t)
	payload := []byte{0x00, 0xc0, 0x01, 0x2c, 0x00, 0xc1, 0x00, 0x00, 0x03, 0x20}
	req := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0x09, Payload: payload, PayloadLen: 10}
	if !r.Handle(req) {
		t.Fatalf("put-speed-trip not matched")
	}
	if r.state.Speed != 0x012c {
		t.Fatalf("Speed = %#x, want 0x012c", r.state.Speed)
	}
	if !r.state.DisplayUpdate {
		t.Fatalf("DisplayUpdate not set")
	}
	if r.trip.Total != 0x0320 {
		t.Fatalf("trip.Total = %d, want %d (distance_update not wired)", r.trip.Total, 0x0320)
	}
	msg := port.lastMessage(t)
	if len(msg.Payload) != 1 || msg.Payload[0] != 0x00 {
		t.Fatalf("ack payload = % x, want {0x00}", msg.Payload)
	}
}

func TestHandleGetTotalDistanceReflectsTrip(t *testing.T) {
	r, port := newTestResponder(t)
	r.trip.Update(850)
	req := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0x08, Payload: []byte{0x00, 0x80}, PayloadLen: 2}
	if !r.Handle(req) {
		t.Fatalf("get-total-distance not matched")
	}
	msg := port.lastMessage(t)
	if got := bus.U32BE(msg.Payload, 3); got != 850 {
		t.Fatalf("total distance = %d, want 850", got)
	}
}

func TestHandleSetTimeRoundTrips(t *testing.T) {
	r, port := newTestResponder(t)
	payload := make([]byte, 6)
	payload[1] = 0x8e
	bus.PutU32BE(payload, 2, 1_000_000)
	req := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0x09, Payload: payload, PayloadLen: 6}
	if !r.Handle(req) {
		t.Fatalf("put-set-time not matched")
	}

	getReq := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0x08, Payload: []byte{0x00, 0x8e}, PayloadLen: 2}
	if !r.Handle(getReq) {
		t.Fatalf("get-time not matched")
	}
	msg := port.lastMessage(t)
	got := bus.U32BE(msg.Payload, 3)
	if got < 1_000_000 {
		t.Fatalf("time = %d, want >= 1000000", got)
	}
}

func TestHandleUnmatchedLogsAndReturnsFalse(t *testing.T) {
	r, port := newTestResponder(t)
	req := bus.Message{Target: bus.BMS, Source: bus.Motor, Type: bus.CmdReq, Command: 0xee, PayloadLen: 0}
	if r.Handle(req) {
		t.Fatalf("unmatched command reported matched")
	}
	if len(port.written) != 0 {
		t.Fatalf("unmatched command wrote a reply")
	}
}
