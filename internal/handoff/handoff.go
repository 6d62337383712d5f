// Package handoff drives the token-passing handoff loop: write a HANDOFF
// frame to the peer currently expected to hold it, then service whatever
// the peer sends back until the token returns to us or the peer stops
// answering. Grounded on original_source/main/bow.cpp/main.cpp's handoff().
package handoff

import (
	"time"

	"github.com/librescoot/bms-controller/internal/bus"
)

// Result mirrors handleMotorMessageResult: whether the token came back to
// us, or the peer stopped answering a HANDOFF in time.
type Result int

const (
	// ControlToUs means the peer handed the token back with its own
	// HANDOFF message; the caller may now send its own next request.
	ControlToUs Result = iota
	// Timeout means no reply (to our own HANDOFF) arrived within the
	// read deadline -- most likely the peer powered off.
	Timeout
)

// handoffTimeout is the 250ms window handleMotorMessage() uses for every
// read while waiting out a handoff round, not just the HANDOFF's own reply.
const handoffTimeout = 250 * time.Millisecond

// Responder answers a CMD_REQ/PING_REQ addressed to BMS while the token is
// elsewhere, satisfied by *responder.Responder.
type Responder interface {
	Handle(m bus.Message) bool
}

// Run writes a HANDOFF to target and then loops, dispatching every
// BMS-addressed message it sees to resp, until either a HANDOFF comes back
// (ControlToUs) or a read within handoffTimeout fails (Timeout).
func Run(engine *bus.Engine, resp Responder, target uint8) Result {
	if err := engine.Write(bus.NewHandoff(target)); err != nil {
		return Timeout
	}

	for {
		result, msg := engine.ReadMessage(handoffTimeout)
		switch result {
		case bus.Timeout:
			return Timeout
		case bus.Ok:
			if msg.Target != bus.BMS {
				continue
			}
			if msg.Type == bus.Handoff {
				return ControlToUs
			}
			resp.Handle(msg)
		default: // Wakeup, CrcError: not a message we can act on, keep waiting
			continue
		}
	}
}
