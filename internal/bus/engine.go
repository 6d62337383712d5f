package bus

import (
	"log"
	"time"
)

// Port is the minimal byte transport the engine needs; satisfied by
// internal/transport.Port.
type Port interface {
	ReadByte() (b byte, ok bool, err error)
	Write(data []byte) error
}

// Engine implements the blocking read_message/exchange primitives of
// spec.md §4.3, grounded on readMessage()/exchange() in the original
// firmware's bow.cpp.
type Engine struct {
	port    Port
	decoder Decoder
	logger  *log.Logger
}

// NewEngine wraps port with the frame decoder and retry/exchange logic.
func NewEngine(port Port, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{port: port, logger: logger}
}

// pollSlice is the 1s slice of the zero-timeout polling mode in spec.md §5.
// ReadMessage does not use it: with a zero timeout it loops on
// Port.ReadByte, whose own poll interval bounds each individual wait.
const pollSlice = time.Second

// ReadMessage blocks for a complete, CRC-valid message (or Wakeup/CrcError)
// up to timeout. A zero timeout blocks until one of those arrives; it never
// returns Timeout.
func (e *Engine) ReadMessage(timeout time.Duration) (Result, Message) {
	var deadline time.Time
	hasDeadline := timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		b, ok, err := e.port.ReadByte()
		if err != nil {
			e.logger.Printf("bus: read error: %v", err)
			continue
		}
		if !ok {
			if hasDeadline && time.Now().After(deadline) {
				return Timeout, Message{}
			}
			continue
		}

		result, msg := e.decoder.Feed(b)
		switch result {
		case Continue:
			continue
		case CrcError:
			e.logger.Printf("bus: crc error, frame % x", e.decoder.RawFrame())
			return CrcError, Message{}
		case Wakeup:
			return Wakeup, Message{}
		case Ok:
			return Ok, msg
		}
	}
}

// Write encodes and sends m.
func (e *Engine) Write(m Message) error {
	return e.port.Write(Encode(m))
}

// Exchange writes req and retries on timeout until a reply addressed to
// BMS is seen, matching exchange() in the original firmware: the peer may
// reorder or drop the first request, so retrying until we see our own
// reply is simpler than sequence numbering.
func (e *Engine) Exchange(req Message, timeout time.Duration) (Message, error) {
	if err := e.Write(req); err != nil {
		return Message{}, err
	}

	for {
		result, reply := e.ReadMessage(timeout)
		switch result {
		case Timeout:
			if err := e.Write(req); err != nil {
				return Message{}, err
			}
		case Ok:
			if reply.Target != BMS {
				continue
			}
			if reply.Command != req.Command {
				e.logger.Printf("bus: wrong reply cmd, expected %#02x, got %#02x", req.Command, reply.Command)
			}
			return reply, nil
		default: // Wakeup, CrcError: not a reply, keep waiting
			continue
		}
	}
}
