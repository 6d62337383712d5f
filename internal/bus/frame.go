package bus

// Result is the outcome of feeding one byte to the decoder.
type Result int

const (
	// Continue means the decoder needs more bytes before a verdict.
	Continue Result = iota
	// Ok means a full, CRC-valid message is available.
	Ok
	// Wakeup means a standalone 0x00 was seen outside a frame — the
	// display's bus-wake hint.
	Wakeup
	// CrcError means a full frame was read but its CRC didn't match.
	CrcError
	// Timeout means no complete message arrived within the requested
	// window. Produced by the bus engine, not the Decoder itself.
	Timeout
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Ok:
		return "ok"
	case Wakeup:
		return "wakeup"
	case CrcError:
		return "crc-error"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Encode serializes m into an escaped, CRC-terminated frame ready to write
// to the bus, matching writeMessage(const messageType&) in the original
// firmware: build the unescaped bytes (header + payload + crc), then
// prepend 0x10 and double every subsequent literal 0x10.
func Encode(m Message) []byte {
	var raw [18]byte
	raw[0] = nibbles(m.Target, uint8(m.Type))
	var n int
	switch m.Type {
	case Handoff:
		n = 1
	case PingReq, PingResp:
		raw[1] = nibbles(m.Source, 0)
		n = 2
	default: // CmdReq, CmdResp
		raw[1] = nibbles(m.Source, m.PayloadLen)
		raw[2] = m.Command
		copy(raw[3:], m.Payload[:m.PayloadLen])
		n = 3 + int(m.PayloadLen)
	}

	unescaped := make([]byte, 0, n+2)
	unescaped = append(unescaped, 0x10)
	unescaped = append(unescaped, raw[:n]...)
	unescaped = append(unescaped, CRC8(unescaped))

	out := make([]byte, 0, len(unescaped)*2)
	out = append(out, 0x10)
	for _, b := range unescaped[1:] {
		out = append(out, b)
		if b == 0x10 {
			out = append(out, 0x10)
		}
	}
	return out
}

// Decoder is a streaming, byte-at-a-time parser for the bus wire format,
// grounded on the parserState/handleFraming/handleByte/parseByte chain in
// the original firmware's bow.cpp, restructured (per the redesign note on
// event-flow) as a struct advanced one byte per Feed call, in the same
// spirit as librescoot-bluetooth-service's usock.processByte state machine.
type Decoder struct {
	escaping bool
	started  bool

	buf    [20]byte
	length int

	target uint8
	source uint8
	typ    MessageType
	size   int

	lastFrame []byte
}

// Reset discards any in-progress frame.
func (d *Decoder) Reset() {
	lastFrame := d.lastFrame
	*d = Decoder{}
	d.lastFrame = lastFrame
}

// Feed advances the decoder by one byte. On Ok it also returns the decoded
// message; on CrcError the caller may inspect RawFrame() for logging.
func (d *Decoder) Feed(value byte) (Result, Message) {
	if d.escaping {
		d.escaping = false
		if value == 0x10 {
			return d.handleByte(0x10)
		}
		if d.length != 0 {
			// Incomplete previous frame; drop and restart.
			d.lastFrame = append([]byte(nil), d.buf[:d.length]...)
			d.Reset()
		}
		d.started = true
		d.handleByte(0x10) // the leading sentinel, always Continue
		return d.handleByte(value)
	}
	if value == 0x10 {
		d.escaping = true
		return Continue, Message{}
	}
	return d.handleByte(value)
}

// RawFrame returns the bytes of the most recently completed (or discarded)
// frame, for logging incomplete or CRC-failed frames.
func (d *Decoder) RawFrame() []byte {
	return d.lastFrame
}

func (d *Decoder) handleByte(value byte) (Result, Message) {
	if d.started {
		return d.parseByte(value)
	}
	if value == 0x00 {
		return Wakeup, Message{}
	}
	return Continue, Message{}
}

func (d *Decoder) parseByte(value byte) (Result, Message) {
	low := value & 0x0f
	high := value >> 4

	switch d.length {
	case 0:
		// Leading 0x10, kept only for the CRC calculation.
	case 1:
		d.target = high
		d.typ = MessageType(low)
	case 2:
		if d.typ == Handoff {
			d.size = 3
		} else {
			d.source = high
			if d.typ == PingReq || d.typ == PingResp {
				d.size = 4
			} else {
				d.size = int(low) + 5
			}
		}
	}

	d.buf[d.length] = value
	d.length++

	if d.length > 2 && d.length == d.size {
		frame := d.buf[:d.length]
		crc := CRC8(frame[:d.length-1])
		ok := crc == frame[d.length-1]
		msg := Message{Target: d.target, Source: d.source, Type: d.typ}
		if d.size >= 5 {
			msg.Command = d.buf[3]
			msg.PayloadLen = uint8(d.size - 5)
			msg.Payload = append([]byte(nil), d.buf[4:d.size-1]...)
		}
		d.lastFrame = append([]byte(nil), frame...)
		d.Reset()
		if !ok {
			return CrcError, Message{}
		}
		return Ok, msg
	}

	return Continue, Message{}
}
