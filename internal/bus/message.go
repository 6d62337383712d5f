package bus

import "fmt"

// MessageType is the 4-bit type nibble of a bus message.
type MessageType uint8

const (
	Handoff   MessageType = 0x0
	CmdReq    MessageType = 0x1
	CmdResp   MessageType = 0x2
	PingResp  MessageType = 0x3
	PingReq   MessageType = 0x4
)

func (t MessageType) String() string {
	switch t {
	case Handoff:
		return "HANDOFF"
	case CmdReq:
		return "CMD_REQ"
	case CmdResp:
		return "CMD_RESP"
	case PingResp:
		return "PING_RESP"
	case PingReq:
		return "PING_REQ"
	default:
		return fmt.Sprintf("TYPE(%#x)", uint8(t))
	}
}

// Node addresses on the bus.
const (
	Motor   uint8 = 0x0
	BMS     uint8 = 0x2
	Display uint8 = 0xC
)

// MaxPayload is the largest payload a message can carry; the on-wire
// length nibble can encode at most 0xF (15).
const MaxPayload = 15

// Message is the decoded, typed form of a bus frame.
type Message struct {
	Target     uint8
	Source     uint8
	Type       MessageType
	Command    uint8
	Payload    []byte
	PayloadLen uint8
}

// NewCmdReq builds a CMD_REQ message, matching the shape written by
// cmds() helpers in the original firmware (message() over target/command/payload).
func NewCmdReq(target, source, command uint8, payload []byte) Message {
	return Message{
		Target:     target,
		Source:     source,
		Type:       CmdReq,
		Command:    command,
		Payload:    payload,
		PayloadLen: uint8(len(payload)),
	}
}

// NewCmdResp builds a CMD_RESP message.
func NewCmdResp(target, source, command uint8, payload []byte) Message {
	return Message{
		Target:     target,
		Source:     source,
		Type:       CmdResp,
		Command:    command,
		Payload:    payload,
		PayloadLen: uint8(len(payload)),
	}
}

// NewHandoff builds a HANDOFF message addressed to target.
func NewHandoff(target uint8) Message {
	return Message{Target: target, Type: Handoff}
}

// NewPingReq builds a PING_REQ message.
func NewPingReq(target, source uint8) Message {
	return Message{Target: target, Source: source, Type: PingReq}
}

// NewPingResp builds a PING_RESP message.
func NewPingResp(target, source uint8) Message {
	return Message{Target: target, Source: source, Type: PingResp}
}
