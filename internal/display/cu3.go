package display

import "github.com/librescoot/bms-controller/internal/bus"

// Cu3BatMax is the display's internal full-scale battery value, per
// cu3BatMaxValue() in the original source.
const Cu3BatMax = 11000

// Cu3 talks to the newer head unit: a 13-byte payload on command 0x28.
type Cu3 struct{}

// ToCu3BatValue inverts the display's internal percentage formula
// (pct ~= floor((v - 0.091*max) / (0.009*max))), matching
// toCu3BatValue() in the original source exactly.
func ToCu3BatValue(batPercentage uint8) uint16 {
	const max = Cu3BatMax
	offsetK := uint32(91 * max)
	onePercentK := uint32(9 * max)
	valueK := offsetK + onePercentK*uint32(batPercentage) + onePercentK/2
	return uint16(valueK / 1000)
}

// Payload builds the 13-byte CU3 update payload, matching
// displayUpdateCu3() byte-for-byte: byte0 is the display type, forced to
// 0x03 when showing the normal screen with a nonzero assist level for
// reasons the original firmware doesn't explain; byte2 packs
// light/battery2/screen flags; speed/trip1/trip2 follow big-endian.
func Payload(s State) []byte {
	byte0 := uint8(s.Type)
	if s.Type == DspScreen && s.Assist > 0 {
		byte0 = 0x03
	}
	var byte2 uint8
	if s.LightOn {
		byte2 |= 0x01
	}
	if s.Battery2 {
		byte2 |= 0x04
	}
	if s.ScreenOn {
		byte2 |= 0x08
	}

	payload := make([]byte, 13)
	payload[0] = byte0
	payload[1] = s.Assist
	payload[2] = byte2
	bus.PutU16BE(payload, 3, s.Speed)
	bus.PutU32BE(payload, 5, s.Trip1)
	bus.PutU32BE(payload, 9, s.Trip2)
	return payload
}

// Push sends state to a CU3 head unit on command 0x28.
func (Cu3) Push(engine *bus.Engine, s State) error {
	req := bus.NewCmdReq(bus.Display, bus.BMS, 0x28, Payload(s))
	_, err := engine.Exchange(req, ExchangeTimeout)
	return err
}
