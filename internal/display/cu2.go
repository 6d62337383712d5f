package display

import "github.com/librescoot/bms-controller/internal/bus"

// Cu2Segments carries the blink state of every CU2 icon segment, mirroring
// the parameter list of displayUpdateCu2() in the original source.
type Cu2Segments struct {
	Assist BlinkSpeed
	Wrench BlinkSpeed
	Total  BlinkSpeed
	Trip   BlinkSpeed
	Light  BlinkSpeed
	Bars   BlinkSpeed
	Comma  BlinkSpeed
	Km     BlinkSpeed
	Top    BlinkSpeed
	Bottom BlinkSpeed
}

// Cu2Frame is everything needed to render one CU2 update, beyond the
// common State.
type Cu2Frame struct {
	SetDefault  bool
	AssistLevel uint8
	Segments    Cu2Segments
	Miles       bool
	Battery     uint8
	TopVal      uint16
	BottomVal   uint32
}

// Digits nibble-packs a decimal value into `digits` nibbles, blanking
// (0xc) leading positions below `atleast`, matching digits() exactly.
func Digits(value uint32, digitCount, atLeast int) uint32 {
	var result uint32
	divider := uint32(1)
	for pos := 0; pos < digitCount; pos++ {
		var digit uint32
		if pos+1 > atLeast && value < divider {
			digit = 0xc
		} else {
			digit = (value / divider) % 10
		}
		result |= digit << (4 * pos)
		divider *= 10
	}
	return result
}

// Cu2Payload builds the 9-byte CU2 update payload, matching
// displayUpdateCu2() byte-for-byte.
func Cu2Payload(f Cu2Frame) []byte {
	assist := uint8(f.Segments.Assist) << (f.AssistLevel * 2)

	segments1 := uint8(f.Segments.Wrench)<<0 | uint8(f.Segments.Total)<<2 | uint8(f.Segments.Trip)<<4 | uint8(f.Segments.Light)<<6
	segments2 := uint8(f.Segments.Bars)<<0 | uint8(f.Segments.Comma)<<4 | uint8(f.Segments.Km)<<6

	numTop1 := uint8(f.TopVal>>8) & 0x0f
	if f.Miles {
		numTop1 |= 0xe0
	}
	numTop2 := uint8(f.TopVal)

	numBottom1 := uint8(f.BottomVal>>16)&0x0f | uint8(f.Segments.Bottom)<<4 | uint8(f.Segments.Top)<<6
	numBottom2 := uint8(f.BottomVal >> 8)
	numBottom3 := uint8(f.BottomVal)

	return []byte{assist, segments1, segments2, f.Battery, numTop1, numTop2, numBottom1, numBottom2, numBottom3}
}

// cu2Bars maps a 0-100 battery percentage onto CU2's discrete bar-graph
// byte. No showState() for CU2 survived into original_source/ (cu2.cpp
// only keeps displayUpdateCu2(), the explicit-parameter primitive); this
// scale (0-5 bars) mirrors the discrete bar counts commonly driven by a
// 0-100 percentage on this class of e-bike LCD panel and is a documented
// assumption, not a value taken from the retrieved source.
func cu2Bars(pct uint8) uint8 {
	if pct > 100 {
		pct = 100
	}
	return uint8(uint16(pct) * 5 / 100)
}

func solidOrOff(on bool) BlinkSpeed {
	if on {
		return BlinkSolid
	}
	return BlinkOff
}

// ShowState translates common display state into a Cu2Frame, the CU2
// analogue of cu3.cpp's showStateCu3(level, screenOn, lightOn, speed,
// trip1, trip2) -- which itself just calls displayUpdateCu3 with fixed
// segment choices. Since cu2.cpp's own showState() wasn't among the
// retrieved original_source/ files, the per-segment choices here are
// steady: every indicator is solid or off (the assist segment follows
// level > 0, the light segment follows lightOn), and none blinks.
func ShowState(level uint8, lightOn bool, speed uint16, trip uint32, batPercentage uint8) Cu2Frame {
	return Cu2Frame{
		AssistLevel: level,
		Segments: Cu2Segments{
			Assist: solidOrOff(level > 0),
			Wrench: BlinkOff,
			Total:  BlinkOff,
			Trip:   BlinkSolid,
			Light:  solidOrOff(lightOn),
			Bars:   BlinkSolid,
			Comma:  BlinkOff,
			Km:     BlinkSolid,
			Top:    BlinkSolid,
			Bottom: BlinkSolid,
		},
		Battery:   cu2Bars(batPercentage),
		TopVal:    uint16(Digits(uint32(speed/10), 3, 1)),
		BottomVal: Digits(trip, 5, 1),
	}
}

// Cu2 talks to the older head unit: a 9-byte payload on command 0x26/0x27.
type Cu2 struct{}

// Push translates s into a Cu2Frame via ShowState and sends it to a CU2
// head unit. Command 0x27 requests the display be treated as the new
// default (used on the first push after power-on, step 0 of
// handleTurnMotorOn); 0x26 is a regular update.
func (Cu2) Push(engine *bus.Engine, s State) error {
	frame := ShowState(s.Assist, s.LightOn, s.Speed, s.Trip1, s.BatteryPct)
	frame.SetDefault = s.SetDefault
	cmd := uint8(0x26)
	if s.SetDefault {
		cmd = 0x27
	}
	req := bus.NewCmdReq(bus.Display, bus.BMS, cmd, Cu2Payload(frame))
	_, err := engine.Exchange(req, ExchangeTimeout)
	return err
}
