package hal

// PressEvent is the short/long press classification the input task
// produces from raw GPIO level samples.
type PressEvent int

const (
	NoEvent PressEvent = iota
	ShortPress
	LongPress
)

// longPressUpdates is the number of 100ms polls a held button must
// survive to count as a long press, matching LONG_PRESS_UPDATES (50) in
// the original source's cu2.cpp button checker.
const longPressUpdates = 50

// ButtonTracker reimplements buttonCheck()'s press/held/long-press state
// machine against a plain "is the pin currently asserted" sample, decoupled
// from the CU2-specific bus polling command the original ties it to —
// here it runs off direct GPIO reads, per spec.md §6's GPIO button surface.
type ButtonTracker struct {
	held         uint32
	ignoreFirst  bool
}

// IgnoreNextRelease suppresses the next short-press event on release,
// mirroring ignorePress()/the ignoreHeldBit handshake used after a
// long-press has already been acted on, so releasing the button doesn't
// also fire a spurious short press.
func (b *ButtonTracker) IgnoreNextRelease() {
	b.ignoreFirst = true
}

// Poll feeds one sample (true = pressed) and returns the event, if any,
// produced by this tick.
func (b *ButtonTracker) Poll(pressed bool) PressEvent {
	if pressed {
		b.held++
		if b.held == longPressUpdates {
			return LongPress
		}
		return NoEvent
	}

	if b.held == 0 {
		return NoEvent
	}

	held := b.held
	b.held = 0
	if b.ignoreFirst {
		b.ignoreFirst = false
		return NoEvent
	}
	if held < longPressUpdates {
		return ShortPress
	}
	return NoEvent
}
