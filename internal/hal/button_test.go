package hal

import "testing"

func TestShortPressOnRelease(t *testing.T) {
	var b ButtonTracker
	for i := 0; i < 10; i++ {
		if ev := b.Poll(true); ev != NoEvent {
			t.Fatalf("unexpected event while held: %v", ev)
		}
	}
	if ev := b.Poll(false); ev != ShortPress {
		t.Fatalf("Poll(false) after 10 ticks held = %v, want ShortPress", ev)
	}
}

func TestLongPressFiresAtThreshold(t *testing.T) {
	var b ButtonTracker
	var last PressEvent
	for i := 0; i < longPressUpdates; i++ {
		last = b.Poll(true)
	}
	if last != LongPress {
		t.Fatalf("event at tick %d = %v, want LongPress", longPressUpdates, last)
	}
}

func TestNoShortPressAfterLongPress(t *testing.T) {
	var b ButtonTracker
	for i := 0; i < longPressUpdates+5; i++ {
		b.Poll(true)
	}
	if ev := b.Poll(false); ev != NoEvent {
		t.Fatalf("release after long press fired %v, want NoEvent", ev)
	}
}

func TestIgnoreNextReleaseSuppressesShortPress(t *testing.T) {
	var b ButtonTracker
	b.IgnoreNextRelease()
	b.Poll(true)
	if ev := b.Poll(false); ev != NoEvent {
		t.Fatalf("suppressed release fired %v, want NoEvent", ev)
	}
}

func TestNoEventWithoutPress(t *testing.T) {
	var b ButtonTracker
	if ev := b.Poll(false); ev != NoEvent {
		t.Fatalf("Poll(false) with nothing held = %v, want NoEvent", ev)
	}
}
