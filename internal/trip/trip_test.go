package trip

import "testing"

// TestMotorResetContinuity matches spec boundary scenario 4.
func TestMotorResetContinuity(t *testing.T) {
	var s State
	s.Update(500)
	s.Update(800)
	s.Update(50) // motor reset between 800 and 50

	if s.Total != 850 {
		t.Fatalf("Total = %d, want 850", s.Total)
	}
	if s.LastDistance != 50 {
		t.Fatalf("LastDistance = %d, want 50", s.LastDistance)
	}
}

func TestMonotonicAcrossArbitrarySequence(t *testing.T) {
	var s State
	sequence := []uint32{10, 20, 15, 0, 5, 1000, 999, 0, 0, 1}
	var prevTotal, prevTrip1, prevTrip2 uint32
	for _, x := range sequence {
		s.Update(x)
		if s.Total < prevTotal || s.Trip1 < prevTrip1 || s.Trip2 < prevTrip2 {
			t.Fatalf("counters decreased: total=%d trip1=%d trip2=%d after Update(%d)", s.Total, s.Trip1, s.Trip2, x)
		}
		prevTotal, prevTrip1, prevTrip2 = s.Total, s.Trip1, s.Trip2
	}
	if s.Total < s.Trip1 || s.Total < s.Trip2 {
		t.Fatalf("total must be >= trip1 and trip2: total=%d trip1=%d trip2=%d", s.Total, s.Trip1, s.Trip2)
	}
}

func TestResetTrip1AndTrip2Independent(t *testing.T) {
	var s State
	s.Update(100)
	s.ResetTrip1()
	if s.Trip1 != 0 {
		t.Fatalf("Trip1 = %d after reset, want 0", s.Trip1)
	}
	if s.Trip2 != 100 || s.Total != 100 {
		t.Fatalf("ResetTrip1 must not affect trip2/total: trip2=%d total=%d", s.Trip2, s.Total)
	}
}
