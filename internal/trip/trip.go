// Package trip implements cumulative distance accounting with
// motor-reset detection, per spec.md §4.8. The simpler
// trip1=trip2=distance scheme in the earlier original_source/main/trip.cpp
// revision is superseded by this delta-accumulation design, which spec.md
// requires explicitly so that trip continuity survives a motor power cycle.
package trip

// State is the persisted trip record (spec.md §3's "distance" blob).
type State struct {
	Trip1        uint32
	Trip2        uint32
	Total        uint32
	LastDistance uint32
}

// Update applies one motor distance reading. If motorDistance has not
// reset (it's >= the last reading), the delta since last reading is
// added to all three counters. If the motor appears to have reset (its
// counter is now lower than before — it restarted since power-on), the
// whole new reading is treated as the delta, preserving continuity
// without needing an explicit reset signal.
func (s *State) Update(motorDistance uint32) {
	var delta uint32
	if motorDistance >= s.LastDistance {
		delta = motorDistance - s.LastDistance
	} else {
		delta = motorDistance
	}
	s.Trip1 += delta
	s.Trip2 += delta
	s.Total += delta
	s.LastDistance = motorDistance
}

// ResetTrip1 zeroes trip1 only (a rider-triggered "reset trip A" action);
// trip2/total are untouched.
func (s *State) ResetTrip1() { s.Trip1 = 0 }

// ResetTrip2 zeroes trip2 only.
func (s *State) ResetTrip2() { s.Trip2 = 0 }
