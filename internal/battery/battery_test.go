package battery

import "testing"

func TestPercentageClamp(t *testing.T) {
	cfg := Config{EmptyMv: 30000, FullMv: 42000}
	cases := []struct {
		mv   uint32
		want uint8
	}{
		{0, 0},
		{29999, 0},
		{30000, 0},
		{36000, 50},
		{42000, 100},
		{50000, 100}, // clamp above full
	}
	for _, c := range cases {
		if got := PercentageForMv(cfg, c.mv); got != c.want {
			t.Errorf("PercentageForMv(%d) = %d, want %d", c.mv, got, c.want)
		}
	}
}

// TestVoltageEMAConvergence matches spec boundary scenario 5: feeding a
// constant sample 640 times should settle within ~1% of the input.
func TestVoltageEMAConvergence(t *testing.T) {
	cfg := Config{EmptyMv: 0, FullMv: 100000}
	a := New(cfg, 0, 0, 0)
	const sample = 36000
	for i := 0; i < 640; i++ {
		a.SampleVoltage(sample)
	}
	got := a.Mv()
	diff := int64(got) - int64(sample)
	if diff < 0 {
		diff = -diff
	}
	tolerance := int64(sample) / 100
	if diff > tolerance {
		t.Fatalf("after 640 samples, Mv() = %d, want within %d of %d", got, tolerance, sample)
	}
}

func TestPercentageAlwaysInRange(t *testing.T) {
	cfg := Config{EmptyMv: 30000, FullMv: 42000}
	a := New(cfg, 30000, 0, 0)
	for _, mv := range []uint32{0, 1000, 29000, 30000, 36000, 42000, 60000} {
		a.SampleVoltage(mv)
		p := a.Percentage()
		if p > 100 {
			t.Fatalf("Percentage() = %d after sampling %d, want <= 100", p, mv)
		}
	}
}

func TestFakePercentageWhenNoVoltage(t *testing.T) {
	a := New(Config{EmptyMv: 30000, FullMv: 42000}, 0, 0, 0)
	if got := a.Percentage(); got != 50 {
		t.Fatalf("Percentage() with no samples = %d, want 50", got)
	}
}

func TestConsumeDirtyOnPercentageChange(t *testing.T) {
	a := New(Config{EmptyMv: 30000, FullMv: 42000}, 30000, 0, 0)
	if a.ConsumeDirty() {
		t.Fatalf("dirty before any sample changed percentage")
	}
	for i := 0; i < 700; i++ {
		a.SampleVoltage(42000)
	}
	if !a.ConsumeDirty() {
		t.Fatalf("expected dirty after percentage moved from 0 to 100")
	}
	if a.ConsumeDirty() {
		t.Fatalf("ConsumeDirty should clear after being read")
	}
}

func TestCurrentAccumulatesMah(t *testing.T) {
	a := New(Config{EmptyMv: 30000, FullMv: 42000}, 30000, 0, 0)
	before := a.Mah()
	a.SampleCurrent(500)
	if a.Mah() <= before {
		t.Fatalf("Mah() did not increase after a positive current sample")
	}
}
