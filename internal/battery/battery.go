// Package battery implements the ADC sampling, exponential smoothing and
// percentage mapping of spec.md §4.8, grounded on bat.cpp's
// measureBat/measureCurrentMv/batMvToPercentage chain.
package battery

// Config holds the build-time constants spec.md §6 lists under
// "Configuration constants": calibrated empty/full voltage thresholds and
// the nominal pack capacity.
type Config struct {
	EmptyMv      uint32
	FullMv       uint32
	ChargeMahNom uint32 // BAT_CHARGE, nominal mAh capacity
}

// ADCSource reads calibrated millivolts from the voltage and (optional)
// current channels. No type in internal/hal implements it; the control loop
// reads hal.ADCChannel values and passes them to SampleVoltage/SampleCurrent.
type ADCSource interface {
	VoltageMv() (uint32, error)
	CurrentAvailable() bool
	CurrentMv() (uint32, error)
}

// Accounting tracks smoothed voltage, percentage and coulomb count, one
// instance per controller.
type Accounting struct {
	cfg Config

	mv uint32
	ma uint32

	historyMv uint64 // EMA accumulator for voltage, scaled x128 (alpha=1/128)
	historyMa uint64 // EMA accumulator for current, scaled x32 (alpha=1/32)

	percentage uint8
	mah        uint64

	dirty bool
}

// New creates an Accounting seeded from persisted percentage/mv/mah
// (spec.md §3's "charge" blob), so the EMA doesn't restart cold on reboot.
func New(cfg Config, startMv uint32, startPercentage uint8, startMah uint64) *Accounting {
	a := &Accounting{cfg: cfg, percentage: startPercentage, mah: startMah}
	if startMv > 0 {
		a.historyMv = uint64(startMv) << 7
		a.mv = startMv
	}
	return a
}

// SampleVoltage runs one 100ms voltage tick: feed sample into the alpha=1/128
// EMA (history += sample; avg = history>>7; history -= avg), matching
// measureBat() exactly, then recompute the percentage from the smoothed
// value.
func (a *Accounting) SampleVoltage(sampleMv uint32) {
	a.historyMv += uint64(sampleMv)
	avg := a.historyMv >> 7
	a.historyMv -= avg
	a.mv = uint32(avg)

	pct := PercentageForMv(a.cfg, a.mv)
	if pct != a.percentage {
		a.percentage = pct
		a.dirty = true
	}
}

// SampleCurrent runs one 100ms current tick: feed sample into the
// alpha=1/32 EMA (history += sample; avg = history>>5; history -= avg),
// matching measureCurrentMv() exactly, and accumulates relative mAh.
func (a *Accounting) SampleCurrent(sampleMv uint32) {
	a.historyMa += uint64(sampleMv)
	avg := a.historyMa >> 5
	a.historyMa -= avg
	a.ma = uint32(avg)
	a.mah += uint64(avg)
}

// PercentageForMv applies spec.md §4.4's clamp formula:
// pct = clamp(0,100, (mv-empty)*100/(full-empty)) if mv >= empty, else 0.
func PercentageForMv(cfg Config, mv uint32) uint8 {
	if mv < cfg.EmptyMv || cfg.FullMv <= cfg.EmptyMv {
		return 0
	}
	pct := (mv - cfg.EmptyMv) * 100 / (cfg.FullMv - cfg.EmptyMv)
	if pct > 100 {
		pct = 100
	}
	return uint8(pct)
}

// Mv returns the last smoothed voltage.
func (a *Accounting) Mv() uint32 { return a.mv }

// Ma returns the last smoothed current.
func (a *Accounting) Ma() uint32 { return a.ma }

// Mah returns accumulated relative mAh (uncalibrated coulomb count).
func (a *Accounting) Mah() uint64 { return a.mah }

// ConsumeDirty reports whether the percentage has changed since the last
// call and clears the flag, the trigger charge.cpp's getChargePercentage()
// uses to decide when to call batDataSave() -- persistence.SaveCharge is
// opportunistic (spec.md §3's "Lifecycles"), not flushed on every sample.
func (a *Accounting) ConsumeDirty() bool {
	d := a.dirty
	a.dirty = false
	return d
}

// Percentage returns getBatPercentage(): a fake 50% when no voltage sample
// has ever been taken (mv==0), matching the original firmware's fallback
// for boards without ADC wired up.
func (a *Accounting) Percentage() uint8 {
	if a.mv == 0 {
		return 50
	}
	return a.percentage
}
