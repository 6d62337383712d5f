package persistence

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encode CBOR-marshals v, the same encoding the teacher uses in
// pkg/service/helpers.go's writeUARTMessage before handing bytes to a
// transport; here the transport is the key-value Store instead of the bus.
func encode(v interface{}) ([]byte, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}
	return b, nil
}

func decode(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	return nil
}

// DefaultCalibration is the bundled calibration main.cpp falls back to
// when no calibration has ever been written (main.cpp:208-212's backup
// data[], overwriting the 0xff scratch buffer before it reaches the bus).
var DefaultCalibration = Calibration{Data: [10]byte{0x94, 0x38, 0x4b, 0x15, 0x28, 0x3a, 0x3e, 0x91, 0x79, 0x50}}

// LoadCalibration reads the calibration blob, falling back to
// DefaultCalibration (spec.md §4.4's "10-byte stored calibration (or
// bundled default)") if absent or unreadable.
func LoadCalibration(store Store) Calibration {
	if !store.Exists(BlobCalibration) {
		return DefaultCalibration
	}
	buf := make([]byte, 256)
	n, ok := store.Read(BlobCalibration, buf)
	if !ok {
		return DefaultCalibration
	}
	var c Calibration
	if err := decode(buf[:n], &c); err != nil {
		return DefaultCalibration
	}
	return c
}

// SaveCalibration persists the 10-byte calibration blob verbatim, written
// only by the motor via PUT 38/3a per spec.md §4.4.
func SaveCalibration(store Store, c Calibration) bool {
	b, err := encode(c)
	if err != nil {
		return false
	}
	return store.Write(BlobCalibration, b)
}

// LoadDistance restores the trip counters, defaulting to zero.
func LoadDistance(store Store) Distance {
	var d Distance
	if !store.Exists(BlobDistance) {
		return d
	}
	buf := make([]byte, 256)
	n, ok := store.Read(BlobDistance, buf)
	if !ok {
		return d
	}
	if err := decode(buf[:n], &d); err != nil {
		return Distance{}
	}
	return d
}

// SaveDistance persists the trip counters; called on MotorOff entry per
// spec.md §3's "Lifecycles".
func SaveDistance(store Store, d Distance) bool {
	b, err := encode(d)
	if err != nil {
		return false
	}
	return store.Write(BlobDistance, b)
}

// LoadCharge restores battery percentage/mv/mah, defaulting to zero
// (battery.Accounting treats mv==0 as "report a fake 50%").
func LoadCharge(store Store) Charge {
	var c Charge
	if !store.Exists(BlobCharge) {
		return c
	}
	buf := make([]byte, 256)
	n, ok := store.Read(BlobCharge, buf)
	if !ok {
		return c
	}
	if err := decode(buf[:n], &c); err != nil {
		return Charge{}
	}
	return c
}

// SaveCharge persists battery state opportunistically, per spec.md §3.
func SaveCharge(store Store, c Charge) bool {
	b, err := encode(c)
	if err != nil {
		return false
	}
	return store.Write(BlobCharge, b)
}
