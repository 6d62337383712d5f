// Package persistence implements the small typed-blob key/value store of
// spec.md §4.9: calibration, distance and charge records behind
// exists/read/write, backed either by plain files (grounded on
// original_source/main/storage.cpp's file-per-blob scheme) or by Redis
// (grounded on the teacher's pkg/redis.Client).
package persistence

// Blob names the three persisted records spec.md §3/§4.9 define.
type Blob string

const (
	BlobCalibration Blob = "calibration"
	BlobDistance    Blob = "distance"
	BlobCharge      Blob = "charge"
)

// Store is the exists/read/write key-value interface. Per spec.md §7,
// persistence failures return false/error and callers fall back to
// in-RAM defaults — they are never fatal. Read reports the number of
// bytes actually stored for blob (copied into dst, truncated to
// len(dst) if the stored value is larger) so callers can tell a short
// CBOR payload from zero-padding rather than guessing from trailing
// zero bytes, which a payload legitimately ending in 0x00 would corrupt.
type Store interface {
	Exists(blob Blob) bool
	Read(blob Blob, dst []byte) (n int, ok bool)
	Write(blob Blob, src []byte) bool
}

// Calibration is the 10 opaque bytes the motor persists and reads back
// verbatim (spec.md §3's "Calibration blob").
type Calibration struct {
	Data [10]byte
}

// Distance is the persisted trip/total counters (spec.md §6's "distance"
// record): three u32s.
type Distance struct {
	Trip1 uint32
	Trip2 uint32
	Total uint32
}

// Charge is the persisted battery percentage/voltage/mAh record
// (spec.md §6's "charge" record).
type Charge struct {
	Percentage uint8
	Mv         uint32
	Mah        uint64
}
