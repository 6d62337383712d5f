package persistence

import (
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTripDistance(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	want := Distance{Trip1: 100, Trip2: 200, Total: 300}
	if !SaveDistance(store, want) {
		t.Fatal("SaveDistance returned false")
	}
	if !store.Exists(BlobDistance) {
		t.Fatal("Exists(BlobDistance) = false after save")
	}
	got := LoadDistance(store)
	if got != want {
		t.Fatalf("LoadDistance() = %+v, want %+v", got, want)
	}
}

func TestFileStoreMissingBlobDefaultsZero(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if store.Exists(BlobCharge) {
		t.Fatal("Exists(BlobCharge) = true before any write")
	}
	got := LoadCharge(store)
	if got != (Charge{}) {
		t.Fatalf("LoadCharge() on missing blob = %+v, want zero value", got)
	}
}

func TestCalibrationRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	want := Calibration{Data: [10]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}
	if !SaveCalibration(store, want) {
		t.Fatal("SaveCalibration returned false")
	}
	got := LoadCalibration(store)
	if got != want {
		t.Fatalf("LoadCalibration() = %+v, want %+v", got, want)
	}
}

func TestLoadCalibrationMissingBlobReturnsBundledDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	got := LoadCalibration(store)
	if got != DefaultCalibration {
		t.Fatalf("LoadCalibration() on missing blob = %+v, want bundled default %+v", got, DefaultCalibration)
	}
}

// TestChargeRoundTripsWhenCBOREndsInZeroByte guards against over-trimming a
// fixed-size read buffer: Mv=256 CBOR-encodes to {0x19, 0x01, 0x00}, a
// payload that legitimately ends in 0x00, which a length-by-trailing-zeros
// scheme would mistake for read-buffer padding and truncate.
func TestChargeRoundTripsWhenCBOREndsInZeroByte(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	want := Charge{Percentage: 50, Mv: 256, Mah: 0}
	if !SaveCharge(store, want) {
		t.Fatal("SaveCharge returned false")
	}
	got := LoadCharge(store)
	if got != want {
		t.Fatalf("LoadCharge() = %+v, want %+v", got, want)
	}
}
