// Author: momentics <momentics@gmail.com>

package handletable

import (
	"testing"
	"unsafe"
)

func TestInsertLookupRemoveRoundTrip(t *testing.T) {
	tbl := New()
	buf := make([]byte, 64)
	ptr := unsafe.Pointer(&buf[0])

	h := tbl.Insert(1, ptr, 64)
	if h == 0 {
		t.Fatalf("expected non-zero handle")
	}

	gotPtr, gotSize, err := tbl.Lookup(1, h)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if gotPtr != ptr || gotSize != 64 {
		t.Fatalf("lookup mismatch: ptr=%v size=%d", gotPtr, gotSize)
	}

	removedPtr, _, err := tbl.Remove(1, h)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removedPtr != ptr {
		t.Fatalf("remove returned wrong pointer")
	}

	if _, _, err := tbl.Lookup(1, h); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestCrossZoneAccessDenied(t *testing.T) {
	tbl := New()
	buf := make([]byte, 16)
	h := tbl.Insert(1, unsafe.Pointer(&buf[0]), 16)

	if _, _, err := tbl.Lookup(2, h); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for cross-zone lookup, got %v", err)
	}
	if _, _, err := tbl.Remove(2, h); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for cross-zone remove, got %v", err)
	}

	// State unchanged: owner zone can still access the handle.
	if _, _, err := tbl.Lookup(1, h); err != nil {
		t.Fatalf("owner lookup should still succeed after denied cross-zone attempt: %v", err)
	}
}

func TestLookupMissingHandleMatchesWrongOwnerError(t *testing.T) {
	tbl := New()
	buf := make([]byte, 16)
	h := tbl.Insert(1, unsafe.Pointer(&buf[0]), 16)

	_, _, errMissing := tbl.Lookup(1, h+1)
	_, _, errWrongOwner := tbl.Lookup(2, h)
	if errMissing != errWrongOwner {
		t.Fatalf("missing-handle and wrong-owner errors must be identical, got %v vs %v", errMissing, errWrongOwner)
	}
}

func TestInsertRejectsNilPointer(t *testing.T) {
	tbl := New()
	if h := tbl.Insert(1, nil, 16); h != 0 {
		t.Fatalf("expected 0 for nil pointer insert, got %d", h)
	}
}

func TestHandleZeroReserved(t *testing.T) {
	tbl := New()
	buf := make([]byte, 8)
	h := tbl.Insert(1, unsafe.Pointer(&buf[0]), 8)
	if h == 0 {
		t.Fatalf("first handle must not be zero")
	}
}

func TestStatsTrackLiveCountAndBytes(t *testing.T) {
	tbl := New()
	bufA := make([]byte, 100)
	bufB := make([]byte, 200)

	hA := tbl.Insert(1, unsafe.Pointer(&bufA[0]), 100)
	_ = tbl.Insert(1, unsafe.Pointer(&bufB[0]), 200)

	count, bytes := tbl.Stats()
	if count != 2 || bytes != 300 {
		t.Fatalf("got count=%d bytes=%d, want 2/300", count, bytes)
	}

	if _, _, err := tbl.Remove(1, hA); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	count, bytes = tbl.Stats()
	if count != 1 || bytes != 200 {
		t.Fatalf("after remove got count=%d bytes=%d, want 1/200", count, bytes)
	}
}

func TestCleanupDropsAllEntries(t *testing.T) {
	tbl := New()
	buf := make([]byte, 32)
	tbl.Insert(1, unsafe.Pointer(&buf[0]), 32)
	tbl.Cleanup()

	count, bytes := tbl.Stats()
	if count != 0 || bytes != 0 {
		t.Fatalf("expected empty table after cleanup, got count=%d bytes=%d", count, bytes)
	}
}
