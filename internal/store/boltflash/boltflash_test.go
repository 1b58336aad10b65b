// internal/store/boltflash/boltflash_test.go
package boltflash

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/tamzrod/faultcapture/internal/record"
	"github.com/tamzrod/faultcapture/internal/store"
)

func testConfig(t *testing.T) Config {
	return Config{
		Path:     filepath.Join(t.TempDir(), "flash.db"),
		Size:     1024,
		Geometry: store.Geometry{PageSize: 64, ErasePages: 4, WordSize: 4},
	}
}

func TestFlash_SurvivesReopen(t *testing.T) {
	cfg := testConfig(t)

	f, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}

	r, err := store.NewRegion(f, 256, 256)
	if err != nil {
		t.Fatalf("NewRegion() err=%v", err)
	}

	payload := bytes.Repeat([]byte{0x5A}, record.Size)
	if err := r.Commit(payload); err != nil {
		t.Fatalf("Commit() err=%v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() err=%v", err)
	}

	f, err = Open(cfg)
	if err != nil {
		t.Fatalf("re-Open() err=%v", err)
	}
	defer f.Close()

	got := make([]byte, record.Size)
	if _, err := f.ReadAt(got, 256); err != nil {
		t.Fatalf("ReadAt() err=%v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload lost across reopen")
	}
}

func TestFlash_BlankAndReprogram(t *testing.T) {
	f, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	defer f.Close()

	fresh := make([]byte, 1024)
	if _, err := f.ReadAt(fresh, 0); err != nil {
		t.Fatalf("ReadAt() err=%v", err)
	}
	if !bytes.Equal(fresh, make([]byte, 1024)) {
		t.Fatalf("fresh image must read as zeros")
	}

	if err := f.Erase(0); err != nil {
		t.Fatalf("Erase() err=%v", err)
	}
	erased := make([]byte, 4)
	if _, err := f.ReadAt(erased, 252); err != nil {
		t.Fatalf("ReadAt() err=%v", err)
	}
	if !bytes.Equal(erased, []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Fatalf("erased unit must read 0xFF, got % x", erased)
	}

	if err := f.Reprogram(); err != nil {
		t.Fatalf("Reprogram() err=%v", err)
	}
	if _, err := f.ReadAt(erased, 252); err != nil {
		t.Fatalf("ReadAt() err=%v", err)
	}
	if !bytes.Equal(erased, make([]byte, 4)) {
		t.Fatalf("reprogrammed image must read as zeros, got % x", erased)
	}
}

func TestOpen_Validation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Path = ""
	if _, err := Open(cfg); err == nil {
		t.Fatalf("expected error for empty path")
	}

	cfg = testConfig(t)
	cfg.Size = 100
	if _, err := Open(cfg); err == nil {
		t.Fatalf("expected error for bad size")
	}
}
