// internal/store/memflash/memflash_test.go
package memflash

import (
	"bytes"
	"testing"

	"github.com/tamzrod/faultcapture/internal/store"
)

var geo = store.Geometry{PageSize: 64, ErasePages: 4, WordSize: 4}

func TestFlash_ProgramOnlyClearsBits(t *testing.T) {
	f, err := New(geo, 512)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	if err := f.Erase(0); err != nil {
		t.Fatalf("Erase() err=%v", err)
	}

	write := func(v byte) {
		if err := f.ClearPageBuffer(); err != nil {
			t.Fatalf("ClearPageBuffer() err=%v", err)
		}
		if err := f.LoadPageBuffer(0, []byte{v, v, v, v}); err != nil {
			t.Fatalf("LoadPageBuffer() err=%v", err)
		}
		if err := f.WritePage(); err != nil {
			t.Fatalf("WritePage() err=%v", err)
		}
	}

	write(0xF0)
	write(0x0F) // without an erase the result is the AND of both writes

	got := make([]byte, 8)
	if _, err := f.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt() err=%v", err)
	}
	want := []byte{0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Fatalf("got=% x want=% x", got, want)
	}
}

func TestFlash_FreshImageIsZero(t *testing.T) {
	f, err := New(geo, 256)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if !bytes.Equal(f.Image(), make([]byte, 256)) {
		t.Fatalf("fresh image must be all zeros")
	}
}

func TestFlash_RejectsBadCommands(t *testing.T) {
	f, err := New(geo, 512)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	if err := f.Erase(64); err == nil {
		t.Fatalf("expected error for unaligned erase")
	}
	if err := f.LoadPageBuffer(2, []byte{1, 2, 3, 4}); err == nil {
		t.Fatalf("expected error for unaligned load")
	}
	if err := f.LoadPageBuffer(60, make([]byte, 8)); err == nil {
		t.Fatalf("expected error for load across page end")
	}
	if err := f.WritePage(); err == nil {
		t.Fatalf("expected error for write with empty buffer")
	}
	if _, err := New(geo, 100); err == nil {
		t.Fatalf("expected error for size not multiple of erase unit")
	}
}
