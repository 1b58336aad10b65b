// internal/store/memflash/memflash.go
package memflash

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/store"
)

// Flash is an in-memory NOR flash.
// Programming can only clear bits, erase sets a unit to 0xFF, and a fresh
// image reads as zeros (the state left by programming the device).
// It implements store.Medium.
type Flash struct {
	mu   sync.Mutex
	geo  store.Geometry
	data []byte

	buf     []byte
	bufAddr uint32
	loaded  bool

	// Counters observed by tests.
	Erases       int
	BufferClears int
	PageWrites   int

	// FailErase, when set, is returned by every Erase.
	FailErase error
}

// New creates a zeroed flash image of size bytes.
func New(geo store.Geometry, size uint32) (*Flash, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if size == 0 || size%geo.EraseSize() != 0 {
		return nil, errors.Errorf("memflash: size %d not a multiple of erase unit %d", size, geo.EraseSize())
	}
	return &Flash{
		geo:  geo,
		data: make([]byte, size),
		buf:  make([]byte, geo.PageSize),
	}, nil
}

func (f *Flash) Geometry() store.Geometry { return f.geo }

func (f *Flash) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off < 0 || off+int64(len(p)) > int64(len(f.data)) {
		return 0, errors.Errorf("memflash: read [%d,%d) out of range", off, off+int64(len(p)))
	}
	return copy(p, f.data[off:]), nil
}

func (f *Flash) Erase(addr uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailErase != nil {
		return f.FailErase
	}

	unit := f.geo.EraseSize()
	if addr%unit != 0 || addr+unit > uint32(len(f.data)) {
		return errors.Errorf("memflash: bad erase address %#x", addr)
	}
	for i := addr; i < addr+unit; i++ {
		f.data[i] = 0xFF
	}
	f.Erases++
	return nil
}

func (f *Flash) ClearPageBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.buf {
		f.buf[i] = 0xFF
	}
	f.loaded = false
	f.BufferClears++
	return nil
}

func (f *Flash) LoadPageBuffer(addr uint32, words []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if addr%f.geo.WordSize != 0 || uint32(len(words))%f.geo.WordSize != 0 {
		return errors.Errorf("memflash: unaligned load at %#x (%d bytes)", addr, len(words))
	}

	pageAddr := addr - addr%f.geo.PageSize
	if f.loaded && pageAddr != f.bufAddr {
		return errors.Errorf("memflash: load at %#x crosses staged page %#x", addr, f.bufAddr)
	}
	if addr+uint32(len(words)) > pageAddr+f.geo.PageSize {
		return errors.Errorf("memflash: load at %#x overruns page", addr)
	}
	if pageAddr+f.geo.PageSize > uint32(len(f.data)) {
		return errors.Errorf("memflash: load at %#x out of range", addr)
	}

	copy(f.buf[addr-pageAddr:], words)
	f.bufAddr = pageAddr
	f.loaded = true
	return nil
}

func (f *Flash) WritePage() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		return errors.New("memflash: write page with empty buffer")
	}

	page := f.data[f.bufAddr : f.bufAddr+f.geo.PageSize]
	for i := range page {
		page[i] &= f.buf[i]
	}
	f.loaded = false
	f.PageWrites++
	return nil
}

// Image returns a copy of the whole flash contents.
func (f *Flash) Image() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// Program overwrites the image starting at off, bypassing erase semantics.
// It models flashing a new firmware image.
func (f *Flash) Program(off uint32, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off+uint32(len(p)) > uint32(len(f.data)) {
		return errors.Errorf("memflash: program [%d,%d) out of range", off, off+uint32(len(p)))
	}
	copy(f.data[off:], p)
	return nil
}

var _ store.Medium = (*Flash)(nil)
