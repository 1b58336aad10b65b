// internal/store/boltflash/boltflash.go
package boltflash

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/tamzrod/faultcapture/internal/store"
)

var pagesBucket = []byte("pages")

// Flash is a flash image persisted in a bbolt file, one value per page.
// Pages that were never written read as zeros, matching a freshly
// programmed device. The image survives process restarts, which is what a
// hosted simulation of "reset" needs.
type Flash struct {
	mu   sync.Mutex
	db   *bolt.DB
	geo  store.Geometry
	size uint32

	buf     []byte
	bufAddr uint32
	loaded  bool
}

// Config describes the backing file and the emulated medium.
type Config struct {
	Path     string
	Size     uint32
	Geometry store.Geometry
	Timeout  time.Duration
}

// Open opens or creates the image file.
func Open(cfg Config) (*Flash, error) {
	if cfg.Path == "" {
		return nil, errors.New("boltflash: path required")
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	if cfg.Size == 0 || cfg.Size%cfg.Geometry.EraseSize() != 0 {
		return nil, errors.Errorf("boltflash: size %d not a multiple of erase unit %d", cfg.Size, cfg.Geometry.EraseSize())
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	db, err := bolt.Open(cfg.Path, 0600, &bolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "boltflash: open %s", cfg.Path)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "boltflash: create bucket")
	}

	return &Flash{
		db:   db,
		geo:  cfg.Geometry,
		size: cfg.Size,
		buf:  make([]byte, cfg.Geometry.PageSize),
	}, nil
}

// Close closes the backing file.
func (f *Flash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.db.Close()
}

func (f *Flash) Geometry() store.Geometry { return f.geo }

func (f *Flash) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off < 0 || off+int64(len(p)) > int64(f.size) {
		return 0, errors.Errorf("boltflash: read [%d,%d) out of range", off, off+int64(len(p)))
	}

	ps := int64(f.geo.PageSize)
	n := 0
	err := f.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		for n < len(p) {
			addr := off + int64(n)
			idx := uint32(addr / ps)
			in := addr % ps

			want := int(ps - in)
			if want > len(p)-n {
				want = len(p) - n
			}

			if v := b.Get(pageKey(idx)); v != nil {
				copy(p[n:n+want], v[in:])
			} else {
				for i := n; i < n+want; i++ {
					p[i] = 0
				}
			}
			n += want
		}
		return nil
	})
	return n, err
}

func (f *Flash) Erase(addr uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	unit := f.geo.EraseSize()
	if addr%unit != 0 || addr+unit > f.size {
		return errors.Errorf("boltflash: bad erase address %#x", addr)
	}

	erased := make([]byte, f.geo.PageSize)
	for i := range erased {
		erased[i] = 0xFF
	}

	return f.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		first := addr / f.geo.PageSize
		for i := uint32(0); i < f.geo.ErasePages; i++ {
			if err := b.Put(pageKey(first+i), erased); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *Flash) ClearPageBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.buf {
		f.buf[i] = 0xFF
	}
	f.loaded = false
	return nil
}

func (f *Flash) LoadPageBuffer(addr uint32, words []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if addr%f.geo.WordSize != 0 || uint32(len(words))%f.geo.WordSize != 0 {
		return errors.Errorf("boltflash: unaligned load at %#x", addr)
	}
	pageAddr := addr - addr%f.geo.PageSize
	if f.loaded && pageAddr != f.bufAddr {
		return errors.Errorf("boltflash: load at %#x crosses staged page %#x", addr, f.bufAddr)
	}
	if addr+uint32(len(words)) > pageAddr+f.geo.PageSize || pageAddr+f.geo.PageSize > f.size {
		return errors.Errorf("boltflash: load at %#x overruns page", addr)
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
		return errors.New("boltflash: write page with empty buffer")
	}

	key := pageKey(f.bufAddr / f.geo.PageSize)
	err := f.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(pagesBucket)

		page := make([]byte, f.geo.PageSize)
		if v := b.Get(key); v != nil {
			copy(page, v)
		}
		for i := range page {
			page[i] &= f.buf[i]
		}
		return b.Put(key, page)
	})
	if err != nil {
		return errors.Wrap(err, "boltflash: write page")
	}

	f.loaded = false
	return nil
}

// Reprogram drops every stored page, returning the image to all zeros.
func (f *Flash) Reprogram() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(pagesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(pagesBucket)
		return err
	})
}

func pageKey(idx uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], idx)
	return k[:]
}

var _ store.Medium = (*Flash)(nil)
