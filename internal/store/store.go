// internal/store/store.go
package store

import (
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/record"
)

// Medium abstracts the non-volatile memory controller.
// Every command is synchronous: it returns only once the controller reports
// ready. Implementations poll; none of them time out.
type Medium interface {
	Geometry() Geometry

	// ReadAt reads raw contents starting at byte address off.
	ReadAt(p []byte, off int64) (int, error)

	// Erase clears the erase unit starting at addr.
	Erase(addr uint32) error

	// ClearPageBuffer resets the page buffer before it is loaded.
	ClearPageBuffer() error

	// LoadPageBuffer stages whole words for the page containing addr.
	LoadPageBuffer(addr uint32, words []byte) error

	// WritePage programs the staged page buffer.
	WritePage() error
}

// Region is the fixed block reserved for the fault record.
// It knows nothing about what the record means.
type Region struct {
	medium Medium
	geo    Geometry
	base   uint32
	size   uint32

	// scratch holds the word-padded image during Commit.
	scratch []byte
}

// NewRegion binds a region of size bytes at base on m.
// base must sit on an erase unit boundary and the region must be able to
// hold one padded record.
func NewRegion(m Medium, base, size uint32) (*Region, error) {
	if m == nil {
		return nil, errors.New("store: medium required")
	}

	geo := m.Geometry()
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if base%geo.EraseSize() != 0 {
		return nil, errors.Errorf("store: region base %#x not aligned to erase unit %d", base, geo.EraseSize())
	}
	if size%geo.EraseSize() != 0 {
		return nil, errors.Errorf("store: region size %d not a multiple of erase unit %d", size, geo.EraseSize())
	}

	padded := roundUp(record.Size, geo.WordSize)
	if size < padded {
		return nil, errors.Errorf("store: region size %d smaller than record (%d)", size, padded)
	}

	return &Region{
		medium:  m,
		geo:     geo,
		base:    base,
		size:    size,
		scratch: make([]byte, padded),
	}, nil
}

// Base returns the region start address.
func (r *Region) Base() uint32 { return r.base }

// Size returns the region size in bytes.
func (r *Region) Size() uint32 { return r.size }

// Geometry returns the geometry of the underlying medium.
func (r *Region) Geometry() Geometry { return r.geo }

// ReadAt reads region contents starting at region offset off.
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(r.size) {
		return 0, errors.Errorf("store: read [%d,%d) outside region of %d bytes", off, off+int64(len(p)), r.size)
	}
	n, err := r.medium.ReadAt(p, int64(r.base)+off)
	if err != nil {
		return n, errors.Wrap(err, "store: read")
	}
	return n, nil
}

// Commit erases the erase units b occupies and programs b page by page.
// b must fit the scratch buffer sized at construction; the call does not
// allocate. The first error aborts the sequence.
func (r *Region) Commit(b []byte) error {
	if len(b) > len(r.scratch) {
		return errors.Errorf("store: commit of %d bytes exceeds %d", len(b), len(r.scratch))
	}

	// pad to word granularity with the erased value so the tail is a no-op
	n := roundUp(uint32(len(b)), r.geo.WordSize)
	img := r.scratch[:n]
	copy(img, b)
	for i := len(b); i < len(img); i++ {
		img[i] = 0xFF
	}

	eraseSize := r.geo.EraseSize()
	for off := uint32(0); off < n; off += eraseSize {
		if err := r.medium.Erase(r.base + off); err != nil {
			return err
		}
	}

	return r.program(img)
}

// Blank returns the region to the state it has right after the device is
// programmed: every byte zero. It stands in for reprogramming on hosted
// media and is never used on the capture path.
func (r *Region) Blank() error {
	eraseSize := r.geo.EraseSize()
	for off := uint32(0); off < r.size; off += eraseSize {
		if err := r.medium.Erase(r.base + off); err != nil {
			return err
		}
	}
	return r.program(make([]byte, r.size))
}

// program writes img from the region start, one page buffer at a time.
// Each page is cleared, loaded, then flushed so a short final page is not
// left sitting in the buffer.
func (r *Region) program(img []byte) error {
	page := r.geo.PageSize
	n := uint32(len(img))

	for idx := uint32(0); idx < n; {
		if err := r.medium.ClearPageBuffer(); err != nil {
			return err
		}

		chunk := n - idx
		if chunk > page {
			chunk = page
		}

		if err := r.medium.LoadPageBuffer(r.base+idx, img[idx:idx+chunk]); err != nil {
			return err
		}
		if err := r.medium.WritePage(); err != nil {
			return err
		}

		idx += chunk
	}

	return nil
}

func roundUp(n, unit uint32) uint32 {
	return (n + unit - 1) / unit * unit
}
