// internal/store/geometry.go
package store

import (
	"github.com/pkg/errors"
)

// PageSizes is the set of page sizes a controller can report, indexed by
// its page-size code.
var PageSizes = [...]uint32{8, 16, 32, 64, 128, 256, 512, 1024}

// Geometry describes how a medium is programmed.
type Geometry struct {
	// PageSize is the size of the page buffer in bytes.
	PageSize uint32
	// ErasePages is how many pages one erase command clears.
	ErasePages uint32
	// WordSize is the smallest programmable unit in bytes.
	WordSize uint32
}

// EraseSize returns the erase unit in bytes.
func (g Geometry) EraseSize() uint32 {
	return g.PageSize * g.ErasePages
}

// PageSizeFromCode maps a controller page-size code to bytes.
func PageSizeFromCode(code uint8) (uint32, error) {
	if int(code) >= len(PageSizes) {
		return 0, errors.Errorf("store: page size code %d out of range", code)
	}
	return PageSizes[code], nil
}

// Validate checks that g describes a usable medium.
func (g Geometry) Validate() error {
	known := false
	for _, ps := range PageSizes {
		if g.PageSize == ps {
			known = true
			break
		}
	}
	if !known {
		return errors.Errorf("store: unsupported page size %d", g.PageSize)
	}
	if g.ErasePages == 0 {
		return errors.New("store: erase_pages must be > 0")
	}
	if g.WordSize == 0 || g.PageSize%g.WordSize != 0 {
		return errors.Errorf("store: word size %d does not divide page size %d", g.WordSize, g.PageSize)
	}
	return nil
}
