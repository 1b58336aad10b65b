// internal/record/scan.go
package record

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Scan when a dump holds no record.
var ErrNotFound = errors.New("record: no fault record found in dump")

// Scan searches a raw memory dump for a fault record.
// A candidate must carry both the head magic and the marker text; anything
// else that happens to contain the magic word is skipped.
// It returns the byte offset of the record within dump.
func Scan(dump []byte) (int, Record, error) {
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], Magic)

	var marker [MarkerSize]byte
	copy(marker[:], Marker)

	start := 0
	for {
		idx := bytes.Index(dump[start:], head[:])
		if idx < 0 {
			return 0, Record{}, ErrNotFound
		}
		off := start + idx

		if len(dump)-off < Size {
			return 0, Record{}, ErrNotFound
		}

		if bytes.Equal(dump[off+OffsetMarker:off+OffsetMarker+MarkerSize], marker[:]) {
			rec, err := Decode(dump[off : off+Size])
			if err != nil {
				return 0, Record{}, err
			}
			return off, rec, nil
		}

		start = off + len(head)
	}
}
