// internal/record/encode.go
package record

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrShort is returned when fewer than Size bytes are decoded.
var ErrShort = errors.New("record: buffer shorter than record size")

// Encode writes r into dst using the protocol-locked layout.
// No IO. No allocation: it is called from the capture path.
func Encode(r *Record, dst *[Size]byte) {
	*dst = [Size]byte{}

	binary.LittleEndian.PutUint32(dst[OffsetMagic:], Magic)
	copy(dst[OffsetMarker:OffsetMarker+MarkerSize], Marker)

	binary.LittleEndian.PutUint32(dst[OffsetCause:], uint32(r.Cause))

	copy(dst[OffsetCorruptedTag:OffsetCorruptedTag+TagSize], tagCorrupted)
	var corrupted uint32
	if r.Corrupted {
		corrupted = 1
	}
	binary.LittleEndian.PutUint32(dst[OffsetCorrupted:], corrupted)

	copy(dst[OffsetFailuresTag:OffsetFailuresTag+TagSize], tagFailures)
	binary.LittleEndian.PutUint32(dst[OffsetFailures:], r.FailureCount)

	copy(dst[OffsetLineTag:OffsetLineTag+TagSize], tagLine)
	binary.LittleEndian.PutUint32(dst[OffsetLine:], uint32(r.Line))

	copy(dst[OffsetFileTag:OffsetFileTag+TagSize], tagFile)
	copy(dst[OffsetFile:OffsetFile+FileMaxChars], r.File[:FileMaxChars])
	// terminator is forced even if the caller filled all 64 bytes
	dst[OffsetFile+FileMaxChars] = 0
}

// Decode parses a record from the start of src.
// A region without the head magic (freshly programmed or erased) decodes
// to the blank record.
func Decode(src []byte) (Record, error) {
	var r Record
	if err := DecodeInto(&r, src); err != nil {
		return Record{}, err
	}
	return r, nil
}

// DecodeInto is Decode without the copy.
func DecodeInto(r *Record, src []byte) error {
	if len(src) < Size {
		return ErrShort
	}

	r.Reset()
	if !hasMagic(src) {
		return nil
	}

	r.Cause = Cause(binary.LittleEndian.Uint32(src[OffsetCause:]))
	r.Corrupted = binary.LittleEndian.Uint32(src[OffsetCorrupted:]) != 0
	r.FailureCount = binary.LittleEndian.Uint32(src[OffsetFailures:])
	r.Line = int32(binary.LittleEndian.Uint32(src[OffsetLine:]))
	copy(r.File[:], src[OffsetFile:OffsetFile+FileSize])
	r.File[FileMaxChars] = 0

	return nil
}

// PriorFailures returns the failure count held in src, or 0 when src holds
// no record. It touches only the head and counter words.
func PriorFailures(src []byte) uint32 {
	if len(src) < Size || !hasMagic(src) {
		return 0
	}
	return binary.LittleEndian.Uint32(src[OffsetFailures:])
}

func hasMagic(src []byte) bool {
	return binary.LittleEndian.Uint32(src[OffsetMagic:]) == Magic
}
