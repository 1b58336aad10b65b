// internal/record/constants.go
package record

// Fault record layout constants.
// Offsets are protocol-locked: raw dump tooling depends on them.
// All multi-byte fields are little-endian.

// ---- HEAD ----

// Magic is the first word of every written record.
const Magic uint32 = 0xFEFEFAFA

// OffsetMagic holds Magic.
const OffsetMagic = 0

// OffsetMarker holds the human-readable marker text.
const OffsetMarker = 4

// MarkerSize is the width of the marker field.
const MarkerSize = 32

// Marker is the text stored at OffsetMarker, NUL padded to MarkerSize.
const Marker = "Fault Data Stored Here! Cause:"

// ---- FIELDS ----
// Every field is preceded by an 8 byte ASCII tag for raw dump readability.

// TagSize is the width of every field tag.
const TagSize = 8

// OffsetCause holds the cause code (u32).
const OffsetCause = OffsetMarker + MarkerSize

// OffsetCorruptedTag holds "Corrupt".
const OffsetCorruptedTag = OffsetCause + 4

// OffsetCorrupted holds the corruption flag (u32, 0 or 1).
const OffsetCorrupted = OffsetCorruptedTag + TagSize

// OffsetFailuresTag holds "Fail #:".
const OffsetFailuresTag = OffsetCorrupted + 4

// OffsetFailures holds the failure count (u32).
const OffsetFailures = OffsetFailuresTag + TagSize

// OffsetLineTag holds "Line #:".
const OffsetLineTag = OffsetFailures + 4

// OffsetLine holds the line number (i32).
const OffsetLine = OffsetLineTag + TagSize

// OffsetFileTag holds "File:".
const OffsetFileTag = OffsetLine + 4

// OffsetFile holds the NUL terminated file name.
const OffsetFile = OffsetFileTag + TagSize

// ---- LIMITS ----

// FileSize is the capacity of the file field including the terminator.
const FileSize = 64

// FileMaxChars is the longest file name stored before truncation.
const FileMaxChars = FileSize - 1

// Size is the encoded record size in bytes. It is a multiple of 4.
const Size = OffsetFile + FileSize

const (
	tagCorrupted = "Corrupt"
	tagFailures  = "Fail #:"
	tagLine      = "Line #:"
	tagFile      = "File:"
)
