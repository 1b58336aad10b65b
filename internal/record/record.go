// internal/record/record.go
package record

// Cause identifies which failure mode triggered a capture.
// It is stored as a full word so out-of-range values survive decoding.
type Cause uint32

const (
	// CauseNone means no capture has happened since the region was programmed.
	CauseNone Cause = iota
	// CauseHung means the watchdog countdown elapsed without a mark.
	CauseHung
	// CauseHardFault means an illegal instruction or memory access.
	CauseHardFault
	// CauseOutOfMemory means the heap/stack margin check failed during a mark.
	CauseOutOfMemory
)

// Valid reports whether c is one of the known causes.
func (c Cause) Valid() bool {
	return c <= CauseOutOfMemory
}

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "NONE"
	case CauseHung:
		return "HUNG"
	case CauseHardFault:
		return "HARDFAULT"
	case CauseOutOfMemory:
		return "OUT_OF_MEMORY"
	default:
		return "Corrupted"
	}
}

// Record is the decoded form of the single persisted fault record.
// The zero value is the blank record.
type Record struct {
	Cause        Cause
	Corrupted    bool
	FailureCount uint32
	Line         int32
	File         [FileSize]byte
}

// FileName returns the stored file name up to its terminator.
func (r *Record) FileName() string {
	for i := 0; i < len(r.File); i++ {
		if r.File[i] == 0 {
			return string(r.File[:i])
		}
	}
	return string(r.File[:])
}

// SetFileName stores name truncated to FileMaxChars and terminated.
func (r *Record) SetFileName(name string) {
	r.File = [FileSize]byte{}
	n := copy(r.File[:FileMaxChars], name)
	r.File[n] = 0
}

// Reset clears r to the blank record without allocating.
func (r *Record) Reset() {
	*r = Record{}
}
