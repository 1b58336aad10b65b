// internal/query/query.go
package query

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/record"
)

// RegionReader is the read side of the record store.
type RegionReader interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Reader answers "did the previous boot crash, and why".
// It only reads; it is meant for normal context after boot.
type Reader struct {
	region RegionReader
}

// New returns a Reader over region.
func New(region RegionReader) *Reader {
	return &Reader{region: region}
}

// Fault decodes the persisted record. The blank record (cause NONE,
// count 0) means no capture has happened since programming.
func (r *Reader) Fault() (record.Record, error) {
	raw := make([]byte, record.Size)
	if _, err := r.region.ReadAt(raw, 0); err != nil {
		return record.Record{}, errors.Wrap(err, "query: read record")
	}
	return record.Decode(raw)
}

// DidFault reports whether a capture has been persisted.
func (r *Reader) DidFault() (bool, error) {
	rec, err := r.Fault()
	if err != nil {
		return false, err
	}
	return rec.Cause != record.CauseNone, nil
}

// Print writes a human-readable rendering of the record to w.
func (r *Reader) Print(w io.Writer) error {
	rec, err := r.Fault()
	if err != nil {
		return err
	}
	return Format(w, &rec)
}

// Format renders rec the way Print does.
func Format(w io.Writer, rec *record.Record) error {
	if rec.Cause == record.CauseNone {
		_, err := fmt.Fprintln(w, "No fault")
		return err
	}

	recording := "No"
	if rec.Corrupted {
		recording = "Yes"
	}

	_, err := fmt.Fprintf(w,
		"Fault! Cause: %s\n"+
			"Faulted during recording: %s\n"+
			"Line: %d\n"+
			"File: %s\n"+
			"Failures since upload: %d\n",
		rec.Cause, recording, rec.Line, rec.FileName(), rec.FailureCount,
	)
	return err
}
