// internal/capture/handler.go
package capture

import (
	"runtime"

	"github.com/tamzrod/faultcapture/internal/record"
	"github.com/tamzrod/faultcapture/internal/store"
	"github.com/tamzrod/faultcapture/internal/tracker"
)

// Resetter restarts the device. On hardware Reset never returns.
// Hosted implementations may stop the calling goroutine instead
// (runtime.Goexit) and let a supervisor "reboot".
type Resetter interface {
	Reset()
}

// ResetFunc adapts a function to Resetter.
type ResetFunc func()

// Reset implements Resetter.
func (f ResetFunc) Reset() { f() }

// Handler persists a fault record and resets the device.
// Everything it touches during a capture is allocated up front.
type Handler struct {
	tracker *tracker.Tracker
	region  *store.Region
	reset   Resetter

	// idle runs forever if Reset returns.
	idle func()

	rec record.Record
	raw [record.Size]byte
}

// New builds a handler and registers it as the tracker's fault callback.
func New(t *tracker.Tracker, region *store.Region, reset Resetter) *Handler {
	h := &Handler{
		tracker: t,
		region:  region,
		reset:   reset,
		idle:    runtime.Gosched,
	}
	t.OnFault(h.HandleFault)
	return h
}

// HandleFault captures the tracked location under cause, commits the
// record and resets the device. It never returns.
//
// It is safe to call from a context that preempted Mark: the tracker's
// writing flag is sampled before the location is read, and a set flag
// drops the file name instead of trusting it. The previous failure count
// is read before the region is erased.
//
// Errors from the store are not reported. There is nobody to report to;
// the device resets either way.
func (h *Handler) HandleFault(cause record.Cause) {
	if cause == record.CauseNone || !cause.Valid() {
		cause = record.CauseHardFault
	}

	h.rec.Reset()
	h.rec.Cause = cause
	h.rec.Line, h.rec.Corrupted = h.tracker.Capture(h.rec.File[:])

	// prior count lives in the same bytes we are about to erase
	h.raw = [record.Size]byte{}
	if _, err := h.region.ReadAt(h.raw[:], 0); err == nil {
		h.rec.FailureCount = record.PriorFailures(h.raw[:])
	}
	h.rec.FailureCount++

	record.Encode(&h.rec, &h.raw)
	_ = h.region.Commit(h.raw[:])

	h.reset.Reset()
	for {
		h.idle()
	}
}

// Hung is the watchdog expiry callback.
func (h *Handler) Hung() {
	h.HandleFault(record.CauseHung)
}

// Guard converts a panic in the calling goroutine into a HARDFAULT capture.
// Defer it at the top of every goroutine that runs instrumented code:
//
//	defer h.Guard()
func (h *Handler) Guard() {
	if r := recover(); r != nil {
		h.HandleFault(record.CauseHardFault)
	}
}
