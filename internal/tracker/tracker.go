// internal/tracker/tracker.go
package tracker

import (
	"sync/atomic"
	"unsafe"

	"github.com/tamzrod/faultcapture/internal/record"
)

// Kicker restarts the hang-detection countdown.
type Kicker interface {
	Kick()
}

// MemoryProbe reports the current free-memory margin in bytes.
// A negative margin means the heap and stack have collided.
type MemoryProbe interface {
	FreeMemory() int
}

// Tracker holds the last location marked by instrumented code.
//
// There is exactly one writer (Mark) and at most one reader that may
// interrupt it (Capture, called from the fault path). They do not exclude
// each other: the fault path cannot wait on the code it preempted. The
// writing flag only makes a torn read detectable. line and the file
// pointer/length pair are separate word-sized cells, so the state as a
// whole is not linearizable.
//
// seq is odd while Mark is updating and advances on every Mark. Capture
// dereferences the file pointer only if seq was even and unchanged across
// its loads, so a pointer is never paired with another name's length.
type Tracker struct {
	writing atomic.Bool
	seq     atomic.Uint32
	line    atomic.Int32
	filePtr atomic.Pointer[byte]
	fileLen atomic.Int32

	kicker    Kicker
	probe     MemoryProbe
	highWater int

	onFault func(record.Cause)
	preempt func()

	// runs between the file pointer and length loads in Capture; tests only
	betweenLoads func()
}

// Config holds the optional collaborators of a Tracker.
type Config struct {
	Kicker Kicker
	Probe  MemoryProbe
	// HighWater is the largest believable free-memory margin.
	// Anything above it means the probe itself read garbage. 0 disables it.
	HighWater int
}

// New returns a tracker in its initial state: line 0, file "".
func New(cfg Config) *Tracker {
	return &Tracker{
		kicker:    cfg.Kicker,
		probe:     cfg.Probe,
		highWater: cfg.HighWater,
	}
}

// OnFault registers the function invoked when Mark detects a memory
// margin violation. The capture handler registers itself here.
func (t *Tracker) OnFault(fn func(record.Cause)) {
	t.onFault = fn
}

// SetPreemptHook installs fn to run inside the update window of every
// Mark, after the line is stored and before the file is. It makes
// "fault while marking" reproducible. nil removes the hook.
func (t *Tracker) SetPreemptHook(fn func()) {
	t.preempt = fn
}

// Mark records line and file as the last known good location and kicks
// the watchdog. file must stay valid for the life of the process; string
// literals and runtime.Caller results do.
//
// If the memory margin check fails, the fault callback runs and Mark does
// not return.
func (t *Tracker) Mark(line int32, file string) {
	if t.kicker != nil {
		t.kicker.Kick()
	}

	t.writing.Store(true)
	t.seq.Add(1)
	t.line.Store(line)
	if t.preempt != nil {
		t.preempt()
	}
	t.filePtr.Store(unsafe.StringData(file))
	t.fileLen.Store(int32(len(file)))
	t.seq.Add(1)
	t.writing.Store(false)

	if t.probe == nil {
		return
	}
	mem := t.probe.FreeMemory()
	if mem < 0 || (t.highWater > 0 && mem > t.highWater) {
		if t.onFault != nil {
			t.onFault(record.CauseOutOfMemory)
		}
	}
}

// Capture copies the tracked location for the fault path.
//
// The writing flag is read first. If it was set, the file cells may be
// half-updated and dst is left empty; line is always copied because its
// store is a single word. A Mark that runs concurrently with Capture is
// caught by seq and reported the same way. Otherwise the file is copied
// byte by byte, up to len(dst)-1 bytes or the first NUL, and terminated.
// No allocation.
func (t *Tracker) Capture(dst []byte) (line int32, corrupted bool) {
	corrupted = t.writing.Load()
	seq := t.seq.Load()
	line = t.line.Load()

	if len(dst) == 0 {
		return line, corrupted
	}

	n := 0
	if !corrupted {
		p := t.filePtr.Load()
		if t.betweenLoads != nil {
			t.betweenLoads()
		}
		l := int(t.fileLen.Load())
		if seq&1 != 0 || t.seq.Load() != seq {
			corrupted = true
		} else if p != nil && l > 0 {
			src := unsafe.Slice(p, l)
			for n < len(dst)-1 && n < l && src[n] != 0 {
				dst[n] = src[n]
				n++
			}
		}
	}
	dst[n] = 0

	return line, corrupted
}
