// internal/watchdog/timeout.go
package watchdog

import (
	"time"

	"github.com/pkg/errors"
)

// Timeout is one of the countdown periods the watchdog supports.
// The value is the period code written to the hardware.
type Timeout uint8

const (
	Timeout8ms Timeout = iota
	Timeout16ms
	Timeout31ms
	Timeout62ms
	Timeout125ms
	Timeout250ms
	Timeout500ms
	Timeout1s
	Timeout2s
	Timeout4s
	Timeout8s
	Timeout16s
)

// clock cycles per period at the 1024 Hz watchdog clock
var timeoutCycles = [...]int64{8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384}

var timeoutMillis = [...]int{8, 16, 31, 62, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Valid reports whether t is a known period code.
func (t Timeout) Valid() bool {
	return int(t) < len(timeoutCycles)
}

// Duration returns the full countdown period.
func (t Timeout) Duration() time.Duration {
	if !t.Valid() {
		return 0
	}
	return time.Duration(timeoutCycles[t]) * time.Second / 1024
}

// EarlyWarning returns when the early-warning interrupt fires: half the
// period, leaving the other half for the fault handler to finish.
func (t Timeout) EarlyWarning() time.Duration {
	return t.Duration() / 2
}

// Millis returns the nominal period in milliseconds.
func (t Timeout) Millis() int {
	if !t.Valid() {
		return 0
	}
	return timeoutMillis[t]
}

func (t Timeout) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return (time.Duration(timeoutMillis[t]) * time.Millisecond).String()
}

// ParseTimeout maps a nominal period in milliseconds to its Timeout.
func ParseTimeout(ms int) (Timeout, error) {
	for i, v := range timeoutMillis {
		if v == ms {
			return Timeout(i), nil
		}
	}
	return 0, errors.Errorf("watchdog: unsupported timeout %dms (want one of %v)", ms, timeoutMillis)
}
