// internal/watchdog/soft.go
package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Driver is the contract between the fault-capture layer and a watchdog.
type Driver interface {
	Start(ctx context.Context, t Timeout) error
	Stop()
	Kick()
}

// Soft is a software watchdog for hosted builds.
// A ticker goroutine compares the time since the last Kick with the early
// warning point and calls the expiry callback once per arming. Kick is a
// single atomic store so it is safe at mark frequency.
type Soft struct {
	expire func()
	now    func() time.Time

	lastKick atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSoft returns a disarmed watchdog that calls expire on timeout.
// The capture layer wires expire to HandleFault(CauseHung).
func NewSoft(expire func()) *Soft {
	return &Soft{
		expire: expire,
		now:    time.Now,
	}
}

// Start arms the countdown. It fails if the watchdog is already armed.
func (s *Soft) Start(ctx context.Context, t Timeout) error {
	if !t.Valid() {
		return errors.Errorf("watchdog: invalid timeout code %d", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("watchdog: already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.Kick()

	go s.run(ctx, t.EarlyWarning(), s.done)
	return nil
}

// Stop disarms the countdown and waits for the ticker goroutine to exit.
// It must not be called from the expiry callback.
func (s *Soft) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Kick restarts the countdown.
func (s *Soft) Kick() {
	s.lastKick.Store(s.now().UnixNano())
}

func (s *Soft) run(ctx context.Context, warn time.Duration, done chan struct{}) {
	defer close(done)

	// resolution of an eighth of the early-warning window
	tick := warn / 8
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idle := time.Duration(s.now().UnixNano() - s.lastKick.Load())
			if idle < warn {
				continue
			}
			// the callback resets the device and normally never returns
			s.expire()
			return
		}
	}
}

var _ Driver = (*Soft)(nil)
