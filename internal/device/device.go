// internal/device/device.go
package device

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/tamzrod/faultcapture/internal/capture"
	"github.com/tamzrod/faultcapture/internal/config"
	"github.com/tamzrod/faultcapture/internal/tracker"
	"github.com/tamzrod/faultcapture/internal/watchdog"
)

// Options overrides collaborators that Boot would otherwise build from
// config.
type Options struct {
	// Reset is required.
	Reset capture.Resetter
	// Probe replaces the probe derived from memory.limit.
	Probe tracker.MemoryProbe
}

// Device is one boot of the instrumented program: a fresh tracker, the
// capture handler over the persistent store and the watchdog.
type Device struct {
	log   hclog.Logger
	store *Store

	tracker  *tracker.Tracker
	handler  *capture.Handler
	watchdog *watchdog.Soft

	timeout watchdog.Timeout
	armed   bool
}

// Boot wires a device over s. The watchdog is built but not armed; call
// Start once instrumented code is about to run.
// Assumes config has already been normalized and validated.
func Boot(log hclog.Logger, s *Store, cfg *config.Config, opts Options) (*Device, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	timeout, err := watchdog.ParseTimeout(cfg.Watchdog.TimeoutMs)
	if err != nil {
		return nil, err
	}

	probe := opts.Probe
	if probe == nil && cfg.Memory.Limit > 0 {
		probe = tracker.NewRuntimeProbe(cfg.Memory.Limit)
	}

	d := &Device{
		log:     log.Named("device"),
		store:   s,
		timeout: timeout,
		armed:   cfg.Watchdog.Enabled,
	}

	tcfg := tracker.Config{Probe: probe, HighWater: cfg.Memory.HighWater}
	if d.armed {
		// expiry captures through the handler built below
		d.watchdog = watchdog.NewSoft(func() { d.handler.Hung() })
		tcfg.Kicker = d.watchdog
	}

	d.tracker = tracker.New(tcfg)
	d.handler = capture.New(d.tracker, s.Region(), opts.Reset)

	d.log.Debug("booted", "device", cfg.Device.ID, "watchdog", d.armed, "timeout", timeout)
	return d, nil
}

// Tracker returns the location tracker of this boot.
func (d *Device) Tracker() *tracker.Tracker { return d.tracker }

// Handler returns the capture handler of this boot.
func (d *Device) Handler() *capture.Handler { return d.handler }

// Store returns the persistent store the device captures into.
func (d *Device) Store() *Store { return d.store }

// Start arms the watchdog if it is enabled.
func (d *Device) Start(ctx context.Context) error {
	if !d.armed {
		return nil
	}
	d.log.Debug("arming watchdog", "timeout", d.timeout, "early_warning", d.timeout.EarlyWarning())
	return d.watchdog.Start(ctx, d.timeout)
}

// Stop disarms the watchdog. It must not be called from a fault path.
func (d *Device) Stop() {
	if d.armed {
		d.watchdog.Stop()
	}
}
