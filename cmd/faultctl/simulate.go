// cmd/faultctl/simulate.go
package main

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/device"
	"github.com/tamzrod/faultcapture/internal/record"
)

// Simulated fault kinds.
const (
	faultHang      = "hang"
	faultHardFault = "hardfault"
	faultOOM       = "oom"
	faultTorn      = "torn"
)

type simulateCmd struct {
	storeCmd
	Boots int    `short:"n" long:"boots" default:"3" description:"number of boots to run"`
	Fault string `short:"f" long:"fault" default:"hardfault" choice:"hang" choice:"hardfault" choice:"oom" choice:"torn" description:"fault to inject on every boot"`
	Marks int    `short:"m" long:"marks" default:"8" description:"marks before the fault is injected"`
	Clear bool   `long:"clear" description:"clear the region before the first boot"`
}

// rebootSignal stands in for the reset line: it tells the supervisor the
// device went down and ends the goroutine that pulled it.
type rebootSignal struct {
	down chan struct{}
}

func (r *rebootSignal) Reset() {
	r.down <- struct{}{}
	runtime.Goexit()
}

// leakProbe reports a margin that shrinks by step on every mark.
type leakProbe struct {
	free atomic.Int64
	step int64
}

func (p *leakProbe) FreeMemory() int {
	return int(p.free.Add(-p.step))
}

func (cmd *simulateCmd) Execute(_ []string) error {
	if cmd.Boots < 1 {
		return errors.Errorf("--boots must be at least 1, got %d", cmd.Boots)
	}
	if cmd.Marks < 1 {
		return errors.Errorf("--marks must be at least 1, got %d", cmd.Marks)
	}

	s, err := cmd.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if cmd.Clear {
		if err := s.Clear(); err != nil {
			return err
		}
	}

	for boot := 1; boot <= cmd.Boots; boot++ {
		fmt.Fprintf(cmd.out, "--- boot %d ---\n", boot)
		if err := s.Reader().Print(cmd.out); err != nil {
			return err
		}
		if err := cmd.runBoot(s); err != nil {
			return errors.Wrapf(err, "boot %d", boot)
		}
	}

	fmt.Fprintf(cmd.out, "--- after %s boots ---\n", humanize.Comma(int64(cmd.Boots)))
	return s.Reader().Print(cmd.out)
}

// runBoot boots a device, runs the workload until the injected fault
// resets it and returns once the reset is observed.
func (cmd *simulateCmd) runBoot(s *device.Store) error {
	cfg := *cmd.cfg
	if cmd.Fault == faultHang {
		cfg.Watchdog.Enabled = true
	}

	reset := &rebootSignal{down: make(chan struct{}, 1)}
	opts := device.Options{Reset: reset}
	if cmd.Fault == faultOOM {
		p := &leakProbe{step: 1024}
		// the margin goes negative on the last mark
		p.free.Store(int64(cmd.Marks-1) * p.step)
		opts.Probe = p
	}

	d, err := device.Boot(cmd.log, s, &cfg, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var marks atomic.Int32
	if cmd.Fault == faultTorn {
		d.Tracker().SetPreemptHook(func() {
			if int(marks.Load()) == cmd.Marks {
				d.Handler().HandleFault(record.CauseHardFault)
			}
		})
	}

	if err := d.Start(ctx); err != nil {
		return err
	}

	go cmd.workload(ctx, d, &marks)

	timeout := 30 * time.Second
	select {
	case <-reset.down:
	case <-time.After(timeout):
		d.Stop()
		return errors.Errorf("no fault within %s", timeout)
	}

	cancel()
	d.Stop()
	cmd.log.Debug("device reset", "fault", cmd.Fault, "marks", marks.Load())
	return nil
}

func (cmd *simulateCmd) workload(ctx context.Context, d *device.Device, marks *atomic.Int32) {
	defer d.Handler().Guard()

	t := d.Tracker()
	for {
		marks.Add(1)
		t.MarkHere()

		if int(marks.Load()) < cmd.Marks {
			continue
		}

		switch cmd.Fault {
		case faultHang:
			// stop marking; only the reset ends the boot
			<-ctx.Done()
			return
		case faultHardFault:
			var table map[string]int
			table["boot"]++
		}
	}
}
