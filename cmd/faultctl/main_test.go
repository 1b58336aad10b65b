// cmd/faultctl/main_test.go
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// ---- helpers ----

// writeConfig writes a bolt-backed device config so that state survives
// between command invocations.
func writeConfig(t *testing.T, watchdogMs int) string {
	t.Helper()

	dir := t.TempDir()
	data := fmt.Sprintf(`
device:
  id: bench-01
store:
  backend: bolt
  base: 512
  size: 256
  medium_size: 1024
  bolt:
    path: %s
watchdog:
  timeout_ms: %d
`, filepath.Join(dir, "flash.db"), watchdogMs)

	path := filepath.Join(dir, "device.yaml")
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	var opts cliOptions
	err := parseOpts(args, &opts, &out, hclog.NewNullLogger())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("faultctl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func expectLines(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(out, l) {
			t.Fatalf("output missing %q:\n%s", l, out)
		}
	}
}

// ---- tests ----

func TestShow_FreshStore(t *testing.T) {
	cfg := writeConfig(t, 2000)

	out := mustRun(t, "-c", cfg, "show")
	expectLines(t, out, "Device bench-01: bolt region at 0x200 (256 B)", "No fault")
}

func TestSimulate_HardFaultCountsBoots(t *testing.T) {
	cfg := writeConfig(t, 2000)

	out := mustRun(t, "-c", cfg, "simulate", "--boots", "3", "--fault", "hardfault")
	expectLines(t, out,
		"--- boot 1 ---\nNo fault",
		"--- boot 2 ---\nFault! Cause: HARDFAULT",
		"--- after 3 boots ---",
		"Failures since upload: 3",
		"File: simulate.go",
	)

	// the record survives the process
	out = mustRun(t, "-c", cfg, "show")
	expectLines(t, out, "Fault! Cause: HARDFAULT", "Faulted during recording: No", "Failures since upload: 3")
}

func TestSimulate_FaultKinds(t *testing.T) {
	for name, tc := range map[string]struct {
		fault string
		want  []string
	}{
		"torn": {
			fault: faultTorn,
			want:  []string{"Fault! Cause: HARDFAULT", "Faulted during recording: Yes", "File: \n"},
		},
		"oom": {
			fault: faultOOM,
			want:  []string{"Fault! Cause: OUT_OF_MEMORY", "Faulted during recording: No", "File: simulate.go"},
		},
		"hang": {
			fault: faultHang,
			want:  []string{"Fault! Cause: HUNG"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := writeConfig(t, 16)

			out := mustRun(t, "-c", cfg, "simulate", "--boots", "1", "--fault", tc.fault)
			expectLines(t, out, tc.want...)
			expectLines(t, out, "Failures since upload: 1")
		})
	}
}

func TestPullDumpClear(t *testing.T) {
	cfg := writeConfig(t, 2000)
	mustRun(t, "-c", cfg, "simulate", "--boots", "2")

	image := filepath.Join(t.TempDir(), "region.bin")
	mustRun(t, "-c", cfg, "pull", "-o", image)

	info, err := os.Stat(image)
	if err != nil {
		t.Fatalf("stat image: %v", err)
	}
	if info.Size() != 256 {
		t.Fatalf("image size: got=%d want=256", info.Size())
	}

	out := mustRun(t, "dump", image)
	expectLines(t, out, "Record at offset 0x0 of "+image, "Fault! Cause: HARDFAULT", "Failures since upload: 2")

	out = mustRun(t, "-c", cfg, "clear")
	expectLines(t, out, "fault region cleared")

	out = mustRun(t, "-c", cfg, "show")
	expectLines(t, out, "No fault")
}

func TestDump_NoRecord(t *testing.T) {
	image := filepath.Join(t.TempDir(), "zeros.bin")
	if err := os.WriteFile(image, make([]byte, 4096), 0600); err != nil {
		t.Fatalf("write image: %v", err)
	}

	if _, err := run(t, "dump", image); err == nil {
		t.Fatalf("expected error for an image without a record")
	}
}

func TestConfigRequired(t *testing.T) {
	_, err := run(t, "show")
	if err == nil || !strings.Contains(err.Error(), "--config") {
		t.Fatalf("expected missing config error, got %v", err)
	}
}

func TestSimulate_RejectsZeroBoots(t *testing.T) {
	cfg := writeConfig(t, 2000)
	if _, err := run(t, "-c", cfg, "simulate", "--boots", "0"); err == nil {
		t.Fatalf("expected error for zero boots")
	}
}
