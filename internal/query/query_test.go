// internal/query/query_test.go
package query

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/record"
)

// ---- fake region ----

type fakeRegion struct {
	data  []byte
	reads int
	err   error
}

func (f *fakeRegion) ReadAt(p []byte, off int64) (int, error) {
	f.reads++
	if f.err != nil {
		return 0, f.err
	}
	return copy(p, f.data[off:]), nil
}

func regionWith(r record.Record) *fakeRegion {
	var raw [record.Size]byte
	record.Encode(&r, &raw)
	data := make([]byte, 256)
	copy(data, raw[:])
	return &fakeRegion{data: data}
}

// ---- tests ----

func TestReader_BlankStore(t *testing.T) {
	q := New(&fakeRegion{data: make([]byte, 256)})

	did, err := q.DidFault()
	if err != nil {
		t.Fatalf("DidFault() err=%v", err)
	}
	if did {
		t.Fatalf("blank store must not report a fault")
	}

	rec, err := q.Fault()
	if err != nil {
		t.Fatalf("Fault() err=%v", err)
	}
	if rec.Cause != record.CauseNone || rec.FailureCount != 0 {
		t.Fatalf("got cause=%v count=%d", rec.Cause, rec.FailureCount)
	}

	var out bytes.Buffer
	if err := q.Print(&out); err != nil {
		t.Fatalf("Print() err=%v", err)
	}
	if out.String() != "No fault\n" {
		t.Fatalf("got %q", out.String())
	}
}

func TestReader_QueriesAreIdempotent(t *testing.T) {
	in := record.Record{Cause: record.CauseHung, FailureCount: 3, Line: 9}
	in.SetFileName("loop.c")
	region := regionWith(in)
	before := append([]byte(nil), region.data...)

	q := New(region)
	first, err := q.Fault()
	if err != nil {
		t.Fatalf("Fault() err=%v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := q.Fault()
		if err != nil {
			t.Fatalf("Fault() err=%v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("repeated query differs (-first +again):\n%s", diff)
		}
		did, err := q.DidFault()
		if err != nil || !did {
			t.Fatalf("DidFault() = %v, %v", did, err)
		}
	}
	if !bytes.Equal(before, region.data) {
		t.Fatalf("queries must not modify the store")
	}
}

func TestReader_Print(t *testing.T) {
	in := record.Record{Cause: record.CauseHardFault, FailureCount: 1, Line: 42}
	in.SetFileName("sensor.c")

	var out bytes.Buffer
	if err := New(regionWith(in)).Print(&out); err != nil {
		t.Fatalf("Print() err=%v", err)
	}

	want := "Fault! Cause: HARDFAULT\n" +
		"Faulted during recording: No\n" +
		"Line: 42\n" +
		"File: sensor.c\n" +
		"Failures since upload: 1\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_PrintCorruptedCause(t *testing.T) {
	in := record.Record{Cause: record.CauseHung, Corrupted: true, FailureCount: 2, Line: 5}
	region := regionWith(in)
	binary.LittleEndian.PutUint32(region.data[record.OffsetCause:], 77)

	var out bytes.Buffer
	if err := New(region).Print(&out); err != nil {
		t.Fatalf("Print() err=%v", err)
	}

	want := "Fault! Cause: Corrupted\n" +
		"Faulted during recording: Yes\n" +
		"Line: 5\n" +
		"File: \n" +
		"Failures since upload: 2\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_ReadError(t *testing.T) {
	boom := errors.New("bus error")
	q := New(&fakeRegion{err: boom})

	if _, err := q.DidFault(); errors.Cause(err) != boom {
		t.Fatalf("expected read error, got %v", err)
	}
}
