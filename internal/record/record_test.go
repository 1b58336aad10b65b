// internal/record/record_test.go
package record

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func sampleRecord() Record {
	r := Record{
		Cause:        CauseHardFault,
		Corrupted:    false,
		FailureCount: 7,
		Line:         -12,
	}
	r.SetFileName("sensor.c")
	return r
}

func TestEncodeDecode_Scenario(t *testing.T) {
	in := sampleRecord()

	var raw [Size]byte
	Encode(&in, &raw)

	out, err := Decode(raw[:])
	if err != nil {
		t.Fatalf("Decode() err=%v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("decoded record mismatch (-want +got):\n%s", diff)
	}
	if out.FileName() != "sensor.c" {
		t.Fatalf("file: got=%q want=%q", out.FileName(), "sensor.c")
	}
}

func TestEncode_FixedOffsets(t *testing.T) {
	in := sampleRecord()
	in.Corrupted = true

	var raw [Size]byte
	Encode(&in, &raw)

	if got := binary.LittleEndian.Uint32(raw[0:]); got != 0xFEFEFAFA {
		t.Fatalf("magic: got=%#x", got)
	}
	if got := binary.LittleEndian.Uint32(raw[36:]); got != uint32(CauseHardFault) {
		t.Fatalf("cause at 36: got=%d", got)
	}
	if got := binary.LittleEndian.Uint32(raw[48:]); got != 1 {
		t.Fatalf("corrupted at 48: got=%d", got)
	}
	if got := binary.LittleEndian.Uint32(raw[60:]); got != 7 {
		t.Fatalf("failures at 60: got=%d", got)
	}
	if got := int32(binary.LittleEndian.Uint32(raw[72:])); got != -12 {
		t.Fatalf("line at 72: got=%d", got)
	}
	if !bytes.HasPrefix(raw[84:], []byte("sensor.c\x00")) {
		t.Fatalf("file at 84: got=%q", raw[84:100])
	}
	if !bytes.HasPrefix(raw[64:], []byte("Line #:\x00")) {
		t.Fatalf("line tag at 64: got=%q", raw[64:72])
	}
	if Size != 148 || Size%4 != 0 {
		t.Fatalf("unexpected record size %d", Size)
	}
}

func TestDecode_BlankRegion(t *testing.T) {
	for name, fill := range map[string]byte{"programmed": 0x00, "erased": 0xFF} {
		raw := bytes.Repeat([]byte{fill}, Size)

		r, err := Decode(raw)
		if err != nil {
			t.Fatalf("%s: Decode() err=%v", name, err)
		}
		if diff := cmp.Diff(Record{}, r); diff != "" {
			t.Fatalf("%s: expected blank record (-want +got):\n%s", name, diff)
		}
		if PriorFailures(raw) != 0 {
			t.Fatalf("%s: expected zero prior failures", name)
		}
	}
}

func TestDecode_Short(t *testing.T) {
	_, err := Decode(make([]byte, Size-1))
	if errors.Cause(err) != ErrShort {
		t.Fatalf("expected ErrShort, got %v", err)
	}
}

func TestSetFileName_Truncation(t *testing.T) {
	for _, n := range []int{63, 64, 65} {
		var r Record
		r.SetFileName(strings.Repeat("a", n))

		if got := len(r.FileName()); got != FileMaxChars {
			t.Fatalf("len %d: stored %d chars, want %d", n, got, FileMaxChars)
		}
		if r.File[FileMaxChars] != 0 {
			t.Fatalf("len %d: missing terminator", n)
		}
	}
}

func TestEncode_ForcesTerminator(t *testing.T) {
	var r Record
	for i := range r.File {
		r.File[i] = 'x'
	}
	r.Cause = CauseHung

	var raw [Size]byte
	Encode(&r, &raw)

	out, err := Decode(raw[:])
	if err != nil {
		t.Fatalf("Decode() err=%v", err)
	}
	if got := len(out.FileName()); got != FileMaxChars {
		t.Fatalf("expected %d chars, got %d", FileMaxChars, got)
	}
}

func TestCause_String(t *testing.T) {
	if CauseOutOfMemory.String() != "OUT_OF_MEMORY" {
		t.Fatalf("unexpected name %q", CauseOutOfMemory.String())
	}
	if Cause(9).String() != "Corrupted" || Cause(9).Valid() {
		t.Fatalf("out of range cause must render as Corrupted")
	}
}

func TestPriorFailures(t *testing.T) {
	in := sampleRecord()
	in.FailureCount = 41

	var raw [Size]byte
	Encode(&in, &raw)

	if got := PriorFailures(raw[:]); got != 41 {
		t.Fatalf("PriorFailures: got=%d want=41", got)
	}
}

func TestScan(t *testing.T) {
	in := sampleRecord()
	var raw [Size]byte
	Encode(&in, &raw)

	dump := make([]byte, 0x3000)
	// decoy: magic without marker
	binary.LittleEndian.PutUint32(dump[0x100:], Magic)
	copy(dump[0x2000:], raw[:])

	off, rec, err := Scan(dump)
	if err != nil {
		t.Fatalf("Scan() err=%v", err)
	}
	if off != 0x2000 {
		t.Fatalf("offset: got=%#x want=0x2000", off)
	}
	if diff := cmp.Diff(in, rec); diff != "" {
		t.Fatalf("scanned record mismatch (-want +got):\n%s", diff)
	}
}

func TestScan_NotFound(t *testing.T) {
	if _, _, err := Scan(make([]byte, 512)); errors.Cause(err) != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// truncated record at the end of the dump
	in := sampleRecord()
	var raw [Size]byte
	Encode(&in, &raw)
	if _, _, err := Scan(raw[:Size-4]); errors.Cause(err) != ErrNotFound {
		t.Fatalf("expected ErrNotFound for truncated dump, got %v", err)
	}
}
