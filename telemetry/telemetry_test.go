package telemetry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRecordAndReadBack(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, "open_space", 1.0/60)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := rec.Record(Frame{Tick: i, Entity: 7, Name: "Kestrel", Y: float64(i), Autopilot: i < 2, Thrusters: 4}); err != nil {
			t.Fatal(err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Record(Frame{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}

	header, frames, err := ReadAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if header.Scenario != "open_space" || header.Version != formatVersion {
		t.Fatalf("unexpected header %+v", header)
	}
	if _, err := uuid.Parse(header.RunID); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", header.RunID, err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[2].Y != 2 || frames[2].Autopilot || frames[0].Name != "Kestrel" {
		t.Fatalf("frames did not survive the round trip: %+v", frames)
	}
}

func TestEachRecorderGetsItsOwnRunID(t *testing.T) {
	var a, b bytes.Buffer
	ra, err := NewRecorder(&a, "x", 0.1)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := NewRecorder(&b, "x", 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if ra.Header().RunID == rb.Header().RunID {
		t.Fatalf("run ids collided")
	}
}

func TestReaderRejectsEmptyStream(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, "x", 0.1)
	if err != nil {
		t.Fatal(err)
	}
	_ = rec.Close()

	// Corrupt the stream by dropping everything after the zstd magic.
	if _, err := NewReader(bytes.NewReader(buf.Bytes()[:4])); err == nil {
		t.Fatalf("expected an error reading a truncated trace")
	}
}
