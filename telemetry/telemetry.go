// Package telemetry records per-tick shuttle state as a zstd-compressed
// stream of msgpack values: one Header followed by Frames.
package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const formatVersion = 1

var (
	ErrClosed        = errors.New("telemetry: recorder closed")
	ErrVersion       = errors.New("telemetry: unsupported trace version")
	ErrMissingHeader = errors.New("telemetry: missing header")
)

type Header struct {
	Version  int       `msgpack:"version"`
	RunID    string    `msgpack:"run_id"`
	Scenario string    `msgpack:"scenario"`
	Dt       float64   `msgpack:"dt"`
	Started  time.Time `msgpack:"started"`
}

// Frame is one shuttle's state after a tick.
type Frame struct {
	Tick            int     `msgpack:"tick"`
	Time            float64 `msgpack:"t"`
	Entity          uint64  `msgpack:"entity"`
	Name            string  `msgpack:"name,omitempty"`
	X               float64 `msgpack:"x"`
	Y               float64 `msgpack:"y"`
	Angle           float64 `msgpack:"angle"`
	VX              float64 `msgpack:"vx"`
	VY              float64 `msgpack:"vy"`
	AngularVelocity float64 `msgpack:"w"`
	Thrusters       uint8   `msgpack:"thrusters"`
	AngularThrust   bool    `msgpack:"angular_thrust"`
	Autopilot       bool    `msgpack:"autopilot"`
	TargetX         float64 `msgpack:"target_x,omitempty"`
	TargetY         float64 `msgpack:"target_y,omitempty"`
	Distance        float64 `msgpack:"distance,omitempty"`
}

type Recorder struct {
	zw     *zstd.Encoder
	enc    *msgpack.Encoder
	closer io.Closer
	header Header
	frames int
	closed bool
}

// NewRecorder writes the trace header to w and returns a recorder for the
// frames that follow.
func NewRecorder(w io.Writer, scenario string, dt float64) (*Recorder, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create zstd writer: %w", err)
	}
	r := &Recorder{
		zw:  zw,
		enc: msgpack.NewEncoder(zw),
		header: Header{
			Version:  formatVersion,
			RunID:    uuid.NewString(),
			Scenario: scenario,
			Dt:       dt,
			Started:  time.Now().UTC(),
		},
	}
	if err := r.enc.Encode(r.header); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("telemetry: write header: %w", err)
	}
	return r, nil
}

// Create opens path, creating parent directories, and records to it.
func Create(path, scenario string, dt float64) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(f, scenario, dt)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

func (r *Recorder) Header() Header {
	return r.header
}

func (r *Recorder) Frames() int {
	return r.frames
}

func (r *Recorder) Record(f Frame) error {
	if r == nil || r.closed {
		return ErrClosed
	}
	if err := r.enc.Encode(&f); err != nil {
		return fmt.Errorf("telemetry: write frame %d: %w", f.Tick, err)
	}
	r.frames++
	return nil
}

// Close flushes the compressed stream and closes the file opened by Create.
func (r *Recorder) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true
	err := r.zw.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type Reader struct {
	zr     *zstd.Decoder
	dec    *msgpack.Decoder
	Header Header
}

func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create zstd reader: %w", err)
	}
	tr := &Reader{zr: zr, dec: msgpack.NewDecoder(zr)}
	if err := tr.dec.Decode(&tr.Header); err != nil {
		zr.Close()
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("telemetry: read header: %w", err)
	}
	if tr.Header.Version != formatVersion {
		zr.Close()
		return nil, fmt.Errorf("%w: %d", ErrVersion, tr.Header.Version)
	}
	return tr, nil
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	var f Frame
	if err := r.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("telemetry: read frame: %w", err)
	}
	return f, nil
}

func (r *Reader) Close() {
	r.zr.Close()
}

func ReadAll(rd io.Reader) (Header, []Frame, error) {
	r, err := NewReader(rd)
	if err != nil {
		return Header{}, nil, err
	}
	defer r.Close()

	var frames []Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.Header, frames, nil
		}
		if err != nil {
			return r.Header, frames, err
		}
		frames = append(frames, f)
	}
}
