package system

import (
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/log"
	"github.com/milk9111/autopilot/telemetry"
)

// FrameRecorder receives one telemetry frame per shuttle per tick.
type FrameRecorder interface {
	Record(f telemetry.Frame) error
}

// TelemetrySystem samples every shuttle after physics has stepped. It
// stops recording after the first write error.
type TelemetrySystem struct {
	Recorder FrameRecorder
	Logger   *log.Logger

	tick    int
	elapsed float64
	failed  bool
}

func NewTelemetrySystem(rec FrameRecorder, logger *log.Logger) *TelemetrySystem {
	return &TelemetrySystem{Recorder: rec, Logger: logger}
}

func (ts *TelemetrySystem) Update(w *ecs.World, dt float64) {
	if ts == nil || w == nil {
		return
	}
	ts.elapsed += dt
	defer func() { ts.tick++ }()
	if ts.Recorder == nil || ts.failed {
		return
	}

	ecs.ForEach2(w, component.ShuttleComponent.Kind(), component.PhysicsBodyComponent.Kind(), func(e ecs.Entity, shuttle *component.Shuttle, pb *component.PhysicsBody) {
		if ts.failed || pb.Body == nil {
			return
		}
		f := SampleFrame(w, e, shuttle, pb)
		f.Tick = ts.tick
		f.Time = ts.elapsed
		if err := ts.Recorder.Record(f); err != nil {
			ts.failed = true
			ts.Logger.Errorf("telemetry: %v", err)
		}
	})
}

// SampleFrame captures the current state of one shuttle.
func SampleFrame(w *ecs.World, e ecs.Entity, shuttle *component.Shuttle, pb *component.PhysicsBody) telemetry.Frame {
	pos := pb.Body.Position()
	vel := pb.Body.Velocity()
	f := telemetry.Frame{
		Entity:          uint64(e),
		X:               pos.X,
		Y:               pos.Y,
		Angle:           pb.Body.Angle(),
		VX:              vel.X,
		VY:              vel.Y,
		AngularVelocity: pb.Body.AngularVelocity(),
		Thrusters:       uint8(shuttle.ThrustDirections),
		AngularThrust:   shuttle.AngularThrustActive,
	}
	if name, ok := ecs.Get(w, e, component.NameComponent.Kind()); ok {
		f.Name = name.Value
	}
	if ap, ok := ecs.Get(w, e, component.AutopilotComponent.Kind()); ok && ap.Enabled && ap.Target != nil {
		f.Autopilot = true
		if target, ok := ResolveCoordinate(w, *ap.Target); ok {
			f.TargetX, f.TargetY = target.X, target.Y
			f.Distance = target.Distance(pos)
		}
	}
	return f
}
