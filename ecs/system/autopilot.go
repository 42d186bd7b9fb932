package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/common"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/log"
)

// AutopilotTuning holds the thresholds copied into every autopilot when
// it is first engaged.
type AutopilotTuning struct {
	ArrivalDistance           float64
	SlowdownDistance          float64
	ScanRange                 float64
	ObstacleAvoidanceDistance float64
	SpeedMultiplier           float64
}

func DefaultAutopilotTuning() AutopilotTuning {
	return AutopilotTuning{
		ArrivalDistance:           5,
		SlowdownDistance:          50,
		ScanRange:                 100,
		ObstacleAvoidanceDistance: 60,
		SpeedMultiplier:           0.6,
	}
}

func (t AutopilotTuning) applyTo(ap *component.Autopilot) {
	ap.ArrivalDistance = t.ArrivalDistance
	ap.SlowdownDistance = t.SlowdownDistance
	ap.ScanRange = t.ScanRange
	ap.ObstacleAvoidanceDistance = t.ObstacleAvoidanceDistance
	ap.SpeedMultiplier = t.SpeedMultiplier
}

// AutopilotState is the read-only status shown on helm consoles.
type AutopilotState struct {
	HasServer bool
	Enabled   bool
}

// AutopilotSystem steers every shuttle with an engaged autopilot toward its
// target. It runs before physics so the forces it applies land in the same
// step.
type AutopilotSystem struct {
	Query    SpatialQuery
	Notifier Notifier
	Logger   *log.Logger
	Tuning   AutopilotTuning

	// lastDt is the step Disable brakes with. It starts at defaultStep and
	// follows the frame time seen by Update.
	lastDt float64
}

const defaultStep = 1.0 / 60.0

func NewAutopilotSystem(query SpatialQuery, notifier Notifier, logger *log.Logger) *AutopilotSystem {
	if notifier == nil {
		notifier = OccupantNotifier{Logger: logger}
	}
	return &AutopilotSystem{
		Query:    query,
		Notifier: notifier,
		Logger:   logger,
		Tuning:   DefaultAutopilotTuning(),
		lastDt:   defaultStep,
	}
}

// SetStep sets the frame time used for braking before the first Update.
func (s *AutopilotSystem) SetStep(dt float64) {
	if s != nil && dt > 0 {
		s.lastDt = dt
	}
}

// ResolveCoordinate converts c to absolute map coordinates. It fails when
// the position is not finite or the frame entity no longer has a body.
func ResolveCoordinate(w *ecs.World, c component.WorldCoordinate) (cp.Vector, bool) {
	if !common.IsFinite(c.Position) {
		return cp.Vector{}, false
	}
	if c.Frame == 0 {
		return c.Position, true
	}
	frame, ok := ecs.Get(w, ecs.Entity(c.Frame), component.PhysicsBodyComponent.Kind())
	if !ok || frame.Body == nil {
		return cp.Vector{}, false
	}
	return frame.Body.Position().Add(common.RotateVec(c.Position, frame.Body.Angle())), true
}

// Enable arms the autopilot of vehicle toward target. It reports false when
// the vehicle cannot steer or the target does not resolve. Enabling an
// engaged autopilot keeps the current target and reports true.
func (s *AutopilotSystem) Enable(w *ecs.World, vehicle ecs.Entity, target component.WorldCoordinate, label string) bool {
	if s == nil || w == nil {
		return false
	}
	if !ecs.Has(w, vehicle, component.ShuttleComponent.Kind()) || !ecs.Has(w, vehicle, component.PhysicsBodyComponent.Kind()) {
		s.Logger.Debug("autopilot: enable on non-shuttle", "entity", vehicle.String())
		return false
	}
	if _, ok := ResolveCoordinate(w, target); !ok {
		s.Logger.Debug("autopilot: invalid target", "entity", vehicle.String(), "destination", label)
		return false
	}

	ap, ok := ecs.Get(w, vehicle, component.AutopilotComponent.Kind())
	if ok && ap.Enabled {
		return true
	}
	if !ok {
		ap = &component.Autopilot{}
		s.Tuning.applyTo(ap)
		if err := ecs.Add(w, vehicle, component.AutopilotComponent.Kind(), ap); err != nil {
			s.Logger.Warnf("autopilot: attach to %s: %v", vehicle, err)
			return false
		}
	}

	ap.Enabled = true
	ap.Target = &target
	ap.Destination = label
	s.Logger.Info("autopilot: engaged", "entity", vehicle.String(), "destination", label)
	s.notify(w, vehicle, NotifyEngaged, "Autopilot engaged: Destination: "+label)
	return true
}

// Disable disengages the autopilot and brakes once. It is a no-op when the
// autopilot is not engaged.
func (s *AutopilotSystem) Disable(w *ecs.World, vehicle ecs.Entity) {
	if s == nil || w == nil {
		return
	}
	ap, ok := ecs.Get(w, vehicle, component.AutopilotComponent.Kind())
	if !ok || !ap.Enabled {
		return
	}
	ap.Enabled = false
	ap.Target = nil
	s.Logger.Info("autopilot: disabled", "entity", vehicle.String())
	s.notify(w, vehicle, NotifyDisabled, "Autopilot disabled")

	shuttle, ok := ecs.Get(w, vehicle, component.ShuttleComponent.Kind())
	if !ok {
		return
	}
	if pb, ok := ecs.Get(w, vehicle, component.PhysicsBodyComponent.Kind()); ok && pb.Body != nil {
		ApplyBraking(pb.Body, pb.Moment, shuttle, s.lastDt)
	}
}

// Detach tears the autopilot off vehicle without notifying anyone.
func (s *AutopilotSystem) Detach(w *ecs.World, vehicle ecs.Entity) {
	ap, ok := ecs.Get(w, vehicle, component.AutopilotComponent.Kind())
	if !ok {
		return
	}
	ap.Enabled = false
	ap.Target = nil
	ecs.Remove(w, vehicle, component.AutopilotComponent.Kind())
}

// DestroyVehicle detaches the autopilot and then destroys vehicle, so a
// record still held elsewhere reads as disengaged.
func (s *AutopilotSystem) DestroyVehicle(w *ecs.World, vehicle ecs.Entity) bool {
	if w == nil {
		return false
	}
	s.Detach(w, vehicle)
	return ecs.DestroyEntity(w, vehicle)
}

func (s *AutopilotSystem) QueryState(w *ecs.World, vehicle ecs.Entity) AutopilotState {
	state := AutopilotState{HasServer: HasAutopilotServer(w, vehicle)}
	if ap, ok := ecs.Get(w, vehicle, component.AutopilotComponent.Kind()); ok {
		state.Enabled = ap.Enabled
	}
	return state
}

// SetTuning replaces the default thresholds and pushes them into every
// attached autopilot. Targets are left alone.
func (s *AutopilotSystem) SetTuning(w *ecs.World, t AutopilotTuning) {
	s.Tuning = t
	ecs.ForEach(w, component.AutopilotComponent.Kind(), func(_ ecs.Entity, ap *component.Autopilot) {
		t.applyTo(ap)
	})
}

func (s *AutopilotSystem) Update(w *ecs.World, dt float64) {
	if s == nil || w == nil {
		return
	}
	if dt > 0 {
		s.lastDt = dt
	}

	ecs.ForEach3(w, component.AutopilotComponent.Kind(), component.ShuttleComponent.Kind(), component.PhysicsBodyComponent.Kind(), func(e ecs.Entity, ap *component.Autopilot, shuttle *component.Shuttle, pb *component.PhysicsBody) {
		if !ap.Enabled || ap.Target == nil {
			return
		}
		if !shuttle.Enabled {
			s.forceDisable(e, ap, "steering offline")
			return
		}
		if pb.Body == nil {
			s.forceDisable(e, ap, "no body")
			return
		}
		target, ok := ResolveCoordinate(w, *ap.Target)
		if !ok {
			s.forceDisable(e, ap, "target lost")
			return
		}

		body := pb.Body
		plan := PlanVelocity(PlanInput{
			Self:              e,
			Position:          body.Position(),
			Velocity:          body.Velocity(),
			Angle:             body.Angle(),
			Target:            target,
			MaxLinearVelocity: shuttle.BaseMaxLinearVelocity,
		}, ap, s.Query)

		switch {
		case plan.Arrived:
			ap.Enabled = false
			ap.Target = nil
			s.Logger.Info("autopilot: arrived", "entity", e.String(), "destination", ap.Destination, "distance", plan.Distance)
			s.notify(w, e, NotifyArrived, "Autopilot: Destination reached")
			ApplyBraking(body, pb.Moment, shuttle, dt)
			parkShuttle(shuttle)
		case plan.Skip:
		default:
			applyAutopilotThrust(body, shuttle, plan.LocalVelocity)
			rotateTowards(body, pb.Moment, shuttle, plan.Direction, dt)
		}
	})
}

func (s *AutopilotSystem) notify(w *ecs.World, vehicle ecs.Entity, kind NotifyKind, message string) {
	if s.Notifier != nil {
		s.Notifier.Notify(w, vehicle, kind, message)
	}
}

func (s *AutopilotSystem) forceDisable(e ecs.Entity, ap *component.Autopilot, reason string) {
	ap.Enabled = false
	ap.Target = nil
	s.Logger.Info("autopilot: force disabled", "entity", e.String(), "reason", reason)
}
