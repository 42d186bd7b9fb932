package system

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
)

const testDt = 1.0 / 60.0

func testShuttleComponent() *component.Shuttle {
	s := &component.Shuttle{
		Enabled:               true,
		BaseMaxLinearVelocity: 20,
		MaxAngularVelocity:    1.5,
		AngularThrust:         4000,
		BrakeCoefficient:      1.5,
		AnchorDampingStrength: 2.5,
		LinearDamping:         0.4,
		BodyModifier:          1,
		DampingModifier:       1,
	}
	s.LinearThrust[component.DirectionNorth] = 3000
	s.LinearThrust[component.DirectionSouth] = 3000
	s.LinearThrust[component.DirectionEast] = 1500
	s.LinearThrust[component.DirectionWest] = 1500
	return s
}

func mustAdd[T any](t *testing.T, w *ecs.World, e ecs.Entity, kind component.ComponentKind[T], v *T) {
	t.Helper()
	if err := ecs.Add(w, e, kind, v); err != nil {
		t.Fatalf("add component: %v", err)
	}
}

// spawnShuttle creates a steerable grid at pos facing north.
func spawnShuttle(t *testing.T, w *ecs.World, name string, pos cp.Vector) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	mustAdd(t, w, e, component.NameComponent.Kind(), &component.Name{Value: name})
	mustAdd(t, w, e, component.TransformComponent.Kind(), &component.Transform{X: pos.X, Y: pos.Y})
	mustAdd(t, w, e, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{Radius: 4, Mass: 200})
	mustAdd(t, w, e, component.ShuttleComponent.Kind(), testShuttleComponent())
	mustAdd(t, w, e, component.GridTagComponent.Kind(), &component.GridTag{})
	return e
}

// spawnRock creates a passive body; grid controls whether avoidance sees it.
func spawnRock(t *testing.T, w *ecs.World, name string, pos cp.Vector, radius float64, grid bool) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	mustAdd(t, w, e, component.NameComponent.Kind(), &component.Name{Value: name})
	mustAdd(t, w, e, component.TransformComponent.Kind(), &component.Transform{X: pos.X, Y: pos.Y})
	mustAdd(t, w, e, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{Radius: radius, Static: true})
	if grid {
		mustAdd(t, w, e, component.GridTagComponent.Kind(), &component.GridTag{})
	}
	return e
}

func spawnOccupant(t *testing.T, w *ecs.World, name string, grid ecs.Entity) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	mustAdd(t, w, e, component.OccupantComponent.Kind(), &component.Occupant{Name: name, Grid: uint64(grid)})
	return e
}

func spawnServer(t *testing.T, w *ecs.World, grid ecs.Entity, anchored bool) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	mustAdd(t, w, e, component.AutopilotServerComponent.Kind(), &component.AutopilotServer{Grid: uint64(grid), Anchored: anchored})
	return e
}

func messagesOf(w *ecs.World, e ecs.Entity) []string {
	occ, ok := ecs.Get(w, e, component.OccupantComponent.Kind())
	if !ok {
		return nil
	}
	return occ.Messages
}

func autopilotEvents(w *ecs.World) []AutopilotEvent {
	var out []AutopilotEvent
	for _, evt := range w.Events().Drain() {
		if ae, ok := evt.Data.(AutopilotEvent); ok && evt.Type == AutopilotEventType {
			out = append(out, ae)
		}
	}
	return out
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

type fakeQuery []NearbyBody

func (q fakeQuery) QueryNearby(cp.Vector, float64) []NearbyBody { return q }
