package system

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
)

func TestPhysicsSyncCreatesBodies(t *testing.T) {
	w := ecs.NewWorld()
	ps := NewPhysicsSystem()
	shuttle := spawnShuttle(t, w, "Kestrel", cp.Vector{X: 3, Y: 4})
	rock := spawnRock(t, w, "Rock", cp.Vector{X: -10}, 2, true)
	crate := ecs.CreateEntity(w)
	mustAdd(t, w, crate, component.TransformComponent.Kind(), &component.Transform{})
	mustAdd(t, w, crate, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{Width: 2, Height: 1})

	ps.Sync(w)

	tests := []struct {
		name  string
		check func(t *testing.T)
	}{
		{
			name: "dynamic_body",
			check: func(t *testing.T) {
				pb, _ := ecs.Get(w, shuttle, component.PhysicsBodyComponent.Kind())
				if pb.Body == nil || pb.Shape == nil {
					t.Fatal("expected body and shape")
				}
				if pb.Body.Position() != (cp.Vector{X: 3, Y: 4}) {
					t.Fatalf("unexpected position %v", pb.Body.Position())
				}
				want := cp.MomentForCircle(200, 0, 4, cp.Vector{})
				if !almostEqual(pb.Moment, want, 1e-9) {
					t.Fatalf("moment = %v, want %v", pb.Moment, want)
				}
				if body, ok := ps.BodyOf(shuttle); !ok || body != pb.Body {
					t.Fatal("BodyOf should return the component body")
				}
			},
		},
		{
			name: "static_body",
			check: func(t *testing.T) {
				pb, _ := ecs.Get(w, rock, component.PhysicsBodyComponent.Kind())
				if pb.Body == nil || pb.Body.GetType() != cp.BODY_STATIC {
					t.Fatalf("expected a static body, got %v", pb.Body)
				}
			},
		},
		{
			name: "box_defaults_mass",
			check: func(t *testing.T) {
				pb, _ := ecs.Get(w, crate, component.PhysicsBodyComponent.Kind())
				if pb.Mass != 1 || !almostEqual(pb.Moment, cp.MomentForBox(1, 2, 1), 1e-9) {
					t.Fatalf("unexpected mass %v moment %v", pb.Mass, pb.Moment)
				}
			},
		},
		{
			name: "sync_is_stable",
			check: func(t *testing.T) {
				before, _ := ps.BodyOf(shuttle)
				ps.Sync(w)
				after, _ := ps.BodyOf(shuttle)
				if before != after {
					t.Fatal("second sync replaced the body")
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, tc.check)
	}
}

func TestPhysicsQueryNearby(t *testing.T) {
	w := ecs.NewWorld()
	ps := NewPhysicsSystem()
	shuttle := spawnShuttle(t, w, "Kestrel", cp.Vector{})
	station := spawnRock(t, w, "Station", cp.Vector{Y: 30}, 5, true)
	debris := spawnRock(t, w, "Debris", cp.Vector{X: 20}, 1, false)
	spawnRock(t, w, "Far", cp.Vector{X: 500}, 5, true)
	ps.Sync(w)

	found := map[ecs.Entity]NearbyBody{}
	for _, b := range ps.QueryNearby(cp.Vector{}, 50) {
		if _, dup := found[b.Entity]; dup {
			t.Fatalf("duplicate %v", b.Entity)
		}
		found[b.Entity] = b
	}

	if len(found) != 3 {
		t.Fatalf("expected 3 bodies, got %v", found)
	}
	if !found[station].IsGrid || found[debris].IsGrid || !found[shuttle].IsGrid {
		t.Fatalf("unexpected grid flags %+v", found)
	}
	if found[station].Position != (cp.Vector{Y: 30}) || !found[station].IsRigidBody {
		t.Fatalf("unexpected station entry %+v", found[station])
	}
	if ps.QueryNearby(cp.Vector{}, 0) != nil {
		t.Fatal("zero radius should find nothing")
	}
}

func TestPhysicsQueryNearbyHonoursRadius(t *testing.T) {
	w := ecs.NewWorld()
	ps := NewPhysicsSystem()
	corner := spawnRock(t, w, "Corner", cp.Vector{X: 9, Y: 9}, 1, true)
	edge := spawnRock(t, w, "Edge", cp.Vector{Y: 10.5}, 1, true)
	ps.Sync(w)

	tests := []struct {
		name   string
		radius float64
		want   map[ecs.Entity]bool
	}{
		// (9,9) is 12.73 away, 11.73 from its surface, but its box touches the query square.
		{"corner_outside_circle", 10, map[ecs.Entity]bool{edge: true}},
		{"corner_inside_circle", 12, map[ecs.Entity]bool{corner: true, edge: true}},
		{"edge_surface_out_of_reach", 9, map[ecs.Entity]bool{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := map[ecs.Entity]bool{}
			for _, b := range ps.QueryNearby(cp.Vector{}, tc.radius) {
				got[b.Entity] = true
			}
			if len(got) != len(tc.want) {
				t.Fatalf("radius %v: got %v, want %v", tc.radius, got, tc.want)
			}
			for e := range tc.want {
				if !got[e] {
					t.Fatalf("radius %v: missing %v in %v", tc.radius, e, got)
				}
			}
		})
	}
}

func TestPhysicsRemovesDestroyedBodies(t *testing.T) {
	w := ecs.NewWorld()
	ps := NewPhysicsSystem()
	rock := spawnRock(t, w, "Rock", cp.Vector{Y: 10}, 2, true)
	ps.Sync(w)

	ecs.DestroyEntity(w, rock)
	ps.Update(w, testDt)

	if _, ok := ps.BodyOf(rock); ok {
		t.Fatal("body should be removed with its entity")
	}
	if got := ps.QueryNearby(cp.Vector{}, 50); len(got) != 0 {
		t.Fatalf("expected empty query, got %v", got)
	}
}

func TestPhysicsDampingAndTransforms(t *testing.T) {
	w := ecs.NewWorld()
	ps := NewPhysicsSystem()
	shuttle := spawnShuttle(t, w, "Kestrel", cp.Vector{})
	pb, _ := ecs.Get(w, shuttle, component.PhysicsBodyComponent.Kind())
	pb.VelocityY = 10
	ps.Sync(w)

	steps := 60
	for i := 0; i < steps; i++ {
		ps.Update(w, testDt)
	}

	// one second of exponential drag at LinearDamping 0.4
	want := 10 * math.Exp(-0.4)
	if got := pb.Body.Velocity().Y; !almostEqual(got, want, 0.01) {
		t.Fatalf("velocity after drag = %v, want %v", got, want)
	}
	tr, _ := ecs.Get(w, shuttle, component.TransformComponent.Kind())
	if tr.Y <= 0 || tr.Y != pb.Body.Position().Y {
		t.Fatalf("transform not synced: %v vs %v", tr.Y, pb.Body.Position().Y)
	}

	sh, _ := ecs.Get(w, shuttle, component.ShuttleComponent.Kind())
	sh.DampingModifier = 2.5
	v0 := pb.Body.Velocity().Y
	for i := 0; i < steps; i++ {
		ps.Update(w, testDt)
	}
	want = v0 * math.Exp(-1)
	if got := pb.Body.Velocity().Y; !almostEqual(got, want, 0.01) {
		t.Fatalf("parked velocity = %v, want %v", got, want)
	}
}
