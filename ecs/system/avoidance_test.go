package system

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/ecs"
)

func grid(e ecs.Entity, x, y float64) ObstacleCandidate {
	return ObstacleCandidate{Entity: e, Position: cp.Vector{X: x, Y: y}, IsGrid: true}
}

func TestAvoidObstacles(t *testing.T) {
	north := cp.Vector{Y: 1}
	const avoidDist = 60.0

	tests := []struct {
		name       string
		velocity   cp.Vector
		candidates []ObstacleCandidate
		check      func(t *testing.T, dir cp.Vector, mult float64)
	}{
		{
			name: "no_candidates_pass_through",
			check: func(t *testing.T, dir cp.Vector, mult float64) {
				if dir != north || mult != 1 {
					t.Fatalf("expected pass-through, got %v x%v", dir, mult)
				}
			},
		},
		{
			name:       "obstacle_behind_ignored",
			candidates: []ObstacleCandidate{grid(1, 0, -20)},
			check: func(t *testing.T, dir cp.Vector, mult float64) {
				if dir != north || mult != 1 {
					t.Fatalf("obstacle behind should not steer, got %v x%v", dir, mult)
				}
			},
		},
		{
			name:       "non_grid_ignored",
			candidates: []ObstacleCandidate{{Entity: 1, Position: cp.Vector{Y: 20}}},
			check: func(t *testing.T, dir cp.Vector, mult float64) {
				if dir != north || mult != 1 {
					t.Fatalf("non-grid body should not steer, got %v x%v", dir, mult)
				}
			},
		},
		{
			name:       "head_on_deflects_and_slows",
			candidates: []ObstacleCandidate{grid(1, 0, 30)},
			check: func(t *testing.T, dir cp.Vector, mult float64) {
				if math.Abs(dir.X) < 0.1 {
					t.Fatalf("expected a perpendicular component, got %v", dir)
				}
				if !almostEqual(mult, 0.5, 1e-9) {
					t.Fatalf("expected proximity multiplier 0.5, got %v", mult)
				}
			},
		},
		{
			name:       "close_obstacle_floors_at_proximity_min",
			candidates: []ObstacleCandidate{grid(1, 0, 5)},
			check: func(t *testing.T, dir cp.Vector, mult float64) {
				if !almostEqual(mult, 0.2, 1e-9) {
					t.Fatalf("expected multiplier floor 0.2, got %v", mult)
				}
			},
		},
		{
			name:     "predicted_collision_nudges_sideways",
			velocity: cp.Vector{X: 20, Y: 4},
			// alignment with north is ~0.25 and the look-ahead point lands
			// next to it, well outside the avoidance distance
			candidates: []ObstacleCandidate{grid(1, 95, 25)},
			check: func(t *testing.T, dir cp.Vector, mult float64) {
				if dir == north {
					t.Fatalf("expected predicted collision to steer")
				}
				if mult != 1 {
					t.Fatalf("obstacle beyond avoidance distance should not slow, got %v", mult)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir, mult := AvoidObstacles(cp.Vector{}, tc.velocity, north, avoidDist, tc.candidates)
			if !almostEqual(dir.Length(), 1, 1e-9) {
				t.Fatalf("direction %v is not a unit vector", dir)
			}
			tc.check(t, dir, mult)
		})
	}
}

func TestAvoidObstaclesDensityFloor(t *testing.T) {
	candidates := []ObstacleCandidate{grid(1, 0, 10)}
	for i := 0; i < 20; i++ {
		candidates = append(candidates, grid(ecs.Entity(i+2), float64(i-10), -20))
	}
	_, mult := AvoidObstacles(cp.Vector{}, cp.Vector{}, cp.Vector{Y: 1}, 60, candidates)
	if !almostEqual(mult, 0.15, 1e-9) {
		t.Fatalf("expected crowded multiplier to floor at 0.15, got %v", mult)
	}
}

func TestAvoidObstaclesAlwaysUnit(t *testing.T) {
	for a := 0.0; a < 2*math.Pi; a += 0.37 {
		dir := cp.ForAngle(a)
		for _, c := range [][]ObstacleCandidate{
			{grid(1, 0, 25)},
			{grid(1, 10, 10), grid(2, -10, 10)},
			{grid(1, 3, 40), grid(2, 30, -5), grid(3, -2, 2)},
		} {
			got, mult := AvoidObstacles(cp.Vector{}, dir.Mult(4), dir, 60, c)
			if !almostEqual(got.Length(), 1, 1e-9) {
				t.Fatalf("angle %v: direction %v is not unit", a, got)
			}
			if mult < 0.15 || mult > 1 {
				t.Fatalf("angle %v: multiplier %v out of bounds", a, mult)
			}
		}
	}
}

func TestCollectObstaclesFiltersSelfAndNonGrids(t *testing.T) {
	q := fakeQuery{
		{Entity: 1, IsRigidBody: true, IsGrid: true, Position: cp.Vector{Y: 10}},
		{Entity: 2, IsRigidBody: true, IsGrid: true, Position: cp.Vector{X: 10}},
		{Entity: 3, IsRigidBody: true, IsGrid: false, Position: cp.Vector{Y: 5}},
		{Entity: 4, IsRigidBody: false, IsGrid: true, Position: cp.Vector{Y: 5}},
		{Entity: 5, IsRigidBody: true, IsGrid: true, Position: cp.Vector{X: math.NaN()}},
	}
	got := CollectObstacles(q, 1, cp.Vector{}, cp.Vector{Y: 1}, 100)
	if len(got) != 1 || got[0].Entity != 2 {
		t.Fatalf("expected only entity 2, got %+v", got)
	}
	if !almostEqual(got[0].Distance, 10, 1e-9) || !almostEqual(got[0].Alignment, 0, 1e-9) {
		t.Fatalf("unexpected measurements %+v", got[0])
	}
	if CollectObstacles(nil, 1, cp.Vector{}, cp.Vector{Y: 1}, 100) != nil {
		t.Fatalf("nil query should yield no candidates")
	}
}
