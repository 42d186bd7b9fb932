package system

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/ecs/component"
)

func TestAllocateThrust(t *testing.T) {
	shuttle := testShuttleComponent()
	limit := shuttle.BaseMaxLinearVelocity * 0.6

	tests := []struct {
		name      string
		desired   cp.Vector
		velocity  cp.Vector
		wantDirs  component.DirectionFlag
		wantForce cp.Vector
	}{
		{"forward_from_rest", cp.Vector{Y: 5}, cp.Vector{}, component.DirectionFlagNorth, cp.Vector{Y: 3000}},
		{"reverse", cp.Vector{Y: -5}, cp.Vector{}, component.DirectionFlagSouth, cp.Vector{Y: -3000}},
		{"strafe_west_ignores_small_y", cp.Vector{X: -5, Y: 0.05}, cp.Vector{}, component.DirectionFlagWest, cp.Vector{X: -1500}},
		{"diagonal", cp.Vector{X: 2, Y: 2}, cp.Vector{}, component.DirectionFlagNorth | component.DirectionFlagEast, cp.Vector{X: 1500, Y: 3000}},
		{"dead_zone", cp.Vector{X: 0.05, Y: -0.05}, cp.Vector{}, component.DirectionFlagNone, cp.Vector{}},
		{"at_cap_does_not_fire", cp.Vector{Y: 5}, cp.Vector{Y: limit}, component.DirectionFlagNone, cp.Vector{}},
		{"at_cap_other_axis_still_fires", cp.Vector{X: 3, Y: 5}, cp.Vector{Y: limit + 1}, component.DirectionFlagEast, cp.Vector{X: 1500}},
		{"braking_direction_allowed_over_cap", cp.Vector{Y: -5}, cp.Vector{Y: limit + 5}, component.DirectionFlagSouth, cp.Vector{Y: -3000}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dirs, force := AllocateThrust(tc.desired, tc.velocity, shuttle)
			if dirs != tc.wantDirs {
				t.Fatalf("directions = %04b, want %04b", dirs, tc.wantDirs)
			}
			if force != tc.wantForce {
				t.Fatalf("force = %v, want %v", force, tc.wantForce)
			}
		})
	}
}

func TestSteerRotation(t *testing.T) {
	shuttle := testShuttleComponent()
	limit := shuttle.MaxAngularVelocity * 0.7

	tests := []struct {
		name      string
		angle     float64
		omega     float64
		direction cp.Vector
		check     func(t *testing.T, cmd RotationCommand)
	}{
		{
			name:      "aligned_is_quiet",
			direction: cp.Vector{Y: 1},
			check: func(t *testing.T, cmd RotationCommand) {
				if cmd.Thrusting || cmd.SteeringImpulse != 0 || cmd.DampingImpulse != 0 {
					t.Fatalf("expected no response, got %+v", cmd)
				}
			},
		},
		{
			name:      "inside_dead_zone",
			direction: cp.ForAngle(math.Pi/2 + 0.1),
			check: func(t *testing.T, cmd RotationCommand) {
				if cmd.Thrusting || cmd.SteeringImpulse != 0 {
					t.Fatalf("expected dead zone, got %+v", cmd)
				}
			},
		},
		{
			name:      "turn_left_full_gain",
			direction: cp.Vector{X: -1},
			check: func(t *testing.T, cmd RotationCommand) {
				want := shuttle.AngularThrust * 0.25 * testDt
				if !cmd.Thrusting || !almostEqual(cmd.SteeringImpulse, want, 1e-9) {
					t.Fatalf("expected impulse %v, got %+v", want, cmd)
				}
				if !almostEqual(cmd.HeadingError, math.Pi/2, 1e-9) {
					t.Fatalf("expected error pi/2, got %v", cmd.HeadingError)
				}
			},
		},
		{
			name:      "turn_right_proportional",
			direction: cp.ForAngle(math.Pi/2 - 0.5),
			check: func(t *testing.T, cmd RotationCommand) {
				want := -shuttle.AngularThrust * 0.25 * 0.5 * testDt
				if !almostEqual(cmd.SteeringImpulse, want, 1e-9) {
					t.Fatalf("expected impulse %v, got %v", want, cmd.SteeringImpulse)
				}
			},
		},
		{
			name:      "capped_spin_only_damps",
			omega:     limit + 0.01,
			direction: cp.Vector{X: -1},
			check: func(t *testing.T, cmd RotationCommand) {
				if cmd.Thrusting || cmd.SteeringImpulse != 0 {
					t.Fatalf("expected no steering at the cap, got %+v", cmd)
				}
				want := -(limit + 0.01) * shuttle.AngularThrust * 0.6 * testDt
				if !almostEqual(cmd.DampingImpulse, want, 1e-9) {
					t.Fatalf("expected damping %v, got %v", want, cmd.DampingImpulse)
				}
			},
		},
		{
			name:      "wraps_across_pi",
			angle:     3,
			direction: cp.ForAngle(-3 + math.Pi/2),
			check: func(t *testing.T, cmd RotationCommand) {
				if cmd.HeadingError <= 0 || cmd.HeadingError > 1 {
					t.Fatalf("expected a short positive turn, got %v", cmd.HeadingError)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, SteerRotation(tc.angle, tc.omega, tc.direction, shuttle, testDt))
		})
	}
}

func TestComputeBraking(t *testing.T) {
	shuttle := testShuttleComponent()

	tests := []struct {
		name     string
		velocity cp.Vector
		angle    float64
		omega    float64
		mass     float64
		check    func(t *testing.T, cmd BrakeCommand)
	}{
		{
			name:     "opposes_forward_motion",
			velocity: cp.Vector{Y: 10},
			mass:     200,
			check: func(t *testing.T, cmd BrakeCommand) {
				if cmd.Directions != component.DirectionFlagSouth {
					t.Fatalf("expected south thrusters, got %04b", cmd.Directions)
				}
				if !almostEqual(cmd.Force.Y, -4500, 1e-6) || !almostEqual(cmd.Force.X, 0, 1e-6) {
					t.Fatalf("unexpected force %v", cmd.Force)
				}
			},
		},
		{
			name:     "rotated_frame",
			velocity: cp.Vector{X: -10},
			angle:    math.Pi / 2,
			mass:     200,
			check: func(t *testing.T, cmd BrakeCommand) {
				if cmd.Directions != component.DirectionFlagSouth {
					t.Fatalf("expected south thrusters, got %04b", cmd.Directions)
				}
				if cmd.Force.X <= 0 || !almostEqual(cmd.Force.Y, 0, 1e-6) {
					t.Fatalf("force %v should oppose world velocity", cmd.Force)
				}
			},
		},
		{
			name:     "clamped_to_stop",
			velocity: cp.Vector{Y: 0.5},
			mass:     1,
			check: func(t *testing.T, cmd BrakeCommand) {
				limit := 0.5 * 1 / testDt
				if !almostEqual(cmd.Force.Length(), limit, 1e-6) {
					t.Fatalf("expected force clamped to %v, got %v", limit, cmd.Force.Length())
				}
			},
		},
		{
			name:     "negligible_speed",
			velocity: cp.Vector{X: 0.05, Y: 0.05},
			mass:     200,
			check: func(t *testing.T, cmd BrakeCommand) {
				if cmd.Linear || cmd.Force != (cp.Vector{}) {
					t.Fatalf("expected no linear braking, got %+v", cmd)
				}
			},
		},
		{
			name:  "counter_rotates",
			omega: 0.5,
			mass:  200,
			check: func(t *testing.T, cmd BrakeCommand) {
				want := -shuttle.AngularThrust * shuttle.BrakeCoefficient * testDt
				if !cmd.Angular || !almostEqual(cmd.AngularImpulse, want, 1e-9) {
					t.Fatalf("expected angular impulse %v, got %+v", want, cmd)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, ComputeBraking(tc.velocity, tc.angle, tc.omega, tc.mass, shuttle, testDt))
		})
	}
}

func TestPlanVelocity(t *testing.T) {
	ap := &component.Autopilot{ArrivalDistance: 5, SlowdownDistance: 50, ScanRange: 100, ObstacleAvoidanceDistance: 60, SpeedMultiplier: 0.6}

	tests := []struct {
		name  string
		in    PlanInput
		check func(t *testing.T, p Plan)
	}{
		{
			name: "arrived",
			in:   PlanInput{Position: cp.Vector{Y: 97}, Target: cp.Vector{Y: 100}, MaxLinearVelocity: 20},
			check: func(t *testing.T, p Plan) {
				if !p.Arrived {
					t.Fatalf("expected arrival, got %+v", p)
				}
			},
		},
		{
			name: "cruise",
			in:   PlanInput{Target: cp.Vector{Y: 100}, MaxLinearVelocity: 20},
			check: func(t *testing.T, p Plan) {
				if p.Arrived || p.Skip {
					t.Fatalf("unexpected terminal plan %+v", p)
				}
				if !almostEqual(p.LocalVelocity.Y, 12, 1e-9) || !almostEqual(p.LocalVelocity.X, 0, 1e-9) {
					t.Fatalf("expected 12 m/s north, got %v", p.LocalVelocity)
				}
			},
		},
		{
			name: "slowdown",
			in:   PlanInput{Target: cp.Vector{Y: 25}, MaxLinearVelocity: 20},
			check: func(t *testing.T, p Plan) {
				if !almostEqual(p.SpeedMultiplier, 0.6*0.5, 1e-9) {
					t.Fatalf("expected multiplier 0.3, got %v", p.SpeedMultiplier)
				}
			},
		},
		{
			name: "slowdown_floor",
			in:   PlanInput{Target: cp.Vector{Y: 6}, MaxLinearVelocity: 20},
			check: func(t *testing.T, p Plan) {
				if !almostEqual(p.SpeedMultiplier, 0.6*0.3, 1e-9) {
					t.Fatalf("expected multiplier 0.18, got %v", p.SpeedMultiplier)
				}
			},
		},
		{
			name: "local_frame",
			in:   PlanInput{Angle: math.Pi / 2, Target: cp.Vector{X: -100}, MaxLinearVelocity: 20},
			check: func(t *testing.T, p Plan) {
				// facing west, a westward target is straight ahead
				if !almostEqual(p.LocalVelocity.Y, 12, 1e-9) || !almostEqual(p.LocalVelocity.X, 0, 1e-9) {
					t.Fatalf("expected forward local velocity, got %v", p.LocalVelocity)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, PlanVelocity(tc.in, ap, nil))
		})
	}
}

func TestPlanVelocitySkipsNearZeroDistance(t *testing.T) {
	ap := &component.Autopilot{SpeedMultiplier: 0.6}
	p := PlanVelocity(PlanInput{Position: cp.Vector{X: 1}, Target: cp.Vector{X: 1.005}, MaxLinearVelocity: 20}, ap, nil)
	if !p.Skip || p.Arrived {
		t.Fatalf("expected skip, got %+v", p)
	}
}

func TestPlanVelocityAvoidsObstacleOnLine(t *testing.T) {
	ap := &component.Autopilot{ArrivalDistance: 5, SlowdownDistance: 50, ScanRange: 100, ObstacleAvoidanceDistance: 60, SpeedMultiplier: 0.6}
	q := fakeQuery{{Entity: 2, IsRigidBody: true, IsGrid: true, Position: cp.Vector{Y: 30}}}
	p := PlanVelocity(PlanInput{Self: 1, Target: cp.Vector{Y: 100}, MaxLinearVelocity: 20}, ap, q)
	if math.Abs(p.Direction.X) < 0.1 {
		t.Fatalf("expected deflection, got %v", p.Direction)
	}
	if p.SpeedMultiplier >= 0.6 {
		t.Fatalf("expected obstacle to cut speed, got %v", p.SpeedMultiplier)
	}
}
