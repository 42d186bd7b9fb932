package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/common"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
)

const (
	nearZeroDistance = 0.01
	minSlowdownScale = 0.3
)

// PlanInput is the vehicle and target state the planner works from.
type PlanInput struct {
	Self              ecs.Entity
	Position          cp.Vector
	Velocity          cp.Vector
	Angle             float64
	Target            cp.Vector
	MaxLinearVelocity float64
}

// Plan is the outcome of one planning step. At most one of Arrived and Skip
// is set; otherwise the remaining fields describe the command.
type Plan struct {
	Arrived bool
	Skip    bool

	Distance        float64
	Direction       cp.Vector
	SpeedMultiplier float64
	WorldVelocity   cp.Vector
	LocalVelocity   cp.Vector
}

// PlanVelocity computes the desired velocity toward the target, steering
// around what query reports inside the autopilot's scan range. A nil query
// means open space.
func PlanVelocity(in PlanInput, ap *component.Autopilot, query SpatialQuery) Plan {
	toTarget := in.Target.Sub(in.Position)
	distance := toTarget.Length()

	if distance <= ap.ArrivalDistance {
		return Plan{Arrived: true, Distance: distance}
	}
	if distance <= nearZeroDistance {
		return Plan{Skip: true, Distance: distance}
	}

	direction := toTarget.Mult(1 / distance)
	candidates := CollectObstacles(query, in.Self, in.Position, direction, ap.ScanRange)
	direction, obstacleMultiplier := AvoidObstacles(in.Position, in.Velocity, direction, ap.ObstacleAvoidanceDistance, candidates)

	multiplier := ap.SpeedMultiplier * obstacleMultiplier
	if ap.SlowdownDistance > 0 && distance < ap.SlowdownDistance {
		multiplier *= math.Max(minSlowdownScale, distance/ap.SlowdownDistance)
	}

	desired := direction.Mult(in.MaxLinearVelocity * multiplier)
	return Plan{
		Distance:        distance,
		Direction:       direction,
		SpeedMultiplier: multiplier,
		WorldVelocity:   desired,
		LocalVelocity:   common.UnrotateVec(desired, in.Angle),
	}
}
