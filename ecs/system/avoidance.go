package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/common"
	"github.com/milk9111/autopilot/ecs"
)

const (
	lookAheadFactor   = 0.3
	lookAheadMin      = 2.0
	lookAheadMax      = 5.0
	directAlignment   = 0.3
	predictAlignment  = 0.2
	perpendicularMix  = 1.5
	predictedNudge    = 0.5
	minProximitySpeed = 0.2
	densityPenalty    = 0.1
	minObstacleSpeed  = 0.15
	minBlend          = 0.3
	maxBlend          = 0.8
)

// ObstacleCandidate is a nearby grid seen from one vehicle this tick.
type ObstacleCandidate struct {
	Entity    ecs.Entity
	Position  cp.Vector
	Velocity  cp.Vector
	IsGrid    bool
	Distance  float64
	Alignment float64
}

// CollectObstacles turns a spatial query around pos into obstacle
// candidates for a vehicle travelling along direction. The vehicle itself
// and bodies that are not rigid grids are skipped.
func CollectObstacles(query SpatialQuery, self ecs.Entity, pos, direction cp.Vector, scanRange float64) []ObstacleCandidate {
	if query == nil || scanRange <= 0 {
		return nil
	}
	nearby := query.QueryNearby(pos, scanRange)
	out := make([]ObstacleCandidate, 0, len(nearby))
	for _, b := range nearby {
		if b.Entity == self || !b.IsRigidBody || !b.IsGrid {
			continue
		}
		if !common.IsFinite(b.Position) {
			continue
		}
		c := ObstacleCandidate{
			Entity:   b.Entity,
			Position: b.Position,
			Velocity: b.Velocity,
			IsGrid:   b.IsGrid,
		}
		toGrid := b.Position.Sub(pos)
		c.Distance = toGrid.Length()
		if c.Distance > 0.01 {
			c.Alignment = toGrid.Mult(1 / c.Distance).Dot(direction)
		}
		out = append(out, c)
	}
	return out
}

// AvoidObstacles bends a unit travel direction away from candidates in
// front of the vehicle. It returns the new unit direction and a speed
// multiplier in [0.15, 1]. With nothing in the way both pass through.
func AvoidObstacles(pos, velocity, direction cp.Vector, avoidanceDistance float64, candidates []ObstacleCandidate) (cp.Vector, float64) {
	if avoidanceDistance <= 0 || len(candidates) == 0 {
		return direction, 1
	}

	lookAhead := pos.Add(velocity.Mult(common.Clamp(velocity.Length()*lookAheadFactor, lookAheadMin, lookAheadMax)))

	var avoid cp.Vector
	closest := math.MaxFloat64
	triggered := false
	nearbyCount := 0

	for _, c := range candidates {
		if !c.IsGrid {
			continue
		}
		toGrid := c.Position.Sub(pos)
		dist := toGrid.Length()
		if dist < avoidanceDistance {
			nearbyCount++
		}
		if dist <= 0.01 {
			continue
		}
		normal := toGrid.Mult(1 / dist)
		alignment := normal.Dot(direction)

		if alignment > directAlignment && dist < avoidanceDistance {
			triggered = true
			closest = math.Min(closest, dist)

			away := normal.Neg()
			if perp, ok := leaningPerpendicular(toGrid, direction); ok {
				away = away.Add(perp.Mult(perpendicularMix)).Normalize()
			}
			weight := 1 - dist/avoidanceDistance
			avoid = avoid.Add(away.Mult(weight * weight))
		} else if alignment > predictAlignment {
			if c.Position.Distance(lookAhead) < avoidanceDistance*0.5 {
				triggered = true
				closest = math.Min(closest, dist)
				if perp, ok := leaningPerpendicular(toGrid, direction); ok {
					avoid = avoid.Add(perp.Mult(predictedNudge))
				}
			}
		}
	}

	if !triggered || avoid.LengthSq() <= 0.01 {
		return direction, 1
	}
	avoid = avoid.Normalize()

	speed := 1.0
	if closest < avoidanceDistance {
		speed = common.Clamp(closest/avoidanceDistance, minProximitySpeed, 1)
	}
	if nearbyCount > 1 {
		speed *= common.Clamp(1-float64(nearbyCount-1)*densityPenalty, minObstacleSpeed, 1)
	}
	speed = common.Clamp(speed, minObstacleSpeed, 1)

	strength := common.Clamp(1-closest/avoidanceDistance, minBlend, maxBlend)
	blended := direction.Mult(1 - strength).Add(avoid.Mult(strength))
	if blended.LengthSq() < 1e-12 {
		return avoid, speed
	}
	return blended.Normalize(), speed
}

// leaningPerpendicular returns the unit perpendicular of toGrid that points
// along direction rather than against it.
func leaningPerpendicular(toGrid, direction cp.Vector) (cp.Vector, bool) {
	perp := toGrid.Perp()
	if perp.LengthSq() <= 0.01 {
		return cp.Vector{}, false
	}
	perp = perp.Normalize()
	if perp.Dot(direction) < 0 {
		perp = perp.Neg()
	}
	return perp, true
}
