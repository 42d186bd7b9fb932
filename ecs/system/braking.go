package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/common"
	"github.com/milk9111/autopilot/ecs/component"
)

// BrakeCommand is the braking response for one tick. Force is in world
// space and already clamped so it cannot reverse the velocity in one step.
type BrakeCommand struct {
	Linear         bool
	Directions     component.DirectionFlag
	Force          cp.Vector
	Angular        bool
	AngularImpulse float64
}

// ComputeBraking fires the thruster groups opposing the local velocity and
// counter-rotates, both scaled by the shuttle's brake coefficient.
func ComputeBraking(velocity cp.Vector, angle, angularVelocity, mass float64, shuttle *component.Shuttle, dt float64) BrakeCommand {
	var cmd BrakeCommand

	if velocity.LengthSq() > 0.01 {
		cmd.Linear = true
		local := common.UnrotateVec(velocity, angle)
		var force cp.Vector

		if local.X < -thrustDeadZone {
			cmd.Directions |= component.DirectionFlagEast
			force.X += shuttle.LinearThrust[component.DirectionEast]
		} else if local.X > thrustDeadZone {
			cmd.Directions |= component.DirectionFlagWest
			force.X -= shuttle.LinearThrust[component.DirectionWest]
		}
		if local.Y < -thrustDeadZone {
			cmd.Directions |= component.DirectionFlagNorth
			force.Y += shuttle.LinearThrust[component.DirectionNorth]
		} else if local.Y > thrustDeadZone {
			cmd.Directions |= component.DirectionFlagSouth
			force.Y -= shuttle.LinearThrust[component.DirectionSouth]
		}

		if cmd.Directions != component.DirectionFlagNone && dt > 0 && mass > 0 {
			world := common.RotateVec(force.Mult(shuttle.BrakeCoefficient), angle)
			limit := velocity.Length() * mass / dt
			if world.Length() > limit {
				world = world.Normalize().Mult(limit)
			}
			cmd.Force = world
		}
	}

	if math.Abs(angularVelocity) > angularSpeedMin {
		cmd.Angular = true
		cmd.AngularImpulse = shuttle.AngularThrust * -common.Sign(angularVelocity) * shuttle.BrakeCoefficient * dt
	}
	return cmd
}

// ApplyBraking brakes body for one tick and updates the lit thrusters.
func ApplyBraking(body *cp.Body, moment float64, shuttle *component.Shuttle, dt float64) {
	if body == nil || shuttle == nil {
		return
	}
	cmd := ComputeBraking(body.Velocity(), body.Angle(), body.AngularVelocity(), body.Mass(), shuttle, dt)

	if !cmd.Linear {
		disableLinearThrusters(shuttle)
	} else if cmd.Directions != component.DirectionFlagNone {
		enableLinearThrustDirection(shuttle, cmd.Directions)
		if cmd.Force.LengthSq() > 0 {
			body.ApplyForceAtWorldPoint(cmd.Force, body.Position())
		}
	}

	setAngularThrust(shuttle, cmd.Angular)
	applyAngularImpulse(body, moment, cmd.AngularImpulse)
}

// parkShuttle switches the shuttle to anchor damping after arrival.
func parkShuttle(shuttle *component.Shuttle) {
	shuttle.BodyModifier = shuttle.AnchorDampingStrength
	if shuttle.DampingModifier != 0 {
		shuttle.DampingModifier = shuttle.BodyModifier
	}
	shuttle.EBrakeActive = false
}
