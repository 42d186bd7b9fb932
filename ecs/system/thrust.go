package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/common"
	"github.com/milk9111/autopilot/ecs/component"
)

const (
	thrustDeadZone  = 0.1
	cruiseSpeedCap  = 0.6
	angularSpeedMin = 0.01
)

// AllocateThrust picks the linear thruster groups that push the local
// velocity toward desired. An axis fires only while the vehicle is under
// 60% of its top speed in that direction. The returned force is in the
// vehicle's local frame.
func AllocateThrust(desired, localVelocity cp.Vector, shuttle *component.Shuttle) (component.DirectionFlag, cp.Vector) {
	limit := shuttle.BaseMaxLinearVelocity * cruiseSpeedCap
	var force cp.Vector
	dirs := component.DirectionFlagNone

	if desired.X > thrustDeadZone && localVelocity.X < limit {
		dirs |= component.DirectionFlagEast
		force.X += shuttle.LinearThrust[component.DirectionEast]
	} else if desired.X < -thrustDeadZone && localVelocity.X > -limit {
		dirs |= component.DirectionFlagWest
		force.X -= shuttle.LinearThrust[component.DirectionWest]
	}

	if desired.Y > thrustDeadZone && localVelocity.Y < limit {
		dirs |= component.DirectionFlagNorth
		force.Y += shuttle.LinearThrust[component.DirectionNorth]
	} else if desired.Y < -thrustDeadZone && localVelocity.Y > -limit {
		dirs |= component.DirectionFlagSouth
		force.Y -= shuttle.LinearThrust[component.DirectionSouth]
	}

	return dirs, force
}

// applyAutopilotThrust allocates and applies linear thrust for one tick.
func applyAutopilotThrust(body *cp.Body, shuttle *component.Shuttle, localDesired cp.Vector) {
	angle := body.Angle()
	localVelocity := common.UnrotateVec(body.Velocity(), angle)
	dirs, force := AllocateThrust(localDesired, localVelocity, shuttle)
	if dirs == component.DirectionFlagNone {
		disableLinearThrusters(shuttle)
		return
	}
	enableLinearThrustDirection(shuttle, dirs)
	body.ApplyForceAtWorldPoint(common.RotateVec(force, angle), body.Position())
}

func enableLinearThrustDirection(shuttle *component.Shuttle, dirs component.DirectionFlag) {
	shuttle.ThrustDirections = dirs
}

func disableLinearThrusters(shuttle *component.Shuttle) {
	shuttle.ThrustDirections = component.DirectionFlagNone
}

func setAngularThrust(shuttle *component.Shuttle, on bool) {
	shuttle.AngularThrustActive = on
}

// applyAngularImpulse changes the angular velocity by impulse/moment.
func applyAngularImpulse(body *cp.Body, moment, impulse float64) {
	if moment <= 0 || impulse == 0 {
		return
	}
	body.SetAngularVelocity(body.AngularVelocity() + impulse/moment)
}
