package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/common"
	"github.com/milk9111/autopilot/ecs/component"
)

const (
	headingOffset       = math.Pi / 2
	rotationDamping     = 0.6
	rotationDeadZone    = 0.15
	rotationGain        = 0.25
	angularSpeedCap     = 0.7
	minProportionalGain = 0.1
)

// RotationCommand is the angular response for one tick. Impulses are
// torque multiplied by the frame time.
type RotationCommand struct {
	DampingImpulse  float64
	SteeringImpulse float64
	Thrusting       bool
	HeadingError    float64
}

// SteerRotation turns the vehicle's forward axis, local +y, toward
// direction. Angular velocity is always damped; steering torque is applied
// outside a small dead zone and only while under 70% of the top angular
// speed in the turning direction.
func SteerRotation(angle, angularVelocity float64, direction cp.Vector, shuttle *component.Shuttle, dt float64) RotationCommand {
	desired := math.Atan2(direction.Y, direction.X) - headingOffset
	errAngle := common.ShortestAngle(angle, desired)
	cmd := RotationCommand{HeadingError: errAngle}

	if math.Abs(angularVelocity) > angularSpeedMin {
		cmd.DampingImpulse = -angularVelocity * shuttle.AngularThrust * rotationDamping * dt
	}

	if math.Abs(errAngle) < rotationDeadZone {
		return cmd
	}

	sign := common.Sign(errAngle)
	gain := rotationGain * common.Clamp(math.Abs(errAngle), minProportionalGain, 1)
	limit := shuttle.MaxAngularVelocity * angularSpeedCap
	if (sign > 0 && angularVelocity < limit) || (sign < 0 && angularVelocity > -limit) {
		cmd.SteeringImpulse = shuttle.AngularThrust * sign * gain * dt
		cmd.Thrusting = true
	}
	return cmd
}

func rotateTowards(body *cp.Body, moment float64, shuttle *component.Shuttle, direction cp.Vector, dt float64) {
	cmd := SteerRotation(body.Angle(), body.AngularVelocity(), direction, shuttle, dt)
	applyAngularImpulse(body, moment, cmd.DampingImpulse)
	setAngularThrust(shuttle, cmd.Thrusting)
	applyAngularImpulse(body, moment, cmd.SteeringImpulse)
}
