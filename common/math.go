package common

import (
	"math"

	"github.com/jakecoffman/cp"
	"golang.org/x/exp/constraints"
)

func Lerp[T constraints.Float](a, b, t T) T {
	return a + t*(b-a)
}

func Clamp[T constraints.Ordered](x, low, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Sign[T constraints.Signed | constraints.Float](v T) T {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}

// NormalizeAngle wraps a to (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// ShortestAngle returns the signed rotation that takes from to to.
func ShortestAngle(from, to float64) float64 {
	return NormalizeAngle(to - from)
}

// RotateVec rotates v counter-clockwise by angle radians.
func RotateVec(v cp.Vector, angle float64) cp.Vector {
	return v.Rotate(cp.ForAngle(angle))
}

// UnrotateVec rotates v clockwise by angle radians, taking a world-space
// vector into a body frame with that orientation.
func UnrotateVec(v cp.Vector, angle float64) cp.Vector {
	return v.Unrotate(cp.ForAngle(angle))
}

// IsFinite reports whether both components are finite.
func IsFinite(v cp.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
