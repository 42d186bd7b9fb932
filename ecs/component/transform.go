package component

// Transform mirrors the physics body pose after every step. Rotation is in
// radians, counter-clockwise.
type Transform struct {
	X        float64
	Y        float64
	Rotation float64
}

var TransformComponent = NewComponent[Transform]()
