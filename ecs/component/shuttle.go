package component

// Direction indexes the four cardinal thruster groups in the shuttle's local
// frame. The order matches DirectionFlag bit positions.
type Direction int

const (
	DirectionSouth Direction = iota
	DirectionEast
	DirectionNorth
	DirectionWest
)

func (d Direction) Flag() DirectionFlag {
	return DirectionFlag(1 << uint(d))
}

func (d Direction) String() string {
	switch d {
	case DirectionSouth:
		return "south"
	case DirectionEast:
		return "east"
	case DirectionNorth:
		return "north"
	case DirectionWest:
		return "west"
	default:
		return "invalid"
	}
}

// DirectionFlag is a bitmask of lit linear thruster groups.
type DirectionFlag uint8

const (
	DirectionFlagNone  DirectionFlag = 0
	DirectionFlagSouth DirectionFlag = 1 << 0
	DirectionFlagEast  DirectionFlag = 1 << 1
	DirectionFlagNorth DirectionFlag = 1 << 2
	DirectionFlagWest  DirectionFlag = 1 << 3
)

func (f DirectionFlag) Has(d Direction) bool {
	return f&d.Flag() != 0
}

// Shuttle holds the steering subsystem of a vehicle: thrust tables, speed
// limits and the damping mode applied by the physics system.
type Shuttle struct {
	// Enabled is false when the helm is unpowered or the shuttle was
	// switched to another steering mode.
	Enabled bool

	BaseMaxLinearVelocity float64
	MaxAngularVelocity    float64
	AngularThrust         float64
	LinearThrust          [4]float64

	BrakeCoefficient      float64
	AnchorDampingStrength float64

	// LinearDamping is the drag coefficient scaled by DampingModifier.
	LinearDamping   float64
	BodyModifier    float64
	DampingModifier float64
	EBrakeActive    bool

	ThrustDirections    DirectionFlag
	AngularThrustActive bool
}

var ShuttleComponent = NewComponent[Shuttle]()
