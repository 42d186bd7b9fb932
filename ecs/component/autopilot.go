package component

import "github.com/jakecoffman/cp"

// WorldCoordinate is a navigation target. A zero Frame means absolute map
// coordinates; otherwise Position is relative to the frame entity's body.
type WorldCoordinate struct {
	Frame    uint64 // ecs.Entity
	Position cp.Vector
}

// Autopilot is the per-vehicle navigation record.
type Autopilot struct {
	Enabled     bool
	Target      *WorldCoordinate
	Destination string

	ArrivalDistance           float64
	SlowdownDistance          float64
	ScanRange                 float64
	ObstacleAvoidanceDistance float64
	SpeedMultiplier           float64
}

var AutopilotComponent = NewComponent[Autopilot]()

// AutopilotServer enables autopilot for the grid it is installed on.
type AutopilotServer struct {
	Grid     uint64 // ecs.Entity
	Anchored bool
}

var AutopilotServerComponent = NewComponent[AutopilotServer]()

// Power is an optional receiver on machines. A machine without one counts
// as powered.
type Power struct {
	Powered bool
}

var PowerComponent = NewComponent[Power]()
