package component

import "github.com/jakecoffman/cp"

// RadarConsole is a helm console bound to a grid. A console may carry an
// entity target, a manual map target, or both; the entity wins.
type RadarConsole struct {
	Grid             uint64 // ecs.Entity
	TargetEntity     uint64 // ecs.Entity
	TargetEntityName string
	Target           *cp.Vector
}

var RadarConsoleComponent = NewComponent[RadarConsole]()

// AutopilotRequest is a one-shot request asking a console to engage its
// shuttle's autopilot. The console system destroys the request entity once
// handled.
type AutopilotRequest struct {
	Console uint64 // ecs.Entity
	Actor   uint64 // ecs.Entity
}

var AutopilotRequestComponent = NewComponent[AutopilotRequest]()

// Occupant is an actor aboard a grid. Notices and status messages land in
// Messages.
type Occupant struct {
	Name     string
	Grid     uint64 // ecs.Entity
	Messages []string
}

var OccupantComponent = NewComponent[Occupant]()
