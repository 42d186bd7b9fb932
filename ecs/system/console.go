package system

import (
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/log"
)

const (
	unknownTargetName     = "Unknown Target"
	manualDestinationName = "Manual Destination"
)

// ShuttleConsoleSystem turns AutopilotRequest entities into Enable calls on
// the grid the console is mounted on. Requests are consumed the tick they
// are seen.
type ShuttleConsoleSystem struct {
	Autopilot *AutopilotSystem
	Logger    *log.Logger
}

func NewShuttleConsoleSystem(autopilot *AutopilotSystem, logger *log.Logger) *ShuttleConsoleSystem {
	return &ShuttleConsoleSystem{Autopilot: autopilot, Logger: logger}
}

func (cs *ShuttleConsoleSystem) Update(w *ecs.World, _ float64) {
	if cs == nil || w == nil {
		return
	}
	ecs.ForEach(w, component.AutopilotRequestComponent.Kind(), func(e ecs.Entity, req *component.AutopilotRequest) {
		cs.handle(w, *req)
		ecs.DestroyEntity(w, e)
	})
}

func (cs *ShuttleConsoleSystem) handle(w *ecs.World, req component.AutopilotRequest) {
	actor := ecs.Entity(req.Actor)
	if !ecs.IsAlive(w, actor) {
		return
	}
	consoleEnt := ecs.Entity(req.Console)
	console, ok := ecs.Get(w, consoleEnt, component.RadarConsoleComponent.Kind())
	if !ok {
		cs.Logger.Warnf("console: request for %s which is not a console", consoleEnt)
		return
	}
	shuttle := ecs.Entity(console.Grid)
	if !ecs.Has(w, shuttle, component.ShuttleComponent.Kind()) {
		return
	}

	if !HasAutopilotServer(w, shuttle) {
		popup(w, actor, "No autopilot server")
		return
	}
	if ap, ok := ecs.Get(w, shuttle, component.AutopilotComponent.Kind()); ok && ap.Enabled {
		return
	}

	if target := ecs.Entity(console.TargetEntity); console.TargetEntity != 0 && ecs.Has(w, target, component.PhysicsBodyComponent.Kind()) {
		name := console.TargetEntityName
		if name == "" {
			name = unknownTargetName
		}
		cs.engage(w, actor, shuttle, component.WorldCoordinate{Frame: console.TargetEntity}, name)
		return
	}
	if console.Target != nil {
		cs.engage(w, actor, shuttle, component.WorldCoordinate{Position: *console.Target}, manualDestinationName)
		return
	}
	popup(w, actor, "No autopilot target")
}

func (cs *ShuttleConsoleSystem) engage(w *ecs.World, actor, shuttle ecs.Entity, target component.WorldCoordinate, name string) {
	if cs.Autopilot == nil || !cs.Autopilot.Enable(w, shuttle, target, name) {
		return
	}
	popup(w, actor, "Autopilot enabled: "+name)
}

// HasAutopilotServer reports whether an anchored, powered server sits on
// grid. A server without a Power component counts as powered.
func HasAutopilotServer(w *ecs.World, grid ecs.Entity) bool {
	found := false
	ecs.ForEach(w, component.AutopilotServerComponent.Kind(), func(e ecs.Entity, server *component.AutopilotServer) {
		if found || ecs.Entity(server.Grid) != grid || !server.Anchored {
			return
		}
		if power, ok := ecs.Get(w, e, component.PowerComponent.Kind()); ok && !power.Powered {
			return
		}
		found = true
	})
	return found
}
