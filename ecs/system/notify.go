package system

import (
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/log"
)

// AutopilotEventType is the ecs.Event type carrying an AutopilotEvent.
const AutopilotEventType = "autopilot"

type NotifyKind string

const (
	NotifyEngaged  NotifyKind = "engaged"
	NotifyDisabled NotifyKind = "disabled"
	NotifyArrived  NotifyKind = "arrived"
)

// AutopilotEvent marks one navigation lifecycle transition of a vehicle.
type AutopilotEvent struct {
	Vehicle ecs.Entity
	Kind    NotifyKind
	Message string
}

// Notifier delivers lifecycle messages about a vehicle.
type Notifier interface {
	Notify(w *ecs.World, vehicle ecs.Entity, kind NotifyKind, message string)
}

// OccupantNotifier appends the message to every occupant aboard the
// vehicle and queues an AutopilotEvent on the world.
type OccupantNotifier struct {
	Logger *log.Logger
}

func (n OccupantNotifier) Notify(w *ecs.World, vehicle ecs.Entity, kind NotifyKind, message string) {
	if w == nil {
		return
	}
	delivered := 0
	ecs.ForEach(w, component.OccupantComponent.Kind(), func(_ ecs.Entity, occ *component.Occupant) {
		if ecs.Entity(occ.Grid) != vehicle {
			return
		}
		occ.Messages = append(occ.Messages, message)
		delivered++
	})
	w.Events().Push(ecs.Event{
		Type: AutopilotEventType,
		Data: AutopilotEvent{Vehicle: vehicle, Kind: kind, Message: message},
	})
	n.Logger.Debug("autopilot: notify",
		"entity", vehicle.String(),
		"kind", string(kind),
		"message", message,
		"occupants", delivered)
}

// popup shows a notice to a single actor, mirroring a console popup.
func popup(w *ecs.World, actor ecs.Entity, message string) {
	if occ, ok := ecs.Get(w, actor, component.OccupantComponent.Kind()); ok {
		occ.Messages = append(occ.Messages, message)
	}
}
