package entity

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/prefabs"
)

// Engagement is an autopilot command to issue once bodies exist.
type Engagement struct {
	Shuttle ecs.Entity
	Target  component.WorldCoordinate
	Label   string
}

// Scenario is a built scenario: its named entities and pending commands.
type Scenario struct {
	Spec        *prefabs.ScenarioSpec
	Entities    map[string]ecs.Entity
	Shuttles    []ecs.Entity
	Engagements []Engagement
}

// BuildScenario spawns every shuttle, obstacle, server, console and
// occupant in spec. Shuttle prefabs are loaded through loadShuttle so tests
// can supply their own.
func BuildScenario(w *ecs.World, spec *prefabs.ScenarioSpec, loadShuttle func(name string) (*prefabs.ShuttleSpec, error)) (*Scenario, error) {
	if spec == nil {
		return nil, fmt.Errorf("scenario: nil spec")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if loadShuttle == nil {
		loadShuttle = prefabs.LoadShuttleSpec
	}

	sc := &Scenario{Spec: spec, Entities: make(map[string]ecs.Entity)}

	for _, inst := range spec.Shuttles {
		shuttleSpec, err := loadShuttle(inst.Prefab)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", spec.Name, err)
		}
		e, err := BuildShuttle(w, *shuttleSpec, inst)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", spec.Name, err)
		}
		sc.Entities[inst.Name] = e
		sc.Shuttles = append(sc.Shuttles, e)
	}
	for _, ob := range spec.Obstacles {
		e, err := BuildObstacle(w, ob)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", spec.Name, err)
		}
		sc.Entities[ob.Name] = e
	}

	// Fittings reference entities by name, so they go in once every grid
	// exists.
	for _, inst := range spec.Shuttles {
		grid := sc.Entities[inst.Name]
		if err := buildFittings(w, sc, grid, inst); err != nil {
			return nil, fmt.Errorf("scenario %s: shuttle %s: %w", spec.Name, inst.Name, err)
		}
	}

	for _, en := range spec.Engage {
		target := component.WorldCoordinate{}
		switch {
		case en.Target.Frame != "":
			target.Frame = uint64(sc.Entities[en.Target.Frame])
			target.Position = cp.Vector{X: en.Target.Offset.X, Y: en.Target.Offset.Y}
		case en.Target.Position != nil:
			target.Position = cp.Vector{X: en.Target.Position.X, Y: en.Target.Position.Y}
		default:
			return nil, fmt.Errorf("scenario %s: engage %s: %w: target needs a position or a frame", spec.Name, en.Shuttle, prefabs.ErrInvalidSpec)
		}
		label := en.Target.Label
		if label == "" {
			label = "Manual Destination"
		}
		sc.Engagements = append(sc.Engagements, Engagement{
			Shuttle: sc.Entities[en.Shuttle],
			Target:  target,
			Label:   label,
		})
	}
	return sc, nil
}

func buildFittings(w *ecs.World, sc *Scenario, grid ecs.Entity, inst prefabs.ShuttleInstanceSpec) error {
	if inst.Server != nil {
		server := ecs.CreateEntity(w)
		if err := ecs.Add(w, server, component.AutopilotServerComponent.Kind(), &component.AutopilotServer{
			Grid:     uint64(grid),
			Anchored: inst.Server.Anchored,
		}); err != nil {
			return fmt.Errorf("add autopilot server: %w", err)
		}
		if inst.Server.Powered != nil {
			if err := ecs.Add(w, server, component.PowerComponent.Kind(), &component.Power{Powered: *inst.Server.Powered}); err != nil {
				return fmt.Errorf("add power: %w", err)
			}
		}
	}

	if inst.Console != nil {
		rc := &component.RadarConsole{Grid: uint64(grid)}
		if inst.Console.TargetEntity != "" {
			target, ok := sc.Entities[inst.Console.TargetEntity]
			if !ok {
				return fmt.Errorf("%w: console targets unknown entity %q", prefabs.ErrInvalidSpec, inst.Console.TargetEntity)
			}
			rc.TargetEntity = uint64(target)
			rc.TargetEntityName = inst.Console.TargetName
		}
		if inst.Console.Target != nil {
			rc.Target = &cp.Vector{X: inst.Console.Target.X, Y: inst.Console.Target.Y}
		}
		console := ecs.CreateEntity(w)
		if err := ecs.Add(w, console, component.RadarConsoleComponent.Kind(), rc); err != nil {
			return fmt.Errorf("add radar console: %w", err)
		}
	}

	for _, name := range inst.Occupants {
		occ := ecs.CreateEntity(w)
		if err := ecs.Add(w, occ, component.OccupantComponent.Kind(), &component.Occupant{Name: name, Grid: uint64(grid)}); err != nil {
			return fmt.Errorf("add occupant %s: %w", name, err)
		}
		sc.Entities[name] = occ
	}
	return nil
}
