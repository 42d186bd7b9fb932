package entity

import (
	"fmt"

	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/prefabs"
)

// BuildShuttle spawns a steerable grid from a shuttle prefab placed as inst.
// Installed servers, consoles and occupants are separate entities and are
// built by BuildScenario.
func BuildShuttle(w *ecs.World, spec prefabs.ShuttleSpec, inst prefabs.ShuttleInstanceSpec) (ecs.Entity, error) {
	if err := spec.Validate(); err != nil {
		return 0, fmt.Errorf("shuttle %s: %w", inst.Name, err)
	}

	e := ecs.CreateEntity(w)

	steering := true
	if inst.Steering != nil {
		steering = *inst.Steering
	}
	anchor := spec.AnchorDampingStrength
	if anchor == 0 {
		anchor = 2.5
	}
	shuttle := &component.Shuttle{
		Enabled:               steering,
		BaseMaxLinearVelocity: spec.MaxLinearVelocity,
		MaxAngularVelocity:    spec.MaxAngularVelocity,
		AngularThrust:         spec.AngularThrust,
		BrakeCoefficient:      spec.BrakeCoefficient,
		AnchorDampingStrength: anchor,
		LinearDamping:         spec.LinearDamping,
		BodyModifier:          1,
		DampingModifier:       spec.DampingModifier,
	}
	shuttle.LinearThrust[component.DirectionNorth] = spec.LinearThrust.North
	shuttle.LinearThrust[component.DirectionEast] = spec.LinearThrust.East
	shuttle.LinearThrust[component.DirectionSouth] = spec.LinearThrust.South
	shuttle.LinearThrust[component.DirectionWest] = spec.LinearThrust.West

	adds := []func() error{
		func() error {
			return ecs.Add(w, e, component.NameComponent.Kind(), &component.Name{Value: inst.Name})
		},
		func() error {
			return ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{
				X:        inst.Position.X,
				Y:        inst.Position.Y,
				Rotation: inst.Rotation,
			})
		},
		func() error {
			return ecs.Add(w, e, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{
				Radius:    spec.Radius,
				Width:     spec.Width,
				Height:    spec.Height,
				Mass:      spec.Mass,
				VelocityX: inst.Velocity.X,
				VelocityY: inst.Velocity.Y,
			})
		},
		func() error { return ecs.Add(w, e, component.ShuttleComponent.Kind(), shuttle) },
		func() error { return ecs.Add(w, e, component.GridTagComponent.Kind(), &component.GridTag{}) },
	}
	for _, add := range adds {
		if err := add(); err != nil {
			ecs.DestroyEntity(w, e)
			return 0, fmt.Errorf("shuttle %s: %w", inst.Name, err)
		}
	}
	return e, nil
}

// BuildObstacle spawns a passive body. Debris is not tagged as a grid.
func BuildObstacle(w *ecs.World, spec prefabs.ObstacleSpec) (ecs.Entity, error) {
	e := ecs.CreateEntity(w)

	if err := ecs.Add(w, e, component.NameComponent.Kind(), &component.Name{Value: spec.Name}); err != nil {
		return 0, fmt.Errorf("obstacle %s: add name: %w", spec.Name, err)
	}
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: spec.Position.X, Y: spec.Position.Y}); err != nil {
		return 0, fmt.Errorf("obstacle %s: add transform: %w", spec.Name, err)
	}
	body := &component.PhysicsBody{
		Radius:    spec.Radius,
		Width:     spec.Width,
		Height:    spec.Height,
		Mass:      spec.Mass,
		Static:    spec.Static,
		VelocityX: spec.Velocity.X,
		VelocityY: spec.Velocity.Y,
	}
	if err := ecs.Add(w, e, component.PhysicsBodyComponent.Kind(), body); err != nil {
		return 0, fmt.Errorf("obstacle %s: add physics body: %w", spec.Name, err)
	}
	if !spec.Debris {
		if err := ecs.Add(w, e, component.GridTagComponent.Kind(), &component.GridTag{}); err != nil {
			return 0, fmt.Errorf("obstacle %s: add grid tag: %w", spec.Name, err)
		}
	}
	return e, nil
}
