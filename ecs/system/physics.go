package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
)

const physicsIterations = 20

// NearbyBody is one rigid body reported by a spatial query.
type NearbyBody struct {
	Entity      ecs.Entity
	IsRigidBody bool
	IsGrid      bool
	Position    cp.Vector
	Velocity    cp.Vector
}

// SpatialQuery finds bodies around a point.
type SpatialQuery interface {
	QueryNearby(pos cp.Vector, radius float64) []NearbyBody
}

// PhysicsSystem owns the Chipmunk space. Bodies are created lazily for every
// entity with a PhysicsBody and a Transform, and removed when either goes
// away.
type PhysicsSystem struct {
	space    *cp.Space
	entities map[ecs.Entity]*bodyInfo
	shapes   map[*cp.Shape]ecs.Entity
}

type bodyInfo struct {
	body   *cp.Body
	shapes []*cp.Shape
	grid   bool

	// drag is the per-second exponential velocity decay applied by the
	// body's velocity integrator.
	drag float64
}

func NewPhysicsSystem() *PhysicsSystem {
	return &PhysicsSystem{
		space:    newSpace(),
		entities: make(map[ecs.Entity]*bodyInfo),
		shapes:   make(map[*cp.Shape]ecs.Entity),
	}
}

func newSpace() *cp.Space {
	space := cp.NewSpace()
	space.Iterations = physicsIterations
	space.SetGravity(cp.Vector{})
	return space
}

func (ps *PhysicsSystem) Space() *cp.Space {
	if ps == nil {
		return nil
	}
	return ps.space
}

func (ps *PhysicsSystem) Update(w *ecs.World, dt float64) {
	if ps == nil || w == nil {
		return
	}
	if ps.space == nil {
		ps.space = newSpace()
	}

	ps.Sync(w)
	if dt > 0 {
		ps.space.Step(dt)
	}
	ps.syncTransforms(w)
}

// Sync creates bodies for new physics entities, drops bodies of removed
// ones and refreshes per-body flags. It runs at the start of every Update
// and may be called directly after spawning entities so other systems can
// read their bodies before the first step.
func (ps *PhysicsSystem) Sync(w *ecs.World) {
	if ps == nil || w == nil || ps.space == nil {
		return
	}
	if ps.entities == nil {
		ps.entities = make(map[ecs.Entity]*bodyInfo)
	}
	if ps.shapes == nil {
		ps.shapes = make(map[*cp.Shape]ecs.Entity)
	}

	ps.cleanupEntities(w)

	ecs.ForEach2(w, component.PhysicsBodyComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		info := ps.entities[e]
		if info == nil {
			info = ps.createBodyInfo(e, transform, bodyComp)
			if info == nil {
				return
			}
			ps.entities[e] = info
		}
		bodyComp.Body = info.body
		if len(info.shapes) > 0 {
			bodyComp.Shape = info.shapes[0]
		}

		info.grid = ecs.Has(w, e, component.GridTagComponent.Kind())
		info.drag = 0
		if shuttle, ok := ecs.Get(w, e, component.ShuttleComponent.Kind()); ok {
			info.drag = shuttle.LinearDamping * shuttle.DampingModifier
		}
	})
}

func (ps *PhysicsSystem) createBodyInfo(e ecs.Entity, transform *component.Transform, bodyComp *component.PhysicsBody) *bodyInfo {
	width := bodyComp.Width
	height := bodyComp.Height
	radius := bodyComp.Radius
	if radius <= 0 && (width <= 0 || height <= 0) {
		radius = 1
	}

	info := &bodyInfo{}
	center := cp.Vector{X: transform.X, Y: transform.Y}

	var body *cp.Body
	if bodyComp.Static {
		body = cp.NewStaticBody()
	} else {
		mass := bodyComp.Mass
		if mass <= 0 {
			mass = 1
		}
		moment := bodyComp.Moment
		if moment <= 0 {
			if radius > 0 {
				moment = cp.MomentForCircle(mass, 0, radius, cp.Vector{})
			} else {
				moment = cp.MomentForBox(mass, width, height)
			}
		}
		bodyComp.Mass = mass
		bodyComp.Moment = moment
		body = cp.NewBody(mass, moment)
		body.SetVelocity(bodyComp.VelocityX, bodyComp.VelocityY)
		body.SetAngularVelocity(bodyComp.AngularVelocity)
		body.SetVelocityUpdateFunc(func(b *cp.Body, gravity cp.Vector, damping, dt float64) {
			if info.drag > 0 {
				damping *= math.Exp(-info.drag * dt)
			}
			cp.BodyUpdateVelocity(b, gravity, damping, dt)
		})
	}
	body.SetPosition(center)
	body.SetAngle(transform.Rotation)
	body.UserData = e

	var shape *cp.Shape
	if radius > 0 {
		shape = cp.NewCircle(body, radius, cp.Vector{})
	} else {
		shape = cp.NewBox(body, width, height, 0)
	}
	shape.SetFriction(bodyComp.Friction)
	shape.SetElasticity(bodyComp.Elasticity)
	shape.UserData = e

	ps.space.AddBody(body)
	ps.space.AddShape(shape)

	info.body = body
	info.shapes = []*cp.Shape{shape}
	ps.shapes[shape] = e
	return info
}

func (ps *PhysicsSystem) syncTransforms(w *ecs.World) {
	ecs.ForEach2(w, component.PhysicsBodyComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		if bodyComp.Body == nil || bodyComp.Static {
			return
		}
		pos := bodyComp.Body.Position()
		transform.X = pos.X
		transform.Y = pos.Y
		transform.Rotation = bodyComp.Body.Angle()
	})
}

func (ps *PhysicsSystem) cleanupEntities(w *ecs.World) {
	for e, info := range ps.entities {
		if ecs.Has(w, e, component.PhysicsBodyComponent.Kind()) && ecs.Has(w, e, component.TransformComponent.Kind()) {
			continue
		}
		for _, shape := range info.shapes {
			if shape == nil {
				continue
			}
			ps.space.RemoveShape(shape)
			delete(ps.shapes, shape)
		}
		if info.body != nil {
			ps.space.RemoveBody(info.body)
		}
		delete(ps.entities, e)
	}
}

// QueryNearby returns every body with a shape within radius of pos. Bodies
// with several shapes are reported once.
func (ps *PhysicsSystem) QueryNearby(pos cp.Vector, radius float64) []NearbyBody {
	if ps == nil || ps.space == nil || radius <= 0 {
		return nil
	}
	seen := make(map[ecs.Entity]struct{})
	var out []NearbyBody
	ps.space.BBQuery(cp.NewBBForCircle(pos, radius), cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
		e, ok := ps.shapes[shape]
		if !ok {
			return
		}
		if _, dup := seen[e]; dup {
			return
		}
		// the BB covers the square around the circle
		if shape.PointQuery(pos).Distance > radius {
			return
		}
		info := ps.entities[e]
		if info == nil || info.body == nil {
			return
		}
		seen[e] = struct{}{}
		out = append(out, NearbyBody{
			Entity:      e,
			IsRigidBody: true,
			IsGrid:      info.grid,
			Position:    info.body.Position(),
			Velocity:    info.body.Velocity(),
		})
	}, nil)
	return out
}

// BodyOf returns the live body of e, if the physics system created one.
func (ps *PhysicsSystem) BodyOf(e ecs.Entity) (*cp.Body, bool) {
	if ps == nil {
		return nil, false
	}
	info := ps.entities[e]
	if info == nil || info.body == nil {
		return nil, false
	}
	return info.body, true
}
