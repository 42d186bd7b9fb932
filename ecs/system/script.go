package system

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/log"
	"github.com/milk9111/autopilot/prefabs"
)

const scenarioDispatchScript = `
if __phase == "update" {
	update(__engine, __state)
}
`

// ScenarioScriptSystem runs a tengo script once per tick. The script
// defines update(engine, state); state is a map that survives between
// ticks and engine exposes world queries and autopilot commands.
type ScenarioScriptSystem struct {
	Autopilot *AutopilotSystem
	Logger    *log.Logger

	scriptPath string
	compiled   *tengo.Compiled
	stateData  *tengo.Map
	tick       int
	elapsed    float64
	failed     bool
}

func NewScenarioScriptSystem(scriptPath string, autopilot *AutopilotSystem, logger *log.Logger) (*ScenarioScriptSystem, error) {
	src, err := prefabs.LoadScript(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("script: load %s: %w", scriptPath, err)
	}
	return newScenarioScriptSystem(scriptPath, src, autopilot, logger)
}

func newScenarioScriptSystem(scriptPath string, src []byte, autopilot *AutopilotSystem, logger *log.Logger) (*ScenarioScriptSystem, error) {
	script := tengo.NewScript([]byte(string(src) + "\n" + scenarioDispatchScript))
	_ = script.Add("__phase", "")
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__state", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", scriptPath, err)
	}
	return &ScenarioScriptSystem{
		Autopilot:  autopilot,
		Logger:     logger,
		scriptPath: scriptPath,
		compiled:   compiled,
		stateData:  &tengo.Map{Value: map[string]tengo.Object{}},
	}, nil
}

func (ss *ScenarioScriptSystem) Update(w *ecs.World, dt float64) {
	if ss == nil || w == nil || ss.compiled == nil || ss.failed {
		return
	}
	engine := ss.buildEngine(w)
	if err := ss.runPhase("update", engine); err != nil {
		// A broken script stops running instead of logging every tick.
		ss.failed = true
		ss.Logger.Errorf("script: %s tick %d: %v", ss.scriptPath, ss.tick, err)
	}
	ss.tick++
	ss.elapsed += dt
}

// State returns a copy of the script's persistent state.
func (ss *ScenarioScriptSystem) State() map[string]any {
	if ss == nil || ss.stateData == nil {
		return nil
	}
	out, _ := objectToAny(ss.stateData).(map[string]any)
	return out
}

func (ss *ScenarioScriptSystem) runPhase(phase string, engine *tengo.ImmutableMap) error {
	if err := ss.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := ss.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := ss.compiled.Set("__state", ss.stateData); err != nil {
		return err
	}
	return ss.compiled.Run()
}

func (ss *ScenarioScriptSystem) buildEngine(w *ecs.World) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["tick"] = &tengo.UserFunction{Name: "tick", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Int{Value: int64(ss.tick)}, nil
	}}

	values["time"] = &tengo.UserFunction{Name: "time", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: ss.elapsed}, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		ss.Logger.Info("script: "+strings.Join(parts, " "), "script", ss.scriptPath, "tick", ss.tick)
		return tengo.UndefinedValue, nil
	}}

	values["find"] = &tengo.UserFunction{Name: "find", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return &tengo.Int{}, nil
		}
		e, _ := FindByName(w, objectAsString(args[0]))
		return entityObject(e), nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		var p cp.Vector
		if len(args) > 0 {
			if tr, ok := ecs.Get(w, objectAsEntity(args[0]), component.TransformComponent.Kind()); ok {
				p = cp.Vector{X: tr.X, Y: tr.Y}
			}
		}
		return vectorObject(p), nil
	}}

	values["velocity"] = &tengo.UserFunction{Name: "velocity", Value: func(args ...tengo.Object) (tengo.Object, error) {
		var v cp.Vector
		if len(args) > 0 {
			if pb, ok := ecs.Get(w, objectAsEntity(args[0]), component.PhysicsBodyComponent.Kind()); ok && pb.Body != nil {
				v = pb.Body.Velocity()
			}
		}
		return vectorObject(v), nil
	}}

	values["enable"] = &tengo.UserFunction{Name: "enable", Value: func(args ...tengo.Object) (tengo.Object, error) {
		// enable(vehicle, x, y, label)
		if len(args) < 3 {
			return tengo.FalseValue, nil
		}
		x, _ := tengo.ToFloat64(args[1])
		y, _ := tengo.ToFloat64(args[2])
		label := "Scripted Destination"
		if len(args) > 3 {
			label = objectAsString(args[3])
		}
		target := component.WorldCoordinate{Position: cp.Vector{X: x, Y: y}}
		return boolObject(ss.Autopilot.Enable(w, objectAsEntity(args[0]), target, label)), nil
	}}

	values["enable_frame"] = &tengo.UserFunction{Name: "enable_frame", Value: func(args ...tengo.Object) (tengo.Object, error) {
		// enable_frame(vehicle, frame, dx, dy, label)
		if len(args) < 2 {
			return tengo.FalseValue, nil
		}
		var offset cp.Vector
		if len(args) > 3 {
			offset.X, _ = tengo.ToFloat64(args[2])
			offset.Y, _ = tengo.ToFloat64(args[3])
		}
		label := unknownTargetName
		if len(args) > 4 {
			label = objectAsString(args[4])
		}
		target := component.WorldCoordinate{Frame: uint64(objectAsEntity(args[1])), Position: offset}
		return boolObject(ss.Autopilot.Enable(w, objectAsEntity(args[0]), target, label)), nil
	}}

	values["disable"] = &tengo.UserFunction{Name: "disable", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) > 0 {
			ss.Autopilot.Disable(w, objectAsEntity(args[0]))
		}
		return tengo.UndefinedValue, nil
	}}

	values["state"] = &tengo.UserFunction{Name: "state", Value: func(args ...tengo.Object) (tengo.Object, error) {
		var st AutopilotState
		if len(args) > 0 {
			st = ss.Autopilot.QueryState(w, objectAsEntity(args[0]))
		}
		return &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"has_server": boolObject(st.HasServer),
			"enabled":    boolObject(st.Enabled),
		}}, nil
	}}

	values["set_steering"] = &tengo.UserFunction{Name: "set_steering", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 2 {
			return tengo.FalseValue, nil
		}
		shuttle, ok := ecs.Get(w, objectAsEntity(args[0]), component.ShuttleComponent.Kind())
		if !ok {
			return tengo.FalseValue, nil
		}
		shuttle.Enabled = !args[1].IsFalsy()
		return tengo.TrueValue, nil
	}}

	values["request"] = &tengo.UserFunction{Name: "request", Value: func(args ...tengo.Object) (tengo.Object, error) {
		// request(shuttle_or_console, actor)
		if len(args) < 2 {
			return tengo.FalseValue, nil
		}
		console, ok := consoleFor(w, objectAsEntity(args[0]))
		if !ok {
			return tengo.FalseValue, nil
		}
		req := ecs.CreateEntity(w)
		err := ecs.Add(w, req, component.AutopilotRequestComponent.Kind(), &component.AutopilotRequest{
			Console: uint64(console),
			Actor:   uint64(objectAsEntity(args[1])),
		})
		return boolObject(err == nil), nil
	}}

	values["set_console_target"] = &tengo.UserFunction{Name: "set_console_target", Value: func(args ...tengo.Object) (tengo.Object, error) {
		// set_console_target(shuttle_or_console, x, y)
		if len(args) < 3 {
			return tengo.FalseValue, nil
		}
		console, ok := consoleFor(w, objectAsEntity(args[0]))
		if !ok {
			return tengo.FalseValue, nil
		}
		rc, _ := ecs.Get(w, console, component.RadarConsoleComponent.Kind())
		x, _ := tengo.ToFloat64(args[1])
		y, _ := tengo.ToFloat64(args[2])
		rc.Target = &cp.Vector{X: x, Y: y}
		rc.TargetEntity = 0
		rc.TargetEntityName = ""
		return tengo.TrueValue, nil
	}}

	values["destroy"] = &tengo.UserFunction{Name: "destroy", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		return boolObject(ss.Autopilot.DestroyVehicle(w, objectAsEntity(args[0]))), nil
	}}

	values["messages"] = &tengo.UserFunction{Name: "messages", Value: func(args ...tengo.Object) (tengo.Object, error) {
		arr := &tengo.Array{}
		if len(args) < 1 {
			return arr, nil
		}
		if occ, ok := ecs.Get(w, objectAsEntity(args[0]), component.OccupantComponent.Kind()); ok {
			for _, m := range occ.Messages {
				arr.Value = append(arr.Value, &tengo.String{Value: m})
			}
		}
		return arr, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

// FindByName returns the first entity whose Name or Occupant name matches.
func FindByName(w *ecs.World, name string) (ecs.Entity, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}
	var found ecs.Entity
	ecs.ForEach(w, component.NameComponent.Kind(), func(e ecs.Entity, n *component.Name) {
		if found == 0 && n.Value == name {
			found = e
		}
	})
	if found != 0 {
		return found, true
	}
	ecs.ForEach(w, component.OccupantComponent.Kind(), func(e ecs.Entity, occ *component.Occupant) {
		if found == 0 && occ.Name == name {
			found = e
		}
	})
	return found, found != 0
}

// consoleFor accepts either a console entity or a shuttle and returns the
// console mounted on it.
func consoleFor(w *ecs.World, e ecs.Entity) (ecs.Entity, bool) {
	if ecs.Has(w, e, component.RadarConsoleComponent.Kind()) {
		return e, true
	}
	var found ecs.Entity
	ecs.ForEach(w, component.RadarConsoleComponent.Kind(), func(c ecs.Entity, rc *component.RadarConsole) {
		if found == 0 && ecs.Entity(rc.Grid) == e {
			found = c
		}
	})
	return found, found != 0
}

func entityObject(e ecs.Entity) tengo.Object {
	return &tengo.Int{Value: int64(e)}
}

func objectAsEntity(obj tengo.Object) ecs.Entity {
	v, ok := tengo.ToInt64(obj)
	if !ok || v <= 0 {
		return 0
	}
	return ecs.Entity(v)
}

func vectorObject(v cp.Vector) tengo.Object {
	return &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: v.X}, &tengo.Float{Value: v.Y}}}
}

func boolObject(b bool) tengo.Object {
	if b {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}

	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return int(v.Value)
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.ImmutableMap:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.Undefined:
		return nil
	default:
		return v.String()
	}
}
