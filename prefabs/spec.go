package prefabs

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

type Vec2Spec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// AutopilotSpec holds the navigation thresholds, in meters.
type AutopilotSpec struct {
	ArrivalDistance           float64 `yaml:"arrival_distance"`
	SlowdownDistance          float64 `yaml:"slowdown_distance"`
	ScanRange                 float64 `yaml:"scan_range"`
	ObstacleAvoidanceDistance float64 `yaml:"obstacle_avoidance_distance"`
	SpeedMultiplier           float64 `yaml:"speed_multiplier"`
}

func (s AutopilotSpec) Validate() error {
	if s.ArrivalDistance <= 0 {
		return fmt.Errorf("%w: arrival_distance must be positive", ErrInvalidSpec)
	}
	if s.SlowdownDistance < s.ArrivalDistance {
		return fmt.Errorf("%w: slowdown_distance %.2f below arrival_distance %.2f", ErrInvalidSpec, s.SlowdownDistance, s.ArrivalDistance)
	}
	if s.ScanRange <= 0 || s.ObstacleAvoidanceDistance <= 0 {
		return fmt.Errorf("%w: scan_range and obstacle_avoidance_distance must be positive", ErrInvalidSpec)
	}
	if s.SpeedMultiplier <= 0 || s.SpeedMultiplier > 1 {
		return fmt.Errorf("%w: speed_multiplier %.2f outside (0, 1]", ErrInvalidSpec, s.SpeedMultiplier)
	}
	return nil
}

func LoadAutopilotSpec() (*AutopilotSpec, error) {
	spec, err := LoadSpec[AutopilotSpec]("autopilot.yaml")
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: autopilot.yaml: %w", err)
	}
	return &spec, nil
}

// ThrustSpec is the linear thrust of each thruster group, in newtons.
type ThrustSpec struct {
	North float64 `yaml:"north"`
	East  float64 `yaml:"east"`
	South float64 `yaml:"south"`
	West  float64 `yaml:"west"`
}

type ShuttleSpec struct {
	Name                  string     `yaml:"name"`
	Radius                float64    `yaml:"radius"`
	Width                 float64    `yaml:"width"`
	Height                float64    `yaml:"height"`
	Mass                  float64    `yaml:"mass"`
	MaxLinearVelocity     float64    `yaml:"max_linear_velocity"`
	MaxAngularVelocity    float64    `yaml:"max_angular_velocity"`
	AngularThrust         float64    `yaml:"angular_thrust"`
	LinearThrust          ThrustSpec `yaml:"linear_thrust"`
	BrakeCoefficient      float64    `yaml:"brake_coefficient"`
	AnchorDampingStrength float64    `yaml:"anchor_damping_strength"`
	LinearDamping         float64    `yaml:"linear_damping"`
	DampingModifier       float64    `yaml:"damping_modifier"`
}

func (s ShuttleSpec) Validate() error {
	if s.Mass <= 0 {
		return fmt.Errorf("%w: shuttle %q mass must be positive", ErrInvalidSpec, s.Name)
	}
	if s.Radius <= 0 && (s.Width <= 0 || s.Height <= 0) {
		return fmt.Errorf("%w: shuttle %q needs a radius or a width and height", ErrInvalidSpec, s.Name)
	}
	if s.MaxLinearVelocity <= 0 || s.MaxAngularVelocity <= 0 {
		return fmt.Errorf("%w: shuttle %q velocity limits must be positive", ErrInvalidSpec, s.Name)
	}
	return nil
}

func LoadShuttleSpec(name string) (*ShuttleSpec, error) {
	if name == "" {
		name = "shuttle.yaml"
	}
	spec, err := LoadSpec[ShuttleSpec](name)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: %s: %w", name, err)
	}
	return &spec, nil
}

// ServerSpec installs an autopilot server on a shuttle. A nil Powered
// leaves the server without a power receiver.
type ServerSpec struct {
	Anchored bool  `yaml:"anchored"`
	Powered  *bool `yaml:"powered"`
}

// ConsoleSpec mounts a radar console on a shuttle.
type ConsoleSpec struct {
	Target       *Vec2Spec `yaml:"target"`
	TargetEntity string    `yaml:"target_entity"`
	TargetName   string    `yaml:"target_name"`
}

type ShuttleInstanceSpec struct {
	Name      string       `yaml:"name"`
	Prefab    string       `yaml:"prefab"`
	Position  Vec2Spec     `yaml:"position"`
	Rotation  float64      `yaml:"rotation"`
	Velocity  Vec2Spec     `yaml:"velocity"`
	Steering  *bool        `yaml:"steering"`
	Server    *ServerSpec  `yaml:"server"`
	Console   *ConsoleSpec `yaml:"console"`
	Occupants []string     `yaml:"occupants"`
}

type ObstacleSpec struct {
	Name     string   `yaml:"name"`
	Position Vec2Spec `yaml:"position"`
	Velocity Vec2Spec `yaml:"velocity"`
	Radius   float64  `yaml:"radius"`
	Width    float64  `yaml:"width"`
	Height   float64  `yaml:"height"`
	Mass     float64  `yaml:"mass"`
	Static   bool     `yaml:"static"`
	// Debris is not a grid and is ignored by avoidance.
	Debris bool `yaml:"debris"`
}

// TargetSpec is a destination given either in map coordinates or relative
// to a named entity.
type TargetSpec struct {
	Position *Vec2Spec `yaml:"position"`
	Frame    string    `yaml:"frame"`
	Offset   Vec2Spec  `yaml:"offset"`
	Label    string    `yaml:"label"`
}

// EngageSpec enables a shuttle's autopilot when the scenario starts.
type EngageSpec struct {
	Shuttle string     `yaml:"shuttle"`
	Target  TargetSpec `yaml:"target"`
}

type ScenarioSpec struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Ticks       int                   `yaml:"ticks"`
	Dt          float64               `yaml:"dt"`
	Shuttles    []ShuttleInstanceSpec `yaml:"shuttles"`
	Obstacles   []ObstacleSpec        `yaml:"obstacles"`
	Engage      []EngageSpec          `yaml:"engage"`
	Script      string                `yaml:"script"`
}

func (s ScenarioSpec) Validate() error {
	names := map[string]bool{}
	add := func(name string) error {
		if name == "" {
			return fmt.Errorf("%w: scenario %q has an unnamed entity", ErrInvalidSpec, s.Name)
		}
		if names[name] {
			return fmt.Errorf("%w: scenario %q: duplicate name %q", ErrInvalidSpec, s.Name, name)
		}
		names[name] = true
		return nil
	}
	for _, sh := range s.Shuttles {
		if err := add(sh.Name); err != nil {
			return err
		}
	}
	for _, ob := range s.Obstacles {
		if err := add(ob.Name); err != nil {
			return err
		}
	}
	for _, en := range s.Engage {
		if !names[en.Shuttle] {
			return fmt.Errorf("%w: scenario %q engages unknown shuttle %q", ErrInvalidSpec, s.Name, en.Shuttle)
		}
		if en.Target.Frame != "" && !names[en.Target.Frame] {
			return fmt.Errorf("%w: scenario %q targets unknown frame %q", ErrInvalidSpec, s.Name, en.Target.Frame)
		}
	}
	if s.Dt < 0 || math.IsNaN(s.Dt) {
		return fmt.Errorf("%w: scenario %q dt must not be negative", ErrInvalidSpec, s.Name)
	}
	return nil
}

// LoadScenarioSpec loads scenarios/<name>.yaml.
func LoadScenarioSpec(name string) (*ScenarioSpec, error) {
	path := cleanScenarioPath(name)
	spec, err := LoadSpec[ScenarioSpec](path)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: %s: %w", path, err)
	}
	return &spec, nil
}
