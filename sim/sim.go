// Package sim wires a scenario's world to its systems and advances it in
// fixed steps.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/entity"
	"github.com/milk9111/autopilot/ecs/system"
	"github.com/milk9111/autopilot/log"
	"github.com/milk9111/autopilot/prefabs"
)

const DefaultDt = 1.0 / 60.0

var ErrNoShuttle = errors.New("sim: scenario has no shuttle")

type Options struct {
	Logger   *log.Logger
	Recorder system.FrameRecorder
	// Tuning overrides autopilot.yaml.
	Tuning *prefabs.AutopilotSpec
	// LoadShuttle overrides how shuttle prefabs are read.
	LoadShuttle func(name string) (*prefabs.ShuttleSpec, error)
}

type Simulation struct {
	World     *ecs.World
	Scenario  *entity.Scenario
	Physics   *system.PhysicsSystem
	Autopilot *system.AutopilotSystem
	Consoles  *system.ShuttleConsoleSystem
	Script    *system.ScenarioScriptSystem
	Telemetry *system.TelemetrySystem

	logger    *log.Logger
	scheduler *ecs.Scheduler
	reloads   chan string
	watcher   *prefabs.Watcher
	tick      int
	elapsed   float64
	dt        float64
}

// Load builds the named scenario from prefabs/scenarios.
func Load(name string, opts Options) (*Simulation, error) {
	spec, err := prefabs.LoadScenarioSpec(name)
	if err != nil {
		return nil, err
	}
	return New(spec, opts)
}

// New builds the world for spec, creates bodies and issues the scenario's
// initial autopilot commands.
func New(spec *prefabs.ScenarioSpec, opts Options) (*Simulation, error) {
	tuning := opts.Tuning
	if tuning == nil {
		t, err := prefabs.LoadAutopilotSpec()
		if err != nil {
			return nil, err
		}
		tuning = t
	}

	w := ecs.NewWorld()
	sc, err := entity.BuildScenario(w, spec, opts.LoadShuttle)
	if err != nil {
		return nil, err
	}
	if len(sc.Shuttles) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoShuttle, spec.Name)
	}

	logger := opts.Logger.With("scenario", spec.Name)
	physics := system.NewPhysicsSystem()
	autopilot := system.NewAutopilotSystem(physics, system.OccupantNotifier{Logger: logger}, logger)
	autopilot.Tuning = tuningFromSpec(*tuning)

	s := &Simulation{
		World:     w,
		Scenario:  sc,
		Physics:   physics,
		Autopilot: autopilot,
		Consoles:  system.NewShuttleConsoleSystem(autopilot, logger),
		Telemetry: system.NewTelemetrySystem(opts.Recorder, logger),
		logger:    logger,
		reloads:   make(chan string, 16),
		dt:        spec.Dt,
	}
	if s.dt <= 0 {
		s.dt = DefaultDt
	}
	autopilot.SetStep(s.dt)
	if spec.Script != "" {
		script, err := system.NewScenarioScriptSystem(spec.Script, autopilot, logger)
		if err != nil {
			return nil, err
		}
		s.Script = script
	}

	s.scheduler = ecs.NewScheduler()
	if s.Script != nil {
		s.scheduler.Add(s.Script)
	}
	s.scheduler.Add(s.Consoles)
	s.scheduler.Add(s.Autopilot)
	s.scheduler.Add(s.Physics)
	s.scheduler.Add(s.Telemetry)

	physics.Sync(w)
	for _, en := range sc.Engagements {
		if !autopilot.Enable(w, en.Shuttle, en.Target, en.Label) {
			logger.Warnf("sim: could not engage %s toward %s", en.Shuttle, en.Label)
		}
	}
	logger.Info("sim: scenario ready", "shuttles", len(sc.Shuttles), "dt", s.dt)
	return s, nil
}

func tuningFromSpec(spec prefabs.AutopilotSpec) system.AutopilotTuning {
	return system.AutopilotTuning{
		ArrivalDistance:           spec.ArrivalDistance,
		SlowdownDistance:          spec.SlowdownDistance,
		ScanRange:                 spec.ScanRange,
		ObstacleAvoidanceDistance: spec.ObstacleAvoidanceDistance,
		SpeedMultiplier:           spec.SpeedMultiplier,
	}
}

func (s *Simulation) Dt() float64 { return s.dt }

func (s *Simulation) Tick() int { return s.tick }

func (s *Simulation) Elapsed() float64 { return s.elapsed }

// Destroy removes e from the world. Shuttles lose their autopilot first.
func (s *Simulation) Destroy(e ecs.Entity) bool {
	return s.Autopilot.DestroyVehicle(s.World, e)
}

// Step applies pending reloads and runs every system once.
func (s *Simulation) Step(dt float64) {
	s.drainReloads()
	s.scheduler.Update(s.World, dt)
	s.tick++
	s.elapsed += dt
}

// Run steps the scenario dt at a time until ticks steps have run or ctx is
// done. With untilIdle it also stops once every autopilot that engaged
// during the run has disengaged again.
func (s *Simulation) Run(ctx context.Context, ticks int, untilIdle bool) error {
	engaged := false
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.AnyEngaged() {
			engaged = true
		}
		s.Step(s.dt)
		if !untilIdle {
			continue
		}
		if s.AnyEngaged() {
			engaged = true
		} else if engaged {
			return nil
		}
	}
	return nil
}

// AnyEngaged reports whether some shuttle is under autopilot.
func (s *Simulation) AnyEngaged() bool {
	for _, e := range s.Scenario.Shuttles {
		if s.Autopilot.QueryState(s.World, e).Enabled {
			return true
		}
	}
	return false
}

// ApplyTuning pushes new thresholds into every autopilot. Targets and
// engagement state are untouched.
func (s *Simulation) ApplyTuning(spec prefabs.AutopilotSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	s.Autopilot.SetTuning(s.World, tuningFromSpec(spec))
	s.logger.Info("sim: autopilot tuning applied",
		"arrival", spec.ArrivalDistance,
		"slowdown", spec.SlowdownDistance,
		"speed", spec.SpeedMultiplier)
	return nil
}

func (s *Simulation) ReloadTuning() error {
	spec, err := prefabs.LoadAutopilotSpec()
	if err != nil {
		return err
	}
	return s.ApplyTuning(*spec)
}

// Watch forwards prefab edits under dirs to the simulation. Reloads are
// applied at the start of the next Step, on the caller's goroutine.
func (s *Simulation) Watch(ctx context.Context, dirs ...string) error {
	if s.watcher != nil {
		return nil
	}
	if len(dirs) == 0 {
		dirs = []string{prefabs.DiskRoot}
	}
	watcher, err := prefabs.NewWatcher(dirs...)
	if err != nil {
		return fmt.Errorf("sim: watch %v: %w", dirs, err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case name, ok := <-watcher.Events:
				if !ok {
					return
				}
				select {
				case s.reloads <- name:
				default:
					s.logger.Warnf("sim: reload queue full, dropping %s", name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warnf("sim: watcher: %v", err)
			}
		}
	}()
	return nil
}

// NotifyChanged queues a prefab path as if the watcher had reported it.
func (s *Simulation) NotifyChanged(path string) {
	select {
	case s.reloads <- path:
	default:
	}
}

func (s *Simulation) drainReloads() {
	for {
		select {
		case name := <-s.reloads:
			if !prefabs.IsTuningFile(name) {
				s.logger.Debug("sim: ignoring prefab change", "file", name)
				continue
			}
			if err := s.ReloadTuning(); err != nil {
				s.logger.Warnf("sim: reload %s: %v", name, err)
			}
		default:
			return
		}
	}
}

func (s *Simulation) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
