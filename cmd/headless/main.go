package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/log"
	"github.com/milk9111/autopilot/prefabs"
	"github.com/milk9111/autopilot/sim"
	"github.com/milk9111/autopilot/telemetry"
)

func main() {
	scenario := flag.String("scenario", "open_space", "scenario name in prefabs/scenarios (basename, .yaml optional)")
	ticks := flag.Int("ticks", 0, "maximum ticks to run (0 uses the scenario's tick count)")
	untilIdle := flag.Bool("until-idle", true, "stop once every engaged autopilot has disengaged")
	trace := flag.String("trace", "", "write a zstd-compressed telemetry trace to this path")
	level := flag.String("log-level", "info", "log level: debug, info, warn or error")
	logDir := flag.String("log-dir", "", "directory for autopilot.slog (defaults to the user config dir)")
	watch := flag.Bool("watch", false, "reload autopilot.yaml from prefabs/ while running")
	list := flag.Bool("list", false, "list the embedded scenarios and exit")
	flag.Parse()

	if *list {
		for _, name := range prefabs.Scenarios() {
			fmt.Println(name)
		}
		return
	}

	if err := run(*scenario, *ticks, *untilIdle, *trace, *level, *logDir, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "headless: %v\n", err)
		os.Exit(1)
	}
}

func run(scenario string, ticks int, untilIdle bool, trace, level, logDir string, watch bool) error {
	logger := log.New(level, logDir)

	spec, err := prefabs.LoadScenarioSpec(scenario)
	if err != nil {
		return err
	}

	opts := sim.Options{Logger: logger}
	var rec *telemetry.Recorder
	if trace != "" {
		dt := spec.Dt
		if dt <= 0 {
			dt = sim.DefaultDt
		}
		rec, err = telemetry.Create(trace, spec.Name, dt)
		if err != nil {
			return err
		}
		opts.Recorder = rec
	}

	s, err := sim.New(spec, opts)
	if err != nil {
		if rec != nil {
			_ = rec.Close()
		}
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if watch {
		if err := s.Watch(ctx); err != nil {
			logger.Warnf("headless: %v", err)
		}
	}

	if ticks <= 0 {
		ticks = spec.Ticks
	}
	if ticks <= 0 {
		ticks = 3600
	}

	runErr := s.Run(ctx, ticks, untilIdle)
	if rec != nil {
		if err := rec.Close(); err != nil {
			logger.Warnf("headless: close trace: %v", err)
		}
	}
	printSummary(s, rec)
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

func printSummary(s *sim.Simulation, rec *telemetry.Recorder) {
	fmt.Printf("scenario %s: %d ticks, %.2fs simulated\n", s.Scenario.Spec.Name, s.Tick(), s.Elapsed())
	if rec != nil {
		h := rec.Header()
		fmt.Printf("trace %s: %d frames\n", h.RunID, rec.Frames())
	}

	for _, e := range s.Scenario.Shuttles {
		name := e.String()
		if n, ok := ecs.Get(s.World, e, component.NameComponent.Kind()); ok {
			name = n.Value
		}
		tr, _ := ecs.Get(s.World, e, component.TransformComponent.Kind())
		state := s.Autopilot.QueryState(s.World, e)
		fmt.Printf("  %-12s pos (%7.2f, %7.2f) heading %6.3f server=%v autopilot=%v\n", name, tr.X, tr.Y, tr.Rotation, state.HasServer, state.Enabled)
	}

	ecs.ForEach(s.World, component.OccupantComponent.Kind(), func(_ ecs.Entity, occ *component.Occupant) {
		if len(occ.Messages) == 0 {
			return
		}
		fmt.Printf("  %s heard:\n    %s\n", occ.Name, strings.Join(occ.Messages, "\n    "))
	})
}
