package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/autopilot/log"
	"github.com/milk9111/autopilot/sim"
)

func main() {
	scenario := flag.String("scenario", "console", "scenario name in prefabs/scenarios (basename, .yaml optional)")
	level := flag.String("log-level", "info", "log level: debug, info, warn or error")
	logDir := flag.String("log-dir", "", "directory for autopilot.slog (defaults to the user config dir)")
	watch := flag.Bool("watch", true, "reload autopilot.yaml from prefabs/ while running")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	flag.Parse()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}

	logger := log.New(*level, *logDir)
	s, err := sim.Load(*scenario, sim.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	game := NewGame(s, logger)
	if *watch {
		if err := s.Watch(game.ctx); err != nil {
			logger.Warnf("viewer: %v", err)
		}
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("autopilot - " + s.Scenario.Spec.Name)
	ebiten.SetTPS(int(1/s.Dt() + 0.5))

	err = ebiten.RunGame(game)
	game.cancel()
	if err != nil {
		logger.Errorf("viewer: %v", err)
		os.Exit(1)
	}
}
