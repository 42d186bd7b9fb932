package main

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/autopilot/common"
	"github.com/milk9111/autopilot/ecs"
	"github.com/milk9111/autopilot/ecs/component"
	"github.com/milk9111/autopilot/ecs/system"
	"github.com/milk9111/autopilot/log"
	"github.com/milk9111/autopilot/sim"
	"golang.design/x/clipboard"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
)

const (
	baseWidth  = 1280
	baseHeight = 720

	hudWidth     = 280
	defaultScale = 3.0
	minScale     = 0.5
	maxScale     = 20.0
)

type Game struct {
	sim    *sim.Simulation
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc

	ui     *ebitenui.UI
	status *widget.Text
	face   text.Face

	shuttle ecs.Entity
	paused  bool
	scale   float64
	camera  cp.Vector

	clipboardReady bool
}

func NewGame(s *sim.Simulation, logger *log.Logger) *Game {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		sim:    s,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		face:   text.NewGoXFace(basicfont.Face7x13),
		scale:  defaultScale,
	}
	if len(s.Scenario.Shuttles) > 0 {
		g.shuttle = s.Scenario.Shuttles[0]
	}
	if err := clipboard.Init(); err != nil {
		logger.Warnf("viewer: clipboard unavailable: %v", err)
	} else {
		g.clipboardReady = true
	}
	g.ui, g.status = newHUD(g)
	return g
}

func (g *Game) Update() error {
	g.ui.Update()
	g.handleInput()

	if !g.paused {
		g.sim.Step(g.sim.Dt())
	}
	if tr, ok := ecs.Get(g.sim.World, g.shuttle, component.TransformComponent.Kind()); ok {
		g.camera = cp.Vector{X: tr.X, Y: tr.Y}
	}
	g.status.Label = g.statusText()
	return nil
}

func (g *Game) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.paused = !g.paused
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		g.requestAutopilot()
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		g.sim.Autopilot.Disable(g.sim.World, g.shuttle)
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.copyStatus()
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.cycleShuttle()
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		g.scale = common.Clamp(g.scale*1.25, minScale, maxScale)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		g.scale = common.Clamp(g.scale/1.25, minScale, maxScale)
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if x > hudWidth {
			g.setTarget(g.screenToWorld(float64(x), float64(y)))
		}
	}
}

// setTarget points the helm console at p, or engages directly when the
// shuttle has no console.
func (g *Game) setTarget(p cp.Vector) {
	w := g.sim.World
	if rc, ok := g.console(); ok {
		rc.Target = &p
		rc.TargetEntity = 0
		rc.TargetEntityName = ""
		return
	}
	g.sim.Autopilot.Enable(w, g.shuttle, component.WorldCoordinate{Position: p}, "Manual Destination")
}

func (g *Game) requestAutopilot() {
	w := g.sim.World
	consoleEnt, ok := g.consoleEntity()
	if !ok {
		return
	}
	actor := g.pilot()
	if actor == 0 {
		return
	}
	req := ecs.CreateEntity(w)
	if err := ecs.Add(w, req, component.AutopilotRequestComponent.Kind(), &component.AutopilotRequest{
		Console: uint64(consoleEnt),
		Actor:   uint64(actor),
	}); err != nil {
		g.logger.Warnf("viewer: request autopilot: %v", err)
	}
}

func (g *Game) cycleShuttle() {
	shuttles := g.sim.Scenario.Shuttles
	for i, e := range shuttles {
		if e == g.shuttle {
			g.shuttle = shuttles[(i+1)%len(shuttles)]
			return
		}
	}
}

func (g *Game) copyStatus() {
	if !g.clipboardReady {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(g.statusText()))
}

func (g *Game) consoleEntity() (ecs.Entity, bool) {
	var found ecs.Entity
	ecs.ForEach(g.sim.World, component.RadarConsoleComponent.Kind(), func(e ecs.Entity, rc *component.RadarConsole) {
		if found == 0 && ecs.Entity(rc.Grid) == g.shuttle {
			found = e
		}
	})
	return found, found != 0
}

func (g *Game) console() (*component.RadarConsole, bool) {
	e, ok := g.consoleEntity()
	if !ok {
		return nil, false
	}
	return ecs.Get(g.sim.World, e, component.RadarConsoleComponent.Kind())
}

func (g *Game) pilot() ecs.Entity {
	var found ecs.Entity
	ecs.ForEach(g.sim.World, component.OccupantComponent.Kind(), func(e ecs.Entity, occ *component.Occupant) {
		if found == 0 && ecs.Entity(occ.Grid) == g.shuttle {
			found = e
		}
	})
	return found
}

func (g *Game) statusText() string {
	w := g.sim.World
	var b strings.Builder

	name := g.shuttle.String()
	if n, ok := ecs.Get(w, g.shuttle, component.NameComponent.Kind()); ok {
		name = n.Value
	}
	fmt.Fprintf(&b, "%s  t=%.1fs", name, g.sim.Elapsed())
	if g.paused {
		b.WriteString("  [paused]")
	}

	if pb, ok := ecs.Get(w, g.shuttle, component.PhysicsBodyComponent.Kind()); ok && pb.Body != nil {
		pos, vel := pb.Body.Position(), pb.Body.Velocity()
		fmt.Fprintf(&b, "\npos %.1f, %.1f\nspeed %.2f m/s", pos.X, pos.Y, vel.Length())
	}

	state := g.sim.Autopilot.QueryState(w, g.shuttle)
	fmt.Fprintf(&b, "\nserver %v  autopilot %v", state.HasServer, state.Enabled)
	if ap, ok := ecs.Get(w, g.shuttle, component.AutopilotComponent.Kind()); ok && ap.Enabled && ap.Target != nil {
		if target, ok := system.ResolveCoordinate(w, *ap.Target); ok {
			fmt.Fprintf(&b, "\n-> %s (%.1f, %.1f)", ap.Destination, target.X, target.Y)
		}
	}

	if pilot := g.pilot(); pilot != 0 {
		if occ, ok := ecs.Get(w, pilot, component.OccupantComponent.Kind()); ok && len(occ.Messages) > 0 {
			fmt.Fprintf(&b, "\n%s: %s", occ.Name, occ.Messages[len(occ.Messages)-1])
		}
	}
	return b.String()
}

func (g *Game) worldToScreen(p cp.Vector) (float32, float32) {
	x := baseWidth/2 + (p.X-g.camera.X)*g.scale
	y := baseHeight/2 - (p.Y-g.camera.Y)*g.scale
	return float32(x), float32(y)
}

func (g *Game) screenToWorld(x, y float64) cp.Vector {
	return cp.Vector{
		X: g.camera.X + (x-baseWidth/2)/g.scale,
		Y: g.camera.Y - (y-baseHeight/2)/g.scale,
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0x0b, G: 0x0d, B: 0x17, A: 0xff})
	w := g.sim.World

	ecs.ForEach2(w, component.PhysicsBodyComponent.Kind(), component.NameComponent.Kind(), func(e ecs.Entity, pb *component.PhysicsBody, name *component.Name) {
		if pb.Body == nil {
			return
		}
		g.drawBody(screen, e, pb, name.Value)
	})

	if rc, ok := g.console(); ok && rc.Target != nil {
		g.drawCross(screen, *rc.Target, colornames.Dimgray)
	}
	ecs.ForEach(w, component.AutopilotComponent.Kind(), func(_ ecs.Entity, ap *component.Autopilot) {
		if !ap.Enabled || ap.Target == nil {
			return
		}
		if target, ok := system.ResolveCoordinate(w, *ap.Target); ok {
			g.drawCross(screen, target, colornames.Limegreen)
		}
	})

	g.ui.Draw(screen)
}

func (g *Game) drawBody(screen *ebiten.Image, e ecs.Entity, pb *component.PhysicsBody, name string) {
	w := g.sim.World
	pos := pb.Body.Position()
	x, y := g.worldToScreen(pos)

	clr := color.Color(colornames.Gray)
	switch {
	case ecs.Has(w, e, component.ShuttleComponent.Kind()):
		clr = colornames.Orange
	case ecs.Has(w, e, component.GridTagComponent.Kind()):
		clr = colornames.Steelblue
	}

	if pb.Radius > 0 {
		r := float32(pb.Radius * g.scale)
		vector.StrokeCircle(screen, x, y, r, 1.5, clr, true)
	} else {
		wdt, hgt := float32(pb.Width*g.scale), float32(pb.Height*g.scale)
		vector.StrokeRect(screen, x-wdt/2, y-hgt/2, wdt, hgt, 1.5, clr, true)
	}

	if shuttle, ok := ecs.Get(w, e, component.ShuttleComponent.Kind()); ok {
		g.drawShuttle(screen, pb, shuttle)
	}

	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x)+4, float64(y)+4)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, name, g.face, op)
}

func (g *Game) drawShuttle(screen *ebiten.Image, pb *component.PhysicsBody, shuttle *component.Shuttle) {
	body := pb.Body
	pos := body.Position()
	angle := body.Angle()
	size := math.Max(pb.Radius, math.Max(pb.Width, pb.Height)/2)
	if size <= 0 {
		size = 1
	}

	x0, y0 := g.worldToScreen(pos)
	x1, y1 := g.worldToScreen(pos.Add(common.RotateVec(cp.Vector{Y: size * 1.5}, angle)))
	vector.StrokeLine(screen, x0, y0, x1, y1, 2, colornames.White, true)

	// exhaust opposite each lit thruster group
	exhaust := map[component.Direction]cp.Vector{
		component.DirectionNorth: {Y: -1},
		component.DirectionSouth: {Y: 1},
		component.DirectionEast:  {X: -1},
		component.DirectionWest:  {X: 1},
	}
	for dir, local := range exhaust {
		if !shuttle.ThrustDirections.Has(dir) {
			continue
		}
		from := pos.Add(common.RotateVec(local.Mult(size), angle))
		to := pos.Add(common.RotateVec(local.Mult(size*1.8), angle))
		ax, ay := g.worldToScreen(from)
		bx, by := g.worldToScreen(to)
		vector.StrokeLine(screen, ax, ay, bx, by, 3, colornames.Orangered, true)
	}
	if shuttle.AngularThrustActive {
		vector.StrokeCircle(screen, x0, y0, float32(size*g.scale)+3, 1, colornames.Gold, true)
	}
}

func (g *Game) drawCross(screen *ebiten.Image, p cp.Vector, clr color.Color) {
	x, y := g.worldToScreen(p)
	vector.StrokeLine(screen, x-6, y-6, x+6, y+6, 2, clr, true)
	vector.StrokeLine(screen, x-6, y+6, x+6, y-6, 2, clr, true)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
