package viewer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/config"
	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/mapfile"
	"github.com/Garsondee/pathsense/internal/oracle"
	"github.com/Garsondee/pathsense/internal/sim"
)

// Speeds are the run-mode step rates (steps per second) cycled with , and .
var Speeds = []float64{1, 2, 5, 10, 20, 50, 100, 500}

// maxStepsPerFrame caps how far a single Advance call may run.
const maxStepsPerFrame = 500

// Session owns one simulation built from a config and everything the
// viewer derives from it. It has no ebiten dependency.
type Session struct {
	cfg    config.Config
	logger *slog.Logger

	sim     *sim.Simulation
	running bool
	speed   float64
	accum   float64
	loads   int

	heat     map[grid.Coord]bool
	heatGrid *grid.Grid
	heatVer  uint64
	heatGoal grid.Coord
	heatRuns int
}

// NewSession loads the configured map, script and agent.
func NewSession(cfg config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{cfg: cfg, logger: logger, speed: cfg.Speed}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load rereads the map, cost file and script from disk and starts a fresh
// run. On error the previous run is kept.
func (s *Session) Load() error {
	opts, err := s.cfg.GridOptions()
	if err != nil {
		return err
	}
	g, err := mapfile.Load(s.cfg.MapFile, s.cfg.CostFile, opts...)
	if err != nil {
		return err
	}
	script, err := config.LoadScript(s.cfg.Script)
	if err != nil {
		return err
	}
	a, err := s.cfg.NewAgent(agent.WithDraw(true), agent.WithLogger(s.logger))
	if err != nil {
		return err
	}
	simOpts := append(s.cfg.SimOptions(),
		sim.WithScript(script),
		sim.WithLogger(s.logger),
		sim.WithVerbose(true),
	)
	run, err := sim.New(g, a, s.cfg.Start.Coord(), s.cfg.Goal.Coord(), simOpts...)
	if err != nil {
		return err
	}
	s.sim = run
	s.running, s.accum = false, 0
	s.heat, s.heatGrid = nil, nil
	s.loads++
	s.logger.Info("session loaded",
		"map", s.cfg.MapFile,
		"agent", s.cfg.Agent,
		"width", g.Width(),
		"height", g.Height(),
		"script_steps", len(script.Steps()),
	)
	return nil
}

// Files lists the files whose changes should trigger Load.
func (s *Session) Files() []string {
	var out []string
	for _, p := range []string{s.cfg.MapFile, s.cfg.CostFile, s.cfg.Script} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) Sim() *sim.Simulation { return s.sim }

func (s *Session) Config() config.Config { return s.cfg }

// Loads counts successful Load calls.
func (s *Session) Loads() int { return s.loads }

func (s *Session) Running() bool { return s.running }

// ToggleRun starts or pauses run mode. A finished run stays paused.
func (s *Session) ToggleRun() {
	s.running = !s.running && !s.sim.Done()
	s.accum = 0
}

// Step advances the simulation by one step and pauses run mode.
func (s *Session) Step() sim.Status {
	s.running = false
	return s.sim.Step()
}

// Reset restarts the run on the initial grid.
func (s *Session) Reset() {
	s.sim.Reset()
	s.running, s.accum = false, 0
	s.heat, s.heatGrid = nil, nil
}

func (s *Session) Speed() float64 { return s.speed }

// Faster moves to the next higher rate in Speeds.
func (s *Session) Faster() {
	for _, v := range Speeds {
		if v > s.speed {
			s.speed = v
			return
		}
	}
}

// Slower moves to the next lower rate in Speeds.
func (s *Session) Slower() {
	for i := len(Speeds) - 1; i >= 0; i-- {
		if Speeds[i] < s.speed {
			s.speed = Speeds[i]
			return
		}
	}
}

// Advance runs the steps owed after dt seconds of run mode and returns how
// many were taken. A zero speed steps as fast as the frame cap allows.
func (s *Session) Advance(dt float64) int {
	if !s.running {
		return 0
	}
	owed := maxStepsPerFrame
	if s.speed > 0 {
		s.accum += s.speed * dt
		owed = int(s.accum)
		s.accum -= float64(owed)
		if owed > maxStepsPerFrame {
			owed = maxStepsPerFrame
		}
	}
	taken := 0
	for ; taken < owed && !s.sim.Done(); taken++ {
		s.sim.Step()
	}
	if s.sim.Done() {
		s.running = false
	}
	return taken
}

// Heatmap classifies every passable cell of the live grid as truthful or
// deceptive for the current goal and the configured decoys. The result is
// cached until the grid or goal changes.
func (s *Session) Heatmap() (map[grid.Coord]bool, error) {
	g := s.sim.Grid()
	if s.heat != nil && s.heatGrid == g && s.heatVer == g.Version() && s.heatGoal == s.sim.Goal() {
		return s.heat, nil
	}
	o := oracle.New(g, oracle.WithKeys(g.AllKeys()), oracle.WithLogger(s.logger))
	goals := append([]grid.Coord{s.sim.Goal()}, s.cfg.DecoyCoords()...)
	p, err := deceive.New(o, s.sim.Start(), goals, deceive.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	truthful := p.Heatmap().Build()
	s.heat = p.Heatmap().Cells()
	s.heatGrid, s.heatVer, s.heatGoal = g, g.Version(), s.sim.Goal()
	s.heatRuns++
	s.logger.Info("heatmap built", "cells", len(s.heat), "truthful", truthful)
	return s.heat, nil
}

// HeatBuilds counts heatmap rebuilds, so callers can tell when a cached
// rendering is stale.
func (s *Session) HeatBuilds() int { return s.heatRuns }

// StatusLines describes the run for the status panel.
func (s *Session) StatusLines() []string {
	run := s.sim
	mode := "paused"
	if s.running {
		mode = "running"
	}
	lines := []string{
		fmt.Sprintf("agent: %s  status: %s", s.cfg.Agent, run.Status()),
		fmt.Sprintf("at: %s  goal: %s  start: %s", run.Current(), run.Goal(), run.Start()),
		run.Summary(),
		fmt.Sprintf("speed: %g steps/s  %s", s.speed, mode),
	}
	if d, ok := run.Agent().(*agent.Deceptive); ok {
		if pl := d.LastPlan(); len(pl.Path) > 0 {
			line := fmt.Sprintf("plan: %s  cost: %.2f  target: %s", pl.Strategy, pl.Cost, pl.Target)
			if pl.Fallback {
				line += "  (fallback)"
			}
			lines = append(lines, line)
		}
	}
	if err := run.Err(); err != nil {
		lines = append(lines, "error: "+err.Error())
	}
	return lines
}

// Report is the text copied to the clipboard: the summary followed by the
// run log.
func (s *Session) Report() string {
	var b strings.Builder
	b.WriteString(s.sim.Summary())
	b.WriteString("\n")
	b.WriteString(s.sim.Log().Format())
	return b.String()
}
