// Package sim drives a step agent across a grid: it applies scripted world
// changes, times each move against a deadline and keeps the cost books.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/grid"
)

var runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pathsense",
	Subsystem: "sim",
	Name:      "runs_total",
	Help:      "Finished simulation runs by final status",
}, []string{"status"})

// Status is the lifecycle state of a run.
type Status int

const (
	StatusRunning Status = iota
	StatusArrived
	StatusTimedOut
	StatusNoPath
	StatusFaulted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusArrived:
		return "arrived"
	case StatusTimedOut:
		return "timed_out"
	case StatusNoPath:
		return "no_path"
	case StatusFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Simulation runs one agent from a start toward a goal.
// A Simulation is not safe for concurrent use.
type Simulation struct {
	initial *grid.Grid
	grid    *grid.Grid
	agent   agent.Agent

	start   grid.Coord
	goal0   grid.Coord
	goal    grid.Coord
	current grid.Coord

	deadline time.Duration // 0 means unlimited
	freeTime time.Duration
	realtime bool
	strict   bool
	maxSteps int
	script   Script
	clock    func() time.Time
	logger   *slog.Logger
	verbose  bool

	status    Status
	err       error
	steps     int
	cost      float64
	spent     time.Duration
	remaining time.Duration
	began     time.Time
	applied   map[int]bool
	trail     []grid.Coord
	draw      []agent.DrawList
	log       *Log
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithDeadline sets the thinking-time budget. Zero means unlimited.
func WithDeadline(d time.Duration) Option {
	return func(s *Simulation) { s.deadline = d }
}

// WithFreeTime makes moves computed faster than d cost no time.
func WithFreeTime(d time.Duration) Option {
	return func(s *Simulation) { s.freeTime = d }
}

// WithRealtime times every move. Without it only moves taken while no time
// has been spent yet are timed, so the planning step pays and replays do not.
func WithRealtime(on bool) Option {
	return func(s *Simulation) { s.realtime = on }
}

// WithStrict rejects illegal moves: the agent stays put and the step is not
// counted. Without it an illegal move is taken at infinite cost.
func WithStrict(on bool) Option {
	return func(s *Simulation) { s.strict = on }
}

// WithMaxSteps stops the run as timed out after n counted steps. Zero means
// no limit.
func WithMaxSteps(n int) Option {
	return func(s *Simulation) { s.maxSteps = n }
}

// WithScript sets the scripted changes.
func WithScript(sc Script) Option {
	return func(s *Simulation) { s.script = sc }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) { s.clock = now }
}

// WithLogger sets the logger; nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithVerbose records every move in the run log.
func WithVerbose(on bool) Option {
	return func(s *Simulation) { s.verbose = on }
}

// New prepares a run of a on g from start to goal. g is cloned so Reset can
// restore it; edit the world through Grid().
func New(g *grid.Grid, a agent.Agent, start, goal grid.Coord, opts ...Option) (*Simulation, error) {
	if !g.InBounds(start) {
		return nil, fmt.Errorf("%w: start %s out of bounds", grid.ErrInvalidGrid, start)
	}
	if !g.InBounds(goal) {
		return nil, fmt.Errorf("%w: goal %s out of bounds", grid.ErrInvalidGrid, goal)
	}
	s := &Simulation{
		initial: g.Clone(),
		agent:   a,
		start:   start,
		goal0:   goal,
		strict:  true,
		clock:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.Reset()
	return s, nil
}

// Reset restores the initial grid, goal and position and resets the agent.
func (s *Simulation) Reset() {
	s.grid = s.initial.Clone()
	s.goal = s.goal0
	s.current = s.start
	s.status = StatusRunning
	s.err = nil
	s.steps = 0
	s.cost = 0
	s.spent = 0
	s.remaining = agent.Unlimited
	if s.deadline > 0 {
		s.remaining = s.deadline
	}
	s.began = time.Time{}
	s.applied = make(map[int]bool)
	s.trail = []grid.Coord{s.start}
	s.draw = nil
	s.log = NewLog(s.verbose)
	s.agent.Reset()
}

// Grid returns the live grid; scripted terrain edits land here.
func (s *Simulation) Grid() *grid.Grid { return s.grid }

func (s *Simulation) Agent() agent.Agent { return s.agent }

func (s *Simulation) Start() grid.Coord { return s.start }

func (s *Simulation) Goal() grid.Coord { return s.goal }

// SetGoal moves the goal for the rest of the run.
func (s *Simulation) SetGoal(goal grid.Coord) { s.goal = goal }

func (s *Simulation) Current() grid.Coord { return s.current }

func (s *Simulation) Status() Status { return s.status }

// Done reports whether the run has finished.
func (s *Simulation) Done() bool { return s.status != StatusRunning }

// Err returns the agent fault that ended the run, if any.
func (s *Simulation) Err() error { return s.err }

func (s *Simulation) Steps() int { return s.steps }

func (s *Simulation) Cost() float64 { return s.cost }

// Spent is the thinking time charged so far.
func (s *Simulation) Spent() time.Duration { return s.spent }

// Remaining is the time budget left; agent.Unlimited without a deadline.
func (s *Simulation) Remaining() time.Duration { return s.remaining }

func (s *Simulation) Deadline() time.Duration { return s.deadline }

func (s *Simulation) Script() Script { return s.script }

func (s *Simulation) Log() *Log { return s.log }

// Draw returns the most recent draw lists an agent attached.
func (s *Simulation) Draw() []agent.DrawList { return s.draw }

// Trail lists every position held so far, start first.
func (s *Simulation) Trail() []grid.Coord { return s.trail }

func (s *Simulation) finish(st Status, key string) {
	s.status = st
	s.closeOut(key)
}

func (s *Simulation) closeOut(key string) {
	s.log.Add(s.steps, CatStatus, key, s.Summary(), s.cost)
	runsTotal.WithLabelValues(s.status.String()).Inc()
	s.logger.Info("simulation finished",
		"status", s.status.String(),
		"cost", s.cost,
		"steps", s.steps,
		"spent", s.spent)
}

// Step advances the run by one agent move, applying any changes scripted for
// the current step count first. It returns the status after the move.
func (s *Simulation) Step() Status {
	if s.status != StatusRunning {
		return s.status
	}
	if s.began.IsZero() {
		s.began = s.clock()
	}
	if s.current == s.goal {
		s.finish(StatusArrived, "arrived")
		return s.status
	}
	if s.remaining <= 0 {
		s.finish(StatusTimedOut, "deadline")
		return s.status
	}
	s.applyScript()
	if s.current == s.goal {
		s.finish(StatusArrived, "arrived")
		return s.status
	}

	t0 := s.clock()
	st, err := agent.Call(s.agent, s.grid, s.current, s.goal, s.remaining)
	elapsed := s.clock().Sub(t0)
	switch {
	case errors.Is(err, agent.ErrTimeout):
		s.finish(StatusTimedOut, "agent_timeout")
		return s.status
	case err != nil:
		s.err = err
		s.log.Add(s.steps, CatAgent, "fault", err.Error(), 0)
		s.logger.Error("agent fault", "step", s.steps, "err", err)
		s.finish(StatusFaulted, "faulted")
		return s.status
	case st.NoMove:
		s.finish(StatusNoPath, "no_path")
		return s.status
	}
	if st.Draw != nil {
		s.draw = st.Draw
	}

	if (!s.realtime && s.spent > 0) || elapsed < s.freeTime {
		elapsed = 0
	}
	s.steps++
	s.spent += elapsed
	if s.deadline > 0 {
		s.remaining -= elapsed
	}

	prev := s.current
	s.current = st.Next
	cost := s.grid.MoveCost(prev, s.current, s.grid.AllKeys())
	if math.IsInf(cost, 1) {
		s.log.Add(s.steps, CatMove, "illegal", fmt.Sprintf("%s -> %s", prev, st.Next), 0)
		s.logger.Warn("illegal move", "from", prev.String(), "to", st.Next.String(), "strict", s.strict)
		if s.strict {
			s.current = prev
			s.steps--
			cost = 0
		}
	}
	s.cost += cost
	if s.current != prev {
		s.trail = append(s.trail, s.current)
		s.log.AddVerbose(s.steps, CatMove, "step", fmt.Sprintf("%s -> %s", prev, s.current), cost)
	}

	switch {
	case s.current == s.goal:
		s.finish(StatusArrived, "arrived")
	case s.deadline > 0 && s.remaining <= 0:
		s.finish(StatusTimedOut, "deadline")
	case s.deadline > 0 && s.clock().Sub(s.began) > 2*s.deadline:
		s.finish(StatusTimedOut, "timeout")
	case s.maxSteps > 0 && s.steps >= s.maxSteps:
		s.finish(StatusTimedOut, "max_steps")
	}
	return s.status
}

// applyScript fires the changes keyed by the current step count. Each key
// fires at most once per run, so a rejected move does not repeat it.
func (s *Simulation) applyScript() {
	if s.applied[s.steps] {
		return
	}
	s.applied[s.steps] = true
	keys := s.grid.AllKeys()
	if tc, ok := s.script.Terrain[s.steps]; ok {
		s.grid.SetBlock(tc.TopLeft, tc.BottomRight, tc.Terrain)
		s.log.Add(s.steps, CatScript, "terrain",
			fmt.Sprintf("%c %s..%s", tc.Terrain, tc.TopLeft, tc.BottomRight), 0)
	}
	if g, ok := s.script.Goal[s.steps]; ok {
		if n, found := s.grid.NearestPassable(g, keys); found {
			g = n
		}
		s.goal = g
		s.log.Add(s.steps, CatScript, "goal", g.String(), 0)
	}
	if d, ok := s.script.Agent[s.steps]; ok {
		to := s.current.Add(d)
		if n, found := s.grid.NearestPassable(to, keys); found {
			to = n
		}
		s.current = to
		s.trail = append(s.trail, to)
		s.log.Add(s.steps, CatScript, "agent", to.String(), 0)
	}
}

// Run steps until the run finishes or ctx is done.
func (s *Simulation) Run(ctx context.Context) (Status, error) {
	for s.status == StatusRunning {
		if err := ctx.Err(); err != nil {
			return s.status, err
		}
		s.Step()
	}
	return s.status, s.err
}

// Summary formats the run totals.
func (s *Simulation) Summary() string {
	remaining := "inf"
	if s.deadline > 0 {
		remaining = fmt.Sprintf("%.3fs", s.remaining.Seconds())
	}
	return fmt.Sprintf("Total Cost : %.2f | Total Steps : %d | Time Remaining : %s | Total Time : %.3fs",
		s.cost, s.steps, remaining, s.spent.Seconds())
}
