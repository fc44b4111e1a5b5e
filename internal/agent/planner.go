package agent

import (
	"log/slog"
	"time"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/search"
)

// State is a planning agent's lifecycle state.
type State int

const (
	StateIdle     State = iota // no plan held
	StatePlanning              // computing a plan
	StateYielding              // handing out moves from a stored plan
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateYielding:
		return "yielding"
	default:
		return "unknown"
	}
}

// follower stores a plan and hands it out one move at a time. It detects
// when the world has moved on from the plan: a different grid, a grid edit,
// a new goal, or an agent that is not where the last move put it.
type follower struct {
	state    State
	grid     *grid.Grid
	version  uint64
	goal     grid.Coord
	expected grid.Coord
	path     []grid.Coord
	cursor   int
	draw     []DrawList
}

func (f *follower) reset() { *f = follower{} }

func (f *follower) stale(g *grid.Grid, current, goal grid.Coord) bool {
	return f.state != StateYielding ||
		f.grid != g ||
		f.version != g.Version() ||
		f.goal != goal ||
		f.expected != current
}

// load stores path (current first) and the optional draw lists for the first
// move.
func (f *follower) load(g *grid.Grid, goal grid.Coord, path []grid.Coord, draw []DrawList) {
	f.grid, f.version, f.goal = g, g.Version(), goal
	f.path, f.cursor, f.draw = path, 1, draw
	f.state = StateYielding
}

func (f *follower) next() Step {
	if f.cursor >= len(f.path) {
		f.state = StateIdle
		return Step{NoMove: true}
	}
	st := Step{Next: f.path[f.cursor], Draw: f.draw}
	f.draw = nil
	f.cursor++
	f.expected = st.Next
	if f.cursor >= len(f.path) {
		f.state = StateIdle
	}
	return st
}

// Planner is an A* agent. It plans once and then replays the plan, replanning
// only when the stored plan went stale.
type Planner struct {
	weight float64
	draw   bool
	keys   []grid.Coord
	logger *slog.Logger
	f      follower
	plans  int
}

// NewPlanner builds a weighted A* agent (weight from WithWeight).
func NewPlanner(opts ...Option) *Planner {
	s := newSettings(opts)
	return &Planner{weight: s.weight, draw: s.draw, keys: s.keys, logger: s.logger}
}

// NewAStar builds the standard A* agent. Any weight option is overridden by
// the default weight.
func NewAStar(opts ...Option) *Planner {
	p := NewPlanner(opts...)
	p.weight = search.DefaultWeight
	return p
}

// State reports the agent's lifecycle state.
func (p *Planner) State() State { return p.f.state }

// Plans reports how many times the agent has planned since construction.
func (p *Planner) Plans() int { return p.plans }

func (p *Planner) Reset() { p.f.reset() }

func (p *Planner) Next(g *grid.Grid, current, goal grid.Coord, remaining time.Duration) (Step, error) {
	if remaining <= 0 {
		return Step{}, ErrTimeout
	}
	if p.f.stale(g, current, goal) {
		p.f.state = StatePlanning
		p.plans++
		opts := []search.Option{search.WithWeight(p.weight), search.WithKeys(p.keys)}
		if p.draw {
			opts = append(opts, search.WithWorkings())
		}
		res := search.Search(g, current, goal, opts...)
		if !res.Found() {
			p.f.state = StateIdle
			p.logger.Debug("no path", "from", current.String(), "goal", goal.String())
			return Step{NoMove: true}, nil
		}
		var draw []DrawList
		if p.draw {
			draw = []DrawList{
				{Tag: TagClosed, Cells: res.Closed},
				{Tag: TagOpen, Cells: res.Open},
				{Tag: TagPath, Cells: res.Path},
			}
		}
		p.f.load(g, goal, res.Path, draw)
	}
	return p.f.next(), nil
}
