package agent

import (
	"log/slog"
	"time"

	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
)

// Deceptive follows a deceptive plan to the goal, treating its decoys as the
// goals an observer might believe in.
type Deceptive struct {
	strategy deceive.Strategy
	rmp      deceive.RMPRule
	decoys   []grid.Coord
	keys     []grid.Coord
	draw     bool
	logger   *slog.Logger

	oracle *oracle.Oracle
	last   deceive.Plan
	f      follower
}

// NewDeceptive builds a deceptive agent. Strategy and decoys come from
// WithStrategy and WithDecoys; with no decoys it walks the direct path.
func NewDeceptive(opts ...Option) *Deceptive {
	s := newSettings(opts)
	return &Deceptive{
		strategy: s.strategy,
		rmp:      s.rmp,
		decoys:   s.decoys,
		keys:     s.keys,
		draw:     s.draw,
		logger:   s.logger,
	}
}

// SetDecoys replaces the decoys and drops the current plan.
func (d *Deceptive) SetDecoys(decoys []grid.Coord) {
	d.decoys = append([]grid.Coord(nil), decoys...)
	d.f.reset()
}

// LastPlan returns the most recent plan.
func (d *Deceptive) LastPlan() deceive.Plan { return d.last }

func (d *Deceptive) Reset() {
	d.f.reset()
	d.oracle = nil
}

func (d *Deceptive) Next(g *grid.Grid, current, goal grid.Coord, remaining time.Duration) (Step, error) {
	if remaining <= 0 {
		return Step{}, ErrTimeout
	}
	if !d.f.stale(g, current, goal) {
		return d.f.next(), nil
	}
	d.f.state = StatePlanning
	if d.oracle == nil || d.oracle.Grid() != g {
		d.oracle = oracle.New(g, oracle.WithKeys(d.keys), oracle.WithLogger(d.logger))
	}
	goals := append([]grid.Coord{goal}, d.decoys...)
	p, err := deceive.New(d.oracle, current, goals, deceive.WithRMPRule(d.rmp), deceive.WithLogger(d.logger))
	if err != nil {
		d.f.state = StateIdle
		return Step{}, err
	}
	d.last = p.Plan(d.strategy)
	if len(d.last.Path) == 0 {
		d.f.state = StateIdle
		return Step{NoMove: true}, nil
	}
	var draw []DrawList
	if d.draw {
		extras := append([]grid.Coord(nil), d.decoys...)
		if !d.last.Fallback && d.last.Target != goal {
			extras = append(extras, d.last.Target)
		}
		draw = []DrawList{
			{Tag: TagPath, Cells: d.last.Path},
			{Tag: TagExtra, Cells: extras},
		}
	}
	d.f.load(g, goal, d.last.Path, draw)
	return d.f.next(), nil
}
