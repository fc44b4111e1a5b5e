// Package deceive plans deceptive paths: routes to a real goal that look,
// for as long as possible, like routes to one of several decoys.
package deceive

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
	"github.com/Garsondee/pathsense/internal/search"
)

// ErrNoGoals is returned when a planner is built without a real goal.
var ErrNoGoals = errors.New("no real goal")

// DeceptileBias inflates the heuristic toward the target while the real goal
// still looks closer than the decoy.
const DeceptileBias = 1.5

// Densities are the path positions (percent of path length) at which
// truthfulness is reported.
var Densities = []int{10, 25, 50, 75, 90, 99}

// Goal is a goal with its optimal costs from the start and to the real goal.
type Goal struct {
	Coord grid.Coord
	OptC  float64 // start → Coord
	OptR  float64 // Coord → real goal
}

// Strategy selects how the path to the real goal is built.
type Strategy int

const (
	StrategyDirect    Strategy = iota // optimal path to the real goal
	StrategyDecoy                     // via the decoy closest to the real goal
	StrategyTarget                    // optimal path via the last deceptive point
	StrategyDeceptile                 // biased A* to the last deceptive point
)

// Strategies lists every strategy in batch order.
var Strategies = []Strategy{StrategyDirect, StrategyDecoy, StrategyTarget, StrategyDeceptile}

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyDecoy:
		return "ds1"
	case StrategyTarget:
		return "ds2"
	case StrategyDeceptile:
		return "ds3"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts names or numbers 0..3.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "direct", "astar", "0", "ds0":
		return StrategyDirect, nil
	case "ds1", "1", "decoy":
		return StrategyDecoy, nil
	case "ds2", "2", "target":
		return StrategyTarget, nil
	case "ds3", "3", "deceptile":
		return StrategyDeceptile, nil
	default:
		return StrategyDirect, fmt.Errorf("unknown strategy %q", s)
	}
}

// RMPRule selects which decoy the last deceptive point is measured against.
type RMPRule int

const (
	RMPClosestDecoy RMPRule = iota // the decoy with the cheapest route to the real goal
	RMPMinimum                     // the decoy giving the smallest RMP
)

func (r RMPRule) String() string {
	switch r {
	case RMPClosestDecoy:
		return "closest"
	case RMPMinimum:
		return "minimum"
	default:
		return fmt.Sprintf("RMPRule(%d)", int(r))
	}
}

// ParseRMPRule accepts "closest" and "minimum". Empty means closest.
func ParseRMPRule(s string) (RMPRule, error) {
	switch strings.ToLower(s) {
	case "", "closest":
		return RMPClosestDecoy, nil
	case "minimum", "min":
		return RMPMinimum, nil
	default:
		return RMPClosestDecoy, fmt.Errorf("unknown rmp rule %q", s)
	}
}

// Plan is a planned route to the real goal.
type Plan struct {
	Strategy Strategy
	Cost     float64
	Path     []grid.Coord // start..real goal inclusive; empty if unreachable
	Target   grid.Coord
	Decoy    grid.Coord
	RMP      float64
	Fallback bool // a deceptive strategy degraded to the direct path
	Elapsed  time.Duration
}

// Planner holds the per-problem state: goals, their costs and the heatmap.
type Planner struct {
	oracle *oracle.Oracle
	start  grid.Coord
	goals  []Goal
	heat   *Heatmap
	rule   RMPRule
	logger *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger; nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithRMPRule selects the decoy the RMP is measured against.
func WithRMPRule(r RMPRule) Option {
	return func(p *Planner) { p.rule = r }
}

// New computes goal costs for start and goals (goals[0] is the real goal,
// the rest are decoys).
func New(o *oracle.Oracle, start grid.Coord, goals []grid.Coord, opts ...Option) (*Planner, error) {
	if len(goals) == 0 {
		return nil, ErrNoGoals
	}
	p := &Planner{oracle: o, start: start}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	realGoal := goals[0]
	for _, g := range goals {
		p.goals = append(p.goals, Goal{
			Coord: g,
			OptC:  o.OptimalCost(start, g),
			OptR:  o.PairCost(g, realGoal),
		})
	}
	p.heat = NewHeatmap(o, p.goals)
	return p, nil
}

// Start returns the planning start.
func (p *Planner) Start() grid.Coord { return p.start }

// Goals returns the goals, real goal first.
func (p *Planner) Goals() []Goal { return p.goals }

// Real returns the real goal.
func (p *Planner) Real() Goal { return p.goals[0] }

// Heatmap returns the planner's heatmap.
func (p *Planner) Heatmap() *Heatmap { return p.heat }

// RMP returns the last deceptive point cost (optr + optc(real) − optc(decoy)) / 2
// for the decoy picked by the planner's RMPRule. ok is false when there are
// no decoys.
func (p *Planner) RMP() (rmp float64, decoy Goal, ok bool) {
	if p.rule == RMPMinimum {
		return p.minRMP()
	}
	if len(p.goals) < 2 {
		return 0, Goal{}, false
	}
	closest := math.Inf(1)
	for _, g := range p.goals[1:] {
		if !ok || g.OptR < closest {
			closest, decoy, ok = g.OptR, g, true
		}
	}
	return (decoy.OptR + p.goals[0].OptC - decoy.OptC) / 2, decoy, true
}

// Rule returns the rule the planner measures RMP with.
func (p *Planner) Rule() RMPRule { return p.rule }

func (p *Planner) minRMP() (rmp float64, decoy Goal, ok bool) {
	rmp = math.Inf(1)
	for _, g := range p.goals[1:] {
		r := (g.OptR + p.goals[0].OptC - g.OptC) / 2
		if !ok || r < rmp {
			rmp, decoy, ok = r, g, true
		}
	}
	return rmp, decoy, ok
}

// Target returns the last deceptive point: walk the decoy→real optimal path
// until the cost walked reaches cost−RMP, then step back while the heatmap
// calls the cell truthful. ok is false when RMP ≤ 0, there are no decoys, or
// the decoy cannot reach the real goal.
func (p *Planner) Target() (target grid.Coord, ok bool) {
	rmp, decoy, ok := p.RMP()
	if !ok || rmp <= 0 || math.IsNaN(rmp) || math.IsInf(rmp, 0) {
		return grid.Coord{}, false
	}
	res := p.oracle.Path(decoy.Coord, p.Real().Coord)
	if !res.Found() || len(res.Path) == 0 {
		return grid.Coord{}, false
	}
	g := p.oracle.Grid()
	keys := p.oracle.Keys()
	path := res.Path
	limit := res.Cost - rmp
	idx, walked := 0, 0.0
	for walked < limit && idx+1 < len(path) {
		walked += g.MoveCost(path[idx], path[idx+1], keys)
		idx++
	}
	for idx > 0 && p.heat.IsTruthful(path[idx]) {
		idx--
	}
	return path[idx], true
}

// Plan builds a route to the real goal with strategy s. Deceptive strategies
// fall back to the direct path when no deceptive route exists.
func (p *Planner) Plan(s Strategy) Plan {
	t0 := time.Now()
	pl := p.plan(s)
	pl.Elapsed = time.Since(t0)
	if pl.Fallback {
		p.logger.Info("deceptive strategy fell back to direct path",
			"strategy", s.String(),
			"start", p.start.String(),
			"rmp", pl.RMP)
	}
	return pl
}

func (p *Planner) plan(s Strategy) Plan {
	realGoal := p.Real().Coord
	rmp, decoy, hasDecoy := p.RMP()
	pl := Plan{Strategy: s, RMP: rmp, Decoy: decoy.Coord, Target: realGoal}

	direct := func() Plan {
		res := p.oracle.Path(p.start, realGoal)
		pl.Cost, pl.Path = res.Cost, res.Path
		pl.Fallback = s != StrategyDirect
		return pl
	}
	if s == StrategyDirect || !hasDecoy || rmp <= 0 {
		return direct()
	}

	var via grid.Coord
	var first search.Result
	switch s {
	case StrategyDecoy:
		via = decoy.Coord
		first = p.oracle.Path(p.start, via)
	case StrategyTarget, StrategyDeceptile:
		t, ok := p.Target()
		if !ok {
			return direct()
		}
		via = t
		if s == StrategyTarget {
			first = p.oracle.Path(p.start, via)
		} else {
			first = search.Search(p.oracle.Grid(), p.start, via,
				search.WithKeys(p.oracle.Keys()),
				search.WithHeuristic(Deceptile(via, realGoal, decoy.Coord)))
		}
	default:
		return direct()
	}
	second := p.oracle.Path(via, realGoal)
	if !first.Found() || !second.Found() || len(first.Path) == 0 || len(second.Path) == 0 {
		return direct()
	}
	pl.Target = via
	pl.Cost = first.Cost + second.Cost
	pl.Path = append(append([]grid.Coord(nil), first.Path...), second.Path[1:]...)
	return pl
}

// Deceptile is the octile distance to target, inflated by DeceptileBias at
// cells where the real goal looks closer than the decoy.
func Deceptile(target, realGoal, decoy grid.Coord) search.HeuristicFunc {
	return func(c grid.Coord) float64 {
		h := grid.Octile(c, target)
		if grid.Octile(c, realGoal) < grid.Octile(c, decoy) {
			h *= DeceptileBias
		}
		return h
	}
}

// Truthfulness reports IsTruthful at each of Densities along path, using
// position int(d/100·(len−1)).
func (p *Planner) Truthfulness(path []grid.Coord) []bool {
	if len(path) == 0 {
		return nil
	}
	out := make([]bool, len(Densities))
	for i, d := range Densities {
		pos := int(float64(d) / 100 * float64(len(path)-1))
		out[i] = p.heat.IsTruthful(path[pos])
	}
	return out
}
