package agent

import (
	"math"
	"math/rand"
	"time"

	"github.com/Garsondee/pathsense/internal/grid"
)

// Random moves to a uniformly chosen passable neighbour each step. It ignores
// the goal.
type Random struct {
	seed int64
	keys []grid.Coord
	rng  *rand.Rand
}

// NewRandom builds a random agent seeded by WithSeed.
func NewRandom(opts ...Option) *Random {
	s := newSettings(opts)
	r := &Random{seed: s.seed, keys: s.keys}
	r.Reset()
	return r
}

// Reset reseeds the generator so a reset agent replays the same walk.
func (r *Random) Reset() {
	r.rng = rand.New(rand.NewSource(r.seed)) // #nosec G404 -- reproducible walks, not security
}

func (r *Random) Next(g *grid.Grid, current, _ grid.Coord, remaining time.Duration) (Step, error) {
	if remaining <= 0 {
		return Step{}, ErrTimeout
	}
	moves := legalMoves(g, current, r.keys)
	if len(moves) == 0 {
		return Step{NoMove: true}, nil
	}
	return Step{Next: moves[r.rng.Intn(len(moves))]}, nil
}

// clockface is the fixed move order of the Right agent, starting east and
// turning clockwise (rows grow downward).
var clockface = []grid.Coord{
	{Col: 1, Row: 0}, {Col: 1, Row: 1}, {Col: 0, Row: 1}, {Col: -1, Row: 1},
	{Col: -1, Row: 0}, {Col: -1, Row: -1}, {Col: 0, Row: -1}, {Col: 1, Row: -1},
}

// Right takes the first legal move in clockface order. It ignores the goal.
type Right struct {
	keys []grid.Coord
}

// NewRight builds a clockface agent.
func NewRight(opts ...Option) *Right {
	s := newSettings(opts)
	return &Right{keys: s.keys}
}

func (r *Right) Reset() {}

func (r *Right) Next(g *grid.Grid, current, _ grid.Coord, remaining time.Duration) (Step, error) {
	if remaining <= 0 {
		return Step{}, ErrTimeout
	}
	for _, d := range clockface {
		to := current.Add(d)
		if !g.InBounds(to) || !g.IsAdjacent(current, to) {
			continue
		}
		if !math.IsInf(g.MoveCost(current, to, r.keys), 1) {
			return Step{Next: to}, nil
		}
	}
	return Step{NoMove: true}, nil
}

func legalMoves(g *grid.Grid, from grid.Coord, keys []grid.Coord) []grid.Coord {
	var out []grid.Coord
	for _, n := range g.Adjacents(from) {
		if !math.IsInf(g.MoveCost(from, n, keys), 1) {
			out = append(out, n)
		}
	}
	return out
}
