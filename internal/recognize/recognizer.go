// Package recognize computes a posterior distribution over candidate goals
// from a partial observation of an agent's path.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
)

// ErrTimeout is returned when the context expires between candidates.
var ErrTimeout = errors.New("recognition timed out")

// Candidate is one goal hypothesis and its evaluation.
type Candidate struct {
	Coord         grid.Coord
	OptimalCost   float64 // start → Coord
	RealGoalCost  float64 // start → the first candidate
	CostDif       float64
	Likelihood    float64 // P(O|G); may underflow to 0
	LogLikelihood float64
	// Probability is P(G|O), normalized from LogLikelihood rather than
	// Likelihood, so it stays meaningful when Likelihood underflows.
	Probability float64
	Elapsed     time.Duration
	TimedOut    bool
}

// Recognizer evaluates candidate goals with one formula.
type Recognizer struct {
	oracle  *oracle.Oracle
	formula Formula
	beta    float64
	offset  float64
	avoid   oracle.AvoidVariant
	logger  *slog.Logger
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithFormula selects the cost-difference formula and its family's beta.
func WithFormula(f Formula) Option {
	return func(r *Recognizer) {
		r.formula = f
		r.beta = f.Beta()
	}
}

// WithBeta overrides the rationality constant. Apply after WithFormula.
func WithBeta(beta float64) Option {
	return func(r *Recognizer) { r.beta = beta }
}

// WithMinimalOffset overrides the FormulaMinimal2 offset.
func WithMinimalOffset(off float64) Option {
	return func(r *Recognizer) { r.offset = off }
}

// WithAvoidVariant selects the subpath-avoidance rule for FormulaComplex.
func WithAvoidVariant(v oracle.AvoidVariant) Option {
	return func(r *Recognizer) { r.avoid = v }
}

// WithLogger sets the logger; nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recognizer) { r.logger = l }
}

// New builds a recognizer backed by o. The default formula is complex.
func New(o *oracle.Oracle, opts ...Option) *Recognizer {
	r := &Recognizer{
		oracle:  o,
		formula: FormulaComplex,
		beta:    FormulaComplex.Beta(),
		offset:  MinimalOffset,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Formula returns the active formula.
func (r *Recognizer) Formula() Formula { return r.formula }

// SetFormula switches formula and resets beta to the family default.
func (r *Recognizer) SetFormula(f Formula) {
	r.formula = f
	r.beta = f.Beta()
}

// Recognize evaluates every goal (goals[0] is the real goal) against obs and
// returns candidates in input order with normalized probabilities. The
// context is checked between candidates; on expiry all candidates are marked
// TimedOut and ErrTimeout is returned along with them.
func (r *Recognizer) Recognize(ctx context.Context, start grid.Coord, goals []grid.Coord, obs []grid.Coord) ([]Candidate, error) {
	obs = NormalizeObservations(start, obs)
	cands := make([]Candidate, len(goals))
	if len(goals) == 0 {
		return cands, nil
	}
	realCost := roundCost(r.oracle.OptimalCost(start, goals[0]))

	for i, g := range goals {
		if err := ctx.Err(); err != nil {
			for j := range cands {
				cands[j].Coord = goals[j]
				cands[j].TimedOut = true
			}
			r.logger.Warn("recognition timed out",
				"formula", r.formula.String(),
				"evaluated", i,
				"goals", len(goals))
			return cands, fmt.Errorf("%w after %d of %d goals: %v", ErrTimeout, i, len(goals), err)
		}
		t0 := time.Now()
		c := Candidate{
			Coord:        g,
			OptimalCost:  roundCost(r.oracle.OptimalCost(start, g)),
			RealGoalCost: realCost,
		}
		c.CostDif = r.CostDif(start, g, obs)
		c.Likelihood = Likelihood(c.CostDif, r.beta)
		c.LogLikelihood = LogLikelihood(c.CostDif, r.beta)
		c.Elapsed = time.Since(t0)
		cands[i] = c
	}

	if Normalize(cands) {
		r.logger.Warn("all goal likelihoods are zero, using uniform posterior",
			"formula", r.formula.String(),
			"goals", len(cands))
	}
	return cands, nil
}

// CostDif computes the formula's cost difference for one goal. Observations
// must already be normalized. With no observations every formula gives 0.
func (r *Recognizer) CostDif(start, goal grid.Coord, obs []grid.Coord) float64 {
	if len(obs) == 0 {
		return 0
	}
	o := r.oracle
	switch r.formula {
	case FormulaSimple:
		with := roundCost(o.CostWithRequiredSubpath(start, goal, obs))
		return roundCost(with - roundCost(o.OptimalCost(start, goal)))
	case FormulaMinimal1, FormulaMinimal2:
		opt := roundCost(o.OptimalCost(start, goal))
		rest := roundCost(o.PairCost(obs[len(obs)-1], goal))
		d := rest - opt
		if r.formula == FormulaMinimal2 {
			d += r.offset
		}
		return roundCost(d)
	default:
		with := roundCost(o.CostWithRequiredSubpath(start, goal, obs))
		without := roundCost(o.CostAvoidingSubpath(start, goal, obs, r.avoid))
		return roundCost(with - without)
	}
}

// Normalize turns log-likelihoods into a posterior that sums to 1, using
// log-sum-exp so tiny likelihoods keep their ratios. If every likelihood is
// zero the posterior is uniform and Normalize reports true.
func Normalize(cands []Candidate) (degenerate bool) {
	if len(cands) == 0 {
		return false
	}
	top := math.Inf(-1)
	for _, c := range cands {
		if c.LogLikelihood > top {
			top = c.LogLikelihood
		}
	}
	if math.IsInf(top, -1) || math.IsNaN(top) {
		u := 1 / float64(len(cands))
		for i := range cands {
			cands[i].Probability = u
		}
		return true
	}
	sum := 0.0
	for _, c := range cands {
		sum += math.Exp(c.LogLikelihood - top)
	}
	for i := range cands {
		cands[i].Probability = math.Exp(cands[i].LogLikelihood-top) / sum
	}
	return false
}

// MostLikely returns the index of the highest-probability candidate, lowest
// index on ties, or -1 for an empty slice.
func MostLikely(cands []Candidate) int {
	best := -1
	for i, c := range cands {
		if best < 0 || c.Probability > cands[best].Probability {
			best = i
		}
	}
	return best
}
