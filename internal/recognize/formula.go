package recognize

import (
	"fmt"
	"math"
	"strings"
)

// Formula selects how the cost difference between observed and optimal
// behaviour is computed for a goal.
type Formula int

const (
	// FormulaComplex is cost(with obs) − cost(avoiding obs).
	FormulaComplex Formula = iota
	// FormulaSimple is cost(with obs) − optimal cost.
	FormulaSimple
	// FormulaMinimal1 is cost(last obs → goal) − optimal cost.
	FormulaMinimal1
	// FormulaMinimal2 is FormulaMinimal1 plus MinimalOffset.
	FormulaMinimal2
)

// Formulas lists every formula in batch order.
var Formulas = []Formula{FormulaComplex, FormulaSimple, FormulaMinimal1, FormulaMinimal2}

const (
	// BetaRamirez is the rationality constant for complex and simple.
	BetaRamirez = 0.1
	// BetaMinimal is the rationality constant for the minimal family.
	BetaMinimal = 1.0
	// MinimalOffset is added by FormulaMinimal2 so cost differences stay in a
	// numerically comfortable range. Any constant shared by all goals works.
	MinimalOffset = 800.0
	// LegacyMinimalOffset reproduces older published runs.
	LegacyMinimalOffset = 200.0
	// CostDecimals is the rounding applied to costs before differencing.
	CostDecimals = 5
)

func (f Formula) String() string {
	switch f {
	case FormulaComplex:
		return "complex"
	case FormulaSimple:
		return "simple"
	case FormulaMinimal1:
		return "minimal1"
	case FormulaMinimal2:
		return "minimal2"
	default:
		return fmt.Sprintf("Formula(%d)", int(f))
	}
}

// Beta returns the rationality constant of the formula's family.
func (f Formula) Beta() float64 {
	if f == FormulaMinimal1 || f == FormulaMinimal2 {
		return BetaMinimal
	}
	return BetaRamirez
}

// ParseFormula accepts names ("complex", "minimal-2", ...) or indices 0..3.
func ParseFormula(s string) (Formula, error) {
	switch strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(s), "-", ""), "_", "") {
	case "complex", "0":
		return FormulaComplex, nil
	case "simple", "1":
		return FormulaSimple, nil
	case "minimal1", "minimal", "2":
		return FormulaMinimal1, nil
	case "minimal2", "3":
		return FormulaMinimal2, nil
	default:
		return FormulaComplex, fmt.Errorf("unknown formula %q", s)
	}
}

// Likelihood returns P(O|G) = r/(1+r) with r = exp(−β·Δ). Δ = −Inf gives 1;
// Δ = +Inf or NaN gives 0.
func Likelihood(delta, beta float64) float64 {
	switch {
	case math.IsNaN(delta):
		return 0
	case math.IsInf(delta, -1):
		return 1
	case math.IsInf(delta, 1):
		return 0
	}
	r := math.Exp(-beta * delta)
	if math.IsInf(r, 1) {
		return 1
	}
	return r / (1 + r)
}

// LogLikelihood is log P(O|G) = −log(1+exp(β·Δ)), computed without
// underflow so that large offsets (FormulaMinimal2) still rank goals.
func LogLikelihood(delta, beta float64) float64 {
	switch {
	case math.IsNaN(delta), math.IsInf(delta, 1):
		return math.Inf(-1)
	case math.IsInf(delta, -1):
		return 0
	}
	x := beta * delta
	if x > 0 {
		return -(x + math.Log1p(math.Exp(-x)))
	}
	return -math.Log1p(math.Exp(x))
}

// roundCost rounds to CostDecimals places. Infinities and NaN pass through.
func roundCost(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	p := math.Pow10(CostDecimals)
	return math.Round(v*p) / p
}
