// Package report runs evaluation batches (goal recognition, deceptive path
// planning and scenario runs) over problem files and writes CSV rows.
package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/mapfile"
	"github.com/Garsondee/pathsense/internal/oracle"
	"github.com/Garsondee/pathsense/internal/recognize"
)

var tracer = otel.Tracer("pathsense.report")

// DefaultTimeout bounds one recognition call.
const DefaultTimeout = 180 * time.Second

// MapLoader resolves a map name from a problem file to a grid.
type MapLoader func(name string) (*grid.Grid, error)

// Runner holds batch settings and the most recently loaded map.
type Runner struct {
	load       MapLoader
	logger     *slog.Logger
	runID      string
	timeout    time.Duration
	seed       int64
	formulas   []recognize.Formula
	strategies []deceive.Strategy
	avoid      oracle.AvoidVariant
	offset     float64
	rmp        deceive.RMPRule
	gridOpts   []grid.Option

	mapName string
	grid    *grid.Grid
	oracle  *oracle.Oracle
}

// Option configures a Runner.
type Option func(*Runner)

// WithMapDir loads problem maps from dir.
func WithMapDir(dir string) Option {
	return func(r *Runner) {
		r.load = func(name string) (*grid.Grid, error) {
			return mapfile.Load(filepath.Join(dir, name), "", r.gridOpts...)
		}
	}
}

// WithMapLoader replaces the map loader.
func WithMapLoader(fn MapLoader) Option {
	return func(r *Runner) { r.load = fn }
}

// WithTimeout bounds each recognition call.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithSeed seeds random observation sampling.
func WithSeed(seed int64) Option {
	return func(r *Runner) { r.seed = seed }
}

// WithFormulas restricts the recognition formulas.
func WithFormulas(fs ...recognize.Formula) Option {
	return func(r *Runner) { r.formulas = fs }
}

// WithStrategies restricts the deception strategies.
func WithStrategies(ss ...deceive.Strategy) Option {
	return func(r *Runner) { r.strategies = ss }
}

// WithAvoidVariant selects the subpath-avoidance rule of the complex formula.
func WithAvoidVariant(v oracle.AvoidVariant) Option {
	return func(r *Runner) { r.avoid = v }
}

// WithMinimalOffset overrides the minimal-2 offset.
func WithMinimalOffset(off float64) Option {
	return func(r *Runner) { r.offset = off }
}

// WithRMPRule selects the decoy deceptive strategies measure RMP against.
func WithRMPRule(rule deceive.RMPRule) Option {
	return func(r *Runner) { r.rmp = rule }
}

// WithGridOptions applies movement options to every map the default loader
// reads.
func WithGridOptions(opts ...grid.Option) Option {
	return func(r *Runner) { r.gridOpts = append(r.gridOpts, opts...) }
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithLogger sets the logger; nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New builds a Runner. Maps load from the working directory unless
// WithMapDir or WithMapLoader is given.
func New(opts ...Option) *Runner {
	r := &Runner{
		timeout:    DefaultTimeout,
		seed:       1,
		offset:     recognize.MinimalOffset,
		formulas:   recognize.Formulas,
		strategies: deceive.Strategies,
	}
	WithMapDir(".")(r)
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = r.logger.With("run_id", r.runID)
	return r
}

// RunID identifies this runner's output.
func (r *Runner) RunID() string { return r.runID }

// gridFor returns the grid for name, reusing the last one when the name
// repeats.
func (r *Runner) gridFor(name string) (*grid.Grid, *oracle.Oracle, error) {
	if r.grid != nil && r.mapName == name {
		return r.grid, r.oracle, nil
	}
	g, err := r.load(name)
	if err != nil {
		return nil, nil, fmt.Errorf("load map %s: %w", name, err)
	}
	r.mapName, r.grid = name, g
	r.oracle = oracle.New(g, oracle.WithKeys(g.AllKeys()), oracle.WithLogger(r.logger))
	r.logger.Info("map loaded", "map", name, "width", g.Width(), "height", g.Height())
	return r.grid, r.oracle, nil
}

// writeRunID writes the comment row that tags a CSV with the run ID.
func (r *Runner) writeRunID(w *csv.Writer) error {
	return w.Write([]string{"# run " + r.runID})
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}
