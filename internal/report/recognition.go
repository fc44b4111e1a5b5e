package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/recognize"
	"github.com/Garsondee/pathsense/internal/search"
)

// MaxGoals is the number of goal column groups in a recognition row.
const MaxGoals = 7

// TimedOut marks the time column of goals whose recognition hit the timeout.
const TimedOut = "TIMED OUT"

// NoPath marks rows whose observed path could not be generated.
const NoPath = "NO PATH"

var (
	// Qualities are the Pohl weights of the observed agent: optimal,
	// suboptimal and greedy.
	Qualities = []float64{0, 0.6, 1}
	// ObservationDensities are the observed percentages of the path.
	ObservationDensities = []int{20, 50, 80}
	// Distributions are the observation extraction modes.
	Distributions = []recognize.Distribution{recognize.DistPrefix, recognize.DistRandom}
)

// RecognitionHeader is the header of a recognition CSV.
func RecognitionHeader() []string {
	h := []string{"map", "start", "optcost", "quality", "density", "distribution", "#goals", "formula"}
	for i := 0; i < MaxGoals; i++ {
		h = append(h, "goal"+strconv.Itoa(i), "costdif", "probability", "calctime")
	}
	return append(h, "total_time")
}

// RecognitionRow is one recognition result.
type RecognitionRow struct {
	Problem      Problem
	Quality      float64
	Density      int
	Distribution recognize.Distribution
	Formula      recognize.Formula
	Candidates   []recognize.Candidate
	Total        time.Duration
	NoPath       bool
}

// Record renders the row in header order. Probabilities print with three
// decimals.
func (row RecognitionRow) Record() []string {
	p := row.Problem
	rec := []string{
		p.Map,
		p.Start.String(),
		formatFloat(p.OptCost),
		"Q_" + formatFloat(row.Quality),
	}
	if row.NoPath {
		rec = append(rec, "", "", strconv.Itoa(len(p.Decoys)+1), "", NoPath)
		for len(rec) < len(RecognitionHeader()) {
			rec = append(rec, "")
		}
		return rec
	}
	rec = append(rec,
		"D_"+strconv.Itoa(row.Density),
		row.Distribution.String(),
		strconv.Itoa(len(p.Decoys)+1),
		row.Formula.String(),
	)
	for _, c := range row.Candidates {
		t := formatSeconds(c.Elapsed)
		if c.TimedOut {
			rec = append(rec, c.Coord.String(), "", "", TimedOut)
			continue
		}
		rec = append(rec, c.Coord.String(), formatFloat(c.CostDif), strconv.FormatFloat(c.Probability, 'f', 3, 64), t)
	}
	for i := len(row.Candidates); i < MaxGoals; i++ {
		rec = append(rec, "", "", "", "")
	}
	return append(rec, formatSeconds(row.Total))
}

// Recognition runs every problem through every quality, density,
// distribution and formula, writing one row per combination to w. Map load
// failures abort the batch; everything else is recorded as a row.
func (r *Runner) Recognition(ctx context.Context, problems []Problem, w *csv.Writer) error {
	if err := r.writeRunID(w); err != nil {
		return err
	}
	if err := w.Write(RecognitionHeader()); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(r.seed)) // #nosec G404 -- reproducible sampling
	for i, p := range problems {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := r.recognizeProblem(ctx, p, rng)
		if err != nil {
			return fmt.Errorf("problem %d: %w", i+1, err)
		}
		for _, row := range rows {
			if err := w.Write(row.Record()); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	r.logger.Info("recognition batch complete", "problems", len(problems))
	return nil
}

func (r *Runner) recognizeProblem(ctx context.Context, p Problem, rng *rand.Rand) ([]RecognitionRow, error) {
	ctx, span := tracer.Start(ctx, "report.RecognizeProblem",
		trace.WithAttributes(
			attribute.String("map", p.Map),
			attribute.String("start", p.Start.String()),
			attribute.Int("goals", len(p.Decoys)+1),
		),
	)
	defer span.End()

	g, o, err := r.gridFor(p.Map)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	goals := p.Goals()
	if len(goals) > MaxGoals {
		r.logger.Warn("too many goals, extra decoys dropped", "map", p.Map, "goals", len(goals), "max", MaxGoals)
		goals = goals[:MaxGoals]
		p.Decoys = p.Decoys[:MaxGoals-1]
	}

	var rows []RecognitionRow
	for _, q := range Qualities {
		path := observedPath(g, p.Start, p.Goal, q)
		if len(path) == 0 {
			rows = append(rows, RecognitionRow{Problem: p, Quality: q, NoPath: true})
			r.logger.Warn("no observed path", "map", p.Map, "start", p.Start.String(), "goal", p.Goal.String())
			continue
		}
		for _, d := range ObservationDensities {
			for _, dist := range Distributions {
				obs := recognize.Observations(path, d, dist, rng)
				for _, f := range r.formulas {
					row := RecognitionRow{Problem: p, Quality: q, Density: d, Distribution: dist, Formula: f}
					rec := recognize.New(o,
						recognize.WithFormula(f),
						recognize.WithAvoidVariant(r.avoid),
						recognize.WithMinimalOffset(r.offset),
						recognize.WithLogger(r.logger),
					)
					cctx, cancel := context.WithTimeout(ctx, r.timeout)
					t0 := time.Now()
					cands, err := rec.Recognize(cctx, p.Start, goals, obs)
					row.Total = time.Since(t0)
					cancel()
					if err != nil && !errors.Is(err, recognize.ErrTimeout) {
						return nil, err
					}
					if err != nil {
						row.Total = r.timeout
						span.AddEvent("timeout", trace.WithAttributes(attribute.String("formula", f.String())))
					}
					row.Candidates = cands
					rows = append(rows, row)
				}
			}
		}
	}
	span.SetStatus(codes.Ok, "")
	return rows, nil
}

// observedPath is the path an agent of the given quality would take.
func observedPath(g *grid.Grid, start, goal grid.Coord, quality float64) []grid.Coord {
	res := search.Search(g, start, goal, search.WithWeight(quality), search.WithKeys(g.AllKeys()))
	if !res.Found() {
		return nil
	}
	return res.Path
}
