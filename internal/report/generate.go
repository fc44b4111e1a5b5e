package report

import (
	"context"
	"encoding/csv"
	"math/rand"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Garsondee/pathsense/internal/grid"
)

// Defaults for problem generation.
const (
	DefaultProblemCount = 15
	DefaultExtraGoals   = 5
	DefaultBuffer       = 30.0
)

// ProblemHeader is the header of a generated problem file. It names as many
// extra goal columns as maxGoals allows.
func ProblemHeader(maxGoals int) []string {
	h := []string{"map", "optcost", "numgoals", "scol", "srow", "gcol", "grow"}
	for i := 1; i <= maxGoals; i++ {
		n := strconv.Itoa(i)
		h = append(h, "goal"+n+"_col", "goal"+n+"_row")
	}
	return h
}

// Record renders the problem in the ReadProblems format.
func (p Problem) Record() []string {
	rec := []string{
		p.Map,
		formatFloat(p.OptCost),
		strconv.Itoa(len(p.Decoys)),
		strconv.Itoa(p.Start.Col), strconv.Itoa(p.Start.Row),
		strconv.Itoa(p.Goal.Col), strconv.Itoa(p.Goal.Row),
	}
	for _, d := range p.Decoys {
		rec = append(rec, strconv.Itoa(d.Col), strconv.Itoa(d.Row))
	}
	return rec
}

// GenerateProblems turns scenarios on g into recognition problems. Each
// scenario is kept with probability n/len(scens), scenarios whose optimum is
// below buffer are skipped, and every kept one gets between 2 and maxGoals
// extra goals drawn from the passable cells other than its start and goal.
// At most n problems are returned. maxGoals is capped so a problem fits a
// recognition row.
func GenerateProblems(g *grid.Grid, mapName string, scens []Scenario, n, maxGoals int, buffer float64, rng *rand.Rand) []Problem {
	if n <= 0 || len(scens) == 0 {
		return nil
	}
	maxGoals = min(maxGoals, MaxGoals-1)
	minGoals := min(2, maxGoals)
	keep := float64(n) / float64(len(scens))
	pool := g.Passable()

	var out []Problem
	for _, sc := range scens {
		if len(out) == n {
			break
		}
		if rng.Float64() > keep || sc.Optimum < buffer {
			continue
		}
		p := Problem{Map: mapName, OptCost: sc.Optimum, Start: sc.Start, Goal: sc.Goal}
		want := minGoals
		if maxGoals > minGoals {
			want += rng.Intn(maxGoals - minGoals + 1)
		}
		taken := map[grid.Coord]bool{sc.Start: true, sc.Goal: true}
		for _, i := range rng.Perm(len(pool)) {
			if len(p.Decoys) == want {
				break
			}
			if c := pool[i]; !taken[c] {
				taken[c] = true
				p.Decoys = append(p.Decoys, c)
			}
		}
		out = append(out, p)
	}
	return out
}

// Problems generates recognition problems for the map named mapName from
// scens and writes them as a problem file.
func (r *Runner) Problems(ctx context.Context, mapName string, scens []Scenario, n, maxGoals int, buffer float64, w *csv.Writer) error {
	_, span := tracer.Start(ctx, "report.GenerateProblems",
		trace.WithAttributes(
			attribute.String("map", mapName),
			attribute.Int("scenarios", len(scens)),
			attribute.Int("count", n),
		),
	)
	defer span.End()

	g, _, err := r.gridFor(mapName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	rng := rand.New(rand.NewSource(r.seed)) // #nosec G404 -- reproducible sampling, not security
	problems := GenerateProblems(g, mapName, scens, n, maxGoals, buffer, rng)

	if err := r.writeRunID(w); err != nil {
		return err
	}
	if err := w.Write(ProblemHeader(min(maxGoals, MaxGoals-1))); err != nil {
		return err
	}
	for _, p := range problems {
		if err := w.Write(p.Record()); err != nil {
			return err
		}
	}
	w.Flush()
	r.logger.Info("problems generated", "map", mapName, "scenarios", len(scens), "problems", len(problems))
	return w.Error()
}
