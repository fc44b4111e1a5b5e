package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/sim"
)

// ScenarioHeader is the header of a scenario-run CSV.
func ScenarioHeader() []string {
	return []string{"agent", "no", "map", "startx", "starty", "goalx", "goaly", "optimum", "actual", "steps", "time_taken", "quality"}
}

// ScenarioRow is the averaged outcome of running one scenario.
type ScenarioRow struct {
	Agent    string
	No       int
	Scenario Scenario
	Status   sim.Status
	Actual   float64 // rounded to 2 decimals, as MovingAI optima are
	Steps    int
	Time     time.Duration
}

// Quality is optimum/actual, or 0 when the actual cost is 0 or infinite.
func (row ScenarioRow) Quality() float64 {
	if row.Actual == 0 || math.IsInf(row.Actual, 0) {
		return 0
	}
	return row.Scenario.Optimum / row.Actual
}

// Record renders the row in header order.
func (row ScenarioRow) Record() []string {
	s := row.Scenario
	return []string{
		row.Agent,
		strconv.Itoa(row.No),
		filepath.Base(s.Map),
		strconv.Itoa(s.Start.Col),
		strconv.Itoa(s.Start.Row),
		strconv.Itoa(s.Goal.Col),
		strconv.Itoa(s.Goal.Row),
		formatFloat(s.Optimum),
		formatFloat(row.Actual),
		strconv.Itoa(row.Steps),
		formatSeconds(row.Time),
		strconv.FormatFloat(row.Quality(), 'f', 6, 64),
	}
}

// AgentFactory builds a fresh agent for one scenario.
type AgentFactory func() (agent.Agent, error)

// Scenarios drives an agent through every scenario reps times, writing the
// averaged result per scenario. Runs that do not arrive are written with
// infinite cost.
func (r *Runner) Scenarios(ctx context.Context, name string, mk AgentFactory, scens []Scenario, reps int, w *csv.Writer, opts ...sim.Option) error {
	if reps <= 0 {
		reps = 1
	}
	if err := r.writeRunID(w); err != nil {
		return err
	}
	if err := w.Write(ScenarioHeader()); err != nil {
		return err
	}
	for i, sc := range scens {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := r.runScenario(ctx, name, mk, sc, reps, opts)
		if err != nil {
			return fmt.Errorf("scenario %d: %w", i+1, err)
		}
		row.No = i + 1
		if err := w.Write(row.Record()); err != nil {
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	r.logger.Info("scenario batch complete", "agent", name, "scenarios", len(scens))
	return nil
}

func (r *Runner) runScenario(ctx context.Context, name string, mk AgentFactory, sc Scenario, reps int, opts []sim.Option) (ScenarioRow, error) {
	ctx, span := tracer.Start(ctx, "report.RunScenario",
		trace.WithAttributes(
			attribute.String("map", sc.Map),
			attribute.String("agent", name),
			attribute.Float64("optimum", sc.Optimum),
		),
	)
	defer span.End()

	fail := func(err error) (ScenarioRow, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScenarioRow{}, err
	}
	g, _, err := r.gridFor(filepath.Base(sc.Map))
	if err != nil {
		return fail(err)
	}
	a, err := mk()
	if err != nil {
		return fail(err)
	}
	row := ScenarioRow{Agent: name, Scenario: sc}
	var spent time.Duration
	for i := 0; i < reps; i++ {
		s, err := sim.New(g, a, sc.Start, sc.Goal, append([]sim.Option{sim.WithLogger(r.logger)}, opts...)...)
		if err != nil {
			return fail(err)
		}
		st, err := s.Run(ctx)
		if err != nil && st != sim.StatusFaulted {
			return fail(err)
		}
		spent += s.Spent()
		row.Status, row.Steps = st, s.Steps()
		row.Actual = math.Inf(1)
		if st == sim.StatusArrived {
			row.Actual = math.Round(s.Cost()*100) / 100
		}
	}
	row.Time = spent / time.Duration(reps)
	span.SetAttributes(attribute.String("status", row.Status.String()))
	span.SetStatus(codes.Ok, "")
	return row, nil
}
