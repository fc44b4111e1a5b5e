package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Garsondee/pathsense/internal/deceive"
)

// DeceptionHeader is the header of a deception CSV.
func DeceptionHeader() []string {
	h := []string{"map", "start", "strategy", "cost", "time"}
	for _, d := range deceive.Densities {
		h = append(h, strconv.Itoa(d))
	}
	return h
}

// DeceptionRow is one planned path with its truthfulness samples.
type DeceptionRow struct {
	Problem  Problem
	Plan     deceive.Plan
	Truthful []bool
}

// Record renders the row in header order. Unreachable goals leave the
// truthfulness columns empty.
func (row DeceptionRow) Record() []string {
	rec := []string{
		row.Problem.Map,
		row.Problem.Start.String(),
		strconv.Itoa(int(row.Plan.Strategy)),
		formatFloat(row.Plan.Cost),
		formatSeconds(row.Plan.Elapsed),
	}
	for i := range deceive.Densities {
		if i < len(row.Truthful) {
			rec = append(rec, strconv.FormatBool(row.Truthful[i]))
		} else {
			rec = append(rec, "")
		}
	}
	return rec
}

// Deception plans every problem with every configured strategy and writes
// one row per plan to w.
func (r *Runner) Deception(ctx context.Context, problems []Problem, w *csv.Writer) error {
	if err := r.writeRunID(w); err != nil {
		return err
	}
	if err := w.Write(DeceptionHeader()); err != nil {
		return err
	}
	for i, p := range problems {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := r.deceiveProblem(ctx, p)
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
	r.logger.Info("deception batch complete", "problems", len(problems))
	return nil
}

func (r *Runner) deceiveProblem(ctx context.Context, p Problem) ([]DeceptionRow, error) {
	_, span := tracer.Start(ctx, "report.DeceiveProblem",
		trace.WithAttributes(
			attribute.String("map", p.Map),
			attribute.String("start", p.Start.String()),
			attribute.Int("decoys", len(p.Decoys)),
		),
	)
	defer span.End()

	_, o, err := r.gridFor(p.Map)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	planner, err := deceive.New(o, p.Start, p.Goals(), deceive.WithRMPRule(r.rmp), deceive.WithLogger(r.logger))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	rows := make([]DeceptionRow, 0, len(r.strategies))
	for _, s := range r.strategies {
		pl := planner.Plan(s)
		rows = append(rows, DeceptionRow{Problem: p, Plan: pl, Truthful: planner.Truthfulness(pl.Path)})
	}
	span.SetStatus(codes.Ok, "")
	return rows, nil
}
