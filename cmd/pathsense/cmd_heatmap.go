package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Garsondee/pathsense/internal/config"
	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
)

// Heatmap cell markers.
const (
	markStart     = '*'
	markGoal      = '!'
	markDecoy     = '?'
	markTruthful  = '+'
	markDeceptive = '-'
)

func newHeatmapCmd(a *app) *cobra.Command {
	f := &worldFlags{}
	var strategy string
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Print which cells give the real goal away",
		Long: `Heatmap classifies every passable cell as truthful (+), where the real goal
is strictly the cheapest explanation of having reached it, or deceptive (-).
The start is *, the real goal ! and decoys ?. Blocked cells keep their map
symbol. With --strategy the planned path is summarised after the grid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if f.configPath != "" {
				c, err := config.Load(f.configPath)
				if err != nil {
					return err
				}
				cfg = c
			}
			if err := f.apply(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			g, err := loadGrid(cfg)
			if err != nil {
				return err
			}
			popts, err := cfg.PlannerOptions()
			if err != nil {
				return err
			}
			o := oracle.New(g, oracle.WithKeys(g.AllKeys()), oracle.WithLogger(a.logger))
			goals := append([]grid.Coord{cfg.Goal.Coord()}, cfg.DecoyCoords()...)
			p, err := deceive.New(o, cfg.Start.Coord(), goals, append(popts, deceive.WithLogger(a.logger))...)
			if err != nil {
				return err
			}
			truthful := p.Heatmap().Build()
			if err := writeHeatmap(cmd.OutOrStdout(), g, p, truthful); err != nil {
				return err
			}
			if strategy == "" {
				return nil
			}
			st, err := deceive.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			pl := p.Plan(st)
			deceptive := 0
			for _, c := range pl.Path {
				if !p.Heatmap().IsTruthful(c) {
					deceptive++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan %s: cost %.2f, %d of %d cells deceptive, target %s\n",
				pl.Strategy, pl.Cost, deceptive, len(pl.Path), pl.Target)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&strategy, "strategy", "", "also plan with this strategy and summarise the path")
	return cmd
}

// writeHeatmap prints one character per cell and a closing count line.
func writeHeatmap(w io.Writer, g *grid.Grid, p *deceive.Planner, truthful int) error {
	marks := map[grid.Coord]byte{p.Start(): markStart}
	for i, goal := range p.Goals() {
		if i == 0 {
			marks[goal.Coord] = markGoal
		} else {
			marks[goal.Coord] = markDecoy
		}
	}
	cells := p.Heatmap().Cells()
	bw := bufio.NewWriter(w)
	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			c := grid.C(col, row)
			ch := byte(g.CellAt(c))
			if m, ok := marks[c]; ok {
				ch = m
			} else if t, ok := cells[c]; ok {
				ch = markDeceptive
				if t {
					ch = markTruthful
				}
			}
			bw.WriteByte(ch)
		}
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "truthful: %d of %d passable cells\n", truthful, len(cells))
	return bw.Flush()
}
