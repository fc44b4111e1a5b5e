package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/config"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/mapfile"
	"github.com/Garsondee/pathsense/internal/sim"
)

// worldFlags select the map and the problem on it. Every field overrides
// the config file only when its flag was given.
type worldFlags struct {
	configPath string
	mapFile    string
	costFile   string
	start      string
	goal       string
	decoys     []string
	heuristic  string
	costModel  string
	diagonal   bool
	corners    bool
	rmp        string
}

func (f *worldFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML config file")
	fl.StringVar(&f.mapFile, "map", "", "map file")
	fl.StringVar(&f.costFile, "cost", "", "terrain cost file")
	fl.StringVar(&f.start, "start", "", "start cell as col,row")
	fl.StringVar(&f.goal, "goal", "", "goal cell as col,row")
	fl.StringArrayVar(&f.decoys, "decoy", nil, "decoy goal as col,row (repeatable)")
	fl.StringVar(&f.heuristic, "heuristic", "euclid", "heuristic: euclid, manhattan, octile")
	fl.StringVar(&f.costModel, "cost-model", "mixed", "cost model: mixed, mixed_opt1, mixed_opt2, mixed_real")
	fl.BoolVar(&f.diagonal, "diagonal", true, "allow diagonal moves")
	fl.BoolVar(&f.corners, "strict-corners", false, "block diagonals past any impassable corner")
	fl.StringVar(&f.rmp, "rmp", "closest", "decoy RMP is measured against: closest, minimum")
}

// apply layers the given flags over cfg.
func (f *worldFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("map") {
		cfg.MapFile = f.mapFile
	}
	if fl.Changed("cost") {
		cfg.CostFile = f.costFile
	}
	if fl.Changed("start") {
		p, err := parsePoint(f.start)
		if err != nil {
			return err
		}
		cfg.Start = p
	}
	if fl.Changed("goal") {
		p, err := parsePoint(f.goal)
		if err != nil {
			return err
		}
		cfg.Goal = p
	}
	if fl.Changed("decoy") {
		ps, err := parsePoints(f.decoys)
		if err != nil {
			return err
		}
		cfg.Decoys = ps
	}
	if fl.Changed("heuristic") {
		cfg.Heuristic = f.heuristic
	}
	if fl.Changed("cost-model") {
		cfg.CostModel = f.costModel
	}
	if fl.Changed("diagonal") {
		cfg.Diagonal = f.diagonal
	}
	if fl.Changed("strict-corners") {
		cfg.StrictCorners = f.corners
	}
	if fl.Changed("rmp") {
		cfg.RMP = f.rmp
	}
	return nil
}

// loadGrid reads the configured map with the configured movement rules.
func loadGrid(cfg config.Config) (*grid.Grid, error) {
	opts, err := cfg.GridOptions()
	if err != nil {
		return nil, err
	}
	return mapfile.Load(cfg.MapFile, cfg.CostFile, opts...)
}

type runFlags struct {
	world    worldFlags
	agent    string
	script   string
	deadline float64
	freeTime float64
	weight   float64
	strategy string
	seed     int64
	maxSteps int
	strict   bool
	realtime bool
	verbose  bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive one agent from start to goal and print the run totals",
		Long: `Run loads a map, builds the configured agent and steps it toward the goal,
applying any scripted terrain, goal or agent changes on the way. The run ends
when the agent arrives, has no path, exhausts its deadline or faults.

Flags override the values read from --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSim(cmd, f)
		},
	}
	f.world.bind(cmd)
	fl := cmd.Flags()
	fl.StringVar(&f.agent, "agent", "astar", "agent: "+fmt.Sprint(agent.Names())+" or ds1, ds2, ds3, wa")
	fl.StringVar(&f.script, "script", "", "YAML script of dynamic changes")
	fl.Float64Var(&f.deadline, "deadline", 0, "time budget in seconds (0 = unlimited)")
	fl.Float64Var(&f.freeTime, "free-time", 0, "steps faster than this many seconds are free")
	fl.Float64Var(&f.weight, "weight", 0.5, "Pohl weight for the weighted agent, 0..1")
	fl.StringVar(&f.strategy, "strategy", "ds3", "deception strategy: direct, ds1, ds2, ds3")
	fl.Int64Var(&f.seed, "seed", 1, "random agent seed")
	fl.IntVar(&f.maxSteps, "max-steps", 0, "stop after this many steps (0 = no limit)")
	fl.BoolVar(&f.strict, "strict", true, "reject illegal moves instead of charging infinite cost")
	fl.BoolVar(&f.realtime, "realtime", false, "charge the agent for every step, not only the first")
	fl.BoolVar(&f.verbose, "verbose", false, "print the run log, including every move")
	return cmd
}

// load reads --config (or the defaults) and applies the flag overrides.
func (f *runFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.world.configPath != "" {
		c, err := config.Load(f.world.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = c
	}
	if err := f.world.apply(cmd, &cfg); err != nil {
		return config.Config{}, err
	}
	fl := cmd.Flags()
	if fl.Changed("agent") {
		cfg.Agent = f.agent
	}
	if fl.Changed("script") {
		cfg.Script = f.script
	}
	if fl.Changed("deadline") {
		cfg.Deadline = f.deadline
	}
	if fl.Changed("free-time") {
		cfg.FreeTime = f.freeTime
	}
	if fl.Changed("weight") {
		cfg.Weight = f.weight
	}
	if fl.Changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if fl.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fl.Changed("max-steps") {
		cfg.MaxSteps = f.maxSteps
	}
	if fl.Changed("strict") {
		cfg.Strict = f.strict
	}
	if fl.Changed("realtime") {
		cfg.Realtime = f.realtime
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *app) runSim(cmd *cobra.Command, f *runFlags) error {
	cfg, err := f.load(cmd)
	if err != nil {
		return err
	}
	g, err := loadGrid(cfg)
	if err != nil {
		return err
	}
	script, err := config.LoadScript(cfg.Script)
	if err != nil {
		return err
	}
	ag, err := cfg.NewAgent(agent.WithLogger(a.logger))
	if err != nil {
		return err
	}
	opts := append(cfg.SimOptions(),
		sim.WithScript(script),
		sim.WithLogger(a.logger),
		sim.WithVerbose(f.verbose),
	)
	run, err := sim.New(g, ag, cfg.Start.Coord(), cfg.Goal.Coord(), opts...)
	if err != nil {
		return err
	}
	a.logger.Info("run starting",
		"map", cfg.MapFile,
		"agent", cfg.Agent,
		"start", run.Start().String(),
		"goal", run.Goal().String(),
	)
	st, err := run.Run(cmd.Context())

	out := cmd.OutOrStdout()
	if f.verbose {
		fmt.Fprint(out, run.Log().Format())
	}
	fmt.Fprintf(out, "Status : %s\n", st)
	fmt.Fprintln(out, run.Summary())
	return err
}
