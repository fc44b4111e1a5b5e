package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/config"
	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/recognize"
	"github.com/Garsondee/pathsense/internal/report"
	"github.com/Garsondee/pathsense/internal/sim"
)

// batchFlags are shared by the CSV batch commands. Movement and variant
// settings come from --config when given; flags override them.
type batchFlags struct {
	input         string
	maps          string
	out           string
	seed          int64
	configPath    string
	strictCorners bool
	rmp           string
	avoid         string
	offset        float64
}

func (f *batchFlags) bind(cmd *cobra.Command, inputFlag, inputHelp string) {
	fl := cmd.Flags()
	fl.StringVar(&f.input, inputFlag, "", inputHelp)
	fl.StringVar(&f.maps, "maps", ".", "directory the map names are resolved against")
	fl.StringVar(&f.out, "out", "-", "output CSV file (- for stdout)")
	fl.Int64Var(&f.seed, "seed", 1, "random seed")
	fl.StringVar(&f.configPath, "config", "", "simulator config supplying movement and variant settings")
	fl.BoolVar(&f.strictCorners, "strict-corners", false, "block diagonals past any impassable corner")
	_ = cmd.MarkFlagRequired(inputFlag)
}

// load reads --config (or the defaults) and applies the flag overrides.
func (f *batchFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		c, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = c
	}
	fl := cmd.Flags()
	if fl.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fl.Changed("strict-corners") {
		cfg.StrictCorners = f.strictCorners
	}
	if fl.Changed("rmp") {
		cfg.RMP = f.rmp
	}
	if fl.Changed("avoid-variant") {
		cfg.AvoidVariant = f.avoid
	}
	if fl.Changed("minimal-offset") {
		if f.offset < 0 {
			return config.Config{}, fmt.Errorf("%w: negative minimal offset %v", config.ErrInvalidConfig, f.offset)
		}
		cfg.MinimalOffset = f.offset
	}
	return cfg, nil
}

func (a *app) runner(cmd *cobra.Command, f *batchFlags, opts ...report.Option) (*report.Runner, error) {
	cfg, err := f.load(cmd)
	if err != nil {
		return nil, err
	}
	base, err := cfg.ReportOptions()
	if err != nil {
		return nil, err
	}
	base = append(base,
		report.WithMapDir(f.maps),
		report.WithLogger(a.logger),
	)
	return report.New(append(base, opts...)...), nil
}

func readProblems(path string) ([]report.Problem, error) {
	fh, err := os.Open(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return report.ReadProblems(fh)
}

// writeCSV opens the output, runs fn against it and flushes.
func writeCSV(cmd *cobra.Command, path string, fn func(w *csv.Writer) error) error {
	out, closeOut, err := openOutput(cmd, path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	runErr := fn(w)
	w.Flush()
	if err := closeOut(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}
	return w.Error()
}

func newRecognizeCmd(a *app) *cobra.Command {
	f := &batchFlags{}
	var formulas []string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Run the goal recognition batch over a problem file",
		Long: `Recognize generates an observed path for every problem at each agent quality,
samples observations at each density and distribution, and writes the
posterior of every candidate goal under every formula.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := make([]recognize.Formula, 0, len(formulas))
			for _, s := range formulas {
				fm, err := recognize.ParseFormula(s)
				if err != nil {
					return err
				}
				fs = append(fs, fm)
			}
			opts := []report.Option{report.WithTimeout(timeout)}
			if len(fs) > 0 {
				opts = append(opts, report.WithFormulas(fs...))
			}
			problems, err := readProblems(f.input)
			if err != nil {
				return err
			}
			r, err := a.runner(cmd, f, opts...)
			if err != nil {
				return err
			}
			return writeCSV(cmd, f.out, func(w *csv.Writer) error {
				return r.Recognition(cmd.Context(), problems, w)
			})
		},
	}
	f.bind(cmd, "problems", "problem CSV file")
	cmd.Flags().StringArrayVar(&formulas, "formula", nil, "formula to run (repeatable; default all)")
	cmd.Flags().DurationVar(&timeout, "timeout", report.DefaultTimeout, "bound on one recognition call")
	cmd.Flags().StringVar(&f.avoid, "avoid-variant", "full_match", "subpath avoidance for the complex formula: full_match, last_index")
	cmd.Flags().Float64Var(&f.offset, "minimal-offset", recognize.MinimalOffset, "offset added by the minimal2 formula")
	return cmd
}

func newDeceiveCmd(a *app) *cobra.Command {
	f := &batchFlags{}
	var strategies []string
	cmd := &cobra.Command{
		Use:   "deceive",
		Short: "Run the deceptive path planning batch over a problem file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ss := make([]deceive.Strategy, 0, len(strategies))
			for _, s := range strategies {
				st, err := deceive.ParseStrategy(s)
				if err != nil {
					return err
				}
				ss = append(ss, st)
			}
			var opts []report.Option
			if len(ss) > 0 {
				opts = append(opts, report.WithStrategies(ss...))
			}
			problems, err := readProblems(f.input)
			if err != nil {
				return err
			}
			r, err := a.runner(cmd, f, opts...)
			if err != nil {
				return err
			}
			return writeCSV(cmd, f.out, func(w *csv.Writer) error {
				return r.Deception(cmd.Context(), problems, w)
			})
		},
	}
	f.bind(cmd, "problems", "problem CSV file")
	cmd.Flags().StringArrayVar(&strategies, "strategy", nil, "strategy to run (repeatable; default all)")
	cmd.Flags().StringVar(&f.rmp, "rmp", "closest", "decoy RMP is measured against: closest, minimum")
	return cmd
}

func newScenarioCmd(a *app) *cobra.Command {
	f := &batchFlags{}
	var (
		name     string
		reps     int
		deadline float64
		weight   float64
	)
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run an agent over a MovingAI scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := agent.New(name); err != nil {
				return err
			}
			mk := func() (agent.Agent, error) {
				return agent.New(name,
					agent.WithWeight(weight),
					agent.WithSeed(f.seed),
					agent.WithLogger(a.logger),
				)
			}
			fh, err := os.Open(f.input) // #nosec G304 -- path supplied by the operator
			if err != nil {
				return err
			}
			scens, err := report.ReadScenarios(fh)
			fh.Close()
			if err != nil {
				return err
			}
			var simOpts []sim.Option
			if deadline > 0 {
				simOpts = append(simOpts, sim.WithDeadline(time.Duration(deadline*float64(time.Second))))
			}
			r, err := a.runner(cmd, f)
			if err != nil {
				return err
			}
			return writeCSV(cmd, f.out, func(w *csv.Writer) error {
				return r.Scenarios(cmd.Context(), name, mk, scens, reps, w, simOpts...)
			})
		},
	}
	f.bind(cmd, "scen", "MovingAI scenario file")
	fl := cmd.Flags()
	fl.StringVar(&name, "agent", "astar", fmt.Sprintf("agent: %v", agent.Names()))
	fl.IntVar(&reps, "reps", 1, "runs per scenario; time is averaged")
	fl.Float64Var(&deadline, "deadline", 0, "time budget per run in seconds (0 = unlimited)")
	fl.Float64Var(&weight, "weight", 0.5, "Pohl weight for the weighted agent")
	return cmd
}

func newProblemsCmd(a *app) *cobra.Command {
	f := &batchFlags{}
	var (
		mapName  string
		count    int
		maxGoals int
		buffer   float64
	)
	cmd := &cobra.Command{
		Use:   "problems",
		Short: "Generate recognition problems from a MovingAI scenario file",
		Long: `Problems samples scenarios from a .scen file, skips those whose optimum is
below --buffer, adds 2 to --max-goals random passable extra goals to each and
writes a problem file for the recognize command.

The map defaults to the scenario file name without its .scen extension.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 || maxGoals <= 0 {
				return fmt.Errorf("%w: --count and --max-goals must be positive", config.ErrInvalidConfig)
			}
			fh, err := os.Open(f.input) // #nosec G304 -- path supplied by the operator
			if err != nil {
				return err
			}
			scens, err := report.ReadScenarios(fh)
			fh.Close()
			if err != nil {
				return err
			}
			if mapName == "" {
				mapName = strings.TrimSuffix(filepath.Base(f.input), ".scen")
			}
			r, err := a.runner(cmd, f)
			if err != nil {
				return err
			}
			return writeCSV(cmd, f.out, func(w *csv.Writer) error {
				return r.Problems(cmd.Context(), mapName, scens, count, maxGoals, buffer, w)
			})
		},
	}
	f.bind(cmd, "scen", "MovingAI scenario file")
	fl := cmd.Flags()
	fl.StringVar(&mapName, "map", "", "map name written to the problems (default: scenario file name)")
	fl.IntVar(&count, "count", report.DefaultProblemCount, "maximum number of problems")
	fl.IntVar(&maxGoals, "max-goals", report.DefaultExtraGoals, fmt.Sprintf("most extra goals per problem (at most %d)", report.MaxGoals-1))
	fl.Float64Var(&buffer, "buffer", report.DefaultBuffer, "skip scenarios with a smaller optimal cost")
	return cmd
}
