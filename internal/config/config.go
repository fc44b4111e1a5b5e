// Package config loads the simulator configuration and dynamic-change
// scripts from YAML and validates them.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
	"github.com/Garsondee/pathsense/internal/recognize"
	"github.com/Garsondee/pathsense/internal/report"
	"github.com/Garsondee/pathsense/internal/sim"
)

// ErrInvalidConfig is returned for configs that fail to parse or validate.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Point is a (col, row) pair written as a two-element YAML sequence.
type Point [2]int

// Coord converts the point to a grid coordinate.
func (p Point) Coord() grid.Coord { return grid.C(p[0], p[1]) }

// Config mirrors the simulator's settings. Times are in seconds.
type Config struct {
	Agent     string  `yaml:"agent" validate:"required"`
	MapFile   string  `yaml:"map_file" validate:"required"`
	CostFile  string  `yaml:"cost_file"`
	Start     Point   `yaml:"start"`
	Goal      Point   `yaml:"goal"`
	Decoys    []Point `yaml:"decoys"`
	Deadline  float64 `yaml:"deadline" validate:"gte=0"`
	FreeTime  float64 `yaml:"free_time" validate:"gte=0"`
	Heuristic string  `yaml:"heuristic" validate:"oneof=euclid manhattan octile"`
	Diagonal  bool    `yaml:"diagonal"`
	CostModel string  `yaml:"cost_model" validate:"oneof=mixed mixed_opt1 mixed_opt2 mixed_real"`
	Strict    bool    `yaml:"strict"`
	Realtime  bool    `yaml:"realtime"`
	Script    string  `yaml:"script"`
	Speed     float64 `yaml:"speed" validate:"gte=0"`
	Weight    float64 `yaml:"weight" validate:"gte=0,lte=1"`
	Strategy  string  `yaml:"strategy" validate:"omitempty,oneof=direct ds1 ds2 ds3"`
	Seed      int64   `yaml:"seed"`
	MaxSteps  int     `yaml:"max_steps" validate:"gte=0"`
	Draw      bool    `yaml:"draw"`

	// Variant selectors shared by runs and batches.
	StrictCorners bool    `yaml:"strict_corners"`
	RMP           string  `yaml:"rmp" validate:"omitempty,oneof=closest minimum"`
	AvoidVariant  string  `yaml:"avoid_variant" validate:"omitempty,oneof=full_match last_index"`
	MinimalOffset float64 `yaml:"minimal_offset" validate:"gte=0"`
}

// Default returns the built-in settings: euclid heuristic, diagonal moves,
// mixed costs, strict moves and no deadline.
func Default() Config {
	return Config{
		Agent:     "astar",
		Heuristic: "euclid",
		Diagonal:  true,
		CostModel: "mixed",
		Strict:    true,
		Speed:     10,
		Weight:    0.5,
		Strategy:  "ds3",
		Seed:      1,

		RMP:           "closest",
		AvoidVariant:  "full_match",
		MinimalOffset: recognize.MinimalOffset,
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses the config at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return Parse(data)
}

// Validate checks struct tags and the agent name.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := agent.New(c.Agent); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DeadlineDuration is the deadline as a duration; zero means unlimited.
func (c Config) DeadlineDuration() time.Duration { return seconds(c.Deadline) }

// FreeTimeDuration is the free-time threshold as a duration.
func (c Config) FreeTimeDuration() time.Duration { return seconds(c.FreeTime) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// GridOptions translates the movement settings into grid options.
func (c Config) GridOptions() ([]grid.Option, error) {
	h, err := grid.ParseHeuristic(c.Heuristic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	m, err := grid.ParseCostModel(c.CostModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return []grid.Option{
		grid.WithHeuristic(h),
		grid.WithCostModel(m),
		grid.WithDiagonal(c.Diagonal),
		grid.WithStrictCorners(c.StrictCorners),
	}, nil
}

// PlannerOptions translates the deception settings into planner options.
func (c Config) PlannerOptions() ([]deceive.Option, error) {
	rule, err := deceive.ParseRMPRule(c.RMP)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return []deceive.Option{deceive.WithRMPRule(rule)}, nil
}

// ReportOptions translates the movement, recognition and deception settings
// into batch runner options.
func (c Config) ReportOptions() ([]report.Option, error) {
	gopts, err := c.GridOptions()
	if err != nil {
		return nil, err
	}
	rule, err := deceive.ParseRMPRule(c.RMP)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	avoid, err := oracle.ParseAvoidVariant(c.AvoidVariant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return []report.Option{
		report.WithGridOptions(gopts...),
		report.WithRMPRule(rule),
		report.WithAvoidVariant(avoid),
		report.WithMinimalOffset(c.MinimalOffset),
		report.WithSeed(c.Seed),
	}, nil
}

// DecoyCoords converts the decoys to coordinates.
func (c Config) DecoyCoords() []grid.Coord {
	out := make([]grid.Coord, len(c.Decoys))
	for i, d := range c.Decoys {
		out[i] = d.Coord()
	}
	return out
}

// NewAgent builds the configured agent.
func (c Config) NewAgent(opts ...agent.Option) (agent.Agent, error) {
	base := []agent.Option{
		agent.WithWeight(c.Weight),
		agent.WithSeed(c.Seed),
		agent.WithDraw(c.Draw),
		agent.WithDecoys(c.DecoyCoords()),
	}
	rule, err := deceive.ParseRMPRule(c.RMP)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	base = append(base, agent.WithRMPRule(rule))
	if c.Strategy != "" {
		st, err := deceive.ParseStrategy(c.Strategy)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		base = append(base, agent.WithStrategy(st))
	}
	return agent.New(c.Agent, append(base, opts...)...)
}

// SimOptions translates the run settings into simulation options.
func (c Config) SimOptions() []sim.Option {
	return []sim.Option{
		sim.WithDeadline(c.DeadlineDuration()),
		sim.WithFreeTime(c.FreeTimeDuration()),
		sim.WithRealtime(c.Realtime),
		sim.WithStrict(c.Strict),
		sim.WithMaxSteps(c.MaxSteps),
	}
}
