// Package agent defines the step-wise agent protocol used by the simulation
// driver and a set of agents implementing it.
package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/search"
)

var (
	// ErrFault is returned when an agent misbehaves (including panics).
	ErrFault = errors.New("agent fault")
	// ErrTimeout is returned when an agent is asked to move with no time left.
	ErrTimeout = errors.New("agent timed out")
)

// Unlimited is the time budget used when no deadline is set.
const Unlimited = time.Duration(math.MaxInt64)

// Tag identifies what a draw list shows.
type Tag int

const (
	TagClosed Tag = iota
	TagOpen
	TagPath
	TagExtra
)

func (t Tag) String() string {
	switch t {
	case TagClosed:
		return "closed"
	case TagOpen:
		return "open"
	case TagPath:
		return "path"
	case TagExtra:
		return "extra"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// DrawList is a set of cells the viewer should highlight.
type DrawList struct {
	Tag   Tag
	Cells []grid.Coord
}

// Step is an agent's answer to one Next call.
type Step struct {
	Next   grid.Coord
	NoMove bool       // the agent has no move to make; terminal for the run
	Draw   []DrawList // optional working lists, usually on the first step only
}

// Agent produces one move per call.
type Agent interface {
	// Reset drops any stored plan.
	Reset()
	// Next returns the move from current toward goal. remaining is the
	// caller's time budget; a non-positive budget yields ErrTimeout.
	Next(g *grid.Grid, current, goal grid.Coord, remaining time.Duration) (Step, error)
}

// Call invokes a.Next, converting a panic into ErrFault.
func Call(a Agent, g *grid.Grid, current, goal grid.Coord, remaining time.Duration) (step Step, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrFault, r)
		}
	}()
	return a.Next(g, current, goal, remaining)
}

type settings struct {
	weight   float64
	draw     bool
	seed     int64
	keys     []grid.Coord
	decoys   []grid.Coord
	strategy deceive.Strategy
	rmp      deceive.RMPRule
	logger   *slog.Logger
}

// Option configures an agent.
type Option func(*settings)

// WithWeight sets the Pohl weight for planning agents.
func WithWeight(w float64) Option {
	return func(s *settings) { s.weight = w }
}

// WithDraw makes planning agents attach working lists to their first step.
func WithDraw(on bool) Option {
	return func(s *settings) { s.draw = on }
}

// WithSeed seeds the random agent.
func WithSeed(seed int64) Option {
	return func(s *settings) { s.seed = seed }
}

// WithKeys sets the keys an agent holds while moving.
func WithKeys(keys []grid.Coord) Option {
	return func(s *settings) { s.keys = append([]grid.Coord(nil), keys...) }
}

// WithDecoys sets the decoy goals for deceptive agents.
func WithDecoys(decoys []grid.Coord) Option {
	return func(s *settings) { s.decoys = append([]grid.Coord(nil), decoys...) }
}

// WithStrategy sets the deceptive strategy.
func WithStrategy(st deceive.Strategy) Option {
	return func(s *settings) { s.strategy = st }
}

// WithRMPRule selects how deceptive agents measure RMP.
func WithRMPRule(r deceive.RMPRule) Option {
	return func(s *settings) { s.rmp = r }
}

// WithLogger sets the logger; nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	s := settings{weight: search.DefaultWeight, seed: 1, strategy: deceive.StrategyDeceptile}
	for _, o := range opts {
		o(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

var registry = map[string]func(opts ...Option) Agent{
	"astar":     func(opts ...Option) Agent { return NewAStar(opts...) },
	"weighted":  func(opts ...Option) Agent { return NewPlanner(opts...) },
	"random":    func(opts ...Option) Agent { return NewRandom(opts...) },
	"right":     func(opts ...Option) Agent { return NewRight(opts...) },
	"deceptive": func(opts ...Option) Agent { return NewDeceptive(opts...) },
}

// Names lists the registered agent names.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New builds a registered agent by name. Aliases from older configs
// ("agent_astar", "wa", "ds1".."ds3") are accepted.
func New(name string, opts ...Option) (Agent, error) {
	n := strings.TrimPrefix(strings.ToLower(name), "agent_")
	switch n {
	case "wa":
		n = "weighted"
	case "ds1", "ds2", "ds3":
		st, _ := deceive.ParseStrategy(n)
		opts = append(opts, WithStrategy(st))
		n = "deceptive"
	}
	mk, ok := registry[n]
	if !ok {
		return nil, fmt.Errorf("%w: unknown agent %q", ErrFault, name)
	}
	return mk(opts...), nil
}
