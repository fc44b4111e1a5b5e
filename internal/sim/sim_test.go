package sim

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/grid"
)

// fakeClock advances by tick on every reading.
type fakeClock struct {
	now  time.Time
	tick time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.tick)
	return c.now
}

func ticking(d time.Duration) Option {
	c := &fakeClock{now: time.Unix(0, 0), tick: d}
	return WithClock(c.Now)
}

// replay hands out fixed moves, then stops.
type replay struct {
	moves []grid.Coord
	i     int
}

func (r *replay) Reset() { r.i = 0 }

func (r *replay) Next(_ *grid.Grid, _, _ grid.Coord, _ time.Duration) (agent.Step, error) {
	if r.i >= len(r.moves) {
		return agent.Step{NoMove: true}, nil
	}
	m := r.moves[r.i]
	r.i++
	return agent.Step{Next: m}, nil
}

type faulty struct{}

func (faulty) Reset() {}
func (faulty) Next(*grid.Grid, grid.Coord, grid.Coord, time.Duration) (agent.Step, error) {
	panic("lost")
}

func openGrid(t *testing.T, w, h int) *grid.Grid {
	t.Helper()
	g, err := grid.NewFilled(w, h, grid.TerrainGround)
	require.NoError(t, err)
	return g
}

func run(t *testing.T, s *Simulation) Status {
	t.Helper()
	st, err := s.Run(context.Background())
	if st != StatusFaulted {
		require.NoError(t, err)
	}
	return st
}

func TestSimulation_Arrives(t *testing.T) {
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 0))
	require.NoError(t, err)

	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, 4, s.Steps())
	assert.InDelta(t, 4.0, s.Cost(), 1e-9)
	assert.Len(t, s.Trail(), 5)
	assert.True(t, s.Done())
	assert.True(t, s.Log().Has(CatStatus, "arrived", "Total Steps : 4"))
	assert.True(t, strings.HasPrefix(s.Summary(), "Total Cost : 4.00 | Total Steps : 4 | Time Remaining : inf"))
}

func TestSimulation_OnlyPlanningStepIsTimed(t *testing.T) {
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 0),
		WithDeadline(time.Second), ticking(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, 10*time.Millisecond, s.Spent())
	assert.Equal(t, 990*time.Millisecond, s.Remaining())
}

func TestSimulation_RealtimeTimesEveryStep(t *testing.T) {
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 0),
		WithDeadline(time.Second), WithRealtime(true), ticking(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, 40*time.Millisecond, s.Spent())
}

func TestSimulation_FreeTime(t *testing.T) {
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 0),
		WithRealtime(true), WithFreeTime(20*time.Millisecond), ticking(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, time.Duration(0), s.Spent())
}

func TestSimulation_DeadlineExhausted(t *testing.T) {
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 0),
		WithDeadline(15*time.Millisecond), WithRealtime(true), ticking(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, run(t, s))
	assert.Equal(t, 2, s.Steps())
	assert.Equal(t, grid.C(2, 0), s.Current())
}

func TestSimulation_StrictRejectsIllegalMoves(t *testing.T) {
	moves := []grid.Coord{grid.C(2, 0), grid.C(1, 0), grid.C(2, 0)}
	s, err := New(openGrid(t, 3, 1), &replay{moves: moves}, grid.C(0, 0), grid.C(2, 0))
	require.NoError(t, err)

	assert.Equal(t, StatusRunning, s.Step())
	assert.Equal(t, grid.C(0, 0), s.Current())
	assert.Equal(t, 0, s.Steps())
	assert.Equal(t, 0.0, s.Cost())
	assert.Equal(t, 1, s.Log().Count(CatMove, "illegal"))

	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, 2, s.Steps())
	assert.InDelta(t, 2.0, s.Cost(), 1e-9)
}

func TestSimulation_LenientTakesIllegalMoveAtInfiniteCost(t *testing.T) {
	s, err := New(openGrid(t, 3, 1), &replay{moves: []grid.Coord{grid.C(2, 0)}}, grid.C(0, 0), grid.C(2, 0),
		WithStrict(false))
	require.NoError(t, err)
	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, 1, s.Steps())
	assert.True(t, math.IsInf(s.Cost(), 1))
}

func TestSimulation_AgentFault(t *testing.T) {
	s, err := New(openGrid(t, 3, 3), faulty{}, grid.C(0, 0), grid.C(2, 2))
	require.NoError(t, err)
	st, err := s.Run(context.Background())
	assert.Equal(t, StatusFaulted, st)
	if !errors.Is(err, agent.ErrFault) {
		t.Fatalf("expected ErrFault, got %v", err)
	}
	assert.True(t, s.Log().Has(CatAgent, "fault", "lost"))
}

func TestSimulation_NoPath(t *testing.T) {
	g, err := grid.New([]string{"G@G", "G@G"})
	require.NoError(t, err)
	s, err := New(g, agent.NewAStar(), grid.C(0, 0), grid.C(2, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusNoPath, run(t, s))
	assert.Equal(t, 0, s.Steps())
}

func TestSimulation_TerrainScriptForcesReplan(t *testing.T) {
	g := openGrid(t, 5, 5)
	sc := Script{Terrain: map[int]TerrainChange{
		1: {Terrain: grid.TerrainObstacle, TopLeft: grid.C(2, 0), BottomRight: grid.C(2, 3)},
	}}
	a := agent.NewAStar()
	s, err := New(g, a, grid.C(0, 0), grid.C(4, 0), WithScript(sc))
	require.NoError(t, err)

	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, 2, a.Plans())
	assert.Greater(t, s.Cost(), 4.0)
	assert.NotContains(t, s.Trail(), grid.C(2, 0))
	assert.True(t, s.Log().Has(CatScript, "terrain", "(2,0)..(2,3)"))

	// The caller's grid is never edited, and Reset restores the copy.
	assert.Equal(t, grid.TerrainGround, g.CellAt(grid.C(2, 0)))
	s.Reset()
	assert.Equal(t, grid.TerrainGround, s.Grid().CellAt(grid.C(2, 0)))
	assert.Equal(t, StatusRunning, s.Status())
}

func TestSimulation_GoalScript(t *testing.T) {
	sc := Script{Goal: map[int]grid.Coord{2: grid.C(4, 4)}}
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 0), WithScript(sc))
	require.NoError(t, err)
	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, grid.C(4, 4), s.Goal())
	assert.Equal(t, grid.C(4, 4), s.Current())
}

func TestSimulation_GoalScriptSnapsToPassable(t *testing.T) {
	g, err := grid.New([]string{"GGG", "GG@"})
	require.NoError(t, err)
	sc := Script{Goal: map[int]grid.Coord{0: grid.C(2, 1)}}
	s, err := New(g, agent.NewAStar(), grid.C(0, 0), grid.C(0, 1), WithScript(sc))
	require.NoError(t, err)
	s.Step()
	assert.NotEqual(t, grid.C(2, 1), s.Goal())
	assert.True(t, s.Grid().IsPassable(s.Goal(), nil))
}

func TestSimulation_AgentDisplacementIsFree(t *testing.T) {
	sc := Script{Agent: map[int]grid.Coord{1: grid.C(0, 2)}}
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 0), WithScript(sc))
	require.NoError(t, err)
	assert.Equal(t, StatusArrived, run(t, s))
	assert.Equal(t, 4, s.Steps())
	assert.InDelta(t, 2+2*math.Sqrt2, s.Cost(), 1e-9)
	assert.Contains(t, s.Trail(), grid.C(1, 2))
	assert.Equal(t, 1, s.Log().Count(CatScript, "agent"))
}

func TestSimulation_MaxSteps(t *testing.T) {
	s, err := New(openGrid(t, 6, 6), agent.NewRandom(agent.WithSeed(3)), grid.C(0, 0), grid.C(5, 5),
		WithMaxSteps(3), WithVerbose(true))
	require.NoError(t, err)
	// The goal is five moves away, so three steps can never reach it.
	assert.Equal(t, StatusTimedOut, run(t, s))
	assert.Equal(t, 3, s.Steps())
	assert.Equal(t, 3, s.Log().Count(CatMove, "step"))
}

func TestSimulation_RunHonoursContext(t *testing.T) {
	s, err := New(openGrid(t, 5, 5), agent.NewAStar(), grid.C(0, 0), grid.C(4, 4))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := s.Run(ctx)
	assert.Equal(t, StatusRunning, st)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_OutOfBounds(t *testing.T) {
	_, err := New(openGrid(t, 2, 2), agent.NewAStar(), grid.C(5, 5), grid.C(0, 0))
	assert.ErrorIs(t, err, grid.ErrInvalidGrid)
	_, err = New(openGrid(t, 2, 2), agent.NewAStar(), grid.C(0, 0), grid.C(-1, 0))
	assert.ErrorIs(t, err, grid.ErrInvalidGrid)
}

func TestScript_Steps(t *testing.T) {
	sc := Script{
		Terrain: map[int]TerrainChange{4: {}},
		Goal:    map[int]grid.Coord{1: {}, 4: {}},
		Agent:   map[int]grid.Coord{2: {}},
	}
	assert.Equal(t, []int{1, 2, 4}, sc.Steps())
	assert.False(t, sc.Empty())
	assert.True(t, Script{}.Empty())
}

func TestLog(t *testing.T) {
	l := NewLog(false)
	l.Add(1, CatScript, "goal", "(4,4)", 0)
	l.Add(2, CatMove, "illegal", "(0,0) -> (2,0)", 0)
	l.AddVerbose(3, CatMove, "step", "(0,0) -> (1,0)", 1)
	l.Add(5, CatScript, "goal", "(1,1)", 0)

	assert.Len(t, l.Entries(), 3)
	assert.Equal(t, 2, l.Count(CatScript, ""))
	last, ok := l.LastOf(CatScript, "goal")
	require.True(t, ok)
	assert.Equal(t, 5, last.Step)
	_, ok = l.LastOf(CatStatus, "")
	assert.False(t, ok)
	assert.True(t, l.Has("", "illegal", "(2,0)"))
	assert.False(t, l.Has(CatMove, "step", ""))
	assert.Len(t, l.Tail(2), 2)
	assert.Equal(t, "[S=001] script   goal             (4,4)", l.Entries()[0].String())
	assert.Equal(t, 3, strings.Count(l.Format(), "\n"))
}
