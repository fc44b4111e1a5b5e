package search

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/pathsense/internal/grid"
)

func mustGrid(t *testing.T, rows []string, opts ...grid.Option) *grid.Grid {
	t.Helper()
	g, err := grid.New(rows, opts...)
	require.NoError(t, err)
	return g
}

var open5 = []string{
	"GGGGG",
	"GGGGG",
	"GGGGG",
	"GGGGG",
	"GGGGG",
}

func TestSearch_FourWayManhattan(t *testing.T) {
	g := mustGrid(t, open5, grid.WithDiagonal(false), grid.WithHeuristic(grid.HeuristicManhattan))
	res := Search(g, grid.C(0, 0), grid.C(4, 4))
	require.True(t, res.Found())
	assert.InDelta(t, 8.0, res.Cost, 1e-9)
	require.Len(t, res.Path, 9)
	assert.Equal(t, grid.C(0, 0), res.Path[0])
	assert.Equal(t, grid.C(4, 4), res.Path[8])
	assert.InDelta(t, res.Cost, g.PathCost(res.Path, nil), 1e-9)
}

func TestSearch_EightWayMixed(t *testing.T) {
	g := mustGrid(t, open5)
	res := Search(g, grid.C(0, 0), grid.C(4, 4))
	require.True(t, res.Found())
	assert.InDelta(t, 4*math.Sqrt2, res.Cost, 1e-9)
	assert.Len(t, res.Path, 5)
}

func TestSearch_DoorNeedsKey(t *testing.T) {
	// Wall down column 2 except the door at (2,2).
	g := mustGrid(t, []string{
		"GGTGG",
		"GGTGG",
		"GGGGG",
		"GGTGG",
		"GGTGG",
	}, grid.WithKeys(map[grid.Coord][]grid.Coord{grid.C(0, 0): {grid.C(2, 2)}}))

	locked := Search(g, grid.C(0, 2), grid.C(4, 2))
	assert.False(t, locked.Found())
	assert.Empty(t, locked.Path)

	open := Search(g, grid.C(0, 2), grid.C(4, 2), WithKeys([]grid.Coord{grid.C(0, 0)}))
	require.True(t, open.Found())
	assert.InDelta(t, 4.0, open.Cost, 1e-9)
	assert.Contains(t, open.Path, grid.C(2, 2))
}

func TestSearch_StartIsGoal(t *testing.T) {
	g := mustGrid(t, open5)
	res := Search(g, grid.C(2, 2), grid.C(2, 2))
	assert.Equal(t, 0.0, res.Cost)
	assert.Equal(t, []grid.Coord{grid.C(2, 2)}, res.Path)
}

func TestSearch_NoPath(t *testing.T) {
	g := mustGrid(t, []string{
		"GTG",
		"TTG",
		"GGG",
	})
	res := Search(g, grid.C(0, 0), grid.C(2, 2))
	if res.Found() {
		t.Fatalf("expected no path, got cost %v path %v", res.Cost, res.Path)
	}
	assert.True(t, math.IsInf(res.Cost, 1))
	assert.Nil(t, res.Path)
}

func TestSearch_CostOnly(t *testing.T) {
	g := mustGrid(t, open5)
	res := Search(g, grid.C(0, 0), grid.C(4, 0), WithoutPath())
	assert.InDelta(t, 4.0, res.Cost, 1e-9)
	assert.Nil(t, res.Path)
}

func TestSearch_SymmetricUnderMixed(t *testing.T) {
	g := mustGrid(t, []string{
		"GGGTG",
		"GTGTG",
		"GTGGG",
		"GTTTG",
		"GGGGG",
	})
	pairs := [][2]grid.Coord{
		{grid.C(0, 0), grid.C(4, 0)},
		{grid.C(2, 1), grid.C(4, 4)},
		{grid.C(0, 4), grid.C(2, 0)},
	}
	for _, p := range pairs {
		ab := Search(g, p[0], p[1], WithoutPath())
		ba := Search(g, p[1], p[0], WithoutPath())
		assert.InDelta(t, ab.Cost, ba.Cost, 1e-9, "%s <-> %s", p[0], p[1])
	}
}

func TestSearch_AsymmetricUnderMixedReal(t *testing.T) {
	g := mustGrid(t, []string{"GSG"},
		grid.WithCosts(map[grid.Terrain]float64{grid.TerrainSwamp: 2}),
		grid.WithCostModel(grid.CostMixedReal),
		grid.WithPairCost(grid.TerrainGround, grid.TerrainSwamp, false, 5),
	)
	ab := Search(g, grid.C(0, 0), grid.C(2, 0))
	ba := Search(g, grid.C(2, 0), grid.C(0, 0))
	assert.InDelta(t, 6.0, ab.Cost, 1e-9)
	assert.InDelta(t, 6.0, ba.Cost, 1e-9)

	half := Search(g, grid.C(0, 0), grid.C(1, 0))
	back := Search(g, grid.C(1, 0), grid.C(0, 0))
	assert.InDelta(t, 5.0, half.Cost, 1e-9)
	assert.InDelta(t, 1.0, back.Cost, 1e-9)
}

func TestSearch_HeuristicAdmissible(t *testing.T) {
	rows := []string{
		"GGGGGGGG",
		"GTTTTTGG",
		"GGGGGTGG",
		"GGTGGTGG",
		"GGTGGGGG",
		"GGTTTTTG",
		"GGGGGGGG",
	}
	cases := []struct {
		name string
		opts []grid.Option
	}{
		{"euclid8", []grid.Option{grid.WithHeuristic(grid.HeuristicEuclid)}},
		{"octile8", []grid.Option{grid.WithHeuristic(grid.HeuristicOctile)}},
		{"manhattan4", []grid.Option{grid.WithHeuristic(grid.HeuristicManhattan), grid.WithDiagonal(false)}},
	}
	goal := grid.C(7, 6)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := mustGrid(t, rows, tc.opts...)
			for _, c := range g.Passable() {
				res := Search(g, c, goal, WithoutPath())
				if !res.Found() {
					continue
				}
				if h := g.Heuristic(c, goal); h > res.Cost+1e-9 {
					t.Fatalf("h(%s)=%v exceeds true cost %v", c, h, res.Cost)
				}
			}
		})
	}
}

func TestSearch_Deterministic(t *testing.T) {
	g := mustGrid(t, open5)
	first := Search(g, grid.C(0, 0), grid.C(4, 2))
	for i := 0; i < 10; i++ {
		again := Search(g, grid.C(0, 0), grid.C(4, 2))
		require.Equal(t, first.Path, again.Path)
	}
}

func TestSearch_WeightedStillValid(t *testing.T) {
	g := mustGrid(t, []string{
		"GGGGGG",
		"GTTTTG",
		"GGGGTG",
		"GTGGTG",
		"GGGGGG",
	})
	opt := Search(g, grid.C(0, 0), grid.C(5, 4))
	for _, w := range []float64{0, 0.6, 1} {
		res := Search(g, grid.C(0, 0), grid.C(5, 4), WithWeight(w))
		require.True(t, res.Found(), "w=%v", w)
		assert.InDelta(t, res.Cost, g.PathCost(res.Path, nil), 1e-9)
		assert.GreaterOrEqual(t, res.Cost+1e-9, opt.Cost)
	}
	zero := Search(g, grid.C(0, 0), grid.C(5, 4), WithWeight(0))
	assert.InDelta(t, opt.Cost, zero.Cost, 1e-9)
}

func TestSearch_Workings(t *testing.T) {
	g := mustGrid(t, open5)
	res := Search(g, grid.C(0, 0), grid.C(4, 4), WithWorkings())
	require.NotEmpty(t, res.Closed)
	assert.Equal(t, grid.C(0, 0), res.Closed[0])
	assert.Equal(t, grid.C(4, 4), res.Closed[len(res.Closed)-1])
	for _, c := range res.Open {
		assert.NotContains(t, res.Closed, c)
	}
}

func TestSearch_Metrics(t *testing.T) {
	g := mustGrid(t, []string{"GTG"})
	before := testutil.ToFloat64(searchTotal.WithLabelValues(outcomeNoPath))
	Search(g, grid.C(0, 0), grid.C(2, 0))
	assert.Equal(t, before+1, testutil.ToFloat64(searchTotal.WithLabelValues(outcomeNoPath)))
}

func TestQueue_TieBreak(t *testing.T) {
	var q Queue[string]
	q.Push("late-high-g", 5, 3, nil)
	q.Push("low-g", 5, 1, nil)
	q.Push("same-as-low-g", 5, 1, nil)
	q.Push("best-f", 4, 4, nil)
	var got []string
	for q.Len() > 0 {
		got = append(got, q.Pop().State)
	}
	assert.Equal(t, []string{"best-f", "low-g", "same-as-low-g", "late-high-g"}, got)
	assert.Nil(t, q.Pop())
}
