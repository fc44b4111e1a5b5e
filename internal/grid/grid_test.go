package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open5(t *testing.T, opts ...Option) *Grid {
	t.Helper()
	g, err := NewFilled(5, 5, TerrainGround, opts...)
	require.NoError(t, err)
	return g
}

func TestNew_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		rows []string
		opts []Option
	}{
		{"empty", nil, nil},
		{"ragged", []string{"GGG", "GG"}, nil},
		{"unknown symbol", []string{"GGX"}, nil},
		{"key out of bounds", []string{"GGG"}, []Option{WithKeys(map[Coord][]Coord{C(9, 9): {C(0, 0)}})}},
		{"door out of bounds", []string{"GGG"}, []Option{WithKeys(map[Coord][]Coord{C(0, 0): {C(5, 0)}})}},
		{"negative cost", []string{"GGG"}, []Option{WithCosts(map[Terrain]float64{TerrainSwamp: -1})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.rows, tc.opts...)
			if !errors.Is(err, ErrInvalidGrid) {
				t.Fatalf("expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}

func TestGrid_CellAt_RowsAreRows(t *testing.T) {
	g, err := New([]string{
		"GT",
		"SG",
	})
	require.NoError(t, err)
	assert.Equal(t, TerrainTree, g.CellAt(C(1, 0)))
	assert.Equal(t, TerrainSwamp, g.CellAt(C(0, 1)))
	assert.Equal(t, TerrainOutOfBounds, g.CellAt(C(-1, 0)))
	assert.Equal(t, TerrainOutOfBounds, g.CellAt(C(2, 0)))
	assert.Equal(t, 2, g.Width())
	assert.Equal(t, 2, g.Height())
}

func TestGrid_MoveCost_Models(t *testing.T) {
	cases := []struct {
		model          CostModel
		straight, diag float64
	}{
		{CostMixed, 1, math.Sqrt2},
		{CostMixedOpt1, 1, 1.5},
		{CostMixedOpt2, 2, 3},
		{CostMixedReal, 1, math.Sqrt2},
	}
	for _, tc := range cases {
		t.Run(tc.model.String(), func(t *testing.T) {
			g := open5(t, WithCostModel(tc.model))
			assert.InDelta(t, tc.straight, g.MoveCost(C(2, 2), C(2, 3), nil), 1e-9)
			assert.InDelta(t, tc.diag, g.MoveCost(C(2, 2), C(3, 3), nil), 1e-9)
		})
	}
}

func TestGrid_MoveCost_FourWayRejectsDiagonal(t *testing.T) {
	g := open5(t, WithDiagonal(false))
	if !math.IsInf(g.MoveCost(C(0, 0), C(1, 1), nil), 1) {
		t.Fatal("diagonal move should be illegal in 4-way mode")
	}
	assert.Len(t, g.Adjacents(C(2, 2)), 4)
	assert.Len(t, g.Adjacents(C(0, 0)), 2)
}

func TestGrid_MoveCost_NonAdjacent(t *testing.T) {
	g := open5(t)
	assert.True(t, math.IsInf(g.MoveCost(C(0, 0), C(2, 0), nil), 1))
	assert.True(t, math.IsInf(g.MoveCost(C(0, 0), C(0, 0), nil), 1))
}

func TestGrid_CornerCutting(t *testing.T) {
	// (1,0) and (0,1) both blocked: (0,0) -> (1,1) squeezes between them.
	g, err := New([]string{
		"GTG",
		"TGG",
		"GGG",
	})
	require.NoError(t, err)
	assert.True(t, math.IsInf(g.MoveCost(C(0, 0), C(1, 1), nil), 1), "both flanks blocked")

	// One flank open is allowed by default.
	g2, err := New([]string{
		"GTG",
		"GGG",
		"GGG",
	})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, g2.MoveCost(C(0, 0), C(1, 1), nil), 1e-9)

	// ...but not with strict corners.
	g3, err := New([]string{
		"GTG",
		"GGG",
		"GGG",
	}, WithStrictCorners(true))
	require.NoError(t, err)
	assert.True(t, math.IsInf(g3.MoveCost(C(0, 0), C(1, 1), nil), 1))
}

func TestGrid_CornerCutting_AllModels(t *testing.T) {
	for _, m := range []CostModel{CostMixed, CostMixedOpt1, CostMixedOpt2, CostMixedReal} {
		g, err := New([]string{"GT", "TG"}, WithCostModel(m))
		require.NoError(t, err)
		if !math.IsInf(g.MoveCost(C(0, 0), C(1, 1), nil), 1) {
			t.Fatalf("%s: corner cut should be Inf", m)
		}
	}
}

func TestGrid_Water_OnlyFromWater(t *testing.T) {
	g, err := New([]string{"GWW"})
	require.NoError(t, err)
	require.True(t, g.Uniform())
	assert.True(t, math.IsInf(g.MoveCost(C(0, 0), C(1, 0), nil), 1), "ground -> water")
	assert.InDelta(t, 1.0, g.MoveCost(C(1, 0), C(2, 0), nil), 1e-9, "water -> water")
	assert.InDelta(t, 1.0, g.MoveCost(C(1, 0), C(0, 0), nil), 1e-9, "water -> ground")

	g.SetCostModel(CostMixedReal)
	assert.True(t, math.IsInf(g.MoveCost(C(0, 0), C(1, 0), nil), 1))
	assert.InDelta(t, 1.0, g.MoveCost(C(1, 0), C(2, 0), nil), 1e-9)
}

func TestGrid_MixedReal_Asymmetric(t *testing.T) {
	g, err := New([]string{"GS"},
		WithCosts(map[Terrain]float64{TerrainSwamp: 3}),
		WithCostModel(CostMixedReal),
		WithPairCost(TerrainGround, TerrainSwamp, false, 5),
	)
	require.NoError(t, err)
	require.False(t, g.Uniform())
	there := g.MoveCost(C(0, 0), C(1, 0), nil)
	back := g.MoveCost(C(1, 0), C(0, 0), nil)
	assert.InDelta(t, 5.0, there, 1e-9)
	assert.InDelta(t, 1.0, back, 1e-9)
	assert.NotEqual(t, there, back)
}

func TestGrid_Mixed_Symmetric(t *testing.T) {
	g, err := New([]string{"GS", "GG"}, WithCosts(map[Terrain]float64{TerrainSwamp: 1}))
	require.NoError(t, err)
	for _, a := range []Coord{C(0, 0), C(1, 0), C(0, 1), C(1, 1)} {
		for _, b := range g.Adjacents(a) {
			assert.Equal(t, g.MoveCost(a, b, nil), g.MoveCost(b, a, nil), "%s <-> %s", a, b)
		}
	}
}

func TestGrid_DoorNeedsKey(t *testing.T) {
	door := C(2, 2)
	key := C(0, 0)
	g := open5(t, WithKeys(map[Coord][]Coord{key: {door}}))

	assert.True(t, g.IsDoor(door))
	assert.True(t, g.IsKey(key))
	assert.False(t, g.IsDoor(key))
	assert.True(t, math.IsInf(g.CellCost(door, nil), 1), "locked")
	assert.Equal(t, 1.0, g.CellCost(door, []Coord{key}), "unlocked")
	assert.False(t, g.HasKeyFor(door, []Coord{C(1, 1)}))
	assert.True(t, math.IsInf(g.MoveCost(C(2, 1), door, nil), 1))
	assert.Equal(t, 1.0, g.MoveCost(C(2, 1), door, []Coord{key}))
	assert.Equal(t, []Coord{key}, g.AllKeys())
	assert.Equal(t, []Coord{door}, g.DoorsFor(key))
}

func TestGrid_Heuristics(t *testing.T) {
	a, b := C(0, 0), C(3, 4)
	assert.InDelta(t, 5.0, Euclid(a, b), 1e-9)
	assert.InDelta(t, 7.0, Manhattan(a, b), 1e-9)
	assert.InDelta(t, 4+3*(math.Sqrt2-1), Octile(a, b), 1e-9)

	g := open5(t, WithHeuristic(HeuristicManhattan))
	assert.InDelta(t, 7.0, g.Heuristic(a, b), 1e-9)
	g.SetHeuristic(HeuristicOctile)
	assert.InDelta(t, Octile(a, b), g.Heuristic(a, b), 1e-9)
}

func TestGrid_SetBlock_BumpsVersion(t *testing.T) {
	g := open5(t)
	v := g.Version()
	g.SetBlock(C(1, 1), C(2, 3), TerrainTree)
	if g.Version() == v {
		t.Fatal("version did not change")
	}
	for _, c := range Block(C(1, 1), C(2, 3)) {
		assert.Equal(t, TerrainTree, g.CellAt(c))
	}
	assert.Equal(t, TerrainGround, g.CellAt(C(3, 3)))
}

func TestGrid_Clone_Independent(t *testing.T) {
	g := open5(t)
	cl := g.Clone()
	cl.SetCell(C(0, 0), TerrainTree)
	assert.Equal(t, TerrainGround, g.CellAt(C(0, 0)))
	assert.Equal(t, TerrainTree, cl.CellAt(C(0, 0)))
}

func TestGrid_NearestPassable(t *testing.T) {
	g, err := New([]string{
		"TTT",
		"TTG",
	})
	require.NoError(t, err)
	got, ok := g.NearestPassable(C(0, 0), nil)
	require.True(t, ok)
	assert.Equal(t, C(2, 1), got)

	got, ok = g.NearestPassable(C(2, 1), nil)
	require.True(t, ok)
	assert.Equal(t, C(2, 1), got)

	blocked, err := New([]string{"TT"})
	require.NoError(t, err)
	_, ok = blocked.NearestPassable(C(0, 0), nil)
	assert.False(t, ok)
}

func TestGrid_PathCost(t *testing.T) {
	g := open5(t)
	assert.InDelta(t, 2+math.Sqrt2, g.PathCost([]Coord{C(0, 0), C(1, 0), C(2, 1), C(2, 2)}, nil), 1e-9)
	assert.True(t, math.IsInf(g.PathCost([]Coord{C(0, 0), C(2, 0)}, nil), 1))
	assert.Equal(t, 0.0, g.PathCost([]Coord{C(0, 0)}, nil))
}

func TestParseCostModel(t *testing.T) {
	m, err := ParseCostModel("mixed-opt2")
	require.NoError(t, err)
	assert.Equal(t, CostMixedOpt2, m)
	_, err = ParseCostModel("bogus")
	assert.Error(t, err)
}

func TestGrid_LowerBound(t *testing.T) {
	a, b := C(0, 0), C(3, 4)

	g := open5(t)
	assert.InDelta(t, Euclid(a, b), g.LowerBound(a, b), 1e-9, "euclid is safe on unit costs")

	g.SetHeuristic(HeuristicManhattan)
	assert.InDelta(t, 3*math.Sqrt2+1, g.LowerBound(a, b), 1e-9, "manhattan overestimates diagonals")

	g.SetDiagonal(false)
	assert.InDelta(t, 7.0, g.LowerBound(a, b), 1e-9)

	half := open5(t, WithCosts(map[Terrain]float64{TerrainGround: 0.5}), WithCostModel(CostMixedOpt1))
	assert.InDelta(t, 0.5*(3*1.5+1), half.LowerBound(a, b), 1e-9)

	pairs := open5(t, WithCostModel(CostMixedReal), WithPairCost(TerrainGround, TerrainSwamp, true, 0.5))
	assert.InDelta(t, 0.5*4, pairs.LowerBound(a, b), 1e-9, "diagonals cheaper than straights")
}

func TestGrid_EditRederivesTables(t *testing.T) {
	g := open5(t, WithCostModel(CostMixedReal))
	g.SetCell(C(0, 0), Terrain('X'))
	assert.Equal(t, Inf, g.MoveCost(C(1, 0), C(0, 0), nil))
	assert.InDelta(t, 1.0, g.MoveCost(C(0, 0), C(1, 0), nil), 1e-9, "leaving a new terrain uses the rebuilt pair table")
}
