package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
	"github.com/Garsondee/pathsense/internal/recognize"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("map_file: maps/a.map\nstart: [1, 2]\ngoal: [3, 4]\n"))
	require.NoError(t, err)
	assert.Equal(t, "astar", c.Agent)
	assert.Equal(t, "euclid", c.Heuristic)
	assert.Equal(t, "mixed", c.CostModel)
	assert.True(t, c.Diagonal)
	assert.True(t, c.Strict)
	assert.Equal(t, grid.C(1, 2), c.Start.Coord())
	assert.Equal(t, grid.C(3, 4), c.Goal.Coord())
	assert.Equal(t, time.Duration(0), c.DeadlineDuration())
}

func TestParse_Overrides(t *testing.T) {
	c, err := Parse([]byte(`
agent: ds2
map_file: a.map
deadline: 1.5
free_time: 0.01
heuristic: octile
diagonal: false
cost_model: mixed_real
strict: false
decoys: [[5, 5], [0, 9]]
`))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, c.DeadlineDuration())
	assert.Equal(t, 10*time.Millisecond, c.FreeTimeDuration())
	assert.False(t, c.Strict)
	assert.Equal(t, []grid.Coord{grid.C(5, 5), grid.C(0, 9)}, c.DecoyCoords())

	opts, err := c.GridOptions()
	require.NoError(t, err)
	g, err := grid.NewFilled(3, 3, grid.TerrainGround, opts...)
	require.NoError(t, err)
	assert.Equal(t, grid.HeuristicOctile, g.HeuristicKind())
	assert.Equal(t, grid.CostMixedReal, g.CostModel())
	assert.False(t, g.Diagonal())

	a, err := c.NewAgent()
	require.NoError(t, err)
	d, ok := a.(*agent.Deceptive)
	require.True(t, ok)
	assert.NotNil(t, d)
	assert.Len(t, c.SimOptions(), 5)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing map", "agent: astar\n"},
		{"bad heuristic", "map_file: a\nheuristic: chebyshev\n"},
		{"bad cost model", "map_file: a\ncost_model: cheap\n"},
		{"negative deadline", "map_file: a\ndeadline: -1\n"},
		{"weight above one", "map_file: a\nweight: 1.5\n"},
		{"unknown agent", "map_file: a\nagent: teleport\n"},
		{"bad strategy", "map_file: a\nstrategy: ds7\n"},
		{"not yaml", "map_file: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pathsense.yaml")
	require.NoError(t, os.WriteFile(p, []byte("map_file: a.map\nagent: random\nseed: 9\n"), 0o600))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, int64(9), c.Seed)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewAgent_Strategy(t *testing.T) {
	c := Default()
	c.MapFile = "a.map"
	c.Agent = "deceptive"
	c.Strategy = "ds1"
	a, err := c.NewAgent()
	require.NoError(t, err)
	d := a.(*agent.Deceptive)
	assert.Equal(t, deceive.Plan{}, d.LastPlan())
}

func TestParse_VariantSelectors(t *testing.T) {
	c, err := Parse([]byte("map_file: a.map\n"))
	require.NoError(t, err)
	assert.Equal(t, "closest", c.RMP)
	assert.Equal(t, "full_match", c.AvoidVariant)
	assert.Equal(t, recognize.MinimalOffset, c.MinimalOffset)
	assert.False(t, c.StrictCorners)

	c, err = Parse([]byte(`
map_file: a.map
strict_corners: true
rmp: minimum
avoid_variant: last_index
minimal_offset: 200
`))
	require.NoError(t, err)
	gopts, err := c.GridOptions()
	require.NoError(t, err)
	g, err := grid.New([]string{"GG", "TG"}, gopts...)
	require.NoError(t, err)
	assert.Equal(t, grid.Inf, g.MoveCost(grid.C(0, 0), grid.C(1, 1), nil))

	popts, err := c.PlannerOptions()
	require.NoError(t, err)
	o := oracle.New(g)
	p, err := deceive.New(o, grid.C(0, 0), []grid.Coord{grid.C(1, 1)}, popts...)
	require.NoError(t, err)
	assert.Equal(t, deceive.RMPMinimum, p.Rule())

	ropts, err := c.ReportOptions()
	require.NoError(t, err)
	assert.Len(t, ropts, 5)

	for _, bad := range []string{
		"map_file: a\nrmp: median\n",
		"map_file: a\navoid_variant: sometimes\n",
		"map_file: a\nminimal_offset: -1\n",
	} {
		_, err := Parse([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidConfig, bad)
	}
}

func TestParseScript(t *testing.T) {
	sc, err := ParseScript([]byte(`
terrain:
  5: {terrain: water, from: [2, 2], to: [4, 4]}
  6: {terrain: "@", from: [0, 0], to: [0, 1]}
goal:
  10: [3, 4]
agent:
  7: [1, 0]
`))
	require.NoError(t, err)
	assert.Equal(t, grid.TerrainWater, sc.Terrain[5].Terrain)
	assert.Equal(t, grid.C(2, 2), sc.Terrain[5].TopLeft)
	assert.Equal(t, grid.C(4, 4), sc.Terrain[5].BottomRight)
	assert.Equal(t, grid.TerrainObstacle, sc.Terrain[6].Terrain)
	assert.Equal(t, grid.C(3, 4), sc.Goal[10])
	assert.Equal(t, grid.C(1, 0), sc.Agent[7])
	assert.Equal(t, []int{5, 6, 7, 10}, sc.Steps())
}

func TestParseScript_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"unknown terrain": "terrain:\n  1: {terrain: lava, from: [0, 0], to: [1, 1]}\n",
		"missing terrain": "terrain:\n  1: {from: [0, 0], to: [1, 1]}\n",
		"negative step":   "goal:\n  -1: [0, 0]\n",
		"bad point":       "goal:\n  1: zero\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScript([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadScript_EmptyPath(t *testing.T) {
	sc, err := LoadScript("")
	require.NoError(t, err)
	assert.True(t, sc.Empty())
}
