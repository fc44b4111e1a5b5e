package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/deceive"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/oracle"
	"github.com/Garsondee/pathsense/internal/recognize"
)

func openLoader(t *testing.T, w, h int) MapLoader {
	t.Helper()
	return func(string) (*grid.Grid, error) {
		return grid.NewFilled(w, h, grid.TerrainGround)
	}
}

func twinProblem() Problem {
	return Problem{Map: "open.map", OptCost: 10, Start: grid.C(5, 10), Goal: grid.C(2, 0), Decoys: []grid.Coord{grid.C(8, 0)}}
}

func readBack(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	cr := csv.NewReader(bytes.NewReader(buf.Bytes()))
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestReadProblems(t *testing.T) {
	in := "map,optcost,numgoals,scol,srow,gcol,grow\n" +
		"a.map,12.5,2,1,2,3,4,5,6,7,8\n" +
		"# comment\n" +
		"b.map, 3, 0, 0, 0, 1, 1\n"
	ps, err := ReadProblems(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "a.map", ps[0].Map)
	assert.Equal(t, 12.5, ps[0].OptCost)
	assert.Equal(t, grid.C(1, 2), ps[0].Start)
	assert.Equal(t, []grid.Coord{grid.C(3, 4), grid.C(5, 6), grid.C(7, 8)}, ps[0].Goals())
	assert.Empty(t, ps[1].Decoys)

	for _, bad := range []string{
		"h\na.map,1,0,0,0\n",
		"h\na.map,x,0,0,0,1,1\n",
		"h\na.map,1,2,0,0,1,1,2,2\n",
		"h\na.map,1,0,0,zero,1,1\n",
	} {
		_, err := ReadProblems(strings.NewReader(bad))
		assert.ErrorIs(t, err, ErrBadProblem, bad)
	}
}

func TestReadScenarios(t *testing.T) {
	in := "version 1\n0\tmaps/dao/arena.map\t49\t49\t1\t11\t1\t12\t1\n3\tarena.map\t49\t49\t5\t5\t9\t9\t5.65685425\n"
	sc, err := ReadScenarios(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, sc, 2)
	assert.Equal(t, "maps/dao/arena.map", sc[0].Map)
	assert.Equal(t, grid.C(1, 11), sc[0].Start)
	assert.Equal(t, grid.C(1, 12), sc[0].Goal)
	assert.Equal(t, 3, sc[1].Bucket)
	assert.InDelta(t, 5.65685425, sc[1].Optimum, 1e-12)

	_, err = ReadScenarios(strings.NewReader("0 a.map 1 1 0 0\n"))
	assert.ErrorIs(t, err, ErrBadProblem)
}

func TestRecognition_WritesRowPerCombination(t *testing.T) {
	r := New(WithMapLoader(openLoader(t, 11, 11)), WithFormulas(recognize.FormulaSimple), WithRunID("test-run"))
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, r.Recognition(context.Background(), []Problem{twinProblem()}, w))

	assert.True(t, strings.HasPrefix(buf.String(), "# run test-run\n"))
	rows := readBack(t, &buf)
	require.Len(t, rows, 1+len(Qualities)*len(ObservationDensities)*len(Distributions))
	header := rows[0]
	assert.Equal(t, RecognitionHeader(), header)
	assert.Len(t, header, 8+4*MaxGoals+1)

	for _, row := range rows[1:] {
		require.Len(t, row, len(header))
		assert.Equal(t, "open.map", row[0])
		assert.Equal(t, "(5,10)", row[1])
		assert.Equal(t, "2", row[6])
		assert.Equal(t, "simple", row[7])
		p0, err := strconv.ParseFloat(row[10], 64)
		require.NoError(t, err)
		p1, err := strconv.ParseFloat(row[14], 64)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, p0+p1, 0.002)
		assert.Equal(t, "", row[16], "unused goal columns are blank")
	}
	assert.Equal(t, "Q_0", rows[1][3])
	assert.Equal(t, "D_20", rows[1][4])
	assert.Equal(t, "P", rows[1][5])
	assert.Equal(t, "Q_0.6", rows[7][3])
}

func TestRecognition_Timeout(t *testing.T) {
	r := New(WithMapLoader(openLoader(t, 11, 11)), WithFormulas(recognize.FormulaComplex), WithTimeout(0))
	var buf bytes.Buffer
	require.NoError(t, r.Recognition(context.Background(), []Problem{twinProblem()}, csv.NewWriter(&buf)))
	rows := readBack(t, &buf)
	for _, row := range rows[1:] {
		assert.Equal(t, TimedOut, row[11])
		assert.Equal(t, TimedOut, row[15])
	}
}

func TestRecognition_NoPathSentinel(t *testing.T) {
	walled := func(string) (*grid.Grid, error) {
		return grid.New([]string{"G@G", "G@G", "G@G"})
	}
	r := New(WithMapLoader(walled))
	p := Problem{Map: "w.map", Start: grid.C(0, 0), Goal: grid.C(2, 2)}
	var buf bytes.Buffer
	require.NoError(t, r.Recognition(context.Background(), []Problem{p}, csv.NewWriter(&buf)))
	rows := readBack(t, &buf)
	require.Len(t, rows, 1+len(Qualities))
	for _, row := range rows[1:] {
		assert.Equal(t, NoPath, row[8])
		assert.Len(t, row, len(RecognitionHeader()))
	}
}

func TestRecognition_MapLoadFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	r := New(WithMapLoader(func(string) (*grid.Grid, error) { return nil, boom }))
	err := r.Recognition(context.Background(), []Problem{twinProblem()}, csv.NewWriter(&bytes.Buffer{}))
	assert.ErrorIs(t, err, boom)
}

func TestDeception(t *testing.T) {
	r := New(WithMapLoader(openLoader(t, 11, 11)))
	var buf bytes.Buffer
	require.NoError(t, r.Deception(context.Background(), []Problem{twinProblem()}, csv.NewWriter(&buf)))
	rows := readBack(t, &buf)
	require.Len(t, rows, 1+len(deceive.Strategies))
	assert.Equal(t, []string{"map", "start", "strategy", "cost", "time", "10", "25", "50", "75", "90", "99"}, rows[0])
	for i, row := range rows[1:] {
		assert.Equal(t, strconv.Itoa(i), row[2])
		for _, v := range row[5:] {
			assert.Contains(t, []string{"true", "false"}, v)
		}
	}
	assert.Equal(t, "13", rows[3][3], "ds2 cost")
}

func TestDeception_UnreachableGoal(t *testing.T) {
	walled := func(string) (*grid.Grid, error) {
		return grid.New([]string{"G@G", "G@G", "G@G"})
	}
	r := New(WithMapLoader(walled), WithStrategies(deceive.StrategyDirect))
	p := Problem{Map: "w.map", Start: grid.C(0, 0), Goal: grid.C(2, 2), Decoys: []grid.Coord{grid.C(0, 2)}}
	var buf bytes.Buffer
	require.NoError(t, r.Deception(context.Background(), []Problem{p}, csv.NewWriter(&buf)))
	rows := readBack(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, "inf", rows[1][3])
	assert.Equal(t, "", rows[1][5])
}

func TestScenarios(t *testing.T) {
	r := New(WithMapLoader(openLoader(t, 6, 6)))
	scens := []Scenario{
		{Map: "maps/open.map", Start: grid.C(0, 0), Goal: grid.C(5, 0), Optimum: 5},
		{Map: "maps/open.map", Start: grid.C(0, 0), Goal: grid.C(5, 5), Optimum: 7.07106781},
	}
	mk := func() (agent.Agent, error) { return agent.New("astar") }
	var buf bytes.Buffer
	require.NoError(t, r.Scenarios(context.Background(), "astar", mk, scens, 2, csv.NewWriter(&buf)))
	rows := readBack(t, &buf)
	require.Len(t, rows, 3)
	assert.Equal(t, ScenarioHeader(), rows[0])
	assert.Equal(t, []string{"astar", "1", "open.map", "0", "0", "5", "0", "5", "5", "5"}, rows[1][:10])
	assert.Equal(t, "1.000000", rows[1][11])
	assert.Equal(t, "7.07", rows[2][8])
	q, err := strconv.ParseFloat(rows[2][11], 64)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q, 0.001)
}

func TestScenarioRow_Quality(t *testing.T) {
	assert.Equal(t, 0.0, ScenarioRow{Actual: 0}.Quality())
	assert.Equal(t, 0.0, ScenarioRow{Actual: grid.Inf}.Quality())
	assert.Equal(t, 0.5, ScenarioRow{Actual: 4, Scenario: Scenario{Optimum: 2}}.Quality())
}

func TestGenerateProblems(t *testing.T) {
	g, err := grid.NewFilled(20, 20, grid.TerrainGround)
	require.NoError(t, err)
	scens := []Scenario{
		{Map: "maps/open.map", Start: grid.C(0, 0), Goal: grid.C(19, 19), Optimum: 26.87},
		{Map: "maps/open.map", Start: grid.C(0, 0), Goal: grid.C(3, 0), Optimum: 3},
		{Map: "maps/open.map", Start: grid.C(19, 0), Goal: grid.C(0, 19), Optimum: 26.87},
		{Map: "maps/open.map", Start: grid.C(5, 5), Goal: grid.C(19, 5), Optimum: 14},
	}
	ps := GenerateProblems(g, "open.map", scens, len(scens), 4, 10, rand.New(rand.NewSource(3))) // #nosec G404
	require.Len(t, ps, 3, "the short scenario is under the buffer")
	for _, p := range ps {
		assert.GreaterOrEqual(t, p.OptCost, 10.0)
		assert.GreaterOrEqual(t, len(p.Decoys), 2)
		assert.LessOrEqual(t, len(p.Decoys), 4)
		seen := map[grid.Coord]bool{p.Start: true, p.Goal: true}
		for _, d := range p.Decoys {
			assert.False(t, seen[d], "decoy %s repeats the start, goal or another decoy", d)
			assert.True(t, g.IsPassable(d, nil))
			seen[d] = true
		}
	}

	capped := GenerateProblems(g, "open.map", scens[:1], 1, 20, 0, rand.New(rand.NewSource(3))) // #nosec G404
	require.Len(t, capped, 1)
	assert.LessOrEqual(t, len(capped[0].Decoys), MaxGoals-1)
	assert.Empty(t, GenerateProblems(g, "open.map", scens, 0, 4, 0, rand.New(rand.NewSource(3)))) // #nosec G404
}

func TestProblems_RoundTrip(t *testing.T) {
	r := New(WithMapLoader(openLoader(t, 20, 20)), WithSeed(5), WithRunID("gen"))
	scens := []Scenario{
		{Map: "open.map", Start: grid.C(0, 0), Goal: grid.C(19, 19), Optimum: 26.87},
		{Map: "open.map", Start: grid.C(19, 0), Goal: grid.C(0, 19), Optimum: 26.87},
	}
	var buf bytes.Buffer
	require.NoError(t, r.Problems(context.Background(), "open.map", scens, 2, 3, 1, csv.NewWriter(&buf)))
	assert.True(t, strings.HasPrefix(buf.String(), "# run gen\n"))

	ps, err := ReadProblems(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, ps, 2)
	for i, p := range ps {
		assert.Equal(t, "open.map", p.Map)
		assert.Equal(t, scens[i].Start, p.Start)
		assert.Equal(t, scens[i].Goal, p.Goal)
		assert.InDelta(t, 26.87, p.OptCost, 1e-9)
		assert.NotEmpty(t, p.Decoys)
	}
	assert.Equal(t, ProblemHeader(3), readBack(t, &buf)[0])
}

func TestRunner_VariantOptions(t *testing.T) {
	loaded := 0
	r := New(
		WithMapDir(t.TempDir()),
		WithGridOptions(grid.WithStrictCorners(true)),
		WithAvoidVariant(oracle.AvoidLastIndex),
		WithMinimalOffset(recognize.LegacyMinimalOffset),
		WithRMPRule(deceive.RMPMinimum),
	)
	assert.Equal(t, oracle.AvoidLastIndex, r.avoid)
	assert.Equal(t, recognize.LegacyMinimalOffset, r.offset)
	assert.Equal(t, deceive.RMPMinimum, r.rmp)
	require.Len(t, r.gridOpts, 1)

	WithMapLoader(func(string) (*grid.Grid, error) {
		loaded++
		return grid.New([]string{"GG", "TG"}, r.gridOpts...)
	})(r)
	g, _, err := r.gridFor("corner.map")
	require.NoError(t, err)
	assert.Equal(t, grid.Inf, g.MoveCost(grid.C(0, 0), grid.C(1, 1), nil), "one blocked flank stops the diagonal")
	assert.Equal(t, 1, loaded)

	var buf bytes.Buffer
	require.NoError(t, New(WithMapLoader(openLoader(t, 11, 11)), WithRMPRule(deceive.RMPMinimum)).
		Deception(context.Background(), []Problem{twinProblem()}, csv.NewWriter(&buf)))
	assert.Len(t, readBack(t, &buf), 1+len(deceive.Strategies))
}
