package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Garsondee/pathsense/internal/grid"
)

// ErrBadProblem is returned for malformed problem or scenario lines.
var ErrBadProblem = errors.New("bad problem line")

// Problem is one line of a problem file:
//
//	map,optcost,numgoals,scol,srow,gcol,grow[,dcol,drow ...]
//
// numgoals counts the extra (decoy) goals that follow the real goal.
type Problem struct {
	Map     string
	OptCost float64
	Start   grid.Coord
	Goal    grid.Coord
	Decoys  []grid.Coord
}

// Goals returns the real goal followed by the decoys.
func (p Problem) Goals() []grid.Coord {
	return append([]grid.Coord{p.Goal}, p.Decoys...)
}

// ReadProblems parses a problem file. The first row is a header and is
// skipped; rows starting with # are comments.
func ReadProblems(r io.Reader) ([]Problem, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadProblem, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]Problem, 0, len(rows)-1)
	for i, row := range rows[1:] {
		p, err := parseProblem(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseProblem(row []string) (Problem, error) {
	if len(row) < 7 {
		return Problem{}, fmt.Errorf("%w: want at least 7 fields, got %d", ErrBadProblem, len(row))
	}
	opt, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return Problem{}, fmt.Errorf("%w: optcost %q", ErrBadProblem, row[1])
	}
	ints := make([]int, len(row)-2)
	for i, f := range row[2:] {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Problem{}, fmt.Errorf("%w: field %d %q", ErrBadProblem, i+3, f)
		}
		ints[i] = n
	}
	numGoals := ints[0]
	if numGoals < 0 || len(ints) < 5+2*numGoals {
		return Problem{}, fmt.Errorf("%w: %d extra goals declared, %d coordinates given", ErrBadProblem, numGoals, (len(ints)-5)/2)
	}
	p := Problem{
		Map:     strings.TrimSpace(row[0]),
		OptCost: opt,
		Start:   grid.C(ints[1], ints[2]),
		Goal:    grid.C(ints[3], ints[4]),
	}
	for i := 0; i < numGoals; i++ {
		p.Decoys = append(p.Decoys, grid.C(ints[5+2*i], ints[6+2*i]))
	}
	return p, nil
}

// Scenario is one line of a MovingAI .scen file.
type Scenario struct {
	Bucket  int
	Map     string
	Width   int
	Height  int
	Start   grid.Coord
	Goal    grid.Coord
	Optimum float64
}

// ReadScenarios parses a MovingAI scenario file. A leading "version" line
// is skipped.
func ReadScenarios(r io.Reader) ([]Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []Scenario
	for i, line := range strings.Split(string(data), "\n") {
		f := strings.Fields(line)
		if len(f) == 0 || f[0] == "version" {
			continue
		}
		if len(f) != 9 {
			return nil, fmt.Errorf("%w: scenario line %d has %d fields", ErrBadProblem, i+1, len(f))
		}
		ints := make([]int, 0, 7)
		for _, idx := range []int{0, 2, 3, 4, 5, 6, 7} {
			n, err := strconv.Atoi(f[idx])
			if err != nil {
				return nil, fmt.Errorf("%w: scenario line %d field %d %q", ErrBadProblem, i+1, idx+1, f[idx])
			}
			ints = append(ints, n)
		}
		opt, err := strconv.ParseFloat(f[8], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: scenario line %d optimum %q", ErrBadProblem, i+1, f[8])
		}
		out = append(out, Scenario{
			Bucket:  ints[0],
			Map:     f[1],
			Width:   ints[1],
			Height:  ints[2],
			Start:   grid.C(ints[3], ints[4]),
			Goal:    grid.C(ints[5], ints[6]),
			Optimum: opt,
		})
	}
	return out, nil
}
