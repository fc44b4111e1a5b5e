// Package mapfile reads grid maps in the MovingAI benchmark format, extended
// with key/door lines and terrain cost lines, plus optional cost files.
//
//	type octile
//	height 4
//	width 6
//	key 0 3 4 1
//	swamp 3
//	water +inf
//	map
//	GGGGGG
//	...
package mapfile

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Garsondee/pathsense/internal/grid"
)

// Map is a parsed map file.
type Map struct {
	Type   string
	Width  int
	Height int
	Costs  map[grid.Terrain]float64
	Keys   map[grid.Coord][]grid.Coord
	Rows   []string
}

// Grid builds a grid from the map. Options are applied after the file's
// costs and keys, so callers can override them.
func (m *Map) Grid(opts ...grid.Option) (*grid.Grid, error) {
	base := []grid.Option{grid.WithCosts(m.Costs), grid.WithKeys(m.Keys)}
	return grid.New(m.Rows, append(base, opts...)...)
}

// Parse reads a map from r.
func Parse(r io.Reader) (*Map, error) {
	m := &Map{
		Costs: make(map[grid.Terrain]float64),
		Keys:  make(map[grid.Coord][]grid.Coord),
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	inMap := false
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), " \t\r")
		if inMap {
			m.Rows = append(m.Rows, text)
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) == 1 && fields[0] == "map" {
			inMap = true
			continue
		}
		if err := m.header(fields); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", grid.ErrInvalidGrid, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrInvalidGrid, err)
	}
	if !inMap {
		return nil, fmt.Errorf("%w: missing map section", grid.ErrInvalidGrid)
	}
	for len(m.Rows) > 0 && m.Rows[len(m.Rows)-1] == "" {
		m.Rows = m.Rows[:len(m.Rows)-1]
	}
	if len(m.Rows) == 0 {
		return nil, fmt.Errorf("%w: empty map section", grid.ErrInvalidGrid)
	}
	if m.Height != 0 && m.Height != len(m.Rows) {
		return nil, fmt.Errorf("%w: height %d but %d rows", grid.ErrInvalidGrid, m.Height, len(m.Rows))
	}
	if m.Width != 0 && m.Width != len(m.Rows[0]) {
		return nil, fmt.Errorf("%w: width %d but first row has %d cells", grid.ErrInvalidGrid, m.Width, len(m.Rows[0]))
	}
	m.Height, m.Width = len(m.Rows), len(m.Rows[0])
	return m, nil
}

func (m *Map) header(fields []string) error {
	switch fields[0] {
	case "type":
		if len(fields) > 1 {
			m.Type = fields[1]
		}
		return nil
	case "height", "width":
		if len(fields) != 2 {
			return fmt.Errorf("%s wants one value", fields[0])
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("bad %s %q", fields[0], fields[1])
		}
		if fields[0] == "height" {
			m.Height = n
		} else {
			m.Width = n
		}
		return nil
	case "key":
		return m.key(fields[1:])
	default:
		t, c, err := costLine(fields)
		if err != nil {
			return err
		}
		m.Costs[t] = c
		return nil
	}
}

// key parses "kc kr dc dr [dc dr ...]".
func (m *Map) key(vals []string) error {
	if len(vals) < 2 || len(vals)%2 != 0 {
		return fmt.Errorf("key line wants coordinate pairs, got %d values", len(vals))
	}
	nums := make([]int, len(vals))
	for i, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("bad key coordinate %q", v)
		}
		nums[i] = n
	}
	k := grid.C(nums[0], nums[1])
	doors := []grid.Coord{}
	for i := 2; i+1 < len(nums); i += 2 {
		doors = append(doors, grid.C(nums[i], nums[i+1]))
	}
	m.Keys[k] = append(m.Keys[k], doors...)
	return nil
}

func costLine(fields []string) (grid.Terrain, float64, error) {
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unrecognised line %q", strings.Join(fields, " "))
	}
	t, ok := grid.TerrainByName(fields[0])
	if !ok {
		return 0, 0, fmt.Errorf("unknown terrain %q", fields[0])
	}
	c, err := parseCost(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return t, c, nil
}

func parseCost(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "+inf", "inf":
		return math.Inf(1), nil
	}
	c, err := strconv.ParseFloat(s, 64)
	if err != nil || c < 0 || math.IsNaN(c) {
		return 0, fmt.Errorf("bad cost %q", s)
	}
	return c, nil
}

// ParseCosts reads a cost file: one "terrain value" pair per line, blank
// lines and lines starting with # ignored.
func ParseCosts(r io.Reader) (map[grid.Terrain]float64, error) {
	out := make(map[grid.Terrain]float64)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		t, c, err := costLine(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: cost line %d: %v", grid.ErrInvalidGrid, line, err)
		}
		out[t] = c
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrInvalidGrid, err)
	}
	return out, nil
}

// Load reads the map at mapPath and, when costPath is not empty, overlays the
// cost file on the map's own costs. opts are applied last.
func Load(mapPath, costPath string, opts ...grid.Option) (*grid.Grid, error) {
	m, err := ReadFile(mapPath)
	if err != nil {
		return nil, err
	}
	if costPath != "" {
		f, err := os.Open(costPath) // #nosec G304 -- path supplied by the operator
		if err != nil {
			return nil, fmt.Errorf("%w: %v", grid.ErrInvalidGrid, err)
		}
		defer f.Close()
		costs, err := ParseCosts(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", costPath, err)
		}
		for t, c := range costs {
			m.Costs[t] = c
		}
	}
	g, err := m.Grid(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mapPath, err)
	}
	return g, nil
}

// ReadFile parses the map file at path.
func ReadFile(path string) (*Map, error) {
	f, err := os.Open(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrInvalidGrid, err)
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
