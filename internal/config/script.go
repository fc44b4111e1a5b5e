package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/sim"
)

// TerrainEntry is one scripted terrain change.
type TerrainEntry struct {
	Terrain string `yaml:"terrain" validate:"required"`
	From    Point  `yaml:"from"`
	To      Point  `yaml:"to"`
}

// ScriptFile is the YAML form of a dynamic-change script, keyed by step:
//
//	terrain:
//	  5: {terrain: water, from: [2, 2], to: [4, 4]}
//	goal:
//	  10: [3, 4]
//	agent:
//	  7: [1, 0]   # displacement
type ScriptFile struct {
	Terrain map[int]TerrainEntry `yaml:"terrain" validate:"dive,keys,gte=0,endkeys"`
	Goal    map[int]Point        `yaml:"goal" validate:"dive,keys,gte=0,endkeys"`
	Agent   map[int]Point        `yaml:"agent" validate:"dive,keys,gte=0,endkeys"`
}

// ParseScript decodes and validates a script.
func ParseScript(data []byte) (sim.Script, error) {
	var f ScriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return sim.Script{}, fmt.Errorf("%w: script: %v", ErrInvalidConfig, err)
	}
	if err := validate.Struct(f); err != nil {
		return sim.Script{}, fmt.Errorf("%w: script: %v", ErrInvalidConfig, err)
	}
	return f.Script()
}

// LoadScript reads the script at path. An empty path is an empty script.
func LoadScript(path string) (sim.Script, error) {
	if path == "" {
		return sim.Script{}, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return sim.Script{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return ParseScript(data)
}

// Script converts the file form into a sim.Script. Terrain may be a name
// (ground, water, ...) or a single map symbol.
func (f ScriptFile) Script() (sim.Script, error) {
	out := sim.Script{
		Terrain: make(map[int]sim.TerrainChange, len(f.Terrain)),
		Goal:    make(map[int]grid.Coord, len(f.Goal)),
		Agent:   make(map[int]grid.Coord, len(f.Agent)),
	}
	for step, e := range f.Terrain {
		t, ok := grid.TerrainByName(e.Terrain)
		if !ok {
			if len(e.Terrain) != 1 {
				return sim.Script{}, fmt.Errorf("%w: script step %d: unknown terrain %q", ErrInvalidConfig, step, e.Terrain)
			}
			t = grid.Terrain(e.Terrain[0])
		}
		out.Terrain[step] = sim.TerrainChange{Terrain: t, TopLeft: e.From.Coord(), BottomRight: e.To.Coord()}
	}
	for step, p := range f.Goal {
		out.Goal[step] = p.Coord()
	}
	for step, p := range f.Agent {
		out.Agent[step] = p.Coord()
	}
	return out, nil
}
