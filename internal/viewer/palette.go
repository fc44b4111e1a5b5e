package viewer

import (
	"image/color"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/grid"
)

var (
	windowBackground = color.RGBA{R: 12, G: 14, B: 12, A: 255}
	panelBackground  = color.RGBA{R: 10, G: 12, B: 10, A: 248}
	panelTitle       = color.RGBA{R: 20, G: 30, B: 20, A: 255}
	panelBorder      = color.RGBA{R: 50, G: 70, B: 50, A: 255}
	panelHighlight   = color.RGBA{R: 30, G: 40, B: 30, A: 160}
	textBright       = color.RGBA{R: 230, G: 235, B: 230, A: 255}
	textDim          = color.RGBA{R: 150, G: 160, B: 150, A: 255}

	startColor = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	goalColor  = color.RGBA{R: 255, G: 99, B: 71, A: 255}
	agentColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	trailColor = color.RGBA{R: 40, G: 40, B: 40, A: 200}

	heatTruthful  = color.RGBA{R: 220, G: 60, B: 60, A: 110}
	heatDeceptive = color.RGBA{R: 60, G: 90, B: 220, A: 70}
)

// terrainColor is the base fill for a cell. Key cells and doors are tinted
// separately by the caller.
func terrainColor(t grid.Terrain) color.RGBA {
	switch t {
	case grid.TerrainGround, grid.TerrainGround1:
		return color.RGBA{R: 190, G: 190, B: 170, A: 255}
	case grid.TerrainSwamp:
		return color.RGBA{R: 110, G: 130, B: 70, A: 255}
	case grid.TerrainWater:
		return color.RGBA{R: 60, G: 110, B: 190, A: 255}
	case grid.TerrainTree:
		return color.RGBA{R: 30, G: 90, B: 40, A: 255}
	default:
		return color.RGBA{R: 25, G: 25, B: 25, A: 255}
	}
}

var (
	keyColor  = color.RGBA{R: 240, G: 200, B: 40, A: 255}
	doorColor = color.RGBA{R: 140, G: 80, B: 30, A: 255}
)

// tagColor is the overlay colour of a draw list.
func tagColor(t agent.Tag) color.RGBA {
	switch t {
	case agent.TagOpen:
		return color.RGBA{R: 220, G: 40, B: 40, A: 150}
	case agent.TagClosed:
		return color.RGBA{R: 240, G: 220, B: 40, A: 120}
	case agent.TagPath:
		return color.RGBA{R: 0, G: 127, B: 255, A: 200}
	default:
		return color.RGBA{R: 150, G: 60, B: 200, A: 220}
	}
}

// workingsTag reports whether t is search working (open/closed) rather than
// a result the agent wants shown.
func workingsTag(t agent.Tag) bool {
	return t == agent.TagOpen || t == agent.TagClosed
}
