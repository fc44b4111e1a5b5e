package viewer

import (
	"image/color"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/grid"
)

// TerrainPixels renders g at one pixel per cell as premultiplied RGBA,
// reusing buf when it is large enough.
func TerrainPixels(g *grid.Grid, buf []byte) []byte {
	w, h := g.Width(), g.Height()
	pix := sized(buf, w*h*4)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			c := grid.C(col, row)
			clr := terrainColor(g.CellAt(c))
			switch {
			case g.IsKey(c):
				clr = keyColor
			case g.IsDoor(c):
				clr = doorColor
			}
			setPixel(pix, w, c, clr)
		}
	}
	return pix
}

// OverlayPixels renders the heatmap, the draw lists and the trail at one
// pixel per cell. Later layers cover earlier ones. Open and closed lists are
// skipped unless workings is set.
func OverlayPixels(w, h int, draw []agent.DrawList, trail []grid.Coord, heat map[grid.Coord]bool, workings bool, buf []byte) []byte {
	pix := sized(buf, w*h*4)
	clear(pix)
	for c, truthful := range heat {
		if truthful {
			setPixel(pix, w, c, heatTruthful)
		} else {
			setPixel(pix, w, c, heatDeceptive)
		}
	}
	for _, dl := range draw {
		if workingsTag(dl.Tag) && !workings {
			continue
		}
		clr := tagColor(dl.Tag)
		for _, c := range dl.Cells {
			if inside(c, w, h) {
				setPixel(pix, w, c, clr)
			}
		}
	}
	for _, c := range trail {
		if inside(c, w, h) {
			setPixel(pix, w, c, trailColor)
		}
	}
	return pix
}

func sized(buf []byte, n int) []byte {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]byte, n)
}

func inside(c grid.Coord, w, h int) bool {
	return c.Col >= 0 && c.Row >= 0 && c.Col < w && c.Row < h
}

// setPixel writes clr premultiplied by its alpha, as ebiten images expect.
func setPixel(pix []byte, w int, c grid.Coord, clr color.RGBA) {
	i := (c.Row*w + c.Col) * 4
	a := uint16(clr.A)
	pix[i] = byte(uint16(clr.R) * a / 255)
	pix[i+1] = byte(uint16(clr.G) * a / 255)
	pix[i+2] = byte(uint16(clr.B) * a / 255)
	pix[i+3] = clr.A
}
