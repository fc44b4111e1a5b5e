package viewer

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/pathsense/internal/sim"
)

const (
	logPanelWidth = 360
	logMaxEntries = 80
	logLineHeight = 14
)

// LogPanel is a ring buffer of run log entries rendered on the right side
// of the window.
type LogPanel struct {
	entries []sim.LogEntry
	head    int
	count   int

	source *sim.Log // log the panel last synced from
	synced int      // entries of source already copied
}

// NewLogPanel creates a panel with a fixed capacity.
func NewLogPanel() *LogPanel {
	return &LogPanel{
		entries: make([]sim.LogEntry, logMaxEntries),
	}
}

// Add appends an entry, overwriting the oldest when full.
func (lp *LogPanel) Add(e sim.LogEntry) {
	lp.entries[lp.head] = e
	lp.head = (lp.head + 1) % logMaxEntries
	if lp.count < logMaxEntries {
		lp.count++
	}
}

// Sync copies the entries l gained since the last call. A different log
// (the run was reset or reloaded) clears the panel first.
func (lp *LogPanel) Sync(l *sim.Log) {
	if l != lp.source {
		lp.head, lp.count = 0, 0
		lp.source, lp.synced = l, 0
	}
	all := l.Entries()
	for _, e := range all[lp.synced:] {
		lp.Add(e)
	}
	lp.synced = len(all)
}

// Recent returns entries in chronological order (oldest first).
func (lp *LogPanel) Recent() []sim.LogEntry {
	result := make([]sim.LogEntry, lp.count)
	for i := 0; i < lp.count; i++ {
		idx := (lp.head - lp.count + i + logMaxEntries) % logMaxEntries
		result[i] = lp.entries[idx]
	}
	return result
}

// Draw renders the panel at panelX with height panelH.
func (lp *LogPanel) Draw(screen *ebiten.Image, face text.Face, panelX, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), float32(panelH), panelBackground, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1.0, panelBorder, false)

	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), 18, panelTitle, false)
	drawText(screen, face, "RUN LOG", panelX+8, 2, textBright)
	vector.StrokeLine(screen, float32(panelX), 18, float32(panelX+logPanelWidth), 18, 1.0, panelBorder, false)

	entries := lp.Recent()
	maxVisible := (panelH - 24) / logLineHeight
	if len(entries) > maxVisible {
		entries = entries[len(entries)-maxVisible:]
	}

	y := 22
	for i, e := range entries {
		col := textDim
		if i >= len(entries)-3 {
			col = textBright
			vector.FillRect(screen, float32(panelX+2), float32(y), float32(logPanelWidth-4), logLineHeight, panelHighlight, false)
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+4), 3, 6, categoryColor(e.Category), false)
		drawText(screen, face, e.String(), panelX+12, y, col)
		y += logLineHeight
	}
}

func categoryColor(cat string) color.RGBA {
	switch cat {
	case sim.CatScript:
		return color.RGBA{R: 200, G: 120, B: 230, A: 255}
	case sim.CatMove:
		return color.RGBA{R: 90, G: 170, B: 230, A: 255}
	case sim.CatAgent:
		return color.RGBA{R: 230, G: 90, B: 80, A: 255}
	default:
		return color.RGBA{R: 120, G: 210, B: 120, A: 255}
	}
}

// drawText draws s with its top-left corner at (x, y).
func drawText(dst *ebiten.Image, face text.Face, s string, x, y int, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = logLineHeight
	text.Draw(dst, s, face, op)
}
