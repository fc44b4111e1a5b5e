// Package viewer is the interactive ebiten front end: it draws the grid,
// the agent's draw lists and an optional truthfulness heatmap, and steps
// the simulation from the keyboard.
package viewer

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/Garsondee/pathsense/internal/agent"
	"github.com/Garsondee/pathsense/internal/grid"
	"github.com/Garsondee/pathsense/internal/mapfile"
)

const (
	borderWidth  = 8
	statusHeight = 120
	maxGridW     = 1280
	maxGridH     = 800
	maxCellSize  = 24
	flashTicks   = 120
	repeatDelay  = 18 // ticks before a held Space starts repeating
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// Viewer implements ebiten.Game over a Session.
type Viewer struct {
	session *Session
	logger  *slog.Logger
	face    text.Face
	panel   *LogPanel

	cellSize int
	gridW    int
	gridH    int
	width    int
	height   int

	showWorkings bool
	showHeat     bool
	showHelp     bool
	prevKeys     map[ebiten.Key]bool

	flash     string
	flashLeft int

	changes chan string

	// Offscreen buffers at one pixel per cell, scaled up on blit.
	terrainBuf  *ebiten.Image
	terrainPix  []byte
	terrainGrid *grid.Grid
	terrainVer  uint64

	overlayBuf *ebiten.Image
	overlayPix []byte
	overlayKey overlayKey
}

// overlayKey identifies the overlay contents last baked into overlayBuf.
type overlayKey struct {
	draw     *agent.DrawList
	trail    int
	heat     int
	workings bool
	showHeat bool
	grid     *grid.Grid
	version  uint64
}

// New sizes the window to the session's grid.
func New(s *Session, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Viewer{
		session:      s,
		logger:       logger,
		face:         text.NewGoXFace(basicfont.Face7x13),
		panel:        NewLogPanel(),
		showWorkings: true,
		showHelp:     true,
		prevKeys:     make(map[ebiten.Key]bool),
		changes:      make(chan string, 1),
	}
	v.resize()
	return v
}

// resize recomputes the cell size and window size from the grid.
func (v *Viewer) resize() {
	g := v.session.Sim().Grid()
	v.cellSize = CellSize(g.Width(), g.Height())
	v.gridW = g.Width() * v.cellSize
	v.gridH = g.Height() * v.cellSize
	v.width = borderWidth + v.gridW + borderWidth + logPanelWidth
	v.height = max(borderWidth+v.gridH+borderWidth+statusHeight, 480)
	v.terrainBuf, v.overlayBuf = nil, nil
}

// CellSize is the largest whole-pixel cell that fits a cols x rows grid in
// the grid area, between 1 and maxCellSize.
func CellSize(cols, rows int) int {
	if cols <= 0 || rows <= 0 {
		return 1
	}
	return max(1, min(maxCellSize, maxGridW/cols, maxGridH/rows))
}

// WindowSize is the size the window should open at.
func (v *Viewer) WindowSize() (int, int) { return v.width, v.height }

// Watch reloads the session whenever its map, cost or script file changes,
// until ctx is done.
func (v *Viewer) Watch(ctx context.Context) error {
	w, err := mapfile.NewWatcher(v.logger, v.session.Files()...)
	if err != nil {
		return err
	}
	go w.Run(ctx, v.notify)
	return nil
}

// notify queues a reload without blocking the watcher.
func (v *Viewer) notify(path string) {
	select {
	case v.changes <- path:
	default:
	}
}

func (v *Viewer) Update() error {
	select {
	case path := <-v.changes:
		v.reload("changed: " + path)
	default:
	}

	v.handleInput()
	v.session.Advance(1 / float64(ebiten.TPS()))
	v.panel.Sync(v.session.Sim().Log())
	if v.flashLeft > 0 {
		v.flashLeft--
	}
	return nil
}

// handleInput processes keypresses (edge-triggered, except held Space).
func (v *Viewer) handleInput() {
	currentKeys := map[ebiten.Key]bool{}
	for _, k := range []ebiten.Key{
		ebiten.KeyEnter, ebiten.KeyR, ebiten.KeyW, ebiten.KeyH,
		ebiten.KeyC, ebiten.KeyL, ebiten.KeyF1, ebiten.KeyComma, ebiten.KeyPeriod,
	} {
		currentKeys[k] = ebiten.IsKeyPressed(k)
		if currentKeys[k] && !v.prevKeys[k] {
			v.press(k)
		}
	}
	v.prevKeys = currentKeys

	// Space steps once, then repeats every other tick while held.
	if d := inpututil.KeyPressDuration(ebiten.KeySpace); d == 1 || (d > repeatDelay && d%2 == 0) {
		v.press(ebiten.KeySpace)
	}
}

// press applies the action bound to k.
func (v *Viewer) press(k ebiten.Key) {
	s := v.session
	switch k {
	case ebiten.KeySpace:
		st := s.Step()
		if s.Sim().Done() {
			v.setFlash("run " + st.String())
		}
	case ebiten.KeyEnter:
		s.ToggleRun()
	case ebiten.KeyR:
		s.Reset()
		v.setFlash("reset")
	case ebiten.KeyW:
		v.showWorkings = !v.showWorkings
	case ebiten.KeyH:
		v.showHeat = !v.showHeat
		if v.showHeat {
			if _, err := s.Heatmap(); err != nil {
				v.showHeat = false
				v.setFlash("heatmap: " + err.Error())
			}
		}
	case ebiten.KeyC:
		v.copyReport()
	case ebiten.KeyL:
		v.reload("manual")
	case ebiten.KeyF1:
		v.showHelp = !v.showHelp
	case ebiten.KeyComma:
		s.Slower()
	case ebiten.KeyPeriod:
		s.Faster()
	}
}

func (v *Viewer) reload(reason string) {
	if err := v.session.Load(); err != nil {
		v.logger.Error("reload failed", "reason", reason, "err", err)
		v.setFlash("reload failed: " + err.Error())
		return
	}
	v.logger.Info("reloaded", "reason", reason)
	v.resize()
	ebiten.SetWindowSize(v.width, v.height)
	v.setFlash("reloaded (" + reason + ")")
}

func (v *Viewer) copyReport() {
	if err := writeClipboard(v.session.Report()); err != nil {
		v.logger.Warn("clipboard write failed", "err", err)
		v.setFlash("copy failed: " + err.Error())
		return
	}
	v.setFlash("report copied to clipboard")
}

func (v *Viewer) setFlash(msg string) {
	v.flash, v.flashLeft = msg, flashTicks
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(windowBackground)

	v.drawTerrain(screen)
	v.drawOverlay(screen)
	v.drawMarkers(screen)

	ox, oy := float32(borderWidth), float32(borderWidth)
	vector.StrokeRect(screen, ox-1, oy-1, float32(v.gridW)+2, float32(v.gridH)+2, 2.0, panelBorder, false)

	v.drawStatus(screen)
	v.panel.Draw(screen, v.face, borderWidth+v.gridW+borderWidth, v.height)
}

// blit draws a one-pixel-per-cell buffer scaled to the grid area.
func (v *Viewer) blit(screen, buf *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(v.cellSize), float64(v.cellSize))
	op.GeoM.Translate(borderWidth, borderWidth)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(buf, op)
}

func (v *Viewer) drawTerrain(screen *ebiten.Image) {
	g := v.session.Sim().Grid()
	if v.terrainBuf == nil {
		v.terrainBuf = ebiten.NewImage(g.Width(), g.Height())
		v.terrainGrid = nil
	}
	if v.terrainGrid != g || v.terrainVer != g.Version() {
		v.terrainPix = TerrainPixels(g, v.terrainPix)
		v.terrainBuf.WritePixels(v.terrainPix)
		v.terrainGrid, v.terrainVer = g, g.Version()
	}
	v.blit(screen, v.terrainBuf)
}

func (v *Viewer) drawOverlay(screen *ebiten.Image) {
	run := v.session.Sim()
	g := run.Grid()
	if v.overlayBuf == nil {
		v.overlayBuf = ebiten.NewImage(g.Width(), g.Height())
		v.overlayKey = overlayKey{}
	}
	draw := run.Draw()
	key := overlayKey{
		trail:    len(run.Trail()),
		heat:     v.session.HeatBuilds(),
		workings: v.showWorkings,
		showHeat: v.showHeat,
		grid:     g,
		version:  g.Version(),
	}
	if len(draw) > 0 {
		key.draw = &draw[0]
	}
	if key != v.overlayKey {
		var heat map[grid.Coord]bool
		if v.showHeat {
			heat, _ = v.session.Heatmap()
			key.heat = v.session.HeatBuilds()
		}
		v.overlayPix = OverlayPixels(g.Width(), g.Height(), draw, run.Trail(), heat, v.showWorkings, v.overlayPix)
		v.overlayBuf.WritePixels(v.overlayPix)
		v.overlayKey = key
	}
	v.blit(screen, v.overlayBuf)
}

// drawMarkers draws start, goal, decoys and the agent on top, at least 3px
// wide so they stay visible on large maps.
func (v *Viewer) drawMarkers(screen *ebiten.Image) {
	run := v.session.Sim()
	for _, d := range v.session.Config().DecoyCoords() {
		v.marker(screen, d, tagColor(agent.TagExtra))
	}
	v.marker(screen, run.Start(), startColor)
	v.marker(screen, run.Goal(), goalColor)
	v.marker(screen, run.Current(), agentColor)
}

func (v *Viewer) marker(screen *ebiten.Image, c grid.Coord, clr color.RGBA) {
	cs := float32(v.cellSize)
	size := max(cs, 3)
	x := borderWidth + float32(c.Col)*cs + (cs-size)/2
	y := borderWidth + float32(c.Row)*cs + (cs-size)/2
	vector.FillRect(screen, x, y, size, size, clr, false)
	if v.cellSize >= 6 {
		vector.StrokeRect(screen, x, y, size, size, 1, windowBackground, false)
	}
}

func (v *Viewer) drawStatus(screen *ebiten.Image) {
	top := borderWidth + v.gridH + borderWidth
	lines := v.session.StatusLines()
	if v.flashLeft > 0 {
		lines = append(lines, "> "+v.flash)
	}
	if v.showHelp {
		lines = append(lines, fmt.Sprintf("[Space] step  [Enter] run/pause  [R] reset  [W] workings:%s  [H] heatmap:%s",
			onOff(v.showWorkings), onOff(v.showHeat)))
		lines = append(lines, "[C] copy report  [L] reload  [,/.] speed  [F1] help")
	}
	for i, line := range lines {
		drawText(screen, v.face, line, borderWidth, top+i*logLineHeight, textBright)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Layout keeps a fixed logical size; the window scales it.
func (v *Viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height
}
