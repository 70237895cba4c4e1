package render

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// braille dot bits indexed by [row][col] within a 2x4 cell
var brailleBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBase = 0x2800

type termCell struct {
	dots  rune
	color string
	text  rune
	bold  bool
}

// TermSurface draws frames as a grid of braille characters, each cell
// holding 2x4 dots. The logical frame size given to Begin is fitted into the
// grid keeping its aspect ratio; each cell has a single color, the last one
// drawn into it. Text is placed on whole cells and hides the dots beneath.
type TermSurface struct {
	cols, rows int
	cells      []termCell

	// device scale from frame units to dots
	dev    float64
	ox, oy float64
	scale  float64

	styles map[string]lipgloss.Style
}

// NewTermSurface creates a surface of cols x rows terminal cells
func NewTermSurface(cols, rows int) *TermSurface {
	t := &TermSurface{styles: make(map[string]lipgloss.Style), scale: 1, dev: 1}
	t.Resize(cols, rows)
	return t
}

// Resize changes the cell grid. The next Begin clears it.
func (t *TermSurface) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	t.cols, t.rows = cols, rows
	t.cells = make([]termCell, cols*rows)
}

// Size returns the grid size in cells
func (t *TermSurface) Size() (cols, rows int) {
	return t.cols, t.rows
}

func (t *TermSurface) Begin(width, height int, _ string) {
	for i := range t.cells {
		t.cells[i] = termCell{}
	}
	t.ox, t.oy, t.scale = 0, 0, 1
	t.dev = 1
	if width > 0 && height > 0 {
		t.dev = math.Min(float64(t.cols*2)/float64(width), float64(t.rows*4)/float64(height))
	}
}

func (t *TermSurface) SetTransform(offsetX, offsetY, scale float64) {
	t.ox, t.oy, t.scale = offsetX, offsetY, scale
}

// CellToSurface maps the center of a terminal cell back to frame units, the
// space pointer coordinates are given in before the viewport applies
func (t *TermSurface) CellToSurface(col, row int) (x, y float64) {
	return (float64(col)*2 + 1) / t.dev, (float64(row)*4 + 2) / t.dev
}

// SurfaceToCell is the inverse of CellToSurface
func (t *TermSurface) SurfaceToCell(x, y float64) (col, row int) {
	return int(math.Floor(x * t.dev / 2)), int(math.Floor(y * t.dev / 4))
}

func (t *TermSurface) Line(x1, y1, x2, y2 float64, stroke Stroke) {
	if stroke.Width <= 0 {
		return
	}
	ax, ay := t.project(x1, y1)
	bx, by := t.project(x2, y2)
	steps := int(math.Ceil(math.Max(math.Abs(bx-ax), math.Abs(by-ay))))
	if steps == 0 {
		t.dot(ax, ay, stroke.Color)
		return
	}
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		t.dot(ax+(bx-ax)*f, ay+(by-ay)*f, stroke.Color)
	}
}

func (t *TermSurface) Circle(cx, cy, r float64, fill string, stroke Stroke) {
	x, y := t.project(cx, cy)
	rd := r * t.scale * t.dev
	half := math.Max(0.5, stroke.Width*t.scale*t.dev/2)
	reach := int(math.Ceil(rd + half))

	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			d := math.Hypot(float64(dx), float64(dy))
			switch {
			case stroke.Width > 0 && math.Abs(d-rd) <= half:
				t.dot(x+float64(dx), y+float64(dy), stroke.Color)
			case fill != "" && d < rd:
				t.dot(x+float64(dx), y+float64(dy), fill)
			}
		}
	}
}

func (t *TermSurface) Text(x, y float64, text string, style TextStyle) {
	px, py := t.project(x, y)
	runes := []rune(text)
	col := int(math.Floor(px / 2))
	row := int(math.Floor(py / 4))
	switch style.Anchor {
	case AnchorMiddle:
		col -= len(runes) / 2
	case AnchorEnd:
		col -= len(runes)
	}
	if row < 0 || row >= t.rows {
		return
	}
	for i, r := range runes {
		c := col + i
		if c < 0 || c >= t.cols {
			continue
		}
		cell := &t.cells[row*t.cols+c]
		cell.text = r
		cell.color = style.Color
		cell.bold = style.Bold
	}
}

func (t *TermSurface) End() error {
	return nil
}

// Plain returns the last frame without color, one line per row
func (t *TermSurface) Plain() string {
	var sb strings.Builder
	for row := 0; row < t.rows; row++ {
		for col := 0; col < t.cols; col++ {
			sb.WriteRune(t.cells[row*t.cols+col].glyph())
		}
		if row < t.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// String returns the last frame colored with lipgloss. Runs of cells with the
// same color are rendered together.
func (t *TermSurface) String() string {
	var sb strings.Builder
	var run strings.Builder
	for row := 0; row < t.rows; row++ {
		var cur termCell
		for col := 0; col < t.cols; col++ {
			cell := t.cells[row*t.cols+col]
			if col > 0 && (cell.color != cur.color || cell.bold != cur.bold) {
				sb.WriteString(t.paint(cur, run.String()))
				run.Reset()
			}
			cur = cell
			run.WriteRune(cell.glyph())
		}
		sb.WriteString(t.paint(cur, run.String()))
		run.Reset()
		if row < t.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (t *TermSurface) paint(cell termCell, s string) string {
	if cell.color == "" {
		return s
	}
	key := cell.color
	if cell.bold {
		key += "+b"
	}
	st, ok := t.styles[key]
	if !ok {
		st = lipgloss.NewStyle().Foreground(lipgloss.Color(cell.color)).Bold(cell.bold)
		t.styles[key] = st
	}
	return st.Render(s)
}

func (c termCell) glyph() rune {
	if c.text != 0 {
		return c.text
	}
	if c.dots == 0 {
		return ' '
	}
	return brailleBase + c.dots
}

// project maps model units to dot coordinates
func (t *TermSurface) project(x, y float64) (float64, float64) {
	return (x*t.scale + t.ox) * t.dev, (y*t.scale + t.oy) * t.dev
}

func (t *TermSurface) dot(x, y float64, color string) {
	dx := int(math.Floor(x))
	dy := int(math.Floor(y))
	if dx < 0 || dy < 0 || dx >= t.cols*2 || dy >= t.rows*4 {
		return
	}
	cell := &t.cells[(dy/4)*t.cols+dx/2]
	if cell.text != 0 {
		return
	}
	cell.dots |= brailleBits[dy%4][dx%2]
	cell.color = color
}
