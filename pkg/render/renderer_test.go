package render

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

type op struct {
	kind   string
	x1, y1 float64
	x2, y2 float64
	r      float64
	fill   string
	stroke Stroke
	text   string
	style  TextStyle
}

// recorder is a Surface that records every primitive in model space
type recorder struct {
	width, height int
	transform     [3]float64
	ops           []op
	ended         bool
}

func (r *recorder) Begin(width, height int, _ string) {
	r.width, r.height = width, height
	r.ops = nil
}

func (r *recorder) SetTransform(ox, oy, s float64) { r.transform = [3]float64{ox, oy, s} }

func (r *recorder) Line(x1, y1, x2, y2 float64, s Stroke) {
	r.ops = append(r.ops, op{kind: "line", x1: x1, y1: y1, x2: x2, y2: y2, stroke: s})
}

func (r *recorder) Circle(cx, cy, rad float64, fill string, s Stroke) {
	r.ops = append(r.ops, op{kind: "circle", x1: cx, y1: cy, r: rad, fill: fill, stroke: s})
}

func (r *recorder) Text(x, y float64, text string, style TextStyle) {
	r.ops = append(r.ops, op{kind: "text", x1: x, y1: y, text: text, style: style})
}

func (r *recorder) End() error {
	r.ended = true
	return nil
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, o := range r.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) texts() []string {
	var out []string
	for _, o := range r.ops {
		if o.kind == "text" {
			out = append(out, o.text)
		}
	}
	return out
}

type fixedLayout map[string]visualization.Position

func (f fixedLayout) ComputeLayout(*visualization.Model) map[string]visualization.Position {
	return f
}

func scenarioModel() *visualization.Model {
	a := visualization.EntityRef{ID: "a", Name: "A", Status: visualization.StatusActive, Category: "Service"}
	b := visualization.EntityRef{ID: "b", Name: "B", Status: visualization.StatusMaintenance}
	c := visualization.EntityRef{ID: "c", Name: "C", Status: visualization.StatusDeprecated}
	return visualization.NewModel([]visualization.RelationRecord{
		{ID: "r1", Kind: visualization.KindDependsOn, Source: a, Target: b},
		{ID: "r2", Kind: visualization.KindRunsOn, Source: b, Target: c},
	}, visualization.ModelOptions{Seed: fixedLayout{
		"a": {X: 100, Y: 100},
		"b": {X: 300, Y: 100},
		"c": {X: 300, Y: 400},
	}})
}

func scene(m *visualization.Model) Scene {
	return Scene{
		Model:      m,
		Viewport:   visualization.NewViewport(visualization.DefaultViewportConfig()),
		Hovered:    -1,
		Selected:   -1,
		ShowLabels: true,
	}
}

func TestRenderEmptyState(t *testing.T) {
	rec := &recorder{}
	m := visualization.NewModel(nil, visualization.ModelOptions{})

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, scene(m)))

	require.Len(t, rec.ops, 1)
	assert.Equal(t, "No relations to display", rec.ops[0].text)
	assert.Equal(t, 500.0, rec.ops[0].x1)
	assert.Equal(t, 400.0, rec.ops[0].y1)
	assert.True(t, rec.ended)
}

func TestRenderNilModel(t *testing.T) {
	rec := &recorder{}
	sc := Scene{Width: 200, Height: 100, Hovered: -1, Selected: -1}

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, sc))
	assert.Equal(t, []string{"No relations to display"}, rec.texts())
}

func TestRenderDrawOrder(t *testing.T) {
	rec := &recorder{}
	m := scenarioModel()

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, scene(m)))

	// 2 edges x (line + 2 arrow strokes + label), then 3 nodes x (circle, name, badge)
	// plus one category label for A
	assert.Equal(t, 6, rec.count("line"))
	assert.Equal(t, 6, rec.count("circle"))
	assert.Equal(t, 2+3+1, rec.count("text"))

	lastEdge, firstNode := -1, len(rec.ops)
	for i, o := range rec.ops {
		if o.kind == "line" {
			lastEdge = i
		}
		if o.kind == "circle" && i < firstNode {
			firstNode = i
		}
	}
	assert.Less(t, lastEdge, firstNode, "edges are drawn before nodes")
	assert.Equal(t, 1000, rec.width)
	assert.Equal(t, 800, rec.height)
}

func TestRenderArrowTouchesTarget(t *testing.T) {
	rec := &recorder{}
	m := scenarioModel()
	vis := visualization.Filter{Kind: visualization.KindDependsOn}.Apply(m)
	sc := scene(m)
	sc.Visible = &vis

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, sc))

	lines := make([]op, 0)
	for _, o := range rec.ops {
		if o.kind == "line" {
			lines = append(lines, o)
		}
	}
	require.Len(t, lines, 3)

	// A(100,100) -> B(300,100): tip on B's boundary
	for _, arrow := range lines[1:] {
		assert.InDelta(t, 275, arrow.x1, 1e-9)
		assert.InDelta(t, 100, arrow.y1, 1e-9)
		assert.InDelta(t, 275-10*math.Cos(math.Pi/6), arrow.x2, 1e-9)
		assert.InDelta(t, 5, math.Abs(arrow.y2-100), 1e-9)
		assert.Equal(t, "#ef4444", arrow.stroke.Color)
	}
	assert.NotEqual(t, lines[1].y2, lines[2].y2)

	assert.Contains(t, rec.texts(), "DEPENDS ON")
	assert.NotContains(t, rec.texts(), "C", "C is filtered out")
}

func TestRenderHighlight(t *testing.T) {
	rec := &recorder{}
	m := scenarioModel()
	sc := scene(m)
	sc.Hovered = 0
	sc.Selected = 2

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, sc))

	var rings []Stroke
	for _, o := range rec.ops {
		if o.kind == "circle" && o.r == 25 {
			rings = append(rings, o.stroke)
		}
	}
	require.Len(t, rings, 3)
	assert.Equal(t, Stroke{Color: "#3b82f6", Width: 3}, rings[0])
	assert.Equal(t, Stroke{Color: "#374151", Width: 2}, rings[1])
	assert.Equal(t, Stroke{Color: "#3b82f6", Width: 3}, rings[2])
}

func TestRenderNodeDetails(t *testing.T) {
	rec := &recorder{}
	long := visualization.EntityRef{ID: "x", Name: "a-very-long-server-name", Status: "UNKNOWN"}
	m := visualization.NewModel([]visualization.RelationRecord{
		{ID: "1", Kind: "OWNS", Source: long, Target: long},
	}, visualization.ModelOptions{Seed: fixedLayout{"x": {X: 200, Y: 200}}})

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, scene(m)))

	assert.Contains(t, rec.texts(), "a-very-long-ser")

	var badge *op
	for i, o := range rec.ops {
		if o.kind == "circle" && o.r == 6 {
			badge = &rec.ops[i]
		}
	}
	require.NotNil(t, badge)
	assert.InDelta(t, 200+25*0.7, badge.x1, 1e-9)
	assert.InDelta(t, 200-25*0.7, badge.y1, 1e-9)
	assert.Equal(t, "#6b7280", badge.fill)
	assert.Equal(t, Stroke{Color: "#ffffff", Width: 2}, badge.stroke)
}

func TestRenderLabelsToggle(t *testing.T) {
	rec := &recorder{}
	sc := scene(scenarioModel())
	sc.ShowLabels = false

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, sc))
	assert.Zero(t, rec.count("text"))
}

func TestRenderUsesViewport(t *testing.T) {
	rec := &recorder{}
	sc := scene(scenarioModel())
	sc.Viewport.Pan(10, 20)
	sc.Viewport.ZoomIn()

	require.NoError(t, NewRenderer(DefaultStyle()).Render(rec, sc))
	assert.Equal(t, [3]float64{10, 20, 1.1}, rec.transform)
}

func TestRenderDoesNotMutateModel(t *testing.T) {
	m := scenarioModel()
	before := m.Snapshot()

	sc := scene(m)
	sc.Hovered = 1
	require.NoError(t, NewRenderer(DefaultStyle()).Render(&recorder{}, sc))

	assert.Equal(t, before, m.Snapshot())
}

func TestSVGSurface(t *testing.T) {
	var buf bytes.Buffer
	surface := NewSVGSurface(&buf)

	require.NoError(t, NewRenderer(DefaultStyle()).Render(surface, scene(scenarioModel())))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<svg width="1000" height="800"`)
	assert.Contains(t, out, "stroke:#ef4444")
	assert.Contains(t, out, "fill:#22c55e")
	assert.Contains(t, out, "RUNS ON")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</svg>"))
}

func TestSVGSurfaceEscapesText(t *testing.T) {
	var buf bytes.Buffer
	odd := visualization.EntityRef{ID: "x", Name: "<b>&</b>", Status: visualization.StatusActive}
	m := visualization.NewModel([]visualization.RelationRecord{
		{ID: "1", Kind: visualization.KindContains, Source: odd, Target: odd},
	}, visualization.ModelOptions{Seed: fixedLayout{"x": {X: 100, Y: 100}}})

	require.NoError(t, NewRenderer(DefaultStyle()).Render(NewSVGSurface(&buf), scene(m)))
	assert.Contains(t, buf.String(), "&lt;b&gt;&amp;&lt;/b&gt;")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSVGSurfaceWriteError(t *testing.T) {
	err := NewRenderer(DefaultStyle()).Render(NewSVGSurface(failingWriter{}), scene(scenarioModel()))
	assert.EqualError(t, err, "disk full")
}

func TestRasterSurface(t *testing.T) {
	surface := NewRasterSurface()
	assert.ErrorIs(t, surface.EncodePNG(&bytes.Buffer{}), ErrNoFrame)

	require.NoError(t, NewRenderer(DefaultStyle()).Render(surface, scene(scenarioModel())))

	var buf bytes.Buffer
	require.NoError(t, surface.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())

	// node A is filled with the ACTIVE color at its center
	r, g, b, _ := img.At(100, 100).RGBA()
	assert.Equal(t, [3]uint32{0x22, 0xc5, 0x5e}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestRasterSurfaceBadColor(t *testing.T) {
	surface := NewRasterSurface()
	surface.Begin(10, 10, "#ffffff")
	surface.Circle(5, 5, 2, "not-a-color", Stroke{})
	assert.Error(t, surface.End())
}

func TestTermSurface(t *testing.T) {
	surface := NewTermSurface(200, 80)

	require.NoError(t, NewRenderer(DefaultStyle()).Render(surface, scene(scenarioModel())))

	plain := surface.Plain()
	lines := strings.Split(plain, "\n")
	require.Len(t, lines, 80)
	for _, l := range lines {
		assert.Equal(t, 200, len([]rune(l)))
	}
	assert.Contains(t, plain, "A")
	assert.Contains(t, plain, "Service")

	braille := 0
	for _, r := range plain {
		if r > brailleBase && r <= brailleBase+0xff {
			braille++
		}
	}
	assert.Greater(t, braille, 0)
	assert.NotEmpty(t, surface.String())
}

func TestTermSurfaceEmpty(t *testing.T) {
	surface := NewTermSurface(60, 20)
	m := visualization.NewModel(nil, visualization.ModelOptions{})

	require.NoError(t, NewRenderer(DefaultStyle()).Render(surface, scene(m)))
	assert.Contains(t, surface.Plain(), "No relations to display")
}

func TestTermSurfaceCellMapping(t *testing.T) {
	surface := NewTermSurface(100, 40)
	surface.Begin(1000, 800, "")

	for _, cell := range [][2]int{{0, 0}, {10, 5}, {99, 39}} {
		x, y := surface.CellToSurface(cell[0], cell[1])
		col, row := surface.SurfaceToCell(x, y)
		assert.Equal(t, cell, [2]int{col, row})
	}
}
