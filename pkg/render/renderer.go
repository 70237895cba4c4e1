package render

import (
	"math"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// Style holds the fixed drawing constants of a frame
type Style struct {
	Background string

	EdgeWidth     float64
	ArrowLength   float64
	ArrowAngle    float64
	EdgeLabelSize float64

	OutlineColor   string
	OutlineWidth   float64
	HighlightColor string
	HighlightWidth float64

	NameColor      string
	NameSize       float64
	NameMaxRunes   int
	NameOffset     float64
	CategoryColor  string
	CategorySize   float64
	CategoryOffset float64

	BadgeRadius      float64
	BadgeOffset      float64
	BadgeStrokeColor string
	BadgeStrokeWidth float64

	EmptyMessage string
	EmptyColor   string
	EmptySize    float64
}

// DefaultStyle returns the standard look of the graph page
func DefaultStyle() Style {
	return Style{
		Background: "#ffffff",

		EdgeWidth:     2,
		ArrowLength:   10,
		ArrowAngle:    math.Pi / 6,
		EdgeLabelSize: 10,

		OutlineColor:   "#374151",
		OutlineWidth:   2,
		HighlightColor: "#3b82f6",
		HighlightWidth: 3,

		NameColor:      "#1f2937",
		NameSize:       12,
		NameMaxRunes:   15,
		NameOffset:     15,
		CategoryColor:  "#6b7280",
		CategorySize:   10,
		CategoryOffset: 28,

		BadgeRadius:      6,
		BadgeOffset:      0.7,
		BadgeStrokeColor: "#ffffff",
		BadgeStrokeWidth: 2,

		EmptyMessage: "No relations to display",
		EmptyColor:   "#6b7280",
		EmptySize:    14,
	}
}

// Scene is everything a frame is drawn from. Visible may be nil to draw the
// whole model. Hovered and Selected are node indices or -1.
type Scene struct {
	Model      *visualization.Model
	Viewport   *visualization.Viewport
	Visible    *visualization.Visible
	Hovered    int
	Selected   int
	ShowLabels bool
	Width      int
	Height     int
}

// Renderer draws scenes onto surfaces. It only reads the model.
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer with the given style
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// Style returns the renderer's drawing constants
func (r *Renderer) Style() Style {
	return r.style
}

// Render draws one frame: edges first, then nodes. A scene without nodes
// draws the empty-state message instead.
func (r *Renderer) Render(s Surface, sc Scene) error {
	width, height := sc.Width, sc.Height
	if sc.Model != nil && (width <= 0 || height <= 0) {
		cfg := sc.Model.Config()
		width, height = int(cfg.Width), int(cfg.Height)
	}
	s.Begin(width, height, r.style.Background)

	if sc.Model == nil || sc.Model.Empty() {
		r.drawEmpty(s, width, height)
		return s.End()
	}

	if sc.Viewport != nil {
		s.SetTransform(sc.Viewport.OffsetX, sc.Viewport.OffsetY, sc.Viewport.Scale)
	} else {
		s.SetTransform(0, 0, 1)
	}

	nodes := sc.Model.Nodes()
	for k, e := range sc.Model.Edges() {
		if sc.Visible != nil && !sc.Visible.Edges[k] {
			continue
		}
		from, to := e.Endpoints()
		r.drawEdge(s, &nodes[from], &nodes[to], e.Kind, sc.ShowLabels)
	}

	for i := range nodes {
		if sc.Visible != nil && !sc.Visible.Nodes[i] {
			continue
		}
		highlight := i == sc.Hovered || i == sc.Selected
		r.drawNode(s, &nodes[i], highlight, sc.ShowLabels)
	}

	return s.End()
}

func (r *Renderer) drawEmpty(s Surface, width, height int) {
	s.SetTransform(0, 0, 1)
	s.Text(float64(width)/2, float64(height)/2, r.style.EmptyMessage, TextStyle{
		Color:  r.style.EmptyColor,
		Size:   r.style.EmptySize,
		Anchor: AnchorMiddle,
	})
}

func (r *Renderer) drawEdge(s Surface, src, dst *visualization.Node, kind string, labels bool) {
	stroke := Stroke{Color: visualization.RelationColor(kind), Width: r.style.EdgeWidth}
	s.Line(src.X, src.Y, dst.X, dst.Y, stroke)

	// arrow tip sits on the target's boundary
	angle := math.Atan2(dst.Y-src.Y, dst.X-src.X)
	tipX := dst.X - math.Cos(angle)*dst.Radius
	tipY := dst.Y - math.Sin(angle)*dst.Radius
	for _, side := range [2]float64{-r.style.ArrowAngle, r.style.ArrowAngle} {
		s.Line(tipX, tipY,
			tipX-r.style.ArrowLength*math.Cos(angle+side),
			tipY-r.style.ArrowLength*math.Sin(angle+side),
			stroke)
	}

	if labels {
		s.Text((src.X+dst.X)/2, (src.Y+dst.Y)/2-5, visualization.KindLabel(kind), TextStyle{
			Color:  stroke.Color,
			Size:   r.style.EdgeLabelSize,
			Anchor: AnchorMiddle,
		})
	}
}

func (r *Renderer) drawNode(s Surface, n *visualization.Node, highlight, labels bool) {
	outline := Stroke{Color: r.style.OutlineColor, Width: r.style.OutlineWidth}
	if highlight {
		outline = Stroke{Color: r.style.HighlightColor, Width: r.style.HighlightWidth}
	}
	s.Circle(n.X, n.Y, n.Radius, n.Color, outline)

	if labels {
		s.Text(n.X, n.Y+n.Radius+r.style.NameOffset, truncate(n.Name, r.style.NameMaxRunes), TextStyle{
			Color:  r.style.NameColor,
			Size:   r.style.NameSize,
			Bold:   true,
			Anchor: AnchorMiddle,
		})
		if n.Category != "" {
			s.Text(n.X, n.Y+n.Radius+r.style.CategoryOffset, n.Category, TextStyle{
				Color:  r.style.CategoryColor,
				Size:   r.style.CategorySize,
				Anchor: AnchorMiddle,
			})
		}
	}

	s.Circle(
		n.X+n.Radius*r.style.BadgeOffset,
		n.Y-n.Radius*r.style.BadgeOffset,
		r.style.BadgeRadius,
		visualization.StatusColor(n.Status),
		Stroke{Color: r.style.BadgeStrokeColor, Width: r.style.BadgeStrokeWidth},
	)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
