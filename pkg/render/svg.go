package render

import (
	"fmt"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"
)

// errWriter keeps the first write error; svgo does not report them
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	if err != nil {
		ew.err = err
	}
	return n, err
}

// SVGSurface writes frames as SVG documents. Coordinates are projected to
// screen space and rounded to whole pixels.
type SVGSurface struct {
	out    *errWriter
	canvas *svg.SVG
	ox, oy float64
	scale  float64
}

// NewSVGSurface creates a surface writing to w
func NewSVGSurface(w io.Writer) *SVGSurface {
	ew := &errWriter{w: w}
	return &SVGSurface{out: ew, canvas: svg.New(ew), scale: 1}
}

// Reset points the surface at a new writer for the next frame
func (s *SVGSurface) Reset(w io.Writer) {
	s.out = &errWriter{w: w}
	s.canvas = svg.New(s.out)
}

func (s *SVGSurface) Begin(width, height int, background string) {
	s.ox, s.oy, s.scale = 0, 0, 1
	s.canvas.Start(width, height)
	if background != "" {
		s.canvas.Rect(0, 0, width, height, "fill:"+background)
	}
}

func (s *SVGSurface) SetTransform(offsetX, offsetY, scale float64) {
	s.ox, s.oy, s.scale = offsetX, offsetY, scale
}

func (s *SVGSurface) Line(x1, y1, x2, y2 float64, stroke Stroke) {
	if stroke.Width <= 0 {
		return
	}
	ax, ay := s.project(x1, y1)
	bx, by := s.project(x2, y2)
	s.canvas.Line(ax, ay, bx, by, s.strokeStyle(stroke))
}

func (s *SVGSurface) Circle(cx, cy, r float64, fill string, stroke Stroke) {
	x, y := s.project(cx, cy)
	style := "fill:" + fill
	if fill == "" {
		style = "fill:none"
	}
	if stroke.Width > 0 {
		style += ";" + s.strokeStyle(stroke)
	}
	s.canvas.Circle(x, y, round(r*s.scale), style)
}

func (s *SVGSurface) Text(x, y float64, text string, style TextStyle) {
	px, py := s.project(x, y)
	css := fmt.Sprintf("fill:%s;font-family:sans-serif;font-size:%spx;text-anchor:%s",
		style.Color, formatFloat(style.Size*s.scale), style.Anchor)
	if style.Bold {
		css += ";font-weight:bold"
	}
	s.canvas.Text(px, py, text, css)
}

func (s *SVGSurface) End() error {
	s.canvas.End()
	return s.out.err
}

func (s *SVGSurface) project(x, y float64) (int, int) {
	return round(x*s.scale + s.ox), round(y*s.scale + s.oy)
}

func (s *SVGSurface) strokeStyle(stroke Stroke) string {
	return fmt.Sprintf("stroke:%s;stroke-width:%s", stroke.Color, formatFloat(stroke.Width*s.scale))
}

func round(v float64) int {
	return int(math.Round(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
