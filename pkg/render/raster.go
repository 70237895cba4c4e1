package render

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrNoFrame is returned when encoding a raster surface that never drew
var ErrNoFrame = errors.New("no frame rendered")

// RasterSurface draws frames into an RGBA image. Text uses the built-in
// bitmap face, so text size and weight only affect placement.
type RasterSurface struct {
	dc     *gg.Context
	ox, oy float64
	scale  float64
	colors map[string]colorful.Color
	err    error
}

// NewRasterSurface creates an empty raster surface
func NewRasterSurface() *RasterSurface {
	return &RasterSurface{scale: 1, colors: make(map[string]colorful.Color)}
}

func (s *RasterSurface) Begin(width, height int, background string) {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	s.dc = gg.NewContext(width, height)
	s.ox, s.oy, s.scale = 0, 0, 1
	s.err = nil
	if background != "" {
		s.setColor(background)
		s.dc.Clear()
	}
}

func (s *RasterSurface) SetTransform(offsetX, offsetY, scale float64) {
	s.ox, s.oy, s.scale = offsetX, offsetY, scale
}

func (s *RasterSurface) Line(x1, y1, x2, y2 float64, stroke Stroke) {
	if stroke.Width <= 0 {
		return
	}
	ax, ay := s.project(x1, y1)
	bx, by := s.project(x2, y2)
	s.dc.DrawLine(ax, ay, bx, by)
	s.stroke(stroke, false)
}

func (s *RasterSurface) Circle(cx, cy, r float64, fill string, stroke Stroke) {
	x, y := s.project(cx, cy)
	s.dc.DrawCircle(x, y, r*s.scale)
	if fill != "" {
		s.setColor(fill)
		s.dc.FillPreserve()
	}
	s.stroke(stroke, true)
}

func (s *RasterSurface) Text(x, y float64, text string, style TextStyle) {
	px, py := s.project(x, y)
	s.setColor(style.Color)
	var ax float64
	switch style.Anchor {
	case AnchorMiddle:
		ax = 0.5
	case AnchorEnd:
		ax = 1
	}
	s.dc.DrawStringAnchored(text, px, py, ax, 0)
}

func (s *RasterSurface) End() error {
	if s.dc == nil {
		return ErrNoFrame
	}
	return s.err
}

// Image returns the last frame, or nil before the first Begin
func (s *RasterSurface) Image() image.Image {
	if s.dc == nil {
		return nil
	}
	return s.dc.Image()
}

// EncodePNG writes the last frame as PNG
func (s *RasterSurface) EncodePNG(w io.Writer) error {
	if s.dc == nil {
		return ErrNoFrame
	}
	if err := s.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (s *RasterSurface) project(x, y float64) (float64, float64) {
	return x*s.scale + s.ox, y*s.scale + s.oy
}

// stroke paints and clears the current path
func (s *RasterSurface) stroke(stroke Stroke, clearOnSkip bool) {
	if stroke.Width <= 0 {
		if clearOnSkip {
			s.dc.ClearPath()
		}
		return
	}
	s.setColor(stroke.Color)
	s.dc.SetLineWidth(stroke.Width * s.scale)
	s.dc.Stroke()
}

// setColor parses and caches hex colors. The first bad color is kept as the
// frame error and drawing falls back to the neutral gray.
func (s *RasterSurface) setColor(hex string) {
	c, ok := s.colors[hex]
	if !ok {
		parsed, err := colorful.Hex(hex)
		if err != nil {
			if s.err == nil {
				s.err = fmt.Errorf("parse color %q: %w", hex, err)
			}
			parsed, _ = colorful.Hex("#6b7280")
		} else {
			s.colors[hex] = parsed
		}
		c = parsed
	}
	s.dc.SetColor(c)
}
