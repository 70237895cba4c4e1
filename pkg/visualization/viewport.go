package visualization

// ViewportConfig bounds and steps the zoom
type ViewportConfig struct {
	MinScale float64 `yaml:"min_scale" json:"minScale"`
	MaxScale float64 `yaml:"max_scale" json:"maxScale"`
	ZoomIn   float64 `yaml:"zoom_in" json:"zoomIn"`
	ZoomOut  float64 `yaml:"zoom_out" json:"zoomOut"`
}

// DefaultViewportConfig returns the standard zoom range [0.5, 2]
func DefaultViewportConfig() ViewportConfig {
	return ViewportConfig{
		MinScale: 0.5,
		MaxScale: 2.0,
		ZoomIn:   1.1,
		ZoomOut:  0.9,
	}
}

// Viewport maps model space to surface space with a translate and a
// uniform scale: screen = model*scale + offset.
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Scale   float64 `json:"scale"`

	config ViewportConfig
}

// NewViewport creates an identity viewport
func NewViewport(config ViewportConfig) *Viewport {
	d := DefaultViewportConfig()
	if config.MinScale <= 0 {
		config.MinScale = d.MinScale
	}
	if config.MaxScale <= 0 {
		config.MaxScale = d.MaxScale
	}
	if config.MaxScale < config.MinScale {
		config.MaxScale = config.MinScale
	}
	if config.ZoomIn <= 1 {
		config.ZoomIn = d.ZoomIn
	}
	if config.ZoomOut <= 0 || config.ZoomOut >= 1 {
		config.ZoomOut = d.ZoomOut
	}
	v := &Viewport{config: config}
	v.Reset()
	return v
}

// Config returns the zoom bounds
func (v *Viewport) Config() ViewportConfig {
	return v.config
}

// ToModel converts a surface point into model space
func (v *Viewport) ToModel(sx, sy float64) Position {
	return Position{
		X: (sx - v.OffsetX) / v.Scale,
		Y: (sy - v.OffsetY) / v.Scale,
	}
}

// ToScreen converts a model point into surface space
func (v *Viewport) ToScreen(p Position) (sx, sy float64) {
	return p.X*v.Scale + v.OffsetX, p.Y*v.Scale + v.OffsetY
}

// ZoomIn multiplies the scale by the zoom-in factor, clamped to MaxScale
func (v *Viewport) ZoomIn() {
	v.setScale(v.Scale * v.config.ZoomIn)
}

// ZoomOut multiplies the scale by the zoom-out factor, clamped to MinScale
func (v *Viewport) ZoomOut() {
	v.setScale(v.Scale * v.config.ZoomOut)
}

// Wheel applies one discrete wheel event. Positive deltaY scrolls down and
// zooms out; negative zooms in; zero is ignored.
func (v *Viewport) Wheel(deltaY float64) {
	switch {
	case deltaY > 0:
		v.ZoomOut()
	case deltaY < 0:
		v.ZoomIn()
	}
}

// Pan shifts the offset by a surface-space delta
func (v *Viewport) Pan(dx, dy float64) {
	v.OffsetX += dx
	v.OffsetY += dy
}

// Reset restores offset (0,0) and scale 1, clamped to the configured range
func (v *Viewport) Reset() {
	v.OffsetX, v.OffsetY = 0, 0
	v.Scale = 1
	v.setScale(1)
}

func (v *Viewport) setScale(s float64) {
	v.Scale = clamp(s, v.config.MinScale, v.config.MaxScale)
}
