package api

import (
	"bytes"
	"sync"

	"github.com/dd0wney/cluso-graphview/pkg/render"
)

// frameCache is an SVG surface that keeps the last finished frame for
// readers on other goroutines. Drawing happens on the frame loop; Frame may
// be called from anywhere.
type frameCache struct {
	*render.SVGSurface
	buf bytes.Buffer

	mu   sync.RWMutex
	last []byte
}

func newFrameCache() *frameCache {
	fc := &frameCache{}
	fc.SVGSurface = render.NewSVGSurface(&fc.buf)
	return fc
}

func (fc *frameCache) Begin(width, height int, background string) {
	fc.buf.Reset()
	fc.SVGSurface.Reset(&fc.buf)
	fc.SVGSurface.Begin(width, height, background)
}

func (fc *frameCache) End() error {
	if err := fc.SVGSurface.End(); err != nil {
		return err
	}
	frame := bytes.Clone(fc.buf.Bytes())

	fc.mu.Lock()
	fc.last = frame
	fc.mu.Unlock()
	return nil
}

// Frame returns the last finished SVG document, or nil before the first
// frame. The slice must not be modified.
func (fc *frameCache) Frame() []byte {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.last
}
