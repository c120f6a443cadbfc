package chart

import "golang.org/x/image/font"

const (
	defaultWidth  = 960
	defaultHeight = 540
	minWidth      = 320
	minHeight     = 180
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the pixel size of every chart. Sizes below 320x180 are
// raised to that minimum.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		r.width = max(width, minWidth)
		r.height = max(height, minHeight)
	}
}

// WithFontFace replaces the built-in bitmap font.
func WithFontFace(face font.Face) Option {
	return func(r *Renderer) {
		if face != nil {
			r.face = face
		}
	}
}
