package chart

// PlaceholderPNG renders the empty-state image on its own.
func (r *Renderer) PlaceholderPNG() ([]byte, error) {
	dc := r.canvas()
	r.drawPlaceholder(dc)
	return encode(dc)
}
