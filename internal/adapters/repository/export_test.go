package repository

// Len returns the number of cached templates.
func (c *TemplateCache) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.cache.ItemCount()
}
