package board

// RefreshPlaceholder shows the column's empty-state text iff it has no visible tickets.
func (b *BoardController) RefreshPlaceholder(containerID string) {
	c := b.containerByID(containerID)
	if c == nil {
		return
	}
	visible := c.VisibleCount()
	switch {
	case visible == 0 && c.Placeholder == nil:
		c.Placeholder = &Placeholder{Text: b.registry.EmptyText(c.Key)}
	case visible > 0 && c.Placeholder != nil:
		c.Placeholder = nil
	}
}

// refreshAllPlaceholders refreshes every column.
func (b *BoardController) refreshAllPlaceholders() {
	for _, c := range b.containers {
		b.RefreshPlaceholder(c.ID)
	}
}
