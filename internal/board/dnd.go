package board

// DragState is the drag-and-drop gesture state.
type DragState int

// DragState values.
const (
	DragIdle DragState = iota
	DragDragging
	DragHovering
)

// String returns the state name.
func (s DragState) String() string {
	switch s {
	case DragDragging:
		return "dragging"
	case DragHovering:
		return "hovering"
	default:
		return "idle"
	}
}

// DragState reports the current gesture state.
func (b *BoardController) DragState() DragState {
	if !b.isDragging {
		return DragIdle
	}
	if b.HighlightedContainer() != "" {
		return DragHovering
	}
	return DragDragging
}

// IsDragging reports whether a ticket drag is in progress.
func (b *BoardController) IsDragging() bool {
	return b.isDragging
}

// DragPayload returns the task id being dragged.
func (b *BoardController) DragPayload() string {
	return b.dragPayload
}

// DragStart begins dragging a ticket. It reports false when the ticket is not on the board.
func (b *BoardController) DragStart(taskID string) bool {
	if b.Ticket(taskID) == nil {
		return false
	}
	b.isDragging = true
	b.dragPayload = taskID
	return true
}

// DragEnter highlights containerID alone while a drag is in progress.
func (b *BoardController) DragEnter(containerID string) {
	if !b.isDragging {
		return
	}
	if b.containerByID(containerID) == nil {
		return
	}
	b.highlightOnly(containerID)
}

// DragOver highlights the container under x, y while a drag is in progress.
func (b *BoardController) DragOver(x, y int) {
	if !b.isDragging {
		return
	}
	if c := b.ContainerAt(x, y); c != nil {
		b.highlightOnly(c.ID)
	}
}

// DragLeave clears the highlight of containerID only when x, y is outside its bounds.
func (b *BoardController) DragLeave(containerID string, x, y int) {
	if !b.isDragging {
		return
	}
	c := b.containerByID(containerID)
	if c == nil || c.Bounds.Contains(x, y) {
		return
	}
	c.Highlighted = false
}

// Drop commits the dragged ticket to the container under x, y. It aborts without any
// change when the source or target container cannot be resolved. Any column is a valid target;
// dropping onto the ticket's own column changes nothing.
func (b *BoardController) Drop(x, y int) (ColumnChange, bool) {
	if !b.isDragging || b.dragPayload == "" {
		return ColumnChange{}, false
	}
	if src, _ := b.locate(b.dragPayload); src == nil {
		b.logger.Debug("drop aborted: source container not found", "task_id", b.dragPayload)
		return ColumnChange{}, false
	}
	target := b.ContainerAt(x, y)
	if target == nil {
		b.logger.Debug("drop aborted: no container under pointer", "task_id", b.dragPayload, "x", x, "y", y)
		return ColumnChange{}, false
	}
	key, ok := b.registry.Lookup(target.ID)
	if !ok {
		b.logger.Debug("drop aborted: target container not registered", "container", target.ID)
		return ColumnChange{}, false
	}
	return b.commitColumnChange(b.dragPayload, key)
}

// DragEnd ends the gesture whether or not a drop happened.
func (b *BoardController) DragEnd() {
	b.isDragging = false
	b.dragPayload = ""
	b.clearHighlights()
}

// HighlightedContainer returns the id of the highlighted container, or "".
func (b *BoardController) HighlightedContainer() string {
	for _, c := range b.containers {
		if c.Highlighted {
			return c.ID
		}
	}
	return ""
}

// highlightOnly highlights one container and clears all others.
func (b *BoardController) highlightOnly(containerID string) {
	for _, c := range b.containers {
		c.Highlighted = c.ID == containerID
	}
}

// clearHighlights clears every container highlight.
func (b *BoardController) clearHighlights() {
	for _, c := range b.containers {
		c.Highlighted = false
	}
}
