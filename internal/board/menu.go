package board

import (
	"unicode/utf8"

	"github.com/hylla/join/internal/domain"
)

// CloseTrigger names one event class that closes the move menu.
type CloseTrigger string

// CloseTrigger values.
const (
	TriggerOutsideClick CloseTrigger = "outside-click"
	TriggerEscape       CloseTrigger = "escape"
	TriggerScroll       CloseTrigger = "scroll"
	TriggerResize       CloseTrigger = "resize"
	TriggerWheel        CloseTrigger = "wheel"
)

// closeTriggers lists every trigger registered while a menu is open.
var closeTriggers = []CloseTrigger{
	TriggerOutsideClick,
	TriggerEscape,
	TriggerScroll,
	TriggerResize,
	TriggerWheel,
}

// MenuAction is the effect of one menu item.
type MenuAction int

// MenuAction values.
const (
	ActionMoveTo MenuAction = iota
	ActionMoveUp
	ActionMoveDown
)

// Direction tells whether a target column precedes or follows the current one.
type Direction int

// Direction values.
const (
	DirectionUp Direction = iota
	DirectionDown
)

// Arrow returns the indicator glyph.
func (d Direction) Arrow() string {
	if d == DirectionUp {
		return "↑"
	}
	return "↓"
}

// MenuItem is one entry of the move menu.
type MenuItem struct {
	Action    MenuAction
	Target    domain.ColumnKey
	Direction Direction
	Label     string
}

// Menu is the open move menu. Bounds include a one-cell border.
type Menu struct {
	TaskID   string
	Column   domain.ColumnKey
	Items    []MenuItem
	Selected int
	Bounds   Rect
}

// itemAt returns the item index drawn on row y, or -1.
func (m *Menu) itemAt(y int) int {
	idx := y - m.Bounds.Y - 1
	if idx < 0 || idx >= len(m.Items) {
		return -1
	}
	return idx
}

// Menu returns the open menu, or nil.
func (b *BoardController) Menu() *Menu {
	return b.menu
}

// OpenMenu opens the move menu for taskID near anchor. Reopening for the same task closes it;
// opening for another task closes the previous menu first.
func (b *BoardController) OpenMenu(taskID string, anchor Point) {
	if b.menu != nil {
		same := b.menu.TaskID == taskID
		b.closeMenu()
		if same {
			return
		}
	}
	ticket := b.Ticket(taskID)
	if ticket == nil {
		return
	}

	current := ticket.Column
	items := make([]MenuItem, 0, 4)
	for _, target := range b.registry.NeighborsOf(current).Targets() {
		dir := DirectionDown
		if target.Index() < current.Index() {
			dir = DirectionUp
		}
		items = append(items, MenuItem{
			Action:    ActionMoveTo,
			Target:    target,
			Direction: dir,
			Label:     dir.Arrow() + " " + b.registry.Title(target),
		})
	}
	items = append(items,
		MenuItem{Action: ActionMoveUp, Label: "Move up"},
		MenuItem{Action: ActionMoveDown, Label: "Move down"},
	)

	b.menu = &Menu{
		TaskID: taskID,
		Column: current,
		Items:  items,
		Bounds: b.placeMenu(anchor, items),
	}
	for _, trigger := range closeTriggers {
		b.listeners[trigger] = b.closeMenu
	}
}

// placeMenu positions the menu below the anchor, flipping above when it would overflow,
// and clamps it into the viewport.
func (b *BoardController) placeMenu(anchor Point, items []MenuItem) Rect {
	width := 0
	for _, it := range items {
		width = max(width, utf8.RuneCountInString(it.Label))
	}
	r := Rect{W: width + 4, H: len(items) + 2}
	r.X = anchor.X
	r.Y = anchor.Y + 1
	vp := b.viewport
	if vp.Empty() {
		return r
	}
	if r.Y+r.H > vp.Y+vp.H {
		r.Y = anchor.Y - r.H
	}
	r.X = clampInt(r.X, vp.X, vp.X+vp.W-r.W)
	r.Y = clampInt(r.Y, vp.Y, vp.Y+vp.H-r.H)
	return r
}

// SelectTarget commits taskID to target through the same path as Drop and closes the menu.
func (b *BoardController) SelectTarget(taskID string, target domain.ColumnKey) (ColumnChange, bool) {
	b.closeMenu()
	return b.commitColumnChange(taskID, target)
}

// SelectMenuItem runs the item at idx of the open menu.
func (b *BoardController) SelectMenuItem(idx int) (ColumnChange, bool) {
	if b.menu == nil || idx < 0 || idx >= len(b.menu.Items) {
		return ColumnChange{}, false
	}
	item := b.menu.Items[idx]
	taskID := b.menu.TaskID
	switch item.Action {
	case ActionMoveUp:
		b.closeMenu()
		b.MoveUp(taskID)
		return ColumnChange{}, false
	case ActionMoveDown:
		b.closeMenu()
		b.MoveDown(taskID)
		return ColumnChange{}, false
	default:
		return b.SelectTarget(taskID, item.Target)
	}
}

// MenuCursor moves the highlighted menu item by delta, wrapping around.
func (b *BoardController) MenuCursor(delta int) {
	if b.menu == nil || len(b.menu.Items) == 0 {
		return
	}
	n := len(b.menu.Items)
	b.menu.Selected = ((b.menu.Selected+delta)%n + n) % n
}

// MoveUp swaps a ticket with its previous sibling. The store is not touched.
func (b *BoardController) MoveUp(taskID string) bool {
	c, idx := b.locate(taskID)
	if c == nil || idx == 0 {
		return false
	}
	c.Tickets[idx-1], c.Tickets[idx] = c.Tickets[idx], c.Tickets[idx-1]
	return true
}

// MoveDown swaps a ticket with its next sibling. The store is not touched.
func (b *BoardController) MoveDown(taskID string) bool {
	c, idx := b.locate(taskID)
	if c == nil || idx == len(c.Tickets)-1 {
		return false
	}
	c.Tickets[idx], c.Tickets[idx+1] = c.Tickets[idx+1], c.Tickets[idx]
	return true
}

// Escape fires the escape trigger and reports whether a menu was closed.
func (b *BoardController) Escape() bool {
	return b.fire(TriggerEscape)
}

// Scroll fires the scroll trigger.
func (b *BoardController) Scroll() {
	b.fire(TriggerScroll)
}

// Wheel fires the wheel trigger.
func (b *BoardController) Wheel() {
	b.fire(TriggerWheel)
}

// Listeners returns the triggers currently registered.
func (b *BoardController) Listeners() []CloseTrigger {
	out := make([]CloseTrigger, 0, len(b.listeners))
	for _, trigger := range closeTriggers {
		if _, ok := b.listeners[trigger]; ok {
			out = append(out, trigger)
		}
	}
	return out
}

// fire runs the listener of trigger and reports whether one was registered.
func (b *BoardController) fire(trigger CloseTrigger) bool {
	fn, ok := b.listeners[trigger]
	if !ok {
		return false
	}
	fn()
	return true
}

// closeMenu removes the menu and detaches every close trigger.
func (b *BoardController) closeMenu() {
	b.menu = nil
	for _, trigger := range closeTriggers {
		delete(b.listeners, trigger)
	}
}
