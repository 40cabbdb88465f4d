package board

import (
	"slices"

	"github.com/hylla/join/internal/domain"
)

// RenderAll redraws every column from a full task snapshot given in collection order.
// Tasks are ordered by MovedAt ascending; ties keep collection order.
func (b *BoardController) RenderAll(tasks []domain.Task) {
	for _, c := range b.containers {
		c.Tickets = c.Tickets[:0]
		c.Placeholder = nil
	}

	ordered := slices.Clone(tasks)
	slices.SortStableFunc(ordered, func(x, y domain.Task) int {
		return compareMovedAt(x.MovedAt, y.MovedAt)
	})

	for _, task := range ordered {
		ticket := BuildTicket(task, b.descriptionLimit)
		c := b.containerByID(b.registry.ContainerID(ticket.Column))
		c.Tickets = append(c.Tickets, ticket)
	}

	if b.menu != nil {
		// items were computed for the column at open time
		if t := b.Ticket(b.menu.TaskID); t == nil || t.Column != b.menu.Column {
			b.closeMenu()
		}
	}
	b.applySearch()
	b.refreshAllPlaceholders()
}

// compareMovedAt orders timestamps ascending, treating negative values as never moved.
func compareMovedAt(a, b int64) int {
	a, b = max(a, 0), max(b, 0)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
