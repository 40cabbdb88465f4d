package board

import "github.com/hylla/join/internal/domain"

// Placeholder is the empty-state entry of a column.
type Placeholder struct {
	Text string
}

// Container holds the tickets of one column in display order.
type Container struct {
	ID          string
	Key         domain.ColumnKey
	Title       string
	Tickets     []*Ticket
	Placeholder *Placeholder
	Highlighted bool
	Bounds      Rect
}

// VisibleCount returns the number of tickets not hidden by search.
func (c *Container) VisibleCount() int {
	n := 0
	for _, t := range c.Tickets {
		if !t.Hidden {
			n++
		}
	}
	return n
}

// indexOf returns the slice index of taskID, or -1.
func (c *Container) indexOf(taskID string) int {
	for i, t := range c.Tickets {
		if t.TaskID == taskID {
			return i
		}
	}
	return -1
}

// remove detaches the ticket at idx.
func (c *Container) remove(idx int) *Ticket {
	t := c.Tickets[idx]
	c.Tickets = append(c.Tickets[:idx], c.Tickets[idx+1:]...)
	return t
}
