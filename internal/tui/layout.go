package tui

import "github.com/hylla/join/internal/board"

// board geometry shared by the layout pass and the renderer.
const (
	boardTop       = 2
	footerHeight   = 3
	cardHeight     = 4
	cardGap        = 1
	columnGap      = 1
	minColumnWidth = 22
	minColumnRows  = 8
	// cardRowsTop is the first card row relative to the column top border.
	cardRowsTop = 3
)

// columnWidth returns the outer width of one column including its border.
func (m Model) columnWidth() int {
	n := max(1, len(m.board.Containers()))
	w := (m.width - columnGap*(n-1)) / n
	return max(minColumnWidth, w)
}

// columnHeight returns the outer height of one column including its border.
func (m Model) columnHeight() int {
	return max(minColumnRows, m.height-boardTop-footerHeight)
}

// cardCapacity returns how many cards fit in one column.
func (m Model) cardCapacity() int {
	rows := m.columnHeight() - cardRowsTop - 1
	return max(1, (rows+cardGap)/(cardHeight+cardGap))
}

// visibleTickets returns the tickets of c not hidden by search, in display order.
func visibleTickets(c *board.Container) []*board.Ticket {
	out := make([]*board.Ticket, 0, len(c.Tickets))
	for _, t := range c.Tickets {
		if !t.Hidden {
			out = append(out, t)
		}
	}
	return out
}

// ticketWindow returns the first visible index and the tickets drawn for column idx.
func (m Model) ticketWindow(idx int, c *board.Container) (int, []*board.Ticket) {
	visible := visibleTickets(c)
	offset := 0
	if idx < len(m.scroll) {
		offset = m.scroll[idx]
	}
	offset = clamp(offset, 0, max(0, len(visible)-m.cardCapacity()))
	end := min(len(visible), offset+m.cardCapacity())
	return offset, visible[offset:end]
}

// applyLayout assigns column and ticket bounds on the board so pointer input can be hit-tested
// against what View draws. Tickets outside the scrolled window get empty bounds.
func (m *Model) applyLayout() {
	if !m.ready {
		return
	}
	containers := m.board.Containers()
	if len(m.scroll) != len(containers) {
		m.scroll = make([]int, len(containers))
	}
	colW := m.columnWidth()
	colH := m.columnHeight()
	capacity := m.cardCapacity()

	for idx, c := range containers {
		x := idx * (colW + columnGap)
		m.board.SetContainerBounds(c.ID, board.Rect{X: x, Y: boardTop, W: colW, H: colH})

		visible := visibleTickets(c)
		offset := m.scroll[idx]
		if idx == m.selectedColumn && len(visible) > 0 {
			sel := clamp(m.selectedTask, 0, len(visible)-1)
			if sel < offset {
				offset = sel
			}
			if sel >= offset+capacity {
				offset = sel - capacity + 1
			}
		}
		offset = clamp(offset, 0, max(0, len(visible)-capacity))
		m.scroll[idx] = offset

		for _, t := range c.Tickets {
			m.board.SetTicketBounds(t.TaskID, board.Rect{}, board.Rect{})
		}
		end := min(len(visible), offset+capacity)
		for row, t := range visible[offset:end] {
			y := boardTop + cardRowsTop + row*(cardHeight+cardGap)
			body := board.Rect{X: x + 1, Y: y, W: colW - 2, H: cardHeight}
			options := board.Rect{X: x + colW - 4, Y: y, W: 2, H: 1}
			m.board.SetTicketBounds(t.TaskID, body, options)
		}
	}
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
