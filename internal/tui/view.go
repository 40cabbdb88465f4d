package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/join/internal/board"
	"github.com/hylla/join/internal/domain"
)

// palette used across the board.
var (
	accentColor    = lipgloss.Color("62")
	dropColor      = lipgloss.Color("212")
	mutedColor     = lipgloss.Color("241")
	dimColor       = lipgloss.Color("239")
	textColor      = lipgloss.Color("252")
	overflowColor  = lipgloss.Color("240")
	progressColor  = lipgloss.Color("33")
	priorityColors = map[domain.Priority]color.Color{
		domain.PriorityUrgent: lipgloss.Color("196"),
		domain.PriorityMedium: lipgloss.Color("214"),
		domain.PriorityLow:    lipgloss.Color("76"),
	}
)

// View handles view.
func (m Model) View() tea.View {
	return newView(m.render())
}

// render draws the full screen as plain text.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress q to quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	content := m.renderHeader() + "\n\n" + m.renderBoard()
	contentHeight := max(1, m.height-footerHeight)
	content = fitLines(content, contentHeight)
	if menu := m.board.Menu(); menu != nil {
		content = overlayAt(content, m.renderMenu(menu), menu.Bounds.X, menu.Bounds.Y, max(1, m.width), contentHeight)
	}
	if overlay := m.renderModeOverlay(); overlay != "" {
		content = overlayOnContent(content, overlay, max(1, m.width), contentHeight)
	}
	return content + "\n" + m.renderFooter()
}

// newView wraps content with the program's screen settings.
func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderHeader renders the title line, or the search input while searching.
func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(textColor)
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)
	header := titleStyle.Render("join") + "  Board"
	switch {
	case m.mode == modeSearch:
		header += "  " + m.searchInput.View()
	case m.board.SearchActive():
		header += statusStyle.Render("  search: " + m.board.SearchQuery())
	}
	if m.board.IsDragging() {
		header += statusStyle.Render("  dragging " + truncate(m.dragTitle(), 32))
	}
	return truncateWidth(header, m.width)
}

// dragTitle returns the title of the dragged ticket.
func (m Model) dragTitle() string {
	if t := m.board.Ticket(m.board.DragPayload()); t != nil {
		return t.Title
	}
	return ""
}

// renderBoard renders every column side by side.
func (m Model) renderBoard() string {
	containers := m.board.Containers()
	views := make([]string, 0, len(containers)*2)
	for idx, c := range containers {
		if idx > 0 {
			views = append(views, strings.Repeat(" ", columnGap))
		}
		views = append(views, m.renderColumn(idx, c))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderColumn renders one column at the size applyLayout assigned to it.
func (m Model) renderColumn(idx int, c *board.Container) string {
	inner := m.columnWidth() - 2
	rows := m.columnHeight() - 2

	border := dimColor
	if idx == m.selectedColumn && m.mode == modeNone {
		border = accentColor
	}
	if c.Highlighted {
		border = dropColor
	}

	offset, tickets := m.ticketWindow(idx, c)
	visible := len(visibleTickets(c))
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(c.Title)
	title += lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf(" (%d)", visible))
	more := ""
	if offset > 0 {
		more += fmt.Sprintf(" ↑%d", offset)
	}
	if below := visible - offset - len(tickets); below > 0 {
		more += fmt.Sprintf(" ↓%d", below)
	}
	title += lipgloss.NewStyle().Foreground(dimColor).Render(more)

	lines := []string{title, ""}
	if c.Placeholder != nil {
		lines = append(lines, lipgloss.NewStyle().Italic(true).Foreground(mutedColor).Render(c.Placeholder.Text))
	}
	selectedID := ""
	if idx == m.selectedColumn {
		selectedID = m.selectedTicketID()
	}
	for i, t := range tickets {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, m.renderCard(t, inner, t.TaskID == selectedID)...)
	}

	for i := range lines {
		lines[i] = padRight(truncateWidth(lines[i], inner), inner)
	}
	body := fitLines(strings.Join(lines, "\n"), rows)
	bodyLines := strings.Split(body, "\n")
	for i := range bodyLines {
		bodyLines[i] = padRight(bodyLines[i], inner)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Render(strings.Join(bodyLines, "\n"))
}

// renderCard renders the four lines of one ticket. The options glyph sits where
// applyLayout puts OptionsBounds.
func (m Model) renderCard(t *board.Ticket, width int, selected bool) []string {
	gutter := " "
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(textColor)
	if selected {
		gutter = lipgloss.NewStyle().Foreground(accentColor).Render("▌")
		titleStyle = titleStyle.Foreground(dropColor)
	}
	if m.board.DragPayload() == t.TaskID {
		titleStyle = titleStyle.Faint(true)
	}
	muted := lipgloss.NewStyle().Foreground(mutedColor)
	optionsStyle := lipgloss.NewStyle().Foreground(mutedColor)
	if menu := m.board.Menu(); menu != nil && menu.TaskID == t.TaskID {
		optionsStyle = optionsStyle.Foreground(accentColor).Bold(true)
	}

	titleWidth := max(1, width-4)
	line1 := gutter + titleStyle.Render(padRight(truncate(t.Title, titleWidth), titleWidth)) + optionsStyle.Render("⋮") + "  "
	line2 := gutter + muted.Render(truncate(t.Summary, width-1))
	line3 := gutter + m.cardMeta(t)
	line4 := gutter + renderProgressAndChips(t, width-1)
	return []string{line1, line2, line3, line4}
}

// cardMeta renders category and priority according to the board settings.
func (m Model) cardMeta(t *board.Ticket) string {
	parts := make([]string, 0, 2)
	if m.showCategory && t.Category != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(textColor).Render(t.Category))
	}
	if m.showPriority && t.Priority != "" {
		style := lipgloss.NewStyle().Foreground(mutedColor)
		if c, ok := priorityColors[t.Priority]; ok {
			style = style.Foreground(c)
		}
		parts = append(parts, style.Render(string(t.Priority)))
	}
	return strings.Join(parts, lipgloss.NewStyle().Foreground(dimColor).Render(" · "))
}

// renderProgressAndChips renders the subtask bar on the left and assignee chips on the right.
func renderProgressAndChips(t *board.Ticket, width int) string {
	left := ""
	if t.Progress != nil {
		const barWidth = 6
		filled := t.Progress.Percent * barWidth / 100
		bar := lipgloss.NewStyle().Foreground(progressColor).Render(strings.Repeat("▰", filled)) +
			lipgloss.NewStyle().Foreground(dimColor).Render(strings.Repeat("▱", barWidth-filled))
		left = bar + fmt.Sprintf(" %d/%d", t.Progress.Done, t.Progress.Total)
	}
	chips := make([]string, 0, len(t.Chips))
	for _, chip := range t.Chips {
		bg := overflowColor
		if !chip.Overflow {
			bg = lipgloss.Color(domain.ContactColor(chip.ColorIndex))
		}
		chips = append(chips, lipgloss.NewStyle().Background(bg).Foreground(lipgloss.Color("255")).Render(" "+chip.Label+" "))
	}
	right := strings.Join(chips, "")
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderMenu renders the move menu at the size the board assigned to it.
func (m Model) renderMenu(menu *board.Menu) string {
	inner := max(1, menu.Bounds.W-2)
	lines := make([]string, 0, len(menu.Items))
	for idx, item := range menu.Items {
		line := padRight(" "+item.Label, inner)
		if idx == menu.Selected {
			line = lipgloss.NewStyle().Bold(true).Foreground(textColor).Background(accentColor).Render(line)
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Render(strings.Join(lines, "\n"))
}

// renderFooter renders the status line and the short help line.
func (m Model) renderFooter() string {
	status := lipgloss.NewStyle().Foreground(dimColor).Render(truncateWidth(m.status, max(0, m.width-2)))
	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	return " " + status + "\n" + helpLine
}

// renderModeOverlay renders the modal for the current mode, if any.
func (m Model) renderModeOverlay() string {
	if m.help.ShowAll {
		return m.renderHelpOverlay()
	}
	switch m.mode {
	case modeAddTask, modeEditTask:
		return m.renderTaskForm()
	case modeDetail:
		return m.renderDetail()
	case modeConfirmDelete:
		title := m.confirmTaskID
		if task, ok := m.taskByID(m.confirmTaskID); ok {
			title = task.Title
		}
		return modalStyle(48).Render(
			lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Delete task") + "\n\n" +
				truncate(title, 44) + "\n\n" +
				lipgloss.NewStyle().Foreground(mutedColor).Render("y confirm • n cancel"))
	}
	return ""
}

// modalStyle is the frame shared by every overlay.
func modalStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Width(width)
}

// renderTaskForm renders the add or edit form.
func (m Model) renderTaskForm() string {
	width := clamp(m.width-8, 40, 72)
	heading := "New task in " + m.board.Registry().Title(m.formColumn)
	if m.mode == modeEditTask {
		heading = "Edit task"
	}
	labelStyle := lipgloss.NewStyle().Foreground(mutedColor).Width(12)
	focusStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true).Width(12)
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(heading), ""}
	for idx, in := range m.formInputs {
		style := labelStyle
		if idx == m.formFocus {
			style = focusStyle
		}
		in.SetWidth(width - 16)
		lines = append(lines, style.Render(taskFormLabels[idx])+in.View())
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(mutedColor).Render("tab next • enter save • esc cancel"))
	return modalStyle(width).Render(strings.Join(lines, "\n"))
}

// renderDetail renders the task detail overlay.
func (m Model) renderDetail() string {
	task, ok := m.taskByID(m.detailTaskID)
	if !ok {
		return ""
	}
	width := clamp(m.width-8, 44, 88)
	muted := lipgloss.NewStyle().Foreground(mutedColor)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(task.Title),
		muted.Render(fmt.Sprintf("%s · %s · %s", m.board.Registry().Title(task.Column), task.Category, task.Priority)),
		muted.Render("due " + formatDueValue(task.DueDate)),
	}
	if len(task.AssignedContacts) > 0 {
		names := make([]string, 0, len(task.AssignedContacts))
		for _, a := range task.AssignedContacts {
			chip := lipgloss.NewStyle().Background(lipgloss.Color(domain.ContactColor(a.ColorIndex))).Foreground(lipgloss.Color("255")).Render(" " + a.Initials + " ")
			names = append(names, chip+" "+a.Name)
		}
		lines = append(lines, "", strings.Join(names, "  "))
	}
	if desc := m.description.render(task.Description, width-4); desc != "" {
		lines = append(lines, "", desc)
	}
	if len(task.Subtasks) > 0 {
		done, total := task.SubtaskProgress()
		lines = append(lines, "", muted.Render(fmt.Sprintf("Subtasks %d/%d", done, total)))
		for idx, st := range task.Subtasks {
			box := "[ ]"
			if st.Checked {
				box = "[x]"
			}
			line := box + " " + st.Name
			if idx == m.detailSubtask {
				line = lipgloss.NewStyle().Foreground(dropColor).Bold(true).Render("› " + line)
			} else {
				line = "  " + line
			}
			lines = append(lines, line)
		}
	}
	lines = append(lines, "", muted.Render("space toggle subtask • e edit • d delete • esc close"))
	return modalStyle(width).Render(strings.Join(lines, "\n"))
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay() string {
	width := clamp(m.width-8, 56, 100)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)
	muted := lipgloss.NewStyle().Foreground(mutedColor)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("join help"),
		"",
		hb.View(m.keys),
		"",
		muted.Render("drag a card with the mouse to move it to another column"),
		muted.Render("click ⋮ or press m for the move menu • enter opens a card"),
		muted.Render("press ? or esc to close"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	return composeLayers(base, centered, 0, 0, width, height)
}

// overlayAt draws overlay with its top-left corner at x, y.
func overlayAt(base, overlay string, x, y, width, height int) string {
	if width <= 0 || height <= 0 {
		return base
	}
	return composeLayers(base, overlay, x, y, width, height)
}

// composeLayers stacks overlay over base on a canvas.
func composeLayers(base, overlay string, x, y, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(max(width, lipgloss.Width(base)), height)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(overlay).X(x).Y(y).Z(10))
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}

// truncateWidth cuts styled text to width cells.
func truncateWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// padRight pads styled text with spaces to width cells.
func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
