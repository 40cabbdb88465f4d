package board

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/hylla/join/internal/domain"
)

// DefaultDescriptionLimit is the rune limit applied to ticket descriptions.
const DefaultDescriptionLimit = 50

// Ellipsis marks a truncated description.
const Ellipsis = "…"

// maxChips is the number of assignee slots on a ticket.
const maxChips = 3

// Chip is one assignee slot on a ticket. Overflow chips carry a "+N" label instead of initials.
type Chip struct {
	Label      string
	ColorIndex int
	Overflow   bool
}

// Progress summarizes subtask completion.
type Progress struct {
	Done    int
	Total   int
	Percent int
}

// Ticket is the per-render view of one task.
type Ticket struct {
	TaskID   string
	Column   domain.ColumnKey
	Title    string
	Summary  string
	Category string
	Priority domain.Priority
	// Progress is nil when the task has no subtasks.
	Progress *Progress
	Chips    []Chip
	Hidden   bool

	// Bounds and OptionsBounds are assigned by the layout pass of the renderer that draws the board.
	Bounds        Rect
	OptionsBounds Rect

	searchText string
}

// BuildTicket builds the ticket view of task. Unknown columns are placed in todo.
func BuildTicket(task domain.Task, descriptionLimit int) *Ticket {
	if descriptionLimit <= 0 {
		descriptionLimit = DefaultDescriptionLimit
	}
	column := task.Column
	if !column.IsValid() {
		column = domain.ColumnTodo
	}
	t := &Ticket{
		TaskID:     task.ID,
		Column:     column,
		Title:      task.Title,
		Summary:    Truncate(strings.Join(strings.Fields(task.Description), " "), descriptionLimit),
		Category:   task.Category,
		Priority:   task.Priority,
		Chips:      buildChips(task.AssignedContacts),
		searchText: strings.ToLower(task.Title + "\n" + task.Description),
	}
	if done, total := task.SubtaskProgress(); total > 0 {
		t.Progress = &Progress{
			Done:    done,
			Total:   total,
			Percent: int(math.Round(float64(done) / float64(total) * 100)),
		}
	}
	return t
}

// Matches reports whether the lowercased query occurs in the title or description.
func (t *Ticket) Matches(query string) bool {
	return strings.Contains(t.searchText, strings.ToLower(query))
}

// buildChips returns up to three chips, replacing the third with an overflow badge when needed.
func buildChips(contacts []domain.AssignedContact) []Chip {
	if len(contacts) <= maxChips {
		out := make([]Chip, 0, len(contacts))
		for _, c := range contacts {
			out = append(out, contactChip(c))
		}
		return out
	}
	out := make([]Chip, 0, maxChips)
	for _, c := range contacts[:maxChips-1] {
		out = append(out, contactChip(c))
	}
	out = append(out, Chip{
		Label:    "+" + strconv.Itoa(len(contacts)-(maxChips-1)),
		Overflow: true,
	})
	return out
}

// contactChip builds the chip of one assignee.
func contactChip(c domain.AssignedContact) Chip {
	label := c.Initials
	if label == "" {
		label = domain.Initials(c.Name)
	}
	return Chip{Label: label, ColorIndex: c.ColorIndex}
}

// Truncate shortens s to at most limit runes plus an ellipsis, cutting at the last whitespace
// at or before the limit. A single word longer than the limit is cut at the limit.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	cut := -1
	for i := limit; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	head := ""
	if cut > 0 {
		head = strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
	}
	if head == "" {
		head = string(runes[:limit])
	}
	return head + Ellipsis
}
