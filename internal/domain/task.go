package domain

import (
	"slices"
	"strings"
	"time"
)

// Priority represents task urgency.
type Priority string

// Priority values.
const (
	PriorityUrgent Priority = "urgent"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DefaultCategory is used when a task is created without a category.
const DefaultCategory = "Technical Task"

var validPriorities = []Priority{PriorityUrgent, PriorityMedium, PriorityLow}

// Priorities returns every priority, most urgent first.
func Priorities() []Priority {
	return append([]Priority(nil), validPriorities...)
}

// Subtask is one checklist entry of a task.
type Subtask struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// Task is the central board entity.
type Task struct {
	ID               string
	Column           ColumnKey
	Title            string
	Description      string
	DueDate          *time.Time
	Category         string
	Priority         Priority
	Subtasks         []Subtask
	AssignedContacts []AssignedContact
	// MovedAt is the unix-millisecond time of the last column change; zero means never moved.
	MovedAt   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskInput holds input values for NewTask.
type TaskInput struct {
	ID               string
	Column           ColumnKey
	Title            string
	Description      string
	DueDate          *time.Time
	Category         string
	Priority         Priority
	Subtasks         []Subtask
	AssignedContacts []AssignedContact
}

// NewTask validates input and constructs a task.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Column == "" {
		in.Column = ColumnTodo
	}
	if !in.Column.IsValid() {
		return Task{}, ErrInvalidColumn
	}

	t := Task{
		ID:        in.ID,
		Column:    in.Column,
		CreatedAt: now.UTC(),
	}
	if err := t.UpdateDetails(in.Title, in.Description, in.DueDate, in.Category, in.Priority, now); err != nil {
		return Task{}, err
	}
	if err := t.SetSubtasks(in.Subtasks, now); err != nil {
		return Task{}, err
	}
	t.AssignContacts(in.AssignedContacts, now)
	return t, nil
}

// Move changes the task column and records movedAt. Moving to the current column is a no-op.
// MovedAt never decreases; a movedAt earlier than the current value keeps the current value.
func (t *Task) Move(column ColumnKey, movedAt int64, now time.Time) error {
	if !column.IsValid() {
		return ErrInvalidColumn
	}
	if column == t.Column {
		return nil
	}
	if movedAt > t.MovedAt {
		t.MovedAt = movedAt
	}
	t.Column = column
	t.UpdatedAt = now.UTC()
	return nil
}

// UpdateDetails replaces descriptive fields. Column and MovedAt are left untouched.
func (t *Task) UpdateDetails(title, description string, dueDate *time.Time, category string, priority Priority, now time.Time) error {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	category = strings.TrimSpace(category)
	if title == "" {
		return ErrInvalidTitle
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	if category == "" {
		category = DefaultCategory
	}
	t.Title = title
	t.Description = description
	t.DueDate = normalizeDueDate(dueDate)
	t.Category = category
	t.Priority = priority
	t.UpdatedAt = now.UTC()
	return nil
}

// SetSubtasks replaces the subtask list, dropping blank names.
func (t *Task) SetSubtasks(subtasks []Subtask, now time.Time) error {
	out := make([]Subtask, 0, len(subtasks))
	for _, st := range subtasks {
		st.Name = strings.TrimSpace(st.Name)
		if st.Name == "" {
			continue
		}
		out = append(out, st)
	}
	t.Subtasks = out
	t.UpdatedAt = now.UTC()
	return nil
}

// AddSubtask appends one unchecked subtask.
func (t *Task) AddSubtask(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidSubtaskName
	}
	t.Subtasks = append(t.Subtasks, Subtask{Name: name})
	t.UpdatedAt = now.UTC()
	return nil
}

// ToggleSubtask flips the checked state of the subtask at idx.
func (t *Task) ToggleSubtask(idx int, now time.Time) error {
	if idx < 0 || idx >= len(t.Subtasks) {
		return ErrInvalidSubtask
	}
	t.Subtasks[idx].Checked = !t.Subtasks[idx].Checked
	t.UpdatedAt = now.UTC()
	return nil
}

// AssignContacts replaces the assignee snapshots, dropping duplicates and blank ids.
func (t *Task) AssignContacts(contacts []AssignedContact, now time.Time) {
	out := make([]AssignedContact, 0, len(contacts))
	seen := map[string]struct{}{}
	for _, c := range contacts {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		if c.Initials == "" {
			c.Initials = Initials(c.Name)
		}
		out = append(out, c)
	}
	t.AssignedContacts = out
	t.UpdatedAt = now.UTC()
}

// SubtaskProgress returns the number of checked subtasks and the total.
func (t Task) SubtaskProgress() (int, int) {
	done := 0
	for _, st := range t.Subtasks {
		if st.Checked {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// normalizeDueDate truncates a due date to the UTC calendar day.
func normalizeDueDate(due *time.Time) *time.Time {
	if due == nil {
		return nil
	}
	u := due.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}
