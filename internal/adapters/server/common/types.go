// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrorCode values shared by the HTTP error envelope and MCP tool errors.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeInternal       = "internal_error"
)

// BoardService is the app-facing surface both transports depend on.
type BoardService interface {
	ListTasks(context.Context) ([]domain.Task, error)
	GetTask(context.Context, string) (domain.Task, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	UpdateTask(context.Context, app.UpdateTaskInput) (domain.Task, error)
	MoveTask(context.Context, string, domain.ColumnKey) (domain.Task, error)
	ToggleSubtask(context.Context, string, int) (domain.Task, error)
	DeleteTask(context.Context, string) error

	ListContacts(context.Context) ([]domain.Contact, error)
	GetContact(context.Context, string) (domain.Contact, error)
	CreateContact(context.Context, app.CreateContactInput) (domain.Contact, error)
	UpdateContact(context.Context, app.UpdateContactInput) (domain.Contact, error)
	DeleteContact(context.Context, string) error

	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
	SubscribeTasks(context.Context, func([]domain.Task)) (func(), error)
}

// SubtaskPayload is the wire shape of one checklist entry.
type SubtaskPayload struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// AssigneePayload is the wire shape of one assigned contact snapshot.
type AssigneePayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Initials   string `json:"initials"`
	ColorIndex int    `json:"color_index"`
	Color      string `json:"color"`
}

// TaskPayload is the wire shape of one task.
type TaskPayload struct {
	ID          string            `json:"id"`
	Column      string            `json:"column"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	DueDate     string            `json:"due_date,omitempty"`
	Category    string            `json:"category"`
	Priority    string            `json:"priority"`
	Subtasks    []SubtaskPayload  `json:"subtasks"`
	Assignees   []AssigneePayload `json:"assignees"`
	MovedAt     int64             `json:"moved_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ContactPayload is the wire shape of one contact.
type ContactPayload struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Initials   string    `json:"initials"`
	ColorIndex int       `json:"color_index"`
	Color      string    `json:"color"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChangeEventPayload is the wire shape of one activity entry.
type ChangeEventPayload struct {
	ID         int64             `json:"id"`
	TaskID     string            `json:"task_id"`
	Operation  string            `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// DueDateLayout is the calendar-date format accepted and emitted for due dates.
const DueDateLayout = "2006-01-02"

// NewTaskPayload maps a domain task to its wire shape.
func NewTaskPayload(task domain.Task) TaskPayload {
	out := TaskPayload{
		ID:          task.ID,
		Column:      string(task.Column),
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		Priority:    string(task.Priority),
		Subtasks:    make([]SubtaskPayload, 0, len(task.Subtasks)),
		Assignees:   make([]AssigneePayload, 0, len(task.AssignedContacts)),
		MovedAt:     task.MovedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.DueDate != nil {
		out.DueDate = task.DueDate.Format(DueDateLayout)
	}
	for _, st := range task.Subtasks {
		out.Subtasks = append(out.Subtasks, SubtaskPayload{Name: st.Name, Checked: st.Checked})
	}
	for _, a := range task.AssignedContacts {
		out.Assignees = append(out.Assignees, AssigneePayload{
			ID:         a.ID,
			Name:       a.Name,
			Initials:   a.Initials,
			ColorIndex: a.ColorIndex,
			Color:      domain.ContactColor(a.ColorIndex),
		})
	}
	return out
}

// NewTaskPayloads maps a task collection, keeping its order.
func NewTaskPayloads(tasks []domain.Task) []TaskPayload {
	out := make([]TaskPayload, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskPayload(task))
	}
	return out
}

// NewContactPayload maps a domain contact to its wire shape.
func NewContactPayload(c domain.Contact) ContactPayload {
	return ContactPayload{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Initials:   domain.Initials(c.Name),
		ColorIndex: c.ColorIndex,
		Color:      domain.ContactColor(c.ColorIndex),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// NewChangeEventPayload maps one activity entry to its wire shape.
func NewChangeEventPayload(ev domain.ChangeEvent) ChangeEventPayload {
	return ChangeEventPayload{
		ID:         ev.ID,
		TaskID:     ev.TaskID,
		Operation:  string(ev.Operation),
		Metadata:   ev.Metadata,
		OccurredAt: ev.OccurredAt,
	}
}

// ParseDueDate parses an optional YYYY-MM-DD date. Blank input yields nil.
func ParseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	due, err := time.Parse(DueDateLayout, raw)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}
	return &due, nil
}

// ParseColumn parses a column key, reporting unknown keys as invalid requests.
func ParseColumn(raw string) (domain.ColumnKey, error) {
	key, ok := domain.ParseColumnKey(raw)
	if !ok {
		return "", errors.Join(ErrInvalidRequest, domain.ErrInvalidColumn)
	}
	return key, nil
}

// ErrorCode classifies an app or domain error into a stable transport code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return CodeInternal
	case errors.Is(err, app.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, app.ErrInvalidSnapshot),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidColumn),
		errors.Is(err, domain.ErrInvalidSubtask),
		errors.Is(err, domain.ErrInvalidSubtaskName),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidColorIndex):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}
