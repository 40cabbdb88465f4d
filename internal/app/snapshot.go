package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/join/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "join.snapshot.v1"

// Snapshot represents a portable export of the whole board.
type Snapshot struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Tasks      []SnapshotTask    `json:"tasks"`
	Contacts   []SnapshotContact `json:"contacts"`
}

// SnapshotTask represents snapshot task data used by this package.
type SnapshotTask struct {
	ID               string                   `json:"id"`
	Column           domain.ColumnKey         `json:"column"`
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	DueDate          *time.Time               `json:"due_date,omitempty"`
	Category         string                   `json:"category"`
	Priority         domain.Priority          `json:"priority"`
	Subtasks         []domain.Subtask         `json:"subtasks"`
	AssignedContacts []domain.AssignedContact `json:"assigned_contacts"`
	MovedAt          int64                    `json:"moved_at,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// SnapshotContact represents snapshot contact data used by this package.
type SnapshotContact struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	ColorIndex int       `json:"color_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ExportSnapshot exports tasks in collection order and contacts sorted by name.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tasks: %w", err)
	}
	contacts, err := s.ListContacts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list contacts: %w", err)
	}

	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Tasks:      make([]SnapshotTask, 0, len(tasks)),
		Contacts:   make([]SnapshotContact, 0, len(contacts)),
	}
	for _, t := range tasks {
		snap.Tasks = append(snap.Tasks, snapshotTaskFromDomain(t))
	}
	for _, c := range contacts {
		snap.Contacts = append(snap.Contacts, snapshotContactFromDomain(c))
	}
	return snap, nil
}

// ImportSnapshot upserts every contact and task of a validated snapshot.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	for _, c := range snap.Contacts {
		contact := c.toDomain()
		if _, err := s.repo.GetContact(ctx, contact.ID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("load contact %q: %w", contact.ID, err)
			}
			if err := s.repo.CreateContact(ctx, contact); err != nil {
				return fmt.Errorf("create contact %q: %w", contact.ID, err)
			}
			continue
		}
		if err := s.repo.UpdateContact(ctx, contact); err != nil {
			return fmt.Errorf("update contact %q: %w", contact.ID, err)
		}
	}
	for _, t := range snap.Tasks {
		task := t.toDomain()
		if _, err := s.repo.GetTask(ctx, task.ID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("load task %q: %w", task.ID, err)
			}
			if err := s.repo.CreateTask(ctx, task); err != nil {
				return fmt.Errorf("create task %q: %w", task.ID, err)
			}
			continue
		}
		if err := s.repo.UpdateTask(ctx, task); err != nil {
			return fmt.Errorf("update task %q: %w", task.ID, err)
		}
	}
	if len(snap.Tasks) > 0 {
		s.announce(ctx, "", domain.ChangeOperationUpdate)
	}
	return nil
}

// Validate checks version, identifiers and enumerated fields.
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.Version) != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	seenContacts := map[string]struct{}{}
	for idx, c := range s.Contacts {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return fmt.Errorf("%w: contacts[%d].id is required", ErrInvalidSnapshot, idx)
		}
		if _, ok := seenContacts[id]; ok {
			return fmt.Errorf("%w: contacts[%d].id is duplicated: %s", ErrInvalidSnapshot, idx, id)
		}
		seenContacts[id] = struct{}{}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: contacts[%d].name is required", ErrInvalidSnapshot, idx)
		}
		if c.ColorIndex < 0 || c.ColorIndex >= len(domain.ContactPalette) {
			return fmt.Errorf("%w: contacts[%d].color_index out of range", ErrInvalidSnapshot, idx)
		}
	}
	seenTasks := map[string]struct{}{}
	for idx, t := range s.Tasks {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return fmt.Errorf("%w: tasks[%d].id is required", ErrInvalidSnapshot, idx)
		}
		if _, ok := seenTasks[id]; ok {
			return fmt.Errorf("%w: tasks[%d].id is duplicated: %s", ErrInvalidSnapshot, idx, id)
		}
		seenTasks[id] = struct{}{}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("%w: tasks[%d].title is required", ErrInvalidSnapshot, idx)
		}
		if !t.Column.IsValid() {
			return fmt.Errorf("%w: tasks[%d].column %q is unknown", ErrInvalidSnapshot, idx, t.Column)
		}
		switch t.Priority {
		case domain.PriorityUrgent, domain.PriorityMedium, domain.PriorityLow:
		default:
			return fmt.Errorf("%w: tasks[%d].priority %q is unknown", ErrInvalidSnapshot, idx, t.Priority)
		}
		if t.MovedAt < 0 {
			return fmt.Errorf("%w: tasks[%d].moved_at must be >= 0", ErrInvalidSnapshot, idx)
		}
	}
	return nil
}

// snapshotTaskFromDomain converts a task to its snapshot form.
func snapshotTaskFromDomain(t domain.Task) SnapshotTask {
	return SnapshotTask{
		ID:               t.ID,
		Column:           t.Column,
		Title:            t.Title,
		Description:      t.Description,
		DueDate:          copyTimePtr(t.DueDate),
		Category:         t.Category,
		Priority:         t.Priority,
		Subtasks:         append([]domain.Subtask{}, t.Subtasks...),
		AssignedContacts: append([]domain.AssignedContact{}, t.AssignedContacts...),
		MovedAt:          t.MovedAt,
		CreatedAt:        t.CreatedAt.UTC(),
		UpdatedAt:        t.UpdatedAt.UTC(),
	}
}

// snapshotContactFromDomain converts a contact to its snapshot form.
func snapshotContactFromDomain(c domain.Contact) SnapshotContact {
	return SnapshotContact{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		ColorIndex: c.ColorIndex,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

// toDomain converts a snapshot task back to the domain type.
func (t SnapshotTask) toDomain() domain.Task {
	return domain.Task{
		ID:               strings.TrimSpace(t.ID),
		Column:           t.Column,
		Title:            strings.TrimSpace(t.Title),
		Description:      t.Description,
		DueDate:          copyTimePtr(t.DueDate),
		Category:         t.Category,
		Priority:         t.Priority,
		Subtasks:         append([]domain.Subtask{}, t.Subtasks...),
		AssignedContacts: append([]domain.AssignedContact{}, t.AssignedContacts...),
		MovedAt:          t.MovedAt,
		CreatedAt:        t.CreatedAt.UTC(),
		UpdatedAt:        t.UpdatedAt.UTC(),
	}
}

// toDomain converts a snapshot contact back to the domain type.
func (c SnapshotContact) toDomain() domain.Contact {
	return domain.Contact{
		ID:         strings.TrimSpace(c.ID),
		Name:       strings.TrimSpace(c.Name),
		Email:      c.Email,
		Phone:      c.Phone,
		ColorIndex: c.ColorIndex,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

// copyTimePtr returns a detached copy of a time pointer.
func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	out := in.UTC()
	return &out
}
