package app

import (
	"context"

	"github.com/hylla/join/internal/domain"
)

// Repository is the persistence port used by Service.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	// ListTasks returns tasks in collection (insertion) order.
	ListTasks(context.Context) ([]domain.Task, error)
	DeleteTask(context.Context, string) error

	CreateContact(context.Context, domain.Contact) error
	UpdateContact(context.Context, domain.Contact) error
	GetContact(context.Context, string) (domain.Contact, error)
	ListContacts(context.Context) ([]domain.Contact, error)
	DeleteContact(context.Context, string) error

	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}

// ChangeNotice describes one task mutation announced to other processes.
type ChangeNotice struct {
	Origin    string                 `json:"origin"`
	TaskID    string                 `json:"task_id,omitempty"`
	Operation domain.ChangeOperation `json:"operation"`
}

// ChangeNotifier publishes change notices beyond the current process.
type ChangeNotifier interface {
	Publish(context.Context, ChangeNotice) error
}
