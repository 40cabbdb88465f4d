package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/join/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// Origin identifies this process on published change notices.
	Origin   string
	Notifier ChangeNotifier
	Logger   *charmLog.Logger
}

// Service is the task store adapter: the single source of truth for tasks and contacts.
type Service struct {
	repo     Repository
	idGen    IDGenerator
	clock    Clock
	origin   string
	notifier ChangeNotifier
	logger   *charmLog.Logger
	broker   *changeBroker
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Service{
		repo:     repo,
		idGen:    idGen,
		clock:    clock,
		origin:   strings.TrimSpace(cfg.Origin),
		notifier: cfg.Notifier,
		logger:   logger,
		broker:   newChangeBroker(),
	}
}

// Origin returns the process identifier stamped on published notices.
func (s *Service) Origin() string {
	return s.origin
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Column      domain.ColumnKey
	Title       string
	Description string
	DueDate     *time.Time
	Category    string
	Priority    domain.Priority
	Subtasks    []string
	AssigneeIDs []string
}

// UpdateTaskInput holds input values for update task operations.
// Nil Subtasks or AssigneeIDs keep the current values; empty non-nil slices clear them.
type UpdateTaskInput struct {
	TaskID      string
	Title       string
	Description string
	DueDate     *time.Time
	Category    string
	Priority    domain.Priority
	Subtasks    []domain.Subtask
	AssigneeIDs []string
}

// CreateTask creates task.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	assignees, err := s.resolveAssignees(ctx, in.AssigneeIDs)
	if err != nil {
		return domain.Task{}, err
	}
	subtasks := make([]domain.Subtask, 0, len(in.Subtasks))
	for _, name := range in.Subtasks {
		subtasks = append(subtasks, domain.Subtask{Name: name})
	}
	task, err := domain.NewTask(domain.TaskInput{
		ID:               s.idGen(),
		Column:           in.Column,
		Title:            in.Title,
		Description:      in.Description,
		DueDate:          in.DueDate,
		Category:         in.Category,
		Priority:         in.Priority,
		Subtasks:         subtasks,
		AssignedContacts: assignees,
	}, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.announce(ctx, task.ID, domain.ChangeOperationCreate)
	return task, nil
}

// UpdateTask replaces descriptive task fields. The column is never changed here.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	now := s.clock()
	if err := task.UpdateDetails(in.Title, in.Description, in.DueDate, in.Category, in.Priority, now); err != nil {
		return domain.Task{}, err
	}
	if in.Subtasks != nil {
		if err := task.SetSubtasks(in.Subtasks, now); err != nil {
			return domain.Task{}, err
		}
	}
	if in.AssigneeIDs != nil {
		assignees, err := s.resolveAssignees(ctx, in.AssigneeIDs)
		if err != nil {
			return domain.Task{}, err
		}
		task.AssignContacts(assignees, now)
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	s.announce(ctx, task.ID, domain.ChangeOperationUpdate)
	return task, nil
}

// MoveTask moves a task to column, stamping movedAt with the current time.
func (s *Service) MoveTask(ctx context.Context, taskID string, column domain.ColumnKey) (domain.Task, error) {
	return s.moveTask(ctx, taskID, column, s.clock().UnixMilli())
}

// PersistColumnChange records a column change made optimistically by the board.
// Re-applying the same change leaves column and movedAt as they are.
func (s *Service) PersistColumnChange(ctx context.Context, taskID string, column domain.ColumnKey, movedAt int64) error {
	_, err := s.moveTask(ctx, taskID, column, movedAt)
	return err
}

// moveTask applies one column change and announces it.
func (s *Service) moveTask(ctx context.Context, taskID string, column domain.ColumnKey, movedAt int64) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if !column.IsValid() {
		return domain.Task{}, domain.ErrInvalidColumn
	}
	if task.Column == column {
		return task, nil
	}
	if err := task.Move(column, movedAt, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("move task: %w", err)
	}
	s.announce(ctx, task.ID, domain.ChangeOperationMove)
	return task, nil
}

// ToggleSubtask flips one subtask checkbox.
func (s *Service) ToggleSubtask(ctx context.Context, taskID string, idx int) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.ToggleSubtask(idx, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("toggle subtask: %w", err)
	}
	s.announce(ctx, task.ID, domain.ChangeOperationUpdate)
	return task, nil
}

// AddSubtask appends one subtask.
func (s *Service) AddSubtask(ctx context.Context, taskID, name string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.AddSubtask(name, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("add subtask: %w", err)
	}
	s.announce(ctx, task.ID, domain.ChangeOperationUpdate)
	return task, nil
}

// AssignContacts snapshots the named contacts onto a task, replacing prior assignees.
func (s *Service) AssignContacts(ctx context.Context, taskID string, contactIDs []string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	assignees, err := s.resolveAssignees(ctx, contactIDs)
	if err != nil {
		return domain.Task{}, err
	}
	task.AssignContacts(assignees, s.clock())
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("assign contacts: %w", err)
	}
	s.announce(ctx, task.ID, domain.ChangeOperationUpdate)
	return task, nil
}

// DeleteTask deletes task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.announce(ctx, taskID, domain.ChangeOperationDelete)
	return nil
}

// GetTask returns task.
func (s *Service) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	return s.repo.GetTask(ctx, taskID)
}

// ListTasks lists tasks in collection order.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.repo.ListTasks(ctx)
}

// CreateContactInput holds input values for create contact operations.
type CreateContactInput struct {
	Name  string
	Email string
	Phone string
}

// UpdateContactInput holds input values for update contact operations.
type UpdateContactInput struct {
	ContactID string
	Name      string
	Email     string
	Phone     string
}

// CreateContact creates a contact, assigning the next palette color round-robin.
func (s *Service) CreateContact(ctx context.Context, in CreateContactInput) (domain.Contact, error) {
	existing, err := s.repo.ListContacts(ctx)
	if err != nil {
		return domain.Contact{}, err
	}
	contact, err := domain.NewContact(domain.ContactInput{
		ID:         s.idGen(),
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		ColorIndex: len(existing) % len(domain.ContactPalette),
	}, s.clock())
	if err != nil {
		return domain.Contact{}, err
	}
	if err := s.repo.CreateContact(ctx, contact); err != nil {
		return domain.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

// UpdateContact updates contact details. Existing task assignments keep their snapshot.
func (s *Service) UpdateContact(ctx context.Context, in UpdateContactInput) (domain.Contact, error) {
	contact, err := s.repo.GetContact(ctx, in.ContactID)
	if err != nil {
		return domain.Contact{}, err
	}
	if err := contact.UpdateDetails(in.Name, in.Email, in.Phone, contact.ColorIndex, s.clock()); err != nil {
		return domain.Contact{}, err
	}
	if err := s.repo.UpdateContact(ctx, contact); err != nil {
		return domain.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return contact, nil
}

// GetContact returns contact.
func (s *Service) GetContact(ctx context.Context, contactID string) (domain.Contact, error) {
	return s.repo.GetContact(ctx, contactID)
}

// ListContacts lists contacts sorted by name.
func (s *Service) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := s.repo.ListContacts(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(contacts, func(a, b domain.Contact) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return contacts, nil
}

// DeleteContact deletes contact.
func (s *Service) DeleteContact(ctx context.Context, contactID string) error {
	return s.repo.DeleteContact(ctx, contactID)
}

// ListChangeEvents lists the most recent activity entries, newest first.
func (s *Service) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListChangeEvents(ctx, limit)
}

// SubscribeTasks delivers the full task collection now and after every change.
// The initial load runs synchronously so its error is returned to the caller.
func (s *Service) SubscribeTasks(ctx context.Context, onChange func([]domain.Task)) (func(), error) {
	if onChange == nil {
		return nil, errors.New("subscribe tasks: callback is required")
	}
	initial, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe tasks: %w", err)
	}

	signal := s.broker.subscribe()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer s.broker.unsubscribe(signal)
		onChange(initial)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-signal:
				tasks, err := s.repo.ListTasks(ctx)
				if err != nil {
					s.logger.Error("reload task snapshot failed", "err", err)
					continue
				}
				onChange(tasks)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}, nil
}

// HandleRemoteChange wakes subscribers for a change made by another process.
func (s *Service) HandleRemoteChange(notice ChangeNotice) {
	if s.origin != "" && notice.Origin == s.origin {
		return
	}
	s.logger.Debug("remote task change received", "origin", notice.Origin, "task_id", notice.TaskID, "operation", notice.Operation)
	s.broker.notify()
}

// announce notifies local subscribers and publishes the change to other processes.
func (s *Service) announce(ctx context.Context, taskID string, op domain.ChangeOperation) {
	s.broker.notify()
	if s.notifier == nil {
		return
	}
	notice := ChangeNotice{Origin: s.origin, TaskID: taskID, Operation: op}
	if err := s.notifier.Publish(ctx, notice); err != nil {
		s.logger.Warn("publish change notice failed", "task_id", taskID, "operation", op, "err", err)
	}
}

// resolveAssignees loads contacts and snapshots their display data.
func (s *Service) resolveAssignees(ctx context.Context, contactIDs []string) ([]domain.AssignedContact, error) {
	out := make([]domain.AssignedContact, 0, len(contactIDs))
	for _, id := range contactIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		contact, err := s.repo.GetContact(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve assignee %q: %w", id, err)
		}
		out = append(out, contact.Assignment())
	}
	return out, nil
}
