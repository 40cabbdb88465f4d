// Package board holds the column board state: containers, tickets, drag and drop,
// the move menu, search filtering and placeholders.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/join/internal/domain"
)

// TaskFeed delivers the full task collection now and after every change.
type TaskFeed interface {
	SubscribeTasks(context.Context, func([]domain.Task)) (func(), error)
}

// ColumnPersister records a column change. Implementations must tolerate repeated calls.
type ColumnPersister interface {
	PersistColumnChange(ctx context.Context, taskID string, column domain.ColumnKey, movedAt int64) error
}

// DetailOpener opens the detail view of a task.
type DetailOpener interface {
	OpenTaskDetail(taskID string)
}

// EditOpener opens the edit form of a task.
type EditOpener interface {
	OpenEditForTask(taskID string)
}

// ColumnChange is the outcome of one committed move.
type ColumnChange struct {
	TaskID  string
	From    domain.ColumnKey
	Column  domain.ColumnKey
	MovedAt int64
}

// Option configures a BoardController.
type Option func(*BoardController)

// WithLogger sets the logger used for persistence and resolution failures.
func WithLogger(logger *charmLog.Logger) Option {
	return func(b *BoardController) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp movedAt.
func WithClock(clock func() time.Time) Option {
	return func(b *BoardController) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithColumnLabels overrides column titles and empty-state texts.
func WithColumnLabels(labels map[domain.ColumnKey]ColumnLabels) Option {
	return func(b *BoardController) {
		b.registry = NewRegistry(labels)
	}
}

// WithDescriptionLimit sets the ticket description rune limit.
func WithDescriptionLimit(limit int) Option {
	return func(b *BoardController) {
		if limit > 0 {
			b.descriptionLimit = limit
		}
	}
}

// WithSearchMinLength sets the query length at which filtering starts.
func WithSearchMinLength(n int) Option {
	return func(b *BoardController) {
		if n > 0 {
			b.searchMinLength = n
		}
	}
}

// WithEditOpener sets the collaborator that opens edit forms.
func WithEditOpener(opener EditOpener) Option {
	return func(b *BoardController) {
		b.editOpener = opener
	}
}

// BoardController owns all mutable board state. It is not safe for concurrent use;
// callers drive it from one event loop.
type BoardController struct {
	registry   *Registry
	containers []*Container
	persister  ColumnPersister
	opener     DetailOpener
	editOpener EditOpener
	logger     *charmLog.Logger
	clock      func() time.Time

	descriptionLimit int
	searchMinLength  int

	isDragging  bool
	dragPayload string

	menu      *Menu
	listeners map[CloseTrigger]func()

	searchQuery string
	viewport    Rect
}

// NewController constructs a board with four empty columns.
func NewController(persister ColumnPersister, opener DetailOpener, opts ...Option) *BoardController {
	b := &BoardController{
		registry:         NewRegistry(nil),
		persister:        persister,
		opener:           opener,
		logger:           charmLog.New(io.Discard),
		clock:            time.Now,
		descriptionLimit: DefaultDescriptionLimit,
		searchMinLength:  DefaultSearchMinLength,
		listeners:        map[CloseTrigger]func(){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.buildContainers()
	b.refreshAllPlaceholders()
	return b
}

// buildContainers creates one container per registry column.
func (b *BoardController) buildContainers() {
	b.containers = make([]*Container, 0, len(b.registry.Keys()))
	for _, key := range b.registry.Keys() {
		b.containers = append(b.containers, &Container{
			ID:    b.registry.ContainerID(key),
			Key:   key,
			Title: b.registry.Title(key),
		})
	}
}

// Reconfigure applies new labels and search settings, keeping current tickets.
func (b *BoardController) Reconfigure(labels map[domain.ColumnKey]ColumnLabels, searchMinLength, descriptionLimit int) {
	b.registry = NewRegistry(labels)
	if searchMinLength > 0 {
		b.searchMinLength = searchMinLength
	}
	if descriptionLimit > 0 {
		b.descriptionLimit = descriptionLimit
	}
	for _, c := range b.containers {
		c.Title = b.registry.Title(c.Key)
		c.Placeholder = nil
	}
	b.applySearch()
	b.refreshAllPlaceholders()
}

// Registry returns the column registry.
func (b *BoardController) Registry() *Registry {
	return b.registry
}

// Containers returns the columns in board order.
func (b *BoardController) Containers() []*Container {
	return b.containers
}

// Container returns the container of a column key.
func (b *BoardController) Container(key domain.ColumnKey) *Container {
	return b.containerByID(b.registry.ContainerID(key))
}

// Ticket returns the ticket of taskID, or nil.
func (b *BoardController) Ticket(taskID string) *Ticket {
	if c, idx := b.locate(taskID); c != nil {
		return c.Tickets[idx]
	}
	return nil
}

// SetViewport records the drawable area. A size change fires the resize close trigger.
func (b *BoardController) SetViewport(width, height int) {
	next := Rect{W: width, H: height}
	changed := next != b.viewport
	b.viewport = next
	if changed {
		b.fire(TriggerResize)
	}
}

// Viewport returns the drawable area.
func (b *BoardController) Viewport() Rect {
	return b.viewport
}

// SetContainerBounds records where a column is drawn.
func (b *BoardController) SetContainerBounds(containerID string, bounds Rect) {
	if c := b.containerByID(containerID); c != nil {
		c.Bounds = bounds
	}
}

// SetTicketBounds records where a ticket and its options affordance are drawn.
func (b *BoardController) SetTicketBounds(taskID string, bounds, options Rect) {
	if t := b.Ticket(taskID); t != nil {
		t.Bounds = bounds
		t.OptionsBounds = options
	}
}

// ContainerAt returns the container drawn under x, y, or nil.
func (b *BoardController) ContainerAt(x, y int) *Container {
	for _, c := range b.containers {
		if c.Bounds.Contains(x, y) {
			return c
		}
	}
	return nil
}

// TicketAt returns the visible ticket drawn under x, y, or nil.
func (b *BoardController) TicketAt(x, y int) *Ticket {
	for _, c := range b.containers {
		for _, t := range c.Tickets {
			if !t.Hidden && t.Bounds.Contains(x, y) {
				return t
			}
		}
	}
	return nil
}

// Click routes a pointer click: menu items first, then the options affordance, then the ticket body.
// Clicking outside an open menu closes it. A menu selection that commits a move returns the change.
func (b *BoardController) Click(x, y int) (ColumnChange, bool) {
	if b.menu != nil && b.menu.Bounds.Contains(x, y) {
		if idx := b.menu.itemAt(y); idx >= 0 {
			return b.SelectMenuItem(idx)
		}
		return ColumnChange{}, false
	}
	ticket := b.TicketAt(x, y)
	if ticket != nil && ticket.OptionsBounds.Contains(x, y) {
		b.OpenMenu(ticket.TaskID, Point{X: x, Y: y})
		return ColumnChange{}, false
	}
	if b.menu != nil {
		b.fire(TriggerOutsideClick)
	}
	if ticket != nil {
		b.OpenDetail(ticket.TaskID)
	}
	return ColumnChange{}, false
}

// OpenDetail asks the detail collaborator to show taskID.
func (b *BoardController) OpenDetail(taskID string) {
	if b.opener != nil && taskID != "" {
		b.opener.OpenTaskDetail(taskID)
	}
}

// RequestEdit asks the edit collaborator to show the form of taskID.
func (b *BoardController) RequestEdit(taskID string) {
	if b.editOpener != nil && taskID != "" {
		b.editOpener.OpenEditForTask(taskID)
	}
}

// Persist hands a committed change to the store. Failures are logged and returned;
// the optimistic board state is left as it is.
func (b *BoardController) Persist(ctx context.Context, change ColumnChange) error {
	if b.persister == nil {
		return errors.New("persist column change: no persister configured")
	}
	if err := b.persister.PersistColumnChange(ctx, change.TaskID, change.Column, change.MovedAt); err != nil {
		b.logger.Error("persist column change failed", "task_id", change.TaskID, "column", change.Column, "moved_at", change.MovedAt, "err", err)
		return fmt.Errorf("persist column change: %w", err)
	}
	return nil
}

// commitColumnChange moves a ticket to the end of the target column. Drop and menu
// selection both go through here.
func (b *BoardController) commitColumnChange(taskID string, target domain.ColumnKey) (ColumnChange, bool) {
	src, idx := b.locate(taskID)
	if src == nil {
		b.logger.Debug("commit aborted: ticket not on board", "task_id", taskID)
		return ColumnChange{}, false
	}
	dst := b.Container(target)
	if dst == nil || !target.IsValid() {
		b.logger.Debug("commit aborted: unknown target column", "task_id", taskID, "column", target)
		return ColumnChange{}, false
	}

	if src == dst {
		b.logger.Debug("commit skipped: ticket already in target column", "task_id", taskID, "column", target)
		b.clearHighlights()
		b.isDragging = false
		b.dragPayload = ""
		return ColumnChange{}, false
	}

	ticket := src.remove(idx)
	from := ticket.Column
	ticket.Column = dst.Key
	dst.Tickets = append(dst.Tickets, ticket)

	change := ColumnChange{
		TaskID:  taskID,
		From:    from,
		Column:  dst.Key,
		MovedAt: b.clock().UnixMilli(),
	}
	b.RefreshPlaceholder(src.ID)
	b.RefreshPlaceholder(dst.ID)
	b.clearHighlights()
	b.isDragging = false
	b.dragPayload = ""
	return change, true
}

// locate returns the container holding taskID and the ticket index.
func (b *BoardController) locate(taskID string) (*Container, int) {
	for _, c := range b.containers {
		if idx := c.indexOf(taskID); idx >= 0 {
			return c, idx
		}
	}
	return nil, -1
}

// containerByID returns the container with id, or nil.
func (b *BoardController) containerByID(id string) *Container {
	for _, c := range b.containers {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Watch subscribes to feed and forwards snapshots to out, keeping only the newest one
// when the reader falls behind. out must have a buffer of at least one and a single writer.
func Watch(ctx context.Context, feed TaskFeed, out chan []domain.Task) (func(), error) {
	if feed == nil {
		return nil, errors.New("watch tasks: feed is required")
	}
	return feed.SubscribeTasks(ctx, func(tasks []domain.Task) {
		for {
			select {
			case out <- tasks:
				return
			default:
			}
			select {
			case <-out:
			default:
			}
		}
	})
}
