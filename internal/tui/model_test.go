package tui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/board"
	"github.com/hylla/join/internal/domain"
)

type fakeService struct {
	mu         sync.Mutex
	tasks      []domain.Task
	contacts   []domain.Contact
	persisted  []board.ColumnChange
	persistErr error
	created    []app.CreateTaskInput
	updated    []app.UpdateTaskInput
	toggled    []int
	deleted    []string
}

func newFakeService(tasks ...domain.Task) *fakeService {
	return &fakeService{tasks: tasks}
}

func (f *fakeService) SubscribeTasks(_ context.Context, onChange func([]domain.Task)) (func(), error) {
	f.mu.Lock()
	snapshot := slices.Clone(f.tasks)
	f.mu.Unlock()
	onChange(snapshot)
	return func() {}, nil
}

func (f *fakeService) PersistColumnChange(_ context.Context, taskID string, column domain.ColumnKey, movedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return f.persistErr
	}
	f.persisted = append(f.persisted, board.ColumnChange{TaskID: taskID, Column: column, MovedAt: movedAt})
	return nil
}

func (f *fakeService) CreateTask(_ context.Context, in app.CreateTaskInput) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return domain.NewTask(domain.TaskInput{ID: "new", Column: in.Column, Title: in.Title, Priority: in.Priority}, time.Now())
}

func (f *fakeService) UpdateTask(_ context.Context, in app.UpdateTaskInput) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, in)
	return domain.Task{ID: in.TaskID, Title: in.Title}, nil
}

func (f *fakeService) ToggleSubtask(_ context.Context, taskID string, idx int) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, idx)
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			err := f.tasks[i].ToggleSubtask(idx, time.Now())
			return f.tasks[i], err
		}
	}
	return domain.Task{}, app.ErrNotFound
}

func (f *fakeService) DeleteTask(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, taskID)
	return nil
}

func (f *fakeService) ListContacts(context.Context) ([]domain.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.contacts), nil
}

func sampleTasks(t *testing.T) []domain.Task {
	t.Helper()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	t1, err := domain.NewTask(domain.TaskInput{
		ID:          "t1",
		Title:       "Fix login",
		Description: "Users get logged out after refresh",
		Priority:    domain.PriorityUrgent,
		Subtasks:    []domain.Subtask{{Name: "reproduce"}, {Name: "patch"}},
		AssignedContacts: []domain.AssignedContact{
			{ID: "c1", Name: "Anna Schmidt", ColorIndex: 1},
		},
	}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	t2, err := domain.NewTask(domain.TaskInput{ID: "t2", Title: "Write docs", Column: domain.ColumnTodo}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	t3, err := domain.NewTask(domain.TaskInput{ID: "t3", Title: "Ship release", Column: domain.ColumnDone}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	return []domain.Task{t1, t2, t3}
}

func TestModelLoadAndNavigation(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))
	if m.status != "ready" {
		t.Fatalf("expected ready status, got %q", m.status)
	}
	if got := m.selectedTicketID(); got != "t1" {
		t.Fatalf("expected t1 selected, got %q", got)
	}
	m = applyMsg(t, m, keyRune('j'))
	if got := m.selectedTicketID(); got != "t2" {
		t.Fatalf("expected t2 selected, got %q", got)
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.selectedColumn != 1 || m.selectedTicketID() != "" {
		t.Fatalf("expected empty in-progress column, got column %d task %q", m.selectedColumn, m.selectedTicketID())
	}
	if p := m.board.Container(domain.ColumnInProgress).Placeholder; p == nil || p.Text != "No tasks In progress" {
		t.Fatalf("expected in-progress placeholder, got %#v", p)
	}
	out := m.render()
	for _, want := range []string{"To do", "Fix login", "No tasks In progress", "Ship release"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view", want)
		}
	}
}

func TestModelLayoutAssignsTicketBounds(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))
	t1 := m.board.Ticket("t1")
	if t1.Bounds.Empty() || t1.OptionsBounds.Empty() {
		t.Fatalf("expected laid out ticket, got %#v %#v", t1.Bounds, t1.OptionsBounds)
	}
	if got := m.board.TicketAt(t1.Bounds.X+1, t1.Bounds.Y+1); got == nil || got.TaskID != "t1" {
		t.Fatalf("expected hit on t1, got %#v", got)
	}
	t2 := m.board.Ticket("t2")
	if t2.Bounds.Y <= t1.Bounds.Y {
		t.Fatalf("expected t2 below t1, got %d <= %d", t2.Bounds.Y, t1.Bounds.Y)
	}
	if c := m.board.ContainerAt(t1.Bounds.X, t1.Bounds.Y); c == nil || c.Key != domain.ColumnTodo {
		t.Fatalf("expected todo container at ticket position, got %#v", c)
	}
}

func TestModelMouseDragMovesTicket(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))
	start := m.board.Ticket("t1").Bounds
	target := m.board.Container(domain.ColumnAwaitFeedback).Bounds

	m = applyMsg(t, m, tea.MouseClickMsg{X: start.X + 2, Y: start.Y + 1, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseMotionMsg{X: target.X + 3, Y: target.Y + 6, Button: tea.MouseLeft})
	if !m.board.IsDragging() || m.board.DragPayload() != "t1" {
		t.Fatalf("expected drag of t1, got dragging=%t payload=%q", m.board.IsDragging(), m.board.DragPayload())
	}
	if m.board.HighlightedContainer() != m.board.Registry().ContainerID(domain.ColumnAwaitFeedback) {
		t.Fatalf("expected await-feedback highlighted, got %q", m.board.HighlightedContainer())
	}
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: target.X + 3, Y: target.Y + 6, Button: tea.MouseLeft})

	if m.board.IsDragging() || m.board.HighlightedContainer() != "" {
		t.Fatal("expected drag state cleared after drop")
	}
	if got := m.board.Ticket("t1").Column; got != domain.ColumnAwaitFeedback {
		t.Fatalf("expected t1 in awaitFeedback, got %q", got)
	}
	if len(svc.persisted) != 1 || svc.persisted[0].Column != domain.ColumnAwaitFeedback {
		t.Fatalf("expected one persisted move, got %#v", svc.persisted)
	}
	if m.selectedTicketID() != "t1" {
		t.Fatalf("expected selection to follow moved ticket, got %q", m.selectedTicketID())
	}
}

func TestModelDropOutsideBoardCancels(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))
	start := m.board.Ticket("t1").Bounds

	m = applyMsg(t, m, tea.MouseClickMsg{X: start.X + 2, Y: start.Y + 1, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseMotionMsg{X: start.X + 2, Y: 0, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: start.X + 2, Y: 0, Button: tea.MouseLeft})

	if m.board.Ticket("t1").Column != domain.ColumnTodo {
		t.Fatal("expected ticket to stay in todo")
	}
	if len(svc.persisted) != 0 {
		t.Fatalf("expected no persistence, got %#v", svc.persisted)
	}
	if m.status != "drop cancelled" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelMoveMenuByKeyboard(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('m'))
	menu := m.board.Menu()
	if menu == nil || menu.TaskID != "t1" {
		t.Fatalf("expected menu for t1, got %#v", menu)
	}
	if len(menu.Items) != 3 || menu.Items[0].Target != domain.ColumnInProgress {
		t.Fatalf("unexpected menu items %#v", menu.Items)
	}
	if !strings.Contains(m.render(), "In progress") {
		t.Fatal("expected menu label in view")
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.board.Menu() != nil {
		t.Fatal("expected menu closed after selection")
	}
	if len(svc.persisted) != 1 || svc.persisted[0].Column != domain.ColumnInProgress {
		t.Fatalf("expected persisted move to inProgress, got %#v", svc.persisted)
	}

	m = applyMsg(t, m, keyRune('m'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.board.Menu() != nil {
		t.Fatal("expected escape to close menu")
	}
}

func TestModelMoveMenuLocalReorder(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('m'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	if got := m.board.Menu().Items[m.board.Menu().Selected].Action; got != board.ActionMoveDown {
		t.Fatalf("expected move down item selected, got %v", got)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	todo := m.board.Container(domain.ColumnTodo)
	if todo.Tickets[0].TaskID != "t2" || todo.Tickets[1].TaskID != "t1" {
		t.Fatalf("expected local swap, got %s,%s", todo.Tickets[0].TaskID, todo.Tickets[1].TaskID)
	}
	if len(svc.persisted) != 0 {
		t.Fatalf("expected reorder to stay local, got %#v", svc.persisted)
	}
	if m.selectedTicketID() != "t1" {
		t.Fatalf("expected selection on t1, got %q", m.selectedTicketID())
	}
}

func TestModelOptionsClickOpensMenuAndBodyClickOpensDetail(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))
	opts := m.board.Ticket("t2").OptionsBounds

	m = applyMsg(t, m, tea.MouseClickMsg{X: opts.X, Y: opts.Y, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: opts.X, Y: opts.Y, Button: tea.MouseLeft})
	if menu := m.board.Menu(); menu == nil || menu.TaskID != "t2" {
		t.Fatalf("expected menu for t2, got %#v", menu)
	}

	body := m.board.Ticket("t1").Bounds
	m = applyMsg(t, m, tea.MouseClickMsg{X: body.X + 2, Y: body.Y + 1, Button: tea.MouseLeft})
	m = applyMsg(t, m, tea.MouseReleaseMsg{X: body.X + 2, Y: body.Y + 1, Button: tea.MouseLeft})
	if m.board.Menu() != nil {
		t.Fatal("expected outside click to close the menu")
	}
	if m.mode != modeDetail || m.detailTaskID != "t1" {
		t.Fatalf("expected detail of t1, got mode %d task %q", m.mode, m.detailTaskID)
	}
}

func TestModelNeighborKeysMoveTicket(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('['))
	if m.status != "no column in that direction" {
		t.Fatalf("unexpected status %q", m.status)
	}
	m = applyMsg(t, m, keyRune(']'))
	m = applyMsg(t, m, keyRune(']'))
	if got := m.board.Ticket("t1").Column; got != domain.ColumnAwaitFeedback {
		t.Fatalf("expected t1 in awaitFeedback, got %q", got)
	}
	if len(svc.persisted) != 2 {
		t.Fatalf("expected two persisted moves, got %#v", svc.persisted)
	}
	if svc.persisted[1].MovedAt < svc.persisted[0].MovedAt {
		t.Fatalf("expected non-decreasing movedAt, got %#v", svc.persisted)
	}
}

func TestModelPersistFailureKeepsOptimisticState(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	svc.persistErr = errors.New("disk full")
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(']'))
	if got := m.board.Ticket("t1").Column; got != domain.ColumnInProgress {
		t.Fatalf("expected optimistic move kept, got %q", got)
	}
	if !strings.Contains(m.status, "disk full") {
		t.Fatalf("expected persist error in status, got %q", m.status)
	}
}

func TestModelSearchDebounce(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))

	m, _ = update(t, m, keyRune('/'))
	if m.mode != modeSearch {
		t.Fatalf("expected search mode, got %d", m.mode)
	}
	for _, r := range "fix" {
		m, _ = update(t, m, keyRune(r))
	}
	if m.board.SearchQuery() != "" {
		t.Fatalf("expected query to wait for debounce, got %q", m.board.SearchQuery())
	}

	m = applyMsg(t, m, searchTickMsg{seq: 1})
	if m.board.SearchQuery() != "" {
		t.Fatal("expected stale tick to be ignored")
	}
	m = applyMsg(t, m, searchTickMsg{seq: m.debouncer.Next()})
	if m.board.SearchQuery() != "fix" {
		t.Fatalf("expected query applied, got %q", m.board.SearchQuery())
	}
	if !m.board.Ticket("t2").Hidden || m.board.Ticket("t1").Hidden {
		t.Fatal("expected only the matching ticket visible")
	}
	if p := m.board.Container(domain.ColumnDone).Placeholder; p == nil {
		t.Fatal("expected placeholder in filtered-out done column")
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone || m.board.SearchQuery() != "" || m.board.Ticket("t2").Hidden {
		t.Fatal("expected escape to clear the search")
	}
}

func TestModelSearchEnterAppliesImmediately(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))
	m, _ = update(t, m, keyRune('/'))
	for _, r := range "docs" {
		m, _ = update(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeNone || m.board.SearchQuery() != "docs" {
		t.Fatalf("expected applied query, got mode %d query %q", m.mode, m.board.SearchQuery())
	}
	if m.selectedTicketID() != "t2" {
		t.Fatalf("expected selection on visible ticket, got %q", m.selectedTicketID())
	}
}

func TestModelDetailToggleSubtask(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeDetail || m.detailTaskID != "t1" {
		t.Fatalf("expected detail of t1, got mode %d task %q", m.mode, m.detailTaskID)
	}
	if !strings.Contains(m.render(), "reproduce") {
		t.Fatal("expected subtasks in detail view")
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	if len(svc.toggled) != 1 || svc.toggled[0] != 1 {
		t.Fatalf("expected toggle of subtask 1, got %#v", svc.toggled)
	}
	if m.status != "subtasks 1/2" {
		t.Fatalf("unexpected status %q", m.status)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatalf("expected detail closed, got %d", m.mode)
	}
}

func TestModelAddTaskForm(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	svc.contacts = []domain.Contact{{ID: "c1", Name: "Anna Schmidt"}}
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('l'))
	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeAddTask || m.formColumn != domain.ColumnInProgress {
		t.Fatalf("expected add form for inProgress, got mode %d column %q", m.mode, m.formColumn)
	}
	m.formInputs[taskFieldTitle].SetValue("Plan sprint")
	m.formInputs[taskFieldPriority].SetValue("Low")
	m.formInputs[taskFieldDue].SetValue("2026-03-01")
	m.formInputs[taskFieldSubtasks].SetValue("agenda, , invite")
	m.formInputs[taskFieldAssignees].SetValue("anna schmidt")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if len(svc.created) != 1 {
		t.Fatalf("expected one created task, got %#v", svc.created)
	}
	in := svc.created[0]
	if in.Column != domain.ColumnInProgress || in.Priority != domain.PriorityLow {
		t.Fatalf("unexpected create input %#v", in)
	}
	if in.DueDate == nil || in.DueDate.Format("2006-01-02") != "2026-03-01" {
		t.Fatalf("unexpected due date %v", in.DueDate)
	}
	if len(in.Subtasks) != 2 || len(in.AssigneeIDs) != 1 || in.AssigneeIDs[0] != "c1" {
		t.Fatalf("unexpected subtasks or assignees %#v", in)
	}
	if m.mode != modeNone || m.status != "created Plan sprint" {
		t.Fatalf("unexpected mode %d status %q", m.mode, m.status)
	}
}

func TestModelTaskFormValidation(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))
	m = applyMsg(t, m, keyRune('n'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.status != "title is required" || m.mode != modeAddTask {
		t.Fatalf("expected title validation, got %q", m.status)
	}
	m.formInputs[taskFieldTitle].SetValue("x")
	m.formInputs[taskFieldPriority].SetValue("high")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.status != errInvalidPriorityInput.Error() {
		t.Fatalf("expected priority validation, got %q", m.status)
	}
	m.formInputs[taskFieldPriority].SetValue("")
	m.formInputs[taskFieldAssignees].SetValue("nobody")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if !strings.Contains(m.status, "unknown contact") {
		t.Fatalf("expected contact validation, got %q", m.status)
	}
}

func TestModelEditTaskKeepsCheckedSubtasks(t *testing.T) {
	tasks := sampleTasks(t)
	_ = tasks[0].ToggleSubtask(0, time.Now())
	svc := newFakeService(tasks...)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('e'))
	if m.mode != modeEditTask || m.editingTaskID != "t1" {
		t.Fatalf("expected edit form for t1, got mode %d task %q", m.mode, m.editingTaskID)
	}
	if got := m.formInputs[taskFieldSubtasks].Value(); got != "reproduce, patch" {
		t.Fatalf("unexpected subtask field %q", got)
	}
	m.formInputs[taskFieldSubtasks].SetValue("reproduce, verify")
	m.formInputs[taskFieldAssignees].SetValue("")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if len(svc.updated) != 1 {
		t.Fatalf("expected one update, got %#v", svc.updated)
	}
	got := svc.updated[0].Subtasks
	if len(got) != 2 || !got[0].Checked || got[1].Checked || got[1].Name != "verify" {
		t.Fatalf("unexpected merged subtasks %#v", got)
	}
	if svc.updated[0].Priority != domain.PriorityUrgent {
		t.Fatalf("expected priority kept, got %q", svc.updated[0].Priority)
	}
}

func TestModelDeleteConfirmation(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('d'))
	if m.mode != modeConfirmDelete {
		t.Fatalf("expected confirmation, got %d", m.mode)
	}
	m = applyMsg(t, m, keyRune('n'))
	if len(svc.deleted) != 0 || m.mode != modeNone {
		t.Fatal("expected cancel to keep task")
	}
	m = applyMsg(t, m, keyRune('d'))
	m = applyMsg(t, m, keyRune('y'))
	if len(svc.deleted) != 1 || svc.deleted[0] != "t1" {
		t.Fatalf("expected t1 deleted, got %#v", svc.deleted)
	}
}

func TestModelSnapshotRerendersAndKeepsSelection(t *testing.T) {
	tasks := sampleTasks(t)
	m := loadReadyModel(t, NewModel(newFakeService(tasks...)))
	m = applyMsg(t, m, keyRune('j'))

	moved := tasks[0]
	if err := moved.Move(domain.ColumnDone, 50, time.Now()); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	m, _ = update(t, m, snapshotMsg{tasks: []domain.Task{moved, tasks[1], tasks[2]}})
	if m.board.Ticket("t1").Column != domain.ColumnDone {
		t.Fatal("expected remote move rendered")
	}
	done := m.board.Container(domain.ColumnDone)
	if done.Tickets[0].TaskID != "t3" || done.Tickets[1].TaskID != "t1" {
		t.Fatalf("expected movedAt ordering, got %s,%s", done.Tickets[0].TaskID, done.Tickets[1].TaskID)
	}
	if m.selectedTicketID() != "t2" {
		t.Fatalf("expected selection kept on t2, got %q", m.selectedTicketID())
	}
}

func TestModelConfigReload(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.Columns = map[domain.ColumnKey]board.ColumnLabels{domain.ColumnTodo: {Title: "Backlog"}}
	cfg.ShowPriority = false
	calls := 0
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...), WithReloadConfigCallback(func() (RuntimeConfig, error) {
		calls++
		return cfg, nil
	})))

	m = applyMsg(t, m, keyRune('r'))
	if calls != 1 || m.status != "config reloaded" {
		t.Fatalf("expected reload, got calls=%d status=%q", calls, m.status)
	}
	if got := m.board.Container(domain.ColumnTodo).Title; got != "Backlog" {
		t.Fatalf("expected relabeled column, got %q", got)
	}
	if m.showPriority {
		t.Fatal("expected priority hidden")
	}
	if m.board.Ticket("t1") == nil {
		t.Fatal("expected tickets redrawn after reload")
	}

	m = applyMsg(t, m, ConfigReloadedMsg{Err: errors.New("bad toml")})
	if !strings.Contains(m.status, "bad toml") {
		t.Fatalf("expected reload error in status, got %q", m.status)
	}
}

func TestModelCopyID(t *testing.T) {
	var copied string
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...), WithClipboard(func(s string) error {
		copied = s
		return nil
	})))
	m = applyMsg(t, m, keyRune('y'))
	if copied != "t1" || m.status != "copied task id" {
		t.Fatalf("expected t1 copied, got %q status %q", copied, m.status)
	}
}

func TestModelResizeClosesMenu(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))
	m = applyMsg(t, m, keyRune('m'))
	if m.board.Menu() == nil {
		t.Fatal("expected open menu")
	}
	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 130, Height: 40})
	if m.board.Menu() != nil {
		t.Fatal("expected resize to close menu")
	}
}

func TestModelQuitKey(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if m.ctx.Err() == nil {
		t.Fatal("expected model context cancelled on quit")
	}
}

func TestModelViewWrapsRenderedScreen(t *testing.T) {
	m := NewModel(newFakeService(sampleTasks(t)...))
	if got := m.render(); got != "loading..." {
		t.Fatalf("expected loading screen before data, got %q", got)
	}
	m = loadReadyModel(t, m)
	v := m.View()
	if v.Content == nil {
		t.Fatal("expected view content")
	}
	if !v.AltScreen || v.MouseMode != tea.MouseModeCellMotion {
		t.Fatalf("expected alt screen with cell motion mouse, got alt=%t mouse=%v", v.AltScreen, v.MouseMode)
	}
	if !strings.Contains(m.render(), "Fix login") {
		t.Fatal("expected board tickets in rendered screen")
	}
}

func TestModelHelpAndDetailOverlays(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(sampleTasks(t)...)))

	m = applyMsg(t, m, keyRune('?'))
	if !strings.Contains(m.render(), "join help") {
		t.Fatal("expected help overlay")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if strings.Contains(m.render(), "join help") {
		t.Fatal("expected escape to close help")
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if !strings.Contains(m.render(), "Subtasks 0/2") {
		t.Fatal("expected detail overlay with subtask progress")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatalf("expected escape to close detail, got mode %d", m.mode)
	}
}

func TestModelMoveMenuEnterCommitsNeighbor(t *testing.T) {
	svc := newFakeService(sampleTasks(t)...)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune('m'))
	if !strings.Contains(m.render(), "Move down") {
		t.Fatal("expected move menu in rendered screen")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if got := m.board.Ticket("t1").Column; got != domain.ColumnInProgress {
		t.Fatalf("expected t1 in progress, got %q", got)
	}
	if m.board.Menu() != nil {
		t.Fatal("expected menu closed after selection")
	}
	if strings.Contains(m.render(), "Move down") {
		t.Fatal("expected menu gone from rendered screen")
	}
}

func TestHelpers(t *testing.T) {
	if got := splitCSV(" a, ,b ,"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected splitCSV %#v", got)
	}
	if _, err := parseDueInput("03/01/2026", nil); err == nil {
		t.Fatal("expected due parse error")
	}
	if due, err := parseDueInput("-", nil); err != nil || due != nil {
		t.Fatalf("expected cleared due date, got %v %v", due, err)
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("unexpected padRight %q", got)
	}
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("unexpected fitLines %q", got)
	}
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return applyCmd(t, m, m.Init())
}

// update applies msg without running the returned command.
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return out, cmd
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	out, cmd := update(t, m, msg)
	return applyCmd(t, out, cmd)
}

// applyCmd runs cmd and feeds its messages back, expanding batches. Commands that block
// past a short deadline, such as ticks and snapshot waits, are dropped.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 32; steps++ {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := runWithDeadline(next, 100*time.Millisecond)
		if !ok || msg == nil {
			continue
		}
		if batch, isBatch := msg.(tea.BatchMsg); isBatch {
			queue = append(queue, batch...)
			continue
		}
		var follow tea.Cmd
		m, follow = update(t, m, msg)
		queue = append(queue, follow)
	}
	return m
}

func runWithDeadline(cmd tea.Cmd, d time.Duration) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() {
		done <- cmd()
	}()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(d):
		return nil, false
	}
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}
