package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/board"
	"github.com/hylla/join/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	board.TaskFeed
	board.ColumnPersister
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	UpdateTask(context.Context, app.UpdateTaskInput) (domain.Task, error)
	ToggleSubtask(context.Context, string, int) (domain.Task, error)
	DeleteTask(context.Context, string) error
	ListContacts(context.Context) ([]domain.Contact, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeSearch
	modeAddTask
	modeEditTask
	modeDetail
	modeConfirmDelete
)

// task-form field indexes in display order.
const (
	taskFieldTitle = iota
	taskFieldDescription
	taskFieldCategory
	taskFieldPriority
	taskFieldDue
	taskFieldSubtasks
	taskFieldAssignees
)

// taskFormLabels stores task-form labels in display order.
var taskFormLabels = []string{"title", "description", "category", "priority", "due", "subtasks", "assignees"}

// watchStartedMsg carries the result of subscribing to task snapshots.
type watchStartedMsg struct {
	stop func()
	err  error
}

// snapshotMsg carries one full task snapshot.
type snapshotMsg struct {
	tasks []domain.Task
}

// contactsLoadedMsg carries the contact list used to resolve assignees.
type contactsLoadedMsg struct {
	contacts []domain.Contact
	err      error
}

// actionMsg reports the outcome of one store mutation.
type actionMsg struct {
	status string
	err    error
}

// persistedMsg reports the outcome of persisting one column change.
type persistedMsg struct {
	change board.ColumnChange
	err    error
}

// searchTickMsg fires when the search debounce window of seq elapses.
type searchTickMsg struct {
	seq uint64
}

// ConfigReloadedMsg delivers reloaded runtime settings to a running program.
type ConfigReloadedMsg struct {
	Config RuntimeConfig
	Err    error
}

// pressState records where a left button press started.
type pressState struct {
	x, y   int
	taskID string
}

// boardRequests collects detail and edit requests raised by the board controller
// so the model can act on them after the board call returns.
type boardRequests struct {
	detail string
	edit   string
}

// OpenTaskDetail records a detail request.
func (r *boardRequests) OpenTaskDetail(taskID string) {
	r.detail = taskID
}

// OpenEditForTask records an edit request.
func (r *boardRequests) OpenEditForTask(taskID string) {
	r.edit = taskID
}

// take returns and clears pending requests.
func (r *boardRequests) take() (detail, edit string) {
	detail, edit = r.detail, r.edit
	r.detail, r.edit = "", ""
	return detail, edit
}

// Model represents model data used by this package.
type Model struct {
	svc    Service
	ctx    context.Context
	cancel context.CancelFunc
	logger *charmLog.Logger
	clock  func() time.Time

	ready  bool
	width  int
	height int
	err    error
	status string

	help help.Model
	keys keyMap

	board     *board.BoardController
	requests  *boardRequests
	debouncer *board.Debouncer
	runtime   RuntimeConfig

	searchDebounce time.Duration
	showCategory   bool
	showPriority   bool

	snapshots chan []domain.Task
	stopWatch func()
	tasks     []domain.Task
	contacts  []domain.Contact

	selectedColumn int
	selectedTask   int
	scroll         []int

	mode          inputMode
	searchInput   textinput.Model
	formInputs    []textinput.Model
	formFocus     int
	formColumn    domain.ColumnKey
	editingTaskID string
	detailTaskID  string
	detailSubtask int
	confirmTaskID string

	press    *pressState
	dragOver string

	description  *descriptionRenderer
	reloadConfig ReloadConfigFunc
	clipboard    ClipboardFunc
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := newModalInput("/ ", "title or description", "", 120)
	m := Model{
		svc:         svc,
		ctx:         context.Background(),
		logger:      charmLog.New(io.Discard),
		clock:       time.Now,
		status:      "loading...",
		help:        h,
		keys:        newKeyMap(),
		requests:    &boardRequests{},
		debouncer:   &board.Debouncer{},
		runtime:     DefaultRuntimeConfig(),
		snapshots:   make(chan []domain.Task, 1),
		searchInput: searchInput,
		description: &descriptionRenderer{},
		clipboard:   clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.ctx, m.cancel = context.WithCancel(m.ctx)
	m.board = board.NewController(svc, m.requests,
		board.WithEditOpener(m.requests),
		board.WithLogger(m.logger),
		board.WithClock(m.clock),
		board.WithColumnLabels(m.runtime.Columns),
		board.WithSearchMinLength(m.runtime.SearchMinLength),
		board.WithDescriptionLimit(m.runtime.DescriptionLimit),
	)
	m.applyRuntimeSettings(m.runtime)
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startWatch, m.loadContacts)
}

// Update updates state for the requested operation and lays the board out for hit-testing.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.applyLayout()
	return next, cmd
}

// update dispatches one message.
func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(max(0, m.width-2))
		m.board.SetViewport(msg.Width, msg.Height)
		return m, nil

	case watchStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.stopWatch = msg.stop
		return m, m.waitForSnapshot()

	case snapshotMsg:
		m.err = nil
		m.tasks = msg.tasks
		focused := m.selectedTicketID()
		m.board.RenderAll(msg.tasks)
		m.focusTicket(focused)
		m.clampSelection()
		if m.mode == modeDetail && !m.taskByIDOK(m.detailTaskID) {
			m.closeOverlay("task removed")
		}
		if m.status == "loading..." {
			m.status = "ready"
		}
		return m, tea.Batch(m.waitForSnapshot(), m.loadContacts)

	case contactsLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("load contacts failed", "err", msg.err)
			return m, nil
		}
		m.contacts = msg.contacts
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case persistedMsg:
		if msg.err != nil {
			m.status = "move not saved: " + msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("moved to %s", m.board.Registry().Title(msg.change.Column))
		return m, nil

	case searchTickMsg:
		if !m.debouncer.IsCurrent(msg.seq) {
			return m, nil
		}
		m.applySearch(m.searchInput.Value())
		return m, nil

	case ConfigReloadedMsg:
		if msg.Err != nil {
			m.status = "reload config failed: " + msg.Err.Error()
			return m, nil
		}
		m.applyRuntimeConfig(msg.Config)
		m.status = "config reloaded"
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMousePress(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// startWatch subscribes to task snapshots.
func (m Model) startWatch() tea.Msg {
	stop, err := board.Watch(m.ctx, m.svc, m.snapshots)
	if err != nil {
		return watchStartedMsg{err: fmt.Errorf("watch tasks: %w", err)}
	}
	return watchStartedMsg{stop: stop}
}

// waitForSnapshot waits for the next snapshot. It returns nil once the model context ends.
func (m Model) waitForSnapshot() tea.Cmd {
	ch, ctx := m.snapshots, m.ctx
	return func() tea.Msg {
		select {
		case tasks := <-ch:
			return snapshotMsg{tasks: tasks}
		case <-ctx.Done():
			return nil
		}
	}
}

// loadContacts loads contacts for assignee resolution.
func (m Model) loadContacts() tea.Msg {
	contacts, err := m.svc.ListContacts(m.ctx)
	return contactsLoadedMsg{contacts: contacts, err: err}
}

// quit stops the subscription and exits.
func (m Model) quit() (Model, tea.Cmd) {
	if m.stopWatch != nil {
		m.stopWatch()
	}
	m.cancel()
	return m, tea.Quit
}

// persistCmd hands a committed column change to the store.
func (m Model) persistCmd(change board.ColumnChange) tea.Cmd {
	b, ctx := m.board, m.ctx
	return func() tea.Msg {
		return persistedMsg{change: change, err: b.Persist(ctx, change)}
	}
}

// commitChange follows a committed ticket and persists the change.
func (m Model) commitChange(change board.ColumnChange) (Model, tea.Cmd) {
	m.focusTicket(change.TaskID)
	m.status = "moving..."
	return m, m.persistCmd(change)
}

// applyRuntimeSettings copies model-level runtime settings.
func (m *Model) applyRuntimeSettings(cfg RuntimeConfig) {
	m.searchDebounce = board.DefaultSearchDebounce
	if cfg.SearchDebounce > 0 {
		m.searchDebounce = cfg.SearchDebounce
	}
	m.showCategory = cfg.ShowCategory
	m.showPriority = cfg.ShowPriority
}

// applyRuntimeConfig applies reloaded settings and redraws the board from the last snapshot.
func (m *Model) applyRuntimeConfig(cfg RuntimeConfig) {
	m.runtime = cfg
	m.applyRuntimeSettings(cfg)
	focused := m.selectedTicketID()
	m.board.Reconfigure(cfg.Columns, cfg.SearchMinLength, cfg.DescriptionLimit)
	m.board.RenderAll(m.tasks)
	m.focusTicket(focused)
	m.clampSelection()
}

// reloadRuntimeConfigCmd reloads runtime settings through the configured callback.
func (m Model) reloadRuntimeConfigCmd() tea.Cmd {
	reload := m.reloadConfig
	if reload == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, err := reload()
		return ConfigReloadedMsg{Config: cfg, Err: err}
	}
}

// handleNormalModeKey handles board keys.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	if m.board.Menu() != nil {
		return m.handleMenuKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			return m, nil
		}
		if m.board.SearchQuery() != "" {
			m.debouncer.Next()
			m.searchInput.SetValue("")
			m.applySearch("")
			m.status = "search cleared"
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		if m.reloadConfig == nil {
			m.status = "config reload unavailable"
			return m, nil
		}
		m.status = "reloading config..."
		return m, m.reloadRuntimeConfigCmd()
	case key.Matches(msg, m.keys.moveLeft):
		m.selectColumn(m.selectedColumn - 1)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectColumn(m.selectedColumn + 1)
		return m, nil
	case key.Matches(msg, m.keys.reorderUp):
		if id := m.selectedTicketID(); id != "" && m.board.MoveUp(id) {
			m.focusTicket(id)
		}
		return m, nil
	case key.Matches(msg, m.keys.reorderDown):
		if id := m.selectedTicketID(); id != "" && m.board.MoveDown(id) {
			m.focusTicket(id)
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask--
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask++
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.pageUp):
		m.board.Scroll()
		m.selectedTask = 0
		return m, nil
	case key.Matches(msg, m.keys.pageDown):
		m.board.Scroll()
		m.selectedTask = len(m.currentVisibleTickets()) - 1
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.mode = modeSearch
		m.searchInput.SetValue(m.board.SearchQuery())
		m.searchInput.CursorEnd()
		m.status = "search"
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.addTask):
		column := domain.ColumnTodo
		if c := m.currentContainer(); c != nil {
			column = c.Key
		}
		return m, m.startTaskForm(nil, column)
	}

	ticket := m.selectedTicket()
	if ticket == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.taskInfo):
		m.board.OpenDetail(ticket.TaskID)
		return m.handleBoardRequests()
	case key.Matches(msg, m.keys.editTask):
		m.board.RequestEdit(ticket.TaskID)
		return m.handleBoardRequests()
	case key.Matches(msg, m.keys.deleteTask):
		m.mode = modeConfirmDelete
		m.confirmTaskID = ticket.TaskID
		m.status = "confirm delete"
		return m, nil
	case key.Matches(msg, m.keys.moveMenu):
		anchor := board.Point{X: ticket.OptionsBounds.X, Y: ticket.OptionsBounds.Y}
		m.board.OpenMenu(ticket.TaskID, anchor)
		return m, nil
	case key.Matches(msg, m.keys.moveTaskBack), key.Matches(msg, m.keys.moveTaskFwd):
		neighbors := m.board.Registry().NeighborsOf(ticket.Column)
		target := neighbors.Forward
		if key.Matches(msg, m.keys.moveTaskBack) {
			target = neighbors.Back
		}
		if target == "" {
			m.status = "no column in that direction"
			return m, nil
		}
		change, ok := m.board.SelectTarget(ticket.TaskID, target)
		if !ok {
			return m, nil
		}
		return m.commitChange(change)
	case key.Matches(msg, m.keys.copyID):
		if err := m.clipboard(ticket.TaskID); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied task id"
		return m, nil
	}
	return m, nil
}

// handleMenuKey handles keys while the move menu is open.
func (m Model) handleMenuKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	menu := m.board.Menu()
	switch {
	case msg.String() == "esc":
		m.board.Escape()
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.moveUp):
		m.board.MenuCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.board.MenuCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.moveMenu):
		m.board.OpenMenu(menu.TaskID, board.Point{})
		return m, nil
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		taskID := menu.TaskID
		change, ok := m.board.SelectMenuItem(menu.Selected)
		if ok {
			return m.commitChange(change)
		}
		m.focusTicket(taskID)
		return m, nil
	}
	return m, nil
}

// handleInputModeKey handles keys for overlays and forms.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeAddTask, modeEditTask:
		return m.handleTaskFormKey(msg)
	case modeDetail:
		return m.handleDetailKey(msg)
	case modeConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			taskID := m.confirmTaskID
			m.closeOverlay("deleting...")
			return m, m.deleteTaskCmd(taskID)
		case "n", "esc", "q":
			m.closeOverlay("delete cancelled")
		}
		return m, nil
	}
	return m, nil
}

// handleSearchKey applies typed queries after the debounce window and on enter at once.
func (m Model) handleSearchKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.debouncer.Next()
		m.searchInput.SetValue("")
		m.searchInput.Blur()
		m.applySearch("")
		m.mode = modeNone
		m.status = "search cleared"
		return m, nil
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		m.debouncer.Next()
		m.searchInput.Blur()
		m.applySearch(m.searchInput.Value())
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	}
	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if m.searchInput.Value() == before {
		return m, cmd
	}
	seq := m.debouncer.Next()
	tick := tea.Tick(m.searchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
	return m, tea.Batch(cmd, tick)
}

// handleDetailKey handles keys in the task detail overlay.
func (m Model) handleDetailKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	task, ok := m.taskByID(m.detailTaskID)
	if !ok {
		m.closeOverlay("task removed")
		return m, nil
	}
	switch {
	case msg.String() == "esc", key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.taskInfo):
		m.closeOverlay("ready")
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.detailSubtask = clamp(m.detailSubtask-1, 0, len(task.Subtasks)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.detailSubtask = clamp(m.detailSubtask+1, 0, len(task.Subtasks)-1)
		return m, nil
	case key.Matches(msg, m.keys.toggleSubtask):
		if len(task.Subtasks) == 0 {
			return m, nil
		}
		return m, m.toggleSubtaskCmd(task.ID, m.detailSubtask)
	case key.Matches(msg, m.keys.editTask):
		m.mode = modeNone
		m.board.RequestEdit(task.ID)
		return m.handleBoardRequests()
	case key.Matches(msg, m.keys.deleteTask):
		m.mode = modeConfirmDelete
		m.confirmTaskID = task.ID
		m.status = "confirm delete"
		return m, nil
	}
	return m, nil
}

// handleTaskFormKey handles keys in the add and edit forms.
func (m Model) handleTaskFormKey(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.formInputs = nil
		m.closeOverlay("cancelled")
		return m, nil
	case msg.Code == tea.KeyTab || msg.String() == "tab" || msg.String() == "down":
		return m, m.focusTaskFormField(m.formFocus + 1)
	case msg.String() == "shift+tab" || msg.String() == "up":
		return m, m.focusTaskFormField(m.formFocus - 1)
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		return m.submitTaskForm()
	}
	if len(m.formInputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

// handleBoardRequests acts on detail and edit requests raised by the board.
func (m Model) handleBoardRequests() (Model, tea.Cmd) {
	detail, edit := m.requests.take()
	if edit != "" {
		task, ok := m.taskByID(edit)
		if !ok {
			m.status = "task not found"
			return m, nil
		}
		return m, m.startTaskForm(&task, task.Column)
	}
	if detail != "" {
		if _, ok := m.taskByID(detail); !ok {
			m.status = "task not found"
			return m, nil
		}
		m.mode = modeDetail
		m.detailTaskID = detail
		m.detailSubtask = 0
		m.status = "task detail"
	}
	return m, nil
}

// closeOverlay returns to the board.
func (m *Model) closeOverlay(status string) {
	m.mode = modeNone
	m.detailTaskID = ""
	m.confirmTaskID = ""
	m.editingTaskID = ""
	m.status = status
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// startTaskForm opens the add form for column, or the edit form when task is set.
func (m *Model) startTaskForm(task *domain.Task, column domain.ColumnKey) tea.Cmd {
	m.formFocus = 0
	m.formColumn = column
	m.formInputs = []textinput.Model{
		newModalInput("", "task title (required)", "", 120),
		newModalInput("", "description (markdown)", "", 500),
		newModalInput("", domain.DefaultCategory, "", 60),
		newModalInput("", "urgent | medium | low", "", 16),
		newModalInput("", "YYYY-MM-DD or -", "", 32),
		newModalInput("", "csv subtasks", "", 500),
		newModalInput("", "csv contact names", "", 500),
	}
	if task == nil {
		m.mode = modeAddTask
		m.editingTaskID = ""
		m.status = "new task in " + m.board.Registry().Title(column)
		return m.focusTaskFormField(0)
	}
	m.formInputs[taskFieldTitle].SetValue(task.Title)
	m.formInputs[taskFieldDescription].SetValue(task.Description)
	m.formInputs[taskFieldCategory].SetValue(task.Category)
	m.formInputs[taskFieldPriority].SetValue(string(task.Priority))
	if task.DueDate != nil {
		m.formInputs[taskFieldDue].SetValue(formatDueValue(task.DueDate))
	}
	names := make([]string, 0, len(task.Subtasks))
	for _, st := range task.Subtasks {
		names = append(names, st.Name)
	}
	m.formInputs[taskFieldSubtasks].SetValue(strings.Join(names, ", "))
	assignees := make([]string, 0, len(task.AssignedContacts))
	for _, a := range task.AssignedContacts {
		assignees = append(assignees, a.Name)
	}
	m.formInputs[taskFieldAssignees].SetValue(strings.Join(assignees, ", "))
	m.mode = modeEditTask
	m.editingTaskID = task.ID
	m.status = "edit task"
	return m.focusTaskFormField(0)
}

// focusTaskFormField focuses task form field.
func (m *Model) focusTaskFormField(idx int) tea.Cmd {
	if len(m.formInputs) == 0 {
		return nil
	}
	idx = clamp(idx, 0, len(m.formInputs)-1)
	m.formFocus = idx
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	return m.formInputs[idx].Focus()
}

// formValue returns the trimmed value of one form field.
func (m Model) formValue(idx int) string {
	if idx < 0 || idx >= len(m.formInputs) {
		return ""
	}
	return strings.TrimSpace(m.formInputs[idx].Value())
}

// submitTaskForm validates the form and creates or updates the task.
func (m Model) submitTaskForm() (Model, tea.Cmd) {
	title := m.formValue(taskFieldTitle)
	if title == "" {
		m.status = "title is required"
		return m, nil
	}
	priority, err := parsePriorityInput(m.formValue(taskFieldPriority))
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	assigneeIDs, err := m.resolveAssigneesInput(m.formValue(taskFieldAssignees))
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	subtasks := splitCSV(m.formValue(taskFieldSubtasks))
	svc, ctx := m.svc, m.ctx

	if m.mode == modeAddTask {
		due, err := parseDueInput(m.formValue(taskFieldDue), nil)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		in := app.CreateTaskInput{
			Column:      m.formColumn,
			Title:       title,
			Description: m.formValue(taskFieldDescription),
			DueDate:     due,
			Category:    m.formValue(taskFieldCategory),
			Priority:    priority,
			Subtasks:    subtasks,
			AssigneeIDs: assigneeIDs,
		}
		m.formInputs = nil
		m.closeOverlay("creating task...")
		return m, func() tea.Msg {
			task, err := svc.CreateTask(ctx, in)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "created " + task.Title}
		}
	}

	current, ok := m.taskByID(m.editingTaskID)
	if !ok {
		m.closeOverlay("task not found")
		return m, nil
	}
	due, err := parseDueInput(m.formValue(taskFieldDue), current.DueDate)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if priority == "" {
		priority = current.Priority
	}
	in := app.UpdateTaskInput{
		TaskID:      current.ID,
		Title:       title,
		Description: m.formValue(taskFieldDescription),
		DueDate:     due,
		Category:    m.formValue(taskFieldCategory),
		Priority:    priority,
		Subtasks:    mergeSubtasks(current.Subtasks, subtasks),
		AssigneeIDs: assigneeIDs,
	}
	m.formInputs = nil
	m.closeOverlay("saving task...")
	return m, func() tea.Msg {
		task, err := svc.UpdateTask(ctx, in)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "saved " + task.Title}
	}
}

// toggleSubtaskCmd flips one subtask in the store.
func (m Model) toggleSubtaskCmd(taskID string, idx int) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		task, err := svc.ToggleSubtask(ctx, taskID, idx)
		if err != nil {
			return actionMsg{err: err}
		}
		done, total := task.SubtaskProgress()
		return actionMsg{status: fmt.Sprintf("subtasks %d/%d", done, total)}
	}
}

// deleteTaskCmd removes one task from the store.
func (m Model) deleteTaskCmd(taskID string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		if err := svc.DeleteTask(ctx, taskID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "task deleted"}
	}
}

// handleMousePress records a left press for click or drag resolution on release.
func (m Model) handleMousePress(msg tea.MouseClickMsg) (Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone || msg.Button != tea.MouseLeft {
		return m, nil
	}
	press := &pressState{x: msg.X, y: msg.Y}
	menu := m.board.Menu()
	if t := m.board.TicketAt(msg.X, msg.Y); t != nil && !t.OptionsBounds.Contains(msg.X, msg.Y) {
		if menu == nil || !menu.Bounds.Contains(msg.X, msg.Y) {
			press.taskID = t.TaskID
		}
	}
	m.press = press
	return m, nil
}

// handleMouseMotion starts a drag once the pointer leaves the pressed cell and tracks the target column.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (Model, tea.Cmd) {
	if m.press == nil || m.press.taskID == "" {
		return m, nil
	}
	if !m.board.IsDragging() {
		if msg.X == m.press.x && msg.Y == m.press.y {
			return m, nil
		}
		if m.board.Menu() != nil {
			m.board.Escape()
		}
		if !m.board.DragStart(m.press.taskID) {
			m.press = nil
			return m, nil
		}
		m.dragOver = ""
		m.status = "dragging"
	}
	m.trackDragTarget(msg.X, msg.Y)
	return m, nil
}

// trackDragTarget raises enter, over and leave events for the column under x, y.
func (m *Model) trackDragTarget(x, y int) {
	c := m.board.ContainerAt(x, y)
	if c == nil {
		if m.dragOver != "" {
			m.board.DragLeave(m.dragOver, x, y)
			m.dragOver = ""
		}
		return
	}
	if c.ID != m.dragOver {
		if m.dragOver != "" {
			m.board.DragLeave(m.dragOver, x, y)
		}
		m.board.DragEnter(c.ID)
		m.dragOver = c.ID
	}
	m.board.DragOver(x, y)
}

// handleMouseRelease drops a dragged ticket or routes a click.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (Model, tea.Cmd) {
	press := m.press
	m.press = nil
	if press == nil {
		return m, nil
	}
	if m.board.IsDragging() {
		m.trackDragTarget(msg.X, msg.Y)
		change, ok := m.board.Drop(msg.X, msg.Y)
		m.board.DragEnd()
		m.dragOver = ""
		if !ok {
			m.status = "drop cancelled"
			return m, nil
		}
		return m.commitChange(change)
	}

	if c := m.board.ContainerAt(msg.X, msg.Y); c != nil && m.board.Menu() == nil {
		m.selectColumnByKey(c.Key)
	}
	if t := m.board.TicketAt(msg.X, msg.Y); t != nil && m.board.Menu() == nil {
		m.focusTicket(t.TaskID)
	}
	change, ok := m.board.Click(msg.X, msg.Y)
	if ok {
		return m.commitChange(change)
	}
	if menu := m.board.Menu(); menu != nil {
		m.focusTicket(menu.TaskID)
	}
	return m.handleBoardRequests()
}

// handleMouseWheel closes the move menu and moves the selection.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone {
		return m, nil
	}
	m.board.Wheel()
	if c := m.board.ContainerAt(msg.X, msg.Y); c != nil {
		m.selectColumnByKey(c.Key)
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.selectedTask--
	case tea.MouseWheelDown:
		m.selectedTask++
	}
	m.clampSelection()
	return m, nil
}

// applySearch filters the board and keeps the selection on a visible ticket.
func (m *Model) applySearch(query string) {
	focused := m.selectedTicketID()
	m.board.ApplySearch(query)
	m.focusTicket(focused)
	m.clampSelection()
}

// currentContainer returns the focused column.
func (m Model) currentContainer() *board.Container {
	containers := m.board.Containers()
	if len(containers) == 0 {
		return nil
	}
	return containers[clamp(m.selectedColumn, 0, len(containers)-1)]
}

// currentVisibleTickets returns the visible tickets of the focused column.
func (m Model) currentVisibleTickets() []*board.Ticket {
	c := m.currentContainer()
	if c == nil {
		return nil
	}
	return visibleTickets(c)
}

// selectedTicket returns the focused ticket, or nil.
func (m Model) selectedTicket() *board.Ticket {
	tickets := m.currentVisibleTickets()
	if len(tickets) == 0 {
		return nil
	}
	return tickets[clamp(m.selectedTask, 0, len(tickets)-1)]
}

// selectedTicketID returns the focused task id, or "".
func (m Model) selectedTicketID() string {
	if t := m.selectedTicket(); t != nil {
		return t.TaskID
	}
	return ""
}

// selectColumn focuses column idx and clamps the task cursor.
func (m *Model) selectColumn(idx int) {
	m.selectedColumn = clamp(idx, 0, len(m.board.Containers())-1)
	m.clampSelection()
}

// selectColumnByKey focuses the column of key.
func (m *Model) selectColumnByKey(key domain.ColumnKey) {
	for idx, c := range m.board.Containers() {
		if c.Key == key {
			m.selectColumn(idx)
			return
		}
	}
}

// focusTicket moves the cursor onto taskID when it is visible.
func (m *Model) focusTicket(taskID string) {
	if taskID == "" {
		return
	}
	for colIdx, c := range m.board.Containers() {
		for rowIdx, t := range visibleTickets(c) {
			if t.TaskID == taskID {
				m.selectedColumn = colIdx
				m.selectedTask = rowIdx
				return
			}
		}
	}
}

// clampSelection keeps the cursor inside the board.
func (m *Model) clampSelection() {
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.board.Containers())-1)
	m.selectedTask = clamp(m.selectedTask, 0, len(m.currentVisibleTickets())-1)
}

// taskByID returns the snapshot copy of taskID.
func (m Model) taskByID(taskID string) (domain.Task, bool) {
	for _, task := range m.tasks {
		if task.ID == taskID {
			return task, true
		}
	}
	return domain.Task{}, false
}

// taskByIDOK reports whether taskID is in the last snapshot.
func (m Model) taskByIDOK(taskID string) bool {
	_, ok := m.taskByID(taskID)
	return ok
}

// resolveAssigneesInput maps csv contact names or ids to contact ids.
func (m Model) resolveAssigneesInput(raw string) ([]string, error) {
	parts := splitCSV(raw)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		id, ok := m.lookupContact(part)
		if !ok {
			return nil, fmt.Errorf("unknown contact %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

// lookupContact resolves a contact id or case-insensitive name.
func (m Model) lookupContact(ref string) (string, bool) {
	for _, c := range m.contacts {
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c.ID, true
		}
	}
	return "", false
}

// errInvalidPriorityInput reports an unknown priority in the task form.
var errInvalidPriorityInput = errors.New("priority must be urgent, medium, or low")

// parsePriorityInput parses an optional priority name.
func parsePriorityInput(raw string) (domain.Priority, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	for _, p := range domain.Priorities() {
		if string(p) == raw {
			return p, nil
		}
	}
	return "", errInvalidPriorityInput
}

// parseDueInput parses input into a normalized form.
func parseDueInput(raw string, current *time.Time) (*time.Time, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return current, nil
	}
	if text == "-" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", text)
	if err != nil {
		return nil, fmt.Errorf("due date must be YYYY-MM-DD or -")
	}
	ts := parsed.UTC()
	return &ts, nil
}

// formatDueValue formats due dates for compact display and editing.
func formatDueValue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.UTC().Format("2006-01-02")
}

// splitCSV splits comma-separated values, dropping blanks.
func splitCSV(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeSubtasks rebuilds subtasks from names, keeping the checked state of names that survive.
func mergeSubtasks(current []domain.Subtask, names []string) []domain.Subtask {
	checked := make(map[string]bool, len(current))
	for _, st := range current {
		checked[st.Name] = checked[st.Name] || st.Checked
	}
	out := make([]domain.Subtask, 0, len(names))
	for _, name := range names {
		out = append(out, domain.Subtask{Name: name, Checked: checked[name]})
	}
	return out
}
