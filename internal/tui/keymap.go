package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	pageUp        key.Binding
	pageDown      key.Binding
	addTask       key.Binding
	taskInfo      key.Binding
	editTask      key.Binding
	deleteTask    key.Binding
	moveMenu      key.Binding
	moveTaskBack  key.Binding
	moveTaskFwd   key.Binding
	reorderUp     key.Binding
	reorderDown   key.Binding
	search        key.Binding
	copyID        key.Binding
	toggleSubtask key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload config")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		pageUp:        key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "first task")),
		pageDown:      key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "last task")),
		addTask:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		taskInfo:      key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("enter", "task detail")),
		editTask:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
		deleteTask:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		moveMenu:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move menu")),
		moveTaskBack:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move to previous column")),
		moveTaskFwd:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move to next column")),
		reorderUp:     key.NewBinding(key.WithKeys("K", "shift+k"), key.WithHelp("K", "reorder up")),
		reorderDown:   key.NewBinding(key.WithKeys("J", "shift+j"), key.WithHelp("J", "reorder down")),
		search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		copyID:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy task id")),
		toggleSubtask: key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "toggle subtask")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.taskInfo, k.moveMenu, k.search, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTask, k.taskInfo, k.editTask, k.deleteTask, k.copyID, k.search, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.pageUp, k.pageDown},
		{k.moveMenu, k.moveTaskBack, k.moveTaskFwd, k.reorderUp, k.reorderDown, k.toggleSubtask},
	}
}
