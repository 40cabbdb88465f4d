package board

import (
	"strings"

	"github.com/hylla/join/internal/domain"
)

// ColumnLabels holds the display text of one column.
type ColumnLabels struct {
	Title     string
	EmptyText string
}

// Neighbors holds the columns one step back and one step forward. Empty keys mean no neighbor.
type Neighbors struct {
	Back    domain.ColumnKey
	Forward domain.ColumnKey
}

// Targets returns the neighbor keys in board order.
func (n Neighbors) Targets() []domain.ColumnKey {
	out := make([]domain.ColumnKey, 0, 2)
	if n.Back != "" {
		out = append(out, n.Back)
	}
	if n.Forward != "" {
		out = append(out, n.Forward)
	}
	return out
}

// columnEntry is one fixed registry row.
type columnEntry struct {
	key         domain.ColumnKey
	containerID string
	labels      ColumnLabels
}

// Registry maps logical column keys to containers and display text.
// Keys and their linear order are fixed; only labels can be overridden.
type Registry struct {
	entries     []columnEntry
	byContainer map[string]domain.ColumnKey
}

// DefaultColumnLabels returns the built-in titles and empty-state texts.
func DefaultColumnLabels() map[domain.ColumnKey]ColumnLabels {
	return map[domain.ColumnKey]ColumnLabels{
		domain.ColumnTodo:          {Title: "To do", EmptyText: "No tasks To do"},
		domain.ColumnInProgress:    {Title: "In progress", EmptyText: "No tasks In progress"},
		domain.ColumnAwaitFeedback: {Title: "Await feedback", EmptyText: "No tasks Await feedback"},
		domain.ColumnDone:          {Title: "Done", EmptyText: "No tasks Done"},
	}
}

// NewRegistry builds the registry, filling blank labels from the defaults.
func NewRegistry(labels map[domain.ColumnKey]ColumnLabels) *Registry {
	defaults := DefaultColumnLabels()
	r := &Registry{byContainer: map[string]domain.ColumnKey{}}
	for _, key := range domain.Columns() {
		l := defaults[key]
		if override, ok := labels[key]; ok {
			if t := strings.TrimSpace(override.Title); t != "" {
				l.Title = t
			}
			if t := strings.TrimSpace(override.EmptyText); t != "" {
				l.EmptyText = t
			}
		}
		id := containerIDFor(key)
		r.entries = append(r.entries, columnEntry{key: key, containerID: id, labels: l})
		r.byContainer[id] = key
	}
	return r
}

// containerIDFor derives the container identifier of a column.
func containerIDFor(key domain.ColumnKey) string {
	return "column-" + string(key)
}

// Keys returns every column key in board order.
func (r *Registry) Keys() []domain.ColumnKey {
	out := make([]domain.ColumnKey, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.key)
	}
	return out
}

// Resolve maps a container id to its column key, defaulting to todo.
func (r *Registry) Resolve(containerID string) domain.ColumnKey {
	if key, ok := r.Lookup(containerID); ok {
		return key
	}
	return domain.ColumnTodo
}

// Lookup maps a container id to its column key and reports whether it is known.
func (r *Registry) Lookup(containerID string) (domain.ColumnKey, bool) {
	key, ok := r.byContainer[containerID]
	return key, ok
}

// ContainerID maps a column key to its container id. Unknown keys map to the todo container.
func (r *Registry) ContainerID(key domain.ColumnKey) string {
	return r.entry(key).containerID
}

// NeighborsOf returns the columns one step back and forward of key.
func (r *Registry) NeighborsOf(key domain.ColumnKey) Neighbors {
	idx := r.entry(key).key.Index()
	var n Neighbors
	if idx > 0 {
		n.Back = r.entries[idx-1].key
	}
	if idx >= 0 && idx < len(r.entries)-1 {
		n.Forward = r.entries[idx+1].key
	}
	return n
}

// Title returns the column heading.
func (r *Registry) Title(key domain.ColumnKey) string {
	return r.entry(key).labels.Title
}

// EmptyText returns the empty-state text of a column.
func (r *Registry) EmptyText(key domain.ColumnKey) string {
	return r.entry(key).labels.EmptyText
}

// entry returns the row of key, falling back to todo.
func (r *Registry) entry(key domain.ColumnKey) columnEntry {
	if idx := key.Index(); idx >= 0 {
		return r.entries[idx]
	}
	return r.entries[0]
}
