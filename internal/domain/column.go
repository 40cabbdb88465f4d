package domain

import "strings"

// ColumnKey identifies one logical board column (the task's workflow state).
type ColumnKey string

// ColumnKey values in board order.
const (
	ColumnTodo          ColumnKey = "todo"
	ColumnInProgress    ColumnKey = "inProgress"
	ColumnAwaitFeedback ColumnKey = "awaitFeedback"
	ColumnDone          ColumnKey = "done"
)

// orderedColumns stores the linear column order todo < inProgress < awaitFeedback < done.
var orderedColumns = []ColumnKey{
	ColumnTodo,
	ColumnInProgress,
	ColumnAwaitFeedback,
	ColumnDone,
}

// Columns returns every column key in board order.
func Columns() []ColumnKey {
	return append([]ColumnKey(nil), orderedColumns...)
}

// ParseColumnKey resolves raw input to a known column key.
// Matching ignores case, dashes, underscores and spaces so "in-progress" and "InProgress" both resolve.
func ParseColumnKey(raw string) (ColumnKey, bool) {
	folded := foldColumnKey(raw)
	if folded == "" {
		return "", false
	}
	for _, key := range orderedColumns {
		if foldColumnKey(string(key)) == folded {
			return key, true
		}
	}
	return "", false
}

// NormalizeColumnKey resolves raw input to a column key, defaulting to todo.
func NormalizeColumnKey(raw string) ColumnKey {
	if key, ok := ParseColumnKey(raw); ok {
		return key
	}
	return ColumnTodo
}

// IsValid reports whether the key is one of the four board columns.
func (k ColumnKey) IsValid() bool {
	for _, key := range orderedColumns {
		if key == k {
			return true
		}
	}
	return false
}

// Index returns the position of the key in board order, or -1.
func (k ColumnKey) Index() int {
	for idx, key := range orderedColumns {
		if key == k {
			return idx
		}
	}
	return -1
}

// foldColumnKey lowercases and strips separators for lenient key matching.
func foldColumnKey(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(raw)
}
