package board

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultSearchMinLength is the query length at which filtering starts.
const DefaultSearchMinLength = 3

// DefaultSearchDebounce is the quiet period before a typed query is applied.
const DefaultSearchDebounce = 200 * time.Millisecond

// Debouncer hands out sequence numbers so only the newest scheduled application runs.
type Debouncer struct {
	mu  sync.Mutex
	seq uint64
}

// Next invalidates earlier tickets and returns a new one.
func (d *Debouncer) Next() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

// IsCurrent reports whether seq is the newest ticket.
func (d *Debouncer) IsCurrent(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq == d.seq
}

// ApplySearch sets the active query, updates ticket visibility and refreshes every placeholder.
// Queries shorter than the minimum length show all tickets.
func (b *BoardController) ApplySearch(query string) {
	b.searchQuery = query
	b.applySearch()
	b.refreshAllPlaceholders()
}

// SearchQuery returns the active query.
func (b *BoardController) SearchQuery() string {
	return b.searchQuery
}

// SearchActive reports whether the active query filters tickets.
func (b *BoardController) SearchActive() bool {
	return utf8.RuneCountInString(strings.TrimSpace(b.searchQuery)) >= b.searchMinLength
}

// applySearch sets Hidden on every ticket from the active query.
func (b *BoardController) applySearch() {
	active := b.SearchActive()
	query := strings.TrimSpace(b.searchQuery)
	for _, c := range b.containers {
		for _, t := range c.Tickets {
			t.Hidden = active && !t.Matches(query)
		}
	}
}
