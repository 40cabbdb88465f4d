package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minDescriptionWrap keeps glamour from wrapping narrow modals into one word per line.
const minDescriptionWrap = 24

// descriptionRenderer turns task descriptions into styled terminal text for the detail modal.
// View runs on every frame, so the last result is kept until the text or width changes.
type descriptionRenderer struct {
	wrap     int
	term     *glamour.TermRenderer
	lastSrc  string
	lastWrap int
	lastOut  string
}

// render returns the styled description, or the raw text when glamour fails.
func (r *descriptionRenderer) render(src string, width int) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	wrap := max(width, minDescriptionWrap)
	if src == r.lastSrc && wrap == r.lastWrap {
		return r.lastOut
	}
	if r.term == nil || r.wrap != wrap {
		term, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return src
		}
		r.term, r.wrap = term, wrap
	}
	out, err := r.term.Render(src)
	if err != nil {
		return src
	}
	r.lastSrc, r.lastWrap, r.lastOut = src, wrap, strings.TrimRight(out, "\n")
	return r.lastOut
}
