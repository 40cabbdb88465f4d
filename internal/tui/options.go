package tui

import (
	"context"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/join/internal/board"
	"github.com/hylla/join/internal/domain"
)

// RuntimeConfig holds the board settings that can change while the program runs.
type RuntimeConfig struct {
	Columns          map[domain.ColumnKey]board.ColumnLabels
	SearchMinLength  int
	SearchDebounce   time.Duration
	DescriptionLimit int
	ShowCategory     bool
	ShowPriority     bool
}

// ReloadConfigFunc loads runtime settings on demand.
type ReloadConfigFunc func() (RuntimeConfig, error)

// ClipboardFunc writes text to the system clipboard.
type ClipboardFunc func(string) error

// Option configures a Model.
type Option func(*Model)

// DefaultRuntimeConfig returns the settings used when no config file overrides them.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Columns:          board.DefaultColumnLabels(),
		SearchMinLength:  board.DefaultSearchMinLength,
		SearchDebounce:   board.DefaultSearchDebounce,
		DescriptionLimit: board.DefaultDescriptionLimit,
		ShowCategory:     true,
		ShowPriority:     true,
	}
}

// WithRuntimeConfig sets the initial board settings.
func WithRuntimeConfig(cfg RuntimeConfig) Option {
	return func(m *Model) {
		m.runtime = cfg
	}
}

func WithReloadConfigCallback(fn ReloadConfigFunc) Option {
	return func(m *Model) {
		m.reloadConfig = fn
	}
}

func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.clipboard = fn
		}
	}
}

func WithLogger(logger *charmLog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Model) {
		if clock != nil {
			m.clock = clock
		}
	}
}
