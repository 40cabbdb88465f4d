package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hylla/join/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/join.db")
	if cfg.Database.Path != "/tmp/join.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Search.MinQueryLength != 3 || cfg.SearchDebounce() != 200*time.Millisecond {
		t.Fatalf("unexpected search defaults %#v", cfg.Search)
	}
	if cfg.Ticket.DescriptionLimit != 50 {
		t.Fatalf("unexpected description limit %d", cfg.Ticket.DescriptionLimit)
	}
	if len(cfg.Board.Columns) != 4 {
		t.Fatalf("expected four default columns, got %d", len(cfg.Board.Columns))
	}
	if cfg.Realtime.RedisAddr != "" {
		t.Fatal("expected realtime notices disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/join.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/join.db"

[search]
min_query_length = 2
debounce_ms = 50

[[board.columns]]
key = "in-progress"
title = "Doing"
empty_text = "Nothing in flight"

[realtime]
redis_addr = "localhost:6379"
channel = "team:board"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/join.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Search.MinQueryLength != 2 || cfg.SearchDebounce() != 50*time.Millisecond {
		t.Fatalf("unexpected search config %#v", cfg.Search)
	}
	overrides := cfg.ColumnOverrides()
	if got := overrides[domain.ColumnInProgress]; got.Title != "Doing" || got.EmptyText != "Nothing in flight" {
		t.Fatalf("unexpected column override %#v", got)
	}
	if cfg.Realtime.Channel != "team:board" {
		t.Fatalf("unexpected channel %q", cfg.Realtime.Channel)
	}
	if cfg.Ticket.DescriptionLimit != 50 {
		t.Fatal("expected untouched sections to keep defaults")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown column": `
[[board.columns]]
key = "backlog"
`,
		"duplicate column": `
[[board.columns]]
key = "todo"
[[board.columns]]
key = "TODO"
`,
		"min query": `
[search]
min_query_length = 0
`,
		"debounce": `
[search]
debounce_ms = -1
`,
		"log level": `
[logging]
level = "chatty"
`,
		"endpoint": `
[server]
api_endpoint = "api"
`,
		"channel": `
[realtime]
redis_addr = "localhost:6379"
channel = ""
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/default.db")); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[search]\nmin_query_length = 3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	w, err := NewWatcher(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan Config, 16)
	go w.Run(ctx, func(cfg Config) { reloaded <- cfg }, nil)

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile(other) error = %v", err)
	}
	if err := os.WriteFile(path, []byte("[search]\nmin_query_length = 5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Search.MinQueryLength == 5 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestNewWatcherRequiresPath(t *testing.T) {
	if _, err := NewWatcher(" ", Default("/tmp/default.db")); err == nil {
		t.Fatal("expected error for empty path")
	}
}
