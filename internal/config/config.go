package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/join/internal/domain"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Search   SearchConfig   `toml:"search"`
	Ticket   TicketConfig   `toml:"ticket"`
	Server   ServerConfig   `toml:"server"`
	Realtime RealtimeConfig `toml:"realtime"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	Columns      []ColumnConfig `toml:"columns"`
	ShowCategory bool           `toml:"show_category"`
	ShowPriority bool           `toml:"show_priority"`
}

// ColumnConfig overrides the labels of one fixed column. Key must name one of the four columns.
type ColumnConfig struct {
	Key       string `toml:"key"`
	Title     string `toml:"title"`
	EmptyText string `toml:"empty_text"`
}

type SearchConfig struct {
	MinQueryLength int `toml:"min_query_length"`
	DebounceMS     int `toml:"debounce_ms"`
}

type TicketConfig struct {
	DescriptionLimit int `toml:"description_limit"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// RealtimeConfig configures cross-process change notices. An empty RedisAddr disables them.
type RealtimeConfig struct {
	RedisAddr string `toml:"redis_addr"`
	Channel   string `toml:"channel"`
}

func defaultColumns() []ColumnConfig {
	return []ColumnConfig{
		{Key: string(domain.ColumnTodo), Title: "To do", EmptyText: "No tasks To do"},
		{Key: string(domain.ColumnInProgress), Title: "In progress", EmptyText: "No tasks In progress"},
		{Key: string(domain.ColumnAwaitFeedback), Title: "Await feedback", EmptyText: "No tasks Await feedback"},
		{Key: string(domain.ColumnDone), Title: "Done", EmptyText: "No tasks Done"},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: false,
				Dir:     "dev",
			},
		},
		Board: BoardConfig{
			Columns:      defaultColumns(),
			ShowCategory: true,
			ShowPriority: true,
		},
		Search: SearchConfig{
			MinQueryLength: 3,
			DebounceMS:     200,
		},
		Ticket: TicketConfig{
			DescriptionLimit: 50,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8787",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Realtime: RealtimeConfig{
			Channel: "join:tasks:changed",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	seenColumn := map[domain.ColumnKey]struct{}{}
	for idx, col := range c.Board.Columns {
		key, ok := domain.ParseColumnKey(col.Key)
		if !ok {
			return fmt.Errorf("board.columns[%d].key references unknown column %q", idx, col.Key)
		}
		if _, dup := seenColumn[key]; dup {
			return fmt.Errorf("board.columns[%d].key is duplicated: %s", idx, key)
		}
		seenColumn[key] = struct{}{}
	}

	if c.Search.MinQueryLength < 1 {
		return errors.New("search.min_query_length must be >= 1")
	}
	if c.Search.DebounceMS < 0 || c.Search.DebounceMS > 5000 {
		return fmt.Errorf("search.debounce_ms must be within 0..5000, got %d", c.Search.DebounceMS)
	}
	if c.Ticket.DescriptionLimit < 10 {
		return errors.New("ticket.description_limit must be >= 10")
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}

	if strings.TrimSpace(c.Realtime.RedisAddr) != "" && strings.TrimSpace(c.Realtime.Channel) == "" {
		return errors.New("realtime.channel is required when realtime.redis_addr is set")
	}

	return nil
}

// SearchDebounce returns the search debounce as a duration.
func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.Search.DebounceMS) * time.Millisecond
}

// ColumnOverrides returns the configured column labels keyed by column.
func (c Config) ColumnOverrides() map[domain.ColumnKey]ColumnConfig {
	out := make(map[domain.ColumnKey]ColumnConfig, len(c.Board.Columns))
	for _, col := range c.Board.Columns {
		if key, ok := domain.ParseColumnKey(col.Key); ok {
			out[key] = col
		}
	}
	return out
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
