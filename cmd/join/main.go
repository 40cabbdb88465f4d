package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/hylla/join/internal/adapters/notify/redisnotify"
	"github.com/hylla/join/internal/adapters/storage/sqlite"
	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/config"
	"github.com/hylla/join/internal/platform"
	"github.com/hylla/join/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program is the part of a bubbletea program the CLI drives.
type program interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// getenv is swapped in tests.
var getenv = os.Getenv

func main() {
	// fang reports the error itself.
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// cliOptions holds the persistent flags shared by every command.
type cliOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand wires the board TUI as the root action and attaches the subcommands.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}
	envOpts := platform.OptionsFromEnv(platform.Options{
		AppName: platform.DefaultAppName,
		DevMode: version == "dev",
	}, getenv)

	root := &cobra.Command{
		Use:   "join",
		Short: "A kanban board for small teams",
		Long: `join keeps tasks on a four column board (To do, In progress,
Await feedback, Done) backed by a local sqlite database.

Run without a subcommand to open the interactive board. Use serve to expose
the same board over HTTP and MCP, and export/import to move snapshots.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", envOpts.AppName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", envOpts.DevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newServeCommand(opts, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stderr),
		newContactsCommand(opts, stdout, stderr),
		newActivityCommand(opts, stdout, stderr),
	)
	return root
}

// resolvedPaths holds config and database locations after flags and environment are applied.
type resolvedPaths struct {
	paths        platform.Paths
	configPath   string
	dbPath       string
	dbOverridden bool
}

// resolvePaths applies platform defaults, then environment, then flags.
func resolvePaths(opts *cliOptions) (resolvedPaths, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return resolvedPaths{}, err
	}
	envPaths := paths.WithEnvOverrides(getenv)
	out := resolvedPaths{
		paths:        paths,
		configPath:   envPaths.ConfigPath,
		dbPath:       envPaths.DBPath,
		dbOverridden: envPaths.DBPath != paths.DBPath,
	}
	if v := strings.TrimSpace(opts.configPath); v != "" {
		out.configPath = v
	}
	if v := strings.TrimSpace(opts.dbPath); v != "" {
		out.dbPath = v
		out.dbOverridden = true
	}
	return out, nil
}

// runtimeEnv bundles everything a command needs once config and storage are open.
type runtimeEnv struct {
	command  string
	paths    resolvedPaths
	defaults config.Config
	cfg      config.Config
	logger   *runtimeLogger
	repo     *sqlite.Repository
	svc      *app.Service
	redis    *redis.Client
}

// openRuntime loads config, builds the logger, opens sqlite, and wires the service.
// quietConsole keeps runtime logs off the terminal while a full-screen program owns it.
func openRuntime(opts *cliOptions, command string, stderr io.Writer, quietConsole bool) (*runtimeEnv, error) {
	resolved, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}
	defaults := config.Default(resolved.dbPath)
	cfg, err := config.Load(resolved.configPath, defaults)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", resolved.configPath, err)
	}
	if resolved.dbOverridden {
		cfg.Database.Path = resolved.dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, resolved.paths.LogDir, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quietConsole {
		logger.SetConsoleEnabled(false)
	}
	env := &runtimeEnv{
		command:  command,
		paths:    resolved,
		defaults: defaults,
		cfg:      cfg,
		logger:   logger,
	}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", resolved.configPath, "data_dir", resolved.paths.DataDir, "db_path", resolved.dbPath)
	logger.Info("configuration loaded", "config_path", resolved.configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	env.repo = repo
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	svcCfg := app.ServiceConfig{
		Origin: uuid.NewString(),
		Logger: logger.Component(),
	}
	if addr := strings.TrimSpace(cfg.Realtime.RedisAddr); addr != "" {
		env.redis = redis.NewClient(&redis.Options{Addr: addr})
		publisher, err := redisnotify.NewPublisher(env.redis, cfg.Realtime.Channel)
		if err != nil {
			env.Close(stderr)
			return nil, fmt.Errorf("configure change publisher: %w", err)
		}
		svcCfg.Notifier = publisher
		logger.Info("realtime notices enabled", "redis_addr", addr, "channel", cfg.Realtime.Channel)
	}
	env.svc = app.NewService(repo, uuid.NewString, time.Now, svcCfg)
	logger.Debug("application service initialized", "origin", svcCfg.Origin)
	return env, nil
}

// startRealtime subscribes to change notices from other processes until ctx ends.
func (e *runtimeEnv) startRealtime(ctx context.Context) {
	if e.redis == nil {
		return
	}
	go redisnotify.Subscribe(ctx, e.logger.Component(), e.redis, e.cfg.Realtime.Channel, e.svc.Origin(), e.svc.HandleRemoteChange)
}

// Close releases redis, sqlite, and log sinks in reverse order of acquisition.
func (e *runtimeEnv) Close(stderr io.Writer) {
	if e == nil {
		return
	}
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			e.logger.Warn("redis close failed", "err", err)
		}
	}
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
		}
	}
	if err := e.logger.Close(); err != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// runTUI opens the interactive board and keeps it in sync with config edits and remote changes.
func runTUI(ctx context.Context, opts *cliOptions, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := openRuntime(opts, "tui", stderr, true)
	if err != nil {
		return err
	}
	defer env.Close(stderr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	env.startRealtime(ctx)

	logger := env.logger
	configPath := env.paths.configPath
	m := tui.NewModel(
		env.svc,
		tui.WithContext(ctx),
		tui.WithLogger(logger.Component()),
		tui.WithRuntimeConfig(toTUIRuntimeConfig(env.cfg)),
		tui.WithReloadConfigCallback(func() (tui.RuntimeConfig, error) {
			logger.Info("runtime config reload requested", "config_path", configPath)
			reloaded, err := loadRuntimeConfig(configPath, env.defaults)
			if err != nil {
				logger.Error("runtime config reload failed", "config_path", configPath, "err", err)
				return tui.RuntimeConfig{}, err
			}
			logger.Info("runtime config reload complete", "config_path", configPath)
			return reloaded, nil
		}),
	)
	p := programFactory(m)
	watchConfig(ctx, p, configPath, env.defaults, logger)

	logger.Info("starting tui program loop")
	if _, err := p.Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// watchConfig forwards config file edits to the running program.
func watchConfig(ctx context.Context, p program, configPath string, defaults config.Config, logger *runtimeLogger) {
	if err := config.EnsureConfigDir(configPath); err != nil {
		logger.Warn("config watch disabled", "config_path", configPath, "err", err)
		return
	}
	watcher, err := config.NewWatcher(configPath, defaults)
	if err != nil {
		logger.Warn("config watch disabled", "config_path", configPath, "err", err)
		return
	}
	go func() {
		defer func() { _ = watcher.Close() }()
		watcher.Run(ctx, func(cfg config.Config) {
			logger.Info("config file changed", "config_path", configPath)
			p.Send(tui.ConfigReloadedMsg{Config: toTUIRuntimeConfig(cfg)})
		}, func(err error) {
			logger.Warn("config file reload failed", "config_path", configPath, "err", err)
			p.Send(tui.ConfigReloadedMsg{Err: err})
		})
	}()
}

// loadRuntimeConfig loads runtime-configurable options from disk.
func loadRuntimeConfig(configPath string, defaults config.Config) (tui.RuntimeConfig, error) {
	cfg, err := config.Load(configPath, defaults)
	if err != nil {
		return tui.RuntimeConfig{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	return toTUIRuntimeConfig(cfg), nil
}

// toTUIRuntimeConfig maps persisted config values into runtime model options.
func toTUIRuntimeConfig(cfg config.Config) tui.RuntimeConfig {
	out := tui.DefaultRuntimeConfig()
	for key, col := range cfg.ColumnOverrides() {
		labels := out.Columns[key]
		if title := strings.TrimSpace(col.Title); title != "" {
			labels.Title = title
		}
		if empty := strings.TrimSpace(col.EmptyText); empty != "" {
			labels.EmptyText = empty
		}
		out.Columns[key] = labels
	}
	if cfg.Search.MinQueryLength > 0 {
		out.SearchMinLength = cfg.Search.MinQueryLength
	}
	if d := cfg.SearchDebounce(); d > 0 {
		out.SearchDebounce = d
	}
	if cfg.Ticket.DescriptionLimit > 0 {
		out.DescriptionLimit = cfg.Ticket.DescriptionLimit
	}
	out.ShowCategory = cfg.Board.ShowCategory
	out.ShowPriority = cfg.Board.ShowPriority
	return out
}
