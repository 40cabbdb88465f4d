package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hylla/join/internal/adapters/server"
	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/domain"
)

func newPathsCommand(opts *cliOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resolved, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", resolved.configPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", resolved.paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", resolved.dbPath)
			return nil
		},
	}
}

func newServeCommand(opts *cliOptions, stderr io.Writer) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP (REST, SSE) and MCP",
		Long: `Serve exposes the board at the configured API endpoint, a server-sent
event stream of board snapshots, and an MCP endpoint for tool clients.
It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, bind, stderr)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides server.bind)")
	return cmd
}

// runServe runs the HTTP and MCP transports until ctx ends.
func runServe(ctx context.Context, opts *cliOptions, bind string, stderr io.Writer) error {
	env, err := openRuntime(opts, "serve", stderr, false)
	if err != nil {
		return err
	}
	defer env.Close(stderr)
	env.startRealtime(ctx)

	cfg := server.Config{
		HTTPBind:      env.cfg.Server.Bind,
		APIEndpoint:   env.cfg.Server.APIEndpoint,
		MCPEndpoint:   env.cfg.Server.MCPEndpoint,
		ServerName:    "join",
		ServerVersion: version,
	}
	if v := strings.TrimSpace(bind); v != "" {
		cfg.HTTPBind = v
	}
	env.logger.Info("command flow start", "command", "serve", "bind", cfg.HTTPBind)
	if err := server.Run(ctx, cfg, server.Dependencies{Board: env.svc, Logger: env.logger.Component()}); err != nil {
		env.logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	env.logger.Info("command flow complete", "command", "serve")
	return nil
}

func newExportCommand(opts *cliOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of all tasks and contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, "export", stderr, false)
			if err != nil {
				return err
			}
			defer env.Close(stderr)
			env.logger.Info("command flow start", "command", "export")
			if err := runExport(cmd.Context(), env.svc, outPath, stdout); err != nil {
				env.logger.Error("command flow failed", "command", "export", "err", err)
				return fmt.Errorf("run export command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "export")
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// runExport encodes the snapshot to outPath or stdout.
func runExport(ctx context.Context, svc *app.Service, outPath string, stdout io.Writer) error {
	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

func newImportCommand(opts *cliOptions, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON snapshot, upserting tasks and contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			env, err := openRuntime(opts, "import", stderr, false)
			if err != nil {
				return err
			}
			defer env.Close(stderr)
			env.logger.Info("command flow start", "command", "import")
			if err := runImport(cmd.Context(), env.svc, inPath); err != nil {
				env.logger.Error("command flow failed", "command", "import", "err", err)
				return fmt.Errorf("run import command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "import")
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

// runImport decodes and applies one snapshot file.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

func newContactsCommand(opts *cliOptions, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage contacts that can be assigned to tasks",
	}

	var in app.CreateContactInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, "contacts add", stderr, false)
			if err != nil {
				return err
			}
			defer env.Close(stderr)
			contact, err := env.svc.CreateContact(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create contact: %w", err)
			}
			_, _ = fmt.Fprintf(stdout, "%s\t%s (%s)\n", contact.ID, contact.Name, domain.Initials(contact.Name))
			return nil
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "display name")
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	add.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, "contacts list", stderr, false)
			if err != nil {
				return err
			}
			defer env.Close(stderr)
			contacts, err := env.svc.ListContacts(cmd.Context())
			if err != nil {
				return fmt.Errorf("list contacts: %w", err)
			}
			_, _ = fmt.Fprintln(stdout, renderContactTable(contacts))
			return nil
		},
	}

	var deleteID string
	remove := &cobra.Command{
		Use:   "delete",
		Short: "Delete a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, "contacts delete", stderr, false)
			if err != nil {
				return err
			}
			defer env.Close(stderr)
			if err := env.svc.DeleteContact(cmd.Context(), deleteID); err != nil {
				return fmt.Errorf("delete contact: %w", err)
			}
			return nil
		},
	}
	remove.Flags().StringVar(&deleteID, "id", "", "contact id")
	_ = remove.MarkFlagRequired("id")

	cmd.AddCommand(add, list, remove)
	return cmd
}

// renderContactTable renders contacts with their badge color.
func renderContactTable(contacts []domain.Contact) string {
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		badge := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(domain.ContactColor(c.ColorIndex))).
			Padding(0, 1).
			Render(domain.Initials(c.Name))
		rows = append(rows, []string{badge, c.ID, c.Name, c.Email, c.Phone})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "ID", "NAME", "EMAIL", "PHONE").
		Rows(rows...).
		String()
}

func newActivityCommand(opts *cliOptions, stdout, stderr io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent task changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, "activity", stderr, false)
			if err != nil {
				return err
			}
			defer env.Close(stderr)
			events, err := env.svc.ListChangeEvents(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list change events: %w", err)
			}
			for _, ev := range events {
				_, _ = fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n",
					ev.OccurredAt.UTC().Format("2006-01-02T15:04:05Z"),
					ev.Operation,
					ev.TaskID,
					formatMetadata(ev.Metadata),
				)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}

// formatMetadata renders metadata as sorted key=value pairs.
func formatMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Quote(meta[k]))
	}
	return strings.Join(parts, " ")
}
