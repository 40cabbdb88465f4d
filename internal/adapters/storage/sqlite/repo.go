package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// fileDSNOptions lets the board and a serve process share one database file.
const fileDSNOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path+fileDSNOptions)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// every pooled connection would otherwise see its own empty database
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			column_key TEXT NOT NULL DEFAULT 'todo',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			due_date TEXT,
			category TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL,
			subtasks_json TEXT NOT NULL DEFAULT '[]',
			assigned_json TEXT NOT NULL DEFAULT '[]',
			moved_at INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			color_index INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_column_key ON tasks(column_key);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_created_at ON change_events(created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// taskColumns lists the task columns in scanTask order.
const taskColumns = `id, column_key, title, description, due_date, category, priority, subtasks_json, assigned_json, moved_at, created_at, updated_at`

// CreateTask creates task.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) error {
	subtasksJSON, assignedJSON, err := encodeTaskLists(t)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks(`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		string(t.Column),
		t.Title,
		t.Description,
		nullableTS(t.DueDate),
		t.Category,
		string(t.Priority),
		subtasksJSON,
		assignedJSON,
		t.MovedAt,
		ts(t.CreatedAt),
		ts(t.UpdatedAt),
	)
	if err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:    t.ID,
		Operation: domain.ChangeOperationCreate,
		Metadata: map[string]string{
			"column": string(t.Column),
			"title":  t.Title,
		},
		OccurredAt: t.CreatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// UpdateTask updates task and records a move or update event depending on what changed.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	subtasksJSON, assignedJSON, err := encodeTaskLists(t)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prev, err := getTaskByID(ctx, tx, t.ID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET column_key = ?, title = ?, description = ?, due_date = ?, category = ?, priority = ?,
			subtasks_json = ?, assigned_json = ?, moved_at = ?, updated_at = ?
		WHERE id = ?
	`,
		string(t.Column),
		t.Title,
		t.Description,
		nullableTS(t.DueDate),
		t.Category,
		string(t.Priority),
		subtasksJSON,
		assignedJSON,
		t.MovedAt,
		ts(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	op, metadata := classifyTaskTransition(prev, t)
	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:     t.ID,
		Operation:  op,
		Metadata:   metadata,
		OccurredAt: t.UpdatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// GetTask returns task.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTaskByID(ctx, r.db, id)
}

// ListTasks lists tasks in insertion order.
func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTask deletes task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	task, err := getTaskByID(ctx, tx, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		TaskID:    task.ID,
		Operation: domain.ChangeOperationDelete,
		Metadata: map[string]string{
			"column": string(task.Column),
			"title":  task.Title,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// CreateContact creates contact.
func (r *Repository) CreateContact(ctx context.Context, c domain.Contact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts(id, name, email, phone, color_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Email, c.Phone, c.ColorIndex, ts(c.CreatedAt), ts(c.UpdatedAt))
	return err
}

// UpdateContact updates contact.
func (r *Repository) UpdateContact(ctx context.Context, c domain.Contact) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts
		SET name = ?, email = ?, phone = ?, color_index = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Email, c.Phone, c.ColorIndex, ts(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetContact returns contact.
func (r *Repository) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, color_index, created_at, updated_at
		FROM contacts
		WHERE id = ?
	`, id)
	return scanContact(row)
}

// ListContacts lists contacts by creation time.
func (r *Repository) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, color_index, created_at, updated_at
		FROM contacts
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContact deletes contact.
func (r *Repository) DeleteContact(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// ListChangeEvents lists the newest activity entries first.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, operation, metadata_json, created_at
		FROM change_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.TaskID, &opRaw, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = normalizeChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// scanner describes scanner behavior required by callers.
type scanner interface {
	Scan(dest ...any) error
}

// queryRower describes query rower behavior required by callers.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execerContext describes execer context behavior required by callers.
type execerContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// getTaskByID returns task by id.
func getTaskByID(ctx context.Context, q queryRower, id string) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// insertChangeEvent inserts one activity entry in the caller's transaction.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(task_id, operation, metadata_json, created_at)
		VALUES (?, ?, ?, ?)
	`,
		event.TaskID,
		string(event.Operation),
		string(metadataJSON),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// classifyTaskTransition reports a column change as a move and everything else as an update.
func classifyTaskTransition(prev, next domain.Task) (domain.ChangeOperation, map[string]string) {
	if prev.Column != next.Column || prev.MovedAt != next.MovedAt {
		return domain.ChangeOperationMove, map[string]string{
			"from_column": string(prev.Column),
			"to_column":   string(next.Column),
			"moved_at":    strconv.FormatInt(next.MovedAt, 10),
		}
	}
	metadata := map[string]string{"title": next.Title}
	if fields := changedTaskFields(prev, next); len(fields) > 0 {
		metadata["changed_fields"] = strings.Join(fields, ",")
	}
	return domain.ChangeOperationUpdate, metadata
}

// changedTaskFields lists the descriptive fields that differ between prev and next.
func changedTaskFields(prev, next domain.Task) []string {
	fields := make([]string, 0, 7)
	if prev.Title != next.Title {
		fields = append(fields, "title")
	}
	if prev.Description != next.Description {
		fields = append(fields, "description")
	}
	if !equalNullableTimes(prev.DueDate, next.DueDate) {
		fields = append(fields, "due_date")
	}
	if prev.Category != next.Category {
		fields = append(fields, "category")
	}
	if prev.Priority != next.Priority {
		fields = append(fields, "priority")
	}
	if !equalJSON(prev.Subtasks, next.Subtasks) {
		fields = append(fields, "subtasks")
	}
	if !equalJSON(prev.AssignedContacts, next.AssignedContacts) {
		fields = append(fields, "assigned_contacts")
	}
	return fields
}

// equalNullableTimes reports whether two optional times are equal.
func equalNullableTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// equalJSON compares two values by their JSON encoding.
func equalJSON(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ra) == string(rb)
}

// normalizeChangeOperation maps stored operation text to a known value.
func normalizeChangeOperation(raw string) domain.ChangeOperation {
	switch domain.ChangeOperation(strings.TrimSpace(strings.ToLower(raw))) {
	case domain.ChangeOperationCreate:
		return domain.ChangeOperationCreate
	case domain.ChangeOperationMove:
		return domain.ChangeOperationMove
	case domain.ChangeOperationDelete:
		return domain.ChangeOperationDelete
	default:
		return domain.ChangeOperationUpdate
	}
}

// normalizeEventTS falls back to now for zero timestamps.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// encodeTaskLists encodes subtasks and assignees as JSON text columns.
func encodeTaskLists(t domain.Task) (string, string, error) {
	subtasks := t.Subtasks
	if subtasks == nil {
		subtasks = []domain.Subtask{}
	}
	assigned := t.AssignedContacts
	if assigned == nil {
		assigned = []domain.AssignedContact{}
	}
	subtasksJSON, err := json.Marshal(subtasks)
	if err != nil {
		return "", "", fmt.Errorf("encode subtasks: %w", err)
	}
	assignedJSON, err := json.Marshal(assigned)
	if err != nil {
		return "", "", fmt.Errorf("encode assigned contacts: %w", err)
	}
	return string(subtasksJSON), string(assignedJSON), nil
}

// scanTask scans one task row.
func scanTask(s scanner) (domain.Task, error) {
	var (
		t           domain.Task
		column      string
		priority    string
		dueRaw      sql.NullString
		subtasksRaw string
		assignedRaw string
		createdRaw  string
		updatedRaw  string
	)
	if err := s.Scan(
		&t.ID,
		&column,
		&t.Title,
		&t.Description,
		&dueRaw,
		&t.Category,
		&priority,
		&subtasksRaw,
		&assignedRaw,
		&t.MovedAt,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	t.Column = domain.NormalizeColumnKey(column)
	t.Priority = domain.Priority(priority)
	t.DueDate = parseNullTS(dueRaw)
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	if strings.TrimSpace(subtasksRaw) == "" {
		subtasksRaw = "[]"
	}
	if err := json.Unmarshal([]byte(subtasksRaw), &t.Subtasks); err != nil {
		return domain.Task{}, fmt.Errorf("decode subtasks_json: %w", err)
	}
	if strings.TrimSpace(assignedRaw) == "" {
		assignedRaw = "[]"
	}
	if err := json.Unmarshal([]byte(assignedRaw), &t.AssignedContacts); err != nil {
		return domain.Task{}, fmt.Errorf("decode assigned_json: %w", err)
	}
	return t, nil
}

// scanContact scans one contact row.
func scanContact(s scanner) (domain.Contact, error) {
	var (
		c          domain.Contact
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.ColorIndex, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Contact{}, app.ErrNotFound
		}
		return domain.Contact{}, err
	}
	c.CreatedAt = parseTS(createdRaw)
	c.UpdatedAt = parseTS(updatedRaw)
	return c, nil
}

// translateNoRows maps a zero-row write to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS formats an optional timestamp for storage.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

// parseTS parses a stored timestamp.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses an optional stored timestamp.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	parsed := parseTS(v.String)
	return &parsed
}
