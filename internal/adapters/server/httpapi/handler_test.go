package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hylla/join/internal/adapters/server/common"
	"github.com/hylla/join/internal/adapters/storage/sqlite"
	"github.com/hylla/join/internal/app"
	"github.com/labstack/echo/v4"
)

// newTestServer wires the API onto a fresh in-memory store.
func newTestServer(t *testing.T) (*echo.Echo, *app.Service) {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	var seq atomic.Int64
	idGen := func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := app.NewService(repo, idGen, func() time.Time { return now }, app.ServiceConfig{})

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler
	NewHandler(svc).Register(e.Group("/api/v1"))
	return e, svc
}

// doJSON sends one request through e and returns the recorder.
func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v (body=%q)", err, rec.Body.String())
	}
	return out
}

func TestHandlerTaskLifecycle(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"Write docs","priority":"Urgent","due_date":"2026-03-05","subtasks":["outline","draft"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[common.TaskPayload](t, rec)
	if created.Column != "todo" || created.Priority != "urgent" || created.DueDate != "2026-03-05" || len(created.Subtasks) != 2 {
		t.Fatalf("unexpected created task %#v", created)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/v1/tasks/"+created.ID+"/move", `{"column":"await-feedback"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, body=%s", rec.Code, rec.Body.String())
	}
	moved := decodeBody[common.TaskPayload](t, rec)
	if moved.Column != "awaitFeedback" || moved.MovedAt == 0 {
		t.Fatalf("unexpected moved task %#v", moved)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/v1/tasks/"+created.ID+"/subtasks/1/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body=%s", rec.Code, rec.Body.String())
	}
	if toggled := decodeBody[common.TaskPayload](t, rec); !toggled.Subtasks[1].Checked {
		t.Fatalf("expected second subtask checked, got %#v", toggled.Subtasks)
	}

	rec = doJSON(t, e, http.MethodPut, "/api/v1/tasks/"+created.ID, `{"title":"Write better docs","priority":"low"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body=%s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[common.TaskPayload](t, rec)
	if updated.Title != "Write better docs" || updated.Column != "awaitFeedback" || len(updated.Subtasks) != 2 {
		t.Fatalf("update must keep column and subtasks, got %#v", updated)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/v1/tasks", "")
	list := decodeBody[struct {
		Tasks []common.TaskPayload `json:"tasks"`
	}](t, rec)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != created.ID {
		t.Fatalf("unexpected task list %#v", list.Tasks)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/v1/activity?limit=10", "")
	activity := decodeBody[struct {
		Events []common.ChangeEventPayload `json:"events"`
	}](t, rec)
	if len(activity.Events) < 3 {
		t.Fatalf("expected at least 3 activity events, got %#v", activity.Events)
	}

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/tasks/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/api/v1/tasks/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
	if env := decodeBody[ErrorEnvelope](t, rec); env.Error.Code != common.CodeNotFound {
		t.Fatalf("unexpected error envelope %#v", env)
	}
}

func TestHandlerRejectsInvalidInput(t *testing.T) {
	e, svc := newTestServer(t)
	task, err := svc.CreateTask(context.Background(), app.CreateTaskInput{Title: "x"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"blank title", http.MethodPost, "/api/v1/tasks", `{"title":"  "}`, http.StatusBadRequest, common.CodeInvalidRequest},
		{"unknown field", http.MethodPost, "/api/v1/tasks", `{"title":"x","owner":"me"}`, http.StatusBadRequest, common.CodeInvalidRequest},
		{"trailing body", http.MethodPost, "/api/v1/tasks", `{"title":"x"}{}`, http.StatusBadRequest, common.CodeInvalidRequest},
		{"bad due date", http.MethodPost, "/api/v1/tasks", `{"title":"x","due_date":"tomorrow"}`, http.StatusBadRequest, common.CodeInvalidRequest},
		{"unknown column", http.MethodPost, "/api/v1/tasks/" + task.ID + "/move", `{"column":"backlog"}`, http.StatusBadRequest, common.CodeInvalidRequest},
		{"missing task", http.MethodPost, "/api/v1/tasks/nope/move", `{"column":"done"}`, http.StatusNotFound, common.CodeNotFound},
		{"bad subtask index", http.MethodPost, "/api/v1/tasks/" + task.ID + "/subtasks/x/toggle", "", http.StatusBadRequest, common.CodeInvalidRequest},
		{"out of range subtask", http.MethodPost, "/api/v1/tasks/" + task.ID + "/subtasks/4/toggle", "", http.StatusBadRequest, common.CodeInvalidRequest},
		{"bad activity limit", http.MethodGet, "/api/v1/activity?limit=0", "", http.StatusBadRequest, common.CodeInvalidRequest},
		{"unknown route", http.MethodGet, "/api/v1/boards", "", http.StatusNotFound, common.CodeNotFound},
		{"unknown assignee", http.MethodPost, "/api/v1/tasks", `{"title":"x","assignee_ids":["ghost"]}`, http.StatusNotFound, common.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body=%s)", rec.Code, tc.status, rec.Body.String())
			}
			if env := decodeBody[ErrorEnvelope](t, rec); env.Error.Code != tc.code {
				t.Fatalf("code = %q, want %q", env.Error.Code, tc.code)
			}
		})
	}
}

func TestHandlerContacts(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/contacts", `{"name":"Zoe Young","email":"zoe@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", rec.Code, rec.Body.String())
	}
	zoe := decodeBody[common.ContactPayload](t, rec)
	if zoe.Initials != "ZY" || zoe.Color == "" {
		t.Fatalf("unexpected contact %#v", zoe)
	}
	rec = doJSON(t, e, http.MethodPost, "/api/v1/contacts", `{"name":"Anna Schmidt"}`)
	anna := decodeBody[common.ContactPayload](t, rec)
	if anna.ColorIndex == zoe.ColorIndex {
		t.Fatalf("expected round-robin colors, both got %d", anna.ColorIndex)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/v1/contacts", "")
	list := decodeBody[struct {
		Contacts []common.ContactPayload `json:"contacts"`
	}](t, rec)
	if len(list.Contacts) != 2 || list.Contacts[0].Name != "Anna Schmidt" {
		t.Fatalf("expected contacts sorted by name, got %#v", list.Contacts)
	}

	rec = doJSON(t, e, http.MethodPut, "/api/v1/contacts/"+zoe.ID, `{"name":"Zoe Adams","email":"bad"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid email status = %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodPut, "/api/v1/contacts/"+zoe.ID, `{"name":"Zoe Adams"}`)
	if got := decodeBody[common.ContactPayload](t, rec); got.Initials != "ZA" || got.ColorIndex != zoe.ColorIndex {
		t.Fatalf("unexpected updated contact %#v", got)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/v1/tasks", `{"title":"Pair","assignee_ids":["`+anna.ID+`"]}`)
	task := decodeBody[common.TaskPayload](t, rec)
	if len(task.Assignees) != 1 || task.Assignees[0].Initials != "AS" {
		t.Fatalf("unexpected assignees %#v", task.Assignees)
	}

	if rec := doJSON(t, e, http.MethodDelete, "/api/v1/contacts/"+zoe.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodGet, "/api/v1/contacts/"+zoe.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestHandlerStreamPushesSnapshots(t *testing.T) {
	e, svc := newTestServer(t)
	server := httptest.NewServer(e)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/stream", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(echo.HeaderContentType); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	if len(first) != 0 {
		t.Fatalf("expected empty initial snapshot, got %#v", first)
	}

	if _, err := svc.CreateTask(context.Background(), app.CreateTaskInput{Title: "Live"}); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	second := readEvent(t, reader)
	if len(second) != 1 || second[0].Title != "Live" {
		t.Fatalf("unexpected pushed snapshot %#v", second)
	}
}

// readEvent reads one `tasks` SSE event and decodes its snapshot.
func readEvent(t *testing.T, reader *bufio.Reader) []common.TaskPayload {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString() error = %v", err)
		}
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var payload struct {
			Tasks []common.TaskPayload `json:"tasks"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		return payload.Tasks
	}
}
