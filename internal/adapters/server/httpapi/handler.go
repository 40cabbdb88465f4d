// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hylla/join/internal/adapters/server/common"
	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/domain"
	"github.com/labstack/echo/v4"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// defaultActivityLimit bounds activity responses when no limit is given.
const defaultActivityLimit = 50

// Handler serves the versioned API group mounted under `/api/v1`.
type Handler struct {
	svc common.BoardService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the board service.
func NewHandler(svc common.BoardService) *Handler {
	return &Handler{svc: svc}
}

// Register wires every API route onto g.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/tasks", h.listTasks)
	g.POST("/tasks", h.createTask)
	g.GET("/tasks/:id", h.getTask)
	g.PUT("/tasks/:id", h.updateTask)
	g.DELETE("/tasks/:id", h.deleteTask)
	g.POST("/tasks/:id/move", h.moveTask)
	g.POST("/tasks/:id/subtasks/:index/toggle", h.toggleSubtask)

	g.GET("/contacts", h.listContacts)
	g.POST("/contacts", h.createContact)
	g.GET("/contacts/:id", h.getContact)
	g.PUT("/contacts/:id", h.updateContact)
	g.DELETE("/contacts/:id", h.deleteContact)

	g.GET("/activity", h.listActivity)
	g.GET("/stream", h.streamTasks)
}

type createTaskRequest struct {
	Column      string   `json:"column"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Subtasks    []string `json:"subtasks"`
	AssigneeIDs []string `json:"assignee_ids"`
}

// updateTaskRequest omits subtasks or assignee_ids to keep them unchanged.
type updateTaskRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	DueDate     string                  `json:"due_date"`
	Category    string                  `json:"category"`
	Priority    string                  `json:"priority"`
	Subtasks    []common.SubtaskPayload `json:"subtasks"`
	AssigneeIDs []string                `json:"assignee_ids"`
}

type moveTaskRequest struct {
	Column string `json:"column"`
}

type contactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// listTasks serves GET `/tasks`.
func (h *Handler) listTasks(c echo.Context) error {
	tasks, err := h.svc.ListTasks(c.Request().Context())
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"tasks": common.NewTaskPayloads(tasks)})
}

// createTask serves POST `/tasks`.
func (h *Handler) createTask(c echo.Context) error {
	var req createTaskRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return writeErrorFrom(c, err)
	}
	in := app.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    parsePriority(req.Priority),
		Subtasks:    req.Subtasks,
		AssigneeIDs: req.AssigneeIDs,
	}
	if strings.TrimSpace(req.Column) != "" {
		column, err := common.ParseColumn(req.Column)
		if err != nil {
			return writeErrorFrom(c, err)
		}
		in.Column = column
	}
	due, err := common.ParseDueDate(req.DueDate)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	in.DueDate = due

	task, err := h.svc.CreateTask(c.Request().Context(), in)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusCreated, common.NewTaskPayload(task))
}

// getTask serves GET `/tasks/:id`.
func (h *Handler) getTask(c echo.Context) error {
	task, err := h.svc.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusOK, common.NewTaskPayload(task))
}

// updateTask serves PUT `/tasks/:id`.
func (h *Handler) updateTask(c echo.Context) error {
	var req updateTaskRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return writeErrorFrom(c, err)
	}
	due, err := common.ParseDueDate(req.DueDate)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	in := app.UpdateTaskInput{
		TaskID:      c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Category:    req.Category,
		Priority:    parsePriority(req.Priority),
		AssigneeIDs: req.AssigneeIDs,
	}
	if req.Subtasks != nil {
		in.Subtasks = make([]domain.Subtask, 0, len(req.Subtasks))
		for _, st := range req.Subtasks {
			in.Subtasks = append(in.Subtasks, domain.Subtask{Name: st.Name, Checked: st.Checked})
		}
	}
	task, err := h.svc.UpdateTask(c.Request().Context(), in)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusOK, common.NewTaskPayload(task))
}

// deleteTask serves DELETE `/tasks/:id`.
func (h *Handler) deleteTask(c echo.Context) error {
	if err := h.svc.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return writeErrorFrom(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// moveTask serves POST `/tasks/:id/move`.
func (h *Handler) moveTask(c echo.Context) error {
	var req moveTaskRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return writeErrorFrom(c, err)
	}
	column, err := common.ParseColumn(req.Column)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	task, err := h.svc.MoveTask(c.Request().Context(), c.Param("id"), column)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusOK, common.NewTaskPayload(task))
}

// toggleSubtask serves POST `/tasks/:id/subtasks/:index/toggle`.
func (h *Handler) toggleSubtask(c echo.Context) error {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return writeErrorFrom(c, fmt.Errorf("subtask index: %w", errors.Join(common.ErrInvalidRequest, err)))
	}
	task, err := h.svc.ToggleSubtask(c.Request().Context(), c.Param("id"), idx)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusOK, common.NewTaskPayload(task))
}

// listContacts serves GET `/contacts`.
func (h *Handler) listContacts(c echo.Context) error {
	contacts, err := h.svc.ListContacts(c.Request().Context())
	if err != nil {
		return writeErrorFrom(c, err)
	}
	out := make([]common.ContactPayload, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, common.NewContactPayload(contact))
	}
	return c.JSON(http.StatusOK, map[string]any{"contacts": out})
}

// createContact serves POST `/contacts`.
func (h *Handler) createContact(c echo.Context) error {
	var req contactRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return writeErrorFrom(c, err)
	}
	contact, err := h.svc.CreateContact(c.Request().Context(), app.CreateContactInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusCreated, common.NewContactPayload(contact))
}

// getContact serves GET `/contacts/:id`.
func (h *Handler) getContact(c echo.Context) error {
	contact, err := h.svc.GetContact(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusOK, common.NewContactPayload(contact))
}

// updateContact serves PUT `/contacts/:id`.
func (h *Handler) updateContact(c echo.Context) error {
	var req contactRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return writeErrorFrom(c, err)
	}
	contact, err := h.svc.UpdateContact(c.Request().Context(), app.UpdateContactInput{
		ContactID: c.Param("id"),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		return writeErrorFrom(c, err)
	}
	return c.JSON(http.StatusOK, common.NewContactPayload(contact))
}

// deleteContact serves DELETE `/contacts/:id`.
func (h *Handler) deleteContact(c echo.Context) error {
	if err := h.svc.DeleteContact(c.Request().Context(), c.Param("id")); err != nil {
		return writeErrorFrom(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// listActivity serves GET `/activity`.
func (h *Handler) listActivity(c echo.Context) error {
	limit := defaultActivityLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return writeJSONError(c, http.StatusBadRequest, APIError{
				Code:    common.CodeInvalidRequest,
				Message: "limit must be a positive integer",
			})
		}
		limit = n
	}
	events, err := h.svc.ListChangeEvents(c.Request().Context(), limit)
	if err != nil {
		return writeErrorFrom(c, err)
	}
	out := make([]common.ChangeEventPayload, 0, len(events))
	for _, ev := range events {
		out = append(out, common.NewChangeEventPayload(ev))
	}
	return c.JSON(http.StatusOK, map[string]any{"events": out})
}

// streamTasks serves GET `/stream` as server-sent events carrying full task snapshots.
func (h *Handler) streamTasks(c echo.Context) error {
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return writeJSONError(c, http.StatusInternalServerError, APIError{
			Code:    common.CodeInternal,
			Message: "stream unsupported",
		})
	}
	ctx := c.Request().Context()

	updates := make(chan []domain.Task, 1)
	unsubscribe, err := h.svc.SubscribeTasks(ctx, func(tasks []domain.Task) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- tasks:
		default:
		}
	})
	if err != nil {
		return writeErrorFrom(c, err)
	}
	defer unsubscribe()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case tasks := <-updates:
			data, err := json.Marshal(map[string]any{"tasks": common.NewTaskPayloads(tasks)})
			if err != nil {
				c.Logger().Error(err)
				return nil
			}
			if _, err := fmt.Fprintf(c.Response(), "event: tasks\ndata: %s\n\n", data); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

// ErrorHandler renders echo routing errors and unhandled failures as error envelopes.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := common.CodeInternal
		switch httpErr.Code {
		case http.StatusNotFound:
			code = common.CodeNotFound
		case http.StatusMethodNotAllowed:
			code = "method_not_allowed"
		case http.StatusBadRequest:
			code = common.CodeInvalidRequest
		}
		_ = writeJSONError(c, httpErr.Code, APIError{
			Code:    code,
			Message: strings.ToLower(http.StatusText(httpErr.Code)),
		})
		return
	}
	_ = writeErrorFrom(c, err)
}

// parsePriority folds priority input; validation happens in the domain.
func parsePriority(raw string) domain.Priority {
	return domain.Priority(strings.ToLower(strings.TrimSpace(raw)))
}

// writeErrorFrom maps app and domain errors into structured HTTP responses.
func writeErrorFrom(c echo.Context, err error) error {
	code := common.ErrorCode(err)
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	status := http.StatusInternalServerError
	switch code {
	case common.CodeNotFound:
		status = http.StatusNotFound
	case common.CodeInvalidRequest:
		status = http.StatusBadRequest
	}
	return writeJSONError(c, status, APIError{Code: code, Message: message})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(c echo.Context, statusCode int, apiErr APIError) error {
	return c.JSON(statusCode, ErrorEnvelope{Error: apiErr})
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(c echo.Context, out any) error {
	reader := http.MaxBytesReader(c.Response(), c.Request().Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	return contextErr(c.Request().Context())
}

func contextErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
