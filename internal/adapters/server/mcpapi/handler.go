// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/join/internal/adapters/server/common"
	"github.com/hylla/join/internal/app"
	"github.com/hylla/join/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, svc common.BoardService) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerTaskTools(mcpSrv, svc)
	registerContactTools(mcpSrv, svc)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "join"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// columnEnum lists the accepted column keys in board order.
func columnEnum() []string {
	keys := domain.Columns()
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, string(key))
	}
	return out
}

// priorityEnum lists the accepted priorities.
func priorityEnum() []string {
	values := domain.Priorities()
	out := make([]string, 0, len(values))
	for _, p := range values {
		out = append(out, string(p))
	}
	return out
}

// registerTaskTools registers the task list/get/create/move and activity tools.
func registerTaskTools(srv *mcpserver.MCPServer, svc common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"join.list_tasks",
			mcp.WithDescription("List board tasks in collection order, optionally limited to one column."),
			mcp.WithString("column", mcp.Description("Column key filter"), mcp.Enum(columnEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var filter domain.ColumnKey
			if raw := req.GetString("column", ""); strings.TrimSpace(raw) != "" {
				column, err := common.ParseColumn(raw)
				if err != nil {
					return toolResultFromError(err), nil
				}
				filter = column
			}
			tasks, err := svc.ListTasks(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			if filter != "" {
				kept := tasks[:0]
				for _, task := range tasks {
					if task.Column == filter {
						kept = append(kept, task)
					}
				}
				tasks = kept
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"tasks": common.NewTaskPayloads(tasks),
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"join.get_task",
			mcp.WithDescription("Return one task by id."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := svc.GetTask(ctx, taskID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(common.NewTaskPayload(task))
			if err != nil {
				return nil, fmt.Errorf("encode get_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"join.create_task",
			mcp.WithDescription("Create a task. New tasks land in the todo column unless a column is given."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithString("column", mcp.Description("Initial column"), mcp.Enum(columnEnum()...)),
			mcp.WithString("category", mcp.Description("Task category")),
			mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum(priorityEnum()...)),
			mcp.WithString("due_date", mcp.Description("Due date as YYYY-MM-DD")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			in := app.CreateTaskInput{
				Title:       title,
				Description: req.GetString("description", ""),
				Category:    req.GetString("category", ""),
				Priority:    domain.Priority(strings.ToLower(strings.TrimSpace(req.GetString("priority", "")))),
			}
			if raw := req.GetString("column", ""); strings.TrimSpace(raw) != "" {
				column, err := common.ParseColumn(raw)
				if err != nil {
					return toolResultFromError(err), nil
				}
				in.Column = column
			}
			due, err := common.ParseDueDate(req.GetString("due_date", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			in.DueDate = due
			task, err := svc.CreateTask(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(common.NewTaskPayload(task))
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"join.move_task",
			mcp.WithDescription("Move a task to another column and stamp its moved_at time."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("column", mcp.Required(), mcp.Description("Target column"), mcp.Enum(columnEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			raw, err := req.RequireString("column")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			column, err := common.ParseColumn(raw)
			if err != nil {
				return toolResultFromError(err), nil
			}
			task, err := svc.MoveTask(ctx, taskID, column)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(common.NewTaskPayload(task))
			if err != nil {
				return nil, fmt.Errorf("encode move_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"join.list_activity",
			mcp.WithDescription("List recent task activity, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			events, err := svc.ListChangeEvents(ctx, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			out := make([]common.ChangeEventPayload, 0, len(events))
			for _, ev := range events {
				out = append(out, common.NewChangeEventPayload(ev))
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"events": out})
			if err != nil {
				return nil, fmt.Errorf("encode list_activity result: %w", err)
			}
			return result, nil
		},
	)
}

// registerContactTools registers the contact listing tool.
func registerContactTools(srv *mcpserver.MCPServer, svc common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"join.list_contacts",
			mcp.WithDescription("List contacts sorted by name, with initials and palette colors."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			contacts, err := svc.ListContacts(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			out := make([]common.ContactPayload, 0, len(contacts))
			for _, c := range contacts {
				out = append(out, common.NewContactPayload(c))
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"contacts": out})
			if err != nil {
				return nil, fmt.Errorf("encode list_contacts result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps app errors into stable MCP tool error payloads.
func toolResultFromError(err error) *mcp.CallToolResult {
	if err == nil {
		err = errors.New("unknown error")
	}
	return mcp.NewToolResultError(common.ErrorCode(err) + ": " + err.Error())
}
