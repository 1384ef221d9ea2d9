package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmerrifield20/anchorlog/pkg/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// LogAPI is the subset of the SDK the tools call. *client.Client satisfies it.
type LogAPI interface {
	CreateLog(ctx context.Context, eventType, severity string, data any) (*client.CreateResult, error)
	GetLog(ctx context.Context, id string) (*client.Log, error)
	QueryLogs(ctx context.Context, opts client.QueryOptions) (*client.Page, error)
	VerifyLog(ctx context.Context, id string) (*client.Verification, error)
	Stats(ctx context.Context) (*client.Stats, error)
}

var _ LogAPI = (*client.Client)(nil)

// ToolRegistry holds the SDK client and the handlers for all tools.
type ToolRegistry struct {
	api    LogAPI
	logger *zap.Logger
}

// NewToolRegistry creates a ToolRegistry backed by api.
func NewToolRegistry(api LogAPI, logger *zap.Logger) *ToolRegistry {
	return &ToolRegistry{api: api, logger: logger}
}

// Register adds every tool to s.
func (r *ToolRegistry) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("create_log",
		mcp.WithDescription("Record an audit event. The event is stored immediately and its SHA-256 "+
			"digest is anchored on the ledger in the background. Returns the record id and hash."),
		mcp.WithString("event_type", mcp.Required(),
			mcp.Description("Event category, e.g. user.login or deploy.finished (1-255 chars)")),
		mcp.WithString("severity", mcp.Required(),
			mcp.Description("Severity label, e.g. info, warn, error (1-50 chars)")),
		mcp.WithObject("data",
			mcp.Description("Arbitrary JSON payload describing the event")),
	), r.createLog)

	s.AddTool(mcp.NewTool("get_log",
		mcp.WithDescription("Fetch one audit record by id, including its anchor status and ledger reference."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record UUID")),
	), r.getLog)

	s.AddTool(mcp.NewTool("query_logs",
		mcp.WithDescription("List audit records newest first. All filters are optional and combined with AND."),
		mcp.WithString("event_type", mcp.Description("Exact event type")),
		mcp.WithString("severity", mcp.Description("Exact severity")),
		mcp.WithString("from", mcp.Description("Earliest created_at, RFC3339")),
		mcp.WithString("to", mcp.Description("Latest created_at, RFC3339")),
		mcp.WithNumber("limit", mcp.Description("Page size, default 100, max 1000")),
		mcp.WithNumber("offset", mcp.Description("Rows to skip")),
	), r.queryLogs)

	s.AddTool(mcp.NewTool("verify_log",
		mcp.WithDescription("Check a record's stored hash against the digest anchored on the ledger. "+
			"is_valid is true only when both match."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record UUID")),
	), r.verifyLog)

	s.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Return record counts per anchor status and the ledger account in use."),
	), r.getStats)
}

func (r *ToolRegistry) createLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eventType, err := req.RequireString("event_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	severity, err := req.RequireString("severity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data := req.GetArguments()["data"]

	res, err := r.api.CreateLog(ctx, eventType, severity, data)
	if err != nil {
		return r.failure("create_log", err), nil
	}
	return jsonResult(res)
}

func (r *ToolRegistry) getLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	l, err := r.api.GetLog(ctx, id)
	if err != nil {
		return r.failure("get_log", err), nil
	}
	return jsonResult(l)
}

func (r *ToolRegistry) queryLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := client.QueryOptions{
		EventType: req.GetString("event_type", ""),
		Severity:  req.GetString("severity", ""),
		Limit:     req.GetInt("limit", 0),
		Offset:    req.GetInt("offset", 0),
	}
	var err error
	if opts.From, err = parseTime(req.GetString("from", "")); err != nil {
		return mcp.NewToolResultError("from: " + err.Error()), nil
	}
	if opts.To, err = parseTime(req.GetString("to", "")); err != nil {
		return mcp.NewToolResultError("to: " + err.Error()), nil
	}

	page, err := r.api.QueryLogs(ctx, opts)
	if err != nil {
		return r.failure("query_logs", err), nil
	}
	return jsonResult(page)
}

func (r *ToolRegistry) verifyLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := r.api.VerifyLog(ctx, id)
	if err != nil {
		return r.failure("verify_log", err), nil
	}
	return jsonResult(v)
}

func (r *ToolRegistry) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := r.api.Stats(ctx)
	if err != nil {
		return r.failure("get_stats", err), nil
	}
	return jsonResult(st)
}

// failure turns an SDK error into a tool-level error result. Errors are
// reported to the model rather than failing the JSON-RPC call.
func (r *ToolRegistry) failure(tool string, err error) *mcp.CallToolResult {
	r.logger.Warn("tool call failed", zap.String("tool", tool), zap.Error(err))

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Message))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
