package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
)

const mcpServerVersion = "1.0.0"

// NewMCPHandler exposes the file service as Model Context Protocol tools over streamable HTTP.
func NewMCPHandler(files ports.FileService, logger *slog.Logger) http.Handler {
	return server.NewStreamableHTTPServer(newMCPServer(files, logger), server.WithStateLess(true))
}

func newMCPServer(files ports.FileService, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer(
		"smart-file-explorer",
		mcpServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	tools := mcpTools{files: files, logger: logger}

	s.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List stored files with their category tag and any saved summary."),
	), tools.listFiles)

	s.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Find stored files whose name or category contains the query, case-insensitively."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to look for.")),
	), tools.searchFiles)

	s.AddTool(mcp.NewTool("summarize_file",
		mcp.WithDescription("Summarize one stored file in a few bullet points."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Exact stored filename.")),
	), tools.summarizeFile)

	return s
}

type mcpTools struct {
	files  ports.FileService
	logger *slog.Logger
}

func (t mcpTools) listFiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := t.files.ListWithMetadata(ctx)
	if err != nil {
		t.logger.Warn("mcp.list_files.failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonToolResult(records)
}

func (t mcpTools) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonToolResult(t.files.Search(ctx, query))
}

func (t mcpTools) summarizeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.files.Summarize(ctx, filename)
	if err != nil {
		t.logger.Warn("mcp.summarize_file.failed", "filename", filename, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result.Summary), nil
}

func jsonToolResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
