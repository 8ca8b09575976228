package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
)

const (
	serverName = "document-classifier"

	toolGetDocumentAnalysis = "get_document_analysis"
	argDocumentID           = "document_id"
)

// Server exposes document lookups as MCP tools.
type Server struct {
	reader ports.AnalysisReader
	server *server.MCPServer
}

func NewServer(reader ports.AnalysisReader, version string) *Server {
	s := &Server{
		reader: reader,
		server: server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	tool := mcp.NewTool(toolGetDocumentAnalysis,
		mcp.WithDescription("Fetch the stored sentiment and entity analysis for a document."),
		mcp.WithString(argDocumentID,
			mcp.Required(),
			mcp.Description("Document identifier, for example s3://bucket/key.pdf"),
		),
	)
	s.server.AddTool(tool, s.handleGetDocumentAnalysis)
}

// ServeStdio blocks until ctx is done or in is closed. Protocol traffic uses
// in/out, so logs must go elsewhere.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.server)
	stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handleGetDocumentAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := request.RequireString(argDocumentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	item, err := s.reader.GetByID(ctx, documentID)
	if err != nil {
		switch {
		case domain.IsKind(err, domain.ErrDocumentNotFound):
			return mcp.NewToolResultError("document not found: " + documentID), nil
		case domain.IsKind(err, domain.ErrInvalidInput):
			return mcp.NewToolResultError(err.Error()), nil
		default:
			slog.Error("mcp_lookup_failed", "document_id", documentID, "error", err)
			return mcp.NewToolResultError("lookup failed: " + err.Error()), nil
		}
	}

	body, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}
