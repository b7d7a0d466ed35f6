package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/doccorpus/internal/elasticsearch"
	"github.com/mfenderov/doccorpus/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Index is the corpus index the tools query.
type Index interface {
	HybridSearch(ctx context.Context, q elasticsearch.Query, vector []float32) ([]models.ExtractedDocument, error)
	GetDocument(ctx context.Context, id string) (*models.ExtractedDocument, error)
}

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Server exposes the corpus index as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	index     Index
	embedder  Embedder // nil disables vector search
}

// NewServer creates an MCP server with search_corpus and get_document.
// embedder may be nil.
func NewServer(config Config, index Index, embedder Embedder) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		index:     index,
		embedder:  embedder,
	}

	searchTool := mcp.NewTool("search_corpus",
		mcp.WithDescription("Search the extracted document corpus by query, optionally within a date range. Returns filename, date and full text."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithString("from",
			mcp.Description("Earliest document date, YYYY-MM-DD"),
		),
		mcp.WithString("to",
			mcp.Description("Latest document date, YYYY-MM-DD"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	getDocTool := mcp.NewTool("get_document",
		mcp.WithDescription("Get one corpus document by ID or by its filename"),
		mcp.WithString("id",
			mcp.Description("Document ID"),
		),
		mcp.WithString("filename",
			mcp.Description("Document filename, e.g. A(2024)09-03.pdf"),
		),
	)
	mcpServer.AddTool(getDocTool, s.getDocumentHandler)

	return s
}

func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	q := elasticsearch.Query{
		Text:  query,
		From:  req.GetString("from", ""),
		To:    req.GetString("to", ""),
		Limit: req.GetInt("limit", 10),
	}

	docs, err := s.handleSearch(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(docs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) getDocumentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		filename := req.GetString("filename", "")
		if filename == "" {
			return mcp.NewToolResultError("id or filename parameter is required"), nil
		}
		id = models.GenerateDocumentID(filename)
	}

	doc, err := s.index.GetDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get document failed: %v", err)), nil
	}
	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", id)), nil
	}

	result, err := json.Marshal(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal document: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// handleSearch embeds the query when an embedder is configured and falls
// back to text search when embedding fails.
func (s *Server) handleSearch(ctx context.Context, q elasticsearch.Query) ([]models.ExtractedDocument, error) {
	var vector []float32
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, q.Text)
		if err != nil {
			slog.Warn("failed to embed query, using text search", "error", err)
		} else {
			vector = v
		}
	}
	return s.index.HybridSearch(ctx, q, vector)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
