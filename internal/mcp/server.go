// Package mcp exposes the stored reviews to AI assistants over the Model
// Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// ServerName is reported to MCP clients.
const ServerName = "cxfintech"

const (
	defaultReviewLimit = 20
	maxReviewLimit     = 200
)

// Dashboard computes the summary figures. *service.Dashboard implements it.
type Dashboard interface {
	Summary(ctx context.Context, banks []string) (service.Summary, error)
}

// Reviews lists stored reviews and banks. *service.Reviews implements it.
type Reviews interface {
	List(ctx context.Context, q service.ReviewQuery) ([]service.Row, int64, error)
	Banks(ctx context.Context) ([]string, error)
}

// Server wraps the MCP server with review tools.
type Server struct {
	mcpServer *server.MCPServer
	dashboard Dashboard
	reviews   Reviews
	version   string
	logger    *slog.Logger
}

// NewServer creates a new MCP server reporting version.
func NewServer(dashboard Dashboard, reviews Reviews, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		dashboard: dashboard,
		reviews:   reviews,
		version:   version,
		logger:    logger,
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("get_version",
		mcp.WithDescription("Get the server version"),
	), s.handleGetVersion)

	mcpServer.AddTool(mcp.NewTool("list_banks",
		mcp.WithDescription("List the stored banks"),
	), s.handleListBanks)

	mcpServer.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Get headline KPIs, sentiment and rating counts per bank, and theme drivers ranked by mean sentiment score"),
		mcp.WithString("banks",
			mcp.Description("Comma-separated banks to include (default: all)"),
		),
	), s.handleGetSummary)

	mcpServer.AddTool(mcp.NewTool("list_reviews",
		mcp.WithDescription("List stored reviews with their sentiment and themes"),
		mcp.WithString("bank",
			mcp.Description("Only reviews of this bank"),
		),
		mcp.WithString("sentiment",
			mcp.Description("Only reviews with this label: POSITIVE, NEUTRAL or NEGATIVE"),
		),
		mcp.WithString("theme",
			mcp.Description("Only reviews mentioning this theme"),
		),
		mcp.WithNumber("min_rating",
			mcp.Description("Only reviews with at least this many stars"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum reviews returned (default: %d, max: %d)", defaultReviewLimit, maxReviewLimit)),
		),
		mcp.WithNumber("offset",
			mcp.Description("Matching reviews to skip, for paging"),
		),
	), s.handleListReviews)
}

func (s *Server) handleGetVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

func (s *Server) handleListBanks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	banks, err := s.reviews.Banks(ctx)
	if err != nil {
		s.logger.Error("list banks failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("reviews unavailable: %v", err)), nil
	}
	return jsonResult(banks)
}

func (s *Server) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var banks []string
	for _, bank := range strings.Split(request.GetString("banks", ""), ",") {
		if bank = strings.TrimSpace(bank); bank != "" {
			banks = append(banks, bank)
		}
	}
	summary, err := s.dashboard.Summary(ctx, banks)
	if err != nil {
		s.logger.Error("summary failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("reviews unavailable: %v", err)), nil
	}
	return jsonResult(summary)
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := service.ReviewQuery{
		Theme:     strings.TrimSpace(request.GetString("theme", "")),
		MinRating: request.GetInt("min_rating", 0),
		Offset:    max(request.GetInt("offset", 0), 0),
	}
	if bank := request.GetString("bank", ""); bank != "" {
		q.Banks = []string{bank}
	}
	if raw := request.GetString("sentiment", ""); raw != "" {
		label, ok := review.ParseLabel(raw)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown sentiment: %s", raw)), nil
		}
		q.Sentiment = label
	}

	q.Limit = request.GetInt("limit", defaultReviewLimit)
	if q.Limit <= 0 {
		q.Limit = defaultReviewLimit
	}
	q.Limit = min(q.Limit, maxReviewLimit)

	rows, _, err := s.reviews.List(ctx, q)
	if err != nil {
		s.logger.Error("list reviews failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("reviews unavailable: %v", err)), nil
	}
	return jsonResult(rows)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
