package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/store"
)

// Server wraps the revu data layer and exposes it as MCP tools.
type Server struct {
	store store.Store
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store) *Server {
	return &Server{store: s}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("revu", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listRepositoriesTool())
	srv.AddTool(s.setAutoReviewTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())
	srv.AddTool(s.reviewStatsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// revu_list_repositories
func (s *Server) listRepositoriesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_list_repositories",
		mcp.WithDescription("List all tracked repositories. Returns a JSON array with id, full name, installation id, and whether automatic review is enabled."),
	)
	return tool, s.handleListRepositories
}

func (s *Server) handleListRepositories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list repositories: %v", err)), nil
	}

	type repoOut struct {
		ID                string `json:"id"`
		FullName          string `json:"full_name"`
		GitHubID          string `json:"github_id"`
		InstallationID    int64  `json:"installation_id"`
		AutoReviewEnabled bool   `json:"auto_review_enabled"`
	}

	out := make([]repoOut, len(repos))
	for i, r := range repos {
		out[i] = repoOut{
			ID:                r.ID,
			FullName:          r.FullName,
			GitHubID:          r.GitHubID,
			InstallationID:    r.InstallationID,
			AutoReviewEnabled: r.AutoReviewEnabled,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal repositories: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revu_set_auto_review
func (s *Server) setAutoReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_set_auto_review",
		mcp.WithDescription("Enable or disable automatic review for a repository. Resolves the repository by full name (owner/repo)."),
		mcp.WithString("repository", mcp.Required(), mcp.Description("Repository full name, e.g. acme/widgets")),
		mcp.WithString("enabled", mcp.Required(), mcp.Description("true or false")),
	)
	return tool, s.handleSetAutoReview
}

func (s *Server) handleSetAutoReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fullName, err := request.RequireString("repository")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repository"), nil
	}
	enabledStr, err := request.RequireString("enabled")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: enabled"), nil
	}
	enabled, err := strconv.ParseBool(enabledStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid enabled value: %s", enabledStr)), nil
	}

	repo, err := s.store.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", fullName)), nil
	}

	repo.AutoReviewEnabled = enabled
	if err := s.store.UpdateRepository(ctx, repo); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update repository: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(`{"repository": %q, "auto_review_enabled": %t}`, repo.FullName, enabled)), nil
}

// reviewOut is the compact review representation the list tool returns.
type reviewOut struct {
	ID                string   `json:"id"`
	RepositoryID      string   `json:"repository_id"`
	PullRequestNumber int      `json:"pull_request_number"`
	CommitSHA         string   `json:"commit_sha"`
	Status            string   `json:"status"`
	QualityScore      *float64 `json:"quality_score,omitempty"`
	Findings          int      `json:"findings"`
	AnalyzedAt        string   `json:"analyzed_at,omitempty"`
}

func toReviewOut(r *models.CodeReview) reviewOut {
	out := reviewOut{
		ID:                r.ID,
		RepositoryID:      r.RepositoryID,
		PullRequestNumber: r.PullRequestNumber,
		CommitSHA:         r.CommitSHA,
		Status:            string(r.Status),
		QualityScore:      r.QualityScore,
		Findings:          len(r.Findings),
	}
	if r.AnalyzedAt != nil {
		out.AnalyzedAt = r.AnalyzedAt.Format(time.RFC3339)
	}
	return out
}

// revu_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_list_reviews",
		mcp.WithDescription("List code reviews, newest first. Returns a JSON array of review summaries with id, repository, pull request number, commit, status, quality score, and finding count."),
		mcp.WithString("repository", mcp.Description("Filter by repository full name, e.g. acme/widgets")),
		mcp.WithString("status", mcp.Description("Filter by status: pending, completed, or failed")),
		mcp.WithString("limit", mcp.Description("Maximum number of reviews to return")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.ReviewListFilter{
		Status: models.ReviewStatus(request.GetString("status", "")),
	}

	if fullName := request.GetString("repository", ""); fullName != "" {
		repo, err := s.store.GetRepositoryByFullName(ctx, fullName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", fullName)), nil
		}
		filter.RepositoryID = repo.ID
	}
	if limitStr := request.GetString("limit", ""); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return mcp.NewToolResultError(fmt.Sprintf("invalid limit: %s", limitStr)), nil
		}
		filter.Limit = limit
	}

	reviews, err := s.store.ListReviews(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	out := make([]reviewOut, len(reviews))
	for i, r := range reviews {
		out[i] = toReviewOut(r)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reviews: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revu_get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_get_review",
		mcp.WithDescription("Get one code review by id, including all findings with file path, line, message, and severity."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Review id")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review not found: %s", id)), nil
	}

	out := struct {
		reviewOut
		FindingDetails []models.Finding `json:"finding_details"`
	}{
		reviewOut:      toReviewOut(review),
		FindingDetails: review.Findings,
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal review: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revu_review_stats
func (s *Server) reviewStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revu_review_stats",
		mcp.WithDescription("Summarize all recorded reviews: totals by status, mean quality score, and finding counts by kind."),
	)
	return tool, s.handleReviewStats
}

func (s *Server) handleReviewStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.ReviewStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
