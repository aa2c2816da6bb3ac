package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return NewServer(s), s
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func seedRepository(t *testing.T, s store.Store, fullName string, enabled bool) *models.Repository {
	t.Helper()
	parts := strings.SplitN(fullName, "/", 2)
	repo := &models.Repository{
		GitHubID:          "gh-" + parts[1],
		Owner:             parts[0],
		Name:              parts[1],
		FullName:          fullName,
		InstallationID:    42,
		AutoReviewEnabled: enabled,
	}
	require.NoError(t, s.CreateRepository(context.Background(), repo))
	return repo
}

func seedReview(t *testing.T, s store.Store, repoID string, prNumber int, status models.ReviewStatus) *models.CodeReview {
	t.Helper()
	review := &models.CodeReview{
		RepositoryID:      repoID,
		PullRequestNumber: prNumber,
		CommitSHA:         "sha-" + strings.Repeat("a", prNumber),
		Status:            status,
		Findings: []models.Finding{
			{Kind: models.FindingKindSecurity, FilePath: "main.py", Line: 3, Message: "hardcoded secret", Severity: models.FindingSeverityHigh},
		},
	}
	require.NoError(t, s.UpsertReview(context.Background(), review))
	return review
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

func TestHandleListRepositories(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	seedRepository(t, s, "acme/widgets", true)
	seedRepository(t, s, "acme/gadgets", false)

	result, err := srv.handleListRepositories(ctx, callToolReq("revu_list_repositories", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 2)

	names := []string{out[0]["full_name"].(string), out[1]["full_name"].(string)}
	assert.Contains(t, names, "acme/widgets")
	assert.Contains(t, names, "acme/gadgets")
}

func TestHandleSetAutoReview(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	repo := seedRepository(t, s, "acme/widgets", true)

	result, err := srv.handleSetAutoReview(ctx, callToolReq("revu_set_auto_review", map[string]any{
		"repository": "acme/widgets",
		"enabled":    "false",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	updated, err := s.GetRepository(ctx, repo.ID)
	require.NoError(t, err)
	assert.False(t, updated.AutoReviewEnabled)
}

func TestHandleSetAutoReview_Errors(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()
	seedRepository(t, s, "acme/widgets", true)

	cases := []struct {
		name string
		args map[string]any
	}{
		{"missing repository", map[string]any{"enabled": "true"}},
		{"missing enabled", map[string]any{"repository": "acme/widgets"}},
		{"bad enabled value", map[string]any{"repository": "acme/widgets", "enabled": "maybe"}},
		{"unknown repository", map[string]any{"repository": "acme/ghost", "enabled": "true"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := srv.handleSetAutoReview(ctx, callToolReq("revu_set_auto_review", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

func TestHandleListReviews(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	repo := seedRepository(t, s, "acme/widgets", true)
	other := seedRepository(t, s, "acme/gadgets", true)
	seedReview(t, s, repo.ID, 1, models.ReviewStatusCompleted)
	seedReview(t, s, repo.ID, 2, models.ReviewStatusFailed)
	seedReview(t, s, other.ID, 3, models.ReviewStatusCompleted)

	result, err := srv.handleListReviews(ctx, callToolReq("revu_list_reviews", map[string]any{
		"repository": "acme/widgets",
		"status":     "completed",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []reviewOut
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out, 1)
	assert.Equal(t, repo.ID, out[0].RepositoryID)
	assert.Equal(t, 1, out[0].PullRequestNumber)
	assert.Equal(t, 1, out[0].Findings)
}

func TestHandleListReviews_InvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListReviews(context.Background(), callToolReq("revu_list_reviews", map[string]any{
		"limit": "zero",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetReview(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	repo := seedRepository(t, s, "acme/widgets", true)
	review := seedReview(t, s, repo.ID, 5, models.ReviewStatusCompleted)

	result, err := srv.handleGetReview(ctx, callToolReq("revu_get_review", map[string]any{"id": review.ID}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, review.ID)
	assert.Contains(t, text, "hardcoded secret")
}

func TestHandleGetReview_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleGetReview(context.Background(), callToolReq("revu_get_review", map[string]any{"id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleReviewStats(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	repo := seedRepository(t, s, "acme/widgets", true)
	seedReview(t, s, repo.ID, 1, models.ReviewStatusCompleted)
	seedReview(t, s, repo.ID, 2, models.ReviewStatusPending)

	result, err := srv.handleReviewStats(ctx, callToolReq("revu_review_stats", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var stats store.ReviewStats
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[models.ReviewStatusCompleted])
	assert.Equal(t, 2, stats.FindingsByKind[models.FindingKindSecurity])
}
