package store

import (
	"context"
	"errors"

	"github.com/joescharf/revu/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ReviewListFilter specifies filters for listing reviews.
type ReviewListFilter struct {
	RepositoryID string
	Status       models.ReviewStatus
	Limit        int
}

// ReviewStats summarizes persisted reviews for the analytics endpoint.
type ReviewStats struct {
	Total            int                        `json:"total"`
	ByStatus         map[models.ReviewStatus]int `json:"by_status"`
	MeanQualityScore *float64                   `json:"mean_quality_score,omitempty"`
	FindingsByKind   map[models.FindingKind]int `json:"findings_by_kind"`
}

// Store defines the persistence interface for revu.
type Store interface {
	// Repositories
	CreateRepository(ctx context.Context, r *models.Repository) error
	GetRepository(ctx context.Context, id string) (*models.Repository, error)
	GetRepositoryByGitHubID(ctx context.Context, githubID string) (*models.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (*models.Repository, error)
	ListRepositories(ctx context.Context) ([]*models.Repository, error)
	UpdateRepository(ctx context.Context, r *models.Repository) error
	DeleteRepository(ctx context.Context, id string) error

	// Reviews. UpsertReview is keyed by (repository_id, pull_request_number,
	// commit_sha): duplicate webhook deliveries for the same commit converge
	// to a single row.
	UpsertReview(ctx context.Context, review *models.CodeReview) error
	GetReview(ctx context.Context, id string) (*models.CodeReview, error)
	ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.CodeReview, error)
	ReviewStats(ctx context.Context) (*ReviewStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
