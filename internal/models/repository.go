package models

import "time"

// Repository represents a GitHub repository tracked for automatic review.
type Repository struct {
	ID                string
	GitHubID          string // GitHub's numeric repository id, stored as a string
	Owner             string
	Name              string
	FullName          string
	InstallationID    int64 // GitHub App installation granting API access
	AutoReviewEnabled bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
