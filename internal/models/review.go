package models

import "time"

// ReviewStatus represents the state of a review run.
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusCompleted ReviewStatus = "completed"
	ReviewStatusFailed    ReviewStatus = "failed"
)

// FindingKind represents which analyzer produced a finding.
type FindingKind string

const (
	FindingKindQuality     FindingKind = "quality"
	FindingKindSecurity    FindingKind = "security"
	FindingKindPerformance FindingKind = "performance"
)

// FindingSeverity represents how serious a finding is.
type FindingSeverity string

const (
	FindingSeverityLow    FindingSeverity = "low"
	FindingSeverityMedium FindingSeverity = "medium"
	FindingSeverityHigh   FindingSeverity = "high"
)

// Finding is a single reviewer-relevant observation tied to a file and an
// optional line. Findings are immutable once recorded.
type Finding struct {
	Kind     FindingKind     `json:"kind"`
	FilePath string          `json:"file_path"`
	Line     int             `json:"line,omitempty"` // 0 = no specific line
	Message  string          `json:"message"`
	Severity FindingSeverity `json:"severity,omitempty"`
}

// CodeReview is one pipeline run for one pull-request commit. It is created
// with status pending and finalized to completed or failed; findings only
// ever accumulate.
type CodeReview struct {
	ID                string
	RepositoryID      string
	PullRequestNumber int
	CommitSHA         string
	Status            ReviewStatus
	QualityScore      *float64 // mean over analyzed files; nil when no file scored
	Findings          []Finding
	AnalyzedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
