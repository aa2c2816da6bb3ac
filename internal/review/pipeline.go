// Package review implements the webhook-driven review pipeline: file
// retrieval, per-file parallel analysis, incremental persistence, and
// comment publishing.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/revu/internal/github"
	"github.com/joescharf/revu/internal/llm"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/store"
)

// GitHubClient is the subset of the GitHub API the pipeline needs.
type GitHubClient interface {
	ListChangedFiles(ctx context.Context, installationID int64, owner, repo string, prNumber int) ([]models.ChangedFile, error)
	FileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) ([]byte, error)
	CreateReview(ctx context.Context, installationID int64, owner, repo string, prNumber int, commitSHA, event, summary string, comments []github.ReviewComment) error
}

// Analyzer runs the three per-file analysis passes.
type Analyzer interface {
	AnalyzeQuality(ctx context.Context, code, filePath, language string) (*llm.QualityResult, error)
	DetectSecurity(ctx context.Context, code, filePath, language string) ([]models.Finding, error)
	SuggestPerformance(ctx context.Context, code, filePath, language string) ([]models.Finding, error)
}

// Config tunes pipeline behavior.
type Config struct {
	// CallTimeout bounds each external analyzer or content-fetch call.
	CallTimeout time.Duration
	// MaxFileBytes skips files larger than this (0 = no limit).
	MaxFileBytes int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CallTimeout:  30 * time.Second,
		MaxFileBytes: 256 * 1024,
	}
}

// Pipeline orchestrates one review run per pull-request commit. All
// collaborators are explicit dependencies; the pipeline holds no global
// state.
type Pipeline struct {
	store    store.Store
	github   GitHubClient
	analyzer Analyzer
	cfg      Config
	logger   *slog.Logger
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(s store.Store, gh GitHubClient, analyzer Analyzer, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    s,
		github:   gh,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
	}
}

// fileResult is the outcome of one file's analysis.
type fileResult struct {
	findings []models.Finding
	score    *float64 // nil when the quality analyzer failed
}

// Run executes the full pipeline for one webhook event: repository lookup,
// file fan-out, incremental recording, and comment publishing. Untracked or
// review-disabled repositories are a success no-op. Individual analyzer and
// fetch failures are recorded and never abort the run; only persistence
// failures do.
func (p *Pipeline) Run(ctx context.Context, event *models.WebhookEvent) error {
	log := p.logger.With("repo", event.RepoFullName, "pr", event.PullRequestNumber, "sha", event.HeadSHA)

	repo, err := p.store.GetRepositoryByGitHubID(ctx, event.RepoGitHubID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("repository not tracked, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup repository: %w", err)
	}
	if !repo.AutoReviewEnabled {
		log.Info("auto review disabled, skipping")
		return nil
	}

	review := &models.CodeReview{
		RepositoryID:      repo.ID,
		PullRequestNumber: event.PullRequestNumber,
		CommitSHA:         event.HeadSHA,
		Status:            models.ReviewStatusPending,
	}
	if err := p.store.UpsertReview(ctx, review); err != nil {
		return fmt.Errorf("create review record: %w", err)
	}

	files, err := p.github.ListChangedFiles(ctx, event.InstallationID, event.RepoOwner, event.RepoName, event.PullRequestNumber)
	if err != nil {
		p.markFailed(ctx, review, log)
		return fmt.Errorf("list changed files: %w", err)
	}

	var (
		scoreSum    float64
		scoredFiles int
	)
	for _, file := range files {
		if file.Status == models.FileStatusRemoved || !Supported(file.Path) {
			continue
		}

		content, err := p.fetchContent(ctx, event, file.Path)
		if err != nil {
			// File-level fetch failures skip the file, not the run.
			log.Warn("file fetch failed, skipping", "path", file.Path, "error", err)
			continue
		}
		if len(content) == 0 {
			continue
		}
		if p.cfg.MaxFileBytes > 0 && len(content) > p.cfg.MaxFileBytes {
			log.Info("file too large, skipping", "path", file.Path, "bytes", len(content))
			continue
		}

		result := p.analyzeFile(ctx, string(content), file.Path, Classify(file.Path))

		review.Findings = append(review.Findings, result.findings...)
		if result.score != nil {
			scoreSum += *result.score
			scoredFiles++
		}

		// Persist after every file so a crash mid-run leaves a resumable
		// partial review rather than a silent loss.
		if err := p.store.UpsertReview(ctx, review); err != nil {
			p.markFailed(ctx, review, log)
			return fmt.Errorf("record partial review: %w", err)
		}
	}

	if scoredFiles > 0 {
		mean := scoreSum / float64(scoredFiles)
		review.QualityScore = &mean
	}
	now := time.Now().UTC()
	review.AnalyzedAt = &now
	review.Status = models.ReviewStatusCompleted
	if err := p.store.UpsertReview(ctx, review); err != nil {
		p.markFailed(ctx, review, log)
		return fmt.Errorf("finalize review: %w", err)
	}

	if len(review.Findings) > 0 {
		if err := p.publish(ctx, event, review); err != nil {
			// Publish failure never reverts the review's status.
			log.Warn("failed to publish review comments", "error", err)
		}
	}

	log.Info("review completed",
		"files_analyzed", scoredFiles,
		"findings", len(review.Findings))
	return nil
}

// fetchContent fetches one file's content under the per-call timeout.
func (p *Pipeline) fetchContent(ctx context.Context, event *models.WebhookEvent, path string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.github.FileContent(cctx, event.InstallationID, event.RepoOwner, event.RepoName, path, event.HeadSHA)
}

// analyzeFile runs the three analyzers concurrently and waits for all of
// them before returning. A failed analyzer contributes a synthetic finding
// of its kind instead of aborting the other two.
func (p *Pipeline) analyzeFile(ctx context.Context, code, path string, lang Language) fileResult {
	var (
		wg       sync.WaitGroup
		quality  *llm.QualityResult
		security []models.Finding
		perf     []models.Finding
		qErr     error
		sErr     error
		pErr     error
	)

	call := func(fn func(context.Context)) {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
		defer cancel()
		fn(cctx)
	}

	wg.Add(3)
	go call(func(cctx context.Context) {
		quality, qErr = p.analyzer.AnalyzeQuality(cctx, code, path, string(lang))
	})
	go call(func(cctx context.Context) {
		security, sErr = p.analyzer.DetectSecurity(cctx, code, path, string(lang))
	})
	go call(func(cctx context.Context) {
		perf, pErr = p.analyzer.SuggestPerformance(cctx, code, path, string(lang))
	})
	wg.Wait()

	var result fileResult
	if qErr != nil {
		result.findings = append(result.findings, failureFinding(models.FindingKindQuality, path, qErr))
	} else if quality != nil {
		score := quality.Score
		result.score = &score
		result.findings = append(result.findings, quality.Suggestions...)
	}
	if sErr != nil {
		result.findings = append(result.findings, failureFinding(models.FindingKindSecurity, path, sErr))
	} else {
		result.findings = append(result.findings, security...)
	}
	if pErr != nil {
		result.findings = append(result.findings, failureFinding(models.FindingKindPerformance, path, pErr))
	} else {
		result.findings = append(result.findings, perf...)
	}
	return result
}

// AnalyzeContent runs the three analyzers over a single piece of code
// without touching GitHub or the store. It backs the synchronous
// /reviews/analyze endpoint.
func (p *Pipeline) AnalyzeContent(ctx context.Context, code, path string) ([]models.Finding, *float64) {
	result := p.analyzeFile(ctx, code, path, Classify(path))
	return result.findings, result.score
}

// markFailed finalizes a review as failed on a best-effort basis.
func (p *Pipeline) markFailed(ctx context.Context, review *models.CodeReview, log *slog.Logger) {
	review.Status = models.ReviewStatusFailed
	if err := p.store.UpsertReview(ctx, review); err != nil {
		log.Error("failed to mark review as failed", "error", err)
	}
}

// failureFinding records an analyzer failure as a finding so the run can
// continue and the failure stays visible in the result.
func failureFinding(kind models.FindingKind, path string, err error) models.Finding {
	return models.Finding{
		Kind:     kind,
		FilePath: path,
		Message:  fmt.Sprintf("%s analysis failed: %v", kind, err),
		Severity: models.FindingSeverityLow,
	}
}

// publish posts the aggregated findings back to the pull request as one
// review with inline comments.
func (p *Pipeline) publish(ctx context.Context, event *models.WebhookEvent, review *models.CodeReview) error {
	comments := make([]github.ReviewComment, 0, len(review.Findings))
	for _, f := range review.Findings {
		line := f.Line
		if line < 1 {
			line = 1
		}
		body := f.Message
		if f.Severity != "" {
			body = fmt.Sprintf("**%s/%s**: %s", f.Kind, f.Severity, f.Message)
		} else {
			body = fmt.Sprintf("**%s**: %s", f.Kind, f.Message)
		}
		comments = append(comments, github.ReviewComment{
			Path: f.FilePath,
			Line: line,
			Body: body,
		})
	}

	summary := summaryBody(review)
	cctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.github.CreateReview(cctx, event.InstallationID, event.RepoOwner, event.RepoName,
		event.PullRequestNumber, event.HeadSHA, "COMMENT", summary, comments)
}

func summaryBody(review *models.CodeReview) string {
	counts := make(map[models.FindingKind]int)
	for _, f := range review.Findings {
		counts[f.Kind]++
	}
	summary := "🤖 AI Code Review completed"
	if review.QualityScore != nil {
		summary += fmt.Sprintf("\n\nQuality score: %.1f/100", *review.QualityScore)
	}
	summary += fmt.Sprintf("\nFindings: %d quality, %d security, %d performance",
		counts[models.FindingKindQuality],
		counts[models.FindingKindSecurity],
		counts[models.FindingKindPerformance])
	return summary
}
