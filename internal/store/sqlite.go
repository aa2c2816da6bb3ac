package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/revu/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent pipeline runs.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Repositories ---

func (s *SQLiteStore) CreateRepository(ctx context.Context, r *models.Repository) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO repositories (id, github_id, owner, name, full_name, installation_id, auto_review_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GitHubID, r.Owner, r.Name, r.FullName, r.InstallationID,
		boolToInt(r.AutoReviewEnabled), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	return nil
}

const repositoryColumns = `id, github_id, owner, name, full_name, installation_id, auto_review_enabled, created_at, updated_at`

func (s *SQLiteStore) scanRepository(row *sql.Row) (*models.Repository, error) {
	r := &models.Repository{}
	err := row.Scan(&r.ID, &r.GitHubID, &r.Owner, &r.Name, &r.FullName,
		&r.InstallationID, &r.AutoReviewEnabled, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan repository: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) GetRepository(ctx context.Context, id string) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE id = ?`, id)
	return s.scanRepository(row)
}

func (s *SQLiteStore) GetRepositoryByGitHubID(ctx context.Context, githubID string) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE github_id = ?`, githubID)
	return s.scanRepository(row)
}

func (s *SQLiteStore) GetRepositoryByFullName(ctx context.Context, fullName string) (*models.Repository, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE full_name = ?`, fullName)
	return s.scanRepository(row)
}

func (s *SQLiteStore) ListRepositories(ctx context.Context) ([]*models.Repository, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []*models.Repository
	for rows.Next() {
		r := &models.Repository{}
		if err := rows.Scan(&r.ID, &r.GitHubID, &r.Owner, &r.Name, &r.FullName,
			&r.InstallationID, &r.AutoReviewEnabled, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func (s *SQLiteStore) UpdateRepository(ctx context.Context, r *models.Repository) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE repositories SET owner = ?, name = ?, full_name = ?, installation_id = ?, auto_review_enabled = ?, updated_at = ?
		WHERE id = ?`,
		r.Owner, r.Name, r.FullName, r.InstallationID, boolToInt(r.AutoReviewEnabled), r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update repository: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update repository: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteRepository(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Reviews ---

// UpsertReview inserts or replaces the review row for
// (repository_id, pull_request_number, commit_sha). The existing row's id and
// created_at are preserved so redeliveries converge instead of duplicating.
func (s *SQLiteStore) UpsertReview(ctx context.Context, review *models.CodeReview) error {
	if review.ID == "" {
		// Adopt the id of an existing row for the same key, if any.
		var existing string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM reviews WHERE repository_id = ? AND pull_request_number = ? AND commit_sha = ?`,
			review.RepositoryID, review.PullRequestNumber, review.CommitSHA,
		).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			review.ID = newULID()
		case err != nil:
			return fmt.Errorf("lookup review: %w", err)
		default:
			review.ID = existing
		}
	}

	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	findings, err := json.Marshal(review.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}

	var score sql.NullFloat64
	if review.QualityScore != nil {
		score = sql.NullFloat64{Float64: *review.QualityScore, Valid: true}
	}
	var analyzedAt sql.NullTime
	if review.AnalyzedAt != nil {
		analyzedAt = sql.NullTime{Time: *review.AnalyzedAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, repository_id, pull_request_number, commit_sha, status, quality_score, findings, analyzed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repository_id, pull_request_number, commit_sha) DO UPDATE SET
			status = excluded.status,
			quality_score = excluded.quality_score,
			findings = excluded.findings,
			analyzed_at = excluded.analyzed_at,
			updated_at = excluded.updated_at`,
		review.ID, review.RepositoryID, review.PullRequestNumber, review.CommitSHA,
		string(review.Status), score, string(findings), analyzedAt, review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}

const reviewColumns = `id, repository_id, pull_request_number, commit_sha, status, quality_score, findings, analyzed_at, created_at, updated_at`

func scanReview(scan func(...any) error) (*models.CodeReview, error) {
	r := &models.CodeReview{}
	var (
		status     string
		score      sql.NullFloat64
		findings   string
		analyzedAt sql.NullTime
	)
	err := scan(&r.ID, &r.RepositoryID, &r.PullRequestNumber, &r.CommitSHA,
		&status, &score, &findings, &analyzedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = models.ReviewStatus(status)
	if score.Valid {
		r.QualityScore = &score.Float64
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		r.AnalyzedAt = &t
	}
	if err := json.Unmarshal([]byte(findings), &r.Findings); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*models.CodeReview, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	review, err := scanReview(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.CodeReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE 1=1`
	var args []any
	if filter.RepositoryID != "" {
		query += ` AND repository_id = ?`
		args = append(args, filter.RepositoryID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.CodeReview
	for rows.Next() {
		review, err := scanReview(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func (s *SQLiteStore) ReviewStats(ctx context.Context) (*ReviewStats, error) {
	stats := &ReviewStats{
		ByStatus:       make(map[models.ReviewStatus]int),
		FindingsByKind: make(map[models.FindingKind]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reviews GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[models.ReviewStatus(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var mean sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG(quality_score) FROM reviews WHERE quality_score IS NOT NULL`).Scan(&mean)
	if err != nil {
		return nil, fmt.Errorf("mean quality score: %w", err)
	}
	if mean.Valid {
		stats.MeanQualityScore = &mean.Float64
	}

	// Finding kinds live inside the findings JSON column; counting in Go
	// keeps the schema simple at the cost of a full scan.
	reviews, err := s.ListReviews(ctx, ReviewListFilter{})
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		for _, f := range r.Findings {
			stats.FindingsByKind[f.Kind]++
		}
	}

	return stats, nil
}
