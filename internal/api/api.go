package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/store"
	"github.com/joescharf/revu/internal/webhook"
)

// maxWebhookBody caps GitHub webhook payloads. GitHub's own limit is 25 MB.
const maxWebhookBody = 25 << 20

// Server provides the webhook receiver and REST API handlers.
type Server struct {
	store         store.Store
	engine        *review.Engine
	pipeline      *review.Pipeline
	webhookSecret string
}

// NewServer creates a new API server. An empty webhookSecret disables
// signature verification.
func NewServer(s store.Store, engine *review.Engine, pipeline *review.Pipeline, webhookSecret string) *Server {
	return &Server{
		store:         s,
		engine:        engine,
		pipeline:      pipeline,
		webhookSecret: webhookSecret,
	}
}

// Router returns an http.Handler for all routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhooks/github", s.handleWebhook)

	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)
	mux.HandleFunc("POST /api/v1/reviews/analyze", s.analyzeSnippet)

	mux.HandleFunc("GET /api/v1/repositories", s.listRepositories)
	mux.HandleFunc("POST /api/v1/repositories", s.createRepository)
	mux.HandleFunc("GET /api/v1/repositories/{id}", s.getRepository)
	mux.HandleFunc("PATCH /api/v1/repositories/{id}", s.updateRepository)
	mux.HandleFunc("DELETE /api/v1/repositories/{id}", s.deleteRepository)

	mux.HandleFunc("GET /api/v1/analytics/summary", s.analyticsSummary)

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /{$}", s.root)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Webhooks ---

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !webhook.VerifySignature(body, r.Header.Get("X-Hub-Signature-256"), s.webhookSecret) {
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType != "pull_request" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "received", "event": eventType})
		return
	}

	event, err := webhook.ParsePullRequestEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !webhook.Actionable(event.Event, event.Action) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "received",
			"event":  event.Event,
			"action": event.Action,
		})
		return
	}

	if !s.engine.Submit(event) {
		writeError(w, http.StatusServiceUnavailable, "review queue full")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "received",
		"event":         event.Event,
		"action":        event.Action,
		"repository":    event.RepoFullName,
		"pull_number":   event.PullRequestNumber,
		"review_queued": true,
	})
}

// --- Reviews ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	filter := store.ReviewListFilter{
		RepositoryID: r.URL.Query().Get("repository_id"),
		Status:       models.ReviewStatus(r.URL.Query().Get("status")),
	}
	reviews, err := s.store.ListReviews(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rev, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

type analyzeRequest struct {
	Code     string `json:"code"`
	FilePath string `json:"file_path"`
}

type analyzeResponse struct {
	FilePath     string           `json:"file_path"`
	QualityScore *float64         `json:"quality_score,omitempty"`
	Findings     []models.Finding `json:"findings"`
}

// analyzeSnippet runs the analyzers over posted code without persisting
// anything. Useful for trying out the analysis outside a pull request.
func (s *Server) analyzeSnippet(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}
	if !review.Supported(req.FilePath) {
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}

	findings, score := s.pipeline.AnalyzeContent(r.Context(), req.Code, req.FilePath)
	if findings == nil {
		findings = []models.Finding{}
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		FilePath:     req.FilePath,
		QualityScore: score,
		Findings:     findings,
	})
}

// --- Repositories ---

func (s *Server) listRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.store.ListRepositories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) createRepository(w http.ResponseWriter, r *http.Request) {
	var repo models.Repository
	if err := json.NewDecoder(r.Body).Decode(&repo); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if repo.GitHubID == "" || repo.Owner == "" || repo.Name == "" {
		writeError(w, http.StatusBadRequest, "GitHubID, Owner, and Name are required")
		return
	}
	if repo.FullName == "" {
		repo.FullName = repo.Owner + "/" + repo.Name
	}
	if err := s.store.CreateRepository(r.Context(), &repo); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) getRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := s.store.GetRepository(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) updateRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := s.store.GetRepository(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var patch struct {
		AutoReviewEnabled *bool  `json:"auto_review_enabled"`
		InstallationID    *int64 `json:"installation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if patch.AutoReviewEnabled != nil {
		repo.AutoReviewEnabled = *patch.AutoReviewEnabled
	}
	if patch.InstallationID != nil {
		repo.InstallationID = *patch.InstallationID
	}

	if err := s.store.UpdateRepository(r.Context(), repo); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) deleteRepository(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRepository(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Analytics ---

func (s *Server) analyticsSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.ReviewStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Misc ---

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "revu",
		"webhook": "/webhooks/github",
		"api":     "/api/v1",
	})
}
