// Package github is a minimal GitHub REST client for the review pipeline:
// GitHub App authentication, pull-request file listing, file content
// retrieval, and review posting.
package github

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joescharf/revu/internal/models"
)

const defaultBaseURL = "https://api.github.com"

// errNotFound marks a 404 from the API; FileContent maps it to a nil result.
var errNotFound = errors.New("github: not found")

func isNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

// ReviewComment is one inline comment in a posted pull-request review.
type ReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// Client handles GitHub API interactions. With App credentials it exchanges
// a signed JWT for per-installation access tokens; with a personal token it
// uses that token directly.
type Client struct {
	httpClient *http.Client
	baseURL    string

	appID      string
	privateKey *rsa.PrivateKey
	token      string

	mu         sync.Mutex
	instTokens map[int64]installationToken
}

// NewAppClient creates a client authenticating as a GitHub App.
func NewAppClient(appID string, privateKeyPEM []byte, timeout time.Duration) (*Client, error) {
	if appID == "" {
		return nil, fmt.Errorf("github app id is required")
	}
	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		appID:      appID,
		privateKey: key,
		instTokens: make(map[int64]installationToken),
	}, nil
}

// NewTokenClient creates a client authenticating with a personal access
// token. Installation ids passed to its methods are ignored.
func NewTokenClient(token string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		token:      token,
		instTokens: make(map[int64]installationToken),
	}
}

// do performs an authenticated request with retry on rate limits and server
// errors, decoding a JSON response into out when out is non-nil. A 404
// returns errNotFound.
func (c *Client) do(ctx context.Context, installationID int64, method, path string, body, out any) error {
	token, err := c.authToken(ctx, installationID)
	if err != nil {
		return err
	}

	apiURL := c.baseURL + path
	var respBody []byte
	err = retryWithBackoff(ctx, fmt.Sprintf("%s %s", method, path), func() error {
		var bodyReader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("marshal request body: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "token "+token)
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			// Retryable
			return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		case resp.StatusCode == http.StatusNotFound:
			return retryUnrecoverable(errNotFound)
		case resp.StatusCode >= 300:
			return retryUnrecoverable(fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))
		}

		respBody = data
		return nil
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ListChangedFiles lists the files changed in a pull request, in the order
// GitHub returns them.
func (c *Client) ListChangedFiles(ctx context.Context, installationID int64, owner, repo string, prNumber int) ([]models.ChangedFile, error) {
	var files []models.ChangedFile
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=100&page=%d", owner, repo, prNumber, page)

		var pageFiles []struct {
			Filename string `json:"filename"`
			Status   string `json:"status"`
		}
		if err := c.do(ctx, installationID, http.MethodGet, path, nil, &pageFiles); err != nil {
			return nil, fmt.Errorf("list pr files: %w", err)
		}

		for _, f := range pageFiles {
			files = append(files, models.ChangedFile{
				Path:   f.Filename,
				Status: models.FileStatus(f.Status),
			})
		}
		if len(pageFiles) < 100 {
			return files, nil
		}
	}
}

// FileContent fetches a file's raw content at a ref. It returns nil with no
// error when the path does not exist at that ref or is not a regular
// base64-encoded file (directories, symlinks, oversized blobs).
func (c *Client) FileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) ([]byte, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s",
		owner, repo, escapePath(path), url.QueryEscape(ref))

	var contents struct {
		Type     string `json:"type"`
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	err := c.do(ctx, installationID, http.MethodGet, apiPath, nil, &contents)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file content: %w", err)
	}

	if contents.Type != "file" || contents.Encoding != "base64" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contents.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode file content: %w", err)
	}
	return decoded, nil
}

// CreateReview posts a pull-request review with inline comments. event is
// one of COMMENT, APPROVE, or REQUEST_CHANGES.
func (c *Client) CreateReview(ctx context.Context, installationID int64, owner, repo string, prNumber int, commitSHA, event, summary string, comments []ReviewComment) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, prNumber)
	body := struct {
		CommitID string          `json:"commit_id"`
		Body     string          `json:"body"`
		Event    string          `json:"event"`
		Comments []ReviewComment `json:"comments,omitempty"`
	}{
		CommitID: commitSHA,
		Body:     summary,
		Event:    event,
		Comments: comments,
	}
	if err := c.do(ctx, installationID, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("create pr review: %w", err)
	}
	return nil
}

// escapePath escapes each segment of a repo-relative path, preserving the
// slashes GitHub's contents API expects.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
