package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/joescharf/revu/internal/models"
)

// ErrMalformedPayload is returned when a payload is not valid JSON or is
// missing keys required for dispatch.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// pullRequestPayload mirrors the subset of GitHub's pull_request event body
// that dispatch needs. Pointer fields distinguish missing keys from zero
// values.
type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest *struct {
		Number int `json:"number"`
		Head   *struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository *struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Owner    *struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Installation *struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

// ParsePullRequestEvent validates a pull_request event body and extracts the
// fields the pipeline needs. Required keys that are absent yield
// ErrMalformedPayload.
func ParsePullRequestEvent(body []byte) (*models.WebhookEvent, error) {
	var payload pullRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch {
	case payload.PullRequest == nil:
		return nil, fmt.Errorf("%w: missing pull_request", ErrMalformedPayload)
	case payload.PullRequest.Head == nil || payload.PullRequest.Head.SHA == "":
		return nil, fmt.Errorf("%w: missing pull_request.head.sha", ErrMalformedPayload)
	case payload.Repository == nil:
		return nil, fmt.Errorf("%w: missing repository", ErrMalformedPayload)
	case payload.Repository.Owner == nil || payload.Repository.Owner.Login == "":
		return nil, fmt.Errorf("%w: missing repository.owner.login", ErrMalformedPayload)
	case payload.Installation == nil:
		return nil, fmt.Errorf("%w: missing installation", ErrMalformedPayload)
	}

	return &models.WebhookEvent{
		Event:             "pull_request",
		Action:            payload.Action,
		RepoGitHubID:      strconv.FormatInt(payload.Repository.ID, 10),
		RepoOwner:         payload.Repository.Owner.Login,
		RepoName:          payload.Repository.Name,
		RepoFullName:      payload.Repository.FullName,
		PullRequestNumber: payload.PullRequest.Number,
		HeadSHA:           payload.PullRequest.Head.SHA,
		InstallationID:    payload.Installation.ID,
	}, nil
}

// Actionable reports whether an event should trigger a review run. Only
// pull_request events with action opened or synchronize do; everything else
// is acknowledged without downstream work.
func Actionable(event, action string) bool {
	if event != "pull_request" {
		return false
	}
	return action == "opened" || action == "synchronize"
}
