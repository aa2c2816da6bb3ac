package webhook

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
	"action": "opened",
	"pull_request": {"number": 7, "head": {"sha": "abc123"}},
	"repository": {"id": 123456, "name": "widgets", "full_name": "acme/widgets", "owner": {"login": "acme"}},
	"installation": {"id": 42}
}`

func TestParsePullRequestEvent_Valid(t *testing.T) {
	event, err := ParsePullRequestEvent([]byte(validPayload))
	require.NoError(t, err)

	assert.Equal(t, "pull_request", event.Event)
	assert.Equal(t, "opened", event.Action)
	assert.Equal(t, "123456", event.RepoGitHubID)
	assert.Equal(t, "acme", event.RepoOwner)
	assert.Equal(t, "widgets", event.RepoName)
	assert.Equal(t, "acme/widgets", event.RepoFullName)
	assert.Equal(t, 7, event.PullRequestNumber)
	assert.Equal(t, "abc123", event.HeadSHA)
	assert.Equal(t, int64(42), event.InstallationID)
}

func TestParsePullRequestEvent_MissingKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no pull_request", `{"action":"opened","repository":{"id":1,"owner":{"login":"a"}},"installation":{"id":1}}`},
		{"no head sha", `{"action":"opened","pull_request":{"number":1},"repository":{"id":1,"owner":{"login":"a"}},"installation":{"id":1}}`},
		{"no repository", `{"action":"opened","pull_request":{"number":1,"head":{"sha":"x"}},"installation":{"id":1}}`},
		{"no owner login", `{"action":"opened","pull_request":{"number":1,"head":{"sha":"x"}},"repository":{"id":1},"installation":{"id":1}}`},
		{"no installation", `{"action":"opened","pull_request":{"number":1,"head":{"sha":"x"}},"repository":{"id":1,"owner":{"login":"a"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePullRequestEvent([]byte(tt.body))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParsePullRequestEvent_InvalidJSON(t *testing.T) {
	_, err := ParsePullRequestEvent([]byte("{not json"))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestActionable(t *testing.T) {
	tests := []struct {
		event  string
		action string
		want   bool
	}{
		{"pull_request", "opened", true},
		{"pull_request", "synchronize", true},
		{"pull_request", "closed", false},
		{"pull_request", "labeled", false},
		{"push", "opened", false},
		{"issues", "opened", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.event, tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Actionable(tt.event, tt.action))
		})
	}
}
