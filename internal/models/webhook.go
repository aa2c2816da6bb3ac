package models

// FileStatus is the change status of a file in a pull-request diff.
type FileStatus string

const (
	FileStatusAdded    FileStatus = "added"
	FileStatusModified FileStatus = "modified"
	FileStatusRemoved  FileStatus = "removed"
)

// ChangedFile is one file in a pull-request diff.
type ChangedFile struct {
	Path   string
	Status FileStatus
}

// WebhookEvent is the parsed, validated form of an inbound GitHub webhook.
// It is constructed once at the HTTP boundary; downstream code never
// re-parses raw JSON.
type WebhookEvent struct {
	Event             string // X-GitHub-Event header value
	Action            string
	RepoGitHubID      string
	RepoOwner         string
	RepoName          string
	RepoFullName      string
	PullRequestNumber int
	HeadSHA           string
	InstallationID    int64
}
