package types

import (
	"time"
)

// Workspace links the local project model to one GitHub repository
type Workspace struct {
	ID          int64
	Name        string
	RepoOwner   string
	RepoName    string
	RepoURL     string
	GitHubToken string
	WebhookID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName returns the repository in owner/name form
func (w *Workspace) FullName() string {
	return w.RepoOwner + "/" + w.RepoName
}
