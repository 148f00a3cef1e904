package types

import (
	"time"
)

// PullRequestState is the mirrored state of a pull request
type PullRequestState string

const (
	PullRequestStateOpen   PullRequestState = "open"
	PullRequestStateClosed PullRequestState = "closed"
	PullRequestStateMerged PullRequestState = "merged"
)

// ReviewState is the mirrored state of a pull request review
type ReviewState string

const (
	ReviewStatePending          ReviewState = "pending"
	ReviewStateApproved         ReviewState = "approved"
	ReviewStateChangesRequested ReviewState = "changes_requested"
	ReviewStateCommented        ReviewState = "commented"
	ReviewStateDismissed        ReviewState = "dismissed"
)

// CommentType separates conversation comments from review comments, which
// share an id space per pull request
type CommentType string

const (
	CommentTypeIssue  CommentType = "issue"
	CommentTypeReview CommentType = "review"
)

// Label mirrors a repository label
type Label struct {
	ID          int64
	WorkspaceID int64
	GitHubID    int64
	Name        string
	Color       string
	Description string
	UpdatedAt   time.Time
}

// Milestone mirrors a repository milestone
type Milestone struct {
	ID          int64
	WorkspaceID int64
	GitHubID    int64
	Number      int
	Title       string
	Description string
	State       string
	DueOn       *time.Time
	HTMLURL     string
	UpdatedAt   time.Time
}

// PullRequest mirrors a GitHub pull request
type PullRequest struct {
	ID                 int64
	WorkspaceID        int64
	GitHubID           int64
	Number             int
	Title              string
	Body               string
	State              PullRequestState
	HTMLURL            string
	DiffURL            string
	AuthorLogin        string
	AuthorAvatarURL    string
	HeadRef            string
	HeadSHA            string
	BaseRef            string
	BaseSHA            string
	RequestedReviewers []string
	LabelIDs           []int64
	MilestoneID        *int64
	TaskID             *int64
	MergedAt           *time.Time
	MergeCommitSHA     string
	CommitsCount       int
	Additions          int
	Deletions          int
	ChangedFiles       int
	GitHubCreatedAt    *time.Time
	GitHubUpdatedAt    *time.Time
	GitHubClosedAt     *time.Time
}

// Commit mirrors a pushed commit; SHA is globally unique
type Commit struct {
	ID            int64
	WorkspaceID   int64
	PullRequestID *int64
	SHA           string
	Message       string
	AuthorLogin   string
	AuthorName    string
	AuthorEmail   string
	URL           string
	Branch        string
	AddedFiles    []string
	ModifiedFiles []string
	RemovedFiles  []string
	Timestamp     *time.Time
}

// Review mirrors a pull request review
type Review struct {
	ID                int64
	PullRequestID     int64
	GitHubID          int64
	ReviewerLogin     string
	ReviewerAvatarURL string
	State             ReviewState
	Body              string
	HTMLURL           string
	CommitSHA         string
	SubmittedAt       *time.Time
}

// Comment mirrors either a conversation comment or a review comment on a pull request.
// ReviewID is nil for conversation comments.
type Comment struct {
	ID              int64
	PullRequestID   int64
	ReviewID        *int64
	GitHubID        int64
	Type            CommentType
	AuthorLogin     string
	AuthorAvatarURL string
	Body            string
	HTMLURL         string
	DiffHunk        string
	Path            string
	Position        *int
	CommitSHA       string
	GitHubCreatedAt *time.Time
	GitHubUpdatedAt *time.Time
}
