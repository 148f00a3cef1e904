package types

import (
	"time"
)

// FeatureType tells whether a feature mirrors a GitHub issue, a pull request, or nothing
type FeatureType string

const (
	FeatureTypeIssue       FeatureType = "issue"
	FeatureTypePullRequest FeatureType = "pull_request"
	FeatureTypeLocal       FeatureType = "local"
)

// FeatureState is the open/closed state of a feature
type FeatureState string

const (
	FeatureStateOpen   FeatureState = "open"
	FeatureStateClosed FeatureState = "closed"
)

// TaskStatus is the progress state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority is the priority of a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// ParseTaskPriority maps free text to a priority, defaulting to medium
func ParseTaskPriority(s string) TaskPriority {
	switch TaskPriority(s) {
	case TaskPriorityLow, TaskPriorityHigh:
		return TaskPriority(s)
	}
	return TaskPriorityMedium
}

// Feature is a unit of work, optionally mirroring a GitHub issue or pull request.
// GitHubNumber and GitHubID are zero for local features.
type Feature struct {
	ID           int64
	WorkspaceID  int64
	Name         string
	Description  string
	Type         FeatureType
	State        FeatureState
	GitHubNumber int
	GitHubID     int64
	HTMLURL      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Linked reports whether the feature has a GitHub counterpart
func (f *Feature) Linked() bool {
	return f.Type != FeatureTypeLocal && f.GitHubNumber != 0
}

// Task belongs to a feature. CheckboxIndex is the position of the task's
// checkbox line in the feature's rendered body, nil until assigned.
type Task struct {
	ID                int64
	FeatureID         int64
	Title             string
	Description       string
	Status            TaskStatus
	Priority          TaskPriority
	CheckboxIndex     *int
	CompletedByCommit string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
