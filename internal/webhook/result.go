package webhook

import (
	"encoding/json"
)

// Status is the outcome reported back to GitHub
type Status string

const (
	StatusProcessed           Status = "processed"
	StatusIgnored             Status = "ignored"
	StatusNoMatchingWorkspace Status = "no_matching_workspace"
	StatusPRNotFound          Status = "pr_not_found"
	StatusFeatureNotFound     Status = "feature_not_found"
	StatusIgnoredIssueComment Status = "ignored_issue_comment"
)

// Fields are the handler-specific values of a result
type Fields map[string]any

// Result is the normalized response to a delivery
type Result struct {
	Status Status
	Fields Fields
}

func processed(fields Fields) Result {
	return Result{Status: StatusProcessed, Fields: fields}
}

// MarshalJSON flattens Fields next to status
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["status"] = r.Status
	return json.Marshal(out)
}
