package rest

import (
	"time"

	"github.com/clintrovert/tasksync/pkg/types"
)

// StartWorkflowResponse represents the response from starting a workflow
type StartWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

type workspaceResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	RepoOwner string            `json:"repo_owner"`
	RepoName  string            `json:"repo_name"`
	RepoURL   string            `json:"repo_url,omitempty"`
	WebhookID string            `json:"webhook_id,omitempty"`
	HasToken  bool              `json:"has_token"`
	Features  []featureResponse `json:"features,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type featureResponse struct {
	ID           int64          `json:"id"`
	WorkspaceID  int64          `json:"workspace_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Type         string         `json:"type"`
	State        string         `json:"state"`
	GitHubNumber int            `json:"github_number,omitempty"`
	HTMLURL      string         `json:"html_url,omitempty"`
	Tasks        []taskResponse `json:"tasks,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type taskResponse struct {
	ID                int64  `json:"id"`
	FeatureID         int64  `json:"feature_id"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	Status            string `json:"status"`
	Priority          string `json:"priority"`
	CheckboxIndex     *int   `json:"checkbox_index,omitempty"`
	CompletedByCommit string `json:"completed_by_commit,omitempty"`
}

// newWorkspaceResponse never exposes the token itself
func newWorkspaceResponse(ws *types.Workspace, features []types.Feature) workspaceResponse {
	resp := workspaceResponse{
		ID:        ws.ID,
		Name:      ws.Name,
		RepoOwner: ws.RepoOwner,
		RepoName:  ws.RepoName,
		RepoURL:   ws.RepoURL,
		WebhookID: ws.WebhookID,
		HasToken:  ws.GitHubToken != "",
		CreatedAt: ws.CreatedAt,
	}
	for i := range features {
		resp.Features = append(resp.Features, newFeatureResponse(&features[i], nil))
	}
	return resp
}

func newFeatureResponse(f *types.Feature, tasks []types.Task) featureResponse {
	resp := featureResponse{
		ID:           f.ID,
		WorkspaceID:  f.WorkspaceID,
		Name:         f.Name,
		Description:  f.Description,
		Type:         string(f.Type),
		State:        string(f.State),
		GitHubNumber: f.GitHubNumber,
		HTMLURL:      f.HTMLURL,
		UpdatedAt:    f.UpdatedAt,
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, newTaskResponse(&tasks[i]))
	}
	return resp
}

func newTaskResponse(t *types.Task) taskResponse {
	return taskResponse{
		ID:                t.ID,
		FeatureID:         t.FeatureID,
		Title:             t.Title,
		Description:       t.Description,
		Status:            string(t.Status),
		Priority:          string(t.Priority),
		CheckboxIndex:     t.CheckboxIndex,
		CompletedByCommit: t.CompletedByCommit,
	}
}
