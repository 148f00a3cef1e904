// Package rest serves the GitHub webhook endpoint and the local UI API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/inference"
	"github.com/clintrovert/tasksync/internal/issuesync"
	"github.com/clintrovert/tasksync/internal/metrics"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/internal/webhook"
	"github.com/clintrovert/tasksync/pkg/types"
)

const maxRequestBytes = 1 << 20

// Store is the part of the entity store the API reads and writes directly
type Store interface {
	GetWorkspace(ctx context.Context, id int64) (*types.Workspace, error)
	GetWorkspaceByRepo(ctx context.Context, owner, name string) (*types.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]types.Workspace, error)
	CreateFeature(ctx context.Context, f *types.Feature) error
	GetFeature(ctx context.Context, id int64) (*types.Feature, error)
	ListFeatures(ctx context.Context, workspaceID int64) ([]types.Feature, error)
	CreateTask(ctx context.Context, t *types.Task) error
	GetTask(ctx context.Context, id int64) (*types.Task, error)
	ListTasks(ctx context.Context, featureID int64) ([]types.Task, error)
	UpdateTask(ctx context.Context, t *types.Task) error
}

// Workspaces provisions workspaces
type Workspaces interface {
	Create(ctx context.Context, ws *types.Workspace) (*types.Workspace, error)
	RegisterWebhook(ctx context.Context, id int64) (*types.Workspace, error)
	Delete(ctx context.Context, id int64) error
	Bootstrap(ctx context.Context, id int64, source string) ([]types.Feature, error)
}

// Publisher publishes local features as GitHub issues
type Publisher interface {
	Publish(ctx context.Context, featureID int64) (*types.Feature, error)
}

// AsyncPublisher hands publishing to a durable workflow and returns its id
type AsyncPublisher interface {
	StartPublish(ctx context.Context, featureID int64) (string, error)
}

// BodySyncer pushes a feature's rendered body to its linked issue or pull request
type BodySyncer interface {
	PushBody(ctx context.Context, featureID int64) error
}

// Dispatcher applies webhook deliveries
type Dispatcher interface {
	Dispatch(ctx context.Context, delivery webhook.Delivery) (webhook.Result, error)
}

// Deps are the collaborators the handler serves requests with
type Deps struct {
	Store      Store
	Workspaces Workspaces
	Publisher  Publisher
	Syncer     BodySyncer
	Dispatcher Dispatcher
	Metrics    *metrics.Metrics

	// AsyncPublisher, when set, replaces Publisher for POST /features/{id}/publish
	AsyncPublisher AsyncPublisher
}

// Handler handles REST API requests
type Handler struct {
	store      Store
	workspaces Workspaces
	publisher  Publisher
	async      AsyncPublisher
	syncer     BodySyncer
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHandler creates a new REST handler
func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	return &Handler{
		store:      deps.Store,
		workspaces: deps.Workspaces,
		publisher:  deps.Publisher,
		async:      deps.AsyncPublisher,
		syncer:     deps.Syncer,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// CreateWorkspaceRequest represents a request to link a repository
type CreateWorkspaceRequest struct {
	Name        string `json:"name"`
	RepoOwner   string `json:"repo_owner"`
	RepoName    string `json:"repo_name"`
	GitHubToken string `json:"github_token"`
}

// BootstrapRequest carries the free text to draft features from; empty
// means summarize the repository instead
type BootstrapRequest struct {
	Source string `json:"source"`
}

// TaskRequest describes a task to create
type TaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// CreateFeatureRequest represents a request to create a local feature
type CreateFeatureRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Tasks       []TaskRequest `json:"tasks"`
}

// UpdateTaskRequest holds the task fields to change; nil fields are kept
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

// CreateWorkspace handles POST /workspaces
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkspaceRequest
	if !decode(w, r, &req) {
		return
	}

	req.RepoOwner = strings.TrimSpace(req.RepoOwner)
	req.RepoName = strings.TrimSpace(req.RepoName)
	if req.RepoOwner == "" || req.RepoName == "" {
		writeError(w, http.StatusBadRequest, "repo_owner and repo_name are required")
		return
	}

	if _, err := h.store.GetWorkspaceByRepo(r.Context(), req.RepoOwner, req.RepoName); err == nil {
		writeError(w, http.StatusConflict, "workspace already exists for this repository")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.fail(w, err, "failed to look up workspace")
		return
	}

	ws, err := h.workspaces.Create(r.Context(), &types.Workspace{
		Name:        strings.TrimSpace(req.Name),
		RepoOwner:   req.RepoOwner,
		RepoName:    req.RepoName,
		GitHubToken: req.GitHubToken,
	})
	if err != nil {
		h.fail(w, err, "failed to create workspace")
		return
	}

	writeJSON(w, http.StatusCreated, newWorkspaceResponse(ws, nil))
}

// ListWorkspaces handles GET /workspaces
func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.store.ListWorkspaces(r.Context())
	if err != nil {
		h.fail(w, err, "failed to list workspaces")
		return
	}

	resp := make([]workspaceResponse, 0, len(workspaces))
	for i := range workspaces {
		resp = append(resp, newWorkspaceResponse(&workspaces[i], nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetWorkspace handles GET /workspaces/{id}
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.store.GetWorkspace(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to get workspace")
		return
	}

	features, err := h.store.ListFeatures(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to list features")
		return
	}

	writeJSON(w, http.StatusOK, newWorkspaceResponse(ws, features))
}

// DeleteWorkspace handles DELETE /workspaces/{id}
func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.workspaces.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "failed to delete workspace")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterWebhook handles POST /workspaces/{id}/webhook
func (h *Handler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.workspaces.RegisterWebhook(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to register webhook")
		return
	}

	writeJSON(w, http.StatusOK, newWorkspaceResponse(ws, nil))
}

// Bootstrap handles POST /workspaces/{id}/bootstrap
func (h *Handler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req BootstrapRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	features, err := h.workspaces.Bootstrap(r.Context(), id, req.Source)
	if err != nil {
		h.fail(w, err, "failed to bootstrap workspace")
		return
	}

	resp := make([]featureResponse, 0, len(features))
	for i := range features {
		tasks, err := h.store.ListTasks(r.Context(), features[i].ID)
		if err != nil {
			h.fail(w, err, "failed to list tasks")
			return
		}
		resp = append(resp, newFeatureResponse(&features[i], tasks))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// CreateFeature handles POST /workspaces/{id}/features
func (h *Handler) CreateFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req CreateFeatureRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	for _, t := range req.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			writeError(w, http.StatusBadRequest, "task title is required")
			return
		}
	}

	if _, err := h.store.GetWorkspace(r.Context(), id); err != nil {
		h.fail(w, err, "failed to get workspace")
		return
	}

	feature := &types.Feature{
		WorkspaceID: id,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Type:        types.FeatureTypeLocal,
		State:       types.FeatureStateOpen,
	}
	if err := h.store.CreateFeature(r.Context(), feature); err != nil {
		h.fail(w, err, "failed to create feature")
		return
	}

	tasks := make([]types.Task, 0, len(req.Tasks))
	for _, tr := range req.Tasks {
		task := newTask(feature.ID, tr)
		if err := h.store.CreateTask(r.Context(), task); err != nil {
			h.fail(w, err, "failed to create task")
			return
		}
		tasks = append(tasks, *task)
	}

	writeJSON(w, http.StatusCreated, newFeatureResponse(feature, tasks))
}

// GetFeature handles GET /features/{id}
func (h *Handler) GetFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	feature, err := h.store.GetFeature(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to get feature")
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, newFeatureResponse(feature, tasks))
}

// PublishFeature handles POST /features/{id}/publish
func (h *Handler) PublishFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if h.async != nil {
		h.startPublish(w, r, id)
		return
	}

	feature, err := h.publisher.Publish(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to publish feature")
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, newFeatureResponse(feature, tasks))
}

// startPublish rejects features that cannot be published before handing the
// rest to the publish workflow
func (h *Handler) startPublish(w http.ResponseWriter, r *http.Request, id int64) {
	feature, err := h.store.GetFeature(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to get feature")
		return
	}
	if feature.Linked() {
		h.fail(w, fmt.Errorf("feature %d: %w", id, issuesync.ErrAlreadyLinked), "failed to publish feature")
		return
	}

	workflowID, err := h.async.StartPublish(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to start publish workflow")
		return
	}

	writeJSON(w, http.StatusAccepted, StartWorkflowResponse{
		WorkflowID: workflowID,
		Status:     "started",
	})
}

// CreateTask handles POST /features/{id}/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req TaskRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if _, err := h.store.GetFeature(r.Context(), id); err != nil {
		h.fail(w, err, "failed to get feature")
		return
	}

	task := newTask(id, req)
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		h.fail(w, err, "failed to create task")
		return
	}

	h.pushBody(r.Context(), id)
	writeJSON(w, http.StatusCreated, newTaskResponse(task))
}

// UpdateTask handles PATCH /tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to get task")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		status := types.TaskStatus(*req.Status)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		task.Status = status
	}
	if req.Priority != nil {
		task.Priority = types.ParseTaskPriority(strings.ToLower(*req.Priority))
	}

	if err := h.store.UpdateTask(r.Context(), task); err != nil {
		h.fail(w, err, "failed to update task")
		return
	}

	h.pushBody(r.Context(), task.FeatureID)
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

// RegisterRoutes registers REST API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/workspaces", h.CreateWorkspace)
	r.Get("/workspaces", h.ListWorkspaces)
	r.Get("/workspaces/{id}", h.GetWorkspace)
	r.Delete("/workspaces/{id}", h.DeleteWorkspace)
	r.Post("/workspaces/{id}/webhook", h.RegisterWebhook)
	r.Post("/workspaces/{id}/bootstrap", h.Bootstrap)
	r.Post("/workspaces/{id}/features", h.CreateFeature)

	r.Get("/features/{id}", h.GetFeature)
	r.Post("/features/{id}/publish", h.PublishFeature)
	r.Post("/features/{id}/tasks", h.CreateTask)

	r.Patch("/tasks/{id}", h.UpdateTask)
}

// pushBody mirrors a task change to GitHub. The local change is already
// stored, so failures are only logged.
func (h *Handler) pushBody(ctx context.Context, featureID int64) {
	if h.syncer == nil {
		return
	}
	if err := h.syncer.PushBody(ctx, featureID); err != nil {
		h.logger.Warn("failed to push feature body",
			zap.Int64("feature_id", featureID),
			zap.Error(err),
		)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidTitle):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, issuesync.ErrAlreadyLinked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ghclient.ErrNoToken):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, inference.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func newTask(featureID int64, req TaskRequest) *types.Task {
	return &types.Task{
		FeatureID:   featureID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      types.TaskStatusTodo,
		Priority:    types.ParseTaskPriority(strings.ToLower(req.Priority)),
	}
}

func urlID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
