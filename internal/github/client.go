package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/clintrovert/tasksync/pkg/types"
)

// ErrNoToken is returned when a workspace has no credentials to call GitHub with
var ErrNoToken = errors.New("workspace has no github token")

// WebhookEvents are the event types a registered webhook subscribes to
var WebhookEvents = []string{
	"push",
	"pull_request",
	"pull_request_review",
	"pull_request_review_comment",
	"issue_comment",
	"issues",
	"create",
	"delete",
	"label",
	"milestone",
}

const acceptHeader = "application/vnd.github+json"

// Config configures the GitHub REST client
type Config struct {
	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests)
	BaseURL string
	Timeout time.Duration
}

// Client issues authenticated GitHub REST calls on behalf of a workspace
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	logger  *zap.Logger
}

// Issue is the part of a created issue the caller keeps
type Issue struct {
	ID      int64
	Number  int
	HTMLURL string
}

// Repository is the repository metadata the caller keeps
type Repository struct {
	HTMLURL       string
	DefaultBranch string
	Description   string
}

// NewClient creates a new GitHub client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	c := &Client{
		timeout: cfg.Timeout,
		logger:  logger,
	}

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("failed to parse github base url: %w", err)
		}
		c.baseURL = u
	}

	return c, nil
}

// apiClient builds a go-github client authenticated with the workspace token
func (c *Client) apiClient(ws *types.Workspace) (*github.Client, error) {
	if ws.GitHubToken == "" {
		return nil, ErrNoToken
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: ws.GitHubToken},
	)
	hc := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   acceptTransport{base: http.DefaultTransport},
		},
	}

	apiClient := github.NewClient(hc)
	if c.baseURL != nil {
		apiClient.BaseURL = c.baseURL
	}
	return apiClient, nil
}

// CreateIssue creates an issue in the workspace repository
func (c *Client) CreateIssue(ctx context.Context, ws *types.Workspace, title, body string) (*Issue, error) {
	apiClient, err := c.apiClient(ws)
	if err != nil {
		return nil, err
	}

	issue, _, err := apiClient.Issues.Create(ctx, ws.RepoOwner, ws.RepoName, &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	c.logger.Info("created issue",
		zap.String("repository", ws.FullName()),
		zap.Int("issue_number", issue.GetNumber()),
	)

	return &Issue{
		ID:      issue.GetID(),
		Number:  issue.GetNumber(),
		HTMLURL: issue.GetHTMLURL(),
	}, nil
}

// UpdateIssueBody replaces the body of an issue. Pull requests share the
// issues endpoint, so this also updates pull request descriptions.
func (c *Client) UpdateIssueBody(ctx context.Context, ws *types.Workspace, number int, body string) error {
	apiClient, err := c.apiClient(ws)
	if err != nil {
		return err
	}

	_, _, err = apiClient.Issues.Edit(ctx, ws.RepoOwner, ws.RepoName, number, &github.IssueRequest{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to update issue body: %w", err)
	}

	c.logger.Info("updated issue body",
		zap.String("repository", ws.FullName()),
		zap.Int("issue_number", number),
	)

	return nil
}

// RegisterWebhook subscribes webhookURL to the workspace repository's events
// and returns the new hook id. An existing hook on the workspace is removed
// first so re-registration never leaves duplicates behind.
func (c *Client) RegisterWebhook(ctx context.Context, ws *types.Workspace, webhookURL, secret string) (string, error) {
	apiClient, err := c.apiClient(ws)
	if err != nil {
		return "", err
	}

	if ws.WebhookID != "" {
		if err := c.UnregisterWebhook(ctx, ws); err != nil {
			c.logger.Warn("failed to remove previous webhook",
				zap.String("repository", ws.FullName()),
				zap.String("webhook_id", ws.WebhookID),
				zap.Error(err),
			)
		}
	}

	hook, _, err := apiClient.Repositories.CreateHook(ctx, ws.RepoOwner, ws.RepoName, &github.Hook{
		Events: WebhookEvents,
		Active: github.Bool(true),
		Config: map[string]interface{}{
			"url":          webhookURL,
			"content_type": "json",
			"secret":       secret,
			"insecure_ssl": "0",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to register webhook: %w", err)
	}

	hookID := strconv.FormatInt(hook.GetID(), 10)
	c.logger.Info("registered webhook",
		zap.String("repository", ws.FullName()),
		zap.String("webhook_id", hookID),
	)

	return hookID, nil
}

// UnregisterWebhook deletes the workspace's webhook. A hook GitHub no longer
// knows about counts as removed.
func (c *Client) UnregisterWebhook(ctx context.Context, ws *types.Workspace) error {
	if ws.WebhookID == "" {
		return nil
	}

	apiClient, err := c.apiClient(ws)
	if err != nil {
		return err
	}

	hookID, err := strconv.ParseInt(ws.WebhookID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid webhook id %q: %w", ws.WebhookID, err)
	}

	resp, err := apiClient.Repositories.DeleteHook(ctx, ws.RepoOwner, ws.RepoName, hookID)
	if err != nil && (resp == nil || resp.StatusCode != http.StatusNotFound) {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	c.logger.Info("unregistered webhook",
		zap.String("repository", ws.FullName()),
		zap.String("webhook_id", ws.WebhookID),
	)

	return nil
}

// GetRepository fetches repository metadata
func (c *Client) GetRepository(ctx context.Context, ws *types.Workspace) (*Repository, error) {
	apiClient, err := c.apiClient(ws)
	if err != nil {
		return nil, err
	}

	repo, _, err := apiClient.Repositories.Get(ctx, ws.RepoOwner, ws.RepoName)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	return &Repository{
		HTMLURL:       repo.GetHTMLURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		Description:   repo.GetDescription(),
	}, nil
}

// acceptTransport pins the Accept header to the current GitHub media type
type acceptTransport struct {
	base http.RoundTripper
}

func (t acceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", acceptHeader)
	return t.base.RoundTrip(r)
}
