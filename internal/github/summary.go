package github

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/pkg/types"
)

const (
	summaryReadmeLimit   = 2000
	summaryLanguageLimit = 300
	summaryManifestLimit = 500
)

// summaryManifests are tried in order; the first one found is included
var summaryManifests = []string{"package.json", "requirements.txt", "Cargo.toml", "go.mod", "pyproject.toml"}

// FetchRepoSummary condenses the README, language breakdown, and first
// dependency manifest of the workspace repository into prompt context.
// Sections that cannot be fetched are skipped; an empty string means nothing
// could be fetched.
func (c *Client) FetchRepoSummary(ctx context.Context, ws *types.Workspace) (string, error) {
	apiClient, err := c.apiClient(ws)
	if err != nil {
		return "", err
	}

	var parts []string

	readme, _, err := apiClient.Repositories.GetReadme(ctx, ws.RepoOwner, ws.RepoName, nil)
	if err != nil {
		c.logger.Warn("failed to fetch readme", zap.String("repository", ws.FullName()), zap.Error(err))
	} else if content, err := readme.GetContent(); err == nil {
		parts = append(parts, "## README\n"+truncateString(content, summaryReadmeLimit))
	}

	languages, _, err := apiClient.Repositories.ListLanguages(ctx, ws.RepoOwner, ws.RepoName)
	if err != nil {
		c.logger.Warn("failed to fetch languages", zap.String("repository", ws.FullName()), zap.Error(err))
	} else if len(languages) > 0 {
		parts = append(parts, "## Languages\n"+truncateString(formatLanguages(languages), summaryLanguageLimit))
	}

	for _, manifest := range summaryManifests {
		file, _, _, err := apiClient.Repositories.GetContents(ctx, ws.RepoOwner, ws.RepoName, manifest, nil)
		if err != nil || file == nil {
			continue
		}
		content, err := file.GetContent()
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n%s", manifest, truncateString(content, summaryManifestLimit)))
		break
	}

	return strings.Join(parts, "\n\n"), nil
}

// formatLanguages lists languages by byte count, largest first
func formatLanguages(languages map[string]int) string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if languages[names[i]] != languages[names[j]] {
			return languages[names[i]] > languages[names[j]]
		}
		return names[i] < names[j]
	})

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s: %d", name, languages[name]))
	}
	return strings.Join(pairs, ", ")
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
