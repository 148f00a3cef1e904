package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const completionSystemPrompt = "You are an assistant that analyzes git commit messages and pull requests to detect task completion."

// CompletedTasks asks the model which of openTasks the snippets (commit
// messages, or a pull request title and body) complete. Only titles present
// in openTasks are ever returned.
func (c *Client) CompletedTasks(ctx context.Context, snippets, openTasks []string) ([]string, error) {
	if len(snippets) == 0 || len(openTasks) == 0 {
		return nil, nil
	}

	prompt, err := buildCompletionPrompt(snippets, openTasks)
	if err != nil {
		return nil, err
	}

	reply, err := c.complete(ctx, completionSystemPrompt, prompt, 0)
	if err != nil {
		return nil, err
	}

	titles, err := parseTitles(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	completed := FilterTitles(titles, openTasks)
	c.logger.Info("inferred completed tasks",
		zap.Int("open_tasks", len(openTasks)),
		zap.Int("suggested", len(titles)),
		zap.Int("completed", len(completed)),
	)

	return completed, nil
}

func buildCompletionPrompt(snippets, openTasks []string) (string, error) {
	tasksJSON, err := json.Marshal(openTasks)
	if err != nil {
		return "", fmt.Errorf("failed to encode open tasks: %w", err)
	}
	snippetsJSON, err := json.Marshal(snippets)
	if err != nil {
		return "", fmt.Errorf("failed to encode snippets: %w", err)
	}

	var sb strings.Builder

	sb.WriteString("Open tasks:\n")
	sb.Write(tasksJSON)
	sb.WriteString("\n\nCommit messages:\n")
	sb.Write(snippetsJSON)
	sb.WriteString("\n\n")
	sb.WriteString("Return a JSON array of task titles (from the open tasks list) that these commits indicate are completed. ")
	sb.WriteString("Only include tasks you are confident were addressed. ")
	sb.WriteString("Return an empty array if none match. Respond with ONLY the JSON array, no other text.")

	return sb.String(), nil
}

// parseTitles reads a JSON array of strings, tolerating a markdown code fence
// around it. Non-string elements are dropped.
func parseTitles(reply string) ([]string, error) {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		if idx := strings.LastIndex(text, "```"); idx != -1 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var raw []any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			titles = append(titles, s)
		}
	}
	return titles, nil
}

// FilterTitles keeps the titles that appear in allowed, without duplicates,
// in the order they were suggested
func FilterTitles(titles, allowed []string) []string {
	known := make(map[string]bool, len(allowed))
	for _, title := range allowed {
		known[title] = true
	}

	seen := make(map[string]bool, len(titles))
	filtered := make([]string, 0, len(titles))
	for _, title := range titles {
		if !known[title] || seen[title] {
			continue
		}
		seen[title] = true
		filtered = append(filtered, title)
	}
	return filtered
}
