package inference

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/pkg/types"
)

const plannerSystemPrompt = "You are an expert engineering lead that breaks project descriptions into features and concrete tasks."

// FeatureDraft is a feature proposed by the model
type FeatureDraft struct {
	Name        string
	Description string
	Tasks       []TaskDraft
}

// TaskDraft is a task proposed by the model
type TaskDraft struct {
	Title    string
	Priority types.TaskPriority
}

// DraftFeatures asks the model to break free text or a repository summary
// into features with prioritized tasks
func (c *Client) DraftFeatures(ctx context.Context, source string) ([]FeatureDraft, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}

	reply, err := c.complete(ctx, plannerSystemPrompt, buildPlannerPrompt(source), 0.7)
	if err != nil {
		return nil, err
	}

	drafts := parsePlannerResponse(reply)
	if len(drafts) == 0 {
		return nil, fmt.Errorf("model returned no features")
	}

	c.logger.Info("drafted features", zap.Int("features", len(drafts)))

	return drafts, nil
}

func buildPlannerPrompt(source string) string {
	var sb strings.Builder

	sb.WriteString("Break the following project context into features and tasks:\n\n")
	sb.WriteString(source)
	sb.WriteString("\n\n")

	sb.WriteString("For every feature provide a short name, a one-sentence description, and the tasks needed to finish it.\n")
	sb.WriteString("Each task title must fit on one line.\n\n")

	sb.WriteString("Format your response as:\n")
	sb.WriteString("FEATURE: <name>\n")
	sb.WriteString("DESCRIPTION: <description>\n")
	sb.WriteString("TASKS:\n")
	sb.WriteString("1. <task title> [PRIORITY: low|medium|high]\n")
	sb.WriteString("2. ...\n")
	sb.WriteString("Repeat the block for each feature.\n")

	return sb.String()
}

func parsePlannerResponse(response string) []FeatureDraft {
	var (
		drafts  []FeatureDraft
		current *FeatureDraft
		inTasks bool
	)

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "FEATURE:"):
			drafts = append(drafts, FeatureDraft{
				Name: strings.TrimSpace(strings.TrimPrefix(line, "FEATURE:")),
			})
			current = &drafts[len(drafts)-1]
			inTasks = false
		case current == nil:
			continue
		case strings.HasPrefix(line, "DESCRIPTION:"):
			current.Description = strings.TrimSpace(strings.TrimPrefix(line, "DESCRIPTION:"))
		case strings.HasPrefix(line, "TASKS:"):
			inTasks = true
		case inTasks:
			if task, ok := parseTaskLine(line); ok {
				current.Tasks = append(current.Tasks, task)
			}
		}
	}

	kept := drafts[:0]
	for _, d := range drafts {
		if d.Name != "" {
			kept = append(kept, d)
		}
	}
	return kept
}

// parseTaskLine parses "1. Title [PRIORITY: high]" or "- Title"
func parseTaskLine(line string) (TaskDraft, bool) {
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, ". "); idx != -1 && isDigits(line[:idx]) {
		line = strings.TrimSpace(line[idx+2:])
	} else {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*"))
	}

	priority := types.TaskPriorityMedium
	if idx := strings.Index(line, "[PRIORITY:"); idx != -1 {
		tail := line[idx:]
		if endIdx := strings.Index(tail, "]"); endIdx != -1 {
			value := strings.TrimSpace(strings.TrimPrefix(tail[:endIdx], "[PRIORITY:"))
			priority = types.ParseTaskPriority(strings.ToLower(value))
			line = strings.TrimSpace(line[:idx])
		}
	}

	if line == "" {
		return TaskDraft{}, false
	}
	return TaskDraft{Title: line, Priority: priority}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
