// Package checkbox implements the markdown task-list protocol used to keep a
// Feature's tasks in step with the body of its GitHub issue or pull request.
package checkbox

import (
	"regexp"
	"sort"
	"strings"

	"github.com/clintrovert/tasksync/pkg/types"
)

// linePattern is the wire grammar of one checkbox line
var linePattern = regexp.MustCompile(`^\s*-\s\[([ xX])\]\s(.+)$`)

// Item is one parsed checkbox line
type Item struct {
	Title   string
	Checked bool
}

// Parse extracts checkbox items from a body in source line order. Lines that
// are not checkbox lines are ignored.
func Parse(body string) []Item {
	if body == "" {
		return nil
	}

	var items []Item
	for _, line := range strings.Split(body, "\n") {
		m := linePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}
		items = append(items, Item{
			Title:   title,
			Checked: m[1] != " ",
		})
	}
	return items
}

// Render produces one checkbox line per task, in checkbox order. Parse gives
// the tasks back only for single-line titles without surrounding whitespace,
// which is what the store accepts.
func Render(tasks []types.Task) string {
	ordered := Ordered(tasks)

	lines := make([]string, 0, len(ordered))
	for _, task := range ordered {
		mark := " "
		if task.Status == types.TaskStatusDone {
			mark = "x"
		}
		lines = append(lines, "- ["+mark+"] "+strings.TrimSpace(task.Title))
	}
	return strings.Join(lines, "\n")
}

// RenderBody renders the full issue body for a feature: the description with
// any checkbox lines removed, a blank line, then the task list.
func RenderBody(description string, tasks []types.Task) string {
	var sb strings.Builder

	desc := strings.TrimSpace(StripItems(description))
	if desc != "" {
		sb.WriteString(desc)
		if len(tasks) > 0 {
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(Render(tasks))

	return sb.String()
}

// StripItems removes checkbox lines from text, leaving the prose
func StripItems(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if linePattern.MatchString(strings.TrimRight(line, "\r")) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\r\n\t ")
}

// Ordered returns a copy of tasks sorted by checkbox index, with unindexed
// tasks last in creation order
func Ordered(tasks []types.Task) []types.Task {
	ordered := make([]types.Task, len(tasks))
	copy(ordered, tasks)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.CheckboxIndex != nil && b.CheckboxIndex != nil:
			if *a.CheckboxIndex != *b.CheckboxIndex {
				return *a.CheckboxIndex < *b.CheckboxIndex
			}
		case a.CheckboxIndex != nil:
			return true
		case b.CheckboxIndex != nil:
			return false
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return ordered
}
