package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/clintrovert/tasksync/pkg/types"
)

// newFakeModel serves /chat/completions with a fixed assistant reply
func newFakeModel(t *testing.T, reply string, calls *int) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": reply},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
}

func TestCompletedTasks(t *testing.T) {
	client := newFakeModel(t, `["Fix bug", "Unrelated", "Fix bug"]`, nil)

	completed, err := client.CompletedTasks(context.Background(), []string{"fix the bug"}, []string{"Fix bug", "Add docs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fix bug"}, completed)
}

func TestCompletedTasks_CodeFence(t *testing.T) {
	client := newFakeModel(t, "```json\n[\"Add docs\", 3]\n```", nil)

	completed, err := client.CompletedTasks(context.Background(), []string{"docs"}, []string{"Fix bug", "Add docs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Add docs"}, completed)
}

func TestCompletedTasks_EmptyInputSkipsModel(t *testing.T) {
	calls := 0
	client := newFakeModel(t, `[]`, &calls)

	completed, err := client.CompletedTasks(context.Background(), nil, []string{"Fix bug"})
	require.NoError(t, err)
	assert.Empty(t, completed)

	completed, err = client.CompletedTasks(context.Background(), []string{"msg"}, nil)
	require.NoError(t, err)
	assert.Empty(t, completed)

	assert.Zero(t, calls)
}

func TestCompletedTasks_MalformedReply(t *testing.T) {
	client := newFakeModel(t, "I think the bug was fixed", nil)

	_, err := client.CompletedTasks(context.Background(), []string{"msg"}, []string{"Fix bug"})
	assert.Error(t, err)
}

func TestCompletedTasks_NotConfigured(t *testing.T) {
	client := NewClient(Config{}, zaptest.NewLogger(t))

	_, err := client.CompletedTasks(context.Background(), []string{"msg"}, []string{"Fix bug"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFilterTitles(t *testing.T) {
	tests := []struct {
		name    string
		titles  []string
		allowed []string
		want    []string
	}{
		{"keeps known", []string{"Fix bug", "Unrelated"}, []string{"Fix bug"}, []string{"Fix bug"}},
		{"dedupes", []string{"a", "b", "a"}, []string{"a", "b"}, []string{"a", "b"}},
		{"preserves order", []string{"b", "a"}, []string{"a", "b"}, []string{"b", "a"}},
		{"case sensitive", []string{"fix bug"}, []string{"Fix bug"}, []string{}},
		{"nothing allowed", []string{"a"}, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterTitles(tt.titles, tt.allowed))
		})
	}
}

func TestDraftFeatures(t *testing.T) {
	reply := `FEATURE: Authentication
DESCRIPTION: Let users sign in.
TASKS:
1. Add login form [PRIORITY: high]
2. Add logout button [PRIORITY: low]

FEATURE: Docs
DESCRIPTION: Write the manual.
TASKS:
- Write README
`
	client := newFakeModel(t, reply, nil)

	drafts, err := client.DraftFeatures(context.Background(), "A web app with accounts")
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, "Authentication", drafts[0].Name)
	assert.Equal(t, "Let users sign in.", drafts[0].Description)
	assert.Equal(t, []TaskDraft{
		{Title: "Add login form", Priority: types.TaskPriorityHigh},
		{Title: "Add logout button", Priority: types.TaskPriorityLow},
	}, drafts[0].Tasks)

	assert.Equal(t, "Docs", drafts[1].Name)
	assert.Equal(t, []TaskDraft{{Title: "Write README", Priority: types.TaskPriorityMedium}}, drafts[1].Tasks)
}

func TestDraftFeatures_NoFeatures(t *testing.T) {
	client := newFakeModel(t, "Sorry, I cannot help with that.", nil)

	_, err := client.DraftFeatures(context.Background(), "anything")
	assert.Error(t, err)
}

func TestParseTaskLine(t *testing.T) {
	tests := []struct {
		line string
		want TaskDraft
		ok   bool
	}{
		{"1. Do thing [PRIORITY: HIGH]", TaskDraft{Title: "Do thing", Priority: types.TaskPriorityHigh}, true},
		{"12. Other", TaskDraft{Title: "Other", Priority: types.TaskPriorityMedium}, true},
		{"* Bullet [PRIORITY: bogus]", TaskDraft{Title: "Bullet", Priority: types.TaskPriorityMedium}, true},
		{"v1. keeps prefix", TaskDraft{Title: "v1. keeps prefix", Priority: types.TaskPriorityMedium}, true},
		{"-", TaskDraft{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseTaskLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlainText(t *testing.T) {
	body := "## Summary\n\nAdds **login** via [OAuth](https://example.com).\n\n" +
		"- [x] Add form\n- [ ] Add tests\n\n```go\nfmt.Println(\"hi\")\n```\n\n<!-- template -->\n"

	got := PlainText(body)

	assert.Contains(t, got, "Summary")
	assert.Contains(t, got, "Adds login via OAuth.")
	assert.Contains(t, got, "[x] Add form")
	assert.Contains(t, got, "[ ] Add tests")
	assert.Contains(t, got, `fmt.Println("hi")`)
	assert.NotContains(t, got, "```")
	assert.NotContains(t, got, "template")
	assert.NotContains(t, got, "**")
}

func TestPlainText_KeepsCodeAndHTMLContent(t *testing.T) {
	body := "Fixes the login bug.\n\n" +
		"```\n- [x] Add session cookie\n```\n\n" +
		"    validateToken(tok)\n\n" +
		"<details>\nRefresh tokens rotate on use\n</details>\n\n" +
		"Press <kbd>Enter</kbd> to submit."

	got := PlainText(body)

	assert.Contains(t, got, "Fixes the login bug.")
	assert.Contains(t, got, "- [x] Add session cookie")
	assert.Contains(t, got, "validateToken(tok)")
	assert.Contains(t, got, "Refresh tokens rotate on use")
	assert.Contains(t, got, "Press Enter to submit.")
	assert.NotContains(t, got, "<kbd>")
}

func TestPlainText_Empty(t *testing.T) {
	assert.Equal(t, "", PlainText("  \n"))
}
