package checkbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clintrovert/tasksync/pkg/types"
)

func TestReconcile_RemovalsAreIgnored(t *testing.T) {
	tasks := []types.Task{
		{ID: 1, Title: "A", Status: types.TaskStatusTodo, CheckboxIndex: intPtr(0)},
		{ID: 2, Title: "B", Status: types.TaskStatusTodo, CheckboxIndex: intPtr(1)},
	}

	plan := Reconcile(tasks, []Item{{Title: "A", Checked: true}})

	assert.Empty(t, plan.Creates)
	assert.Equal(t, []Update{{TaskID: 1, Index: 0, Status: types.TaskStatusDone}}, plan.Updates)
}

func TestReconcile_CreatesUnmatched(t *testing.T) {
	plan := Reconcile(nil, []Item{
		{Title: "A", Checked: false},
		{Title: "B", Checked: true},
	})

	assert.Equal(t, []Creation{
		{Title: "A", Index: 0, Status: types.TaskStatusTodo},
		{Title: "B", Index: 1, Status: types.TaskStatusDone},
	}, plan.Creates)
	assert.Empty(t, plan.Updates)
}

func TestReconcile_MatchesByIndexBeforeTitle(t *testing.T) {
	tasks := []types.Task{
		{ID: 1, Title: "Old name", Status: types.TaskStatusDone, CheckboxIndex: intPtr(0)},
		{ID: 2, Title: "Renamed", Status: types.TaskStatusTodo},
	}

	plan := Reconcile(tasks, []Item{{Title: "Renamed", Checked: false}})

	// index 0 wins: task 1 is demoted, task 2 stays unindexed
	assert.Equal(t, []Update{{TaskID: 1, Index: 0, Status: types.TaskStatusTodo}}, plan.Updates)
	assert.Empty(t, plan.Creates)
}

func TestReconcile_AssignsIndexByTitle(t *testing.T) {
	now := time.Now()
	tasks := []types.Task{
		{ID: 1, Title: "Dup", Status: types.TaskStatusTodo, CreatedAt: now},
		{ID: 2, Title: "Dup", Status: types.TaskStatusTodo, CreatedAt: now.Add(time.Second)},
	}

	plan := Reconcile(tasks, []Item{
		{Title: "Dup", Checked: false},
		{Title: "Dup", Checked: true},
		{Title: "Dup", Checked: false},
	})

	assert.Equal(t, []Update{
		{TaskID: 1, Index: 0, Status: types.TaskStatusTodo},
		{TaskID: 2, Index: 1, Status: types.TaskStatusDone},
	}, plan.Updates)
	assert.Equal(t, []Creation{{Title: "Dup", Index: 2, Status: types.TaskStatusTodo}}, plan.Creates)
}

func TestReconcile_NoChangeIsEmpty(t *testing.T) {
	tasks := []types.Task{
		{ID: 1, Title: "A", Status: types.TaskStatusDone, CheckboxIndex: intPtr(0)},
		{ID: 2, Title: "B", Status: types.TaskStatusInProgress, CheckboxIndex: intPtr(1)},
	}

	plan := Reconcile(tasks, []Item{{Title: "A", Checked: true}, {Title: "B", Checked: false}})

	// unchecked keeps in_progress; only done is demoted
	assert.True(t, plan.Empty())
}
