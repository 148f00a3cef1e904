package checkbox

import (
	"github.com/clintrovert/tasksync/pkg/types"
)

// Creation is a task to create from an unmatched checkbox
type Creation struct {
	Title  string
	Index  int
	Status types.TaskStatus
}

// Update moves an existing task to a checkbox index and status
type Update struct {
	TaskID int64
	Index  int
	Status types.TaskStatus
}

// Plan is the set of writes needed to bring a feature's tasks in line with a parsed body
type Plan struct {
	Creates []Creation
	Updates []Update
}

// Empty reports whether the plan has no writes
func (p Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0
}

// Reconcile matches parsed items against a feature's tasks. Item i matches the
// task whose checkbox index is i, otherwise the oldest unindexed task with the
// same title. Matched tasks only appear in the plan when their index or status
// changes. Tasks no item matches are left alone: the body can add and complete
// tasks but never remove them.
func Reconcile(tasks []types.Task, items []Item) Plan {
	byIndex := make(map[int]types.Task)
	byTitle := make(map[string][]types.Task)
	for _, task := range Ordered(tasks) {
		if task.CheckboxIndex != nil {
			byIndex[*task.CheckboxIndex] = task
			continue
		}
		byTitle[task.Title] = append(byTitle[task.Title], task)
	}

	var plan Plan
	for i, item := range items {
		task, ok := byIndex[i]
		if !ok {
			if queue := byTitle[item.Title]; len(queue) > 0 {
				task, ok = queue[0], true
				byTitle[item.Title] = queue[1:]
			}
		}

		if !ok {
			status := types.TaskStatusTodo
			if item.Checked {
				status = types.TaskStatusDone
			}
			plan.Creates = append(plan.Creates, Creation{
				Title:  item.Title,
				Index:  i,
				Status: status,
			})
			continue
		}

		status := task.Status
		if item.Checked {
			status = types.TaskStatusDone
		} else if task.Status == types.TaskStatusDone {
			status = types.TaskStatusTodo
		}

		if task.CheckboxIndex == nil || *task.CheckboxIndex != i || status != task.Status {
			plan.Updates = append(plan.Updates, Update{
				TaskID: task.ID,
				Index:  i,
				Status: status,
			})
		}
	}

	return plan
}
