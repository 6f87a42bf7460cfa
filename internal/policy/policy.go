// Package policy decides which task operations a user may perform.
// Decisions depend only on the actor's role and ID and on the task's
// assignee; the task status is never consulted.
package policy

import (
	"github.com/yukikurage/taskpilot/internal/models"
)

type Action string

const (
	CreateTask       Action = "create task"
	EditTask         Action = "edit task"
	DeleteTask       Action = "delete task"
	UpdateTaskStatus Action = "update task status"
	ViewTask         Action = "view task"
)

// CanMutate reports whether actor may perform action on task. task may be
// nil for CreateTask.
func CanMutate(actor models.User, action Action, task *models.Task) bool {
	switch action {
	case CreateTask, EditTask, DeleteTask:
		return actor.IsProjectManager()
	case UpdateTaskStatus:
		return task != nil && !actor.IsProjectManager() && actor.ID == task.AssignedUserID
	case ViewTask:
		return task != nil && CanView(actor, *task)
	default:
		return false
	}
}

// CanView reports whether actor can see task.
func CanView(actor models.User, task models.Task) bool {
	return actor.IsProjectManager() || actor.ID == task.AssignedUserID
}

// VisibleTasks returns the tasks actor can see, keeping their order.
func VisibleTasks(actor models.User, tasks []models.Task) []models.Task {
	if actor.IsProjectManager() {
		return tasks
	}
	visible := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if CanView(actor, t) {
			visible = append(visible, t)
		}
	}
	return visible
}

// CanAssign reports whether tasks may be assigned to user.
func CanAssign(user models.User) bool {
	return user.Role == models.RoleUser
}
