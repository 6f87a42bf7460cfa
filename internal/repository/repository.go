package repository

import (
	"context"

	"github.com/yukikurage/taskpilot/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create stores a new user, assigning an ID when none is set.
	// Fails with a ConflictError when the email is already taken.
	Create(ctx context.Context, user models.User) (*models.User, error)

	// Update replaces the stored user with the same ID
	Update(ctx context.Context, user models.User) (*models.User, error)

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns every user
	List(ctx context.Context) ([]models.User, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create stores a new task with a generated ID and Pending status
	Create(ctx context.Context, fields models.TaskFields) (*models.Task, error)

	// FindByID finds a task by ID
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// List retrieves tasks matching the filter, newest first
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)

	// Update applies a partial update to a task
	Update(ctx context.Context, id string, update TaskUpdate) (*models.Task, error)

	// Delete hard deletes a task
	Delete(ctx context.Context, id string) error

	// Count returns the number of tasks matching the filter, ignoring its
	// offset and limit
	Count(ctx context.Context, filter TaskFilter) (int64, error)
}

// TaskFilter holds filtering and paging options for listing tasks.
// A zero Limit means no limit.
type TaskFilter struct {
	AssignedUserID *string
	Status         *models.TaskStatus
	Offset         int
	Limit          int
}

// TaskUpdate holds the parts of a task to change. Nil parts are left as they are.
type TaskUpdate struct {
	Fields *models.TaskFields
	Status *models.TaskStatus
}

// Store groups the repositories that make up the entity store.
type Store struct {
	Users UserRepository
	Tasks TaskRepository
}

func (f TaskFilter) matches(task models.Task) bool {
	if f.AssignedUserID != nil && task.AssignedUserID != *f.AssignedUserID {
		return false
	}
	if f.Status != nil && task.Status != *f.Status {
		return false
	}
	return true
}

func (f TaskFilter) page(tasks []models.Task) []models.Task {
	if f.Offset > 0 {
		if f.Offset >= len(tasks) {
			return tasks[:0]
		}
		tasks = tasks[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(tasks) {
		tasks = tasks[:f.Limit]
	}
	return tasks
}

func (u TaskUpdate) apply(task *models.Task) {
	if u.Fields != nil {
		task.Title = u.Fields.Title
		task.Description = u.Fields.Description
		task.Deadline = u.Fields.Deadline.UTC()
		task.AssignedUserID = u.Fields.AssignedUserID
	}
	if u.Status != nil {
		task.Status = *u.Status
	}
}
