package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/taskpilot/internal/constants"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/models"
)

// taskImporter is implemented by task repositories that can store tasks
// with a preset ID and status.
type taskImporter interface {
	Import(ctx context.Context, task models.Task) error
}

// DemoUsers returns the demo accounts.
func DemoUsers() []models.User {
	return []models.User{
		{ID: "pm-1", Name: "Alex Ray", Email: "pm@example.com", Role: models.RoleProjectManager, Avatar: constants.DefaultAvatarURL},
		{ID: "user-1", Name: "Casey Jordan", Email: "user@example.com", Role: models.RoleUser, Avatar: constants.DefaultAvatarURL},
		{ID: "user-2", Name: "Taylor Morgan", Email: "taylor@example.com", Role: models.RoleUser, Avatar: constants.DefaultAvatarURL},
		{ID: "user-3", Name: "Jamie Bell", Email: "jamie@example.com", Role: models.RoleUser, Avatar: constants.DefaultAvatarURL},
	}
}

// DemoTasks returns the demo tasks with deadlines relative to now, in
// display order.
func DemoTasks(now time.Time) []models.Task {
	now = now.UTC()
	day := 24 * time.Hour

	tasks := []models.Task{
		{
			ID:             "task-1",
			Title:          "Develop User Authentication",
			Description:    "Implement user login and registration functionality using secure, modern practices. Include password hashing and session management.",
			Deadline:       now.Add(7 * day),
			AssignedUserID: "user-1",
			Status:         models.TaskStatusInProgress,
		},
		{
			ID:             "task-2",
			Title:          "Design Dashboard UI",
			Description:    "Create mockups and a design system for the main application dashboard. Focus on user experience and a clean, intuitive layout.",
			Deadline:       now.Add(-2 * day),
			AssignedUserID: "user-2",
			Status:         models.TaskStatusPending,
		},
		{
			ID:             "task-3",
			Title:          "Setup CI/CD Pipeline",
			Description:    "Configure a continuous integration and continuous deployment pipeline to automate testing and deployment processes.",
			Deadline:       now.Add(10 * day),
			AssignedUserID: "user-1",
			Status:         models.TaskStatusPending,
		},
		{
			ID:             "task-4",
			Title:          "API Endpoint for Tasks",
			Description:    "Develop RESTful API endpoints for creating, reading, updating, and deleting tasks. Ensure proper validation and error handling.",
			Deadline:       now.Add(5 * day),
			AssignedUserID: "user-3",
			Status:         models.TaskStatusDone,
		},
		{
			ID:             "task-5",
			Title:          "Client-side State Management",
			Description:    "Choose and implement a state management library (e.g., Redux, Zustand) to handle client-side state for the application.",
			Deadline:       now.Add(12 * day),
			AssignedUserID: "user-2",
			Status:         models.TaskStatusPending,
		},
	}

	// Newest first: earlier entries get later creation times.
	for i := range tasks {
		created := now.Add(-time.Duration(i) * time.Second)
		tasks[i].CreatedAt = created
		tasks[i].UpdatedAt = created
	}
	return tasks
}

// Seed loads the demo users and tasks. Entries that already exist are
// skipped, so seeding twice is harmless.
func Seed(ctx context.Context, store Store, now time.Time) error {
	for _, user := range DemoUsers() {
		if _, err := store.Users.Create(ctx, user); err != nil && !isConflict(err) {
			return fmt.Errorf("failed to seed user %s: %w", user.ID, err)
		}
	}

	importer, ok := unwrapTasks(store.Tasks).(taskImporter)
	if !ok {
		return fmt.Errorf("task repository %T cannot import tasks", store.Tasks)
	}
	for _, task := range DemoTasks(now) {
		if err := importer.Import(ctx, task); err != nil && !isConflict(err) {
			return fmt.Errorf("failed to seed task %s: %w", task.ID, err)
		}
	}
	return nil
}

func unwrapTasks(repo TaskRepository) TaskRepository {
	if n, ok := repo.(*notifyingTaskRepository); ok {
		return n.TaskRepository
	}
	return repo
}

func isConflict(err error) bool {
	var conflict *apierrors.ConflictError
	return errors.As(err, &conflict)
}
