package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskpilot/internal/database"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, fields models.TaskFields) (*models.Task, error) {
	task := models.Task{
		ID:     uuid.NewString(),
		Status: models.TaskStatusPending,
	}
	TaskUpdate{Fields: &fields}.apply(&task)

	if err := r.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

// Import stores a fully formed task, keeping its ID and status
func (r *GormTaskRepository) Import(ctx context.Context, task models.Task) error {
	if err := r.db.WithContext(ctx).Create(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &apierrors.ConflictError{Resource: "task", Field: "id", Value: task.ID}
		}
		return fmt.Errorf("failed to import task: %w", err)
	}
	return nil
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apierrors.NotFoundError{Resource: "task", ID: id}
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// List retrieves tasks with filtering
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Scopes(filterTasks(filter), database.Newest, database.Paginate(filter.Offset, filter.Limit)).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update applies a partial update to a task
func (r *GormTaskRepository) Update(ctx context.Context, id string, update TaskUpdate) (*models.Task, error) {
	task, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update.apply(task)
	task.UpdatedAt = time.Now().UTC()

	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// Delete hard deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &apierrors.NotFoundError{Resource: "task", ID: id}
	}
	return nil
}

// Count returns the number of tasks matching the filter
func (r *GormTaskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(filterTasks(filter)).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

func filterTasks(filter TaskFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.AssignedUserID != nil {
			db = db.Where("assigned_user_id = ?", *filter.AssignedUserID)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		return db
	}
}

// NewGormStore creates an entity store backed by db
func NewGormStore(db *gorm.DB) Store {
	return Store{
		Users: NewUserRepository(db),
		Tasks: NewTaskRepository(db),
	}
}
