package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/models"
)

// MemoryUserRepository keeps users in process memory. Reads return copies.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users []models.User
}

// NewMemoryUserRepository creates an empty in-memory UserRepository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{}
}

func (r *MemoryUserRepository) Create(_ context.Context, user models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexByEmail(user.Email) >= 0 {
		return nil, &apierrors.ConflictError{Resource: "user", Field: "email", Value: user.Email}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	} else if r.indexByID(user.ID) >= 0 {
		return nil, &apierrors.ConflictError{Resource: "user", Field: "id", Value: user.ID}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users = append(r.users, user)

	return &user, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(user.ID)
	if i < 0 {
		return nil, &apierrors.NotFoundError{Resource: "user", ID: user.ID}
	}
	if j := r.indexByEmail(user.Email); j >= 0 && j != i {
		return nil, &apierrors.ConflictError{Resource: "user", Field: "email", Value: user.Email}
	}

	user.CreatedAt = r.users[i].CreatedAt
	user.UpdatedAt = time.Now().UTC()
	r.users[i] = user

	return &user, nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByID(id)
	if i < 0 {
		return nil, &apierrors.NotFoundError{Resource: "user", ID: id}
	}
	user := r.users[i]
	return &user, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByEmail(email)
	if i < 0 {
		return nil, &apierrors.NotFoundError{Resource: "user", ID: email}
	}
	user := r.users[i]
	return &user, nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, len(r.users))
	copy(users, r.users)
	return users, nil
}

func (r *MemoryUserRepository) indexByID(id string) int {
	for i, u := range r.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryUserRepository) indexByEmail(email string) int {
	if email == "" {
		return -1
	}
	for i, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return i
		}
	}
	return -1
}

// MemoryTaskRepository keeps tasks in process memory, newest first.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks []models.Task
}

// NewMemoryTaskRepository creates an empty in-memory TaskRepository
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{}
}

func (r *MemoryTaskRepository) Create(_ context.Context, fields models.TaskFields) (*models.Task, error) {
	now := time.Now().UTC()
	task := models.Task{
		ID:        uuid.NewString(),
		Status:    models.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	TaskUpdate{Fields: &fields}.apply(&task)

	r.mu.Lock()
	r.tasks = append([]models.Task{task}, r.tasks...)
	r.mu.Unlock()

	return &task, nil
}

// Import stores a fully formed task as is, keeping its ID and status.
func (r *MemoryTaskRepository) Import(_ context.Context, task models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexByID(task.ID) >= 0 {
		return &apierrors.ConflictError{Resource: "task", Field: "id", Value: task.ID}
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *MemoryTaskRepository) FindByID(_ context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByID(id)
	if i < 0 {
		return nil, &apierrors.NotFoundError{Resource: "task", ID: id}
	}
	task := r.tasks[i]
	return &task, nil
}

func (r *MemoryTaskRepository) List(_ context.Context, filter TaskFilter) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if filter.matches(t) {
			tasks = append(tasks, t)
		}
	}
	return filter.page(tasks), nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, id string, update TaskUpdate) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return nil, &apierrors.NotFoundError{Resource: "task", ID: id}
	}

	task := r.tasks[i]
	update.apply(&task)
	task.UpdatedAt = time.Now().UTC()
	r.tasks[i] = task

	return &task, nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return &apierrors.NotFoundError{Resource: "task", ID: id}
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	return nil
}

func (r *MemoryTaskRepository) Count(_ context.Context, filter TaskFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, t := range r.tasks {
		if filter.matches(t) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryTaskRepository) indexByID(id string) int {
	for i, t := range r.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// NewMemoryStore creates an empty in-memory entity store
func NewMemoryStore() Store {
	return Store{
		Users: NewMemoryUserRepository(),
		Tasks: NewMemoryTaskRepository(),
	}
}
