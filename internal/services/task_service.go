package services

import (
	"context"
	"errors"

	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/metrics"
	"github.com/yukikurage/taskpilot/internal/models"
	"github.com/yukikurage/taskpilot/internal/policy"
	"github.com/yukikurage/taskpilot/internal/repository"
	"go.uber.org/zap"
)

// TaskService validates, authorizes and applies task mutations.
//
// Every mutation checks in a fixed order: input validation, then the
// authorization policy, then the existence of the target, and only then
// writes. Nothing between validation and the write leaves the process.
type TaskService struct {
	store   repository.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(store repository.Store, m *metrics.Metrics, logger *zap.Logger) *TaskService {
	return &TaskService{
		store:   store,
		metrics: m,
		logger:  logger.Named("tasks"),
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status *models.TaskStatus
	Offset int
	Limit  int
}

// ListTasks returns the tasks visible to actor, newest first, and the
// total number of visible tasks matching the filter.
func (s *TaskService) ListTasks(ctx context.Context, actor models.User, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Status: input.Status,
		Offset: input.Offset,
		Limit:  input.Limit,
	}
	if !actor.IsProjectManager() {
		filter.AssignedUserID = &actor.ID
	}

	tasks, err := s.store.Tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Tasks.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return policy.VisibleTasks(actor, tasks), total, nil
}

// GetTask returns a task actor is allowed to see
func (s *TaskService) GetTask(ctx context.Context, id string, actor models.User) (*models.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, policy.ViewTask, task) {
		return nil, &apierrors.AuthorizationError{ActorID: actor.ID, Action: string(policy.ViewTask)}
	}
	return task, nil
}

// ListUsers returns every user
func (s *TaskService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.Users.List(ctx)
}

// ListAssignableUsers returns the users tasks may be assigned to
func (s *TaskService) ListAssignableUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, err
	}

	assignable := make([]models.User, 0, len(users))
	for _, u := range users {
		if policy.CanAssign(u) {
			assignable = append(assignable, u)
		}
	}
	return assignable, nil
}

// AddTask creates a task. The new task is always Pending.
func (s *TaskService) AddTask(ctx context.Context, input models.TaskInput, actor models.User) (task *models.Task, err error) {
	defer s.observe(policy.CreateTask, &err)

	fields, err := s.validateTaskInput(ctx, input)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, policy.CreateTask, nil) {
		return nil, denied(actor, policy.CreateTask)
	}

	task, err = s.store.Tasks.Create(ctx, fields)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task created",
		zap.String("task_id", task.ID),
		zap.String("actor_id", actor.ID),
		zap.String("assigned_user_id", task.AssignedUserID))
	return task, nil
}

// EditTask replaces the editable fields of a task. Status is left as is.
func (s *TaskService) EditTask(ctx context.Context, id string, input models.TaskInput, actor models.User) (task *models.Task, err error) {
	defer s.observe(policy.EditTask, &err)

	fields, err := s.validateTaskInput(ctx, input)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, policy.EditTask, nil) {
		return nil, denied(actor, policy.EditTask)
	}

	task, err = s.store.Tasks.Update(ctx, id, repository.TaskUpdate{Fields: &fields})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task edited", zap.String("task_id", id), zap.String("actor_id", actor.ID))
	return task, nil
}

// DeleteTask removes a task
func (s *TaskService) DeleteTask(ctx context.Context, id string, actor models.User) (err error) {
	defer s.observe(policy.DeleteTask, &err)

	if !policy.CanMutate(actor, policy.DeleteTask, nil) {
		return denied(actor, policy.DeleteTask)
	}

	if err = s.store.Tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Task deleted", zap.String("task_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// SetTaskStatus changes only the status of a task. Only the assigned user
// may do so, and never a Project Manager.
func (s *TaskService) SetTaskStatus(ctx context.Context, id string, status models.TaskStatus, actor models.User) (task *models.Task, err error) {
	defer s.observe(policy.UpdateTaskStatus, &err)

	if !status.Valid() {
		verr := &apierrors.ValidationError{}
		verr.Add("status", "Status must be one of Pending, In Progress or Done.")
		return nil, verr
	}
	// The role rule needs no task, so it is decided before the lookup.
	if actor.IsProjectManager() {
		return nil, denied(actor, policy.UpdateTaskStatus)
	}

	current, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, policy.UpdateTaskStatus, current) {
		return nil, denied(actor, policy.UpdateTaskStatus)
	}

	task, err = s.store.Tasks.Update(ctx, id, repository.TaskUpdate{Status: &status})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Task status changed",
		zap.String("task_id", id),
		zap.String("actor_id", actor.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)))
	return task, nil
}

// validateTaskInput checks every field of input and returns all violations
// at once.
func (s *TaskService) validateTaskInput(ctx context.Context, input models.TaskInput) (models.TaskFields, error) {
	verr := &apierrors.ValidationError{}
	validateStruct(input, verr)

	deadline, ok := parseDeadline(input.Deadline)
	if !ok && !verr.Has("deadline") {
		verr.Add("deadline", "A valid deadline is required.")
	}

	if input.AssignedUserID != "" {
		assignee, err := s.store.Users.FindByID(ctx, input.AssignedUserID)
		switch {
		case isNotFound(err):
			verr.Add("assignedUserId", "The assigned user does not exist.")
		case err != nil:
			return models.TaskFields{}, err
		case !policy.CanAssign(*assignee):
			verr.Add("assignedUserId", "Tasks can only be assigned to users with the User role.")
		}
	}

	if err := verr.OrNil(); err != nil {
		return models.TaskFields{}, err
	}

	return models.TaskFields{
		Title:          input.Title,
		Description:    input.Description,
		Deadline:       deadline,
		AssignedUserID: input.AssignedUserID,
	}, nil
}

func (s *TaskService) observe(action policy.Action, err *error) {
	s.metrics.ObserveTaskMutation(string(action), resultOf(*err))
}

func denied(actor models.User, action policy.Action) error {
	return &apierrors.AuthorizationError{ActorID: actor.ID, Action: string(action)}
}

func isNotFound(err error) bool {
	var notFound *apierrors.NotFoundError
	return errors.As(err, &notFound)
}

// resultOf classifies err for metrics.
func resultOf(err error) string {
	var (
		validation *apierrors.ValidationError
		authz      *apierrors.AuthorizationError
		notFound   *apierrors.NotFoundError
	)
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.As(err, &validation):
		return metrics.ResultInvalid
	case errors.As(err, &authz):
		return metrics.ResultForbidden
	case errors.As(err, &notFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
