package repository

import (
	"context"

	"github.com/yukikurage/taskpilot/internal/events"
	"github.com/yukikurage/taskpilot/internal/models"
)

// NewNotifyingStore wraps store so that every successful write publishes
// a change event to notifier. Failed writes publish nothing.
func NewNotifyingStore(store Store, notifier events.Notifier) Store {
	if notifier == nil {
		return store
	}
	return Store{
		Users: &notifyingUserRepository{UserRepository: store.Users, notifier: notifier},
		Tasks: &notifyingTaskRepository{TaskRepository: store.Tasks, notifier: notifier},
	}
}

type notifyingUserRepository struct {
	UserRepository
	notifier events.Notifier
}

func (r *notifyingUserRepository) Create(ctx context.Context, user models.User) (*models.User, error) {
	created, err := r.UserRepository.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	r.notifier.Publish(ctx, events.Event{Kind: events.UserCreated, EntityID: created.ID})
	return created, nil
}

func (r *notifyingUserRepository) Update(ctx context.Context, user models.User) (*models.User, error) {
	updated, err := r.UserRepository.Update(ctx, user)
	if err != nil {
		return nil, err
	}
	r.notifier.Publish(ctx, events.Event{Kind: events.UserUpdated, EntityID: updated.ID})
	return updated, nil
}

type notifyingTaskRepository struct {
	TaskRepository
	notifier events.Notifier
}

func (r *notifyingTaskRepository) Create(ctx context.Context, fields models.TaskFields) (*models.Task, error) {
	task, err := r.TaskRepository.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	r.notifier.Publish(ctx, events.Event{Kind: events.TaskCreated, EntityID: task.ID})
	return task, nil
}

func (r *notifyingTaskRepository) Update(ctx context.Context, id string, update TaskUpdate) (*models.Task, error) {
	task, err := r.TaskRepository.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	r.notifier.Publish(ctx, events.Event{Kind: events.TaskUpdated, EntityID: task.ID})
	return task, nil
}

func (r *notifyingTaskRepository) Delete(ctx context.Context, id string) error {
	if err := r.TaskRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.notifier.Publish(ctx, events.Event{Kind: events.TaskDeleted, EntityID: id})
	return nil
}
