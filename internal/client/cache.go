package client

import (
	"context"
	"sync"

	"github.com/yukikurage/taskpilot/internal/dto"
	"github.com/yukikurage/taskpilot/internal/events"
	"go.uber.org/zap"
)

// Phase is how sure the cache is about the signed-in user.
type Phase string

const (
	// PhaseUnresolved means nothing is known yet.
	PhaseUnresolved Phase = "unresolved"
	// PhaseOptimisticallyHydrated means the user came from the session
	// store and the authenticator has not answered yet.
	PhaseOptimisticallyHydrated Phase = "optimistically_hydrated"
	// PhaseConfirmed means the authenticator reported a signed-in user.
	PhaseConfirmed Phase = "confirmed"
	// PhaseRejected means the authenticator reported nobody signed in.
	PhaseRejected Phase = "rejected"
)

// State is a snapshot of the cache.
type State struct {
	Phase   Phase
	User    *dto.UserDTO
	Tasks   []dto.TaskDTO
	Users   []dto.UserDTO
	Loading bool
	// Err is the error of the last failed refetch, cleared by a successful one.
	Err error
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Tasks = append([]dto.TaskDTO(nil), s.Tasks...)
	out.Users = append([]dto.UserDTO(nil), s.Users...)
	return out
}

// DataSource fetches the lists the cache holds.
type DataSource interface {
	ListTasks(ctx context.Context) ([]dto.TaskDTO, error)
	ListUsers(ctx context.Context, role string) ([]dto.UserDTO, error)
}

// AuthSource reports sign-in and sign-out.
type AuthSource interface {
	OnAuthStateChange(fn AuthStateFunc) func()
}

// Cache holds the signed-in user with the tasks and users visible to them.
// Every mutation is followed by a full refetch; whichever refetch finishes
// last wins.
type Cache struct {
	api      DataSource
	auth     AuthSource
	sessions SessionStore
	logger   *zap.Logger

	mu          sync.Mutex
	state       State
	listeners   map[int]func(State)
	nextID      int
	ctx         context.Context
	unsubscribe func()
}

func NewCache(api DataSource, authSource AuthSource, sessions SessionStore, logger *zap.Logger) *Cache {
	return &Cache{
		api:       api,
		auth:      authSource,
		sessions:  sessions,
		logger:    logger.Named("cache"),
		state:     State{Phase: PhaseUnresolved, Loading: true},
		listeners: make(map[int]func(State)),
	}
}

// Start hydrates the user from the session store and then follows the
// authenticator. ctx bounds the refetches triggered by auth changes.
func (c *Cache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.ctx = ctx

	user, err := c.sessions.Load()
	if err != nil {
		c.logger.Warn("Discarding unreadable stored user", zap.Error(err))
		if err := c.sessions.Clear(); err != nil {
			c.logger.Warn("Failed to clear stored user", zap.Error(err))
		}
	}
	if user != nil {
		c.state.Phase = PhaseOptimisticallyHydrated
		c.state.User = user
	}
	c.mu.Unlock()
	c.notify()

	unsubscribe := c.auth.OnAuthStateChange(c.resolve)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
}

// Close stops following the authenticator.
func (c *Cache) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// resolve applies an authenticator report. It always overrides whatever
// was hydrated.
func (c *Cache) resolve(user *dto.UserDTO) {
	c.mu.Lock()
	if user == nil {
		c.state = State{Phase: PhaseRejected}
	} else {
		// Data fetched for someone else must not outlive the switch.
		if c.state.User == nil || c.state.User.ID != user.ID {
			c.state.Tasks = nil
			c.state.Users = nil
			c.state.Err = nil
		}
		c.state.Phase = PhaseConfirmed
		c.state.User = user
		c.state.Loading = false
	}
	ctx := c.ctx
	c.mu.Unlock()

	var err error
	if user == nil {
		err = c.sessions.Clear()
	} else {
		err = c.sessions.Save(user)
	}
	if err != nil {
		c.logger.Warn("Failed to persist user", zap.Error(err))
	}
	c.notify()

	if user != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		if err := c.refetch(ctx); err != nil {
			c.logger.Warn("Refetch after sign-in failed", zap.Error(err))
		}
	}
}

// Mutate runs fn and refetches everything once it succeeds.
func (c *Cache) Mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return c.refetch(ctx)
}

// Invalidate refetches everything.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.refetch(ctx)
}

// Watch refetches on every store change event until ctx is done or ch is
// closed.
func (c *Cache) Watch(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := c.refetch(ctx); err != nil {
				c.logger.Warn("Refetch after store change failed",
					zap.String("kind", string(event.Kind)),
					zap.String("entity_id", event.EntityID),
					zap.Error(err))
			}
		}
	}
}

// Subscribe calls fn with a snapshot after every change and returns a
// function that stops the calls.
func (c *Cache) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Loading reports whether the authenticator has not answered yet.
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Loading
}

// refetch reloads tasks and users for the current user. Results for a user
// who signed out meanwhile are dropped.
func (c *Cache) refetch(ctx context.Context) error {
	c.mu.Lock()
	user := c.state.User
	c.mu.Unlock()
	if user == nil {
		return nil
	}

	tasks, err := c.api.ListTasks(ctx)
	var users []dto.UserDTO
	if err == nil {
		users, err = c.api.ListUsers(ctx, "")
	}

	c.mu.Lock()
	if c.state.User == nil || c.state.User.ID != user.ID {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.state.Err = err
	} else {
		c.state.Tasks = tasks
		c.state.Users = users
		c.state.Err = nil
	}
	c.mu.Unlock()

	c.notify()
	return err
}

func (c *Cache) notify() {
	c.mu.Lock()
	snapshot := c.state.clone()
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}
