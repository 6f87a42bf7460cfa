package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/yukikurage/taskpilot/internal/auth"
	"github.com/yukikurage/taskpilot/internal/dto"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"go.uber.org/zap"
)

var _ auth.Authenticator = (*HTTPAuthenticator)(nil)

// AuthStateFunc receives the signed-in user, or nil after sign-out.
type AuthStateFunc func(user *dto.UserDTO)

// HTTPAuthenticator signs in against the API and tells listeners whenever
// the signed-in user changes.
type HTTPAuthenticator struct {
	client *Client
	logger *zap.Logger

	mu        sync.Mutex
	nextID    int
	listeners map[int]AuthStateFunc
}

func NewHTTPAuthenticator(client *Client, logger *zap.Logger) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		client:    client,
		logger:    logger.Named("authenticator"),
		listeners: make(map[int]AuthStateFunc),
	}
}

// SignIn verifies email and password and keeps the stored role.
func (a *HTTPAuthenticator) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	user, err := a.SignInWithRole(ctx, email, password, "")
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UID: user.ID, Email: user.Email}, nil
}

// SignInWithRole signs in and asks for role, which replaces the stored role
// when it differs.
func (a *HTTPAuthenticator) SignInWithRole(ctx context.Context, email, password, role string) (*dto.UserDTO, error) {
	user, err := a.client.Login(ctx, dto.LoginRequest{Email: email, Password: password, Role: role})
	if err != nil {
		return nil, asAuthError(err)
	}
	a.broadcast(user)
	return user, nil
}

// SignInAs signs in as an existing user without credentials. The server
// only allows this in mock auth mode.
func (a *HTTPAuthenticator) SignInAs(ctx context.Context, userID string) (*dto.UserDTO, error) {
	user, err := a.client.Login(ctx, dto.LoginRequest{UserID: userID})
	if err != nil {
		return nil, err
	}
	a.broadcast(user)
	return user, nil
}

// SignUp creates an account named after the email's local part.
func (a *HTTPAuthenticator) SignUp(ctx context.Context, email, password string) (auth.Identity, error) {
	name := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		name = email[:i]
	}
	user, err := a.SignUpWithProfile(ctx, dto.SignupRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UID: user.ID, Email: user.Email}, nil
}

// SignUpWithProfile creates an account and signs it in.
func (a *HTTPAuthenticator) SignUpWithProfile(ctx context.Context, req dto.SignupRequest) (*dto.UserDTO, error) {
	user, err := a.client.Signup(ctx, req)
	if err != nil {
		return nil, asAuthError(err)
	}
	a.broadcast(user)
	return user, nil
}

// SignOut ends the session. Listeners learn about it even when the server
// could not be reached.
func (a *HTTPAuthenticator) SignOut(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if err != nil {
		a.logger.Warn("Sign-out request failed", zap.Error(err))
	}
	a.broadcast(nil)
	return err
}

// Check asks the server who is signed in and tells the listeners.
// Transport failures leave the listeners untouched.
func (a *HTTPAuthenticator) Check(ctx context.Context) error {
	user, err := a.client.Me(ctx)
	switch {
	case err == nil:
		a.broadcast(user)
		return nil
	case IsStatus(err, http.StatusUnauthorized):
		a.broadcast(nil)
		return nil
	default:
		return err
	}
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (a *HTTPAuthenticator) OnAuthStateChange(fn AuthStateFunc) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *HTTPAuthenticator) broadcast(user *dto.UserDTO) {
	a.mu.Lock()
	fns := make([]AuthStateFunc, 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		var u *dto.UserDTO
		if user != nil {
			copied := *user
			u = &copied
		}
		fn(u)
	}
}

// asAuthError reports failures that did not come back as an authenticator
// code as Other.
func asAuthError(err error) error {
	var (
		upstream   *apierrors.UpstreamError
		validation *apierrors.ValidationError
	)
	if errors.As(err, &upstream) || errors.As(err, &validation) {
		return err
	}
	return apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamOther, err)
}
