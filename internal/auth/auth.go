// Package auth verifies credentials on behalf of the identity service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskpilot/internal/constants"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidCredential = apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamInvalidCredential, nil)
	ErrRateLimited       = apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamRateLimited, nil)
	ErrEmailInUse        = apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamEmailInUse, nil)
)

// Identity is a verified principal. UID is stable across sign-ins.
type Identity struct {
	UID   string
	Email string
}

// Authenticator verifies credentials. Failures are *errors.UpstreamError
// values from the authenticator service.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
}

// Options tune a PasswordAuthenticator.
type Options struct {
	// SignInsPerMinute and Burst bound sign-in attempts per email.
	SignInsPerMinute float64
	Burst            int
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

type credential struct {
	uid  string
	hash []byte
}

// PasswordAuthenticator keeps bcrypt password hashes in memory and rate
// limits sign-in attempts per email.
type PasswordAuthenticator struct {
	mu          sync.Mutex
	credentials map[string]credential
	limiters    map[string]*rate.Limiter
	opts        Options
	logger      *zap.Logger
}

// NewPasswordAuthenticator creates an authenticator with no accounts.
func NewPasswordAuthenticator(opts Options, logger *zap.Logger) *PasswordAuthenticator {
	if opts.SignInsPerMinute <= 0 {
		opts.SignInsPerMinute = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	return &PasswordAuthenticator{
		credentials: make(map[string]credential),
		limiters:    make(map[string]*rate.Limiter),
		opts:        opts,
		logger:      logger.Named("auth"),
	}
}

// SignIn verifies email and password.
func (a *PasswordAuthenticator) SignIn(_ context.Context, email, password string) (Identity, error) {
	key := normalize(email)

	a.mu.Lock()
	limiter := a.limiter(key)
	cred, ok := a.credentials[key]
	a.mu.Unlock()

	if !limiter.Allow() {
		a.logger.Warn("Sign-in rate limited", zap.String("email", key))
		return Identity{}, ErrRateLimited
	}
	if !ok {
		return Identity{}, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword(cred.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Identity{}, ErrInvalidCredential
		}
		return Identity{}, apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamOther, err)
	}

	return Identity{UID: cred.uid, Email: key}, nil
}

// SignUp registers a new account under a fresh UID.
func (a *PasswordAuthenticator) SignUp(ctx context.Context, email, password string) (Identity, error) {
	identity := Identity{UID: uuid.NewString(), Email: normalize(email)}
	if err := a.Register(ctx, identity.UID, identity.Email, password); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// Register adds an account with a known UID.
func (a *PasswordAuthenticator) Register(_ context.Context, uid, email, password string) error {
	key := normalize(email)
	if key == "" || uid == "" {
		return apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamOther, fmt.Errorf("uid and email are required"))
	}
	if len(password) < constants.MinPasswordLength {
		return apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamOther, fmt.Errorf("password is too weak"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.opts.Cost)
	if err != nil {
		return apierrors.NewUpstreamError(apierrors.ServiceAuthenticator, apierrors.UpstreamOther, fmt.Errorf("failed to hash password: %w", err))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.credentials[key]; exists {
		return ErrEmailInUse
	}
	a.credentials[key] = credential{uid: uid, hash: hash}
	return nil
}

// limiter must be called with a.mu held.
func (a *PasswordAuthenticator) limiter(key string) *rate.Limiter {
	l, ok := a.limiters[key]
	if !ok {
		every := time.Duration(float64(time.Minute) / a.opts.SignInsPerMinute)
		l = rate.NewLimiter(rate.Every(every), a.opts.Burst)
		a.limiters[key] = l
	}
	return l
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
