package services

import (
	"context"
	"strings"

	"github.com/yukikurage/taskpilot/internal/auth"
	"github.com/yukikurage/taskpilot/internal/constants"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/metrics"
	"github.com/yukikurage/taskpilot/internal/models"
	"github.com/yukikurage/taskpilot/internal/repository"
	"go.uber.org/zap"
)

// IdentityService binds authenticated identities to users in the store.
type IdentityService struct {
	store         repository.Store
	authenticator auth.Authenticator
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(store repository.Store, authenticator auth.Authenticator, m *metrics.Metrics, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		store:         store,
		authenticator: authenticator,
		metrics:       m,
		logger:        logger.Named("identity"),
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Name     string `json:"name" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
	Role     models.Role
}

// Signup registers credentials with the authenticator and creates the
// matching user. An email already in the store is rejected before the
// authenticator is called.
func (s *IdentityService) Signup(ctx context.Context, input SignupInput) (user *models.User, err error) {
	defer func() { s.metrics.ObserveAuthAttempt("sign_up", resultOf(err)) }()

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)

	verr := &apierrors.ValidationError{}
	validateStruct(input, verr)
	if input.Role != "" && !input.Role.Valid() {
		verr.Add("role", "Role must be Project Manager or User.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.store.Users.FindByEmail(ctx, input.Email); err == nil {
		return nil, &apierrors.ConflictError{Resource: "user", Field: "email", Value: input.Email}
	} else if !isNotFound(err) {
		return nil, err
	}

	// A failed Create below leaves the credential registered; the next
	// sign-in recreates the user through Resolve.
	identity, err := s.authenticator.SignUp(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	user, err = s.store.Users.Create(ctx, models.User{
		ID:     identity.UID,
		Name:   input.Name,
		Email:  input.Email,
		Role:   role,
		Avatar: constants.DefaultAvatarURL,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and resolves the identity to a user. A
// requested role that differs from the stored one overwrites it.
func (s *IdentityService) Login(ctx context.Context, email, password string, requestedRole *models.Role) (user *models.User, err error) {
	defer func() { s.metrics.ObserveAuthAttempt("sign_in", resultOf(err)) }()

	identity, err := s.authenticator.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.logger.Info("Sign-in rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return s.Resolve(ctx, identity, requestedRole)
}

// Resolve finds the user for identity by ID, then by email, creating one
// when neither matches.
func (s *IdentityService) Resolve(ctx context.Context, identity auth.Identity, requestedRole *models.Role) (*models.User, error) {
	user, err := s.lookup(ctx, identity)
	if err != nil {
		return nil, err
	}

	if user == nil {
		role := models.RoleUser
		if requestedRole != nil && requestedRole.Valid() {
			role = *requestedRole
		}
		user, err = s.store.Users.Create(ctx, models.User{
			ID:     identity.UID,
			Name:   nameFromEmail(identity.Email),
			Email:  identity.Email,
			Role:   role,
			Avatar: constants.DefaultAvatarURL,
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("User created on first sign-in", zap.String("user_id", user.ID))
		return user, nil
	}

	if requestedRole != nil && requestedRole.Valid() && *requestedRole != user.Role {
		s.logger.Warn("Stored role overwritten at login",
			zap.String("user_id", user.ID),
			zap.String("from", string(user.Role)),
			zap.String("to", string(*requestedRole)))
		user.Role = *requestedRole
		return s.store.Users.Update(ctx, *user)
	}
	return user, nil
}

// LoginAs signs in as an existing user without credentials, as the demo
// role picker does.
func (s *IdentityService) LoginAs(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			verr := &apierrors.ValidationError{}
			verr.Add("userId", "Please select a user.")
			return nil, verr
		}
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *IdentityService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.Users.FindByID(ctx, id)
}

func (s *IdentityService) lookup(ctx context.Context, identity auth.Identity) (*models.User, error) {
	if identity.UID != "" {
		user, err := s.store.Users.FindByID(ctx, identity.UID)
		if err == nil {
			return user, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	if identity.Email != "" {
		user, err := s.store.Users.FindByEmail(ctx, identity.Email)
		if err == nil {
			return user, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, nil
}

func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}
