package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskpilot/internal/auth"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/metrics"
	"github.com/yukikurage/taskpilot/internal/models"
	"github.com/yukikurage/taskpilot/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// IdentityServiceTestSuite defines the test suite for IdentityService
type IdentityServiceTestSuite struct {
	suite.Suite
	ctx           context.Context
	store         repository.Store
	authenticator *auth.PasswordAuthenticator
	service       *IdentityService
}

func (suite *IdentityServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = repository.NewMemoryStore()
	suite.authenticator = auth.NewPasswordAuthenticator(auth.Options{Cost: bcrypt.MinCost}, zap.NewNop())
	suite.service = NewIdentityService(suite.store, suite.authenticator, metrics.NewNop(), zap.NewNop())
}

func (suite *IdentityServiceTestSuite) userCount() int {
	users, err := suite.store.Users.List(suite.ctx)
	suite.Require().NoError(err)
	return len(users)
}

func (suite *IdentityServiceTestSuite) TestSignup_CreatesUserWithIdentityUID() {
	user, err := suite.service.Signup(suite.ctx, SignupInput{Name: "Casey Jordan", Email: "casey@example.com", Password: "secret1"})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.RoleUser, user.Role)
	assert.NotEmpty(suite.T(), user.Avatar)

	identity, err := suite.authenticator.SignIn(suite.ctx, "casey@example.com", "secret1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), identity.UID, user.ID)
}

func (suite *IdentityServiceTestSuite) TestSignup_DuplicateEmail() {
	_, err := suite.service.Signup(suite.ctx, SignupInput{Name: "Casey", Email: "casey@example.com", Password: "secret1"})
	suite.Require().NoError(err)

	_, err = suite.service.Signup(suite.ctx, SignupInput{Name: "Impostor", Email: "casey@example.com", Password: "secret2"})

	var conflict *apierrors.ConflictError
	suite.Require().ErrorAs(err, &conflict)
	assert.Equal(suite.T(), "This email address is already in use.", apierrors.UserMessage(err))
	assert.Equal(suite.T(), 1, suite.userCount())
}

func (suite *IdentityServiceTestSuite) TestSignup_EmailKnownOnlyToAuthenticator() {
	suite.Require().NoError(suite.authenticator.Register(suite.ctx, "ext-1", "taken@example.com", "password"))

	_, err := suite.service.Signup(suite.ctx, SignupInput{Name: "Someone", Email: "taken@example.com", Password: "secret1"})

	assert.True(suite.T(), apierrors.IsUpstream(err, apierrors.UpstreamEmailInUse))
	assert.Equal(suite.T(), 0, suite.userCount())
}

func (suite *IdentityServiceTestSuite) TestSignup_Validation() {
	_, err := suite.service.Signup(suite.ctx, SignupInput{Name: "C", Email: "not-an-email", Password: "123", Role: "Admin"})

	var verr *apierrors.ValidationError
	suite.Require().ErrorAs(err, &verr)
	for _, field := range []string{"name", "email", "password", "role"} {
		assert.True(suite.T(), verr.Has(field), field)
	}
	assert.Equal(suite.T(), 0, suite.userCount())
}

func (suite *IdentityServiceTestSuite) TestResolveByEmail_StableAcrossRestarts() {
	created, err := suite.service.Signup(suite.ctx, SignupInput{Name: "Taylor", Email: "taylor@example.com", Password: "secret1"})
	suite.Require().NoError(err)

	for i := 0; i < 3; i++ {
		// A fresh binding layer over the same store.
		service := NewIdentityService(suite.store, suite.authenticator, metrics.NewNop(), zap.NewNop())
		user, err := service.Resolve(suite.ctx, auth.Identity{Email: "taylor@example.com"}, nil)
		suite.Require().NoError(err)
		assert.Equal(suite.T(), created.ID, user.ID)
	}
	assert.Equal(suite.T(), 1, suite.userCount())
}

func (suite *IdentityServiceTestSuite) TestResolve_CreatesUnknownIdentity() {
	pm := models.RoleProjectManager

	user, err := suite.service.Resolve(suite.ctx, auth.Identity{UID: "ext-7", Email: "jamie@example.com"}, &pm)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), "ext-7", user.ID)
	assert.Equal(suite.T(), "jamie", user.Name)
	assert.Equal(suite.T(), models.RoleProjectManager, user.Role)
}

func (suite *IdentityServiceTestSuite) TestLogin_RequestedRoleOverwritesStoredRole() {
	_, err := suite.service.Signup(suite.ctx, SignupInput{Name: "Casey", Email: "casey@example.com", Password: "secret1"})
	suite.Require().NoError(err)
	pm := models.RoleProjectManager

	user, err := suite.service.Login(suite.ctx, "casey@example.com", "secret1", &pm)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.RoleProjectManager, user.Role)

	stored, err := suite.store.Users.FindByID(suite.ctx, user.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.RoleProjectManager, stored.Role)
}

func (suite *IdentityServiceTestSuite) TestLogin_InvalidCredential() {
	_, err := suite.service.Login(suite.ctx, "nobody@example.com", "password", nil)

	assert.True(suite.T(), apierrors.IsUpstream(err, apierrors.UpstreamInvalidCredential))
	assert.Equal(suite.T(), "Invalid email or password.", apierrors.UserMessage(err))
}

func (suite *IdentityServiceTestSuite) TestLoginAs() {
	suite.Require().NoError(repository.Seed(suite.ctx, suite.store, time.Now()))

	user, err := suite.service.LoginAs(suite.ctx, "pm-1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Alex Ray", user.Name)

	_, err = suite.service.LoginAs(suite.ctx, "ghost")
	var verr *apierrors.ValidationError
	assert.ErrorAs(suite.T(), err, &verr)
}

func TestIdentityServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceTestSuite))
}

type failingUserRepository struct {
	repository.UserRepository
}

func (failingUserRepository) Create(context.Context, models.User) (*models.User, error) {
	return nil, assert.AnError
}

func TestResolve_StoreFailureIsFatal(t *testing.T) {
	store := repository.NewMemoryStore()
	store.Users = failingUserRepository{UserRepository: store.Users}
	service := NewIdentityService(store, auth.NewPasswordAuthenticator(auth.Options{Cost: bcrypt.MinCost}, zap.NewNop()), nil, zap.NewNop())

	user, err := service.Resolve(context.Background(), auth.Identity{UID: "ext-1", Email: "new@example.com"}, nil)

	require.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, user)
}

func TestSignup_StoreFailureRecoveredAtSignIn(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	authenticator := auth.NewPasswordAuthenticator(auth.Options{Cost: bcrypt.MinCost}, zap.NewNop())

	broken := store
	broken.Users = failingUserRepository{UserRepository: store.Users}
	_, err := NewIdentityService(broken, authenticator, nil, zap.NewNop()).
		Signup(ctx, SignupInput{Name: "Casey Jordan", Email: "casey@example.com", Password: "secret1"})
	require.ErrorIs(t, err, assert.AnError)

	_, err = store.Users.FindByEmail(ctx, "casey@example.com")
	var notFound *apierrors.NotFoundError
	require.ErrorAs(t, err, &notFound)

	user, err := NewIdentityService(store, authenticator, nil, zap.NewNop()).
		Login(ctx, "casey@example.com", "secret1", nil)
	require.NoError(t, err)
	assert.Equal(t, "casey@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
}
