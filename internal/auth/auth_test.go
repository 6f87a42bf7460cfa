package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator() *PasswordAuthenticator {
	return NewPasswordAuthenticator(Options{SignInsPerMinute: 60, Burst: 3, Cost: bcrypt.MinCost}, zap.NewNop())
}

func TestSignUpThenSignIn(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator()

	created, err := a.SignUp(ctx, "Casey@Example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "casey@example.com", created.Email)

	signedIn, err := a.SignIn(ctx, "casey@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.UID, signedIn.UID)
}

func TestSignUp_EmailInUse(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator()
	require.NoError(t, a.Register(ctx, "user-1", "user@example.com", "password"))

	_, err := a.SignUp(ctx, "user@example.com", "another")

	assert.True(t, apierrors.IsUpstream(err, apierrors.UpstreamEmailInUse))
	assert.Equal(t, "This email address is already in use.", apierrors.UserMessage(err))
}

func TestSignUp_WeakPassword(t *testing.T) {
	_, err := newTestAuthenticator().SignUp(context.Background(), "new@example.com", "123")
	assert.True(t, apierrors.IsUpstream(err, apierrors.UpstreamOther))
}

func TestSignIn_InvalidCredential(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator()
	require.NoError(t, a.Register(ctx, "user-1", "user@example.com", "password"))

	_, err := a.SignIn(ctx, "user@example.com", "wrong-password")
	assert.True(t, apierrors.IsUpstream(err, apierrors.UpstreamInvalidCredential))

	_, err = a.SignIn(ctx, "nobody@example.com", "password")
	assert.True(t, apierrors.IsUpstream(err, apierrors.UpstreamInvalidCredential))
	assert.Equal(t, "Invalid email or password.", apierrors.UserMessage(err))
}

func TestSignIn_RateLimitedPerEmail(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator()
	require.NoError(t, a.Register(ctx, "user-1", "user@example.com", "password"))

	for i := 0; i < 3; i++ {
		_, err := a.SignIn(ctx, "user@example.com", "wrong-password")
		require.True(t, apierrors.IsUpstream(err, apierrors.UpstreamInvalidCredential))
	}

	_, err := a.SignIn(ctx, "user@example.com", "password")
	assert.True(t, apierrors.IsUpstream(err, apierrors.UpstreamRateLimited))

	_, err = a.SignIn(ctx, "other@example.com", "password")
	assert.True(t, apierrors.IsUpstream(err, apierrors.UpstreamInvalidCredential))
}
