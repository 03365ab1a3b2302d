package identity

import (
	"context"
	"testing"
	"time"

	"github.com/atelierloop/gateway/internal/domain/session"
	"github.com/atelierloop/gateway/internal/domain/shared"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/atelierloop/gateway/internal/infrastructure/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMarketplaceAuth struct {
	mock.Mock

	// lastCode captures the one-time code handed to SendMFACode so tests
	// can submit it to VerifyCode.
	lastCode string
}

func (m *mockMarketplaceAuth) Login(ctx context.Context, email, password string) (*upstream.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.LoginResult), args.Error(1)
}

func (m *mockMarketplaceAuth) SendMFACode(ctx context.Context, sessionToken, code string) error {
	m.lastCode = code
	args := m.Called(ctx, sessionToken, code)
	return args.Error(0)
}

func (m *mockMarketplaceAuth) ExchangeSession(ctx context.Context, sessionToken string) (*upstream.VerifyResult, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.VerifyResult), args.Error(1)
}

func (m *mockMarketplaceAuth) Me(ctx context.Context, token string) (*upstream.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.User), args.Error(1)
}

type authFixture struct {
	service      *AuthService
	api          *mockMarketplaceAuth
	sessions     *auth.InMemorySessionStore
	challenges   *auth.InMemoryChallengeStore
	capabilities *auth.InMemoryCapabilityStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	api := new(mockMarketplaceAuth)
	sessions := auth.NewInMemorySessionStore()
	challenges := auth.NewInMemoryChallengeStore()
	capabilities := auth.NewInMemoryCapabilityStore("seed-segment")
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key-for-unit-tests-only!",
		Expiration: time.Hour,
		Issuer:     "gateway-test",
	})

	service := NewAuthService(api, sessions, challenges, capabilities, jwtService, nil, config.MFAConfig{
		ChallengeTTL:   5 * time.Minute,
		MaxAttempts:    3,
		ResendCooldown: 30 * time.Second,
	}, zap.NewNop())

	return &authFixture{
		service:      service,
		api:          api,
		sessions:     sessions,
		challenges:   challenges,
		capabilities: capabilities,
	}
}

func TestLoginWithoutMFAEstablishesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.api.On("Login", mock.Anything, "renter@example.com", "pw").Return(&upstream.LoginResult{
		Token: "upstream-token",
		User:  &upstream.User{ID: "u1", Name: "Ada", Email: "renter@example.com", Role: "RENTER"},
	}, nil)

	result, err := f.service.Login(ctx, LoginInput{Email: "renter@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, result.RequiresMFA)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, session.RoleRenter, result.User.Role)

	sess, err := f.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, "upstream-token", sess.Token, "session holds the upstream token, not the gateway JWT")
}

func TestLoginWithMFAIssuesChallenge(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.api.On("Login", mock.Anything, "admin@example.com", "pw").Return(&upstream.LoginResult{
		RequiresMFA:  true,
		SessionToken: "tok123",
	}, nil)
	f.api.On("SendMFACode", mock.Anything, "tok123", mock.Anything).Return(nil)

	result, err := f.service.Login(ctx, LoginInput{Email: "admin@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, result.RequiresMFA)
	assert.Equal(t, "tok123", result.SessionToken)
	assert.Empty(t, result.Token, "no session token is issued while MFA is pending")

	sess, err := f.sessions.Get(ctx, "tok123")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.PendingMFA())
	assert.False(t, sess.Authenticated())

	ch, err := f.challenges.Get(ctx, "tok123")
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Len(t, f.api.lastCode, 6)
	assert.True(t, ch.MatchesCode(f.api.lastCode))
}

func TestLoginFailurePropagatesUpstreamMessage(t *testing.T) {
	f := newAuthFixture(t)

	f.api.On("Login", mock.Anything, "admin@example.com", "bad").
		Return(nil, shared.NewDomainError("UNAUTHORIZED", "Invalid email or password"))

	_, err := f.service.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "bad"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "Invalid email or password", domainErr.Message)
}

func loginPendingMFA(t *testing.T, f *authFixture) string {
	t.Helper()
	f.api.On("Login", mock.Anything, "admin@example.com", "pw").Return(&upstream.LoginResult{
		RequiresMFA:  true,
		SessionToken: "tok123",
	}, nil)
	f.api.On("SendMFACode", mock.Anything, "tok123", mock.Anything).Return(nil)

	_, err := f.service.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "pw"})
	require.NoError(t, err)
	return f.api.lastCode
}

func TestVerifyCorrectCodeEstablishesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	code := loginPendingMFA(t, f)

	f.api.On("ExchangeSession", mock.Anything, "tok123").Return(&upstream.VerifyResult{
		Token: "upstream-token",
		User:  &upstream.User{ID: "u1", Name: "Ada", Email: "admin@example.com", Role: "ADMIN"},
	}, nil)

	result, err := f.service.VerifyCode(ctx, VerifyCodeInput{SessionToken: "tok123", Code: code})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, session.RoleAdmin, result.User.Role)

	// Challenge consumed: the same code cannot be replayed.
	_, err = f.service.VerifyCode(ctx, VerifyCodeInput{SessionToken: "tok123", Code: code})
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)

	// Pending session replaced by the established one.
	pending, err := f.sessions.Get(ctx, "tok123")
	require.NoError(t, err)
	assert.Nil(t, pending)

	sess, err := f.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.Authenticated())
}

func TestVerifyWrongCodeBurnsAttempt(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	code := loginPendingMFA(t, f)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	_, err := f.service.VerifyCode(ctx, VerifyCodeInput{SessionToken: "tok123", Code: wrong})
	assert.ErrorIs(t, err, shared.ErrInvalidCode)

	// The challenge survives with one attempt burned.
	ch, err := f.challenges.Get(ctx, "tok123")
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, 1, ch.Attempts)
}

func TestVerifyExhaustedAttemptsVoidsChallenge(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	code := loginPendingMFA(t, f)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 2; i++ {
		_, err := f.service.VerifyCode(ctx, VerifyCodeInput{SessionToken: "tok123", Code: wrong})
		assert.ErrorIs(t, err, shared.ErrInvalidCode)
	}

	_, err := f.service.VerifyCode(ctx, VerifyCodeInput{SessionToken: "tok123", Code: wrong})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", domainErr.Code)

	// Even the right code is dead now.
	_, err = f.service.VerifyCode(ctx, VerifyCodeInput{SessionToken: "tok123", Code: code})
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)
}

func TestVerifyUnknownSessionToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.VerifyCode(context.Background(), VerifyCodeInput{SessionToken: "absent", Code: "123456"})
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)
}

func TestResendReplacesCodeAfterCooldown(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	firstCode := loginPendingMFA(t, f)

	err := f.service.ResendCode(ctx, ResendCodeInput{SessionToken: "tok123"})
	require.NoError(t, err)
	assert.Len(t, f.api.lastCode, 6)

	ch, err := f.challenges.Get(ctx, "tok123")
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, 0, ch.Attempts, "resend resets attempts")
	if firstCode != f.api.lastCode {
		assert.False(t, ch.MatchesCode(firstCode), "the old code is replaced")
	}
}

func TestResendInsideCooldownIsRateLimited(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	loginPendingMFA(t, f)

	require.NoError(t, f.service.ResendCode(ctx, ResendCodeInput{SessionToken: "tok123"}))

	err := f.service.ResendCode(ctx, ResendCodeInput{SessionToken: "tok123"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "RATE_LIMITED", domainErr.Code)
	assert.Contains(t, domainErr.Message, "wait")
}

func TestGetCurrentUserConfirmsRoleAndRedirects(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	sess := &session.Session{}
	sess.SetAuth("upstream-token", "u1", "admin@example.com", session.RoleAdmin, "Ada")
	require.NoError(t, f.sessions.Put(ctx, "u1", sess))

	f.api.On("Me", mock.Anything, "upstream-token").Return(&upstream.User{
		ID: "u1", Name: "Ada", Email: "admin@example.com", Role: "ADMIN",
	}, nil)

	result, err := f.service.GetCurrentUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, session.RoleAdmin, result.User.Role)
	assert.Equal(t, "/admin/seed-segment", result.RedirectTo)
	assert.Equal(t, 2000, result.RedirectDelayMs)
}

func TestGetCurrentUserListerRedirect(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	sess := &session.Session{}
	sess.SetAuth("upstream-token", "u2", "lister@example.com", session.RoleLister, "Bea")
	require.NoError(t, f.sessions.Put(ctx, "u2", sess))

	f.api.On("Me", mock.Anything, "upstream-token").Return(&upstream.User{
		ID: "u2", Name: "Bea", Email: "lister@example.com", Role: "LISTER",
	}, nil)

	result, err := f.service.GetCurrentUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "/listers/dashboard", result.RedirectTo)
}

func TestGetCurrentUserWithoutSession(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.GetCurrentUser(context.Background(), "absent")
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestLogoutDeletesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	sess := &session.Session{}
	sess.SetAuth("upstream-token", "u1", "a@b.c", session.RoleRenter, "Ada")
	require.NoError(t, f.sessions.Put(ctx, "u1", sess))

	require.NoError(t, f.service.Logout(ctx, "u1"))

	loaded, err := f.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestUpstreamTokenForEstablishedSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	sess := &session.Session{}
	sess.SetAuth("upstream-token", "u1", "a@b.c", session.RoleRenter, "Ada")
	require.NoError(t, f.sessions.Put(ctx, "u1", sess))

	token, err := f.service.UpstreamToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", token)

	_, err = f.service.UpstreamToken(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrSessionNotFound)
}
