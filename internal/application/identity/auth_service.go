// Package identity implements the sign-in, MFA, and session lifecycle of the
// gateway. The marketplace API authenticates credentials; the gateway owns
// the one-time-code challenge and the session record.
package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/atelierloop/gateway/internal/domain/session"
	"github.com/atelierloop/gateway/internal/domain/shared"
	"github.com/atelierloop/gateway/internal/infrastructure/audit"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/atelierloop/gateway/internal/infrastructure/upstream"
	"go.uber.org/zap"
)

// MarketplaceAuth is the slice of the marketplace API used for identity
type MarketplaceAuth interface {
	Login(ctx context.Context, email, password string) (*upstream.LoginResult, error)
	SendMFACode(ctx context.Context, sessionToken, code string) error
	ExchangeSession(ctx context.Context, sessionToken string) (*upstream.VerifyResult, error)
	Me(ctx context.Context, token string) (*upstream.User, error)
}

// AuditRecorder records auth events without failing the request.
type AuditRecorder interface {
	RecordAsync(ctx context.Context, entry *audit.Entry)
}

// AuthService handles authentication operations
type AuthService struct {
	api          MarketplaceAuth
	sessions     auth.SessionStore
	challenges   auth.ChallengeStore
	capabilities auth.CapabilityStore
	jwtService   *auth.JWTService
	auditor      AuditRecorder
	mfaConfig    config.MFAConfig
	logger       *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	api MarketplaceAuth,
	sessions auth.SessionStore,
	challenges auth.ChallengeStore,
	capabilities auth.CapabilityStore,
	jwtService *auth.JWTService,
	auditor AuditRecorder,
	mfaConfig config.MFAConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		api:          api,
		sessions:     sessions,
		challenges:   challenges,
		capabilities: capabilities,
		jwtService:   jwtService,
		auditor:      auditor,
		mfaConfig:    mfaConfig,
		logger:       logger,
	}
}

// Login authenticates credentials against the marketplace API. Accounts with
// MFA enabled get a pending challenge instead of a session; the withheld
// access token stays upstream until ExchangeSession.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("email", input.Email))

	result, err := s.api.Login(ctx, input.Email, input.Password)
	if err != nil {
		s.record(ctx, &audit.Entry{Event: audit.EventSignInFailed, TargetID: input.Email})
		return nil, err
	}

	if result.RequiresMFA {
		if result.SessionToken == "" {
			s.logger.Error("Upstream requested MFA without a session token", zap.String("email", input.Email))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
		}
		if err := s.startChallenge(ctx, result.SessionToken, input.Email); err != nil {
			return nil, err
		}

		sess := &session.Session{}
		sess.SetMFASession(result.SessionToken, input.Email)
		if err := s.sessions.Put(ctx, result.SessionToken, sess); err != nil {
			s.logger.Error("Failed to persist pending session", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
		}

		s.logger.Info("MFA challenge issued", zap.String("email", input.Email))
		return &LoginResult{RequiresMFA: true, SessionToken: result.SessionToken}, nil
	}

	if result.User == nil || result.Token == "" {
		s.logger.Error("Upstream login response missing token or user", zap.String("email", input.Email))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
	}

	token, expiresAt, err := s.establishSession(ctx, result.Token, result.User)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Entry{
		Event:     audit.EventSignIn,
		ActorID:   result.User.ID,
		ActorRole: result.User.Role,
	})

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserInfo(result.User),
	}, nil
}

// VerifyCode consumes a pending challenge. A correct code redeems the
// upstream session token and establishes the full session; a wrong code
// burns one attempt, and exhausting attempts voids the challenge.
func (s *AuthService) VerifyCode(ctx context.Context, input VerifyCodeInput) (*VerifyCodeResult, error) {
	ch, err := s.challenges.Get(ctx, input.SessionToken)
	if err != nil {
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Verification failed. Please try again")
	}
	if ch == nil {
		return nil, shared.ErrChallengeNotFound
	}
	if time.Now().After(ch.ExpiresAt) {
		_ = s.challenges.Consume(ctx, input.SessionToken)
		return nil, shared.ErrChallengeNotFound
	}

	if !ch.MatchesCode(input.Code) {
		ch.Attempts++
		s.record(ctx, &audit.Entry{Event: audit.EventMFAFailed, TargetID: ch.Email})

		if ch.Attempts >= s.mfaConfig.MaxAttempts {
			_ = s.challenges.Consume(ctx, input.SessionToken)
			_ = s.sessions.Delete(ctx, input.SessionToken)
			s.logger.Warn("Challenge voided after too many attempts", zap.String("email", ch.Email))
			return nil, shared.NewDomainError("TOO_MANY_ATTEMPTS", "Too many incorrect codes. Please sign in again")
		}
		if err := s.challenges.Put(ctx, ch, time.Until(ch.ExpiresAt)); err != nil {
			s.logger.Error("Failed to update challenge attempts", zap.Error(err))
		}
		return nil, shared.ErrInvalidCode
	}

	if err := s.challenges.Consume(ctx, input.SessionToken); err != nil {
		s.logger.Error("Failed to consume challenge", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Verification failed. Please try again")
	}

	exchanged, err := s.api.ExchangeSession(ctx, input.SessionToken)
	if err != nil {
		return nil, err
	}
	if exchanged.User == nil || exchanged.Token == "" {
		s.logger.Error("Upstream exchange response missing token or user")
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Verification failed. Please try again")
	}

	_ = s.sessions.Delete(ctx, input.SessionToken)

	token, expiresAt, err := s.establishSession(ctx, exchanged.Token, exchanged.User)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Entry{
		Event:     audit.EventMFAVerified,
		ActorID:   exchanged.User.ID,
		ActorRole: exchanged.User.Role,
	})
	s.logger.Info("MFA verification succeeded", zap.String("user_id", exchanged.User.ID))

	return &VerifyCodeResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserInfo(exchanged.User),
	}, nil
}

// ResendCode issues a fresh code for a pending challenge, honouring the
// per-email cooldown. The fresh code replaces the old one and resets attempts.
func (s *AuthService) ResendCode(ctx context.Context, input ResendCodeInput) error {
	ch, err := s.challenges.Get(ctx, input.SessionToken)
	if err != nil {
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not resend code. Please try again")
	}
	if ch == nil {
		return shared.ErrChallengeNotFound
	}

	ok, err := s.challenges.MarkResend(ctx, ch.Email, s.mfaConfig.ResendCooldown)
	if err != nil {
		s.logger.Error("Failed to check resend cooldown", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not resend code. Please try again")
	}
	if !ok {
		seconds := int(s.mfaConfig.ResendCooldown.Seconds())
		return shared.NewDomainError("RATE_LIMITED",
			fmt.Sprintf("Please wait %d seconds before requesting another code", seconds))
	}

	if err := s.startChallenge(ctx, input.SessionToken, ch.Email); err != nil {
		return err
	}

	s.record(ctx, &audit.Entry{Event: audit.EventMFAResend, TargetID: ch.Email})
	return nil
}

// GetCurrentUser confirms the session against the marketplace API. The role
// in the cookie and JWT is a hint; this call is the authoritative check, and
// only after it does the client get its role-gated redirect target.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*CurrentUserResult, error) {
	sess, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.api.Me(ctx, sess.Token)
	if err != nil {
		return nil, err
	}

	role := session.Role(user.Role)
	if !role.Valid() {
		s.logger.Error("Upstream reported unknown role",
			zap.String("user_id", user.ID),
			zap.String("role", user.Role))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Account role could not be confirmed")
	}

	// Re-sync the session with the authoritative record.
	sess.ApplyPatch(session.UserPatch{Name: &user.Name, Email: &user.Email, Role: &role})
	if err := s.sessions.Put(ctx, userID, sess); err != nil {
		s.logger.Error("Failed to update session", zap.Error(err))
	}

	redirectTo, err := s.redirectFor(ctx, role)
	if err != nil {
		return nil, err
	}

	return &CurrentUserResult{
		User: UserInfo{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  role,
		},
		RedirectTo:      redirectTo,
		RedirectDelayMs: 2000,
	}, nil
}

// Logout removes the session record
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.logger.Error("Failed to delete session", zap.String("user_id", userID), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Sign-out failed. Please try again")
	}
	s.record(ctx, &audit.Entry{Event: audit.EventSignOut, ActorID: userID})
	return nil
}

// UpstreamToken returns the marketplace access token for an established
// session, used by services that proxy calls on the user's behalf.
func (s *AuthService) UpstreamToken(ctx context.Context, userID string) (string, error) {
	sess, err := s.loadSession(ctx, userID)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

func (s *AuthService) loadSession(ctx context.Context, userID string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load session", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Session could not be loaded")
	}
	if sess == nil || !sess.Authenticated() {
		return nil, shared.ErrSessionNotFound
	}
	return sess, nil
}

// establishSession issues the gateway JWT and persists the session keyed by
// user ID. The upstream token never reaches the client; it lives only in the
// session record.
func (s *AuthService) establishSession(ctx context.Context, upstreamToken string, user *upstream.User) (string, time.Time, error) {
	role := session.Role(user.Role)
	if !role.Valid() {
		s.logger.Error("Upstream reported unknown role",
			zap.String("user_id", user.ID),
			zap.String("role", user.Role))
		return "", time.Time{}, shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
	}

	token, expiresAt, err := s.jwtService.IssueToken(auth.IssueTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   role,
	})
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		return "", time.Time{}, shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
	}

	sess := &session.Session{}
	sess.SetAuth(upstreamToken, user.ID, user.Email, role, user.Name)
	if err := s.sessions.Put(ctx, user.ID, sess); err != nil {
		s.logger.Error("Failed to persist session", zap.Error(err))
		return "", time.Time{}, shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
	}

	return token, expiresAt, nil
}

// startChallenge generates a fresh code, stores its hash, and asks upstream
// to deliver it.
func (s *AuthService) startChallenge(ctx context.Context, sessionToken, email string) error {
	code, err := generateCode()
	if err != nil {
		s.logger.Error("Failed to generate verification code", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
	}

	ch := &auth.Challenge{
		SessionToken: sessionToken,
		Email:        email,
		CodeHash:     auth.HashCode(code),
		ExpiresAt:    time.Now().Add(s.mfaConfig.ChallengeTTL),
	}
	if err := s.challenges.Put(ctx, ch, s.mfaConfig.ChallengeTTL); err != nil {
		s.logger.Error("Failed to store challenge", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Sign-in failed. Please try again")
	}

	if err := s.api.SendMFACode(ctx, sessionToken, code); err != nil {
		return err
	}
	return nil
}

// redirectFor completes the admin dashboard path with the current capability
// segment; lister and renter dashboards are static.
func (s *AuthService) redirectFor(ctx context.Context, role session.Role) (string, error) {
	if role != session.RoleAdmin {
		return role.DashboardPath(), nil
	}
	segment, err := s.capabilities.Current(ctx)
	if err != nil {
		s.logger.Error("Failed to load capability segment", zap.Error(err))
		return "", shared.NewDomainError("INTERNAL_ERROR", "Account role could not be confirmed")
	}
	return "/admin/" + segment, nil
}

func (s *AuthService) record(ctx context.Context, entry *audit.Entry) {
	if s.auditor != nil {
		s.auditor.RecordAsync(ctx, entry)
	}
}

func toUserInfo(u *upstream.User) *UserInfo {
	return &UserInfo{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  session.Role(u.Role),
	}
}

// generateCode returns a random 6-digit one-time code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
