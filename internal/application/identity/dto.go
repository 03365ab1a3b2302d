package identity

import (
	"time"

	"github.com/atelierloop/gateway/internal/domain/session"
)

// LoginInput contains credentials for a sign-in attempt
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is the outcome of a sign-in attempt. When RequiresMFA is set
// only SessionToken is populated; the full session comes from VerifyCode.
type LoginResult struct {
	RequiresMFA  bool
	SessionToken string

	Token     string
	ExpiresAt time.Time
	User      *UserInfo
}

// VerifyCodeInput contains a one-time code submission
type VerifyCodeInput struct {
	SessionToken string
	Code         string
}

// VerifyCodeResult is the established session after code verification.
// The role carried here is not yet confirmed; GetCurrentUser is the
// authoritative check before any role-gated redirect.
type VerifyCodeResult struct {
	Token     string
	ExpiresAt time.Time
	User      *UserInfo
}

// ResendCodeInput identifies the pending challenge to re-send a code for
type ResendCodeInput struct {
	SessionToken string
}

// CurrentUserResult carries the confirmed account plus the post-confirmation
// redirect. RedirectDelayMs is cosmetic; clients may navigate sooner.
type CurrentUserResult struct {
	User            UserInfo
	RedirectTo      string
	RedirectDelayMs int
}

// UserInfo is the account view returned to handlers
type UserInfo struct {
	ID    string
	Name  string
	Email string
	Role  session.Role
}
