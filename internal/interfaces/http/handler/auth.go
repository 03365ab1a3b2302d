package handler

import (
	"net/http"
	"strings"

	"github.com/atelierloop/gateway/internal/application/identity"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/atelierloop/gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles the sign-in flow and the cookie bridge
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
	cookies     config.CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService, cookies config.CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

// Login authenticates against the marketplace. Accounts with MFA enabled
// get a sessionToken back instead of cookies; the session is only
// established after VerifyCode.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.RequiresMFA {
		h.Success(c, LoginResponse{
			RequiresMFA:  true,
			SessionToken: result.SessionToken,
		})
		return
	}

	h.setAuthCookies(c, result.Token, string(result.User.Role))
	h.Success(c, LoginResponse{User: toAuthUser(result.User)})
}

// VerifyCode redeems a pending MFA challenge and establishes the session
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.authService.VerifyCode(c.Request.Context(), identity.VerifyCodeInput{
		SessionToken: req.SessionToken,
		Code:         req.Code,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setAuthCookies(c, result.Token, string(result.User.Role))
	h.Success(c, LoginResponse{User: toAuthUser(result.User)})
}

// ResendCode issues a fresh code for a pending challenge
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.authService.ResendCode(c.Request.Context(), identity.ResendCodeInput{
		SessionToken: req.SessionToken,
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "A new code has been sent"})
}

// GetCurrentUser confirms the session against the marketplace and returns
// the account plus the role-gated redirect target.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	result, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CurrentUserResponse{
		User:            *toAuthUser(&result.User),
		RedirectTo:      result.RedirectTo,
		RedirectDelayMs: result.RedirectDelayMs,
	})
}

// Logout drops the server-side session and clears both cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	if userID, ok := middleware.GetUserID(c); ok {
		if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	h.clearAuthCookies(c)
	h.Success(c, gin.H{"message": "Logged out successfully"})
}

// SetToken is the cookie bridge: it stores a token the client already holds
// into the httpOnly cookie pair.
func (h *AuthHandler) SetToken(c *gin.Context) {
	var req SetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		h.BadRequest(c, "Token is required")
		return
	}

	h.setAuthCookies(c, req.Token, req.UserRole)
	h.Success(c, gin.H{"message": "Token stored"})
}

// ClearToken overwrites both cookies with immediately expiring values
func (h *AuthHandler) ClearToken(c *gin.Context) {
	h.clearAuthCookies(c)
	h.Success(c, gin.H{"message": "Token cleared"})
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, token, role string) {
	maxAge := int(h.cookies.MaxAge.Seconds())
	c.SetSameSite(sameSiteMode(h.cookies.SameSite))
	// The token cookie is httpOnly; user_role is readable so a no-JS client
	// can still branch on role, but the gate never trusts it.
	c.SetCookie(middleware.TokenCookieName, token, maxAge, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(middleware.RoleCookieName, role, maxAge, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, false)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(sameSiteMode(h.cookies.SameSite))
	c.SetCookie(middleware.TokenCookieName, "", -1, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(middleware.RoleCookieName, "", -1, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, false)
}

func sameSiteMode(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func toAuthUser(u *identity.UserInfo) *AuthUserResponse {
	if u == nil {
		return nil
	}
	return &AuthUserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
	}
}
