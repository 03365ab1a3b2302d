package middleware

import (
	"net/http"
	"strings"

	"github.com/atelierloop/gateway/internal/domain/session"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/infrastructure/logger"
	"github.com/atelierloop/gateway/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Cookie names shared by the session resolver, the access gate and the
// auth handlers.
const (
	TokenCookieName = "token"
	RoleCookieName  = "user_role"
)

// Context keys for authenticated user information
const (
	ClaimsKey    = "session_claims"
	UserIDKey    = "user_id"
	UserRoleKey  = "user_role"
	UserEmailKey = "user_email"
)

// Session resolves the signed token cookie into session claims. Resolution
// is best-effort: requests without a valid cookie pass through anonymous,
// and RequireAuth decides per route whether that is acceptable.
func Session(jwtService *auth.JWTService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			// An expired or tampered cookie is the same as no cookie.
			c.Next()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserRoleKey, string(claims.Role))
		c.Set(UserEmailKey, claims.Email)

		ctx, enriched := logger.WithUserID(c.Request.Context(), log, claims.UserID)
		ctx, _ = logger.WithRole(ctx, enriched, string(claims.Role))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractToken reads the session token from the cookie, falling back to the
// Authorization header for non-browser clients.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RequireAuth aborts requests that carry no established session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetClaims(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse("UNAUTHORIZED", "Authentication required"))
			return
		}
		c.Next()
	}
}

// RequireRole aborts authenticated requests whose role does not match
func RequireRole(roles ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse("UNAUTHORIZED", "Authentication required"))
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponse("FORBIDDEN", "Insufficient permissions"))
	}
}

// GetClaims retrieves the session claims from the gin context
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// GetUserID retrieves the authenticated user ID from the gin context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}

// GetRole retrieves the authenticated role from the gin context
func GetRole(c *gin.Context) (session.Role, bool) {
	role := c.GetString(UserRoleKey)
	return session.Role(role), role != ""
}
