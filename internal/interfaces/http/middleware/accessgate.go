package middleware

import (
	"net/http"
	"strings"

	"github.com/atelierloop/gateway/internal/domain/session"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Decision is the outcome of the edge access gate for a request path.
type Decision int

const (
	// DecisionAllow lets the request through.
	DecisionAllow Decision = iota
	// DecisionNotFound hides the route. Used for admin paths so an
	// unauthenticated probe cannot distinguish them from dead routes.
	DecisionNotFound
	// DecisionRedirect sends the browser to the sign-in page.
	DecisionRedirect
)

// SignInPath is the redirect target for unauthenticated dashboard access.
const SignInPath = "/auth/sign-in"

// exemptPrefixes are infrastructure paths the gate never inspects. API
// routes authorize per-endpoint instead.
var exemptPrefixes = []string{"/_next", "/api/", "/static/", "/public/"}

// protectedRoots require a session, both as the bare path and as a prefix.
// The dressers root is a deprecated alias for listers that still receives
// traffic from old bookmarks.
var protectedRoots = []string{"/listers", "/dressers"}

// Decide evaluates the access policy for a path. It is a pure function of
// the path and the resolved auth state so the policy can be tested without
// a running server.
func Decide(path string, hasToken bool, role session.Role) Decision {
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return DecisionAllow
		}
	}

	if path == "/admin" || strings.HasPrefix(path, "/admin/") {
		if !hasToken || role != session.RoleAdmin {
			return DecisionNotFound
		}
		return DecisionAllow
	}

	for _, root := range protectedRoots {
		if path == root || strings.HasPrefix(path, root+"/") {
			if !hasToken {
				return DecisionRedirect
			}
			return DecisionAllow
		}
	}

	return DecisionAllow
}

// AccessGate enforces the routing policy at the edge, before any handler
// runs. The signed token cookie is the authoritative source of role; the
// readable user_role cookie exists for clients only and never satisfies a
// gate check.
func AccessGate(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		hasToken := false
		var role session.Role

		if token := extractToken(c); token != "" {
			claims, err := jwtService.ValidateToken(token)
			if err == nil {
				hasToken = true
				role = claims.Role
			}
		}

		switch Decide(c.Request.URL.Path, hasToken, role) {
		case DecisionNotFound:
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponse("NOT_FOUND", "Resource not found"))
		case DecisionRedirect:
			c.Redirect(http.StatusFound, SignInPath)
			c.Abort()
		default:
			c.Next()
		}
	}
}
