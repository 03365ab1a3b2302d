package middleware

import (
	"context"
	"net/http"

	"github.com/atelierloop/gateway/internal/infrastructure/audit"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuditRecorder records security-relevant events without failing the request.
type AuditRecorder interface {
	RecordAsync(ctx context.Context, entry *audit.Entry)
}

// AdminGuard validates the capability segment of /admin/:adminId routes.
// The response on mismatch is the same 404 the access gate renders, so
// probing a stale or guessed segment reveals nothing.
func AdminGuard(store auth.CapabilityStore, auditor AuditRecorder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		segment := c.Param("adminId")

		ok, err := auth.ValidateSegment(c.Request.Context(), store, segment)
		if err != nil {
			log.Error("Failed to load admin capability segment", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponse("INTERNAL_ERROR", "Something went wrong. Please try again."))
			return
		}
		if !ok {
			actorID, _ := GetUserID(c)
			if auditor != nil {
				auditor.RecordAsync(c.Request.Context(), &audit.Entry{
					Event:      audit.EventAdminPathRejected,
					ActorID:    actorID,
					TargetType: "admin_path",
					TargetID:   segment,
					RequestID:  c.GetString(RequestIDKey),
				})
			}
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponse("NOT_FOUND", "Resource not found"))
			return
		}

		c.Next()
	}
}
