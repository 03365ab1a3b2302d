package handler

import (
	"github.com/atelierloop/gateway/internal/application/rental"
	"github.com/atelierloop/gateway/internal/infrastructure/audit"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/atelierloop/gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the admin console behind the capability path
type AdminHandler struct {
	BaseHandler
	rentals      *rental.Service
	capabilities auth.CapabilityStore
	adminCfg     config.AdminConfig
	auditor      middleware.AuditRecorder
	logger       *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	rentals *rental.Service,
	capabilities auth.CapabilityStore,
	adminCfg config.AdminConfig,
	auditor middleware.AuditRecorder,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		rentals:      rentals,
		capabilities: capabilities,
		adminCfg:     adminCfg,
		auditor:      auditor,
		logger:       logger,
	}
}

// Users lists marketplace accounts
func (h *AdminHandler) Users(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	users, err := h.rentals.AdminUsers(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, users)
}

// SuspendUser suspends a marketplace account
func (h *AdminHandler) SuspendUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	suspended, err := h.rentals.SuspendUser(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, suspended)
}

// ResolveDispute closes a dispute with a verdict
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	dispute, err := h.rentals.ResolveDispute(c.Request.Context(), userID, c.Param("id"), req.Verdict)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dispute)
}

// RotateCapability replaces the admin path segment. The old segment stops
// validating immediately; the caller must navigate to the returned one.
func (h *AdminHandler) RotateCapability(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	segment, err := h.capabilities.Rotate(c.Request.Context(), h.adminCfg.CapabilityTTL)
	if err != nil {
		h.logger.Error("Failed to rotate capability segment", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	if h.auditor != nil {
		h.auditor.RecordAsync(c.Request.Context(), &audit.Entry{
			Event:      audit.EventCapabilityRotated,
			ActorID:    userID,
			ActorRole:  "ADMIN",
			TargetType: "admin_path",
			RequestID:  c.GetString(middleware.RequestIDKey),
		})
	}

	h.Success(c, RotateCapabilityResponse{Segment: segment})
}
