package handler

import (
	"github.com/atelierloop/gateway/internal/application/rental"
	"github.com/atelierloop/gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// RenterHandler serves the renter side: cart holds, checkout and disputes.
type RenterHandler struct {
	BaseHandler
	rentals *rental.Service
}

// NewRenterHandler creates a new renter handler
func NewRenterHandler(rentals *rental.Service) *RenterHandler {
	return &RenterHandler{rentals: rentals}
}

// Holds lists the renter's cart holds with live countdowns
func (h *RenterHandler) Holds(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	holds, err := h.rentals.ListHolds(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, holds)
}

// Checkout converts a hold into an order. The hold window is re-checked at
// submit time; a hold that lapsed while the cart was open yields
// HOLD_EXPIRED instead of a checkout on a released item.
func (h *RenterHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	order, err := h.rentals.Checkout(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// ReleaseHold gives up a hold before it expires
func (h *RenterHandler) ReleaseHold(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.rentals.ReleaseHold(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Disputes lists the renter's disputes
func (h *RenterHandler) Disputes(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	disputes, err := h.rentals.Disputes(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, disputes)
}

// OpenDispute opens a dispute against an order
func (h *RenterHandler) OpenDispute(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	dispute, err := h.rentals.OpenDispute(c.Request.Context(), userID, req.OrderID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dispute)
}
