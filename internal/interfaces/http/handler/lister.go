package handler

import (
	"strings"

	"github.com/atelierloop/gateway/internal/application/rental"
	"github.com/atelierloop/gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ListerHandler serves the lister dashboard: incoming orders, the wallet
// and listing photo uploads.
type ListerHandler struct {
	BaseHandler
	rentals *rental.Service
}

// NewListerHandler creates a new lister handler
func NewListerHandler(rentals *rental.Service) *ListerHandler {
	return &ListerHandler{rentals: rentals}
}

// Orders lists the lister's incoming orders with live countdowns
func (h *ListerHandler) Orders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	orders, err := h.rentals.ListOrders(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// ApproveOrder approves a pending order. The approval window is re-checked
// against the marketplace at submit time, so a countdown that ran out while
// the page was open yields ORDER_EXPIRED rather than a stale approval.
func (h *ListerHandler) ApproveOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	order, err := h.rentals.ApproveOrder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RejectOrder rejects a pending order
func (h *ListerHandler) RejectOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req RejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.rentals.RejectOrder(c.Request.Context(), userID, c.Param("id"), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Listings lists the lister's own garments
func (h *ListerHandler) Listings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	listings, err := h.rentals.ListListings(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, listings)
}

// Wallet returns the lister's balance
func (h *ListerHandler) Wallet(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	wallet, err := h.rentals.Wallet(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, wallet)
}

// Withdraw requests a payout from the wallet balance
func (h *ListerHandler) Withdraw(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.rentals.Withdraw(c.Request.Context(), userID, rental.WithdrawInput{
		Amount: req.Amount,
	}); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Withdrawal requested"})
}

// PresignUpload issues a presigned upload slot for a listing photo
func (h *ListerHandler) PresignUpload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ticket, err := h.rentals.PresignListingImage(c.Request.Context(), userID, c.Param("id"), req.ContentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ticket)
}

// DeleteImage removes an uploaded listing photo. The key is a wildcard
// parameter because object keys contain slashes.
func (h *ListerHandler) DeleteImage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := h.rentals.RemoveListingImage(c.Request.Context(), userID, c.Param("id"), key); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
