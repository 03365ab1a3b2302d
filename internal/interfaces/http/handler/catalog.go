package handler

import (
	"github.com/atelierloop/gateway/internal/application/rental"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the public product catalog. No session required.
type CatalogHandler struct {
	BaseHandler
	rentals *rental.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(rentals *rental.Service) *CatalogHandler {
	return &CatalogHandler{rentals: rentals}
}

// Products lists the catalog, optionally filtered by a search query
func (h *CatalogHandler) Products(c *gin.Context) {
	listings, err := h.rentals.Products(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, listings)
}

// Product returns a single listing
func (h *CatalogHandler) Product(c *gin.Context) {
	listing, err := h.rentals.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, listing)
}
