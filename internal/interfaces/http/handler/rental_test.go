package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atelierloop/gateway/internal/application/rental"
	"github.com/atelierloop/gateway/internal/domain/shared"
	"github.com/atelierloop/gateway/internal/infrastructure/upstream"
	"github.com/atelierloop/gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubRentals scripts the marketplace rental endpoints. Unset fields make
// the corresponding call return its zero value.
type stubRentals struct {
	orders   []upstream.OrderRecord
	order    *upstream.OrderRecord
	hold     *upstream.HoldRecord
	holds    []upstream.HoldRecord
	approved bool
}

func (s *stubRentals) ListerOrders(context.Context, string) ([]upstream.OrderRecord, error) {
	return s.orders, nil
}

func (s *stubRentals) GetOrder(context.Context, string, string) (*upstream.OrderRecord, error) {
	return s.order, nil
}

func (s *stubRentals) ApproveOrder(_ context.Context, _, _ string) (*upstream.OrderRecord, error) {
	s.approved = true
	rec := *s.order
	rec.Status = "APPROVED"
	return &rec, nil
}

func (s *stubRentals) RejectOrder(_ context.Context, _, _, _ string) (*upstream.OrderRecord, error) {
	rec := *s.order
	rec.Status = "REJECTED"
	return &rec, nil
}

func (s *stubRentals) RenterHolds(context.Context, string) ([]upstream.HoldRecord, error) {
	return s.holds, nil
}

func (s *stubRentals) GetHold(context.Context, string, string) (*upstream.HoldRecord, error) {
	return s.hold, nil
}

func (s *stubRentals) Checkout(_ context.Context, _, holdID string) (*upstream.OrderRecord, error) {
	return &upstream.OrderRecord{
		ID:        "order-from-" + holdID,
		Status:    "PENDING",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (s *stubRentals) ReleaseHold(context.Context, string, string) error { return nil }

func (s *stubRentals) Wallet(context.Context, string) (*upstream.WalletRecord, error) {
	return &upstream.WalletRecord{Balance: decimal.RequireFromString("120.50"), Currency: "USD"}, nil
}

func (s *stubRentals) RequestWithdrawal(context.Context, string, decimal.Decimal) error { return nil }

func (s *stubRentals) Disputes(context.Context, string) ([]upstream.DisputeRecord, error) {
	return nil, nil
}

func (s *stubRentals) OpenDispute(_ context.Context, _, orderID, reason string) (*upstream.DisputeRecord, error) {
	return &upstream.DisputeRecord{ID: "d1", OrderID: orderID, Reason: reason, Status: "OPEN"}, nil
}

func (s *stubRentals) ListerListings(context.Context, string) ([]upstream.Listing, error) {
	return []upstream.Listing{{ID: "l1", Title: "Silk gown", OwnerID: "u1"}}, nil
}

func (s *stubRentals) AdminUsers(context.Context, string) ([]upstream.User, error) { return nil, nil }

func (s *stubRentals) AdminSuspendUser(_ context.Context, _, userID string) (*upstream.User, error) {
	return &upstream.User{ID: userID, Suspended: true}, nil
}

func (s *stubRentals) AdminResolveDispute(_ context.Context, _, disputeID, verdict string) (*upstream.DisputeRecord, error) {
	return &upstream.DisputeRecord{ID: disputeID, Status: "RESOLVED", Reason: verdict}, nil
}

func (s *stubRentals) Products(context.Context, string) ([]upstream.Listing, error) {
	return []upstream.Listing{{ID: "l1", Title: "Silk gown"}}, nil
}

func (s *stubRentals) GetProduct(context.Context, string) (*upstream.Listing, error) {
	return &upstream.Listing{ID: "l1", Title: "Silk gown"}, nil
}

// sessionTokens resolves every known user to a static upstream token.
type sessionTokens struct{ known string }

func (s sessionTokens) UpstreamToken(_ context.Context, userID string) (string, error) {
	if userID != s.known {
		return "", shared.ErrSessionNotFound
	}
	return "upstream-" + userID, nil
}

func rentalRouter(api rental.MarketplaceRentals) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := rental.NewService(api, sessionTokens{known: "u1"}, nil, nil, zap.NewNop())

	lister := NewListerHandler(svc)
	renter := NewRenterHandler(svc)
	catalog := NewCatalogHandler(svc)

	r := gin.New()
	r.Use(fakeSession("u1"))
	r.GET("/api/v1/lister/orders", lister.Orders)
	r.POST("/api/v1/lister/orders/:id/approve", lister.ApproveOrder)
	r.POST("/api/v1/lister/orders/:id/reject", lister.RejectOrder)
	r.GET("/api/v1/lister/listings", lister.Listings)
	r.GET("/api/v1/lister/wallet", lister.Wallet)
	r.POST("/api/v1/lister/wallet/withdraw", lister.Withdraw)
	r.GET("/api/v1/renter/holds", renter.Holds)
	r.POST("/api/v1/renter/holds/:id/checkout", renter.Checkout)
	r.DELETE("/api/v1/renter/holds/:id", renter.ReleaseHold)
	r.GET("/api/v1/products", catalog.Products)
	return r
}

// fakeSession injects an authenticated user the way the session middleware
// would after validating a cookie.
func fakeSession(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	}
}

func TestApproveOrderInsideWindow(t *testing.T) {
	api := &stubRentals{
		order: &upstream.OrderRecord{
			ID:          "o1",
			Status:      "PENDING",
			TotalAmount: decimal.RequireFromString("300"),
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}
	r := rentalRouter(api)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/lister/orders/o1/approve", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, api.approved)
	assert.Contains(t, w.Body.String(), `"status":"APPROVED"`)
}

func TestApproveOrderExpiredAtSubmit(t *testing.T) {
	api := &stubRentals{
		order: &upstream.OrderRecord{
			ID:        "o1",
			Status:    "PENDING",
			ExpiresAt: time.Now().Add(-time.Minute),
		},
	}
	r := rentalRouter(api)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/lister/orders/o1/approve", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ORDER_EXPIRED")
	assert.False(t, api.approved, "expired order must never reach the marketplace")
}

func TestCheckoutExpiredHold(t *testing.T) {
	api := &stubRentals{
		hold: &upstream.HoldRecord{
			ID:        "h1",
			ExpiresAt: time.Now().Add(-time.Minute),
		},
	}
	r := rentalRouter(api)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/renter/holds/h1/checkout", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "HOLD_EXPIRED")
}

func TestCheckoutActiveHold(t *testing.T) {
	api := &stubRentals{
		hold: &upstream.HoldRecord{
			ID:        "h1",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		},
	}
	r := rentalRouter(api)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/renter/holds/h1/checkout", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "order-from-h1")
}

func TestHoldsIncludeCountdown(t *testing.T) {
	api := &stubRentals{
		holds: []upstream.HoldRecord{{
			ID:        "h1",
			ExpiresAt: time.Now().Add(90 * time.Second),
		}},
	}
	r := rentalRouter(api)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/renter/holds", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display"`)
	assert.Contains(t, w.Body.String(), `"expired":false`)
}

type stubImages struct{ deleted string }

func (s *stubImages) PresignUpload(_ context.Context, listingID, _ string) (string, string, time.Time, error) {
	return "listings/" + listingID + "/photo.jpg", "http://signed.example", time.Now().Add(15 * time.Minute), nil
}

func (s *stubImages) DeleteImage(_ context.Context, key string) error {
	s.deleted = key
	return nil
}

func TestDeleteListingImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	images := &stubImages{}
	svc := rental.NewService(&stubRentals{}, sessionTokens{known: "u1"}, images, nil, zap.NewNop())
	lister := NewListerHandler(svc)

	r := gin.New()
	r.Use(fakeSession("u1"))
	r.DELETE("/api/v1/lister/listings/:id/images/*key", lister.DeleteImage)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete,
		"/api/v1/lister/listings/l1/images/listings/l1/photo.jpg", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "listings/l1/photo.jpg", images.deleted)
}

func TestListerListings(t *testing.T) {
	r := rentalRouter(&stubRentals{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/lister/listings", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Silk gown")
}

func TestAnonymousRequestRejected(t *testing.T) {
	r := rentalRouter(&stubRentals{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lister/orders", nil)
	req.Header.Set("X-Anonymous", "1")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWithdrawRejectsNonPositiveAmount(t *testing.T) {
	r := rentalRouter(&stubRentals{})

	w := postJSON(r, "/api/v1/lister/wallet/withdraw", gin.H{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_INPUT")
}

func TestProductsArePublic(t *testing.T) {
	r := rentalRouter(&stubRentals{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("X-Anonymous", "1")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Silk gown")
}
