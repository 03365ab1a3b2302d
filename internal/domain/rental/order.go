package rental

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the marketplace API's order lifecycle states that the
// gateway needs to reason about. Anything else is passed through untouched.
type OrderStatus string

const (
	OrderPendingApproval OrderStatus = "PENDING_APPROVAL"
	OrderApproved        OrderStatus = "APPROVED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// Action names a mutating operation a client may perform on an entity.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionCheckout Action = "checkout"
)

// Order is a pending rental order as seen by a lister, decorated with the
// gateway's countdown projection. The upstream API remains authoritative for
// the real expiry; the projection only drives display and first-line gating.
type Order struct {
	ID          string          `json:"id"`
	ListingID   string          `json:"listingId"`
	RenterID    string          `json:"renterId"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// Countdown returns the order's approval-window countdown.
func (o Order) Countdown() Countdown {
	return NewCountdown(o.ExpiresAt)
}

// AllowedActions lists the mutating actions still available at the given
// instant. Expired orders keep no actions; the server re-checks this at
// submit time regardless of what any client displayed.
func (o Order) AllowedActions(now time.Time) []Action {
	if o.Status != OrderPendingApproval || o.Countdown().Expired(now) {
		return nil
	}
	return []Action{ActionApprove, ActionReject}
}

// CartHold reserves a listing in a renter's cart until its expiry.
type CartHold struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listingId"`
	RenterID  string          `json:"renterId"`
	Price     decimal.Decimal `json:"price"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Released  bool            `json:"released"`
}

// Countdown returns the hold's remaining reservation window.
func (h CartHold) Countdown() Countdown {
	return NewCountdown(h.ExpiresAt)
}

// AllowedActions lists the mutating actions still available for the hold.
func (h CartHold) AllowedActions(now time.Time) []Action {
	if h.Released || h.Countdown().Expired(now) {
		return nil
	}
	return []Action{ActionCheckout}
}
