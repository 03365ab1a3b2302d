package rental

import (
	"time"

	domain "github.com/atelierloop/gateway/internal/domain/rental"
	"github.com/shopspring/decimal"
)

// OrderView is an order decorated with the countdown projection and the
// actions still available at render time.
type OrderView struct {
	ID             string          `json:"id"`
	ListingID      string          `json:"listingId"`
	RenterID       string          `json:"renterId"`
	RenterName     string          `json:"renterName,omitempty"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	Countdown      domain.Snapshot `json:"countdown"`
	AllowedActions []string        `json:"allowedActions"`
}

// HoldView is a cart hold decorated with the countdown projection
type HoldView struct {
	ID             string          `json:"id"`
	ListingID      string          `json:"listingId"`
	ListingTitle   string          `json:"listingTitle,omitempty"`
	Price          decimal.Decimal `json:"price"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	Released       bool            `json:"released"`
	Countdown      domain.Snapshot `json:"countdown"`
	AllowedActions []string        `json:"allowedActions"`
}

// WalletView is the lister's wallet balance
type WalletView struct {
	Balance        decimal.Decimal `json:"balance"`
	PendingBalance decimal.Decimal `json:"pendingBalance"`
	Currency       string          `json:"currency"`
}

// WithdrawInput requests a wallet withdrawal
type WithdrawInput struct {
	Amount decimal.Decimal
}

// DisputeView is a rental dispute
type DisputeView struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	OpenedBy  string    `json:"openedBy"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// UploadTicket is a presigned upload slot for a listing photo
type UploadTicket struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}
