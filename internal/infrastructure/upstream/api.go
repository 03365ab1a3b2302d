package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// LoginResult is the upstream response to a credential login. A sessionToken
// with requiresMFA means the account needs one-time-code verification before
// the access token can be redeemed; a token means the account has MFA
// disabled and is fully authenticated.
type LoginResult struct {
	Token        string `json:"token"`
	SessionToken string `json:"sessionToken"`
	RequiresMFA  bool   `json:"requiresMFA"`
	User         *User  `json:"user"`
}

// VerifyResult is the upstream response to a session token exchange
type VerifyResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// User is the upstream account record
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Suspended bool   `json:"suspended"`
}

// Listing is a rentable garment listing
type Listing struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Brand        string          `json:"brand"`
	Size         string          `json:"size"`
	DailyPrice   decimal.Decimal `json:"dailyPrice"`
	RetailPrice  decimal.Decimal `json:"retailPrice"`
	ImageURL     string          `json:"imageUrl"`
	OwnerID      string          `json:"ownerId"`
	Availability string          `json:"availability"`
}

// OrderRecord is an upstream rental order
type OrderRecord struct {
	ID          string          `json:"id"`
	ListingID   string          `json:"listingId"`
	RenterID    string          `json:"renterId"`
	RenterName  string          `json:"renterName"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// HoldRecord is an upstream cart hold reserving a listing for checkout
type HoldRecord struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listingId"`
	RenterID  string          `json:"renterId"`
	Listing   *Listing        `json:"listing"`
	Price     decimal.Decimal `json:"price"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Released  bool            `json:"released"`
}

// WalletRecord is an upstream lister wallet
type WalletRecord struct {
	Balance        decimal.Decimal `json:"balance"`
	PendingBalance decimal.Decimal `json:"pendingBalance"`
	Currency       string          `json:"currency"`
}

// DisputeRecord is an upstream rental dispute
type DisputeRecord struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	OpenedBy  string    `json:"openedBy"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Login authenticates credentials against the marketplace API
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResult
	if err := c.Do(ctx, http.MethodPost, "/auth/login", body, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMFACode asks the marketplace API to email a one-time code to the
// account behind a pending login session. The gateway generates and verifies
// the code; upstream only owns delivery.
func (c *Client) SendMFACode(ctx context.Context, sessionToken, code string) error {
	body := map[string]string{"sessionToken": sessionToken, "code": code}
	return c.Do(ctx, http.MethodPost, "/auth/mfa/send", body, nil, "")
}

// ExchangeSession redeems a pending session token for the real access token.
// Only callable with the service API key, after the gateway's code
// verification has passed.
func (c *Client) ExchangeSession(ctx context.Context, sessionToken string) (*VerifyResult, error) {
	body := map[string]string{"sessionToken": sessionToken}
	var out VerifyResult
	if err := c.Do(ctx, http.MethodPost, "/auth/session/exchange", body, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the authoritative account record for a token
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListerOrders lists rental orders for the authenticated lister's listings
func (c *Client) ListerOrders(ctx context.Context, token string) ([]OrderRecord, error) {
	var out []OrderRecord
	if err := c.Do(ctx, http.MethodGet, "/lister/orders", nil, &out, token); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder fetches a single order, used to re-check expiry before acting on it
func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*OrderRecord, error) {
	var out OrderRecord
	if err := c.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveOrder approves a pending rental order
func (c *Client) ApproveOrder(ctx context.Context, token, orderID string) (*OrderRecord, error) {
	var out OrderRecord
	path := fmt.Sprintf("/orders/%s/approve", url.PathEscape(orderID))
	if err := c.Do(ctx, http.MethodPost, path, nil, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectOrder rejects a pending rental order
func (c *Client) RejectOrder(ctx context.Context, token, orderID, reason string) (*OrderRecord, error) {
	var out OrderRecord
	path := fmt.Sprintf("/orders/%s/reject", url.PathEscape(orderID))
	body := map[string]string{"reason": reason}
	if err := c.Do(ctx, http.MethodPost, path, body, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListerListings lists the authenticated lister's garment listings
func (c *Client) ListerListings(ctx context.Context, token string) ([]Listing, error) {
	var out []Listing
	if err := c.Do(ctx, http.MethodGet, "/lister/listings", nil, &out, token); err != nil {
		return nil, err
	}
	return out, nil
}

// RenterHolds lists the authenticated renter's active cart holds
func (c *Client) RenterHolds(ctx context.Context, token string) ([]HoldRecord, error) {
	var out []HoldRecord
	if err := c.Do(ctx, http.MethodGet, "/renter/holds", nil, &out, token); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHold fetches a single cart hold
func (c *Client) GetHold(ctx context.Context, token, holdID string) (*HoldRecord, error) {
	var out HoldRecord
	if err := c.Do(ctx, http.MethodGet, "/holds/"+url.PathEscape(holdID), nil, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Checkout converts a cart hold into a rental order
func (c *Client) Checkout(ctx context.Context, token, holdID string) (*OrderRecord, error) {
	var out OrderRecord
	path := fmt.Sprintf("/holds/%s/checkout", url.PathEscape(holdID))
	if err := c.Do(ctx, http.MethodPost, path, nil, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReleaseHold releases a cart hold, freeing the listing
func (c *Client) ReleaseHold(ctx context.Context, token, holdID string) error {
	path := fmt.Sprintf("/holds/%s/release", url.PathEscape(holdID))
	return c.Do(ctx, http.MethodPost, path, nil, nil, token)
}

// ExpiredHolds lists holds past their expiry that have not been released.
// Called by the sweep loop with the service API key rather than a user token.
func (c *Client) ExpiredHolds(ctx context.Context) ([]HoldRecord, error) {
	var out []HoldRecord
	if err := c.Do(ctx, http.MethodGet, "/holds/expired", nil, &out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// Wallet fetches the lister's wallet balances
func (c *Client) Wallet(ctx context.Context, token string) (*WalletRecord, error) {
	var out WalletRecord
	if err := c.Do(ctx, http.MethodGet, "/lister/wallet", nil, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestWithdrawal asks to move wallet funds to the lister's bank account
func (c *Client) RequestWithdrawal(ctx context.Context, token string, amount decimal.Decimal) error {
	body := map[string]string{"amount": amount.String()}
	return c.Do(ctx, http.MethodPost, "/lister/wallet/withdrawals", body, nil, token)
}

// Disputes lists rental disputes visible to the caller
func (c *Client) Disputes(ctx context.Context, token string) ([]DisputeRecord, error) {
	var out []DisputeRecord
	if err := c.Do(ctx, http.MethodGet, "/disputes", nil, &out, token); err != nil {
		return nil, err
	}
	return out, nil
}

// OpenDispute opens a dispute against an order
func (c *Client) OpenDispute(ctx context.Context, token, orderID, reason string) (*DisputeRecord, error) {
	body := map[string]string{"orderId": orderID, "reason": reason}
	var out DisputeRecord
	if err := c.Do(ctx, http.MethodPost, "/disputes", body, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUsers lists marketplace accounts, admin only
func (c *Client) AdminUsers(ctx context.Context, token string) ([]User, error) {
	var out []User
	if err := c.Do(ctx, http.MethodGet, "/admin/users", nil, &out, token); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminSuspendUser suspends a marketplace account, admin only
func (c *Client) AdminSuspendUser(ctx context.Context, token, userID string) (*User, error) {
	path := fmt.Sprintf("/admin/users/%s/suspend", url.PathEscape(userID))
	var out User
	if err := c.Do(ctx, http.MethodPost, path, nil, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminResolveDispute resolves a dispute with a verdict, admin only
func (c *Client) AdminResolveDispute(ctx context.Context, token, disputeID, verdict string) (*DisputeRecord, error) {
	path := fmt.Sprintf("/admin/disputes/%s/resolve", url.PathEscape(disputeID))
	body := map[string]string{"verdict": verdict}
	var out DisputeRecord
	if err := c.Do(ctx, http.MethodPost, path, body, &out, token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Products lists public listings for browsing, no authentication required
func (c *Client) Products(ctx context.Context, query string) ([]Listing, error) {
	path := "/products"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out []Listing
	if err := c.Do(ctx, http.MethodGet, path, nil, &out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches a single public listing
func (c *Client) GetProduct(ctx context.Context, listingID string) (*Listing, error) {
	var out Listing
	if err := c.Do(ctx, http.MethodGet, "/products/"+url.PathEscape(listingID), nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}
