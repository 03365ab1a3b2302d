// Package rental orchestrates order, cart-hold, wallet, and dispute calls
// against the marketplace API on behalf of signed-in users. The gateway adds
// two things on top of the proxy: the countdown projection on time-bounded
// entities, and a server-side expiry re-check before any mutating submit.
package rental

import (
	"context"
	"strings"
	"time"

	domain "github.com/atelierloop/gateway/internal/domain/rental"
	"github.com/atelierloop/gateway/internal/domain/shared"
	"github.com/atelierloop/gateway/internal/infrastructure/audit"
	"github.com/atelierloop/gateway/internal/infrastructure/upstream"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketplaceRentals is the slice of the marketplace API used here
type MarketplaceRentals interface {
	ListerOrders(ctx context.Context, token string) ([]upstream.OrderRecord, error)
	GetOrder(ctx context.Context, token, orderID string) (*upstream.OrderRecord, error)
	ApproveOrder(ctx context.Context, token, orderID string) (*upstream.OrderRecord, error)
	RejectOrder(ctx context.Context, token, orderID, reason string) (*upstream.OrderRecord, error)
	ListerListings(ctx context.Context, token string) ([]upstream.Listing, error)

	RenterHolds(ctx context.Context, token string) ([]upstream.HoldRecord, error)
	GetHold(ctx context.Context, token, holdID string) (*upstream.HoldRecord, error)
	Checkout(ctx context.Context, token, holdID string) (*upstream.OrderRecord, error)
	ReleaseHold(ctx context.Context, token, holdID string) error

	Wallet(ctx context.Context, token string) (*upstream.WalletRecord, error)
	RequestWithdrawal(ctx context.Context, token string, amount decimal.Decimal) error

	Disputes(ctx context.Context, token string) ([]upstream.DisputeRecord, error)
	OpenDispute(ctx context.Context, token, orderID, reason string) (*upstream.DisputeRecord, error)

	AdminUsers(ctx context.Context, token string) ([]upstream.User, error)
	AdminSuspendUser(ctx context.Context, token, userID string) (*upstream.User, error)
	AdminResolveDispute(ctx context.Context, token, disputeID, verdict string) (*upstream.DisputeRecord, error)

	Products(ctx context.Context, query string) ([]upstream.Listing, error)
	GetProduct(ctx context.Context, listingID string) (*upstream.Listing, error)
}

// TokenSource resolves a user's upstream access token from their session
type TokenSource interface {
	UpstreamToken(ctx context.Context, userID string) (string, error)
}

// ImageStore issues presigned upload slots for listing photos and removes
// uploaded ones.
type ImageStore interface {
	PresignUpload(ctx context.Context, listingID, contentType string) (string, string, time.Time, error)
	DeleteImage(ctx context.Context, key string) error
}

// AuditRecorder records rental events
type AuditRecorder interface {
	RecordAsync(ctx context.Context, entry *audit.Entry)
}

// Service handles rental orchestration
type Service struct {
	api     MarketplaceRentals
	tokens  TokenSource
	images  ImageStore
	auditor AuditRecorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a rental service. images and auditor may be nil.
func NewService(api MarketplaceRentals, tokens TokenSource, images ImageStore, auditor AuditRecorder, logger *zap.Logger) *Service {
	return &Service{
		api:     api,
		tokens:  tokens,
		images:  images,
		auditor: auditor,
		logger:  logger,
		now:     time.Now,
	}
}

// ListOrders returns the lister's incoming rental orders decorated with
// countdowns and allowed actions.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]OrderView, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.api.ListerOrders(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]OrderView, 0, len(records))
	for _, rec := range records {
		views = append(views, toOrderView(rec, now))
	}
	return views, nil
}

// ApproveOrder approves a pending order. The approval window is re-checked
// here at submit time: an expired order is rejected no matter how recent the
// client's countdown display was.
func (s *Service) ApproveOrder(ctx context.Context, userID, orderID string) (*OrderView, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.checkOrderWindow(ctx, token, userID, orderID); err != nil {
		return nil, err
	}

	rec, err := s.api.ApproveOrder(ctx, token, orderID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Entry{
		Event:      audit.EventOrderApproved,
		ActorID:    userID,
		TargetType: "order",
		TargetID:   orderID,
	})

	view := toOrderView(*rec, s.now())
	return &view, nil
}

// RejectOrder rejects a pending order, with the same submit-time window check
func (s *Service) RejectOrder(ctx context.Context, userID, orderID, reason string) (*OrderView, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.checkOrderWindow(ctx, token, userID, orderID); err != nil {
		return nil, err
	}

	rec, err := s.api.RejectOrder(ctx, token, orderID, reason)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Entry{
		Event:      audit.EventOrderRejected,
		ActorID:    userID,
		TargetType: "order",
		TargetID:   orderID,
		Detail:     reason,
	})

	view := toOrderView(*rec, s.now())
	return &view, nil
}

// checkOrderWindow verifies the order is still pending and inside its
// approval window, against fresh upstream state.
func (s *Service) checkOrderWindow(ctx context.Context, token, userID, orderID string) error {
	rec, err := s.api.GetOrder(ctx, token, orderID)
	if err != nil {
		return err
	}

	order := toDomainOrder(*rec)
	if len(order.AllowedActions(s.now())) == 0 {
		s.record(ctx, &audit.Entry{
			Event:      audit.EventOrderExpiredAtSubmit,
			ActorID:    userID,
			TargetType: "order",
			TargetID:   orderID,
		})
		return shared.ErrOrderExpired
	}
	return nil
}

// ListHolds returns the renter's active cart holds decorated with countdowns
func (s *Service) ListHolds(ctx context.Context, userID string) ([]HoldView, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.api.RenterHolds(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]HoldView, 0, len(records))
	for _, rec := range records {
		views = append(views, toHoldView(rec, now))
	}
	return views, nil
}

// Checkout converts a hold into an order. The hold window is re-checked at
// submit time.
func (s *Service) Checkout(ctx context.Context, userID, holdID string) (*OrderView, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec, err := s.api.GetHold(ctx, token, holdID)
	if err != nil {
		return nil, err
	}

	hold := toDomainHold(*rec)
	if len(hold.AllowedActions(s.now())) == 0 {
		s.record(ctx, &audit.Entry{
			Event:      audit.EventHoldExpiredAtSubmit,
			ActorID:    userID,
			TargetType: "hold",
			TargetID:   holdID,
		})
		return nil, shared.ErrHoldExpired
	}

	orderRec, err := s.api.Checkout(ctx, token, holdID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &audit.Entry{
		Event:      audit.EventHoldCheckedOut,
		ActorID:    userID,
		TargetType: "hold",
		TargetID:   holdID,
	})

	view := toOrderView(*orderRec, s.now())
	return &view, nil
}

// ReleaseHold releases a hold early, putting the listing back on the market
func (s *Service) ReleaseHold(ctx context.Context, userID, holdID string) error {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.api.ReleaseHold(ctx, token, holdID); err != nil {
		return err
	}
	s.record(ctx, &audit.Entry{
		Event:      audit.EventHoldReleased,
		ActorID:    userID,
		TargetType: "hold",
		TargetID:   holdID,
	})
	return nil
}

// Wallet returns the lister's wallet balances
func (s *Service) Wallet(ctx context.Context, userID string) (*WalletView, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.api.Wallet(ctx, token)
	if err != nil {
		return nil, err
	}
	return &WalletView{
		Balance:        rec.Balance,
		PendingBalance: rec.PendingBalance,
		Currency:       rec.Currency,
	}, nil
}

// Withdraw requests a wallet withdrawal
func (s *Service) Withdraw(ctx context.Context, userID string, input WithdrawInput) error {
	if !input.Amount.IsPositive() {
		return shared.NewDomainError("INVALID_INPUT", "Withdrawal amount must be positive")
	}
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return err
	}
	return s.api.RequestWithdrawal(ctx, token, input.Amount)
}

// Disputes lists disputes visible to the user
func (s *Service) Disputes(ctx context.Context, userID string) ([]DisputeView, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.api.Disputes(ctx, token)
	if err != nil {
		return nil, err
	}
	views := make([]DisputeView, 0, len(records))
	for _, rec := range records {
		views = append(views, toDisputeView(rec))
	}
	return views, nil
}

// OpenDispute opens a dispute against an order
func (s *Service) OpenDispute(ctx context.Context, userID, orderID, reason string) (*DisputeView, error) {
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "A dispute reason is required")
	}
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.api.OpenDispute(ctx, token, orderID, reason)
	if err != nil {
		return nil, err
	}
	view := toDisputeView(*rec)
	return &view, nil
}

// AdminUsers lists marketplace accounts
func (s *Service) AdminUsers(ctx context.Context, userID string) ([]upstream.User, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.api.AdminUsers(ctx, token)
}

// SuspendUser suspends a marketplace account
func (s *Service) SuspendUser(ctx context.Context, userID, targetID string) (*upstream.User, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	suspended, err := s.api.AdminSuspendUser(ctx, token, targetID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, &audit.Entry{
		Event:      audit.EventUserSuspended,
		ActorID:    userID,
		TargetType: "user",
		TargetID:   targetID,
	})
	return suspended, nil
}

// ResolveDispute records an admin verdict on a dispute
func (s *Service) ResolveDispute(ctx context.Context, userID, disputeID, verdict string) (*DisputeView, error) {
	if verdict == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "A verdict is required")
	}
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.api.AdminResolveDispute(ctx, token, disputeID, verdict)
	if err != nil {
		return nil, err
	}
	view := toDisputeView(*rec)
	return &view, nil
}

// ListListings returns the lister's own garment listings
func (s *Service) ListListings(ctx context.Context, userID string) ([]upstream.Listing, error) {
	token, err := s.tokens.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.api.ListerListings(ctx, token)
}

// Products lists public listings, no session required
func (s *Service) Products(ctx context.Context, query string) ([]upstream.Listing, error) {
	return s.api.Products(ctx, query)
}

// Product fetches a single public listing
func (s *Service) Product(ctx context.Context, listingID string) (*upstream.Listing, error) {
	return s.api.GetProduct(ctx, listingID)
}

// PresignListingImage issues an upload slot for a listing photo. Requires an
// established session; the handler layer enforces the lister role.
func (s *Service) PresignListingImage(ctx context.Context, userID, listingID, contentType string) (*UploadTicket, error) {
	if s.images == nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Image uploads are not configured")
	}
	if _, err := s.tokens.UpstreamToken(ctx, userID); err != nil {
		return nil, err
	}
	key, uploadURL, expiresAt, err := s.images.PresignUpload(ctx, listingID, contentType)
	if err != nil {
		s.logger.Error("Failed to presign upload", zap.String("listing_id", listingID), zap.Error(err))
		return nil, shared.NewDomainError("INVALID_INPUT", "Could not create an upload slot for this file")
	}
	return &UploadTicket{Key: key, UploadURL: uploadURL, ExpiresAt: expiresAt}, nil
}

// RemoveListingImage deletes an uploaded listing photo. The key must live
// under the listing's namespace so a lister cannot delete another listing's
// photos by guessing keys.
func (s *Service) RemoveListingImage(ctx context.Context, userID, listingID, key string) error {
	if s.images == nil {
		return shared.NewDomainError("INTERNAL_ERROR", "Image uploads are not configured")
	}
	if _, err := s.tokens.UpstreamToken(ctx, userID); err != nil {
		return err
	}
	if !strings.HasPrefix(key, "listings/"+listingID+"/") {
		return shared.NewDomainError("INVALID_INPUT", "Image key does not belong to this listing")
	}
	if err := s.images.DeleteImage(ctx, key); err != nil {
		s.logger.Error("Failed to delete listing image",
			zap.String("listing_id", listingID), zap.String("key", key), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Could not delete the image")
	}
	return nil
}

func (s *Service) record(ctx context.Context, entry *audit.Entry) {
	if s.auditor != nil {
		s.auditor.RecordAsync(ctx, entry)
	}
}

func toDomainOrder(rec upstream.OrderRecord) domain.Order {
	return domain.Order{
		ID:          rec.ID,
		ListingID:   rec.ListingID,
		RenterID:    rec.RenterID,
		Status:      domain.OrderStatus(rec.Status),
		TotalAmount: rec.TotalAmount,
		ExpiresAt:   rec.ExpiresAt,
	}
}

func toDomainHold(rec upstream.HoldRecord) domain.CartHold {
	return domain.CartHold{
		ID:        rec.ID,
		ListingID: rec.ListingID,
		RenterID:  rec.RenterID,
		Price:     rec.Price,
		ExpiresAt: rec.ExpiresAt,
		Released:  rec.Released,
	}
}

func toOrderView(rec upstream.OrderRecord, now time.Time) OrderView {
	order := toDomainOrder(rec)
	return OrderView{
		ID:             rec.ID,
		ListingID:      rec.ListingID,
		RenterID:       rec.RenterID,
		RenterName:     rec.RenterName,
		Status:         rec.Status,
		TotalAmount:    rec.TotalAmount,
		ExpiresAt:      rec.ExpiresAt,
		Countdown:      order.Countdown().Snapshot(now),
		AllowedActions: actionNames(order.AllowedActions(now)),
	}
}

func toHoldView(rec upstream.HoldRecord, now time.Time) HoldView {
	hold := toDomainHold(rec)
	view := HoldView{
		ID:             rec.ID,
		ListingID:      rec.ListingID,
		Price:          rec.Price,
		ExpiresAt:      rec.ExpiresAt,
		Released:       rec.Released,
		Countdown:      hold.Countdown().Snapshot(now),
		AllowedActions: actionNames(hold.AllowedActions(now)),
	}
	if rec.Listing != nil {
		view.ListingTitle = rec.Listing.Title
	}
	return view
}

func toDisputeView(rec upstream.DisputeRecord) DisputeView {
	return DisputeView{
		ID:        rec.ID,
		OrderID:   rec.OrderID,
		OpenedBy:  rec.OpenedBy,
		Reason:    rec.Reason,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}
}

func actionNames(actions []domain.Action) []string {
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}
	return names
}
