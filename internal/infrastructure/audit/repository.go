package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event names recorded by the gateway
const (
	EventSignIn               = "auth.sign_in"
	EventSignInFailed         = "auth.sign_in_failed"
	EventMFAVerified          = "auth.mfa_verified"
	EventMFAFailed            = "auth.mfa_failed"
	EventMFAResend            = "auth.mfa_resend"
	EventSignOut              = "auth.sign_out"
	EventCapabilityRotated    = "admin.capability_rotated"
	EventAdminPathRejected    = "admin.path_rejected"
	EventUserSuspended        = "admin.user_suspended"
	EventOrderApproved        = "order.approved"
	EventOrderRejected        = "order.rejected"
	EventOrderExpiredAtSubmit = "order.expired_at_submit"
	EventHoldCheckedOut       = "hold.checked_out"
	EventHoldExpiredAtSubmit  = "hold.expired_at_submit"
	EventHoldReleased         = "hold.released"
)

// Entry is one audit record. Rows are append-only.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Event      string    `gorm:"size:64;not null;index"`
	ActorID    string    `gorm:"size:64;index"`
	ActorRole  string    `gorm:"size:16"`
	TargetType string    `gorm:"size:32"`
	TargetID   string    `gorm:"size:64;index"`
	Detail     string    `gorm:"size:512"`
	RequestID  string    `gorm:"size:64"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName sets the table name for GORM
func (Entry) TableName() string {
	return "audit_entries"
}

// Repository writes and queries audit entries
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRepository creates an audit repository
func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Migrate creates the audit table if it does not exist
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return nil
}

// Record persists an audit entry. The ID and timestamp are assigned here.
func (r *Repository) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// RecordAsync persists an entry on a background goroutine, logging instead
// of failing. Audit writes must never block or break the user-facing
// request, so the write is detached from the request context and bounded by
// its own timeout.
func (r *Repository) RecordAsync(ctx context.Context, entry *Entry) {
	go func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.Record(writeCtx, entry); err != nil {
			r.logger.Warn("Failed to record audit entry",
				zap.String("event", entry.Event),
				zap.String("target_id", entry.TargetID),
				zap.Error(err))
		}
	}()
}

// RecordHoldReleased records a hold release by the background sweeper
func (r *Repository) RecordHoldReleased(ctx context.Context, holdID, listingID, renterID string) error {
	return r.Record(ctx, &Entry{
		Event:      EventHoldReleased,
		ActorID:    "system",
		TargetType: "hold",
		TargetID:   holdID,
		Detail:     fmt.Sprintf("listing=%s renter=%s", listingID, renterID),
	})
}

// Query filters audit entries
type Query struct {
	Event    string
	ActorID  string
	TargetID string
	Since    time.Time
	Limit    int
}

// List returns entries matching the query, newest first
func (r *Repository) List(ctx context.Context, q Query) ([]Entry, error) {
	db := r.db.WithContext(ctx).Model(&Entry{})
	if q.Event != "" {
		db = db.Where("event = ?", q.Event)
	}
	if q.ActorID != "" {
		db = db.Where("actor_id = ?", q.ActorID)
	}
	if q.TargetID != "" {
		db = db.Where("target_id = ?", q.TargetID)
	}
	if !q.Since.IsZero() {
		db = db.Where("created_at >= ?", q.Since)
	}
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []Entry
	if err := db.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
