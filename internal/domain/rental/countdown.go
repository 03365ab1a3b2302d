// Package rental holds the gateway-side view of rental orders and cart holds,
// including the countdown projection used to decorate time-bounded entities.
package rental

import (
	"fmt"
	"time"
)

// Countdown projects a server-issued expiry forward in time. It carries no
// timer of its own: callers snapshot it against a clock, so the projection is
// a pure function of (expiry, now) and once expired it stays expired.
type Countdown struct {
	ExpiresAt time.Time
}

// NewCountdown builds a countdown from an absolute expiry timestamp.
func NewCountdown(expiresAt time.Time) Countdown {
	return Countdown{ExpiresAt: expiresAt}
}

// NewCountdownFromSeconds seeds a countdown from a remaining-seconds figure,
// anchored at now. Zero or negative seconds yield an already-expired countdown.
func NewCountdownFromSeconds(seconds int64, now time.Time) Countdown {
	return Countdown{ExpiresAt: now.Add(time.Duration(seconds) * time.Second)}
}

// Snapshot is the displayable state of a countdown at a single instant.
type Snapshot struct {
	RemainingSeconds int64  `json:"remainingSeconds"`
	Display          string `json:"display"`
	Expired          bool   `json:"expired"`
}

// Snapshot evaluates the countdown at the given instant. An entity whose
// remaining time is zero at evaluation is expired immediately; no tick is
// required.
func (c Countdown) Snapshot(now time.Time) Snapshot {
	remaining := c.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return Snapshot{RemainingSeconds: 0, Display: "00:00", Expired: true}
	}
	secs := int64(remaining / time.Second)
	return Snapshot{
		RemainingSeconds: secs,
		Display:          formatClock(secs),
		Expired:          false,
	}
}

// Expired reports whether the countdown has reached zero at the given instant.
func (c Countdown) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

func formatClock(secs int64) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
