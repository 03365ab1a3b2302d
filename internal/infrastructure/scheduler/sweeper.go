// Package scheduler runs the background sweep that releases expired cart
// holds. Holds are the pessimistic reservation a renter gets when adding a
// garment to their cart; once the hold window passes the listing must go back
// on the market even if the renter never returns.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/atelierloop/gateway/internal/infrastructure/upstream"
	"go.uber.org/zap"
)

// HoldSource lists and releases expired holds against the marketplace API
type HoldSource interface {
	ExpiredHolds(ctx context.Context) ([]upstream.HoldRecord, error)
	ReleaseHold(ctx context.Context, token, holdID string) error
}

// ReleaseRecorder is notified after each successful release, used for the
// audit trail. Failures are logged but never block the sweep.
type ReleaseRecorder interface {
	RecordHoldReleased(ctx context.Context, holdID, listingID, renterID string) error
}

// HoldSweeper periodically releases expired cart holds
type HoldSweeper struct {
	cfg      config.HoldsConfig
	source   HoldSource
	recorder ReleaseRecorder
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewHoldSweeper creates a hold sweeper. The recorder may be nil.
func NewHoldSweeper(cfg config.HoldsConfig, source HoldSource, recorder ReleaseRecorder, logger *zap.Logger) *HoldSweeper {
	return &HoldSweeper{
		cfg:      cfg,
		source:   source,
		recorder: recorder,
		logger:   logger,
	}
}

// Start begins the sweep loop. Returns immediately; sweeping happens in the
// background until Stop is called.
func (s *HoldSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if !s.cfg.AutoReleaseEnabled {
		s.logger.Info("Hold auto-release disabled, sweeper idle")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Hold sweeper started",
		zap.Duration("sweep_interval", s.cfg.SweepInterval),
	)
	return nil
}

// Stop gracefully stops the sweep loop
func (s *HoldSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Hold sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Hold sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *HoldSweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Hold sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce releases every currently expired hold. A failure to release one
// hold does not stop the sweep; the hold stays expired and is retried on the
// next tick.
func (s *HoldSweeper) SweepOnce(ctx context.Context) error {
	holds, err := s.source.ExpiredHolds(ctx)
	if err != nil {
		return err
	}
	if len(holds) == 0 {
		return nil
	}

	released := 0
	for _, hold := range holds {
		if hold.Released {
			continue
		}
		if err := s.source.ReleaseHold(ctx, "", hold.ID); err != nil {
			s.logger.Warn("Failed to release expired hold",
				zap.String("hold_id", hold.ID),
				zap.String("listing_id", hold.ListingID),
				zap.Error(err))
			continue
		}
		released++

		if s.recorder != nil {
			if err := s.recorder.RecordHoldReleased(ctx, hold.ID, hold.ListingID, hold.RenterID); err != nil {
				s.logger.Warn("Failed to record hold release",
					zap.String("hold_id", hold.ID),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("Hold sweep completed",
		zap.Int("expired", len(holds)),
		zap.Int("released", released),
	)
	return nil
}
