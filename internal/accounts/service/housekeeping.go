package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/metrics"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

// HousekeepingService periodically deletes expired verification tokens and
// MFA codes so the secret tables do not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	tokens *TokenIssuer
	codes  *CodeIssuer

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		tokens:   NewTokenIssuer(0),
		codes:    NewCodeIssuer(0, 0),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// SweepResult counts what one Sweep deleted.
type SweepResult struct {
	Tokens int64
	Codes  int64
}

// Sweep deletes expired secrets once. A failure on one table does not stop
// the other; the first error is returned.
func (s *HousekeepingService) Sweep(ctx context.Context) (SweepResult, error) {
	var (
		res      SweepResult
		firstErr error
	)

	n, err := s.tokens.PurgeExpired(ctx, s.Store)
	if err != nil {
		s.Logger.Error("failed to delete expired verification tokens", "error", err)
		firstErr = err
	} else {
		res.Tokens = n
		metrics.RecordSecretsPurged("verification_tokens", n)
	}

	n, err = s.codes.PurgeExpired(ctx, s.Store)
	if err != nil {
		s.Logger.Error("failed to delete expired MFA codes", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	} else {
		res.Codes = n
		metrics.RecordSecretsPurged("mfa_codes", n)
	}

	s.Logger.Info("housekeeping cleanup completed", "tokens_deleted", res.Tokens, "codes_deleted", res.Codes)
	return res, firstErr
}
