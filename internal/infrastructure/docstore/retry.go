package docstore

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
)

// RetryConfig bounds how persistently writes are retried.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
}

// Retrying wraps a Backend and retries failed writes with exponential backoff,
// to ride out transient file locks held by other processes.
type Retrying struct {
	Backend
	cfg    RetryConfig
	logger *zap.Logger

	// Sleep waits between attempts; replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// WithRetry decorates backend with bounded write retries.
func WithRetry(backend Backend, cfg RetryConfig, logger *zap.Logger) *Retrying {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 120 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{
		Backend: backend,
		cfg:     cfg,
		logger:  logger,
		Sleep:   sleepContext,
	}
}

// Save persists doc, retrying transient failures. Version conflicts are not
// retried. The final error is classified as a persistence failure.
func (r *Retrying) Save(ctx context.Context, doc *Document) error {
	var lastErr error
	delay := r.cfg.BaseDelay
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		lastErr = r.Backend.Save(ctx, doc)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrVersionConflict) {
			return lastErr
		}
		if attempt == r.cfg.Attempts {
			break
		}
		r.logger.Warn("ledger write failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr))
		if err := r.Sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
		delay *= 2
	}
	return domain.WrapError(domain.ErrCodePersistence, "ledger write failed", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
