package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
)

type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Backoff yields growing delays between attempts. It is not safe for
// concurrent use.
type Backoff struct {
	cfg   RetryConfig
	delay time.Duration
}

func NewBackoff(cfg RetryConfig) *Backoff {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	return &Backoff{cfg: cfg, delay: cfg.InitialDelay}
}

func (b *Backoff) Next() time.Duration {
	d := b.delay
	b.delay = time.Duration(float64(b.delay) * b.cfg.Multiplier)
	if b.delay > b.cfg.MaxDelay {
		b.delay = b.cfg.MaxDelay
	}
	return d
}

func (b *Backoff) Reset() {
	b.delay = b.cfg.InitialDelay
}

// Wait sleeps for the next delay or returns early when ctx is done.
func (b *Backoff) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
	case <-time.After(b.Next()):
		return nil
	}
}

// IsConnectionError reports whether err means the connection itself is gone
// and a fresh one should be acquired.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
			return true
		case "57P01", "57P02", "57P03":
			return true
		}
		return false
	}

	return true
}
