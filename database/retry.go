package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// WithReadRetry retries an idempotent read with bounded exponential backoff.
// Only use for operations that are safe to repeat; mutations go through
// transactions instead.
func WithReadRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil && attempt > 1 {
			log.WithFields(log.Fields{
				"attempt": attempt,
				"error":   err,
			}).Warn("Retrying read after transient failure")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx))
}
