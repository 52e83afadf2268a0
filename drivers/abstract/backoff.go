package abstract

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/types"
)

// NewPollBackOff doubles from base up to limit without jitter and never gives up.
// The Syncer owns it: NextBackOff on an empty or failed poll, Reset once data is applied.
func NewPollBackOff(base, limit time.Duration) *backoff.ExponentialBackOff {
	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = base
	delays.MaxInterval = limit
	delays.Multiplier = 2
	delays.RandomizationFactor = 0
	delays.MaxElapsedTime = 0
	delays.Reset()

	return delays
}

func DefaultPollBackOff() *backoff.ExponentialBackOff {
	return NewPollBackOff(constants.BackoffBaseDelay, constants.BackoffMaxDelay)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryOnBackoff runs f up to attempts times, doubling the sleep between tries; fatal errors are returned at once
func RetryOnBackoff(ctx context.Context, attempts int, sleep time.Duration, f func() error) error {
	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = sleep
	delays.Multiplier = 2
	delays.RandomizationFactor = 0
	delays.MaxElapsedTime = 0
	delays.Reset()

	retries := uint64(0)
	if attempts > 1 {
		retries = uint64(attempts - 1)
	}

	return backoff.RetryNotify(func() error {
		err := f()
		if err != nil && types.IsFatal(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(delays, retries), ctx), func(err error, next time.Duration) {
		logger.Infof("retrying after %.2f seconds due to err: %s", next.Seconds(), err)
	})
}
