// Package retry provides fixed-interval bounded retry for upstream calls that
// may be rate limited.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries = 3
	DefaultDelay      = 10 * time.Second
)

// ErrRateLimited marks an upstream failure caused by throttling (HTTP 429).
var ErrRateLimited = errors.New("upstream rate limited")

// Classifier reports whether err should be retried.
type Classifier func(error) bool

// IsRateLimited is the default classifier.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Fetcher retries rate-limited calls a bounded number of times, sleeping a
// fixed delay between attempts. The delay never grows and has no jitter.
type Fetcher struct {
	MaxRetries int
	Delay      time.Duration
	Classifier Classifier
	Logger     *logrus.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Fetcher with the given bounds.
func New(maxRetries int, delay time.Duration, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		MaxRetries: maxRetries,
		Delay:      delay,
		Classifier: IsRateLimited,
		Logger:     logger,
	}
}

// Default returns a Fetcher with 3 retries and a 10 second delay.
func Default(logger *logrus.Logger) *Fetcher {
	return New(DefaultMaxRetries, DefaultDelay, logger)
}

// Call invokes op until it succeeds, fails with a non-retryable error, or
// has been retried MaxRetries times. The last error is returned unchanged.
func Call[T any](ctx context.Context, f *Fetcher, op func(context.Context) (T, error)) (T, error) {
	var zero T

	classify := f.Classifier
	if classify == nil {
		classify = IsRateLimited
	}

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if !classify(err) || attempt >= f.MaxRetries {
			return zero, err
		}

		f.logger().WithFields(logrus.Fields{
			"attempt":     attempt + 1,
			"max_retries": f.MaxRetries,
			"delay":       f.Delay.String(),
		}).WithError(err).Warn("Upstream rate limited, retrying")

		if err := f.wait(ctx); err != nil {
			return zero, err
		}
	}
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.sleep != nil {
		return f.sleep(ctx, f.Delay)
	}

	timer := time.NewTimer(f.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) logger() *logrus.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return logrus.StandardLogger()
}
