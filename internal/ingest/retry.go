package ingest

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy defines retry behavior for failed downloads.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryPolicy suits a remote API call.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent marks err as not worth retrying.
func permanent(err error) error {
	return &permanentError{err: err}
}

// isRetryable retries everything except permanent errors, context
// cancellation and 4xx answers.
func isRetryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.code >= http.StatusInternalServerError || status.code == http.StatusTooManyRequests
	}
	return true
}

// withRetry runs op until it succeeds, returns a non-retryable error, the
// policy is exhausted or ctx is done. The last error is returned.
func withRetry(ctx context.Context, policy RetryPolicy, logger *logrus.Logger, retryable func(error) bool, op func(context.Context) error) error {
	delay := policy.InitialDelay

	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = op(ctx)
		if err == nil {
			if attempt > 0 {
				logger.WithField("attempts", attempt+1).Info("Download recovered after retry")
			}
			return nil
		}
		if !retryable(err) || attempt == policy.MaxRetries {
			break
		}

		wait := jitter(delay, policy.JitterEnabled)
		logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).WithError(err).Warn("Download failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return err
}

// jitter spreads delay by up to ±12.5%.
func jitter(delay time.Duration, enabled bool) time.Duration {
	if !enabled || delay <= 0 {
		return delay
	}
	return delay + time.Duration(float64(delay)*0.25*(rand.Float64()-0.5))
}
