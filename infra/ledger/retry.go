package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// RetryPolicy bounds how hard a read is retried before the ledger is reported
// unavailable.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	CallTimeout    time.Duration
}

// DefaultRetryPolicy is three attempts with exponential backoff from one
// second.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	CallTimeout:    10 * time.Second,
}

// retry runs fn until it succeeds, fails permanently or runs out of attempts.
// Each attempt gets its own timeout. Exhausted attempts are reported as
// domain.ErrLedgerUnavailable wrapping the last error.
func retry[T any](ctx context.Context, policy RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if policy.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, policy.CallTimeout)
		}
		v, err := fn(callCtx)
		cancel()

		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !isTransient(err) {
			return zero, err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		zap.L().Warn("Ledger call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return zero, fmt.Errorf("%s: %w: %w", op, domain.ErrLedgerUnavailable, lastErr)
}

// isTransient reports whether a failed call may succeed if repeated. Reverts,
// decoding errors and missing data are permanent.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ethereum.NotFound) || errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return false
	}

	msg := err.Error()
	for _, permanent := range []string{"execution reverted", "abi:", "no contract code"} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}
