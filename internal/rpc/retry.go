package rpc

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/goran-ethernal/GovIndexor/internal/logger"
	"github.com/goran-ethernal/GovIndexor/pkg/config"
)

// jitterFraction spreads each backoff by up to ±25%.
const jitterFraction = 0.25

// retrier repeats node calls that fail with a retryable ErrorClass, waiting with
// exponential backoff between attempts. A nil config runs every call once.
type retrier struct {
	cfg    *config.RetryConfig
	log    *logger.Logger
	jitter func() float64
}

func newRetrier(cfg *config.RetryConfig, log *logger.Logger) *retrier {
	return &retrier{cfg: cfg, log: log, jitter: rand.Float64}
}

func (r *retrier) attempts() int {
	if r.cfg == nil || r.cfg.MaxAttempts < 1 {
		return 1
	}
	return r.cfg.MaxAttempts
}

// backoff returns the wait before retry n (1 for the first retry). Rate-limited
// calls start one step further along the curve.
func (r *retrier) backoff(n int, class ErrorClass) time.Duration {
	if r.cfg == nil || n < 1 {
		return 0
	}

	step := n - 1
	if class == ClassRateLimited {
		step++
	}

	wait := float64(r.cfg.InitialBackoff.Duration) * math.Pow(r.cfg.BackoffMultiplier, float64(step))
	wait = math.Min(wait, float64(r.cfg.MaxBackoff.Duration))
	wait += (r.jitter()*2 - 1) * jitterFraction * wait

	return time.Duration(math.Max(wait, 0))
}

// do runs fn until it succeeds, fails with a non-retryable class, or attempts run out.
func (r *retrier) do(ctx context.Context, method string, fn func() error) error {
	maxAttempts := r.attempts()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s canceled before attempt %d: %w", method, attempt, err)
		}

		err := fn()
		if err == nil {
			return nil
		}

		class := Classify(err)
		if !class.Retryable() {
			return err
		}
		if attempt >= maxAttempts {
			if maxAttempts == 1 {
				return err
			}
			return fmt.Errorf("%s failed after %d attempts (%s): %w", method, attempt, class, err)
		}

		wait := r.backoff(attempt, class)
		r.log.Debugw("retrying rpc call", "method", method, "attempt", attempt, "class", class, "wait", wait)
		RPCRetryInc(method, class)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s canceled while backing off after %s error: %w", method, class, ctx.Err())
		}
	}
}
