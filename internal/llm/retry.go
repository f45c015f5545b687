package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// retrying re-issues failed generations with exponential backoff. Rate
// limits and outages are retried up to MaxAttempts; a response that failed
// validation gets a single second chance; truncation and cancellation are final.
type retrying struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry wraps p so transient failures are retried per cfg.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retrying{inner: p, cfg: cfg}
}

func (r *retrying) ModelID() string { return r.inner.ModelID() }

func (r *retrying) Generate(ctx context.Context, req Request) (*Response, error) {
	wait := r.cfg.InitialWait
	rejected := 0
	var err error
	for attempt := 1; ; attempt++ {
		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		var invalid *ErrInvalidResponse
		if errors.As(err, &invalid) {
			rejected++
		}
		if attempt >= r.cfg.MaxAttempts || rejected > 1 || !transient(err) {
			return nil, err
		}

		timer := time.NewTimer(jitter(wait))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait = time.Duration(float64(wait) * r.cfg.Multiplier)
		if wait > r.cfg.MaxWait {
			wait = r.cfg.MaxWait
		}
	}
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var truncated *ErrMaxTokensExceeded
	return !errors.As(err, &truncated)
}

// jitter spreads d by up to 20% either way.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration((rand.Float64()*0.4-0.2)*float64(d))
}
