package dispatch

import (
	"context"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/antipasta/dispatch/internal/constants"
)

// RetryPolicy wraps request execution with bounded retry. Only transient
// and rate-limited failures are eligible; permanent and auth-required
// failures terminate immediately with their classification unchanged.
//
// Retry is disabled by default: a nil policy performs a single attempt.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, including the
	// first. Values below 1 are treated as 1.
	MaxAttempts int

	// WaitMin and WaitMax bound the backoff between attempts. Backoff
	// grows monotonically with the attempt number.
	WaitMin time.Duration
	WaitMax time.Duration
}

// DefaultRetryPolicy returns the policy used when retry is enabled without
// explicit tuning.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: constants.DefaultRetryMax,
		WaitMin:     constants.DefaultRetryWaitMin,
		WaitMax:     constants.DefaultRetryWaitMax,
	}
}

// AttemptFunc performs exactly one network attempt and classifies its
// result.
type AttemptFunc func(ctx context.Context) *Outcome

// Execute runs the attempt function under the policy. A nil policy is a
// pass-through single attempt. Cancellation is checked before every retry:
// once the context is done no new attempt begins, and the last observed
// outcome is returned. An in-flight attempt is not forcibly aborted here;
// that is the transport's responsibility.
func (p *RetryPolicy) Execute(ctx context.Context, attempt AttemptFunc) *Outcome {
	if p == nil {
		return attempt(ctx)
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var outcome *Outcome

	for attemptNum := 0; attemptNum < maxAttempts; attemptNum++ {
		if attemptNum > 0 {
			if !p.wait(ctx, attemptNum) {
				return outcome
			}
		}

		outcome = attempt(ctx)
		if outcome.OK() || !retryable(outcome.Failure) {
			return outcome
		}
	}

	return outcome
}

// wait sleeps the backoff for the given attempt number, returning false if
// the context was canceled first.
func (p *RetryPolicy) wait(ctx context.Context, attemptNum int) bool {
	if ctx.Err() != nil {
		return false
	}

	backoff := retryablehttp.DefaultBackoff(p.WaitMin, p.WaitMax, attemptNum-1, nil)

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// retryable reports whether a failure classification is eligible for retry.
func retryable(failure *Failure) bool {
	return failure.Classification == ClassTransient || failure.Classification == ClassRateLimited
}
