package narrator

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retry defaults.
const (
	DefaultMaxTries        = 3
	DefaultInitialInterval = 500 * time.Millisecond

	// FallbackNarration keeps a turn complete when every narration
	// attempt fails.
	FallbackNarration = "The scene hangs unresolved for a moment. " +
		"Dust settles, breaths are held, and the story waits for your next move."
)

// Resilient wraps a Narrator with exponential-backoff retries. When
// every attempt fails, Narrate degrades to a fixed fallback line so
// the turn still completes; Summarize degrades to the previous
// summary.
type Resilient struct {
	inner    Narrator
	maxTries uint
}

// NewResilient wraps inner with up to maxTries attempts per call.
func NewResilient(inner Narrator, maxTries int) *Resilient {
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}
	return &Resilient{inner: inner, maxTries: uint(maxTries)}
}

// Narrate retries the wrapped narrator and falls back to a canned line
// when attempts are exhausted. The error is logged, never returned:
// turn resolution must not wedge the table.
func (r *Resilient) Narrate(ctx context.Context, req TurnRequest) (string, error) {
	text, err := backoff.Retry(ctx, func() (string, error) {
		return r.inner.Narrate(ctx, req)
	}, r.retryOptions()...)
	if err != nil {
		log.Printf("narrator: narration failed after %d attempts: %v", r.maxTries, err)
		return FallbackNarration, nil
	}
	return text, nil
}

// Summarize retries the wrapped narrator and keeps the previous
// summary when attempts are exhausted.
func (r *Resilient) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	text, err := backoff.Retry(ctx, func() (string, error) {
		return r.inner.Summarize(ctx, req)
	}, r.retryOptions()...)
	if err != nil {
		log.Printf("narrator: summary refresh failed after %d attempts: %v", r.maxTries, err)
		return req.Previous, nil
	}
	return text, nil
}

func (r *Resilient) retryOptions() []backoff.RetryOption {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = DefaultInitialInterval
	return []backoff.RetryOption{
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(r.maxTries),
	}
}
