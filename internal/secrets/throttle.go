package secrets

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled limits the request rate against a backing store. Calls block
// until a token is available, keeping bursts of Load calls from tripping a
// secret server's own rate limits.
type Throttled struct {
	store   Store
	limiter *rate.Limiter
}

// NewThrottled wraps store with a token bucket. A non-positive rate returns
// store unchanged.
func NewThrottled(store Store, ratePerSecond float64, burst int) Store {
	if ratePerSecond <= 0 {
		return store
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Read implements Store.
func (t *Throttled) Read(path string) (any, bool, error) {
	if err := t.wait(); err != nil {
		return nil, false, err
	}
	return t.store.Read(path)
}

// List implements Store.
func (t *Throttled) List(prefix string) ([]string, error) {
	if err := t.wait(); err != nil {
		return nil, err
	}
	return t.store.List(prefix)
}

func (t *Throttled) wait() error {
	if err := t.limiter.Wait(context.Background()); err != nil {
		return fmt.Errorf("secret store throttle: %w", err)
	}
	return nil
}
