package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// LimitedClient caps the number of in-flight provider calls. Callers beyond
// the cap wait in arrival order; a waiter whose context ends leaves the queue.
type LimitedClient struct {
	delegate ProviderClient
	sem      *semaphore.Weighted
	capacity int64
}

// NewLimitedClient wraps base with a concurrency cap of maxInFlight (minimum 1).
func NewLimitedClient(base ProviderClient, maxInFlight int) *LimitedClient {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &LimitedClient{
		delegate: base,
		sem:      semaphore.NewWeighted(int64(maxInFlight)),
		capacity: int64(maxInFlight),
	}
}

// Capacity returns the configured cap.
func (c *LimitedClient) Capacity() int {
	return int(c.capacity)
}

// Invoke waits for a slot and then calls the wrapped client.
func (c *LimitedClient) Invoke(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, NewProviderError(KindCancelled, modelOf(req), err)
	}
	defer c.sem.Release(1)
	return c.delegate.Invoke(ctx, req)
}
