package llm

import (
	"context"
	"sync"
	"time"
)

const (
	defaultResponseTokenEstimate = 512
	minTokenEstimate             = 8
)

// rateLimitedClient wraps another ProviderClient and enforces request and token-based throttling.
type rateLimitedClient struct {
	delegate     ProviderClient
	interval     time.Duration
	mu           sync.Mutex
	nextAllowed  time.Time
	tokenMu      sync.Mutex
	nextToken    time.Time
	tokensPerMin int
}

// NewRateLimitedClient returns a ProviderClient that throttles calls using a
// minimum interval between requests and a tokens-per-minute budget. With both
// limits disabled it returns base unchanged.
func NewRateLimitedClient(base ProviderClient, interval time.Duration, tokensPerMinute int) ProviderClient {
	if base == nil {
		return base
	}
	if interval <= 0 && tokensPerMinute <= 0 {
		return base
	}
	client := &rateLimitedClient{
		delegate: base,
		interval: interval,
	}
	if tokensPerMinute > 0 {
		client.tokensPerMin = tokensPerMinute
	}
	return client
}

func (c *rateLimitedClient) Invoke(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	if err := c.wait(ctx, estimateTokensForRequest(req)); err != nil {
		return nil, NewProviderError(KindCancelled, modelOf(req), err)
	}
	return c.delegate.Invoke(ctx, req)
}

func (c *rateLimitedClient) wait(ctx context.Context, tokens int) error {
	if err := c.waitInterval(ctx); err != nil {
		return err
	}
	return c.waitTokens(ctx, tokens)
}

func (c *rateLimitedClient) waitInterval(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}

	for {
		c.mu.Lock()
		now := time.Now()
		if c.nextAllowed.IsZero() || !now.Before(c.nextAllowed) {
			c.nextAllowed = now.Add(c.interval)
			c.mu.Unlock()
			return nil
		}

		wait := time.Until(c.nextAllowed)
		c.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *rateLimitedClient) waitTokens(ctx context.Context, tokens int) error {
	if c.tokensPerMin <= 0 || tokens <= 0 {
		return nil
	}

	delay := tokensToDuration(tokens, c.tokensPerMin)

	c.tokenMu.Lock()
	start := time.Now()
	if c.nextToken.Before(start) {
		c.nextToken = start
	}
	waitUntil := c.nextToken
	c.nextToken = c.nextToken.Add(delay)
	c.tokenMu.Unlock()

	if waitUntil.After(start) {
		timer := time.NewTimer(waitUntil.Sub(start))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func estimateTokensForRequest(req *ProviderRequest) int {
	if req == nil {
		return defaultResponseTokenEstimate
	}

	tokens := 0
	for _, msg := range req.Messages {
		tokens += EstimateTokenCount(msg.Content)
	}
	if tokens < minTokenEstimate {
		tokens = minTokenEstimate
	}

	if req.MaxOutputTokens > 0 {
		tokens += req.MaxOutputTokens
	} else {
		tokens += defaultResponseTokenEstimate
	}
	return tokens + req.ReasoningTokens
}

func tokensToDuration(tokens, tokensPerMinute int) time.Duration {
	if tokensPerMinute <= 0 || tokens <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) * float64(tokens) / float64(tokensPerMinute))
}

func modelOf(req *ProviderRequest) string {
	if req == nil {
		return ""
	}
	return req.Model
}
