package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu    sync.Mutex
	calls []time.Time
}

func (f *fakeClient) Invoke(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	return &ProviderResponse{Model: req.Model, Text: "ok", Status: StatusSuccess}, nil
}

func (f *fakeClient) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]time.Time, len(f.calls))
	copy(cp, f.calls)
	return cp
}

func TestRateLimitedClientEnforcesInterval(t *testing.T) {
	base := &fakeClient{}
	const interval = 50 * time.Millisecond
	client := NewRateLimitedClient(base, interval, 0)

	ctx := context.Background()
	req := &ProviderRequest{Model: "gpt-5", Messages: []Message{{Role: RoleUser, Content: "first"}}}
	_, err := client.Invoke(ctx, req)
	require.NoError(t, err)
	_, err = client.Invoke(ctx, req)
	require.NoError(t, err)

	times := base.callTimes()
	require.Len(t, times, 2)

	diff := times[1].Sub(times[0])
	assert.GreaterOrEqual(t, diff+5*time.Millisecond, interval)
}

func TestRateLimitedClientPassthroughWhenDisabled(t *testing.T) {
	base := &fakeClient{}
	client := NewRateLimitedClient(base, 0, 0)

	assert.Same(t, base, client)
}

func TestRateLimitedClientHonoursCancellation(t *testing.T) {
	base := &fakeClient{}
	client := NewRateLimitedClient(base, time.Hour, 0)
	req := &ProviderRequest{Model: "gpt-5"}

	_, err := client.Invoke(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Invoke(ctx, req)
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
	assert.Len(t, base.callTimes(), 1)
}

func TestEstimateTokensForRequest(t *testing.T) {
	assert.Equal(t, defaultResponseTokenEstimate, estimateTokensForRequest(nil))

	req := &ProviderRequest{
		Messages:        []Message{{Role: RoleUser, Content: "0123456789abcdef0123456789abcdef0123"}},
		MaxOutputTokens: 100,
		ReasoningTokens: 50,
	}
	assert.Equal(t, 9+100+50, estimateTokensForRequest(req))
}

func TestTokensToDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, tokensToDuration(500, 1000))
	assert.Zero(t, tokensToDuration(500, 0))
}
