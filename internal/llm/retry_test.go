package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2,
	}
}

func down() MockResponse {
	return MockResponse{Err: Unavailable("test", errors.New("down"))}
}

func okReply() MockResponse {
	return MockResponse{Content: json.RawMessage(`{"ok":true}`)}
}

func TestRetry(t *testing.T) {
	invalid := MockResponse{Err: invalidResponse(json.RawMessage(`bad`), errors.New("bad"))}

	tests := []struct {
		name      string
		replies   []MockResponse
		wantErr   Kind
		wantCalls int
	}{
		{"first attempt", []MockResponse{okReply()}, "", 1},
		{"transient then ok", []MockResponse{down(), okReply()}, "", 2},
		{"rate limit then ok", []MockResponse{{Err: &Error{Kind: KindRateLimited, RetryAfter: time.Millisecond}}, okReply()}, "", 2},
		{"all attempts fail", []MockResponse{down(), down(), down(), okReply()}, KindUnavailable, 3},
		{"truncation is final", []MockResponse{{Err: &Error{Kind: KindTruncated}}, okReply()}, KindTruncated, 1},
		{"invalid retried once", []MockResponse{invalid, invalid, okReply()}, KindInvalidResponse, 2},
		{"invalid then ok", []MockResponse{invalid, okReply()}, "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.replies...)
			resp, err := Chain(mock, Retry(retryConfig())).Generate(context.Background(), Request{})

			assert.Equal(t, tt.wantCalls, mock.CallCount())
			if tt.wantErr != "" {
				assert.True(t, IsKind(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
		})
	}
}

func TestRetry_PlainErrorNotRetried(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: errors.New("marshal failed")}, okReply())
	_, err := Chain(mock, Retry(retryConfig())).Generate(context.Background(), Request{})

	assert.EqualError(t, err, "marshal failed")
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_ContextCanceledDuringWait(t *testing.T) {
	mock := NewMockProvider(down(), down(), okReply())
	cfg := retryConfig()
	cfg.InitialWait = time.Hour
	cfg.MaxWait = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Chain(mock, Retry(cfg)).Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_Wait(t *testing.T) {
	r := &retrier{cfg: RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 2}}

	assert.Equal(t, 3*time.Second, r.wait(0, &Error{Kind: KindRateLimited, RetryAfter: 3 * time.Second}))

	for attempt, base := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, time.Second, time.Second} {
		got := r.wait(attempt, down().Err)
		assert.InDelta(t, float64(base), float64(got), float64(base)*0.2+1, "attempt %d", attempt)
	}

	// A multiplier below one holds the wait flat.
	flat := &retrier{cfg: RetryConfig{InitialWait: 50 * time.Millisecond, Multiplier: 0}}
	assert.InDelta(t, float64(50*time.Millisecond), float64(flat.wait(4, down().Err)), float64(10*time.Millisecond)+1)
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	assert.Equal(t, ProviderMock, Chain(NewMockProvider(), Retry(retryConfig())).ModelID())
}
