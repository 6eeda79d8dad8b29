package vybe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vybe-pulse/internal/tracker"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Options{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
		MaxRetries:     1,
	})
	c.retryOpts.BaseDelay = time.Millisecond
	return c, srv
}

func TestClientSendsAPIKeyHeader(t *testing.T) {
	var gotKey atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"mintAddress":"m","symbol":"USDC","price":1.0}`))
	}))

	stats, err := c.GetTokenStats(context.Background(), testMint)
	if err != nil {
		t.Fatalf("GetTokenStats: %v", err)
	}
	if stats.Symbol != "USDC" {
		t.Fatalf("Symbol = %q, want USDC", stats.Symbol)
	}
	if gotKey.Load() != "test-key" {
		t.Fatalf("X-API-Key = %v, want test-key", gotKey.Load())
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"transfers":[]}`))
	}))

	events, err := c.GetTokenLargeTransactions(context.Background(), testMint, 1000)
	if err != nil {
		t.Fatalf("GetTokenLargeTransactions: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %d, want 0", len(events))
	}
	if calls.Load() < 2 {
		t.Fatalf("server saw %d calls, want a retry after the 503", calls.Load())
	}
}

func TestClientClassifiesExhaustedRetriesAsUnavailable(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.GetWalletTransactions(context.Background(), testWallet, time.Now().Add(-time.Minute))
	if !errors.Is(err, tracker.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestClientPermanentErrorsAreNotUnavailable(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.GetTokenStats(context.Background(), testMint)
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if errors.Is(err, tracker.ErrProviderUnavailable) {
		t.Fatalf("403 misclassified as transient: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("permanent error retried: %d calls, want 1", calls.Load())
	}
}

func TestClientRespectsContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetTokenStats(ctx, testMint)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
