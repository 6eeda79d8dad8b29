package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSource serves canned per-entity batches and records the `since`
// watermark each wallet fetch was called with.
type fakeSource struct {
	mu      sync.Mutex
	wallet  map[string][]TransactionEvent
	whale   map[string][]TransactionEvent
	fail    map[string]error
	sinceBy map[string]time.Time
	calls   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		wallet:  make(map[string][]TransactionEvent),
		whale:   make(map[string][]TransactionEvent),
		fail:    make(map[string]error),
		sinceBy: make(map[string]time.Time),
	}
}

func (f *fakeSource) GetWalletTransactions(_ context.Context, address string, since time.Time) ([]TransactionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.sinceBy[address] = since
	if err := f.fail[address]; err != nil {
		return nil, err
	}
	return append([]TransactionEvent(nil), f.wallet[address]...), nil
}

func (f *fakeSource) GetTokenLargeTransactions(_ context.Context, mint string, _ float64) ([]TransactionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[mint]; err != nil {
		return nil, err
	}
	return append([]TransactionEvent(nil), f.whale[mint]...), nil
}

func (f *fakeSource) GetTokenStats(_ context.Context, mint string) (*TokenStats, error) {
	return &TokenStats{Mint: mint}, nil
}

// captureSink records delivered intents in delivery order.
type captureSink struct {
	mu      sync.Mutex
	intents []NotificationIntent
}

func (c *captureSink) Deliver(_ context.Context, intent NotificationIntent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intents = append(c.intents, intent)
}

func (c *captureSink) delivered() []NotificationIntent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]NotificationIntent(nil), c.intents...)
}

func event(sig string, ts time.Time, amount float64) TransactionEvent {
	return TransactionEvent{
		EventID:      sig + ":in",
		Signature:    sig,
		AmountUSD:    amount,
		Timestamp:    ts,
		Direction:    DirectionIn,
		WalletOrMint: testAddrA,
	}
}

func newTestScheduler(src DataSource, r *Registry, sink Sink) *Scheduler {
	return NewScheduler(SchedulerConfig{
		WalletInterval:     time.Minute,
		WhaleInterval:      time.Minute,
		WalletCycleEnabled: true,
		WhaleCycleEnabled:  true,
	}, src, r, NewSeenStore(), sink)
}

func TestWalletTickDeduplicatesAcrossTicks(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.AddWallet(1, testAddrA); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	base := time.Now().Add(-30 * time.Second)
	e1 := event("sig1", base, 100)
	e2 := event("sig2", base.Add(10*time.Second), 200)

	src.wallet[testAddrA] = []TransactionEvent{e1}
	s.WalletTick(context.Background())

	// The provider window overlaps: the second tick returns e1 again
	// plus a genuinely new e2.
	src.wallet[testAddrA] = []TransactionEvent{e1, e2}
	s.WalletTick(context.Background())

	got := sink.delivered()
	if len(got) != 2 {
		t.Fatalf("delivered %d intents, want 2 (e1 once, e2 once)", len(got))
	}
	if got[0].Event.EventID != e1.EventID || got[1].Event.EventID != e2.EventID {
		t.Fatalf("unexpected delivery order: %s then %s", got[0].Event.EventID, got[1].Event.EventID)
	}
	for _, in := range got {
		if in.Kind != KindWalletTransfer {
			t.Fatalf("intent kind = %s, want %s", in.Kind, KindWalletTransfer)
		}
	}
}

func TestWalletTickAdvancesWatermark(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.AddWallet(1, testAddrA); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	latest := time.Now().Add(-20 * time.Second).Truncate(time.Second)
	src.wallet[testAddrA] = []TransactionEvent{
		event("sig1", latest.Add(-40*time.Second), 100),
		event("sig2", latest, 200),
	}
	s.WalletTick(context.Background())

	// First fetch is seeded with one interval of lookback.
	first := src.sinceBy[testAddrA]
	if d := time.Since(first.Add(s.cfg.WalletInterval)); d > 5*time.Second || d < -5*time.Second {
		t.Fatalf("initial watermark should be ~now-interval, got %v", first)
	}

	src.wallet[testAddrA] = nil
	s.WalletTick(context.Background())
	if got := src.sinceBy[testAddrA]; !got.Equal(latest) {
		t.Fatalf("watermark after batch = %v, want %v", got, latest)
	}

	// No new events: the watermark must hold, not regress.
	s.WalletTick(context.Background())
	if got := src.sinceBy[testAddrA]; !got.Equal(latest) {
		t.Fatalf("watermark regressed to %v, want %v", got, latest)
	}
}

func TestWalletTickIsolatesEntityFailures(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	for _, addr := range []string{testAddrA, testAddrB} {
		if err := r.AddWallet(1, addr); err != nil {
			t.Fatal(err)
		}
	}
	s := newTestScheduler(src, r, sink)

	src.fail[testAddrA] = ErrProviderUnavailable
	ok := event("sigB", time.Now().Add(-10*time.Second), 100)
	ok.WalletOrMint = testAddrB
	src.whale[testAddrB] = nil
	src.wallet[testAddrB] = []TransactionEvent{ok}

	s.WalletTick(context.Background())

	got := sink.delivered()
	if len(got) != 1 || got[0].Event.Signature != "sigB" {
		t.Fatalf("healthy wallet should still deliver, got %+v", got)
	}

	// The failed wallet retries from the same watermark next tick.
	firstSince := src.sinceBy[testAddrA]
	delete(src.fail, testAddrA)
	s.WalletTick(context.Background())
	if got := src.sinceBy[testAddrA]; got.Before(firstSince.Add(-time.Second)) {
		t.Fatalf("failed wallet watermark moved backwards: %v -> %v", firstSince, got)
	}
}

func TestWalletTickFansOutToAllSubscribers(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	for _, uid := range []int64{1, 2, 3} {
		if err := r.AddWallet(uid, testAddrA); err != nil {
			t.Fatal(err)
		}
	}
	s := newTestScheduler(src, r, sink)

	src.wallet[testAddrA] = []TransactionEvent{event("sig1", time.Now().Add(-5*time.Second), 100)}
	s.WalletTick(context.Background())

	// One fetch for the shared address, one intent per subscriber.
	if src.calls != 1 {
		t.Fatalf("shared address fetched %d times, want 1", src.calls)
	}
	got := sink.delivered()
	if len(got) != 3 {
		t.Fatalf("delivered %d intents, want 3", len(got))
	}
	users := map[int64]bool{}
	for _, in := range got {
		users[in.UserID] = true
	}
	if len(users) != 3 {
		t.Fatalf("intents reached %d distinct users, want 3", len(users))
	}
}

func TestWalletTickOrdersIntentsByEventTimestamp(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.AddWallet(1, testAddrA); err != nil {
		t.Fatal(err)
	}
	if err := r.AddWallet(1, testAddrB); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	base := time.Now().Add(-40 * time.Second)
	// Interleaved timestamps across the two wallets, served out of
	// order within each batch.
	src.wallet[testAddrA] = []TransactionEvent{
		event("a2", base.Add(20*time.Second), 1),
		event("a1", base, 1),
	}
	src.wallet[testAddrB] = []TransactionEvent{
		event("b2", base.Add(30*time.Second), 1),
		event("b1", base.Add(10*time.Second), 1),
	}
	s.WalletTick(context.Background())

	got := sink.delivered()
	if len(got) != 4 {
		t.Fatalf("delivered %d intents, want 4", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Event.Timestamp.Before(got[i-1].Event.Timestamp) {
			t.Fatalf("intents out of timestamp order at %d: %v after %v",
				i, got[i].Event.Timestamp, got[i-1].Event.Timestamp)
		}
	}
}

func TestWalletTickEmptySnapshotFetchesNothing(t *testing.T) {
	src := newFakeSource()
	s := newTestScheduler(src, NewRegistry(nil), &captureSink{})
	s.WalletTick(context.Background())
	if src.calls != 0 {
		t.Fatalf("empty registry still made %d provider calls", src.calls)
	}
}

func TestWhaleTickThresholdInclusive(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.SetWhaleConfig(1, []string{testMint}, 1000, true); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	base := time.Now().Add(-30 * time.Second)
	src.whale[testMint] = []TransactionEvent{
		event("w1", base, 500),
		event("w2", base.Add(time.Second), 1000),
		event("w3", base.Add(2*time.Second), 1500),
	}
	s.WhaleTick(context.Background())

	got := sink.delivered()
	if len(got) != 2 {
		t.Fatalf("delivered %d intents, want 2 (amounts 1000 and 1500)", len(got))
	}
	if got[0].Event.AmountUSD != 1000 || got[1].Event.AmountUSD != 1500 {
		t.Fatalf("wrong events passed threshold: %v, %v", got[0].Event.AmountUSD, got[1].Event.AmountUSD)
	}
	for _, in := range got {
		if in.Kind != KindWhaleAlert {
			t.Fatalf("intent kind = %s, want %s", in.Kind, KindWhaleAlert)
		}
	}
}

func TestWhaleTickPerUserThresholds(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.SetWhaleConfig(1, []string{testMint}, 1000, true); err != nil {
		t.Fatal(err)
	}
	if err := r.SetWhaleConfig(2, []string{testMint}, 5000, true); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	base := time.Now().Add(-30 * time.Second)
	src.whale[testMint] = []TransactionEvent{
		event("w1", base, 2000),
		event("w2", base.Add(time.Second), 6000),
	}
	s.WhaleTick(context.Background())

	// Shared mint fetched once; user 1 gets both events, user 2 only
	// the one clearing their higher threshold.
	if src.calls != 1 {
		t.Fatalf("shared mint fetched %d times, want 1", src.calls)
	}
	perUser := map[int64]int{}
	for _, in := range sink.delivered() {
		perUser[in.UserID]++
	}
	if perUser[1] != 2 || perUser[2] != 1 {
		t.Fatalf("per-user intents = %v, want map[1:2 2:1]", perUser)
	}
}

func TestWhaleTickDeduplicatesAcrossTicks(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.SetWhaleConfig(1, []string{testMint}, 100, true); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	ev := event("w1", time.Now().Add(-10*time.Second), 500)
	src.whale[testMint] = []TransactionEvent{ev}

	s.WhaleTick(context.Background())
	s.WhaleTick(context.Background())

	if got := sink.delivered(); len(got) != 1 {
		t.Fatalf("overlapping lookback windows delivered %d intents, want 1", len(got))
	}
}

func TestCancelledContextSkipsFiltering(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.AddWallet(1, testAddrA); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	src.wallet[testAddrA] = []TransactionEvent{event("sig1", time.Now(), 100)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.WalletTick(ctx)

	if got := sink.delivered(); len(got) != 0 {
		t.Fatalf("cancelled tick delivered %d intents, want 0", len(got))
	}
	// The event was never marked seen, so a later healthy tick
	// delivers it.
	s.WalletTick(context.Background())
	if got := sink.delivered(); len(got) != 1 {
		t.Fatalf("event lost across cancelled tick: delivered %d, want 1", len(got))
	}
}

func TestRunSkipsOverlappingTicks(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.AddWallet(1, testAddrA); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	// Claim the wallet slot as if a slow tick were still in flight;
	// the direct tick path must be unaffected while Run's dispatch
	// would skip.
	if !s.walletRunning.CompareAndSwap(false, true) {
		t.Fatal("walletRunning should start false")
	}
	if s.walletRunning.CompareAndSwap(false, true) {
		t.Fatal("second claim must fail while the first holds the slot")
	}
	s.walletRunning.Store(false)
	if !s.walletRunning.CompareAndSwap(false, true) {
		t.Fatal("slot should be reclaimable after release")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		WalletInterval:     time.Hour,
		WhaleInterval:      time.Hour,
		WalletCycleEnabled: true,
		WhaleCycleEnabled:  true,
	}, newFakeSource(), NewRegistry(nil), NewSeenStore(), &captureSink{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestSchedulerConfigDefaults(t *testing.T) {
	cfg := SchedulerConfig{WalletInterval: time.Minute, WhaleInterval: 2 * time.Minute}.withDefaults()
	if cfg.FetchConcurrency != 4 {
		t.Fatalf("FetchConcurrency = %d, want 4", cfg.FetchConcurrency)
	}
	if cfg.EvictInterval != time.Hour {
		t.Fatalf("EvictInterval = %v, want 1h", cfg.EvictInterval)
	}
	// 10x the longest interval is under a day, so the floor applies.
	if cfg.Retention != 24*time.Hour {
		t.Fatalf("Retention = %v, want 24h", cfg.Retention)
	}

	long := SchedulerConfig{WalletInterval: 4 * time.Hour, WhaleInterval: time.Minute}.withDefaults()
	if long.Retention != 40*time.Hour {
		t.Fatalf("Retention = %v, want 40h", long.Retention)
	}
}

func TestWalletTickTransientErrorClassification(t *testing.T) {
	src := newFakeSource()
	sink := &captureSink{}
	r := NewRegistry(nil)
	if err := r.AddWallet(1, testAddrA); err != nil {
		t.Fatal(err)
	}
	s := newTestScheduler(src, r, sink)

	src.fail[testAddrA] = errors.New("malformed response")
	s.WalletTick(context.Background())
	if got := sink.delivered(); len(got) != 0 {
		t.Fatalf("failed fetch delivered %d intents, want 0", len(got))
	}
}
