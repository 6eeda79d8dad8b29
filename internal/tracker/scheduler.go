package tracker

// PollScheduler drives the two periodic notification cycles
// (wallet-tracking, whale-alert) plus a slow eviction pass over the
// seen-event ledger. Each cycle runs independently with
// skip-on-overlap: slow provider responses throttle the effective
// frequency instead of accumulating concurrent work.

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	logging "vybe-pulse/internal/infra/log"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SchedulerConfig controls the poll cycles. Intervals must be
// positive; validation happens at the config boundary before this
// struct is built.
type SchedulerConfig struct {
	WalletInterval time.Duration
	WhaleInterval  time.Duration

	// FetchConcurrency bounds parallel per-entity provider fetches
	// within one tick. Defaults to 4.
	FetchConcurrency int

	// EvictInterval is the cadence of the seen-store eviction pass.
	// Defaults to 1 hour.
	EvictInterval time.Duration

	// Retention is how long seen records are kept. Defaults to
	// max(10x the longest cycle interval, 24h).
	Retention time.Duration

	// WalletCycleEnabled / WhaleCycleEnabled suspend a cycle entirely
	// when false.
	WalletCycleEnabled bool
	WhaleCycleEnabled  bool
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	if c.EvictInterval <= 0 {
		c.EvictInterval = time.Hour
	}
	if c.Retention <= 0 {
		longest := c.WalletInterval
		if c.WhaleInterval > longest {
			longest = c.WhaleInterval
		}
		c.Retention = 10 * longest
		if c.Retention < 24*time.Hour {
			c.Retention = 24 * time.Hour
		}
	}
	return c
}

// Scheduler fans a tick out over the registry snapshot, fetches per
// entity through the data source, filters through the seen store and
// per-user thresholds, and hands ordered intents to the sink.
type Scheduler struct {
	cfg      SchedulerConfig
	src      DataSource
	registry *Registry
	seen     *SeenStore
	sink     Sink
	clock    func() time.Time

	walletRunning atomic.Bool
	whaleRunning  atomic.Bool

	// Per-address fetch watermarks, advanced only after an address's
	// whole batch has passed dedup filtering.
	mu         sync.Mutex
	watermarks map[string]time.Time
}

func NewScheduler(cfg SchedulerConfig, src DataSource, registry *Registry, seen *SeenStore, sink Sink) *Scheduler {
	return &Scheduler{
		cfg:        cfg.withDefaults(),
		src:        src,
		registry:   registry,
		seen:       seen,
		sink:       sink,
		clock:      time.Now,
		watermarks: make(map[string]time.Time),
	}
}

// Run blocks until ctx is cancelled, driving all cycles. A tick in
// progress at shutdown is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	logging.LogInfo("Starting poll scheduler",
		zap.Duration("walletInterval", s.cfg.WalletInterval),
		zap.Duration("whaleInterval", s.cfg.WhaleInterval),
		zap.Bool("walletCycle", s.cfg.WalletCycleEnabled),
		zap.Bool("whaleCycle", s.cfg.WhaleCycleEnabled),
		zap.Int("fetchConcurrency", s.cfg.FetchConcurrency))

	walletC := suspendedChan()
	if s.cfg.WalletCycleEnabled {
		t := time.NewTicker(s.cfg.WalletInterval)
		defer t.Stop()
		walletC = t.C
	} else {
		logging.LogWarn("Wallet tracking cycle suspended by configuration")
	}

	whaleC := suspendedChan()
	if s.cfg.WhaleCycleEnabled {
		t := time.NewTicker(s.cfg.WhaleInterval)
		defer t.Stop()
		whaleC = t.C
	} else {
		logging.LogWarn("Whale alert cycle suspended by configuration")
	}

	evictTicker := time.NewTicker(s.cfg.EvictInterval)
	defer evictTicker.Stop()

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			logging.LogInfo("Poll scheduler stopped")
			return
		case <-walletC:
			if !s.walletRunning.CompareAndSwap(false, true) {
				logging.LogWarn("Skipping wallet tick: previous still running")
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer s.walletRunning.Store(false)
				s.WalletTick(ctx)
			}()
		case <-whaleC:
			if !s.whaleRunning.CompareAndSwap(false, true) {
				logging.LogWarn("Skipping whale tick: previous still running")
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer s.whaleRunning.Store(false)
				s.WhaleTick(ctx)
			}()
		case <-evictTicker.C:
			horizon := s.clock().Add(-s.cfg.Retention)
			removed := s.seen.Evict(horizon)
			logging.LogDebug("Evicted seen records",
				zap.Int("removed", removed),
				zap.Int("remaining", s.seen.Len()))
		}
	}
}

// suspendedChan returns a nil channel: a select case that never fires.
func suspendedChan() <-chan time.Time { return nil }

type fetchResult struct {
	entity string
	events []TransactionEvent
	err    error
}

// fanOut fetches every entity concurrently up to the configured limit.
// Worker errors are recorded per entity, never returned: a single bad
// entity cannot abort a tick covering many users.
func (s *Scheduler) fanOut(ctx context.Context, entities []string, fetch func(ctx context.Context, entity string) ([]TransactionEvent, error)) []fetchResult {
	results := make([]fetchResult, len(entities))
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			events, err := fetch(ctx, entity)
			results[i] = fetchResult{entity: entity, events: events, err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// WalletTick runs one execution of the wallet-tracking cycle.
func (s *Scheduler) WalletTick(ctx context.Context) {
	started := s.clock()
	snap := s.registry.Snapshot()

	// Multiple users may track the same wallet: group to fetch each
	// distinct address once, then fan intents out per subscriber.
	subscribers := make(map[string][]int64)
	var addresses []string
	for _, sub := range snap.Wallets {
		if _, ok := subscribers[sub.Address]; !ok {
			addresses = append(addresses, sub.Address)
		}
		subscribers[sub.Address] = append(subscribers[sub.Address], sub.UserID)
	}
	if len(addresses) == 0 {
		return
	}

	results := s.fanOut(ctx, addresses, func(ctx context.Context, addr string) ([]TransactionEvent, error) {
		return s.src.GetWalletTransactions(ctx, addr, s.watermark(addr))
	})

	// Merge before filtering so MarkAndCheck stays the single
	// serialization point.
	var intents []NotificationIntent
	fetched, skipped := 0, 0
	for _, res := range results {
		if ctx.Err() != nil {
			// Shutting down: leave unfiltered addresses untouched so
			// their watermarks and seen records stay consistent.
			break
		}
		if res.err != nil {
			skipped++
			logging.LogWarn("Wallet fetch failed, skipping for this tick",
				zap.String("address", res.entity),
				zap.Bool("transient", errors.Is(res.err, ErrProviderUnavailable)),
				zap.Error(res.err))
			continue
		}
		fetched++
		intents = append(intents, s.filterWalletBatch(res.entity, res.events, subscribers[res.entity])...)
	}

	s.emit(ctx, intents)
	logging.LogInfo("Wallet tick finished",
		zap.Int("addresses", len(addresses)),
		zap.Int("fetched", fetched),
		zap.Int("skipped", skipped),
		zap.Int("intents", len(intents)),
		zap.Int64("duration_ms", time.Since(started).Milliseconds()))
}

// filterWalletBatch runs one address's batch through dedup filtering
// and advances the watermark afterwards, keeping watermark-advance and
// dedup-mark tightly coupled.
func (s *Scheduler) filterWalletBatch(address string, events []TransactionEvent, userIDs []int64) []NotificationIntent {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	maxTS := s.watermark(address)
	var intents []NotificationIntent
	for _, ev := range events {
		if ev.Timestamp.After(maxTS) {
			maxTS = ev.Timestamp
		}
		if !s.seen.MarkAndCheck(ev.EventID) {
			continue
		}
		for _, uid := range userIDs {
			intents = append(intents, NotificationIntent{
				UserID:      uid,
				Kind:        KindWalletTransfer,
				Event:       ev,
				GeneratedAt: s.clock(),
			})
		}
	}

	// Advance even with zero new events: prevents re-scanning a
	// growing unchanged window.
	s.advanceWatermark(address, maxTS)
	return intents
}

// WhaleTick runs one execution of the whale-alert cycle.
func (s *Scheduler) WhaleTick(ctx context.Context) {
	started := s.clock()
	snap := s.registry.Snapshot()

	// Group by distinct mint with the minimal threshold among
	// subscribers, so each token is fetched once and fanned out per
	// user whose individual threshold is met.
	type mintGroup struct {
		minThreshold float64
		configs      []WhaleAlertConfig
	}
	groups := make(map[string]*mintGroup)
	var mints []string
	for _, cfg := range snap.Whales {
		for _, mint := range cfg.TokenMints {
			g, ok := groups[mint]
			if !ok {
				g = &mintGroup{minThreshold: cfg.ThresholdUSD}
				groups[mint] = g
				mints = append(mints, mint)
			}
			if cfg.ThresholdUSD < g.minThreshold {
				g.minThreshold = cfg.ThresholdUSD
			}
			g.configs = append(g.configs, cfg)
		}
	}
	if len(mints) == 0 {
		return
	}

	results := s.fanOut(ctx, mints, func(ctx context.Context, mint string) ([]TransactionEvent, error) {
		return s.src.GetTokenLargeTransactions(ctx, mint, groups[mint].minThreshold)
	})

	var intents []NotificationIntent
	fetched, skipped := 0, 0
	for _, res := range results {
		if ctx.Err() != nil {
			break
		}
		if res.err != nil {
			skipped++
			logging.LogWarn("Whale fetch failed, skipping for this tick",
				zap.String("mint", res.entity),
				zap.Bool("transient", errors.Is(res.err, ErrProviderUnavailable)),
				zap.Error(res.err))
			continue
		}
		fetched++

		events := res.events
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Timestamp.Before(events[j].Timestamp)
		})
		for _, ev := range events {
			if !s.seen.MarkAndCheck(ev.EventID) {
				continue
			}
			for _, cfg := range groups[res.entity].configs {
				// Boundary: amount == threshold alerts (inclusive).
				if ev.AmountUSD < cfg.ThresholdUSD {
					continue
				}
				intents = append(intents, NotificationIntent{
					UserID:      cfg.UserID,
					Kind:        KindWhaleAlert,
					Event:       ev,
					GeneratedAt: s.clock(),
				})
			}
		}
	}

	s.emit(ctx, intents)
	logging.LogInfo("Whale tick finished",
		zap.Int("mints", len(mints)),
		zap.Int("fetched", fetched),
		zap.Int("skipped", skipped),
		zap.Int("intents", len(intents)),
		zap.Int64("duration_ms", time.Since(started).Milliseconds()))
}

// emit hands intents to the sink ordered by event timestamp, which
// gives each user their intents in increasing timestamp order. Dedup
// already happened at filter time, so delivery failures in the sink
// are never retried by re-emitting.
func (s *Scheduler) emit(ctx context.Context, intents []NotificationIntent) {
	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].Event.Timestamp.Before(intents[j].Event.Timestamp)
	})
	for _, intent := range intents {
		s.sink.Deliver(ctx, intent)
	}
}

// watermark returns the last processed timestamp for an address,
// seeding first-time addresses with one interval of lookback.
func (s *Scheduler) watermark(address string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts, ok := s.watermarks[address]; ok {
		return ts
	}
	return s.clock().Add(-s.cfg.WalletInterval)
}

func (s *Scheduler) advanceWatermark(address string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.watermarks[address]; !ok || ts.After(cur) {
		s.watermarks[address] = ts
	}
}
