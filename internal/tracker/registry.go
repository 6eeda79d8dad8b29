package tracker

// SubscriptionRegistry: in-memory index of which users track which
// wallets and which tokens, read-mostly with occasional writes.

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	logging "vybe-pulse/internal/infra/log"

	"go.uber.org/zap"
)

// solanaAddressRe matches a base58 Solana address (32-44 chars).
var solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidAddress reports whether addr passes wallet address format
// validation.
func ValidAddress(addr string) bool {
	return solanaAddressRe.MatchString(addr)
}

// userRecord is the per-user registry entry. Wallets keep insertion
// order for stable dashboard display.
type userRecord struct {
	Wallets []WalletSubscription `json:"wallets"`
	Whale   WhaleAlertConfig     `json:"whaleAlert"`
}

// RegistryStore persists registry state across restarts. Implemented
// by infra/fs; nil disables persistence.
type RegistryStore interface {
	Load() (map[int64]*UserState, error)
	Save(map[int64]*UserState) error
}

// UserState is the serializable view of one user's subscriptions,
// exchanged with a RegistryStore.
type UserState struct {
	Wallets []WalletSubscription `json:"wallets"`
	Whale   WhaleAlertConfig     `json:"whaleAlert"`
}

// Registry is the subscription index. All methods are safe for
// concurrent use; Snapshot returns a deep copy so an in-flight tick
// never observes mutations.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]*userRecord
	store RegistryStore
	now   func() time.Time
}

// NewRegistry builds a registry, loading prior state from store when
// one is provided.
func NewRegistry(store RegistryStore) *Registry {
	r := &Registry{
		users: make(map[int64]*userRecord),
		store: store,
		now:   time.Now,
	}
	if store != nil {
		state, err := store.Load()
		if err != nil {
			logging.LogWarn("Failed to load registry state, starting empty", zap.Error(err))
		} else {
			for uid, st := range state {
				r.users[uid] = &userRecord{
					Wallets: append([]WalletSubscription(nil), st.Wallets...),
					Whale:   cloneWhale(st.Whale),
				}
			}
			logging.LogInfo("Loaded registry state", zap.Int("users", len(r.users)))
		}
	}
	return r
}

func cloneWhale(w WhaleAlertConfig) WhaleAlertConfig {
	w.TokenMints = append([]string(nil), w.TokenMints...)
	return w
}

func (r *Registry) user(userID int64) *userRecord {
	rec, ok := r.users[userID]
	if !ok {
		rec = &userRecord{Whale: WhaleAlertConfig{UserID: userID, ThresholdUSD: DefaultWhaleThresholdUSD}}
		r.users[userID] = rec
	}
	return rec
}

// AddWallet registers a wallet subscription for the user. Idempotent:
// re-adding an existing pair is not an error and creates no duplicate.
func (r *Registry) AddWallet(userID int64, address string) error {
	if !ValidAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.user(userID)
	seen := 0
	for _, sub := range rec.Wallets {
		if sub.Address == address {
			seen++
		}
	}
	if seen > 1 {
		// Duplicate outside the idempotent-insert path: a bug, not a
		// recoverable condition.
		return fmt.Errorf("%w: duplicate subscription user=%d address=%s", ErrInvariant, userID, address)
	}
	if seen == 1 {
		return nil
	}

	rec.Wallets = append(rec.Wallets, WalletSubscription{
		UserID:    userID,
		Address:   address,
		CreatedAt: r.now(),
	})
	r.persistLocked()
	return nil
}

// RemoveWallet drops a wallet subscription. Removing an absent pair is
// a no-op, not an error.
func (r *Registry) RemoveWallet(userID int64, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[userID]
	if !ok {
		return
	}
	for i, sub := range rec.Wallets {
		if sub.Address == address {
			rec.Wallets = append(rec.Wallets[:i], rec.Wallets[i+1:]...)
			r.persistLocked()
			return
		}
	}
}

// ListWallets returns the user's subscriptions in insertion order.
func (r *Registry) ListWallets(userID int64) []WalletSubscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[userID]
	if !ok {
		return nil
	}
	return append([]WalletSubscription(nil), rec.Wallets...)
}

// SetWhaleConfig replaces the user's whale-alert configuration
// wholesale. Callers read-modify-write the whole config to avoid
// partial-update races. A zero threshold alerts on every matching
// transaction; negative thresholds are rejected.
func (r *Registry) SetWhaleConfig(userID int64, mints []string, thresholdUSD float64, enabled bool) error {
	if thresholdUSD < 0 {
		return fmt.Errorf("whale threshold must be >= 0, got %v", thresholdUSD)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.user(userID)
	rec.Whale = WhaleAlertConfig{
		UserID:       userID,
		TokenMints:   append([]string(nil), mints...),
		ThresholdUSD: thresholdUSD,
		Enabled:      enabled,
	}
	r.persistLocked()
	return nil
}

// WhaleConfig returns a copy of the user's whale-alert configuration.
func (r *Registry) WhaleConfig(userID int64) WhaleAlertConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[userID]
	if !ok {
		return WhaleAlertConfig{UserID: userID, ThresholdUSD: DefaultWhaleThresholdUSD}
	}
	return cloneWhale(rec.Whale)
}

// Snapshot is a point-in-time copy of the registry consumed by one
// scheduler tick.
type Snapshot struct {
	Wallets []WalletSubscription
	Whales  []WhaleAlertConfig
}

// Snapshot deep-copies the current state. Users with no wallets and a
// disabled whale config contribute no work items.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var snap Snapshot
	uids := make([]int64, 0, len(r.users))
	for uid := range r.users {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	for _, uid := range uids {
		rec := r.users[uid]
		snap.Wallets = append(snap.Wallets, rec.Wallets...)
		if rec.Whale.Enabled && len(rec.Whale.TokenMints) > 0 {
			snap.Whales = append(snap.Whales, cloneWhale(rec.Whale))
		}
	}
	return snap
}

// persistLocked writes state through to the store. Caller holds mu.
func (r *Registry) persistLocked() {
	if r.store == nil {
		return
	}
	state := make(map[int64]*UserState, len(r.users))
	for uid, rec := range r.users {
		state[uid] = &UserState{
			Wallets: append([]WalletSubscription(nil), rec.Wallets...),
			Whale:   cloneWhale(rec.Whale),
		}
	}
	if err := r.store.Save(state); err != nil {
		logging.LogWarn("Failed to persist registry state", zap.Error(err))
	}
}
