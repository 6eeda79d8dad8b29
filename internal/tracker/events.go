package tracker

// Core data model for the notification engine: normalized on-chain
// events coming in from the provider and notification intents going
// out to the sink.

import (
	"context"
	"errors"
	"time"
)

// Direction of a transfer relative to the tracked wallet.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// TransactionEvent is a normalized provider transfer. Immutable once
// fetched; identity is EventID, never re-derived from other fields.
type TransactionEvent struct {
	// EventID is provider-assigned or derived deterministically from
	// signature+direction by the client adapter.
	EventID      string    `json:"eventId"`
	Signature    string    `json:"signature"`
	WalletOrMint string    `json:"walletOrMint"`
	AmountUSD    float64   `json:"amountUsd"`
	TokenSymbol  string    `json:"tokenSymbol"`
	TokenMint    string    `json:"tokenMint"`
	Timestamp    time.Time `json:"timestamp"`
	Direction    Direction `json:"direction"`
	Counterparty string    `json:"counterparty"`
}

// IntentKind tags which cycle produced a notification intent.
type IntentKind string

const (
	KindWalletTransfer IntentKind = "wallet_transfer"
	KindWhaleAlert     IntentKind = "whale_alert"
)

// NotificationIntent is the pre-delivery representation of "this user
// should be told about this event". Transient; not persisted beyond
// the sink handoff.
type NotificationIntent struct {
	UserID      int64
	Kind        IntentKind
	Event       TransactionEvent
	GeneratedAt time.Time
}

// WalletSubscription records that a user tracks a wallet address.
// Unique per (UserID, Address).
type WalletSubscription struct {
	UserID    int64     `json:"userId"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// WhaleAlertConfig holds a user's whale-alert settings. One per user,
// replaced wholesale by SetWhaleConfig.
type WhaleAlertConfig struct {
	UserID       int64    `json:"userId"`
	TokenMints   []string `json:"tokenMints"`
	ThresholdUSD float64  `json:"thresholdUsd"`
	Enabled      bool     `json:"enabled"`
}

// DefaultWhaleThresholdUSD applies when a user enables whale alerts
// without setting a threshold.
const DefaultWhaleThresholdUSD = 50000

// TokenStats is a passthrough stats record for dashboard display, not
// involved in alert logic.
type TokenStats struct {
	Mint           string  `json:"mintAddress"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	PriceUSD       float64 `json:"price"`
	PriceChange24h float64 `json:"price1dChange"`
	Volume24hUSD   float64 `json:"usdValueVolume24h"`
	MarketCapUSD   float64 `json:"marketCap"`
}

// DataSource is the narrow read interface over the blockchain data
// provider. Implementations own retry/backoff for transient failures
// and surface ErrProviderUnavailable once retries are exhausted.
type DataSource interface {
	// GetWalletTransactions returns events for address with
	// Timestamp > since, ascending by timestamp. Empty is valid.
	GetWalletTransactions(ctx context.Context, address string, since time.Time) ([]TransactionEvent, error)
	// GetTokenLargeTransactions returns recent transfers of the token
	// with AmountUSD >= minAmount.
	GetTokenLargeTransactions(ctx context.Context, mint string, minAmount float64) ([]TransactionEvent, error)
	GetTokenStats(ctx context.Context, mint string) (*TokenStats, error)
}

// Sink receives notification intents. The core guarantees selection
// and ordering only; delivery (and any delivery retry) is the sink's
// concern.
type Sink interface {
	Deliver(ctx context.Context, intent NotificationIntent)
}

var (
	// ErrInvalidAddress rejects user input that fails wallet address
	// format validation. No state change.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrProviderUnavailable marks a provider call that failed after
	// retries. The scheduler skips the entity for the current tick.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvariant signals a registry invariant violation. Programming
	// error, not user-facing.
	ErrInvariant = errors.New("registry invariant violation")
)
