package vybe

// Token transfer endpoints and normalization into tracker events.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"vybe-pulse/internal/tracker"
)

// dustThresholdUSD drops near-zero transfers (airdrop spam and
// rounding noise) before they reach the dedup filter.
const dustThresholdUSD = 0.01

// transferQueryLimit caps results per transfer query.
const transferQueryLimit = 100

// transfer mirrors one entry of the provider's /token/transfers
// payload. Numeric values arrive as strings.
type transfer struct {
	Signature        string `json:"signature"`
	SenderAddress    string `json:"senderAddress"`
	ReceiverAddress  string `json:"receiverAddress"`
	MintAddress      string `json:"mintAddress"`
	ValueUSD         string `json:"valueUsd"`
	CalculatedAmount string `json:"calculatedAmount"`
	BlockTime        int64  `json:"blockTime"`
}

type transfersResponse struct {
	Transfers []transfer `json:"transfers"`
}

func (c *Client) fetchTransfers(ctx context.Context, query url.Values) ([]transfer, error) {
	body, err := c.get(ctx, "/token/transfers?"+query.Encode())
	if err != nil {
		return nil, err
	}
	var resp transfersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfers response: %w", err)
	}
	return resp.Transfers, nil
}

// GetWalletTransactions returns the wallet's transfers with timestamp
// strictly after since, ascending. The wallet appears both as sender
// and receiver, so two queries are merged; the event identity is
// derived from signature+direction, which keeps a self-transfer as
// two distinct events.
func (c *Client) GetWalletTransactions(ctx context.Context, address string, since time.Time) ([]tracker.TransactionEvent, error) {
	timeStart := strconv.FormatInt(since.Unix(), 10)
	limit := strconv.Itoa(transferQueryLimit)

	received, err := c.fetchTransfers(ctx, url.Values{
		"receiverAddress": {address},
		"timeStart":       {timeStart},
		"limit":           {limit},
	})
	if err != nil {
		return nil, err
	}
	sent, err := c.fetchTransfers(ctx, url.Values{
		"senderAddress": {address},
		"timeStart":     {timeStart},
		"limit":         {limit},
	})
	if err != nil {
		return nil, err
	}

	events := normalizeWalletTransfers(address, received, sent, since)
	return events, nil
}

// normalizeWalletTransfers merges both query results into ordered
// tracker events, applying the dust filter and the since boundary.
func normalizeWalletTransfers(address string, received, sent []transfer, since time.Time) []tracker.TransactionEvent {
	var events []tracker.TransactionEvent
	appendSide := func(transfers []transfer, dir tracker.Direction) {
		for _, t := range transfers {
			ev, ok := normalizeTransfer(t, dir)
			if !ok {
				continue
			}
			ev.WalletOrMint = address
			if !ev.Timestamp.After(since) {
				continue
			}
			events = append(events, ev)
		}
	}
	appendSide(received, tracker.DirectionIn)
	appendSide(sent, tracker.DirectionOut)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

// normalizeTransfer converts one provider transfer. Returns false for
// dust and entries without a signature.
func normalizeTransfer(t transfer, dir tracker.Direction) (tracker.TransactionEvent, bool) {
	if t.Signature == "" {
		return tracker.TransactionEvent{}, false
	}
	value := parseAmount(t.ValueUSD)
	if value <= dustThresholdUSD {
		return tracker.TransactionEvent{}, false
	}

	counterparty := t.SenderAddress
	if dir == tracker.DirectionOut {
		counterparty = t.ReceiverAddress
	}
	return tracker.TransactionEvent{
		EventID:      t.Signature + ":" + string(dir),
		Signature:    t.Signature,
		AmountUSD:    value,
		TokenMint:    t.MintAddress,
		Timestamp:    time.Unix(t.BlockTime, 0).UTC(),
		Direction:    dir,
		Counterparty: counterparty,
	}, true
}

// GetTokenLargeTransactions returns the token's transfers from the
// lookback window with AmountUSD >= minAmount. Overlap across ticks is
// expected; the caller's dedup store absorbs it.
func (c *Client) GetTokenLargeTransactions(ctx context.Context, mint string, minAmount float64) ([]tracker.TransactionEvent, error) {
	timeStart := c.clock().Add(-c.whaleLookback)
	transfers, err := c.fetchTransfers(ctx, url.Values{
		"mintAddress": {mint},
		"timeStart":   {strconv.FormatInt(timeStart.Unix(), 10)},
		"limit":       {strconv.Itoa(transferQueryLimit)},
	})
	if err != nil {
		return nil, err
	}

	symbol := ""
	if stats, statsErr := c.GetTokenStats(ctx, mint); statsErr == nil {
		symbol = stats.Symbol
	}

	events := filterLargeTransfers(mint, transfers, minAmount)
	for i := range events {
		events[i].TokenSymbol = symbol
	}
	return events, nil
}

// filterLargeTransfers normalizes token transfers, keeping those at or
// above minAmount, ascending by timestamp. The direction tag here is
// relative to the token flow (always "in" to the receiver); identity
// stays signature-scoped so the same transfer never alerts twice.
func filterLargeTransfers(mint string, transfers []transfer, minAmount float64) []tracker.TransactionEvent {
	var events []tracker.TransactionEvent
	for _, t := range transfers {
		ev, ok := normalizeTransfer(t, tracker.DirectionIn)
		if !ok {
			continue
		}
		if ev.AmountUSD < minAmount {
			continue
		}
		ev.WalletOrMint = mint
		ev.TokenMint = mint
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

// parseAmount converts the provider's stringly numbers; malformed
// values count as zero (then get dropped by the dust filter).
func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
