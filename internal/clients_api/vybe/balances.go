package vybe

// Wallet balance endpoint: used by the dashboard surface when a user
// starts tracking a wallet.

import (
	"context"
	"encoding/json"
	"fmt"
)

// TokenBalance is one held token in a wallet balance response.
// Numeric fields stay provider-side strings; formatting parses them.
type TokenBalance struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	ValueUSD string `json:"valueUsd"`
	PriceUSD string `json:"priceUsd"`
}

// WalletBalances is the /account/token-balance payload.
type WalletBalances struct {
	TotalTokenValueUSD         string         `json:"totalTokenValueUsd"`
	TotalTokenValueUSD1dChange string         `json:"totalTokenValueUsd1dChange"`
	TotalTokenCount            int            `json:"totalTokenCount"`
	Tokens                     []TokenBalance `json:"data"`
}

// GetWalletBalances fetches token balances for a wallet.
func (c *Client) GetWalletBalances(ctx context.Context, owner string) (*WalletBalances, error) {
	body, err := c.get(ctx, "/account/token-balance/"+owner)
	if err != nil {
		return nil, err
	}

	var balances WalletBalances
	if err := json.Unmarshal(body, &balances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet balances: %w", err)
	}
	return &balances, nil
}
