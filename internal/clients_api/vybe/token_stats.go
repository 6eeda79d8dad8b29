package vybe

import (
	"context"
	"encoding/json"
	"fmt"

	"vybe-pulse/internal/tracker"
)

// GetTokenStats fetches the token's stats record. Dashboard read only,
// not involved in alert logic.
func (c *Client) GetTokenStats(ctx context.Context, mint string) (*tracker.TokenStats, error) {
	body, err := c.get(ctx, "/token/"+mint)
	if err != nil {
		return nil, err
	}

	var stats tracker.TokenStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token stats: %w", err)
	}
	if stats.Mint == "" {
		stats.Mint = mint
	}
	return &stats, nil
}
