package vybe

// Top holders endpoint: feeds the dashboard's holders table and chart.

import (
	"context"
	"encoding/json"
	"fmt"
)

// TokenHolder is one entry of the /token/{mint}/top-holders payload.
type TokenHolder struct {
	Rank               int     `json:"rank"`
	OwnerAddress       string  `json:"ownerAddress"`
	OwnerName          string  `json:"ownerName"`
	Balance            string  `json:"balance"`
	ValueUSD           string  `json:"valueUsd"`
	PercentageOfSupply float64 `json:"percentageOfSupplyHeld"`
}

type topHoldersResponse struct {
	Data []TokenHolder `json:"data"`
}

// GetTopTokenHolders fetches up to count top holders of a token.
func (c *Client) GetTopTokenHolders(ctx context.Context, mint string, count int) ([]TokenHolder, error) {
	if count <= 0 {
		count = 5
	}
	body, err := c.get(ctx, "/token/"+mint+"/top-holders")
	if err != nil {
		return nil, err
	}

	var resp topHoldersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal top holders: %w", err)
	}
	if len(resp.Data) > count {
		resp.Data = resp.Data[:count]
	}
	return resp.Data, nil
}
