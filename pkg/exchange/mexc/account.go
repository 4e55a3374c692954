package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradewire/pkg/core"
	"tradewire/pkg/market"
)

type assetEntry struct {
	Currency         string      `json:"currency"`
	AvailableBalance json.Number `json:"availableBalance"`
	FrozenBalance    json.Number `json:"frozenBalance"`
	Equity           json.Number `json:"equity"`
}

func (e assetEntry) toBalance(at time.Time) (market.AssetBalance, error) {
	equity, err := market.ParseDecimal(e.Equity.String())
	if err != nil {
		return market.AssetBalance{}, fmt.Errorf("equity for %s: %w", e.Currency, err)
	}
	return market.AssetBalance{Asset: e.Currency, Balance: equity, Time: at}, nil
}

// Balances fetches the contract wallet. Each asset's balance is its equity,
// margin and unrealized PnL included.
func (c *Client) Balances(ctx context.Context, opts ...Option) ([]market.AssetBalance, error) {
	var out struct {
		Data []assetEntry `json:"data"`
	}
	signed := append(opts, WithAuth(core.AuthSign))
	if err := c.GetNoQuery(ctx, "/api/v1/private/account/assets", &out, signed...); err != nil {
		return nil, err
	}

	at := time.Now()
	balances := make([]market.AssetBalance, 0, len(out.Data))
	for _, entry := range out.Data {
		balance, err := entry.toBalance(at)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

// AssetBalance fetches the contract wallet entry for a single asset.
func (c *Client) AssetBalance(ctx context.Context, asset string, opts ...Option) (market.AssetBalance, error) {
	var out struct {
		Data assetEntry `json:"data"`
	}
	signed := append(opts, WithAuth(core.AuthSign))
	if err := c.GetNoQuery(ctx, "/api/v1/private/account/asset/"+asset, &out, signed...); err != nil {
		return market.AssetBalance{}, err
	}
	return out.Data.toBalance(time.Now())
}
