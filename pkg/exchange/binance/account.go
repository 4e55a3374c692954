package binance

import (
	"context"
	"fmt"
	"time"

	"tradewire/pkg/core"
	"tradewire/pkg/market"
)

// Balances fetches the USD-margined futures wallet balances. Requires signed
// auth; credentials come from the default bag or per-call options.
func (c *Client) Balances(ctx context.Context, opts ...Option) ([]market.AssetBalance, error) {
	var out []struct {
		Asset      string `json:"asset"`
		Balance    string `json:"balance"`
		UpdateTime int64  `json:"updateTime"`
	}
	signed := append(withFutures(opts), WithAuth(core.AuthSign))
	if err := c.GetNoQuery(ctx, "/fapi/v3/balance", &out, signed...); err != nil {
		return nil, err
	}

	balances := make([]market.AssetBalance, 0, len(out))
	for _, entry := range out {
		balance, err := market.ParseDecimal(entry.Balance)
		if err != nil {
			return nil, err
		}
		balances = append(balances, market.AssetBalance{
			Asset:   entry.Asset,
			Balance: balance,
			Time:    time.UnixMilli(entry.UpdateTime),
		})
	}
	return balances, nil
}

// AssetBalance fetches the balance of a single futures wallet asset.
func (c *Client) AssetBalance(ctx context.Context, asset string, opts ...Option) (market.AssetBalance, error) {
	balances, err := c.Balances(ctx, opts...)
	if err != nil {
		return market.AssetBalance{}, err
	}
	for _, b := range balances {
		if b.Asset == asset {
			return b, nil
		}
	}
	return market.AssetBalance{}, fmt.Errorf("no balance entry for asset %q", asset)
}
