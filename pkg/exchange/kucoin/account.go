package kucoin

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/core"
	"tradewire/pkg/market"
)

// Balances fetches all spot accounts and sums balances per currency; Kucoin
// splits holdings across main, trade, and margin accounts.
func (c *Client) Balances(ctx context.Context, opts ...Option) ([]market.AssetBalance, error) {
	var out struct {
		Code string `json:"code"`
		Data []struct {
			Currency string `json:"currency"`
			Type     string `json:"type"`
			Balance  string `json:"balance"`
		} `json:"data"`
	}
	signed := append(opts, WithAuth(core.AuthSign))
	if err := c.GetNoQuery(ctx, "/api/v1/accounts", &out, signed...); err != nil {
		return nil, err
	}

	at := time.Now()
	sumCtx := apd.BaseContext.WithPrecision(30)
	totals := make(map[string]*apd.Decimal)
	var order []string
	for _, account := range out.Data {
		balance, err := market.ParseDecimal(account.Balance)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", account.Currency, err)
		}
		if existing, ok := totals[account.Currency]; ok {
			if _, err := sumCtx.Add(existing, existing, balance); err != nil {
				return nil, err
			}
			continue
		}
		totals[account.Currency] = balance
		order = append(order, account.Currency)
	}

	balances := make([]market.AssetBalance, 0, len(order))
	for _, currency := range order {
		balances = append(balances, market.AssetBalance{Asset: currency, Balance: totals[currency], Time: at})
	}
	return balances, nil
}

// AssetBalance fetches the combined balance of a single asset. It errors if
// the asset has no account.
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
