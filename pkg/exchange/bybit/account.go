package bybit

import (
	"context"
	"fmt"
	"time"

	"tradewire/pkg/core"
	"tradewire/pkg/market"
)

// Balances fetches the unified account's wallet balances.
func (c *Client) Balances(ctx context.Context, opts ...Option) ([]market.AssetBalance, error) {
	query := map[string]string{"accountType": "UNIFIED"}
	var out struct {
		Result struct {
			List []struct {
				AccountType string `json:"accountType"`
				Coin        []struct {
					Coin          string `json:"coin"`
					WalletBalance string `json:"walletBalance"`
				} `json:"coin"`
			} `json:"list"`
		} `json:"result"`
		Time int64 `json:"time"`
	}
	signed := append([]Option{WithVariant(VariantV5)}, opts...)
	signed = append(signed, WithAuth(core.AuthSign))
	if err := c.Get(ctx, "/v5/account/wallet-balance", query, &out, signed...); err != nil {
		return nil, err
	}
	if len(out.Result.List) == 0 {
		return nil, fmt.Errorf("wallet-balance returned no accounts")
	}

	at := time.UnixMilli(out.Time)
	account := out.Result.List[0]
	balances := make([]market.AssetBalance, 0, len(account.Coin))
	for _, coin := range account.Coin {
		balance, err := market.ParseDecimal(coin.WalletBalance)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", coin.Coin, err)
		}
		balances = append(balances, market.AssetBalance{Asset: coin.Coin, Balance: balance, Time: at})
	}
	return balances, nil
}

// AssetBalance fetches the wallet balance of a single asset. It errors if the
// asset is absent from the account.
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
