package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxPerPage is the largest page size /coins/markets accepts.
const MaxPerPage = 250

// GetCoinList fetches the full token catalog.
func (c *Client) GetCoinList(ctx context.Context) ([]APICoin, error) {
	var coins []APICoin
	if err := c.get(ctx, "coins_list", "/coins/list", nil, &coins); err != nil {
		return nil, fmt.Errorf("get coin list: %w", err)
	}
	return coins, nil
}

// GetMarkets fetches one page of market listings.
func (c *Client) GetMarkets(ctx context.Context, opts GetMarketsOptions) ([]APIMarket, error) {
	query := url.Values{}

	vs := opts.VsCurrency
	if vs == "" {
		vs = "usd"
	}
	query.Set("vs_currency", vs)

	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if len(opts.IDs) > 0 {
		query.Set("ids", strings.Join(opts.IDs, ","))
	}
	if opts.Order != "" {
		query.Set("order", opts.Order)
	}

	var markets []APIMarket
	if err := c.get(ctx, "coins_markets", "/coins/markets", query, &markets); err != nil {
		return nil, fmt.Errorf("get markets page %d: %w", opts.Page, err)
	}

	return markets, nil
}

// GetAllMarkets pages through /coins/markets until a short page is returned
// or maxPages pages were read. maxPages <= 0 means no limit.
func (c *Client) GetAllMarkets(ctx context.Context, opts GetMarketsOptions, maxPages int) ([]APIMarket, error) {
	if opts.PerPage <= 0 || opts.PerPage > MaxPerPage {
		opts.PerPage = MaxPerPage
	}

	var all []APIMarket
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		opts.Page = page
		markets, err := c.GetMarkets(ctx, opts)
		if err != nil {
			return nil, err
		}

		all = append(all, markets...)

		if len(markets) < opts.PerPage {
			break
		}
	}

	return all, nil
}

// GetCoin fetches a coin's detail record with market data only.
func (c *Client) GetCoin(ctx context.Context, id string) (*CoinDetailResponse, error) {
	query := url.Values{}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("market_data", "true")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")

	var resp CoinDetailResponse
	if err := c.get(ctx, "coins_detail", "/coins/"+url.PathEscape(id), query, &resp); err != nil {
		return nil, fmt.Errorf("get coin %s: %w", id, err)
	}
	return &resp, nil
}

// GetTokenVolume fetches a token's total volume in the given quote currency.
//
// The result is invalid (Valid == false) with a nil error when the API
// reports no volume data for the token. A valid zero is a real zero volume.
func (c *Client) GetTokenVolume(ctx context.Context, id, currency string) (decimal.NullDecimal, error) {
	coin, err := c.GetCoin(ctx, id)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return coin.Volume(currency), nil
}
