package api

import "github.com/shopspring/decimal"

// APICoin is an entry of GET /coins/list.
type APICoin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// APIMarket is an entry of GET /coins/markets.
type APIMarket struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`

	// Quoted in the requested vs_currency
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	MarketCap    decimal.NullDecimal `json:"market_cap"`
	TotalVolume  decimal.NullDecimal `json:"total_volume"`

	MarketCapRank *int   `json:"market_cap_rank"`
	LastUpdated   string `json:"last_updated"` // ISO 8601
}

// CoinDetailResponse from GET /coins/{id}
type CoinDetailResponse struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Name       string      `json:"name"`
	MarketData *MarketData `json:"market_data"`
}

// MarketData is the nested market section of a coin detail. Every field is
// keyed by quote currency ("usd", "eur", ...).
type MarketData struct {
	CurrentPrice map[string]decimal.NullDecimal `json:"current_price"`
	MarketCap    map[string]decimal.NullDecimal `json:"market_cap"`
	TotalVolume  map[string]decimal.NullDecimal `json:"total_volume"`
	LastUpdated  string                         `json:"last_updated"`
}

// GetMarketsOptions configures a GetMarkets request.
type GetMarketsOptions struct {
	VsCurrency string
	PerPage    int
	Page       int
	IDs        []string
	Order      string
}
