package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/gecko-volumes/internal/model"
)

// ToModel converts a catalog entry to a Token.
func (c APICoin) ToModel() model.Token {
	return model.Token{
		ID:   c.ID,
		Name: c.Name,
	}
}

// ToToken converts a market listing to a Token.
func (m APIMarket) ToToken() model.Token {
	return model.Token{
		ID:   m.ID,
		Name: m.Name,
	}
}

// ToVolume converts a market listing to the volume row for day.
func (m APIMarket) ToVolume(day time.Time) model.TokenVolume {
	return model.TokenVolume{
		TokenID:     m.ID,
		TotalVolume: m.TotalVolume,
		Date:        model.Day(day),
	}
}

// Volume returns the total volume quoted in currency, or an invalid value
// when market data or the currency entry is missing.
func (r *CoinDetailResponse) Volume(currency string) decimal.NullDecimal {
	if r == nil || r.MarketData == nil || len(r.MarketData.TotalVolume) == 0 {
		return decimal.NullDecimal{}
	}
	v, ok := r.MarketData.TotalVolume[strings.ToLower(currency)]
	if !ok {
		return decimal.NullDecimal{}
	}
	return v
}
