package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/gecko-volumes/internal/api"
	"github.com/rickgao/gecko-volumes/internal/model"
	"github.com/rickgao/gecko-volumes/internal/version"
)

func main() {
	baseURL := flag.String("base-url", "https://api.coingecko.com/api/v3", "API base URL")
	currency := flag.String("currency", "usd", "quote currency for volumes")
	perPage := flag.Int("per-page", 5, "markets per page (max 250)")
	pages := flag.Int("pages", 2, "market pages to fetch")
	flag.Parse()

	// Public endpoints work without a key; a demo key raises the rate limit
	client := api.NewClient(
		*baseURL,
		os.Getenv("COINGECKO_API_KEY"),
		api.WithTimeout(30*time.Second),
		api.WithRetries(2, 2*time.Second),
		api.WithUserAgent(version.UserAgent()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	// Test 1: Coin list
	fmt.Println("=== Testing GetCoinList ===")
	coins, err := client.GetCoinList(ctx)
	if err != nil {
		log.Fatalf("GetCoinList failed: %v", err)
	}
	fmt.Printf("Fetched %d coins\n", len(coins))
	for i, c := range coins {
		if i >= 3 {
			break
		}
		fmt.Printf("  %d. %s - %s (%s)\n", i+1, c.ID, c.Name, c.Symbol)
	}

	// Test 2: Markets (first page)
	fmt.Println("\n=== Testing GetMarkets ===")
	opts := api.GetMarketsOptions{VsCurrency: *currency, PerPage: *perPage, Page: 1}
	markets, err := client.GetMarkets(ctx, opts)
	if err != nil {
		log.Fatalf("GetMarkets failed: %v", err)
	}
	today := model.Day(time.Now())
	for i, m := range markets {
		v := m.ToVolume(today)
		fmt.Printf("  %d. %s - %s (volume: %s)\n", i+1, m.ID, m.Name, formatVolume(v.TotalVolume))
	}

	// Test 3: Paged markets
	fmt.Printf("\n=== Testing GetAllMarkets (%d pages) ===\n", *pages)
	all, err := client.GetAllMarkets(ctx, opts, *pages)
	if err != nil {
		log.Fatalf("GetAllMarkets failed: %v", err)
	}
	fmt.Printf("Fetched %d markets\n", len(all))

	// Test 4: Token volume
	if len(markets) > 0 {
		id := markets[0].ID
		fmt.Printf("\n=== Testing GetTokenVolume (%s) ===\n", id)
		vol, err := client.GetTokenVolume(ctx, id, *currency)
		if err != nil {
			log.Fatalf("GetTokenVolume failed: %v", err)
		}
		fmt.Printf("Total volume (%s): %s\n", *currency, formatVolume(vol))
	}

	fmt.Println("\n=== All API tests passed! ===")
}

func formatVolume(v decimal.NullDecimal) string {
	if !v.Valid {
		return "no data"
	}
	return v.Decimal.String()
}
