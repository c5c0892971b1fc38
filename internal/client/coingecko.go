package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	coingeckoAPI = "https://api.coingecko.com/api/v3"

	priceCacheTTL = time.Minute
)

// CoinGeckoClient fetches the SOL spot price for balance display.
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	cached   float64
	cachedAt time.Time
}

// NewCoinGeckoClient creates a new CoinGecko client. An empty baseURL uses
// the public API.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = coingeckoAPI
	}
	return &CoinGeckoClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PriceResponse response from CoinGecko API
type PriceResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}

// SOLPriceUSD returns the SOL/USD price, cached for a minute.
func (c *CoinGeckoClient) SOLPriceUSD(ctx context.Context) (float64, error) {
	c.mu.Lock()
	if !c.cachedAt.IsZero() && time.Since(c.cachedAt) < priceCacheTTL {
		price := c.cached
		c.mu.Unlock()
		return price, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/simple/price?ids=solana&vs_currencies=usd", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to get price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to get price: status %d", resp.StatusCode)
	}

	var priceResp PriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return 0, fmt.Errorf("failed to decode price: %w", err)
	}
	if priceResp.Solana.USD <= 0 {
		return 0, fmt.Errorf("price feed returned no SOL price")
	}

	c.mu.Lock()
	c.cached = priceResp.Solana.USD
	c.cachedAt = time.Now()
	c.mu.Unlock()
	return priceResp.Solana.USD, nil
}

// FormatUSD renders a lamport balance in USD with two decimals.
func FormatUSD(lamports uint64, priceUSD float64) string {
	usd := float64(lamports) / 1e9 * priceUSD
	return strconv.FormatFloat(usd, 'f', 2, 64)
}
