// Package market is the client side of the gold price backend: latest daily
// prices and day-over-day percentage changes, fetched over plain HTTP GET,
// with an injectable TTL cache in front.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"goldwallet/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("market data unavailable")

const (
	pricesPath      = "/api/GoldPrices/latest"
	percentagesPath = "/api/GoldDailyPercentages/latest"

	cacheKeyPrices      = "prices"
	cacheKeyPercentages = "percentages"

	defaultHTTPTimeout = 8 * time.Second
)

var whitespaceRun = regexp.MustCompile(`[\s\x{00A0}]+`)

// NormalizeAsset maps an asset name to its canonical lookup key: runs of
// whitespace (including non-breaking spaces) collapse to a single space, the
// result is trimmed and lower-cased. Every key crossing the market boundary
// is normalized with this, in both directions; ledger asset names stay raw.
func NormalizeAsset(name string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " ")))
}

// Client talks to the gold price REST backend. The http.Client is injected
// so callers control timeouts and transports; there is no package-level
// client state.
type Client struct {
	base  string
	cli   *http.Client
	cache *Cache
	log   zerolog.Logger
}

func NewClient(base string, cli *http.Client, cache *Cache, log zerolog.Logger) *Client {
	if cli == nil {
		cli = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		cli:   cli,
		cache: cache,
		log:   log,
	}
}

// Wire shapes of the backend's envelope and payloads.
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type quotePayload struct {
	BuyingPrice  decimal.Decimal `json:"buyingPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

type pricesPayload struct {
	Date string                  `json:"date"`
	Data map[string]quotePayload `json:"data"`
}

type percentagesPayload struct {
	Date                 string                  `json:"date"`
	PercentageDifference map[string]quotePayload `json:"percentageDifference"`
}

// LatestPrices returns the current buy/sell price per asset, keyed by the
// normalized asset name.
func (c *Client) LatestPrices(ctx context.Context) (map[string]types.Quote, error) {
	if quotes, ok := c.cache.Get(cacheKeyPrices); ok {
		return quotes, nil
	}
	var payload pricesPayload
	if err := c.get(ctx, pricesPath, &payload); err != nil {
		return nil, err
	}
	quotes := toQuotes(payload.Data)
	c.cache.Put(cacheKeyPrices, quotes)
	c.log.Debug().Int("assets", len(quotes)).Str("date", payload.Date).Msg("fetched daily prices")
	return quotes, nil
}

// LatestPercentages returns the day-over-day percent change per asset, keyed
// by the normalized asset name. The values are percent points, not prices.
func (c *Client) LatestPercentages(ctx context.Context) (map[string]types.Quote, error) {
	if quotes, ok := c.cache.Get(cacheKeyPercentages); ok {
		return quotes, nil
	}
	var payload percentagesPayload
	if err := c.get(ctx, percentagesPath, &payload); err != nil {
		return nil, err
	}
	quotes := toQuotes(payload.PercentageDifference)
	c.cache.Put(cacheKeyPercentages, quotes)
	c.log.Debug().Int("assets", len(quotes)).Str("date", payload.Date).Msg("fetched daily percentages")
	return quotes, nil
}

// Refresh drops the cache so the next fetch hits the backend.
func (c *Client) Refresh() {
	c.cache.Clear()
}

func (c *Client) get(ctx context.Context, path string, payload any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		// Keep the cause in the chain so callers can classify timeouts.
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}
	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrUnavailable, path, err)
	}
	if !envelope.Success {
		msg := envelope.Message
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return fmt.Errorf("%w: decode %s payload: %w", ErrUnavailable, path, err)
	}
	return nil
}

func toQuotes(raw map[string]quotePayload) map[string]types.Quote {
	quotes := make(map[string]types.Quote, len(raw))
	for name, q := range raw {
		quotes[NormalizeAsset(name)] = types.Quote{Buying: q.BuyingPrice, Selling: q.SellingPrice}
	}
	return quotes
}
