// Package price resolves USD prices for native coins and ERC-20 tokens.
// Lookups go through a short-lived cache and a paced external oracle so the
// alert loop and the transfer pollers cannot exhaust the free-tier quota.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/AsetGithub/evm-lens-bot/internal/metrics"
)

// ErrPriceUnavailable marks a lookup the source completed but could not
// answer. Callers treat it as "no price", not as a source failure.
var ErrPriceUnavailable = errors.New("price unavailable")

const (
	defaultOracleBaseURL = "https://api.coingecko.com/api/v3"

	// oracleMinInterval paces outbound oracle calls. The free tier allows
	// roughly 10-50 calls per minute; one call per 6s stays under that.
	oracleMinInterval = 6 * time.Second
)

// Oracle answers USD price queries from an external provider.
type Oracle interface {
	// SimplePrice returns the USD price for a listed asset id.
	SimplePrice(ctx context.Context, assetID string) (float64, error)

	// TokenPrice returns the USD price for a token contract on a platform.
	TokenPrice(ctx context.Context, platform, contractAddress string) (float64, error)
}

// CoinGecko is the production Oracle backed by the CoinGecko REST API.
type CoinGecko struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

func NewCoinGecko(log *slog.Logger) *CoinGecko {
	return &CoinGecko{
		baseURL:    defaultOracleBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(oracleMinInterval), 1),
		log:        log.With("component", "price_oracle"),
	}
}

// SetBaseURL points the oracle at a different endpoint. Test hook.
func (c *CoinGecko) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// SetMinInterval reconfigures pacing. Test hook.
func (c *CoinGecko) SetMinInterval(d time.Duration) {
	c.limiter = rate.NewLimiter(rate.Every(d), 1)
}

func (c *CoinGecko) SimplePrice(ctx context.Context, assetID string) (float64, error) {
	q := url.Values{}
	q.Set("ids", assetID)
	q.Set("vs_currencies", "usd")

	body, err := c.get(ctx, "simple_price", "/simple/price?"+q.Encode())
	if err != nil {
		return 0, err
	}

	var parsed map[string]struct {
		USD *float64 `json:"usd"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode simple price: %w", err)
	}
	entry, ok := parsed[assetID]
	if !ok || entry.USD == nil {
		return 0, fmt.Errorf("asset %s: %w", assetID, ErrPriceUnavailable)
	}
	return *entry.USD, nil
}

func (c *CoinGecko) TokenPrice(ctx context.Context, platform, contractAddress string) (float64, error) {
	contractAddress = strings.ToLower(contractAddress)

	q := url.Values{}
	q.Set("contract_addresses", contractAddress)
	q.Set("vs_currencies", "usd")

	body, err := c.get(ctx, "token_price", "/simple/token_price/"+url.PathEscape(platform)+"?"+q.Encode())
	if err != nil {
		return 0, err
	}

	var parsed map[string]struct {
		USD *float64 `json:"usd"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode token price: %w", err)
	}
	entry, ok := parsed[contractAddress]
	if !ok || entry.USD == nil {
		return 0, fmt.Errorf("token %s on %s: %w", contractAddress, platform, ErrPriceUnavailable)
	}
	return *entry.USD, nil
}

func (c *CoinGecko) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	if !c.limiter.Allow() {
		metrics.OracleRateLimitWaits.Inc()
		c.log.Debug("pacing oracle call", "endpoint", endpoint)
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.OracleCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.OracleCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("oracle http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.OracleCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("read oracle response: %w", err)
	}

	metrics.OracleCallsTotal.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}
