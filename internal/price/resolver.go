package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AsetGithub/evm-lens-bot/internal/cache"
	"github.com/AsetGithub/evm-lens-bot/internal/circuitbreaker"
	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/metrics"
	"github.com/AsetGithub/evm-lens-bot/internal/registry"
)

const (
	// CacheTTL is how long a resolved price stays valid. A token checked by
	// many alerts in one pass costs at most one external call per minute.
	CacheTTL = 60 * time.Second

	cacheMaxEntries = 4096

	// tokenPricePlatform is the asset platform used for contract-address
	// lookups on the oracle.
	tokenPricePlatform = "ethereum"
)

// DEXSource answers token prices from on-chain liquidity. The production
// resolver carries a stub that never answers; the interface exists so a real
// DEX integration can slot in without touching the waterfall.
type DEXSource interface {
	TokenPrice(ctx context.Context, chain model.Chain, contractAddress string) (float64, error)
}

type noDEX struct{}

func (noDEX) TokenPrice(context.Context, model.Chain, string) (float64, error) {
	return 0, ErrPriceUnavailable
}

// Resolver resolves USD prices through the waterfall:
// cache, then native-asset oracle id, then DEX, then contract-address oracle.
type Resolver struct {
	reg     *registry.Registry
	oracle  Oracle
	dex     DEXSource
	cache   *cache.TTL[string, float64]
	breaker *circuitbreaker.Breaker
	log     *slog.Logger
}

func NewResolver(reg *registry.Registry, oracle Oracle, log *slog.Logger) *Resolver {
	return &Resolver{
		reg:     reg,
		oracle:  oracle,
		dex:     noDEX{},
		cache:   cache.NewTTL[string, float64](cacheMaxEntries, CacheTTL),
		breaker: circuitbreaker.New(5, 2, 30*time.Second),
		log:     log.With("component", "price_resolver"),
	}
}

// SetDEXSource replaces the DEX leg of the waterfall.
func (r *Resolver) SetDEXSource(dex DEXSource) {
	r.dex = dex
}

// Cache exposes the underlying cache. Test hook.
func (r *Resolver) Cache() *cache.TTL[string, float64] {
	return r.cache
}

// NativePrice returns the USD price of a chain's native coin.
func (r *Resolver) NativePrice(ctx context.Context, chain model.Chain) (float64, error) {
	d, ok := r.reg.Descriptor(chain)
	if !ok {
		return 0, fmt.Errorf("unknown chain %s", chain)
	}
	if d.OracleID == "" {
		return 0, fmt.Errorf("chain %s: %w", chain, ErrPriceUnavailable)
	}

	key := cacheKey(chain, "native")
	if p, hit := r.cache.Get(key); hit {
		metrics.PriceCacheHitsTotal.Inc()
		return p, nil
	}
	metrics.PriceCacheMissesTotal.Inc()

	var p float64
	err := r.breaker.Do(func() error {
		var oerr error
		p, oerr = r.oracle.SimplePrice(ctx, d.OracleID)
		return oerr
	})
	if err != nil {
		return 0, err
	}
	r.cache.Set(key, p)
	return p, nil
}

// TokenPrice returns the USD price for a token address on a chain, walking
// the waterfall. Native placeholders resolve to the chain's native coin.
func (r *Resolver) TokenPrice(ctx context.Context, chain model.Chain, tokenAddress string) (float64, error) {
	tokenAddress = strings.ToLower(strings.TrimSpace(tokenAddress))

	if r.reg.IsNativePlaceholder(chain, tokenAddress) {
		return r.NativePrice(ctx, chain)
	}

	key := cacheKey(chain, tokenAddress)
	if p, hit := r.cache.Get(key); hit {
		metrics.PriceCacheHitsTotal.Inc()
		return p, nil
	}
	metrics.PriceCacheMissesTotal.Inc()

	p, err := r.dex.TokenPrice(ctx, chain, tokenAddress)
	if err != nil && !errors.Is(err, ErrPriceUnavailable) {
		r.log.Warn("dex price lookup failed", "chain", chain, "token", tokenAddress, "error", err)
	}
	if err != nil {
		err = r.breaker.Do(func() error {
			var oerr error
			p, oerr = r.oracle.TokenPrice(ctx, tokenPricePlatform, tokenAddress)
			return oerr
		})
		if err != nil {
			return 0, err
		}
	}

	r.cache.Set(key, p)
	return p, nil
}

func cacheKey(chain model.Chain, token string) string {
	return string(chain) + ":" + token
}
