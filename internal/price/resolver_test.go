package price

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/registry"
)

const fixtureChains = `
chains:
  - chain: ethereum
    rpc_subdomain: eth-mainnet
    explorer_url: https://etherscan.io
    oracle_id: ethereum
    symbol: ETH
    native_placeholders:
      - "0x0000000000000000000000000000000000000000"
      - "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
  - chain: polygon
    rpc_subdomain: polygon-mainnet
    explorer_url: https://polygonscan.com
    oracle_id: matic-network
    symbol: MATIC
`

type fakeOracle struct {
	simpleCalls int
	tokenCalls  int
	simplePrice float64
	tokenPrice  float64
	err         error
}

func (f *fakeOracle) SimplePrice(_ context.Context, _ string) (float64, error) {
	f.simpleCalls++
	if f.err != nil {
		return 0, f.err
	}
	return f.simplePrice, nil
}

func (f *fakeOracle) TokenPrice(_ context.Context, _, _ string) (float64, error) {
	f.tokenCalls++
	if f.err != nil {
		return 0, f.err
	}
	return f.tokenPrice, nil
}

func newTestResolver(t *testing.T, oracle Oracle) *Resolver {
	t.Helper()
	reg, err := registry.Parse([]byte(fixtureChains))
	require.NoError(t, err)
	return NewResolver(reg, oracle, slog.Default())
}

func TestResolver_NativePlaceholderUsesNativeOracle(t *testing.T) {
	oracle := &fakeOracle{simplePrice: 3200}
	r := newTestResolver(t, oracle)

	// Zero address and canonical wrapped native both resolve natively.
	p, err := r.TokenPrice(context.Background(), model.ChainEthereum,
		"0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, 3200.0, p)

	p, err = r.TokenPrice(context.Background(), model.ChainEthereum,
		"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	require.NoError(t, err)
	assert.Equal(t, 3200.0, p)

	assert.Equal(t, 1, oracle.simpleCalls, "second lookup must come from cache")
	assert.Equal(t, 0, oracle.tokenCalls)
}

func TestResolver_CacheExpiryTriggersNewCall(t *testing.T) {
	oracle := &fakeOracle{simplePrice: 0.72}
	r := newTestResolver(t, oracle)

	now := time.Now()
	r.Cache().SetNowFunc(func() time.Time { return now })

	_, err := r.NativePrice(context.Background(), model.ChainPolygon)
	require.NoError(t, err)

	// Repeated lookups inside the TTL cost no external calls.
	for i := 0; i < 5; i++ {
		_, err := r.NativePrice(context.Background(), model.ChainPolygon)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, oracle.simpleCalls)

	now = now.Add(61 * time.Second)
	_, err = r.NativePrice(context.Background(), model.ChainPolygon)
	require.NoError(t, err)
	assert.Equal(t, 2, oracle.simpleCalls)
}

func TestResolver_ContractFallback(t *testing.T) {
	oracle := &fakeOracle{tokenPrice: 1.001}
	r := newTestResolver(t, oracle)

	p, err := r.TokenPrice(context.Background(), model.ChainEthereum,
		"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.NoError(t, err)
	assert.Equal(t, 1.001, p)
	assert.Equal(t, 1, oracle.tokenCalls)
	assert.Equal(t, 0, oracle.simpleCalls)
}

func TestResolver_DEXShortCircuitsOracle(t *testing.T) {
	oracle := &fakeOracle{}
	r := newTestResolver(t, oracle)
	r.SetDEXSource(dexFunc(func(context.Context, model.Chain, string) (float64, error) {
		return 42.5, nil
	}))

	p, err := r.TokenPrice(context.Background(), model.ChainEthereum, "0xdeadbeef00000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, 42.5, p)
	assert.Equal(t, 0, oracle.tokenCalls)
}

func TestResolver_OracleFailurePropagates(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("oracle down")}
	r := newTestResolver(t, oracle)

	_, err := r.NativePrice(context.Background(), model.ChainEthereum)
	assert.Error(t, err)
}

func TestResolver_UnknownChain(t *testing.T) {
	r := newTestResolver(t, &fakeOracle{})
	_, err := r.NativePrice(context.Background(), model.Chain("notachain"))
	assert.Error(t, err)
}

type dexFunc func(ctx context.Context, chain model.Chain, addr string) (float64, error)

func (f dexFunc) TokenPrice(ctx context.Context, chain model.Chain, addr string) (float64, error) {
	return f(ctx, chain, addr)
}
