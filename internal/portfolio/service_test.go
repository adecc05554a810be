package portfolio

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsetGithub/evm-lens-bot/internal/chain/rpc"
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
`

type fakeEVM struct {
	balance   *big.Int
	tokens    *rpc.TokenBalancesResult
	metadata  map[string]*rpc.TokenMetadata
	metaCalls int
}

func (f *fakeEVM) BlockNumber(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeEVM) GetAssetTransfers(context.Context, string, rpc.AssetTransfersParams) ([]rpc.AssetTransfer, error) {
	return nil, nil
}
func (f *fakeEVM) GetBalance(context.Context, string, string) (*big.Int, error) {
	return f.balance, nil
}
func (f *fakeEVM) GasPrice(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeEVM) GetTokenBalances(context.Context, string, string) (*rpc.TokenBalancesResult, error) {
	return f.tokens, nil
}
func (f *fakeEVM) GetTokenMetadata(_ context.Context, _ string, contract string) (*rpc.TokenMetadata, error) {
	f.metaCalls++
	if m, ok := f.metadata[contract]; ok {
		return m, nil
	}
	return nil, errors.New("no metadata")
}

type fixedPricer struct {
	usd float64
	err error
}

func (f fixedPricer) NativePrice(context.Context, model.Chain) (float64, error) {
	return f.usd, f.err
}

func int32Ptr(v int32) *int32 { return &v }

func newTestService(t *testing.T, client rpc.EVMClient, prices NativePricer) *Service {
	t.Helper()
	reg, err := registry.Parse([]byte(fixtureChains))
	require.NoError(t, err)
	return NewService(reg, client, prices, "test-key", slog.Default())
}

func TestTokenReport_NativeAndTokens(t *testing.T) {
	client := &fakeEVM{
		balance: new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18)), // 2 ETH
		tokens: &rpc.TokenBalancesResult{TokenBalances: []rpc.TokenBalance{
			{ContractAddress: "0xUSDC", TokenBalance: "0x5f5e100"}, // 1e8 raw
			{ContractAddress: "0xzero", TokenBalance: "0x0"},
		}},
		metadata: map[string]*rpc.TokenMetadata{
			"0xUSDC": {Name: "USD Coin", Symbol: "USDC", Decimals: int32Ptr(6)},
		},
	}
	svc := newTestService(t, client, fixedPricer{usd: 3000})

	report, err := svc.TokenReport(context.Background(), model.ChainEthereum, "0xWALLET")
	require.NoError(t, err)

	assert.Equal(t, "2", report.NativeAmount.String())
	assert.InDelta(t, 6000, report.NativeUSD, 0.001)
	assert.InDelta(t, 6000, report.TotalValueUSD, 0.001)

	require.Len(t, report.Tokens, 1, "zero balances are dropped without a metadata call")
	assert.Equal(t, "USDC", report.Tokens[0].Symbol)
	assert.Equal(t, "100", report.Tokens[0].Amount.String())
	assert.Equal(t, 1, client.metaCalls)
}

func TestTokenReport_MissingPriceDegrades(t *testing.T) {
	client := &fakeEVM{
		balance: big.NewInt(1e18),
		tokens:  &rpc.TokenBalancesResult{},
	}
	svc := newTestService(t, client, fixedPricer{err: errors.New("oracle down")})

	report, err := svc.TokenReport(context.Background(), model.ChainEthereum, "0xwallet")
	require.NoError(t, err)
	assert.Zero(t, report.NativeUSD)
	assert.Zero(t, report.TotalValueUSD)
}

func TestNFTReport_GroupsByCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getNFTsForOwner", r.URL.Path)
		assert.Equal(t, "0xwallet", r.URL.Query().Get("owner"))
		w.Write([]byte(`{"ownedNfts":[
			{"contract":{"address":"0xCATS"},"collection":{"name":"Cool Cats"}},
			{"contract":{"address":"0xCATS"},"collection":{"name":"Cool Cats"}},
			{"contract":{"address":"0xMYST"}}
		]}`))
	}))
	defer srv.Close()

	svc := newTestService(t, &fakeEVM{}, fixedPricer{})
	svc.SetNFTBaseURL(func(model.ChainDescriptor) string { return srv.URL })

	report, err := svc.NFTReport(context.Background(), model.ChainEthereum, "0xWALLET")
	require.NoError(t, err)

	require.Len(t, report.Collections, 2)
	assert.Equal(t, "Cool Cats", report.Collections[0].Name)
	assert.Equal(t, 2, report.Collections[0].Count)
	assert.Equal(t, "0xcats", report.Collections[0].ContractAddress)
	assert.Equal(t, "Unknown collection", report.Collections[1].Name)
}
