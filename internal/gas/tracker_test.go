package gas

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
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

type fakeGasClient struct {
	wei int64
	err error
}

func (f *fakeGasClient) GasPrice(context.Context, string) (int64, error) { return f.wei, f.err }

func (f *fakeGasClient) BlockNumber(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeGasClient) GetAssetTransfers(context.Context, string, rpc.AssetTransfersParams) ([]rpc.AssetTransfer, error) {
	return nil, nil
}
func (f *fakeGasClient) GetBalance(context.Context, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (f *fakeGasClient) GetTokenBalances(context.Context, string, string) (*rpc.TokenBalancesResult, error) {
	return nil, nil
}
func (f *fakeGasClient) GetTokenMetadata(context.Context, string, string) (*rpc.TokenMetadata, error) {
	return nil, nil
}

func newTracker(t *testing.T, client rpc.EVMClient) *Tracker {
	t.Helper()
	reg, err := registry.Parse([]byte(fixtureChains))
	require.NoError(t, err)
	return NewTracker(reg, client, "test-key", slog.Default())
}

func TestCurrent_ConvertsWeiToGwei(t *testing.T) {
	tracker := newTracker(t, &fakeGasClient{wei: 22_500_000_000})

	r, err := tracker.Current(context.Background(), model.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, "22.5", r.Gwei.String())
}

func TestCurrent_UnsupportedChain(t *testing.T) {
	tracker := newTracker(t, &fakeGasClient{})
	_, err := tracker.Current(context.Background(), model.Chain("notachain"))
	assert.Error(t, err)
}

func TestCurrent_RPCErrorPropagates(t *testing.T) {
	tracker := newTracker(t, &fakeGasClient{err: errors.New("timeout")})
	_, err := tracker.Current(context.Background(), model.ChainEthereum)
	assert.ErrorContains(t, err, "timeout")
}
