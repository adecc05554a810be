package watcher

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsetGithub/evm-lens-bot/internal/chain/rpc"
	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

type fakeChain struct {
	head      int64
	headErr   error
	transfers []rpc.AssetTransfer
	fetchErr  error

	fetchCalls []rpc.AssetTransfersParams
}

func (f *fakeChain) BlockNumber(context.Context, string) (int64, error) {
	return f.head, f.headErr
}

func (f *fakeChain) GetAssetTransfers(_ context.Context, _ string, params rpc.AssetTransfersParams) ([]rpc.AssetTransfer, error) {
	f.fetchCalls = append(f.fetchCalls, params)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	// Crude address filter mirroring the provider's behavior.
	var out []rpc.AssetTransfer
	for _, t := range f.transfers {
		if params.FromAddress != "" && t.From == params.FromAddress {
			out = append(out, t)
		}
		if params.ToAddress != "" && t.To == params.ToAddress {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeChain) GetBalance(context.Context, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (f *fakeChain) GasPrice(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeChain) GetTokenBalances(context.Context, string, string) (*rpc.TokenBalancesResult, error) {
	return nil, nil
}
func (f *fakeChain) GetTokenMetadata(context.Context, string, string) (*rpc.TokenMetadata, error) {
	return nil, nil
}

type fakeCursors struct {
	cursor *model.ChainCursor
	sets   []int64
}

func (f *fakeCursors) Get(context.Context, model.Chain) (*model.ChainCursor, error) {
	return f.cursor, nil
}

func (f *fakeCursors) Set(_ context.Context, chain model.Chain, blockNumber int64) error {
	f.sets = append(f.sets, blockNumber)
	f.cursor = &model.ChainCursor{Chain: chain, BlockNumber: blockNumber}
	return nil
}

type zeroPricer struct{}

func (zeroPricer) NativePrice(context.Context, model.Chain) (float64, error) {
	return 0, errors.New("no price source in tests")
}

func newTestPoller(client rpc.EVMClient, wallets *fakeWallets, cursors *fakeCursors) (*Poller, *captureQueue) {
	settings := &fakeSettings{}
	queue := &captureQueue{}
	gate := NewGate(wallets, settings, NewMemoryDedup(128, time.Hour), queue, slog.Default())
	p := NewPoller(ethDesc, "https://rpc.test", client, wallets, cursors, zeroPricer{}, gate, Config{}, slog.Default())
	return p, queue
}

func TestPoller_SeedsCursorToHead(t *testing.T) {
	client := &fakeChain{head: 500}
	wallets := &fakeWallets{
		watched:     map[model.Chain][]string{model.ChainEthereum: {"0xwatched"}},
		subscribers: map[string][]int64{"0xwatched": {100}},
	}
	cursors := &fakeCursors{}
	p, queue := newTestPoller(client, wallets, cursors)

	_, err := p.cycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, []int64{500}, cursors.sets, "first cycle seeds to head, no back-scan")
	assert.Empty(t, client.fetchCalls, "seed cycle fetches no transfers")
	assert.Empty(t, queue.messages)
}

func TestPoller_AdvancesCursorAfterForwarding(t *testing.T) {
	client := &fakeChain{
		head: 510,
		transfers: []rpc.AssetTransfer{{
			Hash:     "0xaaa",
			BlockNum: "0x1fb",
			From:     "0xsender",
			To:       "0xwatched",
			Asset:    "ETH",
			Value:    floatPtr(2),
			Category: "external",
		}},
	}
	wallets := &fakeWallets{
		watched:     map[model.Chain][]string{model.ChainEthereum: {"0xwatched"}},
		subscribers: map[string][]int64{"0xwatched": {100}},
	}
	cursors := &fakeCursors{cursor: &model.ChainCursor{Chain: model.ChainEthereum, BlockNumber: 500}}
	p, queue := newTestPoller(client, wallets, cursors)

	_, err := p.cycle(context.Background())
	require.NoError(t, err)

	require.Len(t, queue.messages, 1)
	require.Equal(t, []int64{510}, cursors.sets)

	// Requested range is the half-open (cursor, head].
	require.NotEmpty(t, client.fetchCalls)
	assert.Equal(t, rpc.FormatHexInt64(501), client.fetchCalls[0].FromBlock)
	assert.Equal(t, rpc.FormatHexInt64(510), client.fetchCalls[0].ToBlock)
}

func TestPoller_CursorUnchangedOnFetchFailure(t *testing.T) {
	client := &fakeChain{head: 510, fetchErr: errors.New("http status 502")}
	wallets := &fakeWallets{
		watched: map[model.Chain][]string{model.ChainEthereum: {"0xwatched"}},
	}
	cursors := &fakeCursors{cursor: &model.ChainCursor{Chain: model.ChainEthereum, BlockNumber: 500}}
	p, _ := newTestPoller(client, wallets, cursors)

	_, err := p.cycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, cursors.sets, "failed cycle must not move the cursor")
	assert.EqualValues(t, 500, cursors.cursor.BlockNumber)
}

func TestPoller_HeadBehindCursorDoesNothing(t *testing.T) {
	client := &fakeChain{head: 500}
	wallets := &fakeWallets{
		watched: map[model.Chain][]string{model.ChainEthereum: {"0xwatched"}},
	}
	cursors := &fakeCursors{cursor: &model.ChainCursor{Chain: model.ChainEthereum, BlockNumber: 500}}
	p, _ := newTestPoller(client, wallets, cursors)

	_, err := p.cycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, client.fetchCalls)
	assert.Empty(t, cursors.sets)
}

func TestPoller_IdleWithoutWallets(t *testing.T) {
	client := &fakeChain{head: 500}
	wallets := &fakeWallets{watched: map[model.Chain][]string{}}
	cursors := &fakeCursors{cursor: &model.ChainCursor{Chain: model.ChainEthereum, BlockNumber: 400}}
	p, _ := newTestPoller(client, wallets, cursors)

	delay, err := p.cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.cfg.IdleInterval, delay)

	// Reactivation re-seeds to head instead of scanning the idle gap.
	wallets.watched[model.ChainEthereum] = []string{"0xwatched"}
	_, err = p.cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{500}, cursors.sets)
}

func TestPoller_TriggeredPrefersWatchedSender(t *testing.T) {
	// Both sides watched: the from side wins and only one candidate is made.
	client := &fakeChain{
		head: 510,
		transfers: []rpc.AssetTransfer{{
			Hash:     "0xaaa",
			BlockNum: "0x1fb",
			From:     "0xalice",
			To:       "0xbob",
			Asset:    "ETH",
			Value:    floatPtr(1),
			Category: "external",
		}},
	}
	wallets := &fakeWallets{
		watched:     map[model.Chain][]string{model.ChainEthereum: {"0xalice", "0xbob"}},
		subscribers: map[string][]int64{"0xalice": {100}, "0xbob": {200}},
	}
	cursors := &fakeCursors{cursor: &model.ChainCursor{Chain: model.ChainEthereum, BlockNumber: 500}}
	p, queue := newTestPoller(client, wallets, cursors)

	_, err := p.cycle(context.Background())
	require.NoError(t, err)

	require.Len(t, queue.messages, 1)
	assert.Equal(t, int64(100), queue.messages[0].UserID, "watched sender side is the triggered address")
}
