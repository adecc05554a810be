package watcher

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/notify"
)

type fakeWallets struct {
	subscribers map[string][]int64
	watched     map[model.Chain][]string
}

func (f *fakeWallets) GetWatchedAddresses(_ context.Context, chain model.Chain) ([]string, error) {
	return f.watched[chain], nil
}

func (f *fakeWallets) GetSubscribers(_ context.Context, _ model.Chain, address string) ([]int64, error) {
	return f.subscribers[address], nil
}

func (f *fakeWallets) ActiveChains(context.Context) ([]model.Chain, error) { return nil, nil }
func (f *fakeWallets) Add(context.Context, *model.WalletSubscription) error {
	return nil
}
func (f *fakeWallets) ListByUser(context.Context, int64) ([]model.WalletSubscription, error) {
	return nil, nil
}
func (f *fakeWallets) RemoveByID(context.Context, uuid.UUID, int64) (bool, error) {
	return false, nil
}

type fakeSettings struct {
	byUser map[int64]model.UserSettings
}

func (f *fakeSettings) Get(_ context.Context, userID int64) (model.UserSettings, error) {
	if s, ok := f.byUser[userID]; ok {
		return s, nil
	}
	return model.DefaultUserSettings(userID), nil
}

func (f *fakeSettings) Update(context.Context, model.UserSettings) error { return nil }

type captureQueue struct {
	messages []notify.Message
}

func (c *captureQueue) Enqueue(msg notify.Message) bool {
	c.messages = append(c.messages, msg)
	return true
}

func newTestGate(wallets *fakeWallets, settings *fakeSettings) (*Gate, *captureQueue) {
	queue := &captureQueue{}
	gate := NewGate(wallets, settings, NewMemoryDedup(128, time.Hour), queue, slog.Default())
	return gate, queue
}

func candidate(usd float64, airdrop bool) model.NotificationCandidate {
	return model.NotificationCandidate{
		Chain:            model.ChainEthereum,
		TriggeredAddress: "0xwatched",
		Direction:        model.DirectionIncoming,
		Symbol:           "ETH",
		Amount:           decimal.NewFromFloat(1),
		HasAmount:        true,
		ValueUSD:         usd,
		IsAirdrop:        airdrop,
		TxHash:           "0xabc",
	}
}

func TestGate_MinValueFilter(t *testing.T) {
	wallets := &fakeWallets{subscribers: map[string][]int64{"0xwatched": {100}}}
	settings := &fakeSettings{byUser: map[int64]model.UserSettings{
		100: {UserID: 100, MinValueUSD: 50, NotifyOnAirdrop: true},
	}}
	gate, queue := newTestGate(wallets, settings)

	cheap := candidate(30, false)
	require.NoError(t, gate.Deliver(context.Background(), cheap))
	assert.Empty(t, queue.messages, "$30 transfer must not reach a $50-minimum subscriber")

	rich := candidate(75, false)
	rich.TxHash = "0xdef"
	require.NoError(t, gate.Deliver(context.Background(), rich))
	require.Len(t, queue.messages, 1)
	assert.Equal(t, int64(100), queue.messages[0].UserID)
}

func TestGate_AirdropOptOut(t *testing.T) {
	wallets := &fakeWallets{subscribers: map[string][]int64{"0xwatched": {100}}}
	settings := &fakeSettings{byUser: map[int64]model.UserSettings{
		100: {UserID: 100, MinValueUSD: 0, NotifyOnAirdrop: false},
	}}
	gate, queue := newTestGate(wallets, settings)

	airdrop := candidate(0, true)
	require.NoError(t, gate.Deliver(context.Background(), airdrop))
	assert.Empty(t, queue.messages)

	normal := candidate(0, false)
	normal.TxHash = "0xdef"
	require.NoError(t, gate.Deliver(context.Background(), normal))
	assert.Len(t, queue.messages, 1, "positive-value transfer of the same token still delivers")
}

func TestGate_PerSubscriberFiltering(t *testing.T) {
	wallets := &fakeWallets{subscribers: map[string][]int64{"0xwatched": {100, 200}}}
	settings := &fakeSettings{byUser: map[int64]model.UserSettings{
		100: {UserID: 100, MinValueUSD: 50, NotifyOnAirdrop: true},
		200: {UserID: 200, MinValueUSD: 0, NotifyOnAirdrop: true},
	}}
	gate, queue := newTestGate(wallets, settings)

	require.NoError(t, gate.Deliver(context.Background(), candidate(30, false)))

	// Same transfer: suppressed for one subscriber, delivered to the other.
	require.Len(t, queue.messages, 1)
	assert.Equal(t, int64(200), queue.messages[0].UserID)
}

func TestGate_DedupSuppressesRepolledRange(t *testing.T) {
	wallets := &fakeWallets{subscribers: map[string][]int64{"0xwatched": {100}}}
	settings := &fakeSettings{}
	gate, queue := newTestGate(wallets, settings)

	cand := candidate(100, false)
	require.NoError(t, gate.Deliver(context.Background(), cand))
	require.NoError(t, gate.Deliver(context.Background(), cand))

	assert.Len(t, queue.messages, 1, "same transaction hash must notify once")
}
