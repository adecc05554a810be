package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

var ethDesc = model.ChainDescriptor{
	Chain:        model.ChainEthereum,
	ExplorerURL:  "https://etherscan.io",
	NativeSymbol: "ETH",
	OracleID:     "ethereum",
}

func floatPtr(v float64) *float64 { return &v }
func int32Ptr(v int32) *int32     { return &v }

func TestClassify_NativeIncomingWithUSD(t *testing.T) {
	cand, ok := Classify(model.TransferEvent{
		Hash:     "0xabc",
		From:     "0xSENDER",
		To:       "0xWATCHED",
		Asset:    "ETH",
		Value:    floatPtr(1.5),
		Category: "external",
	}, ethDesc, "0xwatched", 3000)

	require.True(t, ok)
	assert.Equal(t, model.DirectionIncoming, cand.Direction)
	assert.Equal(t, "ETH", cand.Symbol)
	assert.True(t, cand.HasAmount)
	assert.Equal(t, "1.5", cand.Amount.String())
	assert.InDelta(t, 4500, cand.ValueUSD, 0.001)
	assert.False(t, cand.IsAirdrop)
	assert.Equal(t, "https://etherscan.io/tx/0xabc", cand.ExplorerURL)
}

func TestClassify_OutgoingDirection(t *testing.T) {
	cand, ok := Classify(model.TransferEvent{
		Hash:  "0xabc",
		From:  "0xWatched",
		To:    "0xother",
		Asset: "ETH",
		Value: floatPtr(0.1),
	}, ethDesc, "0xwatched", 0)

	require.True(t, ok)
	assert.Equal(t, model.DirectionOutgoing, cand.Direction)
	// No native price, no dollar figure.
	assert.Zero(t, cand.ValueUSD)
}

func TestClassify_TokenNoUSDAttachment(t *testing.T) {
	cand, ok := Classify(model.TransferEvent{
		Hash:  "0xabc",
		From:  "0xsender",
		To:    "0xwatched",
		Asset: "USDC",
		Value: floatPtr(100),
	}, ethDesc, "0xwatched", 3000)

	require.True(t, ok)
	// Price attachment is native-only on this path.
	assert.Zero(t, cand.ValueUSD)
	assert.Equal(t, "USDC", cand.Symbol)
}

func TestClassify_RawValueDecoding(t *testing.T) {
	// 1000000 raw units at 6 decimals = 1 token.
	cand, ok := Classify(model.TransferEvent{
		Hash:        "0xabc",
		From:        "0xsender",
		To:          "0xwatched",
		RawValue:    "0xf4240",
		RawDecimals: int32Ptr(6),
	}, ethDesc, "0xwatched", 0)

	require.True(t, ok)
	assert.Equal(t, UnknownSymbol, cand.Symbol)
	assert.True(t, cand.HasAmount)
	assert.Equal(t, "1", cand.Amount.String())
}

func TestClassify_RawValueDefaultsTo18Decimals(t *testing.T) {
	// 1e18 raw units with no declared decimals.
	cand, ok := Classify(model.TransferEvent{
		Hash:     "0xabc",
		From:     "0xsender",
		To:       "0xwatched",
		RawValue: "0xde0b6b3a7640000",
	}, ethDesc, "0xwatched", 0)

	require.True(t, ok)
	assert.Equal(t, "1", cand.Amount.String())
}

func TestClassify_ZeroValueIncomingIsAirdrop(t *testing.T) {
	cand, ok := Classify(model.TransferEvent{
		Hash:  "0xabc",
		From:  "0xsender",
		To:    "0xwatched",
		Asset: "SCAM",
		Value: floatPtr(0),
	}, ethDesc, "0xwatched", 0)

	require.True(t, ok)
	assert.True(t, cand.IsAirdrop)
}

func TestClassify_ZeroValueOutgoingDiscarded(t *testing.T) {
	_, ok := Classify(model.TransferEvent{
		Hash:  "0xabc",
		From:  "0xwatched",
		To:    "0xother",
		Asset: "SCAM",
		Value: floatPtr(0),
	}, ethDesc, "0xwatched", 0)

	assert.False(t, ok)
}

func TestClassify_NFTIsAirdropCandidate(t *testing.T) {
	cand, ok := Classify(model.TransferEvent{
		Hash:     "0xabc",
		From:     "0xsender",
		To:       "0xwatched",
		Asset:    "COOLCAT",
		Category: "erc721",
	}, ethDesc, "0xwatched", 0)

	require.True(t, ok)
	assert.True(t, cand.IsAirdrop)
	assert.False(t, cand.HasAmount)
	assert.Equal(t, "COOLCAT", cand.Symbol)
}
