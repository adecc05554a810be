// Package watcher runs one transfer poller per active chain and turns raw
// asset transfers into subscriber notifications.
package watcher

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

// UnknownSymbol is shown for tokens whose metadata the provider does not
// recognize.
const UnknownSymbol = "UNKNOWN"

const defaultTokenDecimals = 18

// Classify turns a raw transfer into a notification candidate relative to
// the watched address that matched it. nativeUSD is the chain's native-coin
// price, zero when unknown; USD value is attached only for native-symbol
// transfers. The second return is false when the transfer is not worth
// notifying at all (fungible zero-value outgoing).
func Classify(t model.TransferEvent, desc model.ChainDescriptor, triggeredAddress string, nativeUSD float64) (model.NotificationCandidate, bool) {
	triggeredAddress = strings.ToLower(triggeredAddress)

	direction := model.DirectionIncoming
	if strings.ToLower(t.From) == triggeredAddress {
		direction = model.DirectionOutgoing
	}

	cand := model.NotificationCandidate{
		Chain:            desc.Chain,
		TriggeredAddress: triggeredAddress,
		Direction:        direction,
		TxHash:           t.Hash,
		From:             strings.ToLower(t.From),
		To:               strings.ToLower(t.To),
		ExplorerURL:      desc.ExplorerURL + "/tx/" + t.Hash,
	}

	switch {
	case t.Value != nil && t.Asset != "":
		// Provider recognized the asset and decoded the amount.
		cand.Symbol = t.Asset
		cand.Amount = decimal.NewFromFloat(*t.Value)
		cand.HasAmount = true

	case t.Value != nil:
		cand.Symbol = UnknownSymbol
		cand.Amount = decimal.NewFromFloat(*t.Value)
		cand.HasAmount = true

	case t.RawValue != "":
		// Unrecognized token: decode the raw amount with declared decimals.
		decimals := int32(defaultTokenDecimals)
		if t.RawDecimals != nil {
			decimals = *t.RawDecimals
		}
		cand.Symbol = t.Asset
		if cand.Symbol == "" {
			cand.Symbol = UnknownSymbol
		}
		if raw, ok := parseHexBig(t.RawValue); ok {
			cand.Amount = decimal.NewFromBigInt(raw, -decimals)
			cand.HasAmount = true
		}

	default:
		// Non-fungible transfer with no fungible value at all.
		cand.Symbol = t.Asset
		if cand.Symbol == "" {
			cand.Symbol = UnknownSymbol
		}
	}

	cand.IsAirdrop = !cand.HasAmount || cand.Amount.IsZero()

	// Zero-value fungible outgoing transfers are noise.
	if cand.HasAmount && cand.Amount.IsZero() && direction == model.DirectionOutgoing {
		return model.NotificationCandidate{}, false
	}

	if cand.HasAmount && nativeUSD > 0 && cand.Symbol == desc.NativeSymbol {
		amount, _ := cand.Amount.Float64()
		cand.ValueUSD = amount * nativeUSD
	}

	return cand, true
}

func parseHexBig(hex string) (*big.Int, bool) {
	v := strings.TrimPrefix(strings.TrimSpace(hex), "0x")
	if v == "" {
		return nil, false
	}
	return new(big.Int).SetString(v, 16)
}
