package model

import "github.com/shopspring/decimal"

// Direction of a transfer relative to the triggered (watched) address.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// TransferEvent is a raw transfer as reported by the asset-transfer RPC.
// Ephemeral: produced by one poll cycle and discarded after classification.
type TransferEvent struct {
	Hash        string
	From        string
	To          string
	Asset       string   // symbol when the provider recognizes the asset, "" otherwise
	Value       *float64 // decimal value when fungible and recognized, nil for NFTs
	Category    string   // external, erc20, erc721, erc1155
	BlockNumber int64

	// Raw contract data, used when Asset/Value are absent.
	ContractAddress string
	RawValue        string // hex-encoded raw amount
	RawDecimals     *int32
}

// NotificationCandidate is a classified transfer ready for per-subscriber
// gating. Ephemeral, never persisted.
type NotificationCandidate struct {
	Chain            Chain
	TriggeredAddress string
	Direction        Direction
	Symbol           string
	Amount           decimal.Decimal
	HasAmount        bool // false for NFT transfers with no fungible value
	ValueUSD         float64
	IsAirdrop        bool
	TxHash           string
	From             string
	To               string
	ExplorerURL      string
}
