package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TransferCategory values accepted by the asset-transfer query.
const (
	CategoryExternal = "external"
	CategoryERC20    = "erc20"
	CategoryERC721   = "erc721"
	CategoryERC1155  = "erc1155"
)

// AllTransferCategories covers native, fungible, and non-fungible movement.
var AllTransferCategories = []string{CategoryExternal, CategoryERC20, CategoryERC721, CategoryERC1155}

// AssetTransfersParams filters an asset-transfer range query. Exactly one of
// FromAddress/ToAddress is set per call.
type AssetTransfersParams struct {
	FromBlock        string   `json:"fromBlock"`
	ToBlock          string   `json:"toBlock"`
	FromAddress      string   `json:"fromAddress,omitempty"`
	ToAddress        string   `json:"toAddress,omitempty"`
	Category         []string `json:"category"`
	ExcludeZeroValue bool     `json:"excludeZeroValue"`
	MaxCount         string   `json:"maxCount,omitempty"`
}

type AssetTransfersResult struct {
	Transfers []AssetTransfer `json:"transfers"`
}

// AssetTransfer is one transfer row from the provider. Value is the decoded
// decimal amount for recognized fungible assets and nil for NFTs; RawContract
// carries the undecoded amount for unrecognized tokens.
type AssetTransfer struct {
	Hash        string      `json:"hash"`
	BlockNum    string      `json:"blockNum"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	Value       *float64    `json:"value"`
	Asset       string      `json:"asset"`
	Category    string      `json:"category"`
	RawContract RawContract `json:"rawContract"`
}

type RawContract struct {
	Value   string `json:"value"`
	Address string `json:"address"`
	Decimal string `json:"decimal"`
}

// TokenBalancesResult is the response of the token-balance portfolio query.
type TokenBalancesResult struct {
	Address       string         `json:"address"`
	TokenBalances []TokenBalance `json:"tokenBalances"`
}

type TokenBalance struct {
	ContractAddress string `json:"contractAddress"`
	TokenBalance    string `json:"tokenBalance"`
}

// TokenMetadata describes an ERC-20 contract. Decimals may be absent for
// non-conforming tokens.
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals *int32 `json:"decimals"`
	Logo     string `json:"logo"`
}

// ParseHexBig decodes a 0x-prefixed hex quantity of arbitrary size.
// Balances in wei overflow int64 above ~9.2 of the native unit.
func ParseHexBig(value string) (*big.Int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if v == "" {
		return nil, fmt.Errorf("empty hex value")
	}
	parsed, ok := new(big.Int).SetString(v, 16)
	if !ok {
		return nil, fmt.Errorf("parse hex %q", value)
	}
	return parsed, nil
}

// ParseHexInt64 decodes a 0x-prefixed hex quantity.
func ParseHexInt64(value string) (int64, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if v == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	parsed, err := strconv.ParseInt(v, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex %q: %w", value, err)
	}
	return parsed, nil
}

// FormatHexInt64 encodes a block number as a 0x-prefixed hex quantity.
func FormatHexInt64(value int64) string {
	return "0x" + strconv.FormatInt(value, 16)
}
