package model

import "fmt"

// Chain identifies an EVM-compatible network by its short name.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainArbitrum Chain = "arbitrum"
	ChainOptimism Chain = "optimism"
	ChainBase     Chain = "base"
	ChainPolygon  Chain = "polygon"
	ChainBSC      Chain = "bsc"
)

func (c Chain) String() string {
	return string(c)
}

// ChainDescriptor is the static per-chain configuration. It is loaded once at
// startup and injected as an immutable value; nothing mutates it afterwards.
type ChainDescriptor struct {
	Chain        Chain  `yaml:"chain"`
	RPCSubdomain string `yaml:"rpc_subdomain"`
	ExplorerURL  string `yaml:"explorer_url"`
	NativeSymbol string `yaml:"symbol"`
	OracleID     string `yaml:"oracle_id"`

	// NativePlaceholders are token addresses that alias the chain's native
	// asset (zero address, canonical wrapped native, chain-specific
	// precompiles). Compared lowercase.
	NativePlaceholders []string `yaml:"native_placeholders"`
}

// RPCURL builds the JSON-RPC endpoint for this chain from the provider API key.
func (d ChainDescriptor) RPCURL(apiKey string) string {
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", d.RPCSubdomain, apiKey)
}

// NFTAPIURL builds the NFT REST endpoint base for this chain.
func (d ChainDescriptor) NFTAPIURL(apiKey string) string {
	return fmt.Sprintf("https://%s.g.alchemy.com/nft/v3/%s", d.RPCSubdomain, apiKey)
}
