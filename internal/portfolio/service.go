// Package portfolio reads wallet holdings on demand: native balance, ERC-20
// balances with metadata, and NFT collections via the provider's REST API.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AsetGithub/evm-lens-bot/internal/chain/rpc"
	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/registry"
)

const (
	nativeDecimals = 18

	// dustThreshold hides rounding-dust balances from the report.
	dustThreshold = 1e-6
)

// NativePricer is the slice of the price resolver the service needs.
type NativePricer interface {
	NativePrice(ctx context.Context, chain model.Chain) (float64, error)
}

type TokenHolding struct {
	Symbol          string
	Name            string
	ContractAddress string
	Amount          decimal.Decimal
}

type TokenReport struct {
	Chain         model.Chain
	Address       string
	NativeSymbol  string
	NativeAmount  decimal.Decimal
	NativeUSD     float64
	Tokens        []TokenHolding
	TotalValueUSD float64
}

type NFTCollection struct {
	Name            string
	ContractAddress string
	Count           int
}

type NFTReport struct {
	Chain       model.Chain
	Address     string
	Collections []NFTCollection
}

type Service struct {
	reg        *registry.Registry
	client     rpc.EVMClient
	prices     NativePricer
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger

	// nftBaseURL is swappable in tests.
	nftBaseURL func(desc model.ChainDescriptor) string
}

func NewService(reg *registry.Registry, client rpc.EVMClient, prices NativePricer, apiKey string, log *slog.Logger) *Service {
	return &Service{
		reg:        reg,
		client:     client,
		prices:     prices,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With("component", "portfolio"),
		nftBaseURL: func(desc model.ChainDescriptor) string {
			return desc.NFTAPIURL(apiKey)
		},
	}
}

// SetNFTBaseURL overrides the NFT REST endpoint. Test hook.
func (s *Service) SetNFTBaseURL(fn func(desc model.ChainDescriptor) string) {
	s.nftBaseURL = fn
}

// TokenReport lists the wallet's native and ERC-20 balances. USD value is
// attached for the native coin only; a missing price degrades to no figure.
func (s *Service) TokenReport(ctx context.Context, chain model.Chain, address string) (*TokenReport, error) {
	desc, ok := s.reg.Descriptor(chain)
	if !ok {
		return nil, fmt.Errorf("unsupported chain %s", chain)
	}
	address = strings.ToLower(address)
	rpcURL := desc.RPCURL(s.apiKey)

	report := &TokenReport{
		Chain:        chain,
		Address:      address,
		NativeSymbol: desc.NativeSymbol,
	}

	wei, err := s.client.GetBalance(ctx, rpcURL, address)
	if err != nil {
		return nil, fmt.Errorf("native balance: %w", err)
	}
	report.NativeAmount = decimal.NewFromBigInt(wei, -nativeDecimals)

	if native, _ := report.NativeAmount.Float64(); native > dustThreshold {
		if usd, err := s.prices.NativePrice(ctx, chain); err == nil {
			report.NativeUSD = native * usd
			report.TotalValueUSD += report.NativeUSD
		} else {
			s.log.Debug("native price unavailable", "chain", chain, "error", err)
		}
	}

	balances, err := s.client.GetTokenBalances(ctx, rpcURL, address)
	if err != nil {
		return nil, fmt.Errorf("token balances: %w", err)
	}

	for _, tb := range balances.TokenBalances {
		raw, err := rpc.ParseHexBig(tb.TokenBalance)
		if err != nil || raw.Sign() <= 0 {
			continue
		}

		meta, err := s.client.GetTokenMetadata(ctx, rpcURL, tb.ContractAddress)
		if err != nil {
			s.log.Warn("token metadata lookup failed", "contract", tb.ContractAddress, "error", err)
			continue
		}

		decimals := int32(nativeDecimals)
		if meta.Decimals != nil {
			decimals = *meta.Decimals
		}
		symbol := meta.Symbol
		if symbol == "" {
			symbol = "UNKNOWN"
		}

		amount := decimal.NewFromBigInt(raw, -decimals)
		if v, _ := amount.Float64(); v <= dustThreshold {
			continue
		}

		report.Tokens = append(report.Tokens, TokenHolding{
			Symbol:          symbol,
			Name:            meta.Name,
			ContractAddress: strings.ToLower(tb.ContractAddress),
			Amount:          amount,
		})
	}

	return report, nil
}

type ownedNFTsResponse struct {
	OwnedNFTs []struct {
		Contract struct {
			Address string `json:"address"`
		} `json:"contract"`
		Collection *struct {
			Name string `json:"name"`
		} `json:"collection"`
	} `json:"ownedNfts"`
}

// NFTReport lists the wallet's NFTs grouped by collection.
func (s *Service) NFTReport(ctx context.Context, chain model.Chain, address string) (*NFTReport, error) {
	desc, ok := s.reg.Descriptor(chain)
	if !ok {
		return nil, fmt.Errorf("unsupported chain %s", chain)
	}
	address = strings.ToLower(address)

	endpoint := fmt.Sprintf("%s/getNFTsForOwner?owner=%s&withMetadata=true",
		s.nftBaseURL(desc), url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build nft request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nft request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nft http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read nft response: %w", err)
	}

	var parsed ownedNFTsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode nft response: %w", err)
	}

	grouped := make(map[string]*NFTCollection)
	for _, nft := range parsed.OwnedNFTs {
		name := "Unknown collection"
		if nft.Collection != nil && nft.Collection.Name != "" {
			name = nft.Collection.Name
		}
		c, ok := grouped[name]
		if !ok {
			c = &NFTCollection{Name: name, ContractAddress: strings.ToLower(nft.Contract.Address)}
			grouped[name] = c
		}
		c.Count++
	}

	report := &NFTReport{Chain: chain, Address: address}
	for _, c := range grouped {
		report.Collections = append(report.Collections, *c)
	}
	sort.Slice(report.Collections, func(i, j int) bool {
		return report.Collections[i].Name < report.Collections[j].Name
	})
	return report, nil
}
