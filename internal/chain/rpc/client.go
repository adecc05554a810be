// Package rpc implements the JSON-RPC client used by the chain pollers and
// the portfolio/gas services. One call is one request/response; no batching.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"
)

// EVMClient is the chain-facing surface consumed by the poller and the
// supporting services.
type EVMClient interface {
	BlockNumber(ctx context.Context, rpcURL string) (int64, error)
	GetAssetTransfers(ctx context.Context, rpcURL string, params AssetTransfersParams) ([]AssetTransfer, error)
	GetBalance(ctx context.Context, rpcURL string, address string) (*big.Int, error)
	GasPrice(ctx context.Context, rpcURL string) (int64, error)
	GetTokenBalances(ctx context.Context, rpcURL string, address string) (*TokenBalancesResult, error)
	GetTokenMetadata(ctx context.Context, rpcURL string, contractAddress string) (*TokenMetadata, error)
}

type Client struct {
	httpClient *http.Client
	requestID  atomic.Int64
	logger     *slog.Logger
}

var _ EVMClient = (*Client)(nil)

func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "rpc"),
	}
}

func (c *Client) call(ctx context.Context, rpcURL, method string, params []interface{}) (json.RawMessage, error) {
	id := int(c.requestID.Add(1))
	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

func (c *Client) BlockNumber(ctx context.Context, rpcURL string) (int64, error) {
	result, err := c.call(ctx, rpcURL, "eth_blockNumber", []interface{}{})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return 0, fmt.Errorf("decode block number: %w", err)
	}
	return ParseHexInt64(hex)
}

func (c *Client) GetAssetTransfers(ctx context.Context, rpcURL string, params AssetTransfersParams) ([]AssetTransfer, error) {
	result, err := c.call(ctx, rpcURL, "alchemy_getAssetTransfers", []interface{}{params})
	if err != nil {
		return nil, fmt.Errorf("alchemy_getAssetTransfers: %w", err)
	}
	var decoded AssetTransfersResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("decode asset transfers: %w", err)
	}
	return decoded.Transfers, nil
}

func (c *Client) GetBalance(ctx context.Context, rpcURL string, address string) (*big.Int, error) {
	result, err := c.call(ctx, rpcURL, "eth_getBalance", []interface{}{address, "latest"})
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	return ParseHexBig(hex)
}

func (c *Client) GasPrice(ctx context.Context, rpcURL string) (int64, error) {
	result, err := c.call(ctx, rpcURL, "eth_gasPrice", []interface{}{})
	if err != nil {
		return 0, fmt.Errorf("eth_gasPrice: %w", err)
	}
	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return 0, fmt.Errorf("decode gas price: %w", err)
	}
	return ParseHexInt64(hex)
}

func (c *Client) GetTokenBalances(ctx context.Context, rpcURL string, address string) (*TokenBalancesResult, error) {
	result, err := c.call(ctx, rpcURL, "alchemy_getTokenBalances", []interface{}{address, "erc20"})
	if err != nil {
		return nil, fmt.Errorf("alchemy_getTokenBalances: %w", err)
	}
	var decoded TokenBalancesResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("decode token balances: %w", err)
	}
	return &decoded, nil
}

func (c *Client) GetTokenMetadata(ctx context.Context, rpcURL string, contractAddress string) (*TokenMetadata, error) {
	result, err := c.call(ctx, rpcURL, "alchemy_getTokenMetadata", []interface{}{contractAddress})
	if err != nil {
		return nil, fmt.Errorf("alchemy_getTokenMetadata: %w", err)
	}
	var decoded TokenMetadata
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("decode token metadata: %w", err)
	}
	return &decoded, nil
}
