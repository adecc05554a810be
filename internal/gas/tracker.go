// Package gas reads current gas prices on demand.
package gas

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/AsetGithub/evm-lens-bot/internal/chain/rpc"
	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/registry"
)

// weiPerGwei converts the RPC's wei quantity to the gwei users expect.
const weiPerGwei = 1_000_000_000

type Reading struct {
	Chain model.Chain
	Gwei  decimal.Decimal
}

type Tracker struct {
	reg    *registry.Registry
	client rpc.EVMClient
	apiKey string
	log    *slog.Logger
}

func NewTracker(reg *registry.Registry, client rpc.EVMClient, apiKey string, log *slog.Logger) *Tracker {
	return &Tracker{
		reg:    reg,
		client: client,
		apiKey: apiKey,
		log:    log.With("component", "gas"),
	}
}

func (t *Tracker) Current(ctx context.Context, chain model.Chain) (Reading, error) {
	desc, ok := t.reg.Descriptor(chain)
	if !ok {
		return Reading{}, fmt.Errorf("unsupported chain %s", chain)
	}

	wei, err := t.client.GasPrice(ctx, desc.RPCURL(t.apiKey))
	if err != nil {
		return Reading{}, fmt.Errorf("gas price for %s: %w", chain, err)
	}

	return Reading{
		Chain: chain,
		Gwei:  decimal.NewFromInt(wei).Div(decimal.NewFromInt(weiPerGwei)),
	}, nil
}
