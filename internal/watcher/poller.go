package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AsetGithub/evm-lens-bot/internal/chain/rpc"
	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/metrics"
	"github.com/AsetGithub/evm-lens-bot/internal/price"
	"github.com/AsetGithub/evm-lens-bot/internal/retry"
	"github.com/AsetGithub/evm-lens-bot/internal/store"
)

// NativePricer is the slice of the price resolver the poller needs.
type NativePricer interface {
	NativePrice(ctx context.Context, chain model.Chain) (float64, error)
}

type Config struct {
	PollInterval    time.Duration
	IdleInterval    time.Duration
	BackoffInterval time.Duration
	MaxCount        int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Second
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = 60 * time.Second
	}
	if c.BackoffInterval <= 0 {
		c.BackoffInterval = 30 * time.Second
	}
	if c.MaxCount <= 0 {
		c.MaxCount = 1000
	}
	return c
}

// Poller advances one chain's block cursor and feeds matching transfers
// through classification and gating. One Poller per chain; the cursor is
// touched by nobody else.
type Poller struct {
	desc    model.ChainDescriptor
	rpcURL  string
	client  rpc.EVMClient
	wallets store.WalletRepository
	cursors store.CursorRepository
	prices  NativePricer
	gate    *Gate
	cfg     Config
	log     *slog.Logger

	// idle is set while the chain has no watched wallets. On reactivation
	// the cursor is re-seeded to head: there was nobody to notify while
	// idle, so back-scanning the gap would only produce noise.
	idle bool
}

func NewPoller(desc model.ChainDescriptor, rpcURL string, client rpc.EVMClient, wallets store.WalletRepository,
	cursors store.CursorRepository, prices NativePricer, gate *Gate, cfg Config, log *slog.Logger) *Poller {
	return &Poller{
		desc:    desc,
		rpcURL:  rpcURL,
		client:  client,
		wallets: wallets,
		cursors: cursors,
		prices:  prices,
		gate:    gate,
		cfg:     cfg.withDefaults(),
		log:     log.With("component", "poller", "chain", desc.Chain),
	}
}

// Run polls until ctx is cancelled. Cycle errors are classified and logged
// but never propagate; a broken chain degrades alone.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller starting", "rpc_subdomain", p.desc.RPCSubdomain)

	for {
		start := time.Now()
		delay, err := p.cycle(ctx)
		metrics.PollerCycleLatency.WithLabelValues(p.desc.Chain.String()).Observe(time.Since(start).Seconds())

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d := retry.Classify(err)
			metrics.PollerCyclesTotal.WithLabelValues(p.desc.Chain.String(), "error").Inc()
			p.log.Error("poll cycle failed", "class", d.Class, "reason", d.Reason, "error", err)
			delay = p.cfg.BackoffInterval
		} else {
			metrics.PollerCyclesTotal.WithLabelValues(p.desc.Chain.String(), "ok").Inc()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// cycle runs one poll iteration and returns how long to sleep before the
// next. The cursor only moves after every transfer in the range has been
// handed to the gate.
func (p *Poller) cycle(ctx context.Context) (time.Duration, error) {
	addresses, err := p.wallets.GetWatchedAddresses(ctx, p.desc.Chain)
	if err != nil {
		return 0, fmt.Errorf("load watched addresses: %w", err)
	}
	if len(addresses) == 0 {
		p.idle = true
		return p.cfg.IdleInterval, nil
	}

	head, err := p.blockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch head: %w", err)
	}

	cursor, err := p.cursors.Get(ctx, p.desc.Chain)
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	if cursor == nil || p.idle {
		// Seed to head; history before the first watcher is not scanned.
		p.idle = false
		if err := p.cursors.Set(ctx, p.desc.Chain, head); err != nil {
			return 0, fmt.Errorf("seed cursor: %w", err)
		}
		metrics.PollerCursorBlock.WithLabelValues(p.desc.Chain.String()).Set(float64(head))
		return p.cfg.PollInterval, nil
	}

	if head <= cursor.BlockNumber {
		return p.cfg.PollInterval, nil
	}

	transfers, err := p.fetchRange(ctx, addresses, cursor.BlockNumber+1, head)
	if err != nil {
		return 0, err
	}

	nativeUSD := p.nativePrice(ctx)

	for _, t := range transfers {
		cand, ok := Classify(t.event, p.desc, t.triggered, nativeUSD)
		if !ok {
			continue
		}
		metrics.PollerTransfersDetected.WithLabelValues(p.desc.Chain.String(), t.event.Category).Inc()
		if err := p.gate.Deliver(ctx, cand); err != nil {
			p.log.Warn("delivery failed", "tx", t.event.Hash, "error", err)
		}
	}

	if err := p.cursors.Set(ctx, p.desc.Chain, head); err != nil {
		return 0, fmt.Errorf("advance cursor: %w", err)
	}
	metrics.PollerCursorBlock.WithLabelValues(p.desc.Chain.String()).Set(float64(head))

	return p.cfg.PollInterval, nil
}

type matchedTransfer struct {
	event     model.TransferEvent
	triggered string
}

// fetchRange queries the half-open range (from-1, to] for every watched
// address, in both directions. A transfer between two watched wallets shows
// up in several result sets; the (hash, triggered) pair collapses them.
func (p *Poller) fetchRange(ctx context.Context, addresses []string, fromBlock, toBlock int64) ([]matchedTransfer, error) {
	watched := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		watched[strings.ToLower(a)] = true
	}

	base := rpc.AssetTransfersParams{
		FromBlock:        rpc.FormatHexInt64(fromBlock),
		ToBlock:          rpc.FormatHexInt64(toBlock),
		Category:         rpc.AllTransferCategories,
		ExcludeZeroValue: false,
		MaxCount:         rpc.FormatHexInt64(int64(p.cfg.MaxCount)),
	}

	var out []matchedTransfer
	dedup := make(map[string]bool)

	for _, addr := range addresses {
		for _, params := range []rpc.AssetTransfersParams{
			func() rpc.AssetTransfersParams { q := base; q.FromAddress = addr; return q }(),
			func() rpc.AssetTransfersParams { q := base; q.ToAddress = addr; return q }(),
		} {
			transfers, err := p.client.GetAssetTransfers(ctx, p.rpcURL, params)
			if err != nil {
				return nil, fmt.Errorf("fetch transfers for %s: %w", addr, err)
			}
			for _, t := range transfers {
				event, err := toTransferEvent(t)
				if err != nil {
					p.log.Warn("skipping malformed transfer", "tx", t.Hash, "error", err)
					continue
				}
				triggered := strings.ToLower(t.To)
				if watched[strings.ToLower(t.From)] {
					triggered = strings.ToLower(t.From)
				}
				key := event.Hash + ":" + event.Category + ":" + triggered
				if dedup[key] {
					continue
				}
				dedup[key] = true
				out = append(out, matchedTransfer{event: event, triggered: triggered})
			}
		}
	}
	return out, nil
}

func (p *Poller) blockNumber(ctx context.Context) (int64, error) {
	head, err := p.client.BlockNumber(ctx, p.rpcURL)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(p.desc.Chain.String(), "eth_blockNumber", "error").Inc()
		return 0, err
	}
	metrics.RPCCallsTotal.WithLabelValues(p.desc.Chain.String(), "eth_blockNumber", "ok").Inc()
	return head, nil
}

// nativePrice is best-effort: a missing price drops the USD figure from the
// notification, it never blocks the cycle.
func (p *Poller) nativePrice(ctx context.Context) float64 {
	usd, err := p.prices.NativePrice(ctx, p.desc.Chain)
	if err != nil {
		p.log.Debug("native price unavailable", "error", err)
		return 0
	}
	return usd
}

func toTransferEvent(t rpc.AssetTransfer) (model.TransferEvent, error) {
	blockNum, err := rpc.ParseHexInt64(t.BlockNum)
	if err != nil {
		return model.TransferEvent{}, fmt.Errorf("parse block number: %w", err)
	}

	event := model.TransferEvent{
		Hash:            t.Hash,
		From:            t.From,
		To:              t.To,
		Asset:           t.Asset,
		Value:           t.Value,
		Category:        t.Category,
		BlockNumber:     blockNum,
		ContractAddress: t.RawContract.Address,
		RawValue:        t.RawContract.Value,
	}
	if t.RawContract.Decimal != "" {
		if d, err := rpc.ParseHexInt64(t.RawContract.Decimal); err == nil {
			dec := int32(d)
			event.RawDecimals = &dec
		}
	}
	return event, nil
}

var _ NativePricer = (*price.Resolver)(nil)
