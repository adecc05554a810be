package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/metrics"
	"github.com/AsetGithub/evm-lens-bot/internal/notify"
	"github.com/AsetGithub/evm-lens-bot/internal/store"
)

// Enqueuer is the dispatcher surface the gate needs.
type Enqueuer interface {
	Enqueue(msg notify.Message) bool
}

// Gate fans a classified transfer out to the wallet's subscribers, applying
// each subscriber's own filters. The same transfer may reach one subscriber
// and be suppressed for another.
type Gate struct {
	wallets    store.WalletRepository
	settings   store.SettingsRepository
	dedup      store.Deduper
	dispatcher Enqueuer
	log        *slog.Logger
}

func NewGate(wallets store.WalletRepository, settings store.SettingsRepository, dedup store.Deduper, dispatcher Enqueuer, log *slog.Logger) *Gate {
	return &Gate{
		wallets:    wallets,
		settings:   settings,
		dedup:      dedup,
		dispatcher: dispatcher,
		log:        log.With("component", "gate"),
	}
}

// Deliver dispatches cand to every subscriber whose settings admit it. A
// transaction hash already delivered for the same wallet is dropped outright,
// so re-polling a committed range cannot double-notify.
func (g *Gate) Deliver(ctx context.Context, cand model.NotificationCandidate) error {
	key := cand.TxHash + ":" + cand.TriggeredAddress

	seen, err := g.dedup.Seen(ctx, cand.Chain, key)
	if err != nil {
		g.log.Warn("dedup lookup failed, delivering anyway", "chain", cand.Chain, "tx", cand.TxHash, "error", err)
	} else if seen {
		metrics.NotificationsSuppressedTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	subscribers, err := g.wallets.GetSubscribers(ctx, cand.Chain, cand.TriggeredAddress)
	if err != nil {
		return fmt.Errorf("get subscribers: %w", err)
	}

	for _, userID := range subscribers {
		settings, err := g.settings.Get(ctx, userID)
		if err != nil {
			g.log.Warn("load settings failed, using defaults", "user_id", userID, "error", err)
			settings = model.DefaultUserSettings(userID)
		}

		if settings.MinValueUSD > 0 && cand.ValueUSD < settings.MinValueUSD {
			metrics.NotificationsSuppressedTotal.WithLabelValues("min_value").Inc()
			continue
		}
		if cand.IsAirdrop && !settings.NotifyOnAirdrop {
			metrics.NotificationsSuppressedTotal.WithLabelValues("airdrop_optout").Inc()
			continue
		}

		g.dispatcher.Enqueue(notify.Message{
			UserID: userID,
			Text:   notify.RenderTransfer(cand),
			Kind:   notify.KindTransfer,
		})
	}

	if err := g.dedup.Record(ctx, cand.Chain, key); err != nil {
		g.log.Warn("dedup record failed", "chain", cand.Chain, "tx", cand.TxHash, "error", err)
	}
	return nil
}
