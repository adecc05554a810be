// Package alerting runs the price-alert evaluation loop. One pass every
// interval: load active alerts, resolve one price per (chain, token) group,
// trigger whatever conditions hold.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
	"github.com/AsetGithub/evm-lens-bot/internal/metrics"
	"github.com/AsetGithub/evm-lens-bot/internal/notify"
	"github.com/AsetGithub/evm-lens-bot/internal/store"
)

// TokenPricer is the slice of the price resolver the engine needs.
type TokenPricer interface {
	TokenPrice(ctx context.Context, chain model.Chain, tokenAddress string) (float64, error)
}

// Enqueuer is the dispatcher surface the engine needs.
type Enqueuer interface {
	Enqueue(msg notify.Message) bool
}

const defaultPassInterval = 30 * time.Second

type Engine struct {
	alerts     store.AlertRepository
	prices     TokenPricer
	dispatcher Enqueuer
	interval   time.Duration
	log        *slog.Logger
}

func NewEngine(alerts store.AlertRepository, prices TokenPricer, dispatcher Enqueuer, interval time.Duration, log *slog.Logger) *Engine {
	if interval <= 0 {
		interval = defaultPassInterval
	}
	return &Engine{
		alerts:     alerts,
		prices:     prices,
		dispatcher: dispatcher,
		interval:   interval,
		log:        log.With("component", "alert_engine"),
	}
}

// Run evaluates passes until ctx is cancelled. Pass errors are logged, never
// fatal; the next pass retries with unchanged alert state.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("alert engine starting", "interval", e.interval.String())

	for {
		if err := e.pass(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Error("alert pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.interval):
		}
	}
}

type groupKey struct {
	chain model.Chain
	token string
}

// pass runs one full evaluation over all active, untriggered alerts. Groups
// are evaluated sequentially; a group whose price cannot be resolved is
// skipped for this pass without failing the others.
func (e *Engine) pass(ctx context.Context) error {
	alerts, err := e.alerts.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("load active alerts: %w", err)
	}
	if len(alerts) == 0 {
		metrics.AlertPassesTotal.Inc()
		return nil
	}

	groups := make(map[groupKey][]model.PriceAlert)
	var order []groupKey
	for _, a := range alerts {
		k := groupKey{chain: a.Chain, token: a.TokenAddress}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], a)
	}

	for _, k := range order {
		price, err := e.prices.TokenPrice(ctx, k.chain, k.token)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.AlertGroupsSkippedTotal.Inc()
			e.log.Warn("price unresolved, skipping group", "chain", k.chain, "token", k.token, "error", err)
			continue
		}

		for _, alert := range groups[k] {
			if !alert.ShouldTrigger(price) {
				continue
			}
			e.trigger(ctx, alert, price)
		}
	}

	metrics.AlertPassesTotal.Inc()
	return nil
}

// trigger marks the alert before dispatching, so a crash between the two
// loses the notification rather than re-triggering the alert. The store
// update is the at-most-once guard; a false return means another pass won.
func (e *Engine) trigger(ctx context.Context, alert model.PriceAlert, price float64) {
	ok, err := e.alerts.MarkTriggered(ctx, alert.ID, price)
	if err != nil {
		e.log.Error("mark triggered failed", "alert_id", alert.ID, "error", err)
		return
	}
	if !ok {
		return
	}

	metrics.AlertsTriggeredTotal.WithLabelValues(string(alert.Kind)).Inc()
	e.log.Info("alert triggered",
		"alert_id", alert.ID, "user_id", alert.UserID,
		"chain", alert.Chain, "token", alert.TokenAddress,
		"kind", alert.Kind, "price", price)

	text := notify.RenderAlert(alert, price)
	delivered := e.dispatcher.Enqueue(notify.Message{
		UserID: alert.UserID,
		Text:   text,
		Kind:   notify.KindAlert,
	})

	if err := e.alerts.LogNotification(ctx, alert.ID, alert.UserID, notify.KindAlert, text, delivered); err != nil {
		e.log.Warn("notification log write failed", "alert_id", alert.ID, "error", err)
	}
}
