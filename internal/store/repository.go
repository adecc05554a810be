// Package store defines the persistence surface consumed by the engine.
// Implementations live in store/postgres and store/redis.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

// WalletRepository provides access to wallet subscriptions.
type WalletRepository interface {
	// GetWatchedAddresses returns the distinct lowercase addresses watched on
	// a chain by any user.
	GetWatchedAddresses(ctx context.Context, chain model.Chain) ([]string, error)

	// GetSubscribers returns the user IDs watching one address on one chain.
	GetSubscribers(ctx context.Context, chain model.Chain, address string) ([]int64, error)

	// ActiveChains returns every chain with at least one subscription.
	ActiveChains(ctx context.Context) ([]model.Chain, error)

	Add(ctx context.Context, sub *model.WalletSubscription) error
	ListByUser(ctx context.Context, userID int64) ([]model.WalletSubscription, error)
	RemoveByID(ctx context.Context, id uuid.UUID, userID int64) (bool, error)
}

// SettingsRepository provides per-user notification preferences.
// Get returns defaults for users with no stored row.
type SettingsRepository interface {
	Get(ctx context.Context, userID int64) (model.UserSettings, error)
	Update(ctx context.Context, settings model.UserSettings) error
}

// AlertRepository provides CRUD over price alerts. MarkTriggered must be
// serialized per alert id: it returns false when the alert was already
// triggered or inactive, guarding the at-most-once trigger transition.
type AlertRepository interface {
	GetActive(ctx context.Context) ([]model.PriceAlert, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]model.PriceAlert, error)
	Create(ctx context.Context, alert *model.PriceAlert) error
	MarkTriggered(ctx context.Context, id uuid.UUID, price float64) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID, userID int64) (bool, error)
	LogNotification(ctx context.Context, alertID uuid.UUID, userID int64, kind, message string, delivered bool) error
}

// CursorRepository persists the per-chain block cursor across restarts.
// Get returns nil when no cursor exists yet.
type CursorRepository interface {
	Get(ctx context.Context, chain model.Chain) (*model.ChainCursor, error)
	Set(ctx context.Context, chain model.Chain, blockNumber int64) error
}

// Deduper remembers recently notified transaction keys per chain so a
// reprocessed block range cannot double-notify.
type Deduper interface {
	Seen(ctx context.Context, chain model.Chain, key string) (bool, error)
	Record(ctx context.Context, chain model.Chain, key string) error
}
