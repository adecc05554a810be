package model

import (
	"time"

	"github.com/google/uuid"
)

// WalletSubscription maps a user to a wallet address they watch on one chain.
// Addresses are lowercased at write time; uniqueness over
// (user_id, chain, address) is enforced by the store.
type WalletSubscription struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	Chain     Chain     `db:"chain"`
	Address   string    `db:"address"`
	Alias     string    `db:"alias"`
	CreatedAt time.Time `db:"created_at"`
}

// UserSettings holds per-user notification preferences.
// Zero MinValueUSD disables the minimum-value filter.
type UserSettings struct {
	UserID          int64   `db:"user_id"`
	MinValueUSD     float64 `db:"min_value_usd"`
	NotifyOnAirdrop bool    `db:"notify_on_airdrop"`
}

// DefaultUserSettings are applied for users who never touched their settings.
func DefaultUserSettings(userID int64) UserSettings {
	return UserSettings{
		UserID:          userID,
		MinValueUSD:     0,
		NotifyOnAirdrop: true,
	}
}
