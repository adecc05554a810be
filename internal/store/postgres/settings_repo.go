package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the stored settings for userID, or the defaults when the user
// never changed anything.
func (r *SettingsRepo) Get(ctx context.Context, userID int64) (model.UserSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var s model.UserSettings
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, min_value_usd, notify_on_airdrop
		FROM user_settings
		WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.MinValueUSD, &s.NotifyOnAirdrop)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultUserSettings(userID), nil
	}
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("get user settings: %w", err)
	}
	return s, nil
}

func (r *SettingsRepo) Update(ctx context.Context, settings model.UserSettings) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, min_value_usd, notify_on_airdrop)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			min_value_usd = EXCLUDED.min_value_usd,
			notify_on_airdrop = EXCLUDED.notify_on_airdrop,
			updated_at = now()
	`, settings.UserID, settings.MinValueUSD, settings.NotifyOnAirdrop)
	if err != nil {
		return fmt.Errorf("update user settings: %w", err)
	}
	return nil
}
