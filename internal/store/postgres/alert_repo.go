package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

type AlertRepo struct {
	db *DB
}

func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

const alertColumns = `id, user_id, chain, token_address, token_symbol, kind,
	target_price, target_percentage, created_price, is_active, triggered,
	created_at, triggered_at`

func scanAlert(row interface{ Scan(...any) error }) (model.PriceAlert, error) {
	var a model.PriceAlert
	err := row.Scan(
		&a.ID, &a.UserID, &a.Chain, &a.TokenAddress, &a.TokenSymbol, &a.Kind,
		&a.TargetPrice, &a.TargetPercentage, &a.CreatedPrice, &a.IsActive,
		&a.Triggered, &a.CreatedAt, &a.TriggeredAt,
	)
	return a, err
}

func (r *AlertRepo) GetActive(ctx context.Context) ([]model.PriceAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM price_alerts
		WHERE is_active = true AND triggered = false
		ORDER BY chain, token_address
	`)
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.PriceAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *AlertRepo) ListActiveByUser(ctx context.Context, userID int64) ([]model.PriceAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM price_alerts
		WHERE user_id = $1 AND is_active = true
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.PriceAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *AlertRepo) Create(ctx context.Context, alert *model.PriceAlert) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	alert.TokenAddress = normalizeAddress(alert.TokenAddress)
	alert.IsActive = true

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_alerts
			(id, user_id, chain, token_address, token_symbol, kind,
			 target_price, target_percentage, created_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)
	`, alert.ID, alert.UserID, alert.Chain, alert.TokenAddress, alert.TokenSymbol,
		alert.Kind, alert.TargetPrice, alert.TargetPercentage, alert.CreatedPrice)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// MarkTriggered flips an alert to triggered and records the trigger price.
// The WHERE clause makes the transition atomic: a second caller sees zero
// rows affected and must not notify.
func (r *AlertRepo) MarkTriggered(ctx context.Context, id uuid.UUID, price float64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE price_alerts
		SET triggered = true, triggered_at = now(), triggered_price = $2
		WHERE id = $1 AND is_active = true AND triggered = false
	`, id, price)
	if err != nil {
		return false, fmt.Errorf("mark alert triggered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *AlertRepo) Deactivate(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE price_alerts
		SET is_active = false
		WHERE id = $1 AND user_id = $2 AND is_active = true
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deactivate alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *AlertRepo) LogNotification(ctx context.Context, alertID uuid.UUID, userID int64, kind, message string, delivered bool) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_log (alert_id, user_id, kind, message, delivered)
		VALUES ($1, $2, $3, $4, $5)
	`, alertID, userID, kind, message, delivered)
	if err != nil {
		return fmt.Errorf("log notification: %w", err)
	}
	return nil
}
