package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

type WalletRepo struct {
	db *DB
}

func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

func (r *WalletRepo) GetWatchedAddresses(ctx context.Context, chain model.Chain) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT address
		FROM wallet_subscriptions
		WHERE chain = $1
		ORDER BY address
	`, chain)
	if err != nil {
		return nil, fmt.Errorf("query watched addresses: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan watched address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func (r *WalletRepo) GetSubscribers(ctx context.Context, chain model.Chain, address string) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id
		FROM wallet_subscriptions
		WHERE chain = $1 AND address = $2
		ORDER BY user_id
	`, chain, normalizeAddress(address))
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var u int64
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *WalletRepo) ActiveChains(ctx context.Context) ([]model.Chain, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT chain
		FROM wallet_subscriptions
		ORDER BY chain
	`)
	if err != nil {
		return nil, fmt.Errorf("query active chains: %w", err)
	}
	defer rows.Close()

	var chains []model.Chain
	for rows.Next() {
		var c model.Chain
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan chain: %w", err)
		}
		chains = append(chains, c)
	}
	return chains, rows.Err()
}

func (r *WalletRepo) Add(ctx context.Context, sub *model.WalletSubscription) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.Address = normalizeAddress(sub.Address)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_subscriptions (id, user_id, chain, address, alias)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, chain, address) DO UPDATE SET
			alias = EXCLUDED.alias
	`, sub.ID, sub.UserID, sub.Chain, sub.Address, sub.Alias)
	if err != nil {
		return fmt.Errorf("add wallet subscription: %w", err)
	}
	return nil
}

func (r *WalletRepo) ListByUser(ctx context.Context, userID int64) ([]model.WalletSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, chain, address, alias, created_at
		FROM wallet_subscriptions
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallet subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.WalletSubscription
	for rows.Next() {
		var s model.WalletSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Chain, &s.Address, &s.Alias, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *WalletRepo) RemoveByID(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM wallet_subscriptions
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("remove wallet subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
