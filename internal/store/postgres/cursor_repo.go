package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

type CursorRepo struct {
	db *DB
}

func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

func (r *CursorRepo) Get(ctx context.Context, chain model.Chain) (*model.ChainCursor, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var c model.ChainCursor
	err := r.db.QueryRowContext(ctx, `
		SELECT chain, block_number, updated_at
		FROM chain_cursors
		WHERE chain = $1
	`, chain).Scan(&c.Chain, &c.BlockNumber, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	return &c, nil
}

// Set advances the cursor. GREATEST keeps the stored value monotonic if two
// writers ever race.
func (r *CursorRepo) Set(ctx context.Context, chain model.Chain, blockNumber int64) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chain_cursors (chain, block_number)
		VALUES ($1, $2)
		ON CONFLICT (chain) DO UPDATE SET
			block_number = GREATEST(chain_cursors.block_number, EXCLUDED.block_number),
			updated_at = now()
	`, chain, blockNumber)
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
