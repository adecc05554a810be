package model

import "time"

// ChainCursor is the last fully-processed block number for a chain.
// Mutated only by the chain's own poller; monotonically non-decreasing.
type ChainCursor struct {
	Chain       Chain     `db:"chain"`
	BlockNumber int64     `db:"block_number"`
	UpdatedAt   time.Time `db:"updated_at"`
}
