package model

import (
	"time"

	"github.com/google/uuid"
)

// AlertKind is the condition family for a price alert.
type AlertKind string

const (
	AlertAbove   AlertKind = "above"
	AlertBelow   AlertKind = "below"
	AlertPercent AlertKind = "percent"
)

// PriceAlert is a user-defined price trigger. Alerts transition
// active ∧ ¬triggered → active ∧ triggered exactly once and are never
// physically deleted, only deactivated.
type PriceAlert struct {
	ID               uuid.UUID  `db:"id"`
	UserID           int64      `db:"user_id"`
	Chain            Chain      `db:"chain"`
	TokenAddress     string     `db:"token_address"`
	TokenSymbol      string     `db:"token_symbol"`
	Kind             AlertKind  `db:"kind"`
	TargetPrice      *float64   `db:"target_price"`      // above/below
	TargetPercentage *float64   `db:"target_percentage"` // percent
	CreatedPrice     float64    `db:"created_price"`
	IsActive         bool       `db:"is_active"`
	Triggered        bool       `db:"triggered"`
	CreatedAt        time.Time  `db:"created_at"`
	TriggeredAt      *time.Time `db:"triggered_at"`
}

// ShouldTrigger reports whether the alert condition holds at currentPrice.
// Percent alerts with a non-positive creation price never trigger.
func (a *PriceAlert) ShouldTrigger(currentPrice float64) bool {
	switch a.Kind {
	case AlertAbove:
		return a.TargetPrice != nil && currentPrice >= *a.TargetPrice
	case AlertBelow:
		return a.TargetPrice != nil && currentPrice <= *a.TargetPrice
	case AlertPercent:
		if a.TargetPercentage == nil || a.CreatedPrice <= 0 {
			return false
		}
		pct := (currentPrice - a.CreatedPrice) / a.CreatedPrice * 100
		if *a.TargetPercentage > 0 {
			return pct >= *a.TargetPercentage
		}
		return pct <= *a.TargetPercentage
	}
	return false
}
