package models

import (
	"time"
)

// Treasury is the single shared pool funding automated spending.
// Spend fails closed: the balance never goes negative.
type Treasury struct {
	ID              int64     `db:"id"`
	Balance         int64     `db:"balance"`
	DailySpendLimit int64     `db:"daily_spend_limit"`
	TodaySpent      int64     `db:"today_spent"`
	TotalSpent      int64     `db:"total_spent"`
	TotalRefunded   int64     `db:"total_refunded"`
	LastResetAt     time.Time `db:"last_reset_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// RemainingToday returns how much the daily cap still allows.
// The cap is advisory for callers; Spend itself only guards total balance.
func (t *Treasury) RemainingToday() int64 {
	remaining := t.DailySpendLimit - t.TodaySpent
	if remaining < 0 {
		return 0
	}
	return remaining
}
