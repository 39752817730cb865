package models

import (
	"time"
)

// WeeklyXPCeiling caps XP accrual per rolling week.
// Awards beyond the ceiling are truncated, not rejected.
const WeeklyXPCeiling int64 = 1000

// RankTier is an ordered progression tier gating feature unlocks
type RankTier struct {
	ID      int64    `db:"id"`
	Name    string   `db:"name"`
	MinXP   int64    `db:"min_xp"`
	MaxXP   int64    `db:"max_xp"`
	Unlocks []string `db:"unlocks"`
}

// Contains reports whether totalXP falls inside [MinXP, MaxXP)
func (t *RankTier) Contains(totalXP int64) bool {
	return totalXP >= t.MinXP && totalXP < t.MaxXP
}

// UserRankProgress tracks a user's XP accumulation and current tier
type UserRankProgress struct {
	UserID        int64     `db:"user_id"`
	CurrentXP     int64     `db:"current_xp"`
	WeeklyXP      int64     `db:"weekly_xp"`
	CurrentRankID int64     `db:"current_rank_id"`
	WeekStart     time.Time `db:"week_start"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// RankBadge records a badge granted on reaching a tier, at most once per tier
type RankBadge struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	RankID    int64     `db:"rank_id"`
	GrantedAt time.Time `db:"granted_at"`
}

// XPAwardResult is the outcome of an XP award
type XPAwardResult struct {
	XPAwarded   int64
	TotalXP     int64
	WeeklyXP    int64
	RankChanged bool
	NewRank     *RankTier
	CapReached  bool
}

// WeekStartUTC returns the Monday 00:00 UTC boundary containing t
func WeekStartUTC(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	// Sunday is 0 in time.Weekday but belongs to the preceding Monday week
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
