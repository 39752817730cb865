package models

import (
	"time"
)

// User carries the legacy aggregate balance field.
// The wallet row is canonical; both representations are written inside the
// same atomic unit and compared by the reconciliation job.
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Balance   int64     `db:"balance"`
	IsBot     bool      `db:"is_bot"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
