package models

import (
	"time"
)

// JournalEntry is an audit-trail line attached to a transaction.
// It snapshots the balance before and after so the ledger can be
// reconstructed even if the transaction row itself is lost.
type JournalEntry struct {
	ID            int64     `db:"id"`
	TransactionID int64     `db:"transaction_id"`
	UserID        int64     `db:"user_id"`
	Amount        int64     `db:"amount"`
	BalanceBefore int64     `db:"balance_before"`
	BalanceAfter  int64     `db:"balance_after"`
	CreatedAt     time.Time `db:"created_at"`
}
