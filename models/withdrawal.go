package models

import (
	"time"
)

// WithdrawalStatus represents the state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusApproved || s == WithdrawalStatusRejected
}

// WithdrawalRequest represents a payout request.
// Funds are deducted from the wallet at request time; approval settles them
// off-platform, rejection refunds them through the ledger.
type WithdrawalRequest struct {
	ID            int64            `db:"id"`
	UserID        int64            `db:"user_id"`
	Amount        int64            `db:"amount"`
	Method        string           `db:"method"`
	WalletAddress string           `db:"wallet_address"`
	ProcessingFee int64            `db:"processing_fee"`
	Status        WithdrawalStatus `db:"status"`
	AdminNotes    string           `db:"admin_notes"`
	RequestedAt   time.Time        `db:"requested_at"`
	ProcessedAt   *time.Time       `db:"processed_at"`
}
