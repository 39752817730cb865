package models

import (
	"time"
)

// WalletStatus represents the lifecycle state of a wallet
type WalletStatus string

const (
	WalletStatusActive WalletStatus = "active"
	WalletStatusFrozen WalletStatus = "frozen"
)

// Wallet is the canonical balance record for a user.
// AvailableBalance excludes funds reserved by pending withdrawals;
// it can never exceed Balance.
type Wallet struct {
	UserID           int64        `db:"user_id"`
	Balance          int64        `db:"balance"`
	AvailableBalance int64        `db:"available_balance"`
	Status           WalletStatus `db:"status"`
	Version          int64        `db:"version"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

// IsFrozen reports whether the wallet rejects balance mutations
func (w *Wallet) IsFrozen() bool {
	return w.Status == WalletStatusFrozen
}
