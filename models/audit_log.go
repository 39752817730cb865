package models

import (
	"time"
)

// AuditAction identifies what a state-changing operation did
type AuditAction string

const (
	AuditActionTransactionExecuted AuditAction = "transaction.executed"
	AuditActionWithdrawalRequested AuditAction = "withdrawal.requested"
	AuditActionWithdrawalApproved  AuditAction = "withdrawal.approved"
	AuditActionWithdrawalRejected  AuditAction = "withdrawal.rejected"
	AuditActionTreasurySpend       AuditAction = "treasury.spend"
	AuditActionTreasuryRefill      AuditAction = "treasury.refill"
	AuditActionReconcileCorrection AuditAction = "reconcile.correction"
	AuditActionRankChanged         AuditAction = "rank.changed"
)

// AuditLog records who changed what, with before/after snapshots
type AuditLog struct {
	ID        int64          `db:"id"`
	Actor     string         `db:"actor"`
	Action    AuditAction    `db:"action"`
	Before    map[string]any `db:"before"`
	After     map[string]any `db:"after"`
	Reason    string         `db:"reason"`
	CreatedAt time.Time      `db:"created_at"`
}

// Notification is a user-facing record created by state-changing operations
type Notification struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Kind      string    `db:"kind"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}
