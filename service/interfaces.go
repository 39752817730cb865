package service

import (
	"context"
	"time"

	"sweetbank/events"
	"sweetbank/models"
)

// UserRepository accesses the user rows carrying the legacy aggregate balance
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// ApplyBalanceDelta adjusts the legacy aggregate balance field.
	// Only the ledger service calls this, inside the same atomic unit
	// as the wallet mutation.
	ApplyBalanceDelta(ctx context.Context, userID int64, delta int64) error

	// GetAll returns all users
	GetAll(ctx context.Context) ([]*models.User, error)
}

// WalletRepository accesses the canonical wallet records
type WalletRepository interface {
	// GetByUserID retrieves a wallet, nil if absent
	GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error)

	// Create provisions a zero-balance wallet. A concurrent creator loses
	// to the unique constraint and must re-read.
	Create(ctx context.Context, userID int64) (*models.Wallet, error)

	// ApplyDelta mutates balance and available balance under optimistic
	// concurrency. Returns ErrVersionConflict when expectedVersion is stale.
	ApplyDelta(ctx context.Context, userID int64, delta int64, expectedVersion int64) (*models.Wallet, error)

	// SetStatus freezes or unfreezes a wallet
	SetStatus(ctx context.Context, userID int64, status models.WalletStatus) error

	// GetAll returns every wallet, for reconciliation sweeps
	GetAll(ctx context.Context) ([]*models.Wallet, error)
}

// TransactionRepository accesses the append-only ledger
type TransactionRepository interface {
	// Create inserts a transaction, filling ID and CreatedAt.
	// A unique-index rejection on the idempotency key surfaces as
	// ErrDuplicateIdempotencyKey.
	Create(ctx context.Context, txn *models.Transaction) error

	// GetByIdempotencyKey retrieves a transaction by key, nil if absent
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)

	// GetByUser returns the most recent transactions for a user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error)

	// GetByDateRange returns transactions within a window
	GetByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]*models.Transaction, error)

	// SumByUser returns the signed sum of all committed amounts for a user
	SumByUser(ctx context.Context, userID int64) (int64, error)

	// CountByTriggerAndMeta counts transactions matching a trigger for a user
	CountByTrigger(ctx context.Context, userID int64, trigger models.Trigger) (int64, error)
}

// JournalEntryRepository accesses the audit-trail ledger lines
type JournalEntryRepository interface {
	// Record appends a journal entry
	Record(ctx context.Context, entry *models.JournalEntry) error

	// GetByTransaction returns the entries attached to a transaction
	GetByTransaction(ctx context.Context, transactionID int64) ([]*models.JournalEntry, error)
}

// WithdrawalRepository accesses withdrawal requests
type WithdrawalRepository interface {
	// Create inserts a pending request, filling ID and RequestedAt
	Create(ctx context.Context, req *models.WithdrawalRequest) error

	// GetByID retrieves a request, nil if absent
	GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error)

	// GetByIDForUpdate retrieves a request with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error)

	// MarkProcessed transitions a pending request to a terminal status.
	// Returns ErrWithdrawalNotPending if the request already left pending.
	MarkProcessed(ctx context.Context, id int64, status models.WithdrawalStatus, adminNotes string) error

	// ListPending returns all pending requests, oldest first
	ListPending(ctx context.Context) ([]*models.WithdrawalRequest, error)
}

// TreasuryRepository accesses the single treasury row
type TreasuryRepository interface {
	// Get retrieves the treasury state
	Get(ctx context.Context) (*models.Treasury, error)

	// Spend atomically deducts amount if the balance allows it.
	// Returns the post-spend state and whether the spend was applied.
	Spend(ctx context.Context, amount int64) (*models.Treasury, bool, error)

	// Refill atomically adds to the treasury balance
	Refill(ctx context.Context, amount int64) (*models.Treasury, error)

	// RecordRefund tracks amounts returned to users from the treasury
	RecordRefund(ctx context.Context, amount int64) error

	// ResetDailySpent zeroes today's spend counter
	ResetDailySpent(ctx context.Context) error
}

// RankRepository accesses rank tiers and per-user progression
type RankRepository interface {
	// GetTiers returns all tiers ordered by min XP ascending
	GetTiers(ctx context.Context) ([]*models.RankTier, error)

	// GetProgress retrieves a user's progression, nil if absent
	GetProgress(ctx context.Context, userID int64) (*models.UserRankProgress, error)

	// CreateProgress provisions progression at the lowest tier
	CreateProgress(ctx context.Context, progress *models.UserRankProgress) error

	// UpdateProgress persists XP totals, week window and current rank
	UpdateProgress(ctx context.Context, progress *models.UserRankProgress) error

	// HasBadge reports whether the user already holds the tier badge
	HasBadge(ctx context.Context, userID int64, rankID int64) (bool, error)

	// GrantBadge grants a tier badge, at most once per user and tier
	GrantBadge(ctx context.Context, userID int64, rankID int64) error
}

// AuditLogRepository records actor/before/after snapshots
type AuditLogRepository interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// NotificationRepository records user-facing notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
}

// ExecuteParams are the inputs to a ledger execution.
// Amount is always a positive magnitude; the service applies the sign
// dictated by Type.
type ExecuteParams struct {
	UserID         int64
	Amount         int64
	Type           models.TransactionType
	Trigger        models.Trigger
	Channel        models.Channel
	Description    string
	Metadata       models.TransactionMeta
	IdempotencyKey string
	Actor          string
}

// LedgerService is the single entry point for every balance mutation
type LedgerService interface {
	// Execute validates, deduplicates and atomically applies a transaction
	// against the wallet, the legacy user balance, the ledger and the journal
	Execute(ctx context.Context, params ExecuteParams) (*models.ExecuteResult, error)

	// ExecuteIn applies a transaction inside the caller's unit of work so a
	// surrounding state change commits or fails together with the ledger
	// entry. The caller owns commit and rollback; version conflicts surface
	// directly instead of being retried here.
	ExecuteIn(ctx context.Context, uow UnitOfWork, params ExecuteParams) (*models.ExecuteResult, error)
}

// RequestWithdrawalParams are the inputs to a withdrawal request
type RequestWithdrawalParams struct {
	UserID        int64
	Amount        int64
	Method        string
	WalletAddress string
	ProcessingFee int64
}

// WithdrawalService manages the payout request lifecycle
type WithdrawalService interface {
	// Request deducts funds immediately and creates a pending request
	Request(ctx context.Context, params RequestWithdrawalParams) (*models.WithdrawalRequest, error)

	// Approve settles a pending request; funds already left the wallet
	Approve(ctx context.Context, id int64, adminID string) (*models.WithdrawalRequest, error)

	// Reject refunds the deduction and closes the request. If the refund
	// fails the whole rejection fails and the request stays pending.
	Reject(ctx context.Context, id int64, adminID string, reason string) (*models.WithdrawalRequest, error)
}

// TreasuryService manages the shared automated-spend pool
type TreasuryService interface {
	// Spend deducts from the treasury, failing closed on insufficient balance
	Spend(ctx context.Context, amount int64, reason string) (*models.TreasurySpendResult, error)

	// Refill adds funds and records an audit entry with snapshots
	Refill(ctx context.Context, amount int64, adminID string) (*models.Treasury, error)

	// CanSpend checks the daily cap; callers skip the action when false
	CanSpend(ctx context.Context, amount int64) (bool, error)

	// ResetDaily zeroes the daily spend counter
	ResetDaily(ctx context.Context) error
}

// RankService manages XP accrual and tier progression
type RankService interface {
	// AwardXP accrues XP under the weekly ceiling and recomputes the tier
	AwardXP(ctx context.Context, userID int64, activity string, xpAmount int64) (*models.XPAwardResult, error)
}

// ReconciliationService compares the balance representations
type ReconciliationService interface {
	// Run diagnoses wallet vs ledger-sum vs legacy-field drift.
	// When correct is true, the legacy field is rewritten from the wallet.
	Run(ctx context.Context, correct bool) (*models.ReconciliationReport, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	WalletRepository() WalletRepository
	TransactionRepository() TransactionRepository
	JournalEntryRepository() JournalEntryRepository
	WithdrawalRepository() WithdrawalRepository
	TreasuryRepository() TreasuryRepository
	RankRepository() RankRepository
	AuditLogRepository() AuditLogRepository
	NotificationRepository() NotificationRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
