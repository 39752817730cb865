package repository

import (
	"context"
	"fmt"
	"time"

	"sweetbank/database"
	"sweetbank/models"
	"sweetbank/service"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the service.TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create inserts a transaction and fills ID and CreatedAt.
// The partial unique index on idempotency_key closes the check-then-insert
// race; its rejection surfaces as ErrDuplicateIdempotencyKey, which the
// ledger treats as the expected duplicate outcome.
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	metadataJSON, err := models.MarshalMeta(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions
		(user_id, type, amount, status, channel, "trigger", description, idempotency_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		txn.UserID,
		txn.Type,
		txn.Amount,
		txn.Status,
		txn.Channel,
		txn.Trigger,
		txn.Description,
		txn.IdempotencyKey,
		metadataJSON,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrDuplicateIdempotencyKey
		}
		if isCheckViolation(err) {
			return fmt.Errorf("transaction for user %d violates sign constraint (type %s, amount %d): %w",
				txn.UserID, txn.Type, txn.Amount, err)
		}
		return fmt.Errorf("failed to create transaction for user %d: %w", txn.UserID, err)
	}

	return nil
}

const transactionColumns = `id, user_id, type, amount, status, channel, "trigger", description, idempotency_key, metadata, created_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var txn models.Transaction
	var metadataJSON []byte

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Type,
		&txn.Amount,
		&txn.Status,
		&txn.Channel,
		&txn.Trigger,
		&txn.Description,
		&txn.IdempotencyKey,
		&metadataJSON,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Metadata, err = models.UnmarshalMeta(metadataJSON)
	if err != nil {
		return nil, err
	}

	return &txn, nil
}

// GetByIdempotencyKey retrieves a transaction by its idempotency key, nil if absent
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`

	txn, err := scanTransaction(r.q.QueryRow(ctx, query, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", err)
	}

	return txn, nil
}

// GetByUser returns the most recent transactions for a user
func (r *TransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// GetByDateRange returns transactions within a window
func (r *TransactionRepository) GetByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %d in date range: %w", userID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// SumByUser returns the signed sum of all completed amounts for a user.
// Balance conservation requires this to equal the wallet balance exactly.
func (r *TransactionRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND status = 'completed'
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for user %d: %w", userID, err)
	}

	return sum, nil
}

// CountByTrigger counts transactions matching a trigger for a user
func (r *TransactionRepository) CountByTrigger(ctx context.Context, userID int64, trigger models.Trigger) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND "trigger" = $2`

	var count int64
	if err := r.q.QueryRow(ctx, query, userID, trigger).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions by trigger for user %d: %w", userID, err)
	}

	return count, nil
}
