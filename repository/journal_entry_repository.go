package repository

import (
	"context"
	"fmt"

	"sweetbank/database"
	"sweetbank/models"
)

// JournalEntryRepository implements the service.JournalEntryRepository interface
type JournalEntryRepository struct {
	q queryable
}

// NewJournalEntryRepository creates a new journal entry repository
func NewJournalEntryRepository(db *database.DB) *JournalEntryRepository {
	return &JournalEntryRepository{q: db.Pool}
}

// newJournalEntryRepositoryWithTx creates a new journal entry repository with a transaction
func newJournalEntryRepositoryWithTx(tx queryable) *JournalEntryRepository {
	return &JournalEntryRepository{q: tx}
}

// Record appends a journal entry with balance snapshots
func (r *JournalEntryRepository) Record(ctx context.Context, entry *models.JournalEntry) error {
	query := `
		INSERT INTO journal_entries
		(transaction_id, user_id, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.TransactionID,
		entry.UserID,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record journal entry for transaction %d: %w", entry.TransactionID, err)
	}

	return nil
}

// GetByTransaction returns the entries attached to a transaction
func (r *JournalEntryRepository) GetByTransaction(ctx context.Context, transactionID int64) ([]*models.JournalEntry, error) {
	query := `
		SELECT id, transaction_id, user_id, amount, balance_before, balance_after, created_at
		FROM journal_entries
		WHERE transaction_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries for transaction %d: %w", transactionID, err)
	}
	defer rows.Close()

	var entries []*models.JournalEntry
	for rows.Next() {
		var entry models.JournalEntry
		err := rows.Scan(
			&entry.ID,
			&entry.TransactionID,
			&entry.UserID,
			&entry.Amount,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	return entries, nil
}
