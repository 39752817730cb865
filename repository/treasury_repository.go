package repository

import (
	"context"
	"fmt"

	"sweetbank/database"
	"sweetbank/models"

	"github.com/jackc/pgx/v5"
)

// TreasuryRepository implements the service.TreasuryRepository interface
type TreasuryRepository struct {
	q queryable
}

// NewTreasuryRepository creates a new treasury repository
func NewTreasuryRepository(db *database.DB) *TreasuryRepository {
	return &TreasuryRepository{q: db.Pool}
}

// newTreasuryRepositoryWithTx creates a new treasury repository with a transaction
func newTreasuryRepositoryWithTx(tx queryable) *TreasuryRepository {
	return &TreasuryRepository{q: tx}
}

const treasuryColumns = `id, balance, daily_spend_limit, today_spent, total_spent, total_refunded, last_reset_at, updated_at`

func scanTreasury(row pgx.Row) (*models.Treasury, error) {
	var t models.Treasury
	err := row.Scan(
		&t.ID,
		&t.Balance,
		&t.DailySpendLimit,
		&t.TodaySpent,
		&t.TotalSpent,
		&t.TotalRefunded,
		&t.LastResetAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get retrieves the treasury state
func (r *TreasuryRepository) Get(ctx context.Context) (*models.Treasury, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury WHERE id = 1`

	t, err := scanTreasury(r.q.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("failed to get treasury: %w", err)
	}

	return t, nil
}

// Spend atomically deducts amount when the balance allows.
// The balance predicate makes the spend fail closed: no row is updated
// when funds are insufficient, and the current state is returned instead.
func (r *TreasuryRepository) Spend(ctx context.Context, amount int64) (*models.Treasury, bool, error) {
	if amount <= 0 {
		return nil, false, fmt.Errorf("spend amount must be positive")
	}

	query := `
		UPDATE treasury
		SET balance = balance - $1,
		    today_spent = today_spent + $1,
		    total_spent = total_spent + $1,
		    updated_at = NOW()
		WHERE id = 1 AND balance >= $1
		RETURNING ` + treasuryColumns

	t, err := scanTreasury(r.q.QueryRow(ctx, query, amount))
	if err == pgx.ErrNoRows {
		current, getErr := r.Get(ctx)
		if getErr != nil {
			return nil, false, getErr
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to spend %d from treasury: %w", amount, err)
	}

	return t, true, nil
}

// Refill atomically adds to the treasury balance
func (r *TreasuryRepository) Refill(ctx context.Context, amount int64) (*models.Treasury, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refill amount must be positive")
	}

	query := `
		UPDATE treasury
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = 1
		RETURNING ` + treasuryColumns

	t, err := scanTreasury(r.q.QueryRow(ctx, query, amount))
	if err != nil {
		return nil, fmt.Errorf("failed to refill treasury by %d: %w", amount, err)
	}

	return t, nil
}

// RecordRefund tracks amounts returned to users from the treasury
func (r *TreasuryRepository) RecordRefund(ctx context.Context, amount int64) error {
	query := `
		UPDATE treasury
		SET total_refunded = total_refunded + $1, updated_at = NOW()
		WHERE id = 1
	`

	if _, err := r.q.Exec(ctx, query, amount); err != nil {
		return fmt.Errorf("failed to record treasury refund of %d: %w", amount, err)
	}

	return nil
}

// ResetDailySpent zeroes today's spend counter independent of the balance
func (r *TreasuryRepository) ResetDailySpent(ctx context.Context) error {
	query := `
		UPDATE treasury
		SET today_spent = 0, last_reset_at = NOW(), updated_at = NOW()
		WHERE id = 1
	`

	if _, err := r.q.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to reset treasury daily spent: %w", err)
	}

	return nil
}
