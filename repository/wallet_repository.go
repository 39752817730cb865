package repository

import (
	"context"
	"fmt"

	"sweetbank/database"
	"sweetbank/models"
	"sweetbank/service"

	"github.com/jackc/pgx/v5"
)

// WalletRepository implements the service.WalletRepository interface
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

// newWalletRepositoryWithTx creates a new wallet repository with a transaction
func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

const walletColumns = `user_id, balance, available_balance, status, version, created_at, updated_at`

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(
		&w.UserID,
		&w.Balance,
		&w.AvailableBalance,
		&w.Status,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByUserID retrieves a wallet by user ID, nil if absent
func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}

	return wallet, nil
}

// Create provisions a zero-balance wallet for the user.
// Concurrent first-time accesses are safe: the loser of the unique
// constraint race re-reads the winner's row.
func (r *WalletRepository) Create(ctx context.Context, userID int64) (*models.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id, balance, available_balance, status)
		VALUES ($1, 0, 0, 'active')
		RETURNING ` + walletColumns

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID))
	if err != nil {
		if isUniqueViolation(err) {
			return r.GetByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create wallet for user %d: %w", userID, err)
	}

	return wallet, nil
}

// ApplyDelta mutates balance and available balance under optimistic
// concurrency. The version predicate serializes concurrent writers; the
// table constraints reject negative balances.
func (r *WalletRepository) ApplyDelta(ctx context.Context, userID int64, delta int64, expectedVersion int64) (*models.Wallet, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $1,
		    available_balance = available_balance + $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $2 AND version = $3
		RETURNING ` + walletColumns

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, delta, userID, expectedVersion))
	if err == pgx.ErrNoRows {
		existing, getErr := r.GetByUserID(ctx, userID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("wallet for user %d not found", userID)
		}
		return nil, service.ErrVersionConflict
	}
	if err != nil {
		if isCheckViolation(err) {
			return nil, service.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to apply delta %d to wallet for user %d: %w", delta, userID, err)
	}

	return wallet, nil
}

// SetStatus freezes or unfreezes a wallet
func (r *WalletRepository) SetStatus(ctx context.Context, userID int64, status models.WalletStatus) error {
	query := `
		UPDATE wallets
		SET status = $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, status, userID)
	if err != nil {
		return fmt.Errorf("failed to set wallet status for user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wallet for user %d not found", userID)
	}

	return nil
}

// GetAll returns every wallet, for reconciliation sweeps
func (r *WalletRepository) GetAll(ctx context.Context) ([]*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY user_id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*models.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallets: %w", err)
	}

	return wallets, nil
}
