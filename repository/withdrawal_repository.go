package repository

import (
	"context"
	"fmt"

	"sweetbank/database"
	"sweetbank/models"
	"sweetbank/service"

	"github.com/jackc/pgx/v5"
)

// WithdrawalRepository implements the service.WithdrawalRepository interface
type WithdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

// newWithdrawalRepositoryWithTx creates a new withdrawal repository with a transaction
func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `id, user_id, amount, method, wallet_address, processing_fee, status, admin_notes, requested_at, processed_at`

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.Amount,
		&req.Method,
		&req.WalletAddress,
		&req.ProcessingFee,
		&req.Status,
		&req.AdminNotes,
		&req.RequestedAt,
		&req.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a pending request and fills ID and RequestedAt
func (r *WithdrawalRepository) Create(ctx context.Context, req *models.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests
		(user_id, amount, method, wallet_address, processing_fee, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, status, requested_at
	`

	err := r.q.QueryRow(ctx, query,
		req.UserID,
		req.Amount,
		req.Method,
		req.WalletAddress,
		req.ProcessingFee,
	).Scan(&req.ID, &req.Status, &req.RequestedAt)

	if err != nil {
		return fmt.Errorf("failed to create withdrawal request for user %d: %w", req.UserID, err)
	}

	return nil
}

// GetByID retrieves a request, nil if absent
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	req, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request %d: %w", id, err)
	}

	return req, nil
}

// GetByIDForUpdate retrieves a request with a row lock, serializing
// concurrent terminal transitions on the same request
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`

	req, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock withdrawal request %d: %w", id, err)
	}

	return req, nil
}

// MarkProcessed transitions a pending request to a terminal status.
// The status predicate guarantees exactly one terminal transition.
func (r *WithdrawalRepository) MarkProcessed(ctx context.Context, id int64, status models.WithdrawalStatus, adminNotes string) error {
	query := `
		UPDATE withdrawal_requests
		SET status = $1, admin_notes = $2, processed_at = NOW()
		WHERE id = $3 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, status, adminNotes, id)
	if err != nil {
		return fmt.Errorf("failed to mark withdrawal request %d as %s: %w", id, status, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrWithdrawalNotPending
	}

	return nil
}

// ListPending returns all pending requests, oldest first
func (r *WithdrawalRepository) ListPending(ctx context.Context) ([]*models.WithdrawalRequest, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE status = 'pending'
		ORDER BY requested_at
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawal requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.WithdrawalRequest
	for rows.Next() {
		req, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawal requests: %w", err)
	}

	return reqs, nil
}
