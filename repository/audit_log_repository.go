package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"sweetbank/database"
	"sweetbank/models"
)

// AuditLogRepository implements the service.AuditLogRepository interface
type AuditLogRepository struct {
	q queryable
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{q: db.Pool}
}

// newAuditLogRepositoryWithTx creates a new audit log repository with a transaction
func newAuditLogRepositoryWithTx(tx queryable) *AuditLogRepository {
	return &AuditLogRepository{q: tx}
}

// Record appends an audit log entry with before/after snapshots
func (r *AuditLogRepository) Record(ctx context.Context, entry *models.AuditLog) error {
	beforeJSON, err := json.Marshal(entry.Before)
	if err != nil {
		return fmt.Errorf("failed to marshal audit before snapshot: %w", err)
	}
	afterJSON, err := json.Marshal(entry.After)
	if err != nil {
		return fmt.Errorf("failed to marshal audit after snapshot: %w", err)
	}

	query := `
		INSERT INTO audit_logs (actor, action, before, after, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		entry.Actor,
		entry.Action,
		beforeJSON,
		afterJSON,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record audit log entry: %w", err)
	}

	return nil
}

// NotificationRepository implements the service.NotificationRepository interface
type NotificationRepository struct {
	q queryable
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{q: db.Pool}
}

// newNotificationRepositoryWithTx creates a new notification repository with a transaction
func newNotificationRepositoryWithTx(tx queryable) *NotificationRepository {
	return &NotificationRepository{q: tx}
}

// Create inserts a user-facing notification record
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, kind, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, n.UserID, n.Kind, n.Message).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification for user %d: %w", n.UserID, err)
	}

	return nil
}
