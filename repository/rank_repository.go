package repository

import (
	"context"
	"fmt"

	"sweetbank/database"
	"sweetbank/models"

	"github.com/jackc/pgx/v5"
)

// RankRepository implements the service.RankRepository interface
type RankRepository struct {
	q queryable
}

// NewRankRepository creates a new rank repository
func NewRankRepository(db *database.DB) *RankRepository {
	return &RankRepository{q: db.Pool}
}

// newRankRepositoryWithTx creates a new rank repository with a transaction
func newRankRepositoryWithTx(tx queryable) *RankRepository {
	return &RankRepository{q: tx}
}

// GetTiers returns all tiers ordered by min XP ascending
func (r *RankRepository) GetTiers(ctx context.Context) ([]*models.RankTier, error) {
	query := `
		SELECT id, name, min_xp, max_xp, unlocks
		FROM rank_tiers
		ORDER BY min_xp
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank tiers: %w", err)
	}
	defer rows.Close()

	var tiers []*models.RankTier
	for rows.Next() {
		var tier models.RankTier
		err := rows.Scan(&tier.ID, &tier.Name, &tier.MinXP, &tier.MaxXP, &tier.Unlocks)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rank tier: %w", err)
		}
		tiers = append(tiers, &tier)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rank tiers: %w", err)
	}

	return tiers, nil
}

// GetProgress retrieves a user's progression, nil if absent
func (r *RankRepository) GetProgress(ctx context.Context, userID int64) (*models.UserRankProgress, error) {
	query := `
		SELECT user_id, current_xp, weekly_xp, current_rank_id, week_start, updated_at
		FROM user_rank_progress
		WHERE user_id = $1
	`

	var p models.UserRankProgress
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.CurrentXP,
		&p.WeeklyXP,
		&p.CurrentRankID,
		&p.WeekStart,
		&p.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rank progress for user %d: %w", userID, err)
	}

	return &p, nil
}

// CreateProgress provisions progression for a user
func (r *RankRepository) CreateProgress(ctx context.Context, progress *models.UserRankProgress) error {
	query := `
		INSERT INTO user_rank_progress (user_id, current_xp, weekly_xp, current_rank_id, week_start)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		progress.UserID,
		progress.CurrentXP,
		progress.WeeklyXP,
		progress.CurrentRankID,
		progress.WeekStart,
	).Scan(&progress.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create rank progress for user %d: %w", progress.UserID, err)
	}

	return nil
}

// UpdateProgress persists XP totals, week window and current rank
func (r *RankRepository) UpdateProgress(ctx context.Context, progress *models.UserRankProgress) error {
	query := `
		UPDATE user_rank_progress
		SET current_xp = $1, weekly_xp = $2, current_rank_id = $3, week_start = $4, updated_at = NOW()
		WHERE user_id = $5
	`

	result, err := r.q.Exec(ctx, query,
		progress.CurrentXP,
		progress.WeeklyXP,
		progress.CurrentRankID,
		progress.WeekStart,
		progress.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rank progress for user %d: %w", progress.UserID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("rank progress for user %d not found", progress.UserID)
	}

	return nil
}

// HasBadge reports whether the user already holds the tier badge
func (r *RankRepository) HasBadge(ctx context.Context, userID int64, rankID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM rank_badges WHERE user_id = $1 AND rank_id = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userID, rankID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check badge for user %d rank %d: %w", userID, rankID, err)
	}

	return exists, nil
}

// GrantBadge grants a tier badge. The unique constraint backstops the
// existence check so a badge is never granted twice.
func (r *RankRepository) GrantBadge(ctx context.Context, userID int64, rankID int64) error {
	query := `
		INSERT INTO rank_badges (user_id, rank_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, rank_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, userID, rankID); err != nil {
		return fmt.Errorf("failed to grant badge for user %d rank %d: %w", userID, rankID, err)
	}

	return nil
}
