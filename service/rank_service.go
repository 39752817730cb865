package service

import (
	"context"
	"fmt"
	"time"

	"sweetbank/events"
	"sweetbank/models"

	log "github.com/sirupsen/logrus"
)

type rankService struct {
	uowFactory    UnitOfWorkFactory
	weeklyCeiling int64
	now           func() time.Time
}

// NewRankService creates a new rank service
func NewRankService(uowFactory UnitOfWorkFactory, weeklyCeiling int64) RankService {
	if weeklyCeiling <= 0 {
		weeklyCeiling = models.WeeklyXPCeiling
	}
	return &rankService{
		uowFactory:    uowFactory,
		weeklyCeiling: weeklyCeiling,
		now:           time.Now,
	}
}

// AwardXP accrues XP under the weekly ceiling and recomputes the tier.
// An award that would cross the ceiling is truncated to the remaining
// headroom; only a fully exhausted week awards zero.
func (s *rankService) AwardXP(ctx context.Context, userID int64, activity string, xpAmount int64) (*models.XPAwardResult, error) {
	if xpAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if activity == "" {
		return nil, &ValidationError{Field: "activity", Msg: "must not be empty"}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tiers, err := uow.RankRepository().GetTiers(ctx)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no rank tiers configured")
	}

	progress, err := uow.RankRepository().GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = &models.UserRankProgress{
			UserID:        userID,
			CurrentRankID: tiers[0].ID,
			WeekStart:     models.WeekStartUTC(s.now()),
		}
		if err := uow.RankRepository().CreateProgress(ctx, progress); err != nil {
			return nil, err
		}
	}

	weekStart := models.WeekStartUTC(s.now())
	if progress.WeekStart.Before(weekStart) {
		progress.WeeklyXP = 0
		progress.WeekStart = weekStart
	}

	headroom := s.weeklyCeiling - progress.WeeklyXP
	if headroom < 0 {
		headroom = 0
	}
	awarded := xpAmount
	if awarded > headroom {
		awarded = headroom
	}

	result := &models.XPAwardResult{
		XPAwarded:  awarded,
		TotalXP:    progress.CurrentXP + awarded,
		WeeklyXP:   progress.WeeklyXP + awarded,
		CapReached: progress.WeeklyXP+awarded >= s.weeklyCeiling,
	}

	if awarded == 0 {
		// ceiling already reached this week, nothing to persist
		result.TotalXP = progress.CurrentXP
		result.WeeklyXP = progress.WeeklyXP
		return result, nil
	}

	progress.CurrentXP += awarded
	progress.WeeklyXP += awarded

	oldRankID := progress.CurrentRankID
	newTier := tierFor(tiers, progress.CurrentXP)
	if newTier != nil && newTier.ID != oldRankID {
		progress.CurrentRankID = newTier.ID
		result.RankChanged = true
		result.NewRank = newTier
	}

	if err := uow.RankRepository().UpdateProgress(ctx, progress); err != nil {
		return nil, err
	}

	if result.RankChanged {
		has, err := uow.RankRepository().HasBadge(ctx, userID, newTier.ID)
		if err != nil {
			return nil, err
		}
		if !has {
			if err := uow.RankRepository().GrantBadge(ctx, userID, newTier.ID); err != nil {
				return nil, err
			}
		}

		if err := uow.NotificationRepository().Create(ctx, &models.Notification{
			UserID:  userID,
			Kind:    "rank_changed",
			Message: fmt.Sprintf("You reached rank %s", newTier.Name),
		}); err != nil {
			return nil, err
		}

		if err := uow.AuditLogRepository().Record(ctx, &models.AuditLog{
			Actor:  "system",
			Action: models.AuditActionRankChanged,
			Before: map[string]any{"rank_id": oldRankID},
			After:  map[string]any{"rank_id": newTier.ID, "total_xp": progress.CurrentXP},
			Reason: activity,
		}); err != nil {
			return nil, err
		}

		uow.EventBus().Publish(events.RankChangedEvent{
			UserID:   userID,
			OldRank:  oldRankID,
			NewRank:  newTier.ID,
			RankName: newTier.Name,
		})
	}

	uow.EventBus().Publish(events.XPAwardedEvent{
		UserID:     userID,
		Activity:   activity,
		XPAwarded:  awarded,
		TotalXP:    progress.CurrentXP,
		WeeklyXP:   progress.WeeklyXP,
		CapReached: result.CapReached,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userId":      userID,
		"activity":    activity,
		"xpAwarded":   awarded,
		"totalXp":     progress.CurrentXP,
		"weeklyXp":    progress.WeeklyXP,
		"rankChanged": result.RankChanged,
	}).Info("XP awarded")

	return result, nil
}

// tierFor returns the tier containing totalXP, preferring the greatest
// MinXP when ranges overlap
func tierFor(tiers []*models.RankTier, totalXP int64) *models.RankTier {
	var best *models.RankTier
	for _, t := range tiers {
		if t.Contains(totalXP) && (best == nil || t.MinXP > best.MinXP) {
			best = t
		}
	}
	return best
}
