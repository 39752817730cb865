package service

import (
	"context"
	"fmt"

	"sweetbank/events"
	"sweetbank/models"

	log "github.com/sirupsen/logrus"
)

// defaultTreasuryLowThreshold triggers a low-balance event after a spend
const defaultTreasuryLowThreshold = 1000

type treasuryService struct {
	uowFactory   UnitOfWorkFactory
	lowThreshold int64
}

// NewTreasuryService creates a new treasury service. A non-positive
// lowThreshold falls back to the default.
func NewTreasuryService(uowFactory UnitOfWorkFactory, lowThreshold int64) TreasuryService {
	if lowThreshold <= 0 {
		lowThreshold = defaultTreasuryLowThreshold
	}
	return &treasuryService{
		uowFactory:   uowFactory,
		lowThreshold: lowThreshold,
	}
}

// Spend deducts from the treasury pool. The deduction is conditional on
// the balance covering the amount, so a depleted treasury rejects the
// spend instead of going negative.
func (s *treasuryService) Spend(ctx context.Context, amount int64, reason string) (*models.TreasurySpendResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	state, applied, err := uow.TreasuryRepository().Spend(ctx, amount)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.WithFields(log.Fields{
			"amount":  amount,
			"balance": state.Balance,
			"reason":  reason,
		}).Warn("Treasury spend rejected, insufficient balance")
		return &models.TreasurySpendResult{Success: false, Balance: state.Balance}, nil
	}

	if err := uow.AuditLogRepository().Record(ctx, &models.AuditLog{
		Actor:  "system",
		Action: models.AuditActionTreasurySpend,
		Before: map[string]any{"balance": state.Balance + amount},
		After:  map[string]any{"balance": state.Balance},
		Reason: reason,
	}); err != nil {
		return nil, err
	}

	if state.Balance < s.lowThreshold {
		uow.EventBus().Publish(events.TreasuryLowEvent{
			Balance:   state.Balance,
			Threshold: s.lowThreshold,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"amount":  amount,
		"balance": state.Balance,
		"reason":  reason,
	}).Info("Treasury spend applied")

	return &models.TreasurySpendResult{Success: true, Balance: state.Balance}, nil
}

// Refill adds funds to the pool and records before/after snapshots
func (s *treasuryService) Refill(ctx context.Context, amount int64, adminID string) (*models.Treasury, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	state, err := uow.TreasuryRepository().Refill(ctx, amount)
	if err != nil {
		return nil, err
	}

	if err := uow.AuditLogRepository().Record(ctx, &models.AuditLog{
		Actor:  adminID,
		Action: models.AuditActionTreasuryRefill,
		Before: map[string]any{"balance": state.Balance - amount},
		After:  map[string]any{"balance": state.Balance},
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"amount":  amount,
		"balance": state.Balance,
		"adminId": adminID,
	}).Info("Treasury refilled")

	return state, nil
}

// CanSpend reports whether the daily cap leaves room for the amount.
// The cap is advisory: callers skip automated awards when it is reached
// rather than failing user actions.
func (s *treasuryService) CanSpend(ctx context.Context, amount int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	state, err := uow.TreasuryRepository().Get(ctx)
	if err != nil {
		return false, err
	}

	return amount <= state.RemainingToday() && amount <= state.Balance, nil
}

// ResetDaily zeroes the daily spend counter, typically at midnight UTC
func (s *treasuryService) ResetDaily(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TreasuryRepository().ResetDailySpent(ctx); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info("Treasury daily spend counter reset")
	return nil
}
