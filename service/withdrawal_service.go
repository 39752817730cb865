package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sweetbank/events"
	"sweetbank/models"

	log "github.com/sirupsen/logrus"
)

type withdrawalService struct {
	uowFactory UnitOfWorkFactory
	ledger     LedgerService
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(uowFactory UnitOfWorkFactory, ledger LedgerService) WithdrawalService {
	return &withdrawalService{
		uowFactory: uowFactory,
		ledger:     ledger,
	}
}

// Request deducts the amount from the wallet immediately and creates the
// request in pending state. Deduction and request creation share one
// atomic unit: a failure of either leaves no trace of the other.
func (s *withdrawalService) Request(ctx context.Context, params RequestWithdrawalParams) (*models.WithdrawalRequest, error) {
	if params.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if params.Method == "" {
		return nil, &ValidationError{Field: "method", Msg: "must not be empty"}
	}
	if params.WalletAddress == "" {
		return nil, &ValidationError{Field: "walletAddress", Msg: "must not be empty"}
	}

	var req *models.WithdrawalRequest
	err := s.withConflictRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		req = &models.WithdrawalRequest{
			UserID:        params.UserID,
			Amount:        params.Amount,
			Method:        params.Method,
			WalletAddress: params.WalletAddress,
			ProcessingFee: params.ProcessingFee,
		}
		if err := uow.WithdrawalRepository().Create(ctx, req); err != nil {
			return err
		}

		_, err := s.ledger.ExecuteIn(ctx, uow, ExecuteParams{
			UserID:         params.UserID,
			Amount:         params.Amount,
			Type:           models.TransactionTypeSpend,
			Trigger:        models.TriggerTreasuryWithdrawReq,
			Channel:        models.ChannelTreasury,
			Description:    fmt.Sprintf("withdrawal request #%d", req.ID),
			IdempotencyKey: withdrawalRequestKey(req.ID),
			Metadata: models.WithdrawalMeta{
				WithdrawalID:  req.ID,
				Method:        params.Method,
				WalletAddress: params.WalletAddress,
				ProcessingFee: params.ProcessingFee,
			},
		})
		if err != nil {
			return err
		}

		uow.EventBus().Publish(events.WithdrawalStateChangeEvent{
			WithdrawalID: req.ID,
			UserID:       params.UserID,
			Amount:       params.Amount,
			NewStatus:    models.WithdrawalStatusPending,
		})

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userId":       params.UserID,
		"withdrawalId": req.ID,
		"amount":       params.Amount,
		"method":       params.Method,
	}).Info("Withdrawal requested")

	return req, nil
}

// Approve settles a pending request. Funds already left the wallet at
// request time, so approval mutates no balances.
func (s *withdrawalService) Approve(ctx context.Context, id int64, adminID string) (*models.WithdrawalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	req, err := uow.WithdrawalRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("withdrawal request %d not found", id)
	}
	if req.Status != models.WithdrawalStatusPending {
		return nil, ErrWithdrawalNotPending
	}

	if err := uow.WithdrawalRepository().MarkProcessed(ctx, id, models.WithdrawalStatusApproved, ""); err != nil {
		return nil, err
	}

	if err := uow.AuditLogRepository().Record(ctx, &models.AuditLog{
		Actor:  adminID,
		Action: models.AuditActionWithdrawalApproved,
		Before: map[string]any{"status": models.WithdrawalStatusPending},
		After:  map[string]any{"status": models.WithdrawalStatusApproved},
	}); err != nil {
		return nil, err
	}

	if err := uow.NotificationRepository().Create(ctx, &models.Notification{
		UserID:  req.UserID,
		Kind:    "withdrawal_approved",
		Message: fmt.Sprintf("Your withdrawal of %d has been approved", req.Amount),
	}); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.WithdrawalStateChangeEvent{
		WithdrawalID: id,
		UserID:       req.UserID,
		Amount:       req.Amount,
		OldStatus:    models.WithdrawalStatusPending,
		NewStatus:    models.WithdrawalStatusApproved,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"withdrawalId": id,
		"adminId":      adminID,
	}).Info("Withdrawal approved")

	req.Status = models.WithdrawalStatusApproved
	return req, nil
}

// Reject closes a pending request and refunds the original deduction.
// The refund and the status transition share one atomic unit: if the
// refund cannot be applied the request stays pending and the admin sees
// the error.
func (s *withdrawalService) Reject(ctx context.Context, id int64, adminID string, reason string) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := s.withConflictRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		req, err = uow.WithdrawalRepository().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("withdrawal request %d not found", id)
		}
		if req.Status != models.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}

		if err := uow.WithdrawalRepository().MarkProcessed(ctx, id, models.WithdrawalStatusRejected, reason); err != nil {
			return err
		}

		// The idempotency key is scoped to the withdrawal so a retried
		// rejection can never double-refund
		refund, err := s.ledger.ExecuteIn(ctx, uow, ExecuteParams{
			UserID:         req.UserID,
			Amount:         req.Amount,
			Type:           models.TransactionTypeEarn,
			Trigger:        models.TriggerTreasuryWithdrawRejec,
			Channel:        models.ChannelTreasury,
			Description:    fmt.Sprintf("refund for rejected withdrawal #%d", id),
			IdempotencyKey: withdrawalRefundKey(id),
			Actor:          adminID,
			Metadata: models.WithdrawalMeta{
				WithdrawalID:  id,
				Method:        req.Method,
				WalletAddress: req.WalletAddress,
				ProcessingFee: req.ProcessingFee,
			},
		})
		if err != nil {
			return fmt.Errorf("refund for withdrawal %d failed: %w", id, err)
		}

		if err := uow.TreasuryRepository().RecordRefund(ctx, req.Amount); err != nil {
			return err
		}

		if err := uow.AuditLogRepository().Record(ctx, &models.AuditLog{
			Actor:  adminID,
			Action: models.AuditActionWithdrawalRejected,
			Before: map[string]any{"status": models.WithdrawalStatusPending},
			After:  map[string]any{"status": models.WithdrawalStatusRejected, "refund_transaction_id": refund.TransactionID},
			Reason: reason,
		}); err != nil {
			return err
		}

		if err := uow.NotificationRepository().Create(ctx, &models.Notification{
			UserID:  req.UserID,
			Kind:    "withdrawal_rejected",
			Message: fmt.Sprintf("Your withdrawal of %d was rejected: %s", req.Amount, reason),
		}); err != nil {
			return err
		}

		uow.EventBus().Publish(events.WithdrawalStateChangeEvent{
			WithdrawalID: id,
			UserID:       req.UserID,
			Amount:       req.Amount,
			OldStatus:    models.WithdrawalStatusPending,
			NewStatus:    models.WithdrawalStatusRejected,
		})

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawalId": id,
		"adminId":      adminID,
		"reason":       reason,
	}).Info("Withdrawal rejected and refunded")

	req.Status = models.WithdrawalStatusRejected
	req.AdminNotes = reason
	return req, nil
}

// withConflictRetry re-runs fn when the wallet CAS loses a race
func (s *withdrawalService) withConflictRetry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, ErrVersionConflict) {
			return err
		}
		if attempt >= maxVersionRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(versionRetryBackoff[attempt]):
		}
	}
}

func withdrawalRequestKey(id int64) string {
	return fmt.Sprintf("withdrawal:%d:request", id)
}

func withdrawalRefundKey(id int64) string {
	return fmt.Sprintf("withdrawal:%d:refund", id)
}
