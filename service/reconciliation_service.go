package service

import (
	"context"
	"fmt"

	"sweetbank/models"

	log "github.com/sirupsen/logrus"
)

type reconciliationService struct {
	uowFactory UnitOfWorkFactory
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(uowFactory UnitOfWorkFactory) ReconciliationService {
	return &reconciliationService{uowFactory: uowFactory}
}

// Run compares the three balance representations for every wallet:
// the canonical wallet balance, the signed sum of committed ledger
// transactions, and the legacy aggregate field on the user row.
// Disagreements are reported; in corrective mode the legacy field is
// rewritten from the wallet and the correction audited. The wallet
// itself is never rewritten here: a wallet/ledger mismatch means lost
// writes and needs a human.
func (s *reconciliationService) Run(ctx context.Context, correct bool) (*models.ReconciliationReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallets, err := uow.WalletRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.ReconciliationReport{UsersChecked: len(wallets)}

	for _, wallet := range wallets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ledgerSum, err := uow.TransactionRepository().SumByUser(ctx, wallet.UserID)
		if err != nil {
			return nil, err
		}

		user, err := uow.UserRepository().GetByID(ctx, wallet.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			log.WithField("userId", wallet.UserID).Error("Wallet exists for missing user")
			continue
		}

		if wallet.Balance == ledgerSum && wallet.Balance == user.Balance {
			continue
		}

		mismatch := models.ReconciliationMismatch{
			UserID:        wallet.UserID,
			WalletBalance: wallet.Balance,
			LegacyBalance: user.Balance,
			LedgerSum:     ledgerSum,
		}
		report.Mismatches = append(report.Mismatches, mismatch)

		log.WithFields(log.Fields{
			"userId":        wallet.UserID,
			"walletBalance": wallet.Balance,
			"legacyBalance": user.Balance,
			"ledgerSum":     ledgerSum,
		}).Warn("Balance representations disagree")

		if wallet.Balance != ledgerSum {
			continue
		}

		if correct {
			delta := wallet.Balance - user.Balance
			if err := uow.UserRepository().ApplyBalanceDelta(ctx, wallet.UserID, delta); err != nil {
				return nil, err
			}
			if err := uow.AuditLogRepository().Record(ctx, &models.AuditLog{
				Actor:  "system",
				Action: models.AuditActionReconcileCorrection,
				Before: map[string]any{"legacy_balance": user.Balance},
				After:  map[string]any{"legacy_balance": wallet.Balance},
				Reason: "legacy balance drifted from wallet",
			}); err != nil {
				return nil, err
			}
			report.Corrected++
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"usersChecked": report.UsersChecked,
		"mismatches":   len(report.Mismatches),
		"corrected":    report.Corrected,
	}).Info("Reconciliation run completed")

	return report, nil
}
