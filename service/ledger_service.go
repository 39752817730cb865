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

// maxVersionRetries bounds the optimistic-concurrency retry loop
const maxVersionRetries = 3

// versionRetryBackoff is the wait before each retry attempt
var versionRetryBackoff = []time.Duration{
	10 * time.Millisecond,
	50 * time.Millisecond,
	200 * time.Millisecond,
}

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

// Execute validates, deduplicates and atomically applies a transaction.
// Callers always pass a positive magnitude; this service is the sole
// authority on sign application. Version conflicts are retried with
// bounded backoff before surfacing.
func (s *ledgerService) Execute(ctx context.Context, params ExecuteParams) (*models.ExecuteResult, error) {
	signed, err := signAmount(params.Type, params.Amount)
	if err != nil {
		return nil, err
	}
	if params.Trigger == "" {
		return nil, &ValidationError{Field: "trigger", Msg: "must not be empty"}
	}
	if params.Channel == "" {
		return nil, &ValidationError{Field: "channel", Msg: "must not be empty"}
	}

	for attempt := 0; ; attempt++ {
		result, err := s.executeOnce(ctx, params, signed)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// Lost the insert race to a concurrent call with the same key;
			// the winner's transaction is the authoritative result
			return s.lookupPrior(ctx, params.IdempotencyKey)
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		if attempt >= maxVersionRetries {
			return nil, fmt.Errorf("wallet contention for user %d persisted after %d attempts: %w",
				params.UserID, maxVersionRetries, ErrVersionConflict)
		}

		log.WithFields(log.Fields{
			"userId":  params.UserID,
			"trigger": params.Trigger,
			"attempt": attempt + 1,
		}).Debug("Retrying ledger execution after version conflict")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(versionRetryBackoff[attempt]):
		}
	}
}

// signAmount applies the sign dictated by the transaction type to a
// positive magnitude. Rejecting pre-signed or non-positive amounts here
// closes off the wrong-sign defect class at the single entry point.
func signAmount(txType models.TransactionType, magnitude int64) (int64, error) {
	if magnitude <= 0 {
		return 0, ErrInvalidAmount
	}
	switch txType {
	case models.TransactionTypeEarn, models.TransactionTypeRecharge:
		return magnitude, nil
	case models.TransactionTypeSpend:
		return -magnitude, nil
	default:
		return 0, &ValidationError{Field: "type", Msg: fmt.Sprintf("unknown transaction type %q", txType)}
	}
}

func (s *ledgerService) executeOnce(ctx context.Context, params ExecuteParams, signed int64) (*models.ExecuteResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	result, err := s.apply(ctx, uow, params, signed)
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		// Nothing was written; release the transaction without committing
		return result, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userId":        params.UserID,
		"transactionId": result.TransactionID,
		"type":          params.Type,
		"trigger":       params.Trigger,
		"amount":        signed,
		"newBalance":    result.NewBalance,
	}).Info("Ledger transaction executed")

	return result, nil
}

// ExecuteIn applies a transaction inside the caller's unit of work.
// Validation and sign application are identical to Execute; commit,
// rollback and conflict retries belong to the caller.
func (s *ledgerService) ExecuteIn(ctx context.Context, uow UnitOfWork, params ExecuteParams) (*models.ExecuteResult, error) {
	signed, err := signAmount(params.Type, params.Amount)
	if err != nil {
		return nil, err
	}
	if params.Trigger == "" {
		return nil, &ValidationError{Field: "trigger", Msg: "must not be empty"}
	}
	if params.Channel == "" {
		return nil, &ValidationError{Field: "channel", Msg: "must not be empty"}
	}
	return s.apply(ctx, uow, params, signed)
}

func (s *ledgerService) apply(ctx context.Context, uow UnitOfWork, params ExecuteParams, signed int64) (*models.ExecuteResult, error) {
	// Fast path for retried requests; the unique index below closes the
	// remaining check-then-insert race
	if params.IdempotencyKey != "" {
		prior, err := uow.TransactionRepository().GetByIdempotencyKey(ctx, params.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if prior != nil {
			return s.duplicateResult(ctx, uow, prior)
		}
	}

	user, err := uow.UserRepository().GetByID(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	wallet, err := uow.WalletRepository().GetByUserID(ctx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		wallet, err = uow.WalletRepository().Create(ctx, params.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to provision wallet: %w", err)
		}
		uow.EventBus().Publish(events.WalletCreatedEvent{UserID: params.UserID})
	}

	if wallet.IsFrozen() {
		return nil, ErrWalletFrozen
	}
	if signed < 0 && wallet.AvailableBalance < -signed {
		return nil, fmt.Errorf("user %d has %d available, needs %d: %w",
			params.UserID, wallet.AvailableBalance, -signed, ErrInsufficientFunds)
	}

	updated, err := uow.WalletRepository().ApplyDelta(ctx, params.UserID, signed, wallet.Version)
	if err != nil {
		return nil, err
	}

	// Legacy aggregate field moves in lockstep with the canonical wallet
	if err := uow.UserRepository().ApplyBalanceDelta(ctx, params.UserID, signed); err != nil {
		return nil, fmt.Errorf("failed to update legacy balance: %w", err)
	}

	txn := &models.Transaction{
		UserID:      params.UserID,
		Type:        params.Type,
		Amount:      signed,
		Status:      models.TransactionStatusCompleted,
		Channel:     params.Channel,
		Trigger:     params.Trigger,
		Description: params.Description,
		Metadata:    params.Metadata,
	}
	if params.IdempotencyKey != "" {
		key := params.IdempotencyKey
		txn.IdempotencyKey = &key
	}

	if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
		return nil, err
	}

	entry := &models.JournalEntry{
		TransactionID: txn.ID,
		UserID:        params.UserID,
		Amount:        signed,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  updated.Balance,
	}
	if err := uow.JournalEntryRepository().Record(ctx, entry); err != nil {
		return nil, err
	}

	actor := params.Actor
	if actor == "" {
		actor = "system"
	}
	audit := &models.AuditLog{
		Actor:  actor,
		Action: models.AuditActionTransactionExecuted,
		Before: map[string]any{"balance": wallet.Balance},
		After:  map[string]any{"balance": updated.Balance},
		Reason: params.Description,
	}
	if err := uow.AuditLogRepository().Record(ctx, audit); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.BalanceChangedEvent{
		UserID:          params.UserID,
		OldBalance:      wallet.Balance,
		NewBalance:      updated.Balance,
		ChangeAmount:    signed,
		TransactionID:   txn.ID,
		TransactionType: params.Type,
		Trigger:         params.Trigger,
	})

	return &models.ExecuteResult{
		Success:       true,
		TransactionID: txn.ID,
		NewBalance:    updated.Balance,
	}, nil
}

// duplicateResult rebuilds the prior outcome from the transaction's journal
// entry. No balance mutation happens on the duplicate path.
func (s *ledgerService) duplicateResult(ctx context.Context, uow UnitOfWork, prior *models.Transaction) (*models.ExecuteResult, error) {
	entries, err := uow.JournalEntryRepository().GetByTransaction(ctx, prior.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal for duplicate transaction %d: %w", prior.ID, err)
	}

	result := &models.ExecuteResult{
		Success:       true,
		TransactionID: prior.ID,
		Duplicate:     true,
	}
	if len(entries) > 0 {
		result.NewBalance = entries[len(entries)-1].BalanceAfter
	}

	log.WithFields(log.Fields{
		"userId":        prior.UserID,
		"transactionId": prior.ID,
	}).Info("Duplicate idempotency key, returning prior result")

	return result, nil
}

// lookupPrior resolves the winning transaction after losing an insert race
func (s *ledgerService) lookupPrior(ctx context.Context, key string) (*models.ExecuteResult, error) {
	if key == "" {
		// A duplicate without a key means two identical inserts collided on
		// something else entirely; surface it
		return nil, ErrDuplicateIdempotencyKey
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	prior, err := uow.TransactionRepository().GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up prior transaction: %w", err)
	}
	if prior == nil {
		return nil, fmt.Errorf("duplicate idempotency key %q but prior transaction not found", key)
	}

	return s.duplicateResult(ctx, uow, prior)
}
