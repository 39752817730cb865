package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sweetbank/events"
	"sweetbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingWithdrawal(id, userID, amount int64) *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		ID:            id,
		UserID:        userID,
		Amount:        amount,
		Method:        "usdt_trc20",
		WalletAddress: "TAddr000000000000000000000000000",
		Status:        models.WithdrawalStatusPending,
		RequestedAt:   time.Now(),
	}
}

func TestWithdrawalService_Request(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWithdrawalRepo := new(MockWithdrawalRepository)
	mockLedger := new(MockLedgerService)
	bus := &CapturingPublisher{}

	mockUoW.SetRepositories(nil, nil, nil, nil, mockWithdrawalRepo, nil, nil, nil, nil)
	mockUoW.SetEventBus(bus)

	svc := NewWithdrawalService(mockFactory, mockLedger)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWithdrawalRepo.On("Create", ctx, mock.MatchedBy(func(r *models.WithdrawalRequest) bool {
		return r.UserID == 5 && r.Amount == 700 && r.Method == "usdt_trc20"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.WithdrawalRequest).ID = 31
	}).Return(nil)

	mockLedger.On("ExecuteIn", ctx, mockUoW, mock.MatchedBy(func(p ExecuteParams) bool {
		return p.UserID == 5 &&
			p.Amount == 700 &&
			p.Type == models.TransactionTypeSpend &&
			p.Trigger == models.TriggerTreasuryWithdrawReq &&
			p.IdempotencyKey == "withdrawal:31:request"
	})).Return(&models.ExecuteResult{Success: true, TransactionID: 9, NewBalance: 1300}, nil)

	req, err := svc.Request(ctx, RequestWithdrawalParams{
		UserID:        5,
		Amount:        700,
		Method:        "usdt_trc20",
		WalletAddress: "TAddr000000000000000000000000000",
		ProcessingFee: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(31), req.ID)

	require.Len(t, bus.Events, 1)
	change, ok := bus.Events[0].(events.WithdrawalStateChangeEvent)
	require.True(t, ok)
	assert.Equal(t, models.WithdrawalStatusPending, change.NewStatus)

	mockWithdrawalRepo.AssertExpectations(t)
	mockLedger.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestWithdrawalService_Request_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewWithdrawalService(new(MockUnitOfWorkFactory), new(MockLedgerService))

	_, err := svc.Request(ctx, RequestWithdrawalParams{UserID: 5, Amount: 0, Method: "usdt_trc20", WalletAddress: "x"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Request(ctx, RequestWithdrawalParams{UserID: 5, Amount: 100, WalletAddress: "x"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Request(ctx, RequestWithdrawalParams{UserID: 5, Amount: 100, Method: "usdt_trc20"})
	assert.ErrorAs(t, err, &verr)
}

func TestWithdrawalService_Request_DeductionFailureAbortsRequest(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWithdrawalRepo := new(MockWithdrawalRepository)
	mockLedger := new(MockLedgerService)

	mockUoW.SetRepositories(nil, nil, nil, nil, mockWithdrawalRepo, nil, nil, nil, nil)

	svc := NewWithdrawalService(mockFactory, mockLedger)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWithdrawalRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.WithdrawalRequest).ID = 32
	}).Return(nil)
	mockLedger.On("ExecuteIn", ctx, mockUoW, mock.Anything).Return(nil, ErrInsufficientFunds)

	_, err := svc.Request(ctx, RequestWithdrawalParams{
		UserID:        5,
		Amount:        9999,
		Method:        "usdt_trc20",
		WalletAddress: "TAddr000000000000000000000000000",
	})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestWithdrawalService_Approve(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWithdrawalRepo := new(MockWithdrawalRepository)
	mockAuditRepo := new(MockAuditLogRepository)
	mockNotifRepo := new(MockNotificationRepository)
	bus := &CapturingPublisher{}

	mockUoW.SetRepositories(nil, nil, nil, nil, mockWithdrawalRepo, nil, nil, mockAuditRepo, mockNotifRepo)
	mockUoW.SetEventBus(bus)

	svc := NewWithdrawalService(mockFactory, new(MockLedgerService))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWithdrawalRepo.On("GetByIDForUpdate", ctx, int64(31)).Return(pendingWithdrawal(31, 5, 700), nil)
	mockWithdrawalRepo.On("MarkProcessed", ctx, int64(31), models.WithdrawalStatusApproved, "").Return(nil)
	mockAuditRepo.On("Record", ctx, mock.MatchedBy(func(a *models.AuditLog) bool {
		return a.Action == models.AuditActionWithdrawalApproved && a.Actor == "admin-1"
	})).Return(nil)
	mockNotifRepo.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.UserID == 5 && n.Kind == "withdrawal_approved"
	})).Return(nil)

	req, err := svc.Approve(ctx, 31, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusApproved, req.Status)
	require.Len(t, bus.Events, 1)

	mockWithdrawalRepo.AssertExpectations(t)
	mockAuditRepo.AssertExpectations(t)
	mockNotifRepo.AssertExpectations(t)
}

func TestWithdrawalService_Approve_NotPending(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWithdrawalRepo := new(MockWithdrawalRepository)

	mockUoW.SetRepositories(nil, nil, nil, nil, mockWithdrawalRepo, nil, nil, nil, nil)

	svc := NewWithdrawalService(mockFactory, new(MockLedgerService))

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	done := pendingWithdrawal(31, 5, 700)
	done.Status = models.WithdrawalStatusRejected
	mockWithdrawalRepo.On("GetByIDForUpdate", ctx, int64(31)).Return(done, nil)

	_, err := svc.Approve(ctx, 31, "admin-1")
	assert.ErrorIs(t, err, ErrWithdrawalNotPending)
	mockWithdrawalRepo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdrawalService_Reject_RefundsInSameUnit(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWithdrawalRepo := new(MockWithdrawalRepository)
	mockTreasuryRepo := new(MockTreasuryRepository)
	mockAuditRepo := new(MockAuditLogRepository)
	mockNotifRepo := new(MockNotificationRepository)
	mockLedger := new(MockLedgerService)
	bus := &CapturingPublisher{}

	mockUoW.SetRepositories(nil, nil, nil, nil, mockWithdrawalRepo, mockTreasuryRepo, nil, mockAuditRepo, mockNotifRepo)
	mockUoW.SetEventBus(bus)

	svc := NewWithdrawalService(mockFactory, mockLedger)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWithdrawalRepo.On("GetByIDForUpdate", ctx, int64(31)).Return(pendingWithdrawal(31, 5, 700), nil)
	mockWithdrawalRepo.On("MarkProcessed", ctx, int64(31), models.WithdrawalStatusRejected, "invalid address").Return(nil)
	mockLedger.On("ExecuteIn", ctx, mockUoW, mock.MatchedBy(func(p ExecuteParams) bool {
		return p.UserID == 5 &&
			p.Amount == 700 &&
			p.Type == models.TransactionTypeEarn &&
			p.Trigger == models.TriggerTreasuryWithdrawRejec &&
			p.IdempotencyKey == "withdrawal:31:refund" &&
			p.Actor == "admin-1"
	})).Return(&models.ExecuteResult{Success: true, TransactionID: 88, NewBalance: 2000}, nil)
	mockTreasuryRepo.On("RecordRefund", ctx, int64(700)).Return(nil)
	mockAuditRepo.On("Record", ctx, mock.MatchedBy(func(a *models.AuditLog) bool {
		return a.Action == models.AuditActionWithdrawalRejected && a.Reason == "invalid address"
	})).Return(nil)
	mockNotifRepo.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Kind == "withdrawal_rejected"
	})).Return(nil)

	req, err := svc.Reject(ctx, 31, "admin-1", "invalid address")

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, req.Status)
	assert.Equal(t, "invalid address", req.AdminNotes)

	require.Len(t, bus.Events, 1)
	change := bus.Events[0].(events.WithdrawalStateChangeEvent)
	assert.Equal(t, models.WithdrawalStatusRejected, change.NewStatus)

	mockLedger.AssertExpectations(t)
	mockTreasuryRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestWithdrawalService_Reject_RefundFailureBlocksRejection(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWithdrawalRepo := new(MockWithdrawalRepository)
	mockLedger := new(MockLedgerService)

	mockUoW.SetRepositories(nil, nil, nil, nil, mockWithdrawalRepo, nil, nil, nil, nil)

	svc := NewWithdrawalService(mockFactory, mockLedger)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWithdrawalRepo.On("GetByIDForUpdate", ctx, int64(31)).Return(pendingWithdrawal(31, 5, 700), nil)
	mockWithdrawalRepo.On("MarkProcessed", ctx, int64(31), models.WithdrawalStatusRejected, "fraud").Return(nil)

	refundErr := errors.New("journal write failed")
	mockLedger.On("ExecuteIn", ctx, mockUoW, mock.Anything).Return(nil, refundErr)

	_, err := svc.Reject(ctx, 31, "admin-1", "fraud")

	require.Error(t, err)
	assert.ErrorIs(t, err, refundErr)
	// Everything rolls back, nothing commits
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestWithdrawalService_Reject_NotPending(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWithdrawalRepo := new(MockWithdrawalRepository)
	mockLedger := new(MockLedgerService)

	mockUoW.SetRepositories(nil, nil, nil, nil, mockWithdrawalRepo, nil, nil, nil, nil)

	svc := NewWithdrawalService(mockFactory, mockLedger)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	approved := pendingWithdrawal(31, 5, 700)
	approved.Status = models.WithdrawalStatusApproved
	mockWithdrawalRepo.On("GetByIDForUpdate", ctx, int64(31)).Return(approved, nil)

	_, err := svc.Reject(ctx, 31, "admin-1", "whatever")
	assert.ErrorIs(t, err, ErrWithdrawalNotPending)
	mockLedger.AssertNotCalled(t, "ExecuteIn", mock.Anything, mock.Anything, mock.Anything)
}
