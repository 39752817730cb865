package service

import (
	"context"
	"testing"

	"sweetbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReconciliationHarness() (*MockUnitOfWork, *MockUserRepository, *MockWalletRepository, *MockTransactionRepository, *MockAuditLogRepository, ReconciliationService) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockWalletRepo := new(MockWalletRepository)
	mockTxnRepo := new(MockTransactionRepository)
	mockAuditRepo := new(MockAuditLogRepository)

	mockUoW.SetRepositories(mockUserRepo, mockWalletRepo, mockTxnRepo, nil, nil, nil, nil, mockAuditRepo, nil)
	mockFactory.On("Create").Return(mockUoW)

	return mockUoW, mockUserRepo, mockWalletRepo, mockTxnRepo, mockAuditRepo, NewReconciliationService(mockFactory)
}

func TestReconciliationService_Run_AllConsistent(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockUserRepo, mockWalletRepo, mockTxnRepo, _, svc := newReconciliationHarness()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWalletRepo.On("GetAll", ctx).Return([]*models.Wallet{
		activeWallet(1, 300, 1),
		activeWallet(2, 0, 1),
	}, nil)
	mockTxnRepo.On("SumByUser", ctx, int64(1)).Return(int64(300), nil)
	mockTxnRepo.On("SumByUser", ctx, int64(2)).Return(int64(0), nil)
	mockUserRepo.On("GetByID", ctx, int64(1)).Return(&models.User{ID: 1, Balance: 300}, nil)
	mockUserRepo.On("GetByID", ctx, int64(2)).Return(&models.User{ID: 2, Balance: 0}, nil)

	report, err := svc.Run(ctx, false)

	require.NoError(t, err)
	assert.Equal(t, 2, report.UsersChecked)
	assert.Empty(t, report.Mismatches)
	assert.Equal(t, 0, report.Corrected)
}

func TestReconciliationService_Run_ReportsLegacyDrift(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockUserRepo, mockWalletRepo, mockTxnRepo, mockAuditRepo, svc := newReconciliationHarness()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// Wallet and ledger agree at 500; the legacy field lags at 420
	mockWalletRepo.On("GetAll", ctx).Return([]*models.Wallet{activeWallet(1, 500, 1)}, nil)
	mockTxnRepo.On("SumByUser", ctx, int64(1)).Return(int64(500), nil)
	mockUserRepo.On("GetByID", ctx, int64(1)).Return(&models.User{ID: 1, Balance: 420}, nil)

	report, err := svc.Run(ctx, false)

	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	m := report.Mismatches[0]
	assert.Equal(t, int64(500), m.WalletBalance)
	assert.Equal(t, int64(420), m.LegacyBalance)
	assert.Equal(t, int64(500), m.LedgerSum)

	// Diagnostic run never writes
	assert.Equal(t, 0, report.Corrected)
	mockUserRepo.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything)
	mockAuditRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestReconciliationService_Run_CorrectsLegacyDrift(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockUserRepo, mockWalletRepo, mockTxnRepo, mockAuditRepo, svc := newReconciliationHarness()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWalletRepo.On("GetAll", ctx).Return([]*models.Wallet{activeWallet(1, 500, 1)}, nil)
	mockTxnRepo.On("SumByUser", ctx, int64(1)).Return(int64(500), nil)
	mockUserRepo.On("GetByID", ctx, int64(1)).Return(&models.User{ID: 1, Balance: 420}, nil)
	mockUserRepo.On("ApplyBalanceDelta", ctx, int64(1), int64(80)).Return(nil)
	mockAuditRepo.On("Record", ctx, mock.MatchedBy(func(a *models.AuditLog) bool {
		return a.Action == models.AuditActionReconcileCorrection &&
			a.Before["legacy_balance"] == int64(420) &&
			a.After["legacy_balance"] == int64(500)
	})).Return(nil)

	report, err := svc.Run(ctx, true)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Corrected)
	mockUserRepo.AssertExpectations(t)
	mockAuditRepo.AssertExpectations(t)
}

func TestReconciliationService_Run_NeverRewritesWallet(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockUserRepo, mockWalletRepo, mockTxnRepo, mockAuditRepo, svc := newReconciliationHarness()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// Wallet disagrees with the ledger sum: reported but untouched even
	// in corrective mode
	mockWalletRepo.On("GetAll", ctx).Return([]*models.Wallet{activeWallet(1, 500, 1)}, nil)
	mockTxnRepo.On("SumByUser", ctx, int64(1)).Return(int64(470), nil)
	mockUserRepo.On("GetByID", ctx, int64(1)).Return(&models.User{ID: 1, Balance: 500}, nil)

	report, err := svc.Run(ctx, true)

	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, 0, report.Corrected)
	mockUserRepo.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything)
	mockAuditRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestReconciliationService_Run_SkipsOrphanWallet(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockUserRepo, mockWalletRepo, mockTxnRepo, _, svc := newReconciliationHarness()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWalletRepo.On("GetAll", ctx).Return([]*models.Wallet{
		activeWallet(1, 500, 1),
		activeWallet(2, 100, 1),
	}, nil)
	mockTxnRepo.On("SumByUser", ctx, int64(1)).Return(int64(500), nil)
	mockTxnRepo.On("SumByUser", ctx, int64(2)).Return(int64(100), nil)
	mockUserRepo.On("GetByID", ctx, int64(1)).Return(nil, nil)
	mockUserRepo.On("GetByID", ctx, int64(2)).Return(&models.User{ID: 2, Balance: 100}, nil)

	report, err := svc.Run(ctx, false)

	require.NoError(t, err)
	assert.Equal(t, 2, report.UsersChecked)
	assert.Empty(t, report.Mismatches)
}

func TestReconciliationService_Run_ContextCancellation(t *testing.T) {
	mockUoW, _, mockWalletRepo, _, _, svc := newReconciliationHarness()

	ctx, cancel := context.WithCancel(context.Background())

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockWalletRepo.On("GetAll", ctx).Return([]*models.Wallet{activeWallet(1, 500, 1)}, nil).Run(func(mock.Arguments) {
		cancel()
	})

	_, err := svc.Run(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	mockUoW.AssertNotCalled(t, "Commit")
}
