package service

import (
	"context"
	"time"

	"sweetbank/events"
	"sweetbank/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ApplyBalanceDelta(ctx context.Context, userID int64, delta int64) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Create(ctx context.Context, userID int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyDelta(ctx context.Context, userID int64, delta int64, expectedVersion int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID, delta, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) SetStatus(ctx context.Context, userID int64, status models.WalletStatus) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

func (m *MockWalletRepository) GetAll(ctx context.Context) ([]*models.Wallet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wallet), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) CountByTrigger(ctx context.Context, userID int64, trigger models.Trigger) (int64, error) {
	args := m.Called(ctx, userID, trigger)
	return args.Get(0).(int64), args.Error(1)
}

// MockJournalEntryRepository is a mock implementation of JournalEntryRepository
type MockJournalEntryRepository struct {
	mock.Mock
}

func (m *MockJournalEntryRepository) Record(ctx context.Context, entry *models.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) GetByTransaction(ctx context.Context, transactionID int64) ([]*models.JournalEntry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.JournalEntry), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, req *models.WithdrawalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) MarkProcessed(ctx context.Context, id int64, status models.WithdrawalStatus, adminNotes string) error {
	args := m.Called(ctx, id, status, adminNotes)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) ListPending(ctx context.Context) ([]*models.WithdrawalRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WithdrawalRequest), args.Error(1)
}

// MockTreasuryRepository is a mock implementation of TreasuryRepository
type MockTreasuryRepository struct {
	mock.Mock
}

func (m *MockTreasuryRepository) Get(ctx context.Context) (*models.Treasury, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Treasury), args.Error(1)
}

func (m *MockTreasuryRepository) Spend(ctx context.Context, amount int64) (*models.Treasury, bool, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Treasury), args.Bool(1), args.Error(2)
}

func (m *MockTreasuryRepository) Refill(ctx context.Context, amount int64) (*models.Treasury, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Treasury), args.Error(1)
}

func (m *MockTreasuryRepository) RecordRefund(ctx context.Context, amount int64) error {
	args := m.Called(ctx, amount)
	return args.Error(0)
}

func (m *MockTreasuryRepository) ResetDailySpent(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRankRepository is a mock implementation of RankRepository
type MockRankRepository struct {
	mock.Mock
}

func (m *MockRankRepository) GetTiers(ctx context.Context) ([]*models.RankTier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RankTier), args.Error(1)
}

func (m *MockRankRepository) GetProgress(ctx context.Context, userID int64) (*models.UserRankProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRankProgress), args.Error(1)
}

func (m *MockRankRepository) CreateProgress(ctx context.Context, progress *models.UserRankProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockRankRepository) UpdateProgress(ctx context.Context, progress *models.UserRankProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockRankRepository) HasBadge(ctx context.Context, userID int64, rankID int64) (bool, error) {
	args := m.Called(ctx, userID, rankID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRankRepository) GrantBadge(ctx context.Context, userID int64, rankID int64) error {
	args := m.Called(ctx, userID, rankID)
	return args.Error(0)
}

// MockAuditLogRepository is a mock implementation of AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Record(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Execute(ctx context.Context, params ExecuteParams) (*models.ExecuteResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExecuteResult), args.Error(1)
}

func (m *MockLedgerService) ExecuteIn(ctx context.Context, uow UnitOfWork, params ExecuteParams) (*models.ExecuteResult, error) {
	args := m.Called(ctx, uow, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExecuteResult), args.Error(1)
}

// MockTreasuryService is a mock implementation of TreasuryService
type MockTreasuryService struct {
	mock.Mock
}

func (m *MockTreasuryService) Spend(ctx context.Context, amount int64, reason string) (*models.TreasurySpendResult, error) {
	args := m.Called(ctx, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TreasurySpendResult), args.Error(1)
}

func (m *MockTreasuryService) Refill(ctx context.Context, amount int64, adminID string) (*models.Treasury, error) {
	args := m.Called(ctx, amount, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Treasury), args.Error(1)
}

func (m *MockTreasuryService) CanSpend(ctx context.Context, amount int64) (bool, error) {
	args := m.Called(ctx, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockTreasuryService) ResetDaily(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPriceSource is a mock implementation of PriceSource
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) Quote(ctx context.Context, itemID int64) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// CapturingPublisher collects published events for assertions
type CapturingPublisher struct {
	Events []events.Event
}

func (p *CapturingPublisher) Publish(event events.Event) {
	p.Events = append(p.Events, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Repository getters return the instances set via SetRepositories.
type MockUnitOfWork struct {
	mock.Mock

	users         UserRepository
	wallets       WalletRepository
	transactions  TransactionRepository
	journal       JournalEntryRepository
	withdrawals   WithdrawalRepository
	treasury      TreasuryRepository
	ranks         RankRepository
	audit         AuditLogRepository
	notifications NotificationRepository
	eventBus      EventPublisher
}

// SetRepositories wires the mock repositories returned by the getters.
// Nil slots fall back to fresh zero-expectation mocks so tests only
// configure the repositories they touch.
func (m *MockUnitOfWork) SetRepositories(
	users UserRepository,
	wallets WalletRepository,
	transactions TransactionRepository,
	journal JournalEntryRepository,
	withdrawals WithdrawalRepository,
	treasury TreasuryRepository,
	ranks RankRepository,
	audit AuditLogRepository,
	notifications NotificationRepository,
) {
	m.users = users
	m.wallets = wallets
	m.transactions = transactions
	m.journal = journal
	m.withdrawals = withdrawals
	m.treasury = treasury
	m.ranks = ranks
	m.audit = audit
	m.notifications = notifications
}

// SetEventBus wires the publisher returned by EventBus
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	if m.users == nil {
		m.users = new(MockUserRepository)
	}
	return m.users
}

func (m *MockUnitOfWork) WalletRepository() WalletRepository {
	if m.wallets == nil {
		m.wallets = new(MockWalletRepository)
	}
	return m.wallets
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	if m.transactions == nil {
		m.transactions = new(MockTransactionRepository)
	}
	return m.transactions
}

func (m *MockUnitOfWork) JournalEntryRepository() JournalEntryRepository {
	if m.journal == nil {
		m.journal = new(MockJournalEntryRepository)
	}
	return m.journal
}

func (m *MockUnitOfWork) WithdrawalRepository() WithdrawalRepository {
	if m.withdrawals == nil {
		m.withdrawals = new(MockWithdrawalRepository)
	}
	return m.withdrawals
}

func (m *MockUnitOfWork) TreasuryRepository() TreasuryRepository {
	if m.treasury == nil {
		m.treasury = new(MockTreasuryRepository)
	}
	return m.treasury
}

func (m *MockUnitOfWork) RankRepository() RankRepository {
	if m.ranks == nil {
		m.ranks = new(MockRankRepository)
	}
	return m.ranks
}

func (m *MockUnitOfWork) AuditLogRepository() AuditLogRepository {
	if m.audit == nil {
		m.audit = new(MockAuditLogRepository)
	}
	return m.audit
}

func (m *MockUnitOfWork) NotificationRepository() NotificationRepository {
	if m.notifications == nil {
		m.notifications = new(MockNotificationRepository)
	}
	return m.notifications
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		m.eventBus = &CapturingPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
