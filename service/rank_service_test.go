package service

import (
	"context"
	"testing"
	"time"

	"sweetbank/events"
	"sweetbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testTiers() []*models.RankTier {
	return []*models.RankTier{
		{ID: 1, Name: "Bronze", MinXP: 0, MaxXP: 500},
		{ID: 2, Name: "Silver", MinXP: 500, MaxXP: 2000},
		{ID: 3, Name: "Gold", MinXP: 2000, MaxXP: 1 << 40},
	}
}

// Wednesday inside the week starting Monday 2025-06-02
var rankTestNow = time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC)

func newRankHarness(t *testing.T) (*MockUnitOfWork, *MockRankRepository, *MockNotificationRepository, *MockAuditLogRepository, *CapturingPublisher, *rankService) {
	t.Helper()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockRankRepo := new(MockRankRepository)
	mockNotifRepo := new(MockNotificationRepository)
	mockAuditRepo := new(MockAuditLogRepository)
	bus := &CapturingPublisher{}

	mockUoW.SetRepositories(nil, nil, nil, nil, nil, nil, mockRankRepo, mockAuditRepo, mockNotifRepo)
	mockUoW.SetEventBus(bus)
	mockFactory.On("Create").Return(mockUoW)

	svc := NewRankService(mockFactory, 0).(*rankService)
	svc.now = func() time.Time { return rankTestNow }

	return mockUoW, mockRankRepo, mockNotifRepo, mockAuditRepo, bus, svc
}

func currentProgress(userID, currentXP, weeklyXP, rankID int64) *models.UserRankProgress {
	return &models.UserRankProgress{
		UserID:        userID,
		CurrentXP:     currentXP,
		WeeklyXP:      weeklyXP,
		CurrentRankID: rankID,
		WeekStart:     models.WeekStartUTC(rankTestNow),
	}
}

func TestRankService_AwardXP(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockRankRepo, _, _, bus, svc := newRankHarness(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRankRepo.On("GetTiers", ctx).Return(testTiers(), nil)
	mockRankRepo.On("GetProgress", ctx, int64(5)).Return(currentProgress(5, 100, 200, 1), nil)
	mockRankRepo.On("UpdateProgress", ctx, mock.MatchedBy(func(p *models.UserRankProgress) bool {
		return p.CurrentXP == 150 && p.WeeklyXP == 250 && p.CurrentRankID == 1
	})).Return(nil)

	result, err := svc.AwardXP(ctx, 5, "forum.post", 50)

	require.NoError(t, err)
	assert.Equal(t, int64(50), result.XPAwarded)
	assert.Equal(t, int64(150), result.TotalXP)
	assert.Equal(t, int64(250), result.WeeklyXP)
	assert.False(t, result.RankChanged)
	assert.False(t, result.CapReached)

	require.Len(t, bus.Events, 1)
	awarded, ok := bus.Events[0].(events.XPAwardedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(50), awarded.XPAwarded)
	mockRankRepo.AssertExpectations(t)
}

func TestRankService_AwardXP_TruncatesAtCeiling(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockRankRepo, _, _, _, svc := newRankHarness(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// 950 of the 1000 weekly ceiling already used; 100 requested, 50 fits
	mockRankRepo.On("GetTiers", ctx).Return(testTiers(), nil)
	mockRankRepo.On("GetProgress", ctx, int64(5)).Return(currentProgress(5, 950, 950, 2), nil)
	mockRankRepo.On("UpdateProgress", ctx, mock.MatchedBy(func(p *models.UserRankProgress) bool {
		return p.CurrentXP == 1000 && p.WeeklyXP == 1000
	})).Return(nil)

	result, err := svc.AwardXP(ctx, 5, "forum.post", 100)

	require.NoError(t, err)
	assert.Equal(t, int64(50), result.XPAwarded)
	assert.True(t, result.CapReached)
}

func TestRankService_AwardXP_ZeroWhenExhausted(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockRankRepo, _, _, bus, svc := newRankHarness(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRankRepo.On("GetTiers", ctx).Return(testTiers(), nil)
	mockRankRepo.On("GetProgress", ctx, int64(5)).Return(currentProgress(5, 1500, 1000, 2), nil)

	result, err := svc.AwardXP(ctx, 5, "forum.post", 25)

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.XPAwarded)
	assert.Equal(t, int64(1500), result.TotalXP)
	assert.True(t, result.CapReached)

	// Nothing persisted, nothing announced
	mockRankRepo.AssertNotCalled(t, "UpdateProgress", mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
	assert.Empty(t, bus.Events)
}

func TestRankService_AwardXP_WeekRollover(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockRankRepo, _, _, _, svc := newRankHarness(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// The stored week window is last week's, so weekly XP resets first
	stale := currentProgress(5, 1500, 1000, 2)
	stale.WeekStart = models.WeekStartUTC(rankTestNow).AddDate(0, 0, -7)

	mockRankRepo.On("GetTiers", ctx).Return(testTiers(), nil)
	mockRankRepo.On("GetProgress", ctx, int64(5)).Return(stale, nil)
	mockRankRepo.On("UpdateProgress", ctx, mock.MatchedBy(func(p *models.UserRankProgress) bool {
		return p.CurrentXP == 1530 && p.WeeklyXP == 30 && p.WeekStart.Equal(models.WeekStartUTC(rankTestNow))
	})).Return(nil)

	result, err := svc.AwardXP(ctx, 5, "forum.post", 30)

	require.NoError(t, err)
	assert.Equal(t, int64(30), result.XPAwarded)
	assert.Equal(t, int64(30), result.WeeklyXP)
	assert.False(t, result.CapReached)
	mockRankRepo.AssertExpectations(t)
}

func TestRankService_AwardXP_RankChange(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockRankRepo, mockNotifRepo, mockAuditRepo, bus, svc := newRankHarness(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	// 480 + 40 crosses the Silver boundary at 500
	mockRankRepo.On("GetTiers", ctx).Return(testTiers(), nil)
	mockRankRepo.On("GetProgress", ctx, int64(5)).Return(currentProgress(5, 480, 100, 1), nil)
	mockRankRepo.On("UpdateProgress", ctx, mock.MatchedBy(func(p *models.UserRankProgress) bool {
		return p.CurrentXP == 520 && p.CurrentRankID == 2
	})).Return(nil)
	mockRankRepo.On("HasBadge", ctx, int64(5), int64(2)).Return(false, nil)
	mockRankRepo.On("GrantBadge", ctx, int64(5), int64(2)).Return(nil)
	mockNotifRepo.On("Create", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Kind == "rank_changed"
	})).Return(nil)
	mockAuditRepo.On("Record", ctx, mock.MatchedBy(func(a *models.AuditLog) bool {
		return a.Action == models.AuditActionRankChanged
	})).Return(nil)

	result, err := svc.AwardXP(ctx, 5, "forum.post", 40)

	require.NoError(t, err)
	assert.True(t, result.RankChanged)
	require.NotNil(t, result.NewRank)
	assert.Equal(t, "Silver", result.NewRank.Name)

	require.Len(t, bus.Events, 2)
	changed, ok := bus.Events[0].(events.RankChangedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), changed.OldRank)
	assert.Equal(t, int64(2), changed.NewRank)
	mockRankRepo.AssertExpectations(t)
	mockNotifRepo.AssertExpectations(t)
}

func TestRankService_AwardXP_BadgeNotRegranted(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockRankRepo, mockNotifRepo, mockAuditRepo, _, svc := newRankHarness(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRankRepo.On("GetTiers", ctx).Return(testTiers(), nil)
	mockRankRepo.On("GetProgress", ctx, int64(5)).Return(currentProgress(5, 480, 100, 1), nil)
	mockRankRepo.On("UpdateProgress", ctx, mock.Anything).Return(nil)
	mockRankRepo.On("HasBadge", ctx, int64(5), int64(2)).Return(true, nil)
	mockNotifRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockAuditRepo.On("Record", ctx, mock.Anything).Return(nil)

	_, err := svc.AwardXP(ctx, 5, "forum.post", 40)

	require.NoError(t, err)
	mockRankRepo.AssertNotCalled(t, "GrantBadge", mock.Anything, mock.Anything, mock.Anything)
}

func TestRankService_AwardXP_FirstAwardCreatesProgress(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockRankRepo, _, _, _, svc := newRankHarness(t)

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRankRepo.On("GetTiers", ctx).Return(testTiers(), nil)
	mockRankRepo.On("GetProgress", ctx, int64(9)).Return(nil, nil)
	mockRankRepo.On("CreateProgress", ctx, mock.MatchedBy(func(p *models.UserRankProgress) bool {
		return p.UserID == 9 && p.CurrentRankID == 1 && p.WeekStart.Equal(models.WeekStartUTC(rankTestNow))
	})).Return(nil)
	mockRankRepo.On("UpdateProgress", ctx, mock.MatchedBy(func(p *models.UserRankProgress) bool {
		return p.CurrentXP == 15 && p.WeeklyXP == 15
	})).Return(nil)

	result, err := svc.AwardXP(ctx, 9, "forum.like", 15)

	require.NoError(t, err)
	assert.Equal(t, int64(15), result.XPAwarded)
	mockRankRepo.AssertExpectations(t)
}

func TestRankService_AwardXP_Validation(t *testing.T) {
	ctx := context.Background()
	_, _, _, _, _, svc := newRankHarness(t)

	_, err := svc.AwardXP(ctx, 5, "forum.post", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.AwardXP(ctx, 5, "", 10)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestWeekStartUTC(t *testing.T) {
	// Wednesday maps back to Monday of the same week
	assert.Equal(t,
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		models.WeekStartUTC(time.Date(2025, 6, 4, 15, 30, 0, 0, time.UTC)))

	// Monday midnight is its own boundary
	assert.Equal(t,
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		models.WeekStartUTC(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))

	// Sunday belongs to the preceding Monday's week
	assert.Equal(t,
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		models.WeekStartUTC(time.Date(2025, 6, 8, 23, 59, 0, 0, time.UTC)))
}
