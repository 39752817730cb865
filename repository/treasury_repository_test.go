package repository

import (
	"context"
	"testing"

	"sweetbank/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreasuryRepository_Spend(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTreasuryRepository(testDB.DB)
	ctx := context.Background()

	testutil.FundTreasury(t, testDB.DB, 1000, 5000)

	t.Run("successful spend", func(t *testing.T) {
		state, applied, err := repo.Spend(ctx, 400)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(600), state.Balance)
		assert.Equal(t, int64(400), state.TodaySpent)
		assert.Equal(t, int64(400), state.TotalSpent)
	})

	t.Run("insufficient balance fails closed", func(t *testing.T) {
		state, applied, err := repo.Spend(ctx, 601)
		require.NoError(t, err)
		assert.False(t, applied)

		// State untouched by the rejected spend
		assert.Equal(t, int64(600), state.Balance)
		assert.Equal(t, int64(400), state.TodaySpent)
	})

	t.Run("exact balance spend", func(t *testing.T) {
		state, applied, err := repo.Spend(ctx, 600)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(0), state.Balance)
	})
}

func TestTreasuryRepository_RefillAndReset(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTreasuryRepository(testDB.DB)
	ctx := context.Background()

	testutil.FundTreasury(t, testDB.DB, 100, 5000)

	state, err := repo.Refill(ctx, 900)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), state.Balance)

	_, applied, err := repo.Spend(ctx, 250)
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, repo.ResetDailySpent(ctx))

	state, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.TodaySpent)
	// Total spent and balance survive the daily reset
	assert.Equal(t, int64(250), state.TotalSpent)
	assert.Equal(t, int64(750), state.Balance)
}

func TestTreasuryRepository_RecordRefund(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTreasuryRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.RecordRefund(ctx, 120))
	require.NoError(t, repo.RecordRefund(ctx, 80))

	state, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), state.TotalRefunded)
}
