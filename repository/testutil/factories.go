package testutil

import (
	"context"
	"testing"

	"sweetbank/database"
	"sweetbank/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(id int64, username string) *models.User {
	return &models.User{
		ID:       id,
		Username: username,
	}
}

// SeedUser inserts a user row for tests
func SeedUser(t *testing.T, db *database.DB, user *models.User) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(),
			`INSERT INTO users (id, username, balance, is_bot) VALUES ($1, $2, $3, $4)`,
			user.ID, user.Username, user.Balance, user.IsBot)
		return err
	})
	require.NoError(t, err)
}

// SeedUserWithWallet inserts a user and a wallet holding balance.
// The legacy user balance field is seeded in lockstep with the wallet.
func SeedUserWithWallet(t *testing.T, db *database.DB, userID int64, username string, balance int64) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		ctx := context.Background()
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, username, balance) VALUES ($1, $2, $3)`,
			userID, username, balance); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO wallets (user_id, balance, available_balance) VALUES ($1, $2, $2)`,
			userID, balance)
		return err
	})
	require.NoError(t, err)
}

// FreezeWallet marks a wallet frozen
func FreezeWallet(t *testing.T, db *database.DB, userID int64) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(),
			`UPDATE wallets SET status = 'frozen' WHERE user_id = $1`, userID)
		return err
	})
	require.NoError(t, err)
}

// FundTreasury sets the treasury balance and daily limit for tests
func FundTreasury(t *testing.T, db *database.DB, balance, dailyLimit int64) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(),
			`UPDATE treasury SET balance = $1, daily_spend_limit = $2, today_spent = 0 WHERE id = 1`,
			balance, dailyLimit)
		return err
	})
	require.NoError(t, err)
}

// CreateTestWithdrawal creates a withdrawal request with default values
func CreateTestWithdrawal(userID int64, amount int64) *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		UserID:        userID,
		Amount:        amount,
		Method:        "usdt_trc20",
		WalletAddress: "TTestAddress000000000000000000000",
		ProcessingFee: 100,
	}
}
