package models

import (
	"time"
)

// TransactionType represents the direction and semantics of a ledger entry
type TransactionType string

const (
	TransactionTypeEarn     TransactionType = "earn"
	TransactionTypeSpend    TransactionType = "spend"
	TransactionTypeRecharge TransactionType = "recharge"
)

// TransactionStatus represents the state of a ledger entry
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Channel identifies the subsystem that originated a transaction
type Channel string

const (
	ChannelForum    Channel = "forum"
	ChannelMarket   Channel = "market"
	ChannelTreasury Channel = "treasury"
	ChannelSystem   Channel = "system"
)

// Trigger is the fine-grained semantic cause of a transaction
type Trigger string

const (
	TriggerForumLikeGiven        Trigger = "forum.like.given"
	TriggerForumPostReward       Trigger = "forum.post.reward"
	TriggerForumReferralBonus    Trigger = "forum.referral.bonus"
	TriggerMarketPurchase        Trigger = "market.item.purchase"
	TriggerMarketSale            Trigger = "market.item.sale"
	TriggerTreasuryBotPurchase   Trigger = "treasury.bot.purchase"
	TriggerTreasuryWithdrawReq   Trigger = "treasury.withdraw.requested"
	TriggerTreasuryWithdrawRejec Trigger = "treasury.withdraw.rejected"
	TriggerSystemRecharge        Trigger = "system.recharge"
	TriggerSystemAdjustment      Trigger = "system.adjustment"
	TriggerRankFeatureUnlock     Trigger = "rank.feature.unlock"
)

// Transaction is an immutable signed-amount economic event.
// Amount carries the sign: earn and recharge are positive, spend is negative.
// The sign is applied by the ledger service, never by callers.
type Transaction struct {
	ID             int64             `db:"id"`
	UserID         int64             `db:"user_id"`
	Type           TransactionType   `db:"type"`
	Amount         int64             `db:"amount"`
	Status         TransactionStatus `db:"status"`
	Channel        Channel           `db:"channel"`
	Trigger        Trigger           `db:"trigger"`
	Description    string            `db:"description"`
	IdempotencyKey *string           `db:"idempotency_key"`
	Metadata       TransactionMeta   `db:"metadata"`
	CreatedAt      time.Time         `db:"created_at"`
}
