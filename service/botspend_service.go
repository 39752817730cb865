package service

import (
	"context"
	"fmt"

	"sweetbank/models"

	log "github.com/sirupsen/logrus"
)

// PriceSource quotes the price a bot should pay for an item. Quotes come
// from an external evaluator, so calls run under the circuit breaker.
type PriceSource interface {
	Quote(ctx context.Context, itemID int64) (int64, error)
}

// BotPurchaseParams are the inputs to a treasury-funded purchase.
// EventID identifies one purchase decision; retrying the same event
// reuses it so the seller credit cannot double-apply.
type BotPurchaseParams struct {
	BotID    int64
	SellerID int64
	ItemID   int64
	EventID  string
	Reason   string
}

// BotPurchaseResult is the outcome of a bot purchase attempt
type BotPurchaseResult struct {
	Success       bool
	Price         int64
	TransactionID int64
	Skipped       string
}

// BotSpendService performs treasury-funded automated purchases
type BotSpendService interface {
	// Purchase quotes an item, spends from the treasury and credits the
	// seller. Cap or balance exhaustion skips the purchase without error.
	Purchase(ctx context.Context, params BotPurchaseParams) (*BotPurchaseResult, error)
}

type botSpendService struct {
	treasury TreasuryService
	ledger   LedgerService
	prices   PriceSource
	breaker  *CircuitBreaker
}

// NewBotSpendService creates a new bot spend service
func NewBotSpendService(treasury TreasuryService, ledger LedgerService, prices PriceSource, breaker *CircuitBreaker) BotSpendService {
	return &botSpendService{
		treasury: treasury,
		ledger:   ledger,
		prices:   prices,
		breaker:  breaker,
	}
}

// Purchase runs the treasury spend and the seller credit as two
// sequential atomic units. The treasury never joins a user-wallet
// transaction, so a crash between the two leaves a deducted treasury
// with no credit; that window is logged at error level for the
// reconciliation run to pick up.
func (s *botSpendService) Purchase(ctx context.Context, params BotPurchaseParams) (*BotPurchaseResult, error) {
	if params.EventID == "" {
		return nil, &ValidationError{Field: "eventId", Msg: "must not be empty"}
	}

	var price int64
	err := s.breaker.Do(func() error {
		var qerr error
		price, qerr = s.prices.Quote(ctx, params.ItemID)
		return qerr
	})
	if err != nil {
		if err == ErrCircuitOpen {
			log.WithField("itemId", params.ItemID).Warn("Bot purchase skipped, price source circuit open")
			return &BotPurchaseResult{Skipped: "circuit_open"}, nil
		}
		return nil, fmt.Errorf("failed to quote item %d: %w", params.ItemID, err)
	}
	if price <= 0 {
		return &BotPurchaseResult{Skipped: "zero_price"}, nil
	}

	ok, err := s.treasury.CanSpend(ctx, price)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.WithFields(log.Fields{
			"itemId": params.ItemID,
			"price":  price,
		}).Info("Bot purchase skipped, daily treasury cap reached")
		return &BotPurchaseResult{Skipped: "daily_cap", Price: price}, nil
	}

	spend, err := s.treasury.Spend(ctx, price, params.Reason)
	if err != nil {
		return nil, err
	}
	if !spend.Success {
		log.WithFields(log.Fields{
			"itemId": params.ItemID,
			"price":  price,
		}).Info("Bot purchase skipped, treasury balance insufficient")
		return &BotPurchaseResult{Skipped: "treasury_empty", Price: price}, nil
	}

	credit, err := s.ledger.Execute(ctx, ExecuteParams{
		UserID:         params.SellerID,
		Amount:         price,
		Type:           models.TransactionTypeEarn,
		Trigger:        models.TriggerTreasuryBotPurchase,
		Channel:        models.ChannelTreasury,
		Description:    fmt.Sprintf("bot purchase of item #%d", params.ItemID),
		IdempotencyKey: fmt.Sprintf("botbuy:%d:%d:%d:%s", params.BotID, params.ItemID, params.SellerID, params.EventID),
		Actor:          "system",
		Metadata: models.BotPurchaseMeta{
			BotID:       params.BotID,
			ItemID:      params.ItemID,
			SpendReason: params.Reason,
		},
	})
	if err != nil {
		// The treasury already paid; the seller credit can be replayed
		// with the same idempotency key, so surface everything needed
		log.WithFields(log.Fields{
			"botId":    params.BotID,
			"sellerId": params.SellerID,
			"itemId":   params.ItemID,
			"eventId":  params.EventID,
			"price":    price,
			"error":    err,
		}).Error("Treasury spent but seller credit failed, balances inconsistent until retried")
		return nil, fmt.Errorf("seller credit after treasury spend failed: %w", err)
	}
	if credit.Duplicate {
		// The seller was already paid by an earlier run of this event,
		// so the spend above charged the treasury a second time. Put
		// the money back and report the replay instead of a success.
		if _, err := s.treasury.Refill(ctx, price, "system"); err != nil {
			log.WithFields(log.Fields{
				"botId":   params.BotID,
				"eventId": params.EventID,
				"price":   price,
				"error":   err,
			}).Error("Treasury double-charged on replayed bot purchase and refund failed")
			return nil, fmt.Errorf("treasury refund after replayed purchase event %s failed: %w", params.EventID, err)
		}
		log.WithFields(log.Fields{
			"botId":         params.BotID,
			"sellerId":      params.SellerID,
			"itemId":        params.ItemID,
			"eventId":       params.EventID,
			"price":         price,
			"transactionId": credit.TransactionID,
		}).Warn("Replayed bot purchase event, treasury spend refunded")
		return &BotPurchaseResult{
			Price:         price,
			TransactionID: credit.TransactionID,
			Skipped:       "duplicate",
		}, nil
	}

	log.WithFields(log.Fields{
		"botId":         params.BotID,
		"sellerId":      params.SellerID,
		"itemId":        params.ItemID,
		"price":         price,
		"transactionId": credit.TransactionID,
	}).Info("Bot purchase completed")

	return &BotPurchaseResult{
		Success:       true,
		Price:         price,
		TransactionID: credit.TransactionID,
	}, nil
}
