package events

import (
	"context"
	"sync"

	"sweetbank/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChanged        EventType = "balance_changed"
	EventTypeWalletCreated         EventType = "wallet_created"
	EventTypeWithdrawalStateChange EventType = "withdrawal_state_change"
	EventTypeXPAwarded             EventType = "xp_awarded"
	EventTypeRankChanged           EventType = "rank_changed"
	EventTypeTreasuryLow           EventType = "treasury_low"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangedEvent is emitted after a committed ledger execution
type BalanceChangedEvent struct {
	UserID          int64
	OldBalance      int64
	NewBalance      int64
	ChangeAmount    int64
	TransactionID   int64
	TransactionType models.TransactionType
	Trigger         models.Trigger
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

// WalletCreatedEvent is emitted when a wallet is auto-provisioned
type WalletCreatedEvent struct {
	UserID int64
}

func (e WalletCreatedEvent) Type() EventType {
	return EventTypeWalletCreated
}

// WithdrawalStateChangeEvent is emitted on withdrawal lifecycle transitions
type WithdrawalStateChangeEvent struct {
	WithdrawalID int64
	UserID       int64
	Amount       int64
	OldStatus    models.WithdrawalStatus
	NewStatus    models.WithdrawalStatus
}

func (e WithdrawalStateChangeEvent) Type() EventType {
	return EventTypeWithdrawalStateChange
}

// XPAwardedEvent is emitted after a committed XP award
type XPAwardedEvent struct {
	UserID     int64
	Activity   string
	XPAwarded  int64
	TotalXP    int64
	WeeklyXP   int64
	CapReached bool
}

func (e XPAwardedEvent) Type() EventType {
	return EventTypeXPAwarded
}

// RankChangedEvent is emitted when a user reaches a new tier
type RankChangedEvent struct {
	UserID   int64
	OldRank  int64
	NewRank  int64
	RankName string
}

func (e RankChangedEvent) Type() EventType {
	return EventTypeRankChanged
}

// TreasuryLowEvent is emitted when a spend leaves the treasury below a threshold
type TreasuryLowEvent struct {
	Balance   int64
	Threshold int64
}

func (e TreasuryLowEvent) Type() EventType {
	return EventTypeTreasuryLow
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers.
// Handlers run asynchronously; a slow or failing subscriber never blocks
// or fails the operation that emitted the event.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus holds events pending inside a unit of work.
// Flush publishes them to the real bus after a successful commit;
// Discard drops them on rollback.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction context that produced them
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
