package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sweetbank/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventEnvelope wraps an event payload for transport
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher forwards committed domain events to NATS subjects.
// Delivery is best effort: a publish failure is logged and dropped,
// never surfaced to the operation that emitted the event.
type Publisher struct {
	client *NATSClient
}

// NewPublisher creates a new realtime publisher
func NewPublisher(client *NATSClient) *Publisher {
	return &Publisher{client: client}
}

// Attach subscribes the publisher to every forwarded event type on the bus
func (p *Publisher) Attach(bus *events.Bus) {
	forwarded := []events.EventType{
		events.EventTypeBalanceChanged,
		events.EventTypeWalletCreated,
		events.EventTypeWithdrawalStateChange,
		events.EventTypeXPAwarded,
		events.EventTypeRankChanged,
		events.EventTypeTreasuryLow,
	}
	for _, et := range forwarded {
		bus.Subscribe(et, p.forward)
	}
}

func (p *Publisher) forward(ctx context.Context, event events.Event) {
	subject := subjectFor(event)

	payload, err := json.Marshal(event)
	if err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to marshal event payload")
		return
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "sweetbank",
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to marshal event envelope")
		return
	}

	if err := p.client.Publish(ctx, subject, data); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"subject":   subject,
			"error":     err,
		}).Error("Failed to publish event to NATS")
		return
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
}

// subjectFor maps an event to its NATS subject. Per-user events get a
// user-scoped subject so UI consumers can filter server-side.
func subjectFor(event events.Event) string {
	switch e := event.(type) {
	case events.BalanceChangedEvent:
		return fmt.Sprintf("sweetbank.user.%d.balance", e.UserID)
	case events.WalletCreatedEvent:
		return fmt.Sprintf("sweetbank.user.%d.wallet", e.UserID)
	case events.WithdrawalStateChangeEvent:
		return fmt.Sprintf("sweetbank.user.%d.withdrawal", e.UserID)
	case events.XPAwardedEvent:
		return fmt.Sprintf("sweetbank.user.%d.xp", e.UserID)
	case events.RankChangedEvent:
		return fmt.Sprintf("sweetbank.user.%d.rank", e.UserID)
	case events.TreasuryLowEvent:
		return "sweetbank.treasury.low"
	default:
		return fmt.Sprintf("sweetbank.event.%s", event.Type())
	}
}
