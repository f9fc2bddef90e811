package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/pkg/messaging"
)

// BalanceAudit consumes balance events and keeps per-kind totals.
type BalanceAudit struct {
	sub    message.Subscriber
	logger logr.Logger

	mu     sync.Mutex
	totals map[model.BalanceEventKind]int64
}

func NewBalanceAudit(sub message.Subscriber, logger logr.Logger) *BalanceAudit {
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &BalanceAudit{sub: sub, logger: logger, totals: make(map[model.BalanceEventKind]int64)}
}

// Run consumes until ctx is done or the subscription closes.
func (a *BalanceAudit) Run(ctx context.Context) error {
	messages, err := a.sub.Subscribe(ctx, messaging.TopicBalanceEvents)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event model.BalanceEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				a.logger.Error(err, "dropping malformed balance event", "uuid", msg.UUID)
			} else {
				a.Record(event)
			}
			msg.Ack()
		}
	}
}

// Record accounts for one event.
func (a *BalanceAudit) Record(event model.BalanceEvent) {
	log := a.logger.WithValues("userID", event.UserID, "amount", event.TransactionAmount,
		"before", event.BeforeAmount, "after", event.AfterAmount)
	switch event.Kind {
	case model.BalanceCharged:
		log.Info("balance charged")
	case model.BalanceDeducted:
		log.Info("balance deducted")
	case model.BalanceRefunded:
		log.Info("balance refunded")
	default:
		log.Info("unknown balance event", "kind", event.Kind)
		return
	}

	a.mu.Lock()
	a.totals[event.Kind] += event.TransactionAmount
	a.mu.Unlock()
}

// Total is the sum of transaction amounts seen for kind.
func (a *BalanceAudit) Total(kind model.BalanceEventKind) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals[kind]
}
