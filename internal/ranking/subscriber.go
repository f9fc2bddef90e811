package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/pkg/messaging"
	"commerce-core/pkg/metrics"
)

const nackDelay = 100 * time.Millisecond

// SaleSubscriber feeds sale events into the counter. The order path only publishes, so
// counter latency or outages never reach it.
type SaleSubscriber struct {
	sub     message.Subscriber
	counter Counter
	metrics *metrics.Metrics
	logger  logr.Logger
}

func NewSaleSubscriber(sub message.Subscriber, counter Counter, m *metrics.Metrics, logger logr.Logger) *SaleSubscriber {
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &SaleSubscriber{sub: sub, counter: counter, metrics: m, logger: logger}
}

// Run consumes until ctx is done or the subscription closes.
func (s *SaleSubscriber) Run(ctx context.Context) error {
	messages, err := s.sub.Subscribe(ctx, messaging.TopicSaleRecorded)
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
			s.handle(ctx, msg)
		}
	}
}

func (s *SaleSubscriber) handle(ctx context.Context, msg *message.Message) {
	var sale model.SaleRecorded
	if err := json.Unmarshal(msg.Payload, &sale); err != nil {
		s.drop(msg, fmt.Errorf("decode sale event: %w", err))
		return
	}
	if sale.Quantity <= 0 {
		s.drop(msg, fmt.Errorf("sale quantity must be positive, got %d", sale.Quantity))
		return
	}

	if err := s.counter.Increment(ctx, sale.ProductID, sale.Quantity, sale.OccurredAt); err != nil {
		s.logger.Error(err, "increment ranking counter", "productID", sale.ProductID)
		s.metrics.SaleEvent("error")
		time.Sleep(nackDelay)
		msg.Nack()
		return
	}
	s.metrics.SaleEvent("ok")
	msg.Ack()
}

// drop acks a message that redelivery cannot fix.
func (s *SaleSubscriber) drop(msg *message.Message, err error) {
	s.logger.Error(err, "dropping malformed sale event", "uuid", msg.UUID)
	s.metrics.SaleEvent("malformed")
	msg.Ack()
}
