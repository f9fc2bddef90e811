package messaging

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const (
	TopicSaleRecorded  = "ranking.sale_recorded"
	TopicBalanceEvents = "balance.events"
)

const outputBuffer = 1024

// PubSub pairs a publisher with the subscriber reading the same transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both sides, returning every error encountered.
func (p PubSub) Close() error {
	var errs []error
	if err := p.Publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if any(p.Subscriber) != any(p.Publisher) {
		if err := p.Subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewGoChannel returns an in-process transport. Publishing never waits for consumers.
func NewGoChannel(log logr.Logger) PubSub {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: outputBuffer,
	}, NewLogger(log))
	return PubSub{Publisher: ch, Subscriber: ch}
}

// NewKafka returns a Kafka transport consuming as group.
func NewKafka(brokers []string, group string, log logr.Logger) (PubSub, error) {
	adapter := NewLogger(log)
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, adapter)
	if err != nil {
		return PubSub{}, fmt.Errorf("create kafka publisher: %w", err)
	}
	sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       brokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: group,
	}, adapter)
	if err != nil {
		_ = pub.Close()
		return PubSub{}, fmt.Errorf("create kafka subscriber: %w", err)
	}
	return PubSub{Publisher: pub, Subscriber: sub}, nil
}

// PublishJSON encodes v as the payload of a new message on topic.
func PublishJSON(pub message.Publisher, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	return pub.Publish(topic, message.NewMessage(uuid.New().String(), payload))
}

// logAdapter routes watermill logs into logr.
type logAdapter struct {
	log logr.Logger
}

// NewLogger adapts a logr.Logger to watermill's logger interface.
func NewLogger(log logr.Logger) watermill.LoggerAdapter {
	return logAdapter{log: log}
}

func keysAndValues(fields watermill.LogFields) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}

func (a logAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(err, msg, keysAndValues(fields)...)
}

func (a logAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, keysAndValues(fields)...)
}

func (a logAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.V(1).Info(msg, keysAndValues(fields)...)
}

func (a logAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.V(2).Info(msg, keysAndValues(fields)...)
}

func (a logAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return logAdapter{log: a.log.WithValues(keysAndValues(fields)...)}
}
