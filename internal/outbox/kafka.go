package outbox

import (
	"context"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the slice of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher forwards every envelope to a kafka topic, keyed by the
// aggregate id so per-aggregate ordering survives partitioning. Register it
// with Relay.RegisterAll. Kafka gives at-least-once by itself; combined with
// the relay's redelivery the consumer side must be idempotent anyway.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Handle(ctx context.Context, env event.Envelope) error {
	content, err := env.Encode()
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(env.AggregateID),
		Value: content,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.Type)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	if w, ok := p.writer.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}
