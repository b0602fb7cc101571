package updates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Publisher sends events synchronously, keyed by layer so every change to
// one subdivision lands on the same partition in order.
type Publisher struct {
	topic string
	prod  sarama.SyncProducer
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("updates: create sync producer: %w", err)
	}
	return &Publisher{topic: topic, prod: prod}, nil
}

// NewPublisherWith wraps an existing producer.
func NewPublisherWith(prod sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{topic: topic, prod: prod}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) (partition int32, offset int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	if err := ev.Validate(); err != nil {
		return 0, 0, fmt.Errorf("updates: invalid event: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, 0, fmt.Errorf("updates: marshal: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(ev.Layer),
		Value:     sarama.ByteEncoder(b),
		Timestamp: ev.TS,
	}
	partition, offset, err = p.prod.SendMessage(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("updates: send %s %q: %w", ev.Op, ev.Layer, err)
	}
	return partition, offset, nil
}

func (p *Publisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("updates: close producer: %w", err)
	}
	return nil
}
