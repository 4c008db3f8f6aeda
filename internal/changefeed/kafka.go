package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes changes to a Kafka topic keyed by event id, so every
// change of one event lands on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, c Change) error {
	msg, err := toMessage(c)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", c.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessage(c Change) (kafka.Message, error) {
	value, err := json.Marshal(c)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode change: %w", err)
	}
	return kafka.Message{
		Key:   []byte(c.EventID.String()),
		Value: value,
		Time:  c.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(c.Type)},
		},
	}, nil
}
