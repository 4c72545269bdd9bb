package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// MessageWriter kafka.Writer 的最小介面
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 將事件以 EventEnvelope JSON 寫入 Kafka
//
// 以 AggregateID 作為 key，同一顧客的事件落在同一 partition。
type KafkaPublisher struct {
	writer MessageWriter
}

var _ shared.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaWriter 建立 ledger-events writer
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewKafkaPublisher 創建 KafkaPublisher
func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish 發布單一事件
func (p *KafkaPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	return p.PublishBatch(ctx, []shared.DomainEvent{event})
}

// PublishBatch 一次寫入所有事件
func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		envelope, err := NewEnvelope(event)
		if err != nil {
			return err
		}
		value, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(envelope.AggregateID),
			Value: value,
			Time:  envelope.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(envelope.EventType)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d events: %w", len(msgs), err)
	}
	return nil
}

// Close 關閉底層 writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
