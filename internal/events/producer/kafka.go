package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"sso-reconciler/internal/events/domain"
)

// KafkaProducer emits account events using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
	log    *zap.Logger
}

// NewKafkaProducer creates a Kafka producer that writes account events to the
// given topic. Returns nil when brokers or topic are unset; callers fall back
// to the noop emitter. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string, log *zap.Logger) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic, log: log}
}

// Emit serializes the event as JSON and writes it to the Kafka topic.
// Uses the request context with a short timeout so a slow broker does not
// block sign-ins indefinitely.
func (p *KafkaProducer) Emit(ctx context.Context, event *domain.AccountEvent) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.Type),
		Value: payload,
	})
	if err != nil {
		p.log.Warn("events: kafka emit failed", zap.String("type", event.Type), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
