// Worker tails account lifecycle events from Kafka and logs them. Useful for
// verifying event emission locally and as the template for downstream
// consumers (mail, analytics). Set KAFKA_BROKERS and EVENTS_KAFKA_TOPIC.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"sso-reconciler/internal/config"
	"sso-reconciler/internal/events/domain"
	"sso-reconciler/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog := logger.New(cfg.Env)
	defer func() { _ = zlog.Sync() }()

	brokers := cfg.EventsKafkaBrokersList()
	if len(brokers) == 0 {
		zlog.Fatal("worker: KAFKA_BROKERS is required")
	}
	topic := cfg.EventsKafkaTopic
	if topic == "" {
		topic = "sso-account-events"
	}
	groupID := cfg.KafkaGroupID
	if groupID == "" {
		groupID = "sso-events-worker"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		zlog.Info("worker: shutting down...")
		cancel()
	}()

	zlog.Info("worker: consuming account events",
		zap.String("topic", topic),
		zap.String("group", groupID))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				zlog.Info("worker: stopped")
				return
			}
			zlog.Warn("worker: kafka read error", zap.Error(err))
			continue
		}

		var evt domain.AccountEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			zlog.Warn("worker: malformed event", zap.Error(err))
			continue
		}
		zlog.Info("account event",
			zap.String("id", evt.ID),
			zap.String("type", evt.Type),
			zap.Int64("account_id", evt.AccountID),
			zap.String("username", evt.Username),
			zap.Time("occurred_at", evt.OccurredAt))
	}
}
