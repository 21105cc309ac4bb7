package event_publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"bridge/apps/bridge/internal/events"
	"bridge/apps/bridge/internal/model"
	"bridge/apps/bridge/internal/repository"
)

type EventPublisher struct {
	logger        *zap.Logger
	kafkaProducer *kafka.Producer
	kafkaTopic    string
	repository    *repository.EventOutboxRepository
	mu            sync.Mutex // Protects concurrent access to publishing operations
}

func NewEventPublisher(kafkaBroker, kafkaTopic string, logger *zap.Logger, repository *repository.EventOutboxRepository) (*EventPublisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &EventPublisher{
		logger:        logger,
		kafkaProducer: producer,
		kafkaTopic:    kafkaTopic,
		repository:    repository,
	}, nil
}

// StartPublishing drains the event outbox on an interval until ctx is
// cancelled.
func (ep *EventPublisher) StartPublishing(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ep.logger.Info("Starting bridge event publisher", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			ep.logger.Info("Stopping bridge event publisher")
			return
		case <-ticker.C:
			if err := ep.publishUnsentEvents(); err != nil {
				ep.logger.Error("Error publishing bridge events to Kafka", zap.Error(err))
			}
		}
	}
}

func (ep *EventPublisher) publishUnsentEvents() error {
	// Use mutex to ensure only one publishing operation at a time per instance
	ep.mu.Lock()
	defer ep.mu.Unlock()

	outboxEvents, err := ep.repository.GetUnsentEventsForPublishing(100)
	if err != nil {
		return err
	}

	successCount := 0
	for _, event := range outboxEvents {
		if err := ep.publishEventToKafka(event); err != nil {
			ep.logger.Error("Failed to publish bridge event to Kafka",
				zap.Int64("seq", event.Seq),
				zap.String("order_id", event.OrderID),
				zap.Error(err))
			// Mark as failed (returns status to 'unsent' for retry)
			if markErr := ep.repository.MarkEventAsFailed(event.Seq); markErr != nil {
				ep.logger.Error("Failed to mark bridge event as failed",
					zap.Int64("seq", event.Seq), zap.Error(markErr))
			}
			continue
		}

		if err := ep.repository.MarkEventAsSent(event.Seq); err != nil {
			ep.logger.Error("Failed to mark bridge event as sent",
				zap.Int64("seq", event.Seq), zap.Error(err))
			// Note: Event was successfully published but marking failed - this could lead to duplicate sends
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		ep.logger.Info("Published bridge events to Kafka",
			zap.Int("success_count", successCount),
			zap.Int("attempted", len(outboxEvents)))
	}

	return nil
}

func (ep *EventPublisher) publishEventToKafka(event model.OutboxBridgeEvent) error {
	var fromStatus *string
	if event.FromStatus != nil {
		value := string(*event.FromStatus)
		fromStatus = &value
	}

	kafkaMsg := events.BridgeOrderEvent{
		Seq:           event.Seq,
		OrderID:       event.OrderID,
		Kind:          string(event.Kind),
		FromStatus:    fromStatus,
		ToStatus:      string(event.ToStatus),
		WalletAddress: event.WalletAddress,
		Detail:        event.Detail,
		OccurredAt:    event.CreatedAt,
		Timestamp:     time.Now(),
	}

	msgBytes, err := json.Marshal(kafkaMsg)
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event)
	defer close(deliveryChan)

	err = ep.kafkaProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &ep.kafkaTopic, Partition: kafka.PartitionAny},
		Key:            []byte(event.WalletAddress), // Use wallet address as key for partition consistency
		Value:          msgBytes,
	}, deliveryChan)

	if err != nil {
		return err
	}

	// Wait for delivery confirmation
	e := <-deliveryChan
	switch ev := e.(type) {
	case *kafka.Message:
		if ev.TopicPartition.Error != nil {
			return ev.TopicPartition.Error
		}
		return nil
	default:
		return fmt.Errorf("unexpected kafka event type: %T", e)
	}
}

func (ep *EventPublisher) Close() error {
	if ep.kafkaProducer != nil {
		ep.kafkaProducer.Close()
	}
	return nil
}
