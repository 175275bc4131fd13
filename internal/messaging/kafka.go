package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

const (
	UserInteractionsTopic    = "user-interactions"
	UserInteractionsDLQTopic = "user-interactions-dlq"
	ConsumerGroup            = "interaction-processors"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

type KafkaConsumer struct {
	reader *kafka.Reader
	logger *logrus.Logger
}

// MessageBus carries user interactions from the API to the asynchronous
// consumers that maintain trending sets and interaction counts.
type MessageBus struct {
	producer  *KafkaProducer
	consumer  *KafkaConsumer
	dlqWriter *kafka.Writer
	logger    *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	topic := cfg.Kafka.Topics.UserInteractions
	if topic == "" {
		topic = UserInteractionsTopic
	}

	producer := &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // keyed by user so one user's stream stays ordered
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		},
		logger: logger,
	}

	consumer := &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          topic,
			GroupID:        ConsumerGroup,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		logger: logger,
	}

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        UserInteractionsDLQTopic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &MessageBus{
		producer:  producer,
		consumer:  consumer,
		dlqWriter: dlqWriter,
		logger:    logger,
	}, nil
}

// PublishInteraction writes one interaction event, keyed by user ID.
func (mb *MessageBus) PublishInteraction(event models.InteractionEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}

	kafkaMessage := kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: messageBytes,
		Headers: []kafka.Header{
			{Key: "interaction_type", Value: []byte(event.Type)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mb.producer.writer.WriteMessages(ctx, kafkaMessage); err != nil {
		mb.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": event.UserID,
			"item_id": event.ItemID,
		}).Error("Failed to publish interaction to Kafka")
		return fmt.Errorf("failed to write interaction to Kafka: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"user_id": event.UserID,
		"item_id": event.ItemID,
		"type":    event.Type,
	}).Debug("Interaction published")

	return nil
}

// ConsumeInteractions reads interaction events and hands each to the handler,
// retrying with backoff and dead-lettering poison messages.
func (mb *MessageBus) ConsumeInteractions(ctx context.Context, handler func(models.InteractionEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := mb.consumer.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mb.logger.WithError(err).Error("Failed to read interaction from Kafka")
				continue
			}

			var event models.InteractionEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				mb.logger.WithError(err).Error("Failed to unmarshal interaction, dead-lettering")
				mb.sendToDLQ(ctx, message.Value, err)
				continue
			}

			if err := mb.processWithRetry(ctx, event, handler); err != nil {
				mb.logger.WithError(err).WithFields(logrus.Fields{
					"user_id": event.UserID,
					"item_id": event.ItemID,
				}).Error("Failed to process interaction after retries")
				mb.sendToDLQ(ctx, message.Value, err)
			}
		}
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, event models.InteractionEvent, handler func(models.InteractionEvent) error) error {
	maxRetries := 3
	baseDelay := time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = handler(event); lastErr == nil {
			return nil
		}
		mb.logger.WithError(lastErr).WithFields(logrus.Fields{
			"user_id": event.UserID,
			"attempt": attempt,
		}).Warn("Interaction handler failed")
	}
	return lastErr
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, payload []byte, cause error) {
	dlqMessage := kafka.Message{
		Value: payload,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "failed_at", Value: []byte(time.Now().Format(time.RFC3339))},
		},
	}
	if err := mb.dlqWriter.WriteMessages(ctx, dlqMessage); err != nil {
		mb.logger.WithError(err).Error("Failed to write interaction to DLQ")
	}
}

func (mb *MessageBus) Close() error {
	var errs []error

	if err := mb.producer.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}
	if err := mb.consumer.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}
	if err := mb.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errs)
	}
	return nil
}
