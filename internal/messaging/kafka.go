package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/pkg/models"
)

const (
	EventRecommendationsGenerated = "recommendations.generated"
	EventRecommendationCreated    = "recommendation.created"
)

// Event is the payload published for downstream consumers such as the
// notification service.
type Event struct {
	EventID         uuid.UUID                    `json:"event_id"`
	Type            string                       `json:"type"`
	UserID          int                          `json:"user_id"`
	Recommendations []models.RecommendationEntry `json:"recommendations"`
	Timestamp       time.Time                    `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes recommendation events to Kafka. Without configured
// brokers it is disabled and Publish does nothing.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
}

func NewPublisher(cfg *config.KafkaConfig, logger *logrus.Logger) *Publisher {
	p := &Publisher{
		topic:  cfg.Topic,
		logger: logger,
	}
	if len(cfg.Brokers) == 0 {
		logger.Info("Kafka brokers not configured, recommendation events disabled")
		return p
	}

	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // keyed by user id so a user's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.WithError(err).WithField("messages", len(messages)).Warn("Failed to deliver recommendation events")
			}
		},
	}
	return p
}

func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// Publish sends one event. With the async writer the call only fails on
// encoding or when the writer is closed; delivery errors are logged.
func (p *Publisher) Publish(ctx context.Context, eventType string, userID int, entries []models.RecommendationEntry) error {
	if !p.Enabled() {
		return nil
	}

	event := Event{
		EventID:         uuid.New(),
		Type:            eventType,
		UserID:          userID,
		Recommendations: entries,
		Timestamp:       time.Now().UTC(),
	}

	message, err := buildMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"type":     eventType,
		"user_id":  userID,
		"topic":    p.topic,
	}).Debug("Recommendation event published")

	return nil
}

func buildMessage(event Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(strconv.Itoa(event.UserID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}
