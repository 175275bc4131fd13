package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/pkg/models"
)

// InteractionPublisher decouples the service from the message bus transport.
type InteractionPublisher interface {
	PublishInteraction(event models.InteractionEvent) error
}

// InteractionStore is the write surface the interaction service needs.
type InteractionStore interface {
	RecordStatus(ctx context.Context, userID, itemID uuid.UUID, status models.ItemStatus) error
	RecordInteraction(ctx context.Context, userID, itemID uuid.UUID, interactionType string, rating *float64) error
	GetUserAggregates(ctx context.Context, userID uuid.UUID) (*models.UserAggregates, error)
}

// InteractionService persists an interaction and then publishes it to the
// event stream. Persistence is the source of truth; a publish failure is
// logged and absorbed so trending freshness never blocks a user action.
type InteractionService struct {
	store     InteractionStore
	publisher InteractionPublisher
	metrics   *MetricsCollector
	logger    *logrus.Logger
}

func NewInteractionService(
	store InteractionStore,
	publisher InteractionPublisher,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *InteractionService {
	return &InteractionService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

var statusInteractionTypes = map[string]models.ItemStatus{
	"want": models.StatusWant,
	"done": models.StatusDone,
	"pass": models.StatusPass,
}

// Record handles one interaction end to end.
func (s *InteractionService) Record(ctx context.Context, req *models.InteractionRequest) error {
	if req.Type == "rating" && req.Value == nil {
		return fmt.Errorf("rating interaction requires a value")
	}

	if status, ok := statusInteractionTypes[req.Type]; ok {
		if err := s.store.RecordStatus(ctx, req.UserID, req.ItemID, status); err != nil {
			return err
		}
	}
	if err := s.store.RecordInteraction(ctx, req.UserID, req.ItemID, req.Type, req.Value); err != nil {
		return err
	}

	city := ""
	if aggregates, err := s.store.GetUserAggregates(ctx, req.UserID); err == nil {
		city = aggregates.City
	}

	event := models.InteractionEvent{
		UserID:    req.UserID,
		ItemID:    req.ItemID,
		City:      city,
		Type:      req.Type,
		Value:     req.Value,
		SessionID: req.SessionID,
		Timestamp: time.Now(),
	}
	if s.publisher != nil {
		if err := s.publisher.PublishInteraction(event); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": req.UserID,
				"item_id": req.ItemID,
			}).Warn("Failed to publish interaction, continuing")
		} else if s.metrics != nil {
			s.metrics.RecordInteractionPublished(req.Type)
		}
	}

	return nil
}
