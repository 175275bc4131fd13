package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonderhq/sonder/pkg/models"
)

type interactionStoreStub struct {
	statuses     []models.ItemStatus
	interactions []string
	statusErr    error
}

func (s *interactionStoreStub) RecordStatus(_ context.Context, _, _ uuid.UUID, status models.ItemStatus) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *interactionStoreStub) RecordInteraction(_ context.Context, _, _ uuid.UUID, interactionType string, _ *float64) error {
	s.interactions = append(s.interactions, interactionType)
	return nil
}

func (s *interactionStoreStub) GetUserAggregates(_ context.Context, userID uuid.UUID) (*models.UserAggregates, error) {
	return &models.UserAggregates{UserID: userID, City: "Lisbon"}, nil
}

type publisherStub struct {
	events []models.InteractionEvent
	err    error
}

func (p *publisherStub) PublishInteraction(event models.InteractionEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newTestInteractionService(store *interactionStoreStub, publisher *publisherStub) *InteractionService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewInteractionService(store, publisher, nil, logger)
}

func TestInteractionService_RecordStatusType(t *testing.T) {
	store := &interactionStoreStub{}
	publisher := &publisherStub{}
	svc := newTestInteractionService(store, publisher)

	req := &models.InteractionRequest{
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		Type:      "want",
		SessionID: uuid.New(),
	}

	require.NoError(t, svc.Record(context.Background(), req))

	assert.Equal(t, []models.ItemStatus{models.StatusWant}, store.statuses)
	assert.Equal(t, []string{"want"}, store.interactions)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "Lisbon", publisher.events[0].City)
	assert.Equal(t, req.SessionID, publisher.events[0].SessionID)
}

func TestInteractionService_ViewDoesNotTouchStatuses(t *testing.T) {
	store := &interactionStoreStub{}
	svc := newTestInteractionService(store, &publisherStub{})

	req := &models.InteractionRequest{
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		Type:      "view",
		SessionID: uuid.New(),
	}

	require.NoError(t, svc.Record(context.Background(), req))

	assert.Empty(t, store.statuses)
	assert.Equal(t, []string{"view"}, store.interactions)
}

func TestInteractionService_RatingRequiresValue(t *testing.T) {
	store := &interactionStoreStub{}
	svc := newTestInteractionService(store, &publisherStub{})

	req := &models.InteractionRequest{
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		Type:      "rating",
		SessionID: uuid.New(),
	}

	err := svc.Record(context.Background(), req)

	require.Error(t, err)
	assert.Empty(t, store.interactions, "invalid request must not persist anything")
}

func TestInteractionService_PublishFailureIsAbsorbed(t *testing.T) {
	store := &interactionStoreStub{}
	publisher := &publisherStub{err: errors.New("kafka down")}
	svc := newTestInteractionService(store, publisher)

	req := &models.InteractionRequest{
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		Type:      "done",
		SessionID: uuid.New(),
	}

	require.NoError(t, svc.Record(context.Background(), req))
	assert.Equal(t, []string{"done"}, store.interactions)
}

func TestInteractionService_StatusErrorSurfaces(t *testing.T) {
	store := &interactionStoreStub{statusErr: errors.New("postgres down")}
	svc := newTestInteractionService(store, &publisherStub{})

	req := &models.InteractionRequest{
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		Type:      "pass",
		SessionID: uuid.New(),
	}

	require.Error(t, svc.Record(context.Background(), req))
	assert.Empty(t, store.interactions)
}
