package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sonderhq/sonder/pkg/models"
)

// ItemStoreInterface is the persistence collaborator boundary. The engine
// receives materialized candidates and aggregates through it and never owns
// storage.
type ItemStoreInterface interface {
	// FindCandidates returns active items of the given type, optionally
	// restricted to categories, with events starting after the given time.
	FindCandidates(ctx context.Context, itemType string, categories []string, after *time.Time, limit int) ([]models.Event, error)

	// FindItemsWithStatus returns, per item, which of the given users marked
	// it with one of the given statuses.
	FindItemsWithStatus(ctx context.Context, userIDs []uuid.UUID, statuses []models.ItemStatus, itemType string) (map[uuid.UUID][]models.StatusContribution, error)

	// CountInteractions returns interaction and rating counts per item,
	// most-interacted first.
	CountInteractions(ctx context.Context, itemType string, limit int) ([]models.InteractionCount, error)

	GetEventsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Event, error)

	// GetUserAggregates materializes everything the scorer needs about a user.
	GetUserAggregates(ctx context.Context, userID uuid.UUID) (*models.UserAggregates, error)

	// GetExcludedItemIDs returns items the user already interacted with or
	// explicitly passed on.
	GetExcludedItemIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)

	// TrendingItemIDs returns the precomputed globally-trending set for a city.
	TrendingItemIDs(ctx context.Context, city string, limit int) ([]uuid.UUID, error)
}

// EventScorerInterface lets callers swap the scorer in tests.
type EventScorerInterface interface {
	ScoreEvent(event models.Event, sctx *ScoringContext) models.ScoredEvent
	ScoreAndRankEvents(events []models.Event, sctx *ScoringContext) []models.ScoredEvent
}

// CuratorInterface is the AI curation boundary: nil output means the caller
// must use the deterministic path.
type CuratorInterface interface {
	GenerateAISuggestions(ctx context.Context, tasteSummary string, candidates []models.Candidate) *models.SuggestionOutput
}
