package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// FeedService produces the ranked discovery feed: candidate load, scoring
// context assembly, scoring, and diversity ranking.
type FeedService struct {
	store   ItemStoreInterface
	scorer  EventScorerInterface
	config  *config.EngineConfig
	metrics *MetricsCollector
	logger  *logrus.Logger
}

func NewFeedService(
	store ItemStoreInterface,
	scorer EventScorerInterface,
	cfg *config.EngineConfig,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *FeedService {
	return &FeedService{
		store:   store,
		scorer:  scorer,
		config:  cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// GetFeed returns the user's ranked feed, hidden items excluded, capped at
// limit.
func (s *FeedService) GetFeed(ctx context.Context, userID uuid.UUID, itemType string, limit int) ([]models.ScoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	started := time.Now()

	aggregates, err := s.store.GetUserAggregates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user aggregates: %w", err)
	}

	events, err := s.store.FindCandidates(ctx, itemType, nil, nil, s.config.Cascade.CandidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed candidates: %w", err)
	}

	trending, err := s.store.TrendingItemIDs(ctx, aggregates.City, 50)
	if err != nil {
		s.logger.WithError(err).Debug("Trending lookup failed for feed")
	}
	trendingSet := make(map[uuid.UUID]bool, len(trending))
	for _, id := range trending {
		trendingSet[id] = true
	}

	sctx := &ScoringContext{
		Preferences: aggregates.Preferences,
		Taste:       BuildTasteVector(aggregates.Preferences, aggregates.Statuses, aggregates.Ratings),
		Detailed:    aggregates.Detailed,
		Feedback:    aggregates.Feedback,
		Constraints: aggregates.Constraints,
		FeedViews:   aggregates.FeedViews,
		TrendingIDs: trendingSet,
		Now:         time.Now(),
	}

	scoringStarted := time.Now()
	ranked := s.scorer.ScoreAndRankEvents(events, sctx)
	if s.metrics != nil {
		s.metrics.ObserveScoringDuration(time.Since(scoringStarted))
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if s.metrics != nil {
		s.metrics.RecordRecommendationRequest(time.Since(started))
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"candidates": len(events),
		"returned":   len(ranked),
	}).Debug("Feed generated")

	return ranked, nil
}
