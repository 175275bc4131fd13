package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// RecommendationOptions narrows a cascade request.
type RecommendationOptions struct {
	ItemType string
	Limit    int
}

// RecommendationCascadeService fills a requested result count through a
// three-tier waterfall: collaborative, then content-based, then trending.
// Later tiers only run when earlier ones fall short; every tier fails soft.
type RecommendationCascadeService struct {
	store      ItemStoreInterface
	similarity SimilarUserFinder
	config     *config.CascadeConfig
	metrics    *MetricsCollector
	logger     *logrus.Logger
}

func NewRecommendationCascadeService(
	store ItemStoreInterface,
	similarity SimilarUserFinder,
	cfg *config.CascadeConfig,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *RecommendationCascadeService {
	return &RecommendationCascadeService{
		store:      store,
		similarity: similarity,
		config:     cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// GetItemRecommendations returns up to opts.Limit de-duplicated items, tier-1
// entries before tier-2 before tier-3. Idempotent for identical inputs.
func (s *RecommendationCascadeService) GetItemRecommendations(
	ctx context.Context,
	userID uuid.UUID,
	excludeItemID *uuid.UUID,
	opts RecommendationOptions,
) ([]models.ScoredItem, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	aggregates, err := s.store.GetUserAggregates(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load user aggregates, continuing with empty profile")
		aggregates = &models.UserAggregates{UserID: userID}
	}

	excluded, err := s.store.GetExcludedItemIDs(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load exclusions")
		excluded = make(map[uuid.UUID]bool)
	}
	if excludeItemID != nil {
		excluded[*excludeItemID] = true
	}
	if aggregates.Feedback != nil {
		for id := range aggregates.Feedback.HiddenItemIDs {
			excluded[id] = true
		}
	}

	taste := BuildTasteVector(aggregates.Preferences, aggregates.Statuses, aggregates.Ratings)
	now := time.Now()

	results := make([]models.ScoredItem, 0, limit)
	selected := make(map[uuid.UUID]bool)

	appendTier := func(tier string, items []models.ScoredItem) {
		for _, item := range items {
			if len(results) >= limit {
				return
			}
			if selected[item.ItemID] || excluded[item.ItemID] {
				continue
			}
			selected[item.ItemID] = true
			results = append(results, item)
		}
		if s.metrics != nil {
			s.metrics.ObserveCascadeTier(tier, len(items))
		}
	}

	appendTier("collaborative", s.runTier(ctx, "collaborative", func() []models.ScoredItem {
		return s.collaborativeTier(ctx, userID, opts.ItemType, taste, excluded, now)
	}))

	if len(results) < limit {
		appendTier("content_based", s.runTier(ctx, "content_based", func() []models.ScoredItem {
			return s.contentBasedTier(ctx, opts.ItemType, taste, now)
		}))
	}

	if len(results) < limit {
		appendTier("trending", s.runTier(ctx, "trending", func() []models.ScoredItem {
			return s.trendingTier(ctx, opts.ItemType, aggregates.City)
		}))
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"count":   len(results),
		"limit":   limit,
	}).Debug("Cascade completed")

	return results, nil
}

// runTier executes one tier and converts any panic into zero results so a
// failing tier can never take down the whole recommendation call.
func (s *RecommendationCascadeService) runTier(
	ctx context.Context,
	name string,
	fn func() []models.ScoredItem,
) (items []models.ScoredItem) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"tier":  name,
				"panic": r,
			}).Warn("Recommendation tier failed, treating as empty")
			items = nil
		}
	}()
	return fn()
}

// collaborativeTier gathers items that similar users marked want/done,
// weighting each by the contributing users' similarity (done over want).
func (s *RecommendationCascadeService) collaborativeTier(
	ctx context.Context,
	userID uuid.UUID,
	itemType string,
	taste models.TasteVector,
	excluded map[uuid.UUID]bool,
	now time.Time,
) []models.ScoredItem {
	similarUsers, err := s.similarity.FindSimilarUsers(ctx, userID, 0)
	if err != nil {
		s.logger.WithError(err).Warn("Similar user lookup failed")
		return nil
	}
	if len(similarUsers) == 0 {
		// Expected cold-start outcome, not an error: the next tier fills in.
		return nil
	}

	userIDs := make([]uuid.UUID, len(similarUsers))
	weights := make(map[uuid.UUID]float64, len(similarUsers))
	for i, u := range similarUsers {
		userIDs[i] = u.UserID
		weights[u.UserID] = u.Similarity
	}

	contributions, err := s.store.FindItemsWithStatus(
		ctx, userIDs, []models.ItemStatus{models.StatusWant, models.StatusDone}, itemType,
	)
	if err != nil {
		s.logger.WithError(err).Warn("Similar user item lookup failed")
		return nil
	}

	itemIDs := make([]uuid.UUID, 0, len(contributions))
	for id := range contributions {
		if !excluded[id] {
			itemIDs = append(itemIDs, id)
		}
	}
	if len(itemIDs) == 0 {
		return nil
	}

	events, err := s.store.GetEventsByIDs(ctx, itemIDs)
	if err != nil {
		s.logger.WithError(err).Warn("Event lookup failed")
		return nil
	}

	var items []models.ScoredItem
	for _, id := range itemIDs {
		event, ok := events[id]
		if !ok {
			continue
		}

		neighborWeight := 0.0
		for _, c := range contributions[id] {
			statusWeight := s.config.WantWeight
			if c.Status == models.StatusDone {
				statusWeight = s.config.DoneWeight
			}
			neighborWeight += weights[c.UserID] * statusWeight
		}

		score := neighborWeight*10 + tasteMatch(taste, &event) + s.recencyBonus(&event, now)
		items = append(items, models.ScoredItem{
			ItemID:     id,
			Score:      score,
			Tier:       "collaborative",
			Reason:     "People with similar taste saved this",
			ReasonType: models.ReasonSimilarUsers,
			Item:       &event,
		})
	}

	return s.normalizeAndSort(items)
}

// contentBasedTier restricts candidates to the user's strongest categories
// from the taste vector.
func (s *RecommendationCascadeService) contentBasedTier(
	ctx context.Context,
	itemType string,
	taste models.TasteVector,
	now time.Time,
) []models.ScoredItem {
	topCategories := topTasteCategories(taste, s.config.TopCategories)
	if len(topCategories) == 0 {
		return nil
	}

	after := now
	candidates, err := s.store.FindCandidates(ctx, itemType, topCategories, &after, s.config.CandidatePoolSize)
	if err != nil {
		s.logger.WithError(err).Warn("Content candidate lookup failed")
		return nil
	}

	var items []models.ScoredItem
	for i := range candidates {
		event := candidates[i]
		items = append(items, models.ScoredItem{
			ItemID:     event.ID,
			Score:      tasteMatch(taste, &event) + s.recencyBonus(&event, now),
			Tier:       "content_based",
			Reason:     "Because you like " + displayName(event.Category),
			ReasonType: models.ReasonCategoryMatch,
			Item:       &event,
		})
	}

	return s.normalizeAndSort(items)
}

// trendingTier is the final fallback: most-interacted items, no personalization.
func (s *RecommendationCascadeService) trendingTier(
	ctx context.Context,
	itemType string,
	city string,
) []models.ScoredItem {
	counts, err := s.store.CountInteractions(ctx, itemType, s.config.CandidatePoolSize)
	if err != nil {
		s.logger.WithError(err).Warn("Interaction count lookup failed")
		return nil
	}
	if len(counts) == 0 {
		return nil
	}

	itemIDs := make([]uuid.UUID, len(counts))
	for i, c := range counts {
		itemIDs[i] = c.ItemID
	}
	events, err := s.store.GetEventsByIDs(ctx, itemIDs)
	if err != nil {
		s.logger.WithError(err).Warn("Event lookup failed")
		events = map[uuid.UUID]models.Event{}
	}

	if city == "" {
		city = "your city"
	}

	var items []models.ScoredItem
	for _, c := range counts {
		item := models.ScoredItem{
			ItemID:     c.ItemID,
			Score:      float64(c.Count) + c.AvgRating,
			Tier:       "trending",
			Reason:     "Trending in " + city,
			ReasonType: models.ReasonTrending,
		}
		if event, ok := events[c.ItemID]; ok {
			item.Item = &event
		}
		items = append(items, item)
	}

	return s.normalizeAndSort(items)
}

func (s *RecommendationCascadeService) recencyBonus(event *models.Event, now time.Time) float64 {
	if event.StartTime == nil {
		// Places have no recency curve; a flat moderate bonus keeps them
		// competitive with dated events.
		return s.config.PlaceFlatBonus
	}

	hours := event.StartTime.Sub(now).Hours()
	switch {
	case hours < 0:
		return 0
	case hours <= 48:
		return s.config.RecencyMaxBonus
	case hours <= 168:
		return s.config.RecencyMaxBonus * 0.6
	case hours <= 336:
		return s.config.RecencyMaxBonus * 0.3
	default:
		return 0
	}
}

// normalizeAndSort rescales one tier's scores to [0,1] and orders it. Scores
// are only comparable within a tier, so each tier normalizes independently.
func (s *RecommendationCascadeService) normalizeAndSort(items []models.ScoredItem) []models.ScoredItem {
	if len(items) == 0 {
		return items
	}

	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = item.Score
	}

	minScore := floats.Min(scores)
	maxScore := floats.Max(scores)
	if spread := maxScore - minScore; spread > 0 {
		for i := range items {
			items[i].Score = (items[i].Score - minScore) / spread
		}
	} else {
		for i := range items {
			items[i].Score = 1.0
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ItemID.String() < items[j].ItemID.String()
	})

	return items
}

func topTasteCategories(taste models.TasteVector, limit int) []string {
	type weighted struct {
		category string
		weight   float64
	}

	var positive []weighted
	for category, weight := range taste.Categories {
		if weight > 0 {
			positive = append(positive, weighted{category, weight})
		}
	}

	sort.Slice(positive, func(i, j int) bool {
		if positive[i].weight != positive[j].weight {
			return positive[i].weight > positive[j].weight
		}
		return positive[i].category < positive[j].category
	})

	if limit > 0 && len(positive) > limit {
		positive = positive[:limit]
	}

	categories := make([]string, len(positive))
	for i, w := range positive {
		categories[i] = w.category
	}
	return categories
}
