package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// CurationService assembles the candidate set, asks the AI curator for picks,
// and falls back to the deterministic curator when the AI path declines.
type CurationService struct {
	store         ItemStoreInterface
	scorer        EventScorerInterface
	curator       CuratorInterface
	deterministic *DeterministicCurator
	config        *config.CuratorConfig
	metrics       *MetricsCollector
	logger        *logrus.Logger
}

func NewCurationService(
	store ItemStoreInterface,
	scorer EventScorerInterface,
	curator CuratorInterface,
	deterministic *DeterministicCurator,
	cfg *config.CuratorConfig,
	metrics *MetricsCollector,
	logger *logrus.Logger,
) *CurationService {
	return &CurationService{
		store:         store,
		scorer:        scorer,
		curator:       curator,
		deterministic: deterministic,
		config:        cfg,
		metrics:       metrics,
		logger:        logger,
	}
}

// GetSuggestions returns weekly and monthly picks for a user. The result is
// never nil: when the AI path is disabled, errors, or rejects, the
// deterministic curator serves.
func (s *CurationService) GetSuggestions(ctx context.Context, userID uuid.UUID) (*models.CurationResponse, error) {
	aggregates, err := s.store.GetUserAggregates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user aggregates: %w", err)
	}

	now := time.Now()
	candidates, scored, err := s.buildCandidates(ctx, aggregates, now)
	if err != nil {
		return nil, err
	}

	var output *models.SuggestionOutput
	if s.curator != nil {
		output = s.curator.GenerateAISuggestions(ctx, tasteSummaryText(aggregates, scored), candidates)
	}
	if output == nil {
		output = s.deterministic.Generate(candidates, now)
		if s.metrics != nil {
			s.metrics.RecordCurationOutcome("deterministic", "served")
		}
	}

	return &models.CurationResponse{
		UserID:      userID.String(),
		Suggestions: output,
		GeneratedAt: now,
	}, nil
}

// buildCandidates scores the active item pool for the user and projects the
// top results into the reduced shape the curators see.
func (s *CurationService) buildCandidates(
	ctx context.Context,
	aggregates *models.UserAggregates,
	now time.Time,
) ([]models.Candidate, []models.ScoredEvent, error) {
	limit := s.config.MaxCandidates
	if limit <= 0 {
		limit = 60
	}

	events, err := s.store.FindCandidates(ctx, "", nil, nil, limit*3)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load curation candidates: %w", err)
	}

	trending, err := s.store.TrendingItemIDs(ctx, aggregates.City, 50)
	if err != nil {
		s.logger.WithError(err).Debug("Trending lookup failed for curation")
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
		Now:         now,
	}

	scored := s.scorer.ScoreAndRankEvents(events, sctx)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	candidates := make([]models.Candidate, 0, len(scored))
	for _, se := range scored {
		candidates = append(candidates, models.Candidate{
			ID:         se.Event.ID.String(),
			Type:       se.Event.Type,
			Title:      se.Event.Title,
			Category:   se.Event.Category,
			Tags:       se.Event.Tags,
			Date:       se.Event.StartTime,
			Venue:      se.Event.Venue,
			Price:      se.Event.PriceText,
			MatchScore: se.Score,
		})
	}
	return candidates, scored, nil
}

// tasteSummaryText condenses the user profile into the few lines of prose the
// model prompt carries.
func tasteSummaryText(aggregates *models.UserAggregates, scored []models.ScoredEvent) string {
	var lines []string

	if len(aggregates.Preferences.Categories) > 0 {
		var likes, dislikes []string
		for category, pref := range aggregates.Preferences.Categories {
			if pref.Type == models.PreferenceLike {
				likes = append(likes, category)
			} else {
				dislikes = append(dislikes, category)
			}
		}
		sort.Strings(likes)
		sort.Strings(dislikes)
		if len(likes) > 0 {
			lines = append(lines, "Likes: "+strings.Join(likes, ", "))
		}
		if len(dislikes) > 0 {
			lines = append(lines, "Avoids: "+strings.Join(dislikes, ", "))
		}
	}

	if aggregates.Detailed != nil {
		if aggregates.Detailed.PreferSoberFriendly {
			lines = append(lines, "Prefers sober-friendly options")
		}
		if aggregates.Detailed.HasDog {
			lines = append(lines, "Has a dog")
		}
	}
	if aggregates.Constraints != nil && aggregates.Constraints.FreeOnly {
		lines = append(lines, "Only wants free things")
	}
	if aggregates.City != "" {
		lines = append(lines, "City: "+aggregates.City)
	}
	if len(scored) > 0 {
		lines = append(lines, "Current top match: "+scored[0].Event.Title)
	}

	if len(lines) == 0 {
		return "New user, no strong signals yet."
	}
	return strings.Join(lines, "\n")
}
