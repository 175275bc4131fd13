package services

import (
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/internal/database"
	"github.com/sonderhq/sonder/internal/messaging"
	"github.com/sonderhq/sonder/internal/validation"
)

type Services struct {
	Auth        *AuthService
	Health      *HealthService
	RateLimit   *RateLimitService
	MessageBus  *messaging.MessageBus
	Metrics     *MetricsCollector
	ItemStore   *ItemStore
	Similarity  SimilarUserFinder
	Scorer      *EventScoringService
	Feed        *FeedService
	Cascade     *RecommendationCascadeService
	Curation    *CurationService
	Interaction *InteractionService
	Trending    *TrendingAggregator
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis.Hot)
	healthService := NewHealthService(cfg, logger, db)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis.Hot)
	metrics := NewMetricsCollector()

	messageBus, err := messaging.NewMessageBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	itemStore := NewItemStore(db.PG, db.Redis.Warm, logger)

	var similarity SimilarUserFinder
	if cfg.Engine.Similarity.UseGraph && db.Neo4j != nil {
		similarity = NewGraphSimilarityService(db.Neo4j, &cfg.Engine.Similarity, logger)
	} else {
		similarity = NewJaccardSimilarityService(itemStore, &cfg.Engine.Similarity, logger)
	}

	ranker := NewDiversityRanker(&cfg.Engine.Diversity, logger)
	scorer := NewEventScoringService(&cfg.Engine.Scoring, DefaultScoringVocabulary(), ranker, logger)

	feed := NewFeedService(itemStore, scorer, &cfg.Engine, metrics, logger)
	cascade := NewRecommendationCascadeService(itemStore, similarity, &cfg.Engine.Cascade, metrics, logger)

	schemaValidator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	aiCurator := NewAICurator(&cfg.Curator, schemaValidator, metrics, logger)
	deterministic := NewDeterministicCurator(&cfg.Curator, logger)
	curation := NewCurationService(itemStore, scorer, aiCurator, deterministic, &cfg.Curator, metrics, logger)

	interaction := NewInteractionService(itemStore, messageBus, metrics, logger)
	trending := NewTrendingAggregator(db.Redis.Warm, metrics, logger)

	return &Services{
		Auth:        authService,
		Health:      healthService,
		RateLimit:   rateLimitService,
		MessageBus:  messageBus,
		Metrics:     metrics,
		ItemStore:   itemStore,
		Similarity:  similarity,
		Scorer:      scorer,
		Feed:        feed,
		Cascade:     cascade,
		Curation:    curation,
		Interaction: interaction,
		Trending:    trending,
	}, nil
}
