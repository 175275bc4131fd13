package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Feed           *FeedHandler
	Recommendation *RecommendationHandler
	Curation       *CurationHandler
	Interaction    *InteractionHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Feed:           NewFeedHandler(services.Feed, services.Scorer, services.ItemStore, logger),
		Recommendation: NewRecommendationHandler(services.Cascade, logger),
		Curation:       NewCurationHandler(services.Curation, logger),
		Interaction:    NewInteractionHandler(services.Interaction, logger),
	}
}
